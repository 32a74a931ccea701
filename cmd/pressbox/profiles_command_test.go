package main

import (
	"bytes"
	"strings"
	"testing"

	"pressbox/internal/profile"
)

func TestRenderProfilesListsEveryCatalogEntry(t *testing.T) {
	rendered := renderProfiles(profile.DefaultCatalog())
	for _, name := range profile.DefaultCatalog().Names() {
		if !strings.Contains(rendered, name) {
			t.Fatalf("profile %s missing from table:\n%s", name, rendered)
		}
	}
	if !strings.Contains(rendered, "Maximum Speed") {
		t.Fatalf("titled label missing from table:\n%s", rendered)
	}
}

func TestProfilesCommandWritesTable(t *testing.T) {
	cmd := newProfilesCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "balanced") {
		t.Fatalf("output missing catalog rows:\n%s", out.String())
	}
}
