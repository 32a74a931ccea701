package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pressbox/internal/config"
)

func notifyContext(cfg config.Config) *commandContext {
	ctx := &commandContext{}
	ctx.configOnce.Do(func() { ctx.config = &cfg })
	return ctx
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	cmd := newTestNotifyCommand(notifyContext(config.Default()))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "Notification not sent") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestTestNotifySendsToTopic(t *testing.T) {
	var title string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title = r.Header.Get("Title")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	cmd := newTestNotifyCommand(notifyContext(cfg))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "Test notification sent") {
		t.Fatalf("output = %q", out.String())
	}
	if title != "Pressbox - Test" {
		t.Fatalf("title = %q", title)
	}
}
