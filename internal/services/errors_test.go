package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	underlying := errors.New("boom")
	err := Wrap(ErrEncodeFailed, "encode", "push frame", "encoder session fault", underlying)
	if !errors.Is(err, ErrEncodeFailed) {
		t.Fatal("expected wrapped error to match ErrEncodeFailed")
	}
	if !errors.Is(err, underlying) {
		t.Fatal("expected wrapped error to match underlying error")
	}
	msg := err.Error()
	for _, want := range []string{"encode", "push frame", "encoder session fault", "boom"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error message %q missing %q", msg, want)
		}
	}
}

func TestWrapNilMarkerDefaultsToTransient(t *testing.T) {
	err := Wrap(nil, "probe", "open source", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatal("nil marker should default to ErrTransient")
	}
}

func TestFailingStage(t *testing.T) {
	err := Wrap(ErrUnreadableSource, "probe", "ffprobe", "cannot open container", nil)
	if got := FailingStage(err); got != "probe" {
		t.Fatalf("FailingStage = %q, want probe", got)
	}
	wrapped := fmt.Errorf("compress: %w", err)
	if got := FailingStage(wrapped); got != "probe" {
		t.Fatalf("FailingStage through wrapping = %q, want probe", got)
	}
	if got := FailingStage(errors.New("plain")); got != "" {
		t.Fatalf("FailingStage on plain error = %q, want empty", got)
	}
}

func TestDescribe(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{Wrap(ErrNoSupportedCodec, "encode", "negotiate", "", nil), "no supported codec"},
		{Wrap(ErrCancelled, "sample", "tick", "", nil), "cancelled"},
		{errors.New("other"), "failure"},
	}
	for _, tc := range cases {
		if got := Describe(tc.err); got != tc.want {
			t.Fatalf("Describe(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
