package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pressbox/internal/services"
)

const sampleJSON = `{
  "streams": [
    {"codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080},
    {"codec_type": "audio", "codec_name": "aac"}
  ],
  "format": {"duration": "120.5", "size": "524288000", "format_name": "mov,mp4,m4a"}
}`

func stubFFprobe(t *testing.T, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub ffprobe: %v", err)
	}
	return path
}

func sourceFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "match.mp4")
	if err := os.WriteFile(path, []byte("not a real container"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}

func TestInspectParsesMetadata(t *testing.T) {
	binary := stubFFprobe(t, "#!/bin/sh\ncat <<'EOF'\n"+sampleJSON+"\nEOF\n")
	info, err := Inspect(context.Background(), binary, sourceFile(t), 5*time.Second)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.DurationSeconds != 120.5 {
		t.Fatalf("duration = %v, want 120.5", info.DurationSeconds)
	}
	if info.Width != 1920 || info.Height != 1080 {
		t.Fatalf("resolution = %dx%d, want 1920x1080", info.Width, info.Height)
	}
	if info.SizeBytes != 524288000 {
		t.Fatalf("size = %d, want 524288000", info.SizeBytes)
	}
	if !info.HasAudio {
		t.Fatal("expected audio stream to be detected")
	}
	if info.VideoCodec != "h264" {
		t.Fatalf("video codec = %q, want h264", info.VideoCodec)
	}
}

func TestInspectFailsOnMissingSource(t *testing.T) {
	binary := stubFFprobe(t, "#!/bin/sh\nexit 0\n")
	_, err := Inspect(context.Background(), binary, filepath.Join(t.TempDir(), "missing.mp4"), time.Second)
	if !errors.Is(err, services.ErrUnreadableSource) {
		t.Fatalf("expected ErrUnreadableSource, got %v", err)
	}
}

func TestInspectFailsOnProbeError(t *testing.T) {
	binary := stubFFprobe(t, "#!/bin/sh\nexit 1\n")
	_, err := Inspect(context.Background(), binary, sourceFile(t), time.Second)
	if !errors.Is(err, services.ErrUnreadableSource) {
		t.Fatalf("expected ErrUnreadableSource, got %v", err)
	}
}

func TestInspectFailsOnIncompleteMetadata(t *testing.T) {
	binary := stubFFprobe(t, "#!/bin/sh\necho '{\"streams\":[],\"format\":{}}'\n")
	_, err := Inspect(context.Background(), binary, sourceFile(t), time.Second)
	if !errors.Is(err, services.ErrUnreadableSource) {
		t.Fatalf("expected ErrUnreadableSource, got %v", err)
	}
}

func TestInspectHonorsTimeout(t *testing.T) {
	binary := stubFFprobe(t, "#!/bin/sh\nsleep 5\n")
	start := time.Now()
	_, err := Inspect(context.Background(), binary, sourceFile(t), 100*time.Millisecond)
	if !errors.Is(err, services.ErrUnreadableSource) {
		t.Fatalf("expected ErrUnreadableSource, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("inspect did not honor timeout, took %v", elapsed)
	}
}

func TestInspectUnblocksWhenGrandchildHoldsPipe(t *testing.T) {
	// The stub exits immediately but leaves a forked child holding
	// stdout open; Inspect must not wait for the orphan to finish.
	binary := stubFFprobe(t, "#!/bin/sh\nsleep 5 &\nexit 0\n")
	start := time.Now()
	_, err := Inspect(context.Background(), binary, sourceFile(t), 100*time.Millisecond)
	if !errors.Is(err, services.ErrUnreadableSource) {
		t.Fatalf("expected ErrUnreadableSource, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("inspect blocked on an orphaned pipe, took %v", elapsed)
	}
}

func TestUnderTarget(t *testing.T) {
	info := Info{SizeBytes: 10 << 20}
	if !info.UnderTarget(50 << 20) {
		t.Fatal("10MB source should be under 50MB target")
	}
	if info.UnderTarget(5 << 20) {
		t.Fatal("10MB source should not be under 5MB target")
	}
}
