package encode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pressbox/internal/services"
)

const encodersOutput = `Encoders:
 V..... = Video
 A..... = Audio
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC (codec h264)
 V....D mpeg4                MPEG-4 part 2
 A....D aac                  AAC (Advanced Audio Coding)
`

func stubFFmpeg(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub ffmpeg: %v", err)
	}
	return path
}

func TestNegotiatePrefersFirstSupported(t *testing.T) {
	binary := stubFFmpeg(t, "#!/bin/sh\ncat <<'EOF'\n"+encodersOutput+"\nEOF\n")
	codec, err := Negotiate(context.Background(), binary, []string{"libvpx-vp9", "libx264", "mpeg4"})
	if err != nil {
		t.Fatalf("negotiate: %v", err)
	}
	if codec != "libx264" {
		t.Fatalf("codec = %q, want libx264 (first supported in preference order)", codec)
	}
}

func TestNegotiateFailsWhenNothingSupported(t *testing.T) {
	binary := stubFFmpeg(t, "#!/bin/sh\ncat <<'EOF'\n"+encodersOutput+"\nEOF\n")
	_, err := Negotiate(context.Background(), binary, []string{"libaom-av1", "libsvtav1"})
	if !errors.Is(err, services.ErrNoSupportedCodec) {
		t.Fatalf("expected ErrNoSupportedCodec, got %v", err)
	}
}

func TestNegotiateFailsOnEmptyPreference(t *testing.T) {
	_, err := Negotiate(context.Background(), "ffmpeg", nil)
	if !errors.Is(err, services.ErrNoSupportedCodec) {
		t.Fatalf("expected ErrNoSupportedCodec, got %v", err)
	}
}

func TestNegotiateFailsWhenCapabilityQueryFails(t *testing.T) {
	binary := stubFFmpeg(t, "#!/bin/sh\nexit 1\n")
	_, err := Negotiate(context.Background(), binary, []string{"libx264"})
	if !errors.Is(err, services.ErrNoSupportedCodec) {
		t.Fatalf("expected ErrNoSupportedCodec, got %v", err)
	}
}

func TestContainerExtension(t *testing.T) {
	if got := ContainerExtension("libx264"); got != ".mp4" {
		t.Fatalf("libx264 extension = %q, want .mp4", got)
	}
	if got := ContainerExtension("libvpx-vp9"); got != ".webm" {
		t.Fatalf("libvpx-vp9 extension = %q, want .webm", got)
	}
	if got := ContainerExtension("unknown"); got != ".mp4" {
		t.Fatalf("unknown extension = %q, want .mp4 default", got)
	}
}
