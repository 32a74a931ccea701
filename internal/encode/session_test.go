package encode

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pressbox/internal/services"
)

// consumingStub drains stdin and copies it to the output path given as the
// final argument, standing in for a real encoder.
const consumingStub = `#!/bin/sh
out=""
for arg in "$@"; do out="$arg"; done
cat > "$out"
`

func testOptions(t *testing.T, binary string) Options {
	t.Helper()
	return Options{
		Binary:          binary,
		Codec:           "libx264",
		Width:           4,
		Height:          4,
		FrameRate:       8,
		VideoBitrateBps: 200_000,
		OutputPath:      filepath.Join(t.TempDir(), "out.mp4"),
	}
}

func TestSessionValidation(t *testing.T) {
	cases := []func(*Options){
		func(o *Options) { o.Codec = "" },
		func(o *Options) { o.Width = 0 },
		func(o *Options) { o.FrameRate = 0 },
		func(o *Options) { o.OutputPath = "" },
	}
	for i, mutate := range cases {
		opts := testOptions(t, "ffmpeg")
		mutate(&opts)
		if _, err := NewSession(opts); err == nil {
			t.Fatalf("case %d: expected option validation failure", i)
		}
	}
}

func TestSessionEncodesFrameStream(t *testing.T) {
	binary := stubFFmpeg(t, consumingStub)
	opts := testOptions(t, binary)
	session, err := NewSession(opts)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	frame := make([]byte, 4*4*4)
	for i := 0; i < 10; i++ {
		if err := session.PushFrame(frame); err != nil {
			t.Fatalf("push frame %d: %v", i, err)
		}
	}
	if session.Frames() != 10 {
		t.Fatalf("frames = %d, want 10", session.Frames())
	}

	path, err := session.Finalize()
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Size() != int64(len(frame)*10) {
		t.Fatalf("output size = %d, want %d", info.Size(), len(frame)*10)
	}

	// Abort after a successful finalize must not delete the output.
	session.Abort()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("output removed by post-success abort: %v", err)
	}
}

func TestSessionFinalizeFailureRemovesPartialOutput(t *testing.T) {
	binary := stubFFmpeg(t, "#!/bin/sh\nout=\"\"\nfor arg in \"$@\"; do out=\"$arg\"; done\ncat > \"$out\"\nexit 1\n")
	opts := testOptions(t, binary)
	session, err := NewSession(opts)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := session.PushFrame(make([]byte, 64)); err != nil {
		t.Fatalf("push frame: %v", err)
	}
	if _, err := session.Finalize(); !errors.Is(err, services.ErrEncodeFailed) {
		t.Fatalf("expected ErrEncodeFailed, got %v", err)
	}
	if _, err := os.Stat(opts.OutputPath); !os.IsNotExist(err) {
		t.Fatal("partial output should have been removed")
	}
}

func TestSessionAbortKillsEncoderAndCleansUp(t *testing.T) {
	binary := stubFFmpeg(t, "#!/bin/sh\nout=\"\"\nfor arg in \"$@\"; do out=\"$arg\"; done\ntouch \"$out\"\nsleep 30\n")
	opts := testOptions(t, binary)
	session, err := NewSession(opts)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	done := make(chan struct{})
	go func() {
		session.Abort()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("abort did not terminate the encoder promptly")
	}
	if _, err := os.Stat(opts.OutputPath); !os.IsNotExist(err) {
		t.Fatal("abort should remove partial output")
	}
}

func TestSessionPushBeforeStartFails(t *testing.T) {
	session, err := NewSession(testOptions(t, "ffmpeg"))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := session.PushFrame(make([]byte, 16)); !errors.Is(err, services.ErrEncodeFailed) {
		t.Fatalf("expected ErrEncodeFailed, got %v", err)
	}
}

func TestCheckAudioDegradesOnFailure(t *testing.T) {
	binary := stubFFmpeg(t, "#!/bin/sh\nexit 1\n")
	err := CheckAudio(context.Background(), binary, "/tmp/source.mp4", time.Second)
	if err == nil {
		t.Fatal("expected audio check failure")
	}
	// Audio failures are transient quality degradations, never fatal kinds.
	if errors.Is(err, services.ErrEncodeFailed) || errors.Is(err, services.ErrUnreadableSource) {
		t.Fatalf("audio check must not surface fatal markers: %v", err)
	}
}

func TestCheckAudioTimesOut(t *testing.T) {
	binary := stubFFmpeg(t, "#!/bin/sh\nsleep 5\n")
	start := time.Now()
	if err := CheckAudio(context.Background(), binary, "/tmp/source.mp4", 100*time.Millisecond); err == nil {
		t.Fatal("expected timeout failure")
	}
	if time.Since(start) > 3*time.Second {
		t.Fatal("audio check did not honor its timeout")
	}
}

func TestCheckAudioUnblocksWhenGrandchildHoldsPipe(t *testing.T) {
	// The stub reports failure immediately but forks a child that keeps
	// the output pipes open; the check must not wait for the orphan.
	binary := stubFFmpeg(t, "#!/bin/sh\nsleep 5 &\nexit 1\n")
	start := time.Now()
	if err := CheckAudio(context.Background(), binary, "/tmp/source.mp4", time.Second); err == nil {
		t.Fatal("expected decode failure")
	}
	if time.Since(start) > 3*time.Second {
		t.Fatal("audio check blocked on an orphaned pipe")
	}
}

func TestCheckAudioAccepts(t *testing.T) {
	binary := stubFFmpeg(t, "#!/bin/sh\nexit 0\n")
	if err := CheckAudio(context.Background(), binary, "/tmp/source.mp4", time.Second); err != nil {
		t.Fatalf("audio check: %v", err)
	}
}
