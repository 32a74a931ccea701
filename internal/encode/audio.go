package encode

import (
	"context"
	"time"

	"pressbox/internal/services"
)

// CheckAudio verifies that the source's audio track can actually be decoded,
// bounded by timeout. The pipeline uses this before attaching the audio
// merger: a failure here degrades the request to video-only rather than
// aborting it, because audio is a quality enhancement, not a correctness
// requirement of the pipeline.
func CheckAudio(ctx context.Context, binary, sourcePath string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	// Decode one second of the first audio stream into the null muxer.
	cmd := commandContext(ctx, binaryOrDefault(binary),
		"-hide_banner", "-v", "error",
		"-t", "1",
		"-i", sourcePath,
		"-map", "0:a:0",
		"-f", "null", "-",
	)
	cmd.WaitDelay = pipeWaitDelay
	if output, err := cmd.CombinedOutput(); err != nil {
		detail := "audio track could not be decoded"
		if ctx.Err() != nil {
			detail = "audio decode timed out"
		}
		if len(output) > 0 {
			detail = detail + ": " + string(output)
		}
		return services.Wrap(services.ErrTransient, "audio", "decode check", detail, err)
	}
	return nil
}

func binaryOrDefault(binary string) string {
	if binary == "" {
		return "ffmpeg"
	}
	return binary
}
