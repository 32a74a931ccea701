// Package thumbnail extracts a single representative frame from a video
// source and scales it down for preview use.
package thumbnail

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os/exec"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"pressbox/internal/services"
)

var commandContext = exec.CommandContext

// pipeWaitDelay bounds how long a finished or killed ffmpeg may keep its
// pipes open before they are forcibly closed.
const pipeWaitDelay = time.Second

// Options selects the frame and output shape. TimestampSeconds beyond the
// source duration is clamped back inside the timeline rather than rejected.
type Options struct {
	Binary           string
	SourcePath       string
	TimestampSeconds float64
	DurationSeconds  float64
	Width            int
	Timeout          time.Duration
}

// tailMargin keeps the seek point off the very last instant of the
// timeline, where a decoder may produce no frame at all.
const tailMargin = 0.1

// Extract decodes one frame at the requested timestamp and returns it
// resized to opts.Width, preserving aspect ratio.
func Extract(ctx context.Context, opts Options) (image.Image, error) {
	if strings.TrimSpace(opts.SourcePath) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "thumbnail", "extract", "source path must be set", nil)
	}
	if opts.DurationSeconds <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "thumbnail", "extract", "source duration must be positive", nil)
	}
	if opts.Width <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "thumbnail", "extract", "thumbnail width must be positive", nil)
	}
	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}

	ts := clampTimestamp(opts.TimestampSeconds, opts.DurationSeconds)

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := commandContext(ctx, binary,
		"-hide_banner", "-loglevel", "error",
		"-ss", fmt.Sprintf("%.3f", ts),
		"-i", opts.SourcePath,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"pipe:1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = pipeWaitDelay
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, services.Wrap(services.ErrUnreadableSource, "thumbnail", "extract", "frame extraction failed: "+detail, err)
	}

	frame, err := imaging.Decode(&stdout)
	if err != nil {
		return nil, services.Wrap(services.ErrUnreadableSource, "thumbnail", "extract", "decoded frame is not a valid image", err)
	}
	if frame.Bounds().Dx() <= opts.Width {
		return frame, nil
	}
	return imaging.Resize(frame, opts.Width, 0, imaging.Linear), nil
}

// Save extracts a frame and writes it to path; the format follows the file
// extension.
func Save(ctx context.Context, opts Options, path string) error {
	frame, err := Extract(ctx, opts)
	if err != nil {
		return err
	}
	if err := imaging.Save(frame, path); err != nil {
		return services.Wrap(services.ErrTransient, "thumbnail", "save", "failed to write thumbnail", err)
	}
	return nil
}

func clampTimestamp(ts, duration float64) float64 {
	limit := duration - tailMargin
	if limit < 0 {
		limit = 0
	}
	if ts < 0 {
		return 0
	}
	if ts > limit {
		return limit
	}
	return ts
}
