package sample

import (
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"pressbox/internal/raster"
	"pressbox/internal/services"
)

var commandContext = exec.CommandContext

// pipeWaitDelay bounds how long a finished or killed decode process may keep
// its stdout pipe open before Close forces it shut.
const pipeWaitDelay = time.Second

// DecoderOptions sizes the decode stream. Frames arrive at the native source
// resolution and the profile's target frame rate; scaling happens later in
// the render stage.
type DecoderOptions struct {
	Binary     string
	SourcePath string
	Width      int
	Height     int
	FrameRate  int
}

// Decoder walks the source timeline at the target frame rate, producing one
// decoded raster per sample point. It owns a single ffmpeg child whose
// lifetime matches the pipeline's; Close releases the decode handle.
type Decoder struct {
	opts       DecoderOptions
	cmd        *exec.Cmd
	stdout     io.ReadCloser
	frameBytes int
	started    bool
}

// NewDecoder validates options without spawning anything.
func NewDecoder(opts DecoderOptions) (*Decoder, error) {
	if strings.TrimSpace(opts.SourcePath) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "sample", "new decoder", "source path must be set", nil)
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "sample", "new decoder", fmt.Sprintf("invalid source dimensions %dx%d", opts.Width, opts.Height), nil)
	}
	if opts.FrameRate <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "sample", "new decoder", "frame rate must be positive", nil)
	}
	return &Decoder{
		opts:       opts,
		frameBytes: opts.Width * opts.Height * raster.BytesPerPixel,
	}, nil
}

// Start spawns the decode process. Cancelling ctx kills it promptly.
func (d *Decoder) Start(ctx context.Context) error {
	if d.started {
		return services.Wrap(services.ErrTransient, "sample", "start decoder", "decoder already started", nil)
	}
	binary := strings.TrimSpace(d.opts.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	cmd := commandContext(ctx, binary,
		"-hide_banner", "-loglevel", "error",
		"-i", d.opts.SourcePath,
		"-vf", "fps="+strconv.Itoa(d.opts.FrameRate),
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1",
	)
	cmd.WaitDelay = pipeWaitDelay
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return services.Wrap(services.ErrTransient, "sample", "start decoder", "failed to open decode stream", err)
	}
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrTransient, "sample", "start decoder", "failed to launch decode process", err)
	}
	d.cmd = cmd
	d.stdout = stdout
	d.started = true
	return nil
}

// Next reads the next decoded frame. io.EOF signals source exhaustion.
func (d *Decoder) Next() (image.Image, error) {
	if !d.started {
		return nil, services.Wrap(services.ErrTransient, "sample", "next frame", "decoder not started", nil)
	}
	pix := make([]byte, d.frameBytes)
	if _, err := io.ReadFull(d.stdout, pix); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, services.Wrap(services.ErrTransient, "sample", "next frame", "decode stream failed", err)
	}
	img := &image.NRGBA{
		Pix:    pix,
		Stride: d.opts.Width * raster.BytesPerPixel,
		Rect:   image.Rect(0, 0, d.opts.Width, d.opts.Height),
	}
	return img, nil
}

// Close releases the decode handle. Safe to call multiple times and after
// source exhaustion.
func (d *Decoder) Close() {
	if !d.started {
		return
	}
	d.started = false
	if d.stdout != nil {
		_ = d.stdout.Close()
	}
	if d.cmd != nil && d.cmd.Process != nil {
		_ = d.cmd.Process.Kill()
		_ = d.cmd.Wait()
	}
}
