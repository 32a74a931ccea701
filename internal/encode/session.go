package encode

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"pressbox/internal/logging"
	"pressbox/internal/services"
)

// AudioTrack describes the source audio the session multiplexes into its
// output, re-synchronized against the capture clock rather than the original
// video clock.
type AudioTrack struct {
	SourcePath string
	BitrateBps int
}

// Options sizes an encoder session. Width/Height are the post-scale raster
// dimensions; FrameRate is the capture rate the raster stream arrives at.
type Options struct {
	Binary          string
	Codec           string
	Width           int
	Height          int
	FrameRate       int
	VideoBitrateBps int
	OutputPath      string
	Audio           *AudioTrack
	Logger          *slog.Logger
}

// Session wraps an incremental ffmpeg encode: raw raster frames are pushed
// onto the child's stdin at a fixed capture rate and accumulate into one
// output container on Finalize. A session is single-use and owned by exactly
// one pipeline.
type Session struct {
	opts   Options
	logger *slog.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer

	frames    int64
	started   bool
	finalized bool
	succeeded bool
}

// NewSession validates options and prepares a session. No process is spawned
// until Start.
func NewSession(opts Options) (*Session, error) {
	if strings.TrimSpace(opts.Codec) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "encode", "new session", "codec must be negotiated before opening a session", nil)
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "encode", "new session", fmt.Sprintf("invalid raster dimensions %dx%d", opts.Width, opts.Height), nil)
	}
	if opts.FrameRate <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, "encode", "new session", "frame rate must be positive", nil)
	}
	if strings.TrimSpace(opts.OutputPath) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "encode", "new session", "output path must be set", nil)
	}
	return &Session{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "encoder"),
	}, nil
}

// Start spawns the encoder process. The context bounds the whole session:
// cancelling it kills the child promptly.
func (s *Session) Start(ctx context.Context) error {
	if s.started {
		return services.Wrap(services.ErrEncodeFailed, "encode", "start", "session already started", nil)
	}

	binary := strings.TrimSpace(s.opts.Binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	cmd := commandContext(ctx, binary, s.args()...)
	cmd.Stderr = &s.stderr
	// Bounds the Wait in Finalize and Abort when a grandchild of the
	// encoder keeps the stderr pipe open after the process is gone.
	cmd.WaitDelay = pipeWaitDelay

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return services.Wrap(services.ErrEncodeFailed, "encode", "start", "failed to open encoder input surface", err)
	}
	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrEncodeFailed, "encode", "start", "failed to launch encoder process", err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.started = true
	s.logger.Debug("encoder session started",
		logging.String("codec", s.opts.Codec),
		logging.Int("width", s.opts.Width),
		logging.Int("height", s.opts.Height),
		logging.Int("frame_rate", s.opts.FrameRate),
		logging.Bool("audio", s.opts.Audio != nil),
		logging.String("output", s.opts.OutputPath),
	)
	return nil
}

// args assembles the ffmpeg invocation: rawvideo on stdin, optional audio as
// a second input re-synced to the capture clock, one output container.
func (s *Session) args() []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", s.opts.Width, s.opts.Height),
		"-framerate", strconv.Itoa(s.opts.FrameRate),
		"-i", "pipe:0",
	}
	if s.opts.Audio != nil {
		args = append(args, "-i", s.opts.Audio.SourcePath)
	}
	args = append(args, "-map", "0:v:0")
	if s.opts.Audio != nil {
		args = append(args, "-map", "1:a:0")
	}
	args = append(args,
		"-c:v", s.opts.Codec,
		"-b:v", strconv.Itoa(s.opts.VideoBitrateBps),
		"-pix_fmt", "yuv420p",
	)
	if s.opts.Audio != nil {
		args = append(args,
			"-c:a", audioCodecFor(s.opts.Codec),
			"-b:a", strconv.Itoa(s.opts.Audio.BitrateBps),
			// Re-sync the audio against the capture stream's sample
			// clock; the raster stream, not the original video,
			// defines the output timeline.
			"-af", "aresample=async=1:first_pts=0",
			"-shortest",
		)
	}
	return append(args, s.opts.OutputPath)
}

// PushFrame writes one raw raster frame to the encoder's input surface.
func (s *Session) PushFrame(pix []byte) error {
	if !s.started || s.stdin == nil {
		return services.Wrap(services.ErrEncodeFailed, "encode", "push frame", "session not started", nil)
	}
	if _, err := s.stdin.Write(pix); err != nil {
		return services.Wrap(services.ErrEncodeFailed, "encode", "push frame", s.stderrTail(), err)
	}
	s.frames++
	return nil
}

// Frames returns how many frames have been pushed so far.
func (s *Session) Frames() int64 {
	return s.frames
}

// Finalize closes the input surface, waits for the encoder to assemble the
// output container, and returns its path.
func (s *Session) Finalize() (string, error) {
	if !s.started {
		return "", services.Wrap(services.ErrEncodeFailed, "encode", "finalize", "session not started", nil)
	}
	if s.finalized {
		return "", services.Wrap(services.ErrEncodeFailed, "encode", "finalize", "session already finalized", nil)
	}
	s.finalized = true

	if err := s.stdin.Close(); err != nil {
		s.abortLocked()
		return "", services.Wrap(services.ErrEncodeFailed, "encode", "finalize", "failed to close encoder input", err)
	}
	if err := s.cmd.Wait(); err != nil {
		s.removePartialOutput()
		return "", services.Wrap(services.ErrEncodeFailed, "encode", "finalize", s.stderrTail(), err)
	}
	if info, err := os.Stat(s.opts.OutputPath); err != nil || info.Size() == 0 {
		s.removePartialOutput()
		return "", services.Wrap(services.ErrEncodeFailed, "encode", "finalize", "encoder produced no output", err)
	}
	s.succeeded = true
	s.logger.Debug("encoder session finalized",
		logging.Int64("frames", s.frames),
		logging.String("output", s.opts.OutputPath),
	)
	return s.opts.OutputPath, nil
}

// Abort kills the encoder and removes any partial output. Safe to call on a
// session in any state; callers abort on every failure or cancellation path
// so corrupt containers never escape.
func (s *Session) Abort() {
	if s.succeeded {
		return
	}
	if !s.started || s.finalized {
		s.removePartialOutput()
		return
	}
	s.finalized = true
	s.abortLocked()
}

func (s *Session) abortLocked() {
	if s.stdin != nil {
		_ = s.stdin.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
	}
	s.removePartialOutput()
}

func (s *Session) removePartialOutput() {
	if path := strings.TrimSpace(s.opts.OutputPath); path != "" {
		_ = os.Remove(path)
	}
}

func (s *Session) stderrTail() string {
	const tail = 512
	text := strings.TrimSpace(s.stderr.String())
	if text == "" {
		return "encoder session fault"
	}
	if len(text) > tail {
		text = text[len(text)-tail:]
	}
	return text
}
