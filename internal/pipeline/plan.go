package pipeline

import (
	"fmt"

	"pressbox/internal/media/probe"
	"pressbox/internal/profile"
	"pressbox/internal/services"
)

// Plan is the derived geometry for one compression run: deterministic for a
// fixed profile and source, no randomness anywhere.
type Plan struct {
	Width       int
	Height      int
	FrameRate   int
	FrameStride int64
	TotalFrames int64
}

// NewPlan scales the native resolution by the profile's scale factor (floor)
// and sizes the capture timeline. Scaled dimensions are rounded down to even
// because yuv420p output subsamples chroma in 2x2 blocks.
func NewPlan(info probe.Info, prof profile.Profile) (Plan, error) {
	if info.Width <= 0 || info.Height <= 0 {
		return Plan{}, services.Wrap(services.ErrUnreadableSource, "plan", "derive geometry", fmt.Sprintf("invalid source resolution %dx%d", info.Width, info.Height), nil)
	}
	if info.DurationSeconds <= 0 {
		return Plan{}, services.Wrap(services.ErrUnreadableSource, "plan", "derive geometry", "source duration must be positive", nil)
	}

	width := evenFloor(float64(info.Width) * prof.ScaleFactor)
	height := evenFloor(float64(info.Height) * prof.ScaleFactor)

	total := int64(info.DurationSeconds * float64(prof.TargetFrameRate))
	if total < 1 {
		total = 1
	}

	return Plan{
		Width:       width,
		Height:      height,
		FrameRate:   prof.TargetFrameRate,
		FrameStride: int64(prof.FrameStride),
		TotalFrames: total,
	}, nil
}

func evenFloor(v float64) int {
	n := int(v)
	n -= n % 2
	if n < 2 {
		n = 2
	}
	return n
}
