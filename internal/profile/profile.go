package profile

import (
	"fmt"
	"strings"
)

// Profile is an immutable bundle of encode parameters trading speed against
// quality. Quality is an ordinal score from 1 (fastest) to 10 (best looking).
type Profile struct {
	Name            string
	ScaleFactor     float64
	TargetFrameRate int
	// FrameStride samples every Nth decoded frame; intermediate indices
	// hold the previous raster, trading smoothness for throughput.
	FrameStride     int
	VideoBitrateBps int
	// AudioBitrateBps is zero for speed-first profiles that trade the
	// audio track away entirely.
	AudioBitrateBps int
	QualityScore    int
}

// HasAudio reports whether the profile allocates an audio track at all.
func (p Profile) HasAudio() bool {
	return p.AudioBitrateBps > 0
}

// Validate checks the per-profile parameter bounds.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("profile name must not be empty")
	}
	if p.ScaleFactor <= 0 || p.ScaleFactor > 1 {
		return fmt.Errorf("profile %s: scale factor %v outside (0,1]", p.Name, p.ScaleFactor)
	}
	if p.TargetFrameRate <= 0 {
		return fmt.Errorf("profile %s: target frame rate must be positive", p.Name)
	}
	if p.FrameStride <= 0 {
		return fmt.Errorf("profile %s: frame stride must be positive", p.Name)
	}
	if p.VideoBitrateBps <= 0 {
		return fmt.Errorf("profile %s: video bitrate must be positive", p.Name)
	}
	if p.AudioBitrateBps < 0 {
		return fmt.Errorf("profile %s: audio bitrate must not be negative", p.Name)
	}
	if p.QualityScore < 1 || p.QualityScore > 10 {
		return fmt.Errorf("profile %s: quality score %d outside [1,10]", p.Name, p.QualityScore)
	}
	return nil
}
