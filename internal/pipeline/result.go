package pipeline

import (
	"strings"

	"pressbox/internal/services"
)

// Request is the caller's input for one compression run.
type Request struct {
	SourcePath      string
	TargetSizeBytes int64
	ProfileName     string
	PreserveAudio   bool
	Progress        ProgressFunc
}

func (r Request) validate() error {
	if strings.TrimSpace(r.SourcePath) == "" {
		return services.Wrap(services.ErrConfiguration, "pipeline", "validate request", "source path must be set", nil)
	}
	if r.TargetSizeBytes <= 0 {
		return services.Wrap(services.ErrConfiguration, "pipeline", "validate request", "target size must be positive", nil)
	}
	if strings.TrimSpace(r.ProfileName) == "" {
		return services.Wrap(services.ErrConfiguration, "pipeline", "validate request", "profile name must be set", nil)
	}
	return nil
}

// Result is the outcome of one completed compression run. The compression
// ratio is reported unclamped so callers can detect regressions on
// pathological inputs.
type Result struct {
	OutputPath           string   `json:"output_path"`
	OutputURL            string   `json:"output_url,omitempty"`
	OriginalSizeBytes    int64    `json:"original_size_bytes"`
	CompressedSizeBytes  int64    `json:"compressed_size_bytes"`
	CompressionRatio     float64  `json:"compression_ratio"`
	ProcessingDurationMs int64    `json:"processing_duration_ms"`
	ProfileUsed          string   `json:"profile_used"`
	QualityScore         int      `json:"quality_score"`
	SpeedFactor          float64  `json:"speed_factor"`
	AudioPreserved       bool     `json:"audio_preserved"`
	PassThrough          bool     `json:"pass_through"`
	ThumbnailPath        string   `json:"thumbnail_path,omitempty"`
	ThumbnailURL         string   `json:"thumbnail_url,omitempty"`
	Warnings             []string `json:"warnings,omitempty"`
}
