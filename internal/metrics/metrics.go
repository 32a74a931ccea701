package metrics

import (
	"time"

	"pressbox/internal/services"
)

// Record captures the measurable outcome of one compression run.
type Record struct {
	OriginalSizeBytes    int64
	CompressedSizeBytes  int64
	CompressionRatio     float64
	ProcessingDurationMs int64
	SpeedFactor          float64
}

// Compute derives a record from the raw run measurements. The ratio is the
// original size over the compressed size and is reported unclamped: a run
// that inflated the payload yields a ratio below 1 rather than being hidden.
func Compute(originalBytes, compressedBytes int64, elapsed time.Duration, referenceThroughputBytesPerMs float64) (Record, error) {
	if originalBytes <= 0 {
		return Record{}, services.Wrap(services.ErrConfiguration, "metrics", "compute", "original size must be positive", nil)
	}
	if compressedBytes <= 0 {
		return Record{}, services.Wrap(services.ErrConfiguration, "metrics", "compute", "compressed size must be positive", nil)
	}
	if referenceThroughputBytesPerMs <= 0 {
		return Record{}, services.Wrap(services.ErrConfiguration, "metrics", "compute", "reference throughput must be positive", nil)
	}
	durationMs := elapsed.Milliseconds()
	if durationMs < 1 {
		durationMs = 1
	}
	throughput := float64(originalBytes) / float64(durationMs)
	return Record{
		OriginalSizeBytes:    originalBytes,
		CompressedSizeBytes:  compressedBytes,
		CompressionRatio:     float64(originalBytes) / float64(compressedBytes),
		ProcessingDurationMs: durationMs,
		SpeedFactor:          throughput / referenceThroughputBytesPerMs,
	}, nil
}

// PassThrough describes a run where the source already met the size target
// and was handed back untouched.
func PassThrough(originalBytes int64, elapsed time.Duration) Record {
	durationMs := elapsed.Milliseconds()
	if durationMs < 0 {
		durationMs = 0
	}
	return Record{
		OriginalSizeBytes:    originalBytes,
		CompressedSizeBytes:  originalBytes,
		CompressionRatio:     1,
		ProcessingDurationMs: durationMs,
		SpeedFactor:          1,
	}
}
