package metrics

import (
	"errors"
	"math"
	"testing"
	"time"

	"pressbox/internal/services"
)

func TestComputeRatioAndSpeed(t *testing.T) {
	rec, err := Compute(10_000_000, 2_500_000, 5*time.Second, 2048)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if rec.CompressionRatio != 4 {
		t.Fatalf("ratio = %v, want 4", rec.CompressionRatio)
	}
	if rec.ProcessingDurationMs != 5000 {
		t.Fatalf("duration = %d, want 5000", rec.ProcessingDurationMs)
	}
	// 10MB over 5000ms is 2000 bytes/ms against a 2048 reference.
	want := 2000.0 / 2048.0
	if math.Abs(rec.SpeedFactor-want) > 1e-9 {
		t.Fatalf("speed factor = %v, want %v", rec.SpeedFactor, want)
	}
}

func TestComputeInflatedOutputReportsRatioBelowOne(t *testing.T) {
	rec, err := Compute(1000, 4000, time.Second, 2048)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if rec.CompressionRatio != 0.25 {
		t.Fatalf("ratio = %v, want 0.25 (unclamped)", rec.CompressionRatio)
	}
}

func TestComputeSubMillisecondRunIsClampedToOneMs(t *testing.T) {
	rec, err := Compute(1000, 500, 100*time.Microsecond, 2048)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if rec.ProcessingDurationMs != 1 {
		t.Fatalf("duration = %d, want 1", rec.ProcessingDurationMs)
	}
}

func TestComputeValidation(t *testing.T) {
	cases := []struct {
		name               string
		original, compressed int64
		reference          float64
	}{
		{"zero original", 0, 100, 2048},
		{"zero compressed", 100, 0, 2048},
		{"zero reference", 100, 50, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Compute(tc.original, tc.compressed, time.Second, tc.reference); !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestPassThrough(t *testing.T) {
	rec := PassThrough(4096, 50*time.Millisecond)
	if rec.CompressionRatio != 1 || rec.SpeedFactor != 1 {
		t.Fatalf("pass-through must report identity ratio and speed, got %+v", rec)
	}
	if rec.CompressedSizeBytes != 4096 {
		t.Fatalf("compressed = %d, want 4096", rec.CompressedSizeBytes)
	}
}
