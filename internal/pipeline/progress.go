package pipeline

import (
	"log/slog"
	"sync"

	"pressbox/internal/logging"
)

// ProgressFunc receives fractional completion in percent, 0 through 100.
type ProgressFunc func(percent float64)

// progressController publishes monotonically non-decreasing percentages to
// the caller's sink and rate-limits the corresponding log lines. Complete
// always lands on exactly 100.
type progressController struct {
	mu      sync.Mutex
	sink    ProgressFunc
	last    float64
	sampler *logging.ProgressSampler
	logger  *slog.Logger
	stage   string
}

func newProgressController(sink ProgressFunc, logger *slog.Logger, stage string) *progressController {
	return &progressController{
		sink:    sink,
		sampler: logging.NewProgressSampler(5),
		logger:  logger,
		stage:   stage,
	}
}

// Tick converts frame counts into a percentage. The final frame is reported
// as 99.9 rather than 100; only Complete publishes 100, after finalize has
// actually produced the output.
func (p *progressController) Tick(done, total int64) {
	if total <= 0 {
		return
	}
	percent := float64(done) / float64(total) * 100
	if percent >= 100 {
		percent = 99.9
	}
	p.publish(percent)
}

// Complete publishes exactly 100.
func (p *progressController) Complete() {
	p.publish(100)
}

func (p *progressController) publish(percent float64) {
	p.mu.Lock()
	if percent < p.last {
		p.mu.Unlock()
		return
	}
	p.last = percent
	shouldLog := p.sampler.ShouldLog(percent, p.stage)
	p.mu.Unlock()

	if p.sink != nil {
		p.sink(percent)
	}
	if shouldLog && p.logger != nil {
		p.logger.Info("compression progress",
			logging.String(logging.FieldStage, p.stage),
			logging.Float64("percent", percent))
	}
}
