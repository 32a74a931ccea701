package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pressbox/internal/config"
	"pressbox/internal/jobs"
	"pressbox/internal/logging"
	"pressbox/internal/notifications"
	"pressbox/internal/pipeline"
	"pressbox/internal/services"
)

// Compressor runs one compression request to completion. The in-process
// implementation is pipeline.Orchestrator; tests substitute fakes.
type Compressor interface {
	Compress(ctx context.Context, request pipeline.Request) (pipeline.Result, error)
}

// Manager drains the job store with a bounded pool of workers. Each worker
// owns one whole pipeline at a time, so at most cfg.Pipeline.Workers
// compression runs hold decode/encode handles concurrently.
type Manager struct {
	cfg          *config.Config
	store        *jobs.Store
	compressor   Compressor
	notifier     notifications.Service
	logger       *slog.Logger
	pollInterval time.Duration
	workers      int

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a workflow manager with the configured notifier.
func NewManager(cfg *config.Config, store *jobs.Store, compressor Compressor, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, compressor, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier
// (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *jobs.Store, compressor Compressor, logger *slog.Logger, notifier notifications.Service) *Manager {
	poll := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	if poll <= 0 {
		poll = time.Second
	}
	workers := cfg.Pipeline.Workers
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:          cfg,
		store:        store,
		compressor:   compressor,
		notifier:     notifier,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		pollInterval: poll,
		workers:      workers,
	}
}

// Start launches the worker pool. Idempotent; a second Start while running is
// a no-op.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.workerLoop(runCtx, i)
	}
	m.logger.Info("worker pool started",
		logging.Int("workers", m.workers),
		logging.Duration("poll_interval", m.pollInterval))
	return nil
}

// Stop cancels all in-flight pipelines and waits for the workers to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	m.logger.Info("worker pool stopped")
}

// Running reports whether the pool is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) workerLoop(ctx context.Context, index int) {
	defer m.wg.Done()
	logger := m.logger.With(logging.Int("worker", index))
	for {
		if err := ctx.Err(); err != nil {
			return
		}
		job, err := m.store.NextPending(ctx)
		if err != nil {
			logger.Error("failed to poll job store", logging.Error(err))
		}
		if job == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.pollInterval):
			}
			continue
		}
		m.runJob(ctx, job, logger)
	}
}

// progressPersistStep is the minimum percent advance between progress writes,
// keeping per-frame updates from amplifying into per-frame disk writes.
const progressPersistStep = 1.0

func (m *Manager) runJob(ctx context.Context, job *jobs.Job, logger *slog.Logger) {
	ctx = services.WithJobID(ctx, job.ID)
	logger = logging.WithContext(ctx, logger)
	logger.Info("job claimed",
		logging.String("source", job.SourcePath),
		logging.String(logging.FieldProfile, job.ProfileName))

	var lastPersisted float64 = -progressPersistStep
	request := pipeline.Request{
		SourcePath:      job.SourcePath,
		TargetSizeBytes: job.TargetSizeBytes,
		ProfileName:     job.ProfileName,
		PreserveAudio:   job.PreserveAudio,
		Progress: func(percent float64) {
			if percent < 100 && percent-lastPersisted < progressPersistStep {
				return
			}
			lastPersisted = percent
			if err := m.store.UpdateProgress(ctx, job.ID, "encode", percent, ""); err != nil {
				logger.Warn("failed to persist progress", logging.Error(err))
			}
		},
	}

	result, err := m.compressor.Compress(ctx, request)
	if err != nil {
		if !services.Fatal(err) {
			// The pool is stopping; the aborted run left no output, so
			// hand the job back for the next worker process.
			logger.Info("job interrupted, returned to queue", logging.Error(err))
			if reqErr := m.store.Requeue(context.Background(), job.ID, "interrupted"); reqErr != nil {
				logger.Error("failed to requeue interrupted job", logging.Error(reqErr))
			}
			return
		}
		logger.Error("job failed",
			logging.String(logging.FieldStage, services.FailingStage(err)),
			logging.Error(err))
		if markErr := m.store.MarkFailed(context.Background(), job.ID, services.Describe(err)); markErr != nil {
			logger.Error("failed to record job failure", logging.Error(markErr))
		}
		if notifyErr := m.notifier.NotifyCompressionFailed(context.Background(), job.SourcePath, err); notifyErr != nil {
			logger.Warn("failure notification not delivered", logging.Error(notifyErr))
		}
		return
	}

	if err := m.store.MarkCompleted(context.Background(), job.ID, result); err != nil {
		logger.Error("failed to record job completion", logging.Error(err))
		return
	}
	logger.Info("job completed",
		logging.Float64("ratio", result.CompressionRatio),
		logging.Int64("duration_ms", result.ProcessingDurationMs))
	if notifyErr := m.notifier.NotifyCompressionCompleted(ctx, job.SourcePath, result); notifyErr != nil {
		logger.Warn("completion notification not delivered", logging.Error(notifyErr))
	}
}
