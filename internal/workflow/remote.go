package workflow

import (
	"context"
	"time"

	"pressbox/internal/jobs"
	"pressbox/internal/pipeline"
	"pressbox/internal/services"
)

// Remote is the server-assisted compressor: it enqueues the request as a job
// and polls the store until a worker finishes it, exposing the same Result
// shape as the in-process orchestrator.
type Remote struct {
	store        *jobs.Store
	pollInterval time.Duration
}

// NewRemote builds a remote compressor over the shared job store.
func NewRemote(store *jobs.Store, pollInterval time.Duration) *Remote {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &Remote{store: store, pollInterval: pollInterval}
}

// Compress delegates the request through the job store. Progress observed in
// polling is forwarded to the caller's sink; it carries the same monotone
// 0..100 contract because the worker persists it from the pipeline's own
// controller.
func (r *Remote) Compress(ctx context.Context, request pipeline.Request) (pipeline.Result, error) {
	job, err := r.store.Create(ctx, request.SourcePath, request.TargetSizeBytes, request.ProfileName, request.PreserveAudio)
	if err != nil {
		return pipeline.Result{}, services.Wrap(services.ErrConfiguration, "workflow", "create job", "failed to enqueue compression job", err)
	}

	var lastPercent float64
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return pipeline.Result{}, services.Wrap(services.ErrCancelled, "workflow", "poll job", "compression cancelled while waiting for worker", ctx.Err())
		case <-ticker.C:
		}

		current, err := r.store.GetByID(ctx, job.ID)
		if err != nil {
			return pipeline.Result{}, services.Wrap(services.ErrTransient, "workflow", "poll job", "failed to poll job status", err)
		}
		if current == nil {
			return pipeline.Result{}, services.Wrap(services.ErrTransient, "workflow", "poll job", "job disappeared from the store", nil)
		}

		if request.Progress != nil && current.ProgressPercent > lastPercent {
			lastPercent = current.ProgressPercent
			request.Progress(lastPercent)
		}

		switch current.Status {
		case jobs.StatusCompleted:
			result, err := current.Result()
			if err != nil || result == nil {
				return pipeline.Result{}, services.Wrap(services.ErrTransient, "workflow", "poll job", "completed job carries no readable result", err)
			}
			return *result, nil
		case jobs.StatusFailed:
			return pipeline.Result{}, services.Wrap(services.ErrEncodeFailed, "workflow", "poll job", current.ErrorMessage, nil)
		}
	}
}
