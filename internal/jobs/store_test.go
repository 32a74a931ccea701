package jobs

import (
	"context"
	"path/filepath"
	"testing"

	"pressbox/internal/pipeline"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenPath(filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, "/media/clip.mp4", 50_000_000, "balanced", true)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if job.ID == "" {
		t.Fatal("job must receive an identifier")
	}
	if job.Status != StatusPending {
		t.Fatalf("status = %s, want pending", job.Status)
	}
	if !job.PreserveAudio || job.TargetSizeBytes != 50_000_000 {
		t.Fatalf("fields not persisted: %+v", job)
	}

	again, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if again == nil || again.SourcePath != "/media/clip.mp4" {
		t.Fatalf("get returned %+v", again)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	store := newStore(t)
	job, err := store.GetByID(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil, got %+v", job)
	}
}

func TestCreateValidation(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	if _, err := store.Create(ctx, "", 1, "fast", false); err == nil {
		t.Fatal("empty source must be rejected")
	}
	if _, err := store.Create(ctx, "a.mp4", 0, "fast", false); err == nil {
		t.Fatal("zero target must be rejected")
	}
	if _, err := store.Create(ctx, "a.mp4", 1, "", false); err == nil {
		t.Fatal("empty profile must be rejected")
	}
}

func TestNextPendingClaimsOldestFirst(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	first, err := store.Create(ctx, "/media/a.mp4", 1_000, "fast", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(ctx, "/media/b.mp4", 1_000, "fast", false); err != nil {
		t.Fatalf("create: %v", err)
	}

	claimed, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("next pending: %v", err)
	}
	if claimed == nil || claimed.ID != first.ID {
		t.Fatalf("claimed %+v, want the oldest job %s", claimed, first.ID)
	}
	if claimed.Status != StatusRunning {
		t.Fatalf("claimed status = %s, want running", claimed.Status)
	}

	// The claimed job must not be claimable again.
	second, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("next pending: %v", err)
	}
	if second == nil || second.ID == first.ID {
		t.Fatalf("second claim = %+v", second)
	}

	empty, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("next pending: %v", err)
	}
	if empty != nil {
		t.Fatalf("expected empty queue, got %+v", empty)
	}
}

func TestProgressAndCompletion(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, "/media/a.mp4", 1_000, "fast", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.NextPending(ctx); err != nil {
		t.Fatalf("claim: %v", err)
	}

	if err := store.UpdateProgress(ctx, job.ID, "encode", 42.5, "encoding frames"); err != nil {
		t.Fatalf("update progress: %v", err)
	}
	current, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.ProgressPercent != 42.5 || current.ProgressStage != "encode" {
		t.Fatalf("progress = %v/%s", current.ProgressPercent, current.ProgressStage)
	}

	result := pipeline.Result{
		OutputPath:          "/out/a-fast.mp4",
		OriginalSizeBytes:   10_000,
		CompressedSizeBytes: 1_000,
		CompressionRatio:    10,
		ProfileUsed:         "fast",
	}
	if err := store.MarkCompleted(ctx, job.ID, result); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	done, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if done.Status != StatusCompleted || done.ProgressPercent != 100 {
		t.Fatalf("completed job = %+v", done)
	}
	decoded, err := done.Result()
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if decoded == nil || decoded.CompressionRatio != 10 {
		t.Fatalf("result = %+v", decoded)
	}
}

func TestMarkFailedRequiresRunning(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, "/media/a.mp4", 1_000, "fast", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.MarkFailed(ctx, job.ID, "boom"); err == nil {
		t.Fatal("pending job cannot fail directly")
	}

	if _, err := store.NextPending(ctx); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := store.MarkFailed(ctx, job.ID, "encoder crashed"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	failed, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if failed.Status != StatusFailed || failed.ErrorMessage != "encoder crashed" {
		t.Fatalf("failed job = %+v", failed)
	}
}

func TestRequeueReturnsRunningJobToQueue(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	job, err := store.Create(ctx, "/media/a.mp4", 1_000, "fast", false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Requeue(ctx, job.ID, "interrupted"); err == nil {
		t.Fatal("pending job cannot be requeued")
	}

	if _, err := store.NextPending(ctx); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := store.UpdateProgress(ctx, job.ID, "encode", 40, ""); err != nil {
		t.Fatalf("progress: %v", err)
	}
	if err := store.Requeue(ctx, job.ID, "interrupted"); err != nil {
		t.Fatalf("requeue: %v", err)
	}

	requeued, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if requeued.Status != StatusPending || requeued.ProgressPercent != 0 {
		t.Fatalf("requeued job = %+v", requeued)
	}
	if requeued.ProgressMessage != "interrupted" {
		t.Fatalf("progress message = %q", requeued.ProgressMessage)
	}

	claimed, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if claimed == nil || claimed.ID != job.ID {
		t.Fatalf("requeued job must be claimable again, got %+v", claimed)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, "/media/a.mp4", 1_000, "fast", false); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(ctx, "/media/b.mp4", 1_000, "fast", false); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.NextPending(ctx); err != nil {
		t.Fatalf("claim: %v", err)
	}

	pending, err := store.List(ctx, StatusPending)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d, want 2", len(all))
	}

	if _, err := store.List(ctx, Status("bogus")); err == nil {
		t.Fatal("unknown status must be rejected")
	}
}
