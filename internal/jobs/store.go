package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"pressbox/internal/config"
	"pressbox/internal/pipeline"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the job database under the configured log
// directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "jobs.db"))
}

// OpenPath opens the job database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

const jobColumns = "id, source_path, target_size_bytes, profile_name, preserve_audio, status, progress_stage, progress_percent, progress_message, error_message, result_json, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id              string
		sourcePath      string
		targetSize      int64
		profileName     string
		preserveAudio   int64
		statusStr       string
		progressStage   sql.NullString
		progressPercent sql.NullFloat64
		progressMessage sql.NullString
		errorMessage    sql.NullString
		resultJSON      sql.NullString
		createdRaw      string
		updatedRaw      string
	)
	if err := scanner.Scan(
		&id,
		&sourcePath,
		&targetSize,
		&profileName,
		&preserveAudio,
		&statusStr,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&errorMessage,
		&resultJSON,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:              id,
		SourcePath:      sourcePath,
		TargetSizeBytes: targetSize,
		ProfileName:     profileName,
		PreserveAudio:   preserveAudio != 0,
		Status:          Status(statusStr),
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
		ErrorMessage:    errorMessage.String,
		ResultJSON:      resultJSON.String,
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		job.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updatedRaw); err == nil {
		job.UpdatedAt = ts
	}
	return job, nil
}

// Create enqueues a new pending job and returns it.
func (s *Store) Create(ctx context.Context, sourcePath string, targetSizeBytes int64, profileName string, preserveAudio bool) (*Job, error) {
	if strings.TrimSpace(sourcePath) == "" {
		return nil, errors.New("source path must be set")
	}
	if targetSizeBytes <= 0 {
		return nil, errors.New("target size must be positive")
	}
	if strings.TrimSpace(profileName) == "" {
		return nil, errors.New("profile name must be set")
	}

	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	preserve := 0
	if preserveAudio {
		preserve = 1
	}

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO compression_jobs (
            id, source_path, target_size_bytes, profile_name, preserve_audio,
            status, progress_percent, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		sourcePath,
		targetSizeBytes,
		profileName,
		preserve,
		StatusPending,
		0.0,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier; nil when absent.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM compression_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs newest-first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM compression_jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, 0, len(statuses))
		for _, status := range statuses {
			if !status.Valid() {
				return nil, fmt.Errorf("unknown status %q", status)
			}
			placeholders = append(placeholders, "?")
			args = append(args, string(status))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var items []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		items = append(items, job)
	}
	return items, rows.Err()
}

// NextPending claims the oldest pending job, flipping it to running. Nil when
// the queue is empty. The status guard in the UPDATE keeps two pollers from
// claiming the same job.
func (s *Store) NextPending(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)
	for {
		var id string
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM compression_jobs WHERE status = ? ORDER BY created_at LIMIT 1`,
			StatusPending,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("find pending job: %w", err)
		}

		res, err := s.execWithRetry(ctx,
			`UPDATE compression_jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			StatusRunning,
			time.Now().UTC().Format(time.RFC3339Nano),
			id,
			StatusPending,
		)
		if err != nil {
			return nil, fmt.Errorf("claim job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("claim job rows: %w", err)
		}
		if affected == 1 {
			return s.GetByID(ctx, id)
		}
		// Someone else claimed it between the select and the update.
	}
}

// UpdateProgress persists a progress snapshot for a running job.
func (s *Store) UpdateProgress(ctx context.Context, id, stage string, percent float64, message string) error {
	_, err := s.execWithRetry(ctx,
		`UPDATE compression_jobs SET progress_stage = ?, progress_percent = ?, progress_message = ?, updated_at = ? WHERE id = ?`,
		stage,
		percent,
		message,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// MarkCompleted records the outcome and finishes the job at 100 percent.
func (s *Store) MarkCompleted(ctx context.Context, id string, result pipeline.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE compression_jobs SET status = ?, result_json = ?, progress_percent = 100, progress_stage = 'done', updated_at = ? WHERE id = ? AND status = ?`,
		StatusCompleted,
		string(payload),
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return requireOneRow(res, id, StatusCompleted)
}

// MarkFailed records the failure message.
func (s *Store) MarkFailed(ctx context.Context, id, message string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE compression_jobs SET status = ?, error_message = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusFailed,
		message,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return requireOneRow(res, id, StatusFailed)
}

// Requeue returns an interrupted running job to the pending queue so another
// worker can claim it later. Progress is reset; the message records why the
// run stopped.
func (s *Store) Requeue(ctx context.Context, id, message string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE compression_jobs SET status = ?, progress_percent = 0, progress_stage = '', progress_message = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusPending,
		message,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("requeue: %w", err)
	}
	return requireOneRow(res, id, StatusPending)
}

func requireOneRow(res sql.Result, id string, to Status) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected != 1 {
		return fmt.Errorf("job %s is not running, cannot transition to %s", id, to)
	}
	return nil
}
