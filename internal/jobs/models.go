package jobs

import (
	"encoding/json"
	"time"

	"pressbox/internal/pipeline"
)

// Status is the lifecycle of a compression job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var allStatuses = []Status{StatusPending, StatusRunning, StatusCompleted, StatusFailed}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Valid reports whether the status is one of the known lifecycle values.
func (s Status) Valid() bool {
	_, ok := statusSet[s]
	return ok
}

// Terminal reports whether the job will never run again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one persisted compression request and its outcome.
type Job struct {
	ID              string
	SourcePath      string
	TargetSizeBytes int64
	ProfileName     string
	PreserveAudio   bool
	Status          Status
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	ErrorMessage    string
	ResultJSON      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Result decodes the stored outcome. Nil for jobs that have not completed.
func (j *Job) Result() (*pipeline.Result, error) {
	if j.ResultJSON == "" {
		return nil, nil
	}
	var result pipeline.Result
	if err := json.Unmarshal([]byte(j.ResultJSON), &result); err != nil {
		return nil, err
	}
	return &result, nil
}
