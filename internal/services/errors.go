package services

import (
	"errors"
	"strings"
)

var (
	// ErrUnreadableSource marks sources that cannot be opened or probed.
	ErrUnreadableSource = errors.New("unreadable source")
	// ErrNoSupportedCodec marks encoder negotiation failures: no codec in
	// the preference list is available in the local ffmpeg build.
	ErrNoSupportedCodec = errors.New("no supported codec")
	// ErrEncodeFailed marks encoder session faults mid-stream.
	ErrEncodeFailed = errors.New("encode failed")
	// ErrCancelled marks caller-initiated cancellation.
	ErrCancelled = errors.New("cancelled")
	// ErrProfileNotFound marks unknown compression profile names.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrConfiguration marks unusable configuration or environment.
	ErrConfiguration = errors.New("configuration error")
	// ErrTransient marks failures worth retrying.
	ErrTransient = errors.New("transient failure")
)

// StageError carries the failing pipeline stage alongside the error kind so
// callers can classify failures without parsing message text.
type StageError struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Err       error
}

// Wrap builds a StageError tagging the failure with one of the exported
// sentinel markers for later classification. A nil marker degrades to
// ErrTransient.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &StageError{
		Marker:    marker,
		Stage:     strings.TrimSpace(stage),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Err:       err,
	}
}

func (e *StageError) Error() string {
	parts := make([]string, 0, 4)
	if e.Marker != nil {
		parts = append(parts, e.Marker.Error())
	}
	for _, part := range []string{e.Stage, e.Operation, e.Message} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "service failure")
	}
	detail := strings.Join(parts, ": ")
	if e.Err != nil {
		return detail + ": " + e.Err.Error()
	}
	return detail
}

func (e *StageError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Marker != nil {
		errs = append(errs, e.Marker)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// FailingStage returns the pipeline stage recorded on the outermost
// StageError, or "" when the error carries no stage context.
func FailingStage(err error) string {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage
	}
	return ""
}

// Fatal reports whether the error ends a job for good. Cancellation is not
// fatal: an interrupted run leaves no output behind, so the job can safely be
// claimed again by a later worker. Audio degradation is not modelled as an
// error at all (the pipeline records AudioPreserved=false instead).
func Fatal(err error) bool {
	return err != nil && !errors.Is(err, ErrCancelled)
}

// Describe renders a short kind label for status displays.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnreadableSource):
		return "unreadable source"
	case errors.Is(err, ErrNoSupportedCodec):
		return "no supported codec"
	case errors.Is(err, ErrEncodeFailed):
		return "encode failed"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrProfileNotFound):
		return "profile not found"
	case errors.Is(err, ErrConfiguration):
		return "configuration error"
	default:
		return "failure"
	}
}
