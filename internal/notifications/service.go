package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"pressbox/internal/config"
	"pressbox/internal/pipeline"
)

const userAgent = "Pressbox/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyCompressionCompleted(ctx context.Context, source string, result pipeline.Result) error
	NotifyCompressionFailed(ctx context.Context, source string, failure error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		completed: cfg.Notifications.Completed,
		errors:    cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	completed bool
	errors    bool
}

func (n *ntfyService) NotifyCompressionCompleted(ctx context.Context, source string, result pipeline.Result) error {
	if !n.completed {
		return nil
	}
	source = strings.TrimSpace(source)
	var message string
	if result.PassThrough {
		message = fmt.Sprintf("Already under target, passed through: %s", source)
	} else {
		message = fmt.Sprintf("Compressed %s: %s -> %s (%.1fx, profile %s)",
			source,
			humanize.Bytes(uint64(result.OriginalSizeBytes)),
			humanize.Bytes(uint64(result.CompressedSizeBytes)),
			result.CompressionRatio,
			result.ProfileUsed,
		)
	}
	data := payload{
		title:   "Pressbox - Compression Complete",
		message: message,
		tags:    []string{"pressbox", "compress", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCompressionFailed(ctx context.Context, source string, failure error) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Compression failed")
	if source = strings.TrimSpace(source); source != "" {
		builder.WriteString(" for ")
		builder.WriteString(source)
	}
	builder.WriteString(": ")
	if failure != nil {
		builder.WriteString(strings.TrimSpace(failure.Error()))
	} else {
		builder.WriteString("unknown")
	}
	data := payload{
		title:    "Pressbox - Error",
		message:  builder.String(),
		tags:     []string{"pressbox", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Pressbox - Test",
		message:  "Notification system test",
		tags:     []string{"pressbox", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyCompressionCompleted(context.Context, string, pipeline.Result) error {
	return nil
}
func (noopService) NotifyCompressionFailed(context.Context, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error                       { return nil }
