package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Sender delivers one notification.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// WebhookSender POSTs notifications as JSON to a fixed URL.
type WebhookSender struct {
	client *resty.Client
	url    string
}

// NewWebhookSender creates a sender targeting url.
func NewWebhookSender(url string, timeout time.Duration) *WebhookSender {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := resty.New().
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "activity-service").
		SetTimeout(timeout)
	return &WebhookSender{client: c, url: url}
}

// Send fails permanently on 4xx responses so the worker stops retrying.
func (w *WebhookSender) Send(ctx context.Context, n Notification) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(n).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	code := resp.StatusCode()
	switch {
	case code >= 200 && code < 300:
		return nil
	case code >= 400 && code < 500 && code != http.StatusTooManyRequests:
		return backoff.Permanent(fmt.Errorf("webhook rejected notification: %s", resp.Status()))
	default:
		return fmt.Errorf("webhook unavailable: %s", resp.Status())
	}
}

// LogSender records notifications in the log. Used when no webhook is configured.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender { return &LogSender{log: log} }

func (l *LogSender) Send(_ context.Context, n Notification) error {
	l.log.Info().
		Str("kind", string(n.Kind)).
		Str("subject_id", n.SubjectID).
		Str("entry_id", n.EntryID).
		Str("author_id", n.AuthorID).
		Msg("notification")
	return nil
}
