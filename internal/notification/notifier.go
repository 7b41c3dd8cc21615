// Package notification delivers alerts to external channels (Telegram,
// webhooks, the log) and formats the bot's messages.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent. Message is Telegram-flavoured
// HTML (only <b>, <pre> and <a> tags).
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// StatusError is a non-success HTTP answer from a delivery endpoint.
type StatusError struct {
	Channel string
	Status  int
	Body    string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Channel, e.Status)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Channel, e.Status, e.Body)
}

// retryable reports whether a delivery error may succeed on a later try.
// Client errors other than 429 are permanent.
func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status == http.StatusTooManyRequests || se.Status >= 500
	}
	return true
}

// LogNotifier logs alerts instead of delivering them (used when no channel
// is configured).
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	n.logger.Info("notify",
		slog.String("level", string(alert.Level)),
		slog.String("title", alert.Title),
		slog.String("message", alert.Message))
	return nil
}

// Multi fans an alert out to every notifier. It fails if any of them fails.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RetryConfig bounds delivery retries.
type RetryConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
}

// Retrying retries transient delivery failures with exponential backoff.
type Retrying struct {
	next   Notifier
	cfg    RetryConfig
	logger *slog.Logger
}

// NewRetrying wraps next. Zero values default to 2 retries from 500ms.
func NewRetrying(next Notifier, cfg RetryConfig, logger *slog.Logger) *Retrying {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{next: next, cfg: cfg, logger: logger}
}

func (r *Retrying) Send(ctx context.Context, alert Alert) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = r.cfg.InitialInterval
	b := backoff.WithContext(backoff.WithMaxRetries(eb, r.cfg.MaxRetries), ctx)

	op := func() error {
		err := r.next.Send(ctx, alert)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.logger.Warn("notify retry",
			slog.String("title", alert.Title),
			slog.String("error", err.Error()),
			slog.Duration("wait", wait))
	}
	return backoff.RetryNotify(op, b, notify)
}
