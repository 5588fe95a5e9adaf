// Package alert provides an optional Slack subscriber that posts a message
// for degraded-health events. No teacher file wires Slack directly; the
// fire-and-forget-goroutine discipline is carried over from internal/bus's
// "event-bus subscribers must be cheap" rule.
package alert

import (
	"context"
	"log/slog"

	"github.com/slack-go/slack"

	"github.com/mapyr/mcp-hangar/internal/bus"
	"github.com/mapyr/mcp-hangar/internal/events"
)

// SlackSubscriber posts a message to a Slack incoming webhook whenever a
// provider degrades or fails a health check. Disabled entirely when
// WebhookURL is empty.
type SlackSubscriber struct {
	webhookURL string
	logger     *slog.Logger
}

// NewSlackSubscriber builds a SlackSubscriber. A nil logger falls back to
// slog.Default(). An empty webhookURL makes Register a no-op.
func NewSlackSubscriber(webhookURL string, logger *slog.Logger) *SlackSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlackSubscriber{webhookURL: webhookURL, logger: logger}
}

// Register subscribes the alerter to ProviderDegraded and HealthCheckFailed
// events. If no webhook is configured, Register does nothing.
func (s *SlackSubscriber) Register(b *bus.EventBus) {
	if s.webhookURL == "" {
		return
	}
	b.Subscribe(events.ProviderDegraded{}, s.onProviderDegraded)
	b.Subscribe(events.HealthCheckFailed{}, s.onHealthCheckFailed)
}

func (s *SlackSubscriber) onProviderDegraded(evt events.Event) {
	e, ok := evt.(events.ProviderDegraded)
	if !ok {
		return
	}
	s.post(":warning: provider *"+e.ProviderID+"* degraded: "+e.Reason,
		"consecutive_failures", e.ConsecutiveFailures, "total_failures", e.TotalFailures)
}

func (s *SlackSubscriber) onHealthCheckFailed(evt events.Event) {
	e, ok := evt.(events.HealthCheckFailed)
	if !ok {
		return
	}
	s.post(":x: health check failed for *"+e.ProviderID+"*: "+e.ErrorMessage,
		"consecutive_failures", e.ConsecutiveFailures)
}

func (s *SlackSubscriber) post(text string, logArgs ...any) {
	go func() {
		msg := slack.WebhookMessage{Text: text}
		if err := slack.PostWebhookContext(context.Background(), s.webhookURL, &msg); err != nil {
			s.logger.Error("slack_alert_failed", append(logArgs, "error", err)...)
			return
		}
		s.logger.Debug("slack_alert_sent", logArgs...)
	}()
}
