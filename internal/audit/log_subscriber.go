// Package audit provides the registry's audit trail: a slog-based,
// fire-and-forget event subscriber. It makes concrete the contract that
// pkg/launcher/events.go's EventPublisher/NoopEventPublisher leave abstract
// (report lifecycle events somewhere); here "somewhere" is structured logs,
// since persisting audit history to a database is out of scope.
package audit

import (
	"log/slog"

	"github.com/mapyr/mcp-hangar/internal/bus"
	"github.com/mapyr/mcp-hangar/internal/events"
)

// LogSubscriber logs every event it receives at Info level with a uniform
// shape, so downstream log aggregation can treat it as the audit trail.
type LogSubscriber struct {
	logger *slog.Logger
}

// NewLogSubscriber builds a LogSubscriber. A nil logger falls back to
// slog.Default().
func NewLogSubscriber(logger *slog.Logger) *LogSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSubscriber{logger: logger}
}

// Register subscribes the log subscriber to every event on b.
func (s *LogSubscriber) Register(b *bus.EventBus) {
	b.SubscribeAll(s.handle)
}

func (s *LogSubscriber) handle(evt events.Event) {
	s.logger.Info("audit_event",
		"event", evt.EventName(),
		"occurred_at", evt.OccurredAt(),
		"detail", evt,
	)
}
