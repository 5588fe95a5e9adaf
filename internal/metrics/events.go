package metrics

import (
	"time"

	"github.com/mapyr/mcp-hangar/internal/bus"
	"github.com/mapyr/mcp-hangar/internal/events"
)

func durationFromMs(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// Bind subscribes the collector to the event types that drive its
// domain counters (provider state transitions, tool invocations, health
// check failures), so internal/provider and internal/worker never need to
// import internal/metrics directly; they already publish these events for
// internal/audit, and metrics rides the same bus.
func (c *Collector) Bind(eb *bus.EventBus) {
	eb.Subscribe(events.ProviderStateChanged{}, c.onProviderStateChanged)
	eb.Subscribe(events.ProviderStarted{}, c.onProviderStarted)
	eb.Subscribe(events.ToolInvocationCompleted{}, c.onToolInvocationCompleted)
	eb.Subscribe(events.ToolInvocationFailed{}, c.onToolInvocationFailed)
	eb.Subscribe(events.HealthCheckFailed{}, c.onHealthCheckFailed)
}

func (c *Collector) onProviderStateChanged(evt events.Event) {
	e, ok := evt.(events.ProviderStateChanged)
	if !ok {
		return
	}
	c.ProviderStateTransition(e.ProviderID, e.From, e.To)
}

func (c *Collector) onProviderStarted(evt events.Event) {
	e, ok := evt.(events.ProviderStarted)
	if !ok {
		return
	}
	c.ProviderStartDuration(e.ProviderID, durationFromMs(e.StartupDurationMs))
}

func (c *Collector) onToolInvocationCompleted(evt events.Event) {
	e, ok := evt.(events.ToolInvocationCompleted)
	if !ok {
		return
	}
	c.ToolInvocation(e.ProviderID, e.ToolName, "success", durationFromMs(e.DurationMs))
}

func (c *Collector) onToolInvocationFailed(evt events.Event) {
	e, ok := evt.(events.ToolInvocationFailed)
	if !ok {
		return
	}
	c.ToolInvocation(e.ProviderID, e.ToolName, "failure", 0)
}

func (c *Collector) onHealthCheckFailed(evt events.Event) {
	e, ok := evt.(events.HealthCheckFailed)
	if !ok {
		return
	}
	c.HealthCheckFailure(e.ProviderID)
}
