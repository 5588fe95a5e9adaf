package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/mapyr/mcp-hangar/internal/bus"
	"github.com/mapyr/mcp-hangar/internal/events"
)

func TestCollector_BindRecordsProviderAndToolEventsFromTheBus(t *testing.T) {
	c := New("")
	eb := bus.NewEventBus(nil)
	c.Bind(eb)

	eb.Publish(events.NewProviderStateChanged("math", "COLD", "INITIALIZING", 1))
	eb.Publish(events.NewProviderStarted("math", "subprocess", 2, 5))
	eb.Publish(events.NewToolInvocationCompleted("math", "add", "corr-1", 10, 128))
	eb.Publish(events.NewToolInvocationFailed("math", "add", "corr-2", "ToolInvocationError", "boom"))
	eb.Publish(events.NewHealthCheckFailed("math", 3, "timeout"))

	assert.Equal(t, 1, testutil.CollectAndCount(c.providerStateTransitions))
	assert.Equal(t, 1, testutil.CollectAndCount(c.providerStartDuration))
	assert.Equal(t, 2, testutil.CollectAndCount(c.toolInvocations))
	assert.Equal(t, 1, testutil.CollectAndCount(c.healthCheckFailures))
}
