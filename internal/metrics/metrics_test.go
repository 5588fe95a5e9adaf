package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollector_ToolInvocationIncrementsCounterAndHistogram(t *testing.T) {
	c := New("")
	c.ToolInvocation("math", "add", "success", 10*time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(c.toolInvocations))
	assert.Equal(t, 1, testutil.CollectAndCount(c.toolInvocationDuration))
}

func TestCollector_ConcurrencyMetricsSeamDrivesGauges(t *testing.T) {
	c := New("")
	c.SetInflight(1)
	c.SetInflightForProvider("math", 1)
	c.ObserveConcurrencyWait("math", 0.01)
	c.IncConcurrencyQueued("math")

	assert.Equal(t, 1, testutil.CollectAndCount(c.inflightGlobal))
}

func TestCollector_BatchCompletedRecordsSeries(t *testing.T) {
	c := New("")
	c.BatchCompleted("success", 5, 20*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(c.batchCallsTotal))
}
