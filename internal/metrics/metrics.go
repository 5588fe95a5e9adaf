// Package metrics implements the Prometheus collectors for the registry:
// namespaced CounterVec/HistogramVec/GaugeVec series built in a
// constructor and registered once against a dedicated Registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the registry's Prometheus metrics collector. It implements
// concurrency.Metrics so internal/concurrency can drive it without
// importing Prometheus directly.
type Collector struct {
	providerStateTransitions *prometheus.CounterVec
	providerStartDuration    *prometheus.HistogramVec
	toolInvocations          *prometheus.CounterVec
	toolInvocationDuration   *prometheus.HistogramVec
	healthCheckFailures      *prometheus.CounterVec

	batchCallsTotal    *prometheus.CounterVec
	batchSize          prometheus.Histogram
	batchDuration      prometheus.Histogram
	batchTruncations   *prometheus.CounterVec
	batchCancellations *prometheus.CounterVec

	concurrencyWait    *prometheus.HistogramVec
	concurrencyQueued  *prometheus.CounterVec
	inflightGlobal     prometheus.Gauge
	inflightByProvider *prometheus.GaugeVec

	registry *prometheus.Registry
}

// New constructs a Collector with every series registered under namespace
// (defaulting to "hangar").
func New(namespace string) *Collector {
	if namespace == "" {
		namespace = "hangar"
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.providerStateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_state_transitions_total",
			Help:      "Total number of provider state transitions",
		},
		[]string{"provider_id", "from_state", "to_state"},
	)

	c.providerStartDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_start_duration_seconds",
			Help:      "Duration of provider cold starts",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider_id"},
	)

	c.toolInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_invocations_total",
			Help:      "Total number of tool invocations by outcome",
		},
		[]string{"provider_id", "tool_name", "outcome"},
	)

	c.toolInvocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_invocation_duration_seconds",
			Help:      "Duration of tool invocations",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider_id", "tool_name"},
	)

	c.healthCheckFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "health_check_failures_total",
			Help:      "Total number of failed health checks",
		},
		[]string{"provider_id"},
	)

	c.batchCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_calls_total",
			Help:      "Total number of batch invocations by result",
		},
		[]string{"result"},
	)

	c.batchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of calls per batch",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		},
	)

	c.batchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Duration of batch invocations",
			Buckets:   prometheus.DefBuckets,
		},
	)

	c.batchTruncations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_truncations_total",
			Help:      "Total number of results truncated into the continuation cache",
		},
		[]string{"reason"},
	)

	c.batchCancellations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_cancellations_total",
			Help:      "Total number of batches that set their cancel signal",
		},
		[]string{"reason"},
	)

	c.concurrencyWait = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "concurrency_wait_seconds",
			Help:      "Time spent waiting for a concurrency slot",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"provider_id"},
	)

	c.concurrencyQueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "concurrency_queued_total",
			Help:      "Total number of acquisitions that had to wait for a slot",
		},
		[]string{"provider_id"},
	)

	c.inflightGlobal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inflight_calls",
			Help:      "Current number of in-flight tool calls globally",
		},
	)

	c.inflightByProvider = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inflight_calls_by_provider",
			Help:      "Current number of in-flight tool calls per provider",
		},
		[]string{"provider_id"},
	)

	c.registry.MustRegister(
		c.providerStateTransitions,
		c.providerStartDuration,
		c.toolInvocations,
		c.toolInvocationDuration,
		c.healthCheckFailures,
		c.batchCallsTotal,
		c.batchSize,
		c.batchDuration,
		c.batchTruncations,
		c.batchCancellations,
		c.concurrencyWait,
		c.concurrencyQueued,
		c.inflightGlobal,
		c.inflightByProvider,
	)

	return c
}

// Registry returns the Prometheus registry for HTTP handler setup.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) ProviderStateTransition(providerID, from, to string) {
	c.providerStateTransitions.WithLabelValues(providerID, from, to).Inc()
}

func (c *Collector) ProviderStartDuration(providerID string, d time.Duration) {
	c.providerStartDuration.WithLabelValues(providerID).Observe(d.Seconds())
}

func (c *Collector) ToolInvocation(providerID, toolName, outcome string, d time.Duration) {
	c.toolInvocations.WithLabelValues(providerID, toolName, outcome).Inc()
	c.toolInvocationDuration.WithLabelValues(providerID, toolName).Observe(d.Seconds())
}

func (c *Collector) HealthCheckFailure(providerID string) {
	c.healthCheckFailures.WithLabelValues(providerID).Inc()
}

func (c *Collector) BatchCompleted(result string, size int, d time.Duration) {
	c.batchCallsTotal.WithLabelValues(result).Inc()
	c.batchSize.Observe(float64(size))
	c.batchDuration.Observe(d.Seconds())
}

func (c *Collector) BatchTruncation(reason string) {
	c.batchTruncations.WithLabelValues(reason).Inc()
}

func (c *Collector) BatchCancellation(reason string) {
	c.batchCancellations.WithLabelValues(reason).Inc()
}

// ObserveConcurrencyWait implements concurrency.Metrics.
func (c *Collector) ObserveConcurrencyWait(providerID string, waitSeconds float64) {
	c.concurrencyWait.WithLabelValues(providerID).Observe(waitSeconds)
}

// IncConcurrencyQueued implements concurrency.Metrics.
func (c *Collector) IncConcurrencyQueued(providerID string) {
	c.concurrencyQueued.WithLabelValues(providerID).Inc()
}

// SetInflight implements concurrency.Metrics.
func (c *Collector) SetInflight(delta int) {
	c.inflightGlobal.Add(float64(delta))
}

// SetInflightForProvider implements concurrency.Metrics.
func (c *Collector) SetInflightForProvider(providerID string, delta int) {
	c.inflightByProvider.WithLabelValues(providerID).Add(float64(delta))
}
