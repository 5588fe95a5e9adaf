package batch

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/mapyr/mcp-hangar/internal/bus"
	"github.com/mapyr/mcp-hangar/internal/cache"
	"github.com/mapyr/mcp-hangar/internal/command"
	"github.com/mapyr/mcp-hangar/internal/concurrency"
	"github.com/mapyr/mcp-hangar/internal/events"
	"github.com/mapyr/mcp-hangar/internal/hangarerr"
	"github.com/mapyr/mcp-hangar/internal/health"
	"github.com/mapyr/mcp-hangar/internal/provider"
	"github.com/mapyr/mcp-hangar/internal/repository"
	"github.com/mapyr/mcp-hangar/internal/singleflight"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Metrics is the seam internal/metrics.Collector satisfies, kept minimal
// so this package doesn't import Prometheus directly.
type Metrics interface {
	BatchCompleted(result string, size int, d time.Duration)
	BatchTruncation(reason string)
	BatchCancellation(reason string)
}

// Executor runs batches of calls in true parallel fan-out, bounded by a
// per-batch worker pool and the shared concurrency.Manager's global/
// per-provider semaphores.
type Executor struct {
	repo         *repository.Repository
	commandBus   *bus.CommandBus
	concurrency  *concurrency.Manager
	singleFlight *singleflight.Group
	cache        *cache.Cache
	eventBus     *bus.EventBus
	metrics      Metrics
	logger       *slog.Logger
	tracer       trace.Tracer
}

// NewExecutor constructs an Executor. logger may be nil (defaults to slog.Default()).
func NewExecutor(repo *repository.Repository, commandBus *bus.CommandBus, cm *concurrency.Manager, respCache *cache.Cache, eventBus *bus.EventBus, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		repo:         repo,
		commandBus:   commandBus,
		concurrency:  cm,
		singleFlight: &singleflight.Group{},
		cache:        respCache,
		eventBus:     eventBus,
		logger:       logger,
		tracer:       trace.NewNoopTracerProvider().Tracer("noop"),
	}
}

// WithMetrics attaches a Metrics sink and returns the same Executor, for
// chaining onto NewExecutor at construction time.
func (e *Executor) WithMetrics(m Metrics) *Executor {
	e.metrics = m
	return e
}

// WithTracer attaches a tracer used to wrap each batch run in a span.
func (e *Executor) WithTracer(tracer trace.Tracer) *Executor {
	e.tracer = tracer
	return e
}

func (e *Executor) publish(evt events.Event) {
	if e.eventBus != nil {
		e.eventBus.Publish(evt)
	}
}

// cancelState tracks the batch's single cancel signal plus why it
// tripped, distinguishing fail_fast from global timeout so unfinished
// calls are labeled correctly.
type cancelState struct {
	mu     sync.Mutex
	reason string // "", "fail_fast", "timeout"
}

func (c *cancelState) trip(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reason == "" {
		c.reason = reason
	}
}

func (c *cancelState) isSet() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason != ""
}

func (c *cancelState) get() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// Execute runs calls in parallel, returning once every call has settled,
// fail_fast triggers, or globalTimeout elapses. Results preserve input
// order by index regardless of completion order.
func (e *Executor) Execute(ctx context.Context, batchID string, calls []CallSpec, maxConcurrency int, globalTimeout time.Duration, failFast bool) BatchResult {
	ctx, span := e.tracer.Start(ctx, "execute_batch", trace.WithAttributes(
		attribute.String("batch_id", batchID),
		attribute.Int("call_count", len(calls)),
	))
	defer span.End()

	start := time.Now()

	providerSet := make(map[string]struct{}, len(calls))
	for _, c := range calls {
		providerSet[c.ProviderID] = struct{}{}
	}
	providers := make([]string, 0, len(providerSet))
	for p := range providerSet {
		providers = append(providers, p)
	}

	e.publish(events.NewBatchInvocationRequested(batchID, len(calls), providers, maxConcurrency, globalTimeout.Seconds(), failFast))

	effectiveWorkers := maxConcurrency
	if stats := e.concurrency.Stats(); stats.GlobalLimit > 0 && stats.GlobalLimit < maxConcurrency {
		effectiveWorkers = stats.GlobalLimit
	}
	if effectiveWorkers < 1 {
		effectiveWorkers = 1
	}

	batchCtx, cancel := context.WithTimeout(ctx, globalTimeout)
	defer cancel()

	results := make([]*CallResult, len(calls))
	var resultsMu sync.Mutex
	var finalized bool
	cs := &cancelState{}
	failFastCh := make(chan struct{})
	var failFastOnce sync.Once

	pool := make(chan struct{}, effectiveWorkers)
	var wg sync.WaitGroup

	for i := range calls {
		call := calls[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case pool <- struct{}{}:
				defer func() { <-pool }()
			case <-batchCtx.Done():
				return
			}

			r := e.executeCall(batchCtx, call, cs)

			if !r.Success && failFast {
				cs.trip("fail_fast")
			}

			resultsMu.Lock()
			if !finalized {
				results[call.Index] = &r
			}
			resultsMu.Unlock()

			if !r.Success && failFast {
				failFastOnce.Do(func() { close(failFastCh) })
			}

			e.publish(events.NewBatchCallCompleted(batchID, r.CallID, r.Index, call.ProviderID, call.ToolName, r.Success, r.ElapsedMs, r.ErrorType))
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-failFastCh:
	case <-batchCtx.Done():
		cs.trip("timeout")
	}

	if reason := cs.get(); reason != "" && e.metrics != nil {
		e.metrics.BatchCancellation(reason)
	}

	resultsMu.Lock()
	finalized = true
	succeeded, failed, cancelled := 0, 0, 0
	for i, r := range results {
		if r == nil {
			reason := cs.get()
			errType := "TimeoutError"
			errMsg := "Timeout"
			if reason == "fail_fast" {
				errType = "CancellationError"
				errMsg = "Cancelled"
			}
			results[i] = &CallResult{
				Index:     calls[i].Index,
				CallID:    calls[i].CallID,
				Success:   false,
				Error:     errMsg,
				ErrorType: errType,
				ElapsedMs: float64(time.Since(start).Milliseconds()),
			}
			cancelled++
			continue
		}
		if r.Success {
			succeeded++
		} else {
			failed++
		}
	}
	flat := make([]CallResult, len(results))
	for i, r := range results {
		flat[i] = *r
	}
	resultsMu.Unlock()

	flat = e.applyBatchTruncation(batchID, flat)

	elapsedMs := float64(time.Since(start).Milliseconds())
	success := failed == 0 && cancelled == 0

	e.publish(events.NewBatchInvocationCompleted(batchID, len(calls), succeeded, failed, cancelled, elapsedMs))

	if e.metrics != nil {
		resultLabel := "success"
		if !success {
			resultLabel = "failure"
		}
		e.metrics.BatchCompleted(resultLabel, len(calls), time.Since(start))
	}

	return BatchResult{
		BatchID:   batchID,
		Success:   success,
		Total:     len(calls),
		Succeeded: succeeded,
		Failed:    failed,
		Cancelled: cancelled,
		ElapsedMs: elapsedMs,
		Results:   flat,
	}
}

// executeCall runs the per-call pipeline: cancellation checks, deadline
// accounting, provider lookup, circuit breaker, cold start, a
// concurrency-slot wait, and finally the invocation itself.
func (e *Executor) executeCall(ctx context.Context, call CallSpec, cs *cancelState) CallResult {
	callStart := time.Now()

	if cs.isSet() {
		return e.immediateResult(call, "Cancelled before execution", "CancellationError", callStart)
	}

	remaining := remainingUntilDeadline(ctx)
	if remaining <= 0 {
		return e.immediateResult(call, "Global timeout exceeded", "TimeoutError", callStart)
	}

	effectiveTimeout := remaining
	if call.Timeout != nil && *call.Timeout < remaining {
		effectiveTimeout = *call.Timeout
	}

	p, ok := e.repo.Get(call.ProviderID)
	if !ok {
		return e.immediateResult(call, "Provider '"+call.ProviderID+"' not found", "ProviderNotFoundError", callStart)
	}

	if p.ShouldDegrade() {
		return e.immediateResult(call, "Circuit breaker open (too many consecutive failures)", "CircuitBreakerOpen", callStart)
	}

	if p.State() == provider.StateCold {
		_, err := e.singleFlight.Do(call.ProviderID, func() (any, error) {
			return e.commandBus.Send(command.StartProvider{ProviderID: call.ProviderID})
		})
		if err != nil {
			return e.immediateResult(call, "Failed to start provider: "+err.Error(), "ProviderStartError", callStart)
		}
	}

	if cs.isSet() {
		return e.immediateResult(call, "Cancelled after cold start", "CancellationError", callStart)
	}

	waitTime, release, err := e.concurrency.Acquire(ctx, call.ProviderID)
	if err != nil {
		return e.immediateResult(call, "Cancelled while waiting for a concurrency slot", "CancellationError", callStart)
	}
	defer release()
	if waitTime > 10*time.Millisecond {
		e.logger.Debug("concurrency_slot_wait", "call_id", call.CallID, "provider", call.ProviderID, "wait_ms", waitTime.Milliseconds())
	}

	return e.invokeWithRetry(call, effectiveTimeout, callStart)
}

func remainingUntilDeadline(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		return time.Until(dl)
	}
	return time.Hour
}

func (e *Executor) immediateResult(call CallSpec, errMsg, errType string, callStart time.Time) CallResult {
	return CallResult{
		Index:     call.Index,
		CallID:    call.CallID,
		Success:   false,
		Error:     errMsg,
		ErrorType: errType,
		ElapsedMs: float64(time.Since(callStart).Milliseconds()),
	}
}

// invokeWithRetry performs the tool invocation, wrapping it in a bounded
// retry-with-backoff when call.MaxAttempts > 1. Only transient failure
// codes are retried.
func (e *Executor) invokeWithRetry(call CallSpec, timeout time.Duration, callStart time.Time) CallResult {
	maxAttempts := call.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	retryStart := time.Now()
	var attemptCodes []string
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(health.Backoff(attempt))
		}

		raw, err := e.commandBus.Send(command.InvokeTool{
			ProviderID: call.ProviderID,
			ToolName:   call.ToolName,
			Arguments:  call.Arguments,
			Timeout:    timeout,
		})
		if err == nil {
			elapsed := float64(time.Since(callStart).Milliseconds())
			result := CallResult{
				Index:     call.Index,
				CallID:    call.CallID,
				Success:   true,
				ElapsedMs: elapsed,
			}
			if rm, ok := raw.(json.RawMessage); ok {
				result.Result = []byte(rm)
			}
			if attempt > 0 {
				result.RetryMetadata = &RetryMetadata{
					Attempts:    attempt + 1,
					Retries:     attemptCodes,
					TotalTimeMs: float64(time.Since(retryStart).Milliseconds()),
				}
			}
			return e.applyPerCallTruncation(call, result)
		}

		lastErr = err
		attemptCodes = append(attemptCodes, hangarerr.ErrorTypeName(err))
		if !isTransient(err) {
			break
		}
	}

	elapsed := float64(time.Since(callStart).Milliseconds())
	result := CallResult{
		Index:     call.Index,
		CallID:    call.CallID,
		Success:   false,
		Error:     lastErr.Error(),
		ErrorType: hangarerr.ErrorTypeName(lastErr),
		ElapsedMs: elapsed,
	}
	if len(attemptCodes) > 1 {
		result.RetryMetadata = &RetryMetadata{
			Attempts:    len(attemptCodes),
			Retries:     attemptCodes,
			TotalTimeMs: float64(time.Since(retryStart).Milliseconds()),
		}
	}
	return result
}

// isTransient reports whether an invocation error is worth retrying.
// Validation/not-found/tool-not-found errors are permanent; timeouts and
// generic invocation/start failures are treated as transient.
func isTransient(err error) bool {
	switch hangarerr.GetCode(err) {
	case hangarerr.CodeToolNotFound, hangarerr.CodeProviderNotFound, hangarerr.CodeValidationError, hangarerr.CodeCannotStartProvider:
		return false
	default:
		return true
	}
}

// applyPerCallTruncation spills a result into the continuation cache when
// it exceeds MaxResponseSizeBytes.
func (e *Executor) applyPerCallTruncation(call CallSpec, result CallResult) CallResult {
	if e.cache == nil || len(result.Result) <= MaxResponseSizeBytes {
		return result
	}
	original := result.Result
	result.Truncated = true
	result.TruncatedReason = "response_size_exceeded"
	result.OriginalSizeBytes = len(original)
	result.ContinuationID = e.cache.Store("", call.Index, original)
	result.Result = nil
	if e.metrics != nil {
		e.metrics.BatchTruncation(result.TruncatedReason)
	}
	return result
}

// applyBatchTruncation runs a total-size budget pass over the full result
// set, spilling additional successful results into the continuation cache
// once the cumulative inline payload exceeds MaxBatchResponseSizeBytes.
func (e *Executor) applyBatchTruncation(batchID string, results []CallResult) []CallResult {
	if e.cache == nil {
		return results
	}
	total := 0
	for i := range results {
		r := &results[i]
		if !r.Success || r.Truncated || len(r.Result) == 0 {
			continue
		}
		total += len(r.Result)
		if total > MaxBatchResponseSizeBytes {
			r.Truncated = true
			r.TruncatedReason = "batch_size_budget_exceeded"
			r.OriginalSizeBytes = len(r.Result)
			r.ContinuationID = e.cache.Store(batchID, r.Index, r.Result)
			r.Result = nil
			if e.metrics != nil {
				e.metrics.BatchTruncation(r.TruncatedReason)
			}
		}
	}
	return results
}
