// Package health tracks failure/success counters, the degradation decision,
// and the backoff schedule gating restart attempts after consecutive
// failures.
package health

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

const (
	backoffBase = time.Second
	backoffCap  = 60 * time.Second
	backoffK    = 6
)

// Tracker holds the consecutive/total counters a Provider consults to
// decide whether it should degrade or may retry a cold start.
//
// The total-invocation counter is incremented from a single Observe call
// so invocation accounting and health accounting cannot drift apart;
// callers never touch consecutive-failure state directly.
type Tracker struct {
	mu                  sync.Mutex
	consecutiveFailures int
	totalFailures       int
	totalSuccesses      int
	totalInvocations    int
	lastFailureAt       time.Time
	maxConsecutive      int
}

// NewTracker constructs a Tracker degrading after maxConsecutiveFailures.
func NewTracker(maxConsecutiveFailures int) *Tracker {
	return &Tracker{maxConsecutive: maxConsecutiveFailures}
}

// RecordSuccess resets the consecutive-failure counter and bumps the
// success counter.
func (t *Tracker) RecordSuccess() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutiveFailures = 0
	t.totalSuccesses++
}

// RecordFailure increments both failure counters and stamps the last
// failure time used by the backoff calculation.
func (t *Tracker) RecordFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consecutiveFailures++
	t.totalFailures++
	t.lastFailureAt = time.Now()
}

// RecordInvocationFailure updates the same counters as RecordFailure,
// used for failures observed while serving a tool call rather than a
// health probe. It does not touch the invocation counter; that is
// ObserveInvocation's job.
func (t *Tracker) RecordInvocationFailure() {
	t.mu.Lock()
	t.consecutiveFailures++
	t.totalFailures++
	t.lastFailureAt = time.Now()
	t.mu.Unlock()
}

// ObserveInvocation increments the total-invocation counter; call this
// once per invoke_tool attempt regardless of outcome.
func (t *Tracker) ObserveInvocation() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalInvocations++
}

// ShouldDegrade is a pure function of the consecutive-failure counter and
// the configured threshold.
func (t *Tracker) ShouldDegrade() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxConsecutive > 0 && t.consecutiveFailures >= t.maxConsecutive
}

// CanRetry reports whether the backoff window since the last failure has
// elapsed.
func (t *Tracker) CanRetry() bool {
	left, _ := t.backoffRemaining()
	return left <= 0
}

// RetryIn returns the seconds remaining until a retry is permitted (0 if
// none is outstanding).
func (t *Tracker) RetryIn() float64 {
	left, _ := t.backoffRemaining()
	if left < 0 {
		left = 0
	}
	return left.Seconds()
}

func (t *Tracker) backoffRemaining() (time.Duration, time.Time) {
	t.mu.Lock()
	consecutive := t.consecutiveFailures
	lastFailure := t.lastFailureAt
	t.mu.Unlock()

	if consecutive == 0 || lastFailure.IsZero() {
		return 0, lastFailure
	}
	backoff := Backoff(consecutive)
	elapsed := time.Since(lastFailure)
	return backoff - elapsed, lastFailure
}

// Snapshot is a point-in-time, lock-free copy of the counters for reporting.
type Snapshot struct {
	ConsecutiveFailures int
	TotalFailures       int
	TotalSuccesses      int
	TotalInvocations    int
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		ConsecutiveFailures: t.consecutiveFailures,
		TotalFailures:       t.totalFailures,
		TotalSuccesses:      t.totalSuccesses,
		TotalInvocations:    t.totalInvocations,
	}
}

// Backoff computes min(cap, base*2^min(consecutiveFailures, k)) with ±25%
// jitter.
func Backoff(consecutiveFailures int) time.Duration {
	if consecutiveFailures < 0 {
		consecutiveFailures = 0
	}
	exp := consecutiveFailures
	if exp > backoffK {
		exp = backoffK
	}
	multiplier := math.Pow(2, float64(exp))
	delay := time.Duration(float64(backoffBase) * multiplier)
	if delay > backoffCap {
		delay = backoffCap
	}
	return jitter(delay, 0.25)
}

func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return d
	}
	if fraction > 1.0 {
		fraction = 1.0
	}
	r := rand.Float64() * fraction
	multiplier := 1.0 + (r * 2.0) - fraction
	return time.Duration(float64(d) * multiplier)
}
