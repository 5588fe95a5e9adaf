// Package ratelimit implements a per-key token bucket on top of
// golang.org/x/time/rate, adding the remaining-token count callers need
// to report back to clients.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Result reports the outcome of a single token consumption attempt.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
}

// Limiter holds one token bucket per key, created lazily on first use.
type Limiter struct {
	mu          sync.Mutex
	buckets     map[string]*rate.Limiter
	ratePerSec  float64
	burstSize   int
}

// New constructs a Limiter where every key gets its own bucket refilling
// at requestsPerSecond with the given burst capacity.
func New(requestsPerSecond float64, burstSize int) *Limiter {
	return &Limiter{
		buckets:    make(map[string]*rate.Limiter),
		ratePerSec: requestsPerSecond,
		burstSize:  burstSize,
	}
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(rate.Limit(l.ratePerSec), l.burstSize)
		l.buckets[key] = b
	}
	return b
}

// Consume attempts to take one token for key, reporting whether it was
// allowed along with the configured limit and tokens remaining.
func (l *Limiter) Consume(key string) Result {
	b := l.bucket(key)
	allowed := b.Allow()
	remaining := int(b.Tokens())
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: allowed, Limit: l.burstSize, Remaining: remaining}
}
