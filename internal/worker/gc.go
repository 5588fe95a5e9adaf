// Package worker implements the two periodic background loops: a
// ticker-driven select against a shutdown context, logging and continuing
// past per-item errors rather than letting one bad provider kill the
// loop.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mapyr/mcp-hangar/internal/repository"
)

// DefaultGCInterval is the idle-provider sweep period.
const DefaultGCInterval = 30 * time.Second

// expirer is satisfied by cache.Cache; kept minimal so this package
// doesn't import cache directly just to sweep it.
type expirer interface {
	PurgeExpired(now time.Time) int
}

// GC periodically reaps idle providers via MaybeShutdownIdle and, if a
// cache was attached with WithCache, purges its expired entries.
type GC struct {
	repo     *repository.Repository
	interval time.Duration
	logger   *slog.Logger
	cache    expirer
}

func NewGC(repo *repository.Repository, interval time.Duration, logger *slog.Logger) *GC {
	if interval <= 0 {
		interval = DefaultGCInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GC{repo: repo, interval: interval, logger: logger}
}

// WithCache attaches a continuation cache to purge on every sweep.
func (g *GC) WithCache(c expirer) *GC {
	g.cache = c
	return g
}

// Run blocks until ctx is cancelled, sweeping providers every interval.
// Providers added or removed mid-sweep are tolerated: each tick takes a
// fresh snapshot from the repository.
func (g *GC) Run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.sweep()
		}
	}
}

func (g *GC) sweep() {
	for _, p := range g.repo.GetAll() {
		reaped := func() (r bool) {
			defer func() {
				if rec := recover(); rec != nil {
					g.logger.Error("gc_sweep_panic", "provider_id", p.ID(), "panic", rec)
					r = false
				}
			}()
			return p.MaybeShutdownIdle()
		}()
		if reaped {
			g.logger.Info("gc_reaped_idle_provider", "provider_id", p.ID())
		}
	}
	if g.cache != nil {
		if removed := g.cache.PurgeExpired(time.Now()); removed > 0 {
			g.logger.Debug("gc_purged_expired_continuations", "count", removed)
		}
	}
}
