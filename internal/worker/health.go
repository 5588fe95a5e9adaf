package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/mapyr/mcp-hangar/internal/provider"
	"github.com/mapyr/mcp-hangar/internal/repository"
)

// DefaultHealthCheckInterval is the READY-provider probe period.
const DefaultHealthCheckInterval = 60 * time.Second

// HealthCheck periodically probes every READY provider.
type HealthCheck struct {
	repo     *repository.Repository
	interval time.Duration
	logger   *slog.Logger
}

func NewHealthCheck(repo *repository.Repository, interval time.Duration, logger *slog.Logger) *HealthCheck {
	if interval <= 0 {
		interval = DefaultHealthCheckInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthCheck{repo: repo, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled, probing READY providers every interval.
func (h *HealthCheck) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.sweep(ctx)
		}
	}
}

func (h *HealthCheck) sweep(ctx context.Context) {
	for _, p := range h.repo.GetAll() {
		if p.State() != provider.StateReady {
			continue
		}
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					h.logger.Error("health_check_panic", "provider_id", p.ID(), "panic", rec)
				}
			}()
			if !p.HealthCheck(ctx) {
				h.logger.Warn("health_check_failed", "provider_id", p.ID())
			}
		}()
	}
}
