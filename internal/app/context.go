// Package app assembles the registry's application context: the bundle of
// singletons every handler and worker shares. Everything is constructed
// once from a loaded config, handlers are wired, background loops are
// started, and one object is returned for the caller to own.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mapyr/mcp-hangar/internal/alert"
	"github.com/mapyr/mcp-hangar/internal/audit"
	"github.com/mapyr/mcp-hangar/internal/batch"
	"github.com/mapyr/mcp-hangar/internal/bus"
	"github.com/mapyr/mcp-hangar/internal/cache"
	"github.com/mapyr/mcp-hangar/internal/concurrency"
	hangarconfig "github.com/mapyr/mcp-hangar/internal/config"
	"github.com/mapyr/mcp-hangar/internal/discovery"
	"github.com/mapyr/mcp-hangar/internal/handlers"
	"github.com/mapyr/mcp-hangar/internal/metrics"
	"github.com/mapyr/mcp-hangar/internal/provider"
	"github.com/mapyr/mcp-hangar/internal/ratelimit"
	"github.com/mapyr/mcp-hangar/internal/repository"
	"github.com/mapyr/mcp-hangar/internal/tracing"
	"github.com/mapyr/mcp-hangar/internal/worker"
)

// continuationCacheTTL bounds how long a spilled batch result stays
// retrievable before hangar_fetch_continuation starts returning not-found.
const continuationCacheTTL = time.Hour

// Context bundles every long-lived singleton the registry needs. It is
// constructed once in cmd/hangar/main.go and passed explicitly to
// collaborators, the background workers included; Current below is a
// thin accessor that no package in the registry calls.
type Context struct {
	Config       *hangarconfig.Config
	Logger       *slog.Logger
	EventBus     *bus.EventBus
	CommandBus   *bus.CommandBus
	QueryBus     *bus.QueryBus
	Concurrency  *concurrency.Manager
	Cache        *cache.Cache
	Repository   *repository.Repository
	RateLimiter  *ratelimit.Limiter
	Metrics      *metrics.Collector
	Tracing      *tracing.Provider
	Executor     *batch.Executor
	GC           *worker.GC
	HealthCheck  *worker.HealthCheck
	discoverySrc discovery.Source
}

// New constructs a fully-wired Context from cfg: builds every singleton,
// registers command/query handlers, seeds the provider repository from the
// discovery source, and registers audit/alert event subscribers. It does
// not start background workers; call Start for that once the caller is
// ready to run.
func New(ctx context.Context, cfg *hangarconfig.Config, logger *slog.Logger) (*Context, error) {
	if logger == nil {
		logger = slog.Default()
	}

	mcol := metrics.New("hangar")
	tp, err := tracing.New(ctx, tracing.Config{
		ServiceName: "mcp-hangar",
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("app: init tracing: %w", err)
	}

	eb := bus.NewEventBus(logger)
	cb := bus.NewCommandBus()
	qb := bus.NewQueryBus()
	mcol.Bind(eb)
	cm := concurrency.New(cfg.Concurrency.GlobalLimit, cfg.Concurrency.DefaultProviderLimit, mcol)
	respCache := cache.New(continuationCacheTTL)
	repo := repository.New()
	limiter := ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	handlers.Register(cb, qb, repo)

	audit.NewLogSubscriber(logger).Register(eb)
	if cfg.Alert.SlackWebhookURL != "" {
		alert.NewSlackSubscriber(cfg.Alert.SlackWebhookURL, logger).Register(eb)
	}

	src := discovery.NewStaticSource(cfg.ProviderSpecs())
	specs, err := src.Propose(ctx)
	if err != nil {
		return nil, fmt.Errorf("app: discover providers: %w", err)
	}
	tracer := tp.Tracer("mcp-hangar")
	for _, spec := range specs {
		repo.Add(provider.New(spec, eb, logger).WithTracer(tracer))
	}

	c := &Context{
		Config:       cfg,
		Logger:       logger,
		EventBus:     eb,
		CommandBus:   cb,
		QueryBus:     qb,
		Concurrency:  cm,
		Cache:        respCache,
		Repository:   repo,
		RateLimiter:  limiter,
		Metrics:      mcol,
		Tracing:      tp,
		Executor:     batch.NewExecutor(repo, cb, cm, respCache, eb, logger).WithMetrics(mcol).WithTracer(tracer),
		GC:           worker.NewGC(repo, 0, logger).WithCache(respCache),
		HealthCheck:  worker.NewHealthCheck(repo, 0, logger),
		discoverySrc: src,
	}

	current.Store(c)
	return c, nil
}

// Start launches the GC and health-check background loops. It returns
// immediately; both loops run until ctx is cancelled.
func (c *Context) Start(ctx context.Context) {
	go c.GC.Run(ctx)
	go c.HealthCheck.Run(ctx)
}

// Shutdown stops every live provider and flushes tracing. Background
// workers stop on their own once the context passed to Start is
// cancelled.
func (c *Context) Shutdown(ctx context.Context) error {
	for _, p := range c.Repository.GetAll() {
		p.Shutdown()
	}
	return c.Tracing.Shutdown(ctx)
}

var current atomic.Pointer[Context]

// Current returns the most recently constructed Context. Handlers,
// request-path code and the background workers receive their
// collaborators explicitly instead.
func Current() *Context { return current.Load() }
