package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mapyr/mcp-hangar/internal/bus"
	"github.com/mapyr/mcp-hangar/internal/catalog"
	"github.com/mapyr/mcp-hangar/internal/events"
	"github.com/mapyr/mcp-hangar/internal/hangarerr"
	"github.com/mapyr/mcp-hangar/internal/health"
	"github.com/mapyr/mcp-hangar/internal/rpcclient"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	protocolVersion   = "2024-11-05"
	clientName        = "mcp-registry"
	clientVersion     = "1.0.0"
	handshakeTimeout  = 10 * time.Second
	healthProbeTimeout = 5 * time.Second
)

// Provider is the aggregate root wrapping a live RPC client, its health
// tracker, and its tool catalog behind a single mutator lock.
//
// Every exported operation acquires the lock itself and calls only into
// unexported helpers that assume it is already held; there is no
// self-recursive public-to-public call path.
type Provider struct {
	cfg     Config
	eventBus *bus.EventBus
	logger  *slog.Logger
	tracer  trace.Tracer

	mu       sync.Mutex
	state    State
	version  int64
	health   *health.Tracker
	catalog  *catalog.Catalog
	client   *rpcclient.Client
	lastUsed time.Time
	meta     map[string]any
}

// New constructs a Provider in the COLD state. It does not spawn a process.
func New(cfg Config, eventBus *bus.EventBus, logger *slog.Logger) *Provider {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		cfg:      cfg,
		eventBus: eventBus,
		logger:   logger,
		state:    StateCold,
		health:   health.NewTracker(cfg.MaxConsecutiveFailures),
		catalog:  catalog.New(),
		meta:     make(map[string]any),
		tracer:   trace.NewNoopTracerProvider().Tracer("noop"),
	}
}

// WithTracer attaches a tracer used to wrap invoke_tool calls in a span.
func (p *Provider) WithTracer(tracer trace.Tracer) *Provider {
	p.tracer = tracer
	return p
}

func (p *Provider) ID() string   { return p.cfg.ID }
func (p *Provider) Mode() string { return string(p.cfg.Mode) }

// State returns the current state under lock.
func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ShouldDegrade reports whether the provider's health tracker has crossed
// its consecutive-failure threshold, without mutating state. Used by the
// batch executor's pre-invocation circuit-breaker check.
func (p *Provider) ShouldDegrade() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.health.ShouldDegrade()
}

func (p *Provider) publish(evt events.Event) {
	if p.eventBus != nil {
		p.eventBus.Publish(evt)
	}
}

// transition moves the aggregate to next, validating against the
// transition table, bumping version, and emitting ProviderStateChanged.
// Self-transitions are no-ops. Must be called with p.mu held.
func (p *Provider) transition(next State) error {
	if p.state == next {
		return nil
	}
	if !CanTransition(p.state, next) {
		return hangarerr.ErrInvalidStateTransition(p.cfg.ID, string(p.state), string(next))
	}
	from := p.state
	p.state = next
	p.version++
	p.publish(events.NewProviderStateChanged(p.cfg.ID, string(from), string(next), p.version))
	return nil
}

// forceState bypasses transition validation for the failure/degrade
// short-circuits: a dying client discovered mid-operation does not need
// to satisfy the guarded transition table, it has already happened.
// Must be called with p.mu held.
func (p *Provider) forceState(next State) {
	if p.state == next {
		return
	}
	from := p.state
	p.state = next
	p.version++
	p.publish(events.NewProviderStateChanged(p.cfg.ID, string(from), string(next), p.version))
}

// canStart reports whether a cold start may proceed right now: a fast
// "already ready" path, a backoff gate while degraded, else permission.
func (p *Provider) canStart() (ok bool, reason string, retryIn float64) {
	if p.state == StateReady && p.client != nil && p.client.IsAlive() {
		return true, "already_ready", 0
	}
	if p.state == StateDegraded && !p.health.CanRetry() {
		return false, "backoff_not_elapsed", p.health.RetryIn()
	}
	return true, "", 0
}

// EnsureReady gets the provider into READY, starting it if necessary.
func (p *Provider) EnsureReady(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ensureReadyLocked(ctx)
}

func (p *Provider) ensureReadyLocked(ctx context.Context) error {
	if p.state == StateReady && p.client != nil {
		if p.client.IsAlive() {
			return nil
		}
		// Client died while we thought we were ready: flip straight to
		// DEAD and fall through to a restart attempt.
		p.forceState(StateDead)
	}

	ok, reason, retryIn := p.canStart()
	if !ok {
		return hangarerr.ErrCannotStartProvider(p.cfg.ID, retryIn).WithContext("reason", reason)
	}

	switch p.state {
	case StateCold, StateDead, StateDegraded:
		return p.startLocked(ctx)
	default:
		return nil
	}
}

// startLocked performs the cold-start handshake. Must be called with p.mu held.
func (p *Provider) startLocked(ctx context.Context) error {
	if err := p.transition(StateInitializing); err != nil {
		return err
	}
	startTime := time.Now()

	client, err := launch(ctx, p.cfg, p.logger)
	if err != nil {
		p.handleStartFailureLocked(err)
		return hangarerr.ErrProviderStartError(p.cfg.ID, err)
	}

	if err := p.handshakeLocked(ctx, client); err != nil {
		_ = client.Close()
		p.handleStartFailureLocked(err)
		return hangarerr.ErrProviderStartError(p.cfg.ID, err)
	}

	p.client = client
	if err := p.transition(StateReady); err != nil {
		return err
	}
	p.health.RecordSuccess()
	p.lastUsed = time.Now()

	durationMs := float64(time.Since(startTime).Microseconds()) / 1000.0
	p.publish(events.NewProviderStarted(p.cfg.ID, string(p.cfg.Mode), p.catalog.Len(), durationMs))
	return nil
}

func (p *Provider) handshakeLocked(ctx context.Context, client *rpcclient.Client) error {
	initParams := map[string]any{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo": map[string]any{
			"name":    clientName,
			"version": clientVersion,
		},
	}
	if _, err := client.Call(ctx, "initialize", initParams, handshakeTimeout); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	result, err := client.Call(ctx, "tools/list", map[string]any{}, handshakeTimeout)
	if err != nil {
		return fmt.Errorf("tools/list: %w", err)
	}

	tools, err := parseToolList(result)
	if err != nil {
		return fmt.Errorf("tools/list: parse: %w", err)
	}
	p.catalog.UpdateFromList(tools)
	return nil
}

func parseToolList(raw json.RawMessage) ([]catalog.ToolSchema, error) {
	var parsed struct {
		Tools []struct {
			Name        string         `json:"name"`
			Description string         `json:"description"`
			InputSchema map[string]any `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, err
	}
	out := make([]catalog.ToolSchema, 0, len(parsed.Tools))
	for _, t := range parsed.Tools {
		out = append(out, catalog.ToolSchema{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}
	return out, nil
}

// handleStartFailureLocked closes any partial client, records the
// failure, and either degrades or marks the provider dead. Must be
// called with p.mu held.
func (p *Provider) handleStartFailureLocked(cause error) {
	if p.client != nil {
		_ = p.client.Close()
		p.client = nil
	}
	p.health.RecordFailure()
	snap := p.health.Snapshot()
	if p.health.ShouldDegrade() {
		p.forceState(StateDegraded)
		p.publish(events.NewProviderDegraded(p.cfg.ID, snap.ConsecutiveFailures, snap.TotalFailures, cause.Error()))
	} else {
		p.forceState(StateDead)
	}
}

// InvokeTool ensures the provider is ready, refreshes the catalog at most
// once for an unknown tool, then issues tools/call.
func (p *Provider) InvokeTool(ctx context.Context, toolName string, arguments map[string]any, timeout time.Duration) (json.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	correlationID := uuid.NewString()

	if err := p.ensureReadyLocked(ctx); err != nil {
		return nil, err
	}

	p.health.ObserveInvocation()

	if !p.catalog.Has(toolName) {
		p.refreshToolsLocked(ctx)
		if !p.catalog.Has(toolName) {
			return nil, hangarerr.ErrToolNotFound(p.cfg.ID, toolName)
		}
	}

	p.publish(events.NewToolInvocationRequested(p.cfg.ID, toolName, correlationID))

	ctx, span := p.tracer.Start(ctx, "invoke_tool", trace.WithAttributes(
		attribute.String("provider_id", p.cfg.ID),
		attribute.String("tool_name", toolName),
		attribute.String("correlation_id", correlationID),
	))
	defer span.End()

	start := time.Now()
	result, err := p.client.Call(ctx, "tools/call", map[string]any{"name": toolName, "arguments": arguments}, timeout)
	elapsedMs := float64(time.Since(start).Microseconds()) / 1000.0

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.health.RecordInvocationFailure()
		p.publish(events.NewToolInvocationFailed(p.cfg.ID, toolName, correlationID, "ToolInvocationError", err.Error()))
		return nil, hangarerr.ErrToolInvocationError(p.cfg.ID, toolName, err)
	}

	p.health.RecordSuccess()
	p.lastUsed = time.Now()
	p.publish(events.NewToolInvocationCompleted(p.cfg.ID, toolName, correlationID, elapsedMs, len(result)))
	return result, nil
}

func (p *Provider) refreshToolsLocked(ctx context.Context) {
	if p.client == nil || !p.client.IsAlive() {
		return
	}
	result, err := p.client.Call(ctx, "tools/list", map[string]any{}, healthProbeTimeout)
	if err != nil {
		p.logger.Debug("provider: tool refresh failed", "provider_id", p.cfg.ID, "error", err)
		return
	}
	tools, err := parseToolList(result)
	if err != nil {
		p.logger.Debug("provider: tool refresh parse failed", "provider_id", p.cfg.ID, "error", err)
		return
	}
	p.catalog.UpdateFromList(tools)
}

// HealthCheck issues a tools/list liveness probe; only meaningful when
// READY.
func (p *Provider) HealthCheck(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateReady {
		return false
	}
	if p.client == nil || !p.client.IsAlive() {
		p.forceState(StateDead)
		return false
	}

	start := time.Now()
	_, err := p.client.Call(ctx, "tools/list", map[string]any{}, healthProbeTimeout)
	elapsedMs := float64(time.Since(start).Microseconds()) / 1000.0

	if err != nil {
		p.health.RecordFailure()
		snap := p.health.Snapshot()
		p.publish(events.NewHealthCheckFailed(p.cfg.ID, snap.ConsecutiveFailures, err.Error()))
		if p.health.ShouldDegrade() {
			p.forceState(StateDegraded)
			p.publish(events.NewProviderDegraded(p.cfg.ID, snap.ConsecutiveFailures, snap.TotalFailures, "health_check_failures"))
		}
		return false
	}

	p.health.RecordSuccess()
	p.publish(events.NewHealthCheckPassed(p.cfg.ID, elapsedMs))
	return true
}

// MaybeShutdownIdle shuts the provider down if it is READY and has been
// idle past its TTL.
func (p *Provider) MaybeShutdownIdle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateReady {
		return false
	}
	idleTTL := time.Duration(p.cfg.IdleTTLSeconds) * time.Second
	idleSince := time.Since(p.lastUsed)
	if idleSince <= idleTTL {
		return false
	}
	p.publish(events.NewProviderIdleDetected(p.cfg.ID, idleSince.Seconds(), p.lastUsed))
	p.shutdownLocked("idle")
	return true
}

// Shutdown stops the provider, publishing ProviderStopped(reason="shutdown").
func (p *Provider) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdownLocked("shutdown")
}

func (p *Provider) shutdownLocked(reason string) {
	if p.client != nil {
		if err := p.client.Close(); err != nil {
			p.logger.Warn("provider: error closing client", "provider_id", p.cfg.ID, "error", err)
		}
		p.client = nil
	}
	p.forceState(StateCold)
	p.catalog.Clear()
	p.meta = make(map[string]any)
	p.publish(events.NewProviderStopped(p.cfg.ID, reason))
}

// ToStatusDict returns a JSON-serializable status snapshot for query handlers.
func (p *Provider) ToStatusDict() StatusDict {
	p.mu.Lock()
	defer p.mu.Unlock()

	alive := p.client != nil && p.client.IsAlive()
	snap := p.health.Snapshot()
	return StatusDict{
		Provider:       p.cfg.ID,
		State:          string(p.state),
		Alive:          alive,
		Mode:           string(p.cfg.Mode),
		ImageOrCommand: p.cfg.imageOrCommand(),
		ToolsCached:    p.catalog.Len(),
		Health: map[string]any{
			"consecutive_failures": snap.ConsecutiveFailures,
			"total_failures":       snap.TotalFailures,
			"total_successes":      snap.TotalSuccesses,
			"total_invocations":    snap.TotalInvocations,
		},
		Meta: p.meta,
	}
}

// ToolNames returns the cataloged tool names.
func (p *Provider) ToolNames() []string {
	return p.catalog.Names()
}
