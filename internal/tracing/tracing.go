// Package tracing wires optional OpenTelemetry spans around provider and
// batch operations: a stdout exporter for development, a tracer provider
// registered globally, and a named-tracer accessor.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Config controls whether tracing is enabled and how spans are labeled.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Enabled        bool
}

// Provider wraps a configured TracerProvider, or is a no-op if tracing is
// disabled.
type Provider struct {
	tp      *sdktrace.TracerProvider
	enabled bool
}

// New constructs a Provider. When cfg.Enabled is false, Tracer() returns a
// no-op tracer and Shutdown is a no-op.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{enabled: false}, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("tracing: create stdout exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("tracing: build resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)

	return &Provider{tp: tp, enabled: true}, nil
}

// Tracer returns a named tracer, or a no-op tracer if tracing is disabled.
func (p *Provider) Tracer(name string) trace.Tracer {
	if !p.enabled {
		return otel.Tracer(name) // otel's global default is a no-op until SetTracerProvider is called
	}
	return p.tp.Tracer(name)
}

// Shutdown flushes and stops the tracer provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.enabled {
		return nil
	}
	return p.tp.Shutdown(ctx)
}
