// Package discovery defines the seam through which the registry learns
// about providers to manage. Only a static, config-driven source is
// implemented; a pluggable discovery subsystem (service registry polling,
// file watching, ...) is out of scope.
package discovery

import (
	"context"

	"github.com/mapyr/mcp-hangar/internal/provider"
)

// Source proposes the set of providers that should exist. Implementations
// must be safe for a single call per registry boot; Propose is not expected
// to be polled.
type Source interface {
	Propose(ctx context.Context) ([]provider.Config, error)
}

// StaticSource returns a fixed list of provider configs, typically parsed
// from the `providers:` section of the YAML config.
type StaticSource struct {
	specs []provider.Config
}

// NewStaticSource builds a Source over an already-parsed list of provider
// configs.
func NewStaticSource(specs []provider.Config) *StaticSource {
	return &StaticSource{specs: specs}
}

// Propose returns the configured specs verbatim; ctx is accepted to satisfy
// Source but is never consulted.
func (s *StaticSource) Propose(ctx context.Context) ([]provider.Config, error) {
	out := make([]provider.Config, len(s.specs))
	copy(out, s.specs)
	return out, nil
}
