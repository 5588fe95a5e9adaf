// Package command defines the concrete command and query payloads routed
// through the command/query buses.
package command

import "time"

// StartProvider asks the registered handler to ensure a provider is
// started (cold start), blocking until it reaches READY or a terminal
// failure state.
type StartProvider struct {
	ProviderID string
}

func (StartProvider) CommandName() string { return "StartProvider" }

// StopProvider asks the registered handler to shut a provider down.
type StopProvider struct {
	ProviderID string
}

func (StopProvider) CommandName() string { return "StopProvider" }

// InvokeTool asks the registered handler to call a tool on a provider,
// starting it first if necessary.
type InvokeTool struct {
	ProviderID string
	ToolName   string
	Arguments  map[string]any
	Timeout    time.Duration
}

func (InvokeTool) CommandName() string { return "InvokeTool" }

// HealthCheck asks the registered handler to run a liveness probe against
// a single READY provider.
type HealthCheck struct {
	ProviderID string
}

func (HealthCheck) CommandName() string { return "HealthCheck" }

// ShutdownIdleProviders asks the registered handler to reap every
// provider whose idle TTL has elapsed.
type ShutdownIdleProviders struct{}

func (ShutdownIdleProviders) CommandName() string { return "ShutdownIdleProviders" }

// ListProviders is a side-effect-free read of every registered provider's
// status.
type ListProviders struct{}

func (ListProviders) QueryName() string { return "ListProviders" }

// GetProvider is a side-effect-free read of one provider's status.
type GetProvider struct {
	ProviderID string
}

func (GetProvider) QueryName() string { return "GetProvider" }

// GetProviderTools is a side-effect-free read of one provider's cached
// tool catalog.
type GetProviderTools struct {
	ProviderID string
}

func (GetProviderTools) QueryName() string { return "GetProviderTools" }
