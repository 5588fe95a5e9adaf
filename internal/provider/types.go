// Package provider implements the Provider aggregate and its lifecycle
// state machine: the transition table, the ensure-ready/start/
// handle-start-failure control flow, the MCP handshake, and the
// health-check/idle-shutdown bodies.
package provider

import (
	"fmt"
)

// State is a provider's lifecycle state.
type State string

const (
	StateCold         State = "COLD"
	StateInitializing State = "INITIALIZING"
	StateReady        State = "READY"
	StateDegraded     State = "DEGRADED"
	StateDead         State = "DEAD"
)

// validTransitions is the provider lifecycle's transition table.
var validTransitions = map[State]map[State]bool{
	StateCold:         {StateInitializing: true},
	StateInitializing: {StateReady: true, StateDead: true, StateDegraded: true},
	StateReady:        {StateCold: true, StateDead: true, StateDegraded: true},
	StateDegraded:     {StateInitializing: true, StateCold: true},
	StateDead:         {StateInitializing: true, StateDegraded: true},
}

// CanTransition reports whether from -> to is allowed (self-transitions
// are always no-ops, not validated against the table).
func CanTransition(from, to State) bool {
	if from == to {
		return true
	}
	return validTransitions[from][to]
}

// Mode identifies how the provider's process is launched.
type Mode string

const (
	ModeSubprocess Mode = "subprocess"
	ModeDocker     Mode = "docker"
	ModeContainer  Mode = "container"
	ModePodman     Mode = "podman"
	ModeRemote     Mode = "remote"
)

// BuildConfig describes an optional image build step for container modes.
type BuildConfig struct {
	Dockerfile string
	Context    string
	Tag        string
}

// ResourceLimits caps the launched process/container.
type ResourceLimits struct {
	Memory string
	CPU    string
}

// Config is the launch configuration for one provider, parsed from the
// providers: section of YAML config.
type Config struct {
	ID                      string
	Mode                    Mode
	Command                 []string
	Image                   string
	Endpoint                string
	Env                     map[string]string
	IdleTTLSeconds          int
	HealthCheckIntervalSecs int
	MaxConsecutiveFailures  int
	Volumes                 []string
	Build                   *BuildConfig
	Resources               ResourceLimits
	Network                 string
	ReadOnly                bool
	User                    string
	Description             string
}

func (c Config) withDefaults() Config {
	if c.IdleTTLSeconds == 0 {
		c.IdleTTLSeconds = 300
	}
	if c.HealthCheckIntervalSecs == 0 {
		c.HealthCheckIntervalSecs = 60
	}
	if c.MaxConsecutiveFailures == 0 {
		c.MaxConsecutiveFailures = 3
	}
	if c.Resources.Memory == "" {
		c.Resources.Memory = "512m"
	}
	if c.Resources.CPU == "" {
		c.Resources.CPU = "1.0"
	}
	if c.Network == "" {
		c.Network = "none"
	}
	return c
}

// StatusDict is the JSON-serializable status snapshot returned by status
// queries.
type StatusDict struct {
	Provider        string         `json:"provider"`
	State           string         `json:"state"`
	Alive           bool           `json:"alive"`
	Mode            string         `json:"mode"`
	ImageOrCommand  string         `json:"image_or_command"`
	ToolsCached     int            `json:"tools_cached"`
	Health          map[string]any `json:"health"`
	Meta            map[string]any `json:"meta"`
}

func (c Config) imageOrCommand() string {
	if c.Image != "" {
		return c.Image
	}
	if len(c.Command) > 0 {
		return fmt.Sprint(c.Command)
	}
	return c.Endpoint
}
