// Package config loads and validates the registry's YAML configuration:
// read the file, unmarshal, apply defaults, then run struct tag
// validation.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mapyr/mcp-hangar/internal/provider"
)

// ProviderConfig is the YAML shape of one providers: entry.
type ProviderConfig struct {
	Mode                  string            `yaml:"mode" validate:"required,oneof=subprocess docker container podman remote"`
	Command               []string          `yaml:"command"`
	Image                 string            `yaml:"image"`
	Endpoint              string            `yaml:"endpoint"`
	Env                   map[string]string `yaml:"env"`
	IdleTTLSeconds        int               `yaml:"idle_ttl_s"`
	HealthCheckIntervalS  int               `yaml:"health_check_interval_s"`
	MaxConsecutiveFailures int              `yaml:"max_consecutive_failures"`
	Volumes               []string          `yaml:"volumes"`
	Build                 *BuildConfig      `yaml:"build"`
	Resources             ResourceConfig    `yaml:"resources"`
	Network               string            `yaml:"network"`
	ReadOnly              bool              `yaml:"read_only"`
	User                  string            `yaml:"user"`
	Description           string            `yaml:"description"`
}

// BuildConfig mirrors provider.BuildConfig for YAML decoding.
type BuildConfig struct {
	Dockerfile string `yaml:"dockerfile"`
	Context    string `yaml:"context"`
	Tag        string `yaml:"tag"`
}

// ResourceConfig mirrors provider.ResourceLimits for YAML decoding.
type ResourceConfig struct {
	Memory string `yaml:"memory"`
	CPU    string `yaml:"cpu"`
}

// ObservabilityConfig controls tracing and metrics.
type ObservabilityConfig struct {
	Tracing  TracingConfig  `yaml:"tracing"`
	Langfuse LangfuseConfig `yaml:"langfuse"`
}

// TracingConfig maps to internal/tracing.Config.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LangfuseConfig is accepted but unused: the core has no Langfuse
// integration, retained only so a config file the spec's surface accepts
// doesn't fail to parse.
type LangfuseConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DiscoverySourceConfig names one configured discovery source. Only the
// static, config-driven source is implemented; pluggable discovery
// sources are out of scope.
type DiscoverySourceConfig struct {
	Type string `yaml:"type" validate:"omitempty,oneof=static"`
}

// DiscoveryConfig is the discovery: top-level section.
type DiscoveryConfig struct {
	Sources []DiscoverySourceConfig `yaml:"sources"`
}

// ConcurrencyConfig is the top-level concurrency limits section.
type ConcurrencyConfig struct {
	GlobalLimit         int `yaml:"global_limit"`
	DefaultProviderLimit int `yaml:"default_provider_limit"`
}

// RateLimitConfig controls the token-bucket limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// AlertConfig controls the optional Slack subscriber.
type AlertConfig struct {
	SlackWebhookURL string `yaml:"slack_webhook_url"`
}

// Config is the top-level shape of the registry's YAML configuration.
type Config struct {
	Providers     map[string]ProviderConfig `yaml:"providers" validate:"required,min=1,dive"`
	Observability ObservabilityConfig       `yaml:"observability"`
	Discovery     DiscoveryConfig           `yaml:"discovery"`
	Concurrency   ConcurrencyConfig         `yaml:"concurrency"`
	RateLimit     RateLimitConfig           `yaml:"rate_limit"`
	Alert         AlertConfig               `yaml:"alert"`
}

var validate = validator.New()

// Load reads and parses the YAML file at path, applies defaults, and
// validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Concurrency.GlobalLimit == 0 {
		c.Concurrency.GlobalLimit = 100
	}
	if c.Concurrency.DefaultProviderLimit == 0 {
		c.Concurrency.DefaultProviderLimit = 5
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 50
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 100
	}
}

// ProviderSpecs converts the parsed providers: section into
// provider.Config values keyed the same way, ready for
// discovery.NewStaticSource.
func (c *Config) ProviderSpecs() []provider.Config {
	specs := make([]provider.Config, 0, len(c.Providers))
	for id, pc := range c.Providers {
		spec := provider.Config{
			ID:                      id,
			Mode:                    provider.Mode(pc.Mode),
			Command:                 pc.Command,
			Image:                   pc.Image,
			Endpoint:                pc.Endpoint,
			Env:                     pc.Env,
			IdleTTLSeconds:          pc.IdleTTLSeconds,
			HealthCheckIntervalSecs: pc.HealthCheckIntervalS,
			MaxConsecutiveFailures:  pc.MaxConsecutiveFailures,
			Volumes:                 pc.Volumes,
			Resources:               provider.ResourceLimits(pc.Resources),
			Network:                 pc.Network,
			ReadOnly:                pc.ReadOnly,
			User:                    pc.User,
			Description:             pc.Description,
		}
		if pc.Build != nil {
			spec.Build = &provider.BuildConfig{
				Dockerfile: pc.Build.Dockerfile,
				Context:    pc.Build.Context,
				Tag:        pc.Build.Tag,
			}
		}
		specs = append(specs, spec)
	}
	return specs
}
