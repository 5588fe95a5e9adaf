package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
providers:
  math:
    mode: subprocess
    command: ["math-server"]
    idle_ttl_s: 120
  search:
    mode: docker
    image: search-server:latest
    resources:
      memory: 512m
      cpu: "1"
observability:
  tracing:
    enabled: true
discovery:
  sources:
    - type: static
concurrency:
  global_limit: 50
`

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hangar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_ParsesProvidersAndAppliesDefaults(t *testing.T) {
	path := writeTemp(t, sampleYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Len(t, cfg.Providers, 2)
	assert.Equal(t, 50, cfg.Concurrency.GlobalLimit)
	assert.Equal(t, 5, cfg.Concurrency.DefaultProviderLimit)
	assert.True(t, cfg.Observability.Tracing.Enabled)
	assert.Equal(t, float64(50), cfg.RateLimit.RequestsPerSecond)
}

func TestLoad_RejectsMissingProviders(t *testing.T) {
	path := writeTemp(t, "observability:\n  tracing:\n    enabled: false\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsUnknownProviderMode(t *testing.T) {
	path := writeTemp(t, "providers:\n  math:\n    mode: bogus\n")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestConfig_ProviderSpecsConvertsToProviderConfig(t *testing.T) {
	path := writeTemp(t, sampleYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	specs := cfg.ProviderSpecs()
	assert.Len(t, specs, 2)

	byID := map[string]bool{}
	for _, s := range specs {
		byID[s.ID] = true
	}
	assert.True(t, byID["math"])
	assert.True(t, byID["search"])
}
