package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hangarconfig "github.com/mapyr/mcp-hangar/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hangar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestNew_WiresEverySingletonAndSeedsRepository(t *testing.T) {
	path := writeConfig(t, `
providers:
  math:
    mode: subprocess
    command: ["math-server"]
`)
	cfg, err := hangarconfig.Load(path)
	require.NoError(t, err)

	c, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)

	assert.NotNil(t, c.EventBus)
	assert.NotNil(t, c.CommandBus)
	assert.NotNil(t, c.QueryBus)
	assert.NotNil(t, c.Concurrency)
	assert.NotNil(t, c.Cache)
	assert.NotNil(t, c.Executor)
	assert.True(t, c.Repository.Exists("math"))
	assert.Same(t, c, Current())
}

func TestContext_StartStopsCleanlyOnCancel(t *testing.T) {
	path := writeConfig(t, "providers:\n  math:\n    mode: subprocess\n    command: [\"math-server\"]\n")
	cfg, err := hangarconfig.Load(path)
	require.NoError(t, err)

	c, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)
	cancel()

	require.NoError(t, c.Shutdown(context.Background()))
	time.Sleep(10 * time.Millisecond)
}
