package batch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapyr/mcp-hangar/internal/bus"
	"github.com/mapyr/mcp-hangar/internal/cache"
	"github.com/mapyr/mcp-hangar/internal/concurrency"
	"github.com/mapyr/mcp-hangar/internal/handlers"
	"github.com/mapyr/mcp-hangar/internal/provider"
	"github.com/mapyr/mcp-hangar/internal/repository"
)

func echoProviderConfig(id string) provider.Config {
	script := `while IFS= read -r line; do
  id=$(printf '%s' "$line" | sed -E 's/.*"id":([0-9]+).*/\1/')
  case "$line" in
    *'"method":"initialize"'*) printf '{"jsonrpc":"2.0","id":%s,"result":{}}\n' "$id" ;;
    *'"method":"tools/list"'*) printf '{"jsonrpc":"2.0","id":%s,"result":{"tools":[{"name":"add","description":"adds","inputSchema":{}}]}}\n' "$id" ;;
    *'"method":"tools/call"'*) printf '{"jsonrpc":"2.0","id":%s,"result":{"value":3}}\n' "$id" ;;
    *) printf '{"jsonrpc":"2.0","id":%s,"result":{}}\n' "$id" ;;
  esac
done`
	return provider.Config{
		ID:      id,
		Mode:    provider.ModeSubprocess,
		Command: []string{"sh", "-c", script},
	}
}

func newTestExecutor(t *testing.T, providerIDs ...string) (*Executor, *repository.Repository) {
	t.Helper()
	repo := repository.New()
	for _, id := range providerIDs {
		repo.Add(provider.New(echoProviderConfig(id), nil, nil))
	}
	cb := bus.NewCommandBus()
	qb := bus.NewQueryBus()
	handlers.Register(cb, qb, repo)

	cm := concurrency.New(10, 5, nil)
	respCache := cache.New(time.Minute)
	eb := bus.NewEventBus(nil)

	return NewExecutor(repo, cb, cm, respCache, eb, nil), repo
}

func TestExecutor_AllCallsSucceedPreservesOrder(t *testing.T) {
	exec, _ := newTestExecutor(t, "math")
	defer func() {
		if p, ok := exec.repo.Get("math"); ok {
			p.Shutdown()
		}
	}()

	calls := []CallSpec{
		{Index: 0, CallID: "c0", ProviderID: "math", ToolName: "add", Arguments: map[string]any{"a": 1}},
		{Index: 1, CallID: "c1", ProviderID: "math", ToolName: "add", Arguments: map[string]any{"a": 2}},
		{Index: 2, CallID: "c2", ProviderID: "math", ToolName: "add", Arguments: map[string]any{"a": 3}},
	}

	result := exec.Execute(context.Background(), "batch1", calls, 4, 5*time.Second, false)
	require.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Succeeded)
	assert.True(t, result.Success)
	require.Len(t, result.Results, 3)
	for i, r := range result.Results {
		assert.Equal(t, i, r.Index)
		assert.True(t, r.Success)
	}
}

func TestExecutor_UnknownProviderReturnsProviderNotFoundResult(t *testing.T) {
	exec, _ := newTestExecutor(t)

	calls := []CallSpec{{Index: 0, CallID: "c0", ProviderID: "ghost", ToolName: "add"}}
	result := exec.Execute(context.Background(), "batch2", calls, 2, 2*time.Second, false)

	require.Len(t, result.Results, 1)
	assert.False(t, result.Results[0].Success)
	assert.Equal(t, "ProviderNotFoundError", result.Results[0].ErrorType)
	assert.Equal(t, 1, result.Failed)
}

func TestExecutor_FailFastCancelsRemainingCalls(t *testing.T) {
	exec, _ := newTestExecutor(t, "math")
	defer func() {
		if p, ok := exec.repo.Get("math"); ok {
			p.Shutdown()
		}
	}()

	calls := []CallSpec{
		{Index: 0, CallID: "c0", ProviderID: "missing-a", ToolName: "x"},
		{Index: 1, CallID: "c1", ProviderID: "missing-b", ToolName: "x"},
	}

	result := exec.Execute(context.Background(), "batch3", calls, 1, 2*time.Second, true)
	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Total)
}

func TestExecutor_UnknownToolFailsWithToolNotFound(t *testing.T) {
	exec, _ := newTestExecutor(t, "math")
	defer func() {
		if p, ok := exec.repo.Get("math"); ok {
			p.Shutdown()
		}
	}()

	calls := []CallSpec{
		{Index: 0, CallID: "c0", ProviderID: "math", ToolName: "does-not-exist", MaxAttempts: 1},
	}
	result := exec.Execute(context.Background(), "batch4", calls, 2, 2*time.Second, false)

	require.Len(t, result.Results, 1)
	assert.False(t, result.Results[0].Success)
	assert.Equal(t, "ToolNotFoundError", result.Results[0].ErrorType)
}

func TestExecutor_GlobalTimeoutMarksUnfinishedCallsAsTimeout(t *testing.T) {
	// Answers initialize/tools/list normally so the provider reaches READY
	// quickly, but never answers tools/call, so the invocation hangs until
	// the effective per-call timeout (bounded by the batch's global
	// timeout) elapses.
	script := `while IFS= read -r line; do
  id=$(printf '%s' "$line" | sed -E 's/.*"id":([0-9]+).*/\1/')
  case "$line" in
    *'"method":"initialize"'*) printf '{"jsonrpc":"2.0","id":%s,"result":{}}\n' "$id" ;;
    *'"method":"tools/list"'*) printf '{"jsonrpc":"2.0","id":%s,"result":{"tools":[{"name":"add","description":"adds","inputSchema":{}}]}}\n' "$id" ;;
    *) ;;
  esac
done`
	repo := repository.New()
	repo.Add(provider.New(provider.Config{
		ID:      "slow",
		Mode:    provider.ModeSubprocess,
		Command: []string{"sh", "-c", script},
	}, nil, nil))

	cb := bus.NewCommandBus()
	qb := bus.NewQueryBus()
	handlers.Register(cb, qb, repo)
	cm := concurrency.New(10, 5, nil)
	respCache := cache.New(time.Minute)
	eb := bus.NewEventBus(nil)
	exec := NewExecutor(repo, cb, cm, respCache, eb, nil)
	defer func() {
		if p, ok := repo.Get("slow"); ok {
			p.Shutdown()
		}
	}()

	calls := []CallSpec{{Index: 0, CallID: "c0", ProviderID: "slow", ToolName: "add"}}
	result := exec.Execute(context.Background(), "batch5", calls, 1, 150*time.Millisecond, false)

	require.Len(t, result.Results, 1)
	assert.False(t, result.Success)
	assert.Equal(t, "TimeoutError", result.Results[0].ErrorType)
}
