package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mapyr/mcp-hangar/internal/provider"
	"github.com/mapyr/mcp-hangar/internal/repository"
)

func TestGC_SweepTouchesEveryProviderWithoutPanicking(t *testing.T) {
	repo := repository.New()
	repo.Add(provider.New(provider.Config{ID: "a", Mode: provider.ModeSubprocess, Command: []string{"true"}}, nil, nil))
	repo.Add(provider.New(provider.Config{ID: "b", Mode: provider.ModeSubprocess, Command: []string{"true"}}, nil, nil))

	gc := NewGC(repo, time.Millisecond, nil)
	assert.NotPanics(t, func() { gc.sweep() })
}

func TestGC_RunStopsOnContextCancellation(t *testing.T) {
	repo := repository.New()
	gc := NewGC(repo, time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		gc.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestHealthCheck_SweepSkipsNonReadyProviders(t *testing.T) {
	repo := repository.New()
	repo.Add(provider.New(provider.Config{ID: "cold", Mode: provider.ModeSubprocess, Command: []string{"true"}}, nil, nil))

	hc := NewHealthCheck(repo, time.Millisecond, nil)
	assert.NotPanics(t, func() { hc.sweep(context.Background()) })
}

func TestHealthCheck_RunStopsOnContextCancellation(t *testing.T) {
	repo := repository.New()
	hc := NewHealthCheck(repo, time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hc.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
