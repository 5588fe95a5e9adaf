package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapyr/mcp-hangar/internal/bus"
	"github.com/mapyr/mcp-hangar/internal/command"
	"github.com/mapyr/mcp-hangar/internal/provider"
	"github.com/mapyr/mcp-hangar/internal/repository"
)

func TestHandlers_GetProviderUnknownReturnsProviderNotFound(t *testing.T) {
	repo := repository.New()
	cb := bus.NewCommandBus()
	qb := bus.NewQueryBus()
	Register(cb, qb, repo)

	_, err := qb.Send(command.GetProvider{ProviderID: "nope"})
	require.Error(t, err)
}

func TestHandlers_ListProvidersReturnsAllStatusDicts(t *testing.T) {
	repo := repository.New()
	repo.Add(provider.New(provider.Config{ID: "a", Mode: provider.ModeSubprocess, Command: []string{"true"}}, nil, nil))
	repo.Add(provider.New(provider.Config{ID: "b", Mode: provider.ModeSubprocess, Command: []string{"true"}}, nil, nil))

	cb := bus.NewCommandBus()
	qb := bus.NewQueryBus()
	Register(cb, qb, repo)

	result, err := qb.Send(command.ListProviders{})
	require.NoError(t, err)
	statuses := result.([]provider.StatusDict)
	assert.Len(t, statuses, 2)
}

func TestHandlers_ShutdownIdleProvidersReturnsReapedIDsOnly(t *testing.T) {
	repo := repository.New()
	cb := bus.NewCommandBus()
	qb := bus.NewQueryBus()
	Register(cb, qb, repo)

	result, err := cb.Send(command.ShutdownIdleProviders{})
	require.NoError(t, err)
	assert.Empty(t, result.([]string))
}
