// Package handlers wires the command and query payloads defined in
// internal/command to the provider repository, registering one handler
// per type on the buses constructed in internal/app.
package handlers

import (
	"context"
	"time"

	"github.com/mapyr/mcp-hangar/internal/bus"
	"github.com/mapyr/mcp-hangar/internal/command"
	"github.com/mapyr/mcp-hangar/internal/hangarerr"
	"github.com/mapyr/mcp-hangar/internal/provider"
	"github.com/mapyr/mcp-hangar/internal/repository"
)

// Register installs every command and query handler onto cb/qb, backed by
// repo: StartProvider, StopProvider, InvokeTool, HealthCheck,
// ShutdownIdleProviders, ListProviders, GetProvider, GetProviderTools.
func Register(cb *bus.CommandBus, qb *bus.QueryBus, repo *repository.Repository) {
	cb.Register(command.StartProvider{}, bus.CommandHandlerFunc(func(c bus.Command) (any, error) {
		cmd := c.(command.StartProvider)
		p, ok := repo.Get(cmd.ProviderID)
		if !ok {
			return nil, hangarerr.ErrProviderNotFound(cmd.ProviderID)
		}
		if err := p.EnsureReady(context.Background()); err != nil {
			return nil, err
		}
		return p.ToStatusDict(), nil
	}))

	cb.Register(command.StopProvider{}, bus.CommandHandlerFunc(func(c bus.Command) (any, error) {
		cmd := c.(command.StopProvider)
		p, ok := repo.Get(cmd.ProviderID)
		if !ok {
			return nil, hangarerr.ErrProviderNotFound(cmd.ProviderID)
		}
		p.Shutdown()
		return p.ToStatusDict(), nil
	}))

	cb.Register(command.InvokeTool{}, bus.CommandHandlerFunc(func(c bus.Command) (any, error) {
		cmd := c.(command.InvokeTool)
		p, ok := repo.Get(cmd.ProviderID)
		if !ok {
			return nil, hangarerr.ErrProviderNotFound(cmd.ProviderID)
		}
		timeout := cmd.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		return p.InvokeTool(context.Background(), cmd.ToolName, cmd.Arguments, timeout)
	}))

	cb.Register(command.HealthCheck{}, bus.CommandHandlerFunc(func(c bus.Command) (any, error) {
		cmd := c.(command.HealthCheck)
		p, ok := repo.Get(cmd.ProviderID)
		if !ok {
			return nil, hangarerr.ErrProviderNotFound(cmd.ProviderID)
		}
		return p.HealthCheck(context.Background()), nil
	}))

	cb.Register(command.ShutdownIdleProviders{}, bus.CommandHandlerFunc(func(c bus.Command) (any, error) {
		reaped := make([]string, 0)
		for _, p := range repo.GetAll() {
			if p.MaybeShutdownIdle() {
				reaped = append(reaped, p.ID())
			}
		}
		return reaped, nil
	}))

	qb.Register(command.ListProviders{}, bus.QueryHandlerFunc(func(q bus.Query) (any, error) {
		out := make([]provider.StatusDict, 0, repo.Len())
		for _, p := range repo.GetAll() {
			out = append(out, p.ToStatusDict())
		}
		return out, nil
	}))

	qb.Register(command.GetProvider{}, bus.QueryHandlerFunc(func(q bus.Query) (any, error) {
		query := q.(command.GetProvider)
		p, ok := repo.Get(query.ProviderID)
		if !ok {
			return nil, hangarerr.ErrProviderNotFound(query.ProviderID)
		}
		return p.ToStatusDict(), nil
	}))

	qb.Register(command.GetProviderTools{}, bus.QueryHandlerFunc(func(q bus.Query) (any, error) {
		query := q.(command.GetProviderTools)
		p, ok := repo.Get(query.ProviderID)
		if !ok {
			return nil, hangarerr.ErrProviderNotFound(query.ProviderID)
		}
		return p.ToolNames(), nil
	}))
}
