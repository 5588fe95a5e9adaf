package bus

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/mapyr/mcp-hangar/internal/hangarerr"
)

// Command is implemented by every concrete command variant
// (StartProvider, StopProvider, InvokeTool, HealthCheck, ...).
type Command interface {
	CommandName() string
}

// CommandHandler handles exactly one command type.
type CommandHandler interface {
	Handle(cmd Command) (any, error)
}

// CommandHandlerFunc adapts a plain function to CommandHandler.
type CommandHandlerFunc func(cmd Command) (any, error)

func (f CommandHandlerFunc) Handle(cmd Command) (any, error) { return f(cmd) }

// CommandBus routes a command to its single registered handler. Only
// one handler may be registered per command type.
type CommandBus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type]CommandHandler
}

func NewCommandBus() *CommandBus {
	return &CommandBus{handlers: make(map[reflect.Type]CommandHandler)}
}

// Register binds handler to the concrete type of sample. It panics if a
// handler is already registered for that type; double registration is a
// programming error, not a runtime condition callers should recover from.
func (b *CommandBus) Register(sample Command, handler CommandHandler) {
	t := reflect.TypeOf(sample)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[t]; exists {
		panic(fmt.Sprintf("bus: handler already registered for %s", t))
	}
	b.handlers[t] = handler
}

// Unregister removes the handler for sample's type, reporting whether one was present.
func (b *CommandBus) Unregister(sample Command) bool {
	t := reflect.TypeOf(sample)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[t]; !exists {
		return false
	}
	delete(b.handlers, t)
	return true
}

// HasHandler reports whether sample's type has a registered handler.
func (b *CommandBus) HasHandler(sample Command) bool {
	t := reflect.TypeOf(sample)
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.handlers[t]
	return ok
}

// Send dispatches cmd to its handler, returning hangarerr.ErrNoHandler if
// none is registered for its concrete type.
func (b *CommandBus) Send(cmd Command) (any, error) {
	t := reflect.TypeOf(cmd)
	b.mu.RLock()
	handler, ok := b.handlers[t]
	b.mu.RUnlock()
	if !ok {
		return nil, hangarerr.ErrNoHandler(cmd.CommandName())
	}
	return handler.Handle(cmd)
}
