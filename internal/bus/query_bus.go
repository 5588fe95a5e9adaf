package bus

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/mapyr/mcp-hangar/internal/hangarerr"
)

// Query is implemented by every concrete query variant (ListProviders,
// GetProvider, GetProviderTools, ...). Query handlers must be
// side-effect-free.
type Query interface {
	QueryName() string
}

// QueryHandler handles exactly one query type.
type QueryHandler interface {
	Handle(q Query) (any, error)
}

type QueryHandlerFunc func(q Query) (any, error)

func (f QueryHandlerFunc) Handle(q Query) (any, error) { return f(q) }

// QueryBus has the same registration shape as CommandBus, kept as a
// separate type so read and write dispatch cannot be mixed up by mistake.
type QueryBus struct {
	mu       sync.RWMutex
	handlers map[reflect.Type]QueryHandler
}

func NewQueryBus() *QueryBus {
	return &QueryBus{handlers: make(map[reflect.Type]QueryHandler)}
}

func (b *QueryBus) Register(sample Query, handler QueryHandler) {
	t := reflect.TypeOf(sample)
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[t]; exists {
		panic(fmt.Sprintf("bus: handler already registered for %s", t))
	}
	b.handlers[t] = handler
}

func (b *QueryBus) HasHandler(sample Query) bool {
	t := reflect.TypeOf(sample)
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.handlers[t]
	return ok
}

func (b *QueryBus) Send(q Query) (any, error) {
	t := reflect.TypeOf(q)
	b.mu.RLock()
	handler, ok := b.handlers[t]
	b.mu.RUnlock()
	if !ok {
		return nil, hangarerr.ErrNoHandler(q.QueryName())
	}
	return handler.Handle(q)
}
