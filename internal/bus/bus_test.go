package bus

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapyr/mcp-hangar/internal/events"
	"github.com/mapyr/mcp-hangar/internal/hangarerr"
)

type pingCmd struct{}

func (pingCmd) CommandName() string { return "Ping" }

type listQuery struct{}

func (listQuery) QueryName() string { return "List" }

func TestCommandBus_SendDispatchesToRegisteredHandler(t *testing.T) {
	b := NewCommandBus()
	b.Register(pingCmd{}, CommandHandlerFunc(func(cmd Command) (any, error) {
		return "pong", nil
	}))

	result, err := b.Send(pingCmd{})
	require.NoError(t, err)
	assert.Equal(t, "pong", result)
}

func TestCommandBus_SendUnknownTypeReturnsNoHandler(t *testing.T) {
	b := NewCommandBus()
	_, err := b.Send(pingCmd{})
	require.Error(t, err)
	assert.Equal(t, hangarerr.CodeNoHandler, hangarerr.GetCode(err))
}

func TestCommandBus_RegisterTwiceForSameTypePanics(t *testing.T) {
	b := NewCommandBus()
	b.Register(pingCmd{}, CommandHandlerFunc(func(Command) (any, error) { return nil, nil }))
	assert.Panics(t, func() {
		b.Register(pingCmd{}, CommandHandlerFunc(func(Command) (any, error) { return nil, nil }))
	})
}

func TestQueryBus_UnknownTypeReturnsNoHandler(t *testing.T) {
	b := NewQueryBus()
	_, err := b.Send(listQuery{})
	require.Error(t, err)
	assert.Equal(t, hangarerr.CodeNoHandler, hangarerr.GetCode(err))
}

func TestEventBus_DeliversInRegistrationOrder(t *testing.T) {
	b := NewEventBus(nil)
	var mu sync.Mutex
	var order []int

	for i := 0; i < 3; i++ {
		i := i
		b.Subscribe(events.ProviderStarted{}, func(events.Event) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
	}

	b.Publish(events.NewProviderStarted("p1", "subprocess", 2, 10))
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestEventBus_PanickingSubscriberDoesNotBlockOthers(t *testing.T) {
	b := NewEventBus(nil)
	var delivered int32

	b.Subscribe(events.ProviderStopped{}, func(events.Event) {
		panic("boom")
	})
	b.Subscribe(events.ProviderStopped{}, func(events.Event) {
		atomic.AddInt32(&delivered, 1)
	})

	require.NotPanics(t, func() {
		b.Publish(events.NewProviderStopped("p1", "shutdown"))
	})
	assert.Equal(t, int32(1), atomic.LoadInt32(&delivered))
}

func TestEventBus_SubscribeAllReceivesEveryEvent(t *testing.T) {
	b := NewEventBus(nil)
	var count int32
	b.SubscribeAll(func(events.Event) {
		atomic.AddInt32(&count, 1)
	})

	b.Publish(events.NewProviderStarted("p1", "subprocess", 1, 5))
	b.Publish(events.NewProviderStopped("p1", "shutdown"))

	assert.Equal(t, int32(2), atomic.LoadInt32(&count))
}
