package singleflight

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGroup_ConcurrentCallsShareOneExecution(t *testing.T) {
	var g Group
	var calls int32

	var wg sync.WaitGroup
	results := make([]any, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			v, err := g.Do("provider-a", func() (any, error) {
				atomic.AddInt32(&calls, 1)
				time.Sleep(20 * time.Millisecond)
				return "started", nil
			})
			assert.NoError(t, err)
			results[idx] = v
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, r := range results {
		assert.Equal(t, "started", r)
	}
}

func TestGroup_DifferentKeysRunIndependently(t *testing.T) {
	var g Group
	var calls int32

	var wg sync.WaitGroup
	for _, key := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			_, _ = g.Do(k, func() (any, error) {
				atomic.AddInt32(&calls, 1)
				return nil, nil
			})
		}(key)
	}
	wg.Wait()

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGroup_PropagatesErrorToCaller(t *testing.T) {
	var g Group
	boom := assert.AnError

	_, err := g.Do("key", func() (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}
