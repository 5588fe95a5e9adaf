package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_StoreRetrieveRoundTrip(t *testing.T) {
	c := New(time.Minute)
	id := c.Store("batch1", 0, []byte("hello world"))
	assert.True(t, strings.HasPrefix(id, "cont_batch1_0_"))

	res := c.Retrieve(id, 0, DefaultLimit)
	require.True(t, res.Found)
	assert.Equal(t, []byte("hello world"), res.Data)
	assert.Equal(t, 11, res.TotalSizeBytes)
	assert.False(t, res.HasMore)
	assert.True(t, res.Complete)
}

func TestCache_RetrievePaginatesWithOffsetAndLimit(t *testing.T) {
	c := New(time.Minute)
	id := c.Store("batch1", 0, []byte("0123456789"))

	res := c.Retrieve(id, 0, 4)
	require.True(t, res.Found)
	assert.Equal(t, []byte("0123"), res.Data)
	assert.True(t, res.HasMore)
	assert.False(t, res.Complete)

	res2 := c.Retrieve(id, 4, 6)
	require.True(t, res2.Found)
	assert.Equal(t, []byte("456789"), res2.Data)
	assert.False(t, res2.HasMore)
	assert.True(t, res2.Complete)
}

func TestCache_RetrieveClampsOverMaxLimit(t *testing.T) {
	c := New(time.Minute)
	id := c.Store("b", 0, make([]byte, MaxLimit+100))

	res := c.Retrieve(id, 0, MaxLimit+100)
	require.True(t, res.Found)
	assert.Len(t, res.Data, MaxLimit)
}

func TestCache_RetrieveNotFound(t *testing.T) {
	c := New(time.Minute)
	res := c.Retrieve("cont_nope", 0, 0)
	assert.False(t, res.Found)
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	c := New(10 * time.Millisecond)
	id := c.Store("b", 0, []byte("x"))
	time.Sleep(25 * time.Millisecond)

	res := c.Retrieve(id, 0, 0)
	assert.False(t, res.Found)
}

func TestCache_Delete(t *testing.T) {
	c := New(time.Minute)
	id := c.Store("b", 0, []byte("x"))
	assert.True(t, c.Delete(id))
	assert.False(t, c.Delete(id))
}

func TestCache_PurgeExpiredRemovesStaleEntries(t *testing.T) {
	c := New(5 * time.Millisecond)
	c.Store("b", 0, []byte("x"))
	c.Store("b", 1, []byte("y"))
	time.Sleep(20 * time.Millisecond)

	removed := c.PurgeExpired(time.Now())
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, c.Len())
}
