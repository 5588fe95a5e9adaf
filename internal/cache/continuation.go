// Package cache implements the continuation spillover cache: large
// batch-call results that would otherwise blow past the per-call
// truncation threshold are stored here under a minted id and retrieved
// later in byte-range slices.
package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultLimit and MaxLimit bound a single Retrieve call's byte window.
const (
	DefaultLimit = 500_000
	MaxLimit     = 2_000_000
)

type entry struct {
	payload   []byte
	expiresAt time.Time
}

// Cache is the continuation_id -> payload spillover store.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]entry
}

// New constructs a Cache whose entries expire ttl after being stored.
func New(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, entries: make(map[string]entry)}
}

// Store saves payload under a minted id of the form
// cont_<batchID>_<index>_<hash> and returns that id.
func (c *Cache) Store(batchID string, index int, payload []byte) string {
	id := fmt.Sprintf("cont_%s_%d_%s", batchID, index, shortHash())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[id] = entry{payload: payload, expiresAt: time.Now().Add(c.ttl)}
	return id
}

func shortHash() string {
	id := uuid.New()
	return id.String()[:8]
}

// Result is the outcome of a Retrieve call.
type Result struct {
	Found          bool
	Data           []byte
	TotalSizeBytes int
	Offset         int
	HasMore        bool
	Complete       bool
}

// Retrieve returns the [offset, offset+limit) slice of the cached payload
// for id. limit is clamped to (0, MaxLimit]; a non-positive limit falls
// back to DefaultLimit.
func (c *Cache) Retrieve(id string, offset, limit int) Result {
	if limit <= 0 {
		limit = DefaultLimit
	} else if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	c.mu.Lock()
	e, ok := c.entries[id]
	if ok && time.Now().After(e.expiresAt) {
		delete(c.entries, id)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		return Result{Found: false}
	}

	total := len(e.payload)
	if offset >= total {
		return Result{
			Found:          true,
			Data:           []byte{},
			TotalSizeBytes: total,
			Offset:         offset,
			HasMore:        false,
			Complete:       offset == 0 && total == 0,
		}
	}

	end := offset + limit
	if end > total {
		end = total
	}
	return Result{
		Found:          true,
		Data:           e.payload[offset:end],
		TotalSizeBytes: total,
		Offset:         offset,
		HasMore:        end < total,
		Complete:       offset == 0 && end == total,
	}
}

// Delete removes id, reporting whether it was present.
func (c *Cache) Delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[id]; !ok {
		return false
	}
	delete(c.entries, id)
	return true
}

// PurgeExpired drops all entries past their TTL; intended to be called
// periodically from a background worker rather than relying solely on
// lazy expiry at Retrieve time.
func (c *Cache) PurgeExpired(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for id, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of live entries, including ones past TTL that
// have not yet been purged.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
