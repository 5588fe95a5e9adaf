// Package singleflight wraps golang.org/x/sync/singleflight to coalesce
// concurrent cold starts keyed by provider id. The result is shared by
// every concurrent caller in the in-flight window but not cached beyond it.
package singleflight

import "golang.org/x/sync/singleflight"

// Group coalesces concurrent Do calls sharing the same key into one
// execution of fn.
type Group struct {
	g singleflight.Group
}

// Do executes fn if no call for key is already in flight, otherwise waits
// for the in-flight call and shares its result. Every concurrent caller
// observes the same outcome (success or error).
func (g *Group) Do(key string, fn func() (any, error)) (any, error) {
	v, err, _ := g.g.Do(key, fn)
	return v, err
}
