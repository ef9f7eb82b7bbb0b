// Package cache keeps recent build results in memory so clients can fetch
// them again by run id. Entries expire after a TTL.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/agentstation/attrmap/pkg/attributes"
)

// Results holds build results keyed by run id.
type Results struct {
	store *gocache.Cache
}

// New creates a result cache. ttl is how long a result stays retrievable
// and cleanupInterval how often expired results are dropped from memory.
func New(ttl, cleanupInterval time.Duration) *Results {
	return &Results{
		store: gocache.New(ttl, cleanupInterval),
	}
}

// Put stores res under its run id. Results without one are ignored.
func (c *Results) Put(res *attributes.Result) {
	if res == nil || res.RunID == "" {
		return
	}
	c.store.Set(res.RunID, res, gocache.DefaultExpiration)
}

// Get returns the result of runID while it has not expired.
func (c *Results) Get(runID string) (*attributes.Result, bool) {
	v, ok := c.store.Get(runID)
	if !ok {
		return nil, false
	}
	res, ok := v.(*attributes.Result)
	return res, ok
}

// Delete removes the result of runID.
func (c *Results) Delete(runID string) {
	c.store.Delete(runID)
}

// Clear removes all results.
func (c *Results) Clear() {
	c.store.Flush()
}

// ItemCount returns the number of stored results, expired ones included
// until the next cleanup.
func (c *Results) ItemCount() int {
	return c.store.ItemCount()
}

// Stats returns cache statistics.
type Stats struct {
	ItemCount int `json:"item_count"`
}

// GetStats returns current cache statistics.
func (c *Results) GetStats() Stats {
	return Stats{
		ItemCount: c.store.ItemCount(),
	}
}
