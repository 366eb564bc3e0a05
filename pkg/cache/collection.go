package cache

import (
	"slices"
	"sync"
	"time"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/catalog"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/metrics"
)

// CollectionCache keeps the full normalized catalog behind one freshness
// timestamp. The snapshot is only ever swapped as a whole.
type CollectionCache struct {
	mu            sync.RWMutex
	records       []catalog.Record
	lastRefreshed time.Time
	refreshed     bool

	interval time.Duration
	opts     options
}

// NewCollectionCache creates an empty, never-refreshed cache.
func NewCollectionCache(interval time.Duration, opts ...Option) (*CollectionCache, error) {
	o, err := buildOptions(interval, "collection", opts)
	if err != nil {
		return nil, err
	}
	return &CollectionCache{interval: interval, opts: o}, nil
}

// Get returns a copy of the current snapshot. It never waits for a refresh
// and may return stale data.
func (c *CollectionCache) Get() []catalog.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Clone(c.records)
}

// Replace swaps in records as the new snapshot and stamps the refresh time.
// An empty result reported as failed leaves the cache untouched, so a failed
// collection is never mistaken for a source that found nothing.
// It reports whether the snapshot was replaced.
func (c *CollectionCache) Replace(records []catalog.Record, failed bool) bool {
	if failed && len(records) == 0 {
		return false
	}
	snapshot := slices.Clone(records)
	if snapshot == nil {
		snapshot = []catalog.Record{}
	}

	c.mu.Lock()
	c.records = snapshot
	c.lastRefreshed = c.opts.now()
	c.refreshed = true
	c.mu.Unlock()

	metrics.CollectionSize.WithLabelValues(c.opts.name).Set(float64(len(snapshot)))
	return true
}

// ShouldRefresh reports whether the cache was never filled or its snapshot
// is at least one interval old.
func (c *CollectionCache) ShouldRefresh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.refreshed {
		return true
	}
	return c.opts.now().Sub(c.lastRefreshed) >= c.interval
}

// LastRefreshed returns the time of the last successful Replace.
func (c *CollectionCache) LastRefreshed() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastRefreshed, c.refreshed
}

// Len returns the number of records in the current snapshot.
func (c *CollectionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.records)
}

// Interval returns the configured refresh interval.
func (c *CollectionCache) Interval() time.Duration { return c.interval }
