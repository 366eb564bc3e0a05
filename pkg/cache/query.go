package cache

import (
	"slices"
	"sync"
	"time"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/metrics"
)

type queryEntry[T any] struct {
	results   []T
	fetchedAt time.Time
}

// QueryCache stores result sets per query key. Every entry expires one
// interval after it was written; expired entries are dropped when their key
// is next read, never by a background sweep.
type QueryCache[T any] struct {
	mu      sync.Mutex
	entries map[string]queryEntry[T]

	interval time.Duration
	opts     options
}

// NewQueryCache creates an empty cache whose entries live for interval.
func NewQueryCache[T any](interval time.Duration, opts ...Option) (*QueryCache[T], error) {
	o, err := buildOptions(interval, "query", opts)
	if err != nil {
		return nil, err
	}
	return &QueryCache[T]{
		entries:  make(map[string]queryEntry[T]),
		interval: interval,
		opts:     o,
	}, nil
}

// Put stores results under key, overwriting any previous entry.
func (c *QueryCache[T]) Put(key string, results []T) {
	entry := queryEntry[T]{results: slices.Clone(results), fetchedAt: c.opts.now()}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// Get returns the results stored under key while they are fresh. An expired
// entry is purged and reported as absent.
func (c *QueryCache[T]) Get(key string) ([]T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		metrics.QueryCacheRequests.WithLabelValues(c.opts.name, "miss").Inc()
		return nil, false
	}
	if c.opts.now().Sub(entry.fetchedAt) >= c.interval {
		delete(c.entries, key)
		metrics.QueryCacheRequests.WithLabelValues(c.opts.name, "expired").Inc()
		return nil, false
	}
	metrics.QueryCacheRequests.WithLabelValues(c.opts.name, "hit").Inc()
	return slices.Clone(entry.results), true
}

// ClearAll removes every entry.
func (c *QueryCache[T]) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]queryEntry[T])
}

// Len returns the number of stored entries, expired ones included.
func (c *QueryCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
