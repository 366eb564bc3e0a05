// Package cache holds the two time-bounded caches of the catalog: a
// whole-snapshot CollectionCache and a per-key QueryCache. Neither persists
// anything; both live only as long as the process that constructed them.
package cache

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidInterval is returned when a cache is built with a non-positive
// refresh interval.
var ErrInvalidInterval = errors.New("cache refresh interval must be positive")

// Clock returns the current time. Tests substitute a fake one.
type Clock func() time.Time

type options struct {
	now  Clock
	name string
}

// Option configures a cache.
type Option func(*options)

// WithClock replaces time.Now as the cache time source.
func WithClock(now Clock) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithName labels the cache in metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

func buildOptions(interval time.Duration, defaultName string, opts []Option) (options, error) {
	if interval <= 0 {
		return options{}, fmt.Errorf("%w: got %s", ErrInvalidInterval, interval)
	}
	o := options{now: time.Now, name: defaultName}
	for _, opt := range opts {
		opt(&o)
	}
	return o, nil
}
