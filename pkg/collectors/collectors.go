// Package collectors defines the contract every catalog source implements and
// a registry that builds the enabled set from configuration.
package collectors

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/catalog"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/normalize"
	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/whttp"
)

// ErrUnknownCollector is returned when configuration names a collector that
// was never registered.
var ErrUnknownCollector = errors.New("unknown collector")

// Func fetches the raw records of one source. It may block on the network
// and must honour ctx.
type Func func(ctx context.Context) ([]catalog.RawRecord, error)

// Collector is a named source of raw records plus the normalization defaults
// that apply to its records.
type Collector struct {
	Name    string
	Collect Func
	Profile normalize.Profile
}

// Fetcher is the subset of whttp.Client collectors need.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*whttp.WHTTPRes, error)
}

// Factory builds a collector around a fetcher.
type Factory func(f Fetcher) Collector

// Registry maps collector names to factories.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, factory Factory) {
	r.factories[name] = factory
}

// Names returns the registered names in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build instantiates the named collectors in the given order. Duplicate
// names are built once.
func (r *Registry) Build(names []string, f Fetcher) ([]Collector, error) {
	seen := make(map[string]bool, len(names))
	out := make([]Collector, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true

		factory, ok := r.factories[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCollector, name)
		}
		c := factory(f)
		if c.Name == "" {
			c.Name = name
		}
		out = append(out, c)
	}
	return out, nil
}

// Profiles returns the normalization profile of every collector keyed by name.
func Profiles(cs []Collector) map[string]normalize.Profile {
	out := make(map[string]normalize.Profile, len(cs))
	for _, c := range cs {
		out[c.Name] = c.Profile
	}
	return out
}

// ResolveURL resolves href against base. Absolute hrefs are returned as is,
// and an empty href yields "".
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	b, err := url.Parse(base)
	if err != nil || b.Host == "" {
		return href
	}
	return b.ResolveReference(ref).String()
}
