// Package normalize turns raw, source-specific collector records into
// catalog.Record values. It is pure: the only inputs besides the record are
// the static neighborhood, month and per-source tables.
package normalize

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/catalog"
)

// ErrMissingName is returned for raw records without a usable title.
var ErrMissingName = errors.New("raw record has no name")

// Profile carries per-source defaults applied during normalization.
type Profile struct {
	// DefaultType is used when the record carries no category.
	DefaultType string
	// DefaultTime is used when the record carries no time.
	DefaultTime string
	// StripPrefixes are removed (case and accent insensitive) from the
	// location before the neighborhood lookup, e.g. "fablab ".
	StripPrefixes []string
	// DescribeAs is a fmt pattern fed with the name when no description exists.
	DescribeAs string
}

// Normalizer converts raw records into the unified schema.
type Normalizer struct {
	profiles      map[string]Profile
	neighborhoods neighborhoodIndex
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithProfile registers the defaults used for records of one source.
func WithProfile(source string, p Profile) Option {
	return func(n *Normalizer) { n.profiles[source] = p }
}

// WithProfiles registers several source profiles at once.
func WithProfiles(profiles map[string]Profile) Option {
	return func(n *Normalizer) {
		for source, p := range profiles {
			n.profiles[source] = p
		}
	}
}

// WithNeighborhoods replaces the default neighborhood table.
func WithNeighborhoods(names []string) Option {
	return func(n *Normalizer) { n.neighborhoods = newNeighborhoodIndex(names) }
}

// New builds a Normalizer using DefaultNeighborhoods unless overridden.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		profiles:      make(map[string]Profile),
		neighborhoods: newNeighborhoodIndex(DefaultNeighborhoods),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize produces exactly one record for raw, or ErrMissingName.
func (n *Normalizer) Normalize(source string, raw catalog.RawRecord) (catalog.Record, error) {
	name := field(raw, "title", "name")
	if name == "" {
		return catalog.Record{}, ErrMissingName
	}
	p := n.profiles[source]

	rawLink := NormalizeLink(field(raw, "official_event_link", "link", "url"))
	link := rawLink
	if link == "" {
		link = NormalizeLink(field(raw, "source_site"))
	}

	district := field(raw, "district", "bairro")
	location := field(raw, "location", "address", "local")
	if location == "" {
		location = district
	}

	typ := catalog.NormalizeType(field(raw, "category", "categories", "type"))
	if typ == "" {
		typ = catalog.NormalizeType(p.DefaultType)
	}

	timeInfo := field(raw, "time", "hour", "horario")
	if timeInfo == "" {
		timeInfo = p.DefaultTime
	}

	description := field(raw, "description")
	if description == "" && p.DescribeAs != "" {
		description = fmt.Sprintf(p.DescribeAs, name)
	}

	return catalog.Record{
		ID:              ID(source, naturalKey(name, rawLink, district, location)),
		Name:            name,
		Type:            typ,
		LocationDetails: location,
		Neighborhood:    n.neighborhoodFor(district, location, p),
		DateInfo:        StandardizeDate(field(raw, "date", "data")),
		TimeInfo:        timeInfo,
		DetailsLink:     link,
		Source:          source,
		Description:     description,
	}, nil
}

// ExtractNeighborhood looks text up in the neighborhood table.
func (n *Normalizer) ExtractNeighborhood(text string) string {
	return n.neighborhoods.lookup(text)
}

func (n *Normalizer) neighborhoodFor(district, location string, p Profile) string {
	if district != "" {
		if hood := n.neighborhoods.lookupDistrict(district); hood != "" {
			return hood
		}
		return district
	}
	return n.neighborhoods.lookup(stripPrefixes(location, p.StripPrefixes))
}

func stripPrefixes(s string, prefixes []string) string {
	folded := catalog.Fold(s)
	for _, prefix := range prefixes {
		fp := catalog.Fold(prefix)
		if fp != "" && strings.HasPrefix(folded, fp+" ") {
			return strings.TrimSpace(folded[len(fp):])
		}
	}
	return s
}

// field returns the first non-placeholder value stored under keys.
func field(raw catalog.RawRecord, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		s := strings.TrimSpace(stringify(v))
		if s == "" || isPlaceholder(catalog.Fold(s)) {
			continue
		}
		return s
	}
	return ""
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, ", ")
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := strings.TrimSpace(stringify(e)); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// isPlaceholder reports whether folded text stands for "no value".
func isPlaceholder(folded string) bool {
	switch folded {
	case "", "-", "n/a", "na", "none", "null", "nao se aplica", "nao informado":
		return true
	}
	return strings.HasPrefix(folded, "n/a ")
}
