package catalog

import "strings"

// FilterOptions narrows a snapshot for API consumers. Empty fields match all.
type FilterOptions struct {
	Type         string
	Neighborhood string
	Date         string
	Source       string
}

// Filter returns the records matching opts, preserving snapshot order.
// Neighborhood matches either the extracted neighborhood or the location text.
func Filter(records []Record, opts FilterOptions) []Record {
	wantType := ""
	if opts.Type != "" {
		wantType = NormalizeType(opts.Type)
	}
	wantHood := Fold(opts.Neighborhood)

	out := make([]Record, 0, len(records))
	for _, r := range records {
		if wantType != "" && r.Type != wantType {
			continue
		}
		if opts.Source != "" && !strings.EqualFold(r.Source, opts.Source) {
			continue
		}
		if opts.Date != "" && r.DateInfo != opts.Date {
			continue
		}
		if wantHood != "" &&
			!strings.Contains(Fold(r.Neighborhood), wantHood) &&
			!strings.Contains(Fold(r.LocationDetails), wantHood) {
			continue
		}
		out = append(out, r)
	}
	return out
}
