package storage

import (
	"encoding/hex"
	"strings"

	"lukechampine.com/blake3"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/catalog"
)

// Fingerprint hashes every user-visible field of r, so two records with the
// same ID and fingerprint are identical for journaling purposes.
func Fingerprint(r catalog.Record) string {
	fields := []string{
		r.Name, r.Type, r.LocationDetails, r.Neighborhood, r.DateInfo,
		r.TimeInfo, r.DetailsLink, r.Source, r.Description,
	}
	sum := blake3.Sum256([]byte(strings.Join(fields, "\x00")))
	return hex.EncodeToString(sum[:16])
}

// BuildEntries converts records into journal entries, keeping the first
// record of any repeated ID.
func BuildEntries(records []catalog.Record) []Entry {
	seen := make(map[string]bool, len(records))
	out := make([]Entry, 0, len(records))
	for _, r := range records {
		if r.ID == "" || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, Entry{
			RecordID:    r.ID,
			Source:      r.Source,
			Name:        r.Name,
			Type:        r.Type,
			Fingerprint: Fingerprint(r),
		})
	}
	return out
}

// Diff compares two journal snapshots by record ID. Added and updated
// changes follow the order of current; removals follow previous.
func Diff(previous, current []Entry) []Change {
	prev := make(map[string]Entry, len(previous))
	for _, e := range previous {
		prev[e.RecordID] = e
	}
	cur := make(map[string]bool, len(current))

	var changes []Change
	for _, e := range current {
		cur[e.RecordID] = true
		old, existed := prev[e.RecordID]
		switch {
		case !existed:
			changes = append(changes, changeFor(e, ChangeAdded))
		case old.Fingerprint != e.Fingerprint:
			changes = append(changes, changeFor(e, ChangeUpdated))
		}
	}
	for _, e := range previous {
		if !cur[e.RecordID] {
			changes = append(changes, changeFor(e, ChangeRemoved))
		}
	}
	return changes
}

func changeFor(e Entry, changeType string) Change {
	return Change{
		RecordID:   e.RecordID,
		Source:     e.Source,
		Name:       e.Name,
		Type:       e.Type,
		ChangeType: changeType,
	}
}
