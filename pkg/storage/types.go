package storage

import "time"

// Change types recorded in the journal.
const (
	ChangeAdded   = "added"
	ChangeUpdated = "updated"
	ChangeRemoved = "removed"
)

// Entry is the journaled view of one catalog record.
type Entry struct {
	RecordID    string
	Source      string
	Name        string
	Type        string
	Fingerprint string
}

// Change captures a single change event for auditing or printing.
type Change struct {
	OccurredAt time.Time `json:"occurred_at"`

	RecordID   string `json:"record_id"`
	Source     string `json:"source"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	ChangeType string `json:"change_type"` // added | updated | removed
}

// SourceStats counts the journaled records of one source.
type SourceStats struct {
	Source      string `json:"source"`
	RecordCount int    `json:"record_count"`
}
