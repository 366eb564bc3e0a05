// Package storage keeps an sqlite journal of catalog changes. It remembers
// the last journaled snapshot only to compute the next diff; the catalog
// itself is never served from here.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/catalog"
)

// wipeGuard is the number of journaled records above which an empty
// snapshot is treated as a collection glitch rather than a real wipe.
const wipeGuard = 10

// ErrAbortingCatalogWipe is returned when an empty snapshot would remove a
// large journaled catalog.
var ErrAbortingCatalogWipe = errors.New("aborting: empty snapshot would wipe the journaled catalog")

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS catalog_records (
  record_id     TEXT PRIMARY KEY,
  source        TEXT NOT NULL,
  name          TEXT NOT NULL,
  type          TEXT NOT NULL DEFAULT '',
  fingerprint   TEXT NOT NULL,
  first_seen_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  last_seen_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_records_source ON catalog_records(source);
CREATE TABLE IF NOT EXISTS catalog_changes (
  id          INTEGER PRIMARY KEY,
  occurred_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  record_id   TEXT NOT NULL,
  source      TEXT NOT NULL,
  name        TEXT NOT NULL,
  type        TEXT NOT NULL DEFAULT '',
  change_type TEXT NOT NULL CHECK (change_type IN ('added','updated','removed'))
);
CREATE INDEX IF NOT EXISTS idx_changes_time ON catalog_changes(occurred_at);
CREATE INDEX IF NOT EXISTS idx_changes_source ON catalog_changes(source, occurred_at);
    `); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// SyncRecords replaces the journaled snapshot with records and logs the
// difference. Rows of skipSources are left as they are, so a source that
// failed this round is not reported as removed. The very first sync only
// populates the snapshot and reports no changes.
func (d *DB) SyncRecords(ctx context.Context, records []catalog.Record, skipSources ...string) (changes []Change, err error) {
	now := time.Now().UTC()
	current := BuildEntries(records)

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	journaled, err := loadEntries(ctx, tx)
	if err != nil {
		return nil, err
	}
	firstRun := len(journaled) == 0
	previous := withoutSources(journaled, skipSources)
	if len(current) == 0 && len(previous) > wipeGuard {
		err = fmt.Errorf("%w (%d records journaled)", ErrAbortingCatalogWipe, len(previous))
		return nil, err
	}

	fingerprints := make(map[string]string, len(current))
	for _, e := range current {
		fingerprints[e.RecordID] = e.Fingerprint
	}

	diff := Diff(previous, current)
	for _, c := range diff {
		switch c.ChangeType {
		case ChangeAdded, ChangeUpdated:
			_, err = tx.ExecContext(ctx, `INSERT INTO catalog_records(record_id, source, name, type, fingerprint) VALUES(?,?,?,?,?)
ON CONFLICT(record_id) DO UPDATE SET source = excluded.source, name = excluded.name, type = excluded.type, fingerprint = excluded.fingerprint, last_seen_at = CURRENT_TIMESTAMP`,
				c.RecordID, c.Source, c.Name, c.Type, fingerprints[c.RecordID])
		case ChangeRemoved:
			_, err = tx.ExecContext(ctx, `DELETE FROM catalog_records WHERE record_id = ?`, c.RecordID)
		}
		if err != nil {
			return nil, err
		}
	}

	touch := `UPDATE catalog_records SET last_seen_at = CURRENT_TIMESTAMP`
	args := make([]any, 0, len(skipSources))
	if len(skipSources) > 0 {
		touch += ` WHERE source NOT IN (?` + strings.Repeat(",?", len(skipSources)-1) + `)`
		for _, src := range skipSources {
			args = append(args, src)
		}
	}
	if _, err = tx.ExecContext(ctx, touch, args...); err != nil {
		return nil, err
	}

	if !firstRun {
		for i := range diff {
			diff[i].OccurredAt = now
			if _, err = tx.ExecContext(ctx, `INSERT INTO catalog_changes(occurred_at, record_id, source, name, type, change_type) VALUES(?,?,?,?,?,?)`,
				now.Format(sqliteTimeLayout), diff[i].RecordID, diff[i].Source, diff[i].Name, diff[i].Type, diff[i].ChangeType); err != nil {
				return nil, err
			}
		}
		changes = diff
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return changes, nil
}

const sqliteTimeLayout = "2006-01-02 15:04:05"

func withoutSources(entries []Entry, sources []string) []Entry {
	if len(sources) == 0 {
		return entries
	}
	skip := make(map[string]bool, len(sources))
	for _, src := range sources {
		skip[src] = true
	}
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !skip[e.Source] {
			out = append(out, e)
		}
	}
	return out
}

func loadEntries(ctx context.Context, tx *sql.Tx) ([]Entry, error) {
	rows, err := tx.QueryContext(ctx, "SELECT record_id, source, name, type, fingerprint FROM catalog_records ORDER BY record_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RecordID, &e.Source, &e.Name, &e.Type, &e.Fingerprint); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ChangeFilter controls selection when listing changes.
type ChangeFilter struct {
	Limit  int
	Source string
	Since  time.Time
}

// ListRecentChanges returns the most recent changes, newest first.
func (d *DB) ListRecentChanges(ctx context.Context, f ChangeFilter) ([]Change, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	where := "WHERE 1=1"
	args := []interface{}{}
	if f.Source != "" && f.Source != "all" {
		where += " AND source = ?"
		args = append(args, f.Source)
	}
	if !f.Since.IsZero() {
		where += " AND occurred_at >= ?"
		args = append(args, f.Since.UTC().Format(sqliteTimeLayout))
	}
	args = append(args, f.Limit)

	q := "SELECT occurred_at, record_id, source, name, type, change_type FROM catalog_changes " + where + " ORDER BY occurred_at DESC, id DESC LIMIT ?"
	rows, err := d.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var c Change
		var occurredAtStr string
		if err := rows.Scan(&occurredAtStr, &c.RecordID, &c.Source, &c.Name, &c.Type, &c.ChangeType); err != nil {
			return nil, err
		}
		c.OccurredAt = parseTimestamp(occurredAtStr)
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}

// parseTimestamp accepts the CURRENT_TIMESTAMP layout and RFC3339.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(sqliteTimeLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

// GetStats counts journaled records per source.
func (d *DB) GetStats(ctx context.Context) ([]SourceStats, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT source, COUNT(*)
		FROM catalog_records
		GROUP BY source
		ORDER BY source;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []SourceStats
	for rows.Next() {
		var s SourceStats
		if err := rows.Scan(&s.Source, &s.RecordCount); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}
