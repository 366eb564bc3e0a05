package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aesbenjamin/smart-places-AITinkerers-SP/pkg/catalog"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func rec(id, name string) catalog.Record {
	return catalog.Record{ID: id, Name: name, Source: "fablab", Type: "oficina"}
}

func TestDiff(t *testing.T) {
	a, b, c := rec("a", "A"), rec("b", "B"), rec("c", "C")
	bChanged := b
	bChanged.DateInfo = "2024-03-10"

	changes := Diff(BuildEntries([]catalog.Record{a, b}), BuildEntries([]catalog.Record{bChanged, c}))

	require.Len(t, changes, 3)
	assert.Equal(t, "b", changes[0].RecordID)
	assert.Equal(t, ChangeUpdated, changes[0].ChangeType)
	assert.Equal(t, "c", changes[1].RecordID)
	assert.Equal(t, ChangeAdded, changes[1].ChangeType)
	assert.Equal(t, "a", changes[2].RecordID)
	assert.Equal(t, ChangeRemoved, changes[2].ChangeType)
}

func TestDiffIdenticalSnapshots(t *testing.T) {
	entries := BuildEntries([]catalog.Record{rec("a", "A"), rec("b", "B")})
	assert.Empty(t, Diff(entries, entries))
}

func TestBuildEntriesKeepsFirstOfDuplicateIDs(t *testing.T) {
	entries := BuildEntries([]catalog.Record{rec("a", "first"), rec("a", "second"), rec("", "no id")})
	require.Len(t, entries, 1)
	assert.Equal(t, "first", entries[0].Name)
}

func TestFingerprintTracksVisibleFields(t *testing.T) {
	r := rec("a", "A")
	same := r
	assert.Equal(t, Fingerprint(r), Fingerprint(same))

	moved := r
	moved.Neighborhood = "Pinheiros"
	assert.NotEqual(t, Fingerprint(r), Fingerprint(moved))
}

func TestSyncRecordsFirstRunLogsNothing(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	changes, err := db.SyncRecords(ctx, []catalog.Record{rec("a", "A"), rec("b", "B")})
	require.NoError(t, err)
	assert.Empty(t, changes)

	logged, err := db.ListRecentChanges(ctx, ChangeFilter{})
	require.NoError(t, err)
	assert.Empty(t, logged)

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []SourceStats{{Source: "fablab", RecordCount: 2}}, stats)
}

func TestSyncRecordsLogsChanges(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.SyncRecords(ctx, []catalog.Record{rec("a", "A"), rec("b", "B")})
	require.NoError(t, err)

	b := rec("b", "B")
	b.TimeInfo = "19h"
	museum := catalog.Record{ID: "m", Name: "Museu", Source: "wikipedia", Type: "museu"}

	changes, err := db.SyncRecords(ctx, []catalog.Record{b, museum})
	require.NoError(t, err)
	require.Len(t, changes, 3)

	logged, err := db.ListRecentChanges(ctx, ChangeFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, logged, 3)

	byID := make(map[string]Change)
	for _, c := range logged {
		byID[c.RecordID] = c
		assert.False(t, c.OccurredAt.IsZero())
	}
	assert.Equal(t, ChangeUpdated, byID["b"].ChangeType)
	assert.Equal(t, ChangeAdded, byID["m"].ChangeType)
	assert.Equal(t, ChangeRemoved, byID["a"].ChangeType)

	onlyWiki, err := db.ListRecentChanges(ctx, ChangeFilter{Source: "wikipedia"})
	require.NoError(t, err)
	require.Len(t, onlyWiki, 1)
	assert.Equal(t, "Museu", onlyWiki[0].Name)

	future, err := db.ListRecentChanges(ctx, ChangeFilter{Since: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Empty(t, future)

	again, err := db.SyncRecords(ctx, []catalog.Record{b, museum})
	require.NoError(t, err)
	assert.Empty(t, again, "unchanged snapshot")
}

func TestSyncRecordsRefusesWipe(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var many []catalog.Record
	for i := 0; i < wipeGuard+1; i++ {
		many = append(many, rec(fmt.Sprintf("r%d", i), fmt.Sprintf("R%d", i)))
	}
	_, err := db.SyncRecords(ctx, many)
	require.NoError(t, err)

	_, err = db.SyncRecords(ctx, nil)
	assert.ErrorIs(t, err, ErrAbortingCatalogWipe)

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, wipeGuard+1, stats[0].RecordCount)
}

func TestSyncRecordsLeavesSkippedSourcesAlone(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	museum := catalog.Record{ID: "m1", Name: "MASP", Source: "wikipedia", Type: "museu"}
	_, err := db.SyncRecords(ctx, []catalog.Record{rec("a", "A"), museum})
	require.NoError(t, err)

	changes, err := db.SyncRecords(ctx, []catalog.Record{rec("a", "A"), rec("b", "B")}, "wikipedia")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeAdded, changes[0].ChangeType)
	assert.Equal(t, "b", changes[0].RecordID)

	stats, err := db.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []SourceStats{{Source: "fablab", RecordCount: 2}, {Source: "wikipedia", RecordCount: 1}}, stats)

	changes, err = db.SyncRecords(ctx, []catalog.Record{rec("a", "A"), rec("b", "B")})
	require.NoError(t, err)
	require.Len(t, changes, 1, "once the source is back, its absence is a real removal")
	assert.Equal(t, ChangeRemoved, changes[0].ChangeType)
	assert.Equal(t, "m1", changes[0].RecordID)
}

func TestSyncRecordsWipeGuardIgnoresSkippedSources(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var many []catalog.Record
	for i := 0; i < wipeGuard+1; i++ {
		many = append(many, rec(fmt.Sprintf("r%d", i), fmt.Sprintf("R%d", i)))
	}
	_, err := db.SyncRecords(ctx, many)
	require.NoError(t, err)

	changes, err := db.SyncRecords(ctx, nil, "fablab")
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestListRecentChangesLimit(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := db.SyncRecords(ctx, []catalog.Record{rec("seed", "Seed")})
	require.NoError(t, err)

	var next []catalog.Record
	for i := 0; i < 5; i++ {
		next = append(next, rec(fmt.Sprintf("n%d", i), "N"))
	}
	_, err = db.SyncRecords(ctx, next)
	require.NoError(t, err)

	logged, err := db.ListRecentChanges(ctx, ChangeFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, logged, 2)
}
