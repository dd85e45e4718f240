package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjlee/hanmicrawl/article"
	"github.com/sjlee/hanmicrawl/crawl"
)

// TestStore_RoundTrip verifies a recorded run reads back intact.
func TestStore_RoundTrip(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	started := time.Date(2026, 8, 30, 7, 0, 0, 0, time.UTC)
	rec := crawl.RunRecord{
		RunID:      uuid.New(),
		TargetDate: "2026-08-30",
		Shape:      article.ShapeCategory,
		Discovered: 5,
		Collected:  4,
		Delivery:   "email",
		Outcome:    "ok",
		StartedAt:  started,
		FinishedAt: started.Add(40 * time.Second),
	}

	require.NoError(t, store.Record(rec))

	runs, err := store.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	got := runs[0]
	assert.Equal(t, rec.RunID, got.RunID)
	assert.Equal(t, rec.TargetDate, got.TargetDate)
	assert.Equal(t, article.ShapeCategory, got.Shape)
	assert.Equal(t, 5, got.Discovered)
	assert.Equal(t, 4, got.Collected)
	assert.Equal(t, "email", got.Delivery)
	assert.Equal(t, "ok", got.Outcome)
	assert.True(t, rec.StartedAt.Equal(got.StartedAt))
	assert.True(t, rec.FinishedAt.Equal(got.FinishedAt))
}

// TestStore_FailedRunKeepsError verifies the error text survives.
func TestStore_FailedRunKeepsError(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	rec := crawl.RunRecord{
		RunID:      uuid.New(),
		TargetDate: "2026-08-30",
		Shape:      article.ShapeHomepage,
		Delivery:   "none",
		Outcome:    "failed",
		Error:      "fetch listing page: dns failure",
		StartedAt:  time.Now().UTC(),
		FinishedAt: time.Now().UTC(),
	}
	require.NoError(t, store.Record(rec))

	runs, err := store.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "failed", runs[0].Outcome)
	assert.Equal(t, "fetch listing page: dns failure", runs[0].Error)
}

// TestStore_OrdersMostRecentFirst verifies listing order.
func TestStore_OrdersMostRecentFirst(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2026, 8, 30, 7, 0, 0, 0, time.UTC)
	older := crawl.RunRecord{RunID: uuid.New(), TargetDate: "2026-08-29", Shape: article.ShapeCategory,
		Delivery: "file", Outcome: "ok", StartedAt: base, FinishedAt: base}
	newer := crawl.RunRecord{RunID: uuid.New(), TargetDate: "2026-08-30", Shape: article.ShapeCategory,
		Delivery: "file", Outcome: "ok", StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour)}

	require.NoError(t, store.Record(older))
	require.NoError(t, store.Record(newer))

	runs, err := store.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.RunID, runs[0].RunID)
	assert.Equal(t, older.RunID, runs[1].RunID)
}
