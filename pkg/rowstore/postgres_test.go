package rowstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwise-ai/gridwise-engine/pkg/apperrors"
	"github.com/gridwise-ai/gridwise-engine/pkg/models"
	"github.com/gridwise-ai/gridwise-engine/pkg/rowstore"
	"github.com/gridwise-ai/gridwise-engine/pkg/testhelpers"
)

func TestPostgresStore_RoundTrip(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	ctx := context.Background()
	store := rowstore.NewPostgresStore(db.Pool)

	sheetID := uuid.New()
	meta := models.SheetMeta{
		ID:       sheetID,
		Name:     "Integration Sheet",
		Source:   "integration.xlsx",
		SyncedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, store.UpsertSheet(ctx, meta))

	grid := [][]string{
		{"DATE", "FEED PRESSURE"},
		{"01.02.2025", "4.2"},
		{"02.02.2025", "4.5"},
	}
	require.NoError(t, store.ReplaceRows(ctx, sheetID, "Readings", grid))

	sheets, err := store.ListSheets(ctx)
	require.NoError(t, err)
	var found bool
	for _, s := range sheets {
		if s.ID == sheetID {
			found = true
			assert.Equal(t, "Integration Sheet", s.Name)
		}
	}
	assert.True(t, found, "upserted sheet should be listed")

	tabs, err := store.ListTabs(ctx, sheetID)
	require.NoError(t, err)
	assert.Contains(t, tabs, "Readings")

	rows, err := store.GetRows(ctx, sheetID, "Readings")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"01.02.2025", "4.2"}, rows[1].Cells)
	assert.Equal(t, 2, rows[2].Index)
}

func TestPostgresStore_ReplaceRowsOverwrites(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	ctx := context.Background()
	store := rowstore.NewPostgresStore(db.Pool)

	sheetID := uuid.New()
	require.NoError(t, store.UpsertSheet(ctx, models.SheetMeta{
		ID: sheetID, Name: "replace-test", SyncedAt: time.Now().UTC(),
	}))

	require.NoError(t, store.ReplaceRows(ctx, sheetID, "Tab1", [][]string{{"a"}, {"b"}, {"c"}}))
	require.NoError(t, store.ReplaceRows(ctx, sheetID, "Tab1", [][]string{{"only"}}))

	rows, err := store.GetRows(ctx, sheetID, "Tab1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"only"}, rows[0].Cells)
}

func TestPostgresStore_MissingTab(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	ctx := context.Background()
	store := rowstore.NewPostgresStore(db.Pool)

	sheetID := uuid.New()
	require.NoError(t, store.UpsertSheet(ctx, models.SheetMeta{
		ID: sheetID, Name: "missing-tab-test", SyncedAt: time.Now().UTC(),
	}))

	_, err := store.GetRows(ctx, sheetID, "does-not-exist")
	assert.ErrorIs(t, err, apperrors.ErrTabUnavailable)
}

func TestPostgresStore_UpsertSheetUpdates(t *testing.T) {
	db := testhelpers.GetTestDB(t)
	ctx := context.Background()
	store := rowstore.NewPostgresStore(db.Pool)

	sheetID := uuid.New()
	require.NoError(t, store.UpsertSheet(ctx, models.SheetMeta{
		ID: sheetID, Name: "before", SyncedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.UpsertSheet(ctx, models.SheetMeta{
		ID: sheetID, Name: "after", SyncedAt: time.Now().UTC(),
	}))

	sheets, err := store.ListSheets(ctx)
	require.NoError(t, err)
	for _, s := range sheets {
		if s.ID == sheetID {
			assert.Equal(t, "after", s.Name)
		}
	}
}
