package rowstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridwise-ai/gridwise-engine/pkg/apperrors"
	"github.com/gridwise-ai/gridwise-engine/pkg/models"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sheetID := uuid.New()
	meta := models.SheetMeta{
		ID:       sheetID,
		Name:     "Plant Log",
		Source:   "plant_log.xlsx",
		SyncedAt: time.Now().UTC(),
	}
	require.NoError(t, store.UpsertSheet(ctx, meta))

	grid := [][]string{
		{"DATE", "TANK LEVEL", "STATUS"},
		{"12.12.2025", "55", "active"},
		{"13.12.2025", "60", "inactive"},
	}
	require.NoError(t, store.ReplaceRows(ctx, sheetID, "Daily", grid))

	sheets, err := store.ListSheets(ctx)
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	assert.Equal(t, "Plant Log", sheets[0].Name)

	tabs, err := store.ListTabs(ctx, sheetID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Daily"}, tabs)

	rows, err := store.GetRows(ctx, sheetID, "Daily")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 0, rows[0].Index)
	assert.Equal(t, []string{"12.12.2025", "55", "active"}, rows[1].Cells)
}

func TestMemoryStore_ReplaceRowsOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sheetID := uuid.New()
	require.NoError(t, store.UpsertSheet(ctx, models.SheetMeta{ID: sheetID, Name: "s"}))
	require.NoError(t, store.ReplaceRows(ctx, sheetID, "Tab1", [][]string{{"a"}, {"b"}}))
	require.NoError(t, store.ReplaceRows(ctx, sheetID, "Tab1", [][]string{{"c"}}))

	rows, err := store.GetRows(ctx, sheetID, "Tab1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"c"}, rows[0].Cells)
}

func TestMemoryStore_MissingSheetAndTab(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.ListTabs(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	sheetID := uuid.New()
	require.NoError(t, store.UpsertSheet(ctx, models.SheetMeta{ID: sheetID, Name: "s"}))

	_, err = store.GetRows(ctx, sheetID, "nope")
	assert.ErrorIs(t, err, apperrors.ErrTabUnavailable)
}

func TestMemoryStore_ReturnedRowsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sheetID := uuid.New()
	require.NoError(t, store.UpsertSheet(ctx, models.SheetMeta{ID: sheetID, Name: "s"}))

	grid := [][]string{{"original"}}
	require.NoError(t, store.ReplaceRows(ctx, sheetID, "Tab1", grid))
	grid[0][0] = "mutated"

	rows, err := store.GetRows(ctx, sheetID, "Tab1")
	require.NoError(t, err)
	assert.Equal(t, "original", rows[0].Cells[0])

	rows[0].Cells[0] = "mutated again"
	again, err := store.GetRows(ctx, sheetID, "Tab1")
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Cells[0])
}
