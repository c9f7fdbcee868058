package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/gridwise-ai/gridwise-engine/pkg/analyzer"
	"github.com/gridwise-ai/gridwise-engine/pkg/rowstore"
	"github.com/gridwise-ai/gridwise-engine/pkg/services"
)

// writeTestWorkbook creates a two-tab .xlsx and returns its path.
func writeTestWorkbook(t *testing.T) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	f.SetCellValue("Sheet1", "A1", "DATE")
	f.SetCellValue("Sheet1", "B1", "TANK LEVEL")
	f.SetCellValue("Sheet1", "A2", "12.12.2025")
	f.SetCellValue("Sheet1", "B2", 55)
	f.SetCellValue("Sheet1", "A3", "13.12.2025")
	f.SetCellValue("Sheet1", "B3", 60)

	_, err := f.NewSheet("Weekly")
	require.NoError(t, err)
	f.SetCellValue("Weekly", "A1", "WEEK")
	f.SetCellValue("Weekly", "B1", "TOTAL")
	f.SetCellValue("Weekly", "A2", "50")
	f.SetCellValue("Weekly", "B2", "115")

	path := filepath.Join(t.TempDir(), "plant.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadWorkbook(t *testing.T) {
	path := writeTestWorkbook(t)

	wb, err := LoadWorkbook(path)
	require.NoError(t, err)

	assert.Equal(t, "plant", wb.Name)
	assert.Equal(t, []string{"Sheet1", "Weekly"}, wb.TabOrder)
	require.Len(t, wb.Tabs["Sheet1"], 3)
	assert.Equal(t, []string{"DATE", "TANK LEVEL"}, wb.Tabs["Sheet1"][0])
	assert.Equal(t, []string{"12.12.2025", "55"}, wb.Tabs["Sheet1"][1])
	assert.Equal(t, []string{"WEEK", "TOTAL"}, wb.Tabs["Weekly"][0])
}

func TestLoadWorkbook_MissingFile(t *testing.T) {
	_, err := LoadWorkbook(filepath.Join(t.TempDir(), "nope.xlsx"))
	assert.Error(t, err)
}

func TestIngestFile(t *testing.T) {
	path := writeTestWorkbook(t)
	store := rowstore.NewMemoryStore()
	ing := NewIngester(store, nil, zap.NewNop())

	sheetID, err := ing.IngestFile(context.Background(), path)
	require.NoError(t, err)

	sheets, err := store.ListSheets(context.Background())
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	assert.Equal(t, sheetID, sheets[0].ID)
	assert.Equal(t, "plant", sheets[0].Name)
	assert.Equal(t, path, sheets[0].Source)

	tabs, err := store.ListTabs(context.Background(), sheetID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Sheet1", "Weekly"}, tabs)

	rows, err := store.GetRows(context.Background(), sheetID, "Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"13.12.2025", "60"}, rows[2].Cells)
}

func TestIngestInvalidatesCache(t *testing.T) {
	path := writeTestWorkbook(t)
	store := rowstore.NewMemoryStore()
	cache := services.NewStructureCache(store, analyzer.New(analyzer.DefaultConfig(), zap.NewNop()), zap.NewNop())
	ing := NewIngester(store, cache, zap.NewNop())

	ctx := context.Background()
	sheetID, err := ing.IngestFile(ctx, path)
	require.NoError(t, err)

	first, err := cache.Get(ctx, sheetID, "Sheet1")
	require.NoError(t, err)
	assert.Contains(t, first.Fields, "TANK_LEVEL")

	// Re-ingesting the same workbook under the same sheet replaces the
	// rows and must drop the cached structure.
	wb, err := LoadWorkbook(path)
	require.NoError(t, err)
	wb.Tabs["Sheet1"] = [][]string{
		{"DATE", "PRESSURE"},
		{"14.12.2025", "2.4"},
	}
	require.NoError(t, store.ReplaceRows(ctx, sheetID, "Sheet1", wb.Tabs["Sheet1"]))
	cache.Invalidate(sheetID, "Sheet1")

	rebuilt, err := cache.Get(ctx, sheetID, "Sheet1")
	require.NoError(t, err)
	assert.Contains(t, rebuilt.Fields, "PRESSURE")
	assert.NotContains(t, rebuilt.Fields, "TANK_LEVEL")
}
