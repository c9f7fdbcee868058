package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gridwise-ai/gridwise-engine/pkg/apperrors"
	"github.com/gridwise-ai/gridwise-engine/pkg/models"
	"github.com/gridwise-ai/gridwise-engine/pkg/rowstore"
)

func newTestDataService(store rowstore.Store) DataService {
	return NewDataService(store, newTestCache(store), zap.NewNop())
}

func TestAnalyzeSheet_Idempotent(t *testing.T) {
	ctx := context.Background()
	store, sheetID := seedStore(t, map[string][][]string{"Daily": tankGrid()})
	svc := newTestDataService(store)

	first, err := svc.AnalyzeSheet(ctx, sheetID, "Daily")
	require.NoError(t, err)

	// Fresh service, same rows: the analysis must be structurally identical.
	second, err := newTestDataService(store).AnalyzeSheet(ctx, sheetID, "Daily")
	require.NoError(t, err)

	assert.Equal(t, first["Daily"].Fields, second["Daily"].Fields)
	assert.Equal(t, first["Daily"].Regions, second["Daily"].Regions)
	assert.Equal(t, first["Daily"].Headers, second["Daily"].Headers)
}

func TestGetByCoordinates_RoundTrip(t *testing.T) {
	ctx := context.Background()
	grid := tankGrid()
	store, sheetID := seedStore(t, map[string][][]string{"Daily": grid})
	svc := newTestDataService(store)

	for y, row := range grid {
		for x, want := range row {
			lookup, err := svc.GetByCoordinates(ctx, sheetID, "Daily", x, y)
			require.NoError(t, err)
			assert.Equal(t, want, lookup.Cell.Value, "cell (%d, %d)", x, y)
		}
	}
}

func TestGetByCoordinates_Context(t *testing.T) {
	ctx := context.Background()
	store, sheetID := seedStore(t, map[string][][]string{"Daily": tankGrid()})
	svc := newTestDataService(store)

	header, err := svc.GetByCoordinates(ctx, sheetID, "Daily", 1, 0)
	require.NoError(t, err)
	assert.True(t, header.IsHeader)
	assert.False(t, header.InDataRegion)

	data, err := svc.GetByCoordinates(ctx, sheetID, "Daily", 1, 2)
	require.NoError(t, err)
	assert.False(t, data.IsHeader)
	assert.True(t, data.InDataRegion)
	assert.Equal(t, "TANK_LEVEL", data.FieldName)
	assert.Equal(t, "60", data.Cell.Value)

	_, err = svc.GetByCoordinates(ctx, sheetID, "Daily", 9, 9)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCoordinates)
}

func TestGetLatestData_DateBased(t *testing.T) {
	ctx := context.Background()
	// Rows deliberately out of date order; the max date wins, not the last row.
	grid := [][]string{
		{"DATE", "TANK LEVEL"},
		{"13.12.2025", "60"},
		{"12.12.2025", "55"},
	}
	store, sheetID := seedStore(t, map[string][][]string{"Daily": grid})
	svc := newTestDataService(store)

	latest, err := svc.GetLatestData(ctx, sheetID, "Daily")
	require.NoError(t, err)
	entry, ok := latest["Daily"]
	require.True(t, ok)

	assert.Equal(t, models.LatestStrategyDateBased, entry.Strategy)
	assert.Equal(t, "13.12.2025", entry.Date)
	assert.Equal(t, "60", entry.RowData["TANK_LEVEL"])
	assert.Equal(t, 1, entry.Y)
}

func TestGetLatestData_LastRowFallback(t *testing.T) {
	ctx := context.Background()
	grid := [][]string{
		{"NAME", "STATUS"},
		{"pump a", "active"},
		{"pump b", "inactive"},
		{"", ""},
	}
	store, sheetID := seedStore(t, map[string][][]string{"Daily": grid})
	svc := newTestDataService(store)

	latest, err := svc.GetLatestData(ctx, sheetID, "Daily")
	require.NoError(t, err)
	entry, ok := latest["Daily"]
	require.True(t, ok)

	assert.Equal(t, models.LatestStrategyLastRow, entry.Strategy)
	assert.Equal(t, 2, entry.Y, "highest row with any non-empty cell")
	assert.Equal(t, "pump b", entry.RowData["NAME"])
}

func TestGetFieldValue_CriteriaMatch(t *testing.T) {
	ctx := context.Background()
	store, sheetID := seedStore(t, map[string][][]string{"Daily": tankGrid()})
	svc := newTestDataService(store)

	result, err := svc.GetFieldValue(ctx, sheetID, "", "tank level",
		models.Criteria{Dates: []string{"12.12.2025"}})
	require.NoError(t, err)

	assert.False(t, result.IsFallback)
	require.Equal(t, 1, result.ValuesFound)
	assert.Equal(t, "55", result.Values[0].Value)
}

func TestGetFieldValue_FallbackSamples(t *testing.T) {
	ctx := context.Background()
	store, sheetID := seedStore(t, map[string][][]string{"Daily": tankGrid()})
	svc := newTestDataService(store)

	result, err := svc.GetFieldValue(ctx, sheetID, "", "tank level",
		models.Criteria{Dates: []string{"01.01.1999"}})
	require.NoError(t, err)

	assert.True(t, result.IsFallback, "unmatched criteria degrade to samples")
	require.NotEmpty(t, result.Values)
	for _, v := range result.Values {
		assert.True(t, v.IsFallback)
		assert.Equal(t, "TANK_LEVEL", v.FieldName)
		assert.NotEmpty(t, v.Value)
	}
}

func TestGetFieldValue_UnknownField(t *testing.T) {
	ctx := context.Background()
	store, sheetID := seedStore(t, map[string][][]string{"Daily": tankGrid()})
	svc := newTestDataService(store)

	result, err := svc.GetFieldValue(ctx, sheetID, "", "zzzz", models.Criteria{})
	require.NoError(t, err)
	assert.Zero(t, result.ValuesFound)
}

func TestSearch_TextWeights(t *testing.T) {
	ctx := context.Background()
	grid := [][]string{
		{"DATE", "TANK LEVEL", "REMARKS"},
		{"12.12.2025", "55", "tank refilled"},
		{"13.12.2025", "60", "normal"},
	}
	store, sheetID := seedStore(t, map[string][][]string{"Daily": grid})
	svc := newTestDataService(store)

	result, err := svc.Search(ctx, sheetID, "", "tank", 10)
	require.NoError(t, err)
	require.NotEmpty(t, result.Results)

	// The cell containing "tank" in both value and field context ranks
	// above a value-only or field-name-only hit.
	top := result.Results[0]
	assert.Equal(t, "tank refilled", top.Value)
	assert.Greater(t, top.MatchScore, weightValueHit)
}

func TestSearch_Limit(t *testing.T) {
	ctx := context.Background()
	grid := [][]string{
		{"REMARKS"},
		{"tank a"},
		{"tank b"},
		{"tank c"},
	}
	store, sheetID := seedStore(t, map[string][][]string{"Daily": grid})
	svc := newTestDataService(store)

	result, err := svc.Search(ctx, sheetID, "", "tank", 2)
	require.NoError(t, err)
	assert.Len(t, result.Results, 2)
	assert.Equal(t, 3, result.TotalMatches)
}

func TestGetSheetSummary(t *testing.T) {
	ctx := context.Background()
	store, sheetID := seedStore(t, map[string][][]string{"Daily": tankGrid()})
	svc := newTestDataService(store)

	summaries, err := svc.GetSheetSummary(ctx, sheetID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	s := summaries[0]
	assert.Equal(t, "Daily", s.TabName)
	assert.Equal(t, 3, s.RowCount)
	assert.Equal(t, 3, s.ColumnCount)
	assert.Equal(t, []string{"DATE", "STATUS", "TANK_LEVEL"}, s.Fields)
	assert.NotEmpty(t, s.SampleQueries)
}
