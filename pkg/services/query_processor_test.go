package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gridwise-ai/gridwise-engine/pkg/llm"
	"github.com/gridwise-ai/gridwise-engine/pkg/models"
	"github.com/gridwise-ai/gridwise-engine/pkg/query"
	"github.com/gridwise-ai/gridwise-engine/pkg/rowstore"
)

// newTestProcessor wires the full pipeline over a memory store with an
// optional mock renderer.
func newTestProcessor(store rowstore.Store, renderer llm.Renderer) QueryProcessor {
	logger := zap.NewNop()
	cache := newTestCache(store)
	return NewQueryProcessor(
		query.New(logger),
		NewSearcher(store, cache, testSearchConfig(), logger),
		NewDataService(store, cache, logger),
		NewResponseFormatter(renderer, testRendererConfig(), logger),
		store,
		logger,
	)
}

func TestAnswerQuestion_FieldValueByDate(t *testing.T) {
	store, _ := seedStore(t, map[string][][]string{"Daily": tankGrid()})
	p := newTestProcessor(store, nil)

	answer, err := p.AnswerQuestion(context.Background(), "what is the tank level on 12.12.2025", uuid.Nil, "")
	require.NoError(t, err)

	assert.Equal(t, models.QueryFieldValueByCriteria, answer.QueryType)
	assert.True(t, answer.DataFound)
	assert.Contains(t, answer.Text, "55")
	require.Len(t, answer.SupportingData, 1)
	assert.Equal(t, "55", answer.SupportingData[0].Value)
}

func TestAnswerQuestion_LatestData(t *testing.T) {
	store, _ := seedStore(t, map[string][][]string{"Daily": tankGrid()})
	p := newTestProcessor(store, nil)

	answer, err := p.AnswerQuestion(context.Background(), "show me the latest data", uuid.Nil, "")
	require.NoError(t, err)

	assert.Equal(t, models.QueryLatestData, answer.QueryType)
	assert.True(t, answer.DataFound)
	assert.Contains(t, answer.Text, "13.12.2025", "the max parseable date wins")
	assert.Contains(t, answer.Text, "60")
}

func TestAnswerQuestion_Coordinate(t *testing.T) {
	store, _ := seedStore(t, map[string][][]string{"Daily": tankGrid()})
	p := newTestProcessor(store, nil)

	answer, err := p.AnswerQuestion(context.Background(), "what is in cell at row 2, column 1", uuid.Nil, "Daily")
	require.NoError(t, err)

	assert.Equal(t, models.QueryCoordinate, answer.QueryType)
	assert.True(t, answer.DataFound)
	assert.Contains(t, answer.Text, "60")
}

func TestAnswerQuestion_CoordinateOutOfRange(t *testing.T) {
	store, _ := seedStore(t, map[string][][]string{"Daily": tankGrid()})
	p := newTestProcessor(store, nil)

	answer, err := p.AnswerQuestion(context.Background(), "what is in cell at row 9, column 9", uuid.Nil, "Daily")
	require.NoError(t, err)

	assert.False(t, answer.DataFound)
	assert.Equal(t, models.FormatMethodDirect, answer.Response.FormattingMethod)
	assert.Empty(t, answer.Response.Warnings)
}

func TestAnswerQuestion_CoordinateStoreFailure(t *testing.T) {
	store, _ := seedStore(t, map[string][][]string{"Daily": tankGrid()})
	wrapped := &failingStore{Store: store, failTab: "Daily"}
	p := newTestProcessor(wrapped, nil)

	answer, err := p.AnswerQuestion(context.Background(), "what is in cell at row 2, column 1", uuid.Nil, "Daily")
	require.NoError(t, err)

	assert.False(t, answer.DataFound)
	require.NotEmpty(t, answer.Response.Warnings, "store failures surface as warnings, not silence")
	assert.Contains(t, answer.Response.Warnings[0], "cell lookup failed")
}

func TestAnswerQuestion_Summary(t *testing.T) {
	store, _ := seedStore(t, map[string][][]string{"Daily": tankGrid()})
	p := newTestProcessor(store, nil)

	answer, err := p.AnswerQuestion(context.Background(), "what fields are available", uuid.Nil, "")
	require.NoError(t, err)

	assert.Equal(t, models.QuerySummary, answer.QueryType)
	assert.True(t, answer.DataFound)
	assert.Contains(t, answer.Text, "Daily")
	assert.Contains(t, answer.Text, "TANK_LEVEL")
}

func TestAnswerQuestion_NoDataIsDirect(t *testing.T) {
	store, _ := seedStore(t, map[string][][]string{"Daily": tankGrid()})
	renderer := llm.NewMockRenderer()
	p := newTestProcessor(store, renderer)

	answer, err := p.AnswerQuestion(context.Background(), "what is the pressure", uuid.Nil, "")
	require.NoError(t, err)

	assert.False(t, answer.DataFound)
	assert.Equal(t, models.FormatMethodDirect, answer.Response.FormattingMethod)
	assert.Contains(t, answer.Text, "No data found")
	assert.Zero(t, renderer.RenderCalls, "no-data answers never invoke the renderer")
}

func TestAnswerQuestion_DateQueryGroupsTabs(t *testing.T) {
	store, _ := seedStore(t, map[string][][]string{
		"Daily":  tankGrid(),
		"Weekly": tankGrid(),
	})
	p := newTestProcessor(store, nil)

	answer, err := p.AnswerQuestion(context.Background(), "show me all data for 12.12.2025", uuid.Nil, "")
	require.NoError(t, err)

	assert.True(t, answer.DataFound)
	assert.Contains(t, answer.Text, "Tab Daily:")
	assert.Contains(t, answer.Text, "Tab Weekly:")
}

func TestAnswerQuestion_EmptyQuestion(t *testing.T) {
	store, _ := seedStore(t, map[string][][]string{"Daily": tankGrid()})
	p := newTestProcessor(store, nil)

	_, err := p.AnswerQuestion(context.Background(), "   ", uuid.Nil, "")
	assert.Error(t, err)
}

func TestAnswerQuestion_ScopedToSheet(t *testing.T) {
	ctx := context.Background()
	store := rowstore.NewMemoryStore()

	sheetA := uuid.New()
	require.NoError(t, store.UpsertSheet(ctx, models.SheetMeta{ID: sheetA, Name: "A"}))
	require.NoError(t, store.ReplaceRows(ctx, sheetA, "Daily", tankGrid()))

	sheetB := uuid.New()
	require.NoError(t, store.UpsertSheet(ctx, models.SheetMeta{ID: sheetB, Name: "B"}))
	require.NoError(t, store.ReplaceRows(ctx, sheetB, "Other", [][]string{
		{"NAME", "STATUS"},
		{"pump a", "active"},
	}))

	p := newTestProcessor(store, nil)

	answer, err := p.AnswerQuestion(ctx, "show me the latest data", sheetB, "")
	require.NoError(t, err)

	assert.True(t, answer.DataFound)
	assert.Contains(t, answer.Text, "pump a")
	assert.NotContains(t, answer.Text, "TANK_LEVEL")
}

func TestAnswerQuestion_SearchScopedToSheet(t *testing.T) {
	ctx := context.Background()
	store := rowstore.NewMemoryStore()

	sheetA := uuid.New()
	require.NoError(t, store.UpsertSheet(ctx, models.SheetMeta{ID: sheetA, Name: "A"}))
	require.NoError(t, store.ReplaceRows(ctx, sheetA, "Daily", tankGrid()))

	sheetB := uuid.New()
	require.NoError(t, store.UpsertSheet(ctx, models.SheetMeta{ID: sheetB, Name: "B"}))
	require.NoError(t, store.ReplaceRows(ctx, sheetB, "Daily", [][]string{
		{"DATE", "TANK LEVEL"},
		{"12.12.2025", "99"},
	}))

	p := newTestProcessor(store, nil)

	answer, err := p.AnswerQuestion(ctx, "what is the tank level on 12.12.2025", sheetB, "")
	require.NoError(t, err)

	assert.True(t, answer.DataFound)
	assert.Contains(t, answer.Text, "99")
	assert.NotContains(t, answer.Text, "55")
}
