package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gridwise-ai/gridwise-engine/pkg/config"
	"github.com/gridwise-ai/gridwise-engine/pkg/models"
	"github.com/gridwise-ai/gridwise-engine/pkg/query"
	"github.com/gridwise-ai/gridwise-engine/pkg/rowstore"
)

func testSearchConfig() config.SearchConfig {
	return config.SearchConfig{TimeoutSeconds: 5, MaxConcurrency: 4, SampleRowLimit: 20}
}

func newTestSearcher(store rowstore.Store) Searcher {
	return NewSearcher(store, newTestCache(store), testSearchConfig(), zap.NewNop())
}

func TestSearch_FieldValueByDate(t *testing.T) {
	store, _ := seedStore(t, map[string][][]string{"Daily": tankGrid()})
	s := newTestSearcher(store)

	outcome, err := s.Search(context.Background(), models.NormalizedQuery{
		Type:          models.QueryFieldValueByCriteria,
		Scope:         models.ScopeSingleValue,
		FieldPatterns: []string{"tank level"},
		Criteria:      models.Criteria{Dates: []string{"12.12.2025"}},
	})
	require.NoError(t, err)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "55", outcome.Results[0].Value)
	assert.Equal(t, "TANK_LEVEL", outcome.Results[0].FieldName)
	assert.Equal(t, scoreExact, outcome.Results[0].MatchScore)
	assert.Equal(t, "12.12.2025", outcome.Results[0].RowData["DATE"])
}

func TestSearch_AmbiguousDateMatchesBothOrders(t *testing.T) {
	grid := [][]string{
		{"DATE", "TANK LEVEL"},
		{"05.06.2025", "55"},
		{"06.05.2025", "60"},
		{"07.07.2025", "70"},
	}
	store, _ := seedStore(t, map[string][][]string{"Daily": grid})
	s := newTestSearcher(store)

	outcome, err := s.Search(context.Background(), models.NormalizedQuery{
		Type:          models.QueryDataByDate,
		Scope:         models.ScopeMultipleValues,
		FieldPatterns: []string{"tank level"},
		Criteria:      models.Criteria{Dates: []string{"05.06.25"}},
	})
	require.NoError(t, err)

	var values []string
	for _, r := range outcome.Results {
		values = append(values, r.Value)
	}
	assert.ElementsMatch(t, []string{"55", "60"}, values,
		"day/month order is ambiguous, both readings must match")
}

func TestSearch_ExactNameOutscoresPartial(t *testing.T) {
	grid := [][]string{
		{"LEVEL", "TANK LEVEL ALARM"},
		{"55", "off"},
	}
	store, _ := seedStore(t, map[string][][]string{"Daily": grid})
	s := newTestSearcher(store)

	outcome, err := s.Search(context.Background(), models.NormalizedQuery{
		Type:          models.QueryFieldSearch,
		Scope:         models.ScopeMultipleValues,
		FieldPatterns: []string{"level"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, outcome.Results)

	byField := map[string]float64{}
	for _, r := range outcome.Results {
		byField[r.FieldName] = r.MatchScore
	}
	require.Contains(t, byField, "LEVEL")
	require.Contains(t, byField, "TANK_LEVEL_ALARM")
	assert.Greater(t, byField["LEVEL"], byField["TANK_LEVEL_ALARM"])
}

func TestSearch_RanksByScoreThenRecency(t *testing.T) {
	grid := [][]string{
		{"DATE", "TANK LEVEL"},
		{"12.12.2025", "55"},
		{"13.12.2025", "60"},
		{"14.12.2025", "65"},
	}
	store, _ := seedStore(t, map[string][][]string{"Daily": grid})
	s := newTestSearcher(store)

	outcome, err := s.Search(context.Background(), models.NormalizedQuery{
		Type:          models.QueryFieldSearch,
		Scope:         models.ScopeMultipleValues,
		FieldPatterns: []string{"tank level"},
	})
	require.NoError(t, err)
	require.Len(t, outcome.Results, 3)
	assert.Equal(t, "65", outcome.Results[0].Value, "newer rows rank first at equal score")
	assert.Equal(t, "60", outcome.Results[1].Value)
	assert.Equal(t, "55", outcome.Results[2].Value)
}

func TestSearch_AllRelatedPullsSamples(t *testing.T) {
	grid := [][]string{
		{"DATE", "TANK LEVEL"},
		{"12.12.2025", "55"},
		{"13.12.2025", "60"},
	}
	store, _ := seedStore(t, map[string][][]string{"Daily": grid})
	s := newTestSearcher(store)

	// Criteria that match nothing still yield sample rows in broad scope.
	outcome, err := s.Search(context.Background(), models.NormalizedQuery{
		Type:          models.QueryGeneral,
		Scope:         models.ScopeAllRelated,
		FieldPatterns: []string{"tank level"},
		Criteria:      models.Criteria{Dates: []string{"01.01.1999"}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, outcome.Results)
	for _, r := range outcome.Results {
		assert.True(t, r.IsSample)
	}
}

func TestSearch_HeaderEchoDegradesRowData(t *testing.T) {
	grid := [][]string{
		{"DATE", "TANK LEVEL"},
		{"12.12.2025", "55"},
		{"DATE", "TANK LEVEL"},
		{"13.12.2025", "60"},
	}
	store, _ := seedStore(t, map[string][][]string{"Daily": grid})
	s := newTestSearcher(store)

	outcome, err := s.Search(context.Background(), models.NormalizedQuery{
		Type:          models.QueryFieldSearch,
		Scope:         models.ScopeMultipleValues,
		FieldPatterns: []string{"tank level"},
	})
	require.NoError(t, err)

	for _, r := range outcome.Results {
		if r.Y == 2 {
			assert.Contains(t, r.RowData, "column_0",
				"a repeated header row must not be presented as field data")
			assert.NotContains(t, r.RowData, "DATE")
		}
	}
}

func TestSearch_RelativeDateRange(t *testing.T) {
	grid := [][]string{
		{"DATE", "TANK LEVEL"},
		{"01.11.2025", "41"},
		{"13.12.2025", "58"},
	}
	store, _ := seedStore(t, map[string][][]string{"Daily": grid})
	s := newTestSearcher(store)

	// The range expands into one date per covered day; a row dated on any
	// of them must pass the gate.
	clock := func() time.Time { return time.Date(2025, 12, 15, 12, 0, 0, 0, time.UTC) }
	q := query.New(zap.NewNop(), query.WithClock(clock)).
		Normalize("show me tank level data from the last week")
	require.NotEmpty(t, q.Criteria.Dates)

	outcome, err := s.Search(context.Background(), q)
	require.NoError(t, err)

	require.NotEmpty(t, outcome.Results, "a row dated inside the range must match")
	for _, r := range outcome.Results {
		assert.Equal(t, "13.12.2025", r.RowData["DATE"])
	}
}

// blockingStore stalls sheet listing until the caller's context expires.
type blockingStore struct {
	rowstore.Store
}

func (b *blockingStore) ListSheets(ctx context.Context) ([]models.SheetMeta, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestSearch_TimeoutBoundsListing(t *testing.T) {
	store, _ := seedStore(t, map[string][][]string{"Daily": tankGrid()})
	s := NewSearcher(&blockingStore{Store: store}, newTestCache(store),
		config.SearchConfig{TimeoutSeconds: 1, MaxConcurrency: 2, SampleRowLimit: 20}, zap.NewNop())

	start := time.Now()
	_, err := s.Search(context.Background(), models.NormalizedQuery{
		Type:          models.QueryFieldSearch,
		Scope:         models.ScopeMultipleValues,
		FieldPatterns: []string{"tank level"},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second, "listing must respect the search deadline")
}

// failingStore wraps a Store and fails row reads for one tab.
type failingStore struct {
	rowstore.Store
	failTab string
}

func (f *failingStore) GetRows(ctx context.Context, sheetID uuid.UUID, tabName string) ([]models.Row, error) {
	if tabName == f.failTab {
		return nil, errors.New("simulated tab failure")
	}
	return f.Store.GetRows(ctx, sheetID, tabName)
}

func TestSearch_TabFailureIsIsolated(t *testing.T) {
	store, _ := seedStore(t, map[string][][]string{
		"Good": tankGrid(),
		"Bad":  tankGrid(),
	})
	wrapped := &failingStore{Store: store, failTab: "Bad"}
	s := newTestSearcher(wrapped)

	outcome, err := s.Search(context.Background(), models.NormalizedQuery{
		Type:          models.QueryFieldSearch,
		Scope:         models.ScopeMultipleValues,
		FieldPatterns: []string{"tank level"},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, outcome.Results, "healthy tabs must still contribute results")
	for _, r := range outcome.Results {
		assert.Equal(t, "Good", r.TabName)
	}
	require.NotEmpty(t, outcome.Warnings)
	assert.Contains(t, outcome.Warnings[0], "Bad")
}

func TestSearch_NoMatchingField(t *testing.T) {
	store, _ := seedStore(t, map[string][][]string{"Daily": tankGrid()})
	s := newTestSearcher(store)

	outcome, err := s.Search(context.Background(), models.NormalizedQuery{
		Type:          models.QueryFieldSearch,
		Scope:         models.ScopeMultipleValues,
		FieldPatterns: []string{"pressure"},
	})
	require.NoError(t, err)
	assert.Empty(t, outcome.Results)
	assert.Empty(t, outcome.Warnings)
}

func TestDateVariants(t *testing.T) {
	variants := dateVariants("5/6/25")

	for _, want := range []string{"05.06.2025", "06.05.2025", "5/6/25", "05-06-25", "05.06", "06.05"} {
		assert.Contains(t, variants, want)
	}
}

func TestMatchesCriteria(t *testing.T) {
	tests := []struct {
		name     string
		row      string
		criteria models.Criteria
		want     bool
	}{
		{"no criteria passes", "12.12.2025 55 active", models.Criteria{}, true},
		{"date present", "12.12.2025 55", models.Criteria{Dates: []string{"12.12.2025"}}, true},
		{"date absent", "13.12.2025 60", models.Criteria{Dates: []string{"12.12.2025"}}, false},
		{"date variant", "2025 log 12/12/25 reading", models.Criteria{Dates: []string{"12.12.2025"}}, true},
		{"any target date suffices", "12.12.2025", models.Criteria{Dates: []string{"12.12.2025", "13.12.2025"}}, true},
		{"date inside range", "15.12.2025 55 active", models.Criteria{Dates: []string{"14.12.2025", "15.12.2025", "16.12.2025"}}, true},
		{"date outside range", "01.11.2025 55", models.Criteria{Dates: []string{"14.12.2025", "15.12.2025", "16.12.2025"}}, false},
		{"any number suffices", "55 units", models.Criteria{Numbers: []string{"99", "55"}}, true},
		{"no number present", "60 units", models.Criteria{Numbers: []string{"99"}}, false},
		{"condition word", "pump active", models.Criteria{Conditions: []string{"active"}}, true},
		{"date gates conditions", "13.12.2025 active", models.Criteria{Dates: []string{"12.12.2025"}, Conditions: []string{"active"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesCriteria(tt.row, tt.criteria))
		})
	}
}

func TestScoreFieldMatch(t *testing.T) {
	field := models.FieldInfo{
		Name:    "TANK_LEVEL",
		Aliases: []string{"tank level", "tank lvl", "tank levels"},
	}

	assert.Equal(t, scoreExact, scoreFieldMatch(field, "tank level", false))
	assert.Equal(t, scoreExact, scoreFieldMatch(field, "TANK_LEVEL", false))
	assert.Equal(t, scoreSubstring, scoreFieldMatch(field, "tank", false))
	assert.Equal(t, scoreWord, scoreFieldMatch(field, "water level", false))
	assert.Equal(t, 0.0, scoreFieldMatch(field, "pressure", false))
	assert.Equal(t, 0.0, scoreFieldMatch(field, "tank-level", false), "fuzzy tier needs lenient mode")
	assert.Equal(t, scoreFuzzy, scoreFieldMatch(field, "tank-leveb", true))
}
