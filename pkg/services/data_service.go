package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gridwise-ai/gridwise-engine/pkg/analyzer"
	"github.com/gridwise-ai/gridwise-engine/pkg/apperrors"
	"github.com/gridwise-ai/gridwise-engine/pkg/models"
	"github.com/gridwise-ai/gridwise-engine/pkg/rowstore"
)

// DataService exposes coordinate-oriented read operations over stored
// sheets: structural analysis, field-value lookup, latest-row resolution,
// free-text search, direct cell reads, and per-tab summaries. All
// operations are read-only.
type DataService interface {
	// AnalyzeSheet returns the structural analysis of one tab, or of every
	// tab when tabName is empty.
	AnalyzeSheet(ctx context.Context, sheetID uuid.UUID, tabName string) (map[string]*models.SheetAnalysis, error)

	// GetFieldValue resolves a field by name/alias/fuzzy match and returns
	// rows matching the criteria. When nothing satisfies the criteria it
	// falls back to unfiltered sample values flagged IsFallback.
	GetFieldValue(ctx context.Context, sheetID uuid.UUID, tabName, fieldQuery string, criteria models.Criteria) (*FieldValueResult, error)

	// GetLatestData resolves the newest row per tab using the tab's
	// latest-data strategy.
	GetLatestData(ctx context.Context, sheetID uuid.UUID, tabName string) (map[string]models.LatestData, error)

	// Search scans cell values, field names, and row context for the text,
	// returning weighted hits up to limit.
	Search(ctx context.Context, sheetID uuid.UUID, tabName, text string, limit int) (*TextSearchResult, error)

	// GetByCoordinates reads one cell with header and region context.
	GetByCoordinates(ctx context.Context, sheetID uuid.UUID, tabName string, x, y int) (*models.CellLookup, error)

	// GetSheetSummary describes every tab of a sheet.
	GetSheetSummary(ctx context.Context, sheetID uuid.UUID) ([]models.TabSummary, error)
}

// FieldValueResult carries field-value lookups; IsFallback marks results
// that are unfiltered samples rather than criteria matches.
type FieldValueResult struct {
	Values      []models.SearchResult `json:"values"`
	ValuesFound int                   `json:"values_found"`
	IsFallback  bool                  `json:"is_fallback"`
}

// TextSearchResult carries free-text search hits. TotalMatches counts hits
// before the limit was applied.
type TextSearchResult struct {
	Results      []models.SearchResult `json:"results"`
	TotalMatches int                   `json:"total_matches"`
}

// Free-text search weights: a hit in the cell value itself dominates, a
// hit in the field name is worth half, surrounding row context a fifth.
const (
	weightValueHit = 1.0
	weightFieldHit = 0.5
	weightRowHit   = 0.2
)

// latestDateFormats are the date layouts tried when resolving the newest
// row by date. Day-first layouts come first to match how the analyzer
// types cells.
var latestDateFormats = []string{
	"02.01.2006", "02.01.06",
	"02/01/2006", "02/01/06",
	"02-01-2006",
	"2006-01-02", "2006/01/02",
}

type dataService struct {
	store  rowstore.Store
	cache  StructureCache
	logger *zap.Logger
}

var _ DataService = (*dataService)(nil)

// NewDataService creates a DataService over the given store and cache.
func NewDataService(store rowstore.Store, cache StructureCache, logger *zap.Logger) DataService {
	return &dataService{
		store:  store,
		cache:  cache,
		logger: logger.Named("data-service"),
	}
}

func (d *dataService) resolveTabs(ctx context.Context, sheetID uuid.UUID, tabName string) ([]string, error) {
	if tabName != "" {
		return []string{tabName}, nil
	}
	tabs, err := d.store.ListTabs(ctx, sheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tabs: %w", err)
	}
	return tabs, nil
}

func (d *dataService) AnalyzeSheet(ctx context.Context, sheetID uuid.UUID, tabName string) (map[string]*models.SheetAnalysis, error) {
	tabs, err := d.resolveTabs(ctx, sheetID, tabName)
	if err != nil {
		return nil, err
	}

	analyses := make(map[string]*models.SheetAnalysis, len(tabs))
	for _, tab := range tabs {
		structure, err := d.cache.Get(ctx, sheetID, tab)
		if err != nil {
			return nil, err
		}
		analyses[tab] = structure.Analysis
	}
	return analyses, nil
}

func (d *dataService) GetFieldValue(ctx context.Context, sheetID uuid.UUID, tabName, fieldQuery string, criteria models.Criteria) (*FieldValueResult, error) {
	tabs, err := d.resolveTabs(ctx, sheetID, tabName)
	if err != nil {
		return nil, err
	}

	result := &FieldValueResult{}
	for _, tab := range tabs {
		structure, err := d.cache.Get(ctx, sheetID, tab)
		if err != nil {
			d.logger.Warn("skipping tab in field lookup",
				zap.String("tab", tab), zap.Error(err))
			continue
		}

		field, score := bestField(structure.Fields, fieldQuery)
		if score <= 0 {
			continue
		}

		rows, err := d.store.GetRows(ctx, sheetID, tab)
		if err != nil {
			d.logger.Warn("skipping tab in field lookup",
				zap.String("tab", tab), zap.Error(err))
			continue
		}
		grid := gridFromRows(rows)
		analysis := structure.Analysis
		region := analysis.PrimaryRegion()
		if region == nil {
			continue
		}

		var matched, samples []models.SearchResult
		for y := region.StartY; y <= region.EndY && y < len(grid); y++ {
			row := grid[y]
			value := cellAt(row, field.X)
			hit := models.SearchResult{
				SheetID:    sheetID.String(),
				TabName:    tab,
				FieldName:  field.Name,
				X:          field.X,
				Y:          y,
				Value:      value,
				RowData:    buildRowData(analysis, row),
				MatchScore: score,
				DataType:   field.DataType,
				RowHasData: rowHasData(row),
			}
			if matchesCriteria(rowText(row), criteria) {
				matched = append(matched, hit)
			} else if value != "" && len(samples) < len(field.SampleValues) {
				hit.IsFallback = true
				samples = append(samples, hit)
			}
		}

		if len(matched) > 0 {
			result.Values = append(result.Values, matched...)
		} else if len(samples) > 0 && len(result.Values) == 0 {
			result.Values = append(result.Values, samples...)
			result.IsFallback = true
		}
	}

	// Criteria matches from any tab trump sample fallbacks from another.
	if result.IsFallback {
		for _, v := range result.Values {
			if !v.IsFallback {
				result.IsFallback = false
				result.Values = filterMatched(result.Values)
				break
			}
		}
	}

	result.ValuesFound = len(result.Values)
	return result, nil
}

func filterMatched(values []models.SearchResult) []models.SearchResult {
	out := values[:0]
	for _, v := range values {
		if !v.IsFallback {
			out = append(out, v)
		}
	}
	return out
}

// bestField returns the highest-scoring field for a free-form field query,
// with fuzzy matching always enabled.
func bestField(fields map[string]models.FieldInfo, fieldQuery string) (models.FieldInfo, float64) {
	var best models.FieldInfo
	bestScore := 0.0
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		field := fields[name]
		if s := scoreFieldMatch(field, fieldQuery, true); s > bestScore {
			best = field
			bestScore = s
		}
	}
	return best, bestScore
}

func (d *dataService) GetLatestData(ctx context.Context, sheetID uuid.UUID, tabName string) (map[string]models.LatestData, error) {
	tabs, err := d.resolveTabs(ctx, sheetID, tabName)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]models.LatestData, len(tabs))
	for _, tab := range tabs {
		structure, err := d.cache.Get(ctx, sheetID, tab)
		if err != nil {
			d.logger.Warn("skipping tab in latest-data lookup",
				zap.String("tab", tab), zap.Error(err))
			continue
		}
		rows, err := d.store.GetRows(ctx, sheetID, tab)
		if err != nil {
			d.logger.Warn("skipping tab in latest-data lookup",
				zap.String("tab", tab), zap.Error(err))
			continue
		}

		entry, ok := resolveLatest(sheetID, tab, structure, gridFromRows(rows))
		if ok {
			latest[tab] = entry
		}
	}
	return latest, nil
}

// resolveLatest picks the newest row of a tab. With a date-based strategy
// the row with the maximum parseable date wins; otherwise, or when no date
// parses, the highest row with any non-empty cell is used.
func resolveLatest(sheetID uuid.UUID, tab string, structure *models.TabStructure, grid [][]string) (models.LatestData, bool) {
	analysis := structure.Analysis
	region := analysis.PrimaryRegion()
	if region == nil {
		return models.LatestData{}, false
	}

	if structure.Hints.LatestDataStrategy == models.LatestStrategyDateBased {
		if field, ok := structure.Fields[structure.Hints.LatestDataField]; ok {
			bestY := -1
			var bestDate time.Time
			for y := region.StartY; y <= region.EndY && y < len(grid); y++ {
				parsed, ok := parseLenientDate(cellAt(grid[y], field.X))
				if ok && (bestY < 0 || parsed.After(bestDate) || parsed.Equal(bestDate)) {
					bestY = y
					bestDate = parsed
				}
			}
			if bestY >= 0 {
				return models.LatestData{
					SheetID:  sheetID.String(),
					TabName:  tab,
					Y:        bestY,
					RowData:  buildRowData(analysis, grid[bestY]),
					Strategy: models.LatestStrategyDateBased,
					Date:     cellAt(grid[bestY], field.X),
				}, true
			}
		}
	}

	for y := region.EndY; y >= region.StartY; y-- {
		if y < len(grid) && rowHasData(grid[y]) {
			return models.LatestData{
				SheetID:  sheetID.String(),
				TabName:  tab,
				Y:        y,
				RowData:  buildRowData(analysis, grid[y]),
				Strategy: models.LatestStrategyLastRow,
			}, true
		}
	}
	return models.LatestData{}, false
}

func parseLenientDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	// Date cells sometimes carry a trailing time component.
	if i := strings.IndexByte(value, ' '); i > 0 {
		value = value[:i]
	}
	for _, layout := range latestDateFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (d *dataService) Search(ctx context.Context, sheetID uuid.UUID, tabName, text string, limit int) (*TextSearchResult, error) {
	tabs, err := d.resolveTabs(ctx, sheetID, tabName)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return &TextSearchResult{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	var hits []models.SearchResult
	for _, tab := range tabs {
		structure, err := d.cache.Get(ctx, sheetID, tab)
		if err != nil {
			d.logger.Warn("skipping tab in text search",
				zap.String("tab", tab), zap.Error(err))
			continue
		}
		rows, err := d.store.GetRows(ctx, sheetID, tab)
		if err != nil {
			d.logger.Warn("skipping tab in text search",
				zap.String("tab", tab), zap.Error(err))
			continue
		}
		hits = append(hits, searchTabText(sheetID, tab, structure, gridFromRows(rows), needle)...)
	}

	rankResults(hits)
	total := len(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return &TextSearchResult{Results: hits, TotalMatches: total}, nil
}

func searchTabText(sheetID uuid.UUID, tab string, structure *models.TabStructure, grid [][]string, needle string) []models.SearchResult {
	analysis := structure.Analysis
	region := analysis.PrimaryRegion()
	if region == nil {
		return nil
	}

	fieldByX := make(map[int]models.FieldInfo, len(structure.Fields))
	for _, f := range structure.Fields {
		fieldByX[f.X] = f
	}

	var hits []models.SearchResult
	for y := region.StartY; y <= region.EndY && y < len(grid); y++ {
		row := grid[y]
		rowContextHit := strings.Contains(strings.ToLower(rowText(row)), needle)

		for x, value := range row {
			field, hasField := fieldByX[x]

			score := 0.0
			if strings.Contains(strings.ToLower(value), needle) {
				score += weightValueHit
			}
			if hasField && strings.Contains(strings.ToLower(field.Name), strings.ReplaceAll(needle, " ", "_")) {
				score += weightFieldHit
			}
			if score > 0 && rowContextHit {
				score += weightRowHit
			}
			if score == 0 {
				continue
			}

			hit := models.SearchResult{
				SheetID:    sheetID.String(),
				TabName:    tab,
				X:          x,
				Y:          y,
				Value:      value,
				RowData:    buildRowData(analysis, row),
				MatchScore: score,
				RowHasData: rowHasData(row),
			}
			if hasField {
				hit.FieldName = field.Name
				hit.DataType = field.DataType
			}
			hits = append(hits, hit)
		}
	}
	return hits
}

func (d *dataService) GetByCoordinates(ctx context.Context, sheetID uuid.UUID, tabName string, x, y int) (*models.CellLookup, error) {
	if tabName == "" {
		tabs, err := d.resolveTabs(ctx, sheetID, "")
		if err != nil {
			return nil, err
		}
		if len(tabs) == 0 {
			return nil, apperrors.ErrTabUnavailable
		}
		tabName = tabs[0]
	}

	rows, err := d.store.GetRows(ctx, sheetID, tabName)
	if err != nil {
		return nil, err
	}
	grid := gridFromRows(rows)

	if x < 0 || y < 0 || y >= len(grid) || x >= len(grid[y]) {
		return nil, fmt.Errorf("cell (%d, %d) in tab %q: %w", x, y, tabName, apperrors.ErrInvalidCoordinates)
	}

	structure, err := d.cache.Get(ctx, sheetID, tabName)
	if err != nil {
		return nil, err
	}
	analysis := structure.Analysis

	value := grid[y][x]
	lookup := &models.CellLookup{
		Cell: models.Cell{
			X:     x,
			Y:     y,
			Value: value,
			Type:  analyzer.DetectCellType(value),
		},
		IsHeader:     analysis.IsHeaderRow(y),
		InDataRegion: analysis.InDataRegion(y),
	}
	for name, field := range structure.Fields {
		if field.X == x {
			lookup.FieldName = name
			break
		}
	}
	return lookup, nil
}

func (d *dataService) GetSheetSummary(ctx context.Context, sheetID uuid.UUID) ([]models.TabSummary, error) {
	tabs, err := d.resolveTabs(ctx, sheetID, "")
	if err != nil {
		return nil, err
	}

	summaries := make([]models.TabSummary, 0, len(tabs))
	for _, tab := range tabs {
		structure, err := d.cache.Get(ctx, sheetID, tab)
		if err != nil {
			d.logger.Warn("skipping tab in summary",
				zap.String("tab", tab), zap.Error(err))
			continue
		}
		analysis := structure.Analysis

		names := make([]string, 0, len(structure.Fields))
		for name := range structure.Fields {
			names = append(names, name)
		}
		sort.Strings(names)

		summaries = append(summaries, models.TabSummary{
			TabName:       tab,
			RowCount:      analysis.RowCount,
			ColumnCount:   analysis.ColumnCount,
			Fields:        names,
			SampleQueries: structure.Hints.CommonQueries,
		})
	}
	return summaries, nil
}
