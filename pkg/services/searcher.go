package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gridwise-ai/gridwise-engine/pkg/config"
	"github.com/gridwise-ai/gridwise-engine/pkg/models"
	"github.com/gridwise-ai/gridwise-engine/pkg/query"
	"github.com/gridwise-ai/gridwise-engine/pkg/rowstore"
)

// Searcher scans every known sheet and tab for rows matching a normalized
// query. Work fans out per (sheet, tab) with bounded concurrency; a tab
// that fails contributes zero results and a warning instead of aborting
// the scan. On overall timeout, whatever was collected is returned as a
// partial outcome.
type Searcher interface {
	Search(ctx context.Context, q models.NormalizedQuery) (*SearchOutcome, error)
}

// SearchOutcome is a ranked result set plus the scan's side channel:
// warnings from failed tabs and whether the deadline cut the scan short.
type SearchOutcome struct {
	Results  []models.SearchResult
	Warnings []string
	Partial  bool
}

type searcher struct {
	store  rowstore.Store
	cache  StructureCache
	cfg    config.SearchConfig
	logger *zap.Logger
}

var _ Searcher = (*searcher)(nil)

// NewSearcher creates a cross-tab searcher over the given store and cache.
func NewSearcher(store rowstore.Store, cache StructureCache, cfg config.SearchConfig, logger *zap.Logger) Searcher {
	return &searcher{
		store:  store,
		cache:  cache,
		cfg:    cfg,
		logger: logger.Named("searcher"),
	}
}

// searchUnit is one independent (sheet, tab) scan.
type searchUnit struct {
	sheet models.SheetMeta
	tab   string
}

func (s *searcher) Search(ctx context.Context, q models.NormalizedQuery) (*SearchOutcome, error) {
	timeout := time.Duration(s.cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sheets, err := s.store.ListSheets(scanCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sheets: %w", err)
	}

	outcome := &SearchOutcome{}

	var units []searchUnit
	for _, sheet := range sheets {
		tabs, err := s.store.ListTabs(scanCtx, sheet.ID)
		if err != nil {
			outcome.Warnings = append(outcome.Warnings,
				fmt.Sprintf("sheet %q: tabs unavailable: %v", sheet.Name, err))
			continue
		}
		for _, tab := range tabs {
			units = append(units, searchUnit{sheet: sheet, tab: tab})
		}
	}

	patterns := query.ExpandFieldPatterns(q.FieldPatterns)
	lenient := q.Scope == models.ScopeAllRelated

	var mu sync.Mutex
	g, unitCtx := errgroup.WithContext(scanCtx)
	g.SetLimit(s.cfg.MaxConcurrency)

	for _, unit := range units {
		g.Go(func() error {
			results, err := s.searchTab(unitCtx, unit, q, patterns, lenient)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Failure isolation: this tab is skipped, siblings continue.
				outcome.Warnings = append(outcome.Warnings,
					fmt.Sprintf("tab %q of sheet %q skipped: %v", unit.tab, unit.sheet.Name, err))
				if errors.Is(err, context.DeadlineExceeded) {
					outcome.Partial = true
				}
				return nil
			}
			outcome.Results = append(outcome.Results, results...)
			return nil
		})
	}
	_ = g.Wait()

	if scanCtx.Err() != nil {
		outcome.Partial = true
	}

	rankResults(outcome.Results)

	s.logger.Debug("search completed",
		zap.String("query_type", string(q.Type)),
		zap.Int("tabs", len(units)),
		zap.Int("results", len(outcome.Results)),
		zap.Bool("partial", outcome.Partial))

	return outcome, nil
}

func (s *searcher) searchTab(ctx context.Context, unit searchUnit, q models.NormalizedQuery, patterns []string, lenient bool) ([]models.SearchResult, error) {
	structure, err := s.cache.Get(ctx, unit.sheet.ID, unit.tab)
	if err != nil {
		return nil, err
	}
	if len(structure.Fields) == 0 {
		return nil, nil
	}

	rows, err := s.store.GetRows(ctx, unit.sheet.ID, unit.tab)
	if err != nil {
		return nil, err
	}
	grid := gridFromRows(rows)
	analysis := structure.Analysis

	matches := matchFields(structure.Fields, patterns, lenient)
	if len(matches) == 0 {
		return nil, nil
	}

	var results []models.SearchResult
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, s.scanField(unit, analysis, grid, m, q)...)
	}
	return results, nil
}

// fieldMatch pairs a cataloged field with its pattern score.
type fieldMatch struct {
	field models.FieldInfo
	score float64
}

// matchFields scores every field against the query patterns and returns
// the hits sorted by descending score. With no patterns at all, every
// field is a low-score candidate so broad queries still surface data.
func matchFields(fields map[string]models.FieldInfo, patterns []string, lenient bool) []fieldMatch {
	var matches []fieldMatch
	for _, field := range fields {
		score := 0.0
		if len(patterns) == 0 {
			score = scoreFuzzy
		}
		for _, pattern := range patterns {
			if s := scoreFieldMatch(field, pattern, lenient); s > score {
				score = s
			}
		}
		if score > 0 {
			matches = append(matches, fieldMatch{field: field, score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].field.Name < matches[j].field.Name
	})
	return matches
}

// scanField walks the tab's data rows for one matched field, keeping rows
// that satisfy the query criteria. Broad-scope queries additionally pull
// sample rows up to the configured cap so open-ended questions can still
// be answered from representative data.
func (s *searcher) scanField(unit searchUnit, analysis *models.SheetAnalysis, grid [][]string, m fieldMatch, q models.NormalizedQuery) []models.SearchResult {
	region := analysis.PrimaryRegion()
	if region == nil {
		return nil
	}

	sampleBudget := s.cfg.SampleRowLimit
	if sampleBudget <= 0 {
		sampleBudget = 20
	}

	var results []models.SearchResult
	for y := region.StartY; y <= region.EndY && y < len(grid); y++ {
		row := grid[y]
		matched := matchesCriteria(rowText(row), q.Criteria)
		sample := false

		if !matched {
			if q.Scope != models.ScopeAllRelated {
				continue
			}
			// Sample rows need an actual value in the matched field.
			if cellAt(row, m.field.X) == "" || len(results) >= sampleBudget {
				continue
			}
			sample = true
		}

		results = append(results, models.SearchResult{
			SheetID:    unit.sheet.ID.String(),
			SheetName:  unit.sheet.Name,
			TabName:    unit.tab,
			FieldName:  m.field.Name,
			X:          m.field.X,
			Y:          y,
			Value:      cellAt(row, m.field.X),
			RowData:    buildRowData(analysis, row),
			MatchScore: m.score,
			DataType:   m.field.DataType,
			IsSample:   sample,
			RowHasData: rowHasData(row),
		})

		// Narrow queries only need the best row per field.
		if matched && q.Scope == models.ScopeSingleValue {
			break
		}
	}
	return results
}

// rankResults orders results by score, then by recency (higher row index
// first). The remaining keys only break ties so concurrent scans always
// produce the same order.
func rankResults(results []models.SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.MatchScore != b.MatchScore {
			return a.MatchScore > b.MatchScore
		}
		if a.Y != b.Y {
			return a.Y > b.Y
		}
		if a.TabName != b.TabName {
			return a.TabName < b.TabName
		}
		return a.FieldName < b.FieldName
	})
}
