// Package services contains the question-answering core: a cached
// structural view of every stored tab, a concurrent cross-tab searcher,
// coordinate-level data operations, and the answer formatting pipeline.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gridwise-ai/gridwise-engine/pkg/analyzer"
	"github.com/gridwise-ai/gridwise-engine/pkg/models"
	"github.com/gridwise-ai/gridwise-engine/pkg/rowstore"
)

// StructureCache memoizes per-tab structural analysis keyed by
// (sheet, tab). Entries are rebuilt on miss and dropped on Invalidate;
// concurrent misses for the same key may recompute redundantly, which is
// safe because analysis is deterministic.
type StructureCache interface {
	// Get returns the cached structure for a tab, building it from stored
	// rows on a miss.
	Get(ctx context.Context, sheetID uuid.UUID, tabName string) (*models.TabStructure, error)

	// Invalidate drops the cached structure for one tab.
	Invalidate(sheetID uuid.UUID, tabName string)

	// InvalidateSheet drops every cached tab of a sheet.
	InvalidateSheet(sheetID uuid.UUID)
}

type cacheKey struct {
	sheetID uuid.UUID
	tabName string
}

type structureCache struct {
	store    rowstore.Store
	analyzer analyzer.Analyzer
	logger   *zap.Logger

	mu      sync.RWMutex
	entries map[cacheKey]*models.TabStructure
}

var _ StructureCache = (*structureCache)(nil)

// NewStructureCache creates a cache over the given store and analyzer.
func NewStructureCache(store rowstore.Store, an analyzer.Analyzer, logger *zap.Logger) StructureCache {
	return &structureCache{
		store:    store,
		analyzer: an,
		logger:   logger.Named("structure-cache"),
		entries:  map[cacheKey]*models.TabStructure{},
	}
}

func (c *structureCache) Get(ctx context.Context, sheetID uuid.UUID, tabName string) (*models.TabStructure, error) {
	key := cacheKey{sheetID: sheetID, tabName: tabName}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return entry, nil
	}

	rows, err := c.store.GetRows(ctx, sheetID, tabName)
	if err != nil {
		return nil, fmt.Errorf("failed to load rows for tab %q: %w", tabName, err)
	}

	analysis := c.analyzer.Analyze(gridFromRows(rows), tabName)
	entry = &models.TabStructure{
		SheetID:  sheetID.String(),
		TabName:  tabName,
		Fields:   analysis.Fields,
		Hints:    analysis.Hints,
		Analysis: analysis,
		BuiltAt:  time.Now().UTC(),
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	c.logger.Debug("built tab structure",
		zap.String("sheet_id", sheetID.String()),
		zap.String("tab", tabName),
		zap.Int("fields", len(entry.Fields)))

	return entry, nil
}

func (c *structureCache) Invalidate(sheetID uuid.UUID, tabName string) {
	c.mu.Lock()
	delete(c.entries, cacheKey{sheetID: sheetID, tabName: tabName})
	c.mu.Unlock()
}

func (c *structureCache) InvalidateSheet(sheetID uuid.UUID) {
	c.mu.Lock()
	for key := range c.entries {
		if key.sheetID == sheetID {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

// gridFromRows flattens stored rows into the raw grid the analyzer
// consumes. Stored order is already by row index.
func gridFromRows(rows []models.Row) [][]string {
	grid := make([][]string, len(rows))
	for i, r := range rows {
		grid[i] = r.Cells
	}
	return grid
}
