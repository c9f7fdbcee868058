package rowstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gridwise-ai/gridwise-engine/pkg/apperrors"
	"github.com/gridwise-ai/gridwise-engine/pkg/models"
)

// MemoryStore is an in-process Store and Writer, used by the CLI for local
// workbooks and by tests.
type MemoryStore struct {
	mu     sync.RWMutex
	sheets map[uuid.UUID]models.SheetMeta
	tabs   map[uuid.UUID]map[string][]models.Row
}

var (
	_ Store  = (*MemoryStore)(nil)
	_ Writer = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sheets: map[uuid.UUID]models.SheetMeta{},
		tabs:   map[uuid.UUID]map[string][]models.Row{},
	}
}

func (s *MemoryStore) ListSheets(ctx context.Context) ([]models.SheetMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sheets := make([]models.SheetMeta, 0, len(s.sheets))
	for _, meta := range s.sheets {
		sheets = append(sheets, meta)
	}
	sort.Slice(sheets, func(i, j int) bool { return sheets[i].Name < sheets[j].Name })
	return sheets, nil
}

func (s *MemoryStore) ListTabs(ctx context.Context, sheetID uuid.UUID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tabs, ok := s.tabs[sheetID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	names := make([]string, 0, len(tabs))
	for name := range tabs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) GetRows(ctx context.Context, sheetID uuid.UUID, tabName string) ([]models.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tabs, ok := s.tabs[sheetID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	rows, ok := tabs[tabName]
	if !ok {
		return nil, apperrors.ErrTabUnavailable
	}
	out := make([]models.Row, len(rows))
	copy(out, rows)
	return out, nil
}

func (s *MemoryStore) UpsertSheet(ctx context.Context, meta models.SheetMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sheets[meta.ID] = meta
	if _, ok := s.tabs[meta.ID]; !ok {
		s.tabs[meta.ID] = map[string][]models.Row{}
	}
	return nil
}

func (s *MemoryStore) ReplaceRows(ctx context.Context, sheetID uuid.UUID, tabName string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tabs[sheetID]; !ok {
		return apperrors.ErrNotFound
	}

	now := time.Now().UTC()
	stored := make([]models.Row, len(rows))
	for i, cells := range rows {
		copied := make([]string, len(cells))
		copy(copied, cells)
		stored[i] = models.Row{Index: i, Cells: copied, SyncedAt: now}
	}
	s.tabs[sheetID][tabName] = stored
	return nil
}
