// Package rowstore provides read access to synced spreadsheet rows. The
// engine only reads through the Store interface; writes happen during
// ingestion through the Writer interface.
package rowstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/gridwise-ai/gridwise-engine/pkg/models"
)

// Store is the read-side contract. Rows come back in stored order and may
// be re-read arbitrarily; implementations never expose partial writes.
type Store interface {
	// ListSheets returns every known sheet.
	ListSheets(ctx context.Context) ([]models.SheetMeta, error)
	// ListTabs returns the tab names of one sheet.
	ListTabs(ctx context.Context, sheetID uuid.UUID) ([]string, error)
	// GetRows returns all rows of a tab ordered by row index.
	GetRows(ctx context.Context, sheetID uuid.UUID, tabName string) ([]models.Row, error)
}

// Writer is the ingestion-side contract.
type Writer interface {
	// UpsertSheet creates or refreshes sheet metadata.
	UpsertSheet(ctx context.Context, meta models.SheetMeta) error
	// ReplaceRows atomically swaps a tab's rows for the given grid.
	ReplaceRows(ctx context.Context, sheetID uuid.UUID, tabName string, rows [][]string) error
}
