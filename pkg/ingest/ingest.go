// Package ingest loads local spreadsheet files into a row store so the
// engine can answer questions against them.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/gridwise-ai/gridwise-engine/pkg/models"
	"github.com/gridwise-ai/gridwise-engine/pkg/rowstore"
	"github.com/gridwise-ai/gridwise-engine/pkg/services"
)

// Workbook is one parsed spreadsheet file: raw rows per tab, in sheet
// order.
type Workbook struct {
	Name string
	Tabs map[string][][]string
	// TabOrder preserves the workbook's sheet order for deterministic
	// ingestion.
	TabOrder []string
}

// LoadWorkbook reads every sheet of an .xlsx file into raw string rows.
func LoadWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	wb := &Workbook{
		Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Tabs: map[string][][]string{},
	}

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}
		wb.Tabs[sheet] = rows
		wb.TabOrder = append(wb.TabOrder, sheet)
	}

	if len(wb.TabOrder) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	return wb, nil
}

// Ingester writes workbooks into a row store and invalidates any cached
// structures for the tabs it touches.
type Ingester struct {
	writer rowstore.Writer
	cache  services.StructureCache // optional
	logger *zap.Logger
}

// NewIngester creates an Ingester. cache may be nil when no process-local
// cache needs invalidation.
func NewIngester(writer rowstore.Writer, cache services.StructureCache, logger *zap.Logger) *Ingester {
	return &Ingester{
		writer: writer,
		cache:  cache,
		logger: logger.Named("ingest"),
	}
}

// IngestWorkbook stores every tab of a workbook under a new sheet entry
// and returns the sheet ID.
func (i *Ingester) IngestWorkbook(ctx context.Context, wb *Workbook, source string) (uuid.UUID, error) {
	sheetID := uuid.New()
	meta := models.SheetMeta{
		ID:       sheetID,
		Name:     wb.Name,
		Source:   source,
		SyncedAt: time.Now().UTC(),
	}
	if err := i.writer.UpsertSheet(ctx, meta); err != nil {
		return uuid.Nil, fmt.Errorf("failed to register sheet: %w", err)
	}

	for _, tab := range wb.TabOrder {
		if err := i.writer.ReplaceRows(ctx, sheetID, tab, wb.Tabs[tab]); err != nil {
			return uuid.Nil, fmt.Errorf("failed to store tab %q: %w", tab, err)
		}
		if i.cache != nil {
			i.cache.Invalidate(sheetID, tab)
		}
		i.logger.Info("ingested tab",
			zap.String("sheet", wb.Name),
			zap.String("tab", tab),
			zap.Int("rows", len(wb.Tabs[tab])))
	}

	return sheetID, nil
}

// IngestFile loads and stores one .xlsx file.
func (i *Ingester) IngestFile(ctx context.Context, path string) (uuid.UUID, error) {
	wb, err := LoadWorkbook(path)
	if err != nil {
		return uuid.Nil, err
	}
	return i.IngestWorkbook(ctx, wb, path)
}
