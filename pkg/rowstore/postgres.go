package rowstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gridwise-ai/gridwise-engine/pkg/apperrors"
	"github.com/gridwise-ai/gridwise-engine/pkg/models"
)

// PostgresStore persists sheets and rows in PostgreSQL. Row cells are
// stored as a JSON array per row, preserving original order and raw text.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var (
	_ Store  = (*PostgresStore)(nil)
	_ Writer = (*PostgresStore)(nil)
)

// NewPostgresStore creates a store backed by the given pool. The schema
// must already be migrated (see RunMigrations).
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) ListSheets(ctx context.Context) ([]models.SheetMeta, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, source, synced_at
		FROM sheet_catalog
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sheets: %w", err)
	}
	defer rows.Close()

	sheets := make([]models.SheetMeta, 0)
	for rows.Next() {
		var meta models.SheetMeta
		if err := rows.Scan(&meta.ID, &meta.Name, &meta.Source, &meta.SyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sheet: %w", err)
		}
		sheets = append(sheets, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sheets: %w", err)
	}
	return sheets, nil
}

func (s *PostgresStore) ListTabs(ctx context.Context, sheetID uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT tab_name
		FROM sheet_rows
		WHERE sheet_id = $1
		ORDER BY tab_name`, sheetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tabs: %w", err)
	}
	defer rows.Close()

	tabs := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan tab name: %w", err)
		}
		tabs = append(tabs, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tabs: %w", err)
	}
	return tabs, nil
}

func (s *PostgresStore) GetRows(ctx context.Context, sheetID uuid.UUID, tabName string) ([]models.Row, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT row_index, cells, synced_at
		FROM sheet_rows
		WHERE sheet_id = $1 AND tab_name = $2
		ORDER BY row_index`, sheetID, tabName)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer rows.Close()

	stored := make([]models.Row, 0)
	for rows.Next() {
		var (
			r     models.Row
			cells []byte
		)
		if err := rows.Scan(&r.Index, &cells, &r.SyncedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal(cells, &r.Cells); err != nil {
			return nil, fmt.Errorf("row %d: %w: %v", r.Index, apperrors.ErrRowParse, err)
		}
		stored = append(stored, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	if len(stored) == 0 {
		if err := s.tabExists(ctx, sheetID, tabName); err != nil {
			return nil, err
		}
	}
	return stored, nil
}

func (s *PostgresStore) tabExists(ctx context.Context, sheetID uuid.UUID, tabName string) error {
	var one int
	err := s.pool.QueryRow(ctx, `
		SELECT 1 FROM sheet_rows
		WHERE sheet_id = $1 AND tab_name = $2
		LIMIT 1`, sheetID, tabName).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrTabUnavailable
	}
	return err
}

func (s *PostgresStore) UpsertSheet(ctx context.Context, meta models.SheetMeta) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sheet_catalog (id, name, source, synced_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, source = EXCLUDED.source, synced_at = EXCLUDED.synced_at`,
		meta.ID, meta.Name, meta.Source, meta.SyncedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert sheet: %w", err)
	}
	return nil
}

func (s *PostgresStore) ReplaceRows(ctx context.Context, sheetID uuid.UUID, tabName string, grid [][]string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM sheet_rows
		WHERE sheet_id = $1 AND tab_name = $2`, sheetID, tabName); err != nil {
		return fmt.Errorf("failed to clear tab rows: %w", err)
	}

	now := time.Now().UTC()
	for i, cells := range grid {
		encoded, err := json.Marshal(cells)
		if err != nil {
			return fmt.Errorf("failed to encode row %d: %w", i, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO sheet_rows (sheet_id, tab_name, row_index, cells, synced_at)
			VALUES ($1, $2, $3, $4, $5)`,
			sheetID, tabName, i, encoded, now); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit rows: %w", err)
	}
	return nil
}
