package models

import (
	"time"

	"github.com/google/uuid"
)

// SheetMeta identifies one stored spreadsheet.
type SheetMeta struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Source   string    `json:"source"`
	SyncedAt time.Time `json:"synced_at"`
}

// Row is one stored spreadsheet row in original order. Cells holds raw cell
// text by column index; trailing empties may be absent.
type Row struct {
	Index    int       `json:"index"`
	Cells    []string  `json:"cells"`
	SyncedAt time.Time `json:"synced_at"`
}

// TabStructure is the cached per-tab analysis used by search. It is derived
// from SheetAnalysis and keyed by sheet and tab.
type TabStructure struct {
	SheetID  string               `json:"sheet_id"`
	TabName  string               `json:"tab_name"`
	Fields   map[string]FieldInfo `json:"fields"`
	Hints    QueryHints           `json:"hints"`
	Analysis *SheetAnalysis       `json:"-"`
	BuiltAt  time.Time            `json:"built_at"`
}
