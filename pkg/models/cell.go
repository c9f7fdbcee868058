package models

// CellType classifies a single spreadsheet cell value. Classification is
// exhaustive: every cell resolves to exactly one of these.
type CellType string

const (
	CellTypeDate       CellType = "date"
	CellTypeTime       CellType = "time"
	CellTypeNumber     CellType = "number"
	CellTypeCurrency   CellType = "currency"
	CellTypePercentage CellType = "percentage"
	CellTypeBoolean    CellType = "boolean"
	CellTypeEmpty      CellType = "empty"
	CellTypeText       CellType = "text"
)

// IsNumeric reports whether the type carries a numeric magnitude.
func (t CellType) IsNumeric() bool {
	return t == CellTypeNumber || t == CellTypeCurrency || t == CellTypePercentage
}

// Cell is a single value addressed by zero-based grid coordinates.
// X is the column, Y the row, and Z the tab name within a sheet.
type Cell struct {
	X     int      `json:"x"`
	Y     int      `json:"y"`
	Z     string   `json:"z"`
	Value string   `json:"value"`
	Type  CellType `json:"type"`
}

// IsEmpty reports whether the cell classified as empty.
func (c Cell) IsEmpty() bool {
	return c.Type == CellTypeEmpty
}
