package models

// RowProfile summarizes the cell-type mix of one row.
type RowProfile struct {
	Y          int              `json:"y"`
	CellCount  int              `json:"cell_count"`
	EmptyCount int              `json:"empty_count"`
	TypeCounts map[CellType]int `json:"type_counts"`
}

// ColumnProfile summarizes one column across the analyzed grid.
type ColumnProfile struct {
	X            int              `json:"x"`
	CellCount    int              `json:"cell_count"`
	EmptyCount   int              `json:"empty_count"`
	TypeCounts   map[CellType]int `json:"type_counts"`
	DominantType CellType         `json:"dominant_type"`
}

// HeaderCandidate is one row proposed as a header row with a confidence
// score in [0, 1].
type HeaderCandidate struct {
	Y          int      `json:"y"`
	Confidence float64  `json:"confidence"`
	Strategy   string   `json:"strategy"`
	Values     []string `json:"values"`
}

// HeaderAnalysis holds every candidate header row, ordered by descending
// confidence. PrimaryY is -1 when no candidate cleared the cutoff.
type HeaderAnalysis struct {
	Candidates []HeaderCandidate `json:"candidates"`
	PrimaryY   int               `json:"primary_y"`
}

// DataRegion is a contiguous band of data rows. StartY and EndY are
// inclusive zero-based row indexes.
type DataRegion struct {
	Type   string `json:"type"`
	StartY int    `json:"start_y"`
	EndY   int    `json:"end_y"`
}

const RegionTypePrimary = "primary_data"

// FieldInfo is the catalog entry for one detected field (column).
type FieldInfo struct {
	Name             string   `json:"name"`
	OriginalHeader   string   `json:"original_header"`
	X                int      `json:"x"`
	HeaderY          int      `json:"header_y"`
	RegionType       string   `json:"region_type"`
	DataType         CellType `json:"data_type"`
	SemanticCategory string   `json:"semantic_category"`
	SampleValues     []string `json:"sample_values"`
	ValueCount       int      `json:"value_count"`
	UniqueCount      int      `json:"unique_count"`
	Aliases          []string `json:"aliases"`
	QueryPatterns    []string `json:"query_patterns"`
}

// Semantic category names assigned to fields. DescriptiveCategory is the
// catch-all for fields matching no keyword family.
const (
	CategoryTemporal    = "temporal"
	CategoryIdentifier  = "identifier"
	CategoryMeasurement = "measurement"
	CategoryFinancial   = "financial"
	CategoryStatus      = "status"
	CategoryLocation    = "location"
	CategoryQuality     = "quality"
	CategoryOperational = "operational"
	CategoryDescriptive = "descriptive"
)

// Latest-data strategies advertised in query hints.
const (
	LatestStrategyDateBased = "date_based"
	LatestStrategyLastRow   = "last_row"
)

// QueryHints is derived guidance for downstream query handling.
type QueryHints struct {
	DateFields         []string `json:"date_fields"`
	NumericFields      []string `json:"numeric_fields"`
	KeyFields          []string `json:"key_fields"`
	SearchableFields   []string `json:"searchable_fields"`
	LatestDataStrategy string   `json:"latest_data_strategy"`
	LatestDataField    string   `json:"latest_data_field,omitempty"`
	CommonQueries      []string `json:"common_queries"`
}

// SheetAnalysis is the full structural description of one tab's grid.
type SheetAnalysis struct {
	TabName     string               `json:"tab_name"`
	RowCount    int                  `json:"row_count"`
	ColumnCount int                  `json:"column_count"`
	// DataDensity is non-empty cells over total cells, in [0, 1].
	DataDensity float64              `json:"data_density"`
	Rows        []RowProfile         `json:"rows"`
	Columns     []ColumnProfile      `json:"columns"`
	Headers     HeaderAnalysis       `json:"headers"`
	Regions     []DataRegion         `json:"regions"`
	Fields      map[string]FieldInfo `json:"fields"`
	Hints       QueryHints           `json:"hints"`
}

// PrimaryRegion returns the primary data region, or nil when the tab has no
// detected data rows.
func (a *SheetAnalysis) PrimaryRegion() *DataRegion {
	for i := range a.Regions {
		if a.Regions[i].Type == RegionTypePrimary {
			return &a.Regions[i]
		}
	}
	return nil
}

// InDataRegion reports whether row y falls inside any detected region.
func (a *SheetAnalysis) InDataRegion(y int) bool {
	for _, r := range a.Regions {
		if y >= r.StartY && y <= r.EndY {
			return true
		}
	}
	return false
}

// IsHeaderRow reports whether row y is one of the candidate header rows.
func (a *SheetAnalysis) IsHeaderRow(y int) bool {
	for _, c := range a.Headers.Candidates {
		if c.Y == y {
			return true
		}
	}
	return false
}
