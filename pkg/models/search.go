package models

// SearchResult is one matched occurrence of a field in a tab. RowData maps
// catalog field names to the values of the matched row; when the matched row
// is itself a header row the keys degrade to positional column_N names.
type SearchResult struct {
	SheetID    string            `json:"sheet_id"`
	SheetName  string            `json:"sheet_name,omitempty"`
	TabName    string            `json:"tab_name"`
	FieldName  string            `json:"field_name"`
	X          int               `json:"x"`
	Y          int               `json:"y"`
	Value      string            `json:"value"`
	RowData    map[string]string `json:"row_data"`
	MatchScore float64           `json:"match_score"`
	IsFallback bool              `json:"is_fallback,omitempty"`
	DataType   CellType          `json:"data_type,omitempty"`
	IsSample   bool              `json:"is_sample,omitempty"`
	RowHasData bool              `json:"row_has_data,omitempty"`
}

// LatestData is the newest row of a tab together with how it was chosen.
type LatestData struct {
	SheetID  string            `json:"sheet_id"`
	TabName  string            `json:"tab_name"`
	Y        int               `json:"y"`
	RowData  map[string]string `json:"row_data"`
	Strategy string            `json:"strategy"`
	Date     string            `json:"date,omitempty"`
}

// CellLookup is the result of a coordinate query with structural context.
type CellLookup struct {
	Cell         Cell   `json:"cell"`
	IsHeader     bool   `json:"is_header"`
	InDataRegion bool   `json:"in_data_region"`
	FieldName    string `json:"field_name,omitempty"`
}

// TabSummary describes one tab for summary answers.
type TabSummary struct {
	TabName       string   `json:"tab_name"`
	RowCount      int      `json:"row_count"`
	ColumnCount   int      `json:"column_count"`
	Fields        []string `json:"fields"`
	SampleQueries []string `json:"sample_queries"`
}
