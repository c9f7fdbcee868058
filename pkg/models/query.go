package models

// QueryType labels the recognized intent of a natural-language question.
type QueryType string

const (
	QueryDataByDate           QueryType = "data_by_date"
	QueryCoordinate           QueryType = "coordinate_query"
	QuerySummary              QueryType = "summary_query"
	QueryLatestData           QueryType = "latest_data"
	QueryFieldSearch          QueryType = "field_search"
	QueryFieldValueByCriteria QueryType = "field_value_by_criteria"
	QueryGeneral              QueryType = "general"
)

// QueryScope describes how much data the answer should cover.
type QueryScope string

const (
	ScopeSingleValue    QueryScope = "single_value"
	ScopeMultipleValues QueryScope = "multiple_values"
	ScopeAllRelated     QueryScope = "all_related"
)

// Criteria carries the values extracted from a question that narrow the
// search. Dates are normalized to zero-padded dd.mm.yyyy.
type Criteria struct {
	Dates      []string `json:"dates,omitempty"`
	Numbers    []string `json:"numbers,omitempty"`
	Conditions []string `json:"conditions,omitempty"`
	SearchText string   `json:"search_text,omitempty"`
}

// IsEmpty reports whether no narrowing criteria were extracted.
func (c Criteria) IsEmpty() bool {
	return len(c.Dates) == 0 && len(c.Numbers) == 0 && len(c.Conditions) == 0
}

// NormalizedQuery is the structured form of a user question. FieldPatterns
// are candidate field-name tokens; X and Y are set only for coordinate
// queries.
type NormalizedQuery struct {
	Original      string     `json:"original"`
	Type          QueryType  `json:"type"`
	Scope         QueryScope `json:"scope"`
	FieldPatterns []string   `json:"field_patterns"`
	Criteria      Criteria   `json:"criteria"`
	X             int        `json:"x,omitempty"`
	Y             int        `json:"y,omitempty"`
	Confidence    float64    `json:"confidence"`
}
