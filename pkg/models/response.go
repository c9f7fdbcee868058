package models

// Formatting methods recorded on every response.
const (
	FormatMethodLLM      = "llm"
	FormatMethodFallback = "fallback"
	FormatMethodDirect   = "direct"
	FormatMethodError    = "error"
)

// FormattedResponse is the final rendering of an answer payload.
type FormattedResponse struct {
	Text             string   `json:"text"`
	FormattingMethod string   `json:"formatting_method"`
	DataCount        int      `json:"data_count"`
	FallbackUsed     bool     `json:"fallback_used"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	Warnings         []string `json:"warnings,omitempty"`
}

// Answer is the full result of processing one question end to end.
type Answer struct {
	Question       string            `json:"question"`
	Text           string            `json:"answer"`
	QueryType      QueryType         `json:"query_type"`
	Confidence     float64           `json:"confidence"`
	DataFound      bool              `json:"data_found"`
	SupportingData []SearchResult    `json:"supporting_data,omitempty"`
	Response       FormattedResponse `json:"response"`
}
