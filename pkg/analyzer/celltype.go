package analyzer

import (
	"regexp"
	"strings"

	"github.com/gridwise-ai/gridwise-engine/pkg/models"
)

// typeRule pairs a cell type with the patterns that recognize it. Rules are
// evaluated in order and the first matching pattern wins, so the relative
// order of entries is load-bearing: dates before times, times before plain
// numbers.
type typeRule struct {
	cellType models.CellType
	patterns []*regexp.Regexp
}

var typeRules = []typeRule{
	{models.CellTypeDate, []*regexp.Regexp{
		regexp.MustCompile(`^\d{1,2}[./\-]\d{1,2}[./\-]\d{2,4}`), // DD.MM.YY, DD/MM/YYYY
		regexp.MustCompile(`^\d{4}[./\-]\d{1,2}[./\-]\d{1,2}`),   // YYYY-MM-DD
		regexp.MustCompile(`^(?i)\d{1,2}\s+\w+\s+\d{4}`),         // DD Month YYYY
	}},
	{models.CellTypeTime, []*regexp.Regexp{
		regexp.MustCompile(`^\d{1,2}:\d{2}(?::\d{2})?`), // HH:MM or HH:MM:SS
		regexp.MustCompile(`^\d{1,2}\.\d{2}`),           // H.MM format
	}},
	{models.CellTypeNumber, []*regexp.Regexp{
		regexp.MustCompile(`^\d+\.?\d*$`),                    // integer or decimal
		regexp.MustCompile(`^\d{1,3}(?:,\d{3})*(?:\.\d+)?$`), // thousands separators
	}},
	{models.CellTypeCurrency, []*regexp.Regexp{
		regexp.MustCompile(`^[$€£¥]\s*\d+(?:,\d{3})*(?:\.\d{2})?`),
		regexp.MustCompile(`^\d+(?:,\d{3})*(?:\.\d{2})?\s*[$€£¥]`),
	}},
	{models.CellTypePercentage, []*regexp.Regexp{
		regexp.MustCompile(`^\d+(?:\.\d+)?%`),
	}},
	{models.CellTypeBoolean, []*regexp.Regexp{
		regexp.MustCompile(`^(?i)(?:yes|no|true|false|on|off|active|inactive)$`),
	}},
}

var emptyMarkers = map[string]struct{}{
	"":     {},
	"-":    {},
	"null": {},
	"none": {},
	"n/a":  {},
}

// IsEmptyValue reports whether a raw cell value counts as empty. Dashes and
// common null markers from exported sheets are treated as empty.
func IsEmptyValue(value string) bool {
	trimmed := strings.TrimSpace(value)
	_, ok := emptyMarkers[strings.ToLower(trimmed)]
	return ok
}

// DetectCellType classifies a raw cell value. Classification is prefix
// matching: a value like "12.12.2025 10:30" classifies as a date.
func DetectCellType(value string) models.CellType {
	if IsEmptyValue(value) {
		return models.CellTypeEmpty
	}

	trimmed := strings.TrimSpace(value)
	for _, rule := range typeRules {
		for _, p := range rule.patterns {
			if p.MatchString(trimmed) {
				return rule.cellType
			}
		}
	}

	return models.CellTypeText
}
