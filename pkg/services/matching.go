package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gridwise-ai/gridwise-engine/pkg/analyzer"
	"github.com/gridwise-ai/gridwise-engine/pkg/models"
)

// Field match scores, highest to lowest. An exact name or alias hit must
// always outrank partial and fuzzy hits so ranking stays stable.
const (
	scoreExact     = 10.0
	scoreSubstring = 5.0
	scoreWord      = 3.0
	scoreFuzzy     = 2.0
)

// scoreFieldMatch rates how well a query pattern names a field. The fuzzy
// tier only applies when lenient matching was requested (broad-scope
// queries), so narrow queries cannot latch onto barely-related fields.
func scoreFieldMatch(field models.FieldInfo, pattern string, lenient bool) float64 {
	p := strings.ToLower(strings.TrimSpace(pattern))
	if p == "" {
		return 0
	}

	name := strings.ToLower(field.Name)
	candidates := []string{name, strings.ReplaceAll(name, "_", " ")}
	candidates = append(candidates, field.Aliases...)

	best := 0.0
	for _, candidate := range candidates {
		if s := nameMatchScore(candidate, p, lenient); s > best {
			best = s
		}
	}
	return best
}

func nameMatchScore(name, pattern string, lenient bool) float64 {
	if name == "" {
		return 0
	}
	if name == pattern {
		return scoreExact
	}
	if strings.Contains(name, pattern) || strings.Contains(pattern, name) {
		return scoreSubstring
	}
	if sharesWord(name, pattern) {
		return scoreWord
	}
	if lenient && fuzzyNameMatch(name, pattern) {
		return scoreFuzzy
	}
	return 0
}

func sharesWord(a, b string) bool {
	aWords := strings.Fields(strings.ReplaceAll(a, "_", " "))
	bWords := strings.Fields(strings.ReplaceAll(b, "_", " "))
	for _, aw := range aWords {
		for _, bw := range bWords {
			if aw == bw {
				return true
			}
		}
	}
	return false
}

var separatorStripRE = regexp.MustCompile(`[^a-z0-9]`)

// fuzzyNameMatch compares separator-stripped strings position by position
// and requires over 60% of the longer string to line up.
func fuzzyNameMatch(a, b string) bool {
	a = separatorStripRE.ReplaceAllString(a, "")
	b = separatorStripRE.ReplaceAllString(b, "")
	if len(a) < 3 || len(b) < 3 {
		return false
	}

	shorter := len(a)
	if len(b) < shorter {
		shorter = len(b)
	}
	overlap := 0
	for i := 0; i < shorter; i++ {
		if a[i] == b[i] {
			overlap++
		}
	}

	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	return float64(overlap)/float64(longer) > 0.6
}

// matchesCriteria applies extracted criteria to one row's concatenated
// text. Dates gate the row: any target date appearing in some variant
// passes, so a range like "last 7 days" matches rows dated anywhere
// inside it. Numbers and conditions each pass on any hit; a row with no
// applicable criteria passes.
func matchesCriteria(rowText string, c models.Criteria) bool {
	text := strings.ToLower(rowText)

	if len(c.Dates) > 0 {
		found := false
		for _, date := range c.Dates {
			if dateAppears(text, date) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if len(c.Numbers) > 0 {
		for _, n := range c.Numbers {
			if strings.Contains(text, strings.ToLower(n)) {
				return true
			}
		}
		return false
	}

	if len(c.Conditions) > 0 {
		for _, cond := range c.Conditions {
			if strings.Contains(text, strings.ToLower(cond)) {
				return true
			}
		}
		return false
	}

	return true
}

func dateAppears(text, target string) bool {
	for _, variant := range dateVariants(target) {
		if strings.Contains(text, variant) {
			return true
		}
	}
	return false
}

var dateTokenRE = regexp.MustCompile(`^(\d{1,2})[./\-](\d{1,2})[./\-](\d{2,4})$`)

// dateVariants expands one date token into every lenient written form:
// all of ./-/- separators, padded and unpadded day and month, two and four
// digit years, and the day-month swapped order. Day-month pairs without a
// year are included so "5/6/25" still hits cells like "05.06.2025".
// Ambiguity between day-first and month-first readings is preserved on
// purpose; both interpretations match.
func dateVariants(token string) []string {
	m := dateTokenRE.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return []string{strings.ToLower(strings.TrimSpace(token))}
	}

	dayForms := padForms(m[1])
	monthForms := padForms(m[2])
	yearForms := yearForms(m[3])
	separators := []string{".", "/", "-"}

	var variants []string
	for _, d := range dayForms {
		for _, mo := range monthForms {
			for _, sep := range separators {
				for _, yr := range yearForms {
					variants = append(variants, d+sep+mo+sep+yr)
					variants = append(variants, mo+sep+d+sep+yr)
				}
				variants = append(variants, d+sep+mo)
				variants = append(variants, mo+sep+d)
			}
		}
	}
	return dedupeVariants(variants)
}

// padForms returns the zero-padded and unpadded writings of a day or
// month part.
func padForms(part string) []string {
	trimmed := strings.TrimLeft(part, "0")
	if trimmed == "" {
		trimmed = "0"
	}
	padded := trimmed
	if len(padded) == 1 {
		padded = "0" + padded
	}
	if padded == trimmed {
		return []string{padded}
	}
	return []string{padded, trimmed}
}

// yearForms returns the two-digit and four-digit writings of a year part.
// Two-digit years expand into the 2000s.
func yearForms(year string) []string {
	switch len(year) {
	case 2:
		return []string{year, "20" + year}
	case 4:
		return []string{year, year[2:]}
	default:
		return []string{year}
	}
}

func dedupeVariants(variants []string) []string {
	seen := make(map[string]bool, len(variants))
	out := variants[:0]
	for _, v := range variants {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// buildRowData maps every cataloged field to its value in the given row.
// A row that is structurally identical to the header row degrades to
// positional column_N keys so the header text is never presented as data.
func buildRowData(analysis *models.SheetAnalysis, row []string) map[string]string {
	if isHeaderEcho(analysis, row) {
		data := make(map[string]string, len(row))
		for i, v := range row {
			data[fmt.Sprintf("column_%d", i)] = v
		}
		return data
	}

	data := make(map[string]string, len(analysis.Fields))
	for name, field := range analysis.Fields {
		data[name] = cellAt(row, field.X)
	}
	return data
}

// isHeaderEcho reports whether a row normalizes to the same field names as
// any detected header candidate. Sheets sometimes repeat their header rows
// mid-data.
func isHeaderEcho(analysis *models.SheetAnalysis, row []string) bool {
	for _, candidate := range analysis.Headers.Candidates {
		if len(candidate.Values) != len(row) {
			continue
		}
		match := true
		for i, cell := range row {
			if analyzer.NormalizeFieldName(cell) != candidate.Values[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func cellAt(row []string, x int) string {
	if x < 0 || x >= len(row) {
		return ""
	}
	return row[x]
}

func rowText(row []string) string {
	return strings.Join(row, " ")
}

func rowHasData(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return true
		}
	}
	return false
}
