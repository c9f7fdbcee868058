package analyzer

import (
	"regexp"
	"sort"
	"strings"

	"github.com/gridwise-ai/gridwise-engine/pkg/models"
)

// headerKeywords are label fragments that commonly appear in header rows.
// Matching is case-insensitive substring against the whole cell.
var headerKeywords = []string{
	"NAME", "ID", "DATE", "TIME", "AMOUNT", "TOTAL", "LEVEL", "STATUS",
	"TYPE", "DESCRIPTION", "VALUE", "QUANTITY", "PRICE", "COST",
}

var (
	fieldCleanupRE    = regexp.MustCompile(`[^\w\s&]`)
	fieldWhitespaceRE = regexp.MustCompile(`\s+`)
)

// NormalizeFieldName converts a raw header cell into a catalog field name:
// uppercased, punctuation stripped (ampersands survive), internal
// whitespace collapsed to single underscores.
func NormalizeFieldName(text string) string {
	if IsEmptyValue(text) {
		return ""
	}
	normalized := strings.ToUpper(strings.TrimSpace(text))
	normalized = fieldCleanupRE.ReplaceAllString(normalized, "")
	normalized = fieldWhitespaceRE.ReplaceAllString(normalized, "_")
	return normalized
}

func looksLikeHeader(cell string) bool {
	upper := strings.ToUpper(strings.TrimSpace(cell))
	for _, kw := range headerKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

// detectHeaders scores candidate header rows with two independent
// strategies and orders candidates by descending confidence. The best
// candidate becomes the primary header; PrimaryY is -1 when nothing clears
// the cutoff.
func (a *analyzer) detectHeaders(rows [][]string) models.HeaderAnalysis {
	seen := map[int]bool{}
	var candidates []models.HeaderCandidate

	// Strategy 1: text density over the leading rows. Mostly-text rows with
	// recognizable labels and few gaps score high.
	limit := a.cfg.HeaderScanRows
	if limit > len(rows) {
		limit = len(rows)
	}
	for y := 0; y < limit; y++ {
		row := rows[y]
		if len(row) == 0 {
			continue
		}

		textCount, nonEmpty, emptyCount := 0, 0, 0
		hasKeyword := false
		for _, cell := range row {
			t := DetectCellType(cell)
			switch {
			case t == models.CellTypeEmpty:
				emptyCount++
			case t == models.CellTypeText:
				textCount++
				nonEmpty++
			default:
				nonEmpty++
			}
			if looksLikeHeader(cell) {
				hasKeyword = true
			}
		}
		if nonEmpty == 0 {
			continue
		}

		confidence := float64(textCount) / float64(nonEmpty) * a.cfg.TextRatioWeight
		if hasKeyword {
			confidence += a.cfg.KeywordBonus
		}
		confidence -= float64(emptyCount) / float64(len(row)) * a.cfg.EmptyPenaltyWeight

		if confidence > a.cfg.ConfidenceCutoff {
			candidates = append(candidates, models.HeaderCandidate{
				Y:          y,
				Confidence: confidence,
				Strategy:   "text_density",
				Values:     normalizeRow(row),
			})
			seen[y] = true
		}
	}

	// Strategy 2: text-to-data transitions. A mostly-text row directly above
	// a mostly-data row marks the boundary between labels and values.
	for y := 0; y < min(3, len(rows)-1); y++ {
		if seen[y] {
			continue
		}
		if mostlyText(rows[y]) && mostlyData(rows[y+1]) {
			candidates = append(candidates, models.HeaderCandidate{
				Y:          y,
				Confidence: a.cfg.TransitionConfidence,
				Strategy:   "transition",
				Values:     normalizeRow(rows[y]),
			})
			seen[y] = true
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	primary := -1
	if len(candidates) > 0 {
		primary = candidates[0].Y
	}

	return models.HeaderAnalysis{
		Candidates: candidates,
		PrimaryY:   primary,
	}
}

func normalizeRow(row []string) []string {
	names := make([]string, len(row))
	for i, cell := range row {
		names[i] = NormalizeFieldName(cell)
	}
	return names
}

// mostlyText reports whether over 60% of a row's non-empty cells are text.
func mostlyText(row []string) bool {
	textCount, nonEmpty := 0, 0
	for _, cell := range row {
		t := DetectCellType(cell)
		if t == models.CellTypeEmpty {
			continue
		}
		nonEmpty++
		if t == models.CellTypeText {
			textCount++
		}
	}
	if nonEmpty == 0 {
		return false
	}
	return float64(textCount)/float64(nonEmpty) > 0.6
}

// mostlyData reports whether over 40% of a row's non-empty cells are typed
// values rather than text.
func mostlyData(row []string) bool {
	dataCount, nonEmpty := 0, 0
	for _, cell := range row {
		t := DetectCellType(cell)
		if t == models.CellTypeEmpty {
			continue
		}
		nonEmpty++
		if t != models.CellTypeText {
			dataCount++
		}
	}
	if nonEmpty == 0 {
		return false
	}
	return float64(dataCount)/float64(nonEmpty) > 0.4
}
