package query

import "strings"

// expansionAbbrevs maps abbreviations to their expansions; substitution
// runs both directions so "temp" finds TEMPERATURE columns and vice versa.
var expansionAbbrevs = map[string]string{
	"temp":  "temperature",
	"press": "pressure",
	"qty":   "quantity",
	"amt":   "amount",
	"val":   "value",
	"lvl":   "level",
	"pct":   "percent",
}

// ExpandFieldPatterns widens field patterns with separator variants and
// abbreviation swaps so differently-named columns still match.
func ExpandFieldPatterns(patterns []string) []string {
	var expanded []string
	for _, pattern := range patterns {
		lower := strings.ToLower(pattern)
		expanded = append(expanded,
			lower,
			strings.ReplaceAll(lower, " ", "_"),
			strings.ReplaceAll(lower, " ", "-"),
			strings.ReplaceAll(lower, " ", ""),
			strings.ReplaceAll(lower, "_", " "),
			strings.ReplaceAll(lower, "-", " "),
		)
		for abbr, full := range expansionAbbrevs {
			if containsWord(lower, abbr) {
				expanded = append(expanded, strings.ReplaceAll(lower, abbr, full))
			}
			if strings.Contains(lower, full) {
				expanded = append(expanded, strings.ReplaceAll(lower, full, abbr))
			}
		}
	}
	return dedupe(expanded)
}
