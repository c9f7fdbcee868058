package query

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gridwise-ai/gridwise-engine/pkg/models"
)

var (
	numericDateRE = regexp.MustCompile(`\b(\d{1,2})[./\-](\d{1,2})[./\-](\d{2,4})\b`)
	isoDateRE     = regexp.MustCompile(`\b(\d{4})[./\-](\d{1,2})[./\-](\d{1,2})\b`)
	timeRE        = regexp.MustCompile(`\b\d{1,2}:\d{2}(?::\d{2})?\s*(?:am|pm)?\b`)
	numberRE      = regexp.MustCompile(`\b\d+(?:,\d{3})*(?:\.\d+)?\b`)
	conditionRE   = regexp.MustCompile(`\b(active|inactive|running|stopped|on|off|high|low|normal|abnormal)\b`)

	relativeDaysRE   = regexp.MustCompile(`\b(?:last|past|recent)\s+(\d+)\s+days?\b`)
	relativeWeeksRE  = regexp.MustCompile(`\blast\s+(\d+)\s+weeks?\b`)
	relativeLastWeek = regexp.MustCompile(`\blast\s+week\b`)
	relativeLastMon  = regexp.MustCompile(`\blast\s+month\b`)
)

// fieldHintKeywords are domain-neutral terms that usually name a field. A
// hit adds the keyword itself as a field pattern, so the searcher can match
// it against the catalog even when the classifying regex captured a longer
// phrase.
var fieldHintKeywords = []string{
	"amount", "total", "quantity", "value",
	"level", "height", "depth", "rate",
	"temperature", "temp", "pressure", "flow",
	"cost", "price", "expense",
	"status", "state", "condition",
	"tank", "feed", "supply", "source",
	"quality", "grade", "purity",
}

// extractCriteria pulls dates, numbers, and condition words out of the
// lowered question, independent of how the question classifies.
func (n *normalizer) extractCriteria(lower string) models.Criteria {
	var c models.Criteria

	c.Dates = n.extractDates(lower)

	// Strip date and time spans before number extraction so "12.12.2025"
	// does not leak 12 and 2025 as numeric criteria.
	stripped := numericDateRE.ReplaceAllString(lower, " ")
	stripped = isoDateRE.ReplaceAllString(stripped, " ")
	stripped = timeRE.ReplaceAllString(stripped, " ")
	c.Numbers = numberRE.FindAllString(stripped, -1)

	for _, m := range conditionRE.FindAllStringSubmatch(lower, -1) {
		word := m[1]
		// "on" before a date is a preposition, not a status value.
		if word == "on" && len(c.Dates) > 0 {
			continue
		}
		c.Conditions = append(c.Conditions, word)
	}
	c.Conditions = dedupe(c.Conditions)

	return c
}

// extractDates finds explicit date tokens and resolves relative ranges.
// All numeric dates normalize to zero-padded dd.mm.yyyy order; the
// day/month reading of ambiguous tokens is preserved as written and the
// searcher matches both orders.
func (n *normalizer) extractDates(lower string) []string {
	var dates []string

	for _, m := range numericDateRE.FindAllStringSubmatch(lower, -1) {
		dates = append(dates, normalizeDate(m[1], m[2], m[3]))
	}
	for _, m := range isoDateRE.FindAllStringSubmatch(lower, -1) {
		dates = append(dates, normalizeDate(m[3], m[2], m[1]))
	}

	dates = append(dates, n.resolveRelativeDates(lower)...)

	return dedupe(dates)
}

func normalizeDate(day, month, year string) string {
	return zeroPad(day) + "." + zeroPad(month) + "." + year
}

func zeroPad(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}

// resolveRelativeDates expands phrases like "last 7 days" into the
// concrete dates they cover, newest first.
func (n *normalizer) resolveRelativeDates(lower string) []string {
	today := n.now()

	expand := func(from, to time.Time) []string {
		var out []string
		for d := to; !d.Before(from); d = d.AddDate(0, 0, -1) {
			out = append(out, d.Format("02.01.2006"))
		}
		return out
	}

	if m := relativeDaysRE.FindStringSubmatch(lower); m != nil {
		days, _ := strconv.Atoi(m[1])
		return expand(today.AddDate(0, 0, -days), today)
	}
	if m := relativeWeeksRE.FindStringSubmatch(lower); m != nil {
		weeks, _ := strconv.Atoi(m[1])
		return expand(today.AddDate(0, 0, -7*weeks), today)
	}
	if relativeLastWeek.MatchString(lower) {
		return expand(today.AddDate(0, 0, -7), today)
	}
	if relativeLastMon.MatchString(lower) {
		firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		lastOfPrev := firstOfMonth.AddDate(0, 0, -1)
		firstOfPrev := time.Date(lastOfPrev.Year(), lastOfPrev.Month(), 1, 0, 0, 0, 0, today.Location())
		return expand(firstOfPrev, lastOfPrev)
	}
	return nil
}

// fieldPatterns assembles candidate field names from the classifying
// rule's capture groups and the keyword hints found in the question. Date
// tokens captured as criteria text are excluded.
func (n *normalizer) fieldPatterns(lower string, groups []string, criteria models.Criteria) []string {
	var patterns []string

	for _, g := range groups {
		g = strings.TrimSpace(g)
		if g == "" || isDateToken(g) {
			continue
		}
		patterns = append(patterns, g)
	}

	for _, kw := range fieldHintKeywords {
		if containsWord(lower, kw) {
			patterns = append(patterns, kw)
		}
	}

	if len(patterns) == 0 && len(groups) == 0 && criteria.IsEmpty() && lower != "" {
		patterns = append(patterns, lower)
	}

	return dedupe(patterns)
}

func isDateToken(s string) bool {
	return numericDateRE.MatchString(s) || isoDateRE.MatchString(s)
}

func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
