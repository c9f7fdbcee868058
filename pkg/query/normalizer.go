// Package query turns free-text questions into structured, searchable
// queries. Classification is pure pattern matching over an ordered rule
// table; no model call is involved.
package query

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gridwise-ai/gridwise-engine/pkg/logging"
	"github.com/gridwise-ai/gridwise-engine/pkg/models"
)

// Normalizer converts a natural-language question into a NormalizedQuery.
type Normalizer interface {
	Normalize(question string) models.NormalizedQuery
}

type normalizer struct {
	logger *zap.Logger
	now    func() time.Time
}

var _ Normalizer = (*normalizer)(nil)

// Option configures a Normalizer.
type Option func(*normalizer)

// WithClock overrides the time source used to resolve relative date ranges
// like "last 7 days".
func WithClock(now func() time.Time) Option {
	return func(n *normalizer) {
		n.now = now
	}
}

// New creates a rule-based Normalizer.
func New(logger *zap.Logger, opts ...Option) Normalizer {
	n := &normalizer{
		logger: logger.Named("normalizer"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// rule is one query-type family: a set of anchored patterns plus guards on
// the extracted entities. Rules are evaluated in table order and the first
// pattern match with satisfied guards wins, so specific families must come
// before generic ones.
type rule struct {
	queryType models.QueryType
	base      float64
	patterns  []*regexp.Regexp
	// needsDate restricts the rule to questions with extracted dates;
	// rejectsDate does the opposite. Both zero means the rule is
	// date-agnostic.
	needsDate   bool
	rejectsDate bool
}

var rules = []rule{
	{
		// "show me all data for 12.12.2025" style bulk-by-date requests.
		// Checked first so the date reading beats any field-search reading.
		queryType: models.QueryDataByDate,
		base:      0.8,
		needsDate: true,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^(?:provide|show|get|find)\s+(?:me\s+)?(?:all\s+)?(?:the\s+)?(?:data|datas|information|entries|records)\s+(?:entered\s+)?(?:on|for|from|in|at)\s+(?:the\s+)?(.+)$`),
			regexp.MustCompile(`^(?:all|everything)\s+(?:on|for|from)\s+(.+)$`),
			regexp.MustCompile(`^(?:what\s+happened\s+)?on\s+(.+)$`),
			regexp.MustCompile(`^data\s+(?:for|from|on)\s+(.+)$`),
		},
	},
	{
		queryType: models.QueryCoordinate,
		base:      0.9,
		patterns: []*regexp.Regexp{
			coordRowColRE,
			coordXYRE,
		},
	},
	{
		queryType: models.QuerySummary,
		base:      0.8,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^(?:show|get|describe|summarize)\s+(?:me\s+)?(?:the\s+)?(?:sheet|structure|summary|everything)$`),
			regexp.MustCompile(`^what\s+(?:fields|columns|data)\s+(?:are\s+)?(?:available|present)`),
			regexp.MustCompile(`^analyze\s+(?:this\s+)?(?:sheet|data)$`),
			regexp.MustCompile(`^(?:overview|summary)\s+of\s+(.+)$`),
		},
	},
	{
		queryType: models.QueryLatestData,
		base:      0.8,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^(?:show|get|find)\s+(?:me\s+)?(?:the\s+)?latest\s*(.*)$`),
			regexp.MustCompile(`^(?:what\s+is\s+)?(?:the\s+)?(?:most\s+)?recent\s+(.+)$`),
			regexp.MustCompile(`^current\s+(.+)$`),
			regexp.MustCompile(`^today'?s\s+(.+)$`),
			regexp.MustCompile(`^latest\s+(.+)$`),
		},
	},
	{
		// Bare field lookups. Guarded against dates so "what is the level
		// on 12.12.2025" falls through to the criteria family below.
		queryType:   models.QueryFieldSearch,
		base:        0.6,
		rejectsDate: true,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^(?:show|get|find|search)\s+(?:me\s+)?(?:all\s+)?(.+?)(?:\s+data|\s+values?|\s+information)?$`),
			regexp.MustCompile(`^what\s+(?:is|are)\s+(?:the\s+)?(.+?)(?:\s+values?|\s+data)?$`),
			regexp.MustCompile(`^list\s+(?:all\s+)?(.+)$`),
			regexp.MustCompile(`^tell\s+me\s+about\s+(.+)$`),
			regexp.MustCompile(`^(.+?)\s+(?:data|information|details)$`),
		},
	},
	{
		queryType: models.QueryFieldValueByCriteria,
		base:      0.7,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^what\s+is\s+(?:the\s+)?(.+?)\s+(?:on|for|in|at|of)\s+(.+)$`),
			regexp.MustCompile(`^(?:show|get|find)\s+(?:me\s+)?(.+?)\s+(?:on|for|from|in)\s+(.+)$`),
			regexp.MustCompile(`^value\s+of\s+(.+?)\s+(?:on|for|in)\s+(.+)$`),
			regexp.MustCompile(`^(.+?)\s+(?:on|for|in|at)\s+(.+)$`),
		},
	},
}

var (
	// coordinate patterns capture (row, column) and (x, y) respectively
	coordRowColRE = regexp.MustCompile(`(?:cell|value)\s+(?:at\s+)?(?:position\s+)?(?:row\s+)?(\d+)(?:\s*,\s*|\s+)(?:column\s+)?(\d+)`)
	coordXYRE     = regexp.MustCompile(`(?:x|column)\s*=?\s*(\d+)(?:\s*,\s*|\s+and\s+)(?:y|row)\s*=?\s*(\d+)`)
)

// Normalize classifies the question, extracts entities, and derives scope
// and confidence. It never fails; unclassifiable questions become general
// queries with the whole question as the search pattern.
func (n *normalizer) Normalize(question string) models.NormalizedQuery {
	lower := strings.ToLower(strings.TrimSpace(question))

	criteria := n.extractCriteria(lower)

	q := models.NormalizedQuery{
		Original: question,
		Type:     models.QueryGeneral,
		Criteria: criteria,
	}

	var groups []string
	hasDates := len(criteria.Dates) > 0

matching:
	for _, r := range rules {
		if r.needsDate && !hasDates {
			continue
		}
		if r.rejectsDate && hasDates {
			continue
		}
		for _, p := range r.patterns {
			if m := p.FindStringSubmatch(lower); m != nil {
				q.Type = r.queryType
				q.Confidence = r.base
				groups = m[1:]
				if r.queryType == models.QueryCoordinate {
					q.X, q.Y = parseCoordinates(p, m)
					groups = nil
				}
				break matching
			}
		}
	}

	if q.Type == models.QueryGeneral {
		q.Confidence = 0.5
		q.Criteria.SearchText = lower
	}

	q.FieldPatterns = n.fieldPatterns(lower, groups, criteria)
	q.Scope = deriveScope(q)
	q.Confidence = adjustConfidence(q.Confidence, criteria)

	n.logger.Debug("normalized question",
		zap.String("question", logging.SanitizeQuestion(question)),
		zap.String("type", string(q.Type)),
		zap.String("scope", string(q.Scope)),
		zap.Float64("confidence", q.Confidence))

	return q
}

// parseCoordinates maps capture groups to (x, y). The row/column phrasing
// captures row first; the x/y phrasing captures x first.
func parseCoordinates(p *regexp.Regexp, m []string) (x, y int) {
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	if p == coordXYRE {
		return a, b
	}
	return b, a
}

func deriveScope(q models.NormalizedQuery) models.QueryScope {
	switch q.Type {
	case models.QueryFieldValueByCriteria:
		if len(q.Criteria.Dates) > 0 {
			return models.ScopeSingleValue
		}
		return models.ScopeMultipleValues
	case models.QueryLatestData, models.QueryCoordinate:
		return models.ScopeSingleValue
	case models.QuerySummary:
		return models.ScopeAllRelated
	case models.QueryFieldSearch:
		if len(q.FieldPatterns) == 1 && q.Criteria.IsEmpty() {
			return models.ScopeAllRelated
		}
		return models.ScopeMultipleValues
	case models.QueryGeneral:
		if q.Criteria.IsEmpty() {
			return models.ScopeAllRelated
		}
		return models.ScopeMultipleValues
	}
	return models.ScopeMultipleValues
}

// adjustConfidence nudges the base confidence when extracted entities
// corroborate the classification.
func adjustConfidence(base float64, c models.Criteria) float64 {
	confidence := base
	if len(c.Dates) > 0 {
		confidence += 0.1
	}
	if len(c.Numbers) > 0 {
		confidence += 0.1
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}
