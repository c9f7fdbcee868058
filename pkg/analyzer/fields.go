package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/gridwise-ai/gridwise-engine/pkg/models"
)

// buildFieldCatalog turns the primary header row into catalog entries, one
// per named column, with column statistics drawn from the data region.
// Duplicate header names get deterministic numeric suffixes.
func (a *analyzer) buildFieldCatalog(rows [][]string, headers models.HeaderAnalysis, regions []models.DataRegion) map[string]models.FieldInfo {
	catalog := map[string]models.FieldInfo{}

	var headerValues []string
	for _, c := range headers.Candidates {
		if c.Y == headers.PrimaryY {
			headerValues = c.Values
			break
		}
	}
	if headerValues == nil {
		return catalog
	}

	for _, region := range regions {
		for x, name := range headerValues {
			if strings.TrimSpace(name) == "" {
				continue
			}
			name = dedupeFieldName(catalog, name)

			var columnData []string
			for y := region.StartY; y <= region.EndY && y < len(rows); y++ {
				if x < len(rows[y]) {
					columnData = append(columnData, rows[y][x])
				}
			}

			var samples []string
			limit := a.cfg.MaxSampleValues
			if limit > len(columnData) {
				limit = len(columnData)
			}
			for _, v := range columnData[:limit] {
				if !IsEmptyValue(v) {
					samples = append(samples, v)
				}
			}

			valueCount := 0
			unique := map[string]struct{}{}
			typeCounts := map[models.CellType]int{}
			for _, v := range columnData {
				if IsEmptyValue(v) {
					continue
				}
				valueCount++
				unique[v] = struct{}{}
				typeCounts[DetectCellType(v)]++
			}

			original := ""
			if headers.PrimaryY >= 0 && headers.PrimaryY < len(rows) && x < len(rows[headers.PrimaryY]) {
				original = rows[headers.PrimaryY][x]
			}

			catalog[name] = models.FieldInfo{
				Name:             name,
				OriginalHeader:   original,
				X:                x,
				HeaderY:          headers.PrimaryY,
				RegionType:       region.Type,
				DataType:         dominantType(typeCounts),
				SemanticCategory: categorize(name, columnData),
				SampleValues:     samples,
				ValueCount:       valueCount,
				UniqueCount:      len(unique),
				Aliases:          GenerateAliases(name),
				QueryPatterns:    generateQueryPatterns(name),
			}
		}
	}

	return catalog
}

func dedupeFieldName(catalog map[string]models.FieldInfo, name string) string {
	if _, taken := catalog[name]; !taken {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", name, i)
		if _, taken := catalog[candidate]; !taken {
			return candidate
		}
	}
}

// GenerateAliases produces the lowercase name variants a user might type
// for a field: underscore and space forms, common abbreviations, and
// singular/plural forms. The result is sorted and deduplicated.
func GenerateAliases(fieldName string) []string {
	set := map[string]struct{}{}
	add := func(s string) {
		if s != "" {
			set[s] = struct{}{}
		}
	}

	lower := strings.ToLower(fieldName)
	spaced := strings.ReplaceAll(lower, "_", " ")
	add(lower)
	add(spaced)

	for full, abbrevs := range semantics.Abbreviations {
		if strings.Contains(spaced, full) {
			for _, ab := range abbrevs {
				add(strings.ReplaceAll(spaced, full, ab))
			}
		}
	}

	add(inflection.Singular(spaced))
	add(inflection.Plural(spaced))

	aliases := make([]string, 0, len(set))
	for alias := range set {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	return aliases
}

func generateQueryPatterns(fieldName string) []string {
	lower := strings.ToLower(fieldName)
	return []string{
		"what is the " + lower,
		"show me " + lower,
		"get " + lower,
		lower + " value",
	}
}

// buildQueryHints derives routing guidance from the catalog: which fields
// carry dates, numbers, or identifiers, and how to find the newest row.
func (a *analyzer) buildQueryHints(analysis *models.SheetAnalysis) models.QueryHints {
	hints := models.QueryHints{
		LatestDataStrategy: models.LatestStrategyLastRow,
	}

	for _, name := range fieldNamesByColumn(analysis.Fields) {
		f := analysis.Fields[name]
		if f.SemanticCategory == models.CategoryTemporal {
			hints.DateFields = append(hints.DateFields, name)
		}
		if f.DataType == models.CellTypeNumber || f.DataType == models.CellTypeCurrency {
			hints.NumericFields = append(hints.NumericFields, name)
		}
		if f.SemanticCategory == models.CategoryIdentifier {
			hints.KeyFields = append(hints.KeyFields, name)
		}
		if f.ValueCount > 0 {
			hints.SearchableFields = append(hints.SearchableFields, name)
		}
	}

	if len(hints.DateFields) > 0 {
		hints.LatestDataStrategy = models.LatestStrategyDateBased
		hints.LatestDataField = hints.DateFields[0]
	}

	hints.CommonQueries = generateCommonQueries(hints)
	return hints
}

// fieldNamesByColumn orders catalog names by column position so derived
// lists are deterministic.
func fieldNamesByColumn(fields map[string]models.FieldInfo) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		fi, fj := fields[names[i]], fields[names[j]]
		if fi.X != fj.X {
			return fi.X < fj.X
		}
		return names[i] < names[j]
	})
	return names
}

func generateCommonQueries(hints models.QueryHints) []string {
	var queries []string
	if len(hints.DateFields) > 0 {
		queries = append(queries,
			"show me data for [date]",
			"what is the latest data",
			"get data from "+strings.ToLower(hints.DateFields[0]),
		)
	}
	for i, field := range hints.NumericFields {
		if i == 3 {
			break
		}
		queries = append(queries, "what is the "+strings.ToLower(field))
	}
	return queries
}
