// Package analyzer discovers the structure of arbitrary spreadsheet tabs:
// header rows, data regions, and a semantic field catalog, all addressed by
// zero-based X-Y grid coordinates. The analysis is deterministic; the same
// grid always yields the same catalog.
package analyzer

import (
	"go.uber.org/zap"

	"github.com/gridwise-ai/gridwise-engine/pkg/models"
)

// Config tunes header detection and cataloging. Zero values are invalid;
// use DefaultConfig as the baseline.
type Config struct {
	HeaderScanRows       int
	TextRatioWeight      float64
	KeywordBonus         float64
	EmptyPenaltyWeight   float64
	ConfidenceCutoff     float64
	TransitionConfidence float64
	MaxSampleValues      int
}

// DefaultConfig returns the tuned default scoring weights.
func DefaultConfig() Config {
	return Config{
		HeaderScanRows:       5,
		TextRatioWeight:      0.7,
		KeywordBonus:         0.2,
		EmptyPenaltyWeight:   0.3,
		ConfidenceCutoff:     0.5,
		TransitionConfidence: 0.8,
		MaxSampleValues:      5,
	}
}

// Analyzer builds a structural analysis of one tab's raw rows.
type Analyzer interface {
	Analyze(rows [][]string, tabName string) *models.SheetAnalysis
}

type analyzer struct {
	cfg    Config
	logger *zap.Logger
}

var _ Analyzer = (*analyzer)(nil)

// New creates an Analyzer with the given scoring configuration.
func New(cfg Config, logger *zap.Logger) Analyzer {
	return &analyzer{
		cfg:    cfg,
		logger: logger.Named("analyzer"),
	}
}

// Analyze maps every cell, detects headers and data regions, and builds the
// field catalog with query hints. Empty input yields an explicit empty
// analysis with no header row.
func (a *analyzer) Analyze(rows [][]string, tabName string) *models.SheetAnalysis {
	if len(rows) == 0 {
		return &models.SheetAnalysis{
			TabName: tabName,
			Headers: models.HeaderAnalysis{PrimaryY: -1},
			Fields:  map[string]models.FieldInfo{},
			Hints:   models.QueryHints{LatestDataStrategy: models.LatestStrategyLastRow},
		}
	}

	analysis := &models.SheetAnalysis{
		TabName:     tabName,
		RowCount:    len(rows),
		ColumnCount: maxColumns(rows),
		DataDensity: dataDensity(rows),
	}

	analysis.Rows = profileRows(rows)
	analysis.Columns = profileColumns(rows, analysis.ColumnCount)
	analysis.Headers = a.detectHeaders(rows)
	analysis.Regions = a.detectRegions(rows, analysis.Headers)
	analysis.Fields = a.buildFieldCatalog(rows, analysis.Headers, analysis.Regions)
	analysis.Hints = a.buildQueryHints(analysis)

	a.logger.Info("analyzed tab",
		zap.String("tab", tabName),
		zap.Int("rows", analysis.RowCount),
		zap.Int("fields", len(analysis.Fields)),
		zap.Int("regions", len(analysis.Regions)))

	return analysis
}

// dataDensity is the fraction of non-empty cells over all present cells.
func dataDensity(rows [][]string) float64 {
	total := 0
	nonEmpty := 0
	for _, row := range rows {
		total += len(row)
		for _, cell := range row {
			if !IsEmptyValue(cell) {
				nonEmpty++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(nonEmpty) / float64(total)
}

func maxColumns(rows [][]string) int {
	max := 0
	for _, row := range rows {
		if len(row) > max {
			max = len(row)
		}
	}
	return max
}

func profileRows(rows [][]string) []models.RowProfile {
	profiles := make([]models.RowProfile, len(rows))
	for y, row := range rows {
		p := models.RowProfile{
			Y:          y,
			CellCount:  len(row),
			TypeCounts: map[models.CellType]int{},
		}
		for _, cell := range row {
			t := DetectCellType(cell)
			if t == models.CellTypeEmpty {
				p.EmptyCount++
				continue
			}
			p.TypeCounts[t]++
		}
		profiles[y] = p
	}
	return profiles
}

func profileColumns(rows [][]string, columnCount int) []models.ColumnProfile {
	profiles := make([]models.ColumnProfile, columnCount)
	for x := 0; x < columnCount; x++ {
		p := models.ColumnProfile{
			X:          x,
			TypeCounts: map[models.CellType]int{},
		}
		for _, row := range rows {
			if x >= len(row) {
				continue
			}
			p.CellCount++
			t := DetectCellType(row[x])
			if t == models.CellTypeEmpty {
				p.EmptyCount++
				continue
			}
			p.TypeCounts[t]++
		}
		p.DominantType = dominantType(p.TypeCounts)
		profiles[x] = p
	}
	return profiles
}

// dominantType returns the most frequent non-empty type, breaking ties by
// the fixed classification order for determinism.
func dominantType(counts map[models.CellType]int) models.CellType {
	order := []models.CellType{
		models.CellTypeDate, models.CellTypeTime, models.CellTypeNumber,
		models.CellTypeCurrency, models.CellTypePercentage,
		models.CellTypeBoolean, models.CellTypeText,
	}
	best := models.CellTypeEmpty
	bestCount := 0
	for _, t := range order {
		if counts[t] > bestCount {
			best = t
			bestCount = counts[t]
		}
	}
	return best
}

// detectRegions finds the primary data band: it starts after the primary
// header row and is trimmed of leading and trailing fully-empty rows.
// Secondary regions (tables within tables) are an extension point.
func (a *analyzer) detectRegions(rows [][]string, headers models.HeaderAnalysis) []models.DataRegion {
	if headers.PrimaryY < 0 {
		return nil
	}

	startY := headers.PrimaryY + 1
	endY := len(rows) - 1

	for startY <= endY && isEmptyRow(rows[startY]) {
		startY++
	}
	for endY >= startY && isEmptyRow(rows[endY]) {
		endY--
	}

	if startY > endY {
		return nil
	}

	return []models.DataRegion{{
		Type:   models.RegionTypePrimary,
		StartY: startY,
		EndY:   endY,
	}}
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if !IsEmptyValue(cell) {
			return false
		}
	}
	return true
}
