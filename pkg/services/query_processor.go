package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gridwise-ai/gridwise-engine/pkg/apperrors"
	"github.com/gridwise-ai/gridwise-engine/pkg/logging"
	"github.com/gridwise-ai/gridwise-engine/pkg/models"
	"github.com/gridwise-ai/gridwise-engine/pkg/query"
	"github.com/gridwise-ai/gridwise-engine/pkg/rowstore"
)

// maxSupportingResults caps the structured data echoed back with an answer.
const maxSupportingResults = 10

// QueryProcessor is the top-level question entry point: it normalizes the
// question, routes it to the searcher or directly to the data service, and
// shapes the retrieved data for formatting. Pass uuid.Nil as sheetID to
// search every known sheet.
type QueryProcessor interface {
	AnswerQuestion(ctx context.Context, question string, sheetID uuid.UUID, tabName string) (*models.Answer, error)
}

type queryProcessor struct {
	normalizer query.Normalizer
	searcher   Searcher
	data       DataService
	formatter  ResponseFormatter
	store      rowstore.Store
	logger     *zap.Logger
}

var _ QueryProcessor = (*queryProcessor)(nil)

// NewQueryProcessor wires the full answer pipeline.
func NewQueryProcessor(
	normalizer query.Normalizer,
	searcher Searcher,
	data DataService,
	formatter ResponseFormatter,
	store rowstore.Store,
	logger *zap.Logger,
) QueryProcessor {
	return &queryProcessor{
		normalizer: normalizer,
		searcher:   searcher,
		data:       data,
		formatter:  formatter,
		store:      store,
		logger:     logger.Named("query-processor"),
	}
}

func (p *queryProcessor) AnswerQuestion(ctx context.Context, question string, sheetID uuid.UUID, tabName string) (*models.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question is empty: %w", apperrors.ErrInvalidPayload)
	}

	q := p.normalizer.Normalize(question)

	p.logger.Info("answering question",
		zap.String("question", logging.SanitizeQuestion(question)),
		zap.String("query_type", string(q.Type)),
		zap.String("scope", string(q.Scope)),
		zap.Float64("confidence", q.Confidence))

	var (
		payload *Payload
		err     error
	)
	switch q.Type {
	case models.QueryCoordinate:
		payload, err = p.coordinatePayload(ctx, q, sheetID, tabName)
	case models.QuerySummary:
		payload, err = p.summaryPayload(ctx, sheetID)
	case models.QueryLatestData:
		payload, err = p.latestPayload(ctx, sheetID, tabName)
	default:
		payload, err = p.searchPayload(ctx, q, sheetID, tabName)
	}
	if err != nil {
		return nil, err
	}

	formatted := p.formatter.Format(ctx, question, payload)

	answer := &models.Answer{
		Question:   question,
		Text:       formatted.Text,
		QueryType:  q.Type,
		Confidence: q.Confidence,
		DataFound:  formatted.DataCount > 0,
		Response:   formatted,
	}
	answer.SupportingData = supportingData(payload)
	return answer, nil
}

// resolveSheet picks the sheet to operate on for sheet-scoped queries.
// With no explicit sheet, the first known sheet is used.
func (p *queryProcessor) resolveSheet(ctx context.Context, sheetID uuid.UUID) (uuid.UUID, error) {
	if sheetID != uuid.Nil {
		return sheetID, nil
	}
	sheets, err := p.store.ListSheets(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to list sheets: %w", err)
	}
	if len(sheets) == 0 {
		return uuid.Nil, apperrors.ErrNotFound
	}
	return sheets[0].ID, nil
}

func (p *queryProcessor) coordinatePayload(ctx context.Context, q models.NormalizedQuery, sheetID uuid.UUID, tabName string) (*Payload, error) {
	id, err := p.resolveSheet(ctx, sheetID)
	if err != nil {
		return nil, err
	}

	lookup, err := p.data.GetByCoordinates(ctx, id, tabName, q.X, q.Y)
	if errors.Is(err, apperrors.ErrInvalidCoordinates) {
		// Out-of-range coordinates are a no-data answer, not a failure.
		return &Payload{}, nil
	}
	if err != nil {
		return &Payload{
			Warnings: []string{fmt.Sprintf("cell lookup failed: %v", err)},
		}, nil
	}

	result := models.SearchResult{
		SheetID:    id.String(),
		FieldName:  lookup.FieldName,
		X:          lookup.Cell.X,
		Y:          lookup.Cell.Y,
		Value:      lookup.Cell.Value,
		DataType:   lookup.Cell.Type,
		MatchScore: scoreExact,
		RowHasData: lookup.Cell.Value != "",
	}

	label := lookup.FieldName
	if label == "" {
		label = fmt.Sprintf("column %d", lookup.Cell.X)
	}
	return &Payload{
		Answer: fmt.Sprintf("Cell (%d, %d) holds %q (%s).",
			lookup.Cell.X, lookup.Cell.Y, lookup.Cell.Value, label),
		Values: []models.SearchResult{result},
	}, nil
}

func (p *queryProcessor) summaryPayload(ctx context.Context, sheetID uuid.UUID) (*Payload, error) {
	payload := &Payload{}

	sheets, err := p.sheetsInScope(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	for _, sheet := range sheets {
		summaries, err := p.data.GetSheetSummary(ctx, sheet.ID)
		if err != nil {
			payload.Warnings = append(payload.Warnings,
				fmt.Sprintf("sheet %q skipped: %v", sheet.Name, err))
			continue
		}
		payload.Summaries = append(payload.Summaries, summaries...)
	}
	return payload, nil
}

func (p *queryProcessor) latestPayload(ctx context.Context, sheetID uuid.UUID, tabName string) (*Payload, error) {
	payload := &Payload{Latest: map[string]models.LatestData{}}

	sheets, err := p.sheetsInScope(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	for _, sheet := range sheets {
		latest, err := p.data.GetLatestData(ctx, sheet.ID, tabName)
		if err != nil {
			payload.Warnings = append(payload.Warnings,
				fmt.Sprintf("sheet %q skipped: %v", sheet.Name, err))
			continue
		}
		for tab, entry := range latest {
			key := tab
			if len(sheets) > 1 {
				key = sheet.Name + " / " + tab
			}
			payload.Latest[key] = entry
		}
	}
	return payload, nil
}

func (p *queryProcessor) sheetsInScope(ctx context.Context, sheetID uuid.UUID) ([]models.SheetMeta, error) {
	sheets, err := p.store.ListSheets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sheets: %w", err)
	}
	if sheetID == uuid.Nil {
		return sheets, nil
	}
	for _, sheet := range sheets {
		if sheet.ID == sheetID {
			return []models.SheetMeta{sheet}, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// searchPayload runs the cross-tab search and shapes results by scope:
// single-value answers keep the top hit, broad answers keep everything,
// and date queries additionally group results by tab.
func (p *queryProcessor) searchPayload(ctx context.Context, q models.NormalizedQuery, sheetID uuid.UUID, tabName string) (*Payload, error) {
	outcome, err := p.searcher.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	payload := &Payload{Warnings: outcome.Warnings}
	if outcome.Partial {
		payload.Warnings = append(payload.Warnings, "search timed out, partial results shown")
	}

	results := filterScope(outcome.Results, sheetID, tabName)
	if len(results) == 0 {
		return payload, nil
	}

	switch q.Scope {
	case models.ScopeSingleValue:
		payload.Values = results[:1]
	default:
		payload.Results = results
		if len(q.Criteria.Dates) > 0 {
			payload.TabGroups = groupByTab(results)
		}
	}
	return payload, nil
}

// filterScope drops results outside an explicit sheet or tab restriction.
func filterScope(results []models.SearchResult, sheetID uuid.UUID, tabName string) []models.SearchResult {
	if sheetID == uuid.Nil && tabName == "" {
		return results
	}
	kept := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		if sheetID != uuid.Nil && r.SheetID != sheetID.String() {
			continue
		}
		if tabName != "" && r.TabName != tabName {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

func supportingData(payload *Payload) []models.SearchResult {
	if payload == nil {
		return nil
	}
	data := payload.Values
	if len(data) == 0 {
		data = payload.Results
	}
	if len(data) > maxSupportingResults {
		data = data[:maxSupportingResults]
	}
	return data
}
