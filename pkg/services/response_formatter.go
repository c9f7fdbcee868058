package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gridwise-ai/gridwise-engine/pkg/config"
	"github.com/gridwise-ai/gridwise-engine/pkg/llm"
	"github.com/gridwise-ai/gridwise-engine/pkg/logging"
	"github.com/gridwise-ai/gridwise-engine/pkg/models"
	"github.com/gridwise-ai/gridwise-engine/pkg/retry"
)

// Payload is the raw answer material handed to the formatter: at most a
// few of these containers are populated per query, plus an optional plain
// answer string for queries resolved without a search.
type Payload struct {
	Answer    string                           `json:"answer,omitempty"`
	Values    []models.SearchResult            `json:"values,omitempty"`
	Results   []models.SearchResult            `json:"results,omitempty"`
	Latest    map[string]models.LatestData     `json:"latest_data,omitempty"`
	TabGroups map[string][]models.SearchResult `json:"tab_groups,omitempty"`
	Summaries []models.TabSummary              `json:"summaries,omitempty"`
	Warnings  []string                         `json:"-"`
}

// DataCount counts data elements across all containers. TabGroups share
// rows with Results, so whichever is larger wins instead of both counting.
func (p *Payload) DataCount() int {
	if p == nil {
		return 0
	}
	grouped := 0
	for _, g := range p.TabGroups {
		grouped += len(g)
	}
	count := len(p.Values) + len(p.Latest) + len(p.Summaries)
	if len(p.Results) > grouped {
		count += len(p.Results)
	} else {
		count += grouped
	}
	return count
}

// negativePhrases must never appear in an answer when data was found.
var negativePhrases = []string{
	"no data",
	"couldn't find",
	"could not find",
	"no entries",
	"no results",
	"no records",
	"unable to find",
	"nothing found",
	"no matching",
	"no information",
	"does not contain",
	"doesn't contain",
}

// dataIndicators is the positive vocabulary a rendering about found data
// is expected to use. A rendering containing none of these (and no digit)
// is treated as evasive and discarded.
var dataIndicators = []string{
	"found", "value", "data", "row", "shows", "contains", "record", "entry",
	"field", "tab", "latest", "result",
}

// ResponseFormatter turns an answer payload into the final response text.
// When a renderer is available it is tried first; its output is validated
// and replaced by a deterministic rendering if it denies found data. With
// no data at all the renderer is never invoked.
type ResponseFormatter interface {
	Format(ctx context.Context, question string, payload *Payload) models.FormattedResponse
}

type responseFormatter struct {
	renderer llm.Renderer // nil when rendering is disabled
	cfg      config.RendererConfig
	retryCfg *retry.Config
	logger   *zap.Logger
}

var _ ResponseFormatter = (*responseFormatter)(nil)

// NewResponseFormatter creates a formatter. renderer may be nil; every
// answer then uses deterministic formatting.
func NewResponseFormatter(renderer llm.Renderer, cfg config.RendererConfig, logger *zap.Logger) ResponseFormatter {
	return &responseFormatter{
		renderer: renderer,
		cfg:      cfg,
		retryCfg: retry.DefaultConfig(),
		logger:   logger.Named("formatter"),
	}
}

func (f *responseFormatter) Format(ctx context.Context, question string, payload *Payload) models.FormattedResponse {
	start := time.Now()
	resp := models.FormattedResponse{}
	if payload != nil {
		resp.Warnings = append(resp.Warnings, payload.Warnings...)
	}

	if payload == nil {
		resp.FormattingMethod = models.FormatMethodError
		resp.Text = "Unable to answer: the retrieved payload was empty or unrecognized."
		resp.ProcessingTimeMs = time.Since(start).Milliseconds()
		return resp
	}

	resp.DataCount = payload.DataCount()

	// No data: answer directly, never through the renderer.
	if resp.DataCount == 0 {
		resp.FormattingMethod = models.FormatMethodDirect
		if payload.Answer != "" {
			resp.Text = payload.Answer
		} else {
			resp.Text = fmt.Sprintf("No data found for %q.", question)
		}
		resp.ProcessingTimeMs = time.Since(start).Milliseconds()
		return resp
	}

	if f.renderer != nil {
		rendered, err := f.render(ctx, question, payload)
		if err == nil && f.validateRendering(rendered) {
			resp.FormattingMethod = models.FormatMethodLLM
			resp.Text = rendered
			resp.ProcessingTimeMs = time.Since(start).Milliseconds()
			return resp
		}
		if err != nil {
			f.logger.Warn("renderer failed, using fallback",
				zap.String("question", logging.SanitizeQuestion(question)),
				zap.Error(err))
			resp.Warnings = append(resp.Warnings, "renderer unavailable, deterministic formatting used")
		} else {
			f.logger.Warn("rendered answer denied found data, using fallback",
				zap.String("question", logging.SanitizeQuestion(question)),
				zap.Int("data_count", resp.DataCount))
			resp.Warnings = append(resp.Warnings, "rendered answer failed validation, deterministic formatting used")
		}
	}

	resp.FormattingMethod = models.FormatMethodFallback
	resp.FallbackUsed = true
	resp.Text = f.fallbackRendering(payload)
	resp.ProcessingTimeMs = time.Since(start).Milliseconds()
	return resp
}

func (f *responseFormatter) render(ctx context.Context, question string, payload *Payload) (string, error) {
	prompt := buildRenderPrompt(question, payload)

	timeout := f.cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var rendered string
	err := retry.Do(ctx, f.retryCfg, func() error {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		text, err := f.renderer.Render(callCtx, prompt, renderSystemMessage)
		if err != nil {
			return err
		}
		rendered = text
		return nil
	})
	return rendered, err
}

const renderSystemMessage = "You answer questions about spreadsheet data. " +
	"You are given data that WAS FOUND; describe it plainly and concretely. " +
	"Never claim that no data exists."

func buildRenderPrompt(question string, payload *Payload) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nData was found for this question. Answer using only this data:\n")

	encoded, err := json.Marshal(trimmedPayload(payload))
	if err != nil {
		encoded = []byte("{}")
	}
	b.Write(encoded)
	b.WriteString("\n\nAnswer concisely in plain language, quoting the relevant values.")
	return b.String()
}

// trimmedPayload caps how many rows are serialized into the prompt.
func trimmedPayload(payload *Payload) *Payload {
	const maxRows = 25
	trimmed := *payload
	if len(trimmed.Values) > maxRows {
		trimmed.Values = trimmed.Values[:maxRows]
	}
	if len(trimmed.Results) > maxRows {
		trimmed.Results = trimmed.Results[:maxRows]
	}
	return &trimmed
}

// validateRendering is the false-negative guard: a rendering of found
// data must not use negative phrasing and must show some evidence that it
// presents data.
func (f *responseFormatter) validateRendering(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	lower := strings.ToLower(text)

	for _, phrase := range negativePhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}

	for _, r := range lower {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	for _, indicator := range dataIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// fallbackRendering builds a deterministic plain-text answer straight from
// the payload, grouped by tab, with stable ordering.
func (f *responseFormatter) fallbackRendering(payload *Payload) string {
	var b strings.Builder

	if payload.Answer != "" {
		b.WriteString(payload.Answer)
		b.WriteString("\n")
	}

	for _, v := range payload.Values {
		fmt.Fprintf(&b, "%s = %s (tab %s, row %d)\n", v.FieldName, v.Value, v.TabName, v.Y)
	}

	if len(payload.TabGroups) > 0 {
		writeGroupedResults(&b, payload.TabGroups)
	} else if len(payload.Results) > 0 {
		writeGroupedResults(&b, groupByTab(payload.Results))
	}

	if len(payload.Latest) > 0 {
		tabs := sortedKeys(payload.Latest)
		for _, tab := range tabs {
			entry := payload.Latest[tab]
			fmt.Fprintf(&b, "Latest data in tab %s (row %d", tab, entry.Y)
			if entry.Date != "" {
				fmt.Fprintf(&b, ", date %s", entry.Date)
			}
			b.WriteString("):\n")
			writeRowData(&b, entry.RowData)
		}
	}

	for _, summary := range payload.Summaries {
		fmt.Fprintf(&b, "Tab %s: %d rows, %d columns. Fields: %s\n",
			summary.TabName, summary.RowCount, summary.ColumnCount,
			strings.Join(summary.Fields, ", "))
	}

	text := strings.TrimRight(b.String(), "\n")
	if text == "" {
		text = fmt.Sprintf("Found %d matching data elements.", payload.DataCount())
	}
	return text
}

func writeGroupedResults(b *strings.Builder, groups map[string][]models.SearchResult) {
	for _, tab := range sortedKeys(groups) {
		fmt.Fprintf(b, "Tab %s:\n", tab)
		for _, r := range groups[tab] {
			fmt.Fprintf(b, "  %s = %s (row %d)\n", r.FieldName, r.Value, r.Y)
		}
	}
}

func writeRowData(b *strings.Builder, rowData map[string]string) {
	for _, key := range sortedKeys(rowData) {
		if rowData[key] == "" {
			continue
		}
		fmt.Fprintf(b, "  %s = %s\n", key, rowData[key])
	}
}

func groupByTab(results []models.SearchResult) map[string][]models.SearchResult {
	groups := map[string][]models.SearchResult{}
	for _, r := range results {
		groups[r.TabName] = append(groups[r.TabName], r)
	}
	return groups
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
