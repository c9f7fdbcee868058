package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gridwise-ai/gridwise-engine/pkg/analyzer"
	"github.com/gridwise-ai/gridwise-engine/pkg/apperrors"
	"github.com/gridwise-ai/gridwise-engine/pkg/config"
	"github.com/gridwise-ai/gridwise-engine/pkg/ingest"
	"github.com/gridwise-ai/gridwise-engine/pkg/llm"
	"github.com/gridwise-ai/gridwise-engine/pkg/query"
	"github.com/gridwise-ai/gridwise-engine/pkg/rowstore"
	"github.com/gridwise-ai/gridwise-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	configPath string
	verbose    bool
	jsonOutput bool
	sheetName  string
	tabName    string
	files      []string

	logger *zap.Logger
	cfg    *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "gridwise",
	Short: "gridwise-engine - schema-less spreadsheet question answering",
	Long: `gridwise answers natural-language questions about spreadsheet data
without requiring any schema. Sheets are ingested as raw rows; structure
(headers, fields, data regions) is discovered automatically at query time.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath, Version)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [file.xlsx ...]",
	Short: "Load spreadsheet files into the configured row store",
	Long: `Reads every tab of each .xlsx file and stores the raw rows.
Requires a configured PostgreSQL row store; the in-memory store does not
outlive the process.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a natural-language question about stored spreadsheet data",
	Long: `Answers a question against the configured row store, or against
workbooks loaded for this invocation with --file.

Examples:
  gridwise ask "what was the tank level on 12.12.2025"
  gridwise ask --file plant.xlsx "show me the latest data"
  gridwise ask --sheet "Plant Log" --tab Daily "what fields are available"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var sheetsCmd = &cobra.Command{
	Use:   "sheets",
	Short: "List sheets in the configured row store",
	RunE:  runSheets,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Configuration file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	askCmd.Flags().StringSliceVarP(&files, "file", "f", nil, "Workbook to load for this question (repeatable)")
	askCmd.Flags().StringVar(&sheetName, "sheet", "", "Restrict the question to one sheet by name")
	askCmd.Flags().StringVar(&tabName, "tab", "", "Restrict the question to one tab")
	askCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full answer as JSON")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(sheetsCmd)
}

// openPostgres connects, migrates, and returns the Postgres row store.
func openPostgres(ctx context.Context) (*rowstore.PostgresStore, error) {
	connStr := cfg.Database.ConnectionString()
	if err := rowstore.RunMigrations(connStr, logger); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	pool, err := rowstore.Connect(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return rowstore.NewPostgresStore(pool), nil
}

// buildProcessor wires the full answer pipeline on top of a row store.
func buildProcessor(store rowstore.Store) (services.QueryProcessor, error) {
	an := analyzer.New(analyzer.Config{
		HeaderScanRows:       cfg.Analyzer.HeaderScanRows,
		TextRatioWeight:      cfg.Analyzer.TextRatioWeight,
		KeywordBonus:         cfg.Analyzer.KeywordBonus,
		EmptyPenaltyWeight:   cfg.Analyzer.EmptyPenaltyWeight,
		ConfidenceCutoff:     cfg.Analyzer.ConfidenceCutoff,
		TransitionConfidence: cfg.Analyzer.TransitionConfidence,
		MaxSampleValues:      cfg.Analyzer.MaxSampleValues,
	}, logger)

	renderer, err := llm.NewRenderer(&cfg.Renderer, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	if renderer == nil {
		logger.Info("no renderer configured, answers use deterministic formatting")
	}

	cache := services.NewStructureCache(store, an, logger)
	searcher := services.NewSearcher(store, cache, cfg.Search, logger)
	data := services.NewDataService(store, cache, logger)
	formatter := services.NewResponseFormatter(renderer, cfg.Renderer, logger)
	normalizer := query.New(logger)

	return services.NewQueryProcessor(normalizer, searcher, data, formatter, store, logger), nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	if !cfg.Database.Configured() {
		return fmt.Errorf("ingest requires a configured database (set PGHOST or database.host)")
	}
	ctx := cmd.Context()

	store, err := openPostgres(ctx)
	if err != nil {
		return err
	}
	ing := ingest.NewIngester(store, nil, logger)

	for _, path := range args {
		sheetID, err := ing.IngestFile(ctx, path)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", path, err)
		}
		fmt.Printf("Ingested %s as sheet %s\n", path, sheetID)
	}
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	ctx := cmd.Context()

	var store rowstore.Store
	switch {
	case len(files) > 0:
		mem := rowstore.NewMemoryStore()
		ing := ingest.NewIngester(mem, nil, logger)
		for _, path := range files {
			if _, err := ing.IngestFile(ctx, path); err != nil {
				return fmt.Errorf("failed to load %s: %w", path, err)
			}
		}
		store = mem
	case cfg.Database.Configured():
		pg, err := openPostgres(ctx)
		if err != nil {
			return err
		}
		store = pg
	default:
		return fmt.Errorf("no data source: configure a database or pass --file")
	}

	processor, err := buildProcessor(store)
	if err != nil {
		return err
	}

	sheetID, err := resolveSheetID(ctx, store, sheetName)
	if err != nil {
		return err
	}

	answer, err := processor.AnswerQuestion(ctx, question, sheetID, tabName)
	if err != nil {
		return fmt.Errorf("failed to answer question: %w", err)
	}

	if jsonOutput {
		out, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode answer: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Println(answer.Text)
	if len(answer.Response.Warnings) > 0 {
		fmt.Fprintf(os.Stderr, "warnings: %s\n", strings.Join(answer.Response.Warnings, "; "))
	}
	return nil
}

func runSheets(cmd *cobra.Command, args []string) error {
	if !cfg.Database.Configured() {
		return fmt.Errorf("sheets requires a configured database (set PGHOST or database.host)")
	}
	ctx := cmd.Context()

	store, err := openPostgres(ctx)
	if err != nil {
		return err
	}

	sheets, err := store.ListSheets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sheets: %w", err)
	}
	if len(sheets) == 0 {
		fmt.Println("No sheets stored.")
		return nil
	}
	for _, s := range sheets {
		tabs, err := store.ListTabs(ctx, s.ID)
		if err != nil {
			return fmt.Errorf("failed to list tabs for %s: %w", s.Name, err)
		}
		fmt.Printf("%s  %s  tabs: %s  synced: %s\n",
			s.ID, s.Name, strings.Join(tabs, ", "), s.SyncedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// resolveSheetID maps a sheet name to its ID; empty name means all sheets.
func resolveSheetID(ctx context.Context, store rowstore.Store, name string) (uuid.UUID, error) {
	if name == "" {
		return uuid.Nil, nil
	}
	sheets, err := store.ListSheets(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to list sheets: %w", err)
	}
	for _, s := range sheets {
		if strings.EqualFold(s.Name, name) {
			return s.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("sheet %q: %w", name, apperrors.ErrNotFound)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
