package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for gridwise-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (API keys, passwords) must only come from environment variables.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	// Structure analysis tuning
	Analyzer AnalyzerConfig `yaml:"analyzer"`

	// Cross-tab search behavior
	Search SearchConfig `yaml:"search"`

	// Natural-language rendering of answers (optional)
	Renderer RendererConfig `yaml:"renderer"`

	// Row store backend (PostgreSQL), optional; the in-memory store is used
	// when no host is configured.
	Database DatabaseConfig `yaml:"database"`
}

// AnalyzerConfig tunes header detection and field cataloging. The defaults
// are the empirically tuned values; they are exposed because header scoring
// weights are deployment-sensitive for unusual sheet layouts.
type AnalyzerConfig struct {
	// HeaderScanRows is how many leading rows are scored as header candidates.
	HeaderScanRows int `yaml:"header_scan_rows" env:"ANALYZER_HEADER_SCAN_ROWS" env-default:"5"`
	// TextRatioWeight scales the fraction of text cells in a candidate row.
	TextRatioWeight float64 `yaml:"text_ratio_weight" env:"ANALYZER_TEXT_RATIO_WEIGHT" env-default:"0.7"`
	// KeywordBonus is added once when any cell contains a header keyword.
	KeywordBonus float64 `yaml:"keyword_bonus" env:"ANALYZER_KEYWORD_BONUS" env-default:"0.2"`
	// EmptyPenaltyWeight scales the fraction of empty cells subtracted.
	EmptyPenaltyWeight float64 `yaml:"empty_penalty_weight" env:"ANALYZER_EMPTY_PENALTY_WEIGHT" env-default:"0.3"`
	// ConfidenceCutoff is the minimum score for a row to count as a header.
	ConfidenceCutoff float64 `yaml:"confidence_cutoff" env:"ANALYZER_CONFIDENCE_CUTOFF" env-default:"0.5"`
	// TransitionConfidence is assigned to text-to-data transition candidates.
	TransitionConfidence float64 `yaml:"transition_confidence" env:"ANALYZER_TRANSITION_CONFIDENCE" env-default:"0.8"`
	// MaxSampleValues caps the sample values kept per cataloged field.
	MaxSampleValues int `yaml:"max_sample_values" env:"ANALYZER_MAX_SAMPLE_VALUES" env-default:"5"`
}

// SearchConfig bounds the per-tab search fan-out.
type SearchConfig struct {
	// TimeoutSeconds bounds a whole cross-tab search; partial results are
	// returned on expiry.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"SEARCH_TIMEOUT_SECONDS" env-default:"20"`
	// MaxConcurrency caps tabs searched in parallel.
	MaxConcurrency int `yaml:"max_concurrency" env:"SEARCH_MAX_CONCURRENCY" env-default:"8"`
	// SampleRowLimit caps rows pulled per field for broad-scope answers.
	SampleRowLimit int `yaml:"sample_row_limit" env:"SEARCH_SAMPLE_ROW_LIMIT" env-default:"20"`
}

// RendererConfig selects and tunes the model used to phrase final answers.
// The engine works without one; answers then use deterministic formatting.
type RendererConfig struct {
	// Provider is "openai", "anthropic", or "" to disable rendering.
	Provider string `yaml:"provider" env:"RENDERER_PROVIDER" env-default:""`
	Endpoint string `yaml:"endpoint" env:"RENDERER_ENDPOINT" env-default:""`
	Model    string `yaml:"model" env:"RENDERER_MODEL" env-default:""`
	APIKey   string `yaml:"-" env:"RENDERER_API_KEY"` // Secret - not in YAML
	// TimeoutSeconds bounds a single render call.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"RENDERER_TIMEOUT_SECONDS" env-default:"10"`
	MaxTokens      int `yaml:"max_tokens" env:"RENDERER_MAX_TOKENS" env-default:"500"`
}

// Enabled reports whether a renderer is configured.
func (c *RendererConfig) Enabled() bool {
	return c.Provider != "" && c.Model != ""
}

// Timeout returns the per-call render timeout as a duration.
func (c *RendererConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DatabaseConfig holds PostgreSQL row store configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:""`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"gridwise"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"gridwise_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// Configured reports whether a Postgres row store was configured.
func (c *DatabaseConfig) Configured() bool {
	return c.Host != ""
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Load reads configuration from path with environment variable overrides.
// When the file does not exist, configuration comes from environment
// variables and defaults alone.
func Load(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Analyzer.HeaderScanRows < 1 {
		return fmt.Errorf("analyzer.header_scan_rows must be at least 1")
	}
	if c.Analyzer.ConfidenceCutoff < 0 || c.Analyzer.ConfidenceCutoff > 1 {
		return fmt.Errorf("analyzer.confidence_cutoff must be in [0, 1]")
	}
	if c.Search.MaxConcurrency < 1 {
		return fmt.Errorf("search.max_concurrency must be at least 1")
	}
	switch c.Renderer.Provider {
	case "", "openai", "anthropic":
	default:
		return fmt.Errorf("renderer.provider must be openai, anthropic, or empty")
	}
	if c.Renderer.Enabled() && c.Renderer.APIKey == "" {
		return fmt.Errorf("RENDERER_API_KEY is required when a renderer is configured")
	}
	return nil
}
