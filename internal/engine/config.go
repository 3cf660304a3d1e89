package engine

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/meetsync/triage/internal/analysis"
	"github.com/meetsync/triage/internal/cache"
	"github.com/meetsync/triage/internal/scoring"
	"github.com/meetsync/triage/internal/search"
)

// Config aggregates the engine's component configurations
type Config struct {
	// DBPath is the SQLite database location for resolutions and audit
	DBPath string

	// MetadataTTL is the cache lifetime for project context
	MetadataTTL time.Duration

	// Weights are the scoring factor weights. Overridable from a YAML
	// file via LoadWeights.
	Weights scoring.Weights

	Cache    cache.Config
	Search   search.Config
	Analysis analysis.Config
}

// DefaultConfig returns the default engine configuration
func DefaultConfig() Config {
	return Config{
		DBPath:      ".triage/triage.db",
		MetadataTTL: 30 * time.Minute,
		Weights:     scoring.DefaultWeights(),
		Cache:       cache.DefaultConfig(),
		Search:      search.DefaultConfig(),
		Analysis:    analysis.DefaultConfig(),
	}
}

// Validate checks the full configuration
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.MetadataTTL <= 0 {
		return fmt.Errorf("metadata TTL must be positive (got %v)", c.MetadataTTL)
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("weights: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := c.Analysis.Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	return nil
}

// ConfigFromEnv creates a Config from environment variables, falling back
// to defaults
//
// Environment variables:
//   - TRIAGE_DB_PATH: SQLite database path (default: .triage/triage.db)
//   - TRIAGE_METADATA_TTL_MINS: project context cache TTL in minutes (default: 30)
//   - TRIAGE_SEARCH_TTL_SECS: candidate search cache TTL in seconds (default: 300)
//   - TRIAGE_CACHE_MAX_ENTRIES: cache capacity bound (default: 1024)
//   - TRIAGE_MAX_RESULTS: default candidate pool bound (default: 50)
//   - TRIAGE_SCORE_WORKERS: scoring worker pool size (default: 8)
//   - TRIAGE_BATCH_WORKERS: concurrent per-task analyses in a batch (default: 4)
//   - TRIAGE_SEARCH_MAX_CONCURRENT: global cap on in-flight searches (default: 4)
//   - TRIAGE_SEARCH_RATE_PER_SEC: client-side search rate limit (default: 5)
//   - TRIAGE_SEARCH_MAX_RETRIES: retry attempts for retryable search failures (default: 2)
//   - TRIAGE_SEARCH_TIMEOUT_SECS: per-attempt search timeout in seconds (default: 10)
//   - TRIAGE_WEIGHTS_FILE: YAML file overriding scoring weights
//
// Returns an error if any environment variable has an invalid value.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("TRIAGE_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if err := parseEnvDuration("TRIAGE_METADATA_TTL_MINS", &cfg.MetadataTTL, time.Minute); err != nil {
		return cfg, err
	}
	var searchTTL time.Duration
	if err := parseEnvDuration("TRIAGE_SEARCH_TTL_SECS", &searchTTL, time.Second); err != nil {
		return cfg, err
	}
	if searchTTL > 0 {
		cfg.Cache.SearchTTL = searchTTL
		cfg.Analysis.SearchTTL = searchTTL
	}
	cfg.Cache.MetadataTTL = cfg.MetadataTTL
	if err := parseEnvInt("TRIAGE_CACHE_MAX_ENTRIES", &cfg.Cache.MaxEntries); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("TRIAGE_MAX_RESULTS", &cfg.Analysis.MaxResults); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("TRIAGE_SCORE_WORKERS", &cfg.Analysis.ScoreWorkers); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("TRIAGE_BATCH_WORKERS", &cfg.Analysis.BatchWorkers); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("TRIAGE_SEARCH_MAX_CONCURRENT", &cfg.Search.MaxConcurrent); err != nil {
		return cfg, err
	}
	if err := parseEnvFloat("TRIAGE_SEARCH_RATE_PER_SEC", &cfg.Search.RatePerSecond); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("TRIAGE_SEARCH_MAX_RETRIES", &cfg.Search.MaxRetries); err != nil {
		return cfg, err
	}
	if err := parseEnvDuration("TRIAGE_SEARCH_TIMEOUT_SECS", &cfg.Search.Timeout, time.Second); err != nil {
		return cfg, err
	}

	if path := os.Getenv("TRIAGE_WEIGHTS_FILE"); path != "" {
		weights, err := LoadWeights(path)
		if err != nil {
			return cfg, err
		}
		cfg.Weights = weights
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration from environment: %w", err)
	}
	return cfg, nil
}

// LoadWeights reads scoring weights from a YAML file
func LoadWeights(path string) (scoring.Weights, error) {
	weights := scoring.DefaultWeights()
	data, err := os.ReadFile(path)
	if err != nil {
		return weights, fmt.Errorf("failed to read weights file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &weights); err != nil {
		return weights, fmt.Errorf("failed to parse weights file %s: %w", path, err)
	}
	if err := weights.Validate(); err != nil {
		return weights, fmt.Errorf("invalid weights in %s: %w", path, err)
	}
	return weights, nil
}

// parseEnvFloat parses a float64 from an environment variable
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvDuration parses a duration from an environment variable given a
// unit (e.g. time.Second for *_SECS variables)
func parseEnvDuration(key string, dest *time.Duration, unit time.Duration) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = time.Duration(parsed) * unit
	return nil
}
