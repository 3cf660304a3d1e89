package analysis

import (
	"fmt"
	"time"
)

// Config controls the analysis orchestrator
type Config struct {
	// MaxResults is the default candidate pool bound when an analysis
	// request does not set its own
	MaxResults int

	// MaxSearchTerms caps how many extracted terms go into the search query
	MaxSearchTerms int

	// ScoreWorkers is the size of the fixed scoring worker pool. Scoring
	// is CPU-bound; this bounds fan-out per analysis.
	ScoreWorkers int

	// BatchWorkers bounds concurrent per-task analyses during a batch run.
	// The global search concurrency cap still applies underneath.
	BatchWorkers int

	// SearchTTL is the cache lifetime for candidate search results
	SearchTTL time.Duration
}

// DefaultConfig returns the default orchestrator configuration
func DefaultConfig() Config {
	return Config{
		MaxResults:     50,
		MaxSearchTerms: 8,
		ScoreWorkers:   8,
		BatchWorkers:   4,
		SearchTTL:      5 * time.Minute,
	}
}

// Validate checks the configuration for correctness
func (c *Config) Validate() error {
	if c.MaxResults < 1 {
		return fmt.Errorf("max results must be at least 1, got %d", c.MaxResults)
	}
	if c.MaxSearchTerms < 1 {
		return fmt.Errorf("max search terms must be at least 1, got %d", c.MaxSearchTerms)
	}
	if c.ScoreWorkers < 1 {
		return fmt.Errorf("score workers must be at least 1, got %d", c.ScoreWorkers)
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("batch workers must be at least 1, got %d", c.BatchWorkers)
	}
	if c.SearchTTL <= 0 {
		return fmt.Errorf("search TTL must be positive, got %v", c.SearchTTL)
	}
	return nil
}
