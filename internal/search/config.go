package search

import (
	"fmt"
	"time"
)

// Config holds retry, rate-limit, and concurrency settings for guarded
// search clients
type Config struct {
	// MaxRetries is the number of retries after the initial attempt
	// Default: 2
	MaxRetries int

	// InitialBackoff is the delay before the first retry
	// Default: 500ms
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff growth
	// Default: 5s
	MaxBackoff time.Duration

	// BackoffMultiplier grows the backoff between attempts
	// Default: 2.0
	BackoffMultiplier float64

	// Timeout bounds each individual search attempt
	// Default: 10s
	Timeout time.Duration

	// MaxConcurrent caps outstanding search calls ACROSS all in-flight
	// analyses, not per analysis. The tracker is rate-limited upstream;
	// this is our side of that contract.
	// Default: 4
	MaxConcurrent int

	// RatePerSecond is the sustained request rate allowed against the
	// tracker. Default: 5
	RatePerSecond float64

	// Burst is the rate limiter burst size
	// Default: 10
	Burst int
}

// DefaultConfig returns the default search guard configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:        2,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Timeout:           10 * time.Second,
		MaxConcurrent:     4,
		RatePerSecond:     5,
		Burst:             10,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative (got %d)", c.MaxRetries)
	}
	if c.MaxRetries > 10 {
		return fmt.Errorf("max_retries too large (got %d, max 10)", c.MaxRetries)
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be positive (got %v)", c.InitialBackoff)
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff must be >= initial_backoff (got %v < %v)", c.MaxBackoff, c.InitialBackoff)
	}
	if c.BackoffMultiplier < 1.0 {
		return fmt.Errorf("backoff_multiplier must be >= 1.0 (got %.2f)", c.BackoffMultiplier)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive (got %v)", c.Timeout)
	}
	if c.Timeout > 5*time.Minute {
		return fmt.Errorf("timeout too large (got %v, max 5 minutes)", c.Timeout)
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("max_concurrent must be positive (got %d)", c.MaxConcurrent)
	}
	if c.RatePerSecond <= 0 {
		return fmt.Errorf("rate_per_second must be positive (got %.2f)", c.RatePerSecond)
	}
	if c.Burst <= 0 {
		return fmt.Errorf("burst must be positive (got %d)", c.Burst)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf("Config{Retries: %d, Backoff: %v..%v, Timeout: %v, MaxConcurrent: %d, Rate: %.1f/s burst %d}",
		c.MaxRetries, c.InitialBackoff, c.MaxBackoff, c.Timeout, c.MaxConcurrent, c.RatePerSecond, c.Burst)
}
