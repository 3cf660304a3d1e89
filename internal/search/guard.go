package search

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/meetsync/triage/internal/types"
)

// Guard wraps a raw CandidateSearchClient with retry, exponential backoff,
// client-side rate limiting, and a global concurrency cap. One Guard is
// shared by every analysis so the cap holds across the whole process, not
// per analysis.
type Guard struct {
	client  CandidateSearchClient
	config  Config
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// Compile-time check that Guard itself satisfies the client interface
var _ CandidateSearchClient = (*Guard)(nil)

// NewGuard creates a guarded search client
func NewGuard(client CandidateSearchClient, config Config) (*Guard, error) {
	if client == nil {
		return nil, fmt.Errorf("client cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Guard{
		client:  client,
		config:  config,
		sem:     semaphore.NewWeighted(int64(config.MaxConcurrent)),
		limiter: rate.NewLimiter(rate.Limit(config.RatePerSecond), config.Burst),
	}, nil
}

// Search executes a guarded search. The call acquires a global concurrency
// slot, waits for the rate limiter, and retries retryable failures with
// exponential backoff. Non-retryable errors and exhausted retries surface
// to the caller, which degrades to cache-only results.
func (g *Guard) Search(ctx context.Context, projectKey string, queryTerms []string, maxResults int, includeResolved bool) ([]*types.ExistingIssue, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire search slot: %w", err)
	}
	defer g.sem.Release(1)

	var lastErr error
	backoff := g.config.InitialBackoff

	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("search rate limiter: %w", err)
		}

		attemptCtx, cancel := context.WithTimeout(ctx, g.config.Timeout)
		issues, err := g.client.Search(attemptCtx, projectKey, queryTerms, maxResults, includeResolved)
		cancel()

		if err == nil {
			if attempt > 0 {
				log.Printf("[SEARCH] %s succeeded after %d retries", projectKey, attempt)
			}
			return issues, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return nil, err
		}
		if attempt == g.config.MaxRetries {
			break
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("search canceled: %w", ctx.Err())
		}

		log.Printf("[SEARCH] %s failed (attempt %d/%d), retrying in %v: %v",
			projectKey, attempt+1, g.config.MaxRetries+1, backoff, err)

		select {
		case <-time.After(backoff):
			backoff = time.Duration(float64(backoff) * g.config.BackoffMultiplier)
			if backoff > g.config.MaxBackoff {
				backoff = g.config.MaxBackoff
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("search canceled during backoff: %w", ctx.Err())
		}
	}

	return nil, fmt.Errorf("search failed after %d attempts: %w", g.config.MaxRetries+1, lastErr)
}
