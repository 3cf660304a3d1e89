// Package search defines the engine's boundary to the issue tracker: the
// candidate search client and the project context provider. Both are
// consumed capabilities; the tracker's own search is never reimplemented
// here. The package wraps raw clients with retry, rate limiting, and a
// global concurrency cap so upstream quotas are respected across all
// in-flight analyses.
package search

import (
	"context"
	"errors"

	"github.com/meetsync/triage/internal/types"
)

// Sentinel errors for the two retryable upstream failure modes. Raw client
// implementations wrap these so the guard can classify failures.
var (
	// ErrRateLimited indicates the tracker rejected the call for quota reasons
	ErrRateLimited = errors.New("search rate limited")

	// ErrUnavailable indicates a network-level failure reaching the tracker
	ErrUnavailable = errors.New("search upstream unavailable")
)

// CandidateSearchClient performs text/keyword search against the issue
// tracker. Implementations may fail with ErrRateLimited or ErrUnavailable;
// the orchestrator treats both as retryable-then-degrade, never fatal.
type CandidateSearchClient interface {
	// Search returns up to maxResults issues matching the query terms in
	// the given project. Resolved/closed issues are filtered out unless
	// includeResolved is set.
	Search(ctx context.Context, projectKey string, queryTerms []string, maxResults int, includeResolved bool) ([]*types.ExistingIssue, error)
}

// ProjectContextProvider fetches per-project metadata (epics, sprints,
// component owners). Consumers read through the context cache and never
// call this directly.
type ProjectContextProvider interface {
	GetContext(ctx context.Context, projectKey string) (*types.ProjectContext, error)
}

// IsRetryable reports whether an upstream error is worth retrying before
// degrading to cache-only results
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUnavailable) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
