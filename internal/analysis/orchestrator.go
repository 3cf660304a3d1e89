package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meetsync/triage/internal/cache"
	"github.com/meetsync/triage/internal/scoring"
	"github.com/meetsync/triage/internal/search"
	"github.com/meetsync/triage/internal/types"
)

// Orchestrator coordinates one duplicate analysis end to end: term
// extraction, cached candidate search, project context lookup, bounded
// parallel scoring, and ranking. Safe for concurrent use.
type Orchestrator struct {
	config   Config
	scorer   *scoring.Scorer
	client   search.CandidateSearchClient
	contexts *search.CachedContextProvider
	cache    *cache.Cache
}

// NewOrchestrator creates an analysis orchestrator. The client should
// already be wrapped with retry and rate limiting (see search.Guard); the
// orchestrator only adds caching and degradation on top.
func NewOrchestrator(config Config, scorer *scoring.Scorer, client search.CandidateSearchClient, contexts *search.CachedContextProvider, c *cache.Cache) (*Orchestrator, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if scorer == nil {
		return nil, fmt.Errorf("scorer cannot be nil")
	}
	if client == nil {
		return nil, fmt.Errorf("search client cannot be nil")
	}
	if c == nil {
		return nil, fmt.Errorf("cache cannot be nil")
	}
	return &Orchestrator{
		config:   config,
		scorer:   scorer,
		client:   client,
		contexts: contexts,
		cache:    c,
	}, nil
}

// searchCacheKey fingerprints a candidate search so identical queries share
// one cache entry and one in-flight fetch
func searchCacheKey(projectKey string, terms []string, maxResults int, includeResolved bool) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%d|%t", projectKey, strings.Join(terms, " "), maxResults, includeResolved)
	return "candidate-search:" + hex.EncodeToString(h.Sum(nil))[:16]
}

// Analyze runs one duplicate analysis for a task. Validation failures are
// rejected up front; upstream failures and caller deadlines degrade to stale
// cached candidates (Partial=true) when any exist, and fail hard only when
// there is nothing to fall back to.
func (o *Orchestrator) Analyze(ctx context.Context, task *types.Task, projectKey string, opts Options) (*DuplicateAnalysis, error) {
	start := time.Now()

	if task == nil {
		return nil, fmt.Errorf("%w: task is required", ErrValidation)
	}
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if projectKey == "" {
		projectKey = task.ProjectKey
	}
	if projectKey == "" {
		return nil, fmt.Errorf("%w: project key is required", ErrValidation)
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = o.config.MaxResults
	}

	terms := scoring.SearchTerms(task.Summary + " " + task.Description)
	if len(terms) > o.config.MaxSearchTerms {
		terms = terms[:o.config.MaxSearchTerms]
	}

	candidates, partial, err := o.fetchCandidates(ctx, projectKey, terms, maxResults, opts.IncludeResolved)
	if err != nil {
		return nil, err
	}

	pctx := o.projectContext(ctx, projectKey)
	now := time.Now()
	results := o.scoreCandidates(task, candidates, pctx, now)
	scoring.SortResults(results)

	analysis := &DuplicateAnalysis{
		ID:              uuid.New().String(),
		Task:            task,
		ProjectKey:      projectKey,
		SearchTerms:     terms,
		Results:         results,
		EpicSuggestions: o.scorer.SuggestEpics(task, pctx, 3),
		Partial:         partial,
		TotalSearched:   len(candidates),
		AnalyzedAt:      now,
		ElapsedMs:       time.Since(start).Milliseconds(),
	}
	if len(results) > 0 {
		analysis.BestMatch = &results[0]
		analysis.RecommendedAction = ActionForClass(results[0].MatchClass)
	} else {
		analysis.RecommendedAction = ActionCreateNew
	}
	analysis.Reasoning = reasoning(analysis.BestMatch)
	if partial {
		analysis.Reasoning += " (partial: computed from cached candidates only)"
	}
	return analysis, nil
}

// fetchCandidates resolves the candidate pool through the search cache.
// On upstream failure it falls back to a stale cached pool when one exists.
func (o *Orchestrator) fetchCandidates(ctx context.Context, projectKey string, terms []string, maxResults int, includeResolved bool) ([]*types.ExistingIssue, bool, error) {
	key := searchCacheKey(projectKey, terms, maxResults, includeResolved)

	val, err := o.cache.Get(ctx, key, o.config.SearchTTL, func(ctx context.Context) (any, error) {
		return o.client.Search(ctx, projectKey, terms, maxResults, includeResolved)
	})
	if err == nil {
		return val.([]*types.ExistingIssue), false, nil
	}

	// A stale pool degrades every failure mode, including the caller's own
	// deadline firing mid-search. Hard errors are reserved for a cold cache.
	if stale, ok := o.cache.PeekStale(key); ok {
		log.Printf("[ANALYSIS] Search failed for %s, degrading to stale cached candidates: %v", projectKey, err)
		return stale.([]*types.ExistingIssue), true, nil
	}
	if ctx.Err() != nil {
		return nil, false, ctx.Err()
	}
	return nil, false, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
}

// projectContext fetches project metadata, tolerating failure: contextual
// scoring simply degrades to zero without it.
func (o *Orchestrator) projectContext(ctx context.Context, projectKey string) *types.ProjectContext {
	if o.contexts == nil {
		return nil
	}
	pctx, err := o.contexts.GetContext(ctx, projectKey)
	if err == nil {
		return pctx
	}
	if stale, ok := o.contexts.PeekContext(projectKey); ok {
		return stale
	}
	log.Printf("[ANALYSIS] Project context unavailable for %s, contextual factor degrades to 0: %v", projectKey, err)
	return nil
}

// scoreCandidates scores every candidate on a fixed worker pool. Scoring is
// pure; workers share nothing but the output slice, each writing its own
// index.
func (o *Orchestrator) scoreCandidates(task *types.Task, candidates []*types.ExistingIssue, pctx *types.ProjectContext, now time.Time) []scoring.SimilarityResult {
	results := make([]scoring.SimilarityResult, len(candidates))
	if len(candidates) == 0 {
		return results
	}

	workers := o.config.ScoreWorkers
	if workers > len(candidates) {
		workers = len(candidates)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = o.scorer.Score(task, candidates[i], pctx, now)
			}
		}()
	}
	for i := range candidates {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}
