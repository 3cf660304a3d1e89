// Package engine wires the scorer, cache, guarded search client, analysis
// orchestrator, and resolution workflow into one synchronous façade. CLI
// commands and embedders talk to this package only.
package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/meetsync/triage/internal/analysis"
	"github.com/meetsync/triage/internal/cache"
	"github.com/meetsync/triage/internal/resolution"
	"github.com/meetsync/triage/internal/scoring"
	"github.com/meetsync/triage/internal/search"
	"github.com/meetsync/triage/internal/storage"
	"github.com/meetsync/triage/internal/types"
)

// Engine is the top-level duplicate detection and resolution API.
// Safe for concurrent use.
type Engine struct {
	config       Config
	cache        *cache.Cache
	orchestrator *analysis.Orchestrator
	workflow     *resolution.Workflow
	store        *storage.SQLiteStore
}

// New assembles an engine from a raw search client and context provider.
// The client is wrapped with the retry/rate-limit guard; the provider is
// wrapped with the read-through context cache.
func New(config Config, client search.CandidateSearchClient, provider search.ProjectContextProvider) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("search client cannot be nil")
	}

	scorer, err := scoring.NewScorer(config.Weights)
	if err != nil {
		return nil, fmt.Errorf("create scorer: %w", err)
	}

	c, err := cache.New(config.Cache)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	guard, err := search.NewGuard(client, config.Search)
	if err != nil {
		return nil, fmt.Errorf("create search guard: %w", err)
	}

	var contexts *search.CachedContextProvider
	if provider != nil {
		contexts, err = search.NewCachedContextProvider(provider, c, config.MetadataTTL)
		if err != nil {
			return nil, fmt.Errorf("create context provider: %w", err)
		}
	}

	orchestrator, err := analysis.NewOrchestrator(config.Analysis, scorer, guard, contexts, c)
	if err != nil {
		return nil, fmt.Errorf("create orchestrator: %w", err)
	}

	store, err := storage.New(config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	workflow, err := resolution.NewWorkflow(store)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create workflow: %w", err)
	}

	log.Printf("[ENGINE] Initialized (db=%s, weights=%s)", config.DBPath, config.Weights.String())
	return &Engine{
		config:       config,
		cache:        c,
		orchestrator: orchestrator,
		workflow:     workflow,
		store:        store,
	}, nil
}

// Close releases the engine's resources
func (e *Engine) Close() error {
	return e.store.Close()
}

// DetectDuplicates analyzes one task against the project's existing issues
// and persists the analysis snapshot for later review
func (e *Engine) DetectDuplicates(ctx context.Context, task *types.Task, projectKey string, opts analysis.Options) (*analysis.DuplicateAnalysis, error) {
	a, err := e.orchestrator.Analyze(ctx, task, projectKey, opts)
	if err != nil {
		return nil, err
	}
	if err := e.store.SaveAnalysis(ctx, a); err != nil {
		// Persistence failure downgrades to a warning: the caller still
		// gets the analysis.
		log.Printf("[ENGINE] Failed to persist analysis %s: %v", a.ID, err)
	}
	return a, nil
}

// DetectBatch analyzes a batch of tasks, including intra-batch
// cross-referencing, and persists each per-task snapshot
func (e *Engine) DetectBatch(ctx context.Context, tasks []*types.Task, projectKey string, opts analysis.Options) (*analysis.BatchAnalysis, error) {
	batch, err := e.orchestrator.AnalyzeBatch(ctx, tasks, projectKey, opts)
	if err != nil {
		return nil, err
	}
	for _, a := range batch.Analyses {
		if err := e.store.SaveAnalysis(ctx, a); err != nil {
			log.Printf("[ENGINE] Failed to persist analysis %s: %v", a.ID, err)
		}
	}
	return batch, nil
}

// Resolve applies a resolution decision for a task
func (e *Engine) Resolve(ctx context.Context, req *resolution.Request) (*resolution.Record, error) {
	return e.workflow.Resolve(ctx, req)
}

// ResolutionStatus returns the resolution for a task, or
// resolution.ErrNotFound if the task is unresolved
func (e *Engine) ResolutionStatus(ctx context.Context, taskID string) (*resolution.Record, error) {
	return e.workflow.Status(ctx, taskID)
}

// ResolutionHistory lists recent resolutions, newest first
func (e *Engine) ResolutionHistory(ctx context.Context, limit int) ([]*resolution.Record, error) {
	return e.workflow.History(ctx, limit)
}

// AuditTrail returns a task's audit events, oldest first
func (e *Engine) AuditTrail(ctx context.Context, taskID string) ([]*resolution.AuditEvent, error) {
	return e.store.ListAuditByTask(ctx, taskID)
}

// PendingReview returns persisted analyses whose tasks have no resolution
func (e *Engine) PendingReview(ctx context.Context, limit int) ([]*analysis.DuplicateAnalysis, error) {
	if limit <= 0 {
		limit = 50
	}
	return e.store.PendingReview(ctx, limit)
}

// Analysis loads a persisted analysis snapshot by ID
func (e *Engine) Analysis(ctx context.Context, id string) (*analysis.DuplicateAnalysis, error) {
	return e.store.GetAnalysis(ctx, id)
}

// CacheStats returns a snapshot of cache hit/miss/eviction counters
func (e *Engine) CacheStats() cache.Stats {
	return e.cache.GetStats()
}

// InvalidateProject drops the cached context for a project, forcing a
// fresh fetch on the next analysis
func (e *Engine) InvalidateProject(projectKey string) {
	e.cache.Invalidate(search.ContextKey(projectKey))
}
