package search

import (
	"context"
	"fmt"
	"time"

	"github.com/meetsync/triage/internal/cache"
	"github.com/meetsync/triage/internal/types"
)

// CachedContextProvider is the read-through path for project metadata.
// Consumers always go through here; the underlying provider is only hit
// when the cache entry is missing or stale, and at most once concurrently
// per project (single-flight is the cache's job).
type CachedContextProvider struct {
	provider ProjectContextProvider
	cache    *cache.Cache
	ttl      time.Duration
}

// NewCachedContextProvider wraps a raw provider with the context cache
func NewCachedContextProvider(provider ProjectContextProvider, c *cache.Cache, ttl time.Duration) (*CachedContextProvider, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	if c == nil {
		return nil, fmt.Errorf("cache cannot be nil")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl must be positive (got %v)", ttl)
	}
	return &CachedContextProvider{provider: provider, cache: c, ttl: ttl}, nil
}

// ContextKey is the cache key under which a project's context is stored.
// Exported so callers invalidating project metadata address the same entry
// the provider populates.
func ContextKey(projectKey string) string {
	return "project-context:" + projectKey
}

// GetContext returns the cached project context, populating on a miss
func (p *CachedContextProvider) GetContext(ctx context.Context, projectKey string) (*types.ProjectContext, error) {
	if projectKey == "" {
		return nil, fmt.Errorf("project key is required")
	}

	val, err := p.cache.Get(ctx, ContextKey(projectKey), p.ttl, func(ctx context.Context) (any, error) {
		pctx, err := p.provider.GetContext(ctx, projectKey)
		if err != nil {
			return nil, fmt.Errorf("fetch project context for %s: %w", projectKey, err)
		}
		if pctx == nil {
			return nil, fmt.Errorf("provider returned no context for %s", projectKey)
		}
		if err := pctx.Validate(); err != nil {
			return nil, fmt.Errorf("invalid project context for %s: %w", projectKey, err)
		}
		return pctx, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(*types.ProjectContext), nil
}

// PeekContext returns a cached context without touching the upstream, even
// if the entry is past its TTL. Used on the degraded path.
func (p *CachedContextProvider) PeekContext(projectKey string) (*types.ProjectContext, bool) {
	val, ok := p.cache.PeekStale(ContextKey(projectKey))
	if !ok {
		return nil, false
	}
	return val.(*types.ProjectContext), true
}
