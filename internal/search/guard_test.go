package search

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetsync/triage/internal/cache"
	"github.com/meetsync/triage/internal/types"
)

// fakeClient fails a configurable number of times before succeeding
type fakeClient struct {
	calls    int32
	failures int32
	err      error
	issues   []*types.ExistingIssue
}

func (f *fakeClient) Search(ctx context.Context, projectKey string, queryTerms []string, maxResults int, includeResolved bool) ([]*types.ExistingIssue, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= f.failures {
		return nil, f.err
	}
	return f.issues, nil
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	cfg.RatePerSecond = 1000
	cfg.Burst = 1000
	return cfg
}

func TestGuardRetriesRetryableErrors(t *testing.T) {
	client := &fakeClient{
		failures: 2,
		err:      fmt.Errorf("tracker 503: %w", ErrUnavailable),
		issues:   []*types.ExistingIssue{{Key: "WEB-1", Summary: "found"}},
	}
	guard, err := NewGuard(client, fastConfig())
	require.NoError(t, err)

	issues, err := guard.Search(context.Background(), "WEB", []string{"login"}, 50, false)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&client.calls))
}

func TestGuardGivesUpAfterMaxRetries(t *testing.T) {
	client := &fakeClient{
		failures: 100,
		err:      fmt.Errorf("quota exceeded: %w", ErrRateLimited),
	}
	cfg := fastConfig()
	cfg.MaxRetries = 2
	guard, err := NewGuard(client, cfg)
	require.NoError(t, err)

	_, err = guard.Search(context.Background(), "WEB", []string{"login"}, 50, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(3), atomic.LoadInt32(&client.calls), "initial attempt plus two retries")
}

func TestGuardDoesNotRetryNonRetryableErrors(t *testing.T) {
	fatal := errors.New("malformed query")
	client := &fakeClient{failures: 100, err: fatal}
	guard, err := NewGuard(client, fastConfig())
	require.NoError(t, err)

	_, err = guard.Search(context.Background(), "WEB", []string{"login"}, 50, false)
	require.ErrorIs(t, err, fatal)
	assert.Equal(t, int32(1), atomic.LoadInt32(&client.calls))
}

func TestGuardRespectsCancellation(t *testing.T) {
	client := &fakeClient{
		failures: 100,
		err:      fmt.Errorf("flaky: %w", ErrUnavailable),
	}
	cfg := fastConfig()
	cfg.InitialBackoff = time.Second
	guard, err := NewGuard(client, cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err = guard.Search(ctx, "WEB", []string{"login"}, 50, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewGuardValidation(t *testing.T) {
	_, err := NewGuard(nil, DefaultConfig())
	assert.Error(t, err)

	bad := DefaultConfig()
	bad.MaxConcurrent = 0
	_, err = NewGuard(&fakeClient{}, bad)
	assert.Error(t, err)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrRateLimited))
	assert.True(t, IsRetryable(ErrUnavailable))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", ErrUnavailable)))
	assert.True(t, IsRetryable(context.DeadlineExceeded))
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(errors.New("bad request")))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"zero backoff", func(c *Config) { c.InitialBackoff = 0 }},
		{"max below initial backoff", func(c *Config) { c.MaxBackoff = c.InitialBackoff / 2 }},
		{"multiplier below one", func(c *Config) { c.BackoffMultiplier = 0.5 }},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"zero concurrency", func(c *Config) { c.MaxConcurrent = 0 }},
		{"zero rate", func(c *Config) { c.RatePerSecond = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// fakeProvider counts upstream fetches
type fakeProvider struct {
	calls int32
	err   error
}

func (f *fakeProvider) GetContext(ctx context.Context, projectKey string) (*types.ProjectContext, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return &types.ProjectContext{ProjectKey: projectKey, Schema: types.SchemaClassic}, nil
}

func TestCachedContextProviderReadsThrough(t *testing.T) {
	c, err := cache.New(cache.DefaultConfig())
	require.NoError(t, err)
	provider := &fakeProvider{}
	cached, err := NewCachedContextProvider(provider, c, 30*time.Minute)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		pctx, err := cached.GetContext(ctx, "WEB")
		require.NoError(t, err)
		assert.Equal(t, "WEB", pctx.ProjectKey)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&provider.calls), "upstream hit once, then cached")

	// Stale peek works without touching the upstream
	pctx, ok := cached.PeekContext("WEB")
	assert.True(t, ok)
	assert.Equal(t, "WEB", pctx.ProjectKey)
	_, ok = cached.PeekContext("OTHER")
	assert.False(t, ok)
}

func TestCachedContextProviderPropagatesFailure(t *testing.T) {
	c, err := cache.New(cache.DefaultConfig())
	require.NoError(t, err)
	provider := &fakeProvider{err: fmt.Errorf("tracker down: %w", ErrUnavailable)}
	cached, err := NewCachedContextProvider(provider, c, 30*time.Minute)
	require.NoError(t, err)

	_, err = cached.GetContext(context.Background(), "WEB")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)

	// Failure is not cached: a recovered upstream serves the next call
	provider.err = nil
	pctx, err := cached.GetContext(context.Background(), "WEB")
	require.NoError(t, err)
	assert.Equal(t, "WEB", pctx.ProjectKey)
}
