package review

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetsync/triage/internal/analysis"
	"github.com/meetsync/triage/internal/resolution"
	"github.com/meetsync/triage/internal/scoring"
	"github.com/meetsync/triage/internal/types"
)

// fakeEngine records resolutions without a real store
type fakeEngine struct {
	pending  []*analysis.DuplicateAnalysis
	resolved []*resolution.Request
}

func (f *fakeEngine) PendingReview(ctx context.Context, limit int) ([]*analysis.DuplicateAnalysis, error) {
	return f.pending, nil
}

func (f *fakeEngine) Resolve(ctx context.Context, req *resolution.Request) (*resolution.Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	f.resolved = append(f.resolved, req)
	return &resolution.Record{
		ID: "rec-1", TaskID: req.TaskID, Type: req.Type,
		ChosenIssue: req.ChosenIssue, Actor: req.Actor,
	}, nil
}

func testPending() *analysis.DuplicateAnalysis {
	return &analysis.DuplicateAnalysis{
		ID:   "an-1",
		Task: &types.Task{ID: "task-1", Summary: "Fix login timeout", ProjectKey: "WEB"},
		Results: []scoring.SimilarityResult{
			{Issue: &types.ExistingIssue{Key: "WEB-100", Summary: "Login timeout"}, OverallScore: 0.9, MatchClass: scoring.MatchVerySimilar},
		},
		BestMatch: &scoring.SimilarityResult{
			Issue: &types.ExistingIssue{Key: "WEB-100", Summary: "Login timeout"}, OverallScore: 0.9, MatchClass: scoring.MatchVerySimilar,
		},
		RecommendedAction: analysis.ActionLikelyDuplicate,
	}
}

func newTestSession(t *testing.T, eng *fakeEngine) *Session {
	t.Helper()
	s, err := New(&Config{Engine: eng, Actor: "alice"})
	require.NoError(t, err)
	return s
}

func TestHandleCommandSkip(t *testing.T) {
	eng := &fakeEngine{}
	s := newTestSession(t, eng)

	done, err := s.handleCommand(context.Background(), testPending(), "skip")
	require.NoError(t, err)
	assert.True(t, done)
	require.Len(t, eng.resolved, 1)
	assert.Equal(t, resolution.TypeSkip, eng.resolved[0].Type)
	assert.Equal(t, "alice", eng.resolved[0].Actor)
	assert.Equal(t, "an-1", eng.resolved[0].AnalysisID)
}

func TestHandleCommandMergeWithIssue(t *testing.T) {
	eng := &fakeEngine{}
	s := newTestSession(t, eng)

	done, err := s.handleCommand(context.Background(), testPending(), "merge WEB-200")
	require.NoError(t, err)
	assert.True(t, done)
	require.Len(t, eng.resolved, 1)
	assert.Equal(t, resolution.TypeMerge, eng.resolved[0].Type)
	assert.Equal(t, "WEB-200", eng.resolved[0].ChosenIssue)
}

func TestHandleCommandMergeDefaultsToBestMatch(t *testing.T) {
	eng := &fakeEngine{}
	s := newTestSession(t, eng)

	_, err := s.handleCommand(context.Background(), testPending(), "merge")
	require.NoError(t, err)
	require.Len(t, eng.resolved, 1)
	assert.Equal(t, "WEB-100", eng.resolved[0].ChosenIssue)
}

func TestHandleCommandMergeWithoutBestMatch(t *testing.T) {
	eng := &fakeEngine{}
	s := newTestSession(t, eng)

	a := testPending()
	a.Results = nil
	a.BestMatch = nil
	_, err := s.handleCommand(context.Background(), a, "merge")
	assert.Error(t, err)
	assert.Empty(t, eng.resolved)
}

func TestHandleCommandQuit(t *testing.T) {
	s := newTestSession(t, &fakeEngine{})

	for _, line := range []string{"quit", "q", "exit"} {
		_, err := s.handleCommand(context.Background(), testPending(), line)
		assert.Equal(t, io.EOF, err, "command %q", line)
	}
}

func TestHandleCommandUnknown(t *testing.T) {
	s := newTestSession(t, &fakeEngine{})

	done, err := s.handleCommand(context.Background(), testPending(), "frobnicate")
	assert.Error(t, err)
	assert.False(t, done)
}

func TestHandleCommandNextDefers(t *testing.T) {
	eng := &fakeEngine{}
	s := newTestSession(t, eng)

	done, err := s.handleCommand(context.Background(), testPending(), "next")
	require.NoError(t, err)
	assert.True(t, done)
	assert.Empty(t, eng.resolved, "deferring must not record a resolution")
}
