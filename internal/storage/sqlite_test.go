package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetsync/triage/internal/analysis"
	"github.com/meetsync/triage/internal/resolution"
	"github.com/meetsync/triage/internal/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "triage.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testRecord(taskID string) *resolution.Record {
	return &resolution.Record{
		ID:          "rec-" + taskID,
		TaskID:      taskID,
		Type:        resolution.TypeMerge,
		ChosenIssue: "WEB-100",
		Actor:       "alice",
		Notes:       "same root cause",
		ResolvedAt:  time.Now().UTC().Truncate(time.Second),
	}
}

func TestResolutionRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := testRecord("task-1")
	require.NoError(t, store.SaveResolution(ctx, rec))

	got, err := store.GetResolutionByTask(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Type, got.Type)
	assert.Equal(t, rec.ChosenIssue, got.ChosenIssue)
	assert.Equal(t, rec.Actor, got.Actor)
	assert.Equal(t, rec.Notes, got.Notes)
	assert.True(t, rec.ResolvedAt.Equal(got.ResolvedAt), "resolved_at: want %v, got %v", rec.ResolvedAt, got.ResolvedAt)
}

func TestGetResolutionNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetResolutionByTask(context.Background(), "missing")
	assert.ErrorIs(t, err, resolution.ErrNotFound)
}

func TestSaveResolutionReplacesPerTask(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := testRecord("task-1")
	require.NoError(t, store.SaveResolution(ctx, first))

	second := testRecord("task-1")
	second.ID = "rec-override"
	second.Type = resolution.TypeSkip
	second.ChosenIssue = ""
	require.NoError(t, store.SaveResolution(ctx, second))

	got, err := store.GetResolutionByTask(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, "rec-override", got.ID)
	assert.Equal(t, resolution.TypeSkip, got.Type)
	assert.Empty(t, got.ChosenIssue)

	records, err := store.ListResolutions(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1, "one live resolution per task")
}

func TestListResolutionsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, taskID := range []string{"task-a", "task-b", "task-c"} {
		rec := testRecord(taskID)
		rec.ID = "rec-" + taskID
		rec.ResolvedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.SaveResolution(ctx, rec))
	}

	records, err := store.ListResolutions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "task-c", records[0].TaskID)
	assert.Equal(t, "task-b", records[1].TaskID)
}

func TestAuditTrail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	events := []*resolution.AuditEvent{
		{ID: "ev-1", TaskID: "task-1", Action: resolution.AuditResolved, Actor: "alice", Detail: "resolved as skip", CreatedAt: base},
		{ID: "ev-2", TaskID: "task-1", Action: resolution.AuditSuperseded, Actor: "bob", Detail: "forced override", CreatedAt: base.Add(time.Minute)},
		{ID: "ev-3", TaskID: "task-2", Action: resolution.AuditResolved, Actor: "alice", CreatedAt: base},
	}
	for _, e := range events {
		require.NoError(t, store.AppendAudit(ctx, e))
	}

	trail, err := store.ListAuditByTask(ctx, "task-1")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, "ev-1", trail[0].ID)
	assert.Equal(t, "ev-2", trail[1].ID)
	assert.Equal(t, resolution.AuditSuperseded, trail[1].Action)
}

func testAnalysis(id, taskID string) *analysis.DuplicateAnalysis {
	return &analysis.DuplicateAnalysis{
		ID:                id,
		Task:              &types.Task{ID: taskID, Summary: "Fix login timeout", ProjectKey: "WEB"},
		ProjectKey:        "WEB",
		RecommendedAction: analysis.ActionCreateNew,
		Reasoning:         "No similar issues found in project",
		AnalyzedAt:        time.Now().UTC().Truncate(time.Second),
	}
}

func TestAnalysisRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := testAnalysis("an-1", "task-1")
	a.Partial = true
	require.NoError(t, store.SaveAnalysis(ctx, a))

	got, err := store.GetAnalysis(ctx, "an-1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, "task-1", got.Task.ID)
	assert.Equal(t, analysis.ActionCreateNew, got.RecommendedAction)
	assert.True(t, got.Partial)

	_, err = store.GetAnalysis(ctx, "missing")
	assert.ErrorIs(t, err, resolution.ErrNotFound)
}

func TestPendingReview(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveAnalysis(ctx, testAnalysis("an-1", "task-1")))
	require.NoError(t, store.SaveAnalysis(ctx, testAnalysis("an-2", "task-2")))

	// Resolving task-1 removes it from the review queue
	rec := testRecord("task-1")
	require.NoError(t, store.SaveResolution(ctx, rec))

	pending, err := store.PendingReview(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "an-2", pending[0].ID)
}

func TestWorkflowAgainstSQLite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	w, err := resolution.NewWorkflow(store)
	require.NoError(t, err)

	rec, err := w.Resolve(ctx, &resolution.Request{
		TaskID: "task-1", Type: resolution.TypeSkip, Actor: "alice",
	})
	require.NoError(t, err)

	// Idempotent replay hits the persisted record
	again, err := w.Resolve(ctx, &resolution.Request{
		TaskID: "task-1", Type: resolution.TypeSkip, Actor: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, rec.ID, again.ID)

	// Conflicting decision is rejected without force
	_, err = w.Resolve(ctx, &resolution.Request{
		TaskID: "task-1", Type: resolution.TypeCreateAnyway, Actor: "bob",
	})
	var conflict *resolution.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, rec.ID, conflict.Existing.ID)
}
