package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetsync/triage/internal/types"
)

func testContext() *types.ProjectContext {
	return &types.ProjectContext{
		ProjectKey: "WEB",
		Schema:     types.SchemaClassic,
		Epics:      []types.Epic{{Key: "WEB-100", Summary: "Auth overhaul"}},
		Sprints:    []types.Sprint{{ID: "42", Name: "Sprint 42", Active: true}},
	}
}

func TestScoreIdenticalIssueIsIdenticalClass(t *testing.T) {
	now := time.Now()
	scorer, err := NewScorer(DefaultWeights())
	require.NoError(t, err)

	task := &types.Task{
		ID:         "t-1",
		Summary:    "Fix login bug",
		Description: "Users cannot sign in with SSO",
		ProjectKey: "WEB",
		Assignee:   "dana",
		EpicKey:    "WEB-100",
	}
	issue := &types.ExistingIssue{
		Key:         "WEB-12",
		Summary:     "Fix login bug",
		Description: "Users cannot sign in with SSO",
		Status:      types.StatusOpen,
		Assignee:    "dana",
		UpdatedAt:   now.Add(-24 * time.Hour),
		ParentKey:   "WEB-100",
	}

	result := scorer.Score(task, issue, testContext(), now)
	require.NoError(t, result.Validate())

	assert.InDelta(t, 1.0, result.OverallScore, 1e-9)
	assert.Equal(t, MatchIdentical, result.MatchClass)
	assert.InDelta(t, 1.0, result.Factor(FactorTextual), 1e-9)
	assert.InDelta(t, 1.0, result.Factor(FactorSemantic), 1e-9)
	assert.InDelta(t, 1.0, result.Factor(FactorContextual), 1e-9)
	assert.InDelta(t, 1.0, result.Factor(FactorTemporal), 1e-9)
	assert.InDelta(t, 1.0, result.Factor(FactorAssignee), 1e-9)
	assert.Contains(t, result.MatchReasons, "high_text_similarity")
	assert.Contains(t, result.MatchReasons, "same_assignee")
}

func TestScoreUnrelatedIssueIsUnrelatedClass(t *testing.T) {
	now := time.Now()
	scorer, err := NewScorer(DefaultWeights())
	require.NoError(t, err)

	task := &types.Task{ID: "t-1", Summary: "Add dashboard widget", ProjectKey: "WEB"}
	issue := &types.ExistingIssue{
		Key:       "WEB-40",
		Summary:   "Refactor database layer",
		Status:    types.StatusOpen,
		UpdatedAt: now.Add(-200 * 24 * time.Hour),
		Assignee:  "sam",
	}

	result := scorer.Score(task, issue, testContext(), now)
	require.NoError(t, result.Validate())
	assert.Equal(t, MatchUnrelated, result.MatchClass)
	assert.Less(t, result.OverallScore, ThresholdRelated)
}

func TestScoreEmptyTextIsZeroNotError(t *testing.T) {
	now := time.Now()
	scorer, err := NewScorer(DefaultWeights())
	require.NoError(t, err)

	// Summary validation happens upstream; the scorer itself must handle
	// empty text by scoring the text factors 0.
	task := &types.Task{ID: "t-1", Summary: "", ProjectKey: "WEB"}
	issue := &types.ExistingIssue{Key: "WEB-1", Summary: ""}

	result := scorer.Score(task, issue, nil, now)
	require.NoError(t, result.Validate())
	assert.Zero(t, result.Factor(FactorTextual))
	assert.Zero(t, result.Factor(FactorSemantic))
}

func TestScoreAllFactorsInRange(t *testing.T) {
	now := time.Now()
	scorer, err := NewScorer(DefaultWeights())
	require.NoError(t, err)

	tasks := []*types.Task{
		{ID: "a", Summary: "Fix login bug", ProjectKey: "WEB", Assignee: "dana"},
		{ID: "b", Summary: "Add metrics to export pipeline", Description: "CSV and JSON", ProjectKey: "WEB"},
		{ID: "c", Summary: "x", ProjectKey: "WEB"},
	}
	issues := []*types.ExistingIssue{
		{Key: "WEB-1", Summary: "Fix login bug", Assignee: "sam", UpdatedAt: now},
		{Key: "WEB-2", Summary: "Totally different work", UpdatedAt: now.Add(-400 * 24 * time.Hour)},
		{Key: "WEB-3", Summary: "Export pipeline metrics", Component: "pipeline"},
	}

	for _, task := range tasks {
		for _, issue := range issues {
			result := scorer.Score(task, issue, testContext(), now)
			require.NoError(t, result.Validate(), "task %s vs %s", task.ID, issue.Key)
			for _, f := range result.Factors {
				assert.GreaterOrEqual(t, f.Value, 0.0)
				assert.LessOrEqual(t, f.Value, 1.0)
			}
			assert.GreaterOrEqual(t, result.OverallScore, 0.0)
			assert.LessOrEqual(t, result.OverallScore, 1.0)
		}
	}
}

func TestScoreMonotoneInTextFactor(t *testing.T) {
	// Holding other factors fixed, a closer text match must never lower
	// the overall score.
	now := time.Now()
	scorer, err := NewScorer(DefaultWeights())
	require.NoError(t, err)

	task := &types.Task{ID: "t-1", Summary: "Fix login bug on mobile", ProjectKey: "WEB"}
	near := &types.ExistingIssue{Key: "WEB-1", Summary: "Fix login bug on mobile app", UpdatedAt: now}
	far := &types.ExistingIssue{Key: "WEB-2", Summary: "Rework billing invoices", UpdatedAt: now}

	nearResult := scorer.Score(task, near, nil, now)
	farResult := scorer.Score(task, far, nil, now)
	assert.Greater(t, nearResult.OverallScore, farResult.OverallScore)
}

func TestScoreTaskPairSymmetric(t *testing.T) {
	scorer, err := NewScorer(DefaultWeights())
	require.NoError(t, err)

	a := &types.Task{ID: "a", Summary: "Fix login bug", ProjectKey: "WEB"}
	b := &types.Task{ID: "b", Summary: "Login bug fix", ProjectKey: "WEB"}

	ab := scorer.ScoreTaskPair(a, b)
	ba := scorer.ScoreTaskPair(b, a)
	assert.Equal(t, ab.Textual, ba.Textual)
	assert.Equal(t, ab.Semantic, ba.Semantic)
	assert.Equal(t, ab.OverallScore, ba.OverallScore)
	assert.InDelta(t, 1.0, ab.OverallScore, 1e-9)
}

func TestAssigneeScore(t *testing.T) {
	tests := []struct {
		name     string
		task     string
		issue    string
		expected float64
	}{
		{"match", "dana", "dana", 1.0},
		{"case insensitive match", "Dana", "dana", 1.0},
		{"mismatch", "dana", "sam", 0.0},
		{"task unknown", "", "sam", 0.5},
		{"issue unknown", "dana", "", 0.5},
		{"both unknown", "", "", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, assigneeScore(tt.task, tt.issue))
		})
	}
}

func TestTemporalScoreDecay(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name     string
		updated  time.Time
		expected float64
	}{
		{"yesterday", now.Add(-24 * time.Hour), 1.0},
		{"two weeks", now.Add(-14 * 24 * time.Hour), 0.8},
		{"two months", now.Add(-60 * 24 * time.Hour), 0.6},
		{"ancient", now.Add(-365 * 24 * time.Hour), 0.4},
		{"unknown", time.Time{}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, temporalScore(tt.updated, now))
		})
	}
}

func TestContextualScore(t *testing.T) {
	pctx := testContext()
	task := &types.Task{ID: "t", Summary: "s", ProjectKey: "WEB", EpicKey: "WEB-100", Component: "auth"}

	sameEpic := &types.ExistingIssue{Key: "WEB-1", Summary: "s", ParentKey: "WEB-100"}
	assert.Equal(t, 1.0, contextualScore(task, sameEpic, pctx))

	sameComponent := &types.ExistingIssue{Key: "WEB-2", Summary: "s", Component: "auth"}
	assert.Equal(t, 0.5, contextualScore(task, sameComponent, pctx))

	sameSprint := &types.ExistingIssue{Key: "WEB-3", Summary: "s", SprintID: "42"}
	assert.Equal(t, 0.4, contextualScore(task, sameSprint, pctx))

	unrelated := &types.ExistingIssue{Key: "WEB-4", Summary: "s"}
	assert.Equal(t, 0.0, contextualScore(task, unrelated, pctx))
}

func TestWeightsValidate(t *testing.T) {
	assert.NoError(t, DefaultWeights().Validate())

	bad := Weights{Textual: 0.9, Semantic: 0.3}
	assert.Error(t, bad.Validate())

	negative := Weights{Textual: -0.1, Semantic: 0.5, Contextual: 0.3, Temporal: 0.2, Assignee: 0.1}
	assert.Error(t, negative.Validate())
}

func TestClassifyScoreThresholds(t *testing.T) {
	tests := []struct {
		score float64
		class MatchClass
	}{
		{1.0, MatchIdentical},
		{0.95, MatchIdentical},
		{0.94, MatchVerySimilar},
		{0.85, MatchVerySimilar},
		{0.84, MatchSimilar},
		{0.70, MatchSimilar},
		{0.69, MatchRelated},
		{0.50, MatchRelated},
		{0.49, MatchUnrelated},
		{0.0, MatchUnrelated},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.class, ClassifyScore(tt.score), "score %.2f", tt.score)
	}
}
