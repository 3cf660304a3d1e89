package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meetsync/triage/internal/types"
)

func TestSuggestEpics(t *testing.T) {
	scorer, err := NewScorer(DefaultWeights())
	require.NoError(t, err)

	pctx := &types.ProjectContext{
		ProjectKey: "WEB",
		Schema:     types.SchemaClassic,
		Epics: []types.Epic{
			{Key: "WEB-10", Summary: "Login and authentication improvements"},
			{Key: "WEB-20", Summary: "Quarterly billing reports"},
			{Key: "WEB-30", Summary: "Authentication login fixes"},
		},
	}
	task := &types.Task{
		ID: "t1", Summary: "Fix broken login authentication flow", ProjectKey: "WEB",
	}

	suggestions := scorer.SuggestEpics(task, pctx, 3)
	require.NotEmpty(t, suggestions)
	for _, s := range suggestions {
		assert.GreaterOrEqual(t, s.Score, epicSuggestionMin)
		assert.NotEqual(t, "WEB-20", s.EpicKey, "unrelated epic must not be suggested")
	}
	for i := 1; i < len(suggestions); i++ {
		assert.LessOrEqual(t, suggestions[i].Score, suggestions[i-1].Score)
	}
}

func TestSuggestEpicsSkipsAssignedTasks(t *testing.T) {
	scorer, err := NewScorer(DefaultWeights())
	require.NoError(t, err)

	task := &types.Task{
		ID: "t1", Summary: "Fix broken login authentication flow",
		ProjectKey: "WEB", EpicKey: "WEB-10",
	}
	assert.Nil(t, scorer.SuggestEpics(task, testContext(), 3))
	assert.Nil(t, scorer.SuggestEpics(nil, testContext(), 3))
	assert.Nil(t, scorer.SuggestEpics(task, nil, 3))
}
