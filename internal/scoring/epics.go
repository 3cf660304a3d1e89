package scoring

import (
	"sort"

	"github.com/meetsync/triage/internal/types"
)

// EpicSuggestion proposes an epic the task may belong under, based on text
// similarity between the task and the epic summary
type EpicSuggestion struct {
	EpicKey string  `json:"epic_key"`
	Summary string  `json:"summary"`
	Score   float64 `json:"score"`
}

// Minimum text score for an epic to be worth suggesting
const epicSuggestionMin = 0.3

// SuggestEpics ranks the project's epics by text similarity to the task
// and returns the top matches above the suggestion threshold. Tasks that
// already carry an epic key get no suggestions.
func (s *Scorer) SuggestEpics(task *types.Task, pctx *types.ProjectContext, limit int) []EpicSuggestion {
	if task == nil || pctx == nil || task.EpicKey != "" || limit <= 0 {
		return nil
	}

	taskText := task.Summary + " " + task.Description
	var suggestions []EpicSuggestion
	for _, epic := range pctx.Epics {
		epicText := epic.Summary
		score := clamp01(tokenSortRatio(taskText, epicText)*crossTextualWeight + jaccard(taskText, epicText)*crossSemanticWeight)
		if score >= epicSuggestionMin {
			suggestions = append(suggestions, EpicSuggestion{
				EpicKey: epic.Key,
				Summary: epic.Summary,
				Score:   score,
			})
		}
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].EpicKey < suggestions[j].EpicKey
	})
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}
