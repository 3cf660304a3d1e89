// Package analysis implements duplicate analysis: fanning a task out to the
// cache and search layer, scoring candidates in bounded parallel, and
// ranking the results into an actionable recommendation. It never mutates
// the tracker; it only scores and recommends.
package analysis

import (
	"errors"
	"fmt"
	"time"

	"github.com/meetsync/triage/internal/scoring"
	"github.com/meetsync/triage/internal/types"
)

// Error taxonomy for analysis requests
var (
	// ErrValidation marks a malformed task or request. Rejected
	// immediately, never retried.
	ErrValidation = errors.New("validation error")

	// ErrServiceUnavailable marks a total upstream failure with no cached
	// data to degrade to. Anything less degrades to a partial analysis
	// instead of raising this.
	ErrServiceUnavailable = errors.New("search unavailable and no cached candidates")
)

// RecommendedAction is the engine's recommendation for a task. The engine
// never acts on it; the decision belongs to the resolution workflow.
type RecommendedAction string

const (
	ActionCreateNew       RecommendedAction = "create_new"
	ActionReviewRequired  RecommendedAction = "review_required"
	ActionConsiderLinking RecommendedAction = "consider_linking"
	ActionLikelyDuplicate RecommendedAction = "likely_duplicate"
)

// IsValid checks if the recommended action value is valid
func (a RecommendedAction) IsValid() bool {
	switch a {
	case ActionCreateNew, ActionReviewRequired, ActionConsiderLinking, ActionLikelyDuplicate:
		return true
	}
	return false
}

// ActionForClass maps a best-match class to the recommended action
func ActionForClass(class scoring.MatchClass) RecommendedAction {
	switch class {
	case scoring.MatchIdentical, scoring.MatchVerySimilar:
		return ActionLikelyDuplicate
	case scoring.MatchSimilar:
		return ActionReviewRequired
	case scoring.MatchRelated:
		return ActionConsiderLinking
	default:
		return ActionCreateNew
	}
}

// Options controls a single duplicate analysis
type Options struct {
	// IncludeResolved widens the candidate search to resolved/closed issues
	IncludeResolved bool

	// MaxResults bounds the candidate pool. 0 uses the orchestrator default.
	MaxResults int
}

// DuplicateAnalysis is the immutable outcome of one orchestrator run for
// one task. A re-run produces a new analysis; existing ones are never
// mutated.
type DuplicateAnalysis struct {
	ID          string      `json:"id"`
	Task        *types.Task `json:"task"`
	ProjectKey  string      `json:"project_key"`
	SearchTerms []string    `json:"search_terms,omitempty"`

	// Results is ordered by overall score descending, ties broken by
	// issue key, regardless of scoring completion order.
	Results           []scoring.SimilarityResult `json:"results"`
	BestMatch         *scoring.SimilarityResult  `json:"best_match,omitempty"`
	RecommendedAction RecommendedAction          `json:"recommended_action"`
	Reasoning         string                     `json:"reasoning,omitempty"`

	// EpicSuggestions proposes epics the task may belong under, for tasks
	// that do not already carry one
	EpicSuggestions []scoring.EpicSuggestion `json:"epic_suggestions,omitempty"`

	// Partial is set when the analysis was computed from cache-only data
	// because the upstream search failed. A partial analysis is never
	// silently presented as complete.
	Partial bool `json:"partial,omitempty"`

	TotalSearched int       `json:"total_searched"`
	AnalyzedAt    time.Time `json:"analyzed_at"`
	ElapsedMs     int64     `json:"elapsed_ms"`
}

// Validate checks internal consistency of the analysis
func (a *DuplicateAnalysis) Validate() error {
	if a.Task == nil {
		return fmt.Errorf("task is required")
	}
	if !a.RecommendedAction.IsValid() {
		return fmt.Errorf("invalid recommended action: %s", a.RecommendedAction)
	}
	if len(a.Results) == 0 {
		if a.BestMatch != nil {
			return fmt.Errorf("best_match set with no results")
		}
		if a.RecommendedAction != ActionCreateNew {
			return fmt.Errorf("empty results must recommend %s (got %s)", ActionCreateNew, a.RecommendedAction)
		}
		return nil
	}
	if a.BestMatch == nil {
		return fmt.Errorf("best_match missing with %d results", len(a.Results))
	}
	for i := range a.Results {
		if err := a.Results[i].Validate(); err != nil {
			return fmt.Errorf("result %d: %w", i, err)
		}
		if i > 0 && a.Results[i].OverallScore > a.Results[i-1].OverallScore {
			return fmt.Errorf("results not sorted by score at index %d", i)
		}
	}
	if a.BestMatch.OverallScore != a.Results[0].OverallScore {
		return fmt.Errorf("best_match score %.3f does not match top result %.3f",
			a.BestMatch.OverallScore, a.Results[0].OverallScore)
	}
	return nil
}

// ActionableDuplicates returns the results that warrant user attention
func (a *DuplicateAnalysis) ActionableDuplicates() []scoring.SimilarityResult {
	var actionable []scoring.SimilarityResult
	for _, r := range a.Results {
		if r.MatchClass == scoring.MatchIdentical || r.MatchClass == scoring.MatchVerySimilar {
			actionable = append(actionable, r)
		}
	}
	return actionable
}

// reasoning renders a human-readable explanation for the recommendation
func reasoning(best *scoring.SimilarityResult) string {
	if best == nil {
		return "No similar issues found in project"
	}
	score := best.OverallScore
	reason := "overall similarity"
	if len(best.MatchReasons) > 0 {
		reason = best.MatchReasons[0]
	}
	switch {
	case score >= scoring.ThresholdIdentical:
		return fmt.Sprintf("Very high similarity (%.0f%%) to %s based on %s", score*100, best.Issue.Key, reason)
	case score >= scoring.ThresholdVerySimilar:
		return fmt.Sprintf("High similarity (%.0f%%) to %s based on %s - review recommended", score*100, best.Issue.Key, reason)
	case score >= scoring.ThresholdSimilar:
		return fmt.Sprintf("Moderate similarity (%.0f%%) to %s based on %s - consider linking", score*100, best.Issue.Key, reason)
	default:
		return fmt.Sprintf("Low similarity (%.0f%%) - safe to create a new issue", score*100)
	}
}
