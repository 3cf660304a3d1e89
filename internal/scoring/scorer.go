package scoring

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/meetsync/triage/internal/types"
)

// Factor names a similarity dimension
type Factor string

const (
	FactorTextual    Factor = "textual"
	FactorSemantic   Factor = "semantic"
	FactorContextual Factor = "contextual"
	FactorTemporal   Factor = "temporal"
	FactorAssignee   Factor = "assignee"
)

// FactorScore is one similarity dimension with its value and the weight it
// contributes to the overall score. Factor scores are recomputed per pair;
// they are cheap and never cached individually.
type FactorScore struct {
	Factor Factor  `json:"factor"`
	Value  float64 `json:"value"`
	Weight float64 `json:"weight"`
}

// MatchClass is the discrete similarity tier derived from the overall score
type MatchClass string

const (
	MatchIdentical   MatchClass = "identical"
	MatchVerySimilar MatchClass = "very_similar"
	MatchSimilar     MatchClass = "similar"
	MatchRelated     MatchClass = "related"
	MatchUnrelated   MatchClass = "unrelated"
)

// ClassifyScore maps a continuous overall score to its match class
func ClassifyScore(score float64) MatchClass {
	switch {
	case score >= ThresholdIdentical:
		return MatchIdentical
	case score >= ThresholdVerySimilar:
		return MatchVerySimilar
	case score >= ThresholdSimilar:
		return MatchSimilar
	case score >= ThresholdRelated:
		return MatchRelated
	default:
		return MatchUnrelated
	}
}

// SimilarityResult is the scored comparison of a task against one existing
// issue. Results are immutable snapshots.
type SimilarityResult struct {
	Issue        *types.ExistingIssue `json:"issue"`
	Factors      []FactorScore        `json:"factors"`
	OverallScore float64              `json:"overall_score"`
	MatchClass   MatchClass           `json:"match_class"`

	// MatchReasons lists the factors that contributed strongly to the
	// match (e.g. "high_text_similarity", "same_assignee").
	MatchReasons []string `json:"match_reasons,omitempty"`

	// Confidence reflects both the score and how many independent factors
	// back it up.
	Confidence float64 `json:"confidence"`
}

// Validate checks that all scores are within [0,1]
func (r *SimilarityResult) Validate() error {
	if r.OverallScore < 0 || r.OverallScore > 1 {
		return fmt.Errorf("overall score must be between 0.0 and 1.0 (got %.3f)", r.OverallScore)
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0 (got %.3f)", r.Confidence)
	}
	for _, f := range r.Factors {
		if f.Value < 0 || f.Value > 1 {
			return fmt.Errorf("%s factor score must be between 0.0 and 1.0 (got %.3f)", f.Factor, f.Value)
		}
	}
	return nil
}

// Factor returns the value of the named factor, or 0 if absent
func (r *SimilarityResult) Factor(name Factor) float64 {
	for _, f := range r.Factors {
		if f.Factor == name {
			return f.Value
		}
	}
	return 0
}

// Scorer computes multi-factor similarity between a task and an existing
// issue. Scoring is pure and deterministic: no I/O, no clock reads except
// through the reference time handed to Score.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given weight distribution
func NewScorer(weights Weights) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, fmt.Errorf("invalid weights: %w", err)
	}
	return &Scorer{weights: weights}, nil
}

// Weights returns the weight distribution the scorer was built with
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score compares a task against an existing issue within a project context.
// The context may be nil, in which case the contextual factor is 0 unless
// the task and issue share an epic or component directly. now anchors the
// temporal decay so repeated runs over the same snapshot are reproducible.
func (s *Scorer) Score(task *types.Task, issue *types.ExistingIssue, pctx *types.ProjectContext, now time.Time) SimilarityResult {
	taskText := task.Summary + " " + task.Description
	issueText := issue.Summary + " " + issue.Description

	textual := tokenSortRatio(taskText, issueText)
	semantic := jaccard(taskText, issueText)
	contextual := contextualScore(task, issue, pctx)
	temporal := temporalScore(issue.UpdatedAt, now)
	assignee := assigneeScore(task.Assignee, issue.Assignee)

	factors := []FactorScore{
		{Factor: FactorTextual, Value: textual, Weight: s.weights.Textual},
		{Factor: FactorSemantic, Value: semantic, Weight: s.weights.Semantic},
		{Factor: FactorContextual, Value: contextual, Weight: s.weights.Contextual},
		{Factor: FactorTemporal, Value: temporal, Weight: s.weights.Temporal},
		{Factor: FactorAssignee, Value: assignee, Weight: s.weights.Assignee},
	}

	overall := 0.0
	for _, f := range factors {
		overall += f.Value * f.Weight
	}
	overall = clamp01(overall)

	reasons := matchReasons(textual, semantic, contextual, temporal, assignee)

	return SimilarityResult{
		Issue:        issue,
		Factors:      factors,
		OverallScore: overall,
		MatchClass:   ClassifyScore(overall),
		MatchReasons: reasons,
		Confidence:   confidence(overall, len(reasons)),
	}
}

// CrossSimilarity is the lighter-weight score between two tasks in the same
// batch. Context, recency, and assignee are meaningless between freshly
// extracted tasks, so only the text factors carry weight here.
type CrossSimilarity struct {
	Textual      float64    `json:"textual"`
	Semantic     float64    `json:"semantic"`
	OverallScore float64    `json:"overall_score"`
	MatchClass   MatchClass `json:"match_class"`
}

// Intra-batch weight split between the two meaningful factors
const (
	crossTextualWeight  = 0.6
	crossSemanticWeight = 0.4
)

// ScoreTaskPair compares two tasks from the same batch using textual and
// semantic factors only. Symmetric in its arguments.
func (s *Scorer) ScoreTaskPair(a, b *types.Task) CrossSimilarity {
	aText := a.Summary + " " + a.Description
	bText := b.Summary + " " + b.Description

	textual := tokenSortRatio(aText, bText)
	semantic := jaccard(aText, bText)
	overall := clamp01(textual*crossTextualWeight + semantic*crossSemanticWeight)

	return CrossSimilarity{
		Textual:      textual,
		Semantic:     semantic,
		OverallScore: overall,
		MatchClass:   ClassifyScore(overall),
	}
}

// contextualScore is 1.0 for a shared epic, a decayed partial score for a
// shared component or active sprint, and 0 otherwise.
func contextualScore(task *types.Task, issue *types.ExistingIssue, pctx *types.ProjectContext) float64 {
	best := 0.0
	if task.EpicKey != "" && task.EpicKey == issue.ParentKey {
		if pctx == nil || pctx.HasEpic(task.EpicKey) {
			return 1.0
		}
		best = 1.0
	}
	if task.Component != "" && strings.EqualFold(task.Component, issue.Component) {
		if best < 0.5 {
			best = 0.5
		}
	}
	if pctx != nil && issue.SprintID != "" {
		if sp := pctx.ActiveSprint(); sp != nil && sp.ID == issue.SprintID {
			if best < 0.4 {
				best = 0.4
			}
		}
	}
	return best
}

// temporalScore decays with the age of the issue's last update. Recently
// touched issues are more likely to still be relevant duplicates.
func temporalScore(updatedAt time.Time, now time.Time) float64 {
	if updatedAt.IsZero() {
		return 0.5
	}
	age := now.Sub(updatedAt)
	switch {
	case age <= 7*24*time.Hour:
		return 1.0
	case age <= 30*24*time.Hour:
		return 0.8
	case age <= 90*24*time.Hour:
		return 0.6
	default:
		return 0.4
	}
}

// assigneeScore is 1.0 on a match, neutral 0.5 when either side is unknown,
// and 0 on an explicit mismatch.
func assigneeScore(taskAssignee, issueAssignee string) float64 {
	if taskAssignee == "" || issueAssignee == "" {
		return 0.5
	}
	if strings.EqualFold(taskAssignee, issueAssignee) {
		return 1.0
	}
	return 0.0
}

// Match-reason trigger thresholds per factor
const (
	reasonTextualMin    = 0.8
	reasonSemanticMin   = 0.7
	reasonContextualMin = 0.6
	reasonTemporalMin   = 0.8
	reasonAssigneeMin   = 0.9
)

func matchReasons(textual, semantic, contextual, temporal, assignee float64) []string {
	var reasons []string
	if textual > reasonTextualMin {
		reasons = append(reasons, "high_text_similarity")
	}
	if semantic > reasonSemanticMin {
		reasons = append(reasons, "semantic_match")
	}
	if contextual > reasonContextualMin {
		reasons = append(reasons, "similar_context")
	}
	if temporal > reasonTemporalMin {
		reasons = append(reasons, "recent_timing")
	}
	if assignee > reasonAssigneeMin {
		reasons = append(reasons, "same_assignee")
	}
	return reasons
}

// confidence blends the overall score with the number of independent
// factors backing it, capped at 1.0
func confidence(overall float64, reasonCount int) float64 {
	c := overall*0.8 + float64(reasonCount)*0.1
	return clamp01(c)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SortResults orders results by overall score descending with a stable
// lexical tie-break on issue key, so output is deterministic regardless of
// scoring completion order.
func SortResults(results []SimilarityResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].OverallScore != results[j].OverallScore {
			return results[i].OverallScore > results[j].OverallScore
		}
		return results[i].Issue.Key < results[j].Issue.Key
	})
}
