package scoring

import (
	"fmt"
	"math"
)

// Weights holds the fixed factor weight distribution used to combine factor
// scores into an overall score. The distribution is configurable but must
// sum to 1.0 so the overall score stays in [0,1].
//
// The defaults mirror the calibration the engine shipped with: textual
// similarity dominates, semantic overlap is a strong second signal, and
// context, recency, and assignee act as tie-breakers.
type Weights struct {
	Textual    float64 `yaml:"textual" json:"textual"`
	Semantic   float64 `yaml:"semantic" json:"semantic"`
	Contextual float64 `yaml:"contextual" json:"contextual"`
	Temporal   float64 `yaml:"temporal" json:"temporal"`
	Assignee   float64 `yaml:"assignee" json:"assignee"`
}

// DefaultWeights returns the default factor weight distribution
func DefaultWeights() Weights {
	return Weights{
		Textual:    0.40,
		Semantic:   0.30,
		Contextual: 0.15,
		Temporal:   0.10,
		Assignee:   0.05,
	}
}

// Validate checks that every weight is non-negative and the distribution
// sums to 1.0 (within floating-point tolerance).
func (w Weights) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"textual", w.Textual},
		{"semantic", w.Semantic},
		{"contextual", w.Contextual},
		{"temporal", w.Temporal},
		{"assignee", w.Assignee},
	} {
		if f.value < 0 {
			return fmt.Errorf("%s weight cannot be negative (got %.3f)", f.name, f.value)
		}
		if f.value > 1 {
			return fmt.Errorf("%s weight cannot exceed 1.0 (got %.3f)", f.name, f.value)
		}
	}
	sum := w.Textual + w.Semantic + w.Contextual + w.Temporal + w.Assignee
	if math.Abs(sum-1.0) > 1e-6 {
		return fmt.Errorf("weights must sum to 1.0 (got %.4f)", sum)
	}
	return nil
}

// String returns a human-readable representation of the weights
func (w Weights) String() string {
	return fmt.Sprintf("Weights{Textual: %.2f, Semantic: %.2f, Contextual: %.2f, Temporal: %.2f, Assignee: %.2f}",
		w.Textual, w.Semantic, w.Contextual, w.Temporal, w.Assignee)
}

// Match class thresholds. A continuous overall score maps to a discrete
// similarity tier at these boundaries.
const (
	ThresholdIdentical   = 0.95
	ThresholdVerySimilar = 0.85
	ThresholdSimilar     = 0.70
	ThresholdRelated     = 0.50
)
