package analysis

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/meetsync/triage/internal/scoring"
	"github.com/meetsync/triage/internal/types"
)

// CrossReference records a pair of tasks within one batch that look like
// duplicates of each other, independent of anything in the tracker.
type CrossReference struct {
	TaskA      string                  `json:"task_a"`
	TaskB      string                  `json:"task_b"`
	Similarity scoring.CrossSimilarity `json:"similarity"`
}

// BatchSummary aggregates a batch analysis for reporting
type BatchSummary struct {
	TotalTasks          int                       `json:"total_tasks"`
	TasksWithDuplicates int                       `json:"tasks_with_duplicates"`
	TotalCandidates     int                       `json:"total_candidates"`
	CrossReferences     int                       `json:"cross_references"`
	DuplicateGroups     int                       `json:"duplicate_groups"`
	HighConfidence      int                       `json:"high_confidence"`
	ActionBreakdown     map[RecommendedAction]int `json:"action_breakdown"`
}

// BatchAnalysis is the outcome of analyzing a batch of tasks together:
// each task's own duplicate analysis plus the pairwise cross-references
// inside the batch.
type BatchAnalysis struct {
	ID         string `json:"id"`
	ProjectKey string `json:"project_key"`

	// Analyses preserves input task order
	Analyses []*DuplicateAnalysis `json:"analyses"`

	// CrossReferences lists intra-batch pairs at or above the similar
	// threshold, ordered by score descending
	CrossReferences []CrossReference `json:"cross_references,omitempty"`

	// Groups are connected components of cross-referenced task IDs. Each
	// group has at least two members; singleton tasks are omitted.
	Groups [][]string `json:"groups,omitempty"`

	Summary    BatchSummary `json:"summary"`
	AnalyzedAt time.Time    `json:"analyzed_at"`
	ElapsedMs  int64        `json:"elapsed_ms"`
}

// AnalyzeBatch runs a duplicate analysis for every task and cross-references
// the tasks against each other. Per-task analyses run in parallel up to
// BatchWorkers; the global search concurrency cap still holds underneath.
// Pairwise cross-referencing needs no tracker access and works even when
// the project has no existing issues at all.
func (o *Orchestrator) AnalyzeBatch(ctx context.Context, tasks []*types.Task, projectKey string, opts Options) (*BatchAnalysis, error) {
	start := time.Now()

	if len(tasks) == 0 {
		return nil, fmt.Errorf("%w: batch must contain at least one task", ErrValidation)
	}
	seen := make(map[string]bool, len(tasks))
	for i, task := range tasks {
		if task == nil {
			return nil, fmt.Errorf("%w: task %d is nil", ErrValidation, i)
		}
		if err := task.Validate(); err != nil {
			return nil, fmt.Errorf("%w: task %d (%s): %v", ErrValidation, i, task.ID, err)
		}
		if seen[task.ID] {
			return nil, fmt.Errorf("%w: duplicate task ID %s in batch", ErrValidation, task.ID)
		}
		seen[task.ID] = true
	}

	log.Printf("[ANALYSIS] Batch analysis of %d tasks in project %s", len(tasks), projectKey)

	analyses := make([]*DuplicateAnalysis, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.BatchWorkers)
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			a, err := o.Analyze(gctx, task, projectKey, opts)
			if err != nil {
				return fmt.Errorf("task %s: %w", task.ID, err)
			}
			analyses[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	refs := o.crossReference(tasks)

	batch := &BatchAnalysis{
		ID:              uuid.New().String(),
		ProjectKey:      projectKey,
		Analyses:        analyses,
		CrossReferences: refs,
		Groups:          groupTasks(tasks, refs),
		AnalyzedAt:      time.Now(),
		ElapsedMs:       time.Since(start).Milliseconds(),
	}
	batch.Summary = summarize(batch)
	return batch, nil
}

// crossReference compares every pair of tasks in the batch and keeps the
// pairs at or above the similar threshold
func (o *Orchestrator) crossReference(tasks []*types.Task) []CrossReference {
	var refs []CrossReference
	for i := 0; i < len(tasks); i++ {
		for j := i + 1; j < len(tasks); j++ {
			sim := o.scorer.ScoreTaskPair(tasks[i], tasks[j])
			if sim.OverallScore >= scoring.ThresholdSimilar {
				refs = append(refs, CrossReference{
					TaskA:      tasks[i].ID,
					TaskB:      tasks[j].ID,
					Similarity: sim,
				})
			}
		}
	}
	sort.Slice(refs, func(a, b int) bool {
		if refs[a].Similarity.OverallScore != refs[b].Similarity.OverallScore {
			return refs[a].Similarity.OverallScore > refs[b].Similarity.OverallScore
		}
		if refs[a].TaskA != refs[b].TaskA {
			return refs[a].TaskA < refs[b].TaskA
		}
		return refs[a].TaskB < refs[b].TaskB
	})
	return refs
}

// groupTasks unions cross-referenced tasks into connected components,
// preserving input task order within each group
func groupTasks(tasks []*types.Task, refs []CrossReference) [][]string {
	parent := make(map[string]string, len(tasks))
	for _, t := range tasks {
		parent[t.ID] = t.ID
	}
	var find func(string) string
	find = func(id string) string {
		if parent[id] != id {
			parent[id] = find(parent[id])
		}
		return parent[id]
	}
	for _, r := range refs {
		parent[find(r.TaskA)] = find(r.TaskB)
	}

	members := make(map[string][]string)
	for _, t := range tasks {
		root := find(t.ID)
		members[root] = append(members[root], t.ID)
	}

	var groups [][]string
	for _, t := range tasks {
		root := find(t.ID)
		if g := members[root]; len(g) > 1 && g[0] == t.ID {
			groups = append(groups, g)
		}
	}
	return groups
}

// summarize computes the batch summary statistics
func summarize(b *BatchAnalysis) BatchSummary {
	s := BatchSummary{
		TotalTasks:      len(b.Analyses),
		CrossReferences: len(b.CrossReferences),
		DuplicateGroups: len(b.Groups),
		ActionBreakdown: make(map[RecommendedAction]int),
	}
	for _, a := range b.Analyses {
		s.TotalCandidates += a.TotalSearched
		s.ActionBreakdown[a.RecommendedAction]++
		if a.RecommendedAction == ActionLikelyDuplicate || a.RecommendedAction == ActionReviewRequired {
			s.TasksWithDuplicates++
		}
		if a.BestMatch != nil && a.BestMatch.Confidence >= 0.8 {
			s.HighConfidence++
		}
	}
	return s
}
