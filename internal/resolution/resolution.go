// Package resolution implements the duplicate resolution workflow: the one
// component allowed to write resolution state. A task moves from unresolved
// to resolved exactly once; identical resubmissions are idempotent and
// conflicting ones are rejected unless forced.
package resolution

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by stores when no record exists for a key
var ErrNotFound = errors.New("resolution record not found")

// Type is the decision recorded for a task
type Type string

const (
	// TypeSkip drops the task without creating anything
	TypeSkip Type = "skip"

	// TypeMerge folds the task into an existing issue
	TypeMerge Type = "merge"

	// TypeLink creates the task's issue but links it to an existing one
	TypeLink Type = "link"

	// TypeCreateAnyway creates a new issue despite the duplicate signal
	TypeCreateAnyway Type = "create_anyway"
)

// IsValid checks if the resolution type value is valid
func (t Type) IsValid() bool {
	switch t {
	case TypeSkip, TypeMerge, TypeLink, TypeCreateAnyway:
		return true
	}
	return false
}

// RequiresIssue reports whether the type needs a chosen existing issue
func (t Type) RequiresIssue() bool {
	return t == TypeMerge || t == TypeLink
}

// Record is a persisted resolution decision. Records are append-only; a
// forced re-resolution supersedes the old record rather than editing it.
type Record struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	AnalysisID  string    `json:"analysis_id,omitempty"`
	Type        Type      `json:"type"`
	ChosenIssue string    `json:"chosen_issue,omitempty"`
	Actor       string    `json:"actor"`
	Notes       string    `json:"notes,omitempty"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

// Validate checks the record for correctness
func (r *Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("record ID is required")
	}
	if r.TaskID == "" {
		return fmt.Errorf("task ID is required")
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("invalid resolution type: %s", r.Type)
	}
	if r.Type.RequiresIssue() && r.ChosenIssue == "" {
		return fmt.Errorf("%s resolution requires a chosen issue", r.Type)
	}
	if r.Actor == "" {
		return fmt.Errorf("actor is required")
	}
	if r.ResolvedAt.IsZero() {
		return fmt.Errorf("resolved_at is required")
	}
	return nil
}

// Matches reports whether a request would reproduce this record's decision
func (r *Record) Matches(req *Request) bool {
	return r.Type == req.Type && r.ChosenIssue == req.ChosenIssue
}

// ConflictError is returned when a task already has a resolution and the
// new request disagrees with it. The existing record rides along so callers
// can show the user what they would be overriding.
type ConflictError struct {
	Existing *Record
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("task %s already resolved as %s by %s at %s (use force to override)",
		e.Existing.TaskID, e.Existing.Type, e.Existing.Actor,
		e.Existing.ResolvedAt.Format(time.RFC3339))
}
