package types

import (
	"fmt"
	"strings"
	"time"
)

// Task represents a candidate work item extracted from a meeting transcript.
// Tasks are created by the extraction step upstream and are immutable once
// handed to the engine.
type Task struct {
	ID            string `json:"id"`
	Summary       string `json:"summary"`
	Description   string `json:"description,omitempty"`
	ProjectKey    string `json:"project_key"`
	Assignee      string `json:"assignee,omitempty"`
	EpicKey       string `json:"epic_key,omitempty"`
	Component     string `json:"component,omitempty"`
	SourceExcerpt string `json:"source_excerpt,omitempty"`
}

// Validate checks if the task has valid field values
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task id is required")
	}
	if strings.TrimSpace(t.Summary) == "" {
		return fmt.Errorf("task summary is required")
	}
	if len(t.Summary) > 500 {
		return fmt.Errorf("task summary must be 500 characters or less (got %d)", len(t.Summary))
	}
	if t.ProjectKey == "" {
		return fmt.Errorf("project key is required")
	}
	return nil
}

// IssueStatus represents the tracker-side state of an existing issue
type IssueStatus string

const (
	StatusOpen       IssueStatus = "open"
	StatusInProgress IssueStatus = "in_progress"
	StatusResolved   IssueStatus = "resolved"
	StatusClosed     IssueStatus = "closed"
)

// IsValid checks if the status value is valid
func (s IssueStatus) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// IsDone reports whether the issue is in a terminal state
func (s IssueStatus) IsDone() bool {
	return s == StatusResolved || s == StatusClosed
}

// ExistingIssue is a read-only snapshot of a tracked issue fetched from the
// tracker search client. Snapshots are never persisted beyond the cache TTL.
type ExistingIssue struct {
	Key         string      `json:"key"`
	Summary     string      `json:"summary"`
	Description string      `json:"description,omitempty"`
	Status      IssueStatus `json:"status"`
	Assignee    string      `json:"assignee,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at"`
	ParentKey   string      `json:"parent_key,omitempty"`
	Component   string      `json:"component,omitempty"`
	SprintID    string      `json:"sprint_id,omitempty"`
}

// Validate checks if the issue snapshot has valid field values
func (i *ExistingIssue) Validate() error {
	if i.Key == "" {
		return fmt.Errorf("issue key is required")
	}
	if strings.TrimSpace(i.Summary) == "" {
		return fmt.Errorf("issue summary is required")
	}
	if i.Status != "" && !i.Status.IsValid() {
		return fmt.Errorf("invalid issue status: %s", i.Status)
	}
	return nil
}
