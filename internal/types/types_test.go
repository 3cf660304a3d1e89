package types

import (
	"strings"
	"testing"
	"time"
)

func TestTaskValidate(t *testing.T) {
	tests := []struct {
		name        string
		task        Task
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid task",
			task: Task{ID: "t-1", Summary: "Fix login bug", ProjectKey: "WEB"},
		},
		{
			name:        "missing id",
			task:        Task{Summary: "Fix login bug", ProjectKey: "WEB"},
			expectError: true,
			errorMsg:    "task id is required",
		},
		{
			name:        "empty summary",
			task:        Task{ID: "t-1", Summary: "", ProjectKey: "WEB"},
			expectError: true,
			errorMsg:    "summary is required",
		},
		{
			name:        "whitespace summary",
			task:        Task{ID: "t-1", Summary: "   ", ProjectKey: "WEB"},
			expectError: true,
			errorMsg:    "summary is required",
		},
		{
			name:        "summary too long",
			task:        Task{ID: "t-1", Summary: strings.Repeat("x", 501), ProjectKey: "WEB"},
			expectError: true,
			errorMsg:    "500 characters or less",
		},
		{
			name:        "missing project key",
			task:        Task{ID: "t-1", Summary: "Fix login bug"},
			expectError: true,
			errorMsg:    "project key is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.errorMsg)
				}
				if !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestExistingIssueValidate(t *testing.T) {
	valid := ExistingIssue{Key: "WEB-12", Summary: "Fix login bug", Status: StatusOpen}
	if err := valid.Validate(); err != nil {
		t.Errorf("unexpected error for valid issue: %v", err)
	}

	noKey := ExistingIssue{Summary: "Fix login bug"}
	if err := noKey.Validate(); err == nil {
		t.Error("expected error for missing key")
	}

	badStatus := ExistingIssue{Key: "WEB-12", Summary: "Fix login bug", Status: "limbo"}
	if err := badStatus.Validate(); err == nil {
		t.Error("expected error for invalid status")
	}
}

func TestIssueStatus(t *testing.T) {
	for _, s := range []IssueStatus{StatusOpen, StatusInProgress, StatusResolved, StatusClosed} {
		if !s.IsValid() {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if IssueStatus("nope").IsValid() {
		t.Error("expected unknown status to be invalid")
	}
	if StatusOpen.IsDone() || StatusInProgress.IsDone() {
		t.Error("open statuses must not be done")
	}
	if !StatusResolved.IsDone() || !StatusClosed.IsDone() {
		t.Error("terminal statuses must be done")
	}
}

func TestProjectContext(t *testing.T) {
	ctx := ProjectContext{
		ProjectKey: "WEB",
		Schema:     SchemaClassic,
		Epics:      []Epic{{Key: "WEB-100", Summary: "Auth overhaul"}},
		Sprints: []Sprint{
			{ID: "41", Name: "Sprint 41", EndedAt: time.Now().Add(-14 * 24 * time.Hour)},
			{ID: "42", Name: "Sprint 42", Active: true},
		},
		ComponentOwners: map[string]string{"auth": "dana"},
	}

	if err := ctx.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ctx.HasEpic("WEB-100") {
		t.Error("expected HasEpic to find WEB-100")
	}
	if ctx.HasEpic("") || ctx.HasEpic("WEB-999") {
		t.Error("HasEpic matched a missing key")
	}
	if got := ctx.OwnerOf("auth"); got != "dana" {
		t.Errorf("expected owner dana, got %q", got)
	}
	if sp := ctx.ActiveSprint(); sp == nil || sp.ID != "42" {
		t.Errorf("expected active sprint 42, got %+v", sp)
	}
	if !SchemaClassic.HasSprints() || SchemaKanban.HasSprints() {
		t.Error("sprint dimension wrong for schema versions")
	}

	bad := ProjectContext{ProjectKey: "WEB", Schema: "v9"}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for invalid schema version")
	}
}
