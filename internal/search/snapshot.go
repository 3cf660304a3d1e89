package search

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/meetsync/triage/internal/types"
)

// SnapshotClient serves candidate searches and project context from a local
// tracker snapshot file. It backs the CLI when no live tracker connection
// is configured, and doubles as a fixture source in integration tests.
type SnapshotClient struct {
	projects map[string]*snapshotProject
}

// Compile-time interface checks
var (
	_ CandidateSearchClient  = (*SnapshotClient)(nil)
	_ ProjectContextProvider = (*SnapshotClient)(nil)
)

type snapshotFile struct {
	Projects map[string]*snapshotProject `yaml:"projects"`
}

type snapshotProject struct {
	Name            string            `yaml:"name"`
	Schema          string            `yaml:"schema"`
	Epics           []snapshotEpic    `yaml:"epics"`
	Sprints         []snapshotSprint  `yaml:"sprints"`
	ComponentOwners map[string]string `yaml:"component_owners"`
	Issues          []snapshotIssue   `yaml:"issues"`
}

type snapshotEpic struct {
	Key     string `yaml:"key"`
	Summary string `yaml:"summary"`
}

type snapshotSprint struct {
	ID      string    `yaml:"id"`
	Name    string    `yaml:"name"`
	Active  bool      `yaml:"active"`
	EndedAt time.Time `yaml:"ended_at"`
}

type snapshotIssue struct {
	Key         string    `yaml:"key"`
	Summary     string    `yaml:"summary"`
	Description string    `yaml:"description"`
	Status      string    `yaml:"status"`
	Assignee    string    `yaml:"assignee"`
	UpdatedAt   time.Time `yaml:"updated_at"`
	ParentKey   string    `yaml:"parent_key"`
	Component   string    `yaml:"component"`
	SprintID    string    `yaml:"sprint_id"`
}

// LoadSnapshot reads a tracker snapshot from a YAML file
func LoadSnapshot(path string) (*SnapshotClient, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	var file snapshotFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot %s: %w", path, err)
	}
	if len(file.Projects) == 0 {
		return nil, fmt.Errorf("snapshot %s contains no projects", path)
	}
	return &SnapshotClient{projects: file.Projects}, nil
}

// Search returns snapshot issues matching any query term, ordered by key
func (s *SnapshotClient) Search(ctx context.Context, projectKey string, queryTerms []string, maxResults int, includeResolved bool) ([]*types.ExistingIssue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	proj, ok := s.projects[projectKey]
	if !ok {
		return nil, fmt.Errorf("project %s not in snapshot", projectKey)
	}

	var matches []*types.ExistingIssue
	for _, si := range proj.Issues {
		issue := si.toIssue()
		if !includeResolved && issue.Status.IsDone() {
			continue
		}
		if !matchesAnyTerm(issue, queryTerms) {
			continue
		}
		matches = append(matches, issue)
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Key < matches[j].Key })
	if maxResults > 0 && len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches, nil
}

// GetContext returns the snapshot's project metadata
func (s *SnapshotClient) GetContext(ctx context.Context, projectKey string) (*types.ProjectContext, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	proj, ok := s.projects[projectKey]
	if !ok {
		return nil, fmt.Errorf("project %s not in snapshot", projectKey)
	}

	pctx := &types.ProjectContext{
		ProjectKey:      projectKey,
		Name:            proj.Name,
		Schema:          types.SchemaVersion(proj.Schema),
		ComponentOwners: proj.ComponentOwners,
		FetchedAt:       time.Now(),
	}
	if proj.Schema == "" {
		pctx.Schema = types.SchemaClassic
	}
	for _, e := range proj.Epics {
		pctx.Epics = append(pctx.Epics, types.Epic{Key: e.Key, Summary: e.Summary})
	}
	for _, sp := range proj.Sprints {
		pctx.Sprints = append(pctx.Sprints, types.Sprint{
			ID: sp.ID, Name: sp.Name, Active: sp.Active, EndedAt: sp.EndedAt,
		})
	}
	return pctx, nil
}

func (si *snapshotIssue) toIssue() *types.ExistingIssue {
	status := types.IssueStatus(si.Status)
	if si.Status == "" {
		status = types.StatusOpen
	}
	return &types.ExistingIssue{
		Key:         si.Key,
		Summary:     si.Summary,
		Description: si.Description,
		Status:      status,
		Assignee:    si.Assignee,
		UpdatedAt:   si.UpdatedAt,
		ParentKey:   si.ParentKey,
		Component:   si.Component,
		SprintID:    si.SprintID,
	}
}

func matchesAnyTerm(issue *types.ExistingIssue, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	text := strings.ToLower(issue.Summary + " " + issue.Description)
	for _, term := range terms {
		if strings.Contains(text, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
