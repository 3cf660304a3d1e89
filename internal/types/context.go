package types

import (
	"fmt"
	"time"
)

// SchemaVersion identifies the issue schema a project is using. The tracker
// exposes different field layouts per project; the variant is resolved once
// at context-fetch time and carried on the context rather than re-inspected
// per comparison.
type SchemaVersion string

const (
	// SchemaClassic is the company-managed project layout with sprints and epics
	SchemaClassic SchemaVersion = "classic"
	// SchemaNextGen is the team-managed layout where epics appear as parent links
	SchemaNextGen SchemaVersion = "next_gen"
	// SchemaKanban has no sprint dimension
	SchemaKanban SchemaVersion = "kanban"
)

// IsValid checks if the schema version value is valid
func (v SchemaVersion) IsValid() bool {
	switch v {
	case SchemaClassic, SchemaNextGen, SchemaKanban:
		return true
	}
	return false
}

// HasSprints reports whether the schema carries a sprint dimension
func (v SchemaVersion) HasSprints() bool {
	return v != SchemaKanban
}

// Epic is a high-level container issue within a project
type Epic struct {
	Key     string `json:"key"`
	Summary string `json:"summary"`
}

// Sprint describes an iteration within a project
type Sprint struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Active  bool      `json:"active"`
	EndedAt time.Time `json:"ended_at,omitempty"`
}

// ProjectContext is the per-project metadata used for contextual similarity
// scoring. It is fetched through the ProjectContextProvider and held in the
// context cache for the metadata TTL.
type ProjectContext struct {
	ProjectKey      string            `json:"project_key"`
	Name            string            `json:"name,omitempty"`
	Schema          SchemaVersion     `json:"schema"`
	Epics           []Epic            `json:"epics,omitempty"`
	Sprints         []Sprint          `json:"sprints,omitempty"`
	ComponentOwners map[string]string `json:"component_owners,omitempty"`
	FetchedAt       time.Time         `json:"fetched_at"`
}

// Validate checks if the project context has valid field values
func (c *ProjectContext) Validate() error {
	if c.ProjectKey == "" {
		return fmt.Errorf("project key is required")
	}
	if c.Schema != "" && !c.Schema.IsValid() {
		return fmt.Errorf("invalid schema version: %s", c.Schema)
	}
	return nil
}

// ActiveSprint returns the currently active sprint, or nil if none
func (c *ProjectContext) ActiveSprint() *Sprint {
	for i := range c.Sprints {
		if c.Sprints[i].Active {
			return &c.Sprints[i]
		}
	}
	return nil
}

// HasEpic reports whether the project context contains the given epic key
func (c *ProjectContext) HasEpic(key string) bool {
	if key == "" {
		return false
	}
	for _, e := range c.Epics {
		if e.Key == key {
			return true
		}
	}
	return false
}

// OwnerOf returns the owner of a component, or "" if unknown
func (c *ProjectContext) OwnerOf(component string) string {
	if c.ComponentOwners == nil {
		return ""
	}
	return c.ComponentOwners[component]
}
