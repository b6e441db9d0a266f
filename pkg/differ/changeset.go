// Package differ compares a desired API definition with a snapshot of the
// remote state and reports the changes a reconciliation would make.
package differ

import (
	"fmt"
	"io"
	"strings"

	"github.com/agentstation/apisync/pkg/gateway"
)

// ChangeType represents the type of change.
type ChangeType string

const (
	// ChangeTypeAdd indicates an item will be created.
	ChangeTypeAdd ChangeType = "add"
	// ChangeTypeUpdate indicates an item will be patched.
	ChangeTypeUpdate ChangeType = "update"
	// ChangeTypeRemove indicates an item will be deleted.
	ChangeTypeRemove ChangeType = "remove"
)

// ResourceChange is a resource to create or delete.
type ResourceChange struct {
	Type ChangeType `json:"type" yaml:"type"`
	Path string     `json:"path" yaml:"path"`
	ID   string     `json:"id,omitempty" yaml:"id,omitempty"` // set for removals
}

// ModelUpdate is a model whose schema will be replaced.
type ModelUpdate struct {
	Name      string `json:"name" yaml:"name"`
	OldSchema string `json:"old_schema" yaml:"old_schema"`
	NewSchema string `json:"new_schema" yaml:"new_schema"`
}

// ModelChangeset represents changes to models.
type ModelChangeset struct {
	Added   []gateway.Model `json:"added,omitempty" yaml:"added,omitempty"`
	Updated []ModelUpdate   `json:"updated,omitempty" yaml:"updated,omitempty"`
	Removed []gateway.Model `json:"removed,omitempty" yaml:"removed,omitempty"`
}

// HasChanges returns true if the model changeset contains any changes.
func (m *ModelChangeset) HasChanges() bool {
	return len(m.Added) > 0 || len(m.Updated) > 0 || len(m.Removed) > 0
}

// MethodChange is a method that will be put on a resource.
type MethodChange struct {
	Path              string `json:"path" yaml:"path"`
	HTTPMethod        string `json:"http_method" yaml:"http_method"`
	AuthorizationType string `json:"authorization_type" yaml:"authorization_type"`
}

// ParameterChange is a request parameter flag that will be set.
type ParameterChange struct {
	Path       string `json:"path" yaml:"path"`
	HTTPMethod string `json:"http_method" yaml:"http_method"`
	Expression string `json:"expression" yaml:"expression"`
	Required   bool   `json:"required" yaml:"required"`
	Existing   *bool  `json:"existing,omitempty" yaml:"existing,omitempty"` // nil when the parameter is new
}

// Changeset represents every change between a definition and the remote state.
type Changeset struct {
	Resources  []ResourceChange  `json:"resources,omitempty" yaml:"resources,omitempty"`
	Models     *ModelChangeset   `json:"models" yaml:"models"`
	Methods    []MethodChange    `json:"methods,omitempty" yaml:"methods,omitempty"`
	Parameters []ParameterChange `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Summary    ChangesetSummary  `json:"summary" yaml:"summary"`
}

// ChangesetSummary provides summary statistics for a changeset.
// TotalChanges is the number of mutating calls the changes need.
type ChangesetSummary struct {
	ResourcesAdded    int `json:"resources_added" yaml:"resources_added"`
	ResourcesRemoved  int `json:"resources_removed" yaml:"resources_removed"`
	ModelsAdded       int `json:"models_added" yaml:"models_added"`
	ModelsUpdated     int `json:"models_updated" yaml:"models_updated"`
	ModelsRemoved     int `json:"models_removed" yaml:"models_removed"`
	MethodsAdded      int `json:"methods_added" yaml:"methods_added"`
	ParametersChanged int `json:"parameters_changed" yaml:"parameters_changed"`
	TotalChanges      int `json:"total_changes" yaml:"total_changes"`
}

// HasChanges returns true if the changeset contains any changes.
func (c *Changeset) HasChanges() bool {
	return c.Summary.TotalChanges > 0
}

// IsEmpty returns true if the changeset contains no changes.
func (c *Changeset) IsEmpty() bool {
	return c.Summary.TotalChanges == 0
}

func calculateSummary(c *Changeset) ChangesetSummary {
	s := ChangesetSummary{
		ModelsAdded:       len(c.Models.Added),
		ModelsUpdated:     len(c.Models.Updated),
		ModelsRemoved:     len(c.Models.Removed),
		MethodsAdded:      len(c.Methods),
		ParametersChanged: len(c.Parameters),
	}
	for _, r := range c.Resources {
		switch r.Type {
		case ChangeTypeAdd:
			s.ResourcesAdded++
		case ChangeTypeRemove:
			s.ResourcesRemoved++
		}
	}
	s.TotalChanges = s.ResourcesAdded + s.ResourcesRemoved +
		s.ModelsAdded + s.ModelsUpdated + s.ModelsRemoved +
		s.MethodsAdded + s.ParametersChanged
	return s
}

// String returns a human-readable summary of the changeset.
func (c *Changeset) String() string {
	if c.IsEmpty() {
		return "No changes detected"
	}

	var parts []string
	if c.Summary.ResourcesAdded > 0 || c.Summary.ResourcesRemoved > 0 {
		parts = append(parts, fmt.Sprintf("Resources: %s",
			counts(c.Summary.ResourcesAdded, 0, c.Summary.ResourcesRemoved)))
	}
	if c.Models.HasChanges() {
		parts = append(parts, fmt.Sprintf("Models: %s",
			counts(c.Summary.ModelsAdded, c.Summary.ModelsUpdated, c.Summary.ModelsRemoved)))
	}
	if c.Summary.MethodsAdded > 0 {
		parts = append(parts, fmt.Sprintf("Methods: %d added", c.Summary.MethodsAdded))
	}
	if c.Summary.ParametersChanged > 0 {
		parts = append(parts, fmt.Sprintf("Parameters: %d changed", c.Summary.ParametersChanged))
	}

	return fmt.Sprintf("Changeset: %s (Total: %d changes)", strings.Join(parts, "; "), c.Summary.TotalChanges)
}

func counts(added, updated, removed int) string {
	var parts []string
	if added > 0 {
		parts = append(parts, fmt.Sprintf("%d added", added))
	}
	if updated > 0 {
		parts = append(parts, fmt.Sprintf("%d updated", updated))
	}
	if removed > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", removed))
	}
	return strings.Join(parts, ", ")
}

// Print writes a detailed, human-readable view of the changeset.
func (c *Changeset) Print(w io.Writer) {
	fmt.Fprintln(w, c.String())
	if c.IsEmpty() {
		return
	}
	fmt.Fprintln(w, strings.Repeat("─", 80))

	if len(c.Resources) > 0 {
		fmt.Fprintf(w, "\nResources (%d):\n", len(c.Resources))
		for _, r := range c.Resources {
			fmt.Fprintf(w, "  %s %s\n", symbol(r.Type), r.Path)
		}
	}

	if c.Models.HasChanges() {
		fmt.Fprintf(w, "\nModels (%d):\n", len(c.Models.Added)+len(c.Models.Updated)+len(c.Models.Removed))
		for _, m := range c.Models.Added {
			fmt.Fprintf(w, "  %s %s\n", symbol(ChangeTypeAdd), m.Name)
		}
		for _, m := range c.Models.Updated {
			fmt.Fprintf(w, "  %s %s (schema)\n", symbol(ChangeTypeUpdate), m.Name)
		}
		for _, m := range c.Models.Removed {
			fmt.Fprintf(w, "  %s %s\n", symbol(ChangeTypeRemove), m.Name)
		}
	}

	if len(c.Methods) > 0 {
		fmt.Fprintf(w, "\nMethods (%d):\n", len(c.Methods))
		for _, m := range c.Methods {
			fmt.Fprintf(w, "  %s %s %s [%s]\n", symbol(ChangeTypeAdd), m.HTTPMethod, m.Path, m.AuthorizationType)
		}
	}

	if len(c.Parameters) > 0 {
		fmt.Fprintf(w, "\nParameters (%d):\n", len(c.Parameters))
		for _, p := range c.Parameters {
			change := ChangeTypeAdd
			if p.Existing != nil {
				change = ChangeTypeUpdate
			}
			fmt.Fprintf(w, "  %s %s %s %s required=%t\n", symbol(change), p.HTTPMethod, p.Path, p.Expression, p.Required)
		}
	}
}

func symbol(t ChangeType) string {
	switch t {
	case ChangeTypeAdd:
		return "+"
	case ChangeTypeUpdate:
		return "~"
	case ChangeTypeRemove:
		return "-"
	}
	return "?"
}

// ApplyStrategy represents which kinds of change to keep.
type ApplyStrategy string

const (
	// ApplyAll keeps all changes including removals.
	ApplyAll ApplyStrategy = "all"

	// ApplyAdditive keeps additions and updates, never removals.
	ApplyAdditive ApplyStrategy = "additive"
)

// Filter filters the changeset based on the apply strategy.
func (c *Changeset) Filter(strategy ApplyStrategy) *Changeset {
	if strategy == ApplyAll {
		return c
	}

	filtered := &Changeset{
		Models: &ModelChangeset{
			Added:   c.Models.Added,
			Updated: c.Models.Updated,
		},
		Methods:    c.Methods,
		Parameters: c.Parameters,
	}
	for _, r := range c.Resources {
		if r.Type != ChangeTypeRemove {
			filtered.Resources = append(filtered.Resources, r)
		}
	}
	filtered.Summary = calculateSummary(filtered)
	return filtered
}
