package differ

import (
	"sort"

	"github.com/agentstation/apisync/pkg/definition"
	"github.com/agentstation/apisync/pkg/gateway"
	"github.com/agentstation/apisync/pkg/paths"
	"github.com/agentstation/apisync/pkg/reconciler"
)

// Snapshot is the remote state of one API.
type Snapshot struct {
	Resources []gateway.Resource
	Models    []gateway.Model
}

// Differ handles change detection between a definition and the remote state.
type Differ interface {
	// Compute returns the changes that would bring snapshot to def.
	Compute(def *definition.Definition, snapshot Snapshot) (*Changeset, error)
}

// differ is the default implementation of Differ.
type differ struct {
	prune        bool
	modelCleanup bool
}

// New creates a Differ. Pruning and model cleanup are on by default.
func New(opts ...Option) Differ {
	d := &differ{
		prune:        true,
		modelCleanup: true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Compute implements Differ.
func (d *differ) Compute(def *definition.Definition, snapshot Snapshot) (*Changeset, error) {
	models, err := d.models(def, snapshot.Models)
	if err != nil {
		return nil, err
	}

	idx := reconciler.NewIndex("", snapshot.Resources)
	changeset := &Changeset{
		Resources: d.resources(def, idx),
		Models:    models,
	}
	changeset.Methods, changeset.Parameters = d.methods(def, idx)
	changeset.Summary = calculateSummary(changeset)
	return changeset, nil
}

func (d *differ) resources(def *definition.Definition, idx *reconciler.Index) []ResourceChange {
	var changes []ResourceChange
	keep := make(map[string]bool)
	for _, path := range def.ResourcePaths() {
		keep[path] = true
		if paths.IsRoot(path) {
			// the service creates the root with the API
			continue
		}
		if _, ok := idx.ByPath(path); !ok {
			changes = append(changes, ResourceChange{Type: ChangeTypeAdd, Path: path})
		}
	}
	if d.prune {
		for _, orphan := range reconciler.Orphans(idx, keep) {
			changes = append(changes, ResourceChange{Type: ChangeTypeRemove, Path: orphan.Path, ID: orphan.ID})
		}
	}
	return changes
}

func (d *differ) models(def *definition.Definition, existing []gateway.Model) (*ModelChangeset, error) {
	changeset := &ModelChangeset{}

	remote := make(map[string]gateway.Model, len(existing))
	for _, m := range existing {
		remote[m.Name] = m
	}

	for _, spec := range def.Models {
		desired, err := spec.Model()
		if err != nil {
			return nil, err
		}
		current, ok := remote[desired.Name]
		switch {
		case !ok:
			changeset.Added = append(changeset.Added, desired)
		case !reconciler.SchemaEqual(current.Schema, desired.Schema):
			changeset.Updated = append(changeset.Updated, ModelUpdate{
				Name:      desired.Name,
				OldSchema: current.Schema,
				NewSchema: desired.Schema,
			})
		}
	}

	if d.modelCleanup {
		wanted := def.ModelNames()
		for _, m := range existing {
			if !wanted[m.Name] {
				changeset.Removed = append(changeset.Removed, m)
			}
		}
		sort.Slice(changeset.Removed, func(i, j int) bool {
			return changeset.Removed[i].Name < changeset.Removed[j].Name
		})
	}
	return changeset, nil
}

func (d *differ) methods(def *definition.Definition, idx *reconciler.Index) ([]MethodChange, []ParameterChange) {
	var methods []MethodChange
	var params []ParameterChange

	for _, p := range def.Paths {
		fullPath := def.FullPath(p)
		resource, _ := idx.ByPath(fullPath)

		for _, spec := range p.Methods {
			httpMethod := gateway.NormalizeHTTPMethod(spec.HTTPMethod)
			existing, ok := resource.Method(httpMethod)
			if !ok {
				methods = append(methods, MethodChange{
					Path:              fullPath,
					HTTPMethod:        httpMethod,
					AuthorizationType: def.AuthorizationType(fullPath, httpMethod),
				})
			}

			for _, param := range spec.Parameters {
				expression := param.Expression()
				change := ParameterChange{
					Path:       fullPath,
					HTTPMethod: httpMethod,
					Expression: expression,
					Required:   param.Required,
				}
				if current, found := existing.Parameter(expression); found {
					if current == param.Required {
						continue
					}
					change.Existing = &current
				}
				params = append(params, change)
			}
		}
	}
	return methods, params
}
