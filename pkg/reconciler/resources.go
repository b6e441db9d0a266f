// Package reconciler converges the remote state of an API towards a desired
// state. Each reconciler fetches the current remote listing, diffs it against
// what is wanted and issues the fewest mutating calls that close the gap.
// Reconcilers hold no state between invocations.
package reconciler

import (
	"context"

	"github.com/agentstation/apisync/pkg/errors"
	"github.com/agentstation/apisync/pkg/gateway"
	"github.com/agentstation/apisync/pkg/logging"
	"github.com/agentstation/apisync/pkg/paths"
)

// Resources reconciles the resource tree of an API.
type Resources struct {
	client  gateway.Client
	options *options
}

// NewResources creates a resource reconciler.
func NewResources(client gateway.Client, opts ...Option) (*Resources, error) {
	if err := checkClient(client); err != nil {
		return nil, err
	}
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &Resources{client: client, options: o}, nil
}

// Index materializes the full resource listing of an API.
func (r *Resources) Index(ctx context.Context, apiID string) (*Index, error) {
	resources, err := gateway.ListResources(ctx, r.client, apiID)
	if err != nil {
		return nil, errors.WrapResource("list", "resources", apiID, err)
	}
	return NewIndex(apiID, resources), nil
}

// Root returns the root resource. It is never created.
func (r *Resources) Root(ctx context.Context, apiID string) (gateway.Resource, error) {
	idx, err := r.Index(ctx, apiID)
	if err != nil {
		return gateway.Resource{}, err
	}
	root, ok := idx.Root()
	if !ok {
		return gateway.Resource{}, errors.NewNotFoundError("root resource", apiID)
	}
	return root, nil
}

// ByPath looks a resource up by its canonical full path.
func (r *Resources) ByPath(ctx context.Context, apiID, fullPath string) (gateway.Resource, bool, error) {
	idx, err := r.Index(ctx, apiID)
	if err != nil {
		return gateway.Resource{}, false, err
	}
	res, ok := idx.ByPath(paths.Build("", fullPath))
	return res, ok, nil
}

// Ensure returns the child of parentID named pathPart, creating it when
// no such child exists.
func (r *Resources) Ensure(ctx context.Context, apiID, parentID, pathPart string) (gateway.Resource, error) {
	idx, err := r.Index(ctx, apiID)
	if err != nil {
		return gateway.Resource{}, err
	}
	return r.EnsureChild(ctx, idx, parentID, pathPart)
}

// EnsureChild is Ensure against an existing index. A created resource is
// added to the index.
func (r *Resources) EnsureChild(ctx context.Context, idx *Index, parentID, pathPart string) (gateway.Resource, error) {
	if existing, ok := idx.Child(parentID, pathPart); ok {
		return existing, nil
	}
	if err := ctx.Err(); err != nil {
		return gateway.Resource{}, err
	}

	logger := logging.FromContext(ctx)
	logger.Info().
		Str("parent_id", parentID).
		Str("path_part", pathPart).
		Msg("Creating resource")

	created, err := r.client.CreateResource(ctx, idx.APIID(), parentID, pathPart)
	if err != nil {
		return gateway.Resource{}, errors.WrapResource("create", "resource", pathPart, err)
	}
	idx.Add(created)
	r.options.resourceCreated(ctx, created)
	return created, nil
}

// EnsurePath creates every missing resource along fullPath, parent before
// child, and returns the deepest one.
func (r *Resources) EnsurePath(ctx context.Context, apiID, fullPath string) (gateway.Resource, error) {
	idx, err := r.Index(ctx, apiID)
	if err != nil {
		return gateway.Resource{}, err
	}
	return r.EnsurePathIn(ctx, idx, fullPath)
}

// EnsurePathIn is EnsurePath against an existing index.
func (r *Resources) EnsurePathIn(ctx context.Context, idx *Index, fullPath string) (gateway.Resource, error) {
	canonical := paths.Build("", fullPath)
	if existing, ok := idx.ByPath(canonical); ok {
		return existing, nil
	}

	current, ok := idx.Root()
	if !ok {
		return gateway.Resource{}, errors.NewNotFoundError("root resource", idx.APIID())
	}
	for _, segment := range paths.Split(canonical) {
		next, err := r.EnsureChild(ctx, idx, current.ID, segment)
		if err != nil {
			return gateway.Resource{}, err
		}
		current = next
	}
	return current, nil
}

// Delete removes a resource if it advertises the delete capability.
// The root is never deleted and a resource that is already gone counts as
// deleted. It reports whether a delete call was made.
func (r *Resources) Delete(ctx context.Context, apiID string, resource gateway.Resource) (bool, error) {
	if !resource.CanDelete() {
		return false, nil
	}

	logger := logging.FromContext(ctx)
	logger.Info().
		Str("resource_id", resource.ID).
		Str("resource_path", resource.Path).
		Msg("Deleting resource")

	if err := r.client.DeleteResource(ctx, apiID, resource.ID); err != nil {
		if errors.IsNotFound(err) {
			logger.Debug().Str("resource_id", resource.ID).Msg("Resource already deleted")
			return true, nil
		}
		return true, errors.WrapResource("delete", "resource", resource.Path, err)
	}
	return true, nil
}

// Orphans returns the top-most indexed resources whose path is not in keep.
// An orphan is not listed when an orphaned ancestor that can be deleted
// will take it along. The root is never an orphan.
func Orphans(idx *Index, keep map[string]bool) []gateway.Resource {
	var out []gateway.Resource
	for _, res := range idx.Resources() {
		if res.IsRoot() || keep[res.Path] {
			continue
		}
		if coveredByAncestor(idx, res, keep) {
			continue
		}
		out = append(out, res)
	}
	return out
}

// coveredByAncestor reports whether an orphaned, deletable ancestor of res exists.
func coveredByAncestor(idx *Index, res gateway.Resource, keep map[string]bool) bool {
	seen := map[string]bool{res.ID: true}
	for parent, ok := idx.ByID(res.ParentID); ok && !parent.IsRoot() && !seen[parent.ID]; parent, ok = idx.ByID(parent.ParentID) {
		seen[parent.ID] = true
		if !keep[parent.Path] && parent.CanDelete() {
			return true
		}
	}
	return false
}
