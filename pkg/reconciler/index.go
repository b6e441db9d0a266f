package reconciler

import (
	"sort"
	"strings"

	"github.com/agentstation/apisync/pkg/gateway"
)

type childKey struct {
	parentID string
	pathPart string
}

func keyOf(parentID, pathPart string) childKey {
	// blank path parts all match each other
	if strings.TrimSpace(pathPart) == "" {
		pathPart = ""
	}
	return childKey{parentID: parentID, pathPart: pathPart}
}

// Index is a snapshot of an API's resource tree, built once per pass.
// Lookups by (parent, path part) and by full path are constant time, and
// resources created during the pass are added so later lookups see them.
type Index struct {
	apiID    string
	byID     map[string]gateway.Resource
	byPath   map[string]string
	children map[childKey]string
	rootID   string
}

// NewIndex builds an index from a materialized resource listing.
func NewIndex(apiID string, resources []gateway.Resource) *Index {
	idx := &Index{
		apiID:    apiID,
		byID:     make(map[string]gateway.Resource, len(resources)),
		byPath:   make(map[string]string, len(resources)),
		children: make(map[childKey]string, len(resources)),
	}
	for _, r := range resources {
		idx.Add(r)
	}
	return idx
}

// APIID returns the API the index was built for.
func (idx *Index) APIID() string {
	return idx.apiID
}

// Add inserts or replaces a resource.
func (idx *Index) Add(r gateway.Resource) {
	idx.byID[r.ID] = r
	idx.byPath[r.Path] = r.ID
	if r.IsRoot() {
		idx.rootID = r.ID
		return
	}
	idx.children[keyOf(r.ParentID, r.PathPart)] = r.ID
}

// Remove drops a resource and every descendant.
func (idx *Index) Remove(id string) {
	r, ok := idx.byID[id]
	if !ok {
		return
	}
	for _, child := range idx.Children(id) {
		idx.Remove(child.ID)
	}
	delete(idx.byID, id)
	delete(idx.byPath, r.Path)
	delete(idx.children, keyOf(r.ParentID, r.PathPart))
	if idx.rootID == id {
		idx.rootID = ""
	}
}

// Root returns the root resource.
func (idx *Index) Root() (gateway.Resource, bool) {
	if idx.rootID == "" {
		return gateway.Resource{}, false
	}
	return idx.byID[idx.rootID], true
}

// Child returns the child of parentID with the given path part.
func (idx *Index) Child(parentID, pathPart string) (gateway.Resource, bool) {
	id, ok := idx.children[keyOf(parentID, pathPart)]
	if !ok {
		return gateway.Resource{}, false
	}
	return idx.byID[id], true
}

// ByPath returns the resource with the exact canonical full path.
func (idx *Index) ByPath(fullPath string) (gateway.Resource, bool) {
	id, ok := idx.byPath[fullPath]
	if !ok {
		return gateway.Resource{}, false
	}
	return idx.byID[id], true
}

// ByID returns the resource with the given id.
func (idx *Index) ByID(id string) (gateway.Resource, bool) {
	r, ok := idx.byID[id]
	return r, ok
}

// Children returns the direct children of a resource.
func (idx *Index) Children(parentID string) []gateway.Resource {
	var out []gateway.Resource
	for _, r := range idx.byID {
		if !r.IsRoot() && r.ParentID == parentID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Resources returns every indexed resource sorted by path.
func (idx *Index) Resources() []gateway.Resource {
	out := make([]gateway.Resource, 0, len(idx.byID))
	for _, r := range idx.byID {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Len returns the number of indexed resources.
func (idx *Index) Len() int {
	return len(idx.byID)
}
