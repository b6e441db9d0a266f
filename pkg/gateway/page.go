package gateway

import (
	"context"
)

// Page is one page of a remote listing. Position is the opaque handle of
// the next page; it is empty on the last page.
type Page[T any] struct {
	Items    []T    `json:"item"`
	Position string `json:"position,omitempty"`
}

// HasNext reports whether another page is available.
func (p Page[T]) HasNext() bool {
	return p.Position != ""
}

// FetchFunc fetches the page at position. The first page has an empty position.
type FetchFunc[T any] func(ctx context.Context, position string) (Page[T], error)

// Collect walks a paged listing and returns every item in order.
// Termination relies on the service eventually returning a last page.
func Collect[T any](ctx context.Context, fetch FetchFunc[T]) ([]T, error) {
	page, err := fetch(ctx, "")
	if err != nil {
		return nil, err
	}

	items := append([]T(nil), page.Items...)
	for page.HasNext() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err = fetch(ctx, page.Position)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// ListResources materializes every resource of an API.
func ListResources(ctx context.Context, client Client, apiID string) ([]Resource, error) {
	return Collect(ctx, func(ctx context.Context, position string) (Page[Resource], error) {
		return client.GetResources(ctx, apiID, position)
	})
}

// ListModels materializes every model of an API.
func ListModels(ctx context.Context, client Client, apiID string) ([]Model, error) {
	return Collect(ctx, func(ctx context.Context, position string) (Page[Model], error) {
		return client.GetModels(ctx, apiID, position)
	})
}
