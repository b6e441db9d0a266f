package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/agentstation/apisync/pkg/gateway"
	"github.com/agentstation/apisync/pkg/patch"
)

var _ gateway.Client = (*Client)(nil)

// resourceWire carries the capability links the service attaches to each
// resource under "_links".
type resourceWire struct {
	gateway.Resource
	Links map[string]json.RawMessage `json:"_links,omitempty"`
}

func (w resourceWire) resource() gateway.Resource {
	r := w.Resource
	r.Links = make([]string, 0, len(w.Links))
	for rel := range w.Links {
		r.Links = append(r.Links, rel)
	}
	sort.Strings(r.Links)
	return r
}

func (c *Client) pageQuery(position string, embed ...string) url.Values {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(c.pageLimit))
	if position != "" {
		query.Set("position", position)
	}
	for _, e := range embed {
		query.Add("embed", e)
	}
	return query
}

// GetRestAPI fetches an API by id.
func (c *Client) GetRestAPI(ctx context.Context, apiID string) (gateway.RestAPI, error) {
	var api gateway.RestAPI
	err := c.call(ctx, request{
		operation: "GetRestApi",
		method:    http.MethodGet,
		segments:  []string{"restapis", apiID},
	}, &api)
	return api, err
}

// CreateRestAPI creates an empty API.
func (c *Client) CreateRestAPI(ctx context.Context, input gateway.CreateRestAPIInput) (gateway.RestAPI, error) {
	var api gateway.RestAPI
	err := c.call(ctx, request{
		operation: "CreateRestApi",
		method:    http.MethodPost,
		segments:  []string{"restapis"},
		body:      input,
	}, &api)
	return api, err
}

// DeleteRestAPI deletes an API and everything in it.
func (c *Client) DeleteRestAPI(ctx context.Context, apiID string) error {
	return c.call(ctx, request{
		operation: "DeleteRestApi",
		method:    http.MethodDelete,
		segments:  []string{"restapis", apiID},
	}, nil)
}

// GetResources fetches one page of resources with their methods embedded.
func (c *Client) GetResources(ctx context.Context, apiID, position string) (gateway.Page[gateway.Resource], error) {
	var wire gateway.Page[resourceWire]
	err := c.call(ctx, request{
		operation: "GetResources",
		method:    http.MethodGet,
		segments:  []string{"restapis", apiID, "resources"},
		query:     c.pageQuery(position, "methods"),
	}, &wire)
	if err != nil {
		return gateway.Page[gateway.Resource]{}, err
	}

	page := gateway.Page[gateway.Resource]{
		Items:    make([]gateway.Resource, 0, len(wire.Items)),
		Position: wire.Position,
	}
	for _, w := range wire.Items {
		page.Items = append(page.Items, w.resource())
	}
	return page, nil
}

// CreateResource creates a child resource under parentID.
func (c *Client) CreateResource(ctx context.Context, apiID, parentID, pathPart string) (gateway.Resource, error) {
	var wire resourceWire
	err := c.call(ctx, request{
		operation: "CreateResource",
		method:    http.MethodPost,
		segments:  []string{"restapis", apiID, "resources", parentID},
		body:      map[string]string{"pathPart": pathPart},
	}, &wire)
	if err != nil {
		return gateway.Resource{}, err
	}
	return wire.resource(), nil
}

// DeleteResource deletes a resource and its descendants.
func (c *Client) DeleteResource(ctx context.Context, apiID, resourceID string) error {
	return c.call(ctx, request{
		operation: "DeleteResource",
		method:    http.MethodDelete,
		segments:  []string{"restapis", apiID, "resources", resourceID},
	}, nil)
}

// GetModels fetches one page of models.
func (c *Client) GetModels(ctx context.Context, apiID, position string) (gateway.Page[gateway.Model], error) {
	var page gateway.Page[gateway.Model]
	err := c.call(ctx, request{
		operation: "GetModels",
		method:    http.MethodGet,
		segments:  []string{"restapis", apiID, "models"},
		query:     c.pageQuery(position),
	}, &page)
	return page, err
}

// GetModel fetches a model by name.
func (c *Client) GetModel(ctx context.Context, apiID, name string) (gateway.Model, error) {
	var model gateway.Model
	err := c.call(ctx, request{
		operation: "GetModel",
		method:    http.MethodGet,
		segments:  []string{"restapis", apiID, "models", name},
	}, &model)
	return model, err
}

// CreateModel creates a model.
func (c *Client) CreateModel(ctx context.Context, apiID string, input gateway.CreateModelInput) (gateway.Model, error) {
	var model gateway.Model
	err := c.call(ctx, request{
		operation: "CreateModel",
		method:    http.MethodPost,
		segments:  []string{"restapis", apiID, "models"},
		body:      input,
	}, &model)
	return model, err
}

// UpdateModel applies a patch document to a model.
func (c *Client) UpdateModel(ctx context.Context, apiID, name string, doc patch.Document) (gateway.Model, error) {
	body, err := doc.JSON()
	if err != nil {
		return gateway.Model{}, err
	}
	var model gateway.Model
	err = c.call(ctx, request{
		operation: "UpdateModel",
		method:    http.MethodPatch,
		segments:  []string{"restapis", apiID, "models", name},
		body:      body,
	}, &model)
	return model, err
}

// DeleteModel deletes a model.
func (c *Client) DeleteModel(ctx context.Context, apiID, name string) error {
	return c.call(ctx, request{
		operation: "DeleteModel",
		method:    http.MethodDelete,
		segments:  []string{"restapis", apiID, "models", name},
	}, nil)
}

// PutMethod creates or replaces a method on a resource.
func (c *Client) PutMethod(ctx context.Context, apiID, resourceID string, input gateway.PutMethodInput) (gateway.Method, error) {
	httpMethod := gateway.NormalizeHTTPMethod(input.HTTPMethod)
	var method gateway.Method
	err := c.call(ctx, request{
		operation: "PutMethod",
		method:    http.MethodPut,
		segments:  []string{"restapis", apiID, "resources", resourceID, "methods", httpMethod},
		body:      input,
	}, &method)
	if err == nil && method.HTTPMethod == "" {
		method.HTTPMethod = httpMethod
	}
	return method, err
}

// UpdateMethod applies a patch document to a method.
func (c *Client) UpdateMethod(ctx context.Context, apiID, resourceID, httpMethod string, doc patch.Document) (gateway.Method, error) {
	body, err := doc.JSON()
	if err != nil {
		return gateway.Method{}, err
	}
	httpMethod = gateway.NormalizeHTTPMethod(httpMethod)
	var method gateway.Method
	err = c.call(ctx, request{
		operation: "UpdateMethod",
		method:    http.MethodPatch,
		segments:  []string{"restapis", apiID, "resources", resourceID, "methods", httpMethod},
		body:      body,
	}, &method)
	if err == nil && method.HTTPMethod == "" {
		method.HTTPMethod = httpMethod
	}
	return method, err
}

// CreateDeployment publishes the API to a stage.
func (c *Client) CreateDeployment(ctx context.Context, apiID string, input gateway.CreateDeploymentInput) (gateway.Deployment, error) {
	var deployment gateway.Deployment
	err := c.call(ctx, request{
		operation: "CreateDeployment",
		method:    http.MethodPost,
		segments:  []string{"restapis", apiID, "deployments"},
		body:      input,
	}, &deployment)
	return deployment, err
}
