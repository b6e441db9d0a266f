package metrics

import (
	"context"
	"time"

	"github.com/agentstation/apisync/pkg/gateway"
	"github.com/agentstation/apisync/pkg/patch"
)

// Instrument wraps client so every call is recorded on r.
func Instrument(client gateway.Client, r *Recorder) gateway.Client {
	if r == nil {
		return client
	}
	return &instrumented{next: client, rec: r}
}

type instrumented struct {
	next gateway.Client
	rec  *Recorder
}

func (c *instrumented) observe(operation string, mutating bool, start time.Time, err error) {
	c.rec.RecordCall(operation, mutating, time.Since(start), err)
}

func (c *instrumented) GetRestAPI(ctx context.Context, apiID string) (gateway.RestAPI, error) {
	start := time.Now()
	api, err := c.next.GetRestAPI(ctx, apiID)
	c.observe("GetRestApi", false, start, err)
	return api, err
}

func (c *instrumented) CreateRestAPI(ctx context.Context, input gateway.CreateRestAPIInput) (gateway.RestAPI, error) {
	start := time.Now()
	api, err := c.next.CreateRestAPI(ctx, input)
	c.observe("CreateRestApi", true, start, err)
	return api, err
}

func (c *instrumented) DeleteRestAPI(ctx context.Context, apiID string) error {
	start := time.Now()
	err := c.next.DeleteRestAPI(ctx, apiID)
	c.observe("DeleteRestApi", true, start, err)
	return err
}

func (c *instrumented) GetResources(ctx context.Context, apiID, position string) (gateway.Page[gateway.Resource], error) {
	start := time.Now()
	page, err := c.next.GetResources(ctx, apiID, position)
	c.observe("GetResources", false, start, err)
	return page, err
}

func (c *instrumented) CreateResource(ctx context.Context, apiID, parentID, pathPart string) (gateway.Resource, error) {
	start := time.Now()
	res, err := c.next.CreateResource(ctx, apiID, parentID, pathPart)
	c.observe("CreateResource", true, start, err)
	return res, err
}

func (c *instrumented) DeleteResource(ctx context.Context, apiID, resourceID string) error {
	start := time.Now()
	err := c.next.DeleteResource(ctx, apiID, resourceID)
	c.observe("DeleteResource", true, start, err)
	return err
}

func (c *instrumented) GetModels(ctx context.Context, apiID, position string) (gateway.Page[gateway.Model], error) {
	start := time.Now()
	page, err := c.next.GetModels(ctx, apiID, position)
	c.observe("GetModels", false, start, err)
	return page, err
}

func (c *instrumented) GetModel(ctx context.Context, apiID, name string) (gateway.Model, error) {
	start := time.Now()
	model, err := c.next.GetModel(ctx, apiID, name)
	c.observe("GetModel", false, start, err)
	return model, err
}

func (c *instrumented) CreateModel(ctx context.Context, apiID string, input gateway.CreateModelInput) (gateway.Model, error) {
	start := time.Now()
	model, err := c.next.CreateModel(ctx, apiID, input)
	c.observe("CreateModel", true, start, err)
	return model, err
}

func (c *instrumented) UpdateModel(ctx context.Context, apiID, name string, doc patch.Document) (gateway.Model, error) {
	start := time.Now()
	model, err := c.next.UpdateModel(ctx, apiID, name, doc)
	c.observe("UpdateModel", true, start, err)
	return model, err
}

func (c *instrumented) DeleteModel(ctx context.Context, apiID, name string) error {
	start := time.Now()
	err := c.next.DeleteModel(ctx, apiID, name)
	c.observe("DeleteModel", true, start, err)
	return err
}

func (c *instrumented) PutMethod(ctx context.Context, apiID, resourceID string, input gateway.PutMethodInput) (gateway.Method, error) {
	start := time.Now()
	method, err := c.next.PutMethod(ctx, apiID, resourceID, input)
	c.observe("PutMethod", true, start, err)
	return method, err
}

func (c *instrumented) UpdateMethod(ctx context.Context, apiID, resourceID, httpMethod string, doc patch.Document) (gateway.Method, error) {
	start := time.Now()
	method, err := c.next.UpdateMethod(ctx, apiID, resourceID, httpMethod, doc)
	c.observe("UpdateMethod", true, start, err)
	return method, err
}

func (c *instrumented) CreateDeployment(ctx context.Context, apiID string, input gateway.CreateDeploymentInput) (gateway.Deployment, error) {
	start := time.Now()
	deployment, err := c.next.CreateDeployment(ctx, apiID, input)
	c.observe("CreateDeployment", true, start, err)
	return deployment, err
}
