package gateway

import (
	"context"

	"github.com/agentstation/apisync/pkg/patch"
)

// Client is the imperative surface of the management service.
// Every listing is paged: pass an empty position for the first page and
// Page.Position for the following ones.
type Client interface {
	GetRestAPI(ctx context.Context, apiID string) (RestAPI, error)
	CreateRestAPI(ctx context.Context, input CreateRestAPIInput) (RestAPI, error)
	DeleteRestAPI(ctx context.Context, apiID string) error

	GetResources(ctx context.Context, apiID, position string) (Page[Resource], error)
	CreateResource(ctx context.Context, apiID, parentID, pathPart string) (Resource, error)
	DeleteResource(ctx context.Context, apiID, resourceID string) error

	GetModels(ctx context.Context, apiID, position string) (Page[Model], error)
	GetModel(ctx context.Context, apiID, name string) (Model, error)
	CreateModel(ctx context.Context, apiID string, input CreateModelInput) (Model, error)
	UpdateModel(ctx context.Context, apiID, name string, doc patch.Document) (Model, error)
	DeleteModel(ctx context.Context, apiID, name string) error

	PutMethod(ctx context.Context, apiID, resourceID string, input PutMethodInput) (Method, error)
	UpdateMethod(ctx context.Context, apiID, resourceID, httpMethod string, doc patch.Document) (Method, error)

	CreateDeployment(ctx context.Context, apiID string, input CreateDeploymentInput) (Deployment, error)
}
