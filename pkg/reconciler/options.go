package reconciler

import (
	"context"

	"github.com/agentstation/apisync/pkg/constants"
	"github.com/agentstation/apisync/pkg/errors"
	"github.com/agentstation/apisync/pkg/gateway"
)

// ModelAction is what Models.Ensure did to a model.
type ModelAction string

// Model actions.
const (
	ModelUnchanged ModelAction = "unchanged"
	ModelCreated   ModelAction = "created"
	ModelUpdated   ModelAction = "updated"
	ModelDeleted   ModelAction = "deleted"
)

// ResourceCreatedFunc is called after a resource has been created.
type ResourceCreatedFunc func(ctx context.Context, resource gateway.Resource)

// ModelChangedFunc is called after a model has been created, updated or deleted.
type ModelChangedFunc func(ctx context.Context, name string, action ModelAction)

// options configures the reconcilers.
type options struct {
	contentType       string
	onResourceCreated ResourceCreatedFunc
	onModelChanged    ModelChangedFunc
}

func defaultOptions() *options {
	return &options{
		contentType: constants.DefaultContentType,
	}
}

// Option is a function that configures a reconciler.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithContentType sets the content type used for models that do not declare one.
func WithContentType(contentType string) Option {
	return func(o *options) error {
		if contentType == "" {
			return &errors.ValidationError{
				Field:   "contentType",
				Message: "cannot be empty",
			}
		}
		o.contentType = contentType
		return nil
	}
}

// WithResourceCreated registers a callback for created resources.
func WithResourceCreated(fn ResourceCreatedFunc) Option {
	return func(o *options) error {
		o.onResourceCreated = fn
		return nil
	}
}

// WithModelChanged registers a callback for model changes.
func WithModelChanged(fn ModelChangedFunc) Option {
	return func(o *options) error {
		o.onModelChanged = fn
		return nil
	}
}

func (o *options) resourceCreated(ctx context.Context, resource gateway.Resource) {
	if o.onResourceCreated != nil {
		o.onResourceCreated(ctx, resource)
	}
}

func (o *options) modelChanged(ctx context.Context, name string, action ModelAction) {
	if o.onModelChanged != nil && action != ModelUnchanged {
		o.onModelChanged(ctx, name, action)
	}
}

func checkClient(client gateway.Client) error {
	if client == nil {
		return &errors.ValidationError{
			Field:   "client",
			Message: "cannot be nil",
		}
	}
	return nil
}
