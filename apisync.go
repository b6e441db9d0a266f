// Package apisync synchronizes a declarative API definition onto a remote
// API-management service.
//
// The service only offers imperative create, update, delete and list
// calls. A Syncer fetches the remote state, compares it with the
// definition and issues the smallest set of calls that makes the two
// match, so running it twice in a row performs no mutation the second time.
//
//	s, err := apisync.New(client) // any gateway.Client
//	if err != nil {
//		return err
//	}
//	result, err := s.Import(ctx, def)
package apisync

import (
	"context"

	"github.com/agentstation/apisync/pkg/definition"
	"github.com/agentstation/apisync/pkg/differ"
	"github.com/agentstation/apisync/pkg/errors"
	"github.com/agentstation/apisync/pkg/gateway"
)

// Syncer drives the lifecycle of APIs on the remote service
type Syncer interface {
	// CreateAPI creates an empty API
	CreateAPI(ctx context.Context, name, description string) (gateway.RestAPI, error)

	// Import creates a new API and populates it from the definition.
	// A failure while populating deletes the API again.
	Import(ctx context.Context, def *definition.Definition) (*Result, error)

	// Update reconciles an existing API with the definition
	Update(ctx context.Context, apiID string, def *definition.Definition) (*Result, error)

	// Plan reports what Update would change without changing anything
	Plan(ctx context.Context, apiID string, def *definition.Definition) (*differ.Changeset, error)

	// Deploy publishes the current state of an API to a stage
	Deploy(ctx context.Context, apiID, stage, description string) (gateway.Deployment, error)

	// Rollback deletes an API built by a failed import
	Rollback(ctx context.Context, api gateway.RestAPI) error

	// DeleteAPI deletes an API. An API that does not exist counts as deleted.
	DeleteAPI(ctx context.Context, apiID string) error

	// OnResourceCreated registers a callback for created resources
	OnResourceCreated(ResourceCreatedHook)

	// OnModelChanged registers a callback for model changes
	OnModelChanged(ModelChangedHook)

	// OnRollback registers a callback for rolled back imports
	OnRollback(RollbackHook)
}

// syncer is the internal implementation of the Syncer interface
type syncer struct {
	*hooks
	client gateway.Client
	config *config
}

// New creates a Syncer talking to client
func New(client gateway.Client, opts ...Option) (Syncer, error) {
	if client == nil {
		return nil, &errors.ValidationError{Field: "client", Message: "cannot be nil"}
	}

	s := &syncer{
		hooks:  newHooks(),
		client: client,
		config: defaultConfig(),
	}
	for _, opt := range opts {
		if err := opt(s.config); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// withTimeout applies the configured timeout to ctx
func (s *syncer) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.config.timeout > 0 {
		return context.WithTimeout(ctx, s.config.timeout)
	}
	return ctx, func() {}
}
