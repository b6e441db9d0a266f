package apisync

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/agentstation/apisync/pkg/constants"
	"github.com/agentstation/apisync/pkg/definition"
	"github.com/agentstation/apisync/pkg/errors"
	"github.com/agentstation/apisync/pkg/gateway"
	"github.com/agentstation/apisync/pkg/logging"
)

// CreateAPI creates an empty API.
func (s *syncer) CreateAPI(ctx context.Context, name, description string) (gateway.RestAPI, error) {
	if strings.TrimSpace(name) == "" {
		return gateway.RestAPI{}, &errors.ValidationError{Field: "name", Message: "cannot be empty"}
	}

	logging.FromContext(ctx).Info().Str("api_name", name).Msg("Creating API")

	api, err := s.client.CreateRestAPI(ctx, gateway.CreateRestAPIInput{Name: name, Description: description})
	if err != nil {
		return gateway.RestAPI{}, errors.WrapResource("create", "api", name, err)
	}
	return api, nil
}

// Import creates a new API and populates it from def. When populating
// fails the API is deleted and the returned *errors.ImportError reports
// whether that rollback succeeded.
func (s *syncer) Import(ctx context.Context, def *definition.Definition) (*Result, error) {
	if def == nil {
		return nil, &errors.ValidationError{Field: "definition", Message: "cannot be nil"}
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result := newResult(uuid.NewString())
	ctx = logging.WithRunID(ctx, result.RunID)

	// NotCreated -> Created
	api, err := s.CreateAPI(ctx, def.Name, def.Description)
	if err != nil {
		return nil, err
	}
	result.APIID = api.ID
	result.APIName = api.Name
	result.State = StateCreated
	ctx = logging.WithAPI(ctx, api.ID)

	p, err := s.newPass(api.ID, def, result)
	if err != nil {
		return nil, s.abortImport(ctx, api, result, stageModels, err)
	}

	fresh := false
	if s.config.deleteDefaults {
		report := p.models.DeleteDefaults(ctx, api.ID)
		result.Warnings = append(result.Warnings, report.Messages()...)
		fresh = !report.HasWarnings()
	}

	// Created -> Populating -> Populated | RolledBack
	result.State = StatePopulating
	if _, stage, err := p.populate(ctx, fresh); err != nil {
		return nil, s.abortImport(ctx, api, result, stage, err)
	}
	result.State = StatePopulated
	result.finalize()

	logging.FromContext(ctx).Info().
		Int("changes", result.Stats.Total()).
		Dur("duration", result.Duration).
		Msg("API imported")
	return result, nil
}

// abortImport rolls a failed import back and builds its error.
func (s *syncer) abortImport(ctx context.Context, api gateway.RestAPI, result *Result, stage string, cause error) error {
	logger := logging.FromContext(ctx)
	logger.Error().Err(cause).Str("stage", stage).Msg("Import failed, rolling back")

	// the API is deleted even when ctx was cancelled
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.ShutdownTimeout)
	defer cancel()

	importErr := &errors.ImportError{APIID: api.ID, Stage: stage, Err: cause}
	if err := s.Rollback(rctx, api); err != nil {
		logger.Error().Err(err).Msg("Rollback failed, API left in place")
		importErr.Err = errors.Join(cause, err)
		return importErr
	}
	importErr.RolledBack = true
	result.State = StateRolledBack
	result.finalize()
	s.hooks.rolledBack(api, cause)
	return importErr
}

// Rollback deletes an API built by a failed import.
func (s *syncer) Rollback(ctx context.Context, api gateway.RestAPI) error {
	logging.FromContext(ctx).Warn().Str("api_id", api.ID).Msg("Rolling back API")
	return s.DeleteAPI(ctx, api.ID)
}

// DeleteAPI deletes an API. An API that does not exist counts as deleted.
func (s *syncer) DeleteAPI(ctx context.Context, apiID string) error {
	logger := logging.FromContext(ctx)
	logger.Info().Str("api_id", apiID).Msg("Deleting API")

	if err := s.client.DeleteRestAPI(ctx, apiID); err != nil {
		if errors.IsNotFound(err) {
			logger.Debug().Str("api_id", apiID).Msg("API already deleted")
			return nil
		}
		return errors.WrapResource("delete", "api", apiID, err)
	}
	return nil
}

// Deploy publishes the current state of an API to a stage. Deployments are
// append-only: every call creates a new one.
func (s *syncer) Deploy(ctx context.Context, apiID, stage, description string) (gateway.Deployment, error) {
	if strings.TrimSpace(stage) == "" {
		return gateway.Deployment{}, &errors.ValidationError{Field: "stage", Message: "cannot be empty"}
	}

	logging.FromContext(ctx).Info().
		Str("api_id", apiID).
		Str("stage", stage).
		Msg("Creating deployment")

	deployment, err := s.client.CreateDeployment(ctx, apiID, gateway.CreateDeploymentInput{
		StageName:   stage,
		Description: description,
	})
	if err != nil {
		return gateway.Deployment{}, errors.WrapResource("deploy", "api", apiID, err)
	}
	return deployment, nil
}
