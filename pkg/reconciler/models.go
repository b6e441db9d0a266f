package reconciler

import (
	"context"
	"fmt"
	"sort"

	"github.com/agentstation/apisync/pkg/errors"
	"github.com/agentstation/apisync/pkg/gateway"
	"github.com/agentstation/apisync/pkg/logging"
	"github.com/agentstation/apisync/pkg/patch"
)

// CleanupWarning is a model that could not be deleted.
type CleanupWarning struct {
	Model string
	Err   error
}

// CleanupReport is the outcome of a best-effort model cleanup.
type CleanupReport struct {
	Deleted  []string // delete call succeeded
	Missing  []string // already gone when deleted
	Warnings []CleanupWarning
}

// HasWarnings reports whether any delete failed.
func (r *CleanupReport) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Err joins every warning into one error, or returns nil.
func (r *CleanupReport) Err() error {
	if !r.HasWarnings() {
		return nil
	}
	errs := make([]error, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		errs = append(errs, fmt.Errorf("model %s: %w", w.Model, w.Err))
	}
	return errors.Join(errs...)
}

// Messages returns the warnings as strings.
func (r *CleanupReport) Messages() []string {
	out := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		out = append(out, fmt.Sprintf("could not delete model %s: %v", w.Model, w.Err))
	}
	return out
}

// Models reconciles the model catalog of an API.
type Models struct {
	client  gateway.Client
	options *options
}

// NewModels creates a model reconciler.
func NewModels(client gateway.Client, opts ...Option) (*Models, error) {
	if err := checkClient(client); err != nil {
		return nil, err
	}
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &Models{client: client, options: o}, nil
}

// Get returns the named model. Any lookup failure counts as absence.
func (m *Models) Get(ctx context.Context, apiID, name string) (gateway.Model, bool) {
	model, err := m.client.GetModel(ctx, apiID, name)
	if err != nil {
		if !errors.IsNotFound(err) {
			logging.FromContext(ctx).Debug().
				Err(err).
				Str("model", name).
				Msg("Model lookup failed, treating as absent")
		}
		return gateway.Model{}, false
	}
	return model, true
}

// Create creates a model. An empty content type is replaced by the default.
func (m *Models) Create(ctx context.Context, apiID string, model gateway.Model) (gateway.Model, error) {
	if model.ContentType == "" {
		model.ContentType = m.options.contentType
	}

	logging.FromContext(ctx).Info().Str("model", model.Name).Msg("Creating model")

	created, err := m.client.CreateModel(ctx, apiID, gateway.CreateModelInput{
		Name:        model.Name,
		Description: model.Description,
		Schema:      model.Schema,
		ContentType: model.ContentType,
	})
	if err != nil {
		return gateway.Model{}, errors.WrapResource("create", "model", model.Name, err)
	}
	m.options.modelChanged(ctx, model.Name, ModelCreated)
	return created, nil
}

// Update replaces the schema of a model with a single patch operation.
func (m *Models) Update(ctx context.Context, apiID, name, schema string) (gateway.Model, error) {
	logging.FromContext(ctx).Info().Str("model", name).Msg("Updating model schema")

	updated, err := m.client.UpdateModel(ctx, apiID, name, patch.New(patch.Replace("/schema", schema)))
	if err != nil {
		return gateway.Model{}, errors.WrapResource("update", "model", name, err)
	}
	m.options.modelChanged(ctx, name, ModelUpdated)
	return updated, nil
}

// Ensure creates the model when absent and replaces its schema when it
// differs. Description and content type of an existing model are left as
// they are.
func (m *Models) Ensure(ctx context.Context, apiID string, model gateway.Model) (ModelAction, error) {
	if err := ctx.Err(); err != nil {
		return ModelUnchanged, err
	}
	existing, ok := m.Get(ctx, apiID, model.Name)
	if !ok {
		if _, err := m.Create(ctx, apiID, model); err != nil {
			return ModelUnchanged, err
		}
		return ModelCreated, nil
	}
	if SchemaEqual(existing.Schema, model.Schema) {
		return ModelUnchanged, nil
	}
	if _, err := m.Update(ctx, apiID, model.Name, model.Schema); err != nil {
		return ModelUnchanged, err
	}
	return ModelUpdated, nil
}

// Cleanup deletes every remote model whose name is not in keep. Failures
// never propagate: a model that is already gone is recorded as missing and
// any other failure becomes a warning.
func (m *Models) Cleanup(ctx context.Context, apiID string, keep map[string]bool) *CleanupReport {
	report := &CleanupReport{}
	logger := logging.FromContext(ctx)

	models, err := gateway.ListModels(ctx, m.client, apiID)
	if err != nil {
		logger.Warn().Err(err).Msg("Could not list models for cleanup")
		report.Warnings = append(report.Warnings, CleanupWarning{Model: "*", Err: err})
		return report
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })

	for _, model := range models {
		if keep[model.Name] {
			continue
		}
		if err := ctx.Err(); err != nil {
			report.Warnings = append(report.Warnings, CleanupWarning{Model: model.Name, Err: err})
			return report
		}

		logger.Info().Str("model", model.Name).Msg("Removing model")
		err := m.client.DeleteModel(ctx, apiID, model.Name)
		switch {
		case err == nil:
			report.Deleted = append(report.Deleted, model.Name)
			m.options.modelChanged(ctx, model.Name, ModelDeleted)
		case errors.IsNotFound(err):
			report.Missing = append(report.Missing, model.Name)
		default:
			logger.Warn().Err(err).Str("model", model.Name).Msg("Could not remove model")
			report.Warnings = append(report.Warnings, CleanupWarning{Model: model.Name, Err: err})
		}
	}
	return report
}

// DeleteDefaults removes the models the service creates with every new API.
// It must only be called on a freshly created API.
func (m *Models) DeleteDefaults(ctx context.Context, apiID string) *CleanupReport {
	return m.Cleanup(ctx, apiID, nil)
}
