package apisync

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/agentstation/apisync/pkg/definition"
	"github.com/agentstation/apisync/pkg/errors"
	"github.com/agentstation/apisync/pkg/logging"
	"github.com/agentstation/apisync/pkg/reconciler"
)

// Update reconciles an existing API with def. Nothing is rolled back on
// failure. Removing orphaned models and resources is best effort: failures
// there become warnings on the result.
func (s *syncer) Update(ctx context.Context, apiID string, def *definition.Definition) (*Result, error) {
	if def == nil {
		return nil, &errors.ValidationError{Field: "definition", Message: "cannot be nil"}
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result := newResult(uuid.NewString())
	ctx = logging.WithAPI(logging.WithRunID(ctx, result.RunID), apiID)
	logger := logging.FromContext(ctx)

	api, err := s.client.GetRestAPI(ctx, apiID)
	if err != nil {
		return nil, errors.WrapResource("get", "api", apiID, err)
	}
	result.APIID = api.ID
	result.APIName = api.Name
	result.State = StatePopulating

	p, err := s.newPass(api.ID, def, result)
	if err != nil {
		return nil, err
	}

	idx, stage, err := p.populate(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("updating %s of api %s: %w", stage, apiID, err)
	}

	if s.config.modelCleanup {
		report := p.models.Cleanup(ctx, api.ID, def.ModelNames())
		result.Warnings = append(result.Warnings, report.Messages()...)
	}

	if s.config.prune {
		s.prune(ctx, p, idx, result)
	}

	result.State = StatePopulated
	result.finalize()

	logger.Info().
		Int("changes", result.Stats.Total()).
		Int("warnings", len(result.Warnings)).
		Dur("duration", result.Duration).
		Msg("API updated")
	return result, nil
}

// prune deletes the top-most resources that are not in the definition.
func (s *syncer) prune(ctx context.Context, p *pass, idx *reconciler.Index, result *Result) {
	keep := make(map[string]bool)
	for _, path := range p.def.ResourcePaths() {
		keep[path] = true
	}

	for _, orphan := range reconciler.Orphans(idx, keep) {
		if err := ctx.Err(); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("pruning stopped: %v", err))
			return
		}
		called, err := p.resources.Delete(logging.WithResourcePath(ctx, orphan.Path), p.apiID, orphan)
		switch {
		case err != nil:
			result.Warnings = append(result.Warnings, fmt.Sprintf("could not delete resource %s: %v", orphan.Path, err))
		case called:
			result.Stats.ResourcesDeleted++
			idx.Remove(orphan.ID)
		default:
			logging.FromContext(ctx).Debug().Str("resource_path", orphan.Path).Msg("Resource cannot be deleted, keeping it")
		}
	}
}
