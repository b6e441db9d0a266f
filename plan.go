package apisync

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/agentstation/apisync/pkg/definition"
	"github.com/agentstation/apisync/pkg/differ"
	"github.com/agentstation/apisync/pkg/errors"
	"github.com/agentstation/apisync/pkg/gateway"
	"github.com/agentstation/apisync/pkg/logging"
)

// Plan reports what Update would change. It only lists remote state; the
// resource and model listings are fetched concurrently.
func (s *syncer) Plan(ctx context.Context, apiID string, def *definition.Definition) (*differ.Changeset, error) {
	if def == nil {
		return nil, &errors.ValidationError{Field: "definition", Message: "cannot be nil"}
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	ctx = logging.WithAPI(ctx, apiID)

	var snapshot differ.Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resources, err := gateway.ListResources(gctx, s.client, apiID)
		if err != nil {
			return errors.WrapResource("list", "resources", apiID, err)
		}
		snapshot.Resources = resources
		return nil
	})
	g.Go(func() error {
		models, err := gateway.ListModels(gctx, s.client, apiID)
		if err != nil {
			return errors.WrapResource("list", "models", apiID, err)
		}
		snapshot.Models = models
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	changeset, err := differ.New(
		differ.WithPrune(s.config.prune),
		differ.WithModelCleanup(s.config.modelCleanup),
	).Compute(def, snapshot)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Debug().
		Int("changes", changeset.Summary.TotalChanges).
		Msg("Plan computed")
	return changeset, nil
}
