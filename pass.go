package apisync

import (
	"context"

	"github.com/agentstation/apisync/pkg/definition"
	"github.com/agentstation/apisync/pkg/gateway"
	"github.com/agentstation/apisync/pkg/logging"
	"github.com/agentstation/apisync/pkg/reconciler"
)

// Stages of a pass, reported by ImportError.
const (
	stageModels    = "models"
	stageResources = "resources"
	stageMethods   = "methods"
)

// pass is one reconciliation of a definition against one API.
type pass struct {
	apiID     string
	def       *definition.Definition
	result    *Result
	resources *reconciler.Resources
	models    *reconciler.Models
	methods   *reconciler.Methods
}

func (s *syncer) newPass(apiID string, def *definition.Definition, result *Result) (*pass, error) {
	opts := []reconciler.Option{
		reconciler.WithContentType(s.config.contentType),
		reconciler.WithResourceCreated(func(_ context.Context, resource gateway.Resource) {
			result.Stats.ResourcesCreated++
			s.hooks.resourceCreated(resource)
		}),
		reconciler.WithModelChanged(func(_ context.Context, name string, action reconciler.ModelAction) {
			switch action {
			case reconciler.ModelCreated:
				result.Stats.ModelsCreated++
			case reconciler.ModelUpdated:
				result.Stats.ModelsUpdated++
			case reconciler.ModelDeleted:
				result.Stats.ModelsDeleted++
			}
			s.hooks.modelChanged(name, action)
		}),
	}

	resources, err := reconciler.NewResources(s.client, opts...)
	if err != nil {
		return nil, err
	}
	models, err := reconciler.NewModels(s.client, opts...)
	if err != nil {
		return nil, err
	}
	methods, err := reconciler.NewMethods(s.client, opts...)
	if err != nil {
		return nil, err
	}
	return &pass{
		apiID:     apiID,
		def:       def,
		result:    result,
		resources: resources,
		models:    models,
		methods:   methods,
	}, nil
}

// populate materializes the resource tree parent before child, then the
// models, then every method and its parameters. When fresh is set the API
// is known to hold no models and they are created without a lookup. It returns the
// resource index of the pass and, on failure, the stage that failed.
func (p *pass) populate(ctx context.Context, fresh bool) (*reconciler.Index, string, error) {
	logger := logging.FromContext(ctx)

	idx, err := p.resources.Index(ctx, p.apiID)
	if err != nil {
		return nil, stageResources, err
	}
	for _, path := range p.def.ResourcePaths() {
		if _, err := p.resources.EnsurePathIn(logging.WithResourcePath(ctx, path), idx, path); err != nil {
			return idx, stageResources, err
		}
	}

	for _, spec := range p.def.Models {
		model, err := spec.Model()
		if err != nil {
			return idx, stageModels, err
		}
		mctx := logging.WithModel(ctx, model.Name)
		if fresh {
			if err := mctx.Err(); err != nil {
				return idx, stageModels, err
			}
			if _, err := p.models.Create(mctx, p.apiID, model); err != nil {
				return idx, stageModels, err
			}
			continue
		}
		if _, err := p.models.Ensure(mctx, p.apiID, model); err != nil {
			return idx, stageModels, err
		}
	}

	for _, spec := range p.def.Paths {
		fullPath := p.def.FullPath(spec)
		resource, _ := idx.ByPath(fullPath)
		rctx := logging.WithResourcePath(ctx, fullPath)
		for _, method := range spec.Methods {
			authType := p.def.AuthorizationType(fullPath, method.HTTPMethod)
			outcome, err := p.methods.Ensure(rctx, p.apiID, resource, method, authType)
			if outcome.Created {
				p.result.Stats.MethodsCreated++
			}
			p.result.Stats.ParametersChanged += len(outcome.Parameters)
			if err != nil {
				return idx, stageMethods, err
			}
		}
	}

	logger.Debug().
		Int("models", len(p.def.Models)).
		Int("resources", idx.Len()).
		Msg("Pass populated")
	return idx, "", nil
}
