package reconciler

import (
	"context"
	"strconv"

	"github.com/agentstation/apisync/pkg/definition"
	"github.com/agentstation/apisync/pkg/errors"
	"github.com/agentstation/apisync/pkg/gateway"
	"github.com/agentstation/apisync/pkg/logging"
	"github.com/agentstation/apisync/pkg/patch"
)

// MethodOutcome describes what Methods.Ensure did.
type MethodOutcome struct {
	Method     gateway.Method
	Created    bool
	Parameters []string // expressions that were patched
}

// Changed reports whether any mutating call was made.
func (o MethodOutcome) Changed() bool {
	return o.Created || len(o.Parameters) > 0
}

// Methods reconciles the methods of a resource and their request parameters.
type Methods struct {
	client  gateway.Client
	options *options
}

// NewMethods creates a method reconciler.
func NewMethods(client gateway.Client, opts ...Option) (*Methods, error) {
	if err := checkClient(client); err != nil {
		return nil, err
	}
	o, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &Methods{client: client, options: o}, nil
}

// Exists reports whether the resource carries httpMethod, ignoring case.
func (m *Methods) Exists(resource gateway.Resource, httpMethod string) bool {
	return resource.HasMethod(httpMethod)
}

// ParameterPatch returns the patch that sets a request parameter flag.
func ParameterPatch(expression string, required bool) patch.Document {
	return patch.New(patch.Add(patch.Pointer("requestParameters", expression), strconv.FormatBool(required)))
}

// UpdateParameter aligns one request parameter of a method. Nothing is sent
// when the parameter already has the wanted required flag. The returned
// method reflects the change and the boolean reports whether a call was made.
func (m *Methods) UpdateParameter(ctx context.Context, apiID, resourceID string, method gateway.Method,
	paramType, name string, required bool,
) (gateway.Method, bool, error) {
	expression := gateway.RequestParameterExpression(paramType, name)
	if current, ok := method.Parameter(expression); ok && current == required {
		return method, false, nil
	}
	if err := ctx.Err(); err != nil {
		return method, false, err
	}

	logging.FromContext(ctx).Info().
		Str("http_method", method.HTTPMethod).
		Str("parameter", expression).
		Bool("required", required).
		Msg("Updating method parameter")

	updated, err := m.client.UpdateMethod(ctx, apiID, resourceID, method.HTTPMethod, ParameterPatch(expression, required))
	if err != nil {
		return method, false, errors.WrapResource("update", "method parameter", expression, err)
	}
	if updated.HTTPMethod == "" {
		updated = method
	}
	if _, ok := updated.Parameter(expression); !ok {
		params := make(map[string]bool, len(updated.RequestParameters)+1)
		for k, v := range updated.RequestParameters {
			params[k] = v
		}
		params[expression] = required
		updated.RequestParameters = params
	}
	return updated, true, nil
}

// Ensure puts the method on the resource when it is missing, using
// authType, then aligns every declared request parameter. The
// authorization type of an existing method is not changed.
func (m *Methods) Ensure(ctx context.Context, apiID string, resource gateway.Resource,
	spec definition.MethodSpec, authType string,
) (MethodOutcome, error) {
	httpMethod := gateway.NormalizeHTTPMethod(spec.HTTPMethod)
	outcome := MethodOutcome{}

	method, ok := resource.Method(httpMethod)
	if !ok {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		logging.FromContext(ctx).Info().
			Str("http_method", httpMethod).
			Str("authorization_type", authType).
			Msg("Creating method")

		created, err := m.client.PutMethod(ctx, apiID, resource.ID, gateway.PutMethodInput{
			HTTPMethod:        httpMethod,
			AuthorizationType: authType,
		})
		if err != nil {
			return outcome, errors.WrapResource("put", "method", httpMethod+" "+resource.Path, err)
		}
		if created.HTTPMethod == "" {
			created.HTTPMethod = httpMethod
		}
		method = created
		outcome.Created = true
	}

	for _, param := range spec.Parameters {
		updated, changed, err := m.UpdateParameter(ctx, apiID, resource.ID, method, param.Location(), param.Name, param.Required)
		if err != nil {
			outcome.Method = method
			return outcome, err
		}
		if changed {
			outcome.Parameters = append(outcome.Parameters, param.Expression())
		}
		method = updated
	}
	outcome.Method = method
	return outcome, nil
}
