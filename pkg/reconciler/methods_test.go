package reconciler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/apisync/pkg/definition"
	"github.com/agentstation/apisync/pkg/gateway"
	"github.com/agentstation/apisync/pkg/gateway/memory"
	"github.com/agentstation/apisync/pkg/reconciler"
)

func TestParameterPatch(t *testing.T) {
	doc := reconciler.ParameterPatch("method.request.header.x/y~z", true)
	data, err := doc.JSON()
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"patchOperations":[{"op":"add","path":"/requestParameters/method.request.header.x~1y~0z","value":"true"}]}`,
		string(data))
}

func TestMethodsUpdateParameter(t *testing.T) {
	ctx := context.Background()
	svc, apiID := newService(t)
	root := rootOf(t, svc, apiID)
	require.NoError(t, svc.SeedMethod(apiID, root.ID, gateway.Method{
		HTTPMethod:        "get",
		AuthorizationType: "NONE",
		RequestParameters: map[string]bool{"method.request.path.id": true},
	}))
	root = rootOf(t, svc, apiID)
	method, ok := root.Method("GET")
	require.True(t, ok)

	methods, err := reconciler.NewMethods(svc)
	require.NoError(t, err)

	t.Run("same flag is a no-op", func(t *testing.T) {
		svc.ResetCalls()
		got, changed, err := methods.UpdateParameter(ctx, apiID, root.ID, method, "path", "id", true)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, method, got)
		assert.Empty(t, svc.Calls())
	})

	t.Run("flipped flag is one add", func(t *testing.T) {
		svc.ResetCalls()
		got, changed, err := methods.UpdateParameter(ctx, apiID, root.ID, method, "path", "id", false)
		require.NoError(t, err)
		assert.True(t, changed)
		required, ok := got.Parameter("method.request.path.id")
		require.True(t, ok)
		assert.False(t, required)
		assert.Len(t, svc.CallsTo(memory.OpUpdateMethod), 1)
		method = got
	})

	t.Run("returned method keeps repeated calls idempotent", func(t *testing.T) {
		svc.ResetCalls()
		_, changed, err := methods.UpdateParameter(ctx, apiID, root.ID, method, "path", "id", false)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Empty(t, svc.Calls())
	})
}

func TestMethodsExists(t *testing.T) {
	methods, err := reconciler.NewMethods(memory.New())
	require.NoError(t, err)

	res := gateway.Resource{Methods: map[string]gateway.Method{"POST": {HTTPMethod: "POST"}}}
	assert.True(t, methods.Exists(res, "post"))
	assert.True(t, methods.Exists(res, "POST"))
	assert.False(t, methods.Exists(res, "get"))
	assert.False(t, methods.Exists(gateway.Resource{}, "get"))
}

func TestMethodsEnsure(t *testing.T) {
	ctx := context.Background()
	svc, apiID := newService(t)
	root := rootOf(t, svc, apiID)
	pets, err := svc.SeedResource(apiID, root.ID, "pets")
	require.NoError(t, err)

	methods, err := reconciler.NewMethods(svc)
	require.NoError(t, err)

	spec := definition.MethodSpec{
		HTTPMethod: "get",
		Parameters: []definition.ParameterSpec{
			{Name: "limit", In: "query"},
			{Name: "X-Trace", In: "header", Required: true},
		},
	}

	outcome, err := methods.Ensure(ctx, apiID, pets, spec, "AWS_IAM")
	require.NoError(t, err)
	assert.True(t, outcome.Created)
	assert.True(t, outcome.Changed())
	assert.Equal(t, []string{"method.request.querystring.limit", "method.request.header.X-Trace"}, outcome.Parameters)
	assert.Len(t, svc.CallsTo(memory.OpPutMethod), 1)
	assert.Len(t, svc.CallsTo(memory.OpUpdateMethod), 2)

	snapshot, _, err := svc.Snapshot(apiID)
	require.NoError(t, err)
	var stored gateway.Resource
	for _, r := range snapshot {
		if r.ID == pets.ID {
			stored = r
		}
	}
	method, ok := stored.Method("GET")
	require.True(t, ok)
	assert.Equal(t, "AWS_IAM", method.AuthorizationType)
	assert.Equal(t, map[string]bool{
		"method.request.querystring.limit": false,
		"method.request.header.X-Trace":    true,
	}, method.RequestParameters)

	t.Run("second pass is a no-op", func(t *testing.T) {
		svc.ResetCalls()
		outcome, err := methods.Ensure(ctx, apiID, stored, spec, "NONE")
		require.NoError(t, err)
		assert.False(t, outcome.Changed())
		assert.Empty(t, svc.MutatingCalls())
		assert.Equal(t, "AWS_IAM", outcome.Method.AuthorizationType)
	})
}
