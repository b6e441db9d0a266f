package differ_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/apisync/pkg/definition"
	"github.com/agentstation/apisync/pkg/differ"
	"github.com/agentstation/apisync/pkg/gateway"
)

func testDefinition() *definition.Definition {
	return &definition.Definition{
		Name: "petstore",
		Models: []definition.ModelSpec{
			{Name: "Pet", Schema: `{"type":"object"}`},
			{Name: "Owner", Schema: `{"type":"object"}`},
		},
		Paths: []definition.PathSpec{
			{
				Path: "/pets",
				Methods: []definition.MethodSpec{{
					HTTPMethod: "get",
					Parameters: []definition.ParameterSpec{
						{Name: "limit", In: "querystring"},
						{Name: "X-Trace", In: "header", Required: true},
					},
				}},
			},
			{
				Path:    "/pets/{petId}",
				Methods: []definition.MethodSpec{{HTTPMethod: "delete"}},
			},
		},
		Auth: map[string]any{
			"/pets/{petId}": map[string]any{
				"delete": map[string]any{"auth": map[string]any{"type": "aws_iam"}},
			},
		},
	}
}

func TestComputeAgainstEmptyAPI(t *testing.T) {
	cs, err := differ.New().Compute(testDefinition(), differ.Snapshot{
		Resources: []gateway.Resource{{ID: "r", Path: "/"}},
		Models:    []gateway.Model{{Name: "Empty"}, {Name: "Error"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []differ.ResourceChange{
		{Type: differ.ChangeTypeAdd, Path: "/pets"},
		{Type: differ.ChangeTypeAdd, Path: "/pets/{petId}"},
	}, cs.Resources)
	assert.Len(t, cs.Models.Added, 2)
	assert.Len(t, cs.Models.Removed, 2)
	require.Len(t, cs.Methods, 2)
	assert.Equal(t, "NONE", cs.Methods[0].AuthorizationType)
	assert.Equal(t, "AWS_IAM", cs.Methods[1].AuthorizationType)
	assert.Len(t, cs.Parameters, 2)

	assert.Equal(t, 2+2+2+2+2, cs.Summary.TotalChanges)
	assert.True(t, cs.HasChanges())
}

func TestComputeConverged(t *testing.T) {
	snapshot := differ.Snapshot{
		Resources: []gateway.Resource{
			{ID: "r", Path: "/"},
			{ID: "a", ParentID: "r", PathPart: "pets", Path: "/pets", Methods: map[string]gateway.Method{
				"GET": {HTTPMethod: "GET", RequestParameters: map[string]bool{
					"method.request.querystring.limit": false,
					"method.request.header.X-Trace":    true,
				}},
			}},
			{ID: "b", ParentID: "a", PathPart: "{petId}", Path: "/pets/{petId}", Methods: map[string]gateway.Method{
				"DELETE": {HTTPMethod: "DELETE", AuthorizationType: "AWS_IAM"},
			}},
		},
		Models: []gateway.Model{
			{Name: "Pet", Schema: `{"type":"object"}`, Description: "ignored"},
			{Name: "Owner", Schema: `{"type":"object"}`},
		},
	}

	cs, err := differ.New().Compute(testDefinition(), snapshot)
	require.NoError(t, err)
	assert.True(t, cs.IsEmpty())
	assert.Equal(t, "No changes detected", cs.String())
}

func TestComputeDrift(t *testing.T) {
	snapshot := differ.Snapshot{
		Resources: []gateway.Resource{
			{ID: "r", Path: "/"},
			{ID: "a", ParentID: "r", PathPart: "pets", Path: "/pets", Methods: map[string]gateway.Method{
				"GET": {HTTPMethod: "GET", RequestParameters: map[string]bool{
					"method.request.querystring.limit": true,
				}},
			}},
			{ID: "o", ParentID: "r", PathPart: "old", Path: "/old", Links: []string{gateway.LinkResourceDelete}},
			{ID: "o2", ParentID: "o", PathPart: "child", Path: "/old/child", Links: []string{gateway.LinkResourceDelete}},
		},
		Models: []gateway.Model{
			{Name: "Pet", Schema: `{"type":"string"}`},
		},
	}

	cs, err := differ.New().Compute(testDefinition(), snapshot)
	require.NoError(t, err)

	assert.Equal(t, 1, cs.Summary.ResourcesAdded)
	assert.Equal(t, 1, cs.Summary.ResourcesRemoved, "descendants of an orphan are not listed")
	require.Len(t, cs.Models.Updated, 1)
	assert.Equal(t, `{"type":"string"}`, cs.Models.Updated[0].OldSchema)
	assert.Equal(t, []string{"Owner"}, []string{cs.Models.Added[0].Name})

	require.Len(t, cs.Parameters, 2)
	limit := cs.Parameters[0]
	require.NotNil(t, limit.Existing)
	assert.True(t, *limit.Existing)
	assert.False(t, limit.Required)
	assert.Nil(t, cs.Parameters[1].Existing)

	t.Run("additive filter drops removals", func(t *testing.T) {
		additive := cs.Filter(differ.ApplyAdditive)
		assert.Zero(t, additive.Summary.ResourcesRemoved)
		assert.Zero(t, additive.Summary.ModelsRemoved)
		assert.Equal(t, cs.Summary.TotalChanges-1, additive.Summary.TotalChanges)
	})

	t.Run("print", func(t *testing.T) {
		var buf bytes.Buffer
		cs.Print(&buf)
		out := buf.String()
		assert.Contains(t, out, "- /old")
		assert.Contains(t, out, "~ Pet (schema)")
		assert.Contains(t, out, "+ DELETE /pets/{petId} [AWS_IAM]")
	})
}

func TestComputeWithoutPruning(t *testing.T) {
	snapshot := differ.Snapshot{
		Resources: []gateway.Resource{{ID: "r", Path: "/"}, {ID: "x", ParentID: "r", PathPart: "x", Path: "/x"}},
		Models:    []gateway.Model{{Name: "Stale"}},
	}
	cs, err := differ.New(differ.WithPrune(false), differ.WithModelCleanup(false)).
		Compute(&definition.Definition{Name: "empty"}, snapshot)
	require.NoError(t, err)
	assert.True(t, cs.IsEmpty())
}

func TestComputeNeverAddsRoot(t *testing.T) {
	cs, err := differ.New().Compute(testDefinition(), differ.Snapshot{})
	require.NoError(t, err)

	for _, change := range cs.Resources {
		assert.NotEqual(t, "/", change.Path)
	}
	assert.Equal(t, 2, cs.Summary.ResourcesAdded)
}

func TestComputeIgnoresSchemaFormatting(t *testing.T) {
	snapshot := differ.Snapshot{
		Resources: []gateway.Resource{{ID: "r", Path: "/"}},
		Models: []gateway.Model{
			{Name: "Pet", Schema: "{\n  \"type\": \"object\"\n}"},
			{Name: "Owner", Schema: `{ "type" : "object" }`},
		},
	}
	cs, err := differ.New().Compute(testDefinition(), snapshot)
	require.NoError(t, err)
	assert.Empty(t, cs.Models.Updated)
	assert.Empty(t, cs.Models.Added)
}
