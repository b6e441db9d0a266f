package definition_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/apisync/pkg/definition"
	"github.com/agentstation/apisync/pkg/errors"
)

const petstore = `
name: petstore
description: Pet store
base_path: /v1/
models:
  - name: Pet
    description: A pet
    schema:
      type: object
  - name: Error
    schema: '{"type":"string"}'
paths:
  - path: /pets
    methods:
      - method: get
        parameters:
          - {name: limit, in: query}
  - path: /pets/{petId}
    methods:
      - method: GET
        parameters:
          - {name: petId, in: path, required: true}
auth:
  /v1/pets:
    get:
      auth:
        type: aws_iam
  /v1/pets/{petId}:
    get:
      auth: broken
`

func TestParse(t *testing.T) {
	def, err := definition.Parse([]byte(petstore))
	require.NoError(t, err)

	assert.Equal(t, "petstore", def.Name)
	require.Len(t, def.Models, 2)
	require.Len(t, def.Paths, 2)

	pet, err := def.Models[0].Model()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"object"}`, pet.Schema)
	assert.Equal(t, "application/json", pet.ContentType)

	errModel, err := def.Models[1].Model()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"string"}`, errModel.Schema)

	assert.Equal(t, "/v1/pets/{petId}", def.FullPath(def.Paths[1]))
	assert.Equal(t, "method.request.querystring.limit", def.Paths[0].Methods[0].Parameters[0].Expression())
}

func TestParseJSON(t *testing.T) {
	def, err := definition.Parse([]byte(`{"name": "api", "paths": [{"path": "a//b/"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "/a/b", def.FullPath(def.Paths[0]))
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", "   "},
		{"unknown field", "name: x\nbogus: 1\n"},
		{"missing name", "description: nameless\n"},
		{"duplicate model", "name: x\nmodels: [{name: A}, {name: A}]\n"},
		{"duplicate method", "name: x\npaths: [{path: /a, methods: [{method: get}, {method: GET}]}]\n"},
		{"duplicate path", "name: x\npaths: [{path: /a}, {path: a/}]\n"},
		{"bad location", "name: x\npaths: [{path: /a, methods: [{method: get, parameters: [{name: p, in: body}]}]}]\n"},
		{"empty parameter", "name: x\npaths: [{path: /a, methods: [{method: get, parameters: [{in: path}]}]}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := definition.Parse([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestValidationErrorsAreTyped(t *testing.T) {
	_, err := definition.Parse([]byte("name: x\nmodels: [{name: A}, {name: A}]\n"))
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestAuthorizationType(t *testing.T) {
	def, err := definition.Parse([]byte(petstore))
	require.NoError(t, err)

	assert.Equal(t, "AWS_IAM", def.AuthorizationType("/v1/pets", "GET"))
	assert.Equal(t, "AWS_IAM", def.AuthorizationType("/v1/pets", "get"))
	assert.Equal(t, "NONE", def.AuthorizationType("/v1/pets", "post"), "missing method")
	assert.Equal(t, "NONE", def.AuthorizationType("/v1/pets/{petId}", "get"), "malformed entry")
	assert.Equal(t, "NONE", def.AuthorizationType("/nowhere", "get"), "missing path")

	var empty *definition.Definition
	assert.Equal(t, "NONE", empty.AuthorizationType("/", "get"))
}

func TestResourcePaths(t *testing.T) {
	def := &definition.Definition{
		Name:     "x",
		BasePath: "v1",
		Paths: []definition.PathSpec{
			{Path: "/pets/{petId}"},
			{Path: "/pets"},
			{Path: "/owners"},
		},
	}
	assert.Equal(t,
		[]string{"/", "/v1", "/v1/pets", "/v1/pets/{petId}", "/v1/owners"},
		def.ResourcePaths())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "api.yaml")
	require.NoError(t, os.WriteFile(file, []byte(petstore), 0o600))

	def, err := definition.Load(file)
	require.NoError(t, err)
	assert.Equal(t, "petstore", def.Name)

	_, err = definition.Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	def, err := definition.Parse([]byte(petstore))
	require.NoError(t, err)

	data, err := definition.Marshal(def)
	require.NoError(t, err)

	again, err := definition.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, def.Name, again.Name)
	assert.Len(t, again.Paths, len(def.Paths))
}
