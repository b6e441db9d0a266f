// Package definition describes the desired state of an API: the resource
// tree, the model catalog and the request-parameter contract of every method.
//
// A Definition is usually loaded from a YAML or JSON document:
//
//	name: petstore
//	base_path: /v1
//	models:
//	  - name: Pet
//	    schema: {type: object}
//	paths:
//	  - path: /pets/{petId}
//	    methods:
//	      - method: get
//	        parameters:
//	          - {name: petId, in: path, required: true}
//	auth:
//	  /v1/pets/{petId}:
//	    get:
//	      auth: {type: aws_iam}
package definition

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/apisync/pkg/constants"
	"github.com/agentstation/apisync/pkg/errors"
	"github.com/agentstation/apisync/pkg/gateway"
	"github.com/agentstation/apisync/pkg/paths"
)

// Parameter locations accepted in a ParameterSpec.
const (
	LocationPath        = "path"
	LocationQueryString = "querystring"
	LocationHeader      = "header"
)

// Definition is the desired state of one API.
type Definition struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	BasePath    string         `json:"base_path,omitempty" yaml:"base_path,omitempty"`
	Models      []ModelSpec    `json:"models,omitempty" yaml:"models,omitempty"`
	Paths       []PathSpec     `json:"paths,omitempty" yaml:"paths,omitempty"`
	Auth        map[string]any `json:"auth,omitempty" yaml:"auth,omitempty"`
}

// ModelSpec is a desired model. Schema is either a JSON string or an
// inline YAML/JSON object.
type ModelSpec struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	ContentType string `json:"content_type,omitempty" yaml:"content_type,omitempty"`
	Schema      any    `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// PathSpec is a desired resource path and the methods it carries.
type PathSpec struct {
	Path    string       `json:"path" yaml:"path"`
	Methods []MethodSpec `json:"methods,omitempty" yaml:"methods,omitempty"`
}

// MethodSpec is a desired HTTP method on a resource.
type MethodSpec struct {
	HTTPMethod string          `json:"method" yaml:"method"`
	Parameters []ParameterSpec `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// ParameterSpec is a desired request parameter.
type ParameterSpec struct {
	Name     string `json:"name" yaml:"name"`
	In       string `json:"in" yaml:"in"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// Expression returns the method request expression of the parameter.
func (p ParameterSpec) Expression() string {
	return gateway.RequestParameterExpression(p.Location(), p.Name)
}

// Location returns the normalized parameter location. "query" is accepted
// as an alias of "querystring".
func (p ParameterSpec) Location() string {
	loc := strings.ToLower(strings.TrimSpace(p.In))
	if loc == "query" {
		return LocationQueryString
	}
	return loc
}

// SchemaJSON returns the model schema as a JSON document.
func (m ModelSpec) SchemaJSON() (string, error) {
	switch s := m.Schema.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	default:
		data, err := json.Marshal(s)
		if err != nil {
			return "", errors.NewValidationError("schema", m.Name, fmt.Sprintf("cannot encode schema: %v", err))
		}
		return string(data), nil
	}
}

// Model converts the spec into the remote representation.
func (m ModelSpec) Model() (gateway.Model, error) {
	schema, err := m.SchemaJSON()
	if err != nil {
		return gateway.Model{}, err
	}
	contentType := m.ContentType
	if contentType == "" {
		contentType = constants.DefaultContentType
	}
	return gateway.Model{
		Name:        m.Name,
		Description: m.Description,
		Schema:      schema,
		ContentType: contentType,
	}, nil
}

// FullPath returns the canonical resource path of p, base path included.
func (d *Definition) FullPath(p PathSpec) string {
	return paths.Build(d.BasePath, p.Path)
}

// ResourcePaths returns the canonical full path of every desired resource,
// ancestors included, in definition order without duplicates.
func (d *Definition) ResourcePaths() []string {
	seen := make(map[string]bool)
	out := []string{constants.RootPath}
	seen[constants.RootPath] = true
	for _, p := range d.Paths {
		segments := paths.Split(d.FullPath(p))
		current := constants.RootPath
		for _, segment := range segments {
			current = paths.Join(current, segment)
			if !seen[current] {
				seen[current] = true
				out = append(out, current)
			}
		}
	}
	return out
}

// ModelNames returns the set of desired model names.
func (d *Definition) ModelNames() map[string]bool {
	names := make(map[string]bool, len(d.Models))
	for _, m := range d.Models {
		names[m.Name] = true
	}
	return names
}

// AuthorizationType returns the authorization type configured for a method
// on a full resource path. Any missing or malformed entry yields "NONE".
func (d *Definition) AuthorizationType(fullPath, httpMethod string) string {
	if d == nil || d.Auth == nil {
		return constants.AuthorizationNone
	}
	byMethod, ok := d.Auth[fullPath].(map[string]any)
	if !ok {
		return constants.AuthorizationNone
	}
	entry, ok := byMethod[strings.ToLower(strings.TrimSpace(httpMethod))].(map[string]any)
	if !ok {
		return constants.AuthorizationNone
	}
	auth, ok := entry["auth"].(map[string]any)
	if !ok {
		return constants.AuthorizationNone
	}
	authType, ok := auth["type"].(string)
	if !ok || strings.TrimSpace(authType) == "" {
		return constants.AuthorizationNone
	}
	return cases.Upper(language.Und).String(strings.TrimSpace(authType))
}

// Validate checks the definition for structural errors.
func (d *Definition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.NewValidationError("name", d.Name, "cannot be empty")
	}

	models := make(map[string]bool, len(d.Models))
	for i, m := range d.Models {
		if strings.TrimSpace(m.Name) == "" {
			return errors.NewValidationError(fmt.Sprintf("models[%d].name", i), m.Name, "cannot be empty")
		}
		if models[m.Name] {
			return errors.NewValidationError(fmt.Sprintf("models[%d].name", i), m.Name, "duplicate model")
		}
		models[m.Name] = true
		if _, err := m.SchemaJSON(); err != nil {
			return err
		}
	}

	resources := make(map[string]bool, len(d.Paths))
	for i, p := range d.Paths {
		full := d.FullPath(p)
		if resources[full] {
			return errors.NewValidationError(fmt.Sprintf("paths[%d].path", i), p.Path, "duplicate path "+full)
		}
		resources[full] = true

		methods := make(map[string]bool, len(p.Methods))
		for j, m := range p.Methods {
			field := fmt.Sprintf("paths[%d].methods[%d]", i, j)
			name := gateway.NormalizeHTTPMethod(m.HTTPMethod)
			if name == "" {
				return errors.NewValidationError(field+".method", m.HTTPMethod, "cannot be empty")
			}
			if methods[name] {
				return errors.NewValidationError(field+".method", m.HTTPMethod, "duplicate method on "+full)
			}
			methods[name] = true

			for k, param := range m.Parameters {
				pfield := fmt.Sprintf("%s.parameters[%d]", field, k)
				if strings.TrimSpace(param.Name) == "" {
					return errors.NewValidationError(pfield+".name", param.Name, "cannot be empty")
				}
				switch param.Location() {
				case LocationPath, LocationQueryString, LocationHeader:
				default:
					return errors.NewValidationError(pfield+".in", param.In, "must be one of path, querystring, header")
				}
			}
		}
	}
	return nil
}
