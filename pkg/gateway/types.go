// Package gateway defines the remote API-management service as seen by the
// reconcilers: its objects, its paged listings and the Client interface the
// HTTP transport and the in-memory fake both implement.
package gateway

import (
	"strings"

	"github.com/agentstation/utc"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/apisync/pkg/constants"
)

// Capability links advertised by remote objects.
const (
	LinkResourceDelete = "resource:delete"
	LinkResourceCreate = "resource:create-child"
	LinkMethodPut      = "method:put"
)

// RestAPI is the identity of a managed API.
type RestAPI struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedDate utc.Time `json:"createdDate" yaml:"created_date"`
}

// Resource is one path segment of an API, managed as its own remote object.
type Resource struct {
	ID       string            `json:"id" yaml:"id"`
	ParentID string            `json:"parentId,omitempty" yaml:"parent_id,omitempty"`
	PathPart string            `json:"pathPart,omitempty" yaml:"path_part,omitempty"`
	Path     string            `json:"path" yaml:"path"`
	Methods  map[string]Method `json:"resourceMethods,omitempty" yaml:"methods,omitempty"`
	Links    []string          `json:"-" yaml:"-"`
}

// IsRoot reports whether the resource is the API root.
func (r Resource) IsRoot() bool {
	return r.Path == constants.RootPath
}

// Can reports whether the resource advertises the given capability link.
func (r Resource) Can(link string) bool {
	for _, l := range r.Links {
		if l == link {
			return true
		}
	}
	return false
}

// CanDelete reports whether the resource may be deleted. The root never can.
func (r Resource) CanDelete() bool {
	return !r.IsRoot() && r.Can(LinkResourceDelete)
}

// Method returns the method registered under httpMethod, ignoring case.
func (r Resource) Method(httpMethod string) (Method, bool) {
	if r.Methods == nil {
		return Method{}, false
	}
	m, ok := r.Methods[NormalizeHTTPMethod(httpMethod)]
	return m, ok
}

// HasMethod reports whether httpMethod is present, ignoring case.
func (r Resource) HasMethod(httpMethod string) bool {
	_, ok := r.Method(httpMethod)
	return ok
}

// Model is a named schema attached to an API.
type Model struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Schema      string `json:"schema,omitempty" yaml:"schema,omitempty"`
	ContentType string `json:"contentType,omitempty" yaml:"content_type,omitempty"`
}

// Method is an HTTP method configured on a resource.
type Method struct {
	HTTPMethod        string          `json:"httpMethod" yaml:"http_method"`
	AuthorizationType string          `json:"authorizationType,omitempty" yaml:"authorization_type,omitempty"`
	RequestParameters map[string]bool `json:"requestParameters,omitempty" yaml:"request_parameters,omitempty"`
}

// Parameter returns the required flag for a parameter expression.
func (m Method) Parameter(expression string) (required bool, ok bool) {
	if m.RequestParameters == nil {
		return false, false
	}
	required, ok = m.RequestParameters[expression]
	return required, ok
}

// Deployment is a snapshot of an API published to a stage.
type Deployment struct {
	ID          string   `json:"id" yaml:"id"`
	StageName   string   `json:"stageName,omitempty" yaml:"stage_name,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	CreatedDate utc.Time `json:"createdDate" yaml:"created_date"`
}

// CreateRestAPIInput is the payload of Client.CreateRestAPI.
type CreateRestAPIInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CreateModelInput is the payload of Client.CreateModel.
type CreateModelInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Schema      string `json:"schema,omitempty"`
	ContentType string `json:"contentType"`
}

// PutMethodInput is the payload of Client.PutMethod.
type PutMethodInput struct {
	HTTPMethod        string          `json:"-"`
	AuthorizationType string          `json:"authorizationType"`
	RequestParameters map[string]bool `json:"requestParameters,omitempty"`
}

// CreateDeploymentInput is the payload of Client.CreateDeployment.
type CreateDeploymentInput struct {
	StageName   string `json:"stageName"`
	Description string `json:"description,omitempty"`
}

// NormalizeHTTPMethod upper-cases and trims an HTTP method name.
func NormalizeHTTPMethod(httpMethod string) string {
	// Casers are stateful and must not be shared between goroutines.
	return cases.Upper(language.Und).String(strings.TrimSpace(httpMethod))
}

// ParameterExpression builds "<area>.<part>.<type>.<name>".
func ParameterExpression(area, part, paramType, name string) string {
	return area + "." + part + "." + paramType + "." + name
}

// RequestParameterExpression builds "method.request.<type>.<name>".
func RequestParameterExpression(paramType, name string) string {
	return ParameterExpression("method", "request", paramType, name)
}
