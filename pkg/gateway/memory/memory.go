// Package memory provides an in-memory implementation of gateway.Client.
// It keeps every API, resource and model in maps, serves listings in small
// pages and records each call so tests can assert on the exact remote
// traffic a reconciliation produced.
package memory

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/agentstation/utc"

	"github.com/agentstation/apisync/pkg/errors"
	"github.com/agentstation/apisync/pkg/gateway"
	"github.com/agentstation/apisync/pkg/patch"
	"github.com/agentstation/apisync/pkg/paths"
)

// Operation names recorded by the fake, one per Client method.
const (
	OpGetRestAPI       = "GetRestAPI"
	OpCreateRestAPI    = "CreateRestAPI"
	OpDeleteRestAPI    = "DeleteRestAPI"
	OpGetResources     = "GetResources"
	OpCreateResource   = "CreateResource"
	OpDeleteResource   = "DeleteResource"
	OpGetModels        = "GetModels"
	OpGetModel         = "GetModel"
	OpCreateModel      = "CreateModel"
	OpUpdateModel      = "UpdateModel"
	OpDeleteModel      = "DeleteModel"
	OpPutMethod        = "PutMethod"
	OpUpdateMethod     = "UpdateMethod"
	OpCreateDeployment = "CreateDeployment"
)

var mutating = map[string]bool{
	OpCreateRestAPI:    true,
	OpDeleteRestAPI:    true,
	OpCreateResource:   true,
	OpDeleteResource:   true,
	OpCreateModel:      true,
	OpUpdateModel:      true,
	OpDeleteModel:      true,
	OpPutMethod:        true,
	OpUpdateMethod:     true,
	OpCreateDeployment: true,
}

// IsMutating reports whether op changes remote state.
func IsMutating(op string) bool {
	return mutating[op]
}

// Call is one recorded client call.
type Call struct {
	Op     string
	APIID  string
	Target string // resource id, model name, path part... depending on Op
}

// FailFunc decides whether a call should fail. Returning nil lets it through.
type FailFunc func(call Call) error

type api struct {
	info        gateway.RestAPI
	resources   map[string]*gateway.Resource
	order       []string // resource ids in creation order
	models      map[string]gateway.Model
	deployments []gateway.Deployment
}

// Service is an in-memory management service.
type Service struct {
	mu       sync.Mutex
	apis     map[string]*api
	nextID   int
	pageSize int
	defaults []gateway.Model
	calls    []Call
	fail     FailFunc
}

var _ gateway.Client = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithPageSize sets how many items each listing page holds.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithDefaultModels makes CreateRestAPI seed every new API with models,
// the way the real service adds "Empty" and "Error".
func WithDefaultModels(models ...gateway.Model) Option {
	return func(s *Service) {
		s.defaults = append(s.defaults, models...)
	}
}

// WithFailFunc installs a failure injector.
func WithFailFunc(fn FailFunc) Option {
	return func(s *Service) {
		s.fail = fn
	}
}

// New creates an empty service.
func New(opts ...Option) *Service {
	s := &Service{
		apis:     make(map[string]*api),
		pageSize: 25,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FailOn returns a FailFunc failing every call of op with err.
func FailOn(op string, err error) FailFunc {
	return func(call Call) error {
		if call.Op == op {
			return err
		}
		return nil
	}
}

// SetFailFunc replaces the failure injector.
func (s *Service) SetFailFunc(fn FailFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fn
}

// Calls returns a copy of every recorded call.
func (s *Service) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// MutatingCalls returns the recorded calls that changed remote state.
func (s *Service) MutatingCalls() []Call {
	var out []Call
	for _, c := range s.Calls() {
		if IsMutating(c.Op) {
			out = append(out, c)
		}
	}
	return out
}

// CallsTo returns the recorded calls of a single operation.
func (s *Service) CallsTo(op string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls clears the call log.
func (s *Service) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

// record logs a call and applies the failure injector. Calls on a done
// context are refused without being logged. Callers hold s.mu.
func (s *Service) record(ctx context.Context, op, apiID, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	call := Call{Op: op, APIID: apiID, Target: target}
	s.calls = append(s.calls, call)
	if s.fail != nil {
		return s.fail(call)
	}
	return nil
}

func (s *Service) newID(prefix string) string {
	s.nextID++
	return prefix + strconv.Itoa(s.nextID)
}

func (s *Service) lookup(apiID string) (*api, error) {
	a, ok := s.apis[apiID]
	if !ok {
		return nil, errors.NewAPIError("GetRestAPI", http.StatusNotFound, fmt.Sprintf("api %s not found", apiID))
	}
	return a, nil
}

// SeedAPI creates an API with its root resource without recording a call.
func (s *Service) SeedAPI(id, name string) gateway.RestAPI {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createAPI(id, name, "")
}

func (s *Service) createAPI(id, name, description string) gateway.RestAPI {
	info := gateway.RestAPI{ID: id, Name: name, Description: description, CreatedDate: utc.Now()}
	a := &api{
		info:      info,
		resources: make(map[string]*gateway.Resource),
		models:    make(map[string]gateway.Model),
	}
	rootID := s.newID("r")
	a.resources[rootID] = &gateway.Resource{
		ID:    rootID,
		Path:  "/",
		Links: []string{gateway.LinkResourceCreate, gateway.LinkMethodPut},
	}
	a.order = append(a.order, rootID)
	for _, m := range s.defaults {
		m.ID = s.newID("m")
		a.models[m.Name] = m
	}
	s.apis[id] = a
	return info
}

// SeedResource adds a child resource without recording a call.
func (s *Service) SeedResource(apiID, parentID, pathPart string) (gateway.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createResource(apiID, parentID, pathPart)
}

// SeedModel adds a model without recording a call.
func (s *Service) SeedModel(apiID string, model gateway.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.lookup(apiID)
	if err != nil {
		return err
	}
	model.ID = s.newID("m")
	a.models[model.Name] = model
	return nil
}

// SeedMethod sets a method on a resource without recording a call.
func (s *Service) SeedMethod(apiID, resourceID string, method gateway.Method) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.resource(apiID, resourceID)
	if err != nil {
		return err
	}
	method.HTTPMethod = gateway.NormalizeHTTPMethod(method.HTTPMethod)
	if res.Methods == nil {
		res.Methods = make(map[string]gateway.Method)
	}
	res.Methods[method.HTTPMethod] = copyMethod(method)
	return nil
}

// Exists reports whether the API is present.
func (s *Service) Exists(apiID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.apis[apiID]
	return ok
}

// Snapshot returns the resources (sorted by path) and models (sorted by name) of an API.
func (s *Service) Snapshot(apiID string) ([]gateway.Resource, []gateway.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.lookup(apiID)
	if err != nil {
		return nil, nil, err
	}
	resources := make([]gateway.Resource, 0, len(a.resources))
	for _, id := range a.order {
		resources = append(resources, copyResource(*a.resources[id]))
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i].Path < resources[j].Path })

	models := make([]gateway.Model, 0, len(a.models))
	for _, m := range a.models {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return resources, models, nil
}

// Deployments returns the deployments of an API in creation order.
func (s *Service) Deployments(apiID string) []gateway.Deployment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.apis[apiID]; ok {
		return append([]gateway.Deployment(nil), a.deployments...)
	}
	return nil
}

func (s *Service) resource(apiID, resourceID string) (*gateway.Resource, error) {
	a, err := s.lookup(apiID)
	if err != nil {
		return nil, err
	}
	res, ok := a.resources[resourceID]
	if !ok {
		return nil, errors.NewAPIError("GetResource", http.StatusNotFound, fmt.Sprintf("resource %s not found", resourceID))
	}
	return res, nil
}

func (s *Service) createResource(apiID, parentID, pathPart string) (gateway.Resource, error) {
	a, err := s.lookup(apiID)
	if err != nil {
		return gateway.Resource{}, err
	}
	parent, ok := a.resources[parentID]
	if !ok {
		return gateway.Resource{}, errors.NewAPIError(OpCreateResource, http.StatusNotFound, fmt.Sprintf("parent %s not found", parentID))
	}
	if pathPart == "" {
		return gateway.Resource{}, errors.NewAPIError(OpCreateResource, http.StatusBadRequest, "path part must not be empty")
	}
	for _, r := range a.resources {
		if r.ParentID == parentID && r.PathPart == pathPart {
			return gateway.Resource{}, errors.NewAPIError(OpCreateResource, http.StatusConflict,
				fmt.Sprintf("another resource with the same parent already has path part %s", pathPart))
		}
	}
	res := &gateway.Resource{
		ID:       s.newID("r"),
		ParentID: parentID,
		PathPart: pathPart,
		Path:     paths.Join(parent.Path, pathPart),
		Links:    []string{gateway.LinkResourceCreate, gateway.LinkResourceDelete, gateway.LinkMethodPut},
	}
	a.resources[res.ID] = res
	a.order = append(a.order, res.ID)
	return copyResource(*res), nil
}

// GetRestAPI implements gateway.Client.
func (s *Service) GetRestAPI(ctx context.Context, apiID string) (gateway.RestAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(ctx, OpGetRestAPI, apiID, ""); err != nil {
		return gateway.RestAPI{}, err
	}
	a, err := s.lookup(apiID)
	if err != nil {
		return gateway.RestAPI{}, err
	}
	return a.info, nil
}

// CreateRestAPI implements gateway.Client.
func (s *Service) CreateRestAPI(ctx context.Context, input gateway.CreateRestAPIInput) (gateway.RestAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(ctx, OpCreateRestAPI, "", input.Name); err != nil {
		return gateway.RestAPI{}, err
	}
	if input.Name == "" {
		return gateway.RestAPI{}, errors.NewAPIError(OpCreateRestAPI, http.StatusBadRequest, "name must not be empty")
	}
	return s.createAPI(s.newID("api"), input.Name, input.Description), nil
}

// DeleteRestAPI implements gateway.Client.
func (s *Service) DeleteRestAPI(ctx context.Context, apiID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(ctx, OpDeleteRestAPI, apiID, ""); err != nil {
		return err
	}
	if _, err := s.lookup(apiID); err != nil {
		return err
	}
	delete(s.apis, apiID)
	return nil
}

// GetResources implements gateway.Client.
func (s *Service) GetResources(ctx context.Context, apiID, position string) (gateway.Page[gateway.Resource], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(ctx, OpGetResources, apiID, position); err != nil {
		return gateway.Page[gateway.Resource]{}, err
	}
	a, err := s.lookup(apiID)
	if err != nil {
		return gateway.Page[gateway.Resource]{}, err
	}
	all := make([]gateway.Resource, 0, len(a.order))
	for _, id := range a.order {
		all = append(all, copyResource(*a.resources[id]))
	}
	return pageOf(all, position, s.pageSize)
}

// CreateResource implements gateway.Client.
func (s *Service) CreateResource(ctx context.Context, apiID, parentID, pathPart string) (gateway.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(ctx, OpCreateResource, apiID, parentID+"/"+pathPart); err != nil {
		return gateway.Resource{}, err
	}
	return s.createResource(apiID, parentID, pathPart)
}

// DeleteResource implements gateway.Client. Descendants are removed too.
func (s *Service) DeleteResource(ctx context.Context, apiID, resourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(ctx, OpDeleteResource, apiID, resourceID); err != nil {
		return err
	}
	res, err := s.resource(apiID, resourceID)
	if err != nil {
		return err
	}
	if res.IsRoot() {
		return errors.NewAPIError(OpDeleteResource, http.StatusBadRequest, "the root resource cannot be deleted")
	}
	a := s.apis[apiID]
	doomed := map[string]bool{resourceID: true}
	for changed := true; changed; {
		changed = false
		for id, r := range a.resources {
			if !doomed[id] && doomed[r.ParentID] {
				doomed[id] = true
				changed = true
			}
		}
	}
	kept := a.order[:0]
	for _, id := range a.order {
		if doomed[id] {
			delete(a.resources, id)
			continue
		}
		kept = append(kept, id)
	}
	a.order = kept
	return nil
}

// GetModels implements gateway.Client.
func (s *Service) GetModels(ctx context.Context, apiID, position string) (gateway.Page[gateway.Model], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(ctx, OpGetModels, apiID, position); err != nil {
		return gateway.Page[gateway.Model]{}, err
	}
	a, err := s.lookup(apiID)
	if err != nil {
		return gateway.Page[gateway.Model]{}, err
	}
	all := make([]gateway.Model, 0, len(a.models))
	for _, m := range a.models {
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return pageOf(all, position, s.pageSize)
}

// GetModel implements gateway.Client.
func (s *Service) GetModel(ctx context.Context, apiID, name string) (gateway.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(ctx, OpGetModel, apiID, name); err != nil {
		return gateway.Model{}, err
	}
	a, err := s.lookup(apiID)
	if err != nil {
		return gateway.Model{}, err
	}
	m, ok := a.models[name]
	if !ok {
		return gateway.Model{}, errors.NewAPIError(OpGetModel, http.StatusNotFound, fmt.Sprintf("model %s not found", name))
	}
	return m, nil
}

// CreateModel implements gateway.Client.
func (s *Service) CreateModel(ctx context.Context, apiID string, input gateway.CreateModelInput) (gateway.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(ctx, OpCreateModel, apiID, input.Name); err != nil {
		return gateway.Model{}, err
	}
	a, err := s.lookup(apiID)
	if err != nil {
		return gateway.Model{}, err
	}
	if _, exists := a.models[input.Name]; exists {
		return gateway.Model{}, errors.NewAPIError(OpCreateModel, http.StatusConflict, fmt.Sprintf("model %s already exists", input.Name))
	}
	m := gateway.Model{
		ID:          s.newID("m"),
		Name:        input.Name,
		Description: input.Description,
		Schema:      input.Schema,
		ContentType: input.ContentType,
	}
	a.models[m.Name] = m
	return m, nil
}

// UpdateModel implements gateway.Client. Only /schema and /description can be patched.
func (s *Service) UpdateModel(ctx context.Context, apiID, name string, doc patch.Document) (gateway.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(ctx, OpUpdateModel, apiID, name); err != nil {
		return gateway.Model{}, err
	}
	a, err := s.lookup(apiID)
	if err != nil {
		return gateway.Model{}, err
	}
	m, ok := a.models[name]
	if !ok {
		return gateway.Model{}, errors.NewAPIError(OpUpdateModel, http.StatusNotFound, fmt.Sprintf("model %s not found", name))
	}
	for _, op := range doc.Operations {
		value := ""
		if op.Value != nil {
			value = *op.Value
		}
		switch {
		case op.Path == "/schema" && op.Op != patch.OpRemove:
			m.Schema = value
		case op.Path == "/description":
			m.Description = value
		default:
			return gateway.Model{}, errors.NewAPIError(OpUpdateModel, http.StatusBadRequest,
				fmt.Sprintf("invalid patch path %s", op.Path))
		}
	}
	a.models[name] = m
	return m, nil
}

// DeleteModel implements gateway.Client.
func (s *Service) DeleteModel(ctx context.Context, apiID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(ctx, OpDeleteModel, apiID, name); err != nil {
		return err
	}
	a, err := s.lookup(apiID)
	if err != nil {
		return err
	}
	if _, ok := a.models[name]; !ok {
		return errors.NewAPIError(OpDeleteModel, http.StatusNotFound, fmt.Sprintf("model %s not found", name))
	}
	delete(a.models, name)
	return nil
}

// PutMethod implements gateway.Client.
func (s *Service) PutMethod(ctx context.Context, apiID, resourceID string, input gateway.PutMethodInput) (gateway.Method, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	httpMethod := gateway.NormalizeHTTPMethod(input.HTTPMethod)
	if err := s.record(ctx, OpPutMethod, apiID, resourceID+" "+httpMethod); err != nil {
		return gateway.Method{}, err
	}
	res, err := s.resource(apiID, resourceID)
	if err != nil {
		return gateway.Method{}, err
	}
	m := copyMethod(gateway.Method{
		HTTPMethod:        httpMethod,
		AuthorizationType: input.AuthorizationType,
		RequestParameters: input.RequestParameters,
	})
	if res.Methods == nil {
		res.Methods = make(map[string]gateway.Method)
	}
	res.Methods[httpMethod] = m
	return copyMethod(m), nil
}

// UpdateMethod implements gateway.Client. Supports /authorizationType and
// /requestParameters/<expression>.
func (s *Service) UpdateMethod(ctx context.Context, apiID, resourceID, httpMethod string, doc patch.Document) (gateway.Method, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	httpMethod = gateway.NormalizeHTTPMethod(httpMethod)
	if err := s.record(ctx, OpUpdateMethod, apiID, resourceID+" "+httpMethod); err != nil {
		return gateway.Method{}, err
	}
	res, err := s.resource(apiID, resourceID)
	if err != nil {
		return gateway.Method{}, err
	}
	m, ok := res.Method(httpMethod)
	if !ok {
		return gateway.Method{}, errors.NewAPIError(OpUpdateMethod, http.StatusNotFound, fmt.Sprintf("method %s not found", httpMethod))
	}
	m = copyMethod(m)
	for _, op := range doc.Operations {
		segments := patch.Segments(op.Path)
		switch {
		case len(segments) == 1 && segments[0] == "authorizationType" && op.Value != nil:
			m.AuthorizationType = *op.Value
		case len(segments) == 2 && segments[0] == "requestParameters":
			if op.Op == patch.OpRemove {
				delete(m.RequestParameters, segments[1])
				continue
			}
			required := false
			if op.Value != nil {
				required, err = strconv.ParseBool(*op.Value)
				if err != nil {
					return gateway.Method{}, errors.NewAPIError(OpUpdateMethod, http.StatusBadRequest, "invalid boolean "+*op.Value)
				}
			}
			if m.RequestParameters == nil {
				m.RequestParameters = make(map[string]bool)
			}
			m.RequestParameters[segments[1]] = required
		default:
			return gateway.Method{}, errors.NewAPIError(OpUpdateMethod, http.StatusBadRequest,
				fmt.Sprintf("invalid patch path %s", op.Path))
		}
	}
	res.Methods[httpMethod] = m
	return copyMethod(m), nil
}

// CreateDeployment implements gateway.Client.
func (s *Service) CreateDeployment(ctx context.Context, apiID string, input gateway.CreateDeploymentInput) (gateway.Deployment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.record(ctx, OpCreateDeployment, apiID, input.StageName); err != nil {
		return gateway.Deployment{}, err
	}
	a, err := s.lookup(apiID)
	if err != nil {
		return gateway.Deployment{}, err
	}
	d := gateway.Deployment{
		ID:          s.newID("d"),
		StageName:   input.StageName,
		Description: input.Description,
		CreatedDate: utc.Now(),
	}
	a.deployments = append(a.deployments, d)
	return d, nil
}

// pageOf slices all at the numeric position token.
func pageOf[T any](all []T, position string, size int) (gateway.Page[T], error) {
	start := 0
	if position != "" {
		n, err := strconv.Atoi(position)
		if err != nil || n < 0 || n > len(all) {
			return gateway.Page[T]{}, errors.NewAPIError("List", http.StatusBadRequest, "invalid position "+position)
		}
		start = n
	}
	end := start + size
	if end >= len(all) {
		return gateway.Page[T]{Items: all[start:]}, nil
	}
	return gateway.Page[T]{Items: all[start:end], Position: strconv.Itoa(end)}, nil
}

func copyResource(r gateway.Resource) gateway.Resource {
	if r.Methods != nil {
		methods := make(map[string]gateway.Method, len(r.Methods))
		for k, m := range r.Methods {
			methods[k] = copyMethod(m)
		}
		r.Methods = methods
	}
	r.Links = append([]string(nil), r.Links...)
	return r
}

func copyMethod(m gateway.Method) gateway.Method {
	if m.RequestParameters != nil {
		params := make(map[string]bool, len(m.RequestParameters))
		for k, v := range m.RequestParameters {
			params[k] = v
		}
		m.RequestParameters = params
	}
	return m
}
