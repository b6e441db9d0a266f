package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/apisync/pkg/errors"
	"github.com/agentstation/apisync/pkg/gateway"
	"github.com/agentstation/apisync/pkg/logging"
	"github.com/agentstation/apisync/pkg/patch"
)

// recorded is one request seen by the test server.
type recorded struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   string
}

type server struct {
	mu       sync.Mutex
	requests []recorded
	handler  http.HandlerFunc
}

func (s *server) last() recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) (*Client, *server) {
	t.Helper()
	logging.DisableLoggingForTest(t)

	s := &server{handler: handler}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.requests = append(s.requests, recorded{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   string(body),
		})
		s.mu.Unlock()
		s.handler(w, r)
	}))
	t.Cleanup(ts.Close)

	opts = append([]Option{WithRateLimit(0, 0)}, opts...)
	client, err := New(ts.URL+"/", opts...)
	require.NoError(t, err)
	return client, s
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestNewRejectsRelativeEndpoint(t *testing.T) {
	_, err := New("restapis")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	_, err = New("https://gateway.example.com", WithPageLimit(0))
	assert.True(t, errors.IsValidationError(err))
}

func TestEndpointTrimsTrailingSlash(t *testing.T) {
	client, err := New("https://gateway.example.com/v1/")
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.example.com/v1", client.Endpoint())
}

func TestURLEscapesSegments(t *testing.T) {
	client, err := New("https://gateway.example.com")
	require.NoError(t, err)

	got := client.URL([]string{"restapis", "api1", "models", "a/b c"}, nil)
	assert.Equal(t, "https://gateway.example.com/restapis/api1/models/a%2Fb%20c", got)
}

func TestGetRestAPI(t *testing.T) {
	client, s := newTestClient(t, respond(http.StatusOK, `{"id":"api1","name":"pets"}`),
		WithAuth(&HeaderAuth{Header: "x-api-key"}, "secret"))

	api, err := client.GetRestAPI(context.Background(), "api1")
	require.NoError(t, err)
	assert.Equal(t, "api1", api.ID)
	assert.Equal(t, "pets", api.Name)

	req := s.last()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/restapis/api1", req.Path)
	assert.Equal(t, "secret", req.Header.Get("x-api-key"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
}

func TestCreateRestAPISendsJSON(t *testing.T) {
	client, s := newTestClient(t, respond(http.StatusCreated, `{"id":"api9","name":"pets"}`))

	api, err := client.CreateRestAPI(context.Background(), gateway.CreateRestAPIInput{Name: "pets"})
	require.NoError(t, err)
	assert.Equal(t, "api9", api.ID)

	req := s.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/restapis", req.Path)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"name":"pets"}`, req.Body)
}

func TestGetResourcesDecodesLinksAndMethods(t *testing.T) {
	body := `{
		"item": [
			{"id":"r0","path":"/","_links":{"self":{},"resource:create-child":{},"method:put":{}}},
			{"id":"r1","parentId":"r0","pathPart":"pets","path":"/pets",
			 "resourceMethods":{"GET":{"httpMethod":"GET","authorizationType":"NONE","requestParameters":{"method.request.querystring.limit":false}}},
			 "_links":{"resource:delete":{}}}
		],
		"position": "next-page"
	}`
	client, s := newTestClient(t, respond(http.StatusOK, body), WithPageLimit(50))

	page, err := client.GetResources(context.Background(), "api1", "abc")
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "next-page", page.Position)

	root := page.Items[0]
	assert.True(t, root.IsRoot())
	assert.True(t, root.Can(gateway.LinkResourceCreate))
	assert.False(t, root.CanDelete())

	pets := page.Items[1]
	assert.True(t, pets.CanDelete())
	method, ok := pets.Method("get")
	require.True(t, ok)
	required, ok := method.Parameter("method.request.querystring.limit")
	assert.True(t, ok)
	assert.False(t, required)

	req := s.last()
	assert.Equal(t, "/restapis/api1/resources", req.Path)
	assert.Equal(t, "embed=methods&limit=50&position=abc", req.Query)
}

func TestCreateResourcePostsPathPart(t *testing.T) {
	client, s := newTestClient(t, respond(http.StatusCreated,
		`{"id":"r2","parentId":"r0","pathPart":"{id}","path":"/{id}","_links":{"resource:delete":{}}}`))

	res, err := client.CreateResource(context.Background(), "api1", "r0", "{id}")
	require.NoError(t, err)
	assert.Equal(t, "/{id}", res.Path)
	assert.Equal(t, []string{gateway.LinkResourceDelete}, res.Links)

	req := s.last()
	assert.Equal(t, "/restapis/api1/resources/r0", req.Path)
	assert.JSONEq(t, `{"pathPart":"{id}"}`, req.Body)
}

func TestUpdateModelSendsPatchDocument(t *testing.T) {
	client, s := newTestClient(t, respond(http.StatusOK, `{"name":"Pet","schema":"{}"}`))

	doc := patch.New(patch.Replace("/schema", "{}"))
	model, err := client.UpdateModel(context.Background(), "api1", "Pet", doc)
	require.NoError(t, err)
	assert.Equal(t, "{}", model.Schema)

	req := s.last()
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "/restapis/api1/models/Pet", req.Path)
	assert.JSONEq(t, `{"patchOperations":[{"op":"replace","path":"/schema","value":"{}"}]}`, req.Body)
}

func TestPutMethodUsesNormalizedMethod(t *testing.T) {
	client, s := newTestClient(t, respond(http.StatusCreated, `{"authorizationType":"NONE"}`))

	method, err := client.PutMethod(context.Background(), "api1", "r1", gateway.PutMethodInput{
		HTTPMethod:        "post",
		AuthorizationType: "NONE",
	})
	require.NoError(t, err)
	assert.Equal(t, "POST", method.HTTPMethod)

	req := s.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/restapis/api1/resources/r1/methods/POST", req.Path)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Body), &sent))
	assert.NotContains(t, sent, "HTTPMethod")
	assert.Equal(t, "NONE", sent["authorizationType"])
}

func TestDeleteWithEmptyBody(t *testing.T) {
	client, s := newTestClient(t, respond(http.StatusAccepted, ""))

	require.NoError(t, client.DeleteModel(context.Background(), "api1", "Empty"))
	assert.Equal(t, http.MethodDelete, s.last().Method)
	assert.Equal(t, "/restapis/api1/models/Empty", s.last().Path)
}

func TestErrorStatusesBecomeAPIErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
		is      error
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"message":"Invalid Resource identifier specified"}`, message: "Invalid Resource identifier specified", is: errors.ErrNotFound},
		{name: "conflict", status: http.StatusConflict, body: `{"Message":"Another resource with the same parent already has this name"}`, message: "Another resource with the same parent already has this name", is: errors.ErrConflict},
		{name: "throttled", status: http.StatusTooManyRequests, body: "slow down", message: "slow down", is: errors.ErrRateLimited},
		{name: "server error without body", status: http.StatusBadGateway, body: "", message: "502 Bad Gateway", is: errors.ErrServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, respond(tt.status, tt.body))

			err := client.DeleteResource(context.Background(), "api1", "r1")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.is)

			var apiErr *errors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, "DeleteResource", apiErr.Operation)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestUnreachableServiceIsAPIError(t *testing.T) {
	logging.DisableLoggingForTest(t)
	ts := httptest.NewServer(respond(http.StatusOK, `{}`))
	endpoint := ts.URL
	ts.Close()

	client, err := New(endpoint, WithRateLimit(0, 0))
	require.NoError(t, err)

	_, err = client.GetRestAPI(context.Background(), "api1")
	require.Error(t, err)

	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "GetRestApi", apiErr.Operation)
	assert.Zero(t, apiErr.StatusCode)
	assert.NotNil(t, apiErr.Err)
	assert.Equal(t, apiErr.Err.Error(), apiErr.Message)
	assert.NotErrorIs(t, err, errors.ErrNotFound)
}

func TestMalformedResponseIsParseError(t *testing.T) {
	client, _ := newTestClient(t, respond(http.StatusOK, `{"id":`))

	_, err := client.GetModel(context.Background(), "api1", "Pet")
	require.Error(t, err)

	var parseErr *errors.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestCancelledContextSkipsRequest(t *testing.T) {
	client, s := newTestClient(t, respond(http.StatusOK, `{}`))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetRestAPI(ctx, "api1")
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.requests)
}

func TestRateLimitWaitHonorsDeadline(t *testing.T) {
	client, s := newTestClient(t, respond(http.StatusOK, `{"id":"api1"}`), WithRateLimit(0.001, 1))

	_, err := client.GetRestAPI(context.Background(), "api1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.GetRestAPI(ctx, "api1")
	require.Error(t, err)
	assert.Len(t, s.requests, 1)
}

func TestListResourcesFollowsPositions(t *testing.T) {
	pages := map[string]string{
		"":   `{"item":[{"id":"r0","path":"/"}],"position":"p2"}`,
		"p2": `{"item":[{"id":"r1","path":"/pets","parentId":"r0","pathPart":"pets"}]}`,
	}
	client, s := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		respond(http.StatusOK, pages[r.URL.Query().Get("position")])(w, r)
	})

	resources, err := gateway.ListResources(context.Background(), client, "api1")
	require.NoError(t, err)
	require.Len(t, resources, 2)
	assert.Equal(t, "/pets", resources[1].Path)
	assert.Len(t, s.requests, 2)
}
