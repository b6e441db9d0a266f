package gateway_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/apisync/pkg/gateway"
	"github.com/agentstation/apisync/pkg/gateway/memory"
)

func TestCollectFollowsPositions(t *testing.T) {
	pages := map[string]gateway.Page[int]{
		"":   {Items: []int{1, 2}, Position: "p2"},
		"p2": {Items: []int{3}, Position: "p3"},
		"p3": {Items: []int{4, 5}},
	}
	var seen []string
	items, err := gateway.Collect(context.Background(), func(_ context.Context, position string) (gateway.Page[int], error) {
		seen = append(seen, position)
		return pages[position], nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, items)
	assert.Equal(t, []string{"", "p2", "p3"}, seen)
}

func TestCollectStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := gateway.Collect(context.Background(), func(_ context.Context, position string) (gateway.Page[int], error) {
		calls++
		if position == "" {
			return gateway.Page[int]{Items: []int{1}, Position: "next"}, nil
		}
		return gateway.Page[int]{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestCollectHonorsCancellationBetweenPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := gateway.Collect(ctx, func(_ context.Context, _ string) (gateway.Page[int], error) {
		calls++
		cancel()
		return gateway.Page[int]{Items: []int{1}, Position: "next"}, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestListResourcesAcrossPages(t *testing.T) {
	svc := memory.New(memory.WithPageSize(2))
	svc.SeedAPI("api1", "pets")
	resources, _, err := svc.Snapshot("api1")
	require.NoError(t, err)
	root := resources[0]
	for _, part := range []string{"a", "b", "c", "d"} {
		_, err := svc.SeedResource("api1", root.ID, part)
		require.NoError(t, err)
	}

	all, err := gateway.ListResources(context.Background(), svc, "api1")
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Len(t, svc.CallsTo(memory.OpGetResources), 3)
}

func TestResourceCapabilities(t *testing.T) {
	root := gateway.Resource{Path: "/", Links: []string{gateway.LinkResourceDelete}}
	assert.True(t, root.IsRoot())
	assert.False(t, root.CanDelete())

	child := gateway.Resource{Path: "/pets", Links: []string{gateway.LinkResourceDelete}}
	assert.True(t, child.CanDelete())

	locked := gateway.Resource{Path: "/pets"}
	assert.False(t, locked.CanDelete())
}

func TestResourceMethodIgnoresCase(t *testing.T) {
	r := gateway.Resource{Methods: map[string]gateway.Method{"GET": {HTTPMethod: "GET"}}}
	assert.True(t, r.HasMethod("get"))
	assert.True(t, r.HasMethod(" Get "))
	assert.False(t, r.HasMethod("post"))
	assert.False(t, gateway.Resource{}.HasMethod("GET"))
}

func TestParameterExpressions(t *testing.T) {
	assert.Equal(t, "method.request.querystring.limit", gateway.RequestParameterExpression("querystring", "limit"))
	assert.Equal(t, "PATCH", gateway.NormalizeHTTPMethod("patch"))

	m := gateway.Method{RequestParameters: map[string]bool{"method.request.header.x": true}}
	required, ok := m.Parameter("method.request.header.x")
	assert.True(t, ok)
	assert.True(t, required)
	_, ok = gateway.Method{}.Parameter("method.request.header.x")
	assert.False(t, ok)
}
