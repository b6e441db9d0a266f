package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/apisync"
	"github.com/agentstation/apisync/pkg/differ"
	"github.com/agentstation/apisync/pkg/errors"
	"github.com/agentstation/apisync/pkg/gateway"
)

func sampleResult() *apisync.Result {
	return &apisync.Result{
		RunID:    "run-1",
		APIID:    "api1",
		APIName:  "pets",
		State:    apisync.StatePopulated,
		Stats:    apisync.Stats{ResourcesCreated: 2, MethodsCreated: 1},
		Warnings: []string{"could not delete model Legacy"},
		Duration: 1500 * time.Millisecond,
	}
}

func sampleChangeset() *differ.Changeset {
	existing := false
	return &differ.Changeset{
		Resources: []differ.ResourceChange{{Type: differ.ChangeTypeAdd, Path: "/pets"}},
		Models: &differ.ModelChangeset{
			Added: []gateway.Model{{Name: "Pet", ContentType: "application/json"}},
		},
		Methods: []differ.MethodChange{{Path: "/pets", HTTPMethod: "GET", AuthorizationType: "NONE"}},
		Parameters: []differ.ParameterChange{{
			Path: "/pets", HTTPMethod: "GET", Expression: "method.request.querystring.limit", Required: true, Existing: &existing,
		}},
		Summary: differ.ChangesetSummary{ResourcesAdded: 1, ModelsAdded: 1, MethodsAdded: 1, ParametersChanged: 1, TotalChanges: 4},
	}
}

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"table", "TEXT", " json ", "yaml", ""} {
		_, err := ParseFormat(in)
		assert.NoError(t, err, in)
	}

	_, err := ParseFormat("csv")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestDetectFormatExplicit(t *testing.T) {
	assert.Equal(t, FormatYAML, DetectFormat("YAML"))
}

func TestNewFormatter(t *testing.T) {
	assert.IsType(t, &JSONFormatter{}, NewFormatter(FormatJSON))
	assert.IsType(t, &YAMLFormatter{}, NewFormatter(FormatYAML))
	assert.IsType(t, &TextFormatter{}, NewFormatter(FormatText))
	assert.IsType(t, &TableFormatter{}, NewFormatter(FormatTable))
	assert.IsType(t, &TableFormatter{}, NewFormatter("unknown"))
}

func TestJSONFormatterResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatJSON).Format(&buf, sampleResult()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "api1", decoded["api_id"])
	assert.Equal(t, "populated", decoded["state"])
}

func TestYAMLFormatterChangeset(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatYAML).Format(&buf, sampleChangeset()))

	assert.Contains(t, buf.String(), "total_changes: 4")
	assert.Contains(t, buf.String(), "path: /pets")
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatText).Format(&buf, sampleResult()))
	assert.Contains(t, buf.String(), "API api1: 2 resources created, 1 methods created (1 warnings)")
	assert.Contains(t, buf.String(), "warning: could not delete model Legacy")

	buf.Reset()
	require.NoError(t, NewFormatter(FormatText).Format(&buf, sampleChangeset()))
	assert.Contains(t, buf.String(), "Total: 4 changes")
}

func TestTableFormatterResult(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "Resources Created")
	assert.Contains(t, out, "Parameters Changed")
	assert.Contains(t, out, "could not delete model Legacy")
}

func TestChangesetData(t *testing.T) {
	data := ChangesetData(sampleChangeset())
	require.Len(t, data.Rows, 4)
	assert.Equal(t, []string{"add", "resource", "/pets", ""}, data.Rows[0])
	assert.Equal(t, []string{"add", "model", "Pet", "application/json"}, data.Rows[1])
	assert.Equal(t, []string{"add", "method", "GET /pets", "NONE"}, data.Rows[2])
	assert.Equal(t, []string{"update", "parameter", "GET /pets", "method.request.querystring.limit required=true"}, data.Rows[3])
}

func TestTableFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable).Format(&buf, gateway.Deployment{ID: "d1", StageName: "prod"}))
	assert.Contains(t, buf.String(), `"stageName": "prod"`)
}
