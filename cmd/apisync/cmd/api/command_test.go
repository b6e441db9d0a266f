package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/apisync"
	"github.com/agentstation/apisync/internal/cmd/application"
	"github.com/agentstation/apisync/pkg/errors"
	"github.com/agentstation/apisync/pkg/gateway"
	"github.com/agentstation/apisync/pkg/gateway/memory"
	"github.com/agentstation/apisync/pkg/logging"
)

func newApp(svc *memory.Service, format string) *application.Mock {
	return &application.Mock{
		SyncerFunc: func(opts ...apisync.Option) (apisync.Syncer, error) {
			return apisync.New(svc, opts...)
		},
		OutputFormatFunc: func() string { return format },
	}
}

func run(cmd *cobra.Command, args ...string) (string, error) {
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDeployCommand(t *testing.T) {
	logging.DisableLoggingForTest(t)
	svc := memory.New()
	svc.SeedAPI("api1", "pets")

	out, err := run(NewDeployCommand(newApp(svc, "json")), "api1", "--stage", "prod", "--description", "first")
	require.NoError(t, err)

	var deployment gateway.Deployment
	require.NoError(t, json.Unmarshal([]byte(out), &deployment))
	assert.Equal(t, "prod", deployment.StageName)
	assert.Equal(t, "first", deployment.Description)
	assert.Len(t, svc.Deployments("api1"), 1)
}

func TestDeployCommandText(t *testing.T) {
	logging.DisableLoggingForTest(t)
	svc := memory.New()
	svc.SeedAPI("api1", "pets")

	out, err := run(NewDeployCommand(newApp(svc, "text")), "api1", "-s", "dev")
	require.NoError(t, err)
	assert.Contains(t, out, "Deployed API api1 to stage dev")
}

func TestDeployCommandRequiresStage(t *testing.T) {
	svc := memory.New()
	svc.SeedAPI("api1", "pets")

	_, err := run(NewDeployCommand(newApp(svc, "json")), "api1")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
	assert.Empty(t, svc.Calls())
}

func TestDeleteCommand(t *testing.T) {
	logging.DisableLoggingForTest(t)
	svc := memory.New()
	svc.SeedAPI("api1", "pets")

	_, err := run(NewDeleteCommand(newApp(svc, "text")), "api1")
	require.Error(t, err)
	assert.True(t, svc.Exists("api1"))

	out, err := run(NewDeleteCommand(newApp(svc, "text")), "api1", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted API api1")
	assert.False(t, svc.Exists("api1"))

	// already gone
	_, err = run(NewDeleteCommand(newApp(svc, "text")), "api1", "-y")
	assert.NoError(t, err)
}
