// Package sync provides the import, update and plan commands.
package sync

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/apisync"
	"github.com/agentstation/apisync/internal/cmd/application"
	"github.com/agentstation/apisync/internal/cmd/output"
	"github.com/agentstation/apisync/pkg/definition"
	"github.com/agentstation/apisync/pkg/errors"
	"github.com/agentstation/apisync/pkg/gateway"
	"github.com/agentstation/apisync/pkg/reconciler"
)

// ErrChangesPending is returned by plan --detailed-exitcode when the plan is not empty.
var ErrChangesPending = errors.New("plan has pending changes")

// Flags holds the reconciliation flags shared by the sync commands.
type Flags struct {
	NoPrune           bool
	KeepModels        bool
	KeepDefaultModels bool
	ContentType       string
	DeployStage       string
	DeployDescription string
}

// addPlanFlags registers the flags that change what Update would do.
func addPlanFlags(cmd *cobra.Command, flags *Flags) {
	cmd.Flags().BoolVar(&flags.NoPrune, "no-prune", false,
		"Keep remote resources that are not in the definition")
	cmd.Flags().BoolVar(&flags.KeepModels, "keep-models", false,
		"Keep remote models that are not in the definition")
}

// addApplyFlags registers the flags of commands that change remote state.
func addApplyFlags(cmd *cobra.Command, flags *Flags) {
	cmd.Flags().StringVar(&flags.ContentType, "content-type", "",
		"Content type for models that do not declare one (default application/json)")
	cmd.Flags().StringVar(&flags.DeployStage, "deploy", "",
		"Deploy the API to this stage after a successful run")
	cmd.Flags().StringVar(&flags.DeployDescription, "deploy-description", "",
		"Description of the deployment created by --deploy")
}

// Options converts the flags to Syncer options.
func (f *Flags) Options() []apisync.Option {
	opts := []apisync.Option{
		apisync.WithPrune(!f.NoPrune),
		apisync.WithModelCleanup(!f.KeepModels),
		apisync.WithDeleteDefaultModels(!f.KeepDefaultModels),
	}
	if f.ContentType != "" {
		opts = append(opts, apisync.WithContentType(f.ContentType))
	}
	return opts
}

// loadDefinition reads the definition file named on the command line.
func loadDefinition(path string) (*definition.Definition, error) {
	def, err := definition.Load(path)
	if err != nil {
		return nil, errors.WrapResource("load", "definition", path, err)
	}
	return def, nil
}

// newSyncer builds a Syncer and logs its events through the app logger.
func newSyncer(app application.Application, flags *Flags) (apisync.Syncer, error) {
	syncer, err := app.Syncer(flags.Options()...)
	if err != nil {
		return nil, err
	}

	logger := app.Logger()
	syncer.OnResourceCreated(func(resource gateway.Resource) {
		logger.Debug().Str("resource_path", resource.Path).Str("resource_id", resource.ID).Msg("Resource created")
	})
	syncer.OnModelChanged(func(name string, action reconciler.ModelAction) {
		logger.Debug().Str("model", name).Str("action", string(action)).Msg("Model changed")
	})
	syncer.OnRollback(func(api gateway.RestAPI, cause error) {
		logger.Warn().Err(cause).Str("api_id", api.ID).Msg("Import failed, API deleted")
	})
	return syncer, nil
}

// render writes data in the configured output format.
func render(cmd *cobra.Command, app application.Application, data any) error {
	format := output.DetectFormat(app.OutputFormat())
	return output.NewFormatter(format).Format(cmd.OutOrStdout(), data)
}

// deploy publishes apiID when --deploy was given.
func deploy(cmd *cobra.Command, app application.Application, syncer apisync.Syncer, apiID string, flags *Flags) error {
	if flags.DeployStage == "" {
		return nil
	}
	deployment, err := syncer.Deploy(cmd.Context(), apiID, flags.DeployStage, flags.DeployDescription)
	if err != nil {
		return err
	}
	app.Logger().Info().
		Str("api_id", apiID).
		Str("stage", flags.DeployStage).
		Str("deployment_id", deployment.ID).
		Msg("API deployed")
	return nil
}
