package sync

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/apisync/internal/cmd/application"
)

// NewUpdateCommand creates the update command.
func NewUpdateCommand(app application.Application) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:          "update <api-id> <definition>",
		GroupID:      "core",
		Short:        "Reconcile an existing API with a definition",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		Long: `Update brings an existing API in line with the definition file.

Missing models, resources, methods and parameters are created and changed
model schemas are replaced. Remote resources and models that the definition
no longer mentions are deleted unless --no-prune or --keep-models is given.
Failed deletions are reported as warnings. Nothing is rolled back.`,
		Example: `  apisync update a1b2c3 petstore.yaml
  apisync update a1b2c3 petstore.yaml --no-prune
  apisync update a1b2c3 petstore.yaml --deploy prod -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := loadDefinition(args[1])
			if err != nil {
				return err
			}

			syncer, err := newSyncer(app, flags)
			if err != nil {
				return err
			}

			result, err := syncer.Update(cmd.Context(), args[0], def)
			if err != nil {
				return err
			}

			if err := deploy(cmd, app, syncer, result.APIID, flags); err != nil {
				return err
			}
			return render(cmd, app, result)
		},
	}

	addPlanFlags(cmd, flags)
	addApplyFlags(cmd, flags)

	return cmd
}
