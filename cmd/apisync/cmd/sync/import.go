package sync

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/apisync/internal/cmd/application"
)

// NewImportCommand creates the import command.
func NewImportCommand(app application.Application) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:          "import <definition>",
		GroupID:      "core",
		Short:        "Create a new API from a definition",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		Long: `Import creates a new API and builds its models, resources and methods
from the definition file.

If any step fails the partially built API is deleted again, so an import
either produces a complete API or leaves nothing behind.`,
		Example: `  apisync import petstore.yaml
  apisync import petstore.yaml --deploy prod
  apisync import petstore.yaml --keep-default-models`,
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := loadDefinition(args[0])
			if err != nil {
				return err
			}

			syncer, err := newSyncer(app, flags)
			if err != nil {
				return err
			}

			result, err := syncer.Import(cmd.Context(), def)
			if err != nil {
				return err
			}

			if err := deploy(cmd, app, syncer, result.APIID, flags); err != nil {
				return err
			}
			return render(cmd, app, result)
		},
	}

	cmd.Flags().BoolVar(&flags.KeepDefaultModels, "keep-default-models", false,
		"Keep the models the service creates with every new API")
	addApplyFlags(cmd, flags)

	return cmd
}
