package sync

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/apisync/internal/cmd/application"
)

// NewPlanCommand creates the plan command.
func NewPlanCommand(app application.Application) *cobra.Command {
	flags := &Flags{}
	var exitCode bool

	cmd := &cobra.Command{
		Use:          "plan <api-id> <definition>",
		GroupID:      "core",
		Short:        "Show what update would change",
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		Long: `Plan compares the definition file with the current state of an API and
lists the changes update would make. It only reads remote state.`,
		Example: `  apisync plan a1b2c3 petstore.yaml
  apisync plan a1b2c3 petstore.yaml --detailed-exitcode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := loadDefinition(args[1])
			if err != nil {
				return err
			}

			syncer, err := app.Syncer(flags.Options()...)
			if err != nil {
				return err
			}

			changeset, err := syncer.Plan(cmd.Context(), args[0], def)
			if err != nil {
				return err
			}

			if err := render(cmd, app, changeset); err != nil {
				return err
			}
			if exitCode && changeset.HasChanges() {
				return ErrChangesPending
			}
			return nil
		},
	}

	addPlanFlags(cmd, flags)
	cmd.Flags().BoolVar(&exitCode, "detailed-exitcode", false,
		"Fail when the plan is not empty")

	return cmd
}
