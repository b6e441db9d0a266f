// Package api provides the commands that act on a whole API.
package api

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/apisync/internal/cmd/application"
	"github.com/agentstation/apisync/internal/cmd/output"
	"github.com/agentstation/apisync/pkg/errors"
)

// NewDeployCommand creates the deploy command.
func NewDeployCommand(app application.Application) *cobra.Command {
	var stage, description string

	cmd := &cobra.Command{
		Use:          "deploy <api-id>",
		GroupID:      "management",
		Short:        "Publish an API to a stage",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		Example: `  apisync deploy a1b2c3 --stage prod
  apisync deploy a1b2c3 --stage dev --description "nightly"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if stage == "" {
				return errors.NewValidationError("stage", stage, "--stage is required")
			}

			syncer, err := app.Syncer()
			if err != nil {
				return err
			}

			deployment, err := syncer.Deploy(cmd.Context(), args[0], stage, description)
			if err != nil {
				return err
			}

			app.Logger().Info().
				Str("api_id", args[0]).
				Str("stage", stage).
				Str("deployment_id", deployment.ID).
				Msg("API deployed")

			format := output.DetectFormat(app.OutputFormat())
			if format == output.FormatText {
				fmt.Fprintf(cmd.OutOrStdout(), "Deployed API %s to stage %s (deployment %s)\n", args[0], stage, deployment.ID)
				return nil
			}
			return output.NewFormatter(format).Format(cmd.OutOrStdout(), deployment)
		},
	}

	cmd.Flags().StringVarP(&stage, "stage", "s", "", "Stage to deploy to (required)")
	cmd.Flags().StringVar(&description, "description", "", "Deployment description")

	return cmd
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(app application.Application) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:          "delete <api-id>",
		GroupID:      "management",
		Short:        "Delete an API",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		Long: `Delete removes an API with all its resources and models.
An API that does not exist counts as deleted.`,
		Example: `  apisync delete a1b2c3 --yes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.NewValidationError("yes", yes, "deleting an API requires --yes")
			}

			syncer, err := app.Syncer()
			if err != nil {
				return err
			}

			if err := syncer.DeleteAPI(cmd.Context(), args[0]); err != nil {
				return err
			}

			app.Logger().Info().Str("api_id", args[0]).Msg("API deleted")
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted API %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the deletion")

	return cmd
}
