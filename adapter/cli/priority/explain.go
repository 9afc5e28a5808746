package priority

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/escrowly/adapter/cli"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/queries"
)

var explainCmd = &cobra.Command{
	Use:   "explain <project-id>",
	Short: "Break a project's score down by rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.GetApp()
		if err != nil {
			return err
		}
		viewer, err := app.Viewer()
		if err != nil {
			return err
		}
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid project ID: %w", err)
		}

		ex, err := app.ExplainPriorityHandler.Handle(cmd.Context(), queries.ExplainPriorityQuery{ViewerQuery: viewer, ProjectID: id})
		if err != nil {
			return fmt.Errorf("failed to explain priority: %w", err)
		}
		if cli.JSONOutput() {
			return cli.WriteJSON(cmd.OutOrStdout(), ex)
		}
		cli.RenderExplanation(cmd.OutOrStdout(), ex)
		return nil
	},
}
