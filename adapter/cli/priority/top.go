package priority

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/escrowly/adapter/cli"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/queries"
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Show the single most urgent project",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.GetApp()
		if err != nil {
			return err
		}
		viewer, err := app.Viewer()
		if err != nil {
			return err
		}

		res, err := app.GetTopTaskHandler.Handle(cmd.Context(), queries.GetTopTaskQuery{ViewerQuery: viewer})
		if err != nil {
			return fmt.Errorf("failed to select top task: %w", err)
		}
		if cli.JSONOutput() {
			return cli.WriteJSON(cmd.OutOrStdout(), res)
		}
		cli.RenderTopTask(cmd.OutOrStdout(), res)
		return nil
	},
}
