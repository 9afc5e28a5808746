package priority

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/escrowly/adapter/cli"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/queries"
)

var rankLimit int

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "List projects from most to least urgent",
	Long: `List every project visible to you, highest score first.

Examples:
  escrowly priority rank
  escrowly priority rank --limit 5 --role contractor`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.GetApp()
		if err != nil {
			return err
		}
		viewer, err := app.Viewer()
		if err != nil {
			return err
		}

		ranked, err := app.ListRankedHandler.Handle(cmd.Context(), queries.ListRankedQuery{ViewerQuery: viewer, Limit: rankLimit})
		if err != nil {
			return fmt.Errorf("failed to rank projects: %w", err)
		}
		if cli.JSONOutput() {
			return cli.WriteJSON(cmd.OutOrStdout(), ranked)
		}
		cli.RenderRanked(cmd.OutOrStdout(), ranked)
		return nil
	},
}

func init() {
	rankCmd.Flags().IntVarP(&rankLimit, "limit", "n", 0, "show at most n projects (0 = all)")
}
