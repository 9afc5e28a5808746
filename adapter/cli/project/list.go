package project

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/escrowly/adapter/cli"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/queries"
)

var (
	listStatus string
	listMine   bool
	listLimit  int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Long: `List projects, oldest first. Status accepts English keys or the web
client's Japanese labels.

Examples:
  escrowly project list
  escrowly project list --mine
  escrowly project list --status workReady`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.GetApp()
		if err != nil {
			return err
		}

		query := queries.ListProjectsQuery{Status: listStatus, Limit: listLimit}
		if listMine {
			viewer, err := app.Viewer()
			if err != nil {
				return err
			}
			query.ClientID = viewer.ViewerID
		}

		projects, err := app.ListProjectsHandler.Handle(cmd.Context(), query)
		if err != nil {
			return fmt.Errorf("failed to list projects: %w", err)
		}
		if cli.JSONOutput() {
			return cli.WriteJSON(cmd.OutOrStdout(), projects)
		}
		cli.RenderProjects(cmd.OutOrStdout(), projects)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	listCmd.Flags().BoolVar(&listMine, "mine", false, "only projects you posted")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "maximum number of projects (0 = all)")
}

