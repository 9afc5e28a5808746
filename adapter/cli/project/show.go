package project

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/escrowly/adapter/cli"
)

var showCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show project details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.GetApp()
		if err != nil {
			return err
		}
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid project ID: %w", err)
		}

		p, err := app.GetProjectHandler.Handle(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to get project: %w", err)
		}
		if cli.JSONOutput() {
			return cli.WriteJSON(cmd.OutOrStdout(), p)
		}
		cli.RenderProject(cmd.OutOrStdout(), p)
		return nil
	},
}
