package project

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/escrowly/adapter/cli"
)

var updateFlags projectFlags

var updateCmd = &cobra.Command{
	Use:   "update <project-id>",
	Short: "Update a project",
	Long: `Change the fields you pass; everything else is kept.

Examples:
  escrowly project update 3f0c... --status inProgress
  escrowly project update 3f0c... --unread 2 --due none`,
	Args: cobra.ExactArgs(1),
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

		saveCmd, err := updateFlags.command(cmd)
		if err != nil {
			return err
		}
		saveCmd.ID = id
		saveCmd.ActorID = viewer.ViewerID

		p, err := app.SaveProjectHandler.Handle(cmd.Context(), saveCmd)
		if err != nil {
			return fmt.Errorf("failed to update project: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated project: %s [%s]\n", p.Title, p.Status)
		return nil
	},
}

func init() {
	updateCmd.Flags().StringVar(&updateFlags.title, "title", "", "project title")
	bindProjectFlags(updateCmd, &updateFlags)
}
