package project

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/escrowly/adapter/cli"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/commands"
)

// projectFlags are shared by add and update.
type projectFlags struct {
	title       string
	description string
	status      string
	contractor  string
	due         string
	budget      int64
	unread      int
	mScore      int
	sScore      int
	evaluate    bool
	tags        []string
}

var addFlags projectFlags

var addCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Post a new project",
	Long: `Post a project as the current user. New projects open for proposals.

Examples:
  escrowly project add "Logo design" --budget 30000
  escrowly project add "Docs translation" --budget 45000 --due 2026-07-01 --tags ja,en`,
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

		addFlags.title = args[0]
		saveCmd, err := addFlags.command(cmd)
		if err != nil {
			return err
		}
		saveCmd.ActorID = viewer.ViewerID

		p, err := app.SaveProjectHandler.Handle(cmd.Context(), saveCmd)
		if err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		if cli.JSONOutput() {
			return cli.WriteJSON(cmd.OutOrStdout(), map[string]any{"id": p.ID, "status": p.Status})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created project: %s\n", p.Title)
		fmt.Fprintf(cmd.OutOrStdout(), "  ID: %s\n", p.ID)
		return nil
	},
}

// command turns the flags that were set into a SaveProjectCommand.
func (f *projectFlags) command(cmd *cobra.Command) (commands.SaveProjectCommand, error) {
	var c commands.SaveProjectCommand
	set := cmd.Flags().Changed

	if f.title != "" {
		c.Title = &f.title
	}
	if set("description") {
		c.Description = &f.description
	}
	if set("status") {
		c.Status = &f.status
	}
	if set("contractor") {
		id, err := uuid.Parse(f.contractor)
		if err != nil {
			return c, fmt.Errorf("invalid --contractor: %w", err)
		}
		c.ContractorID = &id
	}
	if set("due") {
		if f.due == "" || f.due == "none" {
			c.ClearDueDate = true
		} else {
			due, err := time.ParseInLocation("2006-01-02", f.due, time.Local)
			if err != nil {
				return c, fmt.Errorf("invalid --due (want YYYY-MM-DD): %w", err)
			}
			c.DueDate = &due
		}
	}
	if set("budget") {
		c.Budget = &f.budget
	}
	if set("unread") {
		c.UnreadMessages = &f.unread
	}
	if set("m-score") {
		c.MScore = &f.mScore
	}
	if set("s-score") {
		c.SScore = &f.sScore
	}
	if set("needs-evaluation") {
		c.NeedsEvaluation = &f.evaluate
	}
	if set("tags") {
		c.Tags = f.tags
	}
	return c, nil
}

func bindProjectFlags(cmd *cobra.Command, f *projectFlags) {
	cmd.Flags().StringVar(&f.description, "description", "", "project brief")
	cmd.Flags().StringVar(&f.status, "status", "", "project status")
	cmd.Flags().StringVar(&f.contractor, "contractor", "", "assigned contractor user ID")
	cmd.Flags().StringVar(&f.due, "due", "", "due date (YYYY-MM-DD, or none to clear)")
	cmd.Flags().Int64Var(&f.budget, "budget", 0, "budget in points")
	cmd.Flags().IntVar(&f.unread, "unread", 0, "unread message count")
	cmd.Flags().IntVar(&f.mScore, "m-score", 0, "contract clarity score (0-100)")
	cmd.Flags().IntVar(&f.sScore, "s-score", 0, "payment safety score (0-100)")
	cmd.Flags().BoolVar(&f.evaluate, "needs-evaluation", false, "completed but not yet rated")
	cmd.Flags().StringSliceVar(&f.tags, "tags", nil, "comma-separated tags")
}

func init() {
	bindProjectFlags(addCmd, &addFlags)
}
