package priority

import "github.com/spf13/cobra"

// Cmd is the priority command group.
var Cmd = &cobra.Command{
	Use:   "priority",
	Short: "See what needs your attention",
	Long: `Rank your projects by urgency. Scores are role-aware: pass --role
contractor to see the marketplace the way a contractor does.`,
}

func init() {
	Cmd.AddCommand(topCmd)
	Cmd.AddCommand(rankCmd)
	Cmd.AddCommand(explainCmd)
}
