package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/commands"
)

// demoContractorID is the counterpart assigned to seeded contracts.
var demoContractorID = uuid.MustParse("00000000-0000-0000-0000-0000000000c0")

var (
	seedContractor string
	seedBalance    int64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo projects and points",
	Long: `Load a demo marketplace for the current user: projects in every status,
a contractor on the contracted ones, and an opening points balance.

Seeding is skipped when the user already has projects.

Examples:
  escrowly seed
  escrowly seed --balance 0
  escrowly seed --contractor 3f0c...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetApp()
		if err != nil {
			return err
		}
		viewer, err := app.Viewer()
		if err != nil {
			return err
		}
		contractor := demoContractorID
		if seedContractor != "" {
			if contractor, err = uuid.Parse(seedContractor); err != nil {
				return fmt.Errorf("invalid --contractor: %w", err)
			}
		}

		res, err := app.SeedDemoDataHandler.Handle(cmd.Context(), commands.SeedDemoDataCommand{
			ClientID:       viewer.ViewerID,
			ContractorID:   contractor,
			OpeningBalance: seedBalance,
		})
		if err != nil {
			return fmt.Errorf("failed to seed: %w", err)
		}

		out := cmd.OutOrStdout()
		if JSONOutput() {
			return WriteJSON(out, res)
		}
		if res.Skipped {
			fmt.Fprintln(out, "Demo data already present, nothing to do.")
			return nil
		}
		fmt.Fprintf(out, "Seeded %d project(s)", len(res.Projects))
		if res.Deposit != nil {
			fmt.Fprintf(out, " and %s pts", formatPoints(seedBalance))
		}
		fmt.Fprintln(out, ".")
		fmt.Fprintf(out, "Contractor: %s\n", contractor)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedContractor, "contractor", "", "contractor user ID for seeded contracts")
	seedCmd.Flags().Int64Var(&seedBalance, "balance", 200000, "opening points balance (0 to skip)")
	rootCmd.AddCommand(seedCmd)
}
