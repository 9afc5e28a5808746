package points

import "github.com/spf13/cobra"

// Cmd is the points command group.
var Cmd = &cobra.Command{
	Use:   "points",
	Short: "Move points through the simulated wallet",
	Long: `Deposit, withdraw and escrow points. Each transfer waits for a
simulated confirmation (TX_CONFIRM_DELAY) before it reaches the ledger.`,
}

func init() {
	Cmd.AddCommand(depositCmd)
	Cmd.AddCommand(withdrawCmd)
	Cmd.AddCommand(fundCmd)
	Cmd.AddCommand(balanceCmd)
	Cmd.AddCommand(historyCmd)
}
