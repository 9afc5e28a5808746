package points

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/escrowly/adapter/cli"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/queries"
)

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show your points balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.GetApp()
		if err != nil {
			return err
		}
		viewer, err := app.Viewer()
		if err != nil {
			return err
		}

		res, err := app.GetBalanceHandler.Handle(cmd.Context(), viewer.ViewerID)
		if err != nil {
			return fmt.Errorf("failed to read balance: %w", err)
		}
		if cli.JSONOutput() {
			return cli.WriteJSON(cmd.OutOrStdout(), res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Balance: %d pts\n", res.Balance)
		return nil
	},
}

var (
	historyNewest bool
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List your ledger entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.GetApp()
		if err != nil {
			return err
		}
		viewer, err := app.Viewer()
		if err != nil {
			return err
		}

		txs, err := app.ListTransactionsHandler.Handle(cmd.Context(), queries.ListTransactionsQuery{
			UserID:      viewer.ViewerID,
			NewestFirst: historyNewest,
			Limit:       historyLimit,
		})
		if err != nil {
			return fmt.Errorf("failed to list transactions: %w", err)
		}
		if cli.JSONOutput() {
			return cli.WriteJSON(cmd.OutOrStdout(), txs)
		}
		cli.RenderTransactions(cmd.OutOrStdout(), txs)
		return nil
	},
}

func init() {
	historyCmd.Flags().BoolVar(&historyNewest, "newest", true, "newest entries first")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "maximum number of entries (0 = all)")
}
