package points

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/escrowly/adapter/cli"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/commands"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
)

var depositCmd = &cobra.Command{
	Use:   "deposit <amount>",
	Short: "Add points to your wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		return record(cmd, domain.TxDeposit, uuid.Nil, amount)
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <amount>",
	Short: "Take points out of your wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		amount, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		return record(cmd, domain.TxWithdraw, uuid.Nil, amount)
	},
}

var fundCmd = &cobra.Command{
	Use:   "fund <project-id> [amount]",
	Short: "Escrow points for a project",
	Long: `Move points into escrow for a project and mark it ready for work.
The amount defaults to the project budget.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.GetApp()
		if err != nil {
			return err
		}
		projectID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid project ID: %w", err)
		}

		var amount int64
		if len(args) == 2 {
			if amount, err = parseAmount(args[1]); err != nil {
				return err
			}
		} else {
			p, err := app.GetProjectHandler.Handle(cmd.Context(), projectID)
			if err != nil {
				return fmt.Errorf("failed to get project: %w", err)
			}
			amount = p.Budget
		}
		return record(cmd, domain.TxEscrowFund, projectID, amount)
	},
}

func record(cmd *cobra.Command, txType domain.TransactionType, projectID uuid.UUID, amount int64) error {
	app, err := cli.GetApp()
	if err != nil {
		return err
	}
	viewer, err := app.Viewer()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !cli.JSONOutput() {
		fmt.Fprintln(out, "Waiting for confirmation...")
	}
	tx, err := app.RecordTransactionHandler.Handle(cmd.Context(), commands.RecordTransactionCommand{
		UserID:    viewer.ViewerID,
		ProjectID: projectID,
		Type:      txType,
		Amount:    amount,
	})
	if err != nil {
		return fmt.Errorf("%s failed: %w", txType, err)
	}
	if cli.JSONOutput() {
		return cli.WriteJSON(out, tx)
	}
	fmt.Fprintf(out, "Confirmed %s of %d pts\n", tx.Type, tx.Amount)
	fmt.Fprintf(out, "  tx: %s\n", tx.TxHash)
	return nil
}

func parseAmount(raw string) (int64, error) {
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || amount <= 0 {
		return 0, fmt.Errorf("amount must be a positive whole number, got %q", raw)
	}
	return amount, nil
}
