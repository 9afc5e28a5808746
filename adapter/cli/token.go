package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/escrowly/adapter/api"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token for the current user and role",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetApp()
		if err != nil {
			return err
		}
		if app.APIJWTSecret == "" {
			return errors.New("API_JWT_SECRET is not set")
		}
		if tokenTTL <= 0 {
			return errors.New("--ttl must be positive")
		}

		viewer, err := app.Viewer()
		if err != nil {
			return err
		}
		token, err := api.IssueToken(app.APIJWTSecret, viewer, tokenTTL)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
