package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/escrowly/pkg/observability"
)

var (
	userFlag string
	roleFlag string
	jsonOut  bool
	logger   *slog.Logger
)

type commandContext struct {
	correlationID string
	startedAt     time.Time
}

type commandContextKey struct{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "escrowly",
	Short: "escrowly - what to do next in your escrow projects",
	Long: `escrowly ranks your marketplace projects by urgency so the one that
needs you most is always on top: overdue deliveries, funded escrow waiting
to start, unread messages and fresh listings.

Points move through a simulated wallet; nothing touches a real chain.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if logger == nil {
			logger = slog.Default()
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx = observability.WithCorrelationID(ctx, "")
		info := commandContext{
			correlationID: observability.CorrelationIDFromContext(ctx),
			startedAt:     time.Now(),
		}
		cmd.SetContext(context.WithValue(ctx, commandContextKey{}, info))
		logger.DebugContext(ctx, "command start", "command", cmd.CommandPath())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger == nil {
			logger = slog.Default()
		}
		info, ok := cmd.Context().Value(commandContextKey{}).(commandContext)
		if !ok {
			return
		}
		logger.DebugContext(cmd.Context(), "command end",
			"command", cmd.CommandPath(),
			observability.DurationKey, time.Since(info.startedAt).Milliseconds(),
		)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "act as this user ID (default ESCROWLY_USER_ID)")
	rootCmd.PersistentFlags().StringVar(&roleFlag, "role", "", "view as client or contractor (default ESCROWLY_ROLE)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "print JSON instead of styled output")
}

// AddCommand adds a command to the root command.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

// SetLogger sets the CLI logger.
func SetLogger(l *slog.Logger) {
	logger = l
}

// JSONOutput reports whether --json was given.
func JSONOutput() bool {
	return jsonOut
}

// SetJSONOutput overrides --json; tests use it.
func SetJSONOutput(v bool) {
	jsonOut = v
}

// viewerOverrides applies --user and --role on top of the configured viewer.
func viewerOverrides(userID uuid.UUID, role string) (uuid.UUID, string, error) {
	if userFlag != "" {
		id, err := uuid.Parse(userFlag)
		if err != nil {
			return uuid.Nil, "", fmt.Errorf("invalid --user: %w", err)
		}
		userID = id
	}
	if roleFlag != "" {
		role = roleFlag
	}
	return userID, role, nil
}
