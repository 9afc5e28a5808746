package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/escrowly/internal/shared/infrastructure/eventbus"
)

var watchKeys []string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect domain events",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Tail events from the RabbitMQ exchange",
	Long: `Bind a temporary queue to the escrowly exchange and print every event
until interrupted. Requires RABBITMQ_URL.

Examples:
  escrowly events watch
  escrowly events watch --key escrow.transaction.confirmed`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := GetApp()
		if err != nil {
			return err
		}
		if app.RabbitMQURL == "" {
			return errors.New("events watch requires RABBITMQ_URL")
		}

		consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
			URL:       app.RabbitMQURL,
			Exclusive: true,
			Logger:    logger,
		}, eventbus.NewConsumerRegistry(logger))
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer consumer.Close()

		out := cmd.OutOrStdout()
		err = consumer.Subscribe(eventbus.ConsumerFunc{
			Types: watchKeys,
			Fn: func(_ context.Context, e *eventbus.ConsumedEvent) error {
				if JSONOutput() {
					return WriteJSON(out, e)
				}
				fmt.Fprintf(out, "%s  %-32s %s %s\n",
					e.OccurredAt.Local().Format("15:04:05"),
					e.RoutingKey,
					e.AggregateType,
					mutedStyle.Render(string(e.Payload)),
				)
				return nil
			},
		})
		if err != nil {
			return err
		}

		fmt.Fprintln(out, mutedStyle.Render("watching events, ctrl-c to stop"))
		if err := consumer.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	eventsWatchCmd.Flags().StringSliceVar(&watchKeys, "key", []string{eventbus.Wildcard}, "routing keys to bind")
	eventsCmd.AddCommand(eventsWatchCmd)
	rootCmd.AddCommand(eventsCmd)
}
