package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/escrowly/adapter/cli"
	"github.com/felixgeelhaar/escrowly/adapter/cli/points"
	"github.com/felixgeelhaar/escrowly/adapter/cli/priority"
	"github.com/felixgeelhaar/escrowly/adapter/cli/project"
	"github.com/felixgeelhaar/escrowly/internal/app"
	"github.com/felixgeelhaar/escrowly/pkg/config"
	"github.com/felixgeelhaar/escrowly/pkg/observability"
)

func main() {
	logger := observability.LoggerFromEnv("escrowly-cli")
	cli.SetLogger(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Commands that need storage report ErrNotInitialized when this fails,
	// so version and help still work.
	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Warn("failed to initialize container, running in limited mode", "error", err)
	} else {
		defer container.Close()
		logger.Debug("container ready", "local_mode", cfg.LocalMode(), "engine", cfg.PriorityEngineID)
		cli.SetApp(cli.NewApp(container))
	}

	cli.AddCommand(priority.Cmd)
	cli.AddCommand(project.Cmd)
	cli.AddCommand(points.Cmd)

	cli.Execute(ctx)
}
