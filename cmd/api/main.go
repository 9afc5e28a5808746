package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/felixgeelhaar/escrowly/adapter/api"
	"github.com/felixgeelhaar/escrowly/internal/app"
	"github.com/felixgeelhaar/escrowly/pkg/config"
	"github.com/felixgeelhaar/escrowly/pkg/observability"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := observability.LoggerFromEnv("escrowly-api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	if cfg.APIJWTSecret == "" {
		if cfg.IsProduction() {
			logger.Error("API_JWT_SECRET is required in production")
			os.Exit(1)
		}
		logger.Warn("API_JWT_SECRET not set; every request acts as the configured user", "user_id", cfg.UserID)
	}

	serverCfg := api.DefaultServerConfig()
	serverCfg.Addr = cfg.APIAddr
	serverCfg.CORSOrigins = cfg.APICORSOrigins

	handler := api.NewEscrowHandler(api.EscrowHandlerConfigFrom(container))
	auth := api.NewAuthenticator(cfg.APIJWTSecret, container.Viewer())
	server := api.NewServer(serverCfg, handler, auth, container.Health, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("api shutdown failed", "error", err)
		}
	}
}
