// Package app wires escrowly's storage, event and engine dependencies into
// ready-to-use handlers.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/escrowly/internal/engine/builtin"
	"github.com/felixgeelhaar/escrowly/internal/engine/registry"
	"github.com/felixgeelhaar/escrowly/internal/engine/runtime"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/commands"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/queries"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/services"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/infrastructure/persistence"
	sharedApplication "github.com/felixgeelhaar/escrowly/internal/shared/application"
	"github.com/felixgeelhaar/escrowly/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/escrowly/internal/shared/infrastructure/database/postgres"
	_ "github.com/felixgeelhaar/escrowly/internal/shared/infrastructure/database/sqlite" // Register SQLite driver
	"github.com/felixgeelhaar/escrowly/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/escrowly/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/escrowly/pkg/config"
	"github.com/felixgeelhaar/escrowly/pkg/observability"
)

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Storage
	DBConn      database.Connection
	RedisClient *redis.Client
	Projects    domain.ProjectRepository
	Ledger      domain.Ledger
	UnitOfWork  sharedApplication.UnitOfWork

	// Events. Bus is set only when no broker is configured.
	Publisher eventbus.Publisher
	Bus       *eventbus.InProcessEventBus

	// Priority engines
	EngineRegistry *registry.Registry
	Executor       *runtime.Executor
	EngineID       string

	Chain  *services.SimulatedChain
	Health *observability.HealthRegistry

	// Query handlers
	GetTopTaskHandler       *queries.GetTopTaskHandler
	ListRankedHandler       *queries.ListRankedHandler
	ExplainPriorityHandler  *queries.ExplainPriorityHandler
	ListProjectsHandler     *queries.ListProjectsHandler
	GetProjectHandler       *queries.GetProjectHandler
	GetBalanceHandler       *queries.GetBalanceHandler
	ListTransactionsHandler *queries.ListTransactionsHandler

	// Command handlers
	SaveProjectHandler       *commands.SaveProjectHandler
	RecordTransactionHandler *commands.RecordTransactionHandler
	SeedDemoDataHandler      *commands.SeedDemoDataHandler
}

// NewContainer opens storage, applies migrations and builds every handler.
// On error, anything already opened is closed.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *Container, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		Config:   cfg,
		Logger:   logger,
		EngineID: cfg.PriorityEngineID,
		Health:   observability.NewHealthRegistry(),
	}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	if err = c.openDatabase(ctx); err != nil {
		return nil, err
	}
	if err = c.openLedger(ctx); err != nil {
		return nil, err
	}
	if err = c.openPublisher(); err != nil {
		return nil, err
	}
	if err = c.startEngines(); err != nil {
		return nil, err
	}

	c.Chain = services.NewSimulatedChain(cfg.TxConfirmDelay, logger)

	c.GetTopTaskHandler = queries.NewGetTopTaskHandler(c.Projects, c.Executor, c.EngineID, c.Publisher, logger)
	c.ListRankedHandler = queries.NewListRankedHandler(c.Projects, c.Executor, c.EngineID)
	c.ExplainPriorityHandler = queries.NewExplainPriorityHandler(c.Projects, c.Executor, c.EngineID)
	c.ListProjectsHandler = queries.NewListProjectsHandler(c.Projects)
	c.GetProjectHandler = queries.NewGetProjectHandler(c.Projects)
	c.GetBalanceHandler = queries.NewGetBalanceHandler(c.Ledger)
	c.ListTransactionsHandler = queries.NewListTransactionsHandler(c.Ledger)

	c.SaveProjectHandler = commands.NewSaveProjectHandler(c.Projects, c.UnitOfWork, c.Publisher, logger)
	c.RecordTransactionHandler = commands.NewRecordTransactionHandler(c.Ledger, c.Projects, c.Chain, c.UnitOfWork, c.Publisher, logger)
	c.SeedDemoDataHandler = commands.NewSeedDemoDataHandler(c.Projects, c.Ledger, c.UnitOfWork)

	logger.Info("container ready",
		"driver", c.DBConn.Driver(),
		"ledger", cfg.LedgerBackend,
		"engine", c.EngineID,
		"broker", c.Bus == nil,
	)
	return c, nil
}

func (c *Container) openDatabase(ctx context.Context) error {
	dbCfg := database.Config{
		Driver:     database.DetectDriver(c.Config.DatabaseURL),
		URL:        c.Config.DatabaseURL,
		SQLitePath: c.Config.SQLitePath,
	}
	conn, err := database.NewConnection(ctx, dbCfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	c.DBConn = conn
	c.Health.Register("database", observability.PingChecker("database", true, conn.Ping))

	if err := migrations.Run(ctx, conn); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	c.UnitOfWork = database.NewUnitOfWork(conn)

	switch conn.Driver() {
	case database.DriverPostgres:
		pg, ok := conn.(*postgres.Connection)
		if !ok {
			return fmt.Errorf("postgres driver returned %T", conn)
		}
		c.Projects = persistence.NewPostgresProjectRepository(pg.Pool())
	default:
		c.Projects = persistence.NewSQLiteProjectRepository(conn)
	}
	return nil
}

func (c *Container) openLedger(ctx context.Context) error {
	if c.Config.RedisURL != "" {
		opts, err := redis.ParseURL(c.Config.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		c.RedisClient = redis.NewClient(opts)
		required := c.Config.LedgerBackend == config.LedgerRedis
		c.Health.Register("redis", observability.PingChecker("redis", required, func(ctx context.Context) error {
			return c.RedisClient.Ping(ctx).Err()
		}))
	}

	switch c.Config.LedgerBackend {
	case config.LedgerMemory:
		c.Ledger = persistence.NewMemoryLedger()
	case config.LedgerRedis:
		if c.RedisClient == nil {
			return fmt.Errorf("redis ledger requires REDIS_URL")
		}
		if err := c.RedisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		c.Ledger = persistence.NewRedisLedger(c.RedisClient)
	default:
		c.Ledger = persistence.NewSQLLedger(c.DBConn)
	}
	return nil
}

func (c *Container) openPublisher() error {
	if c.Config.RabbitMQURL == "" {
		c.Bus = eventbus.NewInProcessEventBus(c.Logger)
		c.Publisher = c.Bus
		return nil
	}
	pub, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}
	c.Publisher = pub
	c.Health.Register("rabbitmq", observability.PingChecker("rabbitmq", false, pub.Ping))
	return nil
}

func (c *Container) startEngines() error {
	c.EngineRegistry = registry.NewRegistry(c.Logger)
	if err := c.EngineRegistry.RegisterBuiltin(builtin.NewEscrowPriorityEngine()); err != nil {
		return fmt.Errorf("register priority engine: %w", err)
	}
	if !c.EngineRegistry.Has(c.EngineID) {
		return fmt.Errorf("unknown PRIORITY_ENGINE_ID %q", c.EngineID)
	}
	c.Executor = runtime.NewExecutor(c.EngineRegistry, runtime.NewMetricsCollector(), c.Logger, runtime.DefaultExecutorConfig())
	c.Health.Register("engine", func(ctx context.Context) observability.HealthCheckResult {
		status, err := c.Executor.HealthCheck(ctx, c.EngineID)
		if err != nil || !status.Healthy {
			msg := "engine unhealthy"
			if err != nil {
				msg = err.Error()
			} else if status.Message != "" {
				msg = status.Message
			}
			return observability.HealthCheckResult{Status: observability.HealthStatusUnhealthy, Message: msg}
		}
		return observability.HealthCheckResult{Status: observability.HealthStatusHealthy}
	})
	return nil
}

// Viewer returns the configured user and role as a query viewer.
func (c *Container) Viewer() queries.ViewerQuery {
	return queries.ViewerQuery{ViewerID: c.Config.ViewerID(), Role: domain.Role(c.Config.Role)}
}

// Close releases every connection the container opened.
func (c *Container) Close() {
	if c.EngineRegistry != nil {
		if err := c.EngineRegistry.ShutdownAll(context.Background()); err != nil {
			c.Logger.Warn("engine shutdown", "error", err)
		}
	}
	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			c.Logger.Warn("close publisher", "error", err)
		}
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("close redis", "error", err)
		}
	}
	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Warn("close database", "error", err)
		}
	}
}
