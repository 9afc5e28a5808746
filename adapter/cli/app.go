package cli

import (
	"errors"

	"github.com/google/uuid"

	internalApp "github.com/felixgeelhaar/escrowly/internal/app"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/commands"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/queries"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
)

// ErrNotInitialized is returned by commands run without a container.
var ErrNotInitialized = errors.New("application not initialized - database connection required")

// App holds the CLI application dependencies.
type App struct {
	GetTopTaskHandler       *queries.GetTopTaskHandler
	ListRankedHandler       *queries.ListRankedHandler
	ExplainPriorityHandler  *queries.ExplainPriorityHandler
	ListProjectsHandler     *queries.ListProjectsHandler
	GetProjectHandler       *queries.GetProjectHandler
	GetBalanceHandler       *queries.GetBalanceHandler
	ListTransactionsHandler *queries.ListTransactionsHandler

	SaveProjectHandler       *commands.SaveProjectHandler
	RecordTransactionHandler *commands.RecordTransactionHandler
	SeedDemoDataHandler      *commands.SeedDemoDataHandler

	// RabbitMQURL is empty when events stay in-process.
	RabbitMQURL string
	// APIJWTSecret signs tokens issued by the token command.
	APIJWTSecret string

	CurrentUserID uuid.UUID
	CurrentRole   domain.Role
}

// NewApp takes the handlers out of a wired container.
func NewApp(c *internalApp.Container) *App {
	viewer := c.Viewer()
	return &App{
		GetTopTaskHandler:        c.GetTopTaskHandler,
		ListRankedHandler:        c.ListRankedHandler,
		ExplainPriorityHandler:   c.ExplainPriorityHandler,
		ListProjectsHandler:      c.ListProjectsHandler,
		GetProjectHandler:        c.GetProjectHandler,
		GetBalanceHandler:        c.GetBalanceHandler,
		ListTransactionsHandler:  c.ListTransactionsHandler,
		SaveProjectHandler:       c.SaveProjectHandler,
		RecordTransactionHandler: c.RecordTransactionHandler,
		SeedDemoDataHandler:      c.SeedDemoDataHandler,
		RabbitMQURL:              c.Config.RabbitMQURL,
		APIJWTSecret:             c.Config.APIJWTSecret,
		CurrentUserID:            viewer.ViewerID,
		CurrentRole:              viewer.Role,
	}
}

// Viewer returns the current viewer with --user and --role applied.
func (a *App) Viewer() (queries.ViewerQuery, error) {
	id, role, err := viewerOverrides(a.CurrentUserID, a.CurrentRole.String())
	if err != nil {
		return queries.ViewerQuery{}, err
	}
	r, err := domain.ParseRole(role)
	if err != nil {
		return queries.ViewerQuery{}, err
	}
	return queries.ViewerQuery{ViewerID: id, Role: r}, nil
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance, or ErrNotInitialized.
func GetApp() (*App, error) {
	if app == nil {
		return nil, ErrNotInitialized
	}
	return app, nil
}
