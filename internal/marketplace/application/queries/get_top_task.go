package queries

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/escrowly/internal/engine/types"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
	"github.com/felixgeelhaar/escrowly/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/escrowly/internal/shared/domain"
	"github.com/felixgeelhaar/escrowly/internal/shared/infrastructure/eventbus"
)

// GetTopTaskQuery asks for the viewer's single most urgent project.
type GetTopTaskQuery struct {
	ViewerQuery
}

// TopTaskResult is the selected project with its priority. Handle returns a
// nil result when the viewer has nothing actionable.
type TopTaskResult struct {
	Project  ProjectDTO           `json:"project"`
	Priority types.PriorityOutput `json:"priority"`
}

// GetTopTaskHandler selects the top task through the priority engine.
type GetTopTaskHandler struct {
	repo      domain.ProjectRepository
	executor  PriorityExecutor
	engineID  string
	publisher eventbus.Publisher
	logger    *slog.Logger
}

// NewGetTopTaskHandler creates the handler. publisher may be nil.
func NewGetTopTaskHandler(repo domain.ProjectRepository, executor PriorityExecutor, engineID string, publisher eventbus.Publisher, logger *slog.Logger) *GetTopTaskHandler {
	if publisher == nil {
		publisher = eventbus.NoopPublisher{}
	}
	return &GetTopTaskHandler{
		repo:      repo,
		executor:  executor,
		engineID:  engineID,
		publisher: publisher,
		logger:    loggerOrDefault(logger),
	}
}

// Handle executes the query.
func (h *GetTopTaskHandler) Handle(ctx context.Context, q GetTopTaskQuery) (*TopTaskResult, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	projects, inputs, err := viewerProjects(ctx, h.repo, q.ViewerQuery)
	if err != nil {
		return nil, err
	}
	top, err := h.executor.ExecuteSelectTop(ctx, h.engineID, q.viewer(), inputs)
	if err != nil {
		return nil, err
	}
	if top == nil {
		return nil, nil
	}
	p, ok := indexByID(projects)[top.ID]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}

	ev := domain.NewTopTaskSelected(p.ID, q.ViewerID, q.Role, top.Score, string(top.Urgency))
	application.ApplyEventMetadata([]sharedDomain.DomainEvent{&ev}, application.NewEventMetadata(q.ViewerID))
	if err := eventbus.PublishEvents(ctx, h.publisher, &ev); err != nil {
		h.logger.Warn("top task event not published", "project_id", p.ID, "error", err)
	}

	return &TopTaskResult{Project: ToProjectDTO(p), Priority: *top}, nil
}
