package queries

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/escrowly/internal/engine/types"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
)

// ExplainPriorityQuery asks for the rule breakdown of one project.
type ExplainPriorityQuery struct {
	ViewerQuery
	ProjectID uuid.UUID
}

// ExplainPriorityHandler explains a project's score.
type ExplainPriorityHandler struct {
	repo     domain.ProjectRepository
	executor PriorityExecutor
	engineID string
}

// NewExplainPriorityHandler creates the handler.
func NewExplainPriorityHandler(repo domain.ProjectRepository, executor PriorityExecutor, engineID string) *ExplainPriorityHandler {
	return &ExplainPriorityHandler{repo: repo, executor: executor, engineID: engineID}
}

// Handle returns the explanation or domain.ErrProjectNotFound. Projects the
// viewer could not rank are reported as not found.
func (h *ExplainPriorityHandler) Handle(ctx context.Context, q ExplainPriorityQuery) (*types.PriorityExplanation, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	p, err := h.repo.FindByID(ctx, q.ProjectID)
	if err != nil {
		return nil, err
	}
	if !p.VisibleTo(q.ViewerID, q.Role) {
		return nil, domain.ErrProjectNotFound
	}
	return h.executor.ExecuteExplain(ctx, h.engineID, q.viewer(), ToPriorityInput(p))
}
