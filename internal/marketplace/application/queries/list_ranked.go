package queries

import (
	"context"

	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
)

// ListRankedQuery lists every project visible to the viewer by priority.
type ListRankedQuery struct {
	ViewerQuery
	// Limit caps the result (0 = all).
	Limit int
}

// ListRankedHandler ranks projects through the priority engine.
type ListRankedHandler struct {
	repo     domain.ProjectRepository
	executor PriorityExecutor
	engineID string
}

// NewListRankedHandler creates the handler.
func NewListRankedHandler(repo domain.ProjectRepository, executor PriorityExecutor, engineID string) *ListRankedHandler {
	return &ListRankedHandler{repo: repo, executor: executor, engineID: engineID}
}

// Handle returns the ranked list, highest priority first.
func (h *ListRankedHandler) Handle(ctx context.Context, q ListRankedQuery) ([]RankedProjectDTO, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	projects, inputs, err := viewerProjects(ctx, h.repo, q.ViewerQuery)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return []RankedProjectDTO{}, nil
	}
	outputs, err := h.executor.ExecuteBatchPriority(ctx, h.engineID, q.viewer(), inputs)
	if err != nil {
		return nil, err
	}

	idx := indexByID(projects)
	ranked := make([]RankedProjectDTO, 0, len(outputs))
	for _, out := range outputs {
		p, ok := idx[out.ID]
		if !ok {
			continue
		}
		ranked = append(ranked, RankedProjectDTO{Project: ToProjectDTO(p), Priority: out})
		if q.Limit > 0 && len(ranked) == q.Limit {
			break
		}
	}
	return ranked, nil
}
