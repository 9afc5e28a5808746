package queries

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
)

// ListProjectsQuery filters the project list. Status accepts any form
// NormalizeStatus understands.
type ListProjectsQuery struct {
	Status   string
	ClientID uuid.UUID
	Limit    int
}

// ListProjectsHandler lists projects.
type ListProjectsHandler struct {
	repo domain.ProjectRepository
}

// NewListProjectsHandler creates the handler.
func NewListProjectsHandler(repo domain.ProjectRepository) *ListProjectsHandler {
	return &ListProjectsHandler{repo: repo}
}

// Handle executes the query.
func (h *ListProjectsHandler) Handle(ctx context.Context, q ListProjectsQuery) ([]ProjectDTO, error) {
	filter := domain.ProjectFilter{ClientID: q.ClientID, Limit: q.Limit}
	if q.Status != "" {
		status, err := domain.ParseStatus(q.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}

	projects, err := h.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		out[i] = ToProjectDTO(p)
	}
	return out, nil
}

// GetProjectHandler loads one project.
type GetProjectHandler struct {
	repo domain.ProjectRepository
}

// NewGetProjectHandler creates the handler.
func NewGetProjectHandler(repo domain.ProjectRepository) *GetProjectHandler {
	return &GetProjectHandler{repo: repo}
}

// Handle returns the project or domain.ErrProjectNotFound.
func (h *GetProjectHandler) Handle(ctx context.Context, id uuid.UUID) (*ProjectDTO, error) {
	p, err := h.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := ToProjectDTO(p)
	return &dto, nil
}
