package queries

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/escrowly/internal/engine/types"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
)

// PriorityExecutor runs priority engine operations. runtime.Executor
// implements it with circuit breaking and metrics.
type PriorityExecutor interface {
	ExecuteBatchPriority(ctx context.Context, engineID string, viewer types.Viewer, inputs []types.PriorityInput) ([]types.PriorityOutput, error)
	ExecuteSelectTop(ctx context.Context, engineID string, viewer types.Viewer, inputs []types.PriorityInput) (*types.PriorityOutput, error)
	ExecuteExplain(ctx context.Context, engineID string, viewer types.Viewer, input types.PriorityInput) (*types.PriorityExplanation, error)
}

// ViewerQuery identifies who a priority view is computed for.
type ViewerQuery struct {
	ViewerID uuid.UUID
	Role     domain.Role
}

func (q ViewerQuery) viewer() types.Viewer {
	return types.Viewer{Role: q.Role.String(), ID: q.ViewerID}
}

func (q ViewerQuery) validate() error {
	if !q.Role.IsValid() {
		return domain.ErrInvalidRole
	}
	return nil
}

// viewerProjects loads the projects a viewer can act on: their own as client
// or contractor and, for contractors, open listings they could bid on.
func viewerProjects(ctx context.Context, repo domain.ProjectRepository, q ViewerQuery) ([]*domain.Project, []types.PriorityInput, error) {
	projects, err := repo.FindByParticipant(ctx, q.ViewerID, q.Role == domain.RoleContractor)
	if err != nil {
		return nil, nil, fmt.Errorf("load projects: %w", err)
	}
	inputs := make([]types.PriorityInput, len(projects))
	for i, p := range projects {
		inputs[i] = ToPriorityInput(p)
	}
	return projects, inputs, nil
}

func indexByID(projects []*domain.Project) map[uuid.UUID]*domain.Project {
	idx := make(map[uuid.UUID]*domain.Project, len(projects))
	for _, p := range projects {
		idx[p.ID] = p
	}
	return idx
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
