package mcp

import (
	"context"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/escrowly/internal/engine/types"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/queries"
)

type topInput struct {
	Role string `json:"role,omitempty"`
}

type rankInput struct {
	Role  string `json:"role,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

type explainInput struct {
	Role      string `json:"role,omitempty"`
	ProjectID string `json:"project_id" jsonschema:"required"`
}

// topTaskOutput wraps the optional top task so an empty result is explicit.
type topTaskOutput struct {
	Found bool                   `json:"found"`
	Task  *queries.TopTaskResult `json:"task,omitempty"`
}

func registerPriorityTools(srv *mcp.Server, t *toolset) {
	srv.Tool("priority.top").
		Description("Return the single most urgent project for the current viewer").
		Handler(t.top)

	srv.Tool("priority.rank").
		Description("List the viewer's projects ordered by priority score").
		Handler(t.rank)

	srv.Tool("priority.explain").
		Description("Break a project's priority score down into the rules that fired").
		Handler(t.explain)
}

func (t *toolset) top(ctx context.Context, in topInput) (*topTaskOutput, error) {
	if t.app.GetTopTaskHandler == nil {
		return nil, errNoDatabase
	}
	v, err := t.viewer(in.Role)
	if err != nil {
		return nil, err
	}
	result, err := t.app.GetTopTaskHandler.Handle(ctx, queries.GetTopTaskQuery{ViewerQuery: v})
	if err != nil {
		return nil, err
	}
	return &topTaskOutput{Found: result != nil, Task: result}, nil
}

func (t *toolset) rank(ctx context.Context, in rankInput) ([]queries.RankedProjectDTO, error) {
	if t.app.ListRankedHandler == nil {
		return nil, errNoDatabase
	}
	v, err := t.viewer(in.Role)
	if err != nil {
		return nil, err
	}
	return t.app.ListRankedHandler.Handle(ctx, queries.ListRankedQuery{ViewerQuery: v, Limit: in.Limit})
}

func (t *toolset) explain(ctx context.Context, in explainInput) (*types.PriorityExplanation, error) {
	if t.app.ExplainPriorityHandler == nil {
		return nil, errNoDatabase
	}
	v, err := t.viewer(in.Role)
	if err != nil {
		return nil, err
	}
	id, err := parseUUID(in.ProjectID)
	if err != nil {
		return nil, err
	}
	return t.app.ExplainPriorityHandler.Handle(ctx, queries.ExplainPriorityQuery{ViewerQuery: v, ProjectID: id})
}
