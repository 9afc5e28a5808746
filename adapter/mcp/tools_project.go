package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/commands"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/queries"
)

type projectListInput struct {
	Status string `json:"status,omitempty"`
	Mine   bool   `json:"mine,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// projectSaveInput creates a project when ID is empty. On update only the
// fields that are set change.
type projectSaveInput struct {
	ID              string   `json:"id,omitempty"`
	Title           string   `json:"title,omitempty"`
	Description     string   `json:"description,omitempty"`
	Status          string   `json:"status,omitempty"`
	ContractorID    string   `json:"contractor_id,omitempty"`
	DueDate         string   `json:"due_date,omitempty"`
	ClearDueDate    bool     `json:"clear_due_date,omitempty"`
	Budget          *int64   `json:"budget,omitempty"`
	UnreadMessages  *int     `json:"unread_messages,omitempty"`
	MScore          *int     `json:"m_score,omitempty"`
	SScore          *int     `json:"s_score,omitempty"`
	NeedsEvaluation *bool    `json:"needs_evaluation,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

func registerProjectTools(srv *mcp.Server, t *toolset) {
	srv.Tool("project.list").
		Description("List marketplace projects, optionally filtered by status").
		Handler(t.listProjects)

	srv.Tool("project.save").
		Description("Create a project, or update the one named by id").
		Handler(t.saveProject)
}

func (t *toolset) listProjects(ctx context.Context, in projectListInput) ([]queries.ProjectDTO, error) {
	if t.app.ListProjectsHandler == nil {
		return nil, errNoDatabase
	}
	q := queries.ListProjectsQuery{Status: in.Status, Limit: in.Limit}
	if in.Mine {
		v, err := t.viewer("")
		if err != nil {
			return nil, err
		}
		q.ClientID = v.ViewerID
	}
	return t.app.ListProjectsHandler.Handle(ctx, q)
}

func (t *toolset) saveProject(ctx context.Context, in projectSaveInput) (*queries.ProjectDTO, error) {
	if t.app.SaveProjectHandler == nil {
		return nil, errNoDatabase
	}
	v, err := t.viewer("")
	if err != nil {
		return nil, err
	}

	id, err := parseOptionalUUID(in.ID)
	if err != nil {
		return nil, err
	}
	if id == uuid.Nil && in.Title == "" {
		return nil, errors.New("title is required")
	}

	cmd := commands.SaveProjectCommand{
		ID:              id,
		ActorID:         v.ViewerID,
		ClearDueDate:    in.ClearDueDate,
		Budget:          in.Budget,
		UnreadMessages:  in.UnreadMessages,
		MScore:          in.MScore,
		SScore:          in.SScore,
		NeedsEvaluation: in.NeedsEvaluation,
		Tags:            in.Tags,
	}
	if id == uuid.Nil {
		cmd.ClientID = v.ViewerID
	}
	if in.Title != "" {
		cmd.Title = &in.Title
	}
	if in.Description != "" {
		cmd.Description = &in.Description
	}
	if in.Status != "" {
		cmd.Status = &in.Status
	}
	if in.ContractorID != "" {
		contractor, err := parseUUID(in.ContractorID)
		if err != nil {
			return nil, err
		}
		cmd.ContractorID = &contractor
	}
	if in.DueDate != "" {
		due, err := parseDate(in.DueDate)
		if err != nil {
			return nil, err
		}
		cmd.DueDate = &due
	}

	project, err := t.app.SaveProjectHandler.Handle(ctx, cmd)
	if err != nil {
		return nil, err
	}
	dto := queries.ToProjectDTO(project)
	return &dto, nil
}
