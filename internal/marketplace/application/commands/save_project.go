// Package commands provides the write-side handlers for the marketplace.
package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
	"github.com/felixgeelhaar/escrowly/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/escrowly/internal/shared/domain"
	"github.com/felixgeelhaar/escrowly/internal/shared/infrastructure/eventbus"
)

// SaveProjectCommand creates a project (ID is uuid.Nil) or updates one.
// Nil pointer fields leave the stored value unchanged on update. Only the
// project's client or contractor may update it.
type SaveProjectCommand struct {
	ID       uuid.UUID
	ActorID  uuid.UUID
	ClientID uuid.UUID

	Title           *string
	Description     *string
	Status          *string
	ContractorID    *uuid.UUID
	DueDate         *time.Time
	ClearDueDate    bool
	Budget          *int64
	UnreadMessages  *int
	MScore          *int
	SScore          *int
	NeedsEvaluation *bool
	Tags            []string
}

// SaveProjectHandler validates and persists projects.
type SaveProjectHandler struct {
	repo      domain.ProjectRepository
	uow       application.UnitOfWork
	publisher eventbus.Publisher
	logger    *slog.Logger
}

// NewSaveProjectHandler creates the handler. uow and publisher may be nil.
func NewSaveProjectHandler(repo domain.ProjectRepository, uow application.UnitOfWork, publisher eventbus.Publisher, logger *slog.Logger) *SaveProjectHandler {
	if publisher == nil {
		publisher = eventbus.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SaveProjectHandler{repo: repo, uow: uow, publisher: publisher, logger: logger}
}

// Handle executes the command and returns the saved project.
func (h *SaveProjectHandler) Handle(ctx context.Context, cmd SaveProjectCommand) (*domain.Project, error) {
	var saved *domain.Project
	err := application.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		p, err := h.load(txCtx, cmd)
		if err != nil {
			return err
		}
		if err := apply(p, cmd); err != nil {
			return err
		}
		if err := p.Validate(); err != nil {
			return err
		}
		if err := h.repo.Save(txCtx, p); err != nil {
			return err
		}
		saved = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	ev := domain.NewProjectSaved(saved)
	application.ApplyEventMetadata([]sharedDomain.DomainEvent{&ev}, application.NewEventMetadata(cmd.ActorID))
	if err := eventbus.PublishEvents(ctx, h.publisher, &ev); err != nil {
		h.logger.Warn("project saved event not published", "project_id", saved.ID, "error", err)
	}
	return saved, nil
}

func (h *SaveProjectHandler) load(ctx context.Context, cmd SaveProjectCommand) (*domain.Project, error) {
	if cmd.ID != uuid.Nil {
		p, err := h.repo.FindByID(ctx, cmd.ID)
		if err != nil {
			return nil, err
		}
		if !p.HasParticipant(cmd.ActorID) {
			return nil, domain.ErrNotParticipant
		}
		return p, nil
	}
	title := ""
	if cmd.Title != nil {
		title = *cmd.Title
	}
	var budget int64
	if cmd.Budget != nil {
		budget = *cmd.Budget
	}
	clientID := cmd.ClientID
	if clientID == uuid.Nil {
		clientID = cmd.ActorID
	}
	return domain.NewProject(clientID, title, budget)
}

func apply(p *domain.Project, cmd SaveProjectCommand) error {
	if cmd.Title != nil {
		p.Title = strings.TrimSpace(*cmd.Title)
	}
	if cmd.Description != nil {
		p.Description = *cmd.Description
	}
	if cmd.Status != nil {
		status, err := domain.ParseStatus(*cmd.Status)
		if err != nil {
			return err
		}
		p.Status = status
	}
	if cmd.ContractorID != nil {
		p.ContractorID = *cmd.ContractorID
	}
	if cmd.ClearDueDate {
		p.DueDate = nil
	} else if cmd.DueDate != nil {
		due := cmd.DueDate.UTC()
		p.DueDate = &due
	}
	if cmd.Budget != nil {
		p.Budget = *cmd.Budget
	}
	if cmd.UnreadMessages != nil {
		p.UnreadMessages = *cmd.UnreadMessages
	}
	if cmd.MScore != nil {
		v := *cmd.MScore
		p.MScore = &v
	}
	if cmd.SScore != nil {
		v := *cmd.SScore
		p.SScore = &v
	}
	if cmd.NeedsEvaluation != nil {
		p.NeedsEvaluation = *cmd.NeedsEvaluation
	}
	if cmd.Tags != nil {
		p.Tags = append([]string{}, cmd.Tags...)
	}
	p.Touch()
	return nil
}
