// Package queries provides the read-side handlers for the marketplace.
package queries

import (
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/escrowly/internal/engine/types"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
)

// ProjectDTO is the transport form of a project.
type ProjectDTO struct {
	ID              uuid.UUID          `json:"id"`
	Title           string             `json:"title"`
	Description     string             `json:"description,omitempty"`
	ClientID        uuid.UUID          `json:"client_id"`
	ContractorID    *uuid.UUID         `json:"contractor_id,omitempty"`
	Status          string             `json:"status"`
	DueDate         *time.Time         `json:"due_date,omitempty"`
	Budget          int64              `json:"budget"`
	UnreadMessages  int                `json:"unread_messages"`
	MScore          *int               `json:"m_score,omitempty"`
	SScore          *int               `json:"s_score,omitempty"`
	ProposalCount   int                `json:"proposal_count"`
	Milestones      []domain.Milestone `json:"milestones"`
	PostedAt        *time.Time         `json:"posted_at,omitempty"`
	NeedsEvaluation bool               `json:"needs_evaluation"`
	Tags            []string           `json:"tags"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// ToProjectDTO converts a project for transport.
func ToProjectDTO(p *domain.Project) ProjectDTO {
	dto := ProjectDTO{
		ID:              p.ID,
		Title:           p.Title,
		Description:     p.Description,
		ClientID:        p.ClientID,
		Status:          p.Status.String(),
		DueDate:         p.DueDate,
		Budget:          p.Budget,
		UnreadMessages:  p.UnreadMessages,
		MScore:          p.MScore,
		SScore:          p.SScore,
		ProposalCount:   p.ProposalCount(),
		Milestones:      p.Milestones,
		PostedAt:        p.PostedAt,
		NeedsEvaluation: p.NeedsEvaluation,
		Tags:            p.Tags,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if p.ContractorID != uuid.Nil {
		id := p.ContractorID
		dto.ContractorID = &id
	}
	if dto.Milestones == nil {
		dto.Milestones = []domain.Milestone{}
	}
	if dto.Tags == nil {
		dto.Tags = []string{}
	}
	return dto
}

// ToPriorityInput extracts the scoring signals of a project.
func ToPriorityInput(p *domain.Project) types.PriorityInput {
	return types.PriorityInput{
		ID:              p.ID,
		Title:           p.Title,
		Status:          p.Status.String(),
		DueDate:         p.DueDate,
		Budget:          p.Budget,
		UnreadMessages:  p.UnreadMessages,
		MScore:          p.MScore,
		SScore:          p.SScore,
		ProposalCount:   p.ProposalCount(),
		PostedAt:        p.PostedAt,
		NeedsEvaluation: p.NeedsEvaluation,
	}
}

// RankedProjectDTO pairs a project with its computed priority.
type RankedProjectDTO struct {
	Project  ProjectDTO           `json:"project"`
	Priority types.PriorityOutput `json:"priority"`
}
