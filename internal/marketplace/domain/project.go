// Package domain provides the core entities for the escrow marketplace.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Project is a client's listing and, once contracted, the work tracked against it.
// Optional signals are pointers or zero values; consumers treat a missing value as
// "not evaluated" rather than as an error.
type Project struct {
	// ID is the unique identifier for this project.
	ID uuid.UUID

	// Title is the listing headline.
	Title string

	// Description is the free-form brief.
	Description string

	// ClientID is the user who posted the project.
	ClientID uuid.UUID

	// ContractorID is the assigned contractor (uuid.Nil while open).
	ContractorID uuid.UUID

	// Status is the normalised lifecycle status.
	Status Status

	// DueDate is the delivery deadline (nil when there is none).
	DueDate *time.Time

	// Budget is the project value in points.
	Budget int64

	// UnreadMessages is the viewer's unread message count.
	UnreadMessages int

	// MScore is the contract clarity heuristic (0-100, nil if not evaluated).
	MScore *int

	// SScore is the payment safety heuristic (0-100, nil if not evaluated).
	SScore *int

	// Proposals are contractor bids on the listing.
	Proposals []Proposal

	// Milestones split the budget into separately escrowed deliverables.
	Milestones []Milestone

	// PostedAt is when the listing went public.
	PostedAt *time.Time

	// NeedsEvaluation keeps a completed project visible until it has been rated.
	NeedsEvaluation bool

	// Tags are free-form labels.
	Tags []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewProject creates an open project posted by a client.
func NewProject(clientID uuid.UUID, title string, budget int64) (*Project, error) {
	now := time.Now().UTC()
	p := &Project{
		ID:         uuid.New(),
		Title:      strings.TrimSpace(title),
		ClientID:   clientID,
		Status:     StatusOpenForProposals,
		Budget:     budget,
		Proposals:  []Proposal{},
		Milestones: []Milestone{},
		PostedAt:   &now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the invariants enforced at write boundaries.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return ErrEmptyTitle
	}
	if p.Budget < 0 {
		return ErrInvalidBudget
	}
	if !validScore(p.MScore) || !validScore(p.SScore) {
		return ErrInvalidScore
	}
	if !p.Status.IsValid() {
		return ErrInvalidStatus
	}
	return nil
}

func validScore(score *int) bool {
	return score == nil || (*score >= 0 && *score <= 100)
}

// IsActionable reports whether the project still needs attention from a participant.
// Completed projects drop out unless they are waiting for a rating.
func (p *Project) IsActionable() bool {
	return p.Status != StatusCompleted || p.NeedsEvaluation
}

// HasParticipant reports whether the user is the client or the assigned contractor.
func (p *Project) HasParticipant(userID uuid.UUID) bool {
	if userID == uuid.Nil {
		return false
	}
	return p.ClientID == userID || p.ContractorID == userID
}

// VisibleTo reports whether a viewer may see the project: participants
// always, contractors also any open listing.
func (p *Project) VisibleTo(userID uuid.UUID, role Role) bool {
	return p.HasParticipant(userID) || (role == RoleContractor && p.Status == StatusOpenForProposals)
}

// ProposalCount returns the number of proposals received.
func (p *Project) ProposalCount() int {
	return len(p.Proposals)
}

// SetStatus changes the status and bumps UpdatedAt.
func (p *Project) SetStatus(status Status) error {
	if !status.IsValid() {
		return ErrInvalidStatus
	}
	p.Status = status
	p.Touch()
	return nil
}

// AddProposal records a contractor bid.
func (p *Project) AddProposal(contractorID uuid.UUID, amount int64, message string) Proposal {
	proposal := Proposal{
		ID:           uuid.New(),
		ContractorID: contractorID,
		Amount:       amount,
		Message:      message,
		SubmittedAt:  time.Now().UTC(),
	}
	p.Proposals = append(p.Proposals, proposal)
	p.Touch()
	return proposal
}

// AddMilestone appends a milestone in pending state.
func (p *Project) AddMilestone(title string, amount int64, dueDate *time.Time) Milestone {
	m := Milestone{
		ID:      uuid.New(),
		Title:   title,
		Amount:  amount,
		Status:  MilestonePending,
		DueDate: dueDate,
	}
	p.Milestones = append(p.Milestones, m)
	p.Touch()
	return m
}

// Touch updates the UpdatedAt timestamp.
func (p *Project) Touch() {
	p.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy so callers can hand records out without sharing slices.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	c.DueDate = cloneTime(p.DueDate)
	c.PostedAt = cloneTime(p.PostedAt)
	c.MScore = cloneInt(p.MScore)
	c.SScore = cloneInt(p.SScore)
	c.Proposals = append([]Proposal(nil), p.Proposals...)
	if p.Milestones != nil {
		c.Milestones = make([]Milestone, len(p.Milestones))
		for i, m := range p.Milestones {
			m.DueDate = cloneTime(m.DueDate)
			c.Milestones[i] = m
		}
	}
	c.Tags = append([]string(nil), p.Tags...)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

// Proposal is a contractor's bid on an open project.
type Proposal struct {
	ID           uuid.UUID `json:"id"`
	ContractorID uuid.UUID `json:"contractor_id"`
	Amount       int64     `json:"amount"`
	Message      string    `json:"message,omitempty"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

// MilestoneStatus tracks escrow state for a single milestone.
type MilestoneStatus string

const (
	MilestonePending   MilestoneStatus = "pending"
	MilestoneFunded    MilestoneStatus = "funded"
	MilestoneSubmitted MilestoneStatus = "submitted"
	MilestoneReleased  MilestoneStatus = "released"
)

// Milestone is a sub-deliverable with its own escrowed amount.
type Milestone struct {
	ID      uuid.UUID       `json:"id"`
	Title   string          `json:"title"`
	Amount  int64           `json:"amount"`
	Status  MilestoneStatus `json:"status"`
	DueDate *time.Time      `json:"due_date,omitempty"`
}
