package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
	"github.com/felixgeelhaar/escrowly/internal/shared/application"
)

// SeedDemoDataCommand loads the demo marketplace for a client/contractor pair.
type SeedDemoDataCommand struct {
	ClientID     uuid.UUID
	ContractorID uuid.UUID
	// OpeningBalance is deposited for the client (0 skips the deposit).
	OpeningBalance int64
}

// SeedDemoDataResult reports what was written.
type SeedDemoDataResult struct {
	Projects []uuid.UUID `json:"projects"`
	Deposit  *uuid.UUID  `json:"deposit,omitempty"`
	// Skipped is set when the client already had projects.
	Skipped bool `json:"skipped"`
}

// SeedDemoDataHandler writes the demo dataset.
type SeedDemoDataHandler struct {
	projects domain.ProjectRepository
	ledger   domain.Ledger
	uow      application.UnitOfWork
	now      func() time.Time
}

// NewSeedDemoDataHandler creates the handler.
func NewSeedDemoDataHandler(projects domain.ProjectRepository, ledger domain.Ledger, uow application.UnitOfWork) *SeedDemoDataHandler {
	return &SeedDemoDataHandler{projects: projects, ledger: ledger, uow: uow, now: time.Now}
}

type demoProject struct {
	title       string
	status      domain.Status
	budget      int64
	dueIn       time.Duration
	postedAgo   time.Duration
	unread      int
	mScore      int
	sScore      int
	proposals   int
	contracted  bool
	needsReview bool
	tags        []string
}

// demoProjects covers every status and each scoring band at least once.
var demoProjects = []demoProject{
	{title: "Corporate site redesign", status: domain.StatusInProgress, budget: 150000, dueIn: -24 * time.Hour, postedAgo: 30 * 24 * time.Hour, unread: 3, mScore: 85, sScore: 90, contracted: true, tags: []string{"web", "design"}},
	{title: "Mobile app onboarding flow", status: domain.StatusWorkReady, budget: 80000, dueIn: 10 * 24 * time.Hour, postedAgo: 12 * 24 * time.Hour, mScore: 70, sScore: 82, contracted: true, tags: []string{"mobile"}},
	{title: "Product photo retouching", status: domain.StatusPendingAcceptance, budget: 30000, dueIn: 2 * 24 * time.Hour, postedAgo: 20 * 24 * time.Hour, unread: 1, mScore: 60, sScore: 65, contracted: true, tags: []string{"photo"}},
	{title: "Translation of user manual", status: domain.StatusAgreementPending, budget: 45000, dueIn: 6 * 24 * time.Hour, postedAgo: 5 * 24 * time.Hour, mScore: 35, sScore: 55, contracted: true, tags: []string{"translation"}},
	{title: "Logo and brand guidelines", status: domain.StatusOpenForProposals, budget: 120000, dueIn: 21 * 24 * time.Hour, postedAgo: 3 * time.Hour, mScore: 90, sScore: 30, proposals: 4, tags: []string{"design", "branding"}},
	{title: "Data entry cleanup", status: domain.StatusOpenForProposals, budget: 8000, postedAgo: 4 * 24 * time.Hour, proposals: 0, tags: []string{"data"}},
	{title: "Newsletter template", status: domain.StatusCompleted, budget: 20000, postedAgo: 60 * 24 * time.Hour, contracted: true, needsReview: true, tags: []string{"email"}},
	{title: "Landing page copy", status: domain.StatusCompleted, budget: 15000, postedAgo: 90 * 24 * time.Hour, contracted: true, tags: []string{"copywriting"}},
}

// Handle writes the dataset unless the client already has projects.
func (h *SeedDemoDataHandler) Handle(ctx context.Context, cmd SeedDemoDataCommand) (*SeedDemoDataResult, error) {
	if cmd.ClientID == uuid.Nil || cmd.ContractorID == uuid.Nil {
		return nil, fmt.Errorf("seed: client and contractor IDs are required")
	}
	existing, err := h.projects.FindByParticipant(ctx, cmd.ClientID, false)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return &SeedDemoDataResult{Projects: []uuid.UUID{}, Skipped: true}, nil
	}

	now := h.now().UTC()
	result := &SeedDemoDataResult{Projects: make([]uuid.UUID, 0, len(demoProjects))}
	err = application.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		for i, d := range demoProjects {
			p := d.build(cmd, now, i)
			if err := p.Validate(); err != nil {
				return fmt.Errorf("seed %q: %w", d.title, err)
			}
			if err := h.projects.Save(txCtx, p); err != nil {
				return err
			}
			result.Projects = append(result.Projects, p.ID)
		}
		if cmd.OpeningBalance > 0 {
			tx, err := domain.NewTransaction(cmd.ClientID, uuid.Nil, domain.TxDeposit, cmd.OpeningBalance)
			if err != nil {
				return err
			}
			tx.Confirm("0xdemo", now)
			if err := h.ledger.Append(txCtx, tx); err != nil {
				return err
			}
			result.Deposit = &tx.ID
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (d demoProject) build(cmd SeedDemoDataCommand, now time.Time, i int) *domain.Project {
	posted := now.Add(-d.postedAgo)
	mScore, sScore := d.mScore, d.sScore
	p := &domain.Project{
		ID:              uuid.New(),
		Title:           d.title,
		ClientID:        cmd.ClientID,
		Status:          d.status,
		Budget:          d.budget,
		UnreadMessages:  d.unread,
		Proposals:       []domain.Proposal{},
		Milestones:      []domain.Milestone{},
		PostedAt:        &posted,
		NeedsEvaluation: d.needsReview,
		Tags:            d.tags,
		// Keep insertion order stable for listings.
		CreatedAt: posted.Add(time.Duration(i) * time.Millisecond),
		UpdatedAt: now,
	}
	if d.mScore > 0 {
		p.MScore = &mScore
	}
	if d.sScore > 0 {
		p.SScore = &sScore
	}
	if d.dueIn != 0 {
		due := now.Add(d.dueIn)
		p.DueDate = &due
	}
	if d.contracted {
		p.ContractorID = cmd.ContractorID
	}
	for j := 0; j < d.proposals; j++ {
		p.AddProposal(uuid.New(), d.budget-int64(j)*1000, "")
		p.Proposals[j].SubmittedAt = posted.Add(time.Duration(j+1) * time.Hour)
	}
	if d.contracted && d.budget >= 50000 {
		half := d.budget / 2
		p.AddMilestone("First delivery", half, nil)
		p.Milestones[0].Status = domain.MilestoneFunded
		p.AddMilestone("Final delivery", d.budget-half, p.DueDate)
	}
	p.UpdatedAt = now
	return p
}
