package services

import (
	"fmt"
	"math"
	"time"

	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
	"github.com/google/uuid"
)

// Urgency is the display tier derived from a priority score.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyLow      Urgency = "low"
)

// Urgency thresholds on the final score.
const (
	CriticalThreshold = 1000
	HighThreshold     = 500
	MediumThreshold   = 100
)

// UrgencyForScore classifies a score. Negative scores are still low.
func UrgencyForScore(score int) Urgency {
	switch {
	case score >= CriticalThreshold:
		return UrgencyCritical
	case score >= HighThreshold:
		return UrgencyHigh
	case score >= MediumThreshold:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// Rule identifiers, in evaluation order.
const (
	RuleOverdue            = "overdue"
	RuleNearDeadline       = "near_deadline"
	RuleWorkReady          = "work_ready"
	RulePendingAcceptance  = "pending_acceptance"
	RuleDeadlineThisWeek   = "deadline_this_week"
	RuleProposalsPending   = "proposals_pending"
	RuleInProgress         = "in_progress"
	RuleUnreadMessages     = "unread_messages"
	RuleAgreementPending   = "agreement_pending"
	RuleMediumTermDeadline = "medium_term_deadline"
	RuleHighValue          = "high_value"
	RuleMidValue           = "mid_value"
	RuleClarityNeeded      = "clarity_needed"
	RuleHighTrust          = "high_trust"
	RulePaymentRisk        = "payment_risk"
	RuleStableListing      = "stable_listing"
	RuleNewlyPosted        = "newly_posted"
	RuleCompleted          = "completed"
)

// PriorityWeights holds the score delta of every rule.
// PaymentRisk is subtracted.
type PriorityWeights struct {
	Overdue            int
	NearDeadline       int
	WorkReady          int
	PendingAcceptance  int
	DeadlineThisWeek   int
	ProposalsPending   int
	InProgress         int
	UnreadBase         int
	UnreadPerMessage   int
	AgreementPending   int
	MediumTermDeadline int
	HighValue          int
	MidValue           int
	ClarityNeeded      int
	HighTrust          int
	PaymentRisk        int
	StableListing      int
	NewlyPosted        int
	Completed          int
}

// DefaultPriorityWeights returns the tuned marketplace weights.
func DefaultPriorityWeights() PriorityWeights {
	return PriorityWeights{
		Overdue:            2000,
		NearDeadline:       1500,
		WorkReady:          1800,
		PendingAcceptance:  1600,
		DeadlineThisWeek:   800,
		ProposalsPending:   700,
		InProgress:         600,
		UnreadBase:         500,
		UnreadPerMessage:   50,
		AgreementPending:   900,
		MediumTermDeadline: 400,
		HighValue:          300,
		MidValue:           150,
		ClarityNeeded:      250,
		HighTrust:          100,
		PaymentRisk:        200,
		StableListing:      100,
		NewlyPosted:        80,
		Completed:          10,
	}
}

// Budget and score bands.
const (
	HighValueBudget  = 100000
	MidValueBudget   = 50000
	LowScoreCutoff   = 40
	HighScoreCutoff  = 80
	NewListingWindow = 24 * time.Hour
	nearDeadlineDays = 3
	thisWeekDays     = 7
	mediumTermDays   = 14
)

// Contribution is one fired rule.
type Contribution struct {
	Rule   string `json:"rule"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason,omitempty"`
}

// PriorityResult is the transient outcome of scoring one project.
type PriorityResult struct {
	Score         int            `json:"score"`
	Reasons       []string       `json:"reasons"`
	Urgency       Urgency        `json:"urgency"`
	Contributions []Contribution `json:"contributions"`
}

// PriorityScorer sums heuristic rule contributions for a project as seen by a viewer.
type PriorityScorer struct {
	weights PriorityWeights
	now     func() time.Time
}

// ScorerOption configures a PriorityScorer.
type ScorerOption func(*PriorityScorer)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) ScorerOption {
	return func(s *PriorityScorer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithWeights overrides the rule weights.
func WithWeights(w PriorityWeights) ScorerOption {
	return func(s *PriorityScorer) {
		s.weights = w
	}
}

// NewPriorityScorer creates a scorer with default weights and the system clock.
func NewPriorityScorer(opts ...ScorerOption) *PriorityScorer {
	s := &PriorityScorer{
		weights: DefaultPriorityWeights(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the active rule weights.
func (s *PriorityScorer) Weights() PriorityWeights {
	return s.weights
}

// Score evaluates every rule against the project. It never fails: missing
// fields count as zero, false or empty. No rule depends on the viewer ID yet.
func (s *PriorityScorer) Score(p *domain.Project, role domain.Role, viewerID uuid.UUID) PriorityResult {
	b := &resultBuilder{
		result: PriorityResult{Reasons: []string{}, Contributions: []Contribution{}},
	}
	if p == nil {
		b.result.Urgency = UrgencyForScore(0)
		return b.result
	}

	w := s.weights
	now := s.now()
	overdue, days, hasDue := dueBand(p.DueDate, now)

	if overdue {
		b.add(RuleOverdue, w.Overdue, "Overdue")
	}
	if hasDue && days >= 0 && days <= nearDeadlineDays {
		b.add(RuleNearDeadline, w.NearDeadline, "Due within 3 days")
	}
	if role == domain.RoleContractor && p.Status == domain.StatusWorkReady {
		b.add(RuleWorkReady, w.WorkReady, "Work ready: escrow funded")
	}
	if role == domain.RoleContractor && p.Status == domain.StatusPendingAcceptance {
		b.add(RulePendingAcceptance, w.PendingAcceptance, "Awaiting client acceptance")
	}
	if hasDue && days > nearDeadlineDays && days <= thisWeekDays {
		b.add(RuleDeadlineThisWeek, w.DeadlineThisWeek, "Deadline this week")
	}
	if role == domain.RoleClient && p.Status == domain.StatusOpenForProposals && len(p.Proposals) > 0 {
		b.add(RuleProposalsPending, w.ProposalsPending, fmt.Sprintf("%d proposals pending review", len(p.Proposals)))
	}
	if p.Status == domain.StatusInProgress {
		b.add(RuleInProgress, w.InProgress, "Active work")
	}
	if p.UnreadMessages > 0 {
		b.add(RuleUnreadMessages, w.UnreadBase+w.UnreadPerMessage*p.UnreadMessages,
			fmt.Sprintf("%d unread messages", p.UnreadMessages))
	}
	if p.Status == domain.StatusAgreementPending {
		b.add(RuleAgreementPending, w.AgreementPending, "Contract confirmation pending")
	}
	if hasDue && days > thisWeekDays && days <= mediumTermDays {
		b.add(RuleMediumTermDeadline, w.MediumTermDeadline, "Medium-term deadline")
	}

	if p.Budget >= HighValueBudget {
		b.add(RuleHighValue, w.HighValue, "High-value project")
	} else if p.Budget >= MidValueBudget {
		b.add(RuleMidValue, w.MidValue, "")
	}

	if p.MScore != nil {
		if *p.MScore < LowScoreCutoff {
			b.add(RuleClarityNeeded, w.ClarityNeeded, "Contract clarity needed")
		} else if *p.MScore >= HighScoreCutoff {
			b.add(RuleHighTrust, w.HighTrust, "High-trust listing")
		}
	}
	if p.SScore != nil {
		if *p.SScore < LowScoreCutoff {
			b.add(RulePaymentRisk, -w.PaymentRisk, "Payment risk")
		} else if *p.SScore >= HighScoreCutoff {
			b.add(RuleStableListing, w.StableListing, "Stable listing")
		}
	}

	if role == domain.RoleContractor && p.Status == domain.StatusOpenForProposals && postedRecently(p.PostedAt, now) {
		b.add(RuleNewlyPosted, w.NewlyPosted, "Newly posted")
	}
	if p.Status == domain.StatusCompleted {
		b.add(RuleCompleted, w.Completed, "")
	}

	b.result.Urgency = UrgencyForScore(b.result.Score)
	return b.result
}

type resultBuilder struct {
	result PriorityResult
}

func (b *resultBuilder) add(rule string, delta int, reason string) {
	b.result.Score += delta
	b.result.Contributions = append(b.result.Contributions, Contribution{Rule: rule, Delta: delta, Reason: reason})
	if reason != "" {
		b.result.Reasons = append(b.result.Reasons, reason)
	}
}

// dueBand reports whether the due date has passed and, if not, the number of
// started days left. Days are only meaningful when the project is not overdue.
// The bands are exclusive: an overdue project never also scores a deadline band.
func dueBand(due *time.Time, now time.Time) (overdue bool, days int, hasDays bool) {
	if due == nil || due.IsZero() {
		return false, 0, false
	}
	if due.Before(now) {
		return true, 0, false
	}
	return false, int(math.Ceil(due.Sub(now).Hours() / 24)), true
}

func postedRecently(postedAt *time.Time, now time.Time) bool {
	if postedAt == nil || postedAt.IsZero() {
		return false
	}
	age := now.Sub(*postedAt)
	return age >= 0 && age < NewListingWindow
}
