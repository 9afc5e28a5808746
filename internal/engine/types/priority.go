// Package types defines the engine-facing contracts for each engine type.
package types

import (
	"time"

	"github.com/felixgeelhaar/escrowly/internal/engine/sdk"
	"github.com/google/uuid"
)

// PriorityEngine extends the base Engine with marketplace priority scoring.
type PriorityEngine interface {
	sdk.Engine

	// CalculatePriority scores a single project for the viewer.
	CalculatePriority(ctx *sdk.ExecutionContext, viewer Viewer, input PriorityInput) (*PriorityOutput, error)

	// BatchCalculate scores every input and returns them by descending score.
	// Equal scores keep input order. Rank starts at 1.
	BatchCalculate(ctx *sdk.ExecutionContext, viewer Viewer, inputs []PriorityInput) ([]PriorityOutput, error)

	// SelectTop returns the highest priority actionable input, or nil when
	// nothing is actionable.
	SelectTop(ctx *sdk.ExecutionContext, viewer Viewer, inputs []PriorityInput) (*PriorityOutput, error)

	// ExplainFactors breaks a score down into the rules that fired.
	ExplainFactors(ctx *sdk.ExecutionContext, viewer Viewer, input PriorityInput) (*PriorityExplanation, error)
}

// Viewer is the user a priority is computed for.
type Viewer struct {
	// Role is "client" or "contractor".
	Role string    `json:"role"`
	ID   uuid.UUID `json:"id"`
}

// PriorityInput carries the signals of one project. Every field is optional.
type PriorityInput struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title,omitempty"`

	// Status may be an English key or a legacy display label.
	Status string `json:"status,omitempty"`

	DueDate         *time.Time `json:"due_date,omitempty"`
	Budget          int64      `json:"budget,omitempty"`
	UnreadMessages  int        `json:"unread_messages,omitempty"`
	MScore          *int       `json:"m_score,omitempty"`
	SScore          *int       `json:"s_score,omitempty"`
	ProposalCount   int        `json:"proposal_count,omitempty"`
	PostedAt        *time.Time `json:"posted_at,omitempty"`
	NeedsEvaluation bool       `json:"needs_evaluation,omitempty"`
}

// PriorityOutput is the scored form of an input.
type PriorityOutput struct {
	ID      uuid.UUID    `json:"id"`
	Score   int          `json:"score"`
	Rank    int          `json:"rank,omitempty"`
	Reasons []string     `json:"reasons"`
	Urgency UrgencyLevel `json:"urgency"`

	// Color and Emoji are display tokens for the urgency level.
	Color string `json:"color"`
	Emoji string `json:"emoji"`

	// Factors maps each fired rule to its delta.
	Factors map[string]int `json:"factors,omitempty"`
}

// UrgencyLevel categorizes priority into actionable levels.
type UrgencyLevel string

const (
	UrgencyLevelCritical UrgencyLevel = "critical" // score >= 1000
	UrgencyLevelHigh     UrgencyLevel = "high"     // score >= 500
	UrgencyLevelMedium   UrgencyLevel = "medium"   // score >= 100
	UrgencyLevelLow      UrgencyLevel = "low"
)

// PriorityExplanation details how a score was reached.
type PriorityExplanation struct {
	ID         uuid.UUID         `json:"id"`
	TotalScore int               `json:"total_score"`
	Urgency    UrgencyLevel      `json:"urgency"`
	Factors    []FactorBreakdown `json:"factors"`
	Algorithm  string            `json:"algorithm"`

	// Weights are the configured rule weights, keyed by rule.
	Weights map[string]int `json:"weights"`
}

// FactorBreakdown is one fired rule, in evaluation order.
type FactorBreakdown struct {
	Name   string `json:"name"`
	Delta  int    `json:"delta"`
	Reason string `json:"reason,omitempty"`
}

// Priority engine capabilities.
const (
	CapabilityCalculatePriority = "calculate_priority"
	CapabilityBatchCalculate    = "batch_calculate"
	CapabilitySelectTop         = "select_top"
	CapabilityExplainFactors    = "explain_factors"
	CapabilityRoleAware         = "role_aware"
)
