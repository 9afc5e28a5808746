// Package builtin provides the engines that ship with escrowly.
package builtin

import (
	"context"
	"strings"
	"sync"

	"github.com/felixgeelhaar/escrowly/internal/engine/sdk"
	"github.com/felixgeelhaar/escrowly/internal/engine/types"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/services"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
)

// EscrowPriorityEngineID identifies the built-in marketplace priority engine.
const EscrowPriorityEngineID = "escrowly.priority.escrow"

// weightKey binds a config key to a field of services.PriorityWeights.
type weightKey struct {
	key   string
	title string
	field func(*services.PriorityWeights) *int
}

var weightKeys = []weightKey{
	{"overdue_weight", "Overdue", func(w *services.PriorityWeights) *int { return &w.Overdue }},
	{"near_deadline_weight", "Due within 3 days", func(w *services.PriorityWeights) *int { return &w.NearDeadline }},
	{"work_ready_weight", "Work ready (contractor)", func(w *services.PriorityWeights) *int { return &w.WorkReady }},
	{"pending_acceptance_weight", "Awaiting acceptance (contractor)", func(w *services.PriorityWeights) *int { return &w.PendingAcceptance }},
	{"deadline_this_week_weight", "Deadline this week", func(w *services.PriorityWeights) *int { return &w.DeadlineThisWeek }},
	{"proposals_pending_weight", "Proposals pending (client)", func(w *services.PriorityWeights) *int { return &w.ProposalsPending }},
	{"in_progress_weight", "Active work", func(w *services.PriorityWeights) *int { return &w.InProgress }},
	{"unread_base_weight", "Unread messages base", func(w *services.PriorityWeights) *int { return &w.UnreadBase }},
	{"unread_per_message_weight", "Per unread message", func(w *services.PriorityWeights) *int { return &w.UnreadPerMessage }},
	{"agreement_pending_weight", "Contract confirmation pending", func(w *services.PriorityWeights) *int { return &w.AgreementPending }},
	{"medium_term_deadline_weight", "Medium-term deadline", func(w *services.PriorityWeights) *int { return &w.MediumTermDeadline }},
	{"high_value_weight", "High-value budget", func(w *services.PriorityWeights) *int { return &w.HighValue }},
	{"mid_value_weight", "Mid-value budget", func(w *services.PriorityWeights) *int { return &w.MidValue }},
	{"clarity_needed_weight", "Low M-Score", func(w *services.PriorityWeights) *int { return &w.ClarityNeeded }},
	{"high_trust_weight", "High M-Score", func(w *services.PriorityWeights) *int { return &w.HighTrust }},
	{"payment_risk_penalty", "Low S-Score penalty", func(w *services.PriorityWeights) *int { return &w.PaymentRisk }},
	{"stable_listing_weight", "High S-Score", func(w *services.PriorityWeights) *int { return &w.StableListing }},
	{"newly_posted_weight", "Newly posted (contractor)", func(w *services.PriorityWeights) *int { return &w.NewlyPosted }},
	{"completed_weight", "Completed baseline", func(w *services.PriorityWeights) *int { return &w.Completed }},
}

// EscrowPriorityEngine scores marketplace projects with the additive rule set
// from the services package.
type EscrowPriorityEngine struct {
	mu       sync.RWMutex
	config   sdk.EngineConfig
	ranker   *services.PriorityRanker
	opts     []services.ScorerOption
	shutdown bool
}

// NewEscrowPriorityEngine creates the engine with default weights.
// Scorer options (e.g. a fixed clock) are kept across Initialize calls.
func NewEscrowPriorityEngine(opts ...services.ScorerOption) *EscrowPriorityEngine {
	return &EscrowPriorityEngine{
		ranker: services.NewPriorityRanker(services.NewPriorityScorer(opts...)),
		opts:   opts,
	}
}

// Metadata returns engine metadata.
func (e *EscrowPriorityEngine) Metadata() sdk.EngineMetadata {
	return sdk.EngineMetadata{
		ID:            EscrowPriorityEngineID,
		Name:          "Escrow Priority Engine",
		Version:       "1.0.0",
		Author:        "escrowly",
		Description:   "Additive rule scoring over deadlines, escrow status, messages and listing quality",
		Tags:          []string{"priority", "builtin", "escrow"},
		MinAPIVersion: "1.0.0",
		Capabilities: []string{
			types.CapabilityCalculatePriority,
			types.CapabilityBatchCalculate,
			types.CapabilitySelectTop,
			types.CapabilityExplainFactors,
			types.CapabilityRoleAware,
		},
	}
}

// Type returns the engine type.
func (e *EscrowPriorityEngine) Type() sdk.EngineType {
	return sdk.EngineTypePriority
}

// ConfigSchema publishes every rule weight with its default.
func (e *EscrowPriorityEngine) ConfigSchema() sdk.ConfigSchema {
	schema := sdk.NewConfigSchema("Escrow priority weights", "Score delta applied when each rule fires")
	defaults := services.DefaultPriorityWeights()
	for _, wk := range weightKeys {
		schema.AddProperty(wk.key, sdk.PropertySchema{
			Type:    "integer",
			Title:   wk.title,
			Default: *wk.field(&defaults),
			Minimum: sdk.FloatPtr(0),
			Maximum: sdk.FloatPtr(10000),
			Group:   "Weights",
		})
	}
	return schema
}

// Initialize validates the config and rebuilds the scorer with its weights.
func (e *EscrowPriorityEngine) Initialize(ctx context.Context, config sdk.EngineConfig) error {
	if err := e.ConfigSchema().Validate(config.Raw); err != nil {
		return err
	}

	weights := services.DefaultPriorityWeights()
	for _, wk := range weightKeys {
		if config.Has(wk.key) {
			*wk.field(&weights) = config.GetInt(wk.key)
		}
	}

	opts := append([]services.ScorerOption{}, e.opts...)
	opts = append(opts, services.WithWeights(weights))

	e.mu.Lock()
	defer e.mu.Unlock()
	e.config = config
	e.ranker = services.NewPriorityRanker(services.NewPriorityScorer(opts...))
	e.shutdown = false
	return nil
}

// HealthCheck returns the engine health status.
func (e *EscrowPriorityEngine) HealthCheck(ctx context.Context) sdk.HealthStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.shutdown {
		return sdk.NewHealthStatus(false, "escrow priority engine is shut down")
	}
	return sdk.NewHealthStatus(true, "escrow priority engine is healthy")
}

// Shutdown marks the engine as stopped. Later calls fail with ErrEngineShutdown.
func (e *EscrowPriorityEngine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shutdown = true
	return nil
}

func (e *EscrowPriorityEngine) activeRanker(ctx *sdk.ExecutionContext) (*services.PriorityRanker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.shutdown {
		return nil, sdk.ErrEngineShutdown
	}
	return e.ranker, nil
}

// CalculatePriority scores a single input.
func (e *EscrowPriorityEngine) CalculatePriority(ctx *sdk.ExecutionContext, viewer types.Viewer, input types.PriorityInput) (*types.PriorityOutput, error) {
	ranker, err := e.activeRanker(ctx)
	if err != nil {
		return nil, err
	}

	result := ranker.Scorer().Score(toProject(input), viewerRole(viewer), viewer.ID)

	ctx.Logger.Debug("calculated priority",
		"item_id", input.ID,
		"score", result.Score,
		"urgency", result.Urgency,
	)

	out := toOutput(input, result)
	return &out, nil
}

// BatchCalculate scores and orders all inputs.
func (e *EscrowPriorityEngine) BatchCalculate(ctx *sdk.ExecutionContext, viewer types.Viewer, inputs []types.PriorityInput) ([]types.PriorityOutput, error) {
	ranker, err := e.activeRanker(ctx)
	if err != nil {
		return nil, err
	}

	projects, byProject := toProjects(inputs)
	ranked := ranker.RankAll(projects, viewerRole(viewer), viewer.ID)

	outputs := make([]types.PriorityOutput, len(ranked))
	for i, r := range ranked {
		outputs[i] = toOutput(byProject[r.Project], r.Priority)
		outputs[i].Rank = i + 1
	}

	ctx.Metrics.Counter("priority.batch.items", int64(len(outputs)))
	return outputs, nil
}

// SelectTop returns the top actionable input or nil.
func (e *EscrowPriorityEngine) SelectTop(ctx *sdk.ExecutionContext, viewer types.Viewer, inputs []types.PriorityInput) (*types.PriorityOutput, error) {
	ranker, err := e.activeRanker(ctx)
	if err != nil {
		return nil, err
	}

	projects, byProject := toProjects(inputs)
	top := ranker.TopTask(projects, viewerRole(viewer), viewer.ID)
	if top == nil {
		ctx.Logger.Debug("no actionable project", "candidates", len(inputs))
		return nil, nil
	}

	out := toOutput(byProject[top.Project], top.Priority)
	out.Rank = 1
	return &out, nil
}

// ExplainFactors lists the rules that fired for the input.
func (e *EscrowPriorityEngine) ExplainFactors(ctx *sdk.ExecutionContext, viewer types.Viewer, input types.PriorityInput) (*types.PriorityExplanation, error) {
	ranker, err := e.activeRanker(ctx)
	if err != nil {
		return nil, err
	}

	scorer := ranker.Scorer()
	result := scorer.Score(toProject(input), viewerRole(viewer), viewer.ID)

	factors := make([]types.FactorBreakdown, len(result.Contributions))
	for i, c := range result.Contributions {
		factors[i] = types.FactorBreakdown{Name: c.Rule, Delta: c.Delta, Reason: c.Reason}
	}

	weights := scorer.Weights()
	weightMap := make(map[string]int, len(weightKeys))
	for _, wk := range weightKeys {
		weightMap[wk.key] = *wk.field(&weights)
	}

	return &types.PriorityExplanation{
		ID:         input.ID,
		TotalScore: result.Score,
		Urgency:    types.UrgencyLevel(result.Urgency),
		Factors:    factors,
		Algorithm:  "additive_rules",
		Weights:    weightMap,
	}, nil
}

// viewerRole is lenient: an unknown role simply matches no role-specific rule.
func viewerRole(v types.Viewer) domain.Role {
	return domain.Role(strings.ToLower(strings.TrimSpace(v.Role)))
}

func toProject(in types.PriorityInput) *domain.Project {
	p := &domain.Project{
		ID:              in.ID,
		Title:           in.Title,
		Status:          domain.NormalizeStatus(in.Status),
		DueDate:         in.DueDate,
		Budget:          in.Budget,
		UnreadMessages:  in.UnreadMessages,
		MScore:          in.MScore,
		SScore:          in.SScore,
		PostedAt:        in.PostedAt,
		NeedsEvaluation: in.NeedsEvaluation,
	}
	if in.ProposalCount > 0 {
		p.Proposals = make([]domain.Proposal, in.ProposalCount)
	}
	return p
}

func toProjects(inputs []types.PriorityInput) ([]*domain.Project, map[*domain.Project]types.PriorityInput) {
	projects := make([]*domain.Project, len(inputs))
	byProject := make(map[*domain.Project]types.PriorityInput, len(inputs))
	for i, in := range inputs {
		p := toProject(in)
		projects[i] = p
		byProject[p] = in
	}
	return projects, byProject
}

func toOutput(in types.PriorityInput, result services.PriorityResult) types.PriorityOutput {
	factors := make(map[string]int, len(result.Contributions))
	for _, c := range result.Contributions {
		factors[c.Rule] = c.Delta
	}
	return types.PriorityOutput{
		ID:      in.ID,
		Score:   result.Score,
		Reasons: result.Reasons,
		Urgency: types.UrgencyLevel(result.Urgency),
		Color:   services.ColorForUrgency(result.Urgency),
		Emoji:   services.EmojiForUrgency(result.Urgency),
		Factors: factors,
	}
}

// Ensure EscrowPriorityEngine implements types.PriorityEngine.
var _ types.PriorityEngine = (*EscrowPriorityEngine)(nil)
