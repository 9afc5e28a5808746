package queries_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/escrowly/internal/engine/builtin"
	"github.com/felixgeelhaar/escrowly/internal/engine/registry"
	"github.com/felixgeelhaar/escrowly/internal/engine/runtime"
	"github.com/felixgeelhaar/escrowly/internal/engine/types"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/queries"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/services"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/infrastructure/persistence"
	"github.com/felixgeelhaar/escrowly/internal/shared/infrastructure/eventbus"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	repo       *persistence.MemoryProjectRepository
	executor   *runtime.Executor
	bus        *eventbus.InProcessEventBus
	events     []*eventbus.ConsumedEvent
	client     uuid.UUID
	contractor uuid.UUID

	overdue, funded, listing, done *domain.Project
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	reg := registry.NewRegistry(quietLogger())
	require.NoError(t, reg.RegisterBuiltin(builtin.NewEscrowPriorityEngine(services.WithClock(func() time.Time { return now }))))

	f := &fixture{
		repo:       persistence.NewMemoryProjectRepository(),
		executor:   runtime.NewExecutor(reg, nil, quietLogger(), runtime.DefaultExecutorConfig()),
		bus:        eventbus.NewInProcessEventBus(quietLogger()),
		client:     uuid.New(),
		contractor: uuid.New(),
	}
	f.bus.Subscribe(eventbus.ConsumerFunc{
		Types: []string{domain.RoutingKeyTopTaskSelected},
		Fn: func(_ context.Context, e *eventbus.ConsumedEvent) error {
			f.events = append(f.events, e)
			return nil
		},
	})

	mk := func(title string, client uuid.UUID, status domain.Status, budget int64, offset time.Duration) *domain.Project {
		p, err := domain.NewProject(client, title, budget)
		require.NoError(t, err)
		p.Status = status
		p.CreatedAt = now.Add(offset)
		posted := now.Add(-2 * time.Hour)
		p.PostedAt = &posted
		require.NoError(t, f.repo.Save(ctx, p))
		return p
	}

	f.overdue = mk("Overdue build", f.client, domain.StatusInProgress, 10000, -4*time.Hour)
	f.overdue.ContractorID = f.contractor
	due := now.Add(-24 * time.Hour)
	f.overdue.DueDate = &due
	require.NoError(t, f.repo.Save(ctx, f.overdue))

	f.funded = mk("Funded escrow", f.client, domain.StatusWorkReady, 60000, -3*time.Hour)
	f.funded.ContractorID = f.contractor
	require.NoError(t, f.repo.Save(ctx, f.funded))

	f.listing = mk("Open listing", uuid.New(), domain.StatusOpenForProposals, 20000, -2*time.Hour)

	f.done = mk("Finished", f.client, domain.StatusCompleted, 0, -time.Hour)
	f.done.ContractorID = f.contractor
	require.NoError(t, f.repo.Save(ctx, f.done))

	return f
}

func (f *fixture) viewer(role domain.Role) queries.ViewerQuery {
	id := f.client
	if role == domain.RoleContractor {
		id = f.contractor
	}
	return queries.ViewerQuery{ViewerID: id, Role: role}
}

func TestGetTopTaskHandler_SelectsMostUrgentAndPublishes(t *testing.T) {
	f := newFixture(t)
	h := queries.NewGetTopTaskHandler(f.repo, f.executor, builtin.EscrowPriorityEngineID, f.bus, quietLogger())

	res, err := h.Handle(context.Background(), queries.GetTopTaskQuery{ViewerQuery: f.viewer(domain.RoleContractor)})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, f.overdue.ID, res.Project.ID)
	assert.Equal(t, 2600, res.Priority.Score)
	assert.Equal(t, types.UrgencyLevelCritical, res.Priority.Urgency)
	assert.Contains(t, res.Priority.Reasons, "Overdue")

	require.Len(t, f.events, 1)
	ev := f.events[0]
	assert.Equal(t, f.overdue.ID, ev.AggregateID)
	assert.Equal(t, f.contractor, ev.Metadata.UserID)
	var body struct {
		ViewerID uuid.UUID `json:"viewer_id"`
		Role     string    `json:"role"`
		Score    int       `json:"score"`
	}
	require.NoError(t, ev.Decode(&body))
	assert.Equal(t, f.contractor, body.ViewerID)
	assert.Equal(t, "contractor", body.Role)
	assert.Equal(t, 2600, body.Score)
}

func TestGetTopTaskHandler_NothingActionable(t *testing.T) {
	f := newFixture(t)
	h := queries.NewGetTopTaskHandler(f.repo, f.executor, builtin.EscrowPriorityEngineID, f.bus, quietLogger())

	res, err := h.Handle(context.Background(), queries.GetTopTaskQuery{
		ViewerQuery: queries.ViewerQuery{ViewerID: uuid.New(), Role: domain.RoleClient},
	})
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, f.events)
}

func TestGetTopTaskHandler_RejectsUnknownRole(t *testing.T) {
	f := newFixture(t)
	h := queries.NewGetTopTaskHandler(f.repo, f.executor, builtin.EscrowPriorityEngineID, nil, nil)

	_, err := h.Handle(context.Background(), queries.GetTopTaskQuery{
		ViewerQuery: queries.ViewerQuery{ViewerID: f.client, Role: "admin"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestListRankedHandler(t *testing.T) {
	f := newFixture(t)
	h := queries.NewListRankedHandler(f.repo, f.executor, builtin.EscrowPriorityEngineID)

	t.Run("contractor sees open listings", func(t *testing.T) {
		ranked, err := h.Handle(context.Background(), queries.ListRankedQuery{ViewerQuery: f.viewer(domain.RoleContractor)})
		require.NoError(t, err)

		var ids []uuid.UUID
		var scores []int
		for i, r := range ranked {
			ids = append(ids, r.Project.ID)
			scores = append(scores, r.Priority.Score)
			assert.Equal(t, i+1, r.Priority.Rank)
		}
		assert.Equal(t, []uuid.UUID{f.overdue.ID, f.funded.ID, f.listing.ID, f.done.ID}, ids)
		assert.Equal(t, []int{2600, 2200, 80, 10}, scores)
	})

	t.Run("client sees own projects only", func(t *testing.T) {
		ranked, err := h.Handle(context.Background(), queries.ListRankedQuery{ViewerQuery: f.viewer(domain.RoleClient), Limit: 2})
		require.NoError(t, err)
		require.Len(t, ranked, 2)
		assert.Equal(t, f.overdue.ID, ranked[0].Project.ID)
		assert.Equal(t, f.funded.ID, ranked[1].Project.ID)
		assert.Equal(t, 400, ranked[1].Priority.Score)
	})

	t.Run("no projects", func(t *testing.T) {
		ranked, err := h.Handle(context.Background(), queries.ListRankedQuery{
			ViewerQuery: queries.ViewerQuery{ViewerID: uuid.New(), Role: domain.RoleClient},
		})
		require.NoError(t, err)
		assert.NotNil(t, ranked)
		assert.Empty(t, ranked)
	})
}

func TestExplainPriorityHandler(t *testing.T) {
	f := newFixture(t)
	h := queries.NewExplainPriorityHandler(f.repo, f.executor, builtin.EscrowPriorityEngineID)

	exp, err := h.Handle(context.Background(), queries.ExplainPriorityQuery{
		ViewerQuery: f.viewer(domain.RoleContractor),
		ProjectID:   f.funded.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 2200, exp.TotalScore)
	require.Len(t, exp.Factors, 2)
	assert.Equal(t, services.RuleWorkReady, exp.Factors[0].Name)
	assert.Equal(t, services.RuleMidValue, exp.Factors[1].Name)

	_, err = h.Handle(context.Background(), queries.ExplainPriorityQuery{
		ViewerQuery: f.viewer(domain.RoleContractor),
		ProjectID:   uuid.New(),
	})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	_, err = h.Handle(context.Background(), queries.ExplainPriorityQuery{
		ViewerQuery: queries.ViewerQuery{ViewerID: uuid.New(), Role: domain.RoleClient},
		ProjectID:   f.funded.ID,
	})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	_, err = h.Handle(context.Background(), queries.ExplainPriorityQuery{
		ViewerQuery: f.viewer(domain.RoleClient),
		ProjectID:   f.listing.ID,
	})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)

	_, err = h.Handle(context.Background(), queries.ExplainPriorityQuery{
		ViewerQuery: f.viewer(domain.RoleContractor),
		ProjectID:   f.listing.ID,
	})
	assert.NoError(t, err)
}

func TestListProjectsHandler(t *testing.T) {
	f := newFixture(t)
	h := queries.NewListProjectsHandler(f.repo)
	ctx := context.Background()

	all, err := h.Handle(ctx, queries.ListProjectsQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	active, err := h.Handle(ctx, queries.ListProjectsQuery{Status: "作業中"})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, f.overdue.ID, active[0].ID)
	require.NotNil(t, active[0].ContractorID)
	assert.Equal(t, f.contractor, *active[0].ContractorID)

	mine, err := h.Handle(ctx, queries.ListProjectsQuery{ClientID: f.client})
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	_, err = h.Handle(ctx, queries.ListProjectsQuery{Status: "archived"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestGetProjectHandler(t *testing.T) {
	f := newFixture(t)
	h := queries.NewGetProjectHandler(f.repo)

	dto, err := h.Handle(context.Background(), f.listing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Open listing", dto.Title)
	assert.Nil(t, dto.ContractorID)
	assert.NotNil(t, dto.Tags)

	_, err = h.Handle(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestPointsQueries(t *testing.T) {
	ctx := context.Background()
	ledger := persistence.NewMemoryLedger()
	user := uuid.New()

	for _, amount := range []int64{1000, 2000, 3000} {
		tx, err := domain.NewTransaction(user, uuid.Nil, domain.TxDeposit, amount)
		require.NoError(t, err)
		tx.Confirm("0x1", now)
		require.NoError(t, ledger.Append(ctx, tx))
	}

	bal, err := queries.NewGetBalanceHandler(ledger).Handle(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), bal.Balance)
	assert.Equal(t, user, bal.UserID)

	list := queries.NewListTransactionsHandler(ledger)
	txs, err := list.Handle(ctx, queries.ListTransactionsQuery{UserID: user, NewestFirst: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(3000), txs[0].Amount)
	assert.Equal(t, int64(2000), txs[1].Amount)
}
