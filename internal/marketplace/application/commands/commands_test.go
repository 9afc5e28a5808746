package commands_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/commands"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/services"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/infrastructure/persistence"
	"github.com/felixgeelhaar/escrowly/internal/shared/infrastructure/eventbus"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type harness struct {
	repo   *persistence.MemoryProjectRepository
	ledger *persistence.MemoryLedger
	bus    *eventbus.InProcessEventBus
	events []*eventbus.ConsumedEvent
}

func newHarness() *harness {
	h := &harness{
		repo:   persistence.NewMemoryProjectRepository(),
		ledger: persistence.NewMemoryLedger(),
		bus:    eventbus.NewInProcessEventBus(quietLogger()),
	}
	h.bus.Subscribe(eventbus.ConsumerFunc{
		Types: []string{eventbus.Wildcard},
		Fn: func(_ context.Context, e *eventbus.ConsumedEvent) error {
			h.events = append(h.events, e)
			return nil
		},
	})
	return h
}

func (h *harness) routingKeys() []string {
	keys := make([]string, 0, len(h.events))
	for _, e := range h.events {
		keys = append(keys, e.RoutingKey)
	}
	return keys
}

func (h *harness) recorder() *commands.RecordTransactionHandler {
	return commands.NewRecordTransactionHandler(h.ledger, h.repo, services.NewSimulatedChain(0, quietLogger()), nil, h.bus, quietLogger())
}

func ptr[T any](v T) *T { return &v }

func TestSaveProjectHandler_CreatesOpenProject(t *testing.T) {
	h := newHarness()
	actor := uuid.New()
	handler := commands.NewSaveProjectHandler(h.repo, nil, h.bus, quietLogger())

	p, err := handler.Handle(context.Background(), commands.SaveProjectCommand{
		ActorID: actor,
		Title:   ptr("  Landing page  "),
		Budget:  ptr(int64(12000)),
		Tags:    []string{"web"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Landing page", p.Title)
	assert.Equal(t, actor, p.ClientID)
	assert.Equal(t, domain.StatusOpenForProposals, p.Status)
	assert.Equal(t, []string{"web"}, p.Tags)

	stored, err := h.repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(12000), stored.Budget)

	require.Len(t, h.events, 1)
	assert.Equal(t, domain.RoutingKeyProjectSaved, h.events[0].RoutingKey)
	assert.Equal(t, p.ID, h.events[0].AggregateID)
	assert.Equal(t, actor, h.events[0].Metadata.UserID)
}

func TestSaveProjectHandler_UpdatesOnlyProvidedFields(t *testing.T) {
	h := newHarness()
	handler := commands.NewSaveProjectHandler(h.repo, nil, nil, quietLogger())
	ctx := context.Background()
	owner := uuid.New()

	created, err := handler.Handle(ctx, commands.SaveProjectCommand{
		ActorID:     owner,
		Title:       ptr("Catalog"),
		Description: ptr("Product catalog"),
		Budget:      ptr(int64(5000)),
	})
	require.NoError(t, err)

	due := time.Date(2026, 6, 1, 9, 0, 0, 0, time.FixedZone("JST", 9*3600))
	updated, err := handler.Handle(ctx, commands.SaveProjectCommand{
		ID:      created.ID,
		ActorID: owner,
		Status:  ptr("作業中"),
		DueDate: &due,
		MScore:  ptr(75),
	})
	require.NoError(t, err)

	assert.Equal(t, "Catalog", updated.Title)
	assert.Equal(t, "Product catalog", updated.Description)
	assert.Equal(t, domain.StatusInProgress, updated.Status)
	require.NotNil(t, updated.DueDate)
	assert.True(t, due.Equal(*updated.DueDate))
	assert.Equal(t, time.UTC, updated.DueDate.Location())
	require.NotNil(t, updated.MScore)
	assert.Equal(t, 75, *updated.MScore)

	cleared, err := handler.Handle(ctx, commands.SaveProjectCommand{ID: created.ID, ActorID: owner, ClearDueDate: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.DueDate)
}

func TestSaveProjectHandler_RejectsInvalidInput(t *testing.T) {
	h := newHarness()
	handler := commands.NewSaveProjectHandler(h.repo, nil, h.bus, quietLogger())
	ctx := context.Background()

	owner := uuid.New()
	existing, err := domain.NewProject(owner, "Existing", 100)
	require.NoError(t, err)
	require.NoError(t, h.repo.Save(ctx, existing))

	tests := []struct {
		name string
		cmd  commands.SaveProjectCommand
		want error
	}{
		{name: "empty title", cmd: commands.SaveProjectCommand{ActorID: uuid.New(), Title: ptr("   ")}, want: domain.ErrEmptyTitle},
		{name: "negative budget", cmd: commands.SaveProjectCommand{ActorID: uuid.New(), Title: ptr("x"), Budget: ptr(int64(-1))}, want: domain.ErrInvalidBudget},
		{name: "unknown status", cmd: commands.SaveProjectCommand{ID: existing.ID, ActorID: owner, Status: ptr("archived")}, want: domain.ErrInvalidStatus},
		{name: "score out of range", cmd: commands.SaveProjectCommand{ID: existing.ID, ActorID: owner, SScore: ptr(101)}, want: domain.ErrInvalidScore},
		{name: "missing project", cmd: commands.SaveProjectCommand{ID: uuid.New(), ActorID: owner, Title: ptr("x")}, want: domain.ErrProjectNotFound},
		{name: "stranger update", cmd: commands.SaveProjectCommand{ID: existing.ID, ActorID: uuid.New(), Status: ptr("inProgress")}, want: domain.ErrNotParticipant},
		{name: "anonymous update", cmd: commands.SaveProjectCommand{ID: existing.ID, Title: ptr("x")}, want: domain.ErrNotParticipant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := handler.Handle(ctx, tt.cmd)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	stored, err := h.repo.FindByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpenForProposals, stored.Status)
	assert.Nil(t, stored.SScore)
	assert.Empty(t, h.events)
}

func TestRecordTransactionHandler_DepositAndWithdraw(t *testing.T) {
	h := newHarness()
	handler := h.recorder()
	ctx := context.Background()
	user := uuid.New()

	dep, err := handler.Handle(ctx, commands.RecordTransactionCommand{UserID: user, Type: domain.TxDeposit, Amount: 10000})
	require.NoError(t, err)
	assert.Equal(t, domain.TxConfirmed, dep.Status)
	assert.NotEmpty(t, dep.TxHash)
	assert.NotNil(t, dep.ConfirmedAt)

	_, err = handler.Handle(ctx, commands.RecordTransactionCommand{UserID: user, Type: domain.TxWithdraw, Amount: 2500})
	require.NoError(t, err)

	balance, err := h.ledger.Balance(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(7500), balance)

	assert.Equal(t, []string{domain.RoutingKeyTransactionConfirmed, domain.RoutingKeyTransactionConfirmed}, h.routingKeys())
}

func TestRecordTransactionHandler_RejectsOverdraft(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	user := uuid.New()

	chain := &mockChain{}
	handler := commands.NewRecordTransactionHandler(h.ledger, h.repo, chain, nil, h.bus, quietLogger())

	_, err := handler.Handle(ctx, commands.RecordTransactionCommand{UserID: user, Type: domain.TxWithdraw, Amount: 1})
	assert.ErrorIs(t, err, domain.ErrInsufficientPoints)

	entries, err := h.ledger.ListByUser(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, h.events)
	chain.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestRecordTransactionHandler_RejectsInvalidInput(t *testing.T) {
	h := newHarness()
	handler := h.recorder()
	ctx := context.Background()

	_, err := handler.Handle(ctx, commands.RecordTransactionCommand{UserID: uuid.New(), Type: "refund", Amount: 10})
	assert.ErrorIs(t, err, domain.ErrInvalidTransactionType)

	_, err = handler.Handle(ctx, commands.RecordTransactionCommand{UserID: uuid.New(), Type: domain.TxDeposit, Amount: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = handler.Handle(ctx, commands.RecordTransactionCommand{UserID: uuid.New(), ProjectID: uuid.New(), Type: domain.TxDeposit, Amount: 10})
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestRecordTransactionHandler_EscrowFundMarksProjectWorkReady(t *testing.T) {
	h := newHarness()
	handler := h.recorder()
	ctx := context.Background()
	client := uuid.New()

	p, err := domain.NewProject(client, "Escrowed build", 4000)
	require.NoError(t, err)
	p.Status = domain.StatusAgreementPending
	require.NoError(t, h.repo.Save(ctx, p))

	_, err = handler.Handle(ctx, commands.RecordTransactionCommand{UserID: client, Type: domain.TxDeposit, Amount: 5000})
	require.NoError(t, err)
	h.events = nil

	tx, err := handler.Handle(ctx, commands.RecordTransactionCommand{UserID: client, ProjectID: p.ID, Type: domain.TxEscrowFund, Amount: 4000})
	require.NoError(t, err)
	assert.Equal(t, p.ID, tx.ProjectID)

	stored, err := h.repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWorkReady, stored.Status)

	balance, err := h.ledger.Balance(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)

	assert.Equal(t, []string{domain.RoutingKeyTransactionConfirmed, domain.RoutingKeyProjectSaved}, h.routingKeys())
	for _, e := range h.events {
		assert.Equal(t, client, e.Metadata.UserID)
		assert.Equal(t, h.events[0].Metadata.CorrelationID, e.Metadata.CorrelationID)
	}
}

func TestSaveProjectHandler_ContractorMayUpdate(t *testing.T) {
	h := newHarness()
	handler := commands.NewSaveProjectHandler(h.repo, nil, nil, quietLogger())
	ctx := context.Background()

	p, err := domain.NewProject(uuid.New(), "Shared work", 1000)
	require.NoError(t, err)
	p.ContractorID = uuid.New()
	require.NoError(t, h.repo.Save(ctx, p))

	updated, err := handler.Handle(ctx, commands.SaveProjectCommand{ID: p.ID, ActorID: p.ContractorID, UnreadMessages: ptr(0)})
	require.NoError(t, err)
	assert.Equal(t, "Shared work", updated.Title)
}

func TestRecordTransactionHandler_EscrowFundGuards(t *testing.T) {
	ctx := context.Background()
	client := uuid.New()

	tests := []struct {
		name   string
		status domain.Status
		payer  func(p *domain.Project) uuid.UUID
		want   error
	}{
		{
			name:   "stranger",
			status: domain.StatusAgreementPending,
			payer:  func(*domain.Project) uuid.UUID { return uuid.New() },
			want:   domain.ErrNotParticipant,
		},
		{
			name:   "contractor",
			status: domain.StatusAgreementPending,
			payer:  func(p *domain.Project) uuid.UUID { return p.ContractorID },
			want:   domain.ErrNotParticipant,
		},
		{
			name:   "completed project",
			status: domain.StatusCompleted,
			payer:  func(*domain.Project) uuid.UUID { return client },
			want:   domain.ErrProjectClosed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			handler := h.recorder()

			p, err := domain.NewProject(client, "Guarded", 500)
			require.NoError(t, err)
			p.Status = tt.status
			p.ContractorID = uuid.New()
			require.NoError(t, h.repo.Save(ctx, p))

			payer := tt.payer(p)
			_, err = handler.Handle(ctx, commands.RecordTransactionCommand{UserID: payer, Type: domain.TxDeposit, Amount: 1000})
			require.NoError(t, err)

			_, err = handler.Handle(ctx, commands.RecordTransactionCommand{UserID: payer, ProjectID: p.ID, Type: domain.TxEscrowFund, Amount: 500})
			assert.ErrorIs(t, err, tt.want)

			stored, err := h.repo.FindByID(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.status, stored.Status)

			balance, err := h.ledger.Balance(ctx, payer)
			require.NoError(t, err)
			assert.Equal(t, int64(1000), balance)
		})
	}
}

func TestRecordTransactionHandler_ChainFailureWritesNothing(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	user := uuid.New()

	chain := &mockChain{}
	chain.On("Submit", mock.Anything, mock.Anything).Return("", errors.New("network down"))
	handler := commands.NewRecordTransactionHandler(h.ledger, h.repo, chain, nil, h.bus, quietLogger())

	_, err := handler.Handle(ctx, commands.RecordTransactionCommand{UserID: user, Type: domain.TxDeposit, Amount: 100})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network down")

	entries, err := h.ledger.ListByUser(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, h.events)
	chain.AssertExpectations(t)
}

func TestSeedDemoDataHandler_SeedsOnce(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	client, contractor := uuid.New(), uuid.New()
	handler := commands.NewSeedDemoDataHandler(h.repo, h.ledger, nil)

	res, err := handler.Handle(ctx, commands.SeedDemoDataCommand{ClientID: client, ContractorID: contractor, OpeningBalance: 50000})
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.NotEmpty(t, res.Projects)
	require.NotNil(t, res.Deposit)

	all, err := h.repo.List(ctx, domain.ProjectFilter{})
	require.NoError(t, err)
	assert.Len(t, all, len(res.Projects))

	seen := map[domain.Status]bool{}
	for _, p := range all {
		seen[p.Status] = true
		assert.NoError(t, p.Validate())
	}
	for _, s := range domain.AllStatuses() {
		assert.True(t, seen[s], "missing status %s", s)
	}

	visible, err := h.repo.FindByParticipant(ctx, contractor, true)
	require.NoError(t, err)
	assert.NotEmpty(t, visible)

	balance, err := h.ledger.Balance(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), balance)

	again, err := handler.Handle(ctx, commands.SeedDemoDataCommand{ClientID: client, ContractorID: contractor, OpeningBalance: 50000})
	require.NoError(t, err)
	assert.True(t, again.Skipped)
	assert.Empty(t, again.Projects)

	balance, err = h.ledger.Balance(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), balance)
}

func TestSeedDemoDataHandler_RequiresIDs(t *testing.T) {
	h := newHarness()
	_, err := commands.NewSeedDemoDataHandler(h.repo, h.ledger, nil).Handle(context.Background(), commands.SeedDemoDataCommand{ClientID: uuid.New()})
	require.Error(t, err)
}

type mockChain struct {
	mock.Mock
}

func (m *mockChain) Submit(ctx context.Context, tx *domain.Transaction) (string, error) {
	args := m.Called(ctx, tx)
	return args.String(0), args.Error(1)
}
