package persistence_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/infrastructure/persistence"
	"github.com/felixgeelhaar/escrowly/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/escrowly/internal/shared/infrastructure/database/postgres"
	"github.com/felixgeelhaar/escrowly/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/escrowly/internal/shared/infrastructure/migrations"
)

func openSQLite(t *testing.T) database.Connection {
	t.Helper()
	ctx := context.Background()
	conn, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Run(ctx, conn))
	return conn
}

func intPtr(v int) *int { return &v }

func sampleProject(t *testing.T, clientID uuid.UUID, title string, created time.Time) *domain.Project {
	t.Helper()
	p, err := domain.NewProject(clientID, title, 120000)
	require.NoError(t, err)
	due := created.Add(48 * time.Hour)
	p.DueDate = &due
	p.PostedAt = &created
	p.CreatedAt = created
	p.UpdatedAt = created
	p.MScore = intPtr(35)
	p.UnreadMessages = 2
	p.Tags = []string{"design", "urgent"}
	p.AddProposal(uuid.New(), 110000, "can start Monday")
	p.AddMilestone("wireframes", 40000, &due)
	p.UpdatedAt = created
	return p
}

func runProjectRepositoryContract(t *testing.T, repo domain.ProjectRepository) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	client := uuid.New()
	contractor := uuid.New()
	stranger := uuid.New()

	mine := sampleProject(t, client, "Logo redesign", base)
	open := sampleProject(t, stranger, "Open listing", base.Add(time.Hour))
	assigned := sampleProject(t, stranger, "Translation", base.Add(2*time.Hour))
	assigned.ContractorID = contractor
	assigned.Status = domain.StatusInProgress

	for _, p := range []*domain.Project{mine, open, assigned} {
		require.NoError(t, repo.Save(ctx, p))
	}

	t.Run("find by id round-trips fields", func(t *testing.T) {
		got, err := repo.FindByID(ctx, mine.ID)
		require.NoError(t, err)
		assert.Equal(t, mine.Title, got.Title)
		assert.Equal(t, mine.ClientID, got.ClientID)
		assert.Equal(t, uuid.Nil, got.ContractorID)
		assert.Equal(t, domain.StatusOpenForProposals, got.Status)
		assert.Equal(t, int64(120000), got.Budget)
		assert.Equal(t, 2, got.UnreadMessages)
		require.NotNil(t, got.MScore)
		assert.Equal(t, 35, *got.MScore)
		assert.Nil(t, got.SScore)
		require.NotNil(t, got.DueDate)
		assert.True(t, mine.DueDate.Equal(*got.DueDate))
		assert.True(t, mine.CreatedAt.Equal(got.CreatedAt))
		assert.Equal(t, []string{"design", "urgent"}, got.Tags)
		require.Len(t, got.Proposals, 1)
		assert.Equal(t, mine.Proposals[0].ID, got.Proposals[0].ID)
		require.Len(t, got.Milestones, 1)
		assert.Equal(t, domain.MilestonePending, got.Milestones[0].Status)
	})

	t.Run("missing project", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)
	})

	t.Run("save replaces", func(t *testing.T) {
		updated, err := repo.FindByID(ctx, mine.ID)
		require.NoError(t, err)
		updated.Status = domain.StatusAgreementPending
		updated.ContractorID = contractor
		require.NoError(t, repo.Save(ctx, updated))

		got, err := repo.FindByID(ctx, mine.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAgreementPending, got.Status)
		assert.Equal(t, contractor, got.ContractorID)
	})

	t.Run("find by participant", func(t *testing.T) {
		got, err := repo.FindByParticipant(ctx, contractor, false)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, mine.ID, got[0].ID)
		assert.Equal(t, assigned.ID, got[1].ID)

		withOpen, err := repo.FindByParticipant(ctx, client, true)
		require.NoError(t, err)
		ids := []uuid.UUID{}
		for _, p := range withOpen {
			ids = append(ids, p.ID)
		}
		assert.Equal(t, []uuid.UUID{mine.ID, open.ID}, ids)
	})

	t.Run("list filters", func(t *testing.T) {
		all, err := repo.List(ctx, domain.ProjectFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		byStatus, err := repo.List(ctx, domain.ProjectFilter{Status: domain.StatusInProgress})
		require.NoError(t, err)
		require.Len(t, byStatus, 1)
		assert.Equal(t, assigned.ID, byStatus[0].ID)

		byClient, err := repo.List(ctx, domain.ProjectFilter{ClientID: stranger, Limit: 1})
		require.NoError(t, err)
		require.Len(t, byClient, 1)
		assert.Equal(t, open.ID, byClient[0].ID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, open.ID))
		_, err := repo.FindByID(ctx, open.ID)
		assert.ErrorIs(t, err, domain.ErrProjectNotFound)
	})
}

func runLedgerContract(t *testing.T, ledger domain.Ledger) {
	ctx := context.Background()
	user := uuid.New()
	project := uuid.New()

	record := func(typ domain.TransactionType, amount int64, confirm bool) *domain.Transaction {
		tx, err := domain.NewTransaction(user, project, typ, amount)
		require.NoError(t, err)
		if confirm {
			tx.Confirm("0xabc", time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
		}
		require.NoError(t, ledger.Append(ctx, tx))
		return tx
	}

	first := record(domain.TxDeposit, 10000, true)
	record(domain.TxEscrowFund, 3000, true)
	record(domain.TxWithdraw, 500, false)
	record(domain.TxEscrowRefund, 1000, true)

	txs, err := ledger.ListByUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, txs, 4)
	assert.Equal(t, first.ID, txs[0].ID)
	assert.Equal(t, project, txs[0].ProjectID)
	assert.Equal(t, domain.TxConfirmed, txs[0].Status)
	require.NotNil(t, txs[0].ConfirmedAt)
	assert.Equal(t, domain.TxPending, txs[2].Status)

	balance, err := ledger.Balance(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), balance)

	empty, err := ledger.Balance(ctx, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, empty)

	none, err := ledger.ListByUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryProjectRepository(t *testing.T) {
	runProjectRepositoryContract(t, persistence.NewMemoryProjectRepository())
}

func TestMemoryProjectRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := persistence.NewMemoryProjectRepository()
	p := sampleProject(t, uuid.New(), "Copy check", time.Now().UTC())
	require.NoError(t, repo.Save(ctx, p))

	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	got.Tags[0] = "mutated"
	got.Title = "mutated"

	again, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Copy check", again.Title)
	assert.Equal(t, "design", again.Tags[0])
}

func TestSQLiteProjectRepository(t *testing.T) {
	runProjectRepositoryContract(t, persistence.NewSQLiteProjectRepository(openSQLite(t)))
}

func TestSQLiteProjectRepository_RollbackDiscardsSave(t *testing.T) {
	ctx := context.Background()
	conn := openSQLite(t)
	repo := persistence.NewSQLiteProjectRepository(conn)
	uow := database.NewUnitOfWork(conn)

	txCtx, err := uow.Begin(ctx)
	require.NoError(t, err)
	p := sampleProject(t, uuid.New(), "Never committed", time.Now().UTC())
	require.NoError(t, repo.Save(txCtx, p))
	require.NoError(t, uow.Rollback(txCtx))

	_, err = repo.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestMemoryLedger(t *testing.T) {
	runLedgerContract(t, persistence.NewMemoryLedger())
}

func TestSQLLedger(t *testing.T) {
	runLedgerContract(t, persistence.NewSQLLedger(openSQLite(t)))
}

func TestRedisLedger(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set, skipping integration test")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opt)
	defer client.Close()
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Failed to ping redis: %v", err)
	}

	prefix := "escrowly:test:" + uuid.NewString() + ":"
	ledger := persistence.NewRedisLedger(client).WithPrefix(prefix)
	t.Cleanup(func() {
		keys, _ := client.Keys(context.Background(), prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(context.Background(), keys...)
		}
	})
	runLedgerContract(t, ledger)
}

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	conn, err := database.NewConnection(ctx, database.Config{Driver: database.DriverPostgres, URL: url})
	if err != nil {
		t.Skipf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if err := conn.Ping(ctx); err != nil {
		t.Skipf("Failed to ping test database: %v", err)
	}
	require.NoError(t, migrations.Run(ctx, conn))
	_, _ = conn.Exec(ctx, "DELETE FROM projects")
	_, _ = conn.Exec(ctx, "DELETE FROM transactions")
	return conn.(*postgres.Connection).Pool()
}

func TestPostgresProjectRepository(t *testing.T) {
	runProjectRepositoryContract(t, persistence.NewPostgresProjectRepository(setupPostgres(t)))
}
