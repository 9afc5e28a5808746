package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
	"github.com/felixgeelhaar/escrowly/internal/shared/application"
	sharedDomain "github.com/felixgeelhaar/escrowly/internal/shared/domain"
	"github.com/felixgeelhaar/escrowly/internal/shared/infrastructure/eventbus"
)

// Chain confirms a transfer and returns its hash. services.SimulatedChain is
// the only implementation.
type Chain interface {
	Submit(ctx context.Context, tx *domain.Transaction) (string, error)
}

// RecordTransactionCommand moves points for a user.
type RecordTransactionCommand struct {
	UserID    uuid.UUID
	ProjectID uuid.UUID
	Type      domain.TransactionType
	Amount    int64
}

// RecordTransactionHandler confirms a transfer and appends it to the ledger.
type RecordTransactionHandler struct {
	ledger    domain.Ledger
	projects  domain.ProjectRepository
	chain     Chain
	uow       application.UnitOfWork
	publisher eventbus.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewRecordTransactionHandler creates the handler. uow and publisher may be nil.
func NewRecordTransactionHandler(
	ledger domain.Ledger,
	projects domain.ProjectRepository,
	chain Chain,
	uow application.UnitOfWork,
	publisher eventbus.Publisher,
	logger *slog.Logger,
) *RecordTransactionHandler {
	if publisher == nil {
		publisher = eventbus.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordTransactionHandler{
		ledger:    ledger,
		projects:  projects,
		chain:     chain,
		uow:       uow,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Handle executes the command. Debits that exceed the balance fail with
// domain.ErrInsufficientPoints before anything is submitted. Only the client
// may fund a project's escrow, and never once it is completed.
func (h *RecordTransactionHandler) Handle(ctx context.Context, cmd RecordTransactionCommand) (*domain.Transaction, error) {
	tx, err := domain.NewTransaction(cmd.UserID, cmd.ProjectID, cmd.Type, cmd.Amount)
	if err != nil {
		return nil, err
	}

	var project *domain.Project
	if cmd.ProjectID != uuid.Nil {
		if project, err = h.projects.FindByID(ctx, cmd.ProjectID); err != nil {
			return nil, err
		}
		if tx.Type == domain.TxEscrowFund {
			if err := checkFundable(project, cmd.UserID); err != nil {
				return nil, err
			}
		}
	}

	if tx.Type.IsDebit() {
		balance, err := h.ledger.Balance(ctx, cmd.UserID)
		if err != nil {
			return nil, fmt.Errorf("read balance: %w", err)
		}
		if balance < tx.Amount {
			return nil, domain.ErrInsufficientPoints
		}
	}

	hash, err := h.chain.Submit(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("confirm transaction: %w", err)
	}
	tx.Confirm(hash, h.now())

	err = application.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		if err := h.ledger.Append(txCtx, tx); err != nil {
			return fmt.Errorf("append ledger entry: %w", err)
		}
		if project != nil && tx.Type == domain.TxEscrowFund && project.Status != domain.StatusWorkReady {
			if err := project.SetStatus(domain.StatusWorkReady); err != nil {
				return err
			}
			return h.projects.Save(txCtx, project)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("transaction confirmed",
		"tx_id", tx.ID,
		"user_id", tx.UserID,
		"type", tx.Type,
		"amount", tx.Amount,
	)

	md := application.NewEventMetadata(cmd.UserID)
	events := []sharedDomain.DomainEvent{}
	confirmed := domain.NewTransactionConfirmed(tx)
	events = append(events, &confirmed)
	if project != nil && tx.Type == domain.TxEscrowFund {
		saved := domain.NewProjectSaved(project)
		events = append(events, &saved)
	}
	application.ApplyEventMetadata(events, md)
	if err := eventbus.PublishEvents(ctx, h.publisher, events...); err != nil {
		h.logger.Warn("transaction events not published", "tx_id", tx.ID, "error", err)
	}
	return tx, nil
}

func checkFundable(p *domain.Project, userID uuid.UUID) error {
	if p.ClientID != userID {
		return domain.ErrNotParticipant
	}
	if p.Status.IsTerminal() {
		return domain.ErrProjectClosed
	}
	return nil
}
