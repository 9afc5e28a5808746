// Package application holds helpers shared by command and query handlers.
package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/escrowly/internal/shared/domain"
)

// UnitOfWork scopes a group of repository calls to one transaction carried
// in the returned context.
type UnitOfWork interface {
	Begin(ctx context.Context) (context.Context, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// WithUnitOfWork runs fn inside uow, committing on success and rolling back
// on error. A nil uow runs fn directly, which is what the in-memory stores use.
func WithUnitOfWork(ctx context.Context, uow UnitOfWork, fn func(ctx context.Context) error) error {
	if uow == nil {
		return fn(ctx)
	}
	txCtx, err := uow.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(txCtx); err != nil {
		_ = uow.Rollback(txCtx)
		return err
	}
	return uow.Commit(txCtx)
}

type metadataSetter interface {
	SetMetadata(md domain.EventMetadata)
}

// NewEventMetadata starts a correlation chain for one command issued by userID.
func NewEventMetadata(userID uuid.UUID) domain.EventMetadata {
	return domain.EventMetadata{
		CorrelationID: uuid.New(),
		CausationID:   uuid.New(),
		UserID:        userID,
	}
}

// ApplyEventMetadata stamps md onto every event that accepts it. Events must
// be passed by pointer for the update to stick.
func ApplyEventMetadata(events []domain.DomainEvent, md domain.EventMetadata) {
	for _, ev := range events {
		if s, ok := ev.(metadataSetter); ok {
			s.SetMetadata(md)
		}
	}
}
