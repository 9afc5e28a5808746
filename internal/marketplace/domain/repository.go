package domain

import (
	"context"

	"github.com/google/uuid"
)

// ProjectRepository defines the interface for project persistence.
type ProjectRepository interface {
	// Save creates or replaces a project.
	Save(ctx context.Context, p *Project) error

	// FindByID returns ErrProjectNotFound when no project matches.
	FindByID(ctx context.Context, id uuid.UUID) (*Project, error)

	// FindByParticipant returns projects where the user is client or contractor,
	// plus open listings when includeOpen is set.
	FindByParticipant(ctx context.Context, userID uuid.UUID, includeOpen bool) ([]*Project, error)

	// List returns projects matching the filter, oldest first.
	List(ctx context.Context, filter ProjectFilter) ([]*Project, error)

	// Delete removes a project.
	Delete(ctx context.Context, id uuid.UUID) error
}

// ProjectFilter narrows List results.
type ProjectFilter struct {
	// Status filters by status when non-empty.
	Status Status

	// ClientID filters by posting client when set.
	ClientID uuid.UUID

	// Limit caps the number of results (0 = unlimited).
	Limit int
}

// Ledger is the append-only points ledger.
type Ledger interface {
	// Append records a ledger entry.
	Append(ctx context.Context, tx *Transaction) error

	// ListByUser returns a user's entries, oldest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Transaction, error)

	// Balance returns the sum of a user's confirmed entries.
	Balance(ctx context.Context, userID uuid.UUID) (int64, error)
}
