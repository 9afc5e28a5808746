// Package persistence provides the marketplace project stores and points
// ledgers: in-memory, SQLite, PostgreSQL and Redis.
package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
)

// MemoryProjectRepository keeps projects in a map. Records are cloned on the
// way in and out so callers never share state with the store.
type MemoryProjectRepository struct {
	mu       sync.RWMutex
	projects map[uuid.UUID]*domain.Project
}

var _ domain.ProjectRepository = (*MemoryProjectRepository)(nil)

// NewMemoryProjectRepository creates an empty store.
func NewMemoryProjectRepository() *MemoryProjectRepository {
	return &MemoryProjectRepository{projects: make(map[uuid.UUID]*domain.Project)}
}

func (r *MemoryProjectRepository) Save(_ context.Context, p *domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[p.ID] = p.Clone()
	return nil
}

func (r *MemoryProjectRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	return p.Clone(), nil
}

func (r *MemoryProjectRepository) FindByParticipant(_ context.Context, userID uuid.UUID, includeOpen bool) ([]*domain.Project, error) {
	return r.collect(func(p *domain.Project) bool {
		return p.HasParticipant(userID) || (includeOpen && p.Status == domain.StatusOpenForProposals)
	}, 0), nil
}

func (r *MemoryProjectRepository) List(_ context.Context, f domain.ProjectFilter) ([]*domain.Project, error) {
	return r.collect(func(p *domain.Project) bool {
		if f.Status != "" && p.Status != f.Status {
			return false
		}
		return f.ClientID == uuid.Nil || p.ClientID == f.ClientID
	}, f.Limit), nil
}

func (r *MemoryProjectRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.projects, id)
	return nil
}

// collect returns matching projects oldest first, capped at limit when > 0.
func (r *MemoryProjectRepository) collect(match func(*domain.Project) bool, limit int) []*domain.Project {
	r.mu.RLock()
	out := make([]*domain.Project, 0, len(r.projects))
	for _, p := range r.projects {
		if match(p) {
			out = append(out, p.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// MemoryLedger is an append-only in-memory ledger.
type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[uuid.UUID][]domain.Transaction
}

var _ domain.Ledger = (*MemoryLedger)(nil)

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[uuid.UUID][]domain.Transaction)}
}

func (l *MemoryLedger) Append(_ context.Context, tx *domain.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := *tx
	if tx.ConfirmedAt != nil {
		at := *tx.ConfirmedAt
		entry.ConfirmedAt = &at
	}
	l.entries[tx.UserID] = append(l.entries[tx.UserID], entry)
	return nil
}

func (l *MemoryLedger) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.Transaction{}, l.entries[userID]...), nil
}

func (l *MemoryLedger) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	txs, err := l.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return domain.SumBalance(txs), nil
}
