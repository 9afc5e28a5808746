package queries

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
)

// BalanceResult is a user's points balance.
type BalanceResult struct {
	UserID  uuid.UUID `json:"user_id"`
	Balance int64     `json:"balance"`
}

// GetBalanceHandler reads a balance from the ledger.
type GetBalanceHandler struct {
	ledger domain.Ledger
}

// NewGetBalanceHandler creates the handler.
func NewGetBalanceHandler(ledger domain.Ledger) *GetBalanceHandler {
	return &GetBalanceHandler{ledger: ledger}
}

// Handle executes the query.
func (h *GetBalanceHandler) Handle(ctx context.Context, userID uuid.UUID) (*BalanceResult, error) {
	balance, err := h.ledger.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &BalanceResult{UserID: userID, Balance: balance}, nil
}

// ListTransactionsQuery pages through a user's ledger.
type ListTransactionsQuery struct {
	UserID uuid.UUID
	// NewestFirst reverses the ledger's append order.
	NewestFirst bool
	Limit       int
}

// ListTransactionsHandler lists ledger entries.
type ListTransactionsHandler struct {
	ledger domain.Ledger
}

// NewListTransactionsHandler creates the handler.
func NewListTransactionsHandler(ledger domain.Ledger) *ListTransactionsHandler {
	return &ListTransactionsHandler{ledger: ledger}
}

// Handle executes the query.
func (h *ListTransactionsHandler) Handle(ctx context.Context, q ListTransactionsQuery) ([]domain.Transaction, error) {
	txs, err := h.ledger.ListByUser(ctx, q.UserID)
	if err != nil {
		return nil, err
	}
	if q.NewestFirst {
		for i, j := 0, len(txs)-1; i < j; i, j = i+1, j-1 {
			txs[i], txs[j] = txs[j], txs[i]
		}
	}
	if q.Limit > 0 && len(txs) > q.Limit {
		txs = txs[:q.Limit]
	}
	return txs, nil
}
