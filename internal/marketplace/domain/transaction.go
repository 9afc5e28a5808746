package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType classifies a points ledger entry.
type TransactionType string

const (
	TxDeposit       TransactionType = "deposit"
	TxWithdraw      TransactionType = "withdraw"
	TxEscrowFund    TransactionType = "escrow_fund"
	TxEscrowRelease TransactionType = "escrow_release"
	TxEscrowRefund  TransactionType = "escrow_refund"
)

// IsValid returns true if the type is a known value.
func (t TransactionType) IsValid() bool {
	switch t {
	case TxDeposit, TxWithdraw, TxEscrowFund, TxEscrowRelease, TxEscrowRefund:
		return true
	default:
		return false
	}
}

// IsDebit reports whether the transaction takes points out of the user's wallet.
func (t TransactionType) IsDebit() bool {
	return t == TxWithdraw || t == TxEscrowFund
}

// ParseTransactionType parses a transaction type name.
func ParseTransactionType(raw string) (TransactionType, error) {
	t := TransactionType(raw)
	if !t.IsValid() {
		return "", ErrInvalidTransactionType
	}
	return t, nil
}

// TransactionStatus is the settlement state of a ledger entry.
type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxConfirmed TransactionStatus = "confirmed"
	TxFailed    TransactionStatus = "failed"
)

// Transaction is an append-only entry in a user's points ledger.
type Transaction struct {
	ID          uuid.UUID         `json:"id"`
	UserID      uuid.UUID         `json:"user_id"`
	ProjectID   uuid.UUID         `json:"project_id,omitempty"`
	Type        TransactionType   `json:"type"`
	Amount      int64             `json:"amount"`
	Status      TransactionStatus `json:"status"`
	TxHash      string            `json:"tx_hash,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	ConfirmedAt *time.Time        `json:"confirmed_at,omitempty"`
}

// NewTransaction creates a pending ledger entry.
func NewTransaction(userID, projectID uuid.UUID, txType TransactionType, amount int64) (*Transaction, error) {
	if !txType.IsValid() {
		return nil, ErrInvalidTransactionType
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return &Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		ProjectID: projectID,
		Type:      txType,
		Amount:    amount,
		Status:    TxPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Confirm marks the entry as settled under the given hash.
func (t *Transaction) Confirm(hash string, at time.Time) {
	t.Status = TxConfirmed
	t.TxHash = hash
	confirmed := at.UTC()
	t.ConfirmedAt = &confirmed
}

// Fail marks the entry as failed.
func (t *Transaction) Fail() {
	t.Status = TxFailed
}

// SignedAmount returns the balance effect of a confirmed entry.
// Pending and failed entries have no effect.
func (t Transaction) SignedAmount() int64 {
	if t.Status != TxConfirmed {
		return 0
	}
	if t.Type.IsDebit() {
		return -t.Amount
	}
	return t.Amount
}

// SumBalance folds a list of entries into a balance.
func SumBalance(txs []Transaction) int64 {
	var total int64
	for _, tx := range txs {
		total += tx.SignedAmount()
	}
	return total
}
