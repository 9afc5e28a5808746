package domain_test

import (
	"testing"
	"time"

	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransaction(t *testing.T) {
	userID := uuid.New()

	tx, err := domain.NewTransaction(userID, uuid.Nil, domain.TxDeposit, 500)

	require.NoError(t, err)
	assert.Equal(t, userID, tx.UserID)
	assert.Equal(t, domain.TxPending, tx.Status)
	assert.Equal(t, int64(0), tx.SignedAmount())
}

func TestNewTransaction_Validation(t *testing.T) {
	_, err := domain.NewTransaction(uuid.New(), uuid.Nil, domain.TxDeposit, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = domain.NewTransaction(uuid.New(), uuid.Nil, domain.TransactionType("gift"), 10)
	assert.ErrorIs(t, err, domain.ErrInvalidTransactionType)
}

func TestTransaction_SignedAmount(t *testing.T) {
	tests := []struct {
		txType domain.TransactionType
		want   int64
	}{
		{domain.TxDeposit, 100},
		{domain.TxWithdraw, -100},
		{domain.TxEscrowFund, -100},
		{domain.TxEscrowRelease, 100},
		{domain.TxEscrowRefund, 100},
	}

	for _, tt := range tests {
		t.Run(string(tt.txType), func(t *testing.T) {
			tx, err := domain.NewTransaction(uuid.New(), uuid.Nil, tt.txType, 100)
			require.NoError(t, err)
			tx.Confirm("0xabc", time.Now())
			assert.Equal(t, tt.want, tx.SignedAmount())
		})
	}
}

func TestSumBalance_IgnoresUnconfirmed(t *testing.T) {
	userID := uuid.New()
	deposit, _ := domain.NewTransaction(userID, uuid.Nil, domain.TxDeposit, 1000)
	deposit.Confirm("0x1", time.Now())
	fund, _ := domain.NewTransaction(userID, uuid.New(), domain.TxEscrowFund, 300)
	fund.Confirm("0x2", time.Now())
	failed, _ := domain.NewTransaction(userID, uuid.Nil, domain.TxWithdraw, 500)
	failed.Fail()

	balance := domain.SumBalance([]domain.Transaction{*deposit, *fund, *failed})

	assert.Equal(t, int64(700), balance)
}

func TestParseTransactionType(t *testing.T) {
	tt, err := domain.ParseTransactionType("escrow_release")
	require.NoError(t, err)
	assert.Equal(t, domain.TxEscrowRelease, tt)

	_, err = domain.ParseTransactionType("DEPOSIT")
	assert.ErrorIs(t, err, domain.ErrInvalidTransactionType)
}
