package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
	"github.com/felixgeelhaar/escrowly/internal/shared/infrastructure/database"
)

// SQLLedger stores ledger entries in the transactions table. The same
// statements run on SQLite and PostgreSQL; placeholders are rebound per driver.
type SQLLedger struct {
	conn database.Connection
}

var _ domain.Ledger = (*SQLLedger)(nil)

// NewSQLLedger creates a ledger over conn.
func NewSQLLedger(conn database.Connection) *SQLLedger {
	return &SQLLedger{conn: conn}
}

func (l *SQLLedger) q(query string) string {
	return database.Rebind(l.conn.Driver(), query)
}

func (l *SQLLedger) Append(ctx context.Context, tx *domain.Transaction) error {
	projectID := ""
	if tx.ProjectID != uuid.Nil {
		projectID = tx.ProjectID.String()
	}
	_, err := database.ExecutorFromContext(ctx, l.conn).Exec(ctx, l.q(`
		INSERT INTO transactions (id, user_id, project_id, type, amount, status, tx_hash, created_at, confirmed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		tx.ID.String(), tx.UserID.String(), projectID, string(tx.Type), tx.Amount,
		string(tx.Status), tx.TxHash, database.FormatTime(tx.CreatedAt), database.FormatTimePtr(tx.ConfirmedAt),
	)
	return err
}

func (l *SQLLedger) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	rows, err := database.ExecutorFromContext(ctx, l.conn).Query(ctx, l.q(`
		SELECT id, user_id, project_id, type, amount, status, tx_hash, created_at, confirmed_at
		FROM transactions WHERE user_id = ? ORDER BY seq`), userID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Transaction{}
	for rows.Next() {
		var (
			id, user, project, typ, status, createdAt string
			confirmedAt                               sql.NullString
			tx                                        domain.Transaction
		)
		if err := rows.Scan(&id, &user, &project, &typ, &tx.Amount, &status, &tx.TxHash, &createdAt, &confirmedAt); err != nil {
			return nil, err
		}
		if tx.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid transaction id %q: %w", id, err)
		}
		if tx.UserID, err = uuid.Parse(user); err != nil {
			return nil, fmt.Errorf("invalid user_id: %w", err)
		}
		if project != "" {
			if tx.ProjectID, err = uuid.Parse(project); err != nil {
				return nil, fmt.Errorf("invalid project_id: %w", err)
			}
		}
		tx.Type = domain.TransactionType(typ)
		tx.Status = domain.TransactionStatus(status)
		if tx.CreatedAt, err = database.ParseTime(createdAt); err != nil {
			return nil, fmt.Errorf("invalid created_at: %w", err)
		}
		if tx.ConfirmedAt, err = database.ParseTimePtr(confirmedAt); err != nil {
			return nil, fmt.Errorf("invalid confirmed_at: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// Balance sums confirmed entries in the database.
func (l *SQLLedger) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := database.ExecutorFromContext(ctx, l.conn).QueryRow(ctx, l.q(`
		SELECT CAST(COALESCE(SUM(CASE WHEN type IN (?, ?) THEN -amount ELSE amount END), 0) AS BIGINT)
		FROM transactions WHERE user_id = ? AND status = ?`),
		string(domain.TxWithdraw), string(domain.TxEscrowFund), userID.String(), string(domain.TxConfirmed),
	).Scan(&balance)
	return balance, err
}
