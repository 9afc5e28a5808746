package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
)

// DefaultLedgerKeyPrefix namespaces ledger lists in Redis.
const DefaultLedgerKeyPrefix = "escrowly:ledger:"

// RedisLedger keeps one list per user; RPUSH preserves append order.
type RedisLedger struct {
	client *redis.Client
	prefix string
}

var _ domain.Ledger = (*RedisLedger)(nil)

// NewRedisLedger creates a ledger over client.
func NewRedisLedger(client *redis.Client) *RedisLedger {
	return &RedisLedger{client: client, prefix: DefaultLedgerKeyPrefix}
}

// WithPrefix returns a copy using a different key prefix.
func (l *RedisLedger) WithPrefix(prefix string) *RedisLedger {
	return &RedisLedger{client: l.client, prefix: prefix}
}

func (l *RedisLedger) key(userID uuid.UUID) string {
	return l.prefix + userID.String()
}

func (l *RedisLedger) Append(ctx context.Context, tx *domain.Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("encode transaction: %w", err)
	}
	return l.client.RPush(ctx, l.key(tx.UserID), data).Err()
}

func (l *RedisLedger) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	raw, err := l.client.LRange(ctx, l.key(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Transaction, 0, len(raw))
	for i, item := range raw {
		var tx domain.Transaction
		if err := json.Unmarshal([]byte(item), &tx); err != nil {
			return nil, fmt.Errorf("decode ledger entry %d: %w", i, err)
		}
		out = append(out, tx)
	}
	return out, nil
}

func (l *RedisLedger) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	txs, err := l.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return domain.SumBalance(txs), nil
}
