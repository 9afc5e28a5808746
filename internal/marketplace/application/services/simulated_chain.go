package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
	"github.com/google/uuid"
)

// DefaultConfirmDelay mirrors the wallet round trip shown to users.
const DefaultConfirmDelay = 1500 * time.Millisecond

// SimulatedChain stands in for an on-chain transfer. It waits out a
// confirmation delay and hands back a fake transaction hash.
type SimulatedChain struct {
	delay  time.Duration
	logger *slog.Logger
}

// NewSimulatedChain creates a chain with the given confirmation delay.
func NewSimulatedChain(delay time.Duration, logger *slog.Logger) *SimulatedChain {
	if delay < 0 {
		delay = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SimulatedChain{delay: delay, logger: logger}
}

// Submit waits for confirmation and returns the transaction hash.
func (c *SimulatedChain) Submit(ctx context.Context, tx *domain.Transaction) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if c.delay > 0 {
		timer := time.NewTimer(c.delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			c.logger.Warn("transaction confirmation cancelled",
				"tx_id", tx.ID,
				"type", tx.Type,
			)
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	hash := "0x" + hexID() + hexID()
	c.logger.Debug("transaction confirmed",
		"tx_id", tx.ID,
		"type", tx.Type,
		"amount", tx.Amount,
		"hash", hash,
	)
	return hash, nil
}

func hexID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
