// Package bank simulates the external bank-withdrawal service. The real
// integration is a paid API; the simulation keeps its shape (a slow,
// fallible boolean call) so the ledger treats it exactly like the real thing.
package bank

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

type SimulatedGateway struct {
	delay  time.Duration
	logger *slog.Logger
}

func NewSimulatedGateway(delay time.Duration, logger *slog.Logger) *SimulatedGateway {
	return &SimulatedGateway{
		delay:  delay,
		logger: logger,
	}
}

func (g *SimulatedGateway) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal) (bool, error) {
	// emulate the round-trip latency of the real gateway
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-time.After(g.delay):
	}

	g.logger.Info("bank withdrawal processed",
		"user_id", userID,
		"amount", amount.StringFixed(2),
	)

	return true, nil
}
