// internal/findata/provider.go
package findata

import (
	"context"
	"time"

	"finlife-navigator/internal/common/logger"
	"finlife-navigator/internal/common/metrics"
	"finlife-navigator/internal/models"
)

// DateLayout is the ISO date format used on the wire and in transactions.
const DateLayout = "2006-01-02"

// Provider fetches account data for an access token. Every call reports
// absence with ok == false instead of an error; callers degrade gracefully.
type Provider interface {
	Name() string
	GetBalance(ctx context.Context, token string) (balance float64, ok bool)
	GetHoldings(ctx context.Context, token string) (holdings []models.Holding, ok bool)
	GetTransactions(ctx context.Context, token string, from, to time.Time) (txns []models.Transaction, ok bool)
}

// Chain asks each provider in turn and returns the first present answer.
type Chain struct {
	providers []Provider
	logger    logger.Logger
}

func NewChain(log logger.Logger, providers ...Provider) *Chain {
	return &Chain{
		providers: providers,
		logger:    log.WithFields(map[string]interface{}{"component": "findata"}),
	}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) GetBalance(ctx context.Context, token string) (float64, bool) {
	for _, p := range c.providers {
		if v, ok := p.GetBalance(ctx, token); ok {
			return v, true
		}
		c.miss(p, "balance")
	}
	return 0, false
}

func (c *Chain) GetHoldings(ctx context.Context, token string) ([]models.Holding, bool) {
	for _, p := range c.providers {
		if v, ok := p.GetHoldings(ctx, token); ok {
			return v, true
		}
		c.miss(p, "holdings")
	}
	return nil, false
}

func (c *Chain) GetTransactions(ctx context.Context, token string, from, to time.Time) ([]models.Transaction, bool) {
	for _, p := range c.providers {
		if v, ok := p.GetTransactions(ctx, token, from, to); ok {
			return v, true
		}
		c.miss(p, "transactions")
	}
	return nil, false
}

func (c *Chain) miss(p Provider, what string) {
	metrics.CollaboratorFailures.WithLabelValues("findata_" + p.Name()).Inc()
	c.logger.Debug("provider returned no data", map[string]interface{}{
		"provider": p.Name(),
		"kind":     what,
	})
}
