// internal/findata/gather.go
package findata

import (
	"context"
	"time"

	"finlife-navigator/internal/models"
)

// TransactionWindow is how far back expenses and income are derived from.
const TransactionWindow = 90 * 24 * time.Hour

// Gatherer assembles FinancialFacts for one request.
type Gatherer struct {
	provider Provider
	now      func() time.Time
}

func NewGatherer(provider Provider) *Gatherer {
	return &Gatherer{provider: provider, now: time.Now}
}

// Gather always asks for the balance; holdings and the transaction-derived
// figures only when the context requests them. Anything unavailable is left
// absent in the result.
func (g *Gatherer) Gather(ctx context.Context, token string, c models.Context) *models.FinancialFacts {
	facts := &models.FinancialFacts{}
	if token == "" {
		return facts
	}

	if balance, ok := g.provider.GetBalance(ctx, token); ok {
		facts.StartingBalance = &balance
	}

	if c.IncludeHoldings {
		if holdings, ok := g.provider.GetHoldings(ctx, token); ok {
			facts.Holdings = holdings
		}
	}

	if c.IncludeExpenses {
		to := g.now()
		from := to.Add(-TransactionWindow)
		if txns, ok := g.provider.GetTransactions(ctx, token, from, to); ok {
			facts.RecurringExpenses = SummarizeRecurringExpenses(txns)
			facts.MonthlyIncome = DeriveMonthlyIncome(txns)
		}
	}

	return facts
}
