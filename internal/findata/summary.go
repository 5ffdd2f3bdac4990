// internal/findata/summary.go
package findata

import (
	"github.com/shopspring/decimal"

	"finlife-navigator/internal/models"
)

// minRecurringMonths is how many distinct months a payee must appear in.
const minRecurringMonths = 2

// SummarizeRecurringExpenses returns the average monthly spend per payee for
// payees seen in at least two distinct months. Only outflows count.
func SummarizeRecurringExpenses(txns []models.Transaction) map[string]float64 {
	byPayee := map[string]map[string]decimal.Decimal{}
	for _, t := range txns {
		month, ok := monthOf(t)
		if !ok || t.Name == "" || t.Amount >= 0 {
			continue
		}
		months, exists := byPayee[t.Name]
		if !exists {
			months = map[string]decimal.Decimal{}
			byPayee[t.Name] = months
		}
		months[month] = months[month].Add(decimal.NewFromFloat(t.Amount).Abs())
	}

	recurring := map[string]float64{}
	for name, months := range byPayee {
		if len(months) < minRecurringMonths {
			continue
		}
		recurring[name] = average(months).Round(2).InexactFloat64()
	}
	return recurring
}

// DeriveMonthlyIncome averages inflows per month. It returns nil when there
// are no inflows.
func DeriveMonthlyIncome(txns []models.Transaction) *float64 {
	monthly := map[string]decimal.Decimal{}
	for _, t := range txns {
		month, ok := monthOf(t)
		if !ok || t.Amount <= 0 {
			continue
		}
		monthly[month] = monthly[month].Add(decimal.NewFromFloat(t.Amount))
	}
	if len(monthly) == 0 {
		return nil
	}

	income := average(monthly).Round(2).InexactFloat64()
	return &income
}

func monthOf(t models.Transaction) (string, bool) {
	if len(t.Date) < 7 {
		return "", false
	}
	return t.Date[:7], true
}

func average(values map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total.Div(decimal.NewFromInt(int64(len(values))))
}
