// internal/agents/narration.go
package agents

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"finlife-navigator/internal/allocation"
)

// Narrate states an allocation as plain sentences. The wording depends on the
// investable base.
func Narrate(a *allocation.Allocation) string {
	switch a.Base {
	case allocation.BaseLumpSum:
		return narrateLumpSum(a)
	case allocation.BaseMonthly:
		return narrateMonthly(a)
	}
	return fmt.Sprintf("Allocate %s stocks, %s bonds and %s cash for a diversified portfolio.",
		pct(a.Mix.Stock), pct(a.Mix.Bond), pct(a.Mix.Cash))
}

func narrateLumpSum(a *allocation.Allocation) string {
	s := a.Split
	var b strings.Builder
	fmt.Fprintf(&b, "Invest %s in stocks, %s in bonds, and keep %s in cash or equivalents.",
		money(s.Stocks), money(s.Bonds), money(s.Cash))

	if balance, ok := a.ProjectedBalance(); ok && a.Execute {
		fmt.Fprintf(&b, " Your new balance could be around %s.", money(balance))
	}

	growth := make([]string, 0, len(a.Projections))
	for _, p := range a.Projections {
		growth = append(growth, fmt.Sprintf("%s in %dy", money(p.Value), p.Years))
	}
	if len(growth) > 0 {
		fmt.Fprintf(&b, " Potential growth: %s.", strings.Join(growth, ", "))
	}

	if a.ESG {
		b.WriteString(" ESG preferences noted.")
	}

	text := b.String()
	if a.Goal != "" {
		text = fmt.Sprintf("Goal: %s. ", a.Goal) + text
	}
	return text
}

func narrateMonthly(a *allocation.Allocation) string {
	if a.NoDiscretionaryIncome() || a.Split == nil {
		income := 0.0
		if a.MonthlyIncome != nil {
			income = *a.MonthlyIncome
		}
		return fmt.Sprintf("Your fixed expenses of %s use up your monthly income of %s, so there is nothing left to invest each month.",
			money(income-a.BaseAmount), money(income))
	}

	s := a.Split
	text := fmt.Sprintf("Each month invest %s in stocks, %s in bonds, and keep %s in cash from your available funds.",
		money(s.Stocks), money(s.Bonds), money(s.Cash))

	if p := a.Portfolio; p != nil && len(a.Holdings) > 0 {
		text += fmt.Sprintf(" Your portfolio is currently %s stocks, %s bonds, %s cash.",
			pct(p.StockPct), pct(p.BondPct), pct(p.CashPct))
		text += fmt.Sprintf(" To reach the target %s/%s/%s, direct new contributions toward %s in stocks and %s in bonds.",
			pctNumber(a.Mix.Stock), pctNumber(a.Mix.Bond), pctNumber(a.Mix.Cash),
			money(p.StockDeficit), money(p.BondDeficit))
	}
	return text
}

func money(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "$" + strconv.FormatFloat(v, 'f', 2, 64)
	}
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}

func pct(share float64) string {
	return pctNumber(share) + "%"
}

func pctNumber(share float64) string {
	return fmt.Sprintf("%.0f", share*100)
}
