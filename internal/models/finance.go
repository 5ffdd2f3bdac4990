// internal/models/finance.go
package models

import "strings"

// Holding is one investment position.
type Holding struct {
	Ticker      string  `json:"ticker,omitempty"`
	Type        string  `json:"type"`
	Quantity    float64 `json:"quantity,omitempty"`
	MarketValue float64 `json:"marketValue"`
}

// IsStock reports whether the holding counts toward the equity share.
func (h Holding) IsStock() bool {
	switch strings.ToLower(h.Type) {
	case "equity", "etf", "stock":
		return true
	}
	return false
}

// IsBond reports whether the holding counts toward the fixed-income share.
func (h Holding) IsBond() bool {
	switch strings.ToLower(h.Type) {
	case "bond", "fixed income":
		return true
	}
	return false
}

// Transaction amounts are positive for inflows and negative for outflows.
// Date is an ISO date (YYYY-MM-DD).
type Transaction struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
}

// FinancialFacts is the optional data bundle the allocation engine works from.
// Nil pointers and nil collections mean the data was unavailable.
type FinancialFacts struct {
	StartingBalance   *float64           `json:"startingBalance,omitempty"`
	Holdings          []Holding          `json:"holdings,omitempty"`
	RecurringExpenses map[string]float64 `json:"recurringExpenses,omitempty"`
	MonthlyIncome     *float64           `json:"monthlyIncome,omitempty"`
}
