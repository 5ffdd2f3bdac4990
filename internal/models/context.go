// internal/models/context.go
package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

type RiskTolerance string

const (
	RiskLow    RiskTolerance = "low"
	RiskMedium RiskTolerance = "medium"
	RiskHigh   RiskTolerance = "high"
)

// OrDefault returns medium when no tolerance was extracted.
func (r RiskTolerance) OrDefault() RiskTolerance {
	if r == "" {
		return RiskMedium
	}
	return r
}

type Goal string

const (
	GoalRetirement    Goal = "retirement"
	GoalBuyHome       Goal = "buy_home"
	GoalEmergencyFund Goal = "emergency_fund"
)

// Timeframe is a count of singular units (day, week, month, year).
type Timeframe struct {
	Count int    `json:"count"`
	Unit  string `json:"unit"`
}

// Years returns the horizon in years when the timeframe is year-denominated.
// A zero count is treated as no horizon.
func (t *Timeframe) Years() (int, bool) {
	if t == nil || !strings.HasPrefix(t.Unit, "year") || t.Count <= 0 {
		return 0, false
	}
	return t.Count, true
}

// Context holds the parameters extracted from one query. Absent fields are
// left at their zero value and omitted from JSON.
type Context struct {
	Intent                 Intent             `json:"intent,omitempty"`
	Amount                 string             `json:"amount,omitempty"`
	Timeframe              *Timeframe         `json:"timeframe,omitempty"`
	RiskTolerance          RiskTolerance      `json:"riskTolerance,omitempty"`
	Goal                   Goal               `json:"goal,omitempty"`
	ESG                    bool               `json:"esg,omitempty"`
	IncludeHoldings        bool               `json:"includeHoldings,omitempty"`
	IncludeExpenses        bool               `json:"includeExpenses,omitempty"`
	OverrideFixedExpenses  map[string]float64 `json:"overrideFixedExpenses,omitempty"`
	Execute                bool               `json:"execute,omitempty"`
	RequiresMultipleAgents bool               `json:"requiresMultipleAgents"`
}

// AmountValue parses the raw amount. A missing or non-numeric amount is
// reported as absent.
func (c Context) AmountValue() (decimal.Decimal, bool) {
	if c.Amount == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(c.Amount, ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// HorizonYears is shorthand for the timeframe's year horizon.
func (c Context) HorizonYears() (int, bool) {
	return c.Timeframe.Years()
}

// Profile carries standing user preferences that fill fields a query leaves
// unspecified.
type Profile struct {
	Name          string        `json:"name,omitempty"`
	RiskTolerance RiskTolerance `json:"riskTolerance,omitempty"`
	Goal          Goal          `json:"goal,omitempty"`
	HorizonYears  int           `json:"horizonYears,omitempty"`
}

type SimulationParams struct {
	ScenarioType string `json:"scenarioType,omitempty"`
}
