// internal/models/intent.go
package models

import "fmt"

// Intent is the classified category of a user query.
type Intent string

const (
	IntentLifeEvent          Intent = "life_event"
	IntentBudgetOptimization Intent = "budget_optimization"
	IntentInvestmentAnalysis Intent = "investment_analysis"
	IntentSimulation         Intent = "simulation"
	IntentGeneral            Intent = "general"
)

// AllIntents lists every intent, general last.
var AllIntents = []Intent{
	IntentLifeEvent,
	IntentBudgetOptimization,
	IntentInvestmentAnalysis,
	IntentSimulation,
	IntentGeneral,
}

func (i Intent) String() string {
	return string(i)
}

// IsValid reports whether i belongs to the closed intent set.
func (i Intent) IsValid() bool {
	for _, known := range AllIntents {
		if i == known {
			return true
		}
	}
	return false
}

func ParseIntent(s string) (Intent, error) {
	i := Intent(s)
	if !i.IsValid() {
		return "", fmt.Errorf("unknown intent %q", s)
	}
	return i, nil
}
