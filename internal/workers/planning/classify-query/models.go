package classifyquery

import (
	"finlife-navigator/internal/models"
	"finlife-navigator/internal/planner"
)

type Input struct {
	Query   string          `json:"query"`
	Profile *models.Profile `json:"profile,omitempty"`
}

// Output is the plan written back as process variables.
type Output struct {
	Intent              models.Intent            `json:"intent"`
	Context             models.Context           `json:"context"`
	MatchedIntents      []models.Intent          `json:"matchedIntents"`
	RequiresExplanation bool                     `json:"requiresExplanation"`
	SimulationParams    *models.SimulationParams `json:"simulationParams,omitempty"`
}

// Planner is satisfied by *planner.Planner.
type Planner interface {
	Plan(query string, profile *models.Profile) *planner.Plan
}
