package navigatequery

import (
	"context"

	"finlife-navigator/internal/models"
	"finlife-navigator/internal/orchestrator"
)

type Input struct {
	Query   string          `json:"query"`
	Profile *models.Profile `json:"profile,omitempty"`
	Explain bool            `json:"explain,omitempty"`
}

// Output is the orchestration result as process variables.
type Output = models.OrchestrationResult

// Navigator is satisfied by *orchestrator.Orchestrator.
type Navigator interface {
	Run(ctx context.Context, req orchestrator.Request) *models.OrchestrationResult
}
