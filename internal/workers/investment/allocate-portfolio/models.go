package allocateportfolio

import (
	"context"

	"finlife-navigator/internal/allocation"
	"finlife-navigator/internal/models"
)

type Input struct {
	Context models.Context         `json:"context"`
	Facts   *models.FinancialFacts `json:"facts,omitempty"`
}

type Output struct {
	Allocation *allocation.Allocation `json:"allocation"`
	Summary    string                 `json:"summary"`
}

// Allocator is satisfied by *allocation.Engine.
type Allocator interface {
	Allocate(ctx context.Context, c models.Context, facts *models.FinancialFacts) *allocation.Allocation
}
