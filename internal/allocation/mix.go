// internal/allocation/mix.go
package allocation

import (
	"context"
	"fmt"
	"math"

	"finlife-navigator/internal/common/validation"
	"finlife-navigator/internal/models"
)

const (
	baseStockShare   = 0.3
	stockShareRange  = 0.6
	shortHorizonCash = 0.10
	defaultCash      = 0.05
	neutralTimeScore = 0.5
	fullHorizonYears = 30.0
	shortHorizonYrs  = 5

	mixSumTolerance = 0.01
	mixMaxTokens    = 60
)

const (
	MixSourceHeuristic = "heuristic"
	MixSourceModel     = "model"
)

var riskScores = map[models.RiskTolerance]float64{
	models.RiskLow:    0.4,
	models.RiskMedium: 0.6,
	models.RiskHigh:   0.8,
}

// Mix is a target allocation as shares of one. When BondClamped is set the
// stock and cash shares alone exceed one and Bond is zero; the shares are
// reported as computed, not renormalized.
type Mix struct {
	Stock       float64 `json:"stockPct"`
	Bond        float64 `json:"bondPct"`
	Cash        float64 `json:"cashPct"`
	BondClamped bool    `json:"bondClamped,omitempty"`
	Source      string  `json:"source"`
}

func (m Mix) Sum() float64 {
	return m.Stock + m.Bond + m.Cash
}

// RiskScore maps a tolerance to its score; unknown or empty means medium.
func RiskScore(r models.RiskTolerance) float64 {
	if s, ok := riskScores[r]; ok {
		return s
	}
	return riskScores[models.RiskMedium]
}

// TimeScore scales a known horizon over thirty years, capped at one.
func TimeScore(years int, known bool) float64 {
	if !known {
		return neutralTimeScore
	}
	return math.Min(float64(years)/fullHorizonYears, 1.0)
}

// DeriveMix computes the heuristic target mix.
func DeriveMix(risk models.RiskTolerance, years int, known bool) Mix {
	return deriveMix(RiskScore(risk), TimeScore(years, known), known && years < shortHorizonYrs)
}

func deriveMix(riskScore, timeScore float64, shortHorizon bool) Mix {
	stock := baseStockShare + stockShareRange*(0.5*riskScore+0.5*timeScore)

	cash := defaultCash
	if shortHorizon {
		cash = shortHorizonCash
	}

	bond := 1.0 - stock - cash
	clamped := false
	if bond < 0 {
		bond = 0
		clamped = true
	}

	return Mix{
		Stock:       stock,
		Bond:        bond,
		Cash:        cash,
		BondClamped: clamped,
		Source:      MixSourceHeuristic,
	}
}

// MixAdvisor is the structured-generation collaborator. It returns nil on
// any failure.
type MixAdvisor interface {
	GenerateStructured(ctx context.Context, prompt string, maxTokens int) map[string]interface{}
}

var mixSchema = func() map[string]interface{} {
	share := map[string]interface{}{"type": "number", "minimum": 0, "maximum": 1}
	return map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"stocks", "bonds", "cash"},
		"properties": map[string]interface{}{
			"stocks": share,
			"bonds":  share,
			"cash":   share,
		},
	}
}()

func mixPrompt(risk models.RiskTolerance, years int, known bool) string {
	horizon := "an unspecified"
	if known {
		horizon = fmt.Sprintf("a %d-year", years)
	}
	return fmt.Sprintf(
		"Suggest a portfolio allocation for an investor with %s risk tolerance and %s time horizon. "+
			"Respond only with JSON of the form {\"stocks\": 0.6, \"bonds\": 0.35, \"cash\": 0.05} where the values sum to 1.",
		risk.OrDefault(), horizon,
	)
}

// parseModelMix treats suggestion as untrusted: it must carry numeric
// stocks, bonds and cash in [0,1] summing to one.
func parseModelMix(suggestion map[string]interface{}) (Mix, error) {
	if suggestion == nil {
		return Mix{}, fmt.Errorf("no suggestion")
	}

	result, err := validation.Validate(mixSchema, suggestion)
	if err != nil {
		return Mix{}, err
	}
	if !result.Valid {
		return Mix{}, fmt.Errorf("invalid suggestion: %s", result.Error())
	}

	stock, _ := suggestion["stocks"].(float64)
	bond, _ := suggestion["bonds"].(float64)
	cash, _ := suggestion["cash"].(float64)

	mix := Mix{Stock: stock, Bond: bond, Cash: cash, Source: MixSourceModel}
	if math.Abs(mix.Sum()-1.0) > mixSumTolerance {
		return Mix{}, fmt.Errorf("suggestion sums to %.4f", mix.Sum())
	}
	return mix, nil
}
