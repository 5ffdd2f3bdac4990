// internal/planner/planner.go
package planner

import (
	"strings"

	"finlife-navigator/internal/models"
)

var explanationKeywords = []string{
	"explain", "eli5", "simple", "understand", "clarify",
	"break down", "help me", "what does",
}

// Plan is the classified, extracted form of one query.
type Plan struct {
	Query               string                   `json:"query"`
	Intent              models.Intent            `json:"intent"`
	Context             models.Context           `json:"context"`
	MatchedIntents      []models.Intent          `json:"matchedIntents,omitempty"`
	RequiresExplanation bool                     `json:"requiresExplanation"`
	SimulationParams    *models.SimulationParams `json:"simulationParams,omitempty"`
}

// Planner runs the classifier and extractor over a query.
type Planner struct {
	classifier *Classifier
	extractor  *Extractor
}

func New(table *PatternTable) *Planner {
	return &Planner{
		classifier: NewClassifier(table),
		extractor:  NewExtractor(table),
	}
}

func (p *Planner) Classifier() *Classifier { return p.classifier }

func (p *Planner) Extractor() *Extractor { return p.extractor }

// Plan classifies and extracts query. A non-nil profile fills context fields
// the query left unspecified; values found in the query always win.
func (p *Planner) Plan(query string, profile *models.Profile) *Plan {
	intent := p.classifier.Classify(query)
	ctx := p.extractor.Extract(query, intent)
	if profile != nil {
		ctx = seedFromProfile(ctx, *profile)
	}

	plan := &Plan{
		Query:               query,
		Intent:              intent,
		Context:             ctx,
		MatchedIntents:      p.extractor.MatchedIntents(query),
		RequiresExplanation: NeedsExplanation(query),
	}
	if intent == models.IntentSimulation {
		plan.SimulationParams = ExtractSimulationParams(query)
	}
	return plan
}

// NeedsExplanation reports whether the user asked for a plain-language
// restatement.
func NeedsExplanation(query string) bool {
	return containsAny(strings.ToLower(query), explanationKeywords)
}

// ExtractSimulationParams detects the scenario a simulation query refers to.
// Unknown scenarios leave ScenarioType empty.
func ExtractSimulationParams(query string) *models.SimulationParams {
	lowered := strings.ToLower(query)
	params := &models.SimulationParams{}
	switch {
	case strings.Contains(lowered, "job loss") || strings.Contains(lowered, "quit"):
		params.ScenarioType = "job_loss"
	case strings.Contains(lowered, "emergency"):
		params.ScenarioType = "emergency"
	case strings.Contains(lowered, "market crash"):
		params.ScenarioType = "market_downturn"
	}
	return params
}

func seedFromProfile(ctx models.Context, profile models.Profile) models.Context {
	if ctx.RiskTolerance == "" && profile.RiskTolerance != "" {
		ctx.RiskTolerance = profile.RiskTolerance
	}
	if ctx.Goal == "" && profile.Goal != "" {
		ctx.Goal = profile.Goal
	}
	if ctx.Timeframe == nil && profile.HorizonYears > 0 {
		ctx.Timeframe = &models.Timeframe{Count: profile.HorizonYears, Unit: "year"}
	}
	return ctx
}
