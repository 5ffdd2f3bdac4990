// internal/agents/agents.go
package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"finlife-navigator/internal/common/logger"
	"finlife-navigator/internal/genai"
	"finlife-navigator/internal/models"
)

// Handler names, also used as metric labels.
const (
	NameLifeEvent  = "life-event"
	NameBudget     = "budget"
	NameInvestment = "investment"
	NameScenario   = "scenario"
	NameGeneral    = "general"
)

const (
	lifeEventConfidence = 0.85
	budgetConfidence    = 0.82
	scenarioConfidence  = 0.78
	generalConfidence   = 0.50

	lifeEventMaxTokens = 100
	budgetMaxTokens    = 80
	scenarioMaxTokens  = 80
	generalMaxTokens   = 80

	defaultScenario = "generic"
)

// PromptHandler is a specialist that turns a request into one prompt and
// returns the generated text with a fixed confidence.
type PromptHandler struct {
	name       string
	confidence float64
	maxTokens  int
	prompt     func(req models.HandlerRequest) string
	metadata   func(req models.HandlerRequest) map[string]interface{}
	generator  genai.Generator
	logger     logger.Logger
}

func newPromptHandler(name string, gen genai.Generator, log logger.Logger) *PromptHandler {
	return &PromptHandler{
		name:      name,
		generator: gen,
		logger:    log.WithFields(map[string]interface{}{"handler": name}),
	}
}

func (h *PromptHandler) Name() string { return h.name }

func (h *PromptHandler) Process(ctx context.Context, req models.HandlerRequest) models.HandlerResult {
	text := h.generator.Generate(ctx, h.prompt(req), h.maxTokens)
	if genai.IsDiagnostic(text) {
		h.logger.Warn("generation degraded", map[string]interface{}{"intent": string(req.Intent)})
	}
	return models.HandlerResult{
		Text:       text,
		Confidence: h.confidence,
		Metadata:   h.metadata(req),
	}
}

// NewLifeEventHandler gives short advice tailored to a life event.
func NewLifeEventHandler(gen genai.Generator, log logger.Logger) *PromptHandler {
	h := newPromptHandler(NameLifeEvent, gen, log)
	h.confidence = lifeEventConfidence
	h.maxTokens = lifeEventMaxTokens
	h.prompt = func(req models.HandlerRequest) string {
		return "You are a helpful financial assistant. Provide a concise plan or set of tips for the following user request. " +
			"If a specific life event is mentioned, tailor the advice accordingly. Limit the response to no more than three sentences." +
			"\nRequest: " + req.Query +
			"\nContext: " + describeContext(req.Context)
	}
	h.metadata = contextMetadata
	return h
}

// NewBudgetHandler suggests how to split disposable income.
func NewBudgetHandler(gen genai.Generator, log logger.Logger) *PromptHandler {
	h := newPromptHandler(NameBudget, gen, log)
	h.confidence = budgetConfidence
	h.maxTokens = budgetMaxTokens
	h.prompt = func(req models.HandlerRequest) string {
		return "You are a budgeting expert. Provide a short recommendation for how to allocate a user's disposable income. " +
			"Include specific dollar amounts if provided. Limit to two sentences." +
			"\nContext: " + describeContext(req.Context)
	}
	h.metadata = contextMetadata
	return h
}

// NewScenarioHandler describes the impact of a simulated scenario.
func NewScenarioHandler(gen genai.Generator, log logger.Logger) *PromptHandler {
	h := newPromptHandler(NameScenario, gen, log)
	h.confidence = scenarioConfidence
	h.maxTokens = scenarioMaxTokens
	h.prompt = func(req models.HandlerRequest) string {
		return fmt.Sprintf(
			"Briefly describe the financial impact of a %s scenario. If a timeframe is provided include it.\nTimeframe: %s",
			scenarioOf(req), describeTimeframe(req.Context.Timeframe),
		)
	}
	h.metadata = func(req models.HandlerRequest) map[string]interface{} {
		return map[string]interface{}{
			"scenario":  scenarioOf(req),
			"timeframe": req.Context.Timeframe,
		}
	}
	return h
}

// NewGeneralHandler answers queries no specialist claimed.
func NewGeneralHandler(gen genai.Generator, log logger.Logger) *PromptHandler {
	h := newPromptHandler(NameGeneral, gen, log)
	h.confidence = generalConfidence
	h.maxTokens = generalMaxTokens
	h.prompt = func(req models.HandlerRequest) string {
		return "You are a helpful financial assistant. Answer the following question briefly and in plain language. " +
			"Limit the response to two sentences." +
			"\nQuestion: " + req.Query
	}
	h.metadata = contextMetadata
	return h
}

func scenarioOf(req models.HandlerRequest) string {
	if req.SimulationParams != nil && req.SimulationParams.ScenarioType != "" {
		return req.SimulationParams.ScenarioType
	}
	return defaultScenario
}

func contextMetadata(req models.HandlerRequest) map[string]interface{} {
	return map[string]interface{}{"context": req.Context}
}

func describeContext(c models.Context) string {
	data, err := json.Marshal(c)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func describeTimeframe(t *models.Timeframe) string {
	if t == nil {
		return "none"
	}
	unit := t.Unit
	if t.Count != 1 {
		unit += "s"
	}
	return fmt.Sprintf("%d %s", t.Count, unit)
}
