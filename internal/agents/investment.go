// internal/agents/investment.go
package agents

import (
	"context"
	"time"

	"finlife-navigator/internal/allocation"
	"finlife-navigator/internal/common/errors"
	"finlife-navigator/internal/common/logger"
	"finlife-navigator/internal/findata"
	"finlife-navigator/internal/genai"
	"finlife-navigator/internal/models"
)

const (
	investmentMaxTokens = 60
	suggestionPrefix    = "Provide a short investment suggestion based on: "
)

type InvestmentOption func(*InvestmentHandler)

// WithFinancialData enables account lookups for confirmed requests.
func WithFinancialData(gatherer *findata.Gatherer, accessToken string) InvestmentOption {
	return func(h *InvestmentHandler) {
		h.gatherer = gatherer
		h.accessToken = accessToken
	}
}

func WithExecutionNotifier(n ExecutionNotifier) InvestmentOption {
	return func(h *InvestmentHandler) {
		h.notifier = n
	}
}

// InvestmentHandler runs the allocation engine and narrates its result.
type InvestmentHandler struct {
	engine      *allocation.Engine
	generator   genai.Generator
	gatherer    *findata.Gatherer
	accessToken string
	notifier    ExecutionNotifier
	logger      logger.Logger
	now         func() time.Time
}

func NewInvestmentHandler(engine *allocation.Engine, gen genai.Generator, log logger.Logger, opts ...InvestmentOption) *InvestmentHandler {
	h := &InvestmentHandler{
		engine:    engine,
		generator: gen,
		logger:    log.WithFields(map[string]interface{}{"handler": NameInvestment}),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *InvestmentHandler) Name() string { return NameInvestment }

func (h *InvestmentHandler) Process(ctx context.Context, req models.HandlerRequest) models.HandlerResult {
	alloc := h.engine.Allocate(ctx, req.Context, h.facts(ctx, req.Context))

	base := Narrate(alloc)
	prompt := base
	if alloc.Base != allocation.BaseNone {
		prompt = suggestionPrefix + base
	}
	text := h.generator.Generate(ctx, prompt, investmentMaxTokens)

	if alloc.Execute && alloc.Base == allocation.BaseLumpSum {
		h.notify(ctx, alloc)
	}

	return alloc.HandlerResult(text)
}

// Allocate exposes the engine for callers that need the raw fact bundle.
func (h *InvestmentHandler) Allocate(ctx context.Context, c models.Context) *allocation.Allocation {
	return h.engine.Allocate(ctx, c, h.facts(ctx, c))
}

// facts are fetched only for confirmed requests with a configured token.
func (h *InvestmentHandler) facts(ctx context.Context, c models.Context) *models.FinancialFacts {
	if !c.Execute || h.gatherer == nil || h.accessToken == "" {
		return nil
	}
	return h.gatherer.Gather(ctx, h.accessToken, c)
}

func (h *InvestmentHandler) notify(ctx context.Context, alloc *allocation.Allocation) {
	if h.notifier == nil || alloc.Split == nil {
		return
	}

	notice := ExecutionNotice{
		RequestedAt: h.now().UTC(),
		Risk:        string(alloc.Risk),
		Goal:        string(alloc.Goal),
		Amount:      alloc.BaseAmount,
		Stocks:      alloc.Split.Stocks,
		Bonds:       alloc.Split.Bonds,
		Cash:        alloc.Split.Cash,
	}
	if balance, ok := alloc.ProjectedBalance(); ok {
		notice.ProjectedBalance = &balance
	}

	if err := h.notifier.NotifyExecution(ctx, notice); err != nil {
		stdErr := errors.NewNotificationSendFailedError("sns", err)
		h.logger.Error("execution notice failed", map[string]interface{}{
			"errorCode": string(stdErr.Code),
			"details":   stdErr.Details,
		})
		return
	}
	h.logger.Info("execution notice sent", map[string]interface{}{
		"amount": alloc.BaseAmount,
	})
}
