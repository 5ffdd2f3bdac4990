// internal/allocation/engine.go
package allocation

import (
	"context"
	"math"

	"finlife-navigator/internal/common/logger"
	"finlife-navigator/internal/models"
)

// Confidence is attached to every allocation result.
const Confidence = 0.88

// Nominal annual growth rates used for projections.
const (
	stockGrowthRate = 0.07
	bondGrowthRate  = 0.03
	cashGrowthRate  = 0.02
)

// ProjectionYears are the horizons reported for a lump-sum base.
var ProjectionYears = []int{5, 10, 20}

// BaseKind says which figure the dollar split was computed from.
type BaseKind string

const (
	BaseNone    BaseKind = "none"
	BaseLumpSum BaseKind = "lump_sum"
	BaseMonthly BaseKind = "monthly"
)

type Split struct {
	Stocks float64 `json:"stocks"`
	Bonds  float64 `json:"bonds"`
	Cash   float64 `json:"cash"`
}

// Portfolio describes current holdings against the target mix. Deficits are
// where new contributions should go; they are not a rebalance order.
type Portfolio struct {
	TotalValue   float64 `json:"totalValue"`
	StockValue   float64 `json:"stockValue"`
	BondValue    float64 `json:"bondValue"`
	CashValue    float64 `json:"cashValue"`
	StockPct     float64 `json:"stockPct"`
	BondPct      float64 `json:"bondPct"`
	CashPct      float64 `json:"cashPct"`
	StockDeficit float64 `json:"stockDeficit"`
	BondDeficit  float64 `json:"bondDeficit"`
}

type Projection struct {
	Years int     `json:"years"`
	Value float64 `json:"value"`
}

// Allocation is the fact bundle computed for one request. It carries numbers
// and labels only; narration happens elsewhere.
type Allocation struct {
	Risk                   models.RiskTolerance `json:"risk"`
	Goal                   models.Goal          `json:"goal,omitempty"`
	HorizonYears           *int                 `json:"horizonYears,omitempty"`
	ESG                    bool                 `json:"esg,omitempty"`
	Execute                bool                 `json:"execute,omitempty"`
	Mix                    Mix                  `json:"mix"`
	Base                   BaseKind             `json:"base"`
	BaseAmount             float64              `json:"baseAmount"`
	Split                  *Split               `json:"split,omitempty"`
	Amount                 *float64             `json:"amount,omitempty"`
	MonthlyIncome          *float64             `json:"monthlyIncome,omitempty"`
	FixedExpenses          map[string]float64   `json:"fixedExpenses,omitempty"`
	AvailableForInvestment *float64             `json:"availableForInvestment,omitempty"`
	StartingBalance        *float64             `json:"startingBalance,omitempty"`
	Holdings               []models.Holding     `json:"holdings,omitempty"`
	Portfolio              *Portfolio           `json:"portfolio,omitempty"`
	Projections            []Projection         `json:"projections,omitempty"`
	Confidence             float64              `json:"confidence"`
}

// NoDiscretionaryIncome reports a monthly base that leaves nothing to invest.
func (a *Allocation) NoDiscretionaryIncome() bool {
	return a.Base == BaseMonthly && a.BaseAmount <= 0
}

// ProjectedBalance is the starting balance plus a lump-sum amount.
func (a *Allocation) ProjectedBalance() (float64, bool) {
	if a.Base != BaseLumpSum || a.StartingBalance == nil {
		return 0, false
	}
	return *a.StartingBalance + a.BaseAmount, true
}

// Metadata flattens the allocation for a HandlerResult.
func (a *Allocation) Metadata() map[string]interface{} {
	meta := map[string]interface{}{
		"risk":                   string(a.Risk),
		"goal":                   string(a.Goal),
		"stockPct":               a.Mix.Stock,
		"bondPct":                a.Mix.Bond,
		"cashPct":                a.Mix.Cash,
		"bondClamped":            a.Mix.BondClamped,
		"mixSource":              a.Mix.Source,
		"base":                   string(a.Base),
		"holdings":               a.Holdings,
		"fixedExpenses":          a.FixedExpenses,
		"amount":                 a.Amount,
		"horizon":                a.HorizonYears,
		"monthlyIncome":          a.MonthlyIncome,
		"availableForInvestment": a.AvailableForInvestment,
	}
	if a.Split != nil {
		meta["split"] = *a.Split
	}
	if a.Portfolio != nil {
		meta["portfolio"] = *a.Portfolio
	}
	if len(a.Projections) > 0 {
		meta["projections"] = a.Projections
	}
	if a.StartingBalance != nil {
		meta["startingBalance"] = *a.StartingBalance
	}
	return meta
}

// HandlerResult pairs the allocation with its narrative text.
func (a *Allocation) HandlerResult(text string) models.HandlerResult {
	return models.HandlerResult{
		Text:       text,
		Confidence: a.Confidence,
		Metadata:   a.Metadata(),
	}
}

type Option func(*Engine)

// WithMixAdvisor lets a structured-generation collaborator propose the target
// mix. Invalid proposals fall back to the heuristic.
func WithMixAdvisor(advisor MixAdvisor) Option {
	return func(e *Engine) {
		e.advisor = advisor
	}
}

// Engine computes allocations. It holds no per-request state and is safe for
// concurrent use.
type Engine struct {
	advisor MixAdvisor
	logger  logger.Logger
}

func NewEngine(log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		logger: log.WithFields(map[string]interface{}{"component": "allocation"}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Allocate derives the target mix, the investable base, rebalancing deficits
// and growth projections. facts may be nil. It never fails: missing data
// narrows the result down to percentages only.
func (e *Engine) Allocate(ctx context.Context, c models.Context, facts *models.FinancialFacts) *Allocation {
	if facts == nil {
		facts = &models.FinancialFacts{}
	}

	risk := c.RiskTolerance.OrDefault()
	years, known := c.HorizonYears()

	alloc := &Allocation{
		Risk:            risk,
		Goal:            c.Goal,
		ESG:             c.ESG,
		Execute:         c.Execute,
		Mix:             e.targetMix(ctx, risk, years, known),
		Base:            BaseNone,
		StartingBalance: facts.StartingBalance,
		Holdings:        facts.Holdings,
		MonthlyIncome:   facts.MonthlyIncome,
		Confidence:      Confidence,
	}
	if known {
		alloc.HorizonYears = &years
	}

	alloc.FixedExpenses = mergeExpenses(facts.RecurringExpenses, c.OverrideFixedExpenses)
	if facts.MonthlyIncome != nil && *facts.MonthlyIncome != 0 {
		available := *facts.MonthlyIncome - sumValues(alloc.FixedExpenses)
		if finite(available) {
			alloc.AvailableForInvestment = &available
		}
	}

	if facts.StartingBalance != nil || len(facts.Holdings) > 0 {
		alloc.Portfolio = snapshot(facts, alloc.Mix)
	}

	if a, ok := lumpSum(c); ok {
		alloc.Amount = &a
		alloc.Base = BaseLumpSum
		alloc.BaseAmount = a
		alloc.Split = split(a, alloc.Mix)
		alloc.Projections = project(*alloc.Split, facts.StartingBalance)
	} else if alloc.AvailableForInvestment != nil {
		alloc.Base = BaseMonthly
		alloc.BaseAmount = *alloc.AvailableForInvestment
		if alloc.BaseAmount > 0 {
			alloc.Split = split(alloc.BaseAmount, alloc.Mix)
		}
	}

	e.logger.Debug("allocation computed", map[string]interface{}{
		"risk":        string(risk),
		"base":        string(alloc.Base),
		"stockPct":    alloc.Mix.Stock,
		"mixSource":   alloc.Mix.Source,
		"bondClamped": alloc.Mix.BondClamped,
	})

	return alloc
}

func (e *Engine) targetMix(ctx context.Context, risk models.RiskTolerance, years int, known bool) Mix {
	heuristic := DeriveMix(risk, years, known)
	if e.advisor == nil {
		return heuristic
	}

	mix, err := parseModelMix(e.advisor.GenerateStructured(ctx, mixPrompt(risk, years, known), mixMaxTokens))
	if err != nil {
		e.logger.Warn("model mix rejected, using heuristic", map[string]interface{}{
			"error": err.Error(),
		})
		return heuristic
	}
	return mix
}

// lumpSum is the explicit amount as a float. An amount too large for a
// float64 is treated like an unparseable one.
func lumpSum(c models.Context) (float64, bool) {
	amount, ok := c.AmountValue()
	if !ok {
		return 0, false
	}
	a := amount.InexactFloat64()
	if !finite(a) {
		return 0, false
	}
	return a, true
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

func mergeExpenses(recurring, overrides map[string]float64) map[string]float64 {
	if len(recurring) == 0 && len(overrides) == 0 {
		return nil
	}
	out := make(map[string]float64, len(recurring)+len(overrides))
	for k, v := range recurring {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

func sumValues(m map[string]float64) float64 {
	total := 0.0
	for _, v := range m {
		total += v
	}
	return total
}

func split(base float64, mix Mix) *Split {
	return &Split{
		Stocks: base * mix.Stock,
		Bonds:  base * mix.Bond,
		Cash:   base * mix.Cash,
	}
}

func snapshot(facts *models.FinancialFacts, target Mix) *Portfolio {
	p := &Portfolio{}
	if facts.StartingBalance != nil {
		p.CashValue = *facts.StartingBalance
	}
	p.TotalValue = p.CashValue
	for _, h := range facts.Holdings {
		p.TotalValue += h.MarketValue
		switch {
		case h.IsStock():
			p.StockValue += h.MarketValue
		case h.IsBond():
			p.BondValue += h.MarketValue
		}
	}

	if !finite(p.TotalValue) {
		return nil
	}

	if p.TotalValue != 0 {
		p.StockPct = p.StockValue / p.TotalValue
		p.BondPct = p.BondValue / p.TotalValue
		p.CashPct = p.CashValue / p.TotalValue
	}

	p.StockDeficit = math.Max(0, target.Stock-p.StockPct) * p.TotalValue
	p.BondDeficit = math.Max(0, target.Bond-p.BondPct) * p.TotalValue
	return p
}

func project(s Split, startingBalance *float64) []Projection {
	out := make([]Projection, 0, len(ProjectionYears))
	for _, y := range ProjectionYears {
		yrs := float64(y)
		total := s.Stocks*math.Pow(1+stockGrowthRate, yrs) +
			s.Bonds*math.Pow(1+bondGrowthRate, yrs) +
			s.Cash*math.Pow(1+cashGrowthRate, yrs)
		if startingBalance != nil {
			total += *startingBalance
		}
		if !finite(total) {
			break
		}
		out = append(out, Projection{Years: y, Value: total})
	}
	return out
}
