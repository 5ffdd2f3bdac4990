// internal/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"finlife-navigator/internal/common/logger"
	"finlife-navigator/internal/common/metrics"
	"finlife-navigator/internal/models"
	"finlife-navigator/internal/planner"
)

const (
	StatusCompleted = "completed"
	StatusEmpty     = "empty"
)

// Explainer restates a final text in plain language.
type Explainer interface {
	Explain(ctx context.Context, text string) string
}

// Observer receives per-query measurements.
type Observer interface {
	RecordQueryProcessed(ctx context.Context, intent, status string)
	RecordQueryDuration(ctx context.Context, d time.Duration, intent string)
}

type Config struct {
	ParallelDispatch bool
	// MaxParallelHandlers caps concurrent handlers in parallel dispatch.
	// Zero runs every dispatched handler at once.
	MaxParallelHandlers int
	HandlerTimeout      time.Duration
}

// Request is one query to orchestrate. Profile may be nil. ForceExplanation
// adds the explanation step even if the query did not ask for it.
type Request struct {
	Query            string
	Profile          *models.Profile
	ForceExplanation bool
}

type Option func(*Orchestrator)

func WithObserver(o Observer) Option {
	return func(orch *Orchestrator) {
		orch.observer = o
	}
}

func WithExplainer(e Explainer) Option {
	return func(orch *Orchestrator) {
		orch.explainer = e
	}
}

// Orchestrator runs classify, dispatch, aggregate and explain for a query. It
// holds no per-query state and is safe for concurrent use.
type Orchestrator struct {
	planner    *planner.Planner
	handlers   *HandlerTable
	aggregator *Aggregator
	explainer  Explainer
	observer   Observer
	config     Config
	logger     logger.Logger
	newID      func() string
	now        func() time.Time
}

func New(p *planner.Planner, handlers *HandlerTable, summarizer Summarizer, cfg Config, log logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		planner:    p,
		handlers:   handlers,
		aggregator: NewAggregator(summarizer),
		config:     cfg,
		logger:     log.WithFields(map[string]interface{}{"component": "orchestrator"}),
		newID:      uuid.NewString,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Plan exposes classification and extraction on their own.
func (o *Orchestrator) Plan(query string, profile *models.Profile) *planner.Plan {
	return o.planner.Plan(query, profile)
}

// Run never fails. Collaborator trouble is carried in the result text.
func (o *Orchestrator) Run(ctx context.Context, req Request) *models.OrchestrationResult {
	start := o.now()
	tr := newTrace()

	plan := o.planner.Plan(req.Query, req.Profile)
	tr.advance(StateClassified)

	intents := dispatchOrder(plan)
	results := o.dispatch(ctx, plan, intents)
	tr.advance(StateDispatched)

	agg := o.aggregator.Aggregate(ctx, results)
	tr.advance(StateAggregated)

	result := &models.OrchestrationResult{
		RequestID:  o.newID(),
		Intent:     plan.Intent,
		FinalText:  agg.Text,
		Confidence: agg.Confidence,
		Metadata:   agg.Metadata,
	}
	for _, r := range results {
		result.Handlers = append(result.Handlers, r.Name)
	}

	if o.explainer != nil && (plan.RequiresExplanation || req.ForceExplanation) {
		ectx, cancel := o.withTimeout(ctx)
		result.FinalText = o.explainer.Explain(ectx, result.FinalText)
		cancel()
		result.Explained = true
		tr.advance(StateExplained)
	}

	tr.advance(StateDone)
	result.Trace = tr.strings()

	o.record(ctx, result, len(results), o.now().Sub(start))
	return result
}

// dispatchOrder is the primary intent alone, or every matched category in
// table order when more than one matched.
func dispatchOrder(plan *planner.Plan) []models.Intent {
	if !plan.Context.RequiresMultipleAgents || len(plan.MatchedIntents) == 0 {
		return []models.Intent{plan.Intent}
	}
	out := make([]models.Intent, 0, len(plan.MatchedIntents))
	out = append(out, plan.MatchedIntents...)
	return out
}

func (o *Orchestrator) dispatch(ctx context.Context, plan *planner.Plan, intents []models.Intent) []NamedResult {
	if o.config.ParallelDispatch && len(intents) > 1 {
		return o.dispatchParallel(ctx, plan, intents)
	}

	results := make([]NamedResult, 0, len(intents))
	prior := make([]models.HandlerResult, 0, len(intents))
	for _, intent := range intents {
		req := o.request(plan, intent)
		req.Prior = append([]models.HandlerResult(nil), prior...)

		res := o.invoke(ctx, intent, req)
		results = append(results, res)
		prior = append(prior, res.Result)
	}
	return results
}

// dispatchParallel writes each result into its table slot, so the merge
// order never depends on completion order. Handlers see no prior results.
// invoke never fails, so the group only bounds and joins the fan-out.
func (o *Orchestrator) dispatchParallel(ctx context.Context, plan *planner.Plan, intents []models.Intent) []NamedResult {
	results := make([]NamedResult, len(intents))

	var g errgroup.Group
	if o.config.MaxParallelHandlers > 0 {
		g.SetLimit(o.config.MaxParallelHandlers)
	}
	for i, intent := range intents {
		i, intent := i, intent
		g.Go(func() error {
			results[i] = o.invoke(ctx, intent, o.request(plan, intent))
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (o *Orchestrator) request(plan *planner.Plan, intent models.Intent) models.HandlerRequest {
	return models.HandlerRequest{
		Query:            plan.Query,
		Intent:           intent,
		Context:          plan.Context,
		SimulationParams: plan.SimulationParams,
	}
}

// invoke runs one handler. A panicking handler is reported in-band with zero
// confidence instead of taking the run down.
func (o *Orchestrator) invoke(ctx context.Context, intent models.Intent, req models.HandlerRequest) (named NamedResult) {
	h := o.handlers.Lookup(intent)
	metrics.HandlerDispatches.WithLabelValues(h.Name()).Inc()

	hctx, cancel := o.withTimeout(ctx)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			metrics.CollaboratorFailures.WithLabelValues(h.Name()).Inc()
			o.logger.Error("handler panicked", map[string]interface{}{
				"intent":  string(intent),
				"handler": h.Name(),
				"panic":   fmt.Sprint(r),
			})
			named = NamedResult{Name: string(intent), Result: models.HandlerResult{
				Text:       fmt.Sprintf("[Handler error: %v]", r),
				Confidence: 0,
				Metadata:   map[string]interface{}{"error": "handler_panic"},
			}}
		}
	}()

	res := h.Process(hctx, req)
	res.Confidence = models.ClampConfidence(res.Confidence)

	o.logger.Debug("handler completed", map[string]interface{}{
		"intent":     string(intent),
		"handler":    h.Name(),
		"confidence": res.Confidence,
	})
	return NamedResult{Name: string(intent), Result: res}
}

func (o *Orchestrator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.config.HandlerTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.config.HandlerTimeout)
}

func (o *Orchestrator) record(ctx context.Context, result *models.OrchestrationResult, dispatched int, d time.Duration) {
	status := StatusCompleted
	if dispatched == 0 {
		status = StatusEmpty
	}

	metrics.OrchestrationRuns.WithLabelValues(string(result.Intent)).Inc()
	metrics.OrchestrationConfidence.Observe(result.Confidence)
	if o.observer != nil {
		o.observer.RecordQueryProcessed(ctx, string(result.Intent), status)
		o.observer.RecordQueryDuration(ctx, d, string(result.Intent))
	}

	o.logger.Info("query orchestrated", map[string]interface{}{
		"requestId":  result.RequestID,
		"intent":     string(result.Intent),
		"handlers":   result.Handlers,
		"confidence": result.Confidence,
		"explained":  result.Explained,
		"durationMs": d.Milliseconds(),
	})
}
