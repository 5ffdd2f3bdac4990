// internal/workers/investment/allocate-portfolio/handler.go
package allocateportfolio

import (
	"context"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"finlife-navigator/internal/agents"
	"finlife-navigator/internal/common/camunda"
	"finlife-navigator/internal/common/errors"
	"finlife-navigator/internal/common/logger"
	"finlife-navigator/internal/common/metrics"
	"finlife-navigator/internal/models"
	"finlife-navigator/pkg/registry"
)

const TaskType = "allocate-portfolio"

type Handler struct {
	config       *Config
	allocator    Allocator
	schema       map[string]interface{}
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	Config    *Config
	Allocator Allocator
	Activity  *registry.Activity
	Logger    logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Allocator == nil {
		return nil, fmt.Errorf("allocator is required")
	}
	if opts.Activity == nil {
		return nil, fmt.Errorf("activity definition is required")
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       cfg,
		allocator:    opts.Allocator,
		schema:       opts.Activity.InputSchema,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)

	// a slow allocation can spend the job context; reporting gets its own
	sendCtx, sendCancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer sendCancel()

	if err != nil {
		h.errorHandler.HandleJobError(sendCtx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(sendCtx, client, job, output); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.logger.Info("Portfolio allocated", map[string]interface{}{
		"jobKey":   job.GetKey(),
		"risk":     string(output.Allocation.Risk),
		"base":     string(output.Allocation.Base),
		"stockPct": output.Allocation.Mix.Stock,
	})
}

// Execute allocates against the given context and facts and narrates the
// result. Negative amounts or balances are refused.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if amount, ok := input.Context.AmountValue(); ok && amount.IsNegative() {
		return nil, errors.NewAllocationFailedError(fmt.Sprintf("amount %s is negative", input.Context.Amount))
	}
	if input.Facts != nil && input.Facts.StartingBalance != nil && *input.Facts.StartingBalance < 0 {
		return nil, errors.NewAllocationFailedError("starting balance is negative")
	}
	for _, holding := range factsHoldings(input) {
		if holding.MarketValue < 0 {
			return nil, errors.NewAllocationFailedError(fmt.Sprintf("holding %q has a negative market value", holding.Ticker))
		}
	}

	alloc := h.allocator.Allocate(ctx, input.Context, input.Facts)
	if alloc == nil {
		return nil, errors.NewAllocationFailedError("allocator returned no allocation")
	}

	return &Output{
		Allocation: alloc,
		Summary:    agents.Narrate(alloc),
	}, nil
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	var input Input
	if err := camunda.DecodeVariables(job, TaskType, h.schema, &input); err != nil {
		return nil, err
	}
	return &input, nil
}

func factsHoldings(input *Input) []models.Holding {
	if input.Facts == nil {
		return nil
	}
	return input.Facts.Holdings
}
