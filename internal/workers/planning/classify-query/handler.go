// internal/workers/planning/classify-query/handler.go
package classifyquery

import (
	"context"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"finlife-navigator/internal/common/camunda"
	"finlife-navigator/internal/common/errors"
	"finlife-navigator/internal/common/logger"
	"finlife-navigator/internal/common/metrics"
	"finlife-navigator/internal/models"
	"finlife-navigator/pkg/registry"
)

const TaskType = "classify-query"

type Handler struct {
	config       *Config
	planner      Planner
	schema       map[string]interface{}
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	Config   *Config
	Planner  Planner
	Activity *registry.Activity
	Logger   logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Planner == nil {
		return nil, fmt.Errorf("planner is required")
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
		planner:      opts.Planner,
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
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.logger.Info("Query classified", map[string]interface{}{
		"jobKey":         job.GetKey(),
		"intent":         string(output.Intent),
		"matchedIntents": len(output.MatchedIntents),
	})
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	var input Input
	if err := camunda.DecodeVariables(job, TaskType, h.schema, &input); err != nil {
		return nil, err
	}
	return &input, nil
}

// Execute plans the query. It only fails on a blank query.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, errors.NewInvalidQueryError("query is blank")
	}

	plan := h.planner.Plan(input.Query, input.Profile)

	matched := plan.MatchedIntents
	if matched == nil {
		matched = []models.Intent{}
	}

	return &Output{
		Intent:              plan.Intent,
		Context:             plan.Context,
		MatchedIntents:      matched,
		RequiresExplanation: plan.RequiresExplanation,
		SimulationParams:    plan.SimulationParams,
	}, nil
}
