// internal/workers/planning/navigate-query/handler.go
package navigatequery

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
	"finlife-navigator/internal/common/validation"
	"finlife-navigator/internal/orchestrator"
	"finlife-navigator/pkg/registry"
)

const TaskType = "navigate-query"

type Handler struct {
	config       *Config
	navigator    Navigator
	activity     *registry.Activity
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	Config    *Config
	Navigator Navigator
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
	if opts.Navigator == nil {
		return nil, fmt.Errorf("navigator is required")
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
		navigator:    opts.Navigator,
		activity:     opts.Activity,
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

	// a slow run can spend the job context; reporting gets its own
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
	h.logger.Info("Query navigated", map[string]interface{}{
		"jobKey":     job.GetKey(),
		"requestId":  output.RequestID,
		"intent":     string(output.Intent),
		"confidence": output.Confidence,
		"explained":  output.Explained,
	})
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	var input Input
	if err := camunda.DecodeVariables(job, TaskType, h.activity.InputSchema, &input); err != nil {
		return nil, err
	}
	return &input, nil
}

// Execute runs the query through the orchestrator. A run cut short by the
// job deadline is reported as ORCHESTRATION_FAILED so the engine retries it.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, errors.NewInvalidQueryError("query is blank")
	}

	result := h.navigator.Run(ctx, orchestrator.Request{
		Query:            input.Query,
		Profile:          input.Profile,
		ForceExplanation: input.Explain,
	})
	if err := ctx.Err(); err != nil {
		return nil, errors.NewOrchestrationFailedError(err)
	}
	if result == nil {
		return nil, errors.NewOrchestrationFailedError(fmt.Errorf("orchestrator returned no result"))
	}

	check, err := validation.Validate(h.activity.OutputSchema, result)
	if err != nil {
		return nil, errors.NewOrchestrationFailedError(err)
	}
	if !check.Valid {
		return nil, errors.NewOrchestrationFailedError(fmt.Errorf("result does not match output schema: %s", check.Error()))
	}

	return result, nil
}
