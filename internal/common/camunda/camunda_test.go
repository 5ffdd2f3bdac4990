package camunda

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finlife-navigator/internal/common/config"
	"finlife-navigator/internal/common/errors"
	"finlife-navigator/internal/common/logger"
	"finlife-navigator/internal/common/metrics"
)

type catalog map[string]bool

func (c catalog) Has(taskType string) bool { return c[taskType] }

func testClient() *Client {
	return &Client{config: &ClientConfig{
		RetryConfig: &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond},
	}}
}

// ==========================
// Config
// ==========================

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500", Timeout: 10000, RequestTimeout: 30000})

	assert.Equal(t, "zeebe:26500", cfg.GatewayAddress)
	assert.True(t, cfg.UsePlaintextConnection)
	assert.Equal(t, 10*time.Second, cfg.ConnectionTimeout)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Same(t, DefaultRetryConfig, cfg.RetryConfig)
}

// ==========================
// Retry
// ==========================

func TestExecuteWithRetry_RetriesTransientErrors(t *testing.T) {
	c := testClient()
	calls := 0

	result, err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, fmt.Errorf("rpc error: code = Unavailable")
		}
		return "ok", nil
	}, "publish")

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetry_StopsOnPermanentError(t *testing.T) {
	c := testClient()
	calls := 0

	_, err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, fmt.Errorf("process definition not found")
	}, "create-instance")

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeResourceNotFound, stdErr.Code)
}

func TestExecuteWithRetry_ExhaustsRetries(t *testing.T) {
	c := testClient()
	calls := 0

	_, err := c.ExecuteWithRetry(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, fmt.Errorf("context deadline exceeded")
	}, "complete-job")

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	stdErr, ok := errors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeTimeout, stdErr.Code)
	assert.Contains(t, stdErr.Details, "after 2 attempts")
}

func TestMapZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		code errors.ErrorCode
	}{
		{"connection refused", errors.ErrCodeExternalService},
		{"deadline exceeded", errors.ErrCodeTimeout},
		{"job not found", errors.ErrCodeResourceNotFound},
		{"instance already exists", errors.ErrCodeBusinessRule},
		{"permission denied", errors.ErrCodeAuthentication},
		{"something odd", errors.ErrCodeExternalService},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			stdErr, ok := errors.AsStandardError(mapZeebeError(fmt.Errorf("%s", tt.msg), "op", 0))
			require.True(t, ok)
			assert.Equal(t, tt.code, stdErr.Code)
		})
	}
}

func TestIsRetryableZeebeError(t *testing.T) {
	assert.True(t, isRetryableZeebeError(fmt.Errorf("Broken pipe")))
	assert.True(t, isRetryableZeebeError(fmt.Errorf("gateway UNAVAILABLE")))
	assert.False(t, isRetryableZeebeError(fmt.Errorf("invalid argument")))
}

// ==========================
// Worker manager
// ==========================

func TestWorkerManager_RefusesUndeclaredTaskType(t *testing.T) {
	m := NewWorkerManager(nil, catalog{"classify-query": true}, logger.NewNoOpLogger())

	err := m.Start("send-email", config.WorkerConfig{Enabled: true}, func(worker.JobClient, entities.Job) {})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "send-email")
	assert.Empty(t, m.TaskTypes())
}

func TestWorkerManager_SkipsDisabledWorker(t *testing.T) {
	m := NewWorkerManager(nil, catalog{}, logger.NewNoOpLogger())

	err := m.Start("classify-query", config.WorkerConfig{Enabled: false}, func(worker.JobClient, entities.Job) {})

	require.NoError(t, err)
	assert.Empty(t, m.TaskTypes())
}

func TestInstrument(t *testing.T) {
	const taskType = "instrument-test"
	var activeDuringCall float64

	handler := instrument(taskType, func(worker.JobClient, entities.Job) {
		activeDuringCall = testutil.ToFloat64(metrics.WorkerJobsActive.WithLabelValues(taskType))
	})
	handler(nil, entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1}})

	assert.Equal(t, 1.0, activeDuringCall)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.WorkerJobsActive.WithLabelValues(taskType)))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.WorkerJobDuration, "worker_job_duration_seconds"))
}

// ==========================
// Job variables
// ==========================

func TestDecodeVariables(t *testing.T) {
	schema := map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"query"},
		"properties": map[string]interface{}{
			"query": map[string]interface{}{"type": "string", "minLength": 1},
		},
	}

	tests := []struct {
		name      string
		variables string
		wantCode  errors.ErrorCode
		wantQuery string
	}{
		{"valid", `{"query":"Plan my budget","extra":1}`, "", "Plan my budget"},
		{"missing query", `{}`, errors.ErrCodeSchemaValidationFailed, ""},
		{"empty variables", ``, errors.ErrCodeSchemaValidationFailed, ""},
		{"wrong type", `{"query":42}`, errors.ErrCodeSchemaValidationFailed, ""},
		{"not json", `{"query":`, errors.ErrCodeInvalidInput, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 7, Type: "classify-query", Variables: tt.variables}}
			var target struct {
				Query string `json:"query"`
			}

			err := DecodeVariables(job, "classify-query", schema, &target)

			if tt.wantCode == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.wantQuery, target.Query)
				return
			}
			stdErr, ok := errors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, stdErr.Code)
		})
	}
}

func TestDecodeVariables_EmptySchemaAcceptsAnything(t *testing.T) {
	job := entities.Job{ActivatedJob: &pb.ActivatedJob{Variables: `{"anything":true}`}}
	var target map[string]interface{}

	require.NoError(t, DecodeVariables(job, "any", nil, &target))
	assert.Equal(t, true, target["anything"])
}
