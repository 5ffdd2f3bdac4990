// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)
)

var (
	OrchestrationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestration_runs_total",
			Help: "Queries orchestrated, by primary intent",
		},
		[]string{"intent"},
	)

	HandlerDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestration_handler_dispatch_total",
			Help: "Handler invocations, by handler name",
		},
		[]string{"handler"},
	)

	OrchestrationConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orchestration_confidence",
			Help:    "Aggregated confidence of orchestration results",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	CollaboratorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collaborator_failures_total",
			Help: "Failed calls to external collaborators that were degraded in-band",
		},
		[]string{"collaborator"},
	)

	FinDataCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "findata_cache_requests_total",
			Help: "Financial data cache lookups, by layer and result",
		},
		[]string{"layer", "result"},
	)
)
