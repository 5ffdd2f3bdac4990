// internal/common/camunda/worker.go
package camunda

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"finlife-navigator/internal/common/config"
	"finlife-navigator/internal/common/logger"
	"finlife-navigator/internal/common/metrics"
)

// JobHandlerFunc matches the Zeebe job handler signature.
type JobHandlerFunc func(client worker.JobClient, job entities.Job)

// TaskCatalog tells which task types may be served.
type TaskCatalog interface {
	Has(taskType string) bool
}

// WorkerManager opens one job worker per task type and closes them together.
type WorkerManager struct {
	client  zbc.Client
	catalog TaskCatalog
	logger  logger.Logger

	mu      sync.Mutex
	workers map[string]worker.JobWorker
}

func NewWorkerManager(client zbc.Client, catalog TaskCatalog, log logger.Logger) *WorkerManager {
	return &WorkerManager{
		client:  client,
		catalog: catalog,
		logger:  log.WithFields(map[string]interface{}{"component": "worker-manager"}),
		workers: make(map[string]worker.JobWorker),
	}
}

// Start opens a worker for taskType. A disabled worker is skipped; a task
// type missing from the catalog is refused.
func (m *WorkerManager) Start(taskType string, wcfg config.WorkerConfig, handler JobHandlerFunc) error {
	if !wcfg.Enabled {
		m.logger.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}
	if m.catalog != nil && !m.catalog.Has(taskType) {
		return fmt.Errorf("task type %q is not declared in the activity registry", taskType)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.workers[taskType]; exists {
		return fmt.Errorf("worker for task type %q already started", taskType)
	}

	m.workers[taskType] = m.client.NewJobWorker().
		JobType(taskType).
		Handler(worker.JobHandler(instrument(taskType, handler))).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(config.GetDuration(wcfg.Timeout)).
		Open()

	m.logger.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeout_ms":    wcfg.Timeout,
	})
	return nil
}

// TaskTypes lists the running workers, sorted.
func (m *WorkerManager) TaskTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.workers))
	for taskType := range m.workers {
		out = append(out, taskType)
	}
	sort.Strings(out)
	return out
}

// Stop closes every worker and waits for in-flight jobs.
func (m *WorkerManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for taskType, w := range m.workers {
		m.logger.Info("stopping worker", map[string]interface{}{"taskType": taskType})
		w.Close()
		w.AwaitClose()
	}
	m.workers = make(map[string]worker.JobWorker)
}

func instrument(taskType string, handler JobHandlerFunc) JobHandlerFunc {
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		metrics.WorkerJobsActive.WithLabelValues(taskType).Inc()
		defer func() {
			metrics.WorkerJobsActive.WithLabelValues(taskType).Dec()
			metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
		}()
		handler(client, job)
	}
}
