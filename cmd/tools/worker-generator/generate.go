// cmd/tools/worker-generator/generate.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"finlife-navigator/pkg/registry"
)

// WorkerData feeds the scaffold templates.
type WorkerData struct {
	Name         string
	PackageName  string
	TaskType     string
	Description  string
	Category     string
	Timeout      string
	Retries      int
	ErrorCodes   []string
	InputFields  []Field
	OutputFields []Field
}

type Field struct {
	Name     string
	GoType   string
	JSONName string
	Required bool
	Comment  string
}

// schemaFields lists the top-level properties of an object schema, sorted by
// name so regenerated files diff cleanly.
func schemaFields(schema map[string]interface{}) []Field {
	props, _ := schema["properties"].(map[string]interface{})
	required := map[string]bool{}
	if list, ok := schema["required"].([]interface{}); ok {
		for _, r := range list {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]Field, 0, len(names))
	for _, name := range names {
		details, _ := props[name].(map[string]interface{})
		f := Field{
			Name:     upperFirst(name),
			GoType:   goTypeFromJSONType(details["type"]),
			JSONName: name,
			Required: required[name],
		}
		if d, ok := details["description"].(string); ok {
			f.Comment = d
		}
		fields = append(fields, f)
	}
	return fields
}

func goTypeFromJSONType(jsonType interface{}) string {
	switch jsonType {
	case "string":
		return "string"
	case "integer":
		return "int"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "object":
		return "map[string]interface{}"
	case "array":
		return "[]interface{}"
	default:
		return "interface{}"
	}
}

func (f Field) Tag() string {
	if f.Required {
		return fmt.Sprintf("`json:\"%s\"`", f.JSONName)
	}
	return fmt.Sprintf("`json:\"%s,omitempty\"`", f.JSONName)
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// packageName turns "allocate-portfolio" into "allocateportfolio".
func packageName(id string) string {
	return strings.ReplaceAll(id, "-", "")
}

func newWorkerData(a *registry.Activity) WorkerData {
	return WorkerData{
		Name:         a.DisplayName,
		PackageName:  packageName(a.ID),
		TaskType:     a.TaskType,
		Description:  a.Description,
		Category:     a.Category,
		Timeout:      a.Timeout,
		Retries:      a.Retries,
		ErrorCodes:   a.ErrorCodes,
		InputFields:  schemaFields(a.InputSchema),
		OutputFields: schemaFields(a.OutputSchema),
	}
}

var scaffold = map[string]string{
	"config.go":       configTemplate,
	"models.go":       modelsTemplate,
	"handler.go":      handlerTemplate,
	"handler_test.go": testTemplate,
}

// Generate writes a worker scaffold for the activity under
// <outputDir>/<category>/<id> and returns the written paths. Existing files
// are left alone unless force is set.
func Generate(a *registry.Activity, outputDir string, force bool) ([]string, error) {
	data := newWorkerData(a)
	workerDir := filepath.Join(outputDir, a.Category, a.ID)
	if err := os.MkdirAll(workerDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", workerDir, err)
	}

	names := make([]string, 0, len(scaffold))
	for name := range scaffold {
		names = append(names, name)
	}
	sort.Strings(names)

	var written []string
	for _, name := range names {
		path := filepath.Join(workerDir, name)
		if _, err := os.Stat(path); err == nil && !force {
			continue
		}

		tmpl, err := template.New(name).Parse(scaffold[name])
		if err != nil {
			return written, fmt.Errorf("failed to parse template %s: %w", name, err)
		}

		var sb strings.Builder
		if err := tmpl.Execute(&sb, data); err != nil {
			return written, fmt.Errorf("failed to render %s: %w", name, err)
		}
		if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

const configTemplate = `package {{ .PackageName }}

import (
	"fmt"
	"time"

	"finlife-navigator/internal/common/config"
)

type Config struct {
	Enabled       bool          ` + "`mapstructure:\"enabled\"`" + `
	MaxJobsActive int           ` + "`mapstructure:\"max_jobs_active\"`" + `
	Timeout       time.Duration ` + "`mapstructure:\"timeout\"`" + `
}

func DefaultConfig() *Config {
	timeout, _ := time.ParseDuration("{{ .Timeout }}")
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Config{Enabled: true, MaxJobsActive: 5, Timeout: timeout}
}

func ConfigFrom(wcfg config.WorkerConfig) *Config {
	cfg := DefaultConfig()
	cfg.Enabled = wcfg.Enabled
	if wcfg.MaxJobsActive > 0 {
		cfg.MaxJobsActive = wcfg.MaxJobsActive
	}
	if wcfg.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wcfg.Timeout)
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	return nil
}
`

const modelsTemplate = `package {{ .PackageName }}

import "context"

type Input struct {
{{- range .InputFields }}
	{{ .Name }} {{ .GoType }} {{ .Tag }}{{ if .Comment }} // {{ .Comment }}{{ end }}
{{- end }}
}

type Output struct {
{{- range .OutputFields }}
	{{ .Name }} {{ .GoType }} {{ .Tag }}{{ if .Comment }} // {{ .Comment }}{{ end }}
{{- end }}
}

// Service carries the {{ .Name }} business logic.
type Service interface {
	Execute(ctx context.Context, input *Input) (*Output, error)
}
`

const handlerTemplate = `package {{ .PackageName }}

import (
	"context"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"finlife-navigator/internal/common/camunda"
	"finlife-navigator/internal/common/errors"
	"finlife-navigator/internal/common/logger"
	"finlife-navigator/internal/common/metrics"
	"finlife-navigator/pkg/registry"
)

const TaskType = "{{ .TaskType }}"

type Handler struct {
	config       *Config
	service      Service
	schema       map[string]interface{}
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	Config   *Config
	Service  Service
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
	if opts.Service == nil {
		return nil, fmt.Errorf("service is required")
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
		service:      opts.Service,
		schema:       opts.Activity.InputSchema,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := camunda.DecodeVariables(job, TaskType, h.schema, &input); err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.service.Execute(ctx, &input)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{"jobKey": job.GetKey(), "error": err.Error()})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.logger.Info("Job completed", map[string]interface{}{"jobKey": job.GetKey()})
}
`

const testTemplate = `package {{ .PackageName }}

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finlife-navigator/internal/common/logger"
	"finlife-navigator/pkg/registry"
)

func TestNewHandler(t *testing.T) {
	activity, ok := registry.Default().Lookup(TaskType)
	require.True(t, ok)

	_, err := NewHandler(HandlerOptions{Activity: activity, Logger: logger.NewNoOpLogger()})
	assert.Error(t, err, "service is required")
}
`
