// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"finlife-navigator/internal/agents"
	"finlife-navigator/internal/allocation"
	"finlife-navigator/internal/common/aws"
	"finlife-navigator/internal/common/camunda"
	"finlife-navigator/internal/common/config"
	"finlife-navigator/internal/common/database"
	"finlife-navigator/internal/common/logger"
	"finlife-navigator/internal/common/observability"
	"finlife-navigator/internal/findata"
	"finlife-navigator/internal/genai"
	"finlife-navigator/internal/models"
	"finlife-navigator/internal/orchestrator"
	"finlife-navigator/internal/planner"
	"finlife-navigator/pkg/registry"

	ap "finlife-navigator/internal/workers/investment/allocate-portfolio"
	cq "finlife-navigator/internal/workers/planning/classify-query"
	nq "finlife-navigator/internal/workers/planning/navigate-query"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// closers collects shutdown hooks, run in reverse order.
type closers []func()

func (c *closers) add(f func()) { *c = append(*c, f) }

func (c closers) run() {
	for i := len(c) - 1; i >= 0; i-- {
		c[i]()
	}
}

func main() {
	bootLog := logger.New("info", "console")

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	log.Info("Starting worker manager", map[string]interface{}{"environment": cfg.App.Environment})

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()
	var cleanup closers

	// --- Init Zeebe Client with retry ---
	zeebe, err := camunda.Connect(ctx, camunda.ConfigFrom(cfg.Camunda), 10, 2*time.Second, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	cleanup.add(func() {
		if err := zeebe.Close(); err != nil {
			log.Error("Error closing Zeebe client", map[string]interface{}{"error": err.Error()})
		}
	})
	log.Info("Zeebe client connected successfully", nil)

	// --- GenAI ---
	gen, err := genai.New(cfg.APIs.GenAI, log)
	if err != nil {
		zapLog.Fatal("genai client failed", zap.Error(err))
	}
	if cfg.APIs.GenAI.APIKey == "" {
		log.Warn("No GenAI API key configured; generated text will carry a diagnostic", nil)
	}

	// --- Financial data ---
	gatherer, err := buildFinData(ctx, cfg, log, &cleanup)
	if err != nil {
		zapLog.Fatal("financial data setup failed", zap.Error(err))
	}

	// --- Notifications ---
	investmentOpts := []agents.InvestmentOption{}
	if gatherer != nil {
		investmentOpts = append(investmentOpts, agents.WithFinancialData(gatherer, cfg.APIs.Plaid.AccessToken))
	}
	if cfg.Notifications.SNS.Enabled {
		snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.SNS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		investmentOpts = append(investmentOpts, agents.WithExecutionNotifier(
			agents.NewSNSExecutionNotifier(snsClient, cfg.Notifications.SNS.TopicARN),
		))
		log.Info("SNS execution notices enabled", map[string]interface{}{"region": cfg.Notifications.SNS.Region})
	}

	// --- Allocation & orchestration ---
	var engineOpts []allocation.Option
	if cfg.Allocation.UseModelMix {
		engineOpts = append(engineOpts, allocation.WithMixAdvisor(gen))
	}
	engine := allocation.NewEngine(log, engineOpts...)

	handlers, err := orchestrator.NewHandlerTable(map[models.Intent]orchestrator.Handler{
		models.IntentLifeEvent:          agents.NewLifeEventHandler(gen, log),
		models.IntentBudgetOptimization: agents.NewBudgetHandler(gen, log),
		models.IntentInvestmentAnalysis: agents.NewInvestmentHandler(engine, gen, log, investmentOpts...),
		models.IntentSimulation:         agents.NewScenarioHandler(gen, log),
		models.IntentGeneral:            agents.NewGeneralHandler(gen, log),
	})
	if err != nil {
		zapLog.Fatal("handler table invalid", zap.Error(err))
	}

	queryPlanner := planner.New(planner.DefaultPatternTable())
	orch := orchestrator.New(
		queryPlanner,
		handlers,
		agents.NewSummarizer(gen),
		orchestrator.Config{
			ParallelDispatch:    cfg.Orchestrator.ParallelDispatch,
			MaxParallelHandlers: cfg.Orchestrator.MaxParallelHandlers,
			HandlerTimeout:      config.GetDuration(cfg.Orchestrator.HandlerTimeout),
		},
		log,
		orchestrator.WithExplainer(agents.NewExplainer(gen)),
		orchestrator.WithObserver(obs),
	)

	// --- Workers ---
	activities := registry.Default()
	manager := camunda.NewWorkerManager(zeebe.GetClient(), activities, log)
	cleanup.add(manager.Stop)

	if err := registerWorkers(cfg, manager, activities, queryPlanner, orch, engine, log); err != nil {
		zapLog.Fatal("worker registration failed", zap.Error(err))
	}
	log.Info("Workers registered", map[string]interface{}{"taskTypes": manager.TaskTypes()})

	// --- Health & Metrics Server ---
	server := &http.Server{
		Addr:              cfg.App.HTTPAddress,
		Handler:           newHealthMux(zeebe, manager),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("Health/Metrics server listening", map[string]interface{}{"address": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Health/Metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutdown signal received, stopping workers...", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Error stopping health server", map[string]interface{}{"error": err.Error()})
	}
	cleanup.run()

	log.Info("Worker manager stopped gracefully", nil)
}

// buildFinData wires the configured provider chain behind the layered cache.
// It returns nil when no provider can serve requests.
func buildFinData(ctx context.Context, cfg *config.Config, log logger.Logger, cleanup *closers) (*findata.Gatherer, error) {
	var providers []findata.Provider

	if cfg.FinData.Source == config.FinDataSourceLedger || cfg.FinData.Source == config.FinDataSourceAuto {
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, log, "PostgreSQL connection")
		if err != nil {
			return nil, err
		}
		cleanup.add(func() { _ = pg.Close() })
		if err := pg.ApplySchema(ctx, findata.LedgerSchema...); err != nil {
			return nil, fmt.Errorf("ledger schema: %w", err)
		}
		providers = append(providers, findata.NewLedgerProvider(pg, log))
		log.Info("PostgreSQL connected successfully", nil)
	}

	if cfg.FinData.Source == config.FinDataSourcePlaid || cfg.FinData.Source == config.FinDataSourceAuto {
		plaid := findata.NewPlaidClient(cfg.APIs.Plaid, log)
		if plaid.Configured() {
			providers = append(providers, plaid)
		} else {
			log.Warn("Plaid credentials missing; Plaid provider disabled", nil)
		}
	}

	if len(providers) == 0 {
		return nil, nil
	}

	var provider findata.Provider = findata.NewChain(log, providers...)
	if len(providers) == 1 {
		provider = providers[0]
	}

	var redis *database.RedisClient
	if cfg.FinData.CacheEnabled {
		err := retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, log, "Redis connection")
		if err != nil {
			return nil, err
		}
		cleanup.add(func() { _ = redis.Close() })
		log.Info("Redis connected successfully", nil)
	}

	cache, err := findata.NewLayeredCache(cfg.FinData.L1MaxCost, config.GetDuration(cfg.FinData.CacheTTL), redis, log)
	if err != nil {
		return nil, err
	}
	cleanup.add(cache.Close)

	return findata.NewGatherer(findata.NewCachedProvider(provider, cache)), nil
}

func registerWorkers(
	cfg *config.Config,
	manager *camunda.WorkerManager,
	activities *registry.ActivityRegistry,
	queryPlanner *planner.Planner,
	orch *orchestrator.Orchestrator,
	engine *allocation.Engine,
	log logger.Logger,
) error {
	lookup := func(taskType string) (*registry.Activity, error) {
		a, ok := activities.Lookup(taskType)
		if !ok {
			return nil, fmt.Errorf("task type %s missing from activity registry", taskType)
		}
		return a, nil
	}

	// --- 1. Classify ---
	classifyCfg := config.GetWorkerConfig(cfg, cq.TaskType)
	activity, err := lookup(cq.TaskType)
	if err != nil {
		return err
	}
	classify, err := cq.NewHandler(cq.HandlerOptions{
		Config:   cq.ConfigFrom(classifyCfg),
		Planner:  queryPlanner,
		Activity: activity,
		Logger:   log,
	})
	if err != nil {
		return err
	}
	if err := manager.Start(cq.TaskType, classifyCfg, classify.Handle); err != nil {
		return err
	}

	// --- 2. Navigate ---
	navigateCfg := config.GetWorkerConfig(cfg, nq.TaskType)
	if activity, err = lookup(nq.TaskType); err != nil {
		return err
	}
	navigate, err := nq.NewHandler(nq.HandlerOptions{
		Config:    nq.ConfigFrom(navigateCfg),
		Navigator: orch,
		Activity:  activity,
		Logger:    log,
	})
	if err != nil {
		return err
	}
	if err := manager.Start(nq.TaskType, navigateCfg, navigate.Handle); err != nil {
		return err
	}

	// --- 3. Allocate ---
	allocateCfg := config.GetWorkerConfig(cfg, ap.TaskType)
	if activity, err = lookup(ap.TaskType); err != nil {
		return err
	}
	allocate, err := ap.NewHandler(ap.HandlerOptions{
		Config:    ap.ConfigFrom(allocateCfg),
		Allocator: engine,
		Activity:  activity,
		Logger:    log,
	})
	if err != nil {
		return err
	}
	return manager.Start(ap.TaskType, allocateCfg, allocate.Handle)
}

func newHealthMux(zeebe *camunda.Client, manager *camunda.WorkerManager) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := zeebe.HealthCheck(r.Context()); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "not_ready",
				"error":  err.Error(),
				"time":   time.Now().Format(time.RFC3339),
			})
			return
		}
		writeStatus(w, http.StatusOK, map[string]interface{}{
			"status":  "ready",
			"workers": manager.TaskTypes(),
			"time":    time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeStatus(w http.ResponseWriter, code int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
