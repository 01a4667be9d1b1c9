// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"credit-approval-workers/internal/common/aws"
	"credit-approval-workers/internal/common/camunda"
	"credit-approval-workers/internal/common/config"
	"credit-approval-workers/internal/common/database"
	"credit-approval-workers/internal/common/logger"
	"credit-approval-workers/internal/common/observability"
	"credit-approval-workers/internal/common/validation"
	"credit-approval-workers/internal/credit"
	"credit-approval-workers/internal/lending"
	"credit-approval-workers/pkg/registry"

	// Data Access Workers (2)
	qe "credit-approval-workers/internal/workers/data-access/query-elasticsearch"
	qp "credit-approval-workers/internal/workers/data-access/query-postgresql"

	// Lending Workers (4)
	ce "credit-approval-workers/internal/workers/lending/check-eligibility"
	cl "credit-approval-workers/internal/workers/lending/create-loan"
	rc "credit-approval-workers/internal/workers/lending/register-customer"
	sln "credit-approval-workers/internal/workers/lending/send-loan-notification"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.FromConfig(cfg.Logging)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Activity registry & input validation ---
	reg, err := registry.LoadOrDefault(cfg.Lending.RegistryPath)
	if err != nil {
		zapLog.Fatal("activity registry load failed", zap.Error(err))
	}
	validator, err := validation.NewValidator(reg)
	if err != nil {
		zapLog.Fatal("schema compilation failed", zap.Error(err))
	}

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClient(cfg.Camunda)
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	if topo, err := zeebe.Topology(ctx); err == nil {
		zapLog.Info("Zeebe client connected successfully",
			zap.Int("brokers", topo.Brokers),
			zap.Int("partitions", topo.Partitions),
			zap.String("gatewayVersion", topo.GatewayVersion),
		)
	}

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	redis := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init Elasticsearch with retry (optional) ---
	var esClient *database.ElasticsearchClient
	if cfg.SearchEnabled() {
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			if err := esClient.Ping(ctx); err != nil {
				return err
			}
			return esClient.EnsureIndex(ctx, cfg.Database.Elasticsearch.LoanIndex, lending.LoanIndexMapping)
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully",
			zap.String("index", cfg.Database.Elasticsearch.LoanIndex),
		)
	} else {
		zapLog.Info("Elasticsearch not configured, search and loan indexing disabled")
	}

	// --- Lending domain ---
	store := lending.NewStore(pg.DB, log)
	cache := lending.NewCachedSource(store, redis.Client,
		time.Duration(cfg.Lending.BorrowerCacheTTL)*time.Second, log)
	evaluator := credit.NewEvaluator(cache, time.Now)

	var indexer cl.LoanIndexer
	if esClient != nil {
		indexer = lending.NewIndexer(esClient.Client, cfg.Database.Elasticsearch.LoanIndex)
	}

	// --- Notification channels ---
	var (
		emailSender sln.EmailSender
		smsSender   sln.SMSSender
	)
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		awsCfg, err := aws.LoadConfig(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("aws config load failed", zap.Error(err))
		}
		if cfg.Notifications.Email.Enabled {
			emailSender = aws.NewSESClient(awsCfg, cfg.Notifications.Email.FromEmail)
		}
		if cfg.Notifications.SMS.Enabled {
			smsSender = aws.NewSNSClient(awsCfg, cfg.Notifications.SMS.SenderID)
		}
		zapLog.Info("Notification channels initialized",
			zap.Bool("email", cfg.Notifications.Email.Enabled),
			zap.Bool("sms", cfg.Notifications.SMS.Enabled),
		)
	}

	// --- Register Workers ---
	var workers []*camunda.Worker
	register := func(taskType string, handler camunda.HandlerFunc) {
		wc := config.GetWorkerConfig(cfg, taskType)
		if !wc.Enabled {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			return
		}
		w := camunda.NewWorker(zeebe.GetClient(), taskType, wc, handler, log)
		w.Start()
		workers = append(workers, w)
	}

	// --- 1. Lending Workers (4) ---
	register(rc.TaskType, rc.NewHandler(
		rc.LoadConfig(config.GetWorkerConfig(cfg, rc.TaskType)),
		store, validator, log,
	).Handle)

	register(ce.TaskType, ce.NewHandler(
		ce.LoadConfig(config.GetWorkerConfig(cfg, ce.TaskType)),
		evaluator, validator, obs, log,
	).Handle)

	register(cl.TaskType, cl.NewHandler(
		cl.LoadConfig(config.GetWorkerConfig(cfg, cl.TaskType), cfg.Lending),
		cl.Dependencies{
			Store:     store,
			Cache:     cache,
			Indexer:   indexer,
			Validator: validator,
			Obs:       obs,
		},
		log,
	).Handle)

	register(sln.TaskType, sln.NewHandler(
		sln.LoadConfig(config.GetWorkerConfig(cfg, sln.TaskType), cfg.Notifications),
		store, emailSender, smsSender, validator, log,
	).Handle)

	// --- 2. Data Access Workers (2) ---
	register(qp.TaskType, qp.NewHandler(
		qp.LoadConfig(config.GetWorkerConfig(cfg, qp.TaskType)),
		store, validator, log,
	).Handle)

	if esClient != nil {
		register(qe.TaskType, qe.NewHandler(
			qe.LoadConfig(config.GetWorkerConfig(cfg, qe.TaskType), cfg.Database.Elasticsearch),
			esClient.Client, validator, log,
		).Handle)
	}
	zapLog.Info("Workers registered successfully", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{"postgres": "ok", "redis": "ok", "zeebe": "ok"}
		status := http.StatusOK
		if err := pg.Ping(checkCtx); err != nil {
			checks["postgres"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := redis.Ping(checkCtx); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if esClient != nil {
			checks["elasticsearch"] = "ok"
			if err := esClient.Ping(checkCtx); err != nil {
				checks["elasticsearch"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}
		if err := zeebe.HealthCheck(checkCtx); err != nil {
			checks["zeebe"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		label := "ready"
		if status != http.StatusOK {
			label = "not ready"
		}
		writeStatus(w, status, label, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func writeStatus(w http.ResponseWriter, code int, status string, checks map[string]string) {
	body := map[string]interface{}{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if checks != nil {
		body["checks"] = checks
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
