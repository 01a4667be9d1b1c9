// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"credit-approval-workers/internal/common/config"
	"credit-approval-workers/internal/common/logger"
	"credit-approval-workers/internal/common/metrics"
)

// HandlerFunc matches the signature every worker's Handle method has.
type HandlerFunc func(client worker.JobClient, job entities.Job)

// Worker is one opened job subscription for a task type.
type Worker struct {
	client   zbc.Client
	taskType string
	cfg      config.WorkerConfig
	handler  HandlerFunc
	logger   logger.Logger
	worker   worker.JobWorker
}

func NewWorker(client zbc.Client, taskType string, cfg config.WorkerConfig, handler HandlerFunc, log logger.Logger) *Worker {
	return &Worker{
		client:   client,
		taskType: taskType,
		cfg:      cfg,
		handler:  handler,
		logger:   log.WithFields(map[string]interface{}{"taskType": taskType}),
	}
}

// Start opens the job subscription. Calling it twice is a no-op.
func (w *Worker) Start() {
	if w.worker != nil {
		return
	}
	w.worker = w.client.NewJobWorker().
		JobType(w.taskType).
		Handler(instrument(w.taskType, w.handler)).
		MaxJobsActive(w.cfg.MaxJobsActive).
		Timeout(config.GetDuration(w.cfg.Timeout)).
		Name(w.taskType + "-worker").
		Open()

	w.logger.Info("worker started", map[string]interface{}{
		"maxJobsActive": w.cfg.MaxJobsActive,
		"timeoutMs":     w.cfg.Timeout,
	})
}

// Stop closes the subscription and waits for in-flight jobs.
func (w *Worker) Stop() {
	if w.worker == nil {
		return
	}
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
	w.worker = nil
}

// instrument tracks the active-jobs gauge around a handler call.
func instrument(taskType string, h HandlerFunc) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		active := metrics.WorkerJobsActive.WithLabelValues(taskType)
		active.Inc()
		start := time.Now()
		defer func() {
			active.Dec()
			metrics.WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())
		}()
		h(client, job)
	}
}
