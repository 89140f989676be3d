package worker

import (
	"context"
	"time"

	"github.com/juju/clock"
	"go.uber.org/zap"

	"github.com/spec-kit/dispatch-service/internal/config"
	"github.com/spec-kit/dispatch-service/internal/service"
)

// ImportTask identifies a queued import job.
type ImportTask struct {
	TenantID string
	JobID    string
}

// ImportWorker consumes queued import jobs and runs them with retries.
type ImportWorker struct {
	imports     *service.ImportService
	resolver    service.RowSourceResolver
	clock       clock.Clock
	logger      *zap.Logger
	queue       chan ImportTask
	maxAttempts int
	backoff     time.Duration
}

// NewImportWorker constructs the worker.
func NewImportWorker(imports *service.ImportService, resolver service.RowSourceResolver, clk clock.Clock, logger *zap.Logger, cfg config.ImportConfig) *ImportWorker {
	if clk == nil {
		clk = clock.WallClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	return &ImportWorker{
		imports:     imports,
		resolver:    resolver,
		clock:       clk,
		logger:      logger,
		queue:       make(chan ImportTask, queueSize),
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff(),
	}
}

// Enqueue schedules a job for processing. Returns false when the queue is
// full so the caller can surface backpressure instead of blocking a request.
func (w *ImportWorker) Enqueue(task ImportTask) bool {
	select {
	case w.queue <- task:
		return true
	default:
		return false
	}
}

// Run consumes the queue until the context is cancelled.
func (w *ImportWorker) Run(ctx context.Context) {
	w.logger.Info("import worker started", zap.Int("queue_size", cap(w.queue)))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("import worker stopped")
			return
		case task := <-w.queue:
			w.process(ctx, task)
		}
	}
}

func (w *ImportWorker) process(ctx context.Context, task ImportTask) {
	logger := w.logger.With(zap.String("tenant_id", task.TenantID), zap.String("job_id", task.JobID))

	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		job, err := w.imports.GetJob(ctx, task.TenantID, task.JobID)
		if err != nil {
			logger.Error("import: load job", zap.Error(err))
			return
		}

		source, err := w.resolver(job)
		if err != nil {
			lastErr = err
			logger.Warn("import: open source", zap.Int("attempt", attempt), zap.Error(err))
		} else {
			lastErr = w.imports.Run(ctx, task.TenantID, task.JobID, source)
			if lastErr == nil {
				return
			}
			logger.Warn("import: run failed", zap.Int("attempt", attempt), zap.Error(lastErr))
		}

		if attempt == w.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-w.clock.After(w.backoff):
		}
	}

	logger.Error("import: attempts exhausted", zap.Error(lastErr))
	if err := w.imports.MarkFailed(ctx, task.TenantID, task.JobID); err != nil {
		logger.Error("import: mark failed", zap.Error(err))
	}
}
