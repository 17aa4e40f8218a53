package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"3tcapital/ms_extraccion_core/internal/application/pipeline"
	ctxutil "3tcapital/ms_extraccion_core/internal/infrastructure/context"
)

// WorkerConfig collects what the extraction worker needs.
type WorkerConfig struct {
	RedisOpts   asynq.RedisConnOpt
	Concurrency int
	Options     Options
	Processor   pipeline.Processor
	Logger      *slog.Logger
}

// Worker consumes extraction tasks.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor pipeline.Processor
	logger    *slog.Logger
}

// NewWorker constructs a worker listening on the extraction queue.
func NewWorker(cfg WorkerConfig) *Worker {
	opts := cfg.Options.withDefaults()
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	logger := cfg.Logger.With("component", "extraction_worker")

	w := &Worker{
		processor: cfg.Processor,
		logger:    logger,
	}
	w.server = asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{opts.ExtractionQueue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Error("Extraction task failed",
				"task_type", task.Type(),
				"retry", retried,
				"max_retry", maxRetry,
				"error", err,
			)
		}),
		Logger:   newAsynqLogger(logger),
		LogLevel: asynq.WarnLevel,
	})

	w.mux = asynq.NewServeMux()
	w.mux.HandleFunc(TaskExtractionProcess, w.HandleExtraction)
	return w
}

// HandleExtraction processes one extraction task. Messages that can never
// succeed are not retried; other failures are returned so asynq retries and
// finally archives the task.
func (w *Worker) HandleExtraction(ctx context.Context, t *asynq.Task) error {
	msg, err := DecodeExtraction(t)
	if err != nil {
		w.logger.Error("Dropping undecodable extraction task", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if taskID, ok := asynq.GetTaskID(ctx); ok {
		ctx = ctxutil.WithCorrelationID(ctx, taskID)
	}
	ctx = ctxutil.WithMerchantID(ctx, msg.MerchantID)

	start := time.Now()
	summary, err := w.processor.ProcessMessage(ctx, msg)
	if err != nil {
		if pipeline.IsPermanent(err) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	w.logger.Info("Extraction task completed",
		"document_upload_id", summary.DocumentUploadID,
		"files", len(summary.Files),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Run processes tasks until ctx is cancelled. Start is used instead of
// asynq's Run so shutdown follows ctx rather than asynq's own signal handling.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	<-ctx.Done()
	w.logger.Info("Stopping extraction worker")
	w.server.Shutdown()
	return nil
}
