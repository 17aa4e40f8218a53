// Package lambda consumes extraction messages delivered by an SQS trigger.
package lambda

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"3tcapital/ms_extraccion_core/internal/application/pipeline"
	"3tcapital/ms_extraccion_core/internal/core/extraction"
	ctxutil "3tcapital/ms_extraccion_core/internal/infrastructure/context"
)

// Handler processes an SQS batch and reports the messages to redeliver.
// Undecodable and invalid messages are logged and consumed; redelivery
// cannot fix them.
type Handler struct {
	runner *pipeline.BatchRunner
	log    *slog.Logger
}

// NewHandler creates a handler processing up to workerCount messages at once.
func NewHandler(processor pipeline.Processor, workerCount int, log *slog.Logger) *Handler {
	runner := pipeline.NewBatchRunner(processor, workerCount).
		WithJobContext(func(ctx context.Context, job pipeline.MessageJob) context.Context {
			ctx = ctxutil.WithCorrelationID(ctx, job.ID)
			return ctxutil.WithMerchantID(ctx, job.Message.MerchantID)
		})
	return &Handler{runner: runner, log: log.With("component", "sqs_handler")}
}

// Handle is the Lambda entry point.
func (h *Handler) Handle(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	jobs := make([]pipeline.MessageJob, 0, len(event.Records))
	for _, record := range event.Records {
		var msg extraction.Message
		if err := json.Unmarshal([]byte(record.Body), &msg); err != nil {
			h.log.Error("Dropping undecodable SQS message",
				"message_id", record.MessageId,
				"error", err,
			)
			continue
		}
		jobs = append(jobs, pipeline.MessageJob{ID: record.MessageId, Message: msg})
	}

	results, stats := h.runner.Run(ctx, jobs)

	var response events.SQSEventResponse
	for _, r := range results {
		if !r.Failed() {
			continue
		}
		if pipeline.IsPermanent(r.Err) {
			h.log.Error("Dropping invalid extraction message",
				"message_id", r.ID,
				"error", r.Err,
			)
			continue
		}
		response.BatchItemFailures = append(response.BatchItemFailures, events.SQSBatchItemFailure{
			ItemIdentifier: r.ID,
		})
	}

	h.log.Info("SQS batch processed",
		"messages", len(event.Records),
		"processed", stats.ProcessedCount,
		"failed", stats.FailedCount,
		"redelivered", len(response.BatchItemFailures),
		"documents", stats.DocumentCount,
		"duration_ms", stats.Duration.Milliseconds(),
	)
	return response, nil
}
