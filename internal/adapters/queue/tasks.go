// Package queue carries extraction messages and ERP hand-off notifications
// over asynq.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"3tcapital/ms_extraccion_core/internal/core/extraction"
	"3tcapital/ms_extraccion_core/internal/core/handoff"
)

const (
	// TaskExtractionProcess processes the extraction results of one upload.
	TaskExtractionProcess = "extraction:process"
	// TaskERPHandoff tells ERP consumers that a document is ready.
	TaskERPHandoff = "erp:handoff"
)

// Options sizes queue names, retries and task deadlines.
type Options struct {
	ExtractionQueue string
	HandoffQueue    string
	MaxRetry        int
	TaskTimeout     time.Duration
}

func (o Options) withDefaults() Options {
	if o.ExtractionQueue == "" {
		o.ExtractionQueue = "extraction"
	}
	if o.HandoffQueue == "" {
		o.HandoffQueue = "erp_handoff"
	}
	if o.MaxRetry <= 0 {
		o.MaxRetry = 5
	}
	if o.TaskTimeout <= 0 {
		o.TaskTimeout = 10 * time.Minute
	}
	return o
}

// NewExtractionTask builds a task for msg. The task id is derived from the
// upload so that a resubmitted upload is rejected while the first is queued.
func NewExtractionTask(msg extraction.Message, opts Options) (*asynq.Task, error) {
	opts = opts.withDefaults()
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode extraction message: %w", err)
	}
	return asynq.NewTask(TaskExtractionProcess, body,
		asynq.Queue(opts.ExtractionQueue),
		asynq.MaxRetry(opts.MaxRetry),
		asynq.Timeout(opts.TaskTimeout),
		asynq.TaskID(ExtractionTaskID(msg)),
	), nil
}

// ExtractionTaskID returns the task id used for msg.
func ExtractionTaskID(msg extraction.Message) string {
	return "extraction:" + msg.MerchantID + ":" + msg.DocumentUploadID
}

// NewHandoffTask builds a hand-off task for n.
func NewHandoffTask(n handoff.Notification, opts Options) (*asynq.Task, error) {
	opts = opts.withDefaults()
	body, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encode hand-off notification: %w", err)
	}
	return asynq.NewTask(TaskERPHandoff, body,
		asynq.Queue(opts.HandoffQueue),
		asynq.MaxRetry(opts.MaxRetry),
	), nil
}

// DecodeExtraction reads the message carried by an extraction task.
func DecodeExtraction(t *asynq.Task) (extraction.Message, error) {
	var msg extraction.Message
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		return msg, fmt.Errorf("decode extraction task: %w", err)
	}
	return msg, nil
}
