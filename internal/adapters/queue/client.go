package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"3tcapital/ms_extraccion_core/internal/core/extraction"
	"3tcapital/ms_extraccion_core/internal/core/handoff"
)

// ErrAlreadyQueued is returned when the upload already has a pending task.
var ErrAlreadyQueued = errors.New("queue: upload already queued")

// Enqueuer is the subset of asynq.Client used by Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client submits extraction tasks and publishes hand-off notifications.
type Client struct {
	enqueuer Enqueuer
	opts     Options
}

// NewClient creates a client on a Redis connection.
func NewClient(redisOpts asynq.RedisConnOpt, opts Options) *Client {
	return NewClientWithEnqueuer(asynq.NewClient(redisOpts), opts)
}

// NewClientWithEnqueuer creates a client on an existing enqueuer.
func NewClientWithEnqueuer(enqueuer Enqueuer, opts Options) *Client {
	return &Client{enqueuer: enqueuer, opts: opts.withDefaults()}
}

// EnqueueExtraction queues msg for the extraction worker.
func (c *Client) EnqueueExtraction(ctx context.Context, msg extraction.Message) (*asynq.TaskInfo, error) {
	task, err := NewExtractionTask(msg, c.opts)
	if err != nil {
		return nil, err
	}
	info, err := c.enqueuer.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyQueued, msg.DocumentUploadID)
	}
	if err != nil {
		return nil, fmt.Errorf("enqueue extraction task: %w", err)
	}
	return info, nil
}

// Publish implements handoff.Publisher.
func (c *Client) Publish(ctx context.Context, n handoff.Notification) error {
	task, err := NewHandoffTask(n, c.opts)
	if err != nil {
		return err
	}
	if _, err := c.enqueuer.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue hand-off task: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	return c.enqueuer.Close()
}

var _ handoff.Publisher = (*Client)(nil)
