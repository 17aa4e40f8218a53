package pipeline

import (
	"context"
	"sync"
	"time"

	"3tcapital/ms_extraccion_core/internal/core/extraction"
)

// Processor processes one extraction message.
type Processor interface {
	ProcessMessage(ctx context.Context, msg extraction.Message) (Summary, error)
}

// MessageJob is a message waiting for a worker.
type MessageJob struct {
	ID      string
	Message extraction.Message
	Index   int
}

// MessageResult is the outcome of one job.
type MessageResult struct {
	ID      string
	Index   int
	Summary Summary
	Err     error
}

// Failed reports whether the message must be redelivered.
func (r MessageResult) Failed() bool {
	return r.Err != nil
}

// BatchRunner processes a batch of messages with a fixed number of workers.
// Each message is still processed sequentially; workers only run different
// messages side by side.
type BatchRunner struct {
	processor   Processor
	workerCount int
	jobContext  func(ctx context.Context, job MessageJob) context.Context
}

// NewBatchRunner creates a runner. workerCount <= 0 processes messages one at a time.
func NewBatchRunner(processor Processor, workerCount int) *BatchRunner {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &BatchRunner{processor: processor, workerCount: workerCount}
}

// WithJobContext sets a hook deriving the context each job is processed
// with, such as one carrying the job id for log correlation.
func (r *BatchRunner) WithJobContext(fn func(ctx context.Context, job MessageJob) context.Context) *BatchRunner {
	r.jobContext = fn
	return r
}

// Run processes every job and returns the results in job order together with
// batch statistics. Jobs not started before ctx is cancelled fail with ctx.Err().
func (r *BatchRunner) Run(ctx context.Context, jobs []MessageJob) ([]MessageResult, BatchStats) {
	aggregator := NewResultAggregator(len(jobs))
	results := make([]MessageResult, len(jobs))
	if len(jobs) == 0 {
		return results, aggregator.Stats()
	}

	workers := r.workerCount
	if workers > len(jobs) {
		workers = len(jobs)
	}

	jobChan := make(chan MessageJob, workers*2)
	resultChan := make(chan MessageResult, workers*2)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobChan {
				resultChan <- r.process(ctx, job)
			}
		}()
	}

	go func() {
		defer close(jobChan)
		for i, job := range jobs {
			job.Index = i
			jobChan <- job
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for result := range resultChan {
		results[result.Index] = result
		aggregator.Add(result)
	}
	return results, aggregator.Stats()
}

func (r *BatchRunner) process(ctx context.Context, job MessageJob) MessageResult {
	result := MessageResult{ID: job.ID, Index: job.Index}
	if err := ctx.Err(); err != nil {
		result.Err = err
		return result
	}
	if r.jobContext != nil {
		ctx = r.jobContext(ctx, job)
	}
	result.Summary, result.Err = r.processor.ProcessMessage(ctx, job.Message)
	return result
}

// ResultAggregator collects message results from concurrent workers.
type ResultAggregator struct {
	mu             sync.Mutex
	startTime      time.Time
	totalMessages  int
	processedCount int
	failedCount    int
	documentCount  int
}

// NewResultAggregator creates an aggregator for totalMessages messages.
func NewResultAggregator(totalMessages int) *ResultAggregator {
	return &ResultAggregator{
		startTime:     time.Now(),
		totalMessages: totalMessages,
	}
}

// Add records one result.
func (a *ResultAggregator) Add(result MessageResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if result.Failed() {
		a.failedCount++
		return
	}
	a.processedCount++
	for _, f := range result.Summary.Files {
		if !f.Skipped {
			a.documentCount++
		}
	}
}

// Stats returns the statistics collected so far.
func (a *ResultAggregator) Stats() BatchStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	duration := time.Since(a.startTime)
	var throughput, successRate float64
	if duration.Seconds() > 0 {
		throughput = float64(a.processedCount) / duration.Seconds()
	}
	if a.totalMessages > 0 {
		successRate = float64(a.processedCount) / float64(a.totalMessages) * 100
	}

	return BatchStats{
		TotalMessages:  a.totalMessages,
		ProcessedCount: a.processedCount,
		FailedCount:    a.failedCount,
		DocumentCount:  a.documentCount,
		Duration:       duration,
		Throughput:     throughput,
		SuccessRate:    successRate,
	}
}

// BatchStats contains processing statistics of one batch.
type BatchStats struct {
	TotalMessages  int
	ProcessedCount int
	FailedCount    int
	DocumentCount  int
	Duration       time.Duration
	Throughput     float64 // Messages per second
	SuccessRate    float64 // Percentage
}
