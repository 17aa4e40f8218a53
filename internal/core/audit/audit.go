package audit

import (
	"context"
	"encoding/json"
	"time"
)

// BackendCallLog records one outbound call to a generative or storage backend.
// Bodies are sanitized and size-capped before they reach this struct.
type BackendCallLog struct {
	ID              int64
	CorrelationID   string
	Backend         string
	Operation       string
	RequestMethod   string
	RequestURL      string
	RequestHeaders  map[string]string
	RequestBody     json.RawMessage
	ResponseStatus  *int
	ResponseHeaders map[string]string
	ResponseBody    json.RawMessage
	DurationMs      int64
	ErrorMessage    string
	CreatedAt       time.Time
}

// Repository persists and retrieves backend call logs.
type Repository interface {
	Save(ctx context.Context, log BackendCallLog) error

	// FindByCorrelationID returns every call made while processing one message or request.
	FindByCorrelationID(ctx context.Context, correlationID string) ([]BackendCallLog, error)
}

// Failed reports whether the call errored or returned a non-2xx status.
func (l BackendCallLog) Failed() bool {
	if l.ErrorMessage != "" {
		return true
	}
	return l.ResponseStatus != nil && (*l.ResponseStatus < 200 || *l.ResponseStatus >= 300)
}

// CallSummary aggregates the backend calls made for one correlation id.
type CallSummary struct {
	Calls      int            `json:"calls"`
	Failures   int            `json:"failures"`
	DurationMs int64          `json:"durationMs"`
	ByBackend  map[string]int `json:"byBackend,omitempty"`
}

// Summarize folds logs into a CallSummary.
func Summarize(logs []BackendCallLog) CallSummary {
	summary := CallSummary{ByBackend: make(map[string]int)}
	for _, l := range logs {
		summary.Calls++
		summary.DurationMs += l.DurationMs
		summary.ByBackend[l.Backend]++
		if l.Failed() {
			summary.Failures++
		}
	}
	return summary
}
