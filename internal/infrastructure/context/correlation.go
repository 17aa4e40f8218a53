package context

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// CorrelationIDKey is the context key for correlation IDs.
	CorrelationIDKey contextKey = "correlation_id"
	// MerchantIDKey is the context key for the merchant being processed.
	MerchantIDKey contextKey = "merchant_id"
)

// WithCorrelationID adds a correlation ID to the context.
// HTTP requests use the request id, queue tasks the task id and Lambda
// records the SQS message id, so every backend call of one message shares it.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

// GetCorrelationID retrieves the correlation ID from the context.
// Returns an empty string if no correlation ID is present.
func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}

// EnsureCorrelationID returns ctx unchanged when it already carries a
// correlation ID, otherwise a derived context with a new random one.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if id := GetCorrelationID(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithCorrelationID(ctx, id), id
}

// WithMerchantID records the merchant whose message is being processed.
func WithMerchantID(ctx context.Context, merchantID string) context.Context {
	return context.WithValue(ctx, MerchantIDKey, merchantID)
}

// GetMerchantID retrieves the merchant ID from the context.
func GetMerchantID(ctx context.Context) string {
	if id, ok := ctx.Value(MerchantIDKey).(string); ok {
		return id
	}
	return ""
}
