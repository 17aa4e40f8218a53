package context

import (
	"context"
	"testing"
)

func TestWithCorrelationID(t *testing.T) {
	tests := []struct {
		name          string
		correlationID string
	}{
		{
			name:          "adds correlation ID to context",
			correlationID: "test-correlation-123",
		},
		{
			name:          "handles empty correlation ID",
			correlationID: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			ctx = WithCorrelationID(ctx, tt.correlationID)

			result := GetCorrelationID(ctx)
			if result != tt.correlationID {
				t.Errorf("expected %s, got %s", tt.correlationID, result)
			}
		})
	}
}

func TestGetCorrelationID(t *testing.T) {
	tests := []struct {
		name     string
		ctx      context.Context
		expected string
	}{
		{
			name:     "returns correlation ID when present",
			ctx:      WithCorrelationID(context.Background(), "test-123"),
			expected: "test-123",
		},
		{
			name:     "returns empty string when not present",
			ctx:      context.Background(),
			expected: "",
		},
		{
			name:     "returns empty string for nil context value",
			ctx:      context.WithValue(context.Background(), CorrelationIDKey, nil),
			expected: "",
		},
		{
			name:     "returns empty string for wrong type",
			ctx:      context.WithValue(context.Background(), CorrelationIDKey, 123),
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GetCorrelationID(tt.ctx)
			if result != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestCorrelationIDPropagation(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "sqs-message-1")
	ctx = WithMerchantID(ctx, "robo")

	ctx2, cancel := context.WithCancel(ctx)
	defer cancel()

	if GetCorrelationID(ctx2) != "sqs-message-1" {
		t.Error("correlation ID should propagate to derived contexts")
	}
	if GetMerchantID(context.WithoutCancel(ctx2)) != "robo" {
		t.Error("merchant ID should survive WithoutCancel")
	}
}

func TestEnsureCorrelationID(t *testing.T) {
	ctx, id := EnsureCorrelationID(context.Background())
	if id == "" || GetCorrelationID(ctx) != id {
		t.Fatalf("expected a generated correlation ID, got %q", id)
	}

	same, again := EnsureCorrelationID(ctx)
	if again != id || same != ctx {
		t.Errorf("expected existing correlation ID %q to be kept, got %q", id, again)
	}
}
