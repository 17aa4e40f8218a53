package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	ctxutil "3tcapital/ms_extraccion_core/internal/infrastructure/context"
)

func TestNewWithWriter_JSONOutsideDevelopment(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "ms_extraccion_core", "info", "production")

	log.Info("Document processed", "document_id", "doc-1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if record["app"] != "ms_extraccion_core" || record["document_id"] != "doc-1" {
		t.Errorf("unexpected record %v", record)
	}
	if _, ok := record["source"]; !ok {
		t.Error("expected source attribute")
	}
}

func TestNewWithWriter_TextInDevelopment(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "svc", "debug", "local")

	log.Debug("Matching vendor")

	out := buf.String()
	if !strings.Contains(out, "level=DEBUG") || !strings.Contains(out, `msg="Matching vendor"`) {
		t.Errorf("expected uncolored text output, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input).Level(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestNewWithWriter_ContextIDs(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "svc", "info", "production").With("component", "pipeline")

	ctx := ctxutil.WithCorrelationID(context.Background(), "corr-1")
	ctx = ctxutil.WithMerchantID(ctx, "robo")
	log.InfoContext(ctx, "Upload aggregated")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if record["correlation_id"] != "corr-1" {
		t.Errorf("expected correlation_id corr-1, got %v", record["correlation_id"])
	}
	if record["merchant_id"] != "robo" {
		t.Errorf("expected merchant_id robo, got %v", record["merchant_id"])
	}
	if record["component"] != "pipeline" {
		t.Errorf("expected component attribute to survive, got %v", record["component"])
	}
}

func TestNewWithWriter_NoContextIDs(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "svc", "info", "production")

	log.InfoContext(context.Background(), "Worker started")

	if strings.Contains(buf.String(), "correlation_id") {
		t.Errorf("expected no correlation_id without one in context, got %q", buf.String())
	}
}
