package health

import (
	"context"
	"errors"
	"testing"
	"time"

	corehealth "3tcapital/ms_extraccion_core/internal/core/health"
)

func TestNewService(t *testing.T) {
	meta := Metadata{
		Service:     "test-service",
		Version:     "1.0.0",
		Environment: "test",
	}

	service := NewService(meta)

	if service == nil {
		t.Fatal("expected service to be created, got nil")
	}
	if service.meta != meta {
		t.Error("expected service to have the provided metadata")
	}
	if service.startedAt.IsZero() {
		t.Error("expected startedAt to be set")
	}
}

func TestService_Status(t *testing.T) {
	meta := Metadata{
		Service:     "test-service",
		Version:     "1.0.0",
		Environment: "test",
	}

	service := NewService(meta)
	time.Sleep(10 * time.Millisecond)

	status := service.Status(context.Background())

	if status.Service != meta.Service || status.Version != meta.Version || status.Environment != meta.Environment {
		t.Errorf("unexpected metadata %+v", status)
	}
	if status.Status != corehealth.StatusUp {
		t.Errorf("expected status UP, got %q", status.Status)
	}
	if !status.StartedAt.Equal(service.startedAt) {
		t.Errorf("expected startedAt %v, got %v", service.startedAt, status.StartedAt)
	}
	if status.Uptime == "" {
		t.Error("expected uptime to be set")
	}
	if status.Dependencies != nil {
		t.Errorf("expected no dependencies, got %v", status.Dependencies)
	}
}

func TestService_StatusWithChecks(t *testing.T) {
	tests := []struct {
		name     string
		checks   []Check
		expected string
		deps     map[string]string
	}{
		{
			name: "all dependencies up",
			checks: []Check{
				{Name: "database", Fn: func(ctx context.Context) error { return nil }},
				{Name: "redis", Fn: func(ctx context.Context) error { return nil }},
			},
			expected: corehealth.StatusUp,
			deps:     map[string]string{"database": "UP", "redis": "UP"},
		},
		{
			name: "one dependency down",
			checks: []Check{
				{Name: "database", Fn: func(ctx context.Context) error { return nil }},
				{Name: "redis", Fn: func(ctx context.Context) error { return errors.New("connection refused") }},
			},
			expected: corehealth.StatusDegraded,
			deps:     map[string]string{"database": "UP", "redis": "DOWN: connection refused"},
		},
		{
			name: "check receives a deadline",
			checks: []Check{
				{Name: "database", Fn: func(ctx context.Context) error {
					if _, ok := ctx.Deadline(); !ok {
						return errors.New("no deadline")
					}
					return nil
				}},
			},
			expected: corehealth.StatusUp,
			deps:     map[string]string{"database": "UP"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := NewService(Metadata{Service: "svc"}, tt.checks...).Status(context.Background())

			if status.Status != tt.expected {
				t.Errorf("expected status %s, got %s", tt.expected, status.Status)
			}
			for name, want := range tt.deps {
				if got := status.Dependencies[name]; got != want {
					t.Errorf("dependency %s: expected %q, got %q", name, want, got)
				}
			}
		})
	}
}
