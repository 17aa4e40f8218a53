package health

import (
	"context"
	"time"

	corehealth "3tcapital/ms_extraccion_core/internal/core/health"
)

// Metadata contains immutable metadata about the running service.
type Metadata struct {
	Service     string
	Version     string
	Environment string
}

// Check probes one dependency such as the database or Redis.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Service exposes health-check use cases to adapters.
type Service struct {
	meta      Metadata
	checks    []Check
	timeout   time.Duration
	startedAt time.Time
}

// NewService creates a health service running checks on every Status call.
func NewService(meta Metadata, checks ...Check) *Service {
	return &Service{
		meta:      meta,
		checks:    checks,
		timeout:   2 * time.Second,
		startedAt: time.Now().UTC(),
	}
}

// Status returns the current availability snapshot. A failing dependency
// degrades the service.
func (s *Service) Status(ctx context.Context) corehealth.Status {
	uptime := time.Since(s.startedAt)
	status := corehealth.Status{
		Service:     s.meta.Service,
		Version:     s.meta.Version,
		Environment: s.meta.Environment,
		Status:      corehealth.StatusUp,
		StartedAt:   s.startedAt,
		Uptime:      uptime.String(),
		UptimeSecs:  int64(uptime.Seconds()),
	}

	if len(s.checks) == 0 {
		return status
	}

	status.Dependencies = make(map[string]string, len(s.checks))
	for _, c := range s.checks {
		checkCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := c.Fn(checkCtx)
		cancel()

		if err != nil {
			status.Dependencies[c.Name] = "DOWN: " + err.Error()
			status.Status = corehealth.StatusDegraded
			continue
		}
		status.Dependencies[c.Name] = corehealth.StatusUp
	}
	return status
}
