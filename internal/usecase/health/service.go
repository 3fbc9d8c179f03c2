package health

import (
	"context"
	"sort"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component failed.
	Degraded Status = "degraded"
	// Unhealthy indicates the pipeline itself failed.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Names returns the check names in sorted order.
func (r Report) Names() []string {
	names := make([]string, 0, len(r.Checks))
	for k := range r.Checks {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Service coordinates health checks.
type Service struct {
	pipeline PipelineChecker
	optional map[string]PipelineChecker
}

// New creates a Service. optional checks only degrade the status when they fail.
func New(pipeline PipelineChecker, optional map[string]PipelineChecker) *Service {
	return &Service{pipeline: pipeline, optional: optional}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 1+len(s.optional))
	status := Healthy

	if err := s.pipeline.SelfCheck(ctx); err != nil {
		checks["pipeline"] = CheckError
		status = Unhealthy
	} else {
		checks["pipeline"] = CheckOK
	}

	for name, c := range s.optional {
		if c == nil {
			continue
		}
		if err := c.SelfCheck(ctx); err != nil {
			checks[name] = CheckError
			if status == Healthy {
				status = Degraded
			}
			continue
		}
		checks[name] = CheckOK
	}

	return Report{Status: status, Checks: checks}
}
