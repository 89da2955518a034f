package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the bot still answers but quota enforcement is off (fail open).
	Degraded Status = "degraded"
	// Unhealthy indicates the bot cannot reply at all.
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

// Component names reported in Report.Checks.
const (
	ComponentQuotaStore = "quota_store"
	ComponentSlack      = "slack"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store    StorePinger
	platform PlatformChecker
}

// New creates a Service. platform can be nil.
func New(store StorePinger, platform PlatformChecker) *Service {
	return &Service{store: store, platform: platform}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 2)
	status := Healthy

	if err := s.store.Ping(ctx); err != nil {
		checks[ComponentQuotaStore] = CheckError
		status = Degraded
	} else {
		checks[ComponentQuotaStore] = CheckOK
	}

	if s.platform != nil {
		if err := s.platform.HealthCheck(ctx); err != nil {
			checks[ComponentSlack] = CheckError
			status = Unhealthy
		} else {
			checks[ComponentSlack] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
