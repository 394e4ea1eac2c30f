package services

import "nextsoundwave/pkg/types"

// BuildHealthReport derives the overall status from backend availability:
// healthy while the primary works, degraded on the fallback alone, unhealthy
// otherwise. The primary is recommended only when it is available.
func BuildHealthReport(primary, fallback types.BackendHealth) types.HealthReport {
	report := types.HealthReport{
		Primary:     primary,
		Fallback:    fallback,
		Recommended: types.BackendFallback,
	}

	switch {
	case primary.Available:
		report.Status = types.StatusHealthy
		report.Recommended = types.BackendPrimary
	case fallback.Available:
		report.Status = types.StatusDegraded
	default:
		report.Status = types.StatusUnhealthy
	}
	return report
}
