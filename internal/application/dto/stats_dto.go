package dto

import (
	"github.com/edusight/edusight/internal/domain/models"
	"github.com/edusight/edusight/pkg/constants"
)

// StatsResponse is the dashboard aggregate for either one tenant or the
// oversight merge across all reachable tenants.
type StatsResponse struct {
	TotalStudents int64                         `json:"total_students"`
	HighRiskCount int64                         `json:"high_risk_count"`
	AverageScore  float64                       `json:"average_risk_score"`
	RiskLevels    map[constants.RiskLevel]int64 `json:"risk_distribution"`
	Departments   map[string]int64              `json:"department_distribution"`

	// TenantBreakdown carries per-tenant totals for oversight responses.
	TenantBreakdown map[string]*models.TenantStats `json:"tenant_breakdown,omitempty"`

	// TenantCount is the number of partitions that contributed.
	TenantCount int `json:"tenant_count,omitempty"`

	// Unavailable names partitions that timed out or failed, sorted by
	// tenant id. Reachable partitions' totals above are always correct.
	Unavailable []string `json:"unavailable_tenants,omitempty"`
}

// NewStatsResponse converts a merged stats accumulator.
func NewStatsResponse(s *models.TenantStats) *StatsResponse {
	return &StatsResponse{
		TotalStudents: s.TotalStudents,
		HighRiskCount: s.HighRiskCount,
		AverageScore:  s.AverageScore,
		RiskLevels:    s.RiskLevels,
		Departments:   s.Departments,
	}
}

// AuditListResponse is a page of one principal's audit trail.
type AuditListResponse struct {
	Records []*models.AuditRecord `json:"records"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}
