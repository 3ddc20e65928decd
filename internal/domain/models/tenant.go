package models

import (
	"time"

	"github.com/edusight/edusight/pkg/constants"
)

// Tenant is one institution's registry row. The registry partition enumerates
// every known tenant id and keeps denormalized summary fields that are
// refreshed after each ingestion so oversight dashboards can render cheaply.
// Tenant 租户注册表记录，含缓存的汇总字段。
type Tenant struct {
	// TenantID is the unique institution identifier (e.g. "gpj", "rtu").
	TenantID string `json:"tenant_id" gorm:"column:tenant_id;primaryKey"`

	// TenantName is the display name of the institution.
	TenantName string `json:"tenant_name" gorm:"column:tenant_name"`

	// Location is the institution's city or district, informational only.
	Location string `json:"location" gorm:"column:location"`

	// TotalStudents is the cached partition size as of the last refresh.
	TotalStudents int64 `json:"total_students" gorm:"column:total_students"`

	// HighRiskStudents is the cached count of High/Critical students.
	HighRiskStudents int64 `json:"high_risk_students" gorm:"column:high_risk_students"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// TableName names the registry table.
func (Tenant) TableName() string {
	return "tenants"
}

// NewTenant creates a registry row for a newly observed tenant id.
func NewTenant(tenantID, tenantName string) *Tenant {
	now := time.Now().UTC()
	return &Tenant{
		TenantID:   tenantID,
		TenantName: tenantName,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// KnownInstitutions lists the institutions the registry is seeded with on
// startup. Ingestion for a previously unseen tenant id still registers it
// on the fly.
// KnownInstitutions 启动时预注册的院校列表。
func KnownInstitutions() []*Tenant {
	seeds := []struct{ id, name, location string }{
		{"gpj", "Government Polytechnic Jaipur", "Jaipur"},
		{"rtu", "Rajasthan Technical University Kota", "Kota"},
		{"geca", "Government Engineering College Ajmer", "Ajmer"},
		{"itij", "Industrial Training Institute Jodhpur", "Jodhpur"},
		{"polu", "Polytechnic College Udaipur", "Udaipur"},
	}
	tenants := make([]*Tenant, 0, len(seeds))
	for _, s := range seeds {
		t := NewTenant(s.id, s.name)
		t.Location = s.location
		tenants = append(tenants, t)
	}
	return tenants
}

// TenantStats is the on-demand aggregate view of one partition.
// TenantStats 单个分区的按需聚合视图。
type TenantStats struct {
	TenantID      string                        `json:"tenant_id"`
	TotalStudents int64                         `json:"total_students"`
	HighRiskCount int64                         `json:"high_risk_count"`
	AverageScore  float64                       `json:"average_risk_score"`
	RiskLevels    map[constants.RiskLevel]int64 `json:"risk_distribution"`
	Departments   map[string]int64              `json:"department_distribution"`
}

// NewTenantStats returns an empty stats view for the tenant.
func NewTenantStats(tenantID string) *TenantStats {
	return &TenantStats{
		TenantID:    tenantID,
		RiskLevels:  make(map[constants.RiskLevel]int64),
		Departments: make(map[string]int64),
	}
}

// MergeInto adds this partition's counts into a cross-tenant accumulator.
// Addition is commutative and associative, so partitions may be merged in
// any order with an identical result.
func (s *TenantStats) MergeInto(total *TenantStats) {
	if s.TotalStudents+total.TotalStudents > 0 {
		total.AverageScore = (total.AverageScore*float64(total.TotalStudents) +
			s.AverageScore*float64(s.TotalStudents)) /
			float64(total.TotalStudents+s.TotalStudents)
	}
	total.TotalStudents += s.TotalStudents
	total.HighRiskCount += s.HighRiskCount
	for level, n := range s.RiskLevels {
		total.RiskLevels[level] += n
	}
	for dept, n := range s.Departments {
		total.Departments[dept] += n
	}
}
