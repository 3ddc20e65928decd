package dto

import (
	"github.com/edusight/edusight/internal/domain/models"
	"github.com/edusight/edusight/pkg/constants"
)

// StudentView is the list-level projection of one record.
type StudentView struct {
	StudentID     string              `json:"student_id"`
	TenantID      string              `json:"tenant_id"`
	Name          string              `json:"name"`
	Department    string              `json:"department"`
	RiskScore     float64             `json:"risk_score"`
	RiskLevel     constants.RiskLevel `json:"risk_level"`
	MultiAreaRisk bool                `json:"multi_area_risk"`
}

// NewStudentView projects a record for listing.
func NewStudentView(rec *models.StudentRecord) StudentView {
	return StudentView{
		StudentID:     rec.StudentID,
		TenantID:      rec.TenantID,
		Name:          rec.Name,
		Department:    rec.Department,
		RiskScore:     rec.RiskScore,
		RiskLevel:     rec.RiskLevel,
		MultiAreaRisk: rec.MultiAreaRisk,
	}
}

// StudentListResponse is one page of the list endpoint.
type StudentListResponse struct {
	Students []StudentView `json:"students"`
	Total    int64         `json:"total"`
	Limit    int           `json:"limit"`
	Offset   int           `json:"offset"`

	// Unavailable names partitions that could not contribute to an
	// oversight listing, sorted by tenant id. Empty for tenant-scoped reads.
	Unavailable []string `json:"unavailable_tenants,omitempty"`
}

// StudentDetailResponse carries the full record with its explainable
// assessment breakdown.
type StudentDetailResponse struct {
	Student    *models.StudentRecord  `json:"student"`
	Assessment *models.RiskAssessment `json:"risk_breakdown"`
}

// UpdateStudentRequest is the partial-update payload. Nil fields stay untouched.
type UpdateStudentRequest struct {
	Fields models.StudentUpdate `json:"fields"`
}

// BulkUpdateRequest applies the same partial update to many records.
type BulkUpdateRequest struct {
	StudentIDs []string             `json:"student_ids" binding:"required,min=1"`
	Fields     models.StudentUpdate `json:"fields"`
}

// BulkUpdateResponse reports the per-id outcome of a bulk update.
type BulkUpdateResponse struct {
	Updated  []string `json:"updated"`
	NotFound []string `json:"not_found,omitempty"`
}

// IngestRequest is the validated row collection handed over by the
// ingestion adapter. Only student_id is mandatory per row.
type IngestRequest struct {
	Records []*models.StudentRecord `json:"records" binding:"required,min=1"`
}

// IngestResponse acknowledges a durable batch.
type IngestResponse struct {
	TenantID string `json:"tenant_id"`
	Ingested int    `json:"ingested"`
}
