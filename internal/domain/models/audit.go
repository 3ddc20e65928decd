package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/edusight/edusight/pkg/constants"
)

// AuditRecord is a single immutable entry in the append-only audit trail.
// Ordering within one principal's successive actions follows insertion order;
// no total ordering across principals is guaranteed.
type AuditRecord struct {
	EventID       uuid.UUID             `json:"event_id" gorm:"column:event_id;primaryKey"`
	PrincipalID   string                `json:"principal_id" gorm:"column:principal_id;index"`
	Role          constants.Role        `json:"role" gorm:"column:role"`
	Action        constants.AuditAction `json:"action" gorm:"column:action"`
	Resource      string                `json:"resource" gorm:"column:resource"`
	TenantTouched string                `json:"tenant_touched" gorm:"column:tenant_touched;index"`
	Timestamp     time.Time             `json:"timestamp" gorm:"column:timestamp;index"`

	// Signature is the optional HMAC over the record for tamper evidence.
	Signature string `json:"signature,omitempty" gorm:"column:signature"`
}

// TableName names the audit partition table.
func (AuditRecord) TableName() string {
	return "audit_records"
}

// NewAuditRecord creates an audit entry for one sensitive operation.
func NewAuditRecord(p *Principal, action constants.AuditAction, resource, tenantTouched string) *AuditRecord {
	return &AuditRecord{
		EventID:       uuid.New(),
		PrincipalID:   p.PrincipalID,
		Role:          p.Role,
		Action:        action,
		Resource:      resource,
		TenantTouched: tenantTouched,
		Timestamp:     time.Now().UTC(),
	}
}
