// Package constants defines system-wide constants for the Edusight early-warning service.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// Risk Level Constants
// ================================================================================

// RiskLevel represents the severity bucket of a risk score or sub-score.
type RiskLevel string

const (
	// RiskLevelLow indicates no meaningful dropout risk
	RiskLevelLow RiskLevel = "Low"

	// RiskLevelMedium indicates early warning signs worth monitoring
	RiskLevelMedium RiskLevel = "Medium"

	// RiskLevelHigh indicates active intervention is needed
	RiskLevelHigh RiskLevel = "High"

	// RiskLevelCritical indicates imminent dropout risk
	RiskLevelCritical RiskLevel = "Critical"
)

// IsElevated reports whether the level counts toward multi-area risk detection.
func (l RiskLevel) IsElevated() bool {
	return l == RiskLevelHigh || l == RiskLevelCritical
}

// RiskLevels lists all levels in ascending severity order.
var RiskLevels = []RiskLevel{RiskLevelLow, RiskLevelMedium, RiskLevelHigh, RiskLevelCritical}

// ================================================================================
// Risk Factor Constants
// ================================================================================

// RiskFactor identifies one of the independent scoring factors.
type RiskFactor string

const (
	// FactorAttendance covers attendance percentage bands
	FactorAttendance RiskFactor = "attendance"

	// FactorAcademic covers theory marks bands
	FactorAcademic RiskFactor = "academic"

	// FactorFinancial covers fee payment status and the fee-due ratio
	FactorFinancial RiskFactor = "financial"

	// FactorEngagement covers socioeconomic engagement signals
	FactorEngagement RiskFactor = "engagement"
)

// RiskFactors lists the factors in canonical (weight declaration) order.
var RiskFactors = []RiskFactor{FactorAttendance, FactorAcademic, FactorFinancial, FactorEngagement}

// ================================================================================
// Principal Role Constants
// ================================================================================

// Role represents the authorization role of an authenticated principal.
type Role string

const (
	// RoleTenantAdmin is scoped to exactly one institution partition
	RoleTenantAdmin Role = "tenant_admin"

	// RoleOversightAdmin may aggregate across all institution partitions
	RoleOversightAdmin Role = "oversight_admin"
)

// TenantScopeAll is the tenant_scope value granting access to every known tenant.
const TenantScopeAll = "all"

// ================================================================================
// Payment Status Constants
// ================================================================================

// PaymentStatus represents the fee payment state reported by ingestion.
type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "Paid"
	PaymentStatusPartial PaymentStatus = "Partial"
	PaymentStatusPending PaymentStatus = "Pending"
)

// ================================================================================
// Audit Action Constants
// ================================================================================

// AuditAction identifies a sensitive operation recorded in the audit trail.
type AuditAction string

const (
	AuditActionStudentDetail  AuditAction = "student_detail"
	AuditActionStudentUpdate  AuditAction = "student_update"
	AuditActionBulkUpdate     AuditAction = "bulk_update"
	AuditActionBatchIngest    AuditAction = "batch_ingest"
	AuditActionAggregateStats AuditAction = "aggregate_stats"
	AuditActionAggregateList  AuditAction = "aggregate_list"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey is a typed key for request-scoped context values.
type ContextKey string

const (
	// ContextKeyPrincipal carries the resolved Principal through a request
	ContextKeyPrincipal ContextKey = "principal"

	// ContextKeyTraceID carries the request trace identifier for logging
	ContextKeyTraceID ContextKey = "trace_id"
)

// ================================================================================
// Aggregation Defaults
// ================================================================================

const (
	// DefaultPartitionTimeout bounds one per-partition read during oversight fan-out
	DefaultPartitionTimeout = 2 * time.Second

	// DefaultFanOutConcurrency bounds the aggregation worker pool
	DefaultFanOutConcurrency = 8

	// DefaultPageLimit is applied when a list request omits an explicit limit
	DefaultPageLimit = 100

	// MaxPageLimit caps a single list page
	MaxPageLimit = 5000
)
