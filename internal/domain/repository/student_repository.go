// Package repository defines the storage interfaces for the Edusight service.
// Implementations live under internal/infrastructure/persistence.
package repository

import (
	"context"

	"github.com/edusight/edusight/internal/domain/models"
)

// StudentRepository is the storage interface for exactly one tenant partition.
// All operations are implicitly scoped to that partition. Writes to the same
// partition serialize; reads may run concurrently and never observe a
// half-applied batch.
type StudentRepository interface {
	// TenantID names the partition this repository owns.
	TenantID() string

	// Get retrieves one record by id, or a not_found error.
	Get(ctx context.Context, studentID string) (*models.StudentRecord, error)

	// List returns one ordered page: risk_score descending, then name
	// ascending, then student_id as the stable tie-break.
	List(ctx context.Context, filter models.StudentFilter, page models.Page) ([]*models.StudentRecord, int64, error)

	// UpsertBatch replaces records by id with all-or-nothing visibility.
	// Records arrive already scored; the batch is durable only after every
	// assessment is persisted alongside its record.
	UpsertBatch(ctx context.Context, records []*models.StudentRecord) error

	// Update persists one already-rescored record in place.
	Update(ctx context.Context, record *models.StudentRecord) error

	// Stats computes the partition's on-demand aggregate view.
	Stats(ctx context.Context) (*models.TenantStats, error)
}

// PartitionManager owns the map from tenant id to partition repository.
// Partitions are created lazily on first write for a new tenant id and live
// for the lifetime of the process. There is no global lock across tenants.
type PartitionManager interface {
	// Partition returns the repository for an existing tenant, or a
	// not_found error if the tenant was never written.
	Partition(ctx context.Context, tenantID string) (StudentRepository, error)

	// OpenPartition returns the repository for the tenant, creating the
	// partition (and its registry row) on first use.
	OpenPartition(ctx context.Context, tenantID string) (StudentRepository, error)

	// KnownTenants enumerates tenant ids with existing partitions.
	KnownTenants(ctx context.Context) ([]string, error)

	// Close releases all partition handles.
	Close() error
}

// RegistryRepository is the registry partition: it enumerates known tenant
// ids and keeps the cached per-tenant summary fields.
type RegistryRepository interface {
	// ListTenantIDs enumerates all registered tenant ids.
	ListTenantIDs(ctx context.Context) ([]string, error)

	// ListTenants returns all registry rows.
	ListTenants(ctx context.Context) ([]*models.Tenant, error)

	// Exists reports whether a tenant id is registered.
	Exists(ctx context.Context, tenantID string) (bool, error)

	// Register inserts a registry row if the tenant id is new.
	Register(ctx context.Context, tenant *models.Tenant) error

	// UpdateSummary refreshes the cached summary counts for a tenant.
	UpdateSummary(ctx context.Context, tenantID string, totalStudents, highRisk int64) error
}

// AuditRepository is the append-only audit partition.
type AuditRepository interface {
	// Append durably persists one audit record. For sensitive operations the
	// caller must not respond until Append has returned.
	Append(ctx context.Context, record *models.AuditRecord) error

	// ListByPrincipal returns a principal's records in insertion order.
	ListByPrincipal(ctx context.Context, principalID string, page models.Page) ([]*models.AuditRecord, error)
}
