package gormstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/edusight/edusight/internal/config"
	"github.com/edusight/edusight/internal/domain/models"
	"github.com/edusight/edusight/internal/domain/repository"
	"github.com/edusight/edusight/pkg/errors"
	"github.com/edusight/edusight/pkg/logger"
)

// RegistryRepo is the registry partition: the authoritative list of known
// tenant ids plus cached summary fields refreshed after ingestion.
type RegistryRepo struct {
	db     *gorm.DB
	logger logger.Logger
}

// OpenRegistry opens (and migrates) the registry partition.
func OpenRegistry(cfg config.DatabaseConfig, log logger.Logger) (*RegistryRepo, error) {
	db, err := openSharedDB(cfg, "registry")
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.Tenant{}); err != nil {
		return nil, err
	}
	return &RegistryRepo{db: db, logger: log.WithComponent("RegistryRepo")}, nil
}

var _ repository.RegistryRepository = (*RegistryRepo)(nil)

// ListTenantIDs enumerates all registered tenant ids.
func (r *RegistryRepo) ListTenantIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Order("tenant_id ASC").
		Pluck("tenant_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "registry enumeration failed")
	}
	return ids, nil
}

// ListTenants returns all registry rows.
func (r *RegistryRepo) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	var tenants []*models.Tenant
	err := r.db.WithContext(ctx).
		Order("tenant_id ASC").
		Find(&tenants).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "registry listing failed")
	}
	return tenants, nil
}

// Exists reports whether a tenant id is registered.
func (r *RegistryRepo) Exists(ctx context.Context, tenantID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, errors.CodeInternal, "registry lookup failed")
	}
	return count > 0, nil
}

// Register inserts a registry row if the tenant id is new.
func (r *RegistryRepo) Register(ctx context.Context, tenant *models.Tenant) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(tenant).Error
	if err != nil {
		r.logger.Error(ctx, "Failed to register tenant", err, logger.String("tenant_id", tenant.TenantID))
		return errors.Wrap(err, errors.CodeInternal, "tenant registration failed")
	}
	return nil
}

// UpdateSummary refreshes the cached summary counts for a tenant.
func (r *RegistryRepo) UpdateSummary(ctx context.Context, tenantID string, totalStudents, highRisk int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("tenant_id = ?", tenantID).
		Updates(map[string]interface{}{
			"total_students":     totalStudents,
			"high_risk_students": highRisk,
			"updated_at":         time.Now().UTC(),
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.CodeInternal, "summary refresh failed")
	}
	if result.RowsAffected == 0 {
		return errors.ErrTenantNotFound(tenantID)
	}
	return nil
}

// openSharedDB opens one of the non-partitioned databases (registry, audit).
func openSharedDB(cfg config.DatabaseConfig, name string) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	switch cfg.Driver {
	case "sqlite":
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		return gorm.Open(sqlite.Open(filepath.Join(cfg.DataDir, name+".db")), gormCfg)
	case "postgres":
		return gorm.Open(postgres.Open(cfg.GetDSN()), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
