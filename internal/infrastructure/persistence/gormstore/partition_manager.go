// Package gormstore implements the storage interfaces on GORM. Each tenant
// partition is an independent database handle: a standalone sqlite file per
// tenant, or a per-tenant table namespace on a shared PostgreSQL server.
// The registry and audit partitions get their own handles.
package gormstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/edusight/edusight/internal/config"
	"github.com/edusight/edusight/internal/domain/models"
	"github.com/edusight/edusight/internal/domain/repository"
	"github.com/edusight/edusight/pkg/errors"
	"github.com/edusight/edusight/pkg/logger"
)

// PartitionManager owns one StudentRepo per tenant id. Partitions open lazily
// on first write; a handle, once opened, lives for the process lifetime.
// No lock is ever held across two partitions.
type PartitionManager struct {
	cfg      config.DatabaseConfig
	registry repository.RegistryRepository
	logger   logger.Logger

	mu         sync.RWMutex
	partitions map[string]*StudentRepo
}

// NewPartitionManager creates the manager. The registry repository must
// already be open; it is consulted for partition existence on reads.
func NewPartitionManager(cfg config.DatabaseConfig, registry repository.RegistryRepository, log logger.Logger) *PartitionManager {
	return &PartitionManager{
		cfg:        cfg,
		registry:   registry,
		logger:     log.WithComponent("PartitionManager"),
		partitions: make(map[string]*StudentRepo),
	}
}

// Partition returns the repository for a known tenant. A tenant that was
// never registered yields a not_found error; a registered tenant that has
// not been written yet yields an empty partition.
func (m *PartitionManager) Partition(ctx context.Context, tenantID string) (repository.StudentRepository, error) {
	m.mu.RLock()
	repo, ok := m.partitions[tenantID]
	m.mu.RUnlock()
	if ok {
		return repo, nil
	}

	known, err := m.registry.Exists(ctx, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "registry lookup failed")
	}
	if !known {
		return nil, errors.ErrTenantNotFound(tenantID)
	}
	return m.open(ctx, tenantID)
}

// OpenPartition returns the repository for the tenant, creating the partition
// and its registry row on first use.
func (m *PartitionManager) OpenPartition(ctx context.Context, tenantID string) (repository.StudentRepository, error) {
	m.mu.RLock()
	repo, ok := m.partitions[tenantID]
	m.mu.RUnlock()
	if ok {
		return repo, nil
	}

	repo2, err := m.open(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := m.registry.Register(ctx, models.NewTenant(tenantID, tenantID)); err != nil {
		return nil, err
	}
	return repo2, nil
}

// KnownTenants enumerates registered tenant ids.
func (m *PartitionManager) KnownTenants(ctx context.Context) ([]string, error) {
	return m.registry.ListTenantIDs(ctx)
}

// open creates or retrieves the partition handle under the write lock.
func (m *PartitionManager) open(ctx context.Context, tenantID string) (*StudentRepo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if repo, ok := m.partitions[tenantID]; ok {
		return repo, nil
	}

	db, err := m.openDB(tenantID)
	if err != nil {
		m.logger.Error(ctx, "Failed to open partition", err, logger.String("tenant_id", tenantID))
		return nil, errors.ErrPartitionUnavailable(tenantID, err)
	}
	if err := db.AutoMigrate(&models.StudentRecord{}); err != nil {
		return nil, errors.ErrPartitionUnavailable(tenantID, err)
	}

	repo := NewStudentRepo(tenantID, db, m.logger)
	m.partitions[tenantID] = repo

	m.logger.Info(ctx, "Partition opened", logger.String("tenant_id", tenantID))
	return repo, nil
}

func (m *PartitionManager) openDB(tenantID string) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)}

	switch m.cfg.Driver {
	case "sqlite":
		if err := os.MkdirAll(m.cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		path := filepath.Join(m.cfg.DataDir, fmt.Sprintf("%s_students.db", tenantID))
		return gorm.Open(sqlite.Open(path), gormCfg)
	case "postgres":
		// One table namespace per tenant on a shared server.
		gormCfg.NamingStrategy = schema.NamingStrategy{TablePrefix: fmt.Sprintf("t_%s_", tenantID)}
		return gorm.Open(postgres.Open(m.cfg.GetDSN()), gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", m.cfg.Driver)
	}
}

// Close releases all partition handles.
func (m *PartitionManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for id, repo := range m.partitions {
		if sqlDB, err := repo.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		delete(m.partitions, id)
	}
	return firstErr
}
