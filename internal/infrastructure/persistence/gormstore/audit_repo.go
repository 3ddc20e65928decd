package gormstore

import (
	"context"

	"gorm.io/gorm"

	"github.com/edusight/edusight/internal/config"
	"github.com/edusight/edusight/internal/domain/models"
	"github.com/edusight/edusight/internal/domain/repository"
	"github.com/edusight/edusight/pkg/errors"
	"github.com/edusight/edusight/pkg/logger"
)

// AuditRepo is the append-only audit partition. Records are never updated or
// deleted; per-principal ordering follows insertion order.
type AuditRepo struct {
	db     *gorm.DB
	logger logger.Logger
}

// OpenAudit opens (and migrates) the audit partition.
func OpenAudit(cfg config.DatabaseConfig, log logger.Logger) (*AuditRepo, error) {
	db, err := openSharedDB(cfg, "audit")
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.AuditRecord{}); err != nil {
		return nil, err
	}
	return &AuditRepo{db: db, logger: log.WithComponent("AuditRepo")}, nil
}

var _ repository.AuditRepository = (*AuditRepo)(nil)

// Append durably persists one audit record.
func (r *AuditRepo) Append(ctx context.Context, record *models.AuditRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		r.logger.Error(ctx, "Failed to append audit record", err,
			logger.String("principal_id", record.PrincipalID),
			logger.String("action", string(record.Action)),
		)
		return errors.Wrap(err, errors.CodeInternal, "audit append failed")
	}
	return nil
}

// ListByPrincipal returns a principal's records in insertion order.
func (r *AuditRepo) ListByPrincipal(ctx context.Context, principalID string, page models.Page) ([]*models.AuditRecord, error) {
	page = page.Normalize()

	var records []*models.AuditRecord
	err := r.db.WithContext(ctx).
		Where("principal_id = ?", principalID).
		Order("timestamp ASC").
		Order("event_id ASC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&records).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "audit listing failed")
	}
	return records, nil
}
