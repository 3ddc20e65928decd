package gormstore

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/edusight/edusight/internal/domain/models"
	"github.com/edusight/edusight/pkg/constants"
	"github.com/edusight/edusight/pkg/errors"
	"github.com/edusight/edusight/pkg/logger"
)

// StudentRepo implements StudentRepository for exactly one tenant partition.
//
// Concurrency: writes serialize on the partition's write lock (single writer
// at a time), reads share the read lock, and the batch upsert runs inside one
// transaction, so readers never observe a half-applied batch. Locks are
// per-partition; writes to different tenants proceed in parallel.
type StudentRepo struct {
	tenantID string
	db       *gorm.DB
	logger   logger.Logger

	mu sync.RWMutex
}

// NewStudentRepo creates the partition repository.
func NewStudentRepo(tenantID string, db *gorm.DB, log logger.Logger) *StudentRepo {
	return &StudentRepo{
		tenantID: tenantID,
		db:       db,
		logger:   log.WithComponent("StudentRepo").WithFields(logger.String("tenant_id", tenantID)),
	}
}

// TenantID names the partition this repository owns.
func (r *StudentRepo) TenantID() string {
	return r.tenantID
}

// Get retrieves one record by id.
func (r *StudentRepo) Get(ctx context.Context, studentID string) (*models.StudentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rec models.StudentRecord
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		First(&rec).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrStudentNotFound(studentID)
		}
		r.logger.Error(ctx, "Failed to load student", err, logger.String("student_id", studentID))
		return nil, errors.ErrPartitionUnavailable(r.tenantID, err)
	}
	return &rec, nil
}

// List returns one ordered page plus the total match count. The sort key is
// risk_score descending, then name ascending, then student_id as the stable
// tie-break.
func (r *StudentRepo) List(ctx context.Context, filter models.StudentFilter, page models.Page) ([]*models.StudentRecord, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	page = page.Normalize()
	q := r.applyFilter(r.db.WithContext(ctx).Model(&models.StudentRecord{}), filter)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, errors.ErrPartitionUnavailable(r.tenantID, err)
	}

	var records []*models.StudentRecord
	err := q.
		Order("risk_score DESC").
		Order("name ASC").
		Order("student_id ASC").
		Limit(page.Limit).
		Offset(page.Offset).
		Find(&records).Error
	if err != nil {
		r.logger.Error(ctx, "Failed to list students", err)
		return nil, 0, errors.ErrPartitionUnavailable(r.tenantID, err)
	}
	return records, total, nil
}

func (r *StudentRepo) applyFilter(q *gorm.DB, filter models.StudentFilter) *gorm.DB {
	if filter.Department != "" {
		q = q.Where("department = ?", filter.Department)
	}
	if filter.RiskLevel != "" {
		q = q.Where("risk_level = ?", filter.RiskLevel)
	}
	if filter.InstitutionType != "" {
		q = q.Where("institution_type = ?", filter.InstitutionType)
	}
	return q
}

// UpsertBatch replaces records by id inside one transaction. Records arrive
// already scored; persisting record and assessment together keeps the two
// atomic. Re-running the same batch is a no-op beyond refreshed timestamps.
func (r *StudentRepo) UpsertBatch(ctx context.Context, records []*models.StudentRecord) error {
	if len(records) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	now := time.Now().UTC()
	for _, rec := range records {
		rec.TenantID = r.tenantID
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.UpdatedAt = now
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "student_id"}},
				UpdateAll: true,
			}).
			CreateInBatches(records, 200).Error
	})
	if err != nil {
		r.logger.Error(ctx, "Batch upsert failed", err, logger.Int("batch_size", len(records)))
		return errors.ErrPartitionUnavailable(r.tenantID, err)
	}

	r.logger.Info(ctx, "Batch upsert applied",
		logger.Int("batch_size", len(records)),
		logger.Int64("latency_ms", time.Since(start).Milliseconds()),
	)
	return nil
}

// Update persists one already-rescored record in place.
func (r *StudentRepo) Update(ctx context.Context, record *models.StudentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record.TenantID = r.tenantID
	record.UpdatedAt = time.Now().UTC()

	result := r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: false}).
		Where("student_id = ?", record.StudentID).
		Save(record)
	if result.Error != nil {
		r.logger.Error(ctx, "Failed to update student", result.Error,
			logger.String("student_id", record.StudentID))
		return errors.ErrPartitionUnavailable(r.tenantID, result.Error)
	}
	return nil
}

// Stats computes the partition's aggregate view with grouped counts.
func (r *StudentRepo) Stats(ctx context.Context) (*models.TenantStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := models.NewTenantStats(r.tenantID)
	model := r.db.WithContext(ctx).Model(&models.StudentRecord{})

	if err := model.Count(&stats.TotalStudents).Error; err != nil {
		return nil, errors.ErrPartitionUnavailable(r.tenantID, err)
	}
	if stats.TotalStudents == 0 {
		return stats, nil
	}

	type bucket struct {
		Key   string
		Count int64
	}

	var riskRows []bucket
	err := r.db.WithContext(ctx).Model(&models.StudentRecord{}).
		Select("risk_level AS key, COUNT(*) AS count").
		Group("risk_level").
		Scan(&riskRows).Error
	if err != nil {
		return nil, errors.ErrPartitionUnavailable(r.tenantID, err)
	}
	for _, row := range riskRows {
		level := constants.RiskLevel(row.Key)
		stats.RiskLevels[level] = row.Count
		if level.IsElevated() {
			stats.HighRiskCount += row.Count
		}
	}

	var deptRows []bucket
	err = r.db.WithContext(ctx).Model(&models.StudentRecord{}).
		Select("department AS key, COUNT(*) AS count").
		Group("department").
		Scan(&deptRows).Error
	if err != nil {
		return nil, errors.ErrPartitionUnavailable(r.tenantID, err)
	}
	for _, row := range deptRows {
		stats.Departments[row.Key] = row.Count
	}

	var avg struct{ Avg float64 }
	err = r.db.WithContext(ctx).Model(&models.StudentRecord{}).
		Select("AVG(risk_score) AS avg").
		Scan(&avg).Error
	if err != nil {
		return nil, errors.ErrPartitionUnavailable(r.tenantID, err)
	}
	stats.AverageScore = avg.Avg

	return stats, nil
}
