package service

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edusight/edusight/internal/application/dto"
	"github.com/edusight/edusight/internal/domain/models"
	"github.com/edusight/edusight/internal/domain/repository"
	domain "github.com/edusight/edusight/internal/domain/service"
	"github.com/edusight/edusight/internal/infrastructure/cache"
	"github.com/edusight/edusight/internal/infrastructure/monitoring"
	"github.com/edusight/edusight/pkg/constants"
	"github.com/edusight/edusight/pkg/errors"
	"github.com/edusight/edusight/pkg/logger"
)

// StudentAppService implements the record-level operations: detail view,
// partial update, bulk update, and batch ingestion. Every path runs
// AccessGuard first, then storage, then the audit sink before responding.
// StudentAppService 学生记录应用服务。
type StudentAppService interface {
	// GetStudentDetail returns the record with its full assessment breakdown.
	GetStudentDetail(ctx context.Context, principal *models.Principal, tenantFilter, studentID string) (*dto.StudentDetailResponse, error)

	// UpdateStudent merges a partial update and synchronously rescores.
	UpdateStudent(ctx context.Context, principal *models.Principal, tenantFilter, studentID string, update *models.StudentUpdate) (*dto.StudentDetailResponse, error)

	// BulkUpdate applies the same partial update to many records.
	BulkUpdate(ctx context.Context, principal *models.Principal, tenantFilter string, req *dto.BulkUpdateRequest) (*dto.BulkUpdateResponse, error)

	// IngestBatch upserts a validated row collection with replace semantics.
	// Every record is scored before the batch is considered durable.
	IngestBatch(ctx context.Context, principal *models.Principal, tenantID string, records []*models.StudentRecord) (*dto.IngestResponse, error)
}

type studentAppServiceImpl struct {
	guard      *domain.AccessGuard
	engine     *domain.RiskEngine
	partitions repository.PartitionManager
	registry   repository.RegistryRepository
	statsCache cache.StatsCache
	sink       AuditSink
	metrics    *monitoring.Metrics
	logger     logger.Logger
}

// NewStudentAppService creates the service.
func NewStudentAppService(
	guard *domain.AccessGuard,
	engine *domain.RiskEngine,
	partitions repository.PartitionManager,
	registry repository.RegistryRepository,
	statsCache cache.StatsCache,
	sink AuditSink,
	metrics *monitoring.Metrics,
	log logger.Logger,
) StudentAppService {
	return &studentAppServiceImpl{
		guard:      guard,
		engine:     engine,
		partitions: partitions,
		registry:   registry,
		statsCache: statsCache,
		sink:       sink,
		metrics:    metrics,
		logger:     log.WithComponent("StudentAppService"),
	}
}

// GetStudentDetail looks the id up across the principal's resolved scope.
// The breakdown is recomputed from current attributes, so it can never be
// stale relative to the stored record.
func (s *studentAppServiceImpl) GetStudentDetail(ctx context.Context, principal *models.Principal, tenantFilter, studentID string) (*dto.StudentDetailResponse, error) {
	if studentID == "" {
		return nil, errors.ErrMissingStudentID()
	}

	scope, err := s.guard.ResolveScope(ctx, principal, tenantFilter)
	if err != nil {
		return nil, err
	}

	for _, tenantID := range scope {
		repo, err := s.partitions.Partition(ctx, tenantID)
		if err != nil {
			if errors.IsNotFoundError(err) {
				continue
			}
			return nil, err
		}
		rec, err := repo.Get(ctx, studentID)
		if err != nil {
			if errors.IsNotFoundError(err) {
				continue
			}
			return nil, err
		}

		assessment, err := s.engine.Score(rec)
		if err != nil {
			return nil, err
		}

		if err := s.sink.Record(ctx, principal, constants.AuditActionStudentDetail,
			"student/"+studentID, tenantID); err != nil {
			return nil, err
		}
		return &dto.StudentDetailResponse{Student: rec, Assessment: assessment}, nil
	}

	return nil, errors.ErrStudentNotFound(studentID)
}

// UpdateStudent merges fields into the record and rescoring happens inside
// the same mutation cycle: the persisted record and its assessment are never
// observable out of sync.
func (s *studentAppServiceImpl) UpdateStudent(ctx context.Context, principal *models.Principal, tenantFilter, studentID string, update *models.StudentUpdate) (*dto.StudentDetailResponse, error) {
	if studentID == "" {
		return nil, errors.ErrMissingStudentID()
	}
	if update == nil || update.IsEmpty() {
		return nil, errors.ErrValidation("no fields to update")
	}

	tenantID, err := s.writableTenant(principal, tenantFilter)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, principal, tenantID); err != nil {
		s.metrics.RecordAuthorizationDenial(string(principal.Role))
		return nil, err
	}

	repo, err := s.partitions.Partition(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	rec, err := repo.Get(ctx, studentID)
	if err != nil {
		return nil, err
	}

	rec.Merge(update)
	assessment, err := s.engine.Score(rec)
	if err != nil {
		return nil, err
	}
	rec.ApplyAssessment(assessment)

	if err := repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	s.metrics.RecordAssessment(tenantID, string(assessment.RiskLevel))
	s.refreshSummary(ctx, tenantID, repo)

	if err := s.sink.Record(ctx, principal, constants.AuditActionStudentUpdate,
		"student/"+studentID, tenantID); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Student updated",
		logger.String("tenant_id", tenantID),
		logger.String("student_id", studentID),
		logger.Float64("risk_score", assessment.CompositeScore),
	)
	return &dto.StudentDetailResponse{Student: rec, Assessment: assessment}, nil
}

// BulkUpdate applies the partial update to each id in turn. Missing ids are
// reported, not fatal; storage failures abort.
func (s *studentAppServiceImpl) BulkUpdate(ctx context.Context, principal *models.Principal, tenantFilter string, req *dto.BulkUpdateRequest) (*dto.BulkUpdateResponse, error) {
	if len(req.StudentIDs) == 0 {
		return nil, errors.ErrValidation("student_ids is required")
	}
	if req.Fields.IsEmpty() {
		return nil, errors.ErrValidation("no fields to update")
	}

	tenantID, err := s.writableTenant(principal, tenantFilter)
	if err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, principal, tenantID); err != nil {
		s.metrics.RecordAuthorizationDenial(string(principal.Role))
		return nil, err
	}

	repo, err := s.partitions.Partition(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	resp := &dto.BulkUpdateResponse{}
	for _, id := range req.StudentIDs {
		rec, err := repo.Get(ctx, id)
		if err != nil {
			if errors.IsNotFoundError(err) {
				resp.NotFound = append(resp.NotFound, id)
				continue
			}
			return nil, err
		}

		rec.Merge(&req.Fields)
		assessment, err := s.engine.Score(rec)
		if err != nil {
			return nil, err
		}
		rec.ApplyAssessment(assessment)

		if err := repo.Update(ctx, rec); err != nil {
			return nil, err
		}
		s.metrics.RecordAssessment(tenantID, string(assessment.RiskLevel))
		resp.Updated = append(resp.Updated, id)
	}
	s.refreshSummary(ctx, tenantID, repo)

	if err := s.sink.Record(ctx, principal, constants.AuditActionBulkUpdate,
		fmt.Sprintf("students/%d", len(req.StudentIDs)), tenantID); err != nil {
		return nil, err
	}
	return resp, nil
}

// IngestBatch scores every record and hands the batch to the partition in one
// atomic write. Scoring is stateless, so records are scored in parallel.
func (s *studentAppServiceImpl) IngestBatch(ctx context.Context, principal *models.Principal, tenantID string, records []*models.StudentRecord) (*dto.IngestResponse, error) {
	if tenantID == "" {
		return nil, errors.ErrValidation("tenant_id is required")
	}
	if len(records) == 0 {
		return nil, errors.ErrValidation("records is required")
	}
	if err := s.guard.Authorize(ctx, principal, tenantID); err != nil {
		s.metrics.RecordAuthorizationDenial(string(principal.Role))
		return nil, err
	}

	// Replace semantics per id: a duplicate inside one batch keeps the last row.
	deduped := make([]*models.StudentRecord, 0, len(records))
	index := make(map[string]int, len(records))
	for i, rec := range records {
		if rec == nil || !rec.Validate() {
			return nil, errors.ErrValidation(fmt.Sprintf("record %d: student_id is required", i))
		}
		if pos, ok := index[rec.StudentID]; ok {
			deduped[pos] = rec
			continue
		}
		index[rec.StudentID] = len(deduped)
		deduped = append(deduped, rec)
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, rec := range deduped {
		rec := rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			assessment, err := s.engine.Score(rec)
			if err != nil {
				return err
			}
			rec.TenantID = tenantID
			rec.ApplyAssessment(assessment)
			s.metrics.RecordAssessment(tenantID, string(assessment.RiskLevel))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	repo, err := s.partitions.OpenPartition(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := repo.UpsertBatch(ctx, deduped); err != nil {
		return nil, err
	}
	s.metrics.RecordBatchUpsert(tenantID, len(deduped), time.Since(start))
	s.refreshSummary(ctx, tenantID, repo)

	if err := s.sink.Record(ctx, principal, constants.AuditActionBatchIngest,
		fmt.Sprintf("batch/%d", len(deduped)), tenantID); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Batch ingested",
		logger.String("tenant_id", tenantID),
		logger.Int("records", len(deduped)),
		logger.Duration("latency", time.Since(start)),
	)
	return &dto.IngestResponse{TenantID: tenantID, Ingested: len(deduped)}, nil
}

// writableTenant resolves the single partition a mutation targets.
func (s *studentAppServiceImpl) writableTenant(principal *models.Principal, tenantFilter string) (string, error) {
	if principal.Role == constants.RoleTenantAdmin {
		if tenantFilter != "" && tenantFilter != principal.TenantScope {
			return "", errors.ErrAuthorization(tenantFilter)
		}
		return principal.TenantScope, nil
	}
	if tenantFilter == "" {
		return "", errors.ErrValidation("tenant filter is required for oversight mutations")
	}
	return tenantFilter, nil
}

// refreshSummary recomputes the partition stats, refreshes the registry's
// cached summary fields, and reprimes the stats cache. Derived data only;
// failures are logged and do not fail the triggering write.
func (s *studentAppServiceImpl) refreshSummary(ctx context.Context, tenantID string, repo repository.StudentRepository) {
	stats, err := repo.Stats(ctx)
	if err != nil {
		s.logger.Warn(ctx, "Summary refresh skipped",
			logger.String("tenant_id", tenantID), logger.Error(err))
		s.statsCache.Invalidate(ctx, tenantID)
		return
	}
	if err := s.registry.UpdateSummary(ctx, tenantID, stats.TotalStudents, stats.HighRiskCount); err != nil {
		s.logger.Warn(ctx, "Registry summary update failed",
			logger.String("tenant_id", tenantID), logger.Error(err))
	}
	s.statsCache.Set(ctx, tenantID, stats)
}
