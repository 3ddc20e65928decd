package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/edusight/edusight/internal/application/dto"
	"github.com/edusight/edusight/internal/config"
	"github.com/edusight/edusight/internal/domain/models"
	"github.com/edusight/edusight/internal/domain/repository"
	domain "github.com/edusight/edusight/internal/domain/service"
	"github.com/edusight/edusight/internal/infrastructure/cache"
	"github.com/edusight/edusight/internal/infrastructure/monitoring"
	"github.com/edusight/edusight/pkg/constants"
	"github.com/edusight/edusight/pkg/errors"
	"github.com/edusight/edusight/pkg/logger"
)

// AggregationService fans read queries out across the partitions a principal
// may reach and merges the results deterministically. A slow or broken
// partition never blocks the rest of an oversight view: it is reported in the
// response's unavailable list while the reachable partitions stay correct.
// AggregationService 跨分区聚合服务。
type AggregationService interface {
	// StatsForPrincipal returns the merged dashboard aggregate for the
	// principal's resolved scope.
	StatsForPrincipal(ctx context.Context, principal *models.Principal, tenantFilter string) (*dto.StatsResponse, error)

	// StudentsForPrincipal returns one page of students across the resolved
	// scope, ordered by risk score descending with name then student id as
	// tie-breakers.
	StudentsForPrincipal(ctx context.Context, principal *models.Principal, tenantFilter string, filter models.StudentFilter, page models.Page) (*dto.StudentListResponse, error)
}

type aggregationServiceImpl struct {
	guard      *domain.AccessGuard
	partitions repository.PartitionManager
	statsCache cache.StatsCache
	sink       AuditSink
	metrics    *monitoring.Metrics
	tracing    *monitoring.TracingManager
	logger     logger.Logger
	cfg        config.AggregationConfig
}

// NewAggregationService creates the coordinator.
func NewAggregationService(
	guard *domain.AccessGuard,
	partitions repository.PartitionManager,
	statsCache cache.StatsCache,
	sink AuditSink,
	metrics *monitoring.Metrics,
	tracing *monitoring.TracingManager,
	log logger.Logger,
	cfg config.AggregationConfig,
) AggregationService {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = constants.DefaultFanOutConcurrency
	}
	if cfg.PartitionTimeout <= 0 {
		cfg.PartitionTimeout = constants.DefaultPartitionTimeout
	}
	return &aggregationServiceImpl{
		guard:      guard,
		partitions: partitions,
		statsCache: statsCache,
		sink:       sink,
		metrics:    metrics,
		tracing:    tracing,
		logger:     log.WithComponent("AggregationService"),
		cfg:        cfg,
	}
}

func (s *aggregationServiceImpl) StatsForPrincipal(ctx context.Context, principal *models.Principal, tenantFilter string) (*dto.StatsResponse, error) {
	ctx, span := s.tracing.StartSpan(ctx, "aggregation.stats",
		attribute.String("principal.role", string(principal.Role)))
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.RecordAggregate("stats", time.Since(start)) }()

	scope, err := s.guard.ResolveScope(ctx, principal, tenantFilter)
	if err != nil {
		return nil, err
	}

	// A single-partition scope is a direct query: failure there is a hard
	// error, never a silent zero.
	if len(scope) == 1 {
		stats, err := s.tenantStats(ctx, scope[0])
		if err != nil {
			return nil, err
		}
		if err := s.sink.Record(ctx, principal, constants.AuditActionAggregateStats,
			"stats", scope[0]); err != nil {
			return nil, err
		}
		return dto.NewStatsResponse(stats), nil
	}

	perTenant, unavailable, err := s.fanOutStats(ctx, scope)
	if err != nil {
		return nil, err
	}

	total := models.NewTenantStats(constants.TenantScopeAll)
	breakdown := make(map[string]*models.TenantStats, len(perTenant))
	for _, tenantID := range scope {
		stats, ok := perTenant[tenantID]
		if !ok {
			continue
		}
		stats.MergeInto(total)
		breakdown[tenantID] = stats
	}

	if err := s.sink.Record(ctx, principal, constants.AuditActionAggregateStats,
		"stats", constants.TenantScopeAll); err != nil {
		return nil, err
	}

	resp := dto.NewStatsResponse(total)
	resp.TenantBreakdown = breakdown
	resp.TenantCount = len(breakdown)
	resp.Unavailable = unavailable
	return resp, nil
}

func (s *aggregationServiceImpl) StudentsForPrincipal(ctx context.Context, principal *models.Principal, tenantFilter string, filter models.StudentFilter, page models.Page) (*dto.StudentListResponse, error) {
	ctx, span := s.tracing.StartSpan(ctx, "aggregation.students",
		attribute.String("principal.role", string(principal.Role)))
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.RecordAggregate("students", time.Since(start)) }()

	page = page.Normalize()

	scope, err := s.guard.ResolveScope(ctx, principal, tenantFilter)
	if err != nil {
		return nil, err
	}

	if len(scope) == 1 {
		repo, err := s.partitions.Partition(ctx, scope[0])
		if err != nil {
			return nil, err
		}
		records, total, err := repo.List(ctx, filter, page)
		if err != nil {
			return nil, err
		}
		if err := s.sink.Record(ctx, principal, constants.AuditActionAggregateList,
			"students", scope[0]); err != nil {
			return nil, err
		}
		return listResponse(records, total, page, nil), nil
	}

	// Cross-partition pagination: every partition contributes its own top
	// offset+limit slice, then one global re-sort applies the outer window.
	// Each partition is already ordered, so the concatenation always covers
	// the true global window.
	window := models.Page{Limit: page.Offset + page.Limit, Offset: 0}
	records, total, unavailable, err := s.fanOutList(ctx, scope, filter, window)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].RiskScore != records[j].RiskScore {
			return records[i].RiskScore > records[j].RiskScore
		}
		if records[i].Name != records[j].Name {
			return records[i].Name < records[j].Name
		}
		return records[i].StudentID < records[j].StudentID
	})
	if page.Offset < len(records) {
		end := page.Offset + page.Limit
		if end > len(records) {
			end = len(records)
		}
		records = records[page.Offset:end]
	} else {
		records = nil
	}

	if err := s.sink.Record(ctx, principal, constants.AuditActionAggregateList,
		"students", constants.TenantScopeAll); err != nil {
		return nil, err
	}
	return listResponse(records, total, page, unavailable), nil
}

// fanOutStats queries every partition concurrently under the configured
// bound and per-partition timeout. Partition failures are collected, not
// propagated; only caller cancellation aborts the whole fan-out.
func (s *aggregationServiceImpl) fanOutStats(ctx context.Context, scope []string) (map[string]*models.TenantStats, []string, error) {
	var mu sync.Mutex
	perTenant := make(map[string]*models.TenantStats, len(scope))
	failed := make(map[string]bool)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrency)
	for _, tenantID := range scope {
		tenantID := tenantID
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, s.cfg.PartitionTimeout)
			defer cancel()

			stats, err := s.tenantStats(pctx, tenantID)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.partitionFailed(ctx, tenantID, "stats", err)
				mu.Lock()
				failed[tenantID] = true
				mu.Unlock()
				return nil
			}
			mu.Lock()
			perTenant[tenantID] = stats
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return perTenant, sortedKeys(failed), nil
}

func (s *aggregationServiceImpl) fanOutList(ctx context.Context, scope []string, filter models.StudentFilter, window models.Page) ([]*models.StudentRecord, int64, []string, error) {
	var (
		mu      sync.Mutex
		records []*models.StudentRecord
		total   int64
	)
	failed := make(map[string]bool)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrency)
	for _, tenantID := range scope {
		tenantID := tenantID
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, s.cfg.PartitionTimeout)
			defer cancel()

			repo, err := s.partitions.Partition(pctx, tenantID)
			if err == nil {
				var (
					recs []*models.StudentRecord
					n    int64
				)
				recs, n, err = repo.List(pctx, filter, window)
				if err == nil {
					mu.Lock()
					records = append(records, recs...)
					total += n
					mu.Unlock()
					return nil
				}
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.partitionFailed(ctx, tenantID, "students", err)
			mu.Lock()
			failed[tenantID] = true
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, nil, err
	}
	return records, total, sortedKeys(failed), nil
}

// tenantStats serves one partition's aggregate, cache first.
func (s *aggregationServiceImpl) tenantStats(ctx context.Context, tenantID string) (*models.TenantStats, error) {
	if stats, ok := s.statsCache.Get(ctx, tenantID); ok {
		return stats, nil
	}
	repo, err := s.partitions.Partition(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	stats, err := repo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	s.statsCache.Set(ctx, tenantID, stats)
	return stats, nil
}

func (s *aggregationServiceImpl) partitionFailed(ctx context.Context, tenantID, operation string, err error) {
	reason := "error"
	if appErr, ok := errors.AsAppError(err); ok {
		reason = string(appErr.Code())
	} else if err == context.DeadlineExceeded {
		reason = "timeout"
	}
	s.metrics.RecordPartitionFailure(tenantID, reason)
	s.logger.Warn(ctx, "Partition excluded from aggregate",
		logger.String("tenant_id", tenantID),
		logger.String("operation", operation),
		logger.Error(err),
	)
}

func listResponse(records []*models.StudentRecord, total int64, page models.Page, unavailable []string) *dto.StudentListResponse {
	views := make([]dto.StudentView, 0, len(records))
	for _, rec := range records {
		views = append(views, dto.NewStudentView(rec))
	}
	return &dto.StudentListResponse{
		Students:    views,
		Total:       total,
		Limit:       page.Limit,
		Offset:      page.Offset,
		Unavailable: unavailable,
	}
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
