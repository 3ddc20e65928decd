package service

import (
	"context"
	goerrors "errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusight/edusight/internal/config"
	"github.com/edusight/edusight/internal/domain/models"
	domain "github.com/edusight/edusight/internal/domain/service"
	"github.com/edusight/edusight/internal/infrastructure/cache"
	"github.com/edusight/edusight/internal/infrastructure/monitoring"
	"github.com/edusight/edusight/pkg/constants"
	"github.com/edusight/edusight/pkg/errors"
	"github.com/edusight/edusight/pkg/logger"
	"github.com/edusight/edusight/tests/fakes"
)

type aggregationFixture struct {
	svc        AggregationService
	registry   *fakes.FakeRegistry
	partitions *fakes.FakePartitionManager
	audit      *fakes.FakeAuditRepo
	repos      map[string]*fakes.FakeStudentRepo
}

func newAggregationFixture(t *testing.T) *aggregationFixture {
	t.Helper()
	log := logger.NewNoopLogger()

	registry := fakes.NewFakeRegistry()
	partitions := fakes.NewFakePartitionManager(registry)
	guard := domain.NewAccessGuard(registry, log)
	statsCache := cache.NewStatsCache(config.RedisConfig{Enabled: false}, log)
	metrics := monitoring.NewMetricsWith(prometheus.NewRegistry())
	auditRepo := fakes.NewFakeAuditRepo()
	sink := NewAuditSink(auditRepo, nil, nil, metrics, log)

	tracing, err := monitoring.NewTracingManager(&config.Config{}, log)
	require.NoError(t, err)

	svc := NewAggregationService(guard, partitions, statsCache, sink, metrics, tracing, log,
		config.AggregationConfig{PartitionTimeout: time.Second, MaxConcurrency: 4})

	return &aggregationFixture{
		svc:        svc,
		registry:   registry,
		partitions: partitions,
		audit:      auditRepo,
		repos:      make(map[string]*fakes.FakeStudentRepo),
	}
}

func (f *aggregationFixture) seed(t *testing.T, tenantID string, records ...*models.StudentRecord) {
	t.Helper()
	repo := fakes.NewFakeStudentRepo(tenantID)
	for _, rec := range records {
		rec.TenantID = tenantID
	}
	require.NoError(t, repo.UpsertBatch(context.Background(), records))
	f.partitions.Seed(repo)
	f.repos[tenantID] = repo
}

func scoredStudent(id, name string, score float64, level constants.RiskLevel) *models.StudentRecord {
	return &models.StudentRecord{
		StudentID:     id,
		Name:          name,
		Department:    "CS",
		RiskScore:     score,
		RiskLevel:     level,
		MultiAreaRisk: level == constants.RiskLevelCritical,
	}
}

func TestStatsOversightMergesAllPartitions(t *testing.T) {
	f := newAggregationFixture(t)
	f.seed(t, "gpj",
		scoredStudent("G-1", "Asha", 88, constants.RiskLevelCritical),
		scoredStudent("G-2", "Bala", 45, constants.RiskLevelMedium),
		scoredStudent("G-3", "Chitra", 15, constants.RiskLevelLow),
	)
	f.seed(t, "rtu",
		scoredStudent("R-1", "Devi", 68, constants.RiskLevelHigh),
		scoredStudent("R-2", "Esha", 12, constants.RiskLevelLow),
	)

	resp, err := f.svc.StatsForPrincipal(context.Background(), oversightAdmin(), "")
	require.NoError(t, err)

	assert.Equal(t, int64(5), resp.TotalStudents)
	assert.Equal(t, int64(2), resp.HighRiskCount)
	assert.InDelta(t, 45.6, resp.AverageScore, 1e-9)
	assert.Equal(t, 2, resp.TenantCount)
	assert.Len(t, resp.TenantBreakdown, 2)
	assert.Equal(t, int64(3), resp.TenantBreakdown["gpj"].TotalStudents)
	assert.Empty(t, resp.Unavailable)

	actions := f.audit.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, constants.AuditActionAggregateStats, actions[0])
	assert.Equal(t, constants.TenantScopeAll, f.audit.Entries[0].TenantTouched)
}

func TestStatsMarksUnavailablePartition(t *testing.T) {
	f := newAggregationFixture(t)
	for _, tenant := range []string{"gpj", "geca", "itij", "polu", "rtu"} {
		f.seed(t, tenant, scoredStudent(tenant+"-1", "Student", 50, constants.RiskLevelMedium))
	}
	f.repos["itij"].FailWith = goerrors.New("partition io failure")

	resp, err := f.svc.StatsForPrincipal(context.Background(), oversightAdmin(), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"itij"}, resp.Unavailable)
	assert.Equal(t, int64(4), resp.TotalStudents)
	assert.Equal(t, 4, resp.TenantCount)
	assert.NotContains(t, resp.TenantBreakdown, "itij")
}

func TestStatsSingleTenantFailureIsHardError(t *testing.T) {
	f := newAggregationFixture(t)
	f.seed(t, "gpj", scoredStudent("G-1", "Asha", 50, constants.RiskLevelMedium))
	f.repos["gpj"].FailWith = goerrors.New("partition io failure")

	_, err := f.svc.StatsForPrincipal(context.Background(), tenantAdmin("gpj"), "")
	require.Error(t, err)
	assert.True(t, errors.IsPartitionUnavailable(err))
}

func TestStatsAuditFailureBlocksResponse(t *testing.T) {
	f := newAggregationFixture(t)
	f.seed(t, "gpj", scoredStudent("G-1", "Asha", 50, constants.RiskLevelMedium))
	f.audit.FailWith = goerrors.New("audit store down")

	_, err := f.svc.StatsForPrincipal(context.Background(), oversightAdmin(), "")
	require.Error(t, err)
}

func TestStudentsOversightGlobalOrdering(t *testing.T) {
	f := newAggregationFixture(t)
	f.seed(t, "gpj",
		scoredStudent("G-1", "Asha", 88, constants.RiskLevelCritical),
		scoredStudent("G-2", "Bala", 45, constants.RiskLevelMedium),
		scoredStudent("G-3", "Chitra", 15, constants.RiskLevelLow),
	)
	f.seed(t, "rtu",
		scoredStudent("R-1", "Devi", 68, constants.RiskLevelHigh),
		scoredStudent("R-2", "Esha", 12, constants.RiskLevelLow),
	)

	page1, err := f.svc.StudentsForPrincipal(context.Background(), oversightAdmin(), "",
		models.StudentFilter{}, models.Page{Limit: 3})
	require.NoError(t, err)

	require.Len(t, page1.Students, 3)
	assert.Equal(t, int64(5), page1.Total)
	assert.Equal(t, "G-1", page1.Students[0].StudentID)
	assert.Equal(t, "R-1", page1.Students[1].StudentID)
	assert.Equal(t, "G-2", page1.Students[2].StudentID)

	page2, err := f.svc.StudentsForPrincipal(context.Background(), oversightAdmin(), "",
		models.StudentFilter{}, models.Page{Limit: 3, Offset: 3})
	require.NoError(t, err)

	require.Len(t, page2.Students, 2)
	assert.Equal(t, "G-3", page2.Students[0].StudentID)
	assert.Equal(t, "R-2", page2.Students[1].StudentID)
}

func TestStudentsTenantScoped(t *testing.T) {
	f := newAggregationFixture(t)
	f.seed(t, "gpj", scoredStudent("G-1", "Asha", 88, constants.RiskLevelCritical))
	f.seed(t, "geca", scoredStudent("E-1", "Devi", 30, constants.RiskLevelLow))

	resp, err := f.svc.StudentsForPrincipal(context.Background(), tenantAdmin("geca"), "",
		models.StudentFilter{}, models.Page{})
	require.NoError(t, err)

	require.Len(t, resp.Students, 1)
	assert.Equal(t, "E-1", resp.Students[0].StudentID)
	assert.Equal(t, "geca", resp.Students[0].TenantID)
	assert.Equal(t, int64(1), resp.Total)
}

func TestStudentsFilterByRiskLevel(t *testing.T) {
	f := newAggregationFixture(t)
	f.seed(t, "gpj",
		scoredStudent("G-1", "Asha", 88, constants.RiskLevelCritical),
		scoredStudent("G-2", "Bala", 45, constants.RiskLevelMedium),
	)
	f.seed(t, "rtu", scoredStudent("R-1", "Devi", 80, constants.RiskLevelCritical))

	resp, err := f.svc.StudentsForPrincipal(context.Background(), oversightAdmin(), "",
		models.StudentFilter{RiskLevel: constants.RiskLevelCritical}, models.Page{})
	require.NoError(t, err)

	require.Len(t, resp.Students, 2)
	assert.Equal(t, "G-1", resp.Students[0].StudentID)
	assert.Equal(t, "R-1", resp.Students[1].StudentID)
}
