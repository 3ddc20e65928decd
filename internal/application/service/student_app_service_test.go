package service

import (
	"context"
	goerrors "errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusight/edusight/internal/application/dto"
	"github.com/edusight/edusight/internal/config"
	"github.com/edusight/edusight/internal/domain/models"
	domain "github.com/edusight/edusight/internal/domain/service"
	"github.com/edusight/edusight/internal/infrastructure/cache"
	"github.com/edusight/edusight/internal/infrastructure/monitoring"
	"github.com/edusight/edusight/pkg/constants"
	"github.com/edusight/edusight/pkg/errors"
	"github.com/edusight/edusight/pkg/logger"
	"github.com/edusight/edusight/pkg/utils"
	"github.com/edusight/edusight/tests/fakes"
)

type studentFixture struct {
	svc        StudentAppService
	registry   *fakes.FakeRegistry
	partitions *fakes.FakePartitionManager
	audit      *fakes.FakeAuditRepo
}

func newStudentFixture(t *testing.T) *studentFixture {
	t.Helper()
	log := logger.NewNoopLogger()

	registry := fakes.NewFakeRegistry()
	partitions := fakes.NewFakePartitionManager(registry)
	guard := domain.NewAccessGuard(registry, log)
	engine := domain.NewRiskEngine(models.DefaultRiskPolicy())
	statsCache := cache.NewStatsCache(config.RedisConfig{Enabled: false}, log)
	metrics := monitoring.NewMetricsWith(prometheus.NewRegistry())
	auditRepo := fakes.NewFakeAuditRepo()
	sink := NewAuditSink(auditRepo, nil, nil, metrics, log)

	svc := NewStudentAppService(guard, engine, partitions, registry, statsCache, sink, metrics, log)
	return &studentFixture{
		svc:        svc,
		registry:   registry,
		partitions: partitions,
		audit:      auditRepo,
	}
}

func ingestRecords() []*models.StudentRecord {
	return []*models.StudentRecord{
		{
			StudentID:            "G-1",
			Name:                 "Asha",
			Department:           "CS",
			AttendancePercentage: utils.Ptr(40.0),
			Marks:                utils.Ptr(35.0),
			PaymentStatus:        constants.PaymentStatusPending,
			InternetAccess:       "No",
			Electricity:          "Irregular",
			Region:               "Rural",
		},
		{
			StudentID:            "G-2",
			Name:                 "Bala",
			Department:           "ME",
			AttendancePercentage: utils.Ptr(95.0),
			Marks:                utils.Ptr(88.0),
			PaymentStatus:        constants.PaymentStatusPaid,
		},
	}
}

func TestIngestBatchScoresAndPersists(t *testing.T) {
	f := newStudentFixture(t)

	resp, err := f.svc.IngestBatch(context.Background(), tenantAdmin("gpj"), "gpj", ingestRecords())
	require.NoError(t, err)
	assert.Equal(t, "gpj", resp.TenantID)
	assert.Equal(t, 2, resp.Ingested)

	repo, err := f.partitions.Partition(context.Background(), "gpj")
	require.NoError(t, err)

	stored, err := repo.Get(context.Background(), "G-1")
	require.NoError(t, err)
	assert.Equal(t, 83.5, stored.RiskScore)
	assert.Equal(t, constants.RiskLevelCritical, stored.RiskLevel)
	assert.True(t, stored.MultiAreaRisk)
	assert.Equal(t, "gpj", stored.TenantID)

	// Registry summary reflects the new partition contents.
	tenants, err := f.registry.ListTenants(context.Background())
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	assert.Equal(t, int64(2), tenants[0].TotalStudents)
	assert.Equal(t, int64(1), tenants[0].HighRiskStudents)

	actions := f.audit.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, constants.AuditActionBatchIngest, actions[0])
}

func TestIngestBatchReplacesExistingRecords(t *testing.T) {
	f := newStudentFixture(t)
	ctx := context.Background()

	_, err := f.svc.IngestBatch(ctx, tenantAdmin("gpj"), "gpj", ingestRecords())
	require.NoError(t, err)

	// Second upload for the same ids replaces, never duplicates.
	resp, err := f.svc.IngestBatch(ctx, tenantAdmin("gpj"), "gpj", ingestRecords())
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Ingested)

	repo, err := f.partitions.Partition(ctx, "gpj")
	require.NoError(t, err)
	_, total, err := repo.List(ctx, models.StudentFilter{}, models.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestIngestBatchRejectsRowWithoutID(t *testing.T) {
	f := newStudentFixture(t)

	records := ingestRecords()
	records[1].StudentID = "  "

	_, err := f.svc.IngestBatch(context.Background(), tenantAdmin("gpj"), "gpj", records)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	// Nothing was persisted for the rejected batch.
	_, err = f.partitions.Partition(context.Background(), "gpj")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestIngestBatchCrossTenantDenied(t *testing.T) {
	f := newStudentFixture(t)

	_, err := f.svc.IngestBatch(context.Background(), tenantAdmin("geca"), "gpj", ingestRecords())
	require.Error(t, err)
	assert.True(t, errors.IsAuthorizationError(err))
}

func TestGetStudentDetailRecomputesBreakdown(t *testing.T) {
	f := newStudentFixture(t)
	ctx := context.Background()
	_, err := f.svc.IngestBatch(ctx, tenantAdmin("gpj"), "gpj", ingestRecords())
	require.NoError(t, err)

	detail, err := f.svc.GetStudentDetail(ctx, tenantAdmin("gpj"), "", "G-1")
	require.NoError(t, err)

	assert.Equal(t, "G-1", detail.Student.StudentID)
	require.NotNil(t, detail.Assessment)
	assert.Equal(t, detail.Student.RiskScore, detail.Assessment.CompositeScore)
	assert.Len(t, detail.Assessment.Factors, 4)
	assert.NotEmpty(t, detail.Assessment.Recommendations)
}

func TestGetStudentDetailNotFound(t *testing.T) {
	f := newStudentFixture(t)
	ctx := context.Background()
	_, err := f.svc.IngestBatch(ctx, tenantAdmin("gpj"), "gpj", ingestRecords())
	require.NoError(t, err)

	_, err = f.svc.GetStudentDetail(ctx, tenantAdmin("gpj"), "", "missing")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestGetStudentDetailOversightSearchesAllPartitions(t *testing.T) {
	f := newStudentFixture(t)
	ctx := context.Background()
	_, err := f.svc.IngestBatch(ctx, tenantAdmin("gpj"), "gpj", ingestRecords())
	require.NoError(t, err)
	_, err = f.svc.IngestBatch(ctx, tenantAdmin("rtu"), "rtu", []*models.StudentRecord{
		{StudentID: "R-1", Name: "Devi"},
	})
	require.NoError(t, err)

	detail, err := f.svc.GetStudentDetail(ctx, oversightAdmin(), "", "R-1")
	require.NoError(t, err)
	assert.Equal(t, "rtu", detail.Student.TenantID)
}

func TestUpdateStudentRescoresSynchronously(t *testing.T) {
	f := newStudentFixture(t)
	ctx := context.Background()
	_, err := f.svc.IngestBatch(ctx, tenantAdmin("gpj"), "gpj", ingestRecords())
	require.NoError(t, err)

	// Lift the critical student out of every risk band.
	update := &models.StudentUpdate{
		AttendancePercentage: utils.Ptr(95.0),
		Marks:                utils.Ptr(90.0),
		PaymentStatus:        utils.Ptr(constants.PaymentStatusPaid),
		InternetAccess:       utils.Ptr("Yes"),
		Electricity:          utils.Ptr("Regular"),
		Region:               utils.Ptr("Urban"),
	}

	detail, err := f.svc.UpdateStudent(ctx, tenantAdmin("gpj"), "", "G-1", update)
	require.NoError(t, err)

	assert.Equal(t, constants.RiskLevelLow, detail.Student.RiskLevel)
	assert.Equal(t, 7.5, detail.Student.RiskScore)
	assert.False(t, detail.Student.MultiAreaRisk)

	// The stored record and the returned one agree.
	repo, err := f.partitions.Partition(ctx, "gpj")
	require.NoError(t, err)
	stored, err := repo.Get(ctx, "G-1")
	require.NoError(t, err)
	assert.Equal(t, 7.5, stored.RiskScore)
}

func TestUpdateStudentEmptyUpdateRejected(t *testing.T) {
	f := newStudentFixture(t)
	ctx := context.Background()
	_, err := f.svc.IngestBatch(ctx, tenantAdmin("gpj"), "gpj", ingestRecords())
	require.NoError(t, err)

	_, err = f.svc.UpdateStudent(ctx, tenantAdmin("gpj"), "", "G-1", &models.StudentUpdate{})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestUpdateStudentOversightNeedsTenantFilter(t *testing.T) {
	f := newStudentFixture(t)
	ctx := context.Background()
	_, err := f.svc.IngestBatch(ctx, tenantAdmin("gpj"), "gpj", ingestRecords())
	require.NoError(t, err)

	update := &models.StudentUpdate{Marks: utils.Ptr(50.0)}

	_, err = f.svc.UpdateStudent(ctx, oversightAdmin(), "", "G-1", update)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	detail, err := f.svc.UpdateStudent(ctx, oversightAdmin(), "gpj", "G-1", update)
	require.NoError(t, err)
	assert.Equal(t, 50.0, *detail.Student.Marks)
}

func TestBulkUpdateReportsPerIDOutcome(t *testing.T) {
	f := newStudentFixture(t)
	ctx := context.Background()
	_, err := f.svc.IngestBatch(ctx, tenantAdmin("gpj"), "gpj", ingestRecords())
	require.NoError(t, err)

	resp, err := f.svc.BulkUpdate(ctx, tenantAdmin("gpj"), "", &dto.BulkUpdateRequest{
		StudentIDs: []string{"G-1", "ghost", "G-2"},
		Fields:     models.StudentUpdate{Department: utils.Ptr("EE")},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"G-1", "G-2"}, resp.Updated)
	assert.Equal(t, []string{"ghost"}, resp.NotFound)

	repo, err := f.partitions.Partition(ctx, "gpj")
	require.NoError(t, err)
	stored, err := repo.Get(ctx, "G-2")
	require.NoError(t, err)
	assert.Equal(t, "EE", stored.Department)
}

func TestWritesBlockedWhenAuditFails(t *testing.T) {
	f := newStudentFixture(t)
	ctx := context.Background()
	_, err := f.svc.IngestBatch(ctx, tenantAdmin("gpj"), "gpj", ingestRecords())
	require.NoError(t, err)

	f.audit.FailWith = goerrors.New("audit store down")

	_, err = f.svc.GetStudentDetail(ctx, tenantAdmin("gpj"), "", "G-1")
	require.Error(t, err)

	_, err = f.svc.UpdateStudent(ctx, tenantAdmin("gpj"), "", "G-1",
		&models.StudentUpdate{Marks: utils.Ptr(60.0)})
	require.Error(t, err)
}
