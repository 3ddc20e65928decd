package gormstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusight/edusight/internal/config"
	"github.com/edusight/edusight/internal/domain/models"
	"github.com/edusight/edusight/internal/domain/repository"
	"github.com/edusight/edusight/pkg/constants"
	"github.com/edusight/edusight/pkg/errors"
	"github.com/edusight/edusight/pkg/logger"
	"github.com/edusight/edusight/pkg/utils"
)

func newTestStore(t *testing.T) (*PartitionManager, *RegistryRepo) {
	t.Helper()
	cfg := config.DatabaseConfig{Driver: "sqlite", DataDir: t.TempDir()}
	log := logger.NewNoopLogger()

	registry, err := OpenRegistry(cfg, log)
	require.NoError(t, err)

	manager := NewPartitionManager(cfg, registry, log)
	t.Cleanup(func() { _ = manager.Close() })
	return manager, registry
}

func seedPartition(t *testing.T, manager *PartitionManager, tenantID string) repository.StudentRepository {
	t.Helper()
	repo, err := manager.OpenPartition(context.Background(), tenantID)
	require.NoError(t, err)

	records := []*models.StudentRecord{
		{StudentID: "S-1", Name: "Asha", Department: "CS", RiskScore: 88, RiskLevel: constants.RiskLevelCritical},
		{StudentID: "S-2", Name: "Bala", Department: "ME", RiskScore: 45, RiskLevel: constants.RiskLevelMedium},
		{StudentID: "S-3", Name: "Chitra", Department: "CS", RiskScore: 45, RiskLevel: constants.RiskLevelMedium},
		{StudentID: "S-4", Name: "Devi", Department: "EE", RiskScore: 12, RiskLevel: constants.RiskLevelLow},
	}
	require.NoError(t, repo.UpsertBatch(context.Background(), records))
	return repo
}

func TestPartitionUnknownTenant(t *testing.T) {
	manager, _ := newTestStore(t)

	_, err := manager.Partition(context.Background(), "nowhere")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestOpenPartitionRegistersTenant(t *testing.T) {
	manager, registry := newTestStore(t)

	_, err := manager.OpenPartition(context.Background(), "gpj")
	require.NoError(t, err)

	known, err := registry.Exists(context.Background(), "gpj")
	require.NoError(t, err)
	assert.True(t, known)

	// Registered tenants are reachable through the read path.
	_, err = manager.Partition(context.Background(), "gpj")
	require.NoError(t, err)
}

func TestUpsertBatchIsIdempotent(t *testing.T) {
	manager, _ := newTestStore(t)
	repo := seedPartition(t, manager, "gpj")
	ctx := context.Background()

	// Replay the same ids with one changed attribute.
	again := []*models.StudentRecord{
		{StudentID: "S-1", Name: "Asha", Department: "CS", RiskScore: 70, RiskLevel: constants.RiskLevelHigh},
	}
	require.NoError(t, repo.UpsertBatch(ctx, again))

	_, total, err := repo.List(ctx, models.StudentFilter{}, models.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	rec, err := repo.Get(ctx, "S-1")
	require.NoError(t, err)
	assert.Equal(t, 70.0, rec.RiskScore)
	assert.Equal(t, constants.RiskLevelHigh, rec.RiskLevel)
}

func TestListOrderingAndTieBreaks(t *testing.T) {
	manager, _ := newTestStore(t)
	repo := seedPartition(t, manager, "gpj")

	records, total, err := repo.List(context.Background(), models.StudentFilter{}, models.Page{})
	require.NoError(t, err)

	assert.Equal(t, int64(4), total)
	require.Len(t, records, 4)
	// Risk score descending; equal scores fall back to name.
	assert.Equal(t, "S-1", records[0].StudentID)
	assert.Equal(t, "S-2", records[1].StudentID)
	assert.Equal(t, "S-3", records[2].StudentID)
	assert.Equal(t, "S-4", records[3].StudentID)
}

func TestListFilterAndPagination(t *testing.T) {
	manager, _ := newTestStore(t)
	repo := seedPartition(t, manager, "gpj")
	ctx := context.Background()

	records, total, err := repo.List(ctx, models.StudentFilter{Department: "CS"}, models.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, records, 2)

	paged, total, err := repo.List(ctx, models.StudentFilter{}, models.Page{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, paged, 2)
	assert.Equal(t, "S-3", paged[0].StudentID)
}

func TestGetNotFound(t *testing.T) {
	manager, _ := newTestStore(t)
	repo := seedPartition(t, manager, "gpj")

	_, err := repo.Get(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestUpdatePersistsInPlace(t *testing.T) {
	manager, _ := newTestStore(t)
	repo := seedPartition(t, manager, "gpj")
	ctx := context.Background()

	rec, err := repo.Get(ctx, "S-2")
	require.NoError(t, err)

	rec.Marks = utils.Ptr(72.0)
	rec.RiskScore = 20
	rec.RiskLevel = constants.RiskLevelLow
	require.NoError(t, repo.Update(ctx, rec))

	stored, err := repo.Get(ctx, "S-2")
	require.NoError(t, err)
	assert.Equal(t, 72.0, *stored.Marks)
	assert.Equal(t, constants.RiskLevelLow, stored.RiskLevel)
}

func TestStatsAggregatesPartition(t *testing.T) {
	manager, _ := newTestStore(t)
	repo := seedPartition(t, manager, "gpj")

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(4), stats.TotalStudents)
	assert.Equal(t, int64(1), stats.HighRiskCount)
	assert.Equal(t, int64(2), stats.Departments["CS"])
	assert.Equal(t, int64(2), stats.RiskLevels[constants.RiskLevelMedium])
	assert.InDelta(t, (88+45+45+12)/4.0, stats.AverageScore, 1e-9)
}

func TestPartitionsAreIsolated(t *testing.T) {
	manager, _ := newTestStore(t)
	seedPartition(t, manager, "gpj")
	ctx := context.Background()

	other, err := manager.OpenPartition(ctx, "rtu")
	require.NoError(t, err)

	_, total, err := other.List(ctx, models.StudentFilter{}, models.Page{})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, err = other.Get(ctx, "S-1")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestRegistrySummaryLifecycle(t *testing.T) {
	manager, registry := newTestStore(t)
	seedPartition(t, manager, "gpj")
	ctx := context.Background()

	require.NoError(t, registry.UpdateSummary(ctx, "gpj", 4, 1))

	tenants, err := registry.ListTenants(ctx)
	require.NoError(t, err)
	require.Len(t, tenants, 1)
	assert.Equal(t, int64(4), tenants[0].TotalStudents)
	assert.Equal(t, int64(1), tenants[0].HighRiskStudents)

	err = registry.UpdateSummary(ctx, "ghost", 1, 0)
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestAuditRepoAppendsAndListsInOrder(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: "sqlite", DataDir: t.TempDir()}
	log := logger.NewNoopLogger()
	ctx := context.Background()

	auditRepo, err := OpenAudit(cfg, log)
	require.NoError(t, err)

	caller := &models.Principal{PrincipalID: "admin-gpj", Role: constants.RoleTenantAdmin, TenantScope: "gpj"}
	for _, action := range []constants.AuditAction{
		constants.AuditActionBatchIngest,
		constants.AuditActionStudentDetail,
		constants.AuditActionStudentUpdate,
	} {
		require.NoError(t, auditRepo.Append(ctx, models.NewAuditRecord(caller, action, "r", "gpj")))
	}
	require.NoError(t, auditRepo.Append(ctx,
		models.NewAuditRecord(&models.Principal{PrincipalID: "other", Role: constants.RoleOversightAdmin, TenantScope: constants.TenantScopeAll},
			constants.AuditActionAggregateStats, "stats", constants.TenantScopeAll)))

	records, err := auditRepo.ListByPrincipal(ctx, "admin-gpj", models.Page{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, constants.AuditActionBatchIngest, records[0].Action)
	assert.Equal(t, constants.AuditActionStudentUpdate, records[2].Action)
}
