package service

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusight/edusight/internal/domain/models"
	infraaudit "github.com/edusight/edusight/internal/infrastructure/audit"
	"github.com/edusight/edusight/internal/infrastructure/monitoring"
	"github.com/edusight/edusight/pkg/constants"
	"github.com/edusight/edusight/pkg/errors"
	"github.com/edusight/edusight/pkg/logger"
	"github.com/edusight/edusight/tests/fakes"
)

func newSinkFixture(secret string) (AuditSink, *fakes.FakeAuditRepo) {
	repo := fakes.NewFakeAuditRepo()
	metrics := monitoring.NewMetricsWith(prometheus.NewRegistry())
	sink := NewAuditSink(repo, infraaudit.NewSigner(secret), nil, metrics, logger.NewNoopLogger())
	return sink, repo
}

func TestRecordWritesEntry(t *testing.T) {
	sink, repo := newSinkFixture("")

	err := sink.Record(context.Background(), tenantAdmin("gpj"),
		constants.AuditActionStudentDetail, "student/G-1", "gpj")
	require.NoError(t, err)

	require.Len(t, repo.Entries, 1)
	entry := repo.Entries[0]
	assert.Equal(t, "admin-gpj", entry.PrincipalID)
	assert.Equal(t, constants.AuditActionStudentDetail, entry.Action)
	assert.Equal(t, "gpj", entry.TenantTouched)
	assert.NotZero(t, entry.EventID)
	assert.Empty(t, entry.Signature)
}

func TestRecordSignsWhenSecretConfigured(t *testing.T) {
	sink, repo := newSinkFixture("trail-secret")

	err := sink.Record(context.Background(), oversightAdmin(),
		constants.AuditActionAggregateStats, "stats", constants.TenantScopeAll)
	require.NoError(t, err)

	require.Len(t, repo.Entries, 1)
	entry := repo.Entries[0]
	require.NotEmpty(t, entry.Signature)

	signer := infraaudit.NewSigner("trail-secret")
	ok, err := signer.Verify(entry)
	require.NoError(t, err)
	assert.True(t, ok)

	// Any mutation after the fact breaks verification.
	entry.TenantTouched = "gpj"
	ok, err = signer.Verify(entry)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListByPrincipalDefaultsToSelf(t *testing.T) {
	sink, _ := newSinkFixture("")
	ctx := context.Background()
	caller := tenantAdmin("gpj")

	require.NoError(t, sink.Record(ctx, caller, constants.AuditActionStudentDetail, "student/G-1", "gpj"))
	require.NoError(t, sink.Record(ctx, caller, constants.AuditActionStudentUpdate, "student/G-1", "gpj"))
	require.NoError(t, sink.Record(ctx, oversightAdmin(), constants.AuditActionAggregateStats, "stats", constants.TenantScopeAll))

	resp, err := sink.ListByPrincipal(ctx, caller, "", models.Page{})
	require.NoError(t, err)
	require.Len(t, resp.Records, 2)
	for _, rec := range resp.Records {
		assert.Equal(t, caller.PrincipalID, rec.PrincipalID)
	}
}

func TestListByPrincipalCrossPrincipalNeedsOversight(t *testing.T) {
	sink, _ := newSinkFixture("")
	ctx := context.Background()

	require.NoError(t, sink.Record(ctx, tenantAdmin("gpj"),
		constants.AuditActionStudentDetail, "student/G-1", "gpj"))

	_, err := sink.ListByPrincipal(ctx, tenantAdmin("geca"), "admin-gpj", models.Page{})
	require.Error(t, err)
	assert.True(t, errors.IsAuthorizationError(err))

	resp, err := sink.ListByPrincipal(ctx, oversightAdmin(), "admin-gpj", models.Page{})
	require.NoError(t, err)
	assert.Len(t, resp.Records, 1)
}
