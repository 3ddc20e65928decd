package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edusight/edusight/internal/domain/models"
	"github.com/edusight/edusight/pkg/constants"
	"github.com/edusight/edusight/pkg/errors"
	"github.com/edusight/edusight/pkg/logger"
	"github.com/edusight/edusight/tests/fakes"
)

func newTestGuard(tenants ...string) *AccessGuard {
	registry := fakes.NewFakeRegistry()
	for _, id := range tenants {
		registry.Add(id)
	}
	return NewAccessGuard(registry, logger.NewNoopLogger())
}

func tenantAdmin(tenant string) *models.Principal {
	return &models.Principal{
		PrincipalID: "admin-" + tenant,
		Role:        constants.RoleTenantAdmin,
		TenantScope: tenant,
	}
}

func oversightAdmin() *models.Principal {
	return &models.Principal{
		PrincipalID: "board-admin",
		Role:        constants.RoleOversightAdmin,
		TenantScope: constants.TenantScopeAll,
	}
}

func TestResolveScopeTenantAdminOwnPartition(t *testing.T) {
	guard := newTestGuard("gpj", "geca")

	scope, err := guard.ResolveScope(context.Background(), tenantAdmin("geca"), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"geca"}, scope)
}

func TestResolveScopeTenantAdminCrossTenantDenied(t *testing.T) {
	guard := newTestGuard("gpj", "geca", "rtu")

	_, err := guard.ResolveScope(context.Background(), tenantAdmin("geca"), "rtu")
	require.Error(t, err)
	assert.True(t, errors.IsAuthorizationError(err))
}

func TestResolveScopeOversightAllTenantsSorted(t *testing.T) {
	guard := newTestGuard("rtu", "gpj", "polu", "geca", "itij")

	scope, err := guard.ResolveScope(context.Background(), oversightAdmin(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"geca", "gpj", "itij", "polu", "rtu"}, scope)
}

func TestResolveScopeOversightNarrowedToOneTenant(t *testing.T) {
	guard := newTestGuard("gpj", "geca")

	scope, err := guard.ResolveScope(context.Background(), oversightAdmin(), "gpj")
	require.NoError(t, err)
	assert.Equal(t, []string{"gpj"}, scope)
}

func TestResolveScopeOversightUnknownTenant(t *testing.T) {
	guard := newTestGuard("gpj")

	_, err := guard.ResolveScope(context.Background(), oversightAdmin(), "nowhere")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestResolveScopeAnonymousDenied(t *testing.T) {
	guard := newTestGuard("gpj")

	_, err := guard.ResolveScope(context.Background(), &models.Principal{}, "")
	require.Error(t, err)
	assert.True(t, errors.IsAuthorizationError(err))
}

func TestAuthorizeEnforcesScope(t *testing.T) {
	guard := newTestGuard("gpj", "rtu")

	require.NoError(t, guard.Authorize(context.Background(), tenantAdmin("gpj"), "gpj"))
	require.NoError(t, guard.Authorize(context.Background(), oversightAdmin(), "rtu"))

	err := guard.Authorize(context.Background(), tenantAdmin("gpj"), "rtu")
	require.Error(t, err)
	assert.True(t, errors.IsAuthorizationError(err))
}
