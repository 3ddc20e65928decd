package service

import (
	"context"
	"sort"

	"github.com/edusight/edusight/internal/domain/models"
	"github.com/edusight/edusight/internal/domain/repository"
	"github.com/edusight/edusight/pkg/constants"
	"github.com/edusight/edusight/pkg/errors"
	"github.com/edusight/edusight/pkg/logger"
)

// AccessGuard maps an authenticated principal to the set of tenant partitions
// it may touch. Every downstream operation resolves its scope here first; any
// attempt to touch a tenant outside the resolved set fails with an
// authorization error before storage is reached. A denial is always explicit,
// never an empty result.
// AccessGuard 访问守卫：在存储访问之前解析并强制租户范围。
type AccessGuard struct {
	registry repository.RegistryRepository
	logger   logger.Logger
}

// NewAccessGuard creates the guard backed by the tenant registry.
func NewAccessGuard(registry repository.RegistryRepository, log logger.Logger) *AccessGuard {
	return &AccessGuard{
		registry: registry,
		logger:   log.WithComponent("AccessGuard"),
	}
}

// ResolveScope returns the sorted set of tenant ids the principal may read for
// this request. requestedTenant optionally narrows an oversight principal to
// one named tenant; for a tenant admin it must match the principal's own
// scope or the request is denied.
func (g *AccessGuard) ResolveScope(ctx context.Context, principal *models.Principal, requestedTenant string) ([]string, error) {
	if principal == nil || principal.PrincipalID == "" {
		return nil, errors.ErrAuthorization("")
	}

	if principal.Role == constants.RoleTenantAdmin {
		if principal.TenantScope == "" || principal.TenantScope == constants.TenantScopeAll {
			g.logger.Warn(ctx, "Tenant admin with invalid scope",
				logger.String("principal_id", principal.PrincipalID))
			return nil, errors.ErrAuthorization(requestedTenant)
		}
		if requestedTenant != "" && requestedTenant != principal.TenantScope {
			g.logger.Warn(ctx, "Scope violation rejected",
				logger.String("principal_id", principal.PrincipalID),
				logger.String("own_tenant", principal.TenantScope),
				logger.String("requested_tenant", requestedTenant))
			return nil, errors.ErrAuthorization(requestedTenant)
		}
		return []string{principal.TenantScope}, nil
	}

	if !principal.IsOversight() {
		return nil, errors.ErrAuthorization(requestedTenant)
	}

	if requestedTenant != "" {
		known, err := g.registry.Exists(ctx, requestedTenant)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "registry lookup failed")
		}
		if !known {
			return nil, errors.ErrTenantNotFound(requestedTenant)
		}
		return []string{requestedTenant}, nil
	}

	ids, err := g.registry.ListTenantIDs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "registry enumeration failed")
	}
	sort.Strings(ids)
	return ids, nil
}

// Authorize checks a single concrete tenant against the principal's scope.
// It is the last line of defense before a partition handle is used.
func (g *AccessGuard) Authorize(ctx context.Context, principal *models.Principal, tenantID string) error {
	if principal == nil || !principal.CanAccess(tenantID) {
		id := ""
		if principal != nil {
			id = principal.PrincipalID
		}
		g.logger.Warn(ctx, "Partition access denied",
			logger.String("principal_id", id),
			logger.String("tenant_id", tenantID))
		return errors.ErrAuthorization(tenantID)
	}
	return nil
}
