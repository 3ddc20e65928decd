package service

import (
	"github.com/edusight/edusight/internal/domain/models"
	"github.com/edusight/edusight/pkg/constants"
)

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
