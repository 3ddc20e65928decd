package models

import "github.com/edusight/edusight/pkg/constants"

// Principal represents an authenticated caller as delivered by the identity
// provider. Credentials are validated upstream; this type carries only the
// authorization attributes the access guard needs.
// Principal 已认证的调用主体，仅携带授权属性。
type Principal struct {
	// PrincipalID identifies the caller for audit purposes.
	PrincipalID string `json:"principal_id"`

	// Role is either tenant_admin or oversight_admin.
	Role constants.Role `json:"role"`

	// TenantScope is exactly one tenant id for a tenant admin, or
	// constants.TenantScopeAll for an oversight admin.
	TenantScope string `json:"tenant_scope"`
}

// IsOversight reports whether the principal holds the cross-tenant role.
func (p *Principal) IsOversight() bool {
	return p.Role == constants.RoleOversightAdmin && p.TenantScope == constants.TenantScopeAll
}

// CanAccess reports whether tenantID falls inside the principal's scope.
// This is a pure check; the access guard additionally verifies that the
// tenant actually exists for oversight narrowing.
func (p *Principal) CanAccess(tenantID string) bool {
	if p.IsOversight() {
		return true
	}
	return p.TenantScope == tenantID && tenantID != ""
}
