package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/edusight/edusight/internal/domain/models"
	"github.com/edusight/edusight/pkg/constants"
	"github.com/edusight/edusight/pkg/logger"
)

// extractBearer extracts the token from the Authorization header.
func extractBearer(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// RequirePrincipal verifies the HS256 bearer token and places the resolved
// Principal into the request context. The token must carry sub, role, and
// tenant_scope claims; anything else is rejected before any handler runs.
func RequirePrincipal(secret string, log logger.Logger) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		tokenStr := extractBearer(c.Request.Header.Get("Authorization"))
		if tokenStr == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		token, err := jwt.ParseWithClaims(tokenStr, jwt.MapClaims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return key, nil
		})
		if err != nil || !token.Valid {
			log.Warn(c.Request.Context(), "Token verification failed", logger.Error(err))
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		principal, ok := principalFromClaims(claims)
		if !ok {
			log.Warn(c.Request.Context(), "Token is missing principal claims")
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(c.Request.Context(), constants.ContextKeyPrincipal, principal)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func principalFromClaims(claims jwt.MapClaims) (*models.Principal, bool) {
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	scope, _ := claims["tenant_scope"].(string)
	if sub == "" || scope == "" {
		return nil, false
	}
	switch constants.Role(role) {
	case constants.RoleTenantAdmin, constants.RoleOversightAdmin:
	default:
		return nil, false
	}
	return &models.Principal{
		PrincipalID: sub,
		Role:        constants.Role(role),
		TenantScope: scope,
	}, true
}

// PrincipalFromContext retrieves the authenticated principal placed by
// RequirePrincipal. Handlers behind the middleware may assume it is present.
func PrincipalFromContext(ctx context.Context) (*models.Principal, bool) {
	principal, ok := ctx.Value(constants.ContextKeyPrincipal).(*models.Principal)
	return principal, ok
}
