// Package handlers implements the HTTP endpoint handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edusight/edusight/internal/application/dto"
	"github.com/edusight/edusight/internal/domain/models"
	"github.com/edusight/edusight/internal/interfaces/http/middleware"
	"github.com/edusight/edusight/pkg/errors"
)

// respondError translates a structured error into the uniform envelope with
// its mapped status code. Anything that is not an AppError becomes a 500.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if app, ok := errors.AsAppError(err); ok {
		status = app.HTTPStatus()
	}
	c.JSON(status, dto.ErrorResponse(err))
}

// requirePrincipal pulls the authenticated principal out of the request
// context. A missing principal means the route was wired outside the auth
// middleware, which is a server fault, not a client one.
func requirePrincipal(c *gin.Context) (*models.Principal, bool) {
	principal, ok := middleware.PrincipalFromContext(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			dto.ErrorResponse(errors.ErrInternal("principal missing from request context")))
		return nil, false
	}
	return principal, true
}
