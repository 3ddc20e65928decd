package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appservice "github.com/edusight/edusight/internal/application/service"
)

// AuditHandler serves the audit trail read endpoint.
type AuditHandler struct {
	sink appservice.AuditSink
}

// NewAuditHandler creates the handler.
func NewAuditHandler(sink appservice.AuditSink) *AuditHandler {
	return &AuditHandler{sink: sink}
}

// ListByPrincipal handles GET /api/v1/audit/:principal_id. Principals may
// read their own trail; only oversight principals may read another's.
func (h *AuditHandler) ListByPrincipal(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	resp, err := h.sink.ListByPrincipal(c.Request.Context(), principal,
		c.Param("principal_id"), pageFromQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
