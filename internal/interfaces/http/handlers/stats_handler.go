package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appservice "github.com/edusight/edusight/internal/application/service"
)

// StatsHandler serves the dashboard aggregate endpoint.
type StatsHandler struct {
	aggregation appservice.AggregationService
}

// NewStatsHandler creates the handler.
func NewStatsHandler(aggregation appservice.AggregationService) *StatsHandler {
	return &StatsHandler{aggregation: aggregation}
}

// GetStats handles GET /api/v1/stats. An optional tenant_id query narrows an
// oversight principal to one partition.
func (h *StatsHandler) GetStats(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	resp, err := h.aggregation.StatsForPrincipal(c.Request.Context(), principal, c.Query("tenant_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
