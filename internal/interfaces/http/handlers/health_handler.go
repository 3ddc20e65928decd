package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edusight/edusight/internal/domain/repository"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	registry repository.RegistryRepository
	started  time.Time
}

// NewHealthHandler creates the handler.
func NewHealthHandler(registry repository.RegistryRepository) *HealthHandler {
	return &HealthHandler{registry: registry, started: time.Now()}
}

// Liveness handles GET /live.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// Readiness handles GET /ready. Ready means the tenant registry answers.
func (h *HealthHandler) Readiness(c *gin.Context) {
	tenants, err := h.registry.ListTenantIDs(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"tenants": len(tenants),
		"uptime":  time.Since(h.started).String(),
	})
}
