package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"formscan/internal/port"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	records port.RecordRepository
}

// NewHealthHandler creates a new HealthHandler. records may be nil when the
// server runs without persistence.
func NewHealthHandler(records port.RecordRepository) *HealthHandler {
	return &HealthHandler{records: records}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz
func (h *HealthHandler) Readiness(c *gin.Context) {
	if p, ok := h.records.(port.Pinger); ok {
		if err := p.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "record storage not reachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
