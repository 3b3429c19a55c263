package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tabletap/pos-api/internal/database"
)

// Health is the handler for GET /health (liveness).
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HealthDB is the handler for GET /health/db. It distinguishes "service
// up, DB down" from business failures so operators can tell the two apart.
func (h *Handlers) HealthDB(c *gin.Context) {
	if err := database.CheckConnection(c, h.DB); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "database unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
