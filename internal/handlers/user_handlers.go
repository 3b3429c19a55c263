package handlers

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tabletap/pos-api/internal/models"
)

// GetMe is the handler for GET /v1/me
// Returns the authenticated staff user and the tenant they belong to.
func (h *Handlers) GetMe(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	var user models.User
	var tenant models.Tenant
	err := h.DB.QueryRowContext(c, `
		SELECT u.id, u.tenant_id, u.email, t.id, t.name, t.created_at
		FROM users u
		JOIN tenants t ON t.id = u.tenant_id
		WHERE u.id = ? AND u.tenant_id = ?`, userID, tenantID(c)).Scan(
		&user.ID, &user.TenantID, &user.Email, &tenant.ID, &tenant.Name, &tenant.CreatedAt)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":   user,
		"tenant": tenant,
	})
}
