package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tabletap/pos-api/internal/models"
)

//
// --- Table Handlers (Staff-Only, tenant-scoped) ---
//

// TableRequest is the body for creating a table.
type TableRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateTable is the handler for POST /v1/tables
// Each table gets an unguessable token; the QR code on the table embeds it.
func (h *Handlers) CreateTable(c *gin.Context) {
	var req TableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token := uuid.NewString()
	now := time.Now()
	result, err := h.DB.ExecContext(c,
		"INSERT INTO tables (tenant_id, name, token, created_at) VALUES (?, ?, ?, ?)",
		tenantID(c), req.Name, token, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create table"})
		return
	}
	id, _ := result.LastInsertId()

	c.JSON(http.StatusCreated, models.Table{
		ID:        id,
		TenantID:  tenantID(c),
		Name:      req.Name,
		Token:     token,
		CreatedAt: now,
	})
}

// GetTables is the handler for GET /v1/tables
func (h *Handlers) GetTables(c *gin.Context) {
	rows, err := h.DB.QueryContext(c,
		"SELECT id, tenant_id, name, token, created_at FROM tables WHERE tenant_id = ? ORDER BY name",
		tenantID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch tables"})
		return
	}
	defer rows.Close()

	tables := []models.Table{}
	for rows.Next() {
		var t models.Table
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Name, &t.Token, &t.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan table"})
			return
		}
		tables = append(tables, t)
	}

	c.JSON(http.StatusOK, gin.H{"tables": tables})
}

// DeleteTable is the handler for DELETE /v1/tables/:id
func (h *Handlers) DeleteTable(c *gin.Context) {
	result, err := h.DB.ExecContext(c,
		"DELETE FROM tables WHERE id = ? AND tenant_id = ?",
		c.Param("id"), tenantID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete table"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Table not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Table deleted"})
}
