package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tabletap/pos-api/internal/models"
)

//
// --- Product Handlers (Staff-Only, tenant-scoped) ---
//

// ProductRequest is the body for creating or updating a product.
type ProductRequest struct {
	Name       string `json:"name" binding:"required"`
	PriceCents int64  `json:"price_cents" binding:"required,gt=0"`
}

// CreateProduct is the handler for POST /v1/products
func (h *Handlers) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := time.Now()
	result, err := h.DB.ExecContext(c,
		"INSERT INTO products (tenant_id, name, price_cents, created_at) VALUES (?, ?, ?, ?)",
		tenantID(c), req.Name, req.PriceCents, now)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create product"})
		return
	}
	id, _ := result.LastInsertId()

	c.JSON(http.StatusCreated, models.Product{
		ID:         id,
		TenantID:   tenantID(c),
		Name:       req.Name,
		PriceCents: req.PriceCents,
		CreatedAt:  now,
	})
}

// GetProducts is the handler for GET /v1/products
func (h *Handlers) GetProducts(c *gin.Context) {
	rows, err := h.DB.QueryContext(c,
		"SELECT id, tenant_id, name, price_cents, created_at FROM products WHERE tenant_id = ? ORDER BY name",
		tenantID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.PriceCents, &p.CreatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan product"})
			return
		}
		products = append(products, p)
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// UpdateProduct is the handler for PUT /v1/products/:id
// Catalog edits never touch order_items: item rows keep the snapshot
// taken when they were added.
func (h *Handlers) UpdateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.DB.ExecContext(c,
		"UPDATE products SET name = ?, price_cents = ? WHERE id = ? AND tenant_id = ?",
		req.Name, req.PriceCents, c.Param("id"), tenantID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		// Row might exist with identical values; check before reporting 404.
		var id int64
		err := h.DB.QueryRowContext(c,
			"SELECT id FROM products WHERE id = ? AND tenant_id = ?",
			c.Param("id"), tenantID(c)).Scan(&id)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product updated"})
}

// DeleteProduct is the handler for DELETE /v1/products/:id
func (h *Handlers) DeleteProduct(c *gin.Context) {
	result, err := h.DB.ExecContext(c,
		"DELETE FROM products WHERE id = ? AND tenant_id = ?",
		c.Param("id"), tenantID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		return
	}
	if n, _ := result.RowsAffected(); n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}
