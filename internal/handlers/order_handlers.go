package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

//
// --- Order Handlers (Staff-Only, tenant-scoped) ---
//

// GetOrders is the handler for GET /v1/orders
func (h *Handlers) GetOrders(c *gin.Context) {
	details, err := h.Store.ListOrders(c, tenantID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": details})
}

// UpdateOrderStatusRequest is the body for PATCH /v1/orders/:id/status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateOrderStatus is the handler for PATCH /v1/orders/:id/status
// This is the administrative override: it sets the status enum directly
// and records no settlement evidence.
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Store.UpdateStatus(c, tenantID(c), orderID, req.Status); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Order status updated",
		"new_status": req.Status,
	})
}

// GetOrderSettlement is the handler for GET /v1/orders/:id/settlement
// It returns the recorded payment evidence for a settled order.
func (h *Handlers) GetOrderSettlement(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return
	}

	settlement, err := h.Store.GetSettlement(c, tenantID(c), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settlement": settlement})
}

// DeleteOrder is the handler for DELETE /v1/orders/:id
func (h *Handlers) DeleteOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order id"})
		return
	}

	if err := h.Store.DeleteOrder(c, tenantID(c), orderID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order deleted"})
}
