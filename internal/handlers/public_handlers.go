package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tabletap/pos-api/internal/models"
	"github.com/tabletap/pos-api/internal/orders"
)

//
// --- Public Handlers (table-token-scoped, no login) ---
//

// GetMenu is the handler for GET /t/:token/menu
func (h *Handlers) GetMenu(c *gin.Context) {
	// 1. --- Resolve the Table Token ---
	ref, err := h.Store.ResolveTable(c, c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	// 2. --- Fetch the Tenant's Catalog ---
	rows, err := h.DB.QueryContext(c,
		"SELECT id, tenant_id, name, price_cents, created_at FROM products WHERE tenant_id = ? ORDER BY name",
		ref.TenantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch menu"})
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

	c.JSON(http.StatusOK, gin.H{
		"table":    ref.TableName,
		"products": products,
	})
}

// GetActiveOrder is the handler for GET /t/:token/order
func (h *Handlers) GetActiveOrder(c *gin.Context) {
	detail, err := h.Store.ActiveOrder(c, c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	if detail == nil {
		c.JSON(http.StatusOK, gin.H{"order": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": detail.Order,
		"items": detail.Items,
		"total": detail.TotalCents,
	})
}

// SubmitOrderRequest is the body for POST /t/:token/order
type SubmitOrderRequest struct {
	Items []SubmitOrderItem `json:"items" binding:"dive"`
	Notes string            `json:"notes"`
}

type SubmitOrderItem struct {
	ProductID int64  `json:"product_id" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
	Notes     string `json:"notes"`
}

// SubmitOrder is the handler for POST /t/:token/order
func (h *Handlers) SubmitOrder(c *gin.Context) {
	// 1. --- Bind & Validate ---
	var req SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := make([]orders.SubmitItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, orders.SubmitItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Notes:     it.Notes,
		})
	}

	// 2. --- Resolve/Merge Against the Table's Active Order ---
	result, err := h.Store.SubmitItems(c, c.Param("token"), orders.SubmitRequest{
		Items: items,
		Notes: req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	// 3. --- Respond, telling a new order apart from a merge ---
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"orderId":   result.OrderID,
		"status":    result.Status,
		"total":     result.TotalCents,
		"new_order": result.Created,
	})
}

// PaymentIntentRequest is the body for POST /t/:token/payments/intent
type PaymentIntentRequest struct {
	OrderID int64 `json:"order_id" binding:"required"`
}

// CreatePaymentIntent is the handler for POST /t/:token/payments/intent
func (h *Handlers) CreatePaymentIntent(c *gin.Context) {
	var req PaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	intent, err := h.Settlement.CreateIntent(c, c.Param("token"), req.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"intent_id":     intent.ID,
		"client_secret": intent.ClientSecret,
		"amount":        intent.AmountCents,
	})
}

// ConfirmPaymentRequest is the body for POST /t/:token/payments/confirm
type ConfirmPaymentRequest struct {
	OrderID    int64  `json:"order_id" binding:"required"`
	PaymentRef string `json:"payment_ref" binding:"required"`
}

// ConfirmPayment is the handler for POST /t/:token/payments/confirm
func (h *Handlers) ConfirmPayment(c *gin.Context) {
	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Settlement.Confirm(c, c.Param("token"), req.OrderID, req.PaymentRef); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment confirmed",
		"status":  "paid",
	})
}
