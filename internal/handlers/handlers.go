package handlers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tabletap/pos-api/internal/orders"
	"github.com/tabletap/pos-api/internal/payments"
)

// Handlers struct holds all dependencies for our handlers.
type Handlers struct {
	DB         *sql.DB             // Connection pool, used directly for catalog/table CRUD
	Store      *orders.Store       // Order resolution and merge logic
	Settlement *orders.Coordinator // Payment intent/confirmation flow
}

// respondError maps the domain error taxonomy onto HTTP statuses. Every
// business failure is recovered here; nothing crashes the process.
func respondError(c *gin.Context, err error) {
	var provErr *payments.ProviderError

	switch {
	case errors.Is(err, orders.ErrTableNotFound),
		errors.Is(err, orders.ErrOrderNotFound),
		errors.Is(err, orders.ErrProductNotFound),
		errors.Is(err, orders.ErrNotSettled):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, orders.ErrEmptyOrderRequest),
		errors.Is(err, orders.ErrInvalidQuantity),
		errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, orders.ErrOrderHasNoItems),
		errors.Is(err, orders.ErrPaymentNotCompleted):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, orders.ErrAlreadySettled):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.As(err, &provErr):
		// Surface the provider's own message; the client may need it to
		// recover (declined card, invalid intent, ...).
		c.JSON(http.StatusBadRequest, gin.H{"error": provErr.Error()})

	case errors.Is(err, orders.ErrActiveOrderPaidConflict):
		// Already logged loudly at the store; do not leak details.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "order state conflict"})

	default:
		log.Printf("ERROR: unhandled request failure: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// tenantID reads the tenant injected by the auth middleware.
func tenantID(c *gin.Context) int64 {
	raw, _ := c.Get("tenantID")
	id, _ := raw.(int64)
	return id
}
