package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/tabletap/pos-api/internal/handlers"
	"github.com/tabletap/pos-api/internal/middleware"
)

// CORSMiddleware tells the browser the staff dashboard and table menu
// frontends may talk to us.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		// Reply to the browser's preflight probe with "204 No Content".
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.Default()

	// This must be the very first thing the router uses
	router.Use(CORSMiddleware())

	// --- Health (Public) ---
	router.GET("/health", h.Health)
	router.GET("/health/db", h.HealthDB)

	// --- Customer Routes (table-token-scoped, no login) ---
	t := router.Group("/t/:token")
	{
		t.GET("/menu", h.GetMenu)
		t.GET("/order", h.GetActiveOrder)
		t.POST("/order", h.SubmitOrder)
		t.POST("/payments/intent", h.CreatePaymentIntent)
		t.POST("/payments/confirm", h.ConfirmPayment)
	}

	// --- Staff Routes (Login Required, tenant-scoped) ---
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware())
	{
		// Profile
		v1.GET("/me", h.GetMe)

		// Catalog
		v1.POST("/products", h.CreateProduct)
		v1.GET("/products", h.GetProducts)
		v1.PUT("/products/:id", h.UpdateProduct)
		v1.DELETE("/products/:id", h.DeleteProduct)

		// Seating
		v1.POST("/tables", h.CreateTable)
		v1.GET("/tables", h.GetTables)
		v1.DELETE("/tables/:id", h.DeleteTable)

		// Orders
		v1.GET("/orders", h.GetOrders)
		v1.GET("/orders/:id/settlement", h.GetOrderSettlement)
		v1.PATCH("/orders/:id/status", h.UpdateOrderStatus)
		v1.DELETE("/orders/:id", h.DeleteOrder)
	}

	return router
}
