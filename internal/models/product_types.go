package models

import "time"

// Product is the model for the 'products' table.
// Prices are stored in cents to avoid float rounding on money.
type Product struct {
	ID         int64     `json:"id" db:"id"`
	TenantID   int64     `json:"tenantId" db:"tenant_id"`
	Name       string    `json:"name" db:"name"`
	PriceCents int64     `json:"price_cents" db:"price_cents"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}
