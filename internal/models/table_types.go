package models

import "time"

// Table is the model for the 'tables' table (physical seating).
// Token is the unguessable identifier printed on the table's QR code;
// customers use it to reach the menu and order without logging in.
type Table struct {
	ID        int64     `json:"id" db:"id"`
	TenantID  int64     `json:"tenantId" db:"tenant_id"`
	Name      string    `json:"name" db:"name"`
	Token     string    `json:"token" db:"token"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
