package models

import "time"

// Tenant is the model for the 'tenants' table. Every catalog, table and
// order row in the system is partitioned by tenant ID.
type Tenant struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// User is the model for the 'users' table. Registration and token issuance
// live in the identity service; this API only reads the row to resolve
// staff identity.
type User struct {
	ID       int64  `json:"id" db:"id"`
	TenantID int64  `json:"tenantId" db:"tenant_id"`
	Email    string `json:"email" db:"email"`
}
