package models

import "time"

// Order statuses. An order moves pending -> completed -> paid, or skips
// straight from pending to paid at settlement. Paid is terminal for the
// customer-facing flow.
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusPaid      = "paid"
)

// Order is the model for the 'orders' table.
// Total is never stored; it is always derived from the item rows.
type Order struct {
	ID        int64     `json:"id" db:"id"`
	TenantID  int64     `json:"tenantId" db:"tenant_id"`
	TableID   int64     `json:"tableId" db:"table_id"`
	Status    string    `json:"status" db:"status"`
	Notes     string    `json:"notes" db:"notes"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// OrderItem is the model for the 'order_items' table.
// ProductName and PriceCents are snapshots taken when the item was first
// added; later catalog edits must not change historical totals.
type OrderItem struct {
	ID          int64     `json:"id" db:"id"`
	OrderID     int64     `json:"orderId" db:"order_id"`
	ProductID   int64     `json:"productId" db:"product_id"`
	ProductName string    `json:"product_name" db:"product_name"`
	PriceCents  int64     `json:"price_cents" db:"price_cents"`
	Quantity    int64     `json:"quantity" db:"quantity"`
	Notes       string    `json:"notes" db:"notes"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Settlement is the model for the 'settlements' table: the durable proof
// that an order was paid. The unique order_id constraint is what makes
// settlement at-most-once; status = 'paid' is written alongside it, never
// instead of it.
type Settlement struct {
	ID          int64     `json:"id" db:"id"`
	OrderID     int64     `json:"orderId" db:"order_id"`
	PaymentRef  string    `json:"payment_ref" db:"payment_ref"`
	AmountCents int64     `json:"amount_cents" db:"amount_cents"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// ValidOrderStatus reports whether s is one of the three order statuses.
func ValidOrderStatus(s string) bool {
	return s == OrderStatusPending || s == OrderStatusCompleted || s == OrderStatusPaid
}
