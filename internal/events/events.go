package events

import "context"

// Event types carried to live-update subscribers.
const (
	TypeNewOrder     = "new_order"
	TypeItemsAdded   = "items_added"
	TypeStatusUpdate = "status_update"
	TypeOrderPaid    = "order_paid"
)

// OrderEvent is the discriminated payload broadcast on order-state changes.
type OrderEvent struct {
	Type      string `json:"type"`
	OrderID   int64  `json:"order_id"`
	TableName string `json:"table_name"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Publisher broadcasts order events to a tenant's subscribers. Delivery is
// best-effort: callers publish after committing and discard the error
// (logging it at most). A publish failure must never fail an order
// operation.
type Publisher interface {
	Publish(ctx context.Context, tenantID int64, event OrderEvent) error
}

// Nop is a Publisher that drops everything. Used in tests and when no
// broker is configured.
type Nop struct{}

func (Nop) Publish(ctx context.Context, tenantID int64, event OrderEvent) error {
	return nil
}
