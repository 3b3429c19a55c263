package orders

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/tabletap/pos-api/internal/events"
	"github.com/tabletap/pos-api/internal/models"
)

// TableRef is a table token resolved to its owning tenant and table.
type TableRef struct {
	TenantID  int64
	TableID   int64
	TableName string
}

// SubmitItem is one requested line in a customer submission.
type SubmitItem struct {
	ProductID int64
	Quantity  int64
	Notes     string
}

// SubmitRequest is a customer submission for a table.
type SubmitRequest struct {
	Items []SubmitItem
	Notes string
}

// SubmitResult reports what a submission did: Created tells a new order
// apart from a merge into an existing one. TotalCents is always derived
// fresh from the item rows.
type SubmitResult struct {
	OrderID    int64
	Status     string
	TotalCents int64
	Created    bool
}

// OrderDetail is an order with its items and derived total.
type OrderDetail struct {
	Order      models.Order       `json:"order"`
	Items      []models.OrderItem `json:"items"`
	TotalCents int64              `json:"total_cents"`
	TableName  string             `json:"table_name"`
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store owns all reads and writes of orders and their items. Every
// multi-step mutation runs in one transaction that first locks the table
// row, so concurrent submissions and confirmations for the same table are
// serialized (no duplicate open orders, no lost quantity updates).
type Store struct {
	DB     *sql.DB
	Events events.Publisher
}

func NewStore(db *sql.DB, pub events.Publisher) *Store {
	return &Store{DB: db, Events: pub}
}

// ResolveTable is the Tenant Directory lookup: token to tenant and table.
func (s *Store) ResolveTable(ctx context.Context, token string) (TableRef, error) {
	return s.resolveTable(ctx, s.DB, token, false)
}

func (s *Store) resolveTable(ctx context.Context, q queryer, token string, lock bool) (TableRef, error) {
	query := "SELECT id, tenant_id, name FROM tables WHERE token = ?"
	if lock {
		// The table row is the per-table critical section: holding it
		// serializes resolve+merge and confirm+transition for one table.
		query += " FOR UPDATE"
	}

	var ref TableRef
	err := q.QueryRowContext(ctx, query, token).Scan(&ref.TableID, &ref.TenantID, &ref.TableName)
	if err == sql.ErrNoRows {
		return TableRef{}, ErrTableNotFound
	}
	if err != nil {
		return TableRef{}, err
	}
	return ref, nil
}

// activeOrder is a resolution candidate.
type activeOrder struct {
	ID        int64
	Status    string
	Notes     string
	CreatedAt time.Time
	Settled   bool
}

// findActive locates the single order currently open for customer ordering.
// All non-paid orders for the table are scanned most-recent-first; the
// first one whose notes carry no paid marker wins. Status alone is not
// trusted: the settlement row and the marker both veto, because payment
// confirmation and status update used to be separate writes and a crash
// between them must not resurrect a paid order.
func (s *Store) findActive(ctx context.Context, q queryer, tableID int64) (*activeOrder, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT o.id, o.status, o.notes, o.created_at,
		       EXISTS(SELECT 1 FROM settlements st WHERE st.order_id = o.id) AS settled
		FROM orders o
		WHERE o.table_id = ? AND o.status <> 'paid'
		ORDER BY o.created_at DESC, o.id DESC`, tableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var o activeOrder
		if err := rows.Scan(&o.ID, &o.Status, &o.Notes, &o.CreatedAt, &o.Settled); err != nil {
			return nil, err
		}
		if hasPaidMarker(o.Notes) {
			continue
		}
		return &o, rows.Err()
	}
	return nil, rows.Err()
}

// SubmitItems applies a customer submission to the table's active order,
// creating one if the table has none. Item merges are idempotent per
// product: a resubmitted product bumps the existing row's quantity and
// appends its note instead of adding a second row.
func (s *Store) SubmitItems(ctx context.Context, token string, req SubmitRequest) (*SubmitResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrderRequest
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() // Safety net

	// 1. Resolve the token and take the per-table lock.
	ref, err := s.resolveTable(ctx, tx, token, true)
	if err != nil {
		return nil, err
	}

	// 2. Resolve the active order.
	active, err := s.findActive(ctx, tx, ref.TableID)
	if err != nil {
		return nil, err
	}

	var orderID int64
	created := false
	now := time.Now()

	switch {
	case active == nil:
		// 3a. No active order: open a new one.
		result, err := tx.ExecContext(ctx,
			"INSERT INTO orders (tenant_id, table_id, status, notes, created_at) VALUES (?, ?, ?, ?, ?)",
			ref.TenantID, ref.TableID, models.OrderStatusPending, appendNote("", req.Notes, "\n"), now)
		if err != nil {
			return nil, err
		}
		orderID, err = result.LastInsertId()
		if err != nil {
			return nil, err
		}
		created = true

	case active.Settled:
		// 3b. The scan produced an order that already has a settlement
		// row. Two writers left it half-updated; refuse to reuse it.
		log.Printf("ERROR: consistency fault: order %d on table %d resolved as active but has a settlement record",
			active.ID, ref.TableID)
		return nil, ErrActiveOrderPaidConflict

	default:
		// 3c. Reuse the open order. New items invalidate "completed".
		orderID = active.ID
		if active.Status == models.OrderStatusCompleted {
			if _, err := tx.ExecContext(ctx,
				"UPDATE orders SET status = ? WHERE id = ?",
				models.OrderStatusPending, orderID); err != nil {
				return nil, err
			}
		}
		// 4. Order-level notes are append-only.
		if req.Notes != "" {
			if _, err := tx.ExecContext(ctx,
				"UPDATE orders SET notes = ? WHERE id = ?",
				appendNote(active.Notes, req.Notes, "\n"), orderID); err != nil {
				return nil, err
			}
		}
	}

	// 5. Merge each requested item.
	for _, item := range req.Items {
		if err := s.mergeItem(ctx, tx, ref.TenantID, orderID, item, now); err != nil {
			return nil, err
		}
	}

	total, err := s.orderTotal(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	// 6. Notify subscribers. Best-effort, after commit.
	eventType := events.TypeItemsAdded
	createdAt := ""
	if created {
		eventType = events.TypeNewOrder
		createdAt = now.UTC().Format(time.RFC3339)
	}
	s.publish(ref.TenantID, events.OrderEvent{
		Type:      eventType,
		OrderID:   orderID,
		TableName: ref.TableName,
		Status:    models.OrderStatusPending,
		CreatedAt: createdAt,
	})

	return &SubmitResult{
		OrderID:    orderID,
		Status:     models.OrderStatusPending,
		TotalCents: total,
		Created:    created,
	}, nil
}

// mergeItem applies one requested line. Same product on the order: bump
// the quantity in place (relative increment, so a stale read cannot lose
// an update) and append the note. Otherwise insert a fresh row with a
// snapshot of the product's current name and price.
func (s *Store) mergeItem(ctx context.Context, tx *sql.Tx, tenantID, orderID int64, item SubmitItem, now time.Time) error {
	var name string
	var priceCents int64
	err := tx.QueryRowContext(ctx,
		"SELECT name, price_cents FROM products WHERE id = ? AND tenant_id = ?",
		item.ProductID, tenantID).Scan(&name, &priceCents)
	if err == sql.ErrNoRows {
		return ErrProductNotFound
	}
	if err != nil {
		return err
	}

	var itemID int64
	var itemNotes string
	err = tx.QueryRowContext(ctx,
		"SELECT id, notes FROM order_items WHERE order_id = ? AND product_id = ?",
		orderID, item.ProductID).Scan(&itemID, &itemNotes)
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, product_id, product_name, price_cents, quantity, notes, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			orderID, item.ProductID, name, priceCents, item.Quantity, appendNote("", item.Notes, ","), now)
		return err
	case err != nil:
		return err
	default:
		_, err = tx.ExecContext(ctx,
			"UPDATE order_items SET quantity = quantity + ?, notes = ? WHERE id = ?",
			item.Quantity, appendNote(itemNotes, item.Notes, ","), itemID)
		return err
	}
}

// orderTotal derives the order's total from its items. Never stored.
func (s *Store) orderTotal(ctx context.Context, q queryer, orderID int64) (int64, error) {
	var total int64
	err := q.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(price_cents * quantity), 0) FROM order_items WHERE order_id = ?",
		orderID).Scan(&total)
	return total, err
}

func (s *Store) loadItems(ctx context.Context, q queryer, orderID int64) ([]models.OrderItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, order_id, product_id, product_name, price_cents, quantity, notes, created_at
		FROM order_items
		WHERE order_id = ?
		ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName,
			&it.PriceCents, &it.Quantity, &it.Notes, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ActiveOrder returns the table's current open order with items and
// derived total, or nil when the table has none.
func (s *Store) ActiveOrder(ctx context.Context, token string) (*OrderDetail, error) {
	ref, err := s.ResolveTable(ctx, token)
	if err != nil {
		return nil, err
	}

	active, err := s.findActive(ctx, s.DB, ref.TableID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return nil, nil
	}
	if active.Settled {
		log.Printf("ERROR: consistency fault: order %d on table %d resolved as active but has a settlement record",
			active.ID, ref.TableID)
		return nil, ErrActiveOrderPaidConflict
	}

	items, err := s.loadItems(ctx, s.DB, active.ID)
	if err != nil {
		return nil, err
	}
	total, err := s.orderTotal(ctx, s.DB, active.ID)
	if err != nil {
		return nil, err
	}

	return &OrderDetail{
		Order: models.Order{
			ID:        active.ID,
			TenantID:  ref.TenantID,
			TableID:   ref.TableID,
			Status:    active.Status,
			Notes:     active.Notes,
			CreatedAt: active.CreatedAt,
		},
		Items:      items,
		TotalCents: total,
		TableName:  ref.TableName,
	}, nil
}

// ListOrders returns all of the tenant's orders, newest first, with items
// and derived totals. Strictly tenant-scoped.
func (s *Store) ListOrders(ctx context.Context, tenantID int64) ([]OrderDetail, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT o.id, o.tenant_id, o.table_id, o.status, o.notes, o.created_at, t.name
		FROM orders o
		JOIN tables t ON t.id = o.table_id
		WHERE o.tenant_id = ?
		ORDER BY o.created_at DESC, o.id DESC`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := []OrderDetail{}
	for rows.Next() {
		var d OrderDetail
		if err := rows.Scan(&d.Order.ID, &d.Order.TenantID, &d.Order.TableID,
			&d.Order.Status, &d.Order.Notes, &d.Order.CreatedAt, &d.TableName); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range details {
		items, err := s.loadItems(ctx, s.DB, details[i].Order.ID)
		if err != nil {
			return nil, err
		}
		details[i].Items = items
		for _, it := range items {
			details[i].TotalCents += it.PriceCents * it.Quantity
		}
	}
	return details, nil
}

// UpdateStatus is the staff override: it may set any of the three statuses
// explicitly. It never writes settlement evidence; only a confirmed
// payment does that.
func (s *Store) UpdateStatus(ctx context.Context, tenantID, orderID int64, status string) error {
	if !models.ValidOrderStatus(status) {
		return ErrInvalidStatus
	}

	var tableName string
	err := s.DB.QueryRowContext(ctx, `
		SELECT t.name
		FROM orders o
		JOIN tables t ON t.id = o.table_id
		WHERE o.id = ? AND o.tenant_id = ?`, orderID, tenantID).Scan(&tableName)
	if err == sql.ErrNoRows {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}

	if _, err := s.DB.ExecContext(ctx,
		"UPDATE orders SET status = ? WHERE id = ? AND tenant_id = ?",
		status, orderID, tenantID); err != nil {
		return err
	}

	s.publish(tenantID, events.OrderEvent{
		Type:      events.TypeStatusUpdate,
		OrderID:   orderID,
		TableName: tableName,
		Status:    status,
	})
	return nil
}

// GetSettlement returns the recorded payment evidence for one of the
// tenant's orders. Strictly tenant-scoped: someone else's order and a
// nonexistent one look the same.
func (s *Store) GetSettlement(ctx context.Context, tenantID, orderID int64) (models.Settlement, error) {
	var id int64
	err := s.DB.QueryRowContext(ctx,
		"SELECT id FROM orders WHERE id = ? AND tenant_id = ?",
		orderID, tenantID).Scan(&id)
	if err == sql.ErrNoRows {
		return models.Settlement{}, ErrOrderNotFound
	}
	if err != nil {
		return models.Settlement{}, err
	}

	var st models.Settlement
	err = s.DB.QueryRowContext(ctx,
		"SELECT id, order_id, payment_ref, amount_cents, created_at FROM settlements WHERE order_id = ?",
		orderID).Scan(&st.ID, &st.OrderID, &st.PaymentRef, &st.AmountCents, &st.CreatedAt)
	if err == sql.ErrNoRows {
		return models.Settlement{}, ErrNotSettled
	}
	if err != nil {
		return models.Settlement{}, err
	}
	return st, nil
}

// DeleteOrder is the staff hard-delete path. Items go with the order.
func (s *Store) DeleteOrder(ctx context.Context, tenantID, orderID int64) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM orders WHERE id = ? AND tenant_id = ?",
		orderID, tenantID).Scan(&id)
	if err == sql.ErrNoRows {
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = ?", orderID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM settlements WHERE order_id = ?", orderID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM orders WHERE id = ?", orderID); err != nil {
		return err
	}
	return tx.Commit()
}

// publish fires an event and swallows the outcome. Order correctness never
// depends on the broker.
func (s *Store) publish(tenantID int64, ev events.OrderEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Events.Publish(ctx, tenantID, ev); err != nil {
		log.Printf("WARNING: failed to publish %s event for order %d: %v", ev.Type, ev.OrderID, err)
	}
}
