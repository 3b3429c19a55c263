package orders

import (
	"context"
	"database/sql"
	"log"
	"strconv"
	"time"

	"github.com/tabletap/pos-api/internal/events"
	"github.com/tabletap/pos-api/internal/models"
	"github.com/tabletap/pos-api/internal/payments"
)

// Coordinator drives an order from "total known" to "settled". The intent
// phase talks to the provider and mutates nothing locally; the confirmation
// phase records the settlement and flips the status in one transaction.
type Coordinator struct {
	Store    *Store
	Provider payments.Provider
	Currency string
	// Timeout bounds every provider call. A timed-out confirmation is a
	// retryable failure; the caller re-polls, it never assumes success.
	Timeout time.Duration
}

func NewCoordinator(store *Store, provider payments.Provider, currency string) *Coordinator {
	if currency == "" {
		currency = "usd"
	}
	return &Coordinator{
		Store:    store,
		Provider: provider,
		Currency: currency,
		Timeout:  10 * time.Second,
	}
}

// verifyOrder checks that the token resolves and that the order belongs to
// that table. Orders outside the table's scope are reported as not found,
// never described.
func (c *Coordinator) verifyOrder(ctx context.Context, q queryer, token string, orderID int64, lock bool) (TableRef, error) {
	ref, err := c.Store.resolveTable(ctx, q, token, lock)
	if err != nil {
		return TableRef{}, err
	}

	var id int64
	err = q.QueryRowContext(ctx,
		"SELECT id FROM orders WHERE id = ? AND table_id = ?",
		orderID, ref.TableID).Scan(&id)
	if err == sql.ErrNoRows {
		return TableRef{}, ErrOrderNotFound
	}
	if err != nil {
		return TableRef{}, err
	}
	return ref, nil
}

// CreateIntent computes the order's current total and requests a payment
// intent from the provider for exactly that amount, tagged with the
// order/table/tenant identifiers for later reconciliation. No local state
// changes here: if the client never pays, nothing needs undoing.
func (c *Coordinator) CreateIntent(ctx context.Context, token string, orderID int64) (*payments.Intent, error) {
	ref, err := c.verifyOrder(ctx, c.Store.DB, token, orderID, false)
	if err != nil {
		return nil, err
	}

	total, err := c.Store.orderTotal(ctx, c.Store.DB, orderID)
	if err != nil {
		return nil, err
	}
	if total <= 0 {
		return nil, ErrOrderHasNoItems
	}

	callCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	return c.Provider.CreateIntent(callCtx, total, c.Currency, map[string]string{
		"order_id":  formatID(orderID),
		"table_id":  formatID(ref.TableID),
		"tenant_id": formatID(ref.TenantID),
	})
}

// Confirm re-verifies ownership, asks the provider for the payment's
// status, and on success settles the order: one transaction under the
// table lock inserts the settlement record (unique per order), sets the
// status to paid, and appends the paid marker to the notes. Re-confirming
// with the same reference is a no-op success; a different reference is a
// conflict.
func (c *Coordinator) Confirm(ctx context.Context, token string, orderID int64, paymentRef string) error {
	// Ownership first, so a bad token never triggers a provider call.
	if _, err := c.verifyOrder(ctx, c.Store.DB, token, orderID, false); err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	intent, err := c.Provider.RetrieveIntent(callCtx, paymentRef)
	if err != nil {
		return err
	}
	if intent.Status != payments.IntentStatusSucceeded {
		return ErrPaymentNotCompleted
	}

	tx, err := c.Store.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Same lock protocol as SubmitItems: the table row serializes this
	// against concurrent submissions for the same table.
	ref, err := c.verifyOrder(ctx, tx, token, orderID, true)
	if err != nil {
		return err
	}

	var existingRef string
	err = tx.QueryRowContext(ctx,
		"SELECT payment_ref FROM settlements WHERE order_id = ?",
		orderID).Scan(&existingRef)
	switch {
	case err == nil:
		if existingRef == paymentRef {
			// Duplicate confirmation of the same payment.
			return nil
		}
		return ErrAlreadySettled
	case err != sql.ErrNoRows:
		return err
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO settlements (order_id, payment_ref, amount_cents, created_at) VALUES (?, ?, ?, ?)",
		orderID, paymentRef, intent.AmountCents, now); err != nil {
		return err
	}

	var notes string
	if err := tx.QueryRowContext(ctx,
		"SELECT notes FROM orders WHERE id = ?", orderID).Scan(&notes); err != nil {
		return err
	}

	// Compare-and-set on status: the settlements lookup above already
	// guarantees at-most-once under the table lock, so an order that is
	// paid without a settlement row is corrupt state worth failing loudly.
	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = ?, notes = ? WHERE id = ? AND status <> ?",
		models.OrderStatusPaid, appendNote(notes, PaidMarker(paymentRef), "\n"), orderID, models.OrderStatusPaid)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		log.Printf("ERROR: order %d is already paid but has no settlement record", orderID)
		return ErrAlreadySettled
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	log.Printf("Order %d settled with payment %s (%d cents)", orderID, paymentRef, intent.AmountCents)
	c.Store.publish(ref.TenantID, events.OrderEvent{
		Type:      events.TypeOrderPaid,
		OrderID:   orderID,
		TableName: ref.TableName,
		Status:    models.OrderStatusPaid,
	})
	return nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
