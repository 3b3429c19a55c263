package orders

import "errors"

var (
	// ErrTableNotFound: the table token does not resolve to any table.
	ErrTableNotFound = errors.New("table not found")
	// ErrOrderNotFound: the order does not exist, or is outside the
	// caller's table/tenant scope. Cross-tenant probes get this too,
	// never the other tenant's data.
	ErrOrderNotFound = errors.New("order not found")
	// ErrProductNotFound: the product id is not in the table's tenant
	// catalog.
	ErrProductNotFound = errors.New("product not found")

	// ErrEmptyOrderRequest: a submission with no items.
	ErrEmptyOrderRequest = errors.New("order request has no items")
	// ErrInvalidQuantity: a requested quantity below 1.
	ErrInvalidQuantity = errors.New("item quantity must be positive")
	// ErrInvalidStatus: a staff status update outside the known enum.
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrOrderHasNoItems: payment requested for an order with zero total.
	ErrOrderHasNoItems = errors.New("order has no items to pay for")

	// ErrPaymentNotCompleted: the provider reports the intent is not
	// succeeded; the order stays untouched.
	ErrPaymentNotCompleted = errors.New("payment has not completed")
	// ErrAlreadySettled: a second confirmation arrived with a different
	// payment reference than the recorded settlement.
	ErrAlreadySettled = errors.New("order is already settled")
	// ErrNotSettled: a settlement lookup for an order with no recorded
	// payment.
	ErrNotSettled = errors.New("order has no settlement")

	// ErrActiveOrderPaidConflict: the active-order scan produced an order
	// that turns out to be settled. Two non-transactional writers left the
	// row half-updated; this is a consistency fault, not a case to paper
	// over.
	ErrActiveOrderPaidConflict = errors.New("active order conflicts with recorded settlement")
)
