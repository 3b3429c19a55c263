package orders

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/tabletap/pos-api/internal/events"
	"github.com/tabletap/pos-api/internal/models"
	"github.com/tabletap/pos-api/internal/payments"
)

// mockProvider implements payments.Provider for testing.
type mockProvider struct {
	CreateIntentFunc   func(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*payments.Intent, error)
	RetrieveIntentFunc func(ctx context.Context, intentID string) (*payments.Intent, error)
}

func (m *mockProvider) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*payments.Intent, error) {
	if m.CreateIntentFunc != nil {
		return m.CreateIntentFunc(ctx, amountCents, currency, metadata)
	}
	return nil, errors.New("unexpected CreateIntent call")
}

func (m *mockProvider) RetrieveIntent(ctx context.Context, intentID string) (*payments.Intent, error) {
	if m.RetrieveIntentFunc != nil {
		return m.RetrieveIntentFunc(ctx, intentID)
	}
	return nil, errors.New("unexpected RetrieveIntent call")
}

const (
	orderByTableQuery = "SELECT id FROM orders WHERE id = ? AND table_id = ?"
	settlementQuery   = "SELECT payment_ref FROM settlements WHERE order_id = ?"
	insertSettlement  = "INSERT INTO settlements (order_id, payment_ref, amount_cents, created_at)"
	orderNotesQuery   = "SELECT notes FROM orders WHERE id = ?"
	markPaidQuery     = "UPDATE orders SET status = ?, notes = ? WHERE id = ? AND status <> ?"
)

func newCoordinatorWithMock(t *testing.T, provider payments.Provider) (*Coordinator, sqlmock.Sqlmock, *recordPublisher) {
	t.Helper()
	store, mock, pub := newStoreWithMock(t)
	return NewCoordinator(store, provider, "usd"), mock, pub
}

func expectVerify(mock sqlmock.Sqlmock, token string, tableID, tenantID, orderID int64) {
	mock.ExpectQuery(regexp.QuoteMeta(plainTableQuery)).
		WithArgs(token).
		WillReturnRows(tableRow(tableID, tenantID, "Table 7"))
	mock.ExpectQuery(regexp.QuoteMeta(orderByTableQuery)).
		WithArgs(orderID, tableID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(orderID))
}

func TestCreateIntent_EchoesDerivedTotal(t *testing.T) {
	var gotAmount int64
	var gotMetadata map[string]string
	provider := &mockProvider{
		CreateIntentFunc: func(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*payments.Intent, error) {
			gotAmount = amountCents
			gotMetadata = metadata
			return &payments.Intent{ID: "pi_123", ClientSecret: "pi_123_secret", AmountCents: amountCents}, nil
		},
	}
	coord, mock, _ := newCoordinatorWithMock(t, provider)

	expectVerify(mock, "tok-1", 5, 2, 11)
	mock.ExpectQuery(regexp.QuoteMeta(totalQuery)).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(5000))

	intent, err := coord.CreateIntent(context.Background(), "tok-1", 11)
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}

	if gotAmount != 5000 {
		t.Errorf("provider asked for %d cents, want 5000", gotAmount)
	}
	if intent.AmountCents != 5000 || intent.ClientSecret != "pi_123_secret" {
		t.Errorf("intent = %+v, want amount 5000 with client secret", intent)
	}
	if gotMetadata["order_id"] != "11" || gotMetadata["table_id"] != "5" || gotMetadata["tenant_id"] != "2" {
		t.Errorf("metadata = %v, want order/table/tenant identifiers", gotMetadata)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestCreateIntent_ZeroTotalIsRejectedBeforeProviderCall(t *testing.T) {
	provider := &mockProvider{
		CreateIntentFunc: func(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*payments.Intent, error) {
			t.Fatal("provider must not be called for a zero-total order")
			return nil, nil
		},
	}
	coord, mock, _ := newCoordinatorWithMock(t, provider)

	expectVerify(mock, "tok-1", 5, 2, 11)
	mock.ExpectQuery(regexp.QuoteMeta(totalQuery)).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(0))

	_, err := coord.CreateIntent(context.Background(), "tok-1", 11)
	if !errors.Is(err, ErrOrderHasNoItems) {
		t.Fatalf("err = %v, want ErrOrderHasNoItems", err)
	}
}

func TestCreateIntent_OrderFromAnotherTable(t *testing.T) {
	coord, mock, _ := newCoordinatorWithMock(t, &mockProvider{})

	mock.ExpectQuery(regexp.QuoteMeta(plainTableQuery)).
		WithArgs("tok-1").
		WillReturnRows(tableRow(5, 2, "Table 7"))
	mock.ExpectQuery(regexp.QuoteMeta(orderByTableQuery)).
		WithArgs(int64(99), int64(5)).
		WillReturnError(sql.ErrNoRows)

	_, err := coord.CreateIntent(context.Background(), "tok-1", 99)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestCreateIntent_BadTokenFailsBeforeOrderLogic(t *testing.T) {
	coord, mock, _ := newCoordinatorWithMock(t, &mockProvider{})

	mock.ExpectQuery(regexp.QuoteMeta(plainTableQuery)).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := coord.CreateIntent(context.Background(), "nope", 11)
	if !errors.Is(err, ErrTableNotFound) {
		t.Fatalf("err = %v, want ErrTableNotFound", err)
	}
}

func TestConfirm_SettlesExactlyOnce(t *testing.T) {
	provider := &mockProvider{
		RetrieveIntentFunc: func(ctx context.Context, intentID string) (*payments.Intent, error) {
			return &payments.Intent{ID: intentID, Status: payments.IntentStatusSucceeded, AmountCents: 5000}, nil
		},
	}
	coord, mock, pub := newCoordinatorWithMock(t, provider)

	// Ownership check before the provider call.
	expectVerify(mock, "tok-1", 5, 2, 11)

	// Settlement transaction: table lock, re-verify, unique settlement
	// record, paid status plus marker in one commit.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockTableQuery)).
		WithArgs("tok-1").
		WillReturnRows(tableRow(5, 2, "Table 7"))
	mock.ExpectQuery(regexp.QuoteMeta(orderByTableQuery)).
		WithArgs(int64(11), int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta(settlementQuery)).
		WithArgs(int64(11)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(insertSettlement)).
		WithArgs(int64(11), "pi_123", int64(5000), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta(orderNotesQuery)).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"notes"}).AddRow("window seat"))
	mock.ExpectExec(regexp.QuoteMeta(markPaidQuery)).
		WithArgs(models.OrderStatusPaid, "window seat\n[PAID:pi_123]", int64(11), models.OrderStatusPaid).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := coord.Confirm(context.Background(), "tok-1", 11, "pi_123"); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	if len(pub.Events) != 1 || pub.Events[0].Type != events.TypeOrderPaid {
		t.Fatalf("expected one order_paid event, got %+v", pub.Events)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestConfirm_ProviderNotSucceededLeavesOrderUntouched(t *testing.T) {
	provider := &mockProvider{
		RetrieveIntentFunc: func(ctx context.Context, intentID string) (*payments.Intent, error) {
			return &payments.Intent{ID: intentID, Status: "requires_action"}, nil
		},
	}
	coord, mock, pub := newCoordinatorWithMock(t, provider)

	expectVerify(mock, "tok-1", 5, 2, 11)
	// No transaction, no writes: the expectations end here.

	err := coord.Confirm(context.Background(), "tok-1", 11, "pi_123")
	if !errors.Is(err, ErrPaymentNotCompleted) {
		t.Fatalf("err = %v, want ErrPaymentNotCompleted", err)
	}
	if len(pub.Events) != 0 {
		t.Errorf("no event for a failed confirmation, got %+v", pub.Events)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestConfirm_ProviderTimeoutIsNotSuccess(t *testing.T) {
	provider := &mockProvider{
		RetrieveIntentFunc: func(ctx context.Context, intentID string) (*payments.Intent, error) {
			return nil, &payments.ProviderError{Op: "retrieve_intent", Err: context.DeadlineExceeded}
		},
	}
	coord, mock, pub := newCoordinatorWithMock(t, provider)

	expectVerify(mock, "tok-1", 5, 2, 11)

	err := coord.Confirm(context.Background(), "tok-1", 11, "pi_123")
	if err == nil {
		t.Fatal("a timed-out confirmation must be an error; the caller re-polls")
	}
	var provErr *payments.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("err = %v, want a ProviderError", err)
	}
	if len(pub.Events) != 0 {
		t.Errorf("no event for a timed-out confirmation, got %+v", pub.Events)
	}
}

func TestConfirm_DuplicateWithSameRefIsIdempotent(t *testing.T) {
	provider := &mockProvider{
		RetrieveIntentFunc: func(ctx context.Context, intentID string) (*payments.Intent, error) {
			return &payments.Intent{ID: intentID, Status: payments.IntentStatusSucceeded, AmountCents: 5000}, nil
		},
	}
	coord, mock, pub := newCoordinatorWithMock(t, provider)

	expectVerify(mock, "tok-1", 5, 2, 11)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockTableQuery)).
		WithArgs("tok-1").
		WillReturnRows(tableRow(5, 2, "Table 7"))
	mock.ExpectQuery(regexp.QuoteMeta(orderByTableQuery)).
		WithArgs(int64(11), int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta(settlementQuery)).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"payment_ref"}).AddRow("pi_123"))
	mock.ExpectRollback()

	if err := coord.Confirm(context.Background(), "tok-1", 11, "pi_123"); err != nil {
		t.Fatalf("duplicate confirmation with the same reference must succeed, got %v", err)
	}
	if len(pub.Events) != 0 {
		t.Errorf("no second order_paid event for a duplicate confirmation, got %+v", pub.Events)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestConfirm_PaidOrderWithoutSettlementRecordConflicts(t *testing.T) {
	provider := &mockProvider{
		RetrieveIntentFunc: func(ctx context.Context, intentID string) (*payments.Intent, error) {
			return &payments.Intent{ID: intentID, Status: payments.IntentStatusSucceeded, AmountCents: 5000}, nil
		},
	}
	coord, mock, pub := newCoordinatorWithMock(t, provider)

	expectVerify(mock, "tok-1", 5, 2, 11)

	// The order row is already paid even though no settlement record
	// exists; the status guard refuses to re-mark it.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockTableQuery)).
		WithArgs("tok-1").
		WillReturnRows(tableRow(5, 2, "Table 7"))
	mock.ExpectQuery(regexp.QuoteMeta(orderByTableQuery)).
		WithArgs(int64(11), int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta(settlementQuery)).
		WithArgs(int64(11)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(insertSettlement)).
		WithArgs(int64(11), "pi_123", int64(5000), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta(orderNotesQuery)).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"notes"}).AddRow(""))
	mock.ExpectExec(regexp.QuoteMeta(markPaidQuery)).
		WithArgs(models.OrderStatusPaid, "[PAID:pi_123]", int64(11), models.OrderStatusPaid).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := coord.Confirm(context.Background(), "tok-1", 11, "pi_123")
	if !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("err = %v, want ErrAlreadySettled", err)
	}
	if len(pub.Events) != 0 {
		t.Errorf("no event when the paid transition is refused, got %+v", pub.Events)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestConfirm_DifferentRefOnSettledOrderConflicts(t *testing.T) {
	provider := &mockProvider{
		RetrieveIntentFunc: func(ctx context.Context, intentID string) (*payments.Intent, error) {
			return &payments.Intent{ID: intentID, Status: payments.IntentStatusSucceeded, AmountCents: 5000}, nil
		},
	}
	coord, mock, _ := newCoordinatorWithMock(t, provider)

	expectVerify(mock, "tok-1", 5, 2, 11)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(lockTableQuery)).
		WithArgs("tok-1").
		WillReturnRows(tableRow(5, 2, "Table 7"))
	mock.ExpectQuery(regexp.QuoteMeta(orderByTableQuery)).
		WithArgs(int64(11), int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta(settlementQuery)).
		WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"payment_ref"}).AddRow("pi_OTHER"))
	mock.ExpectRollback()

	err := coord.Confirm(context.Background(), "tok-1", 11, "pi_123")
	if !errors.Is(err, ErrAlreadySettled) {
		t.Fatalf("err = %v, want ErrAlreadySettled", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
