package payments

import (
	"context"
	"fmt"
)

// IntentStatusSucceeded is the provider status that allows settlement.
// Anything else (requires_action, processing, canceled...) must not mark
// an order paid.
const IntentStatusSucceeded = "succeeded"

// Intent is the provider-side payment intent, reduced to what the order
// flow needs.
type Intent struct {
	ID           string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
	AmountCents  int64  `json:"amount_cents"`
	Status       string `json:"status"`
}

// Provider is the narrow contract with the external card-payment service.
// Both calls may block on the network; callers bound them with a context
// timeout, and a timeout is a retryable failure, never a success.
type Provider interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)
}

// ProviderError wraps a transport or business rejection from the provider.
// Its message is surfaced to the caller as-is.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payment provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
