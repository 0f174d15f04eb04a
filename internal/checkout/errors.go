package checkout

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSignature is returned when a webhook signature does not match
// the configured secret.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// ValidationError collects every field problem in a request so the caller
// can fix them in one round trip.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// InsufficientStockError rejects a checkout whose quantity exceeds the
// product's remaining metered stock at check time.
type InsufficientStockError struct {
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: %d available, %d requested", e.Available, e.Requested)
}

// PartialFulfillmentError reports that an order reached completed but a
// fulfillment side effect could not be persisted. The order stays completed:
// payment state is authoritative, entitlement bookkeeping is reconciled
// out-of-band.
type PartialFulfillmentError struct {
	OrderID string
	Err     error
}

func (e *PartialFulfillmentError) Error() string {
	return fmt.Sprintf("order %s completed but fulfillment incomplete: %v", e.OrderID, e.Err)
}

func (e *PartialFulfillmentError) Unwrap() error {
	return e.Err
}
