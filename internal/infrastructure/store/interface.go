package store

import (
	"context"

	"github.com/example/storefront-payments/internal/domain/catalog"
	"github.com/example/storefront-payments/internal/domain/order"
	"github.com/example/storefront-payments/internal/domain/subscription"
)

// OrderStore persists purchase intents. Implementations must make
// CompleteOrder an atomic compare-and-set: the webhook and the client poll
// can race on the same order, and exactly one caller may observe first=true.
type OrderStore interface {
	Insert(ctx context.Context, o *order.Order) error
	GetByID(ctx context.Context, id string) (*order.Order, error)
	GetByProviderID(ctx context.Context, providerID string) (*order.Order, error)
	SetProviderID(ctx context.Context, id, providerID string) error
	// UpdateStatus writes a non-terminal status (pending or failed) and
	// returns the status the order actually holds afterwards. It must never
	// overwrite completed; a refused downgrade returns completed.
	UpdateStatus(ctx context.Context, id string, status order.Status) (order.Status, error)
	// CompleteOrder transitions the order to completed and reports whether
	// this call made the transition (as opposed to finding it already done).
	CompleteOrder(ctx context.Context, id string) (bool, error)
	SetSubscriptionID(ctx context.Context, id, subscriptionID string) error
}

// CatalogStore is the read side of the product/plan catalog plus the stock
// ledger. DecrementStock must be atomic "decrement if sufficient" at the
// store, never read-compute-write in application memory.
type CatalogStore interface {
	// GetActivePlan returns the plan joined with its product, only when the
	// plan is active. catalog.ErrPlanNotFound otherwise.
	GetActivePlan(ctx context.Context, planID string) (*catalog.Plan, error)
	// GetPlan is GetActivePlan without the active filter; fulfillment of an
	// already-paid order must not fail because the plan was retired meanwhile.
	GetPlan(ctx context.Context, planID string) (*catalog.Plan, error)
	// DecrementStock reduces metered stock by quantity and returns the
	// quantity remaining after the decrement, rejecting with
	// catalog.ErrInsufficientStock when the result would go negative.
	// Unmetered products (nil stock) pass through untouched and return nil.
	DecrementStock(ctx context.Context, productID string, quantity int) (*int, error)
}

// SubscriptionStore persists issued entitlements.
type SubscriptionStore interface {
	Insert(ctx context.Context, s *subscription.Subscription) error
}
