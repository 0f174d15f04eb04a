package order

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

// Order is a purchase intent. Amount is in minor currency units
// (plan price times quantity). Exactly one of UserID and GuestEmail is set.
//
// Status is only ever mutated through the checkout service: completed is
// reached through a conditional update so that fulfillment side effects run
// once no matter how many entry points race on the same order.
type Order struct {
	ID                string    `json:"id"`
	PlanID            string    `json:"plan_id"`
	Amount            int64     `json:"amount"`
	Currency          string    `json:"currency"`
	Status            Status    `json:"status"`
	Quantity          int       `json:"quantity"`
	UserID            string    `json:"user_id,omitempty"`
	GuestEmail        string    `json:"guest_email,omitempty"`
	PaymentProvider   string    `json:"payment_provider"`
	PaymentProviderID string    `json:"payment_provider_id,omitempty"`
	PhoneNumber       string    `json:"phone_number"`
	SubscriptionID    string    `json:"subscription_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// ProviderOrderID returns the id the payment provider knows this order by,
// falling back to the internal id when the provider never assigned one.
func (o *Order) ProviderOrderID() string {
	if o.PaymentProviderID != "" {
		return o.PaymentProviderID
	}
	return o.ID
}
