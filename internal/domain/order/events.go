package order

import "time"

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderCompleted = "OrderCompleted"
	EventOrderFailed    = "OrderFailed"
)

// Event is the envelope published to Kafka on order lifecycle transitions.
// The Lambda notifier reconstructs the same envelope from DynamoDB stream
// records, so both deployments consume one shape.
type Event struct {
	EventType      string    `json:"event_type"`
	OrderID        string    `json:"order_id"`
	PlanID         string    `json:"plan_id"`
	Amount         int64     `json:"amount"`
	Currency       string    `json:"currency"`
	Quantity       int       `json:"quantity"`
	GuestEmail     string    `json:"guest_email,omitempty"`
	ProductName    string    `json:"product_name,omitempty"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NewEvent builds an event envelope for the given transition.
func NewEvent(eventType string, o *Order) Event {
	return Event{
		EventType:      eventType,
		OrderID:        o.ID,
		PlanID:         o.PlanID,
		Amount:         o.Amount,
		Currency:       o.Currency,
		Quantity:       o.Quantity,
		GuestEmail:     o.GuestEmail,
		SubscriptionID: o.SubscriptionID,
		OccurredAt:     time.Now().UTC(),
	}
}
