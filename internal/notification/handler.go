package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/example/storefront-payments/internal/domain/order"
	"github.com/example/storefront-payments/internal/email"
)

// Sender is the part of the email service the notifier uses.
type Sender interface {
	SendPaymentReceipt(to string, r email.Receipt) error
}

// Handler processes order lifecycle events for sending notifications
type Handler struct {
	emailService Sender
}

// NewHandler creates a new notification handler
func NewHandler(emailService Sender) *Handler {
	return &Handler{emailService: emailService}
}

// HandleEvent processes an event from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var event order.Event
	if err := json.Unmarshal(value, &event); err != nil {
		log.Printf("[Notifier] Failed to unmarshal event: %v", err)
		return err
	}

	switch event.EventType {
	case order.EventOrderCompleted:
		return h.handleOrderCompleted(event)
	case order.EventOrderFailed:
		log.Printf("[Notifier] Order %s failed, no notification sent", event.OrderID)
	}

	return nil
}

func (h *Handler) handleOrderCompleted(event order.Event) error {
	log.Printf("[Notifier] Processing OrderCompleted event for order %s", event.OrderID)

	// Authenticated users get their receipts through the account area; only
	// guest purchasers are emailed directly.
	if event.GuestEmail == "" {
		log.Printf("[Notifier] Order %s has no guest email, skipping receipt", event.OrderID)
		return nil
	}

	unitPrice := event.Amount
	if event.Quantity > 0 {
		unitPrice = event.Amount / int64(event.Quantity)
	}

	receipt := email.Receipt{
		OrderID:        event.OrderID,
		ProductName:    event.ProductName,
		Quantity:       event.Quantity,
		UnitPrice:      unitPrice,
		Amount:         event.Amount,
		Currency:       event.Currency,
		SubscriptionID: event.SubscriptionID,
	}

	if err := h.emailService.SendPaymentReceipt(event.GuestEmail, receipt); err != nil {
		log.Printf("[Notifier] Failed to send receipt to %s: %v", event.GuestEmail, err)
		return err
	}

	log.Printf("[Notifier] Payment receipt sent to %s for order %s", event.GuestEmail, event.OrderID)
	return nil
}
