package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/example/storefront-payments/internal/domain/order"
	"github.com/example/storefront-payments/internal/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	to       []string
	receipts []email.Receipt
	err      error
}

func (s *recordingSender) SendPaymentReceipt(to string, r email.Receipt) error {
	if s.err != nil {
		return s.err
	}
	s.to = append(s.to, to)
	s.receipts = append(s.receipts, r)
	return nil
}

func marshalEvent(t *testing.T, ev order.Event) []byte {
	t.Helper()
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	return data
}

func TestHandleEvent_OrderCompleted_GuestReceipt(t *testing.T) {
	sender := &recordingSender{}
	h := NewHandler(sender)

	ev := order.Event{
		EventType:      order.EventOrderCompleted,
		OrderID:        "ord-1",
		PlanID:         "plan-1",
		Amount:         100000,
		Currency:       "USD",
		Quantity:       2,
		GuestEmail:     "guest@example.com",
		ProductName:    "Pro Plan",
		SubscriptionID: "sub-1",
		OccurredAt:     time.Now(),
	}

	err := h.HandleEvent(context.Background(), []byte("ord-1"), marshalEvent(t, ev))

	require.NoError(t, err)
	require.Len(t, sender.receipts, 1)
	assert.Equal(t, "guest@example.com", sender.to[0])
	assert.Equal(t, int64(50000), sender.receipts[0].UnitPrice)
	assert.Equal(t, "sub-1", sender.receipts[0].SubscriptionID)
}

func TestHandleEvent_OrderCompleted_AuthenticatedUserSkipped(t *testing.T) {
	sender := &recordingSender{}
	h := NewHandler(sender)

	ev := order.Event{
		EventType: order.EventOrderCompleted,
		OrderID:   "ord-2",
		Amount:    1000,
		Quantity:  1,
	}

	err := h.HandleEvent(context.Background(), []byte("ord-2"), marshalEvent(t, ev))

	require.NoError(t, err)
	assert.Empty(t, sender.receipts)
}

func TestHandleEvent_IgnoresOtherEventTypes(t *testing.T) {
	sender := &recordingSender{}
	h := NewHandler(sender)

	for _, eventType := range []string{order.EventOrderCreated, order.EventOrderFailed} {
		ev := order.Event{EventType: eventType, OrderID: "ord-3", GuestEmail: "g@example.com"}
		err := h.HandleEvent(context.Background(), []byte("ord-3"), marshalEvent(t, ev))
		require.NoError(t, err)
	}

	assert.Empty(t, sender.receipts)
}

func TestHandleEvent_MalformedPayload(t *testing.T) {
	h := NewHandler(&recordingSender{})

	err := h.HandleEvent(context.Background(), nil, []byte("not json"))

	assert.Error(t, err)
}

func TestHandleEvent_SendFailurePropagates(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	h := NewHandler(sender)

	ev := order.Event{
		EventType:  order.EventOrderCompleted,
		OrderID:    "ord-4",
		Quantity:   1,
		GuestEmail: "g@example.com",
	}

	err := h.HandleEvent(context.Background(), []byte("ord-4"), marshalEvent(t, ev))

	assert.Error(t, err)
}
