package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseProviderStatus_CompletedSynonyms(t *testing.T) {
	for _, raw := range []string{"paid", "PAID", "success", "SUCCESS", "completed", "COMPLETED", "Completed"} {
		assert.Equal(t, ProviderStatusCompleted, ParseProviderStatus(raw), "raw=%s", raw)
	}
}

func TestParseProviderStatus_FailedSynonyms(t *testing.T) {
	for _, raw := range []string{"failed", "FAILED", "cancelled", "canceled", "error", "ERROR"} {
		assert.Equal(t, ProviderStatusFailed, ParseProviderStatus(raw), "raw=%s", raw)
	}
}

func TestParseProviderStatus_PendingSynonyms(t *testing.T) {
	for _, raw := range []string{"pending", "PENDING", "processing", "PROCESSING"} {
		assert.Equal(t, ProviderStatusPending, ParseProviderStatus(raw), "raw=%s", raw)
	}
}

func TestParseProviderStatus_Unrecognized(t *testing.T) {
	for _, raw := range []string{"", "UNKNOWN", "refunded", "on-hold", "42"} {
		assert.Equal(t, ProviderStatusUnknown, ParseProviderStatus(raw), "raw=%s", raw)
	}
}

func TestParseProviderStatus_TrimsWhitespace(t *testing.T) {
	assert.Equal(t, ProviderStatusCompleted, ParseProviderStatus("  paid \n"))
}

func TestParseProviderStatus_DottedEventNames(t *testing.T) {
	assert.Equal(t, ProviderStatusCompleted, ParseProviderStatus("payment.completed"))
	assert.Equal(t, ProviderStatusFailed, ParseProviderStatus("payment.failed"))
	assert.Equal(t, ProviderStatusUnknown, ParseProviderStatus("payment.refund_requested"))
}

func TestProviderStatus_OrderStatus(t *testing.T) {
	assert.Equal(t, StatusCompleted, ProviderStatusCompleted.OrderStatus())
	assert.Equal(t, StatusFailed, ProviderStatusFailed.OrderStatus())
	assert.Equal(t, StatusPending, ProviderStatusPending.OrderStatus())
	// Unknown is deliberately the safest default.
	assert.Equal(t, StatusPending, ProviderStatusUnknown.OrderStatus())
}

func TestOrder_ProviderOrderID(t *testing.T) {
	o := &Order{ID: "internal-1"}
	assert.Equal(t, "internal-1", o.ProviderOrderID())

	o.PaymentProviderID = "gw-77"
	assert.Equal(t, "gw-77", o.ProviderOrderID())
}
