package checkout

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePlanID(t *testing.T) {
	assert.Empty(t, validatePlanID(testPlanID, nil))
	assert.Empty(t, validatePlanID(strings.ToUpper(testPlanID), nil), "UUIDs are case-insensitive")

	assert.Len(t, validatePlanID("", nil), 1)
	assert.Len(t, validatePlanID("not-a-uuid", nil), 1)
	assert.Len(t, validatePlanID("11111111-2222-3333-4444-55555555555", nil), 1)
}

func TestValidateQuantity(t *testing.T) {
	assert.Empty(t, validateQuantity(1, nil))
	assert.Empty(t, validateQuantity(100, nil))

	for _, qty := range []int{0, -5, 101, 1000} {
		assert.Len(t, validateQuantity(qty, nil), 1, "quantity=%d", qty)
	}
}

func TestValidatePhone(t *testing.T) {
	assert.Empty(t, validatePhone("5550109999", nil))
	assert.Empty(t, validatePhone("+1 (555) 010-9999", nil), "formatting characters are ignored")
	assert.Empty(t, validatePhone("123456789012345", nil))

	assert.Len(t, validatePhone("", nil), 1)
	assert.Len(t, validatePhone("555-0100", nil), 1, "too few digits")
	assert.Len(t, validatePhone("1234567890123456", nil), 1, "too many digits")
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "15550109999", normalizePhone("+1 (555) 010-9999"))
	assert.Equal(t, "5550109999", normalizePhone("5550109999"))
	assert.Equal(t, "", normalizePhone("abc"))
}

func TestValidatePurchaser(t *testing.T) {
	assert.Empty(t, validatePurchaser(testUserID, "", nil))
	assert.Empty(t, validatePurchaser("", "guest@example.com", nil))
	// An authenticated user wins; the email is not inspected.
	assert.Empty(t, validatePurchaser(testUserID, "not-an-email", nil))

	assert.Len(t, validatePurchaser("", "", nil), 1)
	assert.Len(t, validatePurchaser("", "not-an-email", nil), 1)
	assert.Len(t, validatePurchaser("", "missing@tld", nil), 1)
}

func TestValidateURL(t *testing.T) {
	assert.Empty(t, validateURL("", "success_url", nil), "blank URLs defer to the configured fallback")
	assert.Empty(t, validateURL("https://shop.example.com/s", "success_url", nil))

	long := "https://shop.example.com/" + strings.Repeat("x", maxURLLength)
	errs := validateURL(long, "cancel_url", nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "cancel_url")
}

func TestValidationErrorsAccumulate(t *testing.T) {
	req := &CreatePaymentRequest{PlanID: "bad", Quantity: intPtr(0), PhoneNumber: "123"}
	err := req.validate()
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, vErr.Errors, 4, "plan, quantity, phone and purchaser errors all reported")
}

func TestParseWebhookPayload(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		paymentID string
		status    string
	}{
		{"flat payment_id", `{"payment_id":"p1","status":"paid"}`, "p1", "paid"},
		{"flat id", `{"id":"p2","payment_status":"FAILED"}`, "p2", "FAILED"},
		{"flat transaction_id", `{"transaction_id":"p3","status":"pending"}`, "p3", "pending"},
		{"envelope", `{"event":"payment.completed","data":{"id":"p4"}}`, "p4", "payment.completed"},
		{"envelope status wins over event", `{"event":"payment.updated","data":{"id":"p5","status":"paid"}}`, "p5", "paid"},
		{"no status", `{"payment_id":"p6"}`, "p6", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paymentID, status, err := parseWebhookPayload([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.paymentID, paymentID)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestParseWebhookPayload_Invalid(t *testing.T) {
	for _, body := range []string{``, `not json`, `[1,2]`, `{"status":"paid"}`, `{"event":"x","data":{}}`} {
		_, _, err := parseWebhookPayload([]byte(body))
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr, "body=%s", body)
	}
}
