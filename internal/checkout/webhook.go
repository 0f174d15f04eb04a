package checkout

import "encoding/json"

// The provider's webhook payloads come in two generations: a flat object and
// an {event, data} envelope. Field names for the payment id and the status
// vary as well, so parsing tries each known spot in order.
type webhookFields struct {
	PaymentID     string `json:"payment_id"`
	ID            string `json:"id"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
}

type webhookEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// parseWebhookPayload extracts the provider payment id and raw status string
// from a webhook body. A body that is not JSON or carries no payment id is a
// ValidationError.
func parseWebhookPayload(rawBody []byte) (paymentID, status string, err error) {
	var env webhookEnvelope
	if jsonErr := json.Unmarshal(rawBody, &env); jsonErr != nil {
		return "", "", &ValidationError{Errors: []string{"invalid JSON payload"}}
	}

	source := rawBody
	if len(env.Data) > 0 {
		source = env.Data
	}

	var fields webhookFields
	if jsonErr := json.Unmarshal(source, &fields); jsonErr != nil {
		return "", "", &ValidationError{Errors: []string{"invalid JSON payload"}}
	}

	paymentID = firstNonEmpty(fields.PaymentID, fields.ID, fields.TransactionID)
	if paymentID == "" {
		return "", "", &ValidationError{Errors: []string{"missing payment_id"}}
	}

	status = firstNonEmpty(fields.Status, fields.PaymentStatus, env.Event)
	return paymentID, status, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
