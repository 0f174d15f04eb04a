package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://xtragateway.site"

	// StatusUnknown is returned by CheckOrderStatus when the provider's
	// answer cannot be interpreted. The checkout service maps it to pending,
	// so a flaky poll never moves an order toward a terminal state.
	StatusUnknown = "UNKNOWN"

	defaultTimeout = 15 * time.Second
)

// ErrUnavailable marks transport-level failures talking to the provider,
// including timeouts.
var ErrUnavailable = errors.New("payment gateway unavailable")

// RejectedError is returned when the provider explicitly declines to open a
// payment session.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return "payment gateway rejected request: " + e.Message
}

// Config carries everything the client needs. Credentials are injected here
// rather than read from the environment inside the client.
type Config struct {
	APIKey        string
	BaseURL       string
	WebhookSecret string
	Timeout       time.Duration
}

// Client talks to the xtragateway payment provider. Both provider endpoints
// are form-encoded POSTs authenticated by the user_token field.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// CreateOrderParams is the provider-facing view of a new order. OrderID is
// the internal order id, sent as the correlation key.
type CreateOrderParams struct {
	OrderID     string
	AmountMinor int64
	Phone       string
	RedirectURL string
	ProductName string
	PlanID      string
}

// PaymentSession is the provider's answer to a successful create-order call.
type PaymentSession struct {
	ProviderOrderID string
	PaymentURL      string
}

type createOrderResponse struct {
	Status  json.RawMessage `json:"status"`
	Message string          `json:"message"`
	Result  struct {
		OrderID    string `json:"orderId"`
		PaymentURL string `json:"payment_url"`
	} `json:"result"`
}

// CreateOrder opens a payment session with the provider. It fails with
// ErrUnavailable on transport errors and *RejectedError when the provider
// answers with a non-success status.
func (c *Client) CreateOrder(ctx context.Context, p CreateOrderParams) (*PaymentSession, error) {
	form := url.Values{}
	form.Set("customer_mobile", p.Phone)
	form.Set("user_token", c.cfg.APIKey)
	form.Set("amount", FormatAmount(p.AmountMinor))
	form.Set("order_id", p.OrderID)
	form.Set("redirect_url", p.RedirectURL)
	remark := p.ProductName
	if remark == "" {
		remark = "order"
	}
	form.Set("remark1", remark)
	form.Set("remark2", p.PlanID)

	body, httpOK, err := c.postForm(ctx, "/api/create-order", form)
	if err != nil {
		return nil, err
	}

	var resp createOrderResponse
	if jsonErr := json.Unmarshal(body, &resp); jsonErr != nil {
		resp.Message = "invalid JSON from gateway"
	}

	if !httpOK || !providerAccepted(resp.Status) {
		msg := resp.Message
		if msg == "" {
			msg = "payment gateway error"
		}
		return nil, &RejectedError{Message: msg}
	}

	session := &PaymentSession{
		ProviderOrderID: resp.Result.OrderID,
		PaymentURL:      resp.Result.PaymentURL,
	}
	if session.ProviderOrderID == "" {
		session.ProviderOrderID = p.OrderID
	}
	return session, nil
}

type checkStatusResponse struct {
	Status json.RawMessage `json:"status"`
	Result struct {
		Status    string `json:"status"`
		TxnStatus string `json:"txnStatus"`
	} `json:"result"`
}

// CheckOrderStatus polls the provider for the current payment status. Only
// transport failures surface as errors; a non-2xx or malformed answer comes
// back as StatusUnknown so transient polling never corrupts order state.
func (c *Client) CheckOrderStatus(ctx context.Context, providerOrderID string) (string, error) {
	form := url.Values{}
	form.Set("user_token", c.cfg.APIKey)
	form.Set("order_id", providerOrderID)

	body, httpOK, err := c.postForm(ctx, "/api/check-order-status", form)
	if err != nil {
		return "", err
	}
	if !httpOK {
		return StatusUnknown, nil
	}

	var resp checkStatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return StatusUnknown, nil
	}

	// The provider reports the transaction status in one of three spots
	// depending on the endpoint generation.
	if s := rawString(resp.Status); s != "" {
		return s, nil
	}
	if resp.Result.Status != "" {
		return resp.Result.Status, nil
	}
	if resp.Result.TxnStatus != "" {
		return resp.Result.TxnStatus, nil
	}
	return StatusUnknown, nil
}

// VerifySignature checks the webhook HMAC-SHA256 hex signature. When no
// webhook secret is configured verification is skipped and every payload
// passes; the deployment docs call this out as a weak default.
func (c *Client) VerifySignature(rawBody []byte, signature string) bool {
	if c.cfg.WebhookSecret == "" {
		return true
	}
	mac := hmac.New(sha256.New, []byte(c.cfg.WebhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

// FormatAmount renders a minor-unit amount the way the provider expects,
// e.g. 100000 -> "1000.00".
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// postForm sends a form-encoded POST. The bool result reports whether the
// provider answered with a 2xx status.
func (c *Client) postForm(ctx context.Context, path string, form url.Values) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return body, resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

// providerAccepted interprets the create-order status field, which the
// provider sends either as a bool or as a string.
func providerAccepted(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	switch rawString(raw) {
	case "true", "SUCCESS", "COMPLETED":
		return true
	}
	return false
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
