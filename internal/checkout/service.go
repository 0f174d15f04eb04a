package checkout

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/example/storefront-payments/internal/domain/catalog"
	"github.com/example/storefront-payments/internal/domain/order"
	"github.com/example/storefront-payments/internal/domain/subscription"
	"github.com/example/storefront-payments/internal/gateway"
	"github.com/example/storefront-payments/internal/infrastructure/store"
	"github.com/google/uuid"
)

const providerName = "xtragateway"

// Gateway is the slice of the payment provider client the service needs.
type Gateway interface {
	CreateOrder(ctx context.Context, p gateway.CreateOrderParams) (*gateway.PaymentSession, error)
	CheckOrderStatus(ctx context.Context, providerOrderID string) (string, error)
	VerifySignature(rawBody []byte, signature string) bool
}

// EventPublisher publishes order lifecycle events. A nil publisher disables
// publishing.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Service is the reconciliation engine. Three entry points mutate order
// state: CreatePayment, VerifyPayment and HandleWebhook. All of them funnel
// terminal transitions through ApplyProviderStatus, and the store's
// conditional update guarantees the fulfillment side effects run exactly
// once however the entry points race.
type Service struct {
	orders        store.OrderStore
	catalog       store.CatalogStore
	subscriptions store.SubscriptionStore
	gateway       Gateway
	publisher     EventPublisher

	// fallback redirect URL when the request's success_url is blank
	redirectURL string
}

func NewService(
	orders store.OrderStore,
	catalogStore store.CatalogStore,
	subscriptions store.SubscriptionStore,
	gw Gateway,
	publisher EventPublisher,
	redirectURL string,
) *Service {
	return &Service{
		orders:        orders,
		catalog:       catalogStore,
		subscriptions: subscriptions,
		gateway:       gw,
		publisher:     publisher,
		redirectURL:   redirectURL,
	}
}

// CreatePaymentRequest is the checkout initiation request. Quantity is a
// pointer so an omitted field defaults to 1 while an explicit 0 still fails
// validation. UserID comes from the auth context, never the body.
type CreatePaymentRequest struct {
	PlanID      string `json:"plan_id"`
	Quantity    *int   `json:"quantity"`
	GuestEmail  string `json:"guest_email"`
	PhoneNumber string `json:"phone_number"`
	SuccessURL  string `json:"success_url"`
	CancelURL   string `json:"cancel_url"`
	UserID      string `json:"-"`
}

func (r *CreatePaymentRequest) validate() error {
	var errs []string
	errs = validatePlanID(r.PlanID, errs)
	if r.Quantity != nil {
		errs = validateQuantity(*r.Quantity, errs)
	}
	errs = validatePhone(r.PhoneNumber, errs)
	errs = validatePurchaser(r.UserID, r.GuestEmail, errs)
	errs = validateURL(r.SuccessURL, "success_url", errs)
	errs = validateURL(r.CancelURL, "cancel_url", errs)
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func (r *CreatePaymentRequest) quantity() int {
	if r.Quantity == nil {
		return 1
	}
	return *r.Quantity
}

type CreatePaymentResult struct {
	OrderID    string `json:"order_id"`
	PaymentID  string `json:"payment_id"`
	PaymentURL string `json:"payment_url"`
}

// CreatePayment validates the request, records a pending order and opens a
// payment session with the provider. A gateway failure marks the order
// failed rather than leaving it pending forever.
func (s *Service) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*CreatePaymentResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	qty := req.quantity()

	plan, err := s.catalog.GetActivePlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	// Informational stock check; the authoritative decrement happens when the
	// payment completes.
	if plan.Product.Metered() && *plan.Product.StockQuantity < qty {
		return nil, &InsufficientStockError{Available: *plan.Product.StockQuantity, Requested: qty}
	}

	o := s.newOrder(plan, qty, req.UserID, req.GuestEmail, normalizePhone(req.PhoneNumber))
	if err := s.orders.Insert(ctx, o); err != nil {
		return nil, err
	}

	redirectURL, err := s.buildRedirectURL(req.SuccessURL, o.ID)
	if err != nil {
		s.markFailed(ctx, o.ID)
		return nil, err
	}

	session, err := s.gateway.CreateOrder(ctx, gateway.CreateOrderParams{
		OrderID:     o.ID,
		AmountMinor: o.Amount,
		Phone:       o.PhoneNumber,
		RedirectURL: redirectURL,
		ProductName: plan.Product.Name,
		PlanID:      plan.ID,
	})
	if err != nil {
		s.markFailed(ctx, o.ID)
		return nil, err
	}

	if err := s.orders.SetProviderID(ctx, o.ID, session.ProviderOrderID); err != nil {
		return nil, err
	}
	o.PaymentProviderID = session.ProviderOrderID

	s.publish(ctx, order.EventOrderCreated, o, plan.Product.Name)

	return &CreatePaymentResult{
		OrderID:    o.ID,
		PaymentID:  session.ProviderOrderID,
		PaymentURL: session.PaymentURL,
	}, nil
}

// CreateOrderRequest is the synchronous-settlement checkout: no gateway
// round trip, the order completes immediately. Used for flows where payment
// is collected out-of-band.
type CreateOrderRequest struct {
	PlanID     string `json:"plan_id"`
	Quantity   *int   `json:"quantity"`
	GuestEmail string `json:"guest_email"`
	UserID     string `json:"-"`
}

func (r *CreateOrderRequest) validate() error {
	var errs []string
	errs = validatePlanID(r.PlanID, errs)
	if r.Quantity != nil {
		errs = validateQuantity(*r.Quantity, errs)
	}
	errs = validatePurchaser(r.UserID, r.GuestEmail, errs)
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func (r *CreateOrderRequest) quantity() int {
	if r.Quantity == nil {
		return 1
	}
	return *r.Quantity
}

type CreateOrderResult struct {
	Order          *order.Order               `json:"order"`
	Subscription   *subscription.Subscription `json:"subscription"`
	StockRemaining *int                       `json:"stock_remaining"`
}

// CreateOrder creates and settles an order in one call. The completion goes
// through the same conditional-update guard as the asynchronous paths.
func (s *Service) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	qty := req.quantity()

	plan, err := s.catalog.GetActivePlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if plan.Product.Metered() && *plan.Product.StockQuantity < qty {
		return nil, &InsufficientStockError{Available: *plan.Product.StockQuantity, Requested: qty}
	}

	o := s.newOrder(plan, qty, req.UserID, req.GuestEmail, "")
	if err := s.orders.Insert(ctx, o); err != nil {
		return nil, err
	}

	first, err := s.orders.CompleteOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Status = order.StatusCompleted

	var sub *subscription.Subscription
	var remaining *int
	if first {
		sub, remaining, err = s.fulfill(ctx, o)
		if err != nil {
			return nil, err
		}
	}

	return &CreateOrderResult{Order: o, Subscription: sub, StockRemaining: remaining}, nil
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
}

type VerifyPaymentResult struct {
	OrderID        string       `json:"order_id"`
	Status         order.Status `json:"status"`
	ProviderStatus string       `json:"provider_status"`
	Verified       bool         `json:"verified"`
}

// VerifyPayment is the client-initiated poll after the customer returns from
// the gateway. Gateway errors fail this request but never change order
// state; only a successfully parsed provider status does.
func (s *Service) VerifyPayment(ctx context.Context, req *VerifyPaymentRequest) (*VerifyPaymentResult, error) {
	if req.OrderID == "" && req.PaymentID == "" {
		return nil, &ValidationError{Errors: []string{"payment_id or order_id is required"}}
	}

	var o *order.Order
	var err error
	if req.OrderID != "" {
		o, err = s.orders.GetByID(ctx, req.OrderID)
	} else {
		o, err = s.orders.GetByProviderID(ctx, req.PaymentID)
	}
	if err != nil {
		return nil, err
	}

	providerStatus, err := s.gateway.CheckOrderStatus(ctx, o.ProviderOrderID())
	if err != nil {
		return nil, err
	}

	res, err := s.ApplyProviderStatus(ctx, o, providerStatus)
	if err != nil {
		return nil, err
	}

	return &VerifyPaymentResult{
		OrderID:        o.ID,
		Status:         res.Status,
		ProviderStatus: providerStatus,
		Verified:       true,
	}, nil
}

type WebhookResult struct {
	Success   bool         `json:"success"`
	OrderID   string       `json:"order_id"`
	Status    order.Status `json:"status"`
	PaymentID string       `json:"payment_id"`
}

// HandleWebhook is the asynchronous push from the provider. The order is
// looked up by the provider's correlation id, since that is all the provider
// knows.
func (s *Service) HandleWebhook(ctx context.Context, rawBody []byte, signature string) (*WebhookResult, error) {
	if !s.gateway.VerifySignature(rawBody, signature) {
		return nil, ErrInvalidSignature
	}

	paymentID, providerStatus, err := parseWebhookPayload(rawBody)
	if err != nil {
		return nil, err
	}

	o, err := s.orders.GetByProviderID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	res, err := s.ApplyProviderStatus(ctx, o, providerStatus)
	if err != nil {
		return nil, err
	}

	return &WebhookResult{
		Success:   true,
		OrderID:   o.ID,
		Status:    res.Status,
		PaymentID: paymentID,
	}, nil
}

// ReconcileResult reports the outcome of applying a provider status.
type ReconcileResult struct {
	Status order.Status
	// Transitioned is true when this call made the first transition into
	// completed, i.e. fulfillment side effects ran here.
	Transitioned bool
}

// ApplyProviderStatus maps the provider's status vocabulary onto the order
// state machine and persists the transition. The transition into completed
// is a compare-and-set against the stored status; re-entrant calls on an
// already-completed order are side-effect-free.
func (s *Service) ApplyProviderStatus(ctx context.Context, o *order.Order, providerStatus string) (*ReconcileResult, error) {
	mapped := order.ParseProviderStatus(providerStatus).OrderStatus()

	if mapped != order.StatusCompleted {
		if o.Status != order.StatusCompleted {
			// The store refuses downgrades of completed orders and reports the
			// status the order kept, so a stale in-memory read cannot make the
			// response disagree with the durable state.
			effective, err := s.orders.UpdateStatus(ctx, o.ID, mapped)
			if err != nil {
				return nil, err
			}
			o.Status = effective
			if effective == order.StatusFailed {
				s.publish(ctx, order.EventOrderFailed, o, "")
			}
		}
		return &ReconcileResult{Status: o.Status}, nil
	}

	first, err := s.orders.CompleteOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Status = order.StatusCompleted

	if first {
		if _, _, err := s.fulfill(ctx, o); err != nil {
			return &ReconcileResult{Status: o.Status, Transitioned: true}, err
		}
	}
	return &ReconcileResult{Status: o.Status, Transitioned: first}, nil
}

// fulfill runs the side effects of the first transition into completed:
// decrement metered stock, issue the subscription, link it back to the
// order. It is only ever reached once per order via the completion guard.
// The remaining stock comes straight from the decrement's return value, so
// callers never recompute it from a stale plan read.
func (s *Service) fulfill(ctx context.Context, o *order.Order) (*subscription.Subscription, *int, error) {
	plan, err := s.catalog.GetPlan(ctx, o.PlanID)
	if err != nil {
		return nil, nil, &PartialFulfillmentError{OrderID: o.ID, Err: err}
	}

	// Stock is best-effort once payment has settled: a failed decrement is
	// logged and reconciled out-of-band, never rolled into a payment failure.
	var remaining *int
	if plan.Product.Metered() {
		remaining, err = s.catalog.DecrementStock(ctx, plan.Product.ID, o.Quantity)
		if err != nil {
			log.Printf("[Checkout] Stock decrement failed for order %s (product %s, qty %d): %v",
				o.ID, plan.Product.ID, o.Quantity, err)
		}
	}

	sub := subscription.New(o.PlanID, o.UserID, o.GuestEmail, plan.Interval, time.Now().UTC())
	if err := s.subscriptions.Insert(ctx, sub); err != nil {
		return nil, remaining, &PartialFulfillmentError{OrderID: o.ID, Err: err}
	}

	if err := s.orders.SetSubscriptionID(ctx, o.ID, sub.ID); err != nil {
		return sub, remaining, &PartialFulfillmentError{OrderID: o.ID, Err: err}
	}
	o.SubscriptionID = sub.ID

	s.publish(ctx, order.EventOrderCompleted, o, plan.Product.Name)
	return sub, remaining, nil
}

func (s *Service) newOrder(plan *catalog.Plan, qty int, userID, guestEmail, phone string) *order.Order {
	o := &order.Order{
		ID:              uuid.New().String(),
		PlanID:          plan.ID,
		Amount:          plan.Price * int64(qty),
		Currency:        plan.Currency,
		Status:          order.StatusPending,
		Quantity:        qty,
		PaymentProvider: providerName,
		PhoneNumber:     phone,
		CreatedAt:       time.Now().UTC(),
	}
	if userID != "" {
		o.UserID = userID
	} else {
		o.GuestEmail = guestEmail
	}
	return o
}

// buildRedirectURL interpolates the internal order id into the success URL:
// an {ORDER_ID} placeholder is replaced in place, otherwise the id is
// appended as a query parameter.
func (s *Service) buildRedirectURL(successURL, orderID string) (string, error) {
	u := strings.TrimSpace(successURL)
	if u == "" {
		u = s.redirectURL
	}
	if u == "" {
		return "", &ValidationError{Errors: []string{"redirect URL not configured"}}
	}
	if strings.Contains(u, "{ORDER_ID}") {
		return strings.ReplaceAll(u, "{ORDER_ID}", orderID), nil
	}
	joiner := "?"
	if strings.Contains(u, "?") {
		joiner = "&"
	}
	return u + joiner + "order_id=" + orderID, nil
}

func (s *Service) markFailed(ctx context.Context, orderID string) {
	if _, err := s.orders.UpdateStatus(ctx, orderID, order.StatusFailed); err != nil {
		log.Printf("[Checkout] Failed to mark order %s failed: %v", orderID, err)
	}
}

func (s *Service) publish(ctx context.Context, eventType string, o *order.Order, productName string) {
	if s.publisher == nil {
		return
	}
	ev := order.NewEvent(eventType, o)
	ev.ProductName = productName
	if err := s.publisher.Publish(ctx, o.ID, &ev); err != nil {
		log.Printf("[Checkout] Failed to publish %s for order %s: %v", eventType, o.ID, err)
	}
}
