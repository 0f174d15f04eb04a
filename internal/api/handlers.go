package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/example/storefront-payments/internal/api/middleware"
	"github.com/example/storefront-payments/internal/checkout"
	"github.com/example/storefront-payments/internal/domain/catalog"
	"github.com/example/storefront-payments/internal/domain/order"
	"github.com/example/storefront-payments/internal/gateway"
	"github.com/example/storefront-payments/internal/infrastructure/store"
)

// Webhook bodies are signed and small; cap reads so a misbehaving caller
// cannot hold the connection open with an endless body.
const maxWebhookBody = 1 << 20

type Handlers struct {
	service *checkout.Service
	orders  store.OrderStore
}

func NewHandlers(service *checkout.Service, orders store.OrderStore) *Handlers {
	return &Handlers{
		service: service,
		orders:  orders,
	}
}

// Payment Handlers

func (h *Handlers) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req checkout.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.UserID = getUserID(r)

	res, err := h.service.CreatePayment(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, res)
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req checkout.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.UserID = getUserID(r)

	res, err := h.service.CreateOrder(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, res)
}

func (h *Handlers) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req checkout.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.service.VerifyPayment(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// Webhook accepts the provider's push notifications. Some provider
// dashboards probe the endpoint with a GET before saving it, so GET answers
// with a liveness body instead of an error.
func (h *Handlers) Webhook(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	res, err := h.service.HandleWebhook(r.Context(), body, webhookSignature(r))
	if err != nil {
		writeError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// Order Handlers

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := extractPathParam(r.URL.Path, "/orders/")

	o, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	// Authorization check: users see only their own orders, admins see all.
	// Guest orders are fetched by id alone from the success page.
	if o.UserID != "" && o.UserID != getUserID(r) && !isAdmin(r) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	respondJSON(w, http.StatusOK, o)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error) {
	var vErr *checkout.ValidationError
	var stockErr *checkout.InsufficientStockError
	var rejErr *gateway.RejectedError
	var partialErr *checkout.PartialFulfillmentError

	switch {
	case errors.As(err, &vErr):
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "validation failed",
			"details": vErr.Errors,
		})
	case errors.As(err, &stockErr):
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"error":     "insufficient stock",
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		})
	case errors.Is(err, catalog.ErrPlanNotFound), errors.Is(err, catalog.ErrProductNotFound):
		http.Error(w, "Plan not found", http.StatusNotFound)
	case errors.Is(err, order.ErrOrderNotFound):
		http.Error(w, "Order not found", http.StatusNotFound)
	case errors.Is(err, checkout.ErrInvalidSignature):
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
	case errors.Is(err, gateway.ErrUnavailable):
		http.Error(w, "Payment gateway unavailable", http.StatusBadGateway)
	case errors.As(err, &rejErr):
		http.Error(w, rejErr.Error(), http.StatusBadGateway)
	case errors.As(err, &partialErr):
		http.Error(w, partialErr.Error(), http.StatusInternalServerError)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

// webhookSignature reads the provider's signature header. The current header
// name is X-Xtragateway-Signature; X-Signature is the older one.
func webhookSignature(r *http.Request) string {
	if sig := r.Header.Get("X-Xtragateway-Signature"); sig != "" {
		return sig
	}
	return r.Header.Get("X-Signature")
}

// getUserID extracts the user ID from the JWT context or falls back to the
// X-User-ID header. Empty means guest checkout.
func getUserID(r *http.Request) string {
	if userID := middleware.GetUserID(r.Context()); userID != "" {
		return userID
	}
	return r.Header.Get("X-User-ID")
}

// isAdmin checks if the current user has admin role
func isAdmin(r *http.Request) bool {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		return false
	}
	return claims.Role == "admin"
}
