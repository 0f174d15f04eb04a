package mocks

import (
	"context"
	"sync"

	"github.com/example/storefront-payments/internal/domain/order"
)

// MockOrderStore is an in-memory OrderStore for testing. CompleteOrder is a
// real compare-and-set under the mutex, so concurrency tests exercise the
// same guard semantics as the SQL and DynamoDB implementations.
type MockOrderStore struct {
	mu     sync.Mutex
	orders map[string]*order.Order

	// For tracking calls in tests
	InsertCalls   []order.Order
	CompleteCalls int

	// Error injection
	InsertErr          error
	GetErr             error
	UpdateStatusErr    error
	CompleteErr        error
	SetProviderIDErr   error
	SetSubscriptionErr error
}

func NewMockOrderStore() *MockOrderStore {
	return &MockOrderStore{orders: make(map[string]*order.Order)}
}

// Seed stores an order directly, bypassing call tracking.
func (m *MockOrderStore) Seed(o *order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
}

// Snapshot returns a copy of the stored order, for assertions.
func (m *MockOrderStore) Snapshot(id string) (order.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return order.Order{}, false
	}
	return *o, true
}

func (m *MockOrderStore) Insert(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls = append(m.InsertCalls, *o)
	if m.InsertErr != nil {
		return m.InsertErr
	}
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *MockOrderStore) GetByID(ctx context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockOrderStore) GetByProviderID(ctx context.Context, providerID string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	for _, o := range m.orders {
		if o.PaymentProviderID == providerID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (m *MockOrderStore) SetProviderID(ctx context.Context, id, providerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetProviderIDErr != nil {
		return m.SetProviderIDErr
	}
	o, ok := m.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.PaymentProviderID = providerID
	return nil
}

func (m *MockOrderStore) UpdateStatus(ctx context.Context, id string, status order.Status) (order.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateStatusErr != nil {
		return "", m.UpdateStatusErr
	}
	o, ok := m.orders[id]
	if !ok {
		return "", order.ErrOrderNotFound
	}
	if o.Status != order.StatusCompleted {
		o.Status = status
	}
	return o.Status, nil
}

func (m *MockOrderStore) CompleteOrder(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompleteCalls++
	if m.CompleteErr != nil {
		return false, m.CompleteErr
	}
	o, ok := m.orders[id]
	if !ok {
		return false, order.ErrOrderNotFound
	}
	if o.Status == order.StatusCompleted {
		return false, nil
	}
	o.Status = order.StatusCompleted
	return true, nil
}

func (m *MockOrderStore) SetSubscriptionID(ctx context.Context, id, subscriptionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetSubscriptionErr != nil {
		return m.SetSubscriptionErr
	}
	o, ok := m.orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.SubscriptionID = subscriptionID
	return nil
}
