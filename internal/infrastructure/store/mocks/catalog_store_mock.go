package mocks

import (
	"context"
	"sync"

	"github.com/example/storefront-payments/internal/domain/catalog"
)

// MockCatalogStore is an in-memory CatalogStore for testing. DecrementStock
// is an atomic check-and-subtract under the mutex, matching the conditional
// update contract of the real implementations.
type MockCatalogStore struct {
	mu    sync.Mutex
	plans map[string]*catalog.Plan

	// For tracking calls in tests
	DecrementCalls []DecrementCall

	// Error injection
	GetPlanErr   error
	DecrementErr error
}

// DecrementCall records parameters passed to DecrementStock
type DecrementCall struct {
	ProductID string
	Quantity  int
}

func NewMockCatalogStore() *MockCatalogStore {
	return &MockCatalogStore{plans: make(map[string]*catalog.Plan)}
}

// SeedPlan registers a plan (and its embedded product).
func (m *MockCatalogStore) SeedPlan(p *catalog.Plan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[p.ID] = p
}

// Stock returns the remaining stock of a product, or nil when unmetered.
func (m *MockCatalogStore) Stock(productID string) *int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.plans {
		if p.Product.ID == productID {
			return p.Product.StockQuantity
		}
	}
	return nil
}

func (m *MockCatalogStore) GetActivePlan(ctx context.Context, planID string) (*catalog.Plan, error) {
	plan, err := m.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !plan.Active {
		return nil, catalog.ErrPlanNotFound
	}
	return plan, nil
}

func (m *MockCatalogStore) GetPlan(ctx context.Context, planID string) (*catalog.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetPlanErr != nil {
		return nil, m.GetPlanErr
	}
	p, ok := m.plans[planID]
	if !ok {
		return nil, catalog.ErrPlanNotFound
	}
	// Deep-copy the stock pointer so a returned plan is a snapshot, the way a
	// SQL row scan is, and later decrements cannot mutate it.
	cp := *p
	if p.Product.StockQuantity != nil {
		v := *p.Product.StockQuantity
		cp.Product.StockQuantity = &v
	}
	return &cp, nil
}

func (m *MockCatalogStore) DecrementStock(ctx context.Context, productID string, quantity int) (*int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DecrementCalls = append(m.DecrementCalls, DecrementCall{ProductID: productID, Quantity: quantity})
	if m.DecrementErr != nil {
		return nil, m.DecrementErr
	}
	for _, p := range m.plans {
		if p.Product.ID != productID {
			continue
		}
		if p.Product.StockQuantity == nil {
			return nil, nil
		}
		if *p.Product.StockQuantity < quantity {
			return nil, catalog.ErrInsufficientStock
		}
		*p.Product.StockQuantity -= quantity
		remaining := *p.Product.StockQuantity
		return &remaining, nil
	}
	return nil, catalog.ErrProductNotFound
}
