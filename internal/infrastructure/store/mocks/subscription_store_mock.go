package mocks

import (
	"context"
	"sync"

	"github.com/example/storefront-payments/internal/domain/subscription"
)

// MockSubscriptionStore is an in-memory SubscriptionStore for testing.
type MockSubscriptionStore struct {
	mu sync.Mutex

	// For tracking calls in tests
	Inserted []subscription.Subscription

	// Error injection
	InsertErr error
}

func NewMockSubscriptionStore() *MockSubscriptionStore {
	return &MockSubscriptionStore{}
}

func (m *MockSubscriptionStore) Insert(ctx context.Context, s *subscription.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.Inserted = append(m.Inserted, *s)
	return nil
}

// Count returns how many subscriptions were persisted.
func (m *MockSubscriptionStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Inserted)
}
