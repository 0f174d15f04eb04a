package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/storefront-payments/internal/domain/order"
)

// PostgresOrderStore implements OrderStore on PostgreSQL. The completion
// guard and the never-downgrade rule live in the WHERE clauses, so they hold
// under concurrent requests without in-process locking.
type PostgresOrderStore struct {
	db *sql.DB
}

func NewPostgresOrderStore(db *sql.DB) *PostgresOrderStore {
	return &PostgresOrderStore{db: db}
}

func (s *PostgresOrderStore) Insert(ctx context.Context, o *order.Order) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO orders (id, plan_id, amount, currency, status, quantity, user_id, guest_email,
		                     payment_provider, payment_provider_id, phone_number, subscription_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, NULLIF($10, ''), $11, NULLIF($12, ''), $13)`,
		o.ID, o.PlanID, o.Amount, o.Currency, o.Status, o.Quantity, o.UserID, o.GuestEmail,
		o.PaymentProvider, o.PaymentProviderID, o.PhoneNumber, o.SubscriptionID, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (s *PostgresOrderStore) GetByID(ctx context.Context, id string) (*order.Order, error) {
	return s.getOne(ctx, `WHERE id = $1`, id)
}

func (s *PostgresOrderStore) GetByProviderID(ctx context.Context, providerID string) (*order.Order, error) {
	return s.getOne(ctx, `WHERE payment_provider_id = $1`, providerID)
}

func (s *PostgresOrderStore) getOne(ctx context.Context, where string, arg any) (*order.Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, plan_id, amount, currency, status, quantity,
		        COALESCE(user_id, ''), COALESCE(guest_email, ''),
		        payment_provider, COALESCE(payment_provider_id, ''),
		        phone_number, COALESCE(subscription_id, ''), created_at
		 FROM orders `+where, arg)

	var o order.Order
	err := row.Scan(&o.ID, &o.PlanID, &o.Amount, &o.Currency, &o.Status, &o.Quantity,
		&o.UserID, &o.GuestEmail, &o.PaymentProvider, &o.PaymentProviderID,
		&o.PhoneNumber, &o.SubscriptionID, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &o, nil
}

func (s *PostgresOrderStore) SetProviderID(ctx context.Context, id, providerID string) error {
	return s.update(ctx,
		`UPDATE orders SET payment_provider_id = $2 WHERE id = $1`,
		id, providerID)
}

func (s *PostgresOrderStore) UpdateStatus(ctx context.Context, id string, status order.Status) (order.Status, error) {
	// Completed is sticky: a late pending/failed report must not undo it. When
	// the conditional write is refused, the select reports the status the
	// order kept, so callers never echo a status the store rejected.
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1 AND status <> $3`,
		id, status, order.StatusCompleted)
	if err != nil {
		return "", fmt.Errorf("update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var current order.Status
		err := s.db.QueryRowContext(ctx,
			`SELECT status FROM orders WHERE id = $1`, id).Scan(&current)
		if err == sql.ErrNoRows {
			return "", order.ErrOrderNotFound
		}
		if err != nil {
			return "", fmt.Errorf("update order status: %w", err)
		}
		return current, nil
	}
	return status, nil
}

// CompleteOrder performs the compare-and-set transition into completed.
func (s *PostgresOrderStore) CompleteOrder(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1 AND status <> $2`,
		id, order.StatusCompleted)
	if err != nil {
		return false, fmt.Errorf("complete order: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete order: %w", err)
	}
	if n == 0 {
		// Either already completed or missing; only the latter is an error.
		if err := s.checkExists(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (s *PostgresOrderStore) SetSubscriptionID(ctx context.Context, id, subscriptionID string) error {
	return s.update(ctx,
		`UPDATE orders SET subscription_id = $2 WHERE id = $1`,
		id, subscriptionID)
}

func (s *PostgresOrderStore) update(ctx context.Context, query, id string, arg any) error {
	res, err := s.db.ExecContext(ctx, query, id, arg)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

func (s *PostgresOrderStore) checkExists(ctx context.Context, id string) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check order: %w", err)
	}
	if !exists {
		return order.ErrOrderNotFound
	}
	return nil
}
