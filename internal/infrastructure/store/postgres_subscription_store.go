package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/storefront-payments/internal/domain/subscription"
)

// PostgresSubscriptionStore implements SubscriptionStore on PostgreSQL.
type PostgresSubscriptionStore struct {
	db *sql.DB
}

func NewPostgresSubscriptionStore(db *sql.DB) *PostgresSubscriptionStore {
	return &PostgresSubscriptionStore{db: db}
}

func (s *PostgresSubscriptionStore) Insert(ctx context.Context, sub *subscription.Subscription) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (id, plan_id, user_id, guest_email, status,
		                            current_period_start, current_period_end, created_at)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8)`,
		sub.ID, sub.PlanID, sub.UserID, sub.GuestEmail, sub.Status,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}
