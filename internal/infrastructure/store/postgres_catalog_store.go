package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/storefront-payments/internal/domain/catalog"
)

// PostgresCatalogStore implements CatalogStore on PostgreSQL.
type PostgresCatalogStore struct {
	db *sql.DB
}

func NewPostgresCatalogStore(db *sql.DB) *PostgresCatalogStore {
	return &PostgresCatalogStore{db: db}
}

func (s *PostgresCatalogStore) GetActivePlan(ctx context.Context, planID string) (*catalog.Plan, error) {
	return s.getPlan(ctx, planID, true)
}

func (s *PostgresCatalogStore) GetPlan(ctx context.Context, planID string) (*catalog.Plan, error) {
	return s.getPlan(ctx, planID, false)
}

func (s *PostgresCatalogStore) getPlan(ctx context.Context, planID string, activeOnly bool) (*catalog.Plan, error) {
	query := `SELECT pl.id, pl.product_id, pl.name, pl.price, pl.currency, pl.interval, pl.active,
	                 pr.id, pr.name, pr.stock_quantity
	          FROM plans pl
	          JOIN products pr ON pr.id = pl.product_id
	          WHERE pl.id = $1`
	if activeOnly {
		query += ` AND pl.active`
	}

	var p catalog.Plan
	var stock sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, planID).Scan(
		&p.ID, &p.ProductID, &p.Name, &p.Price, &p.Currency, &p.Interval, &p.Active,
		&p.Product.ID, &p.Product.Name, &stock,
	)
	if err == sql.ErrNoRows {
		return nil, catalog.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}
	if stock.Valid {
		v := int(stock.Int64)
		p.Product.StockQuantity = &v
	}
	return &p, nil
}

// DecrementStock is a single conditional UPDATE so concurrent orders against
// the same product cannot lose updates or drive stock negative. The RETURNING
// clause hands back the post-decrement quantity, so callers report remaining
// stock from the write itself rather than a stale read. A NULL stock_quantity
// stays NULL (NULL - n = NULL), which is the unmetered pass-through.
func (s *PostgresCatalogStore) DecrementStock(ctx context.Context, productID string, quantity int) (*int, error) {
	var stock sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`UPDATE products
		 SET stock_quantity = stock_quantity - $2
		 WHERE id = $1 AND (stock_quantity IS NULL OR stock_quantity >= $2)
		 RETURNING stock_quantity`,
		productID, quantity).Scan(&stock)
	if err == sql.ErrNoRows {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
		if !exists {
			return nil, catalog.ErrProductNotFound
		}
		return nil, catalog.ErrInsufficientStock
	}
	if err != nil {
		return nil, fmt.Errorf("decrement stock: %w", err)
	}
	if !stock.Valid {
		return nil, nil
	}
	remaining := int(stock.Int64)
	return &remaining, nil
}
