package catalog

import "errors"

var (
	ErrPlanNotFound      = errors.New("plan not found or inactive")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Interval is the billing interval of a plan.
type Interval string

const (
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// Product is a catalog item. StockQuantity is nil for unmetered products;
// a nil stock never blocks checkout and is never decremented.
type Product struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	StockQuantity *int   `json:"stock_quantity"`
}

// Metered reports whether the product tracks a finite stock.
func (p *Product) Metered() bool {
	return p.StockQuantity != nil
}

// Plan is a purchasable price/interval variant of a product.
// Price is stored in minor currency units (cents).
type Plan struct {
	ID        string   `json:"id"`
	ProductID string   `json:"product_id"`
	Name      string   `json:"name"`
	Price     int64    `json:"price"`
	Currency  string   `json:"currency"`
	Interval  Interval `json:"interval"`
	Active    bool     `json:"active"`
	Product   Product  `json:"product"`
}
