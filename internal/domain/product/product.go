package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item with a finite stock of sellable units.
type Product struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Stock       int
	Description string
	CreatedAt   time.Time
}

// Repository defines the catalog surface. The order core only reads products
// and decrements stock; the write operations serve the catalog endpoints.
//
// Delete removes a product; historical order lines keep their captured price
// and quantity, losing only the catalog reference.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}
