package customer

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when no customer matches the given identifier.
var ErrNotFound = errors.New("customer not found")

// Role distinguishes ordinary customers from staff. Staff drive order status;
// customers place, cancel and reactivate their own orders.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
)

// Customer is an account known to the store.
type Customer struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
}

// Repository provides account lookups and creation.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Customer, error)
	FindByEmail(ctx context.Context, email string) (*Customer, error)
	Create(ctx context.Context, c *Customer) error
}
