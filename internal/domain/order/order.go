package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order. Pending, Completed and Canceled
// are fixed; staff may move orders through additional intermediate states
// (Processing is the common one) via SetStatus.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusCompleted  Status = "Completed"
	StatusCanceled   Status = "Canceled"
)

// ActorKind identifies who performed a cancellation. It governs who may later
// alter the order: a customer cancellation locks the order against staff.
type ActorKind string

const (
	ActorCustomer ActorKind = "customer"
	ActorStaff    ActorKind = "staff"
)

// Sentinel errors for order operations.
var (
	ErrNotFound   = errors.New("order not found")
	ErrEmptyItems = errors.New("items required")
)

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// ForbiddenTransitionError indicates the order exists but its current state
// disallows the requested transition. Distinct from ErrNotFound.
type ForbiddenTransitionError struct {
	OrderID string
	Reason  string
}

func (e *ForbiddenTransitionError) Error() string {
	return fmt.Sprintf("forbidden transition for order %s: %s", e.OrderID, e.Reason)
}

// OrderItem is one product+quantity line within an order. Price is the unit
// price captured at order time and never re-derived from the catalog.
type OrderItem struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// Order is the order header plus its line items. CancelReason and CanceledBy
// are set together on cancellation and cleared together on reactivation.
type Order struct {
	ID           string
	CustomerID   string
	TotalAmount  decimal.Decimal
	Location     string
	Contact      string
	Note         string
	Status       Status
	CancelReason *string
	CanceledBy   *ActorKind
	CreatedAt    time.Time
	Items        []OrderItem
}

// AdminOrder is an order joined with the owning customer's display name, for
// the staff-facing listing.
type AdminOrder struct {
	Order
	CustomerName string
}

// RevenueStats aggregates order amounts by lifecycle state. Canceled orders
// count toward neither figure.
type RevenueStats struct {
	TotalRevenue     decimal.Decimal
	PotentialRevenue decimal.Decimal
}

// Repository defines persistence operations for orders.
//
// Create is atomic: the header, every line item, and every stock decrement
// commit together or not at all. Transition loads the order under a row lock,
// applies fn, and writes the status fields back in the same transaction; an
// error from fn aborts without touching the row.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]Order, error)
	ListAll(ctx context.Context) ([]AdminOrder, error)
	RevenueStats(ctx context.Context) (*RevenueStats, error)
	Transition(ctx context.Context, id string, fn func(o *Order) error) error
}
