package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlaceOrderRequest holds the input for placing an order. Prices are the
// caller-supplied snapshots from the cart, not catalog lookups.
type PlaceOrderRequest struct {
	CustomerID  string
	TotalAmount decimal.Decimal
	Items       []OrderItem
	Location    string
	Contact     string
	Note        string
}

// Service encapsulates order placement and lifecycle business logic. All
// persistence goes through the injected Repository; the service itself keeps
// no state between calls.
type Service struct {
	orders Repository
}

// NewService creates an order Service backed by the given repository.
func NewService(orders Repository) *Service {
	return &Service{orders: orders}
}

// PlaceOrder validates the cart, then atomically creates the order header,
// its line items, and the per-item stock decrements. Validation failures are
// rejected before any write; persistence failures leave no partial state.
// Returns the new order's identifier.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (string, error) {
	if len(req.Items) == 0 {
		return "", ErrEmptyItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return "", &InvalidQuantityError{ProductID: item.ProductID}
		}
	}
	if req.TotalAmount.IsNegative() {
		return "", fmt.Errorf("total amount must not be negative")
	}

	o := &Order{
		ID:          uuid.New().String(),
		CustomerID:  req.CustomerID,
		TotalAmount: req.TotalAmount.Round(2),
		Location:    req.Location,
		Contact:     req.Contact,
		Note:        req.Note,
		Status:      StatusPending,
		Items:       req.Items,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}

	return o.ID, nil
}

// ListForCustomer returns the customer's orders, newest first.
func (s *Service) ListForCustomer(ctx context.Context, customerID string) ([]Order, error) {
	return s.orders.ListByCustomer(ctx, customerID)
}

// ListAll returns every order joined with the customer display name, newest
// first. Staff-facing.
func (s *Service) ListAll(ctx context.Context) ([]AdminOrder, error) {
	return s.orders.ListAll(ctx)
}

// RevenueStats returns realized revenue (Completed orders) and potential
// revenue (orders neither Completed nor Canceled).
func (s *Service) RevenueStats(ctx context.Context) (*RevenueStats, error) {
	return s.orders.RevenueStats(ctx)
}

// SetStatus moves an order to newStatus on behalf of staff. An order canceled
// by the customer is locked: only that customer can undo the cancellation via
// Reactivate, so the transition is rejected with ForbiddenTransitionError.
func (s *Service) SetStatus(ctx context.Context, orderID string, newStatus Status) error {
	return s.orders.Transition(ctx, orderID, func(o *Order) error {
		if o.Status == StatusCanceled && o.CanceledBy != nil && *o.CanceledBy == ActorCustomer {
			return &ForbiddenTransitionError{
				OrderID: orderID,
				Reason:  "canceled by customer; only the customer can reactivate it",
			}
		}
		o.Status = newStatus
		return nil
	})
}

// Cancel marks an order Canceled, recording the reason and which actor kind
// canceled it. The transition is unconditional: any state may be canceled.
func (s *Service) Cancel(ctx context.Context, orderID, reason string, canceledBy ActorKind) error {
	return s.orders.Transition(ctx, orderID, func(o *Order) error {
		o.Status = StatusCanceled
		o.CancelReason = &reason
		o.CanceledBy = &canceledBy
		return nil
	})
}

// Reactivate undoes a customer cancellation: status returns to Pending and
// both cancellation fields are cleared together. Orders canceled by staff, or
// not canceled at all, are rejected with ForbiddenTransitionError.
func (s *Service) Reactivate(ctx context.Context, orderID string) error {
	return s.orders.Transition(ctx, orderID, func(o *Order) error {
		if o.CanceledBy == nil || *o.CanceledBy != ActorCustomer {
			return &ForbiddenTransitionError{
				OrderID: orderID,
				Reason:  "only orders canceled by the customer can be reactivated",
			}
		}
		o.Status = StatusPending
		o.CancelReason = nil
		o.CanceledBy = nil
		return nil
	})
}
