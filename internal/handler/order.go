package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MohasaidAli/coffee-shop-system/internal/domain/customer"
	"github.com/MohasaidAli/coffee-shop-system/internal/domain/order"
	"github.com/MohasaidAli/coffee-shop-system/internal/domain/product"
)

type orderItemRequest struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type placeOrderRequest struct {
	TotalAmount float64            `json:"totalAmount"`
	Items       []orderItemRequest `json:"items"`
	Location    string             `json:"location"`
	Contact     string             `json:"contact"`
	Note        string             `json:"note"`
}

type placeOrderResponse struct {
	OrderID string `json:"orderId"`
}

type orderResponse struct {
	ID           string    `json:"id"`
	CustomerID   string    `json:"customerId"`
	TotalAmount  float64   `json:"totalAmount"`
	Location     string    `json:"location"`
	Contact      string    `json:"contact"`
	Note         string    `json:"note,omitempty"`
	Status       string    `json:"status"`
	CancelReason *string   `json:"cancelReason,omitempty"`
	CanceledBy   *string   `json:"canceledBy,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type adminOrderResponse struct {
	orderResponse
	CustomerName string `json:"customerName"`
}

type revenueResponse struct {
	TotalRevenue     float64 `json:"totalRevenue"`
	PotentialRevenue float64 `json:"potentialRevenue"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	var req placeOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	items := make([]order.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     decimal.NewFromFloat(item.Price),
		}
	}

	orderID, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		CustomerID:  actor.ID,
		TotalAmount: decimal.NewFromFloat(req.TotalAmount),
		Items:       items,
		Location:    req.Location,
		Contact:     req.Contact,
		Note:        req.Note,
	})
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}

	h.ordersPlaced.Add(r.Context(), 1, metric.WithAttributes(
		attribute.String("actor.role", string(actor.Role)),
	))
	writeJSON(w, http.StatusCreated, placeOrderResponse{OrderID: orderID})
}

func (h *Handler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	orders, err := h.orders.ListForCustomer(r.Context(), actor.ID)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	out := make([]adminOrderResponse, len(orders))
	for i, o := range orders {
		out[i] = adminOrderResponse{
			orderResponse: toOrderResponse(o.Order),
			CustomerName:  o.CustomerName,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) revenueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orders.RevenueStats(r.Context())
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, revenueResponse{
		TotalRevenue:     stats.TotalRevenue.InexactFloat64(),
		PotentialRevenue: stats.PotentialRevenue.InexactFloat64(),
	})
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "status required")
		return
	}

	err := h.orders.SetStatus(r.Context(), r.PathValue("orderID"), order.Status(req.Status))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "status updated"})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFromContext(r.Context())

	var req cancelRequest
	if !decodeBody(w, r, &req) {
		return
	}

	canceledBy := order.ActorCustomer
	if actor.Role == customer.RoleStaff {
		canceledBy = order.ActorStaff
	}

	err := h.orders.Cancel(r.Context(), r.PathValue("orderID"), req.Reason, canceledBy)
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "order canceled"})
}

func (h *Handler) reactivateOrder(w http.ResponseWriter, r *http.Request) {
	err := h.orders.Reactivate(r.Context(), r.PathValue("orderID"))
	if err != nil {
		h.writeOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "order reactivated"})
}

// writeOrderError maps domain errors to HTTP responses: validation failures to
// 400/422, guard violations to 403, unknown orders to 404, anything else 500.
func (h *Handler) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		forbiddenErr *order.ForbiddenTransitionError
		quantityErr  *order.InvalidQuantityError
	)

	switch {
	case errors.Is(err, order.ErrEmptyItems):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &quantityErr):
		writeError(w, http.StatusUnprocessableEntity, quantityErr.Error())
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusUnprocessableEntity, "order references an unknown product")
	case errors.Is(err, order.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.As(err, &forbiddenErr):
		writeError(w, http.StatusForbidden, forbiddenErr.Error())
	default:
		writeInternalError(w, r, err)
	}
}

func toOrderResponse(o order.Order) orderResponse {
	resp := orderResponse{
		ID:           o.ID,
		CustomerID:   o.CustomerID,
		TotalAmount:  o.TotalAmount.InexactFloat64(),
		Location:     o.Location,
		Contact:      o.Contact,
		Note:         o.Note,
		Status:       string(o.Status),
		CancelReason: o.CancelReason,
		CreatedAt:    o.CreatedAt,
	}
	if o.CanceledBy != nil {
		s := string(*o.CanceledBy)
		resp.CanceledBy = &s
	}
	return resp
}
