// Package handler exposes the order and catalog operations over JSON HTTP.
// Routing is a plain net/http ServeMux with method patterns; no framework.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/MohasaidAli/coffee-shop-system/internal/domain/customer"
	"github.com/MohasaidAli/coffee-shop-system/internal/domain/order"
	"github.com/MohasaidAli/coffee-shop-system/internal/domain/product"
)

// Handler serves the HTTP API, delegating business logic to the order service
// and the catalog and account repositories.
type Handler struct {
	orders    *order.Service
	products  product.Repository
	customers customer.Repository

	ordersPlaced metric.Int64Counter
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	orders *order.Service,
	products product.Repository,
	customers customer.Repository,
	meter metric.Meter,
) (*Handler, error) {
	ordersPlaced, err := meter.Int64Counter("coffee.orders.placed",
		metric.WithDescription("Number of successfully placed orders"),
	)
	if err != nil {
		return nil, err
	}

	return &Handler{
		orders:       orders,
		products:     products,
		customers:    customers,
		ordersPlaced: ordersPlaced,
	}, nil
}

// Register attaches all API routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders", h.withActor(h.placeOrder))
	mux.HandleFunc("GET /api/orders", h.withActor(h.listMyOrders))
	mux.HandleFunc("PATCH /api/orders/{orderID}/status", h.withActor(h.setStatus))
	mux.HandleFunc("PATCH /api/orders/{orderID}/cancel", h.withActor(h.cancelOrder))
	mux.HandleFunc("PATCH /api/orders/{orderID}/reactivate", h.withActor(h.reactivateOrder))

	mux.HandleFunc("GET /api/admin/orders", h.withActor(h.listAllOrders))
	mux.HandleFunc("GET /api/admin/revenue", h.withActor(h.revenueStats))

	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{productID}", h.getProduct)
	mux.HandleFunc("POST /api/products", h.createProduct)
	mux.HandleFunc("PUT /api/products/{productID}", h.updateProduct)
	mux.HandleFunc("DELETE /api/products/{productID}", h.deleteProduct)
}

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Code: status, Message: msg})
}

// writeInternalError logs the cause and hides it from the client.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
