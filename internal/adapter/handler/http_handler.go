package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mh2301/shop-core/internal/core/domain"
	"github.com/mh2301/shop-core/internal/core/service"
)

// Pinger reports reachability of a backing store for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HTTPHandler struct {
	inventory *service.InventoryService
	carts     *service.CartService
	orders    *service.OrderService
	db        Pinger
	cache     Pinger
	logger    *zap.Logger
}

func NewHTTPHandler(inventory *service.InventoryService, carts *service.CartService, orders *service.OrderService,
	db, cache Pinger, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{
		inventory: inventory,
		carts:     carts,
		orders:    orders,
		db:        db,
		cache:     cache,
		logger:    logger,
	}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("POST /api/inventory/adjust", h.AdjustInventory)
	mux.HandleFunc("POST /api/inventory/batch-adjust", h.BatchAdjustInventory)
	mux.HandleFunc("GET /api/inventory/{productID}", h.InventoryStatus)
	mux.HandleFunc("GET /api/inventory/{productID}/audit", h.AuditHistory)

	mux.HandleFunc("GET /api/cart/{cartID}", h.GetCart)
	mux.HandleFunc("DELETE /api/cart/{cartID}", h.ClearCart)
	mux.HandleFunc("POST /api/cart/{cartID}/items", h.AddCartItem)
	mux.HandleFunc("PUT /api/cart/{cartID}/items/{productID}", h.UpdateCartItem)
	mux.HandleFunc("DELETE /api/cart/{cartID}/items/{productID}", h.RemoveCartItem)

	mux.HandleFunc("POST /api/checkout", h.Checkout)
	mux.HandleFunc("GET /api/orders", h.ListOrders)
	mux.HandleFunc("GET /api/orders/{orderID}", h.GetOrder)
	mux.HandleFunc("POST /api/orders/{orderID}/complete", h.CompleteOrder)
	mux.HandleFunc("POST /api/orders/{orderID}/cancel", h.CancelOrder)
}

type adjustRequest struct {
	ProductID string `json:"product_id"`
	Delta     int    `json:"delta"`
	Reason    string `json:"reason"`
}

type batchAdjustRequest struct {
	Items []adjustRequest `json:"items"`
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type checkoutRequest struct {
	UserID          string                `json:"user_id"`
	ShippingAddress string                `json:"shipping_address"`
	Payment         domain.PaymentOutcome `json:"payment"`
}

type userRequest struct {
	UserID string `json:"user_id"`
}

func (h *HTTPHandler) AdjustInventory(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if !h.decode(w, r, &req) {
		return
	}

	adj, err := h.inventory.Adjust(r.Context(), req.ProductID, req.Delta, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, adj)
}

func (h *HTTPHandler) BatchAdjustInventory(w http.ResponseWriter, r *http.Request) {
	var req batchAdjustRequest
	if !h.decode(w, r, &req) {
		return
	}

	items := make([]domain.AdjustmentRequest, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.AdjustmentRequest{
			ProductID: it.ProductID,
			Delta:     it.Delta,
			Reason:    it.Reason,
		})
	}

	results, err := h.inventory.BatchAdjust(r.Context(), items)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *HTTPHandler) InventoryStatus(w http.ResponseWriter, r *http.Request) {
	level, err := h.inventory.Status(r.Context(), r.PathValue("productID"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, level)
}

func (h *HTTPHandler) AuditHistory(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)

	entries, err := h.inventory.AuditHistory(r.Context(), r.PathValue("productID"), limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.GetCart(r.Context(), r.PathValue("cartID"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, cart)
}

func (h *HTTPHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	cart, err := h.carts.AddItem(r.Context(), r.PathValue("cartID"), req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, cart)
}

func (h *HTTPHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	cart, err := h.carts.UpdateItemQuantity(r.Context(), r.PathValue("cartID"), r.PathValue("productID"), req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, cart)
}

func (h *HTTPHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.RemoveItem(r.Context(), r.PathValue("cartID"), r.PathValue("productID"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, cart)
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.Clear(r.Context(), r.PathValue("cartID")); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}

	order, err := h.orders.Checkout(r.Context(), service.CheckoutRequest{
		UserID:          req.UserID,
		ShippingAddress: req.ShippingAddress,
		Payment:         req.Payment,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, order)
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}
	limit, offset := pageParams(r)

	orders, err := h.orders.ListOrders(r.Context(), userID, limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), r.PathValue("orderID"), r.URL.Query().Get("user_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *HTTPHandler) CompleteOrder(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.orders.CompleteOrder(r.Context(), r.PathValue("orderID"), req.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *HTTPHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.orders.CancelOrder(r.Context(), r.PathValue("orderID"), req.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

// Health reports the primary store as mandatory and the cache as optional:
// losing Redis degrades the service, it does not take it down.
func (h *HTTPHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Error("database unreachable", zap.Error(err))
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}

	if err := h.cache.Ping(r.Context()); err != nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "degraded", "cache": "unavailable"})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

// writeError maps domain errors onto the external contract. Anything outside
// the taxonomy is an infrastructure failure: redacted body, full detail in
// the server log only.
func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrCartEmpty),
		errors.Is(err, domain.ErrPaymentFailed),
		errors.Is(err, domain.ErrConflict):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrUnauthorized):
		h.writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("write response", zap.Error(err))
	}
}

func pageParams(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}
