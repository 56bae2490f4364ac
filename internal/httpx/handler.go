// Package httpx exposes the order command operations over HTTP. It is a
// thin driver: decode, call the service, map domain errors to status codes.
// Business rules live in the aggregate, never here.
package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mjurado/orderpipe/internal/mailer"
	"github.com/mjurado/orderpipe/internal/order/app"
	"github.com/mjurado/orderpipe/internal/order/domain"
	"github.com/mjurado/orderpipe/internal/order/ports"
	"github.com/mjurado/orderpipe/internal/pricing"
)

// Handler handles the order command endpoints.
type Handler struct {
	service *app.Service
	queue   *mailer.Queue // health endpoint reports its depth
}

func NewHandler(service *app.Service, queue *mailer.Queue) *Handler {
	return &Handler{service: service, queue: queue}
}

// CreateOrder creates a PENDING order with optionally some initial lines.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.CustomerID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "customer_id is required")
		return
	}

	date := time.Now().UTC()
	if req.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", req.Date, time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}

	lines := make([]app.NewLine, 0, len(req.Items))
	for _, it := range req.Items {
		if it.ProductID == "" {
			writeError(w, http.StatusBadRequest, "invalid_item", "product_id is required")
			return
		}
		lines = append(lines, app.NewLine{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	order, err := h.service.CreateOrder(r.Context(), req.CustomerID, date, lines)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapOrder(order))
}

// GetOrder returns one order with its items and recomputed total.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(order))
}

// AddItem adds (or merges) one line on a PENDING order.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	var req OrderItemInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "invalid_item", "product_id is required")
		return
	}

	order, err := h.service.AddItem(r.Context(), id, req.ProductID, req.Quantity)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(order))
}

// RemoveItem removes one line from a PENDING order. Removing a line that is
// already gone succeeds (no-op).
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	lineID, err := strconv.ParseInt(chi.URLParam(r, "lineID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_line_id", "")
		return
	}

	order, err := h.service.RemoveItem(r.Context(), id, lineID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(order))
}

// ConfirmOrder transitions the order to CONFIRMED. The confirmation email
// and the reporting facts happen behind this call; their outcome is not
// part of the response.
func (h *Handler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	order, err := h.service.Confirm(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(order))
}

// CancelOrder moves the order to CANCELLED.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}
	order, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(order))
}

// Health reports liveness plus the mail queue depth.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:         "ok",
		MailQueueDepth: h.queue.Len(),
	})
}

func orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_order_id", "")
		return 0, false
	}
	return id, true
}

// writeDomainError translates the error taxonomy into status codes:
// not-found conditions → 404, state/concurrency conflicts → 409,
// validation → 422, everything else → 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order_not_found", "order not found")
	case errors.Is(err, domain.ErrCustomerNotFound):
		writeError(w, http.StatusNotFound, "customer_not_found", "customer not found")
	case errors.Is(err, pricing.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "product_not_found", "product not found")
	case errors.Is(err, domain.ErrInvalidState):
		writeError(w, http.StatusConflict, "invalid_state", "order is not in a modifiable state")
	case errors.Is(err, ports.ErrVersionConflict):
		writeError(w, http.StatusConflict, "concurrent_update", "order was modified concurrently, retry")
	case errors.Is(err, domain.ErrInvalidQuantity):
		writeError(w, http.StatusUnprocessableEntity, "invalid_quantity", "quantity must be positive")
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
	}
}

func mapOrder(o *domain.Order) OrderResponse {
	items := o.Items()
	out := make([]OrderItemResponse, len(items))
	for i, it := range items {
		out[i] = OrderItemResponse{
			LineID:      it.LineID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal(),
		}
	}
	return OrderResponse{
		ID:         o.ID,
		Number:     o.Number,
		CustomerID: o.CustomerID,
		Date:       o.Date.Format("2006-01-02"),
		Status:     string(o.Status),
		Total:      o.TotalAmount(),
		Items:      out,
		CreatedAt:  o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  o.UpdatedAt.Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}
