package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/tiendago/checkout/internal/faults"
	"github.com/tiendago/checkout/internal/order/application"
	"github.com/tiendago/checkout/internal/order/domain"
)

type Handler struct {
	log      *slog.Logger
	service  *application.Service
	validate *validator.Validate
	tracer   trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
		tracer:   otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", h.health)
	r.Post("/orders", h.createOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Patch("/orders/{id}", h.updateOrder)
	r.Delete("/orders/{id}", h.deleteOrder)
	r.Post("/orders/{id}/complete", h.completeOrder)
	return r
}

type createItemReq struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type createOrderReq struct {
	UserID int64           `json:"user_id" validate:"required"`
	Items  []createItemReq `json:"items" validate:"required,min=1,dive"`
}

type updateOrderReq struct {
	UserID      *int64  `json:"user_id"`
	TotalAmount *int64  `json:"total_amount"`
	Status      *string `json:"status" validate:"omitempty,oneof=pending completed"`
	Active      *bool   `json:"active"`
}

type itemResp struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type orderResp struct {
	ID          string     `json:"id"`
	UserID      int64      `json:"user_id"`
	Items       []itemResp `json:"items"`
	TotalAmount int64      `json:"total_amount"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	Active      bool       `json:"active"`
}

func toOrderResp(o domain.Order) orderResp {
	items := make([]itemResp, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, itemResp{
			ID:        it.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPriceCents,
		})
	}
	return orderResp{
		ID:          o.ID,
		UserID:      o.UserID,
		Items:       items,
		TotalAmount: o.TotalCents,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		Active:      o.Active,
	}
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderReq
	if !h.bind(w, r, &req) {
		return
	}

	items := make([]application.ItemRequest, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, application.ItemRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	o, err := h.service.CreateOrder(ctx, req.UserID, items)
	if err != nil {
		h.respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderResp(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		h.respondFault(w, err)
		return
	}
	out := make([]orderResp, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResp(o))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResp(o))
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderReq
	if !h.bind(w, r, &req) {
		return
	}

	patch := domain.Patch{
		UserID:     req.UserID,
		TotalCents: req.TotalAmount,
		Active:     req.Active,
	}
	if req.Status != nil {
		st := domain.OrderStatus(*req.Status)
		patch.Status = &st
	}

	o, err := h.service.UpdateOrder(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResp(o))
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "order deleted"})
}

// completeOrder is the inbound notification from the payment service.
func (h *Handler) completeOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompleteOrder")
	defer span.End()

	o, err := h.service.MarkCompleted(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResp(o))
}

// bind decodes and validates the body, writing the 400 itself on failure.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	if err := h.validate.Struct(out); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validationFields(err),
		})
		return false
	}
	return true
}

func validationFields(err error) map[string]string {
	out := map[string]string{}
	if ve, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range ve {
			out[fe.StructNamespace()] = fe.Tag()
		}
	} else {
		out["error"] = err.Error()
	}
	return out
}

func (h *Handler) respondFault(w http.ResponseWriter, err error) {
	status := faults.HTTPStatus(err)
	if status >= 500 {
		h.log.Error("request failed", "status", status, "err", err)
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
