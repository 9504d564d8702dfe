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
	"github.com/tiendago/checkout/internal/payment/application"
	"github.com/tiendago/checkout/internal/payment/domain"
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
		tracer:   otel.Tracer("payment-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", h.health)
	r.Post("/payments", h.createPayment)
	r.Get("/payments", h.listPayments)
	r.Get("/payments/{id}", h.getPayment)
	r.Post("/payments/{id}/complete", h.completePayment)
	r.Put("/payments/by-order/{orderID}", h.correctAmount)
	r.Delete("/payments/{id}", h.deletePayment)
	return r
}

type createPaymentReq struct {
	OrderID  string `json:"order_id" validate:"required"`
	UserID   int64  `json:"user_id" validate:"required"`
	Amount   int64  `json:"amount" validate:"min=0"`
	Currency string `json:"currency"`
}

type completePaymentReq struct {
	Amount int64  `json:"amount" validate:"min=0"`
	Method string `json:"method" validate:"required"`
}

type correctAmountReq struct {
	// Pointer so an absent amount is rejected instead of read as zero.
	Amount *int64 `json:"amount" validate:"required,min=0"`
}

type paymentResp struct {
	ID        string     `json:"id"`
	OrderID   string     `json:"order_id"`
	UserID    int64      `json:"user_id"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	Status    string     `json:"status"`
	Method    *string    `json:"method"`
	PaidAt    *time.Time `json:"paid_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Active    bool       `json:"active"`
}

func toPaymentResp(p domain.Payment) paymentResp {
	return paymentResp{
		ID:        p.ID,
		OrderID:   p.OrderID,
		UserID:    p.UserID,
		Amount:    p.AmountCents,
		Currency:  p.Currency,
		Status:    string(p.Status),
		Method:    p.Method,
		PaidAt:    p.PaidAt,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
		Active:    p.Active,
	}
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreatePayment")
	defer span.End()

	var req createPaymentReq
	if !h.bind(w, r, &req) {
		return
	}

	p, err := h.service.CreatePending(ctx, req.OrderID, req.UserID, req.Amount, req.Currency)
	if err != nil {
		h.respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toPaymentResp(p))
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.service.List(r.Context())
	if err != nil {
		h.respondFault(w, err)
		return
	}
	out := make([]paymentResp, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResp(p))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *Handler) getPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toPaymentResp(p))
}

func (h *Handler) completePayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CompletePayment")
	defer span.End()

	var req completePaymentReq
	if !h.bind(w, r, &req) {
		return
	}

	p, err := h.service.Complete(ctx, chi.URLParam(r, "id"), req.Amount, req.Method)
	if err != nil {
		h.respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toPaymentResp(p))
}

func (h *Handler) correctAmount(w http.ResponseWriter, r *http.Request) {
	var req correctAmountReq
	if !h.bind(w, r, &req) {
		return
	}

	p, err := h.service.CorrectAmountByOrder(r.Context(), chi.URLParam(r, "orderID"), *req.Amount)
	if err != nil {
		h.respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toPaymentResp(p))
}

func (h *Handler) deletePayment(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "payment deleted"})
}

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
