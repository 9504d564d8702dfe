package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tiendago/checkout/internal/faults"
	"github.com/tiendago/checkout/internal/payment/domain"
)

type Service struct {
	log    *slog.Logger
	repo   PaymentRepository
	orders OrderNotifier
}

func NewService(log *slog.Logger, repo PaymentRepository, orders OrderNotifier) *Service {
	return &Service{log: log, repo: repo, orders: orders}
}

// CreatePending records a pending payment for an order. The order service
// is trusted here: no round trip back to re-check the order. A retried
// create for the same order returns the existing payment.
func (s *Service) CreatePending(ctx context.Context, orderID string, userID, amountCents int64, currency string) (domain.Payment, error) {
	p := domain.NewPending(uuid.NewString(), orderID, userID, amountCents, currency)

	payload, err := json.Marshal(domain.PaymentCreated{
		PaymentID:   p.ID,
		OrderID:     p.OrderID,
		UserID:      p.UserID,
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
	})
	if err != nil {
		return domain.Payment{}, err
	}
	return s.repo.Create(ctx, p, "PaymentCreated", payload)
}

// Complete moves a payment to completed. The reported amount must cover the
// stored pending amount; the stored amount is raised to the reported one,
// never lowered. The completion commits locally before the order side is
// notified, and a notification failure does not revert it.
func (s *Service) Complete(ctx context.Context, id string, reportedCents int64, method string) (domain.Payment, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Payment{}, err
	}
	if p.Status == domain.StatusCompleted {
		// Nothing to transition; completion is final.
		return p, nil
	}
	if reportedCents < p.AmountCents {
		return domain.Payment{}, faults.InvalidInputf(
			"reported amount %d is below the pending amount %d", reportedCents, p.AmountCents)
	}

	payload, err := json.Marshal(domain.PaymentCompleted{
		PaymentID:   p.ID,
		OrderID:     p.OrderID,
		AmountCents: reportedCents,
		Method:      method,
	})
	if err != nil {
		return domain.Payment{}, err
	}

	updated, transitioned, err := s.repo.Complete(ctx, id, reportedCents, method, time.Now().UTC(), "PaymentCompleted", payload)
	if err != nil {
		return domain.Payment{}, err
	}
	if !transitioned {
		// Lost a race: someone else completed it, possibly with a higher
		// amount this call no longer covers.
		if updated.Status == domain.StatusCompleted {
			return updated, nil
		}
		return domain.Payment{}, faults.InvalidInputf(
			"reported amount %d is below the pending amount %d", reportedCents, updated.AmountCents)
	}

	if err := s.orders.NotifyCompleted(ctx, updated.OrderID); err != nil {
		s.log.Warn("order completion notification failed, payment stays completed",
			"payment_id", updated.ID, "order_id", updated.OrderID, "err", err)
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Payment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]domain.Payment, error) {
	return s.repo.List(ctx)
}

// CorrectAmountByOrder overwrites the stored amount of the order's payment,
// bypassing the completion amount check. Used when an order's contents
// change after the payment was created.
func (s *Service) CorrectAmountByOrder(ctx context.Context, orderID string, amountCents int64) (domain.Payment, error) {
	if amountCents < 0 {
		return domain.Payment{}, faults.InvalidInputf("amount must not be negative")
	}
	return s.repo.OverwriteAmountByOrder(ctx, orderID, amountCents)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.SoftDelete(ctx, id)
}
