package application

import (
	"context"
	"time"

	"github.com/tiendago/checkout/internal/payment/domain"
)

type PaymentRepository interface {
	// Create persists a pending payment and its event in one transaction.
	// If an active payment already exists for the order, that one is
	// returned instead and no event is appended.
	Create(ctx context.Context, p domain.Payment, eventType string, payload []byte) (domain.Payment, error)
	Get(ctx context.Context, id string) (domain.Payment, error)
	GetByOrderID(ctx context.Context, orderID string) (domain.Payment, error)
	List(ctx context.Context) ([]domain.Payment, error)
	// Complete performs the pending->completed transition as a single
	// conditional update: it only applies while the payment is pending and
	// the stored amount does not exceed amountCents. The bool reports
	// whether this call made the transition.
	Complete(ctx context.Context, id string, amountCents int64, method string, paidAt time.Time, eventType string, payload []byte) (domain.Payment, bool, error)
	// OverwriteAmountByOrder sets the stored amount directly, skipping the
	// completion amount check. Administrative correction only.
	OverwriteAmountByOrder(ctx context.Context, orderID string, amountCents int64) (domain.Payment, error)
	SoftDelete(ctx context.Context, id string) error
}

type OrderNotifier interface {
	// NotifyCompleted tells the order service its order is paid.
	NotifyCompleted(ctx context.Context, orderID string) error
}
