package application

import (
	"context"

	"github.com/tiendago/checkout/internal/order/domain"
)

type OrderRepository interface {
	// Create persists the order, its items and the given event in one
	// transaction.
	Create(ctx context.Context, o domain.Order, eventType string, payload []byte) error
	Get(ctx context.Context, id string) (domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	Update(ctx context.Context, id string, patch domain.Patch) (domain.Order, error)
	SoftDelete(ctx context.Context, id string) error
	// MarkCompleted flips status to completed, appending the event only on
	// the pending->completed transition. Repeated calls succeed.
	MarkCompleted(ctx context.Context, id string, eventType string, payload []byte) (domain.Order, error)
}

type CatalogClient interface {
	// ProductPrice resolves the current unit price in minor units.
	ProductPrice(ctx context.Context, productID string) (int64, error)
}

type PaymentClient interface {
	CreatePending(ctx context.Context, orderID string, userID, amountCents int64) error
	CorrectAmount(ctx context.Context, orderID string, amountCents int64) error
}
