package application

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/tiendago/checkout/internal/order/domain"
)

type ItemRequest struct {
	ProductID string
	Quantity  int
}

type Service struct {
	log      *slog.Logger
	repo     OrderRepository
	catalog  CatalogClient
	payments PaymentClient
}

func NewService(log *slog.Logger, repo OrderRepository, catalog CatalogClient, payments PaymentClient) *Service {
	return &Service{log: log, repo: repo, catalog: catalog, payments: payments}
}

// CreateOrder resolves each item's price against the catalog, persists the
// order with its items, then asks the payment service for a pending payment.
// Any catalog failure aborts before anything is written; a payment-side
// failure after the local commit is logged and swallowed; the order stands.
func (s *Service) CreateOrder(ctx context.Context, userID int64, reqs []ItemRequest) (domain.Order, error) {
	orderID := uuid.NewString()

	items := make([]domain.OrderItem, 0, len(reqs))
	for _, req := range reqs {
		price, err := s.catalog.ProductPrice(ctx, req.ProductID)
		if err != nil {
			return domain.Order{}, err
		}
		items = append(items, domain.OrderItem{
			ID:             uuid.NewString(),
			OrderID:        orderID,
			ProductID:      req.ProductID,
			Quantity:       req.Quantity,
			UnitPriceCents: price,
		})
	}

	o := domain.NewOrder(orderID, userID, items)

	payload, err := json.Marshal(createdEvent(o))
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.repo.Create(ctx, o, "OrderCreated", payload); err != nil {
		return domain.Order{}, err
	}

	if err := s.payments.CreatePending(ctx, o.ID, o.UserID, o.TotalCents); err != nil {
		s.log.Warn("pending payment creation failed, order stands without it",
			"order_id", o.ID, "err", err)
	}
	return o, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.repo.List(ctx)
}

// UpdateOrder applies the provided fields only. It neither re-validates
// items nor recomputes the total; when the caller changes the total it
// nudges the payment side to follow, best effort.
func (s *Service) UpdateOrder(ctx context.Context, id string, patch domain.Patch) (domain.Order, error) {
	o, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return domain.Order{}, err
	}
	if patch.TotalCents != nil {
		if err := s.payments.CorrectAmount(ctx, o.ID, *patch.TotalCents); err != nil {
			s.log.Warn("payment amount correction failed", "order_id", o.ID, "err", err)
		}
	}
	return o, nil
}

func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	return s.repo.SoftDelete(ctx, id)
}

// MarkCompleted is the inbound completion notification from the payment
// service. Idempotent: a second call finds the order already completed and
// succeeds.
func (s *Service) MarkCompleted(ctx context.Context, id string) (domain.Order, error) {
	payload, err := json.Marshal(domain.OrderCompleted{OrderID: id})
	if err != nil {
		return domain.Order{}, err
	}
	return s.repo.MarkCompleted(ctx, id, "OrderCompleted", payload)
}

func createdEvent(o domain.Order) domain.OrderCreated {
	lines := make([]domain.ItemLine, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, domain.ItemLine{
			ProductID:      it.ProductID,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		})
	}
	return domain.OrderCreated{
		OrderID:    o.ID,
		UserID:     o.UserID,
		TotalCents: o.TotalCents,
		Items:      lines,
		Status:     o.Status,
	}
}
