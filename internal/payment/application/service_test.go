package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tiendago/checkout/internal/faults"
	"github.com/tiendago/checkout/internal/payment/domain"
)

type mockRepo struct {
	createFn       func(ctx context.Context, p domain.Payment, eventType string, payload []byte) (domain.Payment, error)
	getFn          func(ctx context.Context, id string) (domain.Payment, error)
	getByOrderFn   func(ctx context.Context, orderID string) (domain.Payment, error)
	listFn         func(ctx context.Context) ([]domain.Payment, error)
	completeFn     func(ctx context.Context, id string, amountCents int64, method string, paidAt time.Time, eventType string, payload []byte) (domain.Payment, bool, error)
	overwriteFn    func(ctx context.Context, orderID string, amountCents int64) (domain.Payment, error)
	softDeleteFn   func(ctx context.Context, id string) error
}

func (m *mockRepo) Create(ctx context.Context, p domain.Payment, eventType string, payload []byte) (domain.Payment, error) {
	return m.createFn(ctx, p, eventType, payload)
}
func (m *mockRepo) Get(ctx context.Context, id string) (domain.Payment, error) {
	return m.getFn(ctx, id)
}
func (m *mockRepo) GetByOrderID(ctx context.Context, orderID string) (domain.Payment, error) {
	return m.getByOrderFn(ctx, orderID)
}
func (m *mockRepo) List(ctx context.Context) ([]domain.Payment, error) { return m.listFn(ctx) }
func (m *mockRepo) Complete(ctx context.Context, id string, amountCents int64, method string, paidAt time.Time, eventType string, payload []byte) (domain.Payment, bool, error) {
	return m.completeFn(ctx, id, amountCents, method, paidAt, eventType, payload)
}
func (m *mockRepo) OverwriteAmountByOrder(ctx context.Context, orderID string, amountCents int64) (domain.Payment, error) {
	return m.overwriteFn(ctx, orderID, amountCents)
}
func (m *mockRepo) SoftDelete(ctx context.Context, id string) error { return m.softDeleteFn(ctx, id) }

type mockNotifier struct {
	notifyFn func(ctx context.Context, orderID string) error
}

func (m *mockNotifier) NotifyCompleted(ctx context.Context, orderID string) error {
	return m.notifyFn(ctx, orderID)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pendingPayment(id string, amount int64) domain.Payment {
	return domain.Payment{
		ID:          id,
		OrderID:     "order-1",
		UserID:      7,
		AmountCents: amount,
		Currency:    domain.DefaultCurrency,
		Status:      domain.StatusPending,
		Active:      true,
	}
}

func TestCreatePendingDefaultsCurrency(t *testing.T) {
	repo := &mockRepo{
		createFn: func(ctx context.Context, p domain.Payment, eventType string, payload []byte) (domain.Payment, error) {
			return p, nil
		},
	}
	svc := NewService(testLogger(), repo, &mockNotifier{})
	p, err := svc.CreatePending(context.Background(), "order-1", 7, 2000, "")

	assert.NoError(t, err)
	assert.Equal(t, "COP", p.Currency)
	assert.Equal(t, domain.StatusPending, p.Status)
	assert.Nil(t, p.PaidAt)
	assert.NotEmpty(t, p.ID)
}

func TestCompleteBelowPendingAmountRejected(t *testing.T) {
	casCalled := false
	repo := &mockRepo{
		getFn: func(ctx context.Context, id string) (domain.Payment, error) {
			return pendingPayment(id, 2000), nil
		},
		completeFn: func(ctx context.Context, id string, amountCents int64, method string, paidAt time.Time, eventType string, payload []byte) (domain.Payment, bool, error) {
			casCalled = true
			return domain.Payment{}, false, nil
		},
	}
	svc := NewService(testLogger(), repo, &mockNotifier{})
	_, err := svc.Complete(context.Background(), "p1", 1999, "credit_card")

	assert.Equal(t, faults.KindInvalidInput, faults.KindOf(err))
	assert.False(t, casCalled)
}

func TestCompleteStoresReportedAmountAndNotifies(t *testing.T) {
	var notified string
	repo := &mockRepo{
		getFn: func(ctx context.Context, id string) (domain.Payment, error) {
			return pendingPayment(id, 2000), nil
		},
		completeFn: func(ctx context.Context, id string, amountCents int64, method string, paidAt time.Time, eventType string, payload []byte) (domain.Payment, bool, error) {
			p := pendingPayment(id, amountCents)
			p.Status = domain.StatusCompleted
			p.Method = &method
			p.PaidAt = &paidAt
			return p, true, nil
		},
	}
	notifier := &mockNotifier{
		notifyFn: func(ctx context.Context, orderID string) error {
			notified = orderID
			return nil
		},
	}
	svc := NewService(testLogger(), repo, notifier)
	p, err := svc.Complete(context.Background(), "p1", 2500, "credit_card")

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, p.Status)
	assert.Equal(t, int64(2500), p.AmountCents)
	assert.NotNil(t, p.PaidAt)
	assert.Equal(t, "order-1", notified)
}

func TestCompleteNotifyFailureStillSucceeds(t *testing.T) {
	repo := &mockRepo{
		getFn: func(ctx context.Context, id string) (domain.Payment, error) {
			return pendingPayment(id, 2000), nil
		},
		completeFn: func(ctx context.Context, id string, amountCents int64, method string, paidAt time.Time, eventType string, payload []byte) (domain.Payment, bool, error) {
			p := pendingPayment(id, amountCents)
			p.Status = domain.StatusCompleted
			return p, true, nil
		},
	}
	notifier := &mockNotifier{
		notifyFn: func(ctx context.Context, orderID string) error {
			return faults.Unavailable("order service unreachable", errors.New("connection refused"))
		},
	}
	svc := NewService(testLogger(), repo, notifier)
	p, err := svc.Complete(context.Background(), "p1", 2000, "credit_card")

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, p.Status)
}

func TestCompleteNotFound(t *testing.T) {
	repo := &mockRepo{
		getFn: func(ctx context.Context, id string) (domain.Payment, error) {
			return domain.Payment{}, faults.NotFoundf("payment %s not found", id)
		},
	}
	svc := NewService(testLogger(), repo, &mockNotifier{})
	_, err := svc.Complete(context.Background(), "missing", 1000, "cash")
	assert.Equal(t, faults.KindNotFound, faults.KindOf(err))
}

func TestCompleteAlreadyCompletedIsIdempotent(t *testing.T) {
	notifyCalls := 0
	repo := &mockRepo{
		getFn: func(ctx context.Context, id string) (domain.Payment, error) {
			p := pendingPayment(id, 2000)
			p.Status = domain.StatusCompleted
			return p, nil
		},
	}
	notifier := &mockNotifier{
		notifyFn: func(ctx context.Context, orderID string) error {
			notifyCalls++
			return nil
		},
	}
	svc := NewService(testLogger(), repo, notifier)
	p, err := svc.Complete(context.Background(), "p1", 2000, "cash")

	assert.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, p.Status)
	assert.Zero(t, notifyCalls)
}

func TestCompleteLostRaceToHigherAmount(t *testing.T) {
	repo := &mockRepo{
		getFn: func(ctx context.Context, id string) (domain.Payment, error) {
			return pendingPayment(id, 2000), nil
		},
		completeFn: func(ctx context.Context, id string, amountCents int64, method string, paidAt time.Time, eventType string, payload []byte) (domain.Payment, bool, error) {
			// Amount was raised concurrently past what this call reported.
			return pendingPayment(id, 3000), false, nil
		},
	}
	svc := NewService(testLogger(), repo, &mockNotifier{})
	_, err := svc.Complete(context.Background(), "p1", 2000, "cash")
	assert.Equal(t, faults.KindInvalidInput, faults.KindOf(err))
}

func TestCorrectAmountByOrderBypassesAmountCheck(t *testing.T) {
	repo := &mockRepo{
		overwriteFn: func(ctx context.Context, orderID string, amountCents int64) (domain.Payment, error) {
			p := pendingPayment("p1", amountCents)
			p.OrderID = orderID
			return p, nil
		},
	}
	svc := NewService(testLogger(), repo, &mockNotifier{})
	p, err := svc.CorrectAmountByOrder(context.Background(), "order-1", 500)

	assert.NoError(t, err)
	assert.Equal(t, int64(500), p.AmountCents)
	assert.Equal(t, domain.StatusPending, p.Status)
}

func TestCorrectAmountRejectsNegative(t *testing.T) {
	svc := NewService(testLogger(), &mockRepo{}, &mockNotifier{})
	_, err := svc.CorrectAmountByOrder(context.Background(), "order-1", -1)
	assert.Equal(t, faults.KindInvalidInput, faults.KindOf(err))
}
