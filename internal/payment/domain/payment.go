package domain

import "time"

type PaymentStatus string

// A payment only moves pending -> completed. A rejected completion attempt
// leaves it pending; there is no failed or cancelled state.
const (
	StatusPending   PaymentStatus = "pending"
	StatusCompleted PaymentStatus = "completed"
)

const DefaultCurrency = "COP"

type Payment struct {
	ID          string
	OrderID     string
	UserID      int64
	AmountCents int64
	Currency    string
	Status      PaymentStatus
	Method      *string
	PaidAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Active      bool
}

func NewPending(id, orderID string, userID, amountCents int64, currency string) Payment {
	if currency == "" {
		currency = DefaultCurrency
	}
	now := time.Now().UTC()
	return Payment{
		ID:          id,
		OrderID:     orderID,
		UserID:      userID,
		AmountCents: amountCents,
		Currency:    currency,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		Active:      true,
	}
}
