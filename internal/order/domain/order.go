package domain

import "time"

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusCompleted OrderStatus = "completed"
)

// Order is a user's request for priced items. The total is fixed at
// creation from the unit prices captured on each item; later catalog price
// changes never touch it.
type Order struct {
	ID         string
	UserID     int64
	Items      []OrderItem
	TotalCents int64
	Status     OrderStatus
	CreatedAt  time.Time
	Active     bool
}

// OrderItem is one line of an order. UnitPriceCents is the catalog price at
// order time and is immutable afterwards.
type OrderItem struct {
	ID             string
	OrderID        string
	ProductID      string
	Quantity       int
	UnitPriceCents int64
}

func (i OrderItem) SubtotalCents() int64 {
	return int64(i.Quantity) * i.UnitPriceCents
}

func NewOrder(id string, userID int64, items []OrderItem) Order {
	var total int64
	for _, item := range items {
		total += item.SubtotalCents()
	}
	return Order{
		ID:         id,
		UserID:     userID,
		Items:      items,
		TotalCents: total,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
		Active:     true,
	}
}

// Patch carries a partial update; nil fields are left untouched.
type Patch struct {
	UserID     *int64
	TotalCents *int64
	Status     *OrderStatus
	Active     *bool
}

func (p Patch) Empty() bool {
	return p.UserID == nil && p.TotalCents == nil && p.Status == nil && p.Active == nil
}
