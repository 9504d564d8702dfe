package domain

type OrderCreated struct {
	OrderID    string      `json:"order_id"`
	UserID     int64       `json:"user_id"`
	TotalCents int64       `json:"total_cents"`
	Items      []ItemLine  `json:"items"`
	Status     OrderStatus `json:"status"`
}

type ItemLine struct {
	ProductID      string `json:"product_id"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price"`
}

type OrderCompleted struct {
	OrderID string `json:"order_id"`
}
