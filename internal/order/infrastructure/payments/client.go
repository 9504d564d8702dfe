// Package payments calls the payment service's creation and
// amount-correction endpoints. Both calls are best effort from the order
// workflow's point of view: the caller logs failures and moves on.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tiendago/checkout/internal/faults"
)

const defaultCurrency = "COP"

type Client struct {
	http    *http.Client
	baseURL string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type createPaymentRequest struct {
	OrderID  string  `json:"order_id"`
	UserID   int64   `json:"user_id"`
	Amount   int64   `json:"amount"`
	Currency string  `json:"currency"`
	Status   string  `json:"status"`
	Method   *string `json:"method"`
}

func (c *Client) CreatePending(ctx context.Context, orderID string, userID, amountCents int64) error {
	body := createPaymentRequest{
		OrderID:  orderID,
		UserID:   userID,
		Amount:   amountCents,
		Currency: defaultCurrency,
		Status:   "pending",
	}
	return c.do(ctx, http.MethodPost, c.baseURL+"/payments", body)
}

type correctAmountRequest struct {
	Amount int64 `json:"amount"`
}

func (c *Client) CorrectAmount(ctx context.Context, orderID string, amountCents int64) error {
	url := fmt.Sprintf("%s/payments/by-order/%s", c.baseURL, orderID)
	return c.do(ctx, http.MethodPut, url, correctAmountRequest{Amount: amountCents})
}

func (c *Client) do(ctx context.Context, method, url string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return faults.Internal("encode payment request", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(raw))
	if err != nil {
		return faults.Internal("build payment request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return faults.Unavailable("payment service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return faults.Upstream(resp.StatusCode, fmt.Sprintf("payment service returned %d", resp.StatusCode))
	}
	return nil
}
