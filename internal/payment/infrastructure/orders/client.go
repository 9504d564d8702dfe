// Package orders notifies the order service that its order was paid. The
// call is best effort: the payment is already committed when it fires, and
// the caller only logs a failure.
package orders

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/tiendago/checkout/internal/faults"
)

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

func (c *Client) NotifyCompleted(ctx context.Context, orderID string) error {
	url := fmt.Sprintf("%s/orders/%s/complete", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return faults.Internal("build order notification", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return faults.Unavailable("order service unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return faults.NotFoundf("order %s not found", orderID)
	default:
		return faults.Upstream(resp.StatusCode, fmt.Sprintf("order service returned %d", resp.StatusCode))
	}
}
