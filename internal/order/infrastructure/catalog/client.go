// Package catalog is the read-only price lookup against the product
// service. It only distinguishes what the workflow needs: the product does
// not exist, the catalog is unreachable, or the catalog itself failed.
package catalog

import (
	"context"
	"encoding/json"
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

type productResponse struct {
	ID string `json:"id"`
	// Price is in minor currency units, as the catalog stores it.
	Price int64 `json:"price"`
}

func (c *Client) ProductPrice(ctx context.Context, productID string) (int64, error) {
	url := fmt.Sprintf("%s/products/%s", c.baseURL, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, faults.Internal("build catalog request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, faults.Unavailable("catalog unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return 0, faults.NotFoundf("product %s does not exist", productID)
	default:
		return 0, faults.Upstream(resp.StatusCode, fmt.Sprintf("catalog returned %d for product %s", resp.StatusCode, productID))
	}

	var p productResponse
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return 0, faults.Upstream(resp.StatusCode, fmt.Sprintf("catalog sent an unreadable body for product %s", productID))
	}
	return p.Price, nil
}
