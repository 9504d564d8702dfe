package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tiendago/checkout/internal/faults"
)

func TestCreatePendingSendsContract(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	err := c.CreatePending(context.Background(), "order-1", 7, 2000)

	assert.NoError(t, err)
	assert.Equal(t, "order-1", got["order_id"])
	assert.Equal(t, float64(7), got["user_id"])
	assert.Equal(t, float64(2000), got["amount"])
	assert.Equal(t, "COP", got["currency"])
	assert.Equal(t, "pending", got["status"])
	assert.Nil(t, got["method"])
}

func TestCorrectAmountPath(t *testing.T) {
	var path string
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, http.MethodPut, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	err := c.CorrectAmount(context.Background(), "order-1", 4200)

	assert.NoError(t, err)
	assert.Equal(t, "/payments/by-order/order-1", path)
	assert.Equal(t, float64(4200), got["amount"])
}

func TestCreatePendingUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	err := c.CreatePending(context.Background(), "order-1", 7, 2000)

	assert.Equal(t, faults.KindUpstreamError, faults.KindOf(err))
}
