package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiendago/checkout/internal/faults"
	"github.com/tiendago/checkout/internal/order/application"
	"github.com/tiendago/checkout/internal/order/domain"
)

type memRepo struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

func newMemRepo() *memRepo {
	return &memRepo{orders: map[string]domain.Order{}}
}

func (m *memRepo) Create(_ context.Context, o domain.Order, _ string, _ []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.ID] = o
	return nil
}

func (m *memRepo) Get(_ context.Context, id string) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || !o.Active {
		return domain.Order{}, faults.NotFoundf("order %s not found", id)
	}
	return o, nil
}

func (m *memRepo) List(_ context.Context) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.Active {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memRepo) Update(_ context.Context, id string, patch domain.Patch) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || !o.Active {
		return domain.Order{}, faults.NotFoundf("order %s not found", id)
	}
	if patch.UserID != nil {
		o.UserID = *patch.UserID
	}
	if patch.TotalCents != nil {
		o.TotalCents = *patch.TotalCents
	}
	if patch.Status != nil {
		o.Status = *patch.Status
	}
	if patch.Active != nil {
		o.Active = *patch.Active
	}
	m.orders[id] = o
	return o, nil
}

func (m *memRepo) SoftDelete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || !o.Active {
		return faults.NotFoundf("order %s not found", id)
	}
	o.Active = false
	m.orders[id] = o
	return nil
}

func (m *memRepo) MarkCompleted(_ context.Context, id string, _ string, _ []byte) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok || !o.Active {
		return domain.Order{}, faults.NotFoundf("order %s not found", id)
	}
	o.Status = domain.StatusCompleted
	m.orders[id] = o
	return o, nil
}

func (m *memRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type stubCatalog struct {
	prices map[string]int64
}

func (s *stubCatalog) ProductPrice(_ context.Context, productID string) (int64, error) {
	price, ok := s.prices[productID]
	if !ok {
		return 0, faults.NotFoundf("product %s does not exist", productID)
	}
	return price, nil
}

type stubPayments struct {
	pending map[string]int64
}

func (s *stubPayments) CreatePending(_ context.Context, orderID string, _ int64, amountCents int64) error {
	if s.pending == nil {
		s.pending = map[string]int64{}
	}
	s.pending[orderID] = amountCents
	return nil
}

func (s *stubPayments) CorrectAmount(_ context.Context, orderID string, amountCents int64) error {
	s.pending[orderID] = amountCents
	return nil
}

func newTestHandler(repo *memRepo, cat *stubCatalog, pay *stubPayments) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := application.NewService(log, repo, cat, pay)
	return NewHandler(log, svc).Routes()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateOrderEndpoint(t *testing.T) {
	repo := newMemRepo()
	pay := &stubPayments{}
	h := newTestHandler(repo, &stubCatalog{prices: map[string]int64{"1": 1000}}, pay)

	rec := doJSON(t, h, http.MethodPost, "/orders", map[string]any{
		"user_id": 7,
		"items":   []map[string]any{{"product_id": "1", "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp orderResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(2000), resp.TotalAmount)
	assert.Equal(t, "pending", resp.Status)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, int64(1000), resp.Items[0].UnitPrice)
	assert.Equal(t, int64(2000), pay.pending[resp.ID])
}

func TestCreateOrderValidation(t *testing.T) {
	h := newTestHandler(newMemRepo(), &stubCatalog{}, &stubPayments{})

	rec := doJSON(t, h, http.MethodPost, "/orders", map[string]any{"user_id": 7, "items": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/orders", map[string]any{
		"user_id": 7,
		"items":   []map[string]any{{"product_id": "1", "quantity": 0}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	repo := newMemRepo()
	h := newTestHandler(repo, &stubCatalog{prices: map[string]int64{}}, &stubPayments{})

	rec := doJSON(t, h, http.MethodPost, "/orders", map[string]any{
		"user_id": 7,
		"items":   []map[string]any{{"product_id": "ghost", "quantity": 1}},
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ghost")
	assert.Zero(t, repo.count())
}

func TestCompleteOrderIdempotent(t *testing.T) {
	repo := newMemRepo()
	h := newTestHandler(repo, &stubCatalog{prices: map[string]int64{"1": 500}}, &stubPayments{})

	rec := doJSON(t, h, http.MethodPost, "/orders", map[string]any{
		"user_id": 7,
		"items":   []map[string]any{{"product_id": "1", "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created orderResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	for i := 0; i < 2; i++ {
		rec := doJSON(t, h, http.MethodPost, "/orders/"+created.ID+"/complete", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp orderResp
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "completed", resp.Status)
	}
}

func TestCompleteUnknownOrder(t *testing.T) {
	h := newTestHandler(newMemRepo(), &stubCatalog{}, &stubPayments{})
	rec := doJSON(t, h, http.MethodPost, "/orders/ghost/complete", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeletedOrderDisappears(t *testing.T) {
	repo := newMemRepo()
	h := newTestHandler(repo, &stubCatalog{prices: map[string]int64{"1": 500}}, &stubPayments{})

	rec := doJSON(t, h, http.MethodPost, "/orders", map[string]any{
		"user_id": 7,
		"items":   []map[string]any{{"product_id": "1", "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created orderResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, h, http.MethodDelete, "/orders/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/orders/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []orderResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list)
}

func TestUpdateOrderPartialFields(t *testing.T) {
	repo := newMemRepo()
	pay := &stubPayments{}
	h := newTestHandler(repo, &stubCatalog{prices: map[string]int64{"1": 500}}, pay)

	rec := doJSON(t, h, http.MethodPost, "/orders", map[string]any{
		"user_id": 7,
		"items":   []map[string]any{{"product_id": "1", "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created orderResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, h, http.MethodPatch, "/orders/"+created.ID, map[string]any{"total_amount": 900})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated orderResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, int64(900), updated.TotalAmount)
	assert.Equal(t, created.UserID, updated.UserID)
	// total change propagates to the payment side
	assert.Equal(t, int64(900), pay.pending[created.ID])
}
