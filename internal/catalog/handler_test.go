package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(store Store) http.Handler {
	service := NewService(store, NewSKUPolicy(), nil, nil)
	handler := NewHandler(nil, service)
	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeProduct(t *testing.T, rec *httptest.ResponseRecorder) Product {
	t.Helper()
	var product Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &product))
	return product
}

func TestCreateProductEndpoint(t *testing.T) {
	router := newTestRouter(newMemStore())

	rec := doJSON(t, router, http.MethodPost, "/products", map[string]any{
		"name":     "Widget",
		"category": "ELECTRONICS",
		"price":    9.99,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decodeProduct(t, rec)
	require.Regexp(t, `^ELC-\d{6}$`, created.SKU)
	require.Equal(t, int64(0), created.Version)

	get := doJSON(t, router, http.MethodGet, "/products/"+created.ID, nil)
	require.Equal(t, http.StatusOK, get.Code)
	require.Equal(t, created.ID, decodeProduct(t, get).ID)

	bySKU := doJSON(t, router, http.MethodGet, "/products/sku/"+created.SKU, nil)
	require.Equal(t, http.StatusOK, bySKU.Code)
}

func TestCreateProductRejectsBadPayload(t *testing.T) {
	router := newTestRouter(newMemStore())

	rec := doJSON(t, router, http.MethodPost, "/products", map[string]any{"price": 1.0})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/products", map[string]any{"name": "Widget", "price": -2.0})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/products", map[string]any{"name": "Widget", "sku": "x"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDuplicateSKUMapsToConflict(t *testing.T) {
	router := newTestRouter(newMemStore())

	first := doJSON(t, router, http.MethodPost, "/products", map[string]any{"name": "First", "sku": "HTTP-00001"})
	require.Equal(t, http.StatusCreated, first.Code)

	second := doJSON(t, router, http.MethodPost, "/products", map[string]any{"name": "Second", "sku": "HTTP-00001"})
	require.Equal(t, http.StatusConflict, second.Code)
}

func TestUpdateConflictExposesCurrentState(t *testing.T) {
	router := newTestRouter(newMemStore())

	rec := doJSON(t, router, http.MethodPost, "/products", map[string]any{"name": "Widget", "sku": "UPD-000001", "price": 9.99})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeProduct(t, rec)

	ok := doJSON(t, router, http.MethodPut, "/products/"+created.ID, map[string]any{"version": 0, "price": 19.99})
	require.Equal(t, http.StatusOK, ok.Code)
	require.Equal(t, int64(1), decodeProduct(t, ok).Version)

	stale := doJSON(t, router, http.MethodPut, "/products/"+created.ID, map[string]any{"version": 0, "price": 29.99})
	require.Equal(t, http.StatusConflict, stale.Code)

	var payload struct {
		CurrentVersion int64   `json:"current_version"`
		Current        Product `json:"current"`
	}
	require.NoError(t, json.Unmarshal(stale.Body.Bytes(), &payload))
	require.Equal(t, int64(1), payload.CurrentVersion)
	require.Equal(t, 19.99, payload.Current.Price)
}

func TestUpdateRequiresVersion(t *testing.T) {
	router := newTestRouter(newMemStore())

	rec := doJSON(t, router, http.MethodPost, "/products", map[string]any{"name": "Widget", "sku": "VER-000001"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeProduct(t, rec)

	missing := doJSON(t, router, http.MethodPut, "/products/"+created.ID, map[string]any{"price": 5.0})
	require.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestDeleteEndpointLifecycle(t *testing.T) {
	router := newTestRouter(newMemStore())

	rec := doJSON(t, router, http.MethodPost, "/products", map[string]any{"name": "Widget", "sku": "DEL-100001"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeProduct(t, rec)

	noVersion := doJSON(t, router, http.MethodDelete, "/products/"+created.ID, nil)
	require.Equal(t, http.StatusBadRequest, noVersion.Code)

	deleted := doJSON(t, router, http.MethodDelete, fmt.Sprintf("/products/%s?version=0", created.ID), nil)
	require.Equal(t, http.StatusNoContent, deleted.Code)

	gone := doJSON(t, router, http.MethodGet, "/products/"+created.ID, nil)
	require.Equal(t, http.StatusNotFound, gone.Code)

	again := doJSON(t, router, http.MethodDelete, fmt.Sprintf("/products/%s?version=1", created.ID), nil)
	require.Equal(t, http.StatusNotFound, again.Code)
}

func TestBatchEndpointRejectsPartialFailures(t *testing.T) {
	router := newTestRouter(newMemStore())

	rec := doJSON(t, router, http.MethodPost, "/products/batch", map[string]any{
		"products": []map[string]any{
			{"name": "One", "sku": "BATCH-0001"},
			{"name": "Two", "sku": "BATCH-0001"},
		},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var payload struct {
		Items []struct {
			Index int    `json:"index"`
			SKU   string `json:"sku"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Items, 1)
	require.Equal(t, 1, payload.Items[0].Index)

	empty := doJSON(t, router, http.MethodPost, "/products/batch", map[string]any{"products": []map[string]any{}})
	require.Equal(t, http.StatusBadRequest, empty.Code)
}

type faultyStore struct {
	Store
	err error
}

func (f *faultyStore) Get(ctx context.Context, id string) (Product, error) {
	return Product{}, f.err
}

func TestStorageFailuresMapToGatewayStatuses(t *testing.T) {
	timedOut := newTestRouter(&faultyStore{Store: newMemStore(), err: context.DeadlineExceeded})
	rec := doJSON(t, timedOut, http.MethodGet, "/products/p1", nil)
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)

	down := newTestRouter(&faultyStore{Store: newMemStore(), err: storageErr(errors.New("connection refused"))})
	rec = doJSON(t, down, http.MethodGet, "/products/p1", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListAndCountEndpoints(t *testing.T) {
	router := newTestRouter(newMemStore())

	for i := 0; i < 3; i++ {
		rec := doJSON(t, router, http.MethodPost, "/products", map[string]any{
			"name":            fmt.Sprintf("Widget %d", i),
			"category":        "HOME",
			"stock_quantity":  1,
			"min_stock_level": 5,
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	list := doJSON(t, router, http.MethodGet, "/products?category=HOME&per_page=2", nil)
	require.Equal(t, http.StatusOK, list.Code)
	var page struct {
		Items      []Product  `json:"items"`
		Pagination Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &page))
	require.Len(t, page.Items, 2)
	require.Equal(t, 3, page.Pagination.Total)
	require.Equal(t, 2, page.Pagination.TotalPages)

	count := doJSON(t, router, http.MethodGet, "/products/count?category=HOME", nil)
	require.Equal(t, http.StatusOK, count.Code)
	var counted struct {
		Count int64 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(count.Body.Bytes(), &counted))
	require.Equal(t, int64(3), counted.Count)

	low := doJSON(t, router, http.MethodGet, "/products/low-stock", nil)
	require.Equal(t, http.StatusOK, low.Code)
	require.NoError(t, json.Unmarshal(low.Body.Bytes(), &page))
	require.Len(t, page.Items, 3)
}
