package pos

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

func newTestRouter(repo *memoryRepo, limit int) http.Handler {
	h := NewHandler(nil, NewService(repo, nil, nil, nil, nil), limit)
	r := chi.NewRouter()
	r.Use(shared.ActorMiddleware)
	r.Route("/api/pos", h.MountRoutes)
	return r
}

func postCheckout(router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/pos/checkout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(shared.ActorHeader, "kasir-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCheckoutCommits(t *testing.T) {
	repo := newMemoryRepo(product(1, "Kopi Susu", 10))
	router := newTestRouter(repo, 0)

	rec := postCheckout(router, `{
		"reference": "TRX-20240101-AAAA0001",
		"lines": [{"product_id": 1, "quantity": 2, "unit_price": 120.00}],
		"discount": {"type": "percent", "value": 10},
		"tendered": "300.00"
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("Location"))

	var res CheckoutResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Equal(t, shared.MustMoney("216.00"), res.Total)
	require.Equal(t, shared.MustMoney("84.00"), res.Change)
	require.Contains(t, rec.Body.String(), `"change":84.00`)

	sale, err := repo.GetSaleByReference(context.Background(), "TRX-20240101-AAAA0001")
	require.NoError(t, err)
	require.Equal(t, "kasir-1", sale.Cashier)
}

func TestHandlerCheckoutStatusMapping(t *testing.T) {
	repo := newMemoryRepo(product(1, "Roti", 1))
	router := newTestRouter(repo, 0)

	ok := `{"reference":"R-1","lines":[{"product_id":1,"quantity":1,"unit_price":5}],"tendered":5}`
	require.Equal(t, http.StatusCreated, postCheckout(router, ok).Code)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"duplicate reference", ok, http.StatusConflict},
		{"insufficient stock", `{"reference":"R-2","lines":[{"product_id":1,"quantity":1,"unit_price":5}],"tendered":5}`, http.StatusConflict},
		{"zero quantity", `{"reference":"R-3","lines":[{"product_id":1,"quantity":0,"unit_price":5}],"tendered":5}`, http.StatusUnprocessableEntity},
		{"three decimals", `{"reference":"R-4","lines":[{"product_id":1,"quantity":1,"unit_price":5.125}],"tendered":5}`, http.StatusBadRequest},
		{"malformed", `{"reference":`, http.StatusBadRequest},
		{"unknown field", `{"reference":"R-5","lines":[],"tendered":0,"coupon":"X"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postCheckout(router, tc.body)
			require.Equal(t, tc.want, rec.Code, rec.Body.String())
			var problem httpx.ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			require.Equal(t, tc.want, problem.Status)
		})
	}
}

func TestHandlerValidationListsFields(t *testing.T) {
	router := newTestRouter(newMemoryRepo(product(1, "Roti", 5)), 0)

	rec := postCheckout(router, `{"reference":"R-9","lines":[{"product_id":1,"quantity":-1,"unit_price":5}],"tendered":5}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.NotEmpty(t, problem.Errors)
	require.Equal(t, "lines[0].quantity", problem.Errors[0].Field)
}

func TestHandlerStorageFailureIsOpaque(t *testing.T) {
	repo := newMemoryRepo(product(1, "Roti", 5))
	repo.failLineInsert = 1
	router := newTestRouter(repo, 0)

	rec := postCheckout(router, `{"reference":"R-10","lines":[{"product_id":1,"quantity":1,"unit_price":5}],"tendered":5}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), errStorage.Error())
}

func TestHandlerCheckoutRateLimit(t *testing.T) {
	router := newTestRouter(newMemoryRepo(product(1, "Roti", 5)), 1)

	require.NotEqual(t, http.StatusTooManyRequests, postCheckout(router, `{"reference":"R-11","lines":[],"tendered":0}`).Code)
	require.Equal(t, http.StatusTooManyRequests, postCheckout(router, `{"reference":"R-12","lines":[],"tendered":0}`).Code)
}

func TestHandlerSalesAndReference(t *testing.T) {
	repo := newMemoryRepo(product(1, "Roti", 5))
	router := newTestRouter(repo, 0)
	require.Equal(t, http.StatusCreated, postCheckout(router, `{"reference":"R-20","lines":[{"product_id":1,"quantity":2,"unit_price":"2.50"}],"tendered":10}`).Code)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pos/sales/R-20", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var sale Sale
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sale))
	require.Equal(t, shared.MustMoney("5.00"), sale.Total)
	require.Len(t, sale.Lines, 1)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pos/sales/R-404", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pos/sales?from=2024-13-01", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pos/reference", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"reference":"TRX-`)
}

func TestHandlerSalesFilterUsesStoreCalendar(t *testing.T) {
	repo := newMemoryRepo(product(1, "Roti", 5))
	jakarta := time.FixedZone("WIB", 7*3600)
	h := NewHandler(nil, NewService(repo, nil, nil, nil, nil), 0).WithLocation(jakarta)
	router := chi.NewRouter()
	router.Route("/api/pos", h.MountRoutes)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pos/sales?from=2026-03-11&to=2026-03-11", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Equal(t, time.Date(2026, time.March, 10, 17, 0, 0, 0, time.UTC), repo.lastFilter.From.UTC())
	require.Equal(t, time.Date(2026, time.March, 11, 16, 59, 59, 999999999, time.UTC), repo.lastFilter.To.UTC())
}
