package inventory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

func newTestRouter(repo *memoryRepo) http.Handler {
	h := NewHandler(nil, NewService(repo, nil, &memoryIdempotency{}, nil, nil))
	r := chi.NewRouter()
	r.Use(shared.ActorMiddleware)
	r.Route("/api/inventory", h.MountRoutes)
	return r
}

func TestHandlerAdjustment(t *testing.T) {
	router := newTestRouter(newMemoryRepo(widget(2)))

	req := httptest.NewRequest(http.MethodPost, "/api/inventory/products/1/adjustments",
		strings.NewReader(`{"delta": 3, "reason": "purchase", "note": "restock"}`))
	req.Header.Set(shared.ActorHeader, "budi")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var m Movement
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	require.Equal(t, int64(5), m.BalanceAfter)
}

func TestHandlerAdjustmentErrors(t *testing.T) {
	router := newTestRouter(newMemoryRepo(widget(2)))

	cases := []struct {
		name string
		path string
		body string
		want int
	}{
		{"malformed json", "/api/inventory/products/1/adjustments", `{"delta":`, http.StatusBadRequest},
		{"unknown field", "/api/inventory/products/1/adjustments", `{"delta":1,"reason":"purchase","cost":1}`, http.StatusBadRequest},
		{"missing reason", "/api/inventory/products/1/adjustments", `{"delta":1}`, http.StatusUnprocessableEntity},
		{"wrong direction", "/api/inventory/products/1/adjustments", `{"delta":1,"reason":"damage"}`, http.StatusUnprocessableEntity},
		{"below zero", "/api/inventory/products/1/adjustments", `{"delta":-3,"reason":"damage"}`, http.StatusConflict},
		{"unknown product", "/api/inventory/products/42/adjustments", `{"delta":1,"reason":"purchase"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			require.Equal(t, tc.want, rec.Code, rec.Body.String())
			require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestHandlerDuplicateIdempotencyKey(t *testing.T) {
	router := newTestRouter(newMemoryRepo(widget(2)))
	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/inventory/products/1/adjustments",
			strings.NewReader(`{"delta":1,"reason":"return"}`))
		req.Header.Set("Idempotency-Key", "ret-9")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}
	require.Equal(t, http.StatusCreated, send())
	require.Equal(t, http.StatusConflict, send())
}

func TestHandlerReconciliationAndMovements(t *testing.T) {
	router := newTestRouter(newMemoryRepo(widget(4)))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/inventory/products/1/reconciliation", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Balanced  bool  `json:"balanced"`
		LedgerSum int64 `json:"ledger_sum"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Balanced)
	require.Equal(t, int64(4), body.LedgerSum)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/inventory/movements?product_id=1&from=2024-02-01&to=2024-01-01", nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/inventory/movements?product_id=abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerMovementsFilterUsesStoreCalendar(t *testing.T) {
	repo := newMemoryRepo(widget(4))
	jakarta := time.FixedZone("WIB", 7*3600)
	h := NewHandler(nil, NewService(repo, nil, &memoryIdempotency{}, nil, nil)).WithLocation(jakarta)
	router := chi.NewRouter()
	router.Route("/api/inventory", h.MountRoutes)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/inventory/movements?from=2026-03-11&to=2026-03-12", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Equal(t, time.Date(2026, time.March, 10, 17, 0, 0, 0, time.UTC), repo.lastQuery.From.UTC())
	require.Equal(t, time.Date(2026, time.March, 12, 16, 59, 59, 999999999, time.UTC), repo.lastQuery.To.UTC())
}
