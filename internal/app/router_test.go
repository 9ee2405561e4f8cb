package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pos/internal/observability"
	"github.com/odyssey-erp/odyssey-pos/jobs"
)

func TestRouterOpsEndpoints(t *testing.T) {
	router := NewRouter(RouterParams{
		Config:     &Config{AppEnv: "test", RateLimitPerMinute: 1000},
		JobHandler: jobs.NewHandler(nil, nil),
		Metrics:    observability.NewMetrics(),
		Readiness: map[string]Pinger{
			"postgres": PingFunc(func(context.Context) error { return nil }),
		},
	})

	for _, path := range []string{"/healthz", "/readyz", "/jobs/health", "/metrics"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRouterProblemForUnknownRoute(t *testing.T) {
	router := NewRouter(RouterParams{Config: &Config{AppEnv: "test"}})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestReadinessReportsFailingDependency(t *testing.T) {
	router := NewRouter(RouterParams{
		Config: &Config{AppEnv: "test"},
		Readiness: map[string]Pinger{
			"postgres": PingFunc(func(context.Context) error { return nil }),
			"redis":    PingFunc(func(context.Context) error { return errors.New("refused") }),
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"checks":{"postgres":"ok","redis":"unavailable"}}`, rec.Body.String())
}
