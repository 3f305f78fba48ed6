package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/EnmanuelOvalles37/consumo-admin/internal/backend"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/rbac"
	"github.com/EnmanuelOvalles37/consumo-admin/internal/shared"
)

var (
	_ backend.Observer    = (*Metrics)(nil)
	_ rbac.DenialObserver = (*Metrics)(nil)
)

func TestMetricsHandlerExposesPrometheusMetrics(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveBackendCall("roles.list", "ok", 120*time.Millisecond)
	metrics.ObserveBackendCall("roles.list", "network", time.Second)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	metrics.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	body := rr.Body.String()
	if !strings.Contains(body, `consumo_backend_calls_total{operation="roles.list",outcome="ok"} 1`) {
		t.Fatalf("expected backend call counter, got: %s", body)
	}
	if !strings.Contains(body, `consumo_backend_call_duration_seconds_count{operation="roles.list"} 2`) {
		t.Fatalf("expected backend duration histogram, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rr.Code)
	}

	metricsRR := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(metricsRR, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	metricsBody := metricsRR.Body.String()
	if !strings.Contains(metricsBody, "http_requests_total{code=\"403\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if strings.Contains(metricsBody, "consumo_permission_denied_total{") {
		t.Fatalf("a plain 403 must not count as a permission denial, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}

func TestPermissionDeniedCountsGateRefusals(t *testing.T) {
	metrics := NewMetrics()
	mw := rbac.Middleware{Observer: metrics}

	r := chi.NewRouter()
	r.With(mw.RequireRoute(rbac.PermViewProviders)).Get("/proveedores", func(w http.ResponseWriter, r *http.Request) {})
	r.Post("/csrf", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})
	handler := metrics.Middleware(r)

	sess := &shared.Session{ID: "s"}
	sess.SetPrincipal(shared.Principal{UserID: 9, Permissions: []string{rbac.PermAdminRoles}})
	req := httptest.NewRequest(http.MethodGet, "/proveedores", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect to the nearest screen, got %d", rr.Code)
	}
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/csrf", nil))

	metricsRR := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(metricsRR, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := metricsRR.Body.String()
	if !strings.Contains(body, `consumo_permission_denied_total{route="/proveedores"} 1`) {
		t.Fatalf("expected redirected denial to be counted, got: %s", body)
	}
	if strings.Contains(body, `consumo_permission_denied_total{route="/csrf"}`) {
		t.Fatalf("csrf rejection counted as denial: %s", body)
	}
}
