package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ErlanBelekov/xblt/internal/health"
	"github.com/ErlanBelekov/xblt/internal/metrics"
)

type fakeProber struct {
	ready health.HealthResult
}

func (f *fakeProber) Liveness(context.Context) health.HealthResult {
	return health.HealthResult{Status: "up"}
}

func (f *fakeProber) Readiness(context.Context) health.HealthResult {
	return f.ready
}

func serve(t *testing.T, p metrics.Prober, path string) *httptest.ResponseRecorder {
	t.Helper()
	srv := metrics.NewServer(":0", p)
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestServer_Healthz(t *testing.T) {
	w := serve(t, &fakeProber{}, "/healthz")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestServer_ReadyzDown_Returns503(t *testing.T) {
	p := &fakeProber{ready: health.HealthResult{
		Status: "down",
		Checks: map[string]health.CheckResult{"postgres": {Status: "down", Error: "refused"}},
	}}
	w := serve(t, p, "/readyz")

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"postgres"`) {
		t.Errorf("body %q missing postgres check", w.Body.String())
	}
}

func TestServer_ReadyzUp_Returns200(t *testing.T) {
	w := serve(t, &fakeProber{ready: health.HealthResult{Status: "up"}}, "/readyz")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	w := serve(t, &fakeProber{}, "/metrics")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
