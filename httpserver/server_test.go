package httpserver

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ruteri/secret-service/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingRoutes struct{}

func (pingRoutes) RegisterRoutes(r chi.Router) {
	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
}

func testConfig() *api.HTTPServerConfig {
	return &api.HTTPServerConfig{
		ListenAddr:               "127.0.0.1:0",
		Log:                      slog.New(slog.NewTextHandler(io.Discard, nil)),
		DrainDuration:            time.Millisecond,
		GracefulShutdownDuration: time.Second,
	}
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func TestHealthEndpoints(t *testing.T) {
	srv, err := New(testConfig(), pingRoutes{})
	require.NoError(t, err)
	router := srv.Router()

	rr := get(t, router, "/livez")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"alive"}`, rr.Body.String())

	rr = get(t, router, "/readyz")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = get(t, router, "/api/ping")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", rr.Body.String())
}

func TestDrainUndrain(t *testing.T) {
	srv, err := New(testConfig())
	require.NoError(t, err)
	router := srv.Router()

	rr := get(t, router, "/drain")
	assert.JSONEq(t, `{"status":"draining"}`, rr.Body.String())
	assert.False(t, srv.IsReady())

	rr = get(t, router, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = get(t, router, "/drain")
	assert.JSONEq(t, `{"status":"already draining"}`, rr.Body.String())

	rr = get(t, router, "/undrain")
	assert.JSONEq(t, `{"status":"ready"}`, rr.Body.String())
	assert.True(t, srv.IsReady())

	rr = get(t, router, "/undrain")
	assert.JSONEq(t, `{"status":"already ready"}`, rr.Body.String())
}

func TestPprofOnlyWhenEnabled(t *testing.T) {
	srv, err := New(testConfig())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, get(t, srv.Router(), "/debug/pprof/").Code)

	cfg := testConfig()
	cfg.EnablePprof = true
	srv, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get(t, srv.Router(), "/debug/pprof/").Code)
}

func TestMetricsServerUsesGatherer(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	cfg := testConfig()
	cfg.MetricsAddr = "127.0.0.1:0"
	cfg.MetricsGatherer = reg
	srv, err := New(cfg)
	require.NoError(t, err)
	require.NotNil(t, srv.metricsSrv)

	rr := get(t, srv.metricsSrv.Handler, "/metrics")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "test_total 1")

}

func TestNewRequiresLogger(t *testing.T) {
	cfg := testConfig()
	cfg.Log = nil
	_, err := New(cfg)
	assert.Error(t, err)
}
