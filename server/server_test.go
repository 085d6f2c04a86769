package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/localmind-ai/localmind/config"
	"github.com/localmind-ai/localmind/server/metrics"
	"github.com/localmind-ai/localmind/server/mocks"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	return NewRouter(okHandler(), metrics.NewMetrics(), zaptest.NewLogger(t), "*")
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status": "healthy", "service": "LocalMind AI"}`, w.Body.String())
}

func TestAnalyzeRouted(t *testing.T) {
	var called atomic.Bool
	analyze := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
		w.WriteHeader(http.StatusOK)
	})
	router := NewRouter(analyze, metrics.NewMetrics(), zaptest.NewLogger(t), "*")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/analyze", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, called.Load())
}

func TestCORSHeaders(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	// Preflight short-circuits before reaching any handler.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/analyze", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Methods"))
}

func TestConfiguredCORSOrigin(t *testing.T) {
	router := NewRouter(okHandler(), metrics.NewMetrics(), zaptest.NewLogger(t), "https://app.localmind.ai")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "https://app.localmind.ai", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDHeader(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	// Generate one measured request first.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "localmind_http_requests_total")
}

func TestServerStartShutdown(t *testing.T) {
	cfg := config.Default().Server
	cfg.Port = 0 // pick a free port

	srv := NewServer(cfg, okHandler(), zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Start(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunRestartsOnConfigChange(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = 0

	watcher := mocks.NewConfigWatcher(cfg)

	built := make(chan *config.Config, 4)
	newHandler := func(c *config.Config) (http.Handler, error) {
		built <- c
		return okHandler(), nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, watcher, newHandler, zaptest.NewLogger(t))
	}()

	select {
	case c := <-built:
		assert.Equal(t, "gemini-2.0-flash", c.Gemini.Model)
	case <-time.After(5 * time.Second):
		t.Fatal("handler was never built")
	}

	updated := config.Default()
	updated.Server.Port = 0
	updated.Gemini.Model = "gemini-2.5-flash"

	// Give the first server a moment to come up before replacing it.
	time.Sleep(100 * time.Millisecond)
	watcher.UpdateConfig(updated)

	select {
	case c := <-built:
		assert.Equal(t, "gemini-2.5-flash", c.Gemini.Model)
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not rebuilt after config change")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run loop did not stop")
	}
}
