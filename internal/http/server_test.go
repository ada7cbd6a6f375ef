package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fyrsmithlabs/debugredirect/internal/hooks"
	"github.com/fyrsmithlabs/debugredirect/internal/logging"
	"github.com/fyrsmithlabs/debugredirect/internal/redirect"
	"github.com/fyrsmithlabs/debugredirect/internal/telemetry"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewServer(t *testing.T) {
	registry := hooks.NewRegistry(zap.NewNop())

	t.Run("creates server with valid config", func(t *testing.T) {
		cfg := &Config{
			Host: "localhost",
			Port: 9090,
		}

		server, err := NewServer(registry, logging.NewNop(), cfg, nil)
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.NotNil(t, server.echo)
		assert.NotNil(t, server.Binding())
		assert.Equal(t, cfg, server.config)
	})

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, err := NewServer(registry, logging.NewNop(), nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "localhost", server.config.Host)
		assert.Equal(t, 9090, server.config.Port)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(registry, nil, nil, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when registry is nil", func(t *testing.T) {
		_, err := NewServer(nil, logging.NewNop(), nil, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "hook registry cannot be nil")
	})
}

func TestHandleHealth(t *testing.T) {
	h := newHarness(t, debugYAML)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestStorefrontPages(t *testing.T) {
	h := newHarness(t, debugYAML)

	t.Run("home", func(t *testing.T) {
		rec := h.do(httptest.NewRequest(http.MethodGet, PathHome, nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var page PageResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Equal(t, "home", page.Page)
	})

	t.Run("login", func(t *testing.T) {
		rec := h.do(httptest.NewRequest(http.MethodGet, PathLogin, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("product", func(t *testing.T) {
		rec := h.do(httptest.NewRequest(http.MethodGet, "/catalog/product/view/42", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var product ProductResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &product))
		assert.Equal(t, "42", product.ID)
	})

	t.Run("login post without credentials", func(t *testing.T) {
		rec := h.do(httptest.NewRequest(http.MethodPost, PathLoginPost, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("request id header", func(t *testing.T) {
		rec := h.do(httptest.NewRequest(http.MethodGet, PathHome, nil))
		assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	})
}

func TestAccessLogCarriesRequestContext(t *testing.T) {
	h := newHarness(t, debugYAML)

	req := httptest.NewRequest(http.MethodGet, PathHome, nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	req.Header.Set(ScopeHeader, "fr")
	h.do(req)

	h.logs.AssertField(t, "http request", "status", int64(http.StatusOK))
	h.logs.AssertField(t, "http request", "request.id", "req-123")
	h.logs.AssertField(t, "http request", "store.scope", "fr")
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, debugYAML)

	h.do(httptest.NewRequest(http.MethodGet, PathCart, nil))
	rec := h.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "debugredirect_redirects_total")
}

func TestRedirectSpanEvent(t *testing.T) {
	tel := telemetry.NewTestTelemetry()
	h := newHarness(t, debugYAML)

	server, err := NewServer(h.server.binding.registry, h.logs.Logger, nil, tel.Telemetry)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, PathCart, nil)
	server.Handler().ServeHTTP(httptest.NewRecorder(), req)

	spanName := http.MethodGet + " " + PathCart
	tel.AssertSpanExists(t, spanName)
	tel.AssertSpanAttribute(t, spanName, "http.route", PathCart)
	tel.AssertSpanAttribute(t, spanName, "http.response.status_code", int64(http.StatusFound))
	tel.AssertSpanEvent(t, spanName, "redirect.detected")
	tel.AssertSpanEventAttribute(t, spanName, "redirect.detected", "redirect.url", PathLogin)
	assert.Equal(t, 2, h.logs.Count(redirect.MsgRedirectDetected))

	require.NoError(t, tel.MetricReader.ForceFlush(context.Background()))
	m, ok := tel.MetricReader.Metric("debugredirect.http.redirects_total")
	require.True(t, ok)
	assert.Equal(t, int64(1), sumInt64(m))
}

func TestServerLifecycle(t *testing.T) {
	t.Run("starts and shuts down gracefully", func(t *testing.T) {
		cfg := &Config{
			Host: "localhost",
			Port: 0, // random available port
		}

		server, err := NewServer(hooks.NewRegistry(zap.NewNop()), logging.NewNop(), cfg, nil)
		require.NoError(t, err)

		errChan := make(chan error, 1)
		go func() {
			errChan <- server.Start()
		}()

		time.Sleep(100 * time.Millisecond)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		assert.NoError(t, server.Shutdown(ctx))

		select {
		case err := <-errChan:
			assert.True(t, err == nil || err == http.ErrServerClosed)
		case <-time.After(6 * time.Second):
			t.Fatal("server did not shut down in time")
		}
	})
}
