package router

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/candelento/balanza/internal/config"
	"github.com/candelento/balanza/internal/middleware"
	"github.com/candelento/balanza/internal/offline"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte("<html>balanza</html>"))
	})
	r.GET("/sw.js", func(c *gin.Context) {
		c.Header("Cache-Control", "max-age=3600")
		c.Data(http.StatusOK, "application/javascript", []byte("self.addEventListener('fetch', () => {})"))
	})
	r.GET("/manifest.json", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"name": "Balanza"})
	})
	r.GET("/api/compras", func(c *gin.Context) {
		c.JSON(http.StatusOK, []gin.H{{"id": 1}})
	})
	r.POST("/api/compras", func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.Data(http.StatusCreated, "application/json", body)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newGateway(t *testing.T, upstream string, perMinute int) (*gin.Engine, *offline.Worker) {
	t.Helper()
	w, err := offline.New(offline.Config{Version: "v1.0.1", Upstream: upstream})
	require.NoError(t, err)
	cfg := &config.Config{Env: "test"}
	return New(cfg, w, middleware.NewRateLimiter(perMinute), nil), w
}

func do(r http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	r, _ := newGateway(t, newUpstream(t).URL, 0)
	rec := do(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "disabled", body["redis"])
	assert.Equal(t, "balanza-cache-v1.0.1", body["cache"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	r, _ := newGateway(t, newUpstream(t).URL, 0)
	assert.Equal(t, "abc-123", do(r, http.MethodGet, "/health", "", "X-Request-ID", "abc-123").Header().Get("X-Request-ID"))
	assert.NotEmpty(t, do(r, http.MethodGet, "/health", "").Header().Get("X-Request-ID"))
}

func TestAssetsAreCached(t *testing.T) {
	r, _ := newGateway(t, newUpstream(t).URL, 0)

	first := do(r, http.MethodGet, "/index.html", "")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := do(r, http.MethodGet, "/index.html", "")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, "<html>balanza</html>", second.Body.String())
}

func TestAPIIsProxiedUncached(t *testing.T) {
	r, _ := newGateway(t, newUpstream(t).URL, 0)

	created := do(r, http.MethodPost, "/api/compras", `{"proveedor":"ACME"}`, "Content-Type", "application/json")
	assert.Equal(t, http.StatusCreated, created.Code)
	assert.JSONEq(t, `{"proveedor":"ACME"}`, created.Body.String())

	for i := 0; i < 2; i++ {
		rec := do(r, http.MethodGet, "/api/compras", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
}

func TestServiceWorkerFiles(t *testing.T) {
	r, _ := newGateway(t, newUpstream(t).URL, 0)

	sw := do(r, http.MethodGet, "/sw.js", "")
	require.Equal(t, http.StatusOK, sw.Code)
	assert.Equal(t, []string{"no-cache"}, sw.Header().Values("Cache-Control"))
	assert.Equal(t, "/", sw.Header().Get("Service-Worker-Allowed"))

	manifest := do(r, http.MethodGet, "/manifest.json", "")
	require.Equal(t, http.StatusOK, manifest.Code)
	assert.Equal(t, "no-cache", manifest.Header().Get("Cache-Control"))
	assert.Equal(t, "/", manifest.Header().Get("Service-Worker-Allowed"))
	assert.JSONEq(t, `{"name":"Balanza"}`, manifest.Body.String())
}

func TestCDNRejectsUnknownHosts(t *testing.T) {
	r, _ := newGateway(t, newUpstream(t).URL, 0)
	rec := do(r, http.MethodGet, "/cdn/evil.example.com/x.js", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Host no permitido")
}

func TestUpstreamDown(t *testing.T) {
	upstream := newUpstream(t)
	r, w := newGateway(t, upstream.URL, 0)
	require.Equal(t, 1, w.Install(context.Background(), []string{"/index.html"}, nil))
	upstream.Close()

	write := do(r, http.MethodPost, "/api/compras", `{}`)
	assert.Equal(t, http.StatusBadGateway, write.Code)
	assert.Contains(t, write.Body.String(), "Servidor no disponible")

	page := do(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Equal(t, "FALLBACK", page.Header().Get("X-Cache"))
	assert.Equal(t, "<html>balanza</html>", page.Body.String())

	asset := do(r, http.MethodGet, "/logo.png", "")
	assert.Equal(t, http.StatusServiceUnavailable, asset.Code)
	assert.Equal(t, offline.MsgResourceOffline, asset.Body.String())
}

func TestRateLimit(t *testing.T) {
	r, _ := newGateway(t, newUpstream(t).URL, 2)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code)

	rec := do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}
