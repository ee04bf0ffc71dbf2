package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/candelento/balanza/internal/offline"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCDNServesAllowedHosts(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cdnRouter := gin.New()
	cdnRouter.GET("/npm/flatpickr", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/javascript", []byte("flatpickr("+c.Query("v")+")"))
	})
	cdn := httptest.NewServer(cdnRouter)
	defer cdn.Close()
	cdnURL, _ := url.Parse(cdn.URL)

	w, err := offline.New(offline.Config{Upstream: "http://127.0.0.1:1", AllowedHosts: []string{cdnURL.Host}})
	require.NoError(t, err)
	h := NewGatewayHandler(w)
	h.CDNScheme = "http"

	r := gin.New()
	r.GET("/cdn/:host/*path", h.CDN)

	get := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cdn/"+cdnURL.Host+"/npm/flatpickr?v=4", nil))
		return rec
	}

	first := get()
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "flatpickr(4)", first.Body.String())
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	cdn.Close()
	second := get()
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
}

func TestHealthWithoutRedis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", Health(nil, "balanza-cache-v2"))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"redis":"disabled","cache":"balanza-cache-v2"}`, rec.Body.String())
}
