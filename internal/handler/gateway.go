package handler

import (
	"context"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/candelento/balanza/internal/apierror"
	"github.com/candelento/balanza/internal/offline"

	"github.com/gin-gonic/gin"
)

type proxyErrKey struct{}

// GatewayHandler fronts the weighbridge server: static assets go through the
// offline worker, everything else is proxied untouched.
type GatewayHandler struct {
	worker  *offline.Worker
	proxy   *httputil.ReverseProxy
	swProxy *httputil.ReverseProxy

	// CDNScheme is the scheme used for /cdn/ targets.
	CDNScheme string
}

func NewGatewayHandler(w *offline.Worker) *GatewayHandler {
	sw := newProxy(w.Upstream())
	sw.ModifyResponse = func(r *http.Response) error {
		r.Header.Set("Cache-Control", "no-cache")
		r.Header.Set("Service-Worker-Allowed", "/")
		return nil
	}
	return &GatewayHandler{worker: w, proxy: newProxy(w.Upstream()), swProxy: sw, CDNScheme: "https"}
}

func newProxy(upstream *url.URL) *httputil.ReverseProxy {
	p := httputil.NewSingleHostReverseProxy(upstream)
	p.ErrorHandler = func(_ http.ResponseWriter, r *http.Request, err error) {
		if slot, ok := r.Context().Value(proxyErrKey{}).(*error); ok {
			*slot = err
		}
	}
	return p
}

// Asset is the catch-all route.
func (h *GatewayHandler) Asset(c *gin.Context) {
	if !offline.Intercepts(c.Request) {
		h.forward(c, h.proxy)
		return
	}
	resp := h.worker.Handle(c.Request.Context(), offline.Request{
		URL:      h.worker.Local(c.Request.URL.Path, c.Request.URL.RawQuery),
		Header:   c.Request.Header,
		Navigate: offline.IsNavigation(c.Request),
	})
	resp.Write(c.Writer)
}

// ServiceWorker serves /sw.js from the network. Browsers always fetch the
// worker script directly, so it is never cached here either.
func (h *GatewayHandler) ServiceWorker(c *gin.Context) {
	h.forward(c, h.swProxy)
}

// Manifest goes through the cache like any asset but asks the browser to
// revalidate it on every load.
func (h *GatewayHandler) Manifest(c *gin.Context) {
	resp := h.worker.Handle(c.Request.Context(), offline.Request{
		URL:    h.worker.Local("/manifest.json", ""),
		Header: c.Request.Header,
	})
	resp.Header.Set("Cache-Control", "no-cache")
	resp.Header.Set("Service-Worker-Allowed", "/")
	resp.Write(c.Writer)
}

// CDN serves /cdn/:host/*path for allow-listed third-party hosts.
func (h *GatewayHandler) CDN(c *gin.Context) {
	target := &url.URL{
		Scheme:   h.CDNScheme,
		Host:     strings.ToLower(c.Param("host")),
		Path:     c.Param("path"),
		RawQuery: c.Request.URL.RawQuery,
	}
	if target.Host == h.worker.Upstream().Host || !h.worker.Cacheable(target) {
		c.JSON(http.StatusForbidden, apierror.New("Host no permitido: "+target.Host))
		return
	}
	resp := h.worker.Handle(c.Request.Context(), offline.Request{URL: target, Header: c.Request.Header})
	resp.Write(c.Writer)
}

// forward proxies the request to upstream. Transport failures are attached
// to the context for the error middleware.
func (h *GatewayHandler) forward(c *gin.Context, proxy *httputil.ReverseProxy) {
	var perr error
	req := c.Request.WithContext(context.WithValue(c.Request.Context(), proxyErrKey{}, &perr))
	proxy.ServeHTTP(c.Writer, req)
	if perr != nil {
		_ = c.Error(perr)
	}
}
