package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/candelento/balanza/internal/infra"
	"github.com/candelento/balanza/internal/worker"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const (
	CachePrefix = "balanza-cache-"

	MsgSiteOffline     = "Sitio no disponible offline"
	MsgResourceOffline = "Recurso no disponible offline"

	DefaultMaxBody = 32 << 20
)

// ErrTooLarge is returned when a response is over the size the cache stores.
var ErrTooLarge = errors.New("offline: respuesta demasiado grande para la cache")

// CacheName is the cache used by one asset version.
func CacheName(version string) string { return CachePrefix + version }

// Source tells where a response came from. It is echoed in X-Cache.
type Source string

const (
	SourceNetwork  Source = "MISS"
	SourceCache    Source = "HIT"
	SourceFallback Source = "FALLBACK"
	SourceOffline  Source = "OFFLINE"
)

type Response struct {
	Status int
	Header http.Header
	Body   []byte
	Source Source

	oversize bool
}

// Write copies the response to w.
func (r *Response) Write(w http.ResponseWriter) {
	for k, vs := range r.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set("X-Cache", string(r.Source))
	w.WriteHeader(r.Status)
	_, _ = w.Write(r.Body)
}

// headers never stored with a cached entry
var skipHeaders = map[string]bool{
	"Connection":        true,
	"Keep-Alive":        true,
	"Transfer-Encoding": true,
	"Content-Length":    true,
	"Set-Cookie":        true,
}

// request headers forwarded when fetching
var forwardHeaders = []string{"Accept", "Accept-Language", "User-Agent"}

type Config struct {
	Store        Store
	Version      string
	Upstream     string // origin of same-origin requests
	AllowedHosts []string
	HTTP         *http.Client
	Pool         *worker.Pool // background revalidation; nil skips it
	Clock        clockwork.Clock
	MaxBody      int64 // largest body stored; 0 means DefaultMaxBody
}

// Worker is a cache-first proxy for the front end's static assets.
type Worker struct {
	store    Store
	cache    string
	upstream *url.URL
	allowed  map[string]bool
	http     *http.Client
	pool     *worker.Pool
	clock    clockwork.Clock
	breaker  *infra.Breaker
	maxBody  int64
}

func New(cfg Config) (*Worker, error) {
	u, err := url.Parse(cfg.Upstream)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("offline: upstream inválido %q", cfg.Upstream)
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Version == "" {
		cfg.Version = "v1"
	}
	if cfg.HTTP == nil {
		cfg.HTTP = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.MaxBody <= 0 {
		cfg.MaxBody = DefaultMaxBody
	}
	allowed := make(map[string]bool, len(cfg.AllowedHosts))
	for _, h := range cfg.AllowedHosts {
		allowed[strings.ToLower(h)] = true
	}
	return &Worker{
		store:    cfg.Store,
		cache:    CacheName(cfg.Version),
		upstream: u,
		allowed:  allowed,
		http:     cfg.HTTP,
		pool:     cfg.Pool,
		clock:    cfg.Clock,
		breaker:  infra.NewBreaker(infra.DefaultBreakerConfig("upstream")),
		maxBody:  cfg.MaxBody,
	}, nil
}

func (w *Worker) CacheName() string { return w.cache }

// Upstream returns a copy of the origin URL.
func (w *Worker) Upstream() *url.URL {
	u := *w.upstream
	return &u
}

// Local maps a same-origin path to its upstream URL.
func (w *Worker) Local(path, rawQuery string) *url.URL {
	u := w.Upstream()
	u.Path = path
	u.RawQuery = rawQuery
	return u
}

// Cacheable reports whether responses from u may be stored.
func (w *Worker) Cacheable(u *url.URL) bool {
	if u.Host == w.upstream.Host {
		return true
	}
	return w.allowed[strings.ToLower(u.Host)] || w.allowed[strings.ToLower(u.Hostname())]
}

// Intercepts reports whether the worker handles r. Everything else goes
// straight to the network.
func Intercepts(r *http.Request) bool {
	return r.Method == http.MethodGet && !strings.HasPrefix(r.URL.Path, "/api/")
}

// IsNavigation reports whether r loads a page rather than a subresource.
func IsNavigation(r *http.Request) bool {
	return r.URL.Path == "/" ||
		r.Header.Get("Sec-Fetch-Dest") == "document" ||
		r.Header.Get("Sec-Fetch-Mode") == "navigate"
}

// Request is a GET the worker resolves against the cache and the network.
type Request struct {
	URL      *url.URL
	Header   http.Header
	Navigate bool
}

// ── Lifecycle ─────────────────────────────────────────────────────────────────

// Install precaches local paths and absolute external URLs. Failures are
// logged and skipped; it returns how many entries were stored.
func (w *Worker) Install(ctx context.Context, local, external []string) int {
	targets := make([]*url.URL, 0, len(local)+len(external))
	for _, p := range local {
		targets = append(targets, w.Local(p, ""))
	}
	for _, raw := range external {
		u, err := url.Parse(raw)
		if err != nil {
			log.Warn().Str("url", raw).Err(err).Msg("offline: url de precarga inválida")
			continue
		}
		targets = append(targets, u)
	}

	stored := 0
	for _, u := range targets {
		resp, err := w.fetch(ctx, u, nil)
		if err != nil {
			log.Warn().Str("url", u.String()).Err(err).Msg("offline: no se pudo precargar")
			continue
		}
		if resp.Status != http.StatusOK {
			log.Warn().Str("url", u.String()).Int("status", resp.Status).Msg("offline: no se pudo precargar")
			continue
		}
		if err := w.put(ctx, u.String(), resp); err != nil {
			log.Warn().Str("url", u.String()).Err(err).Msg("offline: no se pudo guardar")
			continue
		}
		stored++
	}
	log.Info().Str("cache", w.cache).Int("stored", stored).Int("total", len(targets)).Msg("offline: instalado")
	return stored
}

// Activate deletes every cache other than the current one.
func (w *Worker) Activate(ctx context.Context) ([]string, error) {
	names, err := w.store.Caches(ctx)
	if err != nil {
		return nil, err
	}
	var deleted []string
	for _, name := range names {
		if name == w.cache {
			continue
		}
		if err := w.store.DeleteCache(ctx, name); err != nil {
			return deleted, err
		}
		log.Info().Str("cache", name).Msg("offline: cache antigua eliminada")
		deleted = append(deleted, name)
	}
	return deleted, nil
}

// ── Fetch ─────────────────────────────────────────────────────────────────────

// Handle answers req cache-first. A hit is served immediately and refreshed
// in the background; a miss goes to the network and stores 200 answers from
// cacheable hosts. When the network fails, pages fall back to the cached
// index and everything else gets a 503.
func (w *Worker) Handle(ctx context.Context, req Request) *Response {
	key := req.URL.String()

	e, err := w.store.Get(ctx, w.cache, key)
	if err == nil {
		w.revalidate(req)
		return fromEntry(e, SourceCache)
	}
	if !errors.Is(err, ErrMiss) {
		log.Warn().Str("url", key).Err(err).Msg("offline: error leyendo cache")
	}

	resp, err := w.fetch(ctx, req.URL, req.Header)
	if err != nil {
		log.Warn().Str("url", key).Err(err).Msg("offline: red no disponible")
		return w.offline(ctx, req)
	}
	if resp.Status == http.StatusOK && w.Cacheable(req.URL) {
		if err := w.put(ctx, key, resp); err != nil {
			log.Warn().Str("url", key).Err(err).Msg("offline: no se pudo guardar")
		}
	}
	return resp
}

func (w *Worker) offline(ctx context.Context, req Request) *Response {
	if req.Navigate {
		index := w.Local("/index.html", "")
		if e, err := w.store.Get(ctx, w.cache, index.String()); err == nil {
			return fromEntry(e, SourceFallback)
		}
		return textResponse(http.StatusServiceUnavailable, "text/html; charset=utf-8", MsgSiteOffline)
	}
	return textResponse(http.StatusServiceUnavailable, "text/plain; charset=utf-8", MsgResourceOffline)
}

func (w *Worker) revalidate(req Request) {
	if w.pool == nil {
		return
	}
	key := req.URL.String()
	target := *req.URL
	header := req.Header.Clone()
	w.pool.Submit(worker.Job{Key: key, Run: func(ctx context.Context) {
		resp, err := w.fetch(ctx, &target, header)
		if err != nil || resp.Status != http.StatusOK {
			return
		}
		if err := w.put(ctx, key, resp); err != nil {
			log.Warn().Str("url", key).Err(err).Msg("offline: no se pudo revalidar")
		}
	}})
}

// put stores resp under key. Bodies over the size limit are served but never
// stored.
func (w *Worker) put(ctx context.Context, key string, resp *Response) error {
	if resp.oversize {
		return ErrTooLarge
	}
	return w.store.Put(ctx, w.cache, key, &Entry{
		Status:   resp.Status,
		Header:   resp.Header,
		Body:     resp.Body,
		StoredAt: w.clock.Now(),
	})
}

func (w *Worker) fetch(ctx context.Context, u *url.URL, header http.Header) (*Response, error) {
	var out *Response
	call := func() error {
		r, err := w.get(ctx, u, header)
		out = r
		return err
	}
	var err error
	if u.Host == w.upstream.Host {
		err = w.breaker.Do(call)
	} else {
		err = call()
	}
	return out, err
}

func (w *Worker) get(ctx context.Context, u *url.URL, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	for _, h := range forwardHeaders {
		if v := header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}
	resp, err := w.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, w.maxBody+1))
	if err != nil {
		return nil, err
	}
	oversize := int64(len(body)) > w.maxBody
	if oversize {
		rest, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		body = append(body, rest...)
	}
	kept := make(http.Header, len(resp.Header))
	for k, vs := range resp.Header {
		if !skipHeaders[k] {
			kept[k] = append([]string(nil), vs...)
		}
	}
	return &Response{Status: resp.StatusCode, Header: kept, Body: body, Source: SourceNetwork, oversize: oversize}, nil
}

func fromEntry(e *Entry, src Source) *Response {
	h := e.Header.Clone()
	if h == nil {
		h = make(http.Header)
	}
	return &Response{Status: e.Status, Header: h, Body: e.Body, Source: src}
}

func textResponse(status int, contentType, body string) *Response {
	h := make(http.Header)
	h.Set("Content-Type", contentType)
	return &Response{Status: status, Header: h, Body: []byte(body), Source: SourceOffline}
}
