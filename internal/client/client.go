// Package client talks to the weighbridge server over HTTP. Every call that
// needs a bearer token reads it from the TokenSource right before the
// request; without one the call fails with apierror.ErrUnauthenticated and
// nothing goes on the wire.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/candelento/balanza/internal/apierror"
	"github.com/candelento/balanza/internal/dto"
	"github.com/candelento/balanza/internal/infra"
	"github.com/candelento/balanza/internal/model"

	"github.com/rs/zerolog/log"
)

// TokenSource yields the current bearer token, "" when logged out or expired.
type TokenSource interface {
	Token(ctx context.Context) string
}

// Scope selects the records a planilla covers.
type Scope string

const (
	ScopeCompras Scope = "compras"
	ScopeVentas  Scope = "ventas"
	ScopeTodo    Scope = "todo"
)

// Document is the answer of print/save endpoints: either a PDF body or a JSON
// status when the server handled the document itself.
type Document struct {
	PDF      []byte
	Copies   int    // X-Copies-Requested, 0 when absent
	Filename string // from Content-Disposition, "" when absent
	Status   *dto.PrintStatus
}

// IsPDF reports whether the server returned a PDF to deliver locally.
func (d *Document) IsPDF() bool { return d != nil && d.PDF != nil }

type Client interface {
	Login(ctx context.Context, username, password string) (*dto.LoginResponse, error)

	List(ctx context.Context, kind model.Kind, f dto.Filters) ([]model.Record, error)
	Create(ctx context.Context, kind model.Kind, payload any) (*model.Record, error)
	Update(ctx context.Context, kind model.Kind, id int, payload any) (*model.Record, error)
	Delete(ctx context.Context, kind model.Kind, id int) error

	Print(ctx context.Context, kind model.Kind, id, copies int, date string) (*Document, error)
	SaveTicket(ctx context.Context, kind model.Kind, id int, date string) (*Document, error)

	PrintPlanilla(ctx context.Context, scope Scope) (*Document, error)
	ViewPlanilla(ctx context.Context, scope Scope) (*Document, error)
	DownloadPlanilla(ctx context.Context, scope Scope, f dto.Filters) (*Document, error)
	SavePlanilla(ctx context.Context) (*Document, error)

	Productos(ctx context.Context, kind model.Kind) ([]string, error)
	SystemConfig(ctx context.Context) (*dto.SystemConfig, error)
	Backup(ctx context.Context) (*dto.PrintStatus, error)

	DashboardData(ctx context.Context, start, end string) (*dto.DashboardData, error)
	Last5Days(ctx context.Context, end string) ([]dto.DailyBalance, error)
	LastMoves(ctx context.Context, start, end string, limit int) ([]dto.LastMove, error)
}

type httpClient struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
	breaker *infra.Breaker
}

// New builds a Client for baseURL. Only transport failures feed the breaker;
// an HTTP error status means the server is alive.
func New(baseURL string, tokens TokenSource, timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: timeout},
		breaker: infra.NewBreaker(infra.DefaultBreakerConfig("api")),
	}
}

// ── Auth ──────────────────────────────────────────────────────────────────────

func (c *httpClient) Login(ctx context.Context, username, password string) (*dto.LoginResponse, error) {
	form := url.Values{"username": {username}, "password": {password}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("client: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, apierror.FromResponse(resp.StatusCode, "Usuario o contraseña incorrectos.")
	}
	var out dto.LoginResponse
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, errors.New("client: respuesta de login sin token")
	}
	return &out, nil
}

// ── Records ───────────────────────────────────────────────────────────────────

// List fetches the records of kind. A date range goes to /filter_section_dato,
// anything else to /{kind} with search/date.
func (c *httpClient) List(ctx context.Context, kind model.Kind, f dto.Filters) ([]model.Record, error) {
	q := url.Values{}
	path := "/" + string(kind)
	if f.IsRange() {
		path = "/filter_section_dato"
		q.Set("section", string(kind))
		q.Set("search", f.Search)
		q.Set("start_date", f.StartDate)
		q.Set("end_date", f.EndDate)
	} else {
		if f.Search != "" {
			q.Set("search", f.Search)
		}
		if f.Date != "" {
			q.Set("date", f.Date)
		}
	}
	var out []model.Record
	if err := c.getJSON(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *httpClient) Create(ctx context.Context, kind model.Kind, payload any) (*model.Record, error) {
	var out model.Record
	if err := c.sendJSON(ctx, http.MethodPost, "/"+string(kind), payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Update(ctx context.Context, kind model.Kind, id int, payload any) (*model.Record, error) {
	var out model.Record
	if err := c.sendJSON(ctx, http.MethodPut, fmt.Sprintf("/%s/%d", kind, id), payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Delete(ctx context.Context, kind model.Kind, id int) error {
	return c.sendJSON(ctx, http.MethodDelete, fmt.Sprintf("/%s/%d", kind, id), nil, nil)
}

// ── Tickets & planillas ───────────────────────────────────────────────────────

func (c *httpClient) Print(ctx context.Context, kind model.Kind, id, copies int, date string) (*Document, error) {
	q := url.Values{"copies": {strconv.Itoa(copies)}}
	if date != "" {
		q.Set("date", date)
	}
	return c.getDocument(ctx, fmt.Sprintf("/%s/%d/imprimir", kind, id), q)
}

func (c *httpClient) SaveTicket(ctx context.Context, kind model.Kind, id int, date string) (*Document, error) {
	q := url.Values{}
	if date != "" {
		q.Set("date", date)
	}
	return c.getDocument(ctx, fmt.Sprintf("/%s/%d/guardar", kind, id), q)
}

func (c *httpClient) PrintPlanilla(ctx context.Context, scope Scope) (*Document, error) {
	return c.getDocument(ctx, "/imprimir/"+string(scope), nil)
}

func (c *httpClient) ViewPlanilla(ctx context.Context, scope Scope) (*Document, error) {
	name := "planilla-" + string(scope)
	if scope == ScopeTodo {
		name = "planilla-completa"
	}
	return c.getDocument(ctx, "/ver/"+name, nil)
}

func (c *httpClient) DownloadPlanilla(ctx context.Context, scope Scope, f dto.Filters) (*Document, error) {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Date != "" {
		q.Set("date", f.Date)
	}
	q.Set("type", string(scope))
	return c.getDocument(ctx, "/descargar/planilla", q)
}

// SavePlanilla asks the server to store the full planilla. Older servers lack
// /guardar/planilla-completa; a 404 falls back to the download endpoint, whose
// side effect is the same file on the server.
func (c *httpClient) SavePlanilla(ctx context.Context) (*Document, error) {
	doc, err := c.getDocument(ctx, "/guardar/planilla-completa", nil)
	var he *apierror.HTTPError
	if errors.As(err, &he) && he.Status == http.StatusNotFound {
		log.Warn().Msg("client: /guardar/planilla-completa no existe, se usa /descargar/planilla-completa")
		if _, ferr := c.getDocument(ctx, "/descargar/planilla-completa", nil); ferr != nil {
			return nil, err
		}
		return &Document{Status: &dto.PrintStatus{Status: "success", Message: "Planilla guardada"}}, nil
	}
	return doc, err
}

// ── Catalog / system ──────────────────────────────────────────────────────────

func (c *httpClient) Productos(ctx context.Context, kind model.Kind) ([]string, error) {
	var out []string
	if err := c.getJSON(ctx, "/api/productos/"+string(kind), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *httpClient) SystemConfig(ctx context.Context) (*dto.SystemConfig, error) {
	var out dto.SystemConfig
	if err := c.getJSON(ctx, "/api/system/config", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Backup(ctx context.Context) (*dto.PrintStatus, error) {
	var out dto.PrintStatus
	if err := c.getJSON(ctx, "/backup", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ── Dashboard ─────────────────────────────────────────────────────────────────

func (c *httpClient) DashboardData(ctx context.Context, start, end string) (*dto.DashboardData, error) {
	q := url.Values{"start_date": {start}, "end_date": {end}}
	var out dto.DashboardData
	if err := c.getJSON(ctx, "/api/dashboard/data", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Last5Days(ctx context.Context, end string) ([]dto.DailyBalance, error) {
	q := url.Values{}
	if end != "" {
		q.Set("end_date", end)
	}
	var out []dto.DailyBalance
	if err := c.getJSON(ctx, "/api/dashboard/last5days", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *httpClient) LastMoves(ctx context.Context, start, end string, limit int) ([]dto.LastMove, error) {
	q := url.Values{"start_date": {start}, "end_date": {end}, "limit": {strconv.Itoa(limit)}}
	var out []dto.LastMove
	if err := c.getJSON(ctx, "/api/dashboard/last-moves", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ── Plumbing ──────────────────────────────────────────────────────────────────

// authorized builds a request carrying the bearer token, or fails with
// ErrUnauthenticated before anything is sent.
func (c *httpClient) authorized(ctx context.Context, method, path string, q url.Values, body io.Reader) (*http.Request, error) {
	tok := ""
	if c.tokens != nil {
		tok = c.tokens.Token(ctx)
	}
	if tok == "" {
		return nil, apierror.ErrUnauthenticated
	}
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("client: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return req, nil
}

func (c *httpClient) send(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	err := c.breaker.Do(func() error {
		var err error
		resp, err = c.http.Do(req)
		return err
	})
	if err != nil {
		if errors.Is(err, infra.ErrCircuitOpen) {
			return nil, err
		}
		log.Error().Err(err).Str("method", req.Method).Str("path", req.URL.Path).Msg("client: servidor inaccesible")
		return nil, fmt.Errorf("client: servidor inaccesible: %w", err)
	}
	return resp, nil
}

func (c *httpClient) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	req, err := c.authorized(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return err
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, out)
}

func (c *httpClient) sendJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("client: marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := c.authorized(ctx, method, path, nil, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, out)
}

func (c *httpClient) getDocument(ctx context.Context, path string, q url.Values) (*Document, error) {
	req, err := c.authorized(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errorFrom(resp)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "application/pdf") {
		pdf, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("client: read pdf: %w", err)
		}
		copies, _ := strconv.Atoi(resp.Header.Get("X-Copies-Requested"))
		doc := &Document{PDF: pdf, Copies: copies}
		if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
			doc.Filename = params["filename"]
		}
		return doc, nil
	}
	var st dto.PrintStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("client: decode response: %w", err)
	}
	return &Document{Status: &st}, nil
}

// decode maps non-2xx statuses to *apierror.HTTPError and otherwise decodes
// the body into out (when non-nil).
func decode(resp *http.Response, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFrom(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}
	return nil
}

func errorFrom(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var env apierror.APIError
	detail := ""
	if json.Unmarshal(raw, &env) == nil {
		detail = env.Detail
	}
	return apierror.FromResponse(resp.StatusCode, detail)
}
