// Package app holds the session-scoped console state: the active tab, the
// per-kind filters and tables, the shared focus and the one save engine, and
// the flows that span them (refresh, push updates, delete, login).
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/candelento/balanza/internal/a11y"
	"github.com/candelento/balanza/internal/apierror"
	"github.com/candelento/balanza/internal/client"
	"github.com/candelento/balanza/internal/dashboard"
	"github.com/candelento/balanza/internal/dto"
	"github.com/candelento/balanza/internal/export"
	"github.com/candelento/balanza/internal/model"
	"github.com/candelento/balanza/internal/rowsync"
	"github.com/candelento/balanza/internal/session"
	"github.com/candelento/balanza/internal/table"
	"github.com/candelento/balanza/internal/ticket"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Tab is one of the console's top-level views.
type Tab string

const (
	TabCompras   Tab = "compras"
	TabVentas    Tab = "ventas"
	TabDashboard Tab = "dashboard"
)

// Tabs in display order.
var Tabs = []Tab{TabCompras, TabVentas, TabDashboard}

// Kind returns the record kind a tab shows; false for the dashboard.
func (t Tab) Kind() (model.Kind, bool) {
	switch t {
	case TabCompras:
		return model.Compras, true
	case TabVentas:
		return model.Ventas, true
	}
	return "", false
}

// Confirm asks the operator a yes/no question.
type Confirm func(question string) bool

type Deps struct {
	Client    client.Client
	Session   *session.Session
	Tickets   ticket.Service
	Clock     clockwork.Clock
	Announcer *a11y.Announcer
	// OnNotice receives every operator notification. It may be called from
	// timer goroutines.
	OnNotice func(Notice)
	// ExportPath is the daily planilla workbook.
	ExportPath string
}

// App is created once per console session.
type App struct {
	client    client.Client
	sess      *session.Session
	tickets   ticket.Service
	dash      dashboard.Service
	clock     clockwork.Clock
	announcer *a11y.Announcer
	onNotice  func(Notice)
	exportTo  string

	focus  *table.Focus
	engine *rowsync.Engine
	tables map[model.Kind]*table.Table
	traps  *a11y.Traps

	mu      sync.RWMutex
	active  Tab
	filters map[model.Kind]dto.Filters
}

func New(ctx context.Context, d Deps) *App {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Announcer == nil {
		d.Announcer = a11y.NewAnnouncer(d.Clock)
	}
	a := &App{
		client:    d.Client,
		sess:      d.Session,
		tickets:   d.Tickets,
		dash:      dashboard.NewService(d.Client, d.Session),
		clock:     d.Clock,
		announcer: d.Announcer,
		onNotice:  d.OnNotice,
		exportTo:  d.ExportPath,
		focus:     table.NewFocus(),
		traps:     a11y.NewTraps(),
		active:    TabCompras,
		filters:   make(map[model.Kind]dto.Filters),
	}
	a.engine = rowsync.New(rowsync.Config{
		Writer:   d.Client,
		Notifier: a,
		Rows:     a,
		Clock:    d.Clock,
		Context:  ctx,
		OnSaved:  a.onSaved,
	})
	a.tables = map[model.Kind]*table.Table{
		model.Compras: table.New(model.Compras, a.focus, a.engine),
		model.Ventas:  table.New(model.Ventas, a.focus, a.engine),
	}
	return a
}

// ── Accessors ─────────────────────────────────────────────────────────────────

func (a *App) Table(k model.Kind) *table.Table { return a.tables[k] }
func (a *App) Focus() *table.Focus             { return a.focus }
func (a *App) Engine() *rowsync.Engine         { return a.engine }
func (a *App) Dashboard() dashboard.Service    { return a.dash }
func (a *App) Tickets() ticket.Service         { return a.tickets }
func (a *App) Announcer() *a11y.Announcer      { return a.announcer }
func (a *App) Traps() *a11y.Traps              { return a.traps }
func (a *App) Session() *session.Session       { return a.sess }

// Busy reports whether the operator is typing somewhere; push updates are
// dropped while it holds.
func (a *App) Busy() bool { return a.focus.Editing() }

func (a *App) Active() Tab {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.active
}

func (a *App) SetTab(t Tab) {
	a.mu.Lock()
	a.active = t
	a.mu.Unlock()
	a.focus.Clear()
}

// CycleTab moves the active tab with the left/right arrows.
func (a *App) CycleTab(key string) bool {
	names := make([]string, len(Tabs))
	for i, t := range Tabs {
		names[i] = string(t)
	}
	next, ok := a11y.CycleTab(names, string(a.Active()), key)
	if ok {
		a.SetTab(Tab(next))
	}
	return ok
}

func (a *App) Filters(k model.Kind) dto.Filters {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.filters[k]
}

// SetFilters replaces the filters of k and reloads its table.
func (a *App) SetFilters(ctx context.Context, k model.Kind, f dto.Filters) error {
	a.mu.Lock()
	a.filters[k] = f
	a.mu.Unlock()
	return a.Refresh(ctx, k)
}

// ── Loading ───────────────────────────────────────────────────────────────────

// Restore renders the cached snapshots so the console shows the last known
// records before the first fetch completes.
func (a *App) Restore(ctx context.Context) {
	for _, k := range model.Kinds {
		if recs := a.sess.Records(ctx, k); len(recs) > 0 {
			a.tables[k].Render(recs)
		}
	}
}

// Refresh fetches k with its current filters, renders and caches the result.
// When the fetch fails the table keeps what it shows.
func (a *App) Refresh(ctx context.Context, k model.Kind) error {
	recs, err := a.client.List(ctx, k, a.Filters(k))
	if err != nil {
		log.Warn().Err(err).Str("kind", string(k)).Msg("app: no se pudieron cargar los registros")
		a.Notify(rowsync.Notice{Level: rowsync.LevelError, Kind: k, Message: "No se pudieron cargar datos: " + err.Error(), Err: err})
		return err
	}
	a.tables[k].Render(recs)
	if err := a.sess.SaveRecords(ctx, k, recs); err != nil {
		log.Warn().Err(err).Str("kind", string(k)).Msg("app: no se pudo guardar el snapshot")
	}
	return nil
}

// LoadProductos fills the product suggestions of both tables concurrently.
func (a *App) LoadProductos(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, k := range model.Kinds {
		g.Go(func() error {
			list, err := a.client.Productos(gctx, k)
			if err != nil {
				return err
			}
			a.tables[k].SetProductos(list)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("app: productos")
		a.Notify(rowsync.Notice{Level: rowsync.LevelError, Message: "No se pudo cargar la lista de productos desde el servidor.", Err: err})
		return err
	}
	return nil
}

// ── Push updates ──────────────────────────────────────────────────────────────

// HandlePush stores a pushed snapshot in the kind's cache and, when that kind
// is on screen, reloads it with the current filters. Nothing happens while
// the operator is editing.
func (a *App) HandlePush(ctx context.Context, msg dto.PushMessage) {
	if a.Busy() {
		return
	}
	k, err := model.ParseKind(msg.Type)
	if err != nil {
		log.Warn().Str("type", msg.Type).Msg("app: tipo de mensaje desconocido")
		return
	}
	if err := a.sess.SaveRecords(ctx, k, msg.Payload); err != nil {
		log.Warn().Err(err).Str("kind", string(k)).Msg("app: no se pudo guardar el snapshot")
	}
	if kind, ok := a.Active().Kind(); ok && kind == k {
		_ = a.Refresh(ctx, k)
	}
}

// ── Rows ──────────────────────────────────────────────────────────────────────

// AddRow inserts a blank row on k's table and focuses its first cell.
func (a *App) AddRow(k model.Kind) *table.Row {
	row := a.tables[k].AddNew()
	a.focus.Move(row, k.PartyField())
	return row
}

// ErrCancelled is returned when the operator declines a confirmation.
var ErrCancelled = errors.New("operación cancelada")

// DeleteRow removes row after the operator confirms. A row never saved is
// dropped locally; a saved one is deleted on the server first and only
// removed from view when that succeeds.
func (a *App) DeleteRow(ctx context.Context, row *table.Row, confirm Confirm) error {
	k := row.Kind()
	if confirm == nil || !confirm(DeleteQuestion(k)) {
		return ErrCancelled
	}
	id, saved := row.ID()
	if !saved {
		a.tables[k].Remove(row)
		a.Notify(rowsync.Notice{Level: rowsync.LevelSuccess, Kind: k, Message: "Registro eliminado."})
		return nil
	}
	if !a.sess.LoggedIn(ctx) {
		a.Notify(rowsync.Notice{Level: rowsync.LevelError, Kind: k, Message: "Debe iniciar sesión para eliminar registros.", Err: apierror.ErrUnauthenticated})
		return apierror.ErrUnauthenticated
	}
	if err := a.client.Delete(ctx, k, id); err != nil {
		log.Error().Err(err).Str("kind", string(k)).Int("id", id).Msg("app: delete falló")
		a.Notify(rowsync.Notice{Level: rowsync.LevelError, Kind: k, RowKey: row.Key(), Message: "No se pudo eliminar el registro: " + err.Error(), Err: err})
		return err
	}
	a.tables[k].Remove(row)
	a.dropCached(ctx, k, id)
	a.Notify(rowsync.Notice{Level: rowsync.LevelSuccess, Kind: k, Message: "Registro eliminado correctamente."})
	return nil
}

// DeleteQuestion is the confirmation asked before deleting a row of k.
func DeleteQuestion(k model.Kind) string {
	return fmt.Sprintf("¿Está seguro de eliminar este registro de %s?", k)
}

// SaveFocused is the F8 path: an explicit save of the focused row, or of
// the last one focused.
func (a *App) SaveFocused(ctx context.Context) error {
	row := a.focus.Target()
	if row == nil {
		return nil
	}
	return a.engine.ExplicitSave(ctx, row)
}

// Rekey routes a key change to the table owning the row.
func (a *App) Rekey(oldKey, newKey string) {
	prefix, _, _ := strings.Cut(oldKey, ":")
	if t, ok := a.tables[model.Kind(prefix)]; ok {
		t.Rekey(oldKey, newKey)
	}
}

func (a *App) onSaved(row *table.Row, rec model.Record) {
	ctx := context.Background()
	k := row.Kind()
	id, ok := rec.IDValue()
	if !ok {
		return
	}
	cached := a.sess.Records(ctx, k)
	merged := row.Record()
	found := false
	for i := range cached {
		if v, ok := cached[i].IDValue(); ok && v == id {
			cached[i] = merged
			found = true
			break
		}
	}
	if !found {
		cached = append([]model.Record{merged}, cached...)
	}
	if err := a.sess.SaveRecords(ctx, k, cached); err != nil {
		log.Warn().Err(err).Str("kind", string(k)).Msg("app: no se pudo guardar el snapshot")
	}
}

func (a *App) dropCached(ctx context.Context, k model.Kind, id int) {
	cached := a.sess.Records(ctx, k)
	out := cached[:0]
	for _, r := range cached {
		if v, ok := r.IDValue(); ok && v == id {
			continue
		}
		out = append(out, r)
	}
	if err := a.sess.SaveRecords(ctx, k, out); err != nil {
		log.Warn().Err(err).Str("kind", string(k)).Msg("app: no se pudo guardar el snapshot")
	}
}

// ── Session ───────────────────────────────────────────────────────────────────

func (a *App) Login(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return apierror.New("Ingrese usuario y contraseña.")
	}
	resp, err := a.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if err := a.sess.SaveToken(ctx, resp.AccessToken); err != nil {
		return fmt.Errorf("app: guardar token: %w", err)
	}
	log.Info().Str("user", username).Msg("app: sesión iniciada")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	return a.sess.ClearToken(ctx)
}

func (a *App) LoggedIn(ctx context.Context) bool { return a.sess.LoggedIn(ctx) }

func (a *App) ToggleTheme(ctx context.Context) (string, error) {
	return a.sess.ToggleTheme(ctx)
}

// Backup asks the server to back up its data.
func (a *App) Backup(ctx context.Context) error {
	st, err := a.client.Backup(ctx)
	if err != nil {
		a.Notify(rowsync.Notice{Level: rowsync.LevelError, Message: "Error al realizar el backup: " + err.Error(), Err: err})
		return err
	}
	a.Notify(rowsync.Notice{Level: rowsync.LevelSuccess, Message: "Backup realizado con éxito: " + st.Message})
	return nil
}

// ── Export ────────────────────────────────────────────────────────────────────

// Export writes the saved rows of both tables to the day's sheet of the
// planilla workbook. The day is the compras date filter, else today.
func (a *App) Export(ctx context.Context) (string, error) {
	date := a.Filters(model.Compras).Date
	if date == "" {
		date = a.clock.Now().Format(time.DateOnly)
	}
	recs := make(map[model.Kind][]model.Record, len(model.Kinds))
	for _, k := range model.Kinds {
		for _, row := range a.tables[k].Rows() {
			if !row.IsNew() {
				recs[k] = append(recs[k], row.Record())
			}
		}
	}
	if err := export.WriteDay(a.exportTo, date, recs); err != nil {
		a.Notify(rowsync.Notice{Level: rowsync.LevelError, Message: "No se pudo exportar la planilla: " + err.Error(), Err: err})
		return "", err
	}
	a.Notify(rowsync.Notice{Level: rowsync.LevelSuccess, Message: fmt.Sprintf("Planilla exportada en %s (hoja %s).", a.exportTo, date)})
	return date, nil
}
