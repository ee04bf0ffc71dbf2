// Package rowsync keeps visible rows in sync with the server: debounced
// autosave per row, a single save in flight per session, and explicit saves
// that wait for the gate instead of being dropped.
package rowsync

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/candelento/balanza/internal/apierror"
	"github.com/candelento/balanza/internal/model"
	"github.com/candelento/balanza/internal/table"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Save delays.
const (
	WeightInputDelay = 800 * time.Millisecond
	WeightBlurDelay  = 200 * time.Millisecond
	FieldInputDelay  = 600 * time.Millisecond
	FieldBlurDelay   = 500 * time.Millisecond
	BusyRetryDelay   = 250 * time.Millisecond
	ToastThrottle    = 15 * time.Second
)

// Operator-facing messages.
const (
	MsgSaved     = "Guardado exitoso."
	MsgAutoSaved = "Cambios guardados."
	msgSaveError = "No se pudo guardar el registro: "
)

// Writer performs the network write. client.Client satisfies it.
type Writer interface {
	Create(ctx context.Context, kind model.Kind, payload any) (*model.Record, error)
	Update(ctx context.Context, kind model.Kind, id int, payload any) (*model.Record, error)
}

// Rows is told when a row's key changes after its first save.
type Rows interface {
	Rekey(oldKey, newKey string)
}

type Level int

const (
	LevelSuccess Level = iota
	LevelError
)

// Notice is a user-visible notification about a row.
type Notice struct {
	Level   Level
	Kind    model.Kind
	RowKey  string
	Message string
	Err     error
}

type Notifier interface {
	Notify(Notice)
}

// SaveOptions select the feedback tier of a save.
type SaveOptions struct {
	Silent   bool
	Explicit bool
}

type Config struct {
	Writer   Writer
	Notifier Notifier
	Rows     Rows
	Clock    clockwork.Clock
	Gate     *Gate
	// Context is used by saves fired from timers.
	Context context.Context
	// OnSaved runs after every successful save with the server record.
	OnSaved func(row *table.Row, rec model.Record)
}

type rowState struct {
	row       *table.Row
	saving    bool
	intent    bool
	lastToast time.Time
}

// Engine is session-scoped: one per console, shared by both tables.
type Engine struct {
	w       Writer
	notify  Notifier
	rows    Rows
	clock   clockwork.Clock
	gate    *Gate
	sched   *Scheduler
	ctx     context.Context
	onSaved func(*table.Row, model.Record)

	mu      sync.Mutex
	states  map[string]*rowState
	intents []string
}

func New(cfg Config) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Gate == nil {
		cfg.Gate = &Gate{}
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	return &Engine{
		w:       cfg.Writer,
		notify:  cfg.Notifier,
		rows:    cfg.Rows,
		clock:   cfg.Clock,
		gate:    cfg.Gate,
		sched:   NewScheduler(cfg.Clock),
		ctx:     cfg.Context,
		onSaved: cfg.OnSaved,
		states:  make(map[string]*rowState),
	}
}

// SetRows installs the rekey target after construction.
func (e *Engine) SetRows(r Rows) { e.rows = r }

func (e *Engine) Gate() *Gate { return e.gate }

// ── Attachment ────────────────────────────────────────────────────────────────

// Attach wires the row's input, focus-out and key listeners. Attaching a row
// twice is a no-op.
func (e *Engine) Attach(row *table.Row) {
	if !row.MarkAttached() {
		return
	}
	e.state(row)
	row.On(table.EventInput, e.onInput)
	row.On(table.EventFocusOut, e.onFocusOut)
	row.On(table.EventKeyDown, e.onKeyDown)
}

func (e *Engine) onInput(ev table.FieldEvent) {
	if table.IsWeight(ev.Field) {
		ev.Row.RecomputeNeto()
		ev.Row.MarkPending(ev.Field)
		e.ScheduleSave(ev.Row, WeightInputDelay, true)
		return
	}
	e.ScheduleSave(ev.Row, FieldInputDelay, false)
}

func (e *Engine) onFocusOut(ev table.FieldEvent) {
	if !ev.LeavingRow {
		return
	}
	if table.IsWeight(ev.Field) {
		ev.Row.RecomputeNeto()
		e.ScheduleSave(ev.Row, WeightBlurDelay, true)
		return
	}
	e.ScheduleSave(ev.Row, FieldBlurDelay, false)
}

// Enter never saves; F8 is the explicit save.
func (e *Engine) onKeyDown(ev table.FieldEvent) {
	if strings.EqualFold(ev.Key, "f8") {
		_ = e.ExplicitSave(e.ctx, ev.Row)
	}
}

// ── Scheduling ────────────────────────────────────────────────────────────────

// ScheduleSave (re)arms the row's single save timer. When it fires while the
// gate is held it re-arms after BusyRetryDelay.
func (e *Engine) ScheduleSave(row *table.Row, delay time.Duration, silent bool) {
	e.state(row)
	e.sched.Arm(row.Key(), delay, func() { e.fire(row, silent) })
}

func (e *Engine) fire(row *table.Row, silent bool) {
	if e.gate.Held() {
		e.ScheduleSave(row, BusyRetryDelay, silent)
		return
	}
	err := e.Save(e.ctx, row, SaveOptions{Silent: silent})
	if errors.Is(err, apierror.ErrBusy) {
		e.ScheduleSave(row, BusyRetryDelay, silent)
	}
}

// Forget drops every trace of a row removed from the view.
func (e *Engine) Forget(key string) {
	e.sched.Cancel(key)
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.states, key)
	e.intents = removeKey(e.intents, key)
}

// ── Save ──────────────────────────────────────────────────────────────────────

// Save writes the row. It fails with apierror.ErrBusy, without touching the
// network, when another save holds the gate. After the gate is released any
// explicit saves recorded meanwhile run.
func (e *Engine) Save(ctx context.Context, row *table.Row, opts SaveOptions) error {
	if !e.gate.TryAcquire() {
		return apierror.ErrBusy
	}
	err := e.save(ctx, row, opts)
	e.gate.Release()
	e.drain(ctx)
	return err
}

func (e *Engine) save(ctx context.Context, row *table.Row, opts SaveOptions) error {
	kind := row.Kind()
	row.SetSaveEnabled(false)
	e.setSaving(row, true)
	defer func() {
		e.setSaving(row, false)
		row.SetSaveEnabled(true)
	}()

	draft, seq := row.Draft()
	if err := draft.Validate(); err != nil {
		var ve *apierror.ValidationError
		if errors.As(err, &ve) {
			row.SetInvalid(ve.Fields)
		}
		e.fail(row, opts, err)
		return err
	}
	payload, err := draft.Payload()
	if err != nil {
		e.fail(row, opts, err)
		return err
	}

	var saved *model.Record
	id, persisted := row.ID()
	if persisted {
		saved, err = e.w.Update(ctx, kind, id, payload)
	} else {
		saved, err = e.w.Create(ctx, kind, payload)
	}
	if err != nil {
		e.fail(row, opts, err)
		return err
	}

	oldKey, newKey := row.ApplySaved(*saved)
	if oldKey != newKey {
		e.rekey(oldKey, newKey)
	}
	row.ClearPending(seq)
	log.Info().Str("kind", string(kind)).Str("row", newKey).Bool("created", !persisted).Bool("explicit", opts.Explicit).Msg("rowsync: registro guardado")

	if e.onSaved != nil {
		e.onSaved(row, *saved)
	}
	e.succeed(row, opts)
	return nil
}

func (e *Engine) succeed(row *table.Row, opts SaveOptions) {
	if opts.Explicit && !opts.Silent {
		e.emit(Notice{Level: LevelSuccess, Kind: row.Kind(), RowKey: row.Key(), Message: MsgSaved})
		return
	}
	now := e.clock.Now()
	e.mu.Lock()
	st := e.stateLocked(row)
	show := st.lastToast.IsZero() || now.Sub(st.lastToast) > ToastThrottle
	if show {
		st.lastToast = now
	}
	e.mu.Unlock()
	if show {
		e.emit(Notice{Level: LevelSuccess, Kind: row.Kind(), RowKey: row.Key(), Message: MsgAutoSaved})
	}
}

// fail reports a failed save. Silent saves stay quiet unless the session is
// no longer authenticated.
func (e *Engine) fail(row *table.Row, opts SaveOptions, err error) {
	log.Warn().Err(err).Str("kind", string(row.Kind())).Str("row", row.Key()).Bool("silent", opts.Silent).Msg("rowsync: guardado fallido")
	if opts.Silent && !apierror.IsAuth(err) {
		return
	}
	e.emit(Notice{Level: LevelError, Kind: row.Kind(), RowKey: row.Key(), Message: msgSaveError + err.Error(), Err: err})
}

func (e *Engine) emit(n Notice) {
	if e.notify != nil {
		e.notify.Notify(n)
	}
}

// ── Explicit save ─────────────────────────────────────────────────────────────

// ExplicitSave is the F8 path. It cancels the row's pending timer, stamps the
// entry or exit time optimistically and saves; while the gate is held the
// request is recorded and runs once the in-flight save completes.
func (e *Engine) ExplicitSave(ctx context.Context, row *table.Row) error {
	if row == nil {
		return nil
	}
	e.sched.Cancel(row.Key())
	if f := row.StampTime(e.clock.Now()); f != "" {
		log.Debug().Str("row", row.Key()).Str("field", f).Msg("rowsync: hora optimista")
	}

	if !e.gate.Held() {
		err := e.Save(ctx, row, SaveOptions{Explicit: true})
		if !errors.Is(err, apierror.ErrBusy) {
			return err
		}
	}
	e.enqueue(ctx, row)
	return nil
}

// enqueue records an explicit intent and covers the race where the gate was
// released before the intent landed.
func (e *Engine) enqueue(ctx context.Context, row *table.Row) {
	e.mu.Lock()
	st := e.stateLocked(row)
	if !st.intent {
		st.intent = true
		e.intents = append(e.intents, row.Key())
	}
	e.mu.Unlock()
	log.Debug().Str("row", row.Key()).Msg("rowsync: guardado explícito en espera")
	if !e.gate.Held() {
		e.drain(ctx)
	}
}

// drain runs recorded explicit saves one by one.
func (e *Engine) drain(ctx context.Context) {
	for {
		row := e.takeIntent()
		if row == nil {
			return
		}
		err := e.Save(ctx, row, SaveOptions{Explicit: true})
		if errors.Is(err, apierror.ErrBusy) {
			// Someone else took the gate; put the intent back for them.
			e.enqueue(ctx, row)
			return
		}
	}
}

func (e *Engine) takeIntent() *table.Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	for len(e.intents) > 0 {
		key := e.intents[0]
		e.intents = e.intents[1:]
		if st, ok := e.states[key]; ok && st.intent {
			st.intent = false
			return st.row
		}
	}
	return nil
}

// ── Per-row state ─────────────────────────────────────────────────────────────

func (e *Engine) state(row *table.Row) *rowState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked(row)
}

func (e *Engine) stateLocked(row *table.Row) *rowState {
	key := row.Key()
	st, ok := e.states[key]
	if !ok {
		st = &rowState{row: row}
		e.states[key] = st
	}
	return st
}

func (e *Engine) setSaving(row *table.Row, v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stateLocked(row).saving = v
}

// rekey moves every per-row structure from the temporary key to the
// persisted one.
func (e *Engine) rekey(oldKey, newKey string) {
	e.sched.Rekey(oldKey, newKey)
	e.mu.Lock()
	if st, ok := e.states[oldKey]; ok {
		delete(e.states, oldKey)
		e.states[newKey] = st
	}
	for i, k := range e.intents {
		if k == oldKey {
			e.intents[i] = newKey
		}
	}
	e.mu.Unlock()
	if e.rows != nil {
		e.rows.Rekey(oldKey, newKey)
	}
}

// State reports the tagged state of a row.
func (e *Engine) State(row *table.Row) State {
	key := row.Key()
	s := State{Lifecycle: LifecycleNew, Phase: PhaseIdle}
	if !row.IsNew() {
		s.Lifecycle = LifecyclePersisted
	}
	e.mu.Lock()
	st, ok := e.states[key]
	if ok {
		s.Intent = st.intent
	}
	saving := ok && st.saving
	e.mu.Unlock()
	switch {
	case saving:
		s.Phase = PhaseSaving
	case e.sched.Pending(key):
		s.Phase = PhasePending
	}
	return s
}

func removeKey(keys []string, key string) []string {
	out := keys[:0]
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}
