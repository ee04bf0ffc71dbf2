package table

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/candelento/balanza/internal/dto"
	"github.com/candelento/balanza/internal/model"

	"github.com/google/uuid"
)

// ── Events ────────────────────────────────────────────────────────────────────

type Event int

const (
	EventInput Event = iota
	EventFocusOut
	EventKeyDown
)

// FieldEvent is delivered to row listeners.
type FieldEvent struct {
	Row   *Row
	Field string
	// LeavingRow is set on focus-out when focus moved outside this row.
	LeavingRow bool
	Key        string
}

type Listener func(FieldEvent)

// ── Row ───────────────────────────────────────────────────────────────────────

// Row is the editable view of one record. Its kind never changes. The key is
// "<kind>:<id>" once persisted and "<kind>:tmp:<uuid>" before that.
type Row struct {
	mu sync.Mutex

	kind   model.Kind
	key    string
	tmpKey string
	id     *int

	cells map[string]string
	ro    map[string]string

	attached  bool
	listeners map[Event][]Listener

	pendingBruto bool
	pendingTara  bool
	editSeq      uint64

	saveEnabled bool
	copies      int
	invalid     map[string]string
	anomaly     bool
}

// NewRow returns a blank unsaved row.
func NewRow(kind model.Kind) *Row {
	tmp := fmt.Sprintf("%s:tmp:%s", kind, uuid.NewString())
	return &Row{
		kind:        kind,
		key:         tmp,
		tmpKey:      tmp,
		cells:       make(map[string]string),
		ro:          make(map[string]string),
		listeners:   make(map[Event][]Listener),
		saveEnabled: true,
		copies:      2,
	}
}

// RowFromRecord builds a row showing rec.
func RowFromRecord(kind model.Kind, rec model.Record) *Row {
	r := NewRow(kind)
	r.Load(rec)
	return r
}

// PersistedKey is the key of a saved record of kind.
func PersistedKey(kind model.Kind, id int) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

func (r *Row) Kind() model.Kind { return r.kind }

func (r *Row) Key() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.key
}

// TmpKey is the key the row was born with; it never changes.
func (r *Row) TmpKey() string { return r.tmpKey }

func (r *Row) ID() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.id == nil {
		return 0, false
	}
	return *r.id, true
}

// IsNew reports whether the row has never been saved.
func (r *Row) IsNew() bool {
	_, ok := r.ID()
	return !ok
}

// Get returns the text shown in field.
func (r *Row) Get(field string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(field)
}

func (r *Row) get(field string) string {
	if IsReadOnly(field) {
		return r.ro[field]
	}
	return r.cells[field]
}

// Set writes an editable cell without firing listeners.
func (r *Row) Set(field, value string) {
	if IsReadOnly(field) {
		return
	}
	r.mu.Lock()
	r.cells[field] = value
	r.mu.Unlock()
}

// ── Operator actions ──────────────────────────────────────────────────────────

// Input records a keystroke-level change and notifies input listeners.
func (r *Row) Input(field, value string) {
	if IsReadOnly(field) {
		return
	}
	r.mu.Lock()
	r.cells[field] = value
	r.editSeq++
	delete(r.invalid, field)
	r.mu.Unlock()
	r.fire(EventInput, FieldEvent{Row: r, Field: field})
}

// Blur notifies focus-out listeners. leavingRow is false when focus moved to
// another cell of this same row.
func (r *Row) Blur(field string, leavingRow bool) {
	r.fire(EventFocusOut, FieldEvent{Row: r, Field: field, LeavingRow: leavingRow})
}

func (r *Row) KeyDown(field, key string) {
	r.fire(EventKeyDown, FieldEvent{Row: r, Field: field, Key: key})
}

func (r *Row) fire(ev Event, fe FieldEvent) {
	r.mu.Lock()
	ls := append([]Listener(nil), r.listeners[ev]...)
	r.mu.Unlock()
	for _, l := range ls {
		l(fe)
	}
}

// ── Listener registry ─────────────────────────────────────────────────────────

// MarkAttached sets the attachment marker and reports whether it was unset.
func (r *Row) MarkAttached() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.attached {
		return false
	}
	r.attached = true
	return true
}

func (r *Row) Attached() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attached
}

func (r *Row) On(ev Event, l Listener) {
	r.mu.Lock()
	r.listeners[ev] = append(r.listeners[ev], l)
	r.mu.Unlock()
}

func (r *Row) ListenerCount(ev Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners[ev])
}

// ── Weights ───────────────────────────────────────────────────────────────────

// RecomputeNeto refreshes the neto cell from the typed weights.
func (r *Row) RecomputeNeto() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := model.ComputeNeto(r.cells[FieldBruto], r.cells[FieldTara], r.cells[FieldMerma])
	r.ro[FieldNeto] = model.FormatNeto(n)
	r.anomaly = model.NetoAnomaly(n)
	return r.ro[FieldNeto]
}

// NetoAnomaly reports a negative neto on display.
func (r *Row) NetoAnomaly() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.anomaly
}

// MarkPending flags an unsaved gross or tare change.
func (r *Row) MarkPending(field string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch field {
	case FieldBruto:
		r.pendingBruto = true
	case FieldTara:
		r.pendingTara = true
	}
}

func (r *Row) Pending() (bruto, tara bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pendingBruto, r.pendingTara
}

// ClearPending drops the weight markers unless the row was edited after seq.
func (r *Row) ClearPending(seq uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.editSeq != seq {
		return
	}
	r.pendingBruto, r.pendingTara = false, false
}

// StampTime writes now as HH:MM:SS into the entry or exit cell, whichever the
// pending markers point at, and returns the field it stamped ("" if none).
func (r *Row) StampTime(now time.Time) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	stamp := now.Format("15:04:05")
	empty := func(f string) bool {
		v := strings.TrimSpace(r.ro[f])
		return v == "" || v == "-"
	}
	var field string
	switch {
	case r.pendingBruto && empty(FieldHoraIngreso):
		field = FieldHoraIngreso
	case r.pendingTara && empty(FieldHoraSalida):
		field = FieldHoraSalida
	case empty(FieldHoraIngreso):
		field = FieldHoraIngreso
	case empty(FieldHoraSalida):
		field = FieldHoraSalida
	default:
		return ""
	}
	r.ro[field] = stamp
	return field
}

// ── Incoterm ──────────────────────────────────────────────────────────────────

func (r *Row) Incoterm() string { return r.Get(FieldIncoterm) }

// SetIncoterm checks or unchecks one term. Checking a term unchecks the other.
func (r *Row) SetIncoterm(inc model.Incoterm, checked bool) {
	if r.kind != model.Ventas {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case checked:
		r.cells[FieldIncoterm] = string(inc)
	case r.cells[FieldIncoterm] == string(inc):
		r.cells[FieldIncoterm] = ""
	}
	r.editSeq++
}

// ── Save plumbing ─────────────────────────────────────────────────────────────

// Draft captures what the operator typed, plus the edit sequence it reflects.
func (r *Row) Draft() (dto.Draft, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return dto.Draft{
		Kind:          r.kind,
		Party:         r.cells[r.kind.PartyField()],
		Mercaderia:    r.cells[FieldMercaderia],
		Bruto:         r.cells[FieldBruto],
		Tara:          r.cells[FieldTara],
		Merma:         r.cells[FieldMerma],
		Transport:     r.cells[r.kind.TransportField()],
		Patente:       r.cells[FieldPatente],
		Observaciones: r.cells[FieldObservaciones],
		Incoterm:      r.cells[FieldIncoterm],
		Remito:        r.cells[FieldRemito],
	}, r.editSeq
}

// ApplySaved copies the server-authoritative fields of a save response into
// the row and returns the key before and after.
func (r *Row) ApplySaved(rec model.Record) (oldKey, newKey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	oldKey = r.key
	if id, ok := rec.IDValue(); ok {
		r.id = &id
		r.key = PersistedKey(r.kind, id)
		r.ro[FieldID] = strconv.Itoa(id)
	}
	if rec.Fecha != "" {
		r.ro[FieldFecha] = rec.Fecha
	}
	if rec.Neto != nil {
		r.ro[FieldNeto] = strconv.FormatFloat(*rec.Neto, 'f', 2, 64)
		r.anomaly = *rec.Neto < 0
	}
	// Times absent from the response keep the optimistic stamp.
	if rec.HoraIngreso != nil {
		r.ro[FieldHoraIngreso] = *rec.HoraIngreso
	}
	if rec.HoraSalida != nil {
		r.ro[FieldHoraSalida] = *rec.HoraSalida
	}
	r.invalid = nil
	return oldKey, r.key
}

// Load replaces every cell with the values of rec.
func (r *Row) Load(rec model.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := rec.IDValue(); ok {
		r.id = &id
		r.key = PersistedKey(r.kind, id)
		r.ro[FieldID] = strconv.Itoa(id)
	}
	r.ro[FieldFecha] = rec.Fecha
	r.ro[FieldHoraIngreso] = deref(rec.HoraIngreso)
	r.ro[FieldHoraSalida] = deref(rec.HoraSalida)

	r.cells[r.kind.PartyField()] = rec.Party(r.kind)
	r.cells[FieldMercaderia] = rec.Mercaderia
	r.cells[FieldBruto] = model.FormatWeight(rec.Bruto)
	r.cells[FieldTara] = model.FormatWeight(rec.Tara)
	r.cells[FieldMerma] = model.FormatWeight(rec.Merma)
	r.cells[r.kind.TransportField()] = rec.Transport(r.kind)
	r.cells[FieldPatente] = rec.Patente
	r.cells[FieldObservaciones] = rec.Observaciones
	if r.kind == model.Ventas {
		r.cells[FieldIncoterm] = ""
		if rec.Incoterm != nil {
			r.cells[FieldIncoterm] = string(*rec.Incoterm)
		}
		r.cells[FieldRemito] = ""
		if rec.Remito != nil {
			r.cells[FieldRemito] = strconv.Itoa(*rec.Remito)
		}
	}

	if rec.Neto != nil {
		r.ro[FieldNeto] = strconv.FormatFloat(*rec.Neto, 'f', 2, 64)
		r.anomaly = *rec.Neto < 0
	} else {
		n := model.ComputeNeto(r.cells[FieldBruto], r.cells[FieldTara], r.cells[FieldMerma])
		r.ro[FieldNeto] = model.FormatNeto(n)
		r.anomaly = model.NetoAnomaly(n)
	}
}

// Record returns the row as a record, for caches and exports.
func (r *Row) Record() model.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := model.Record{
		Fecha:         r.ro[FieldFecha],
		Mercaderia:    r.cells[FieldMercaderia],
		Bruto:         parseOptional(r.cells[FieldBruto]),
		Tara:          parseOptional(r.cells[FieldTara]),
		Merma:         parseOptional(r.cells[FieldMerma]),
		Neto:          parseOptional(r.ro[FieldNeto]),
		Patente:       r.cells[FieldPatente],
		Observaciones: r.cells[FieldObservaciones],
	}
	if r.id != nil {
		rec.ID = model.Ptr(*r.id)
	}
	if v := r.ro[FieldHoraIngreso]; v != "" {
		rec.HoraIngreso = model.Ptr(v)
	}
	if v := r.ro[FieldHoraSalida]; v != "" {
		rec.HoraSalida = model.Ptr(v)
	}
	if r.kind == model.Ventas {
		rec.Cliente = r.cells[FieldCliente]
		rec.Transporte = r.cells[FieldTransporte]
		if inc := r.cells[FieldIncoterm]; inc != "" {
			rec.Incoterm = model.Ptr(model.Incoterm(inc))
		}
		if n, err := strconv.Atoi(strings.TrimSpace(r.cells[FieldRemito])); err == nil {
			rec.Remito = &n
		}
	} else {
		rec.Proveedor = r.cells[FieldProveedor]
		rec.Chofer = r.cells[FieldChofer]
	}
	return rec
}

// ── Save control, copies, validation marks ────────────────────────────────────

func (r *Row) SetSaveEnabled(v bool) {
	r.mu.Lock()
	r.saveEnabled = v
	r.mu.Unlock()
}

func (r *Row) SaveEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saveEnabled
}

func (r *Row) Copies() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.copies
}

// SetCopies clamps n to the 1..3 range of the selector.
func (r *Row) SetCopies(n int) {
	if n < 1 {
		n = 1
	}
	if n > 3 {
		n = 3
	}
	r.mu.Lock()
	r.copies = n
	r.mu.Unlock()
}

// SetInvalid marks the fields that failed validation with their message.
func (r *Row) SetInvalid(fields map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalid = make(map[string]string, len(fields))
	for k, v := range fields {
		r.invalid[k] = v
	}
}

// Invalid returns the validation message of field, "" when valid.
func (r *Row) Invalid(field string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.invalid[field]
}

// ── Snapshots ─────────────────────────────────────────────────────────────────

// Snapshot holds the typed values that survive a refresh of a focused row.
type Snapshot struct {
	Party, Mercaderia, Bruto, Tara, Merma string
}

func (r *Row) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		Party:      r.cells[r.kind.PartyField()],
		Mercaderia: r.cells[FieldMercaderia],
		Bruto:      r.cells[FieldBruto],
		Tara:       r.cells[FieldTara],
		Merma:      r.cells[FieldMerma],
	}
}

// Restore re-applies a snapshot and recomputes neto from it.
func (r *Row) Restore(s Snapshot) {
	r.mu.Lock()
	r.cells[r.kind.PartyField()] = s.Party
	r.cells[FieldMercaderia] = s.Mercaderia
	r.cells[FieldBruto] = s.Bruto
	r.cells[FieldTara] = s.Tara
	r.cells[FieldMerma] = s.Merma
	r.mu.Unlock()
	r.RecomputeNeto()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseOptional(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
