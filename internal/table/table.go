// Package table projects records into editable rows and keeps in-progress
// edits alive across background refreshes.
package table

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/candelento/balanza/internal/model"

	"github.com/rs/zerolog/log"
)

// IncotermSaveDelay is the silent save delay after toggling an incoterm.
const IncotermSaveDelay = 600 * time.Millisecond

// Autosaver wires rows to the save engine.
type Autosaver interface {
	Attach(row *Row)
	ScheduleSave(row *Row, delay time.Duration, silent bool)
	Forget(key string)
}

// Table holds the rows of one kind in display order.
type Table struct {
	mu      sync.RWMutex
	kind    model.Kind
	rows    []*Row
	byKey   map[string]*Row
	aliases map[string]string

	focus     *Focus
	saver     Autosaver
	productos []string
}

func New(kind model.Kind, focus *Focus, saver Autosaver) *Table {
	if focus == nil {
		focus = NewFocus()
	}
	return &Table{
		kind:    kind,
		byKey:   make(map[string]*Row),
		aliases: make(map[string]string),
		focus:   focus,
		saver:   saver,
	}
}

func (t *Table) Kind() model.Kind { return t.kind }

// SetSaver installs the autosaver; rows already present are attached.
func (t *Table) SetSaver(s Autosaver) {
	t.mu.Lock()
	t.saver = s
	rows := append([]*Row(nil), t.rows...)
	t.mu.Unlock()
	for _, r := range rows {
		s.Attach(r)
	}
}

// ── Render ────────────────────────────────────────────────────────────────────

// Render shows records newest first. Existing rows are reused by key, so the
// engine state bound to them survives. A focused row keeps the party,
// product and weights the operator typed. Unsaved rows stay on top; saved
// rows missing from records are dropped.
func (t *Table) Render(records []model.Record) {
	focused, _ := t.focus.Current()
	var snap *Snapshot
	if focused != nil && focused.Kind() == t.kind {
		s := focused.Snapshot()
		snap = &s
	}

	sorted := append([]model.Record(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, aok := sorted[i].IDValue()
		b, bok := sorted[j].IDValue()
		if aok != bok {
			return !aok
		}
		return a > b
	})

	t.mu.Lock()
	// Saved rows are matched by their own key: a row whose first save just
	// landed may still sit under its temporary key in byKey.
	live := make(map[string]*Row, len(t.rows))
	var unsaved, next []*Row
	for _, r := range t.rows {
		if r.IsNew() {
			unsaved = append(unsaved, r)
			continue
		}
		live[r.Key()] = r
	}
	seen := make(map[string]bool, len(sorted))
	for _, rec := range sorted {
		id, ok := rec.IDValue()
		if !ok {
			// The server never returns unsaved records; a local cache might.
			r := RowFromRecord(t.kind, rec)
			next = append(next, r)
			continue
		}
		key := PersistedKey(t.kind, id)
		if seen[key] {
			continue
		}
		seen[key] = true
		r, exists := live[key]
		if exists {
			r.Load(rec)
		} else {
			r = RowFromRecord(t.kind, rec)
		}
		if snap != nil && r == focused {
			r.Restore(*snap)
		}
		next = append(next, r)
	}

	var dropped []*Row
	for key, r := range live {
		if !seen[key] {
			dropped = append(dropped, r)
		}
	}

	t.rows = append(unsaved, next...)
	t.byKey = make(map[string]*Row, len(t.rows))
	for _, r := range t.rows {
		t.byKey[r.Key()] = r
	}
	rows := append([]*Row(nil), t.rows...)
	saver := t.saver
	t.mu.Unlock()

	for _, r := range dropped {
		t.focus.Forget(r)
		if saver != nil {
			saver.Forget(r.Key())
		}
	}
	if saver != nil {
		for _, r := range rows {
			saver.Attach(r)
		}
	}
	log.Debug().Str("kind", string(t.kind)).Int("rows", len(rows)).Msg("table: render")
}

// ── Row management ────────────────────────────────────────────────────────────

// AddNew inserts a blank row at the top and returns it.
func (t *Table) AddNew() *Row {
	r := NewRow(t.kind)
	t.mu.Lock()
	t.rows = append([]*Row{r}, t.rows...)
	t.byKey[r.Key()] = r
	saver := t.saver
	t.mu.Unlock()
	if saver != nil {
		saver.Attach(r)
	}
	return r
}

// Remove takes row out of the view.
func (t *Table) Remove(row *Row) {
	t.mu.Lock()
	t.rows = without(t.rows, row)
	delete(t.byKey, row.Key())
	saver := t.saver
	t.mu.Unlock()
	t.focus.Forget(row)
	if saver != nil {
		saver.Forget(row.Key())
	}
}

// Rekey follows a row whose key changed after its first save. A row a
// refresh built for the same record while the create was in flight is
// dropped; the saved row takes its place.
func (t *Table) Rekey(oldKey, newKey string) {
	if oldKey == newKey {
		return
	}
	t.mu.Lock()
	var dup *Row
	if r, ok := t.byKey[oldKey]; ok {
		delete(t.byKey, oldKey)
		if other, ok := t.byKey[newKey]; ok && other != r {
			dup = other
			t.rows = without(t.rows, other)
		}
		t.byKey[newKey] = r
	}
	t.aliases[oldKey] = newKey
	t.mu.Unlock()

	if dup != nil {
		t.focus.Forget(dup)
		log.Debug().Str("kind", string(t.kind)).Str("row", newKey).Msg("table: fila duplicada descartada")
	}
}

// Lookup finds a row by key, following keys retired by Rekey.
func (t *Table) Lookup(key string) *Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if r, ok := t.byKey[key]; ok {
		return r
	}
	if alias, ok := t.aliases[key]; ok {
		return t.byKey[alias]
	}
	return nil
}

// Rows returns the rows in display order.
func (t *Table) Rows() []*Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]*Row(nil), t.rows...)
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Index returns the display position of row, -1 when absent.
func (t *Table) Index(row *Row) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i, r := range t.rows {
		if r == row {
			return i
		}
	}
	return -1
}

// ── Incoterm ──────────────────────────────────────────────────────────────────

// ToggleIncoterm checks or unchecks one term on a venta row, unchecking the
// other, and schedules a silent save.
func (t *Table) ToggleIncoterm(row *Row, inc model.Incoterm, checked bool) {
	if row.Kind() != model.Ventas {
		return
	}
	row.SetIncoterm(inc, checked)
	t.mu.RLock()
	saver := t.saver
	t.mu.RUnlock()
	if saver != nil {
		saver.ScheduleSave(row, IncotermSaveDelay, true)
	}
}

// ── Product suggestions ───────────────────────────────────────────────────────

func (t *Table) SetProductos(list []string) {
	t.mu.Lock()
	t.productos = append([]string(nil), list...)
	t.mu.Unlock()
}

// Suggest returns products containing prefix (case-insensitive), prefix
// matches first.
func (t *Table) Suggest(prefix string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p := strings.ToLower(strings.TrimSpace(prefix))
	if p == "" {
		return append([]string(nil), t.productos...)
	}
	var head, tail []string
	for _, name := range t.productos {
		l := strings.ToLower(name)
		switch {
		case strings.HasPrefix(l, p):
			head = append(head, name)
		case strings.Contains(l, p):
			tail = append(tail, name)
		}
	}
	return append(head, tail...)
}

func without(rows []*Row, row *Row) []*Row {
	for i, r := range rows {
		if r == row {
			return append(rows[:i:i], rows[i+1:]...)
		}
	}
	return rows
}
