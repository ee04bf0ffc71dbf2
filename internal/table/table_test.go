package table

import (
	"sync"
	"testing"
	"time"

	"github.com/candelento/balanza/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Recording autosaver ───────────────────────────────────────────────────────

type scheduled struct {
	key    string
	delay  time.Duration
	silent bool
}

type stubSaver struct {
	mu        sync.Mutex
	attached  map[*Row]int
	scheduled []scheduled
	forgotten []string
}

func newStubSaver() *stubSaver { return &stubSaver{attached: make(map[*Row]int)} }

func (s *stubSaver) Attach(r *Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.MarkAttached() {
		r.On(EventInput, func(FieldEvent) {})
		s.attached[r]++
	}
}

func (s *stubSaver) ScheduleSave(r *Row, d time.Duration, silent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduled = append(s.scheduled, scheduled{r.Key(), d, silent})
}

func (s *stubSaver) Forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forgotten = append(s.forgotten, key)
}

func rec(id int, party string, bruto float64) model.Record {
	return model.Record{ID: model.Ptr(id), Proveedor: party, Cliente: party, Bruto: model.Ptr(bruto), Tara: model.Ptr(0.0), Merma: model.Ptr(0.0), Neto: model.Ptr(bruto)}
}

// ── Render ────────────────────────────────────────────────────────────────────

func TestRenderOrdersNewestFirst(t *testing.T) {
	tbl := New(model.Compras, NewFocus(), newStubSaver())
	tbl.Render([]model.Record{rec(1, "A", 10), rec(3, "C", 30), rec(2, "B", 20)})

	rows := tbl.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "compras:3", rows[0].Key())
	assert.Equal(t, "compras:2", rows[1].Key())
	assert.Equal(t, "compras:1", rows[2].Key())
}

func TestRenderReusesRowsAndAttachesOnce(t *testing.T) {
	saver := newStubSaver()
	tbl := New(model.Compras, NewFocus(), saver)
	tbl.Render([]model.Record{rec(1, "A", 10)})
	first := tbl.Rows()[0]

	tbl.Render([]model.Record{rec(1, "A2", 11)})
	second := tbl.Rows()[0]

	assert.Same(t, first, second)
	assert.Equal(t, "A2", second.Get(FieldProveedor))
	assert.Equal(t, 1, saver.attached[first])
	assert.Equal(t, 1, first.ListenerCount(EventInput))
}

func TestRenderPreservesFocusedEdits(t *testing.T) {
	focus := NewFocus()
	tbl := New(model.Compras, focus, newStubSaver())
	tbl.Render([]model.Record{rec(1, "ACME", 100), rec(2, "Otro", 5)})

	row := tbl.Lookup("compras:1")
	focus.Move(row, FieldBruto)
	row.Input(FieldProveedor, "ACME SA")
	row.Input(FieldBruto, "120")
	row.Input(FieldTara, "20")
	row.Input(FieldPatente, "AB123CD")

	tbl.Render([]model.Record{rec(1, "ACME", 100), rec(2, "Otro (server)", 5)})

	assert.Equal(t, "ACME SA", row.Get(FieldProveedor))
	assert.Equal(t, "120", row.Get(FieldBruto))
	assert.Equal(t, "20", row.Get(FieldTara))
	assert.Equal(t, "100.00", row.Get(FieldNeto))
	// Only party, product and weights survive; other cells follow the server.
	assert.Equal(t, "", row.Get(FieldPatente))
	assert.Equal(t, "Otro (server)", tbl.Lookup("compras:2").Get(FieldProveedor))
}

func TestRenderKeepsUnsavedAndDropsDeleted(t *testing.T) {
	saver := newStubSaver()
	tbl := New(model.Compras, NewFocus(), saver)
	tbl.Render([]model.Record{rec(1, "A", 10), rec(2, "B", 20)})
	fresh := tbl.AddNew()

	tbl.Render([]model.Record{rec(1, "A", 10)})

	rows := tbl.Rows()
	require.Len(t, rows, 2)
	assert.Same(t, fresh, rows[0])
	assert.Nil(t, tbl.Lookup("compras:2"))
	assert.Contains(t, saver.forgotten, "compras:2")
}

func TestAddNewRowIsBlankAndAttached(t *testing.T) {
	saver := newStubSaver()
	tbl := New(model.Ventas, NewFocus(), saver)
	r := tbl.AddNew()

	assert.True(t, r.IsNew())
	assert.Contains(t, r.Key(), "ventas:tmp:")
	assert.Equal(t, 2, r.Copies())
	assert.Equal(t, 1, saver.attached[r])
}

func TestRekeyAndLookupAlias(t *testing.T) {
	tbl := New(model.Compras, NewFocus(), newStubSaver())
	r := tbl.AddNew()
	tmp := r.Key()

	old, now := r.ApplySaved(model.Record{ID: model.Ptr(9), Neto: model.Ptr(450.0)})
	tbl.Rekey(old, now)

	assert.Equal(t, "compras:9", now)
	assert.Same(t, r, tbl.Lookup("compras:9"))
	assert.Same(t, r, tbl.Lookup(tmp))

	// A later refresh containing the record reuses the same row.
	tbl.Render([]model.Record{rec(9, "ACME", 500)})
	require.Len(t, tbl.Rows(), 1)
	assert.Same(t, r, tbl.Rows()[0])
}

func TestRekeyDropsRowRenderedDuringCreate(t *testing.T) {
	saver := newStubSaver()
	focus := NewFocus()
	tbl := New(model.Compras, focus, saver)
	r := tbl.AddNew()
	r.Input(FieldProveedor, "ACME")

	// The record lands in a refresh before the create response does.
	tbl.Render([]model.Record{rec(1, "ACME", 500)})
	require.Equal(t, 2, tbl.Len())
	other := tbl.Lookup("compras:1")
	require.NotSame(t, r, other)
	focus.Move(other, FieldBruto)

	old, now := r.ApplySaved(model.Record{ID: model.Ptr(1)})
	tbl.Rekey(old, now)

	require.Equal(t, 1, tbl.Len())
	assert.Same(t, r, tbl.Rows()[0])
	assert.Same(t, r, tbl.Lookup("compras:1"))
	assert.Equal(t, -1, tbl.Index(other))
	cur, _ := focus.Current()
	assert.Nil(t, cur)
	assert.NotContains(t, saver.forgotten, "compras:1")
}

func TestRenderReusesRowSavedBeforeRekey(t *testing.T) {
	tbl := New(model.Compras, NewFocus(), newStubSaver())
	r := tbl.AddNew()
	old, now := r.ApplySaved(model.Record{ID: model.Ptr(4)})

	tbl.Render([]model.Record{rec(4, "ACME", 500)})
	require.Equal(t, 1, tbl.Len())
	assert.Same(t, r, tbl.Rows()[0])

	tbl.Rekey(old, now)
	require.Equal(t, 1, tbl.Len())
	assert.Same(t, r, tbl.Lookup(old))
}

func TestRemove(t *testing.T) {
	saver := newStubSaver()
	focus := NewFocus()
	tbl := New(model.Compras, focus, saver)
	r := tbl.AddNew()
	focus.Move(r, FieldProveedor)

	tbl.Remove(r)
	assert.Equal(t, 0, tbl.Len())
	assert.False(t, focus.Editing())
	assert.Contains(t, saver.forgotten, r.Key())
}

// ── Incoterm ──────────────────────────────────────────────────────────────────

func TestIncotermMutualExclusion(t *testing.T) {
	saver := newStubSaver()
	tbl := New(model.Ventas, NewFocus(), saver)
	r := tbl.AddNew()

	tbl.ToggleIncoterm(r, model.FOB, true)
	assert.Equal(t, "FOB", r.Incoterm())

	tbl.ToggleIncoterm(r, model.CIF, true)
	assert.Equal(t, "CIF", r.Incoterm())

	tbl.ToggleIncoterm(r, model.FOB, false)
	assert.Equal(t, "CIF", r.Incoterm(), "unchecking the unchecked term changes nothing")

	tbl.ToggleIncoterm(r, model.CIF, false)
	assert.Equal(t, "", r.Incoterm())

	require.Len(t, saver.scheduled, 4)
	for _, s := range saver.scheduled {
		assert.Equal(t, IncotermSaveDelay, s.delay)
		assert.True(t, s.silent)
	}
}

func TestIncotermIgnoredOnCompras(t *testing.T) {
	saver := newStubSaver()
	tbl := New(model.Compras, NewFocus(), saver)
	r := tbl.AddNew()
	tbl.ToggleIncoterm(r, model.CIF, true)
	assert.Equal(t, "", r.Incoterm())
	assert.Empty(t, saver.scheduled)
}

// ── Row ───────────────────────────────────────────────────────────────────────

func TestRecomputeNeto(t *testing.T) {
	r := NewRow(model.Compras)
	r.Set(FieldBruto, "100")
	r.Set(FieldTara, "10")
	r.Set(FieldMerma, "2")
	assert.Equal(t, "88.00", r.RecomputeNeto())
	assert.False(t, r.NetoAnomaly())

	r.Set(FieldTara, "150")
	assert.Equal(t, "-52.00", r.RecomputeNeto())
	assert.True(t, r.NetoAnomaly())
}

func TestStampTime(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 5, 7, 0, time.Local)

	r := NewRow(model.Compras)
	r.MarkPending(FieldBruto)
	assert.Equal(t, FieldHoraIngreso, r.StampTime(now))
	assert.Equal(t, "09:05:07", r.Get(FieldHoraIngreso))

	r2 := NewRow(model.Compras)
	r2.Load(model.Record{ID: model.Ptr(1), HoraIngreso: model.Ptr("08:00:00")})
	r2.MarkPending(FieldTara)
	assert.Equal(t, FieldHoraSalida, r2.StampTime(now))
	assert.Equal(t, "08:00:00", r2.Get(FieldHoraIngreso))

	r3 := NewRow(model.Compras)
	r3.Load(model.Record{ID: model.Ptr(1), HoraIngreso: model.Ptr("08:00:00"), HoraSalida: model.Ptr("08:30:00")})
	assert.Equal(t, "", r3.StampTime(now))
}

func TestApplySavedKeepsStampWhenTimesAbsent(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 30, 0, 0, time.Local)
	r := NewRow(model.Compras)
	r.MarkPending(FieldBruto)
	require.Equal(t, FieldHoraIngreso, r.StampTime(now))

	r.ApplySaved(model.Record{ID: model.Ptr(3), Neto: model.Ptr(10.0)})
	assert.Equal(t, "09:30:00", r.Get(FieldHoraIngreso))
	assert.Equal(t, "", r.Get(FieldHoraSalida))

	r.ApplySaved(model.Record{ID: model.Ptr(3), HoraIngreso: model.Ptr("09:29:58"), HoraSalida: model.Ptr("10:00:00")})
	assert.Equal(t, "09:29:58", r.Get(FieldHoraIngreso))
	assert.Equal(t, "10:00:00", r.Get(FieldHoraSalida))
}

func TestClearPendingRespectsLaterEdits(t *testing.T) {
	r := NewRow(model.Compras)
	r.Input(FieldBruto, "100")
	r.MarkPending(FieldBruto)
	_, seq := r.Draft()

	r.Input(FieldBruto, "101")
	r.ClearPending(seq)
	b, _ := r.Pending()
	assert.True(t, b)

	_, seq = r.Draft()
	r.ClearPending(seq)
	b, _ = r.Pending()
	assert.False(t, b)
}

func TestCopiesClamp(t *testing.T) {
	r := NewRow(model.Compras)
	r.SetCopies(0)
	assert.Equal(t, 1, r.Copies())
	r.SetCopies(9)
	assert.Equal(t, 3, r.Copies())
}

func TestDraftUsesKindFields(t *testing.T) {
	r := NewRow(model.Ventas)
	r.Input(FieldCliente, "Molino")
	r.Input(FieldTransporte, "Expreso Sur")
	r.Input(FieldRemito, "120")
	d, _ := r.Draft()
	assert.Equal(t, "Molino", d.Party)
	assert.Equal(t, "Expreso Sur", d.Transport)
	assert.Equal(t, "120", d.Remito)
}

func TestReadOnlyCellsIgnoreInput(t *testing.T) {
	r := NewRow(model.Compras)
	r.Input(FieldNeto, "999")
	r.Set(FieldID, "5")
	assert.Equal(t, "", r.Get(FieldNeto))
	assert.True(t, r.IsNew())
}

// ── Focus & grid ──────────────────────────────────────────────────────────────

func TestFocusBlurFlagsLeavingRow(t *testing.T) {
	focus := NewFocus()
	a, b := NewRow(model.Compras), NewRow(model.Compras)
	var got []FieldEvent
	a.On(EventFocusOut, func(e FieldEvent) { got = append(got, e) })

	focus.Move(a, FieldProveedor)
	focus.Move(a, FieldBruto)
	focus.Move(b, FieldBruto)

	require.Len(t, got, 2)
	assert.Equal(t, FieldProveedor, got[0].Field)
	assert.False(t, got[0].LeavingRow)
	assert.Equal(t, FieldBruto, got[1].Field)
	assert.True(t, got[1].LeavingRow)

	assert.Same(t, b, focus.Target())
	focus.MoveOther("search")
	assert.True(t, focus.Editing())
	assert.Same(t, b, focus.Target())
	focus.Clear()
	assert.False(t, focus.Editing())
}

func TestNeighborWrapsAcrossRows(t *testing.T) {
	tbl := New(model.Compras, NewFocus(), nil)
	tbl.Render([]model.Record{rec(1, "A", 1), rec(2, "B", 2)})
	rows := tbl.Rows()
	fields := EditableFields(model.Compras)

	r, f := tbl.Neighbor(rows[0], fields[len(fields)-1], Right)
	assert.Same(t, rows[1], r)
	assert.Equal(t, fields[0], f)

	r, f = tbl.Neighbor(rows[1], fields[0], Left)
	assert.Same(t, rows[0], r)
	assert.Equal(t, fields[len(fields)-1], f)

	r, _ = tbl.Neighbor(rows[0], FieldBruto, Up)
	assert.Same(t, rows[0], r)
	r, f = tbl.Neighbor(rows[0], FieldBruto, Down)
	assert.Same(t, rows[1], r)
	assert.Equal(t, FieldBruto, f)
}

func TestSuggest(t *testing.T) {
	tbl := New(model.Compras, NewFocus(), nil)
	tbl.SetProductos([]string{"Soja", "Maiz", "Soja Partida", "Girasol"})
	assert.Equal(t, []string{"Soja", "Soja Partida"}, tbl.Suggest("so"))
	assert.Equal(t, []string{"Girasol"}, tbl.Suggest("ras"))
	assert.Len(t, tbl.Suggest(""), 4)
}
