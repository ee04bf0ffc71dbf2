package table

import "sync"

// Focus tracks which input has focus across the whole console. Only one
// input can hold focus; it is either a row cell or some other input (search
// box, date filter, login form).
type Focus struct {
	mu    sync.RWMutex
	row   *Row
	field string
	other string
	last  *Row
}

func NewFocus() *Focus { return &Focus{} }

// Move puts focus on a row cell. The previously focused cell gets its
// focus-out, flagged as leaving its row when row differs.
func (f *Focus) Move(row *Row, field string) {
	f.mu.Lock()
	prev, prevField := f.row, f.field
	f.row, f.field, f.other = row, field, ""
	if row != nil {
		f.last = row
	}
	f.mu.Unlock()

	if prev != nil && (prev != row || prevField != field) {
		prev.Blur(prevField, prev != row)
	}
}

// Point makes row the target of an explicit save without focusing any of
// its cells. Nothing blurs.
func (f *Focus) Point(row *Row) {
	if row == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = row
}

// MoveOther puts focus on a non-row input.
func (f *Focus) MoveOther(name string) {
	f.mu.Lock()
	prev, prevField := f.row, f.field
	f.row, f.field, f.other = nil, "", name
	f.mu.Unlock()
	if prev != nil {
		prev.Blur(prevField, true)
	}
}

// Clear drops focus from every input.
func (f *Focus) Clear() {
	f.mu.Lock()
	prev, prevField := f.row, f.field
	f.row, f.field, f.other = nil, "", ""
	f.mu.Unlock()
	if prev != nil {
		prev.Blur(prevField, true)
	}
}

// Forget clears any reference to row, without firing focus-out.
func (f *Focus) Forget(row *Row) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.row == row {
		f.row, f.field = nil, ""
	}
	if f.last == row {
		f.last = nil
	}
}

// Editing reports whether any input has focus.
func (f *Focus) Editing() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.row != nil || f.other != ""
}

// Current returns the focused row cell, nil when focus is elsewhere.
func (f *Focus) Current() (*Row, string) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.row, f.field
}

// Target is the row an explicit save applies to: the focused row, or the
// most recently focused one.
func (f *Focus) Target() *Row {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.row != nil {
		return f.row
	}
	return f.last
}
