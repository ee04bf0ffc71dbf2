package a11y

import "sync"

type trap struct {
	id        string
	focusable []string
}

// Traps is the stack of active focus traps. Only the innermost trap (the
// last installed) steers Tab.
type Traps struct {
	mu    sync.Mutex
	stack []*trap
}

func NewTraps() *Traps { return &Traps{} }

// Trap confines Tab and Shift+Tab to focusable inside container id and
// returns the element that should receive focus plus a release func. A
// container with nothing focusable gets no trap.
func (t *Traps) Trap(id string, focusable []string) (first string, release func()) {
	if len(focusable) == 0 {
		return "", func() {}
	}
	tr := &trap{id: id, focusable: append([]string(nil), focusable...)}
	t.mu.Lock()
	t.stack = append(t.stack, tr)
	t.mu.Unlock()

	var once sync.Once
	return tr.focusable[0], func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			for i, x := range t.stack {
				if x == tr {
					t.stack = append(t.stack[:i], t.stack[i+1:]...)
					break
				}
			}
		})
	}
}

// Tab returns where focus goes when Tab (or Shift+Tab) is pressed on
// current. handled is false when no trap applies and the default order
// should be used. Only the wrap at either end is intercepted.
func (t *Traps) Tab(current string, shift bool) (next string, handled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.stack) == 0 {
		return "", false
	}
	f := t.stack[len(t.stack)-1].focusable
	first, last := f[0], f[len(f)-1]
	switch {
	case shift && current == first:
		return last, true
	case !shift && current == last:
		return first, true
	}
	return "", false
}

// Active reports the id of the innermost trap.
func (t *Traps) Active() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.stack) == 0 {
		return "", false
	}
	return t.stack[len(t.stack)-1].id, true
}

func (t *Traps) Depth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.stack)
}
