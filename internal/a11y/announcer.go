// Package a11y carries the accessibility affordances of the console: a
// live region for screen-reader announcements, focus traps for dialogs,
// semantic annotations on tables and forms, and keyboard navigation helpers.
package a11y

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// AnnounceDelay separates clearing the live region from writing the new
// text, so assistive tech sees a change even when the text repeats.
const AnnounceDelay = 100 * time.Millisecond

type Priority string

const (
	Polite    Priority = "polite"
	Assertive Priority = "assertive"
)

// Announcer is the live region. Subscribers see every change, including
// the intermediate clear.
type Announcer struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	text     string
	priority Priority
	seq      uint64
	subs     []func(text string, p Priority)
}

func NewAnnouncer(clock clockwork.Clock) *Announcer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Announcer{clock: clock, priority: Polite}
}

// Subscribe registers fn for live-region changes.
func (a *Announcer) Subscribe(fn func(text string, p Priority)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subs = append(a.subs, fn)
}

// Announce clears the region now and writes msg after AnnounceDelay. A later
// announcement supersedes a pending one.
func (a *Announcer) Announce(msg string, p Priority) {
	if p == "" {
		p = Polite
	}
	a.mu.Lock()
	a.seq++
	seq := a.seq
	a.priority = p
	a.text = ""
	a.mu.Unlock()
	a.publish()

	a.clock.AfterFunc(AnnounceDelay, func() {
		a.mu.Lock()
		if a.seq != seq {
			a.mu.Unlock()
			return
		}
		a.text = msg
		a.mu.Unlock()
		a.publish()
	})
}

// Current returns what the region holds right now.
func (a *Announcer) Current() (string, Priority) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.text, a.priority
}

func (a *Announcer) publish() {
	a.mu.Lock()
	text, p := a.text, a.priority
	subs := append([]func(string, Priority){}, a.subs...)
	a.mu.Unlock()
	for _, fn := range subs {
		fn(text, p)
	}
}
