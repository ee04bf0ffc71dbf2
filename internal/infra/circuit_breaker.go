package infra

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ── Breaker ───────────────────────────────────────────────────────────────────
// Guards calls to the weighbridge server. Only transport failures count: a
// 4xx/5xx answer means the server is up and must not trip the breaker.
//
//   closed    → calls pass; N consecutive failures open it
//   open      → calls fail fast with ErrCircuitOpen until Cooldown elapses
//   half-open → probes pass; M successes close it, one failure reopens

type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrCircuitOpen is returned without calling fn while the breaker is open.
var ErrCircuitOpen = errors.New("servidor no disponible, reintente en unos segundos")

type BreakerConfig struct {
	Name         string
	MaxFailures  int
	MinSuccesses int
	Cooldown     time.Duration
	// Counts decides which errors are transport failures. Nil counts all.
	Counts func(error) bool
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{Name: name, MaxFailures: 5, MinSuccesses: 1, Cooldown: 15 * time.Second}
}

type Breaker struct {
	mu        sync.Mutex
	cfg       BreakerConfig
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time
	now       func() time.Time
}

func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.MinSuccesses <= 0 {
		cfg.MinSuccesses = 1
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// State reports the current state, moving open to half-open once the
// cooldown has elapsed.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current()
}

func (b *Breaker) current() BreakerState {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		b.transition(StateHalfOpen)
	}
	return b.state
}

// Do runs fn unless the breaker is open.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	if b.current() == StateOpen {
		b.mu.Unlock()
		return ErrCircuitOpen
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil && (b.cfg.Counts == nil || b.cfg.Counts(err)) {
		b.failure()
	} else {
		b.success()
	}
	return err
}

func (b *Breaker) failure() {
	b.failures++
	switch b.state {
	case StateClosed:
		if b.failures >= b.cfg.MaxFailures {
			b.open()
		}
	case StateHalfOpen:
		b.open()
	}
}

func (b *Breaker) success() {
	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.MinSuccesses {
			b.transition(StateClosed)
		}
	}
}

func (b *Breaker) open() {
	b.openedAt = b.now()
	b.transition(StateOpen)
}

func (b *Breaker) transition(to BreakerState) {
	if b.state == to {
		return
	}
	log.Warn().Str("breaker", b.cfg.Name).Str("from", b.state.String()).Str("to", to.String()).Msg("circuit breaker")
	b.state = to
	b.failures = 0
	b.successes = 0
}
