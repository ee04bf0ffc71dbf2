// Package session owns everything the console persists between runs: the
// bearer token, UI preferences and the last record snapshot of each tab.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/candelento/balanza/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

// Theme values accepted by SetTheme.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Visibility toggles the four dashboard sections. A missing key in the stored
// JSON keeps the section visible.
type Visibility struct {
	Entries   bool `json:"entries"`
	Days5     bool `json:"days5"`
	Ranking   bool `json:"ranking"`
	LastMoves bool `json:"lastmoves"`
}

// DefaultVisibility shows every section.
func DefaultVisibility() Visibility {
	return Visibility{Entries: true, Days5: true, Ranking: true, LastMoves: true}
}

// Session wraps a Store with typed accessors.
type Session struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Session {
	return &Session{store: store, now: time.Now}
}

// ── Token ─────────────────────────────────────────────────────────────────────

func (s *Session) SaveToken(ctx context.Context, token string) error {
	return s.store.Set(ctx, KeyToken, token)
}

// Token returns the stored bearer token, or "" when none is stored or it has
// expired. An expired token is removed as a side effect.
func (s *Session) Token(ctx context.Context) string {
	tok, err := s.store.Get(ctx, KeyToken)
	if err != nil || tok == "" {
		return ""
	}
	if s.expired(tok) {
		log.Info().Msg("session: token expirado, se descarta")
		_ = s.store.Delete(ctx, KeyToken)
		return ""
	}
	return tok
}

func (s *Session) ClearToken(ctx context.Context) error {
	return s.store.Delete(ctx, KeyToken)
}

// LoggedIn reports whether a usable token is stored.
func (s *Session) LoggedIn(ctx context.Context) bool {
	return s.Token(ctx) != ""
}

// expired inspects the exp claim without verifying the signature; the client
// never holds the server's key. Opaque tokens are trusted until the server
// answers 401.
func (s *Session) expired(tok string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !s.now().Before(exp.Time)
}

// ── Preferences ───────────────────────────────────────────────────────────────

// Theme returns the stored theme, light by default.
func (s *Session) Theme(ctx context.Context) string {
	v, err := s.store.Get(ctx, KeyTheme)
	if err != nil || (v != ThemeDark && v != ThemeLight) {
		return ThemeLight
	}
	return v
}

func (s *Session) SetTheme(ctx context.Context, theme string) error {
	if theme != ThemeDark && theme != ThemeLight {
		return fmt.Errorf("session: tema desconocido %q", theme)
	}
	return s.store.Set(ctx, KeyTheme, theme)
}

// ToggleTheme flips light/dark and returns the new value.
func (s *Session) ToggleTheme(ctx context.Context) (string, error) {
	next := ThemeDark
	if s.Theme(ctx) == ThemeDark {
		next = ThemeLight
	}
	return next, s.SetTheme(ctx, next)
}

func (s *Session) Visibility(ctx context.Context) Visibility {
	vis := DefaultVisibility()
	raw, err := s.store.Get(ctx, KeyDashboardVisibility)
	if err != nil {
		return vis
	}
	if err := json.Unmarshal([]byte(raw), &vis); err != nil {
		log.Warn().Err(err).Msg("session: preferencias de dashboard ilegibles, se usan las predeterminadas")
		return DefaultVisibility()
	}
	return vis
}

func (s *Session) SetVisibility(ctx context.Context, vis Visibility) error {
	raw, err := json.Marshal(vis)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, KeyDashboardVisibility, string(raw))
}

// ── Record snapshots ──────────────────────────────────────────────────────────

func snapshotKey(k model.Kind) string {
	if k == model.Ventas {
		return KeyVentasData
	}
	return KeyComprasData
}

// Records returns the last snapshot persisted for kind. Missing or corrupt
// snapshots yield an empty slice.
func (s *Session) Records(ctx context.Context, k model.Kind) []model.Record {
	raw, err := s.store.Get(ctx, snapshotKey(k))
	if err != nil {
		return nil
	}
	var recs []model.Record
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		log.Warn().Err(err).Str("kind", string(k)).Msg("session: snapshot ilegible")
		return nil
	}
	return recs
}

func (s *Session) SaveRecords(ctx context.Context, k model.Kind, recs []model.Record) error {
	if recs == nil {
		recs = []model.Record{}
	}
	raw, err := json.Marshal(recs)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, snapshotKey(k), string(raw))
}

// IsNotFound reports whether err is a Store miss.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
