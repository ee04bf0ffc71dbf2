package app

import (
	"github.com/candelento/balanza/internal/a11y"
	"github.com/candelento/balanza/internal/rowsync"

	"github.com/rs/zerolog/log"
)

// Notice is an operator notification; the save engine's notices flow through
// the same path.
type Notice = rowsync.Notice

// Notify forwards n to the console and reads it out on the live region,
// errors assertively.
func (a *App) Notify(n Notice) {
	p := a11y.Polite
	if n.Level == rowsync.LevelError {
		p = a11y.Assertive
		log.Debug().Err(n.Err).Str("kind", string(n.Kind)).Str("row", n.RowKey).Msg(n.Message)
	}
	a.announcer.Announce(n.Message, p)
	if a.onNotice != nil {
		a.onNotice(n)
	}
}
