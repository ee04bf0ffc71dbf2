// Package push listens to the server's WebSocket channel and hands every
// {type, payload} snapshot to a callback.
package push

import (
	"context"
	"encoding/json"
	"time"

	"github.com/candelento/balanza/internal/dto"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

// DefaultReconnectDelay is the wait before redialing after an abnormal close.
const DefaultReconnectDelay = 5 * time.Second

// readLimit bounds one snapshot; a busy day of records is well under it.
const readLimit = 8 << 20

// Handler receives each decoded message.
type Handler func(dto.PushMessage)

// Listener keeps one connection open to the push channel.
type Listener struct {
	URL            string
	ReconnectDelay time.Duration
	// Busy drops incoming messages while it reports true (an input has focus).
	Busy func() bool
}

func NewListener(url string, busy func() bool) *Listener {
	return &Listener{URL: url, ReconnectDelay: DefaultReconnectDelay, Busy: busy}
}

// Run connects and dispatches messages until ctx is cancelled or the server
// closes normally (1000 or 1005). Any other close, read error or failed dial
// is retried after ReconnectDelay.
func (l *Listener) Run(ctx context.Context, h Handler) error {
	delay := l.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	policy := backoff.WithContext(backoff.NewConstantBackOff(delay), ctx)

	return backoff.RetryNotify(func() error {
		err := l.session(ctx, h)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if normalClose(err) {
			log.Info().Msg("push: conexión cerrada normalmente")
			return nil
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("retry_in", wait).Msg("push: conexión perdida, reintentando")
	})
}

func (l *Listener) session(ctx context.Context, h Handler) error {
	conn, _, err := websocket.Dial(ctx, l.URL, nil)
	if err != nil {
		return err
	}
	defer conn.CloseNow()
	conn.SetReadLimit(readLimit)
	log.Info().Str("url", l.URL).Msg("push: conectado")

	for {
		_, raw, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "")
			}
			return err
		}
		var msg dto.PushMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Warn().Err(err).Msg("push: mensaje ilegible, se ignora")
			continue
		}
		if l.Busy != nil && l.Busy() {
			log.Debug().Str("type", msg.Type).Msg("push: edición en curso, se descarta la actualización")
			continue
		}
		h(msg)
	}
}

func normalClose(err error) bool {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusNoStatusRcvd:
		return true
	}
	return false
}
