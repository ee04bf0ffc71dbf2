package tui

import (
	"github.com/candelento/balanza/internal/a11y"
	"github.com/candelento/balanza/internal/app"
	"github.com/candelento/balanza/internal/dto"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
)

const eventBuffer = 256

// Events carries notifications raised outside the bubbletea loop (save
// timers, the push listener, the live region) into it.
type Events struct {
	ch chan tea.Msg
}

func NewEvents() *Events {
	return &Events{ch: make(chan tea.Msg, eventBuffer)}
}

func (e *Events) send(msg tea.Msg) {
	select {
	case e.ch <- msg:
	default:
		log.Warn().Msgf("tui: cola de eventos llena, se descarta %T", msg)
	}
}

// Notify matches app.Deps.OnNotice.
func (e *Events) Notify(n app.Notice) { e.send(noticeMsg(n)) }

// Live matches the a11y.Announcer subscriber signature.
func (e *Events) Live(text string, p a11y.Priority) { e.send(liveMsg{text: text, priority: p}) }

// Push matches push.Handler.
func (e *Events) Push(msg dto.PushMessage) { e.send(pushMsg(msg)) }

// wait blocks for the next event; the model re-issues it after each one.
func (e *Events) wait() tea.Cmd {
	if e == nil {
		return nil
	}
	return func() tea.Msg { return <-e.ch }
}

type (
	noticeMsg app.Notice
	pushMsg   dto.PushMessage
	liveMsg   struct {
		text     string
		priority a11y.Priority
	}
)
