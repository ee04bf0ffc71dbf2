package tui

import (
	"context"
	"errors"

	"github.com/candelento/balanza/internal/app"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the console until the operator quits or ctx is cancelled.
func Run(ctx context.Context, a *app.App, events *Events) error {
	a.Restore(ctx)
	p := tea.NewProgram(New(ctx, a, events), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
