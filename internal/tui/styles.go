package tui

import "github.com/charmbracelet/lipgloss"

// Theme is the set of styles for one color scheme.
type Theme struct {
	Tab, ActiveTab      lipgloss.Style
	Header, Cell        lipgloss.Style
	Cursor, Editing     lipgloss.Style
	Invalid, Anomaly    lipgloss.Style
	Muted, Title        lipgloss.Style
	Success, Info, Fail lipgloss.Style
	Dialog, Box         lipgloss.Style
}

var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#1F4E79", Dark: "#4F81BD"}
	colorError   = lipgloss.Color("#C0392B")
	colorOK      = lipgloss.Color("#2E7D32")
	colorInfo    = lipgloss.Color("#1565C0")
)

func newTheme(dark bool) Theme {
	fg, bg, muted := lipgloss.Color("#1B1B1B"), lipgloss.Color("#F4F6F8"), lipgloss.Color("#7A7A7A")
	if dark {
		fg, bg, muted = lipgloss.Color("#E6E6E6"), lipgloss.Color("#1E1E1E"), lipgloss.Color("#8C8C8C")
	}
	base := lipgloss.NewStyle().Foreground(fg)
	return Theme{
		Tab:       base.Padding(0, 2),
		ActiveTab: base.Padding(0, 2).Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(colorPrimary),
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(colorPrimary),
		Cell:      base,
		Cursor:    base.Reverse(true),
		Editing:   base.Underline(true).Bold(true),
		Invalid:   lipgloss.NewStyle().Foreground(colorError).Underline(true),
		Anomaly:   lipgloss.NewStyle().Foreground(colorError).Bold(true),
		Muted:     lipgloss.NewStyle().Foreground(muted),
		Title:     base.Bold(true).Foreground(colorPrimary),
		Success:   lipgloss.NewStyle().Foreground(colorOK).Bold(true),
		Info:      lipgloss.NewStyle().Foreground(colorInfo),
		Fail:      lipgloss.NewStyle().Foreground(colorError).Bold(true),
		Dialog:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorPrimary).Padding(1, 3).Background(bg),
		Box:       lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(muted).Padding(0, 1),
	}
}
