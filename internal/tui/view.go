package tui

import (
	"fmt"
	"strings"

	"github.com/candelento/balanza/internal/app"
	"github.com/candelento/balanza/internal/dashboard"
	"github.com/candelento/balanza/internal/rowsync"
	"github.com/candelento/balanza/internal/table"

	"github.com/charmbracelet/lipgloss"
)

var tabTitles = map[app.Tab]string{
	app.TabCompras:   "Compras",
	app.TabVentas:    "Ventas",
	app.TabDashboard: "Dashboard",
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.viewTabs())
	b.WriteString("\n\n")

	switch m.mode {
	case modeLogin:
		b.WriteString(m.viewLogin())
	case modeConfirm:
		b.WriteString(m.theme.Dialog.Render(m.confirmQ + "\n\n" + m.viewChoices()))
	default:
		if m.app.Active() == app.TabDashboard {
			b.WriteString(m.viewDashboard())
		} else {
			b.WriteString(m.viewTable())
		}
	}

	b.WriteString("\n")
	if m.mode == modeSearch {
		b.WriteString(m.search.View() + "\n")
	}
	for _, t := range m.toasts {
		b.WriteString(m.toastStyle(t.level).Render(t.text) + "\n")
	}
	if m.live != "" {
		b.WriteString(m.theme.Muted.Render("» "+m.live) + "\n")
	}
	if m.showHelp {
		b.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	} else {
		b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return b.String()
}

func (m Model) viewTabs() string {
	var tabs []string
	for _, t := range app.Tabs {
		style := m.theme.Tab
		if t == m.app.Active() {
			style = m.theme.ActiveTab
		}
		tabs = append(tabs, style.Render(tabTitles[t]))
	}
	status := m.theme.Muted.Render("sin sesión")
	if m.app.LoggedIn(m.ctx) {
		status = m.theme.Success.Render("sesión activa")
	}
	if m.loading > 0 {
		status = m.spinner.View() + " " + status
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, append(tabs, "   ", status)...)
}

// ── Record tables ─────────────────────────────────────────────────────────────

func (m Model) viewTable() string {
	kind, _ := m.app.Active().Kind()
	tbl := m.app.Table(kind)
	cols := table.Columns(kind)

	var b strings.Builder
	header := []string{m.theme.Header.Render(" ")}
	for _, c := range cols {
		title := c.Title
		if c.Required {
			title += "*"
		}
		header = append(header, m.theme.Header.Inline(true).Width(c.Width).MaxWidth(c.Width).Render(title))
	}
	b.WriteString(strings.Join(header, " ") + "\n")

	rows := tbl.Rows()
	if len(rows) == 0 {
		b.WriteString(m.theme.Muted.Render("Sin registros. Ctrl+N agrega una fila.") + "\n")
		return b.String()
	}
	first, last := m.window(tbl, len(rows))
	for _, row := range rows[first:last] {
		b.WriteString(m.viewRow(row, cols) + "\n")
	}
	if m.row != nil {
		b.WriteString(m.theme.Muted.Render(fmt.Sprintf("Fila %d de %d · Copias: %d", tbl.Index(m.row)+1, len(rows), m.row.Copies())))
		b.WriteString("\n")
	}
	return b.String()
}

// window picks the visible slice of rows, keeping the cursor in view.
func (m Model) window(tbl *table.Table, n int) (int, int) {
	visible := m.height - 10
	if visible < 5 {
		visible = 5
	}
	if n <= visible {
		return 0, n
	}
	cur := 0
	if m.row != nil {
		if i := tbl.Index(m.row); i > 0 {
			cur = i
		}
	}
	first := cur - visible/2
	if first < 0 {
		first = 0
	}
	if first+visible > n {
		first = n - visible
	}
	return first, first + visible
}

func (m Model) viewRow(row *table.Row, cols []table.Column) string {
	cells := []string{m.stateGlyph(row)}
	brutoPending, taraPending := row.Pending()
	for _, c := range cols {
		text := row.Get(c.Field)
		if (c.Field == table.FieldBruto && brutoPending) || (c.Field == table.FieldTara && taraPending) {
			text += "*"
		}
		style := m.theme.Cell
		switch {
		case row.Invalid(c.Field) != "":
			style = m.theme.Invalid
		case c.Field == table.FieldNeto && row.NetoAnomaly():
			style = m.theme.Anomaly
		}
		onCursor := row == m.row && c.Field == m.field
		if onCursor && m.mode == modeEdit && c.Field != table.FieldIncoterm {
			text = m.input.View()
			style = m.theme.Editing
		} else if onCursor {
			style = m.theme.Cursor
		}
		cells = append(cells, style.Inline(true).Width(c.Width).MaxWidth(c.Width).Render(text))
	}
	return strings.Join(cells, " ")
}

func (m Model) stateGlyph(row *table.Row) string {
	st := m.app.Engine().State(row)
	switch {
	case st.Phase == rowsync.PhaseSaving:
		return m.spinner.View()
	case st.Intent:
		return "⏎"
	case st.Phase == rowsync.PhasePending:
		return "…"
	case st.Lifecycle == rowsync.LifecycleNew:
		return "+"
	}
	return " "
}

// ── Dialogs ───────────────────────────────────────────────────────────────────

func (m Model) viewLogin() string {
	var b strings.Builder
	b.WriteString(m.theme.Title.Render("Iniciar sesión") + "\n\n")
	b.WriteString(m.user.View() + "\n")
	b.WriteString(m.pass.View() + "\n\n")
	submit := "[ Ingresar ]"
	if m.loginAt == "submit" {
		submit = m.theme.Cursor.Render(submit)
	}
	b.WriteString(submit)
	if m.loginErr != "" {
		b.WriteString("\n\n" + m.theme.Fail.Render(m.loginErr))
	}
	return m.theme.Dialog.Render(b.String())
}

func (m Model) viewChoices() string {
	yes, no := "[ Sí ]", "[ No ]"
	if m.confirmAt == "si" {
		yes = m.theme.Cursor.Render(yes)
	} else {
		no = m.theme.Cursor.Render(no)
	}
	return yes + "  " + no
}

func (m Model) toastStyle(l toastLevel) lipgloss.Style {
	switch l {
	case toastError:
		return m.theme.Fail
	case toastInfo:
		return m.theme.Info
	}
	return m.theme.Success
}

// ── Dashboard ─────────────────────────────────────────────────────────────────

func (m Model) viewDashboard() string {
	var chips []string
	for i, p := range dashboard.Presets {
		label := fmt.Sprintf("%d %s", i+1, p.Label())
		if p == m.preset {
			chips = append(chips, m.theme.ActiveTab.Render(label))
		} else {
			chips = append(chips, m.theme.Tab.Render(label))
		}
	}
	out := []string{lipgloss.JoinHorizontal(lipgloss.Top, chips...), ""}

	if m.dashErr != "" {
		return strings.Join(append(out, m.theme.Fail.Render(m.dashErr)), "\n")
	}
	v := m.dash
	if v == nil {
		return strings.Join(append(out, m.theme.Muted.Render("Cargando...")), "\n")
	}
	out = append(out, m.theme.Muted.Render(fmt.Sprintf("%s → %s", v.Start, v.End)))

	kpis := lipgloss.JoinHorizontal(lipgloss.Top,
		m.kpi("Compras", v.KPIs["compras"]),
		m.kpi("Ventas", v.KPIs["ventas"]),
		m.kpi("Balance", v.KPIs["balance"]),
		m.kpi("Más movido", v.KPIs["top"]),
	)
	out = append(out, kpis)

	var sections []string
	if dashboard.Visible(v.Visibility, dashboard.SectionEntries) {
		sections = append(sections, m.viewEntries(v))
	}
	if dashboard.Visible(v.Visibility, dashboard.SectionDays5) {
		sections = append(sections, m.viewDays(v))
	}
	if dashboard.Visible(v.Visibility, dashboard.SectionRanking) {
		sections = append(sections, m.viewRanking(v))
	}
	if dashboard.Visible(v.Visibility, dashboard.SectionLastMoves) {
		sections = append(sections, m.viewMoves(v))
	}
	out = append(out, lipgloss.JoinHorizontal(lipgloss.Top, sections...))
	return strings.Join(out, "\n")
}

func (m Model) kpi(title, value string) string {
	return m.theme.Box.Width(22).Render(m.theme.Muted.Render(title) + "\n" + m.theme.Title.Render(value))
}

func (m Model) section(title string, lines []string) string {
	if len(lines) == 0 {
		lines = []string{m.theme.Muted.Render("Sin datos")}
	}
	return m.theme.Box.Render(m.theme.Title.Render(title) + "\n" + strings.Join(lines, "\n"))
}

func (m Model) viewEntries(v *dashboard.View) string {
	return m.section("Entradas / salidas", []string{
		"Compras  " + v.KPIs["compras"],
		"Ventas   " + v.KPIs["ventas"],
		"Balance  " + v.KPIs["balance"],
	})
}

func (m Model) viewDays(v *dashboard.View) string {
	var lines []string
	for _, d := range v.Days {
		lines = append(lines, fmt.Sprintf("%s  %s", d.Label, d.Text))
	}
	return m.section("Últimos 5 días", lines)
}

func (m Model) viewRanking(v *dashboard.View) string {
	var lines []string
	for i, r := range v.Ranking {
		lines = append(lines, fmt.Sprintf("%d. %-14s %s", i+1, r.Mercaderia, r.Text))
	}
	return m.section("Ranking de mercadería", lines)
}

func (m Model) viewMoves(v *dashboard.View) string {
	var lines []string
	for _, mv := range v.Moves {
		style := m.theme.Success
		if mv.Venta {
			style = m.theme.Fail
		}
		lines = append(lines, fmt.Sprintf("%s %-14s %-10s %s", dashboard.ShortDate(mv.Fecha), mv.Quien, mv.Mercaderia, style.Render(mv.Text)))
	}
	return m.section("Últimos movimientos", lines)
}
