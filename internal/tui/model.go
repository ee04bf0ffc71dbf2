// Package tui is the operator console: record tabs with inline editing, the
// dashboard, toasts and a live region line, built on bubbletea.
package tui

import (
	"context"
	"time"

	"github.com/candelento/balanza/internal/a11y"
	"github.com/candelento/balanza/internal/app"
	"github.com/candelento/balanza/internal/client"
	"github.com/candelento/balanza/internal/dashboard"
	"github.com/candelento/balanza/internal/dto"
	"github.com/candelento/balanza/internal/model"
	"github.com/candelento/balanza/internal/rowsync"
	"github.com/candelento/balanza/internal/session"
	"github.com/candelento/balanza/internal/table"
	"github.com/candelento/balanza/internal/ticket"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ToastTTL is how long a toast stays on screen.
const ToastTTL = 5 * time.Second

const maxToasts = 3

type mode int

const (
	modeBrowse mode = iota
	modeEdit
	modeSearch
	modeLogin
	modeConfirm
)

type toastLevel int

const (
	toastSuccess toastLevel = iota
	toastInfo
	toastError
)

type toast struct {
	id    int
	level toastLevel
	text  string
}

type (
	loadedMsg struct {
		kind model.Kind
		err  error
	}
	dashMsg struct {
		view *dashboard.View
		err  error
	}
	visMsg struct {
		vis session.Visibility
		err error
	}
	loginMsg    struct{ err error }
	deliveryMsg struct {
		res *ticket.Result
		err error
	}
	expireMsg struct{ id int }
	doneMsg   struct{}
)

// Model is the root bubbletea model.
type Model struct {
	ctx    context.Context
	app    *app.App
	events *Events
	keys   KeyMap
	help   help.Model
	theme  Theme

	width, height int
	mode          mode
	showHelp      bool

	// cursor
	row   *table.Row
	field string

	input  textinput.Model
	search textinput.Model
	user   textinput.Model
	pass   textinput.Model

	loginAt     string
	loginErr    string
	confirmRow  *table.Row
	confirmQ    string
	confirmAt   string
	releaseTrap func()

	preset  dashboard.Preset
	dash    *dashboard.View
	dashErr string

	toasts  []toast
	toastID int
	live    string

	spinner spinner.Model
	loading int
}

func New(ctx context.Context, a *app.App, events *Events) Model {
	in := textinput.New()
	in.Prompt = ""
	in.CharLimit = 120

	search := textinput.New()
	search.Prompt = "Buscar: "
	search.Placeholder = "proveedor, cliente, patente..."

	user := textinput.New()
	user.Prompt = "Usuario:    "
	user.CharLimit = 64
	pass := textinput.New()
	pass.Prompt = "Contraseña: "
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		ctx:     ctx,
		app:     a,
		events:  events,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		theme:   newTheme(a.Session().Theme(ctx) == session.ThemeDark),
		input:   in,
		search:  search,
		user:    user,
		pass:    pass,
		preset:  dashboard.PresetToday,
		spinner: sp,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.events.wait(), m.spinner.Tick}
	if !m.app.LoggedIn(m.ctx) {
		cmds = append(cmds, func() tea.Msg { return showLoginMsg{} })
	} else {
		cmds = append(cmds, m.loadAll())
	}
	return tea.Batch(cmds...)
}

type showLoginMsg struct{}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case noticeMsg:
		lvl := toastSuccess
		if msg.Level == rowsync.LevelError {
			lvl = toastError
		}
		return m, tea.Batch(m.addToast(lvl, msg.Message), m.events.wait())

	case liveMsg:
		m.live = msg.text
		return m, m.events.wait()

	case pushMsg:
		push := dto.PushMessage(msg)
		return m, tea.Batch(m.events.wait(), func() tea.Msg {
			m.app.HandlePush(m.ctx, push)
			return doneMsg{}
		})

	case showLoginMsg:
		m.openLogin()
		return m, nil

	case loadedMsg:
		m.loading--
		m.fixCursor()
		return m, nil

	case dashMsg:
		m.loading--
		if msg.err != nil {
			m.dashErr = msg.err.Error()
			return m, nil
		}
		m.dash, m.dashErr = msg.view, ""
		return m, nil

	case visMsg:
		if msg.err == nil && m.dash != nil {
			m.dash.Visibility = msg.vis
		}
		return m, nil

	case loginMsg:
		if msg.err != nil {
			m.loginErr = msg.err.Error()
			m.app.Announcer().Announce(m.loginErr, a11y.Assertive)
			return m, nil
		}
		m.closeLogin()
		return m, tea.Batch(m.addToast(toastSuccess, "Sesión iniciada."), m.loadAll())

	case deliveryMsg:
		if msg.err != nil {
			m.app.Announcer().Announce(msg.err.Error(), a11y.Assertive)
			return m, m.addToast(toastError, msg.err.Error())
		}
		lvl := toastSuccess
		if msg.res.Level == ticket.LevelInfo {
			lvl = toastInfo
		}
		m.app.Announcer().Announce(msg.res.Message, a11y.Polite)
		return m, m.addToast(lvl, msg.res.Message)

	case expireMsg:
		for i, t := range m.toasts {
			if t.id == msg.id {
				m.toasts = append(m.toasts[:i:i], m.toasts[i+1:]...)
				break
			}
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case doneMsg:
		m.fixCursor()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return *m, tea.Quit
	}
	var cmd tea.Cmd
	switch m.mode {
	case modeEdit:
		cmd = m.editKey(msg)
	case modeSearch:
		cmd = m.searchKey(msg)
	case modeLogin:
		cmd = m.loginKey(msg)
	case modeConfirm:
		cmd = m.confirmKey(msg)
	default:
		cmd = m.browseKey(msg)
	}
	return *m, cmd
}

// ── Browse ────────────────────────────────────────────────────────────────────

func (m *Model) browseKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return nil
	case key.Matches(msg, m.keys.NextTab):
		return m.cycleTab("right")
	case key.Matches(msg, m.keys.PrevTab):
		return m.cycleTab("left")
	case key.Matches(msg, m.keys.Theme):
		theme, err := m.app.ToggleTheme(m.ctx)
		if err == nil {
			m.theme = newTheme(theme == session.ThemeDark)
		}
		return nil
	case key.Matches(msg, m.keys.Login):
		if m.app.LoggedIn(m.ctx) {
			_ = m.app.Logout(m.ctx)
			return m.addToast(toastInfo, "Sesión cerrada.")
		}
		m.openLogin()
		return nil
	case key.Matches(msg, m.keys.Backup):
		return m.background(func() { _ = m.app.Backup(m.ctx) })
	case key.Matches(msg, m.keys.Export):
		return m.background(func() { _, _ = m.app.Export(m.ctx) })
	}

	if m.app.Active() == app.TabDashboard {
		return m.dashboardKey(msg)
	}
	kind, _ := m.app.Active().Kind()
	tbl := m.app.Table(kind)

	switch {
	case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.CellUp):
		m.moveCursor(tbl, table.Up)
	case key.Matches(msg, m.keys.Down), key.Matches(msg, m.keys.CellDown):
		m.moveCursor(tbl, table.Down)
	case key.Matches(msg, m.keys.Left), key.Matches(msg, m.keys.CellLeft):
		m.moveCursor(tbl, table.Left)
	case key.Matches(msg, m.keys.Right), key.Matches(msg, m.keys.CellRight):
		m.moveCursor(tbl, table.Right)
	case key.Matches(msg, m.keys.Edit):
		return m.startEdit()
	case key.Matches(msg, m.keys.Save):
		return m.background(func() { _ = m.app.SaveFocused(m.ctx) })
	case key.Matches(msg, m.keys.AddRow):
		m.row = m.app.AddRow(kind)
		m.field = kind.PartyField()
		return m.enterEdit()
	case key.Matches(msg, m.keys.DeleteRow):
		if m.row != nil {
			m.openConfirm(m.row)
		}
	case key.Matches(msg, m.keys.Incoterm):
		m.cycleIncoterm(tbl)
	case key.Matches(msg, m.keys.MoreCopies):
		if m.row != nil {
			m.row.SetCopies(m.row.Copies() + 1)
		}
	case key.Matches(msg, m.keys.FewerCopies):
		if m.row != nil {
			m.row.SetCopies(m.row.Copies() - 1)
		}
	case key.Matches(msg, m.keys.Print):
		return m.deliver(func(tk ticket.Service, row *table.Row) (*ticket.Result, error) {
			return tk.PrintTicket(m.ctx, row, m.app.Filters(kind).Date)
		})
	case key.Matches(msg, m.keys.SavePDF):
		return m.deliver(func(tk ticket.Service, row *table.Row) (*ticket.Result, error) {
			return tk.SaveTicket(m.ctx, row, m.app.Filters(kind).Date)
		})
	case key.Matches(msg, m.keys.Planilla):
		f := m.app.Filters(kind)
		tk := m.app.Tickets()
		if tk == nil {
			return nil
		}
		return func() tea.Msg {
			res, err := tk.DownloadPlanilla(m.ctx, client.Scope(kind), f)
			return deliveryMsg{res: res, err: err}
		}
	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		m.app.Focus().MoveOther("search")
		m.search.SetValue(m.app.Filters(kind).Search)
		return m.search.Focus()
	case key.Matches(msg, m.keys.Refresh):
		return m.load(kind)
	}
	return nil
}

func (m *Model) cycleTab(dir string) tea.Cmd {
	if !m.app.CycleTab(dir) {
		return nil
	}
	m.row, m.field = nil, ""
	m.fixCursor()
	if m.app.Active() == app.TabDashboard {
		return m.loadDashboard()
	}
	return nil
}

func (m *Model) moveCursor(tbl *table.Table, d table.Direction) {
	if m.row == nil {
		m.fixCursor()
		return
	}
	m.row, m.field = tbl.Neighbor(m.row, m.field, d)
	m.app.Focus().Point(m.row)
}

// fixCursor keeps the cursor on a row of the active table.
func (m *Model) fixCursor() {
	kind, ok := m.app.Active().Kind()
	if !ok {
		m.row, m.field = nil, ""
		return
	}
	tbl := m.app.Table(kind)
	if m.row != nil && m.row.Kind() == kind && tbl.Index(m.row) >= 0 {
		return
	}
	rows := tbl.Rows()
	if len(rows) == 0 {
		m.row, m.field = nil, ""
		return
	}
	m.row, m.field = rows[0], table.EditableFields(kind)[0]
	m.app.Focus().Point(m.row)
}

func (m *Model) cycleIncoterm(tbl *table.Table) {
	if m.row == nil || m.row.Kind() != model.Ventas {
		return
	}
	switch model.Incoterm(m.row.Incoterm()) {
	case "":
		tbl.ToggleIncoterm(m.row, model.CIF, true)
	case model.CIF:
		tbl.ToggleIncoterm(m.row, model.FOB, true)
	default:
		tbl.ToggleIncoterm(m.row, model.FOB, false)
	}
}

// ── Edit ──────────────────────────────────────────────────────────────────────

func (m *Model) startEdit() tea.Cmd {
	if m.row == nil || table.IsReadOnly(m.field) {
		return nil
	}
	if m.field == table.FieldIncoterm {
		m.cycleIncoterm(m.app.Table(m.row.Kind()))
		return nil
	}
	m.app.Focus().Move(m.row, m.field)
	return m.enterEdit()
}

func (m *Model) enterEdit() tea.Cmd {
	m.mode = modeEdit
	m.input.SetValue(m.row.Get(m.field))
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) leaveEdit() {
	m.input.Blur()
	m.mode = modeBrowse
	m.app.Focus().Clear()
}

func (m *Model) editKey(msg tea.KeyMsg) tea.Cmd {
	row, field := m.row, m.field
	if row == nil {
		m.leaveEdit()
		return nil
	}
	tbl := m.app.Table(row.Kind())
	var d table.Direction = -1
	switch {
	case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Done):
		m.leaveEdit()
		return nil
	case key.Matches(msg, m.keys.Save):
		return m.background(func() { row.KeyDown(field, msg.String()) })
	case key.Matches(msg, m.keys.CellUp):
		d = table.Up
	case key.Matches(msg, m.keys.CellDown):
		d = table.Down
	case key.Matches(msg, m.keys.CellLeft):
		d = table.Left
	case key.Matches(msg, m.keys.CellRight):
		d = table.Right
	}
	if d >= 0 {
		m.row, m.field = tbl.Neighbor(row, field, d)
		m.app.Focus().Move(m.row, m.field)
		return m.enterEdit()
	}
	if field == table.FieldIncoterm {
		if key.Matches(msg, m.keys.Incoterm) {
			m.cycleIncoterm(tbl)
		}
		return nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		row.Input(field, after)
	}
	return cmd
}

// ── Search ────────────────────────────────────────────────────────────────────

func (m *Model) searchKey(msg tea.KeyMsg) tea.Cmd {
	kind, _ := m.app.Active().Kind()
	switch msg.Type {
	case tea.KeyEsc:
		m.search.Blur()
		m.mode = modeBrowse
		m.app.Focus().Clear()
		return nil
	case tea.KeyEnter:
		m.search.Blur()
		m.mode = modeBrowse
		m.app.Focus().Clear()
		f := m.app.Filters(kind)
		f.Search = m.search.Value()
		m.loading++
		return func() tea.Msg {
			return loadedMsg{kind: kind, err: m.app.SetFilters(m.ctx, kind, f)}
		}
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return cmd
}

// ── Login ─────────────────────────────────────────────────────────────────────

var loginFocusable = []string{"username", "password", "submit"}

func (m *Model) openLogin() {
	m.mode = modeLogin
	m.loginErr = ""
	first, release := m.app.Traps().Trap("login", loginFocusable)
	m.releaseTrap = release
	m.focusLogin(first)
}

func (m *Model) focusLogin(id string) {
	m.loginAt = id
	m.user.Blur()
	m.pass.Blur()
	switch id {
	case "username":
		m.user.Focus()
	case "password":
		m.pass.Focus()
	}
	m.app.Focus().MoveOther(id)
}

func (m *Model) closeLogin() {
	if m.releaseTrap != nil {
		m.releaseTrap()
		m.releaseTrap = nil
	}
	m.user.Blur()
	m.pass.Blur()
	m.pass.SetValue("")
	m.mode = modeBrowse
	m.app.Focus().Clear()
}

func (m *Model) loginKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyTab, tea.KeyShiftTab:
		if next, ok := m.app.Traps().Tab(m.loginAt, msg.Type == tea.KeyShiftTab); ok {
			m.focusLogin(next)
			return nil
		}
		i := indexOfString(loginFocusable, m.loginAt)
		if msg.Type == tea.KeyShiftTab {
			i--
		} else {
			i++
		}
		m.focusLogin(loginFocusable[i])
		return nil
	case tea.KeyEsc:
		m.closeLogin()
		return nil
	case tea.KeyEnter:
		if m.loginAt == "username" {
			m.focusLogin("password")
			return nil
		}
		user, pass := m.user.Value(), m.pass.Value()
		return func() tea.Msg { return loginMsg{err: m.app.Login(m.ctx, user, pass)} }
	}
	var cmd tea.Cmd
	switch m.loginAt {
	case "username":
		m.user, cmd = m.user.Update(msg)
	case "password":
		m.pass, cmd = m.pass.Update(msg)
	}
	return cmd
}

func indexOfString(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return 0
}

// ── Confirm ───────────────────────────────────────────────────────────────────

var confirmFocusable = []string{"si", "no"}

func (m *Model) openConfirm(row *table.Row) {
	m.mode = modeConfirm
	m.confirmRow = row
	m.confirmQ = app.DeleteQuestion(row.Kind())
	_, release := m.app.Traps().Trap("confirm", confirmFocusable)
	m.releaseTrap = release
	m.confirmAt = "no"
	m.app.Announcer().Announce(m.confirmQ, a11y.Assertive)
}

func (m *Model) closeConfirm() {
	if m.releaseTrap != nil {
		m.releaseTrap()
		m.releaseTrap = nil
	}
	m.mode = modeBrowse
	m.confirmRow = nil
}

func (m *Model) confirmKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "shift+tab", "left", "right":
		next, ok := m.app.Traps().Tab(m.confirmAt, msg.String() == "shift+tab" || msg.String() == "left")
		if !ok {
			next = confirmFocusable[1-indexOfString(confirmFocusable, m.confirmAt)]
		}
		m.confirmAt = next
		return nil
	case "s", "S", "y":
		m.confirmAt = "si"
		return m.confirmKey(tea.KeyMsg{Type: tea.KeyEnter})
	case "n", "N", "esc":
		m.closeConfirm()
		return nil
	case "enter":
		row, yes := m.confirmRow, m.confirmAt == "si"
		m.closeConfirm()
		if !yes || row == nil {
			return nil
		}
		if m.row == row {
			m.row = nil
		}
		return func() tea.Msg {
			_ = m.app.DeleteRow(m.ctx, row, func(string) bool { return true })
			return doneMsg{}
		}
	}
	return nil
}

// ── Dashboard ─────────────────────────────────────────────────────────────────

var sectionKeys = map[string]string{
	"e": dashboard.SectionEntries,
	"d": dashboard.SectionDays5,
	"r": dashboard.SectionRanking,
	"m": dashboard.SectionLastMoves,
}

func (m *Model) dashboardKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Left):
		return m.cycleTab("left")
	case key.Matches(msg, m.keys.Right):
		return m.cycleTab("right")
	case key.Matches(msg, m.keys.Presets):
		i := int(msg.String()[0] - '1')
		m.preset = dashboard.Presets[i]
		return m.loadDashboard()
	case key.Matches(msg, m.keys.ToggleSection):
		section := sectionKeys[msg.String()]
		return func() tea.Msg {
			vis, err := m.app.Dashboard().Toggle(m.ctx, section)
			return visMsg{vis: vis, err: err}
		}
	case key.Matches(msg, m.keys.ResetSection):
		return func() tea.Msg {
			vis, err := m.app.Dashboard().Reset(m.ctx)
			return visMsg{vis: vis, err: err}
		}
	case key.Matches(msg, m.keys.Refresh):
		return m.loadDashboard()
	}
	return nil
}

// ── Commands ──────────────────────────────────────────────────────────────────

func (m *Model) load(kind model.Kind) tea.Cmd {
	m.loading++
	return func() tea.Msg {
		return loadedMsg{kind: kind, err: m.app.Refresh(m.ctx, kind)}
	}
}

func (m *Model) loadAll() tea.Cmd {
	cmds := []tea.Cmd{func() tea.Msg {
		_ = m.app.LoadProductos(m.ctx)
		return doneMsg{}
	}}
	for _, k := range model.Kinds {
		cmds = append(cmds, m.load(k))
	}
	return tea.Batch(cmds...)
}

func (m *Model) loadDashboard() tea.Cmd {
	m.loading++
	preset := m.preset
	return func() tea.Msg {
		view, err := m.app.Dashboard().LoadPreset(m.ctx, preset)
		return dashMsg{view: view, err: err}
	}
}

func (m *Model) background(fn func()) tea.Cmd {
	return func() tea.Msg {
		fn()
		return doneMsg{}
	}
}

func (m *Model) deliver(fn func(ticket.Service, *table.Row) (*ticket.Result, error)) tea.Cmd {
	row, tk := m.row, m.app.Tickets()
	if row == nil || tk == nil {
		return nil
	}
	return func() tea.Msg {
		res, err := fn(tk, row)
		return deliveryMsg{res: res, err: err}
	}
}

func (m *Model) addToast(level toastLevel, text string) tea.Cmd {
	m.toastID++
	id := m.toastID
	m.toasts = append(m.toasts, toast{id: id, level: level, text: text})
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
	return tea.Tick(ToastTTL, func(time.Time) tea.Msg { return expireMsg{id: id} })
}
