package tui

import (
	"context"
	"testing"
	"time"

	"github.com/candelento/balanza/internal/apierror"
	"github.com/candelento/balanza/internal/app"
	"github.com/candelento/balanza/internal/client"
	"github.com/candelento/balanza/internal/dto"
	"github.com/candelento/balanza/internal/model"
	"github.com/candelento/balanza/internal/rowsync"
	"github.com/candelento/balanza/internal/session"
	"github.com/candelento/balanza/internal/table"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	client.Client
}

func (stubClient) Login(_ context.Context, _, pass string) (*dto.LoginResponse, error) {
	if pass != "secreto" {
		return nil, apierror.FromResponse(401, "Usuario o contraseña incorrectos")
	}
	return &dto.LoginResponse{AccessToken: "opaque-token"}, nil
}

func (stubClient) Create(_ context.Context, _ model.Kind, payload any) (*model.Record, error) {
	p := payload.(dto.CompraPayload)
	return &model.Record{ID: model.Ptr(1), Proveedor: p.Proveedor, HoraIngreso: model.Ptr("09:30:00")}, nil
}

func newModel(t *testing.T) (Model, *app.App) {
	t.Helper()
	ctx := context.Background()
	a := app.New(ctx, app.Deps{
		Client:  stubClient{},
		Session: session.New(session.NewMemoryStore()),
		Clock:   clockwork.NewFakeClockAt(time.Date(2026, 10, 15, 9, 30, 0, 0, time.Local)),
	})
	return New(ctx, a, nil), a
}

func send(m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTabCyclesAndLoadsDashboard(t *testing.T) {
	m, a := newModel(t)

	m, cmd := send(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, app.TabVentas, a.Active())
	assert.Nil(t, cmd)

	m, cmd = send(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, app.TabDashboard, a.Active())
	assert.NotNil(t, cmd)

	_, _ = send(m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, app.TabVentas, a.Active())
}

func TestNewRowIsEditedInPlace(t *testing.T) {
	m, a := newModel(t)

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyCtrlN})
	require.Equal(t, modeEdit, m.mode)
	require.NotNil(t, m.row)
	assert.Equal(t, table.FieldProveedor, m.field)
	assert.True(t, m.row.IsNew())

	m, _ = send(m, runes("A"), runes("C"))
	assert.Equal(t, "AC", m.row.Get(table.FieldProveedor))
	assert.Equal(t, rowsync.PhasePending, a.Engine().State(m.row).Phase)

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyCtrlRight})
	assert.Equal(t, table.FieldMercaderia, m.field)
	row, field := a.Focus().Current()
	assert.Same(t, m.row, row)
	assert.Equal(t, table.FieldMercaderia, field)

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modeBrowse, m.mode)
	assert.False(t, a.Busy())
}

func TestWeightTypingShowsNeto(t *testing.T) {
	m, _ := newModel(t)
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyCtrlN}, runes("X"))
	for m.field != table.FieldBruto {
		m, _ = send(m, tea.KeyMsg{Type: tea.KeyCtrlRight})
	}
	m, _ = send(m, runes("5"), runes("0"), runes("0"), tea.KeyMsg{Type: tea.KeyCtrlRight}, runes("5"), runes("0"))

	assert.Equal(t, table.FieldTara, m.field)
	assert.Equal(t, "450.00", m.row.Get(table.FieldNeto))
	assert.Contains(t, m.View(), "450.00")
}

func TestF8InBrowseSavesCursorRow(t *testing.T) {
	m, a := newModel(t)
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyCtrlN}, runes("A"), tea.KeyMsg{Type: tea.KeyEsc})
	first := m.row
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyCtrlN}, runes("B"), tea.KeyMsg{Type: tea.KeyEsc})
	second := m.row
	require.Same(t, second, a.Focus().Target())

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyDown})
	require.Same(t, first, m.row)
	assert.Same(t, first, a.Focus().Target())
	cur, _ := a.Focus().Current()
	assert.Nil(t, cur)

	m, cmd := send(m, tea.KeyMsg{Type: tea.KeyF8})
	require.NotNil(t, cmd)
	_, _ = send(m, cmd())

	assert.False(t, first.IsNew())
	assert.Equal(t, "compras:1", first.Key())
	assert.True(t, second.IsNew())
}

func TestDeleteAsksFirst(t *testing.T) {
	m, a := newModel(t)
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyCtrlN}, tea.KeyMsg{Type: tea.KeyEsc})
	require.Equal(t, 1, a.Table(model.Compras).Len())

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyCtrlD})
	require.Equal(t, modeConfirm, m.mode)
	assert.Contains(t, m.View(), "¿Está seguro de eliminar este registro de compras?")
	assert.Equal(t, 1, a.Traps().Depth())

	m, cmd := send(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Equal(t, modeBrowse, m.mode)
	assert.Zero(t, a.Traps().Depth())
	assert.Equal(t, 1, a.Table(model.Compras).Len())

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyCtrlD})
	m, cmd = send(m, runes("s"))
	require.NotNil(t, cmd)
	_, _ = send(m, cmd())
	assert.Zero(t, a.Table(model.Compras).Len())
}

func TestNoticeBecomesToast(t *testing.T) {
	m, _ := newModel(t)
	m, cmd := send(m, noticeMsg(app.Notice{Level: rowsync.LevelError, Message: "No se pudo guardar el registro: timeout"}))
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "No se pudo guardar el registro: timeout")

	m, _ = send(m, expireMsg{id: m.toasts[0].id})
	assert.Empty(t, m.toasts)
}

func TestLiveRegionLine(t *testing.T) {
	m, _ := newModel(t)
	m, _ = send(m, liveMsg{text: "Guardado exitoso."})
	assert.Contains(t, m.View(), "» Guardado exitoso.")
}

func TestLoginFormTrapsFocus(t *testing.T) {
	m, a := newModel(t)
	ctx := context.Background()

	m, _ = send(m, showLoginMsg{})
	require.Equal(t, modeLogin, m.mode)
	assert.Equal(t, "username", m.loginAt)
	assert.True(t, a.Busy())

	m, _ = send(m, runes("admin"), tea.KeyMsg{Type: tea.KeyTab}, runes("mal"))
	assert.Equal(t, "password", m.loginAt)

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, "username", m.loginAt)

	m, cmd := send(m, tea.KeyMsg{Type: tea.KeyShiftTab}, tea.KeyMsg{Type: tea.KeyShiftTab}, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, _ = send(m, cmd())
	assert.Equal(t, modeLogin, m.mode)
	assert.Contains(t, m.View(), "Usuario o contraseña incorrectos")

	m.pass.SetValue("secreto")
	m, cmd = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, _ = send(m, cmd())
	assert.Equal(t, modeBrowse, m.mode)
	assert.True(t, a.LoggedIn(ctx))
	assert.Zero(t, a.Traps().Depth())
	assert.False(t, a.Busy())
}
