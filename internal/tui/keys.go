package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap lists every console shortcut.
type KeyMap struct {
	Up, Down, Left, Right       key.Binding
	CellUp, CellDown            key.Binding
	CellLeft, CellRight         key.Binding
	NextTab, PrevTab            key.Binding
	Edit, Done, Cancel          key.Binding
	Save                        key.Binding
	AddRow, DeleteRow           key.Binding
	Print, SavePDF              key.Binding
	MoreCopies, FewerCopies     key.Binding
	Incoterm                    key.Binding
	Search, Refresh             key.Binding
	Export, Planilla, Backup    key.Binding
	Theme, Login, Help, Quit    key.Binding
	Presets                     key.Binding
	ToggleSection, ResetSection key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:            key.NewBinding(key.WithKeys("up", "k")),
		Down:          key.NewBinding(key.WithKeys("down", "j")),
		Left:          key.NewBinding(key.WithKeys("left", "h")),
		Right:         key.NewBinding(key.WithKeys("right", "l")),
		CellUp:        key.NewBinding(key.WithKeys("ctrl+up"), key.WithHelp("ctrl+↑↓←→", "celda")),
		CellDown:      key.NewBinding(key.WithKeys("ctrl+down")),
		CellLeft:      key.NewBinding(key.WithKeys("ctrl+left")),
		CellRight:     key.NewBinding(key.WithKeys("ctrl+right")),
		NextTab:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "pestaña")),
		PrevTab:       key.NewBinding(key.WithKeys("shift+tab")),
		Edit:          key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "editar")),
		Done:          key.NewBinding(key.WithKeys("enter")),
		Cancel:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "salir")),
		Save:          key.NewBinding(key.WithKeys("f8"), key.WithHelp("f8", "guardar")),
		AddRow:        key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "nueva fila")),
		DeleteRow:     key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "eliminar")),
		Print:         key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "imprimir")),
		SavePDF:       key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "guardar pdf")),
		MoreCopies:    key.NewBinding(key.WithKeys("+")),
		FewerCopies:   key.NewBinding(key.WithKeys("-")),
		Incoterm:      key.NewBinding(key.WithKeys(" "), key.WithHelp("espacio", "incoterm")),
		Search:        key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "buscar")),
		Refresh:       key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "recargar")),
		Export:        key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "exportar")),
		Planilla:      key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "planilla")),
		Backup:        key.NewBinding(key.WithKeys("ctrl+b"), key.WithHelp("ctrl+b", "backup")),
		Theme:         key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "tema")),
		Login:         key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "sesión")),
		Help:          key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "ayuda")),
		Quit:          key.NewBinding(key.WithKeys("ctrl+c", "ctrl+q"), key.WithHelp("ctrl+q", "salir")),
		Presets:       key.NewBinding(key.WithKeys("1", "2", "3", "4", "5"), key.WithHelp("1-5", "período")),
		ToggleSection: key.NewBinding(key.WithKeys("e", "d", "r", "m"), key.WithHelp("e/d/r/m", "secciones")),
		ResetSection:  key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "restablecer")),
	}
}

// ShortHelp is shown in the footer of the record tabs.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Edit, k.Save, k.AddRow, k.DeleteRow, k.Print, k.NextTab, k.Help, k.Quit}
}

// FullHelp is shown when help is toggled.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Edit, k.Cancel, k.Save, k.CellUp, k.Incoterm},
		{k.AddRow, k.DeleteRow, k.Print, k.SavePDF, k.Planilla},
		{k.Search, k.Refresh, k.Export, k.Backup},
		{k.NextTab, k.Theme, k.Login, k.Quit},
		{k.Presets, k.ToggleSection, k.ResetSection},
	}
}
