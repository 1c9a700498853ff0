// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketui

import "github.com/charmbracelet/bubbles/key"

// KeyMap is the viewer's key bindings.
type KeyMap struct {
	Up   key.Binding
	Down key.Binding
	Home key.Binding
	End  key.Binding

	// Detail pane scrolling.
	ScrollUp   key.Binding
	ScrollDown key.Binding

	NextTab     key.Binding
	PreviousTab key.Binding

	Filter      key.Binding
	FilterClear key.Binding

	SetOpen       key.Binding
	SetInProgress key.Binding
	SetClosed     key.Binding
	StatusMenu    key.Binding
	AddNote       key.Binding

	Refresh key.Binding
	Quit    key.Binding
}

// DefaultKeyMap pairs vim-style keys with the arrows.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	Home: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "top"),
	),
	End: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "bottom"),
	),
	ScrollUp: key.NewBinding(
		key.WithKeys("ctrl+u", "pgup"),
		key.WithHelp("C-u", "scroll up"),
	),
	ScrollDown: key.NewBinding(
		key.WithKeys("ctrl+d", "pgdown"),
		key.WithHelp("C-d", "scroll down"),
	),
	NextTab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("Tab", "next tab"),
	),
	PreviousTab: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("S-Tab", "previous tab"),
	),
	Filter: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	FilterClear: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "clear filter"),
	),
	SetOpen: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "open"),
	),
	SetInProgress: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "start"),
	),
	SetClosed: key.NewBinding(
		key.WithKeys("3"),
		key.WithHelp("3", "close"),
	),
	StatusMenu: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "status"),
	),
	AddNote: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "note"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// helpLine lists the bindings shown in the footer.
func (keys KeyMap) helpLine() []key.Binding {
	return []key.Binding{
		keys.Up, keys.Down, keys.NextTab, keys.Filter,
		keys.SetOpen, keys.SetInProgress, keys.SetClosed, keys.StatusMenu,
		keys.AddNote, keys.Refresh, keys.Quit,
	}
}
