// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketui

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/ticketindex"
	"github.com/bureau-foundation/tkr/lib/ticketstore"
	"github.com/bureau-foundation/tkr/lib/ticketwatch"
	"github.com/bureau-foundation/tkr/lib/tui"
)

// Options configures a Model.
type Options struct {
	// Store is read on every load and written by transitions and
	// notes. Required.
	Store Store

	// Changes, when set, triggers a reload for every batch. Usually
	// a ticketwatch.Watcher's Events channel.
	Changes <-chan ticketwatch.Batch

	// Theme and Keys default to DefaultTheme and DefaultKeyMap.
	Theme *tui.Theme
	Keys  *KeyMap
}

// Model is the bubbletea model for the viewer.
type Model struct {
	store   lockedStore
	changes <-chan ticketwatch.Batch
	theme   tui.Theme
	keys    KeyMap

	tickets []ticket.Ticket
	index   *ticketindex.Index
	loaded  bool

	tab    Tab
	rows   []row
	cursor int
	offset int
	// selectedID keeps the selection on the same ticket across
	// reloads and tab switches when it is still listed.
	selectedID string

	filtering bool
	filter    []rune

	detail viewport.Model
	menu   *tui.Menu
	editor *tui.Editor

	message string
	failed  bool

	width  int
	height int
}

type loadedMsg struct {
	tickets []ticket.Ticket
	err     error
}

type changedMsg struct {
	paths int
}

type transitionedMsg struct {
	change ticketstore.Change
	err    error
}

type notedMsg struct {
	id  string
	err error
}

// Chrome rows: tab bar on top, message and help lines at the bottom.
const chromeRows = 3

// New returns a Model reading from options.Store. Nothing is loaded
// until the program runs Init.
func New(options Options) (Model, error) {
	if options.Store == nil {
		return Model{}, errors.New("ticketui: store is required")
	}
	model := Model{
		store:   lockedStore{mu: &sync.Mutex{}, inner: options.Store},
		changes: options.Changes,
		theme:   tui.DefaultTheme,
		keys:    DefaultKeyMap,
		index:   ticketindex.New(),
	}
	if options.Theme != nil {
		model.theme = *options.Theme
	}
	if options.Keys != nil {
		model.keys = *options.Keys
	}
	return model, nil
}

// Init loads the tickets and starts listening for changes.
func (model Model) Init() tea.Cmd {
	return tea.Batch(model.load(), waitForChange(model.changes))
}

func (model Model) load() tea.Cmd {
	store := model.store
	return func() tea.Msg {
		tickets, err := store.List()
		return loadedMsg{tickets: tickets, err: err}
	}
}

func waitForChange(changes <-chan ticketwatch.Batch) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		batch, ok := <-changes
		if !ok {
			return nil
		}
		return changedMsg{paths: len(batch.Paths)}
	}
}

func (model Model) transition(ticketID string, status ticket.Status) tea.Cmd {
	store := model.store
	return func() tea.Msg {
		change, err := store.Transition(ticketID, status)
		return transitionedMsg{change: change, err: err}
	}
}

func (model Model) appendNote(ticketID, text string) tea.Cmd {
	store := model.store
	return func() tea.Msg {
		_, err := store.AppendNote(ticketID, text)
		return notedMsg{id: ticketID, err: err}
	}
}

// Update handles one message.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.layout()
		model.syncDetail(false)

	case loadedMsg:
		if message.err != nil {
			model.setError(fmt.Errorf("loading tickets: %w", message.err))
			break
		}
		model.tickets = message.tickets
		model.index = ticketindex.Build(message.tickets)
		model.loaded = true
		model.rebuildRows()
		model.syncDetail(false)

	case changedMsg:
		return model, tea.Batch(model.load(), waitForChange(model.changes))

	case transitionedMsg:
		if message.err != nil {
			model.setError(message.err)
			break
		}
		model.setMessage(describeChange(message.change))
		return model, model.load()

	case notedMsg:
		if message.err != nil {
			model.setError(message.err)
			break
		}
		model.setMessage("note added to " + message.id)
		return model, model.load()

	case tea.KeyMsg:
		switch {
		case model.editor != nil:
			return model.editorKey(message)
		case model.menu != nil:
			return model.menuKey(message)
		case model.filtering:
			return model.filterKey(message), nil
		}
		return model.key(message)
	}
	return model, nil
}

func (model Model) key(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.Up):
		model.moveCursor(model.cursor - 1)
	case key.Matches(message, model.keys.Down):
		model.moveCursor(model.cursor + 1)
	case key.Matches(message, model.keys.Home):
		model.moveCursor(0)
	case key.Matches(message, model.keys.End):
		model.moveCursor(len(model.rows) - 1)

	case key.Matches(message, model.keys.ScrollUp):
		model.detail.HalfViewUp()
	case key.Matches(message, model.keys.ScrollDown):
		model.detail.HalfViewDown()

	case key.Matches(message, model.keys.NextTab):
		model.switchTab((model.tab + 1) % tabCount)
	case key.Matches(message, model.keys.PreviousTab):
		model.switchTab((model.tab + tabCount - 1) % tabCount)

	case key.Matches(message, model.keys.Filter):
		model.filtering = true

	case key.Matches(message, model.keys.FilterClear):
		if len(model.filter) > 0 {
			model.filter = nil
			model.rebuildRows()
			model.syncDetail(false)
		}

	case key.Matches(message, model.keys.SetOpen):
		return model.transitionSelected(ticket.StatusOpen)
	case key.Matches(message, model.keys.SetInProgress):
		return model.transitionSelected(ticket.StatusInProgress)
	case key.Matches(message, model.keys.SetClosed):
		return model.transitionSelected(ticket.StatusClosed)

	case key.Matches(message, model.keys.StatusMenu):
		selected, ok := model.selected()
		if !ok {
			break
		}
		menu := &tui.Menu{Title: "Status of " + selected.ID}
		for _, status := range ticket.AllStatuses {
			menu.Options = append(menu.Options, tui.MenuOption{Label: string(status), Value: string(status)})
		}
		menu.Select(string(selected.Status))
		model.menu = menu

	case key.Matches(message, model.keys.AddNote):
		selected, ok := model.selected()
		if !ok {
			break
		}
		editor := tui.NewEditor("Add note to "+selected.ID, "ctrl+d save  esc cancel")
		model.editor = &editor

	case key.Matches(message, model.keys.Refresh):
		model.setMessage("reloading")
		return model, model.load()
	}
	return model, nil
}

func (model Model) filterKey(message tea.KeyMsg) Model {
	switch message.Type {
	case tea.KeyEsc:
		model.filtering = false
		model.filter = nil
	case tea.KeyEnter:
		model.filtering = false
		return model
	case tea.KeyBackspace:
		if len(model.filter) == 0 {
			return model
		}
		model.filter = model.filter[:len(model.filter)-1]
	case tea.KeyRunes:
		model.filter = append(model.filter, message.Runes...)
	case tea.KeySpace:
		model.filter = append(model.filter, ' ')
	case tea.KeyUp:
		model.moveCursor(model.cursor - 1)
		return model
	case tea.KeyDown:
		model.moveCursor(model.cursor + 1)
		return model
	default:
		return model
	}
	// Start from the best match each time the pattern changes.
	model.selectedID = ""
	model.cursor = 0
	model.rebuildRows()
	model.syncDetail(true)
	return model
}

func (model Model) menuKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case message.Type == tea.KeyEsc, key.Matches(message, model.keys.Quit):
		model.menu = nil
	case key.Matches(message, model.keys.Up):
		model.menu.Up()
	case key.Matches(message, model.keys.Down):
		model.menu.Down()
	case message.Type == tea.KeyEnter:
		option, ok := model.menu.Selected()
		model.menu = nil
		if ok {
			return model.transitionSelected(ticket.Status(option.Value))
		}
	}
	return model, nil
}

func (model Model) editorKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch message.Type {
	case tea.KeyEsc:
		model.editor = nil
		return model, nil
	case tea.KeyCtrlD:
		text := strings.TrimSpace(model.editor.Value())
		model.editor = nil
		selected, ok := model.selected()
		if text == "" || !ok {
			return model, nil
		}
		return model, model.appendNote(selected.ID, text)
	}
	editor := *model.editor
	editor.Update(message)
	model.editor = &editor
	return model, nil
}

func (model Model) transitionSelected(status ticket.Status) (tea.Model, tea.Cmd) {
	selected, ok := model.selected()
	if !ok {
		return model, nil
	}
	if selected.Status == status {
		model.setMessage(fmt.Sprintf("%s is already %s", selected.ID, status))
		return model, nil
	}
	return model, model.transition(selected.ID, status)
}

func (model *Model) setMessage(text string) {
	model.message = text
	model.failed = false
}

func (model *Model) setError(err error) {
	model.message = err.Error()
	model.failed = true
}

func describeChange(change ticketstore.Change) string {
	if !change.Changed {
		return fmt.Sprintf("%s is already %s", change.Ticket.ID, change.Ticket.Status)
	}
	text := fmt.Sprintf("%s: %s → %s", change.Ticket.ID, change.Previous, change.Ticket.Status)
	if len(change.Unblocked) > 0 {
		text += "; unblocked " + strings.Join(change.Unblocked, ", ")
	}
	return text
}

func (model *Model) switchTab(tab Tab) {
	model.tab = tab
	model.rebuildRows()
	model.syncDetail(true)
}

// rebuildRows recomputes the visible rows for the current tab and
// filter, keeping the cursor on selectedID when it is still listed.
func (model *Model) rebuildRows() {
	var source []ticket.Ticket
	switch model.tab {
	case TabReady:
		source = model.index.Ready()
	case TabBlocked:
		source = model.index.Blocked()
	default:
		source = model.tickets
	}
	model.rows = filterRows(source, model.filter)

	model.cursor = min(model.cursor, len(model.rows)-1)
	for position := range model.rows {
		if model.rows[position].ticket.ID == model.selectedID {
			model.cursor = position
			break
		}
	}
	model.cursor = max(model.cursor, 0)
	model.scrollList()
	if selected, ok := model.selected(); ok {
		model.selectedID = selected.ID
	}
}

func (model *Model) moveCursor(position int) {
	if len(model.rows) == 0 {
		return
	}
	position = min(max(position, 0), len(model.rows)-1)
	if position == model.cursor {
		return
	}
	model.cursor = position
	model.selectedID = model.rows[position].ticket.ID
	model.scrollList()
	model.syncDetail(true)
}

func (model Model) selected() (ticket.Ticket, bool) {
	if model.cursor < 0 || model.cursor >= len(model.rows) {
		return ticket.Ticket{}, false
	}
	return model.rows[model.cursor].ticket, true
}

func (model Model) bodyHeight() int {
	return max(model.height-chromeRows, 1)
}

func (model Model) listWidth() int {
	return max(model.width*2/5, 20)
}

func (model Model) detailWidth() int {
	// One column for the divider and one for the scrollbar.
	return max(model.width-model.listWidth()-2, 10)
}

func (model *Model) layout() {
	model.detail.Width = model.detailWidth()
	model.detail.Height = model.bodyHeight()
	model.scrollList()
}

func (model *Model) scrollList() {
	height := model.bodyHeight()
	if model.cursor < model.offset {
		model.offset = model.cursor
	}
	if model.cursor >= model.offset+height {
		model.offset = model.cursor - height + 1
	}
	model.offset = max(min(model.offset, len(model.rows)-height), 0)
}

// syncDetail renders the selected ticket into the viewport. top
// scrolls back to the start, for when the selection changed.
func (model *Model) syncDetail(top bool) {
	selected, ok := model.selected()
	if !ok {
		model.detail.SetContent("")
		return
	}
	offset := model.detail.YOffset
	model.detail.SetContent(renderDetail(model.theme, model.index, selected, model.detailWidth()))
	if top {
		model.detail.GotoTop()
		return
	}
	model.detail.SetYOffset(offset)
}

// View draws the screen.
func (model Model) View() string {
	if model.width == 0 {
		return ""
	}
	header := model.viewHeader()
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		model.viewList(),
		lipgloss.NewStyle().Foreground(model.theme.BorderColor).Render(strings.TrimRight(strings.Repeat("│\n", model.bodyHeight()), "\n")),
		lipgloss.NewStyle().Width(model.detailWidth()).Height(model.bodyHeight()).MaxHeight(model.bodyHeight()).Render(model.detail.View()),
		tui.Scrollbar(model.theme, model.bodyHeight(), model.detail.TotalLineCount(), model.detail.Height, model.detail.YOffset),
	)
	view := strings.Join([]string{header, body, model.viewMessage(), model.viewHelp()}, "\n")

	switch {
	case model.editor != nil:
		rows, x, y := model.editor.Render(model.theme, model.width, model.height)
		view = tui.Splice(view, rows, x, y)
	case model.menu != nil:
		rows := model.menu.Render(model.theme)
		x, y := tui.Center(model.width, model.height, tui.BlockWidth(rows), len(rows))
		view = tui.Splice(view, rows, x, y)
	}
	return view
}

func (model Model) viewHeader() string {
	if model.filtering || len(model.filter) > 0 {
		prompt := lipgloss.NewStyle().Foreground(model.theme.HeaderForeground).Bold(true).Render("/")
		text := string(model.filter)
		if model.filtering {
			text += "▏"
		}
		counts := lipgloss.NewStyle().Foreground(model.theme.FaintText).Render(fmt.Sprintf("  %d matches", len(model.rows)))
		return ansi.Truncate(prompt+" "+text+counts, model.width, "…")
	}
	var tabs []string
	for tab := TabAll; tab < tabCount; tab++ {
		label := fmt.Sprintf(" %s (%d) ", tab, model.tabCount(tab))
		style := lipgloss.NewStyle().Foreground(model.theme.FaintText)
		if tab == model.tab {
			style = lipgloss.NewStyle().Bold(true).
				Foreground(model.theme.SelectedForeground).
				Background(model.theme.SelectedBackground)
		}
		tabs = append(tabs, style.Render(label))
	}
	return ansi.Truncate(strings.Join(tabs, " "), model.width, "…")
}

func (model Model) tabCount(tab Tab) int {
	switch tab {
	case TabReady:
		return len(model.index.Ready())
	case TabBlocked:
		return len(model.index.Blocked())
	}
	return len(model.tickets)
}

func (model Model) viewList() string {
	width := model.listWidth()
	height := model.bodyHeight()
	lines := make([]string, 0, height)
	for position := model.offset; position < len(model.rows) && len(lines) < height; position++ {
		lines = append(lines, renderRow(model.theme, model.rows[position], width, position == model.cursor))
	}
	if len(model.rows) == 0 {
		empty := "no tickets"
		if !model.loaded {
			empty = "loading…"
		}
		lines = append(lines, lipgloss.NewStyle().Foreground(model.theme.FaintText).Render(" "+empty))
	}
	blank := strings.Repeat(" ", width)
	for len(lines) < height {
		lines = append(lines, blank)
	}
	return strings.Join(lines, "\n")
}

func (model Model) viewMessage() string {
	style := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	if model.failed {
		style = lipgloss.NewStyle().Foreground(model.theme.ErrorText)
	}
	return ansi.Truncate(style.Render(model.message), model.width, "…")
}

func (model Model) viewHelp() string {
	var parts []string
	for _, binding := range model.keys.helpLine() {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return ansi.Truncate(lipgloss.NewStyle().Foreground(model.theme.HelpText).Render(strings.Join(parts, "  ")), model.width, "…")
}
