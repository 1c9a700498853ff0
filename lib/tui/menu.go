// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// MenuOption is one choice in a [Menu].
type MenuOption struct {
	Label string
	Value string
}

// Menu is a pick-one list drawn as an overlay. Up and Down wrap.
type Menu struct {
	Title   string
	Options []MenuOption
	Cursor  int
}

// Up moves the cursor up one option.
func (menu *Menu) Up() {
	if len(menu.Options) == 0 {
		return
	}
	menu.Cursor = (menu.Cursor - 1 + len(menu.Options)) % len(menu.Options)
}

// Down moves the cursor down one option.
func (menu *Menu) Down() {
	if len(menu.Options) == 0 {
		return
	}
	menu.Cursor = (menu.Cursor + 1) % len(menu.Options)
}

// Select places the cursor on the option with the given value, if
// there is one.
func (menu *Menu) Select(value string) {
	for index, option := range menu.Options {
		if option.Value == value {
			menu.Cursor = index
			return
		}
	}
}

// Selected returns the option under the cursor.
func (menu *Menu) Selected() (MenuOption, bool) {
	if menu.Cursor < 0 || menu.Cursor >= len(menu.Options) {
		return MenuOption{}, false
	}
	return menu.Options[menu.Cursor], true
}

// Render returns the menu rows, all the same width.
func (menu *Menu) Render(theme Theme) []string {
	inner := ansi.StringWidth(menu.Title)
	for _, option := range menu.Options {
		inner = max(inner, ansi.StringWidth(option.Label)+2)
	}

	plain := lipgloss.NewStyle().Background(theme.OverlayBackground).Foreground(theme.NormalText)
	selected := lipgloss.NewStyle().Background(theme.SelectedBackground).Foreground(theme.SelectedForeground)
	title := plain.Bold(true).Foreground(theme.HeaderForeground)

	pad := func(style lipgloss.Style, content string) string {
		fill := inner - ansi.StringWidth(content)
		return style.Render(" " + content + strings.Repeat(" ", max(fill, 0)) + " ")
	}

	rows := make([]string, 0, len(menu.Options)+1)
	if menu.Title != "" {
		rows = append(rows, pad(title, menu.Title))
	}
	for index, option := range menu.Options {
		if index == menu.Cursor {
			rows = append(rows, pad(selected, "> "+option.Label))
		} else {
			rows = append(rows, pad(plain, "  "+option.Label))
		}
	}
	return rows
}
