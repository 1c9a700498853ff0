// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Editor is a small multi-line text input drawn as a bordered overlay.
// The owner routes key messages to Update and decides which keys
// submit or cancel; Editor only edits.
type Editor struct {
	Title  string
	Footer string

	lines  [][]rune
	row    int
	column int
}

// NewEditor returns an empty editor.
func NewEditor(title, footer string) Editor {
	return Editor{Title: title, Footer: footer, lines: [][]rune{{}}}
}

// Value returns the text with lines joined by newlines.
func (editor Editor) Value() string {
	parts := make([]string, len(editor.lines))
	for index, line := range editor.lines {
		parts[index] = string(line)
	}
	return strings.Join(parts, "\n")
}

// Cursor returns the cursor's line and column.
func (editor Editor) Cursor() (int, int) {
	return editor.row, editor.column
}

// Update applies one key to the text.
func (editor *Editor) Update(message tea.KeyMsg) {
	line := editor.lines[editor.row]
	switch message.Type {
	case tea.KeyRunes, tea.KeySpace:
		runes := message.Runes
		if message.Type == tea.KeySpace && len(runes) == 0 {
			runes = []rune{' '}
		}
		editor.lines[editor.row] = slices.Insert(slices.Clone(line), editor.column, runes...)
		editor.column += len(runes)

	case tea.KeyEnter:
		head := slices.Clone(line[:editor.column])
		tail := slices.Clone(line[editor.column:])
		editor.lines[editor.row] = head
		editor.lines = slices.Insert(editor.lines, editor.row+1, tail)
		editor.row++
		editor.column = 0

	case tea.KeyBackspace:
		switch {
		case editor.column > 0:
			editor.lines[editor.row] = slices.Delete(slices.Clone(line), editor.column-1, editor.column)
			editor.column--
		case editor.row > 0:
			previous := editor.lines[editor.row-1]
			editor.column = len(previous)
			editor.lines[editor.row-1] = append(slices.Clone(previous), line...)
			editor.lines = slices.Delete(editor.lines, editor.row, editor.row+1)
			editor.row--
		}

	case tea.KeyDelete:
		switch {
		case editor.column < len(line):
			editor.lines[editor.row] = slices.Delete(slices.Clone(line), editor.column, editor.column+1)
		case editor.row < len(editor.lines)-1:
			editor.lines[editor.row] = append(slices.Clone(line), editor.lines[editor.row+1]...)
			editor.lines = slices.Delete(editor.lines, editor.row+1, editor.row+2)
		}

	case tea.KeyLeft:
		if editor.column > 0 {
			editor.column--
		} else if editor.row > 0 {
			editor.row--
			editor.column = len(editor.lines[editor.row])
		}

	case tea.KeyRight:
		if editor.column < len(line) {
			editor.column++
		} else if editor.row < len(editor.lines)-1 {
			editor.row++
			editor.column = 0
		}

	case tea.KeyUp:
		if editor.row > 0 {
			editor.row--
			editor.column = min(editor.column, len(editor.lines[editor.row]))
		}

	case tea.KeyDown:
		if editor.row < len(editor.lines)-1 {
			editor.row++
			editor.column = min(editor.column, len(editor.lines[editor.row]))
		}

	case tea.KeyHome, tea.KeyCtrlA:
		editor.column = 0

	case tea.KeyEnd, tea.KeyCtrlE:
		editor.column = len(line)
	}
}

// Border and padding take two columns a side; border, title, and
// footer take four rows.
const (
	editorChromeWidth  = 4
	editorChromeHeight = 4
	editorMinWidth     = 30
	editorMinHeight    = 3
	editorMargin       = 2
)

// Render returns the bordered editor sized to the screen less a
// margin, and where to splice it.
func (editor Editor) Render(theme Theme, screenWidth, screenHeight int) ([]string, int, int) {
	width := min(max(screenWidth-2*editorMargin, editorMinWidth+editorChromeWidth), screenWidth)
	height := min(max(screenHeight-2*editorMargin, editorMinHeight+editorChromeHeight), screenHeight)
	innerWidth := max(width-editorChromeWidth, 1)
	innerHeight := max(height-editorChromeHeight, 1)

	background := lipgloss.NewStyle().Background(theme.OverlayBackground)
	text := background.Foreground(theme.NormalText)
	cursor := lipgloss.NewStyle().Reverse(true)

	fill := func(content string) string {
		if gap := innerWidth - ansi.StringWidth(content); gap > 0 {
			content += background.Render(strings.Repeat(" ", gap))
		}
		return content
	}

	rows := []string{fill(background.Bold(true).Foreground(theme.HeaderForeground).Render(editor.Title))}

	first := max(editor.row-innerHeight+1, 0)
	for index := first; index < first+innerHeight; index++ {
		var rendered string
		if index < len(editor.lines) {
			line := editor.lines[index]
			switch {
			case index != editor.row:
				rendered = text.Render(string(line))
			case editor.column >= len(line):
				rendered = text.Render(string(line)) + cursor.Render(" ")
			default:
				rendered = text.Render(string(line[:editor.column])) +
					cursor.Render(string(line[editor.column])) +
					text.Render(string(line[editor.column+1:]))
			}
		}
		rows = append(rows, fill(ansi.Truncate(rendered, innerWidth, "")))
	}
	rows = append(rows, fill(background.Foreground(theme.FaintText).Render(editor.Footer)))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.BorderColor).
		Background(theme.OverlayBackground).
		Padding(0, 1).
		Render(strings.Join(rows, "\n"))
	block := strings.Split(box, "\n")
	x, y := Center(screenWidth, screenHeight, BlockWidth(block), len(block))
	return block, x, y
}
