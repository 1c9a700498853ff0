// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketui

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/tui"
)

// Tab selects which tickets the list shows.
type Tab int

const (
	TabAll Tab = iota
	TabReady
	TabBlocked
	tabCount
)

func (tab Tab) String() string {
	switch tab {
	case TabAll:
		return "All"
	case TabReady:
		return "Ready"
	case TabBlocked:
		return "Blocked"
	}
	return fmt.Sprintf("Tab(%d)", int(tab))
}

// row is one list line: a ticket and, while filtering, the rune
// positions of filterText(ticket) the pattern matched.
type row struct {
	ticket    ticket.Ticket
	positions []int
	score     int
}

// filterText is what the list filter matches against, and the text
// the list shows after the priority column.
func filterText(entry ticket.Ticket) string {
	return entry.ID + " " + entry.Title
}

// filterRows keeps the tickets matching pattern, best match first.
// Equal scores keep their incoming order.
func filterRows(tickets []ticket.Ticket, pattern []rune) []row {
	rows := make([]row, 0, len(tickets))
	if len(pattern) == 0 {
		for _, entry := range tickets {
			rows = append(rows, row{ticket: entry})
		}
		return rows
	}
	slab := tui.NewSlab()
	for _, entry := range tickets {
		result := tui.FuzzyMatch(filterText(entry), pattern, slab)
		if result.Score > 0 {
			rows = append(rows, row{ticket: entry, positions: result.Positions, score: result.Score})
		}
	}
	slices.SortStableFunc(rows, func(a, b row) int { return cmp.Compare(b.score, a.score) })
	return rows
}

// renderRow draws one list line exactly width cells wide.
func renderRow(theme tui.Theme, entry row, width int, selected bool) string {
	base := lipgloss.NewStyle().Foreground(theme.NormalText)
	if selected {
		base = base.Background(theme.SelectedBackground).Foreground(theme.SelectedForeground)
	}
	priority := base.Foreground(theme.PriorityColor(entry.ticket.Priority)).Render(fmt.Sprintf("P%d", entry.ticket.Priority))
	status := base.Foreground(theme.StatusColor(entry.ticket.Status)).Render("●")
	match := base.Background(theme.MatchBackground)

	line := base.Render(" ") + priority + base.Render(" ") + status + base.Render(" ") +
		highlight(filterText(entry.ticket), entry.positions, base, match)
	line = ansi.Truncate(line, width, "…")
	if gap := width - ansi.StringWidth(line); gap > 0 {
		line += base.Render(strings.Repeat(" ", gap))
	}
	return line
}

// highlight renders text in base, switching to match for the runes at
// positions.
func highlight(text string, positions []int, base, match lipgloss.Style) string {
	if len(positions) == 0 {
		return base.Render(text)
	}
	matched := make(map[int]bool, len(positions))
	for _, position := range positions {
		matched[position] = true
	}
	var (
		out     strings.Builder
		run     []rune
		inMatch bool
	)
	flushRun := func() {
		if len(run) == 0 {
			return
		}
		if inMatch {
			out.WriteString(match.Render(string(run)))
		} else {
			out.WriteString(base.Render(string(run)))
		}
		run = run[:0]
	}
	for index, character := range []rune(text) {
		if matched[index] != inMatch {
			flushRun()
			inMatch = matched[index]
		}
		run = append(run, character)
	}
	flushRun()
	return out.String()
}
