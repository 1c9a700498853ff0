// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/ticketindex"
	"github.com/bureau-foundation/tkr/lib/tui"
)

// renderDetail renders the full detail pane body for one ticket.
func renderDetail(theme tui.Theme, index *ticketindex.Index, entry ticket.Ticket, width int) string {
	width = max(width, 20)
	title := lipgloss.NewStyle().Bold(true).Foreground(theme.HeaderForeground)
	label := lipgloss.NewStyle().Foreground(theme.FaintText)
	normal := lipgloss.NewStyle().Foreground(theme.NormalText)
	section := lipgloss.NewStyle().Bold(true).Underline(true).Foreground(theme.HeaderForeground)

	var out strings.Builder
	out.WriteString(ansi.Wrap(title.Render(entry.Title), width, wrapBreakpoints))
	out.WriteString("\n")
	out.WriteString(strings.Join([]string{
		normal.Render(entry.ID),
		lipgloss.NewStyle().Foreground(theme.StatusColor(entry.Status)).Render(string(entry.Status)),
		lipgloss.NewStyle().Foreground(theme.PriorityColor(entry.Priority)).Render(fmt.Sprintf("P%d", entry.Priority)),
		normal.Render(entry.Type),
	}, label.Render(" · ")))
	out.WriteString("\n\n")

	field := func(name, value string) {
		if value == "" {
			return
		}
		out.WriteString(ansi.Wrap(label.Render(name+": ")+normal.Render(value), width, wrapBreakpoints))
		out.WriteString("\n")
	}
	field("created", entry.Created.UTC().Format(ticket.NoteTimeLayout))
	field("assignee", entry.Assignee)
	field("parent", entry.Parent)
	field("project", entry.Project)
	field("category", entry.Category)
	field("external", entry.ExternalRef)
	field("depends on", references(theme, index, entry.Deps))
	if index != nil {
		field("blocks", references(theme, index, index.Dependents(entry.ID)))
	}
	field("links", references(theme, index, entry.Links))

	for _, part := range []struct {
		name string
		body string
	}{
		{"Description", entry.Description},
		{"Design", entry.Design},
		{"Acceptance", entry.Acceptance},
	} {
		rendered := renderMarkdown(part.body, theme, width)
		if rendered == "" {
			continue
		}
		out.WriteString("\n" + section.Render(part.name) + "\n\n")
		out.WriteString(rendered)
		out.WriteString("\n")
	}

	if len(entry.Notes) > 0 {
		out.WriteString("\n" + section.Render("Notes") + "\n\n")
		for _, note := range entry.Notes {
			out.WriteString(label.Render(note.Timestamp.UTC().Format(ticket.NoteTimeLayout)))
			out.WriteString("\n")
			out.WriteString(renderMarkdown(note.Content, theme, width))
			out.WriteString("\n\n")
		}
	}
	return strings.TrimRight(out.String(), "\n")
}

// references lists ticket ids with their statuses, missing ones
// marked as such.
func references(theme tui.Theme, index *ticketindex.Index, ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for position, id := range ids {
		if index == nil {
			parts[position] = id
			continue
		}
		referenced, ok := index.Get(id)
		if !ok {
			parts[position] = id + lipgloss.NewStyle().Foreground(theme.ErrorText).Render(" (missing)")
			continue
		}
		parts[position] = id + " " + lipgloss.NewStyle().Foreground(theme.StatusColor(referenced.Status)).Render("("+string(referenced.Status)+")")
	}
	return strings.Join(parts, ", ")
}
