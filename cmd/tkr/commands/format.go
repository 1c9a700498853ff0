// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/ticketindex"
)

const titleWidth = 60

func writeTicketTable(w io.Writer, tickets []ticket.Ticket) error {
	writer := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(writer, "ID\tSTATUS\tPRI\tTYPE\tTITLE\n")
	for _, entry := range tickets {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			entry.ID, entry.Status, priorityLabel(entry.Priority), entry.Type, truncate(entry.Title, titleWidth))
	}
	return writer.Flush()
}

// writeBlockedTable adds the dependencies still holding each ticket.
func writeBlockedTable(w io.Writer, tickets []ticket.Ticket, index *ticketindex.Index) error {
	writer := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(writer, "ID\tSTATUS\tPRI\tTITLE\tWAITING ON\n")
	for _, entry := range tickets {
		waiting := "-"
		if unresolved := index.Unresolved(entry.ID); len(unresolved) > 0 {
			waiting = strings.Join(unresolved, ", ")
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			entry.ID, entry.Status, priorityLabel(entry.Priority), truncate(entry.Title, titleWidth), waiting)
	}
	return writer.Flush()
}

func writeRankedTable(w io.Writer, results []ticketindex.Scored) error {
	writer := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintf(writer, "SCORE\tID\tSTATUS\tPRI\tTITLE\n")
	for _, result := range results {
		fmt.Fprintf(writer, "%.2f\t%s\t%s\t%s\t%s\n",
			result.Score, result.Ticket.ID, result.Ticket.Status,
			priorityLabel(result.Ticket.Priority), truncate(result.Ticket.Title, titleWidth))
	}
	return writer.Flush()
}

// writeDetail writes the fields of entry, the dependency graph around
// it, its Markdown sections, and its notes.
func writeDetail(w io.Writer, entry ticket.Ticket, index *ticketindex.Index) error {
	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "ID:\t%s\n", entry.ID)
	fmt.Fprintf(writer, "Title:\t%s\n", entry.Title)
	fmt.Fprintf(writer, "Status:\t%s\n", entry.Status)
	fmt.Fprintf(writer, "Priority:\t%s\n", priorityLabel(entry.Priority))
	fmt.Fprintf(writer, "Type:\t%s\n", entry.Type)
	fmt.Fprintf(writer, "Created:\t%s\n", entry.Created.UTC().Format(ticket.NoteTimeLayout))
	optional := []struct{ label, value string }{
		{"Assignee", entry.Assignee},
		{"Parent", entry.Parent},
		{"Project", entry.Project},
		{"Category", entry.Category},
		{"External ref", entry.ExternalRef},
		{"Depends on", strings.Join(entry.Deps, ", ")},
		{"Waiting on", strings.Join(index.Unresolved(entry.ID), ", ")},
		{"Blocks", strings.Join(index.Dependents(entry.ID), ", ")},
		{"Children", strings.Join(index.Children(entry.ID), ", ")},
		{"Links", strings.Join(entry.Links, ", ")},
	}
	for _, field := range optional {
		if field.value != "" {
			fmt.Fprintf(writer, "%s:\t%s\n", field.label, field.value)
		}
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	for _, section := range []struct{ name, body string }{
		{"Description", entry.Description},
		{"Design", entry.Design},
		{"Acceptance", entry.Acceptance},
	} {
		if strings.TrimSpace(section.body) == "" {
			continue
		}
		fmt.Fprintf(w, "\n## %s\n\n%s\n", section.name, strings.TrimRight(section.body, "\n"))
	}
	if len(entry.Notes) > 0 {
		fmt.Fprintf(w, "\n## Notes\n")
		for _, note := range entry.Notes {
			fmt.Fprintf(w, "\n%s\n", ticket.FormatNote(note))
		}
	}
	return nil
}

// writeTree draws a dependency tree with box-drawing guides.
func writeTree(w io.Writer, root *ticketindex.Node) {
	fmt.Fprintln(w, treeLabel(root))
	writeChildren(w, root.Children, "")
}

func writeChildren(w io.Writer, children []*ticketindex.Node, prefix string) {
	for i, child := range children {
		branch, indent := "├── ", "│   "
		if i == len(children)-1 {
			branch, indent = "└── ", "    "
		}
		fmt.Fprintf(w, "%s%s%s\n", prefix, branch, treeLabel(child))
		writeChildren(w, child.Children, prefix+indent)
	}
}

func treeLabel(node *ticketindex.Node) string {
	switch {
	case node.Missing:
		return node.ID + " (missing)"
	case node.Cycle:
		return fmt.Sprintf("%s [%s] %s (cycle)", node.ID, node.Status, node.Title)
	case node.Repeated:
		return fmt.Sprintf("%s [%s] %s (see above)", node.ID, node.Status, node.Title)
	}
	return fmt.Sprintf("%s [%s] %s", node.ID, node.Status, node.Title)
}

func priorityLabel(priority int) string {
	return fmt.Sprintf("P%d", priority)
}

func truncate(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	return string(runes[:maxLength-3]) + "..."
}
