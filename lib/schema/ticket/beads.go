// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticket

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// BeadsEntry is the JSON structure of a single line in a beads JSONL
// file. Field names match the beads serialization format. The same
// shape is used for tkr snapshot exports, so a snapshot can be loaded
// by any beads-compatible tool.
type BeadsEntry struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Description        string            `json:"description,omitempty"`
	Design             string            `json:"design,omitempty"`
	AcceptanceCriteria string            `json:"acceptance_criteria,omitempty"`
	Notes              string            `json:"notes,omitempty"`
	Status             string            `json:"status"`
	Priority           int               `json:"priority"`
	IssueType          string            `json:"issue_type"`
	Assignee           string            `json:"assignee,omitempty"`
	ExternalRef        string            `json:"external_ref,omitempty"`
	Labels             []string          `json:"labels,omitempty"`
	CreatedAt          string            `json:"created_at"`
	UpdatedAt          string            `json:"updated_at,omitempty"`
	ClosedAt           string            `json:"closed_at,omitempty"`
	Dependencies       []BeadsDependency `json:"dependencies,omitempty"`
}

// BeadsDependency represents a dependency relationship in the beads
// format. The IssueID field identifies the ticket that has the
// dependency; DependsOnID identifies the target.
type BeadsDependency struct {
	IssueID     string `json:"issue_id"`
	DependsOnID string `json:"depends_on_id"`
	Type        string `json:"type"` // "blocks", "parent-child", or "related"
}

// Label prefixes used to carry tkr's project and category tags
// through the beads labels list.
const (
	beadsProjectLabel  = "project:"
	beadsCategoryLabel = "category:"
)

// BeadsToTicket converts a beads JSONL entry to a Ticket.
//
// Field mapping:
//   - id -> ID
//   - title, description, design, assignee, external_ref -> same
//   - acceptance_criteria -> Acceptance
//   - status -> Status (see beadsStatus for the non-tkr values)
//   - priority -> Priority (0-4, same scale)
//   - issue_type -> Type (empty becomes DefaultType)
//   - created_at -> Created (zero if unparseable; the caller decides)
//   - notes -> a single Note stamped with updated_at, else created_at
//   - labels "project:x" / "category:y" -> Project / Category
//   - dependencies[type="blocks"] -> Deps (depends_on_id values)
//   - dependencies[type="parent-child"] -> Parent
//   - dependencies[type="related"] -> Links
func BeadsToTicket(entry BeadsEntry) Ticket {
	converted := Ticket{
		ID:          entry.ID,
		Title:       entry.Title,
		Status:      beadsStatus(entry.Status),
		Deps:        []string{},
		Links:       []string{},
		Created:     parseBeadsTime(entry.CreatedAt),
		Type:        entry.IssueType,
		Priority:    entry.Priority,
		Description: entry.Description,
		Design:      entry.Design,
		Acceptance:  entry.AcceptanceCriteria,
		Assignee:    entry.Assignee,
		ExternalRef: entry.ExternalRef,
	}
	if converted.Type == "" {
		converted.Type = DefaultType
	}
	if converted.Priority < 0 || converted.Priority > 4 {
		converted.Priority = DefaultPriority
	}

	for _, label := range entry.Labels {
		switch {
		case strings.HasPrefix(label, beadsProjectLabel):
			converted.Project = strings.TrimPrefix(label, beadsProjectLabel)
		case strings.HasPrefix(label, beadsCategoryLabel):
			converted.Category = strings.TrimPrefix(label, beadsCategoryLabel)
		}
	}

	if entry.Notes != "" {
		stamp := parseBeadsTime(entry.UpdatedAt)
		if stamp.IsZero() {
			stamp = converted.Created
		}
		converted.Notes = []Note{{Timestamp: stamp, Content: entry.Notes}}
	}

	for _, dependency := range entry.Dependencies {
		// The beads format always sets issue_id to the owning entry,
		// but exports from other tools have been seen to inline the
		// reverse edges too.
		if dependency.IssueID != entry.ID {
			continue
		}
		switch dependency.Type {
		case "blocks", "":
			converted.AddDep(dependency.DependsOnID)
		case "parent-child":
			converted.Parent = dependency.DependsOnID
		case "related":
			converted.AddLink(dependency.DependsOnID)
		}
	}

	return converted
}

// TicketToBeads converts a Ticket to a beads JSONL entry. Notes are
// flattened into the single notes string using the same bolded
// timestamp rendering as the document body.
func TicketToBeads(source Ticket) BeadsEntry {
	entry := BeadsEntry{
		ID:                 source.ID,
		Title:              source.Title,
		Description:        source.Description,
		Design:             source.Design,
		AcceptanceCriteria: source.Acceptance,
		Status:             string(source.Status),
		Priority:           source.Priority,
		IssueType:          source.Type,
		Assignee:           source.Assignee,
		ExternalRef:        source.ExternalRef,
		CreatedAt:          source.Created.UTC().Format(time.RFC3339),
	}
	if source.Project != "" {
		entry.Labels = append(entry.Labels, beadsProjectLabel+source.Project)
	}
	if source.Category != "" {
		entry.Labels = append(entry.Labels, beadsCategoryLabel+source.Category)
	}
	if len(source.Notes) > 0 {
		lines := make([]string, len(source.Notes))
		for i, note := range source.Notes {
			lines[i] = FormatNote(note)
		}
		entry.Notes = strings.Join(lines, "\n")
		entry.UpdatedAt = source.Notes[len(source.Notes)-1].Timestamp.UTC().Format(time.RFC3339)
	}
	for _, dep := range source.Deps {
		entry.Dependencies = append(entry.Dependencies, BeadsDependency{
			IssueID: source.ID, DependsOnID: dep, Type: "blocks",
		})
	}
	if source.Parent != "" {
		entry.Dependencies = append(entry.Dependencies, BeadsDependency{
			IssueID: source.ID, DependsOnID: source.Parent, Type: "parent-child",
		})
	}
	for _, link := range source.Links {
		entry.Dependencies = append(entry.Dependencies, BeadsDependency{
			IssueID: source.ID, DependsOnID: link, Type: "related",
		})
	}
	return entry
}

// FormatNote renders a note the way the document body shows it:
// "**2026-01-02 15:04:05**: content".
func FormatNote(note Note) string {
	return fmt.Sprintf("**%s**: %s", note.Timestamp.UTC().Format(NoteTimeLayout), note.Content)
}

// beadsStatus maps a beads status onto the tkr enum. Beads has no
// ready, icebox, or archive directories; its "deferred" is the
// nearest thing to icebox and "tombstone" to archive. Anything
// unrecognized starts over as open rather than being written out of
// range.
func beadsStatus(raw string) Status {
	switch raw {
	case "deferred":
		return StatusIcebox
	case "tombstone":
		return StatusArchive
	}
	status := Status(raw)
	if status.Valid() {
		return status
	}
	return StatusOpen
}

func parseBeadsTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}

// RenameBeadsIDs renames ticket IDs and all internal references from
// the source beads prefix to the target prefix. This includes:
//   - The ticket ID itself (e.g., "bd-10g2" -> "tkr-10g2")
//   - Deps and Links entries
//   - Parent field
//   - References in the title, description, and notes matching the
//     pattern prefix-[0-9a-z]+
//
// Returns the renamed ticket. The input is not modified.
func RenameBeadsIDs(source Ticket, sourcePrefix, targetPrefix string) Ticket {
	renamed := source.Clone()
	rename := func(ticketID string) string {
		return renameBeadsID(ticketID, sourcePrefix, targetPrefix)
	}

	renamed.ID = rename(renamed.ID)
	for i, dep := range renamed.Deps {
		renamed.Deps[i] = rename(dep)
	}
	for i, link := range renamed.Links {
		renamed.Links[i] = rename(link)
	}
	if renamed.Parent != "" {
		renamed.Parent = rename(renamed.Parent)
	}

	pattern := regexp.MustCompile(fmt.Sprintf(`\b%s-([0-9a-z]+)\b`, regexp.QuoteMeta(sourcePrefix)))
	replacement := targetPrefix + "-$1"
	renamed.Title = pattern.ReplaceAllString(renamed.Title, replacement)
	renamed.Description = pattern.ReplaceAllString(renamed.Description, replacement)
	for i := range renamed.Notes {
		renamed.Notes[i].Content = pattern.ReplaceAllString(renamed.Notes[i].Content, replacement)
	}
	return renamed
}

// renameBeadsID replaces the beads prefix in a ticket ID with the
// target prefix. IDs that don't start with the source prefix are
// returned unchanged.
func renameBeadsID(id, sourcePrefix, targetPrefix string) string {
	if strings.HasPrefix(id, sourcePrefix+"-") {
		return targetPrefix + id[len(sourcePrefix):]
	}
	return id
}
