// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketstore

import (
	"strings"

	"github.com/bureau-foundation/tkr/lib/schema/ticket"
)

// BeadsImportOptions control [Store.ImportBeads].
type BeadsImportOptions struct {
	// Prefix, when set, replaces each entry's id prefix (the text
	// before the first "-") along with every reference to it in deps,
	// links, parent, and free text. "bd-10g2" becomes "tk-10g2".
	Prefix string
}

// ImportBeads writes beads entries as tickets. Entries whose id
// already exists in the store are skipped, so re-running an import is
// harmless. Entries without a usable creation time get the current
// time; entries without project or category labels get the store's.
func (s *Store) ImportBeads(entries []ticket.BeadsEntry, options BeadsImportOptions) (ImportReport, error) {
	var report ImportReport
	now := s.now()
	for _, entry := range entries {
		converted := ticket.BeadsToTicket(entry)
		if options.Prefix != "" {
			if sourcePrefix, _, ok := strings.Cut(converted.ID, "-"); ok && sourcePrefix != options.Prefix {
				converted = ticket.RenameBeadsIDs(converted, sourcePrefix, options.Prefix)
			}
		}
		if converted.Created.IsZero() {
			converted.Created = now
		}
		for i := range converted.Notes {
			if converted.Notes[i].Timestamp.IsZero() {
				converted.Notes[i].Timestamp = converted.Created
			}
		}
		if strings.TrimSpace(converted.Title) == "" {
			converted.Title = untitled
		}
		if converted.Project == "" {
			converted.Project = s.project
		}
		if converted.Category == "" {
			converted.Category = s.category
		}

		if s.existsExact(converted.ID) {
			report.Skipped = append(report.Skipped, converted.ID)
			continue
		}
		if err := s.write(converted, ""); err != nil {
			return report, err
		}
		report.Imported = append(report.Imported, converted.ID)
	}
	s.logger.Info("beads import finished",
		"imported", len(report.Imported), "skipped", len(report.Skipped))
	return report, nil
}

// Export returns every ticket as a beads entry, in List order.
func (s *Store) Export() ([]ticket.BeadsEntry, error) {
	tickets, err := s.List()
	if err != nil {
		return nil, err
	}
	entries := make([]ticket.BeadsEntry, len(tickets))
	for i := range tickets {
		entries[i] = ticket.TicketToBeads(tickets[i])
	}
	return entries, nil
}

// existsExact reports whether a document named ticketID exists in any
// status directory. Prefixes are not considered.
func (s *Store) existsExact(ticketID string) bool {
	if ticketID == "" || strings.ContainsAny(ticketID, `/\`) {
		return false
	}
	for _, status := range ticket.AllStatuses {
		if fileExists(s.pathFor(ticketID, status)) {
			return true
		}
	}
	return false
}
