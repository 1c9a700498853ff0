// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketstore

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/ticketdoc"
)

// Format classifies the flat documents directly under a store root.
type Format int

const (
	// FormatCurrent: every flat document starts with a metadata
	// block, or there are none.
	FormatCurrent Format = iota

	// FormatLegacy: at least one flat document has no metadata
	// block.
	FormatLegacy
)

func (f Format) String() string {
	if f == FormatLegacy {
		return "legacy"
	}
	return "current"
}

// untitled is the title given to legacy documents whose first line is
// only heading markers.
const untitled = "Untitled"

// DetectFormat reports whether any flat document under storeRoot is in
// the legacy format. Status directories are not examined.
func DetectFormat(storeRoot string) (Format, error) {
	paths, err := flatDocuments(storeRoot)
	if err != nil {
		return FormatCurrent, err
	}
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return FormatCurrent, ioError("reading", path, err)
		}
		if !ticketdoc.StartsWithMetadata(content) {
			return FormatLegacy, nil
		}
	}
	return FormatCurrent, nil
}

// ImportReport lists what an import did, by ticket id.
type ImportReport struct {
	// Imported: converted from the legacy format or another tool.
	Imported []string `json:"imported,omitempty"`

	// Organized: current-format flat documents filed into their
	// status directory.
	Organized []string `json:"organized,omitempty"`

	// Skipped: ids that already exist in the store.
	Skipped []string `json:"skipped,omitempty"`
}

// Total is the number of tickets written.
func (r ImportReport) Total() int {
	return len(r.Imported) + len(r.Organized)
}

// ImportLegacy files every flat document under the root into the
// status layout. Legacy documents are converted (see parseLegacy);
// current-format documents are moved as-is. Each source file is
// deleted once its ticket is written. A document whose id is already
// filed in a status directory, or was claimed by an earlier flat
// document, is reported in Skipped and left where it is.
//
// Every document is classified before anything is written. A document
// that is neither format (empty, not UTF-8, or a metadata block that
// does not decode) fails the whole import with ErrMigrationUnsupported
// and nothing is changed.
func (s *Store) ImportLegacy() (ImportReport, error) {
	var report ImportReport
	paths, err := flatDocuments(s.root)
	if err != nil {
		return report, err
	}

	type pending struct {
		ticket    ticket.Ticket
		source    string
		organized bool
	}
	now := s.now()
	var work []pending
	claimed := make(map[string]struct{}, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return report, ioError("reading", path, err)
		}
		stem := strings.TrimSuffix(filepath.Base(path), ticketdoc.Extension)
		converted, organized, err := s.classify(content, stem, now)
		if err != nil {
			return report, fmt.Errorf("%w: %s: %w", ErrMigrationUnsupported, path, err)
		}
		if _, taken := claimed[converted.ID]; taken || s.existsExact(converted.ID) {
			report.Skipped = append(report.Skipped, converted.ID)
			s.logger.Warn("flat ticket document skipped, id already in store", "id", converted.ID, "source", path)
			continue
		}
		claimed[converted.ID] = struct{}{}
		work = append(work, pending{ticket: converted, source: path, organized: organized})
	}

	for _, item := range work {
		if err := s.write(item.ticket, ""); err != nil {
			return report, err
		}
		if err := os.Remove(item.source); err != nil {
			return report, ioError("removing", item.source, err)
		}
		if item.organized {
			report.Organized = append(report.Organized, item.ticket.ID)
		} else {
			report.Imported = append(report.Imported, item.ticket.ID)
		}
		s.logger.Info("imported flat ticket document", "id", item.ticket.ID, "source", item.source, "converted", !item.organized)
	}
	return report, nil
}

func (s *Store) classify(content []byte, stem string, now time.Time) (ticket.Ticket, bool, error) {
	if !utf8.Valid(content) {
		return ticket.Ticket{}, false, errors.New("not valid UTF-8")
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return ticket.Ticket{}, false, errors.New("empty document")
	}

	if ticketdoc.StartsWithMetadata(content) {
		decoded, err := ticketdoc.Decode(content)
		if err != nil {
			return ticket.Ticket{}, false, err
		}
		if decoded.ID == "" {
			decoded.ID = stem
		}
		if decoded.Status == "" {
			decoded.Status = ticket.StatusOpen
		}
		if decoded.Created.IsZero() {
			decoded.Created = now
		}
		if decoded.Type == "" {
			decoded.Type = ticket.DefaultType
		}
		if err := decoded.Validate(); err != nil {
			return ticket.Ticket{}, false, err
		}
		return decoded, true, nil
	}

	converted := parseLegacy(string(content), stem, now)
	converted.Project = s.project
	converted.Category = s.category
	if err := converted.Validate(); err != nil {
		return ticket.Ticket{}, false, err
	}
	return converted, false, nil
}

// parseLegacy converts a headerless document:
//
//	# Fix login bug
//	Status: in_progress
//	Description: Users cannot log in.
//	More description text.
//	Notes:
//	**2026-01-02 15:04:05**: reproduced
//
// The title is the first non-empty line with leading '#' removed. After
// it, "Status:", "Description:", and "Notes:" (any case) switch
// sections; other non-empty lines extend the description, or are
// notes when inside the notes section. Note lines without a parseable
// bolded timestamp are dropped. An unknown status becomes open.
func parseLegacy(content, ticketID string, now time.Time) ticket.Ticket {
	converted := ticket.Ticket{
		ID:       ticketID,
		Title:    untitled,
		Status:   ticket.StatusOpen,
		Deps:     []string{},
		Links:    []string{},
		Created:  now,
		Type:     ticket.DefaultType,
		Priority: ticket.DefaultPriority,
	}

	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	titleLine := -1
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			titleLine = i
			break
		}
	}
	if titleLine < 0 {
		return converted
	}
	if title := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(lines[titleLine]), "#")); title != "" {
		converted.Title = title
	}

	inNotes := false
	for _, raw := range lines[titleLine+1:] {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if value, ok := cutKey(line, "status:"); ok {
			if status, err := ticket.ParseStatus(strings.ToLower(value)); err == nil {
				converted.Status = status
			}
			inNotes = false
			continue
		}
		if value, ok := cutKey(line, "description:"); ok {
			converted.Description = value
			inNotes = false
			continue
		}
		if _, ok := cutKey(line, "notes:"); ok {
			inNotes = true
			continue
		}
		if inNotes {
			if note, ok := parseLegacyNote(line); ok {
				converted.Notes = append(converted.Notes, note)
			}
			continue
		}
		if converted.Description == "" {
			converted.Description = line
		} else {
			converted.Description += "\n" + line
		}
	}
	return converted
}

// cutKey matches a case-insensitive "key:" prefix and returns the
// trimmed remainder.
func cutKey(line, key string) (string, bool) {
	if len(line) < len(key) || !strings.EqualFold(line[:len(key)], key) {
		return "", false
	}
	return strings.TrimSpace(line[len(key):]), true
}

// parseLegacyNote parses "**2026-01-02 15:04:05**: content". The
// timestamp is UTC.
func parseLegacyNote(line string) (ticket.Note, bool) {
	rest, ok := strings.CutPrefix(line, "**")
	if !ok {
		return ticket.Note{}, false
	}
	stamp, content, ok := strings.Cut(rest, "**")
	if !ok {
		return ticket.Note{}, false
	}
	timestamp, err := time.ParseInLocation(ticket.NoteTimeLayout, stamp, time.UTC)
	if err != nil {
		return ticket.Note{}, false
	}
	content = strings.TrimSpace(strings.TrimPrefix(content, ":"))
	return ticket.Note{Timestamp: timestamp, Content: content}, true
}

// flatDocuments lists *.md regular files directly under root, sorted
// by name. A missing root has none.
func flatDocuments(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, ioError("listing", root, err)
	}
	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), ticketdoc.Extension) {
			continue
		}
		paths = append(paths, filepath.Join(root, entry.Name()))
	}
	return paths, nil
}
