// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketstore

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bureau-foundation/tkr/lib/clock"
	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/ticketdoc"
)

// ResolvePolicy decides what a prefix matching several tickets means.
type ResolvePolicy int

const (
	// ResolveStrict reports ErrAmbiguousID.
	ResolveStrict ResolvePolicy = iota

	// ResolveFirstMatch picks the first match in scan order: status
	// directories in enumeration order, entries sorted by name.
	ResolveFirstMatch
)

// ParseResolvePolicy accepts "strict" and "first" (the empty string is
// strict).
func ParseResolvePolicy(raw string) (ResolvePolicy, error) {
	switch raw {
	case "", "strict":
		return ResolveStrict, nil
	case "first":
		return ResolveFirstMatch, nil
	}
	return 0, fmt.Errorf("unknown resolve policy %q (valid: strict, first)", raw)
}

func (p ResolvePolicy) String() string {
	if p == ResolveFirstMatch {
		return "first"
	}
	return "strict"
}

// Config is everything a Store needs. The caller resolves it once
// (flags, environment, config file) before calling Open; the store
// never consults the environment or working directory itself.
type Config struct {
	// Root is the store directory holding the status directories.
	// Required.
	Root string

	// Project and Category are stamped on every ticket this store
	// creates or imports. Empty leaves them unset.
	Project  string
	Category string

	// Clock supplies creation and note timestamps and the time
	// component of new ids. Nil uses the real clock.
	Clock clock.Clock

	// Logger receives cascade, import, and reconciliation events.
	// Nil discards them.
	Logger *slog.Logger

	ResolvePolicy ResolvePolicy

	// ReconcileOnOpen runs [Store.Reconcile] from Open.
	ReconcileOnOpen bool
}

// Store is a ticket store rooted at one directory. Not safe for
// concurrent use.
type Store struct {
	root     string
	project  string
	category string
	clock    clock.Clock
	logger   *slog.Logger
	policy   ResolvePolicy
}

// Open returns a Store for config.Root. The root need not exist yet:
// it and the status directories are created on first write or list.
func Open(config Config) (*Store, error) {
	if config.Root == "" {
		return nil, errors.New("ticketstore: root is required")
	}
	root, err := filepath.Abs(config.Root)
	if err != nil {
		return nil, fmt.Errorf("ticketstore: resolving root %s: %w", config.Root, err)
	}

	store := &Store{
		root:     root,
		project:  config.Project,
		category: config.Category,
		clock:    config.Clock,
		logger:   config.Logger,
		policy:   config.ResolvePolicy,
	}
	if store.clock == nil {
		store.clock = clock.Real()
	}
	if store.logger == nil {
		store.logger = slog.New(slog.DiscardHandler)
	}

	if config.ReconcileOnOpen {
		if _, err := store.Reconcile(); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// Root returns the absolute store directory.
func (s *Store) Root() string { return s.root }

// StatusDir returns the directory holding tickets in status.
func (s *Store) StatusDir(status ticket.Status) string {
	return filepath.Join(s.root, string(status))
}

func (s *Store) pathFor(ticketID string, status ticket.Status) string {
	return filepath.Join(s.StatusDir(status), ticketID+ticketdoc.Extension)
}

// EnsureLayout creates the root and every status directory that does
// not exist yet.
func (s *Store) EnsureLayout() error {
	for _, status := range ticket.AllStatuses {
		directory := s.StatusDir(status)
		if err := os.MkdirAll(directory, 0o755); err != nil {
			return ioError("creating", directory, err)
		}
	}
	return nil
}

// Create writes a new open ticket and returns it. The store's project
// and category are attached.
func (s *Store) Create(title string, options ticket.CreateOptions) (ticket.Ticket, error) {
	ticketID, err := GenerateID(s.root, s.clock)
	if err != nil {
		return ticket.Ticket{}, err
	}
	created := ticket.Ticket{
		ID:          ticketID,
		Title:       title,
		Status:      ticket.StatusOpen,
		Deps:        []string{},
		Links:       []string{},
		Created:     s.now(),
		Type:        options.Type,
		Priority:    options.Priority,
		Description: options.Description,
		Design:      options.Design,
		Acceptance:  options.Acceptance,
		Assignee:    options.Assignee,
		ExternalRef: options.ExternalRef,
		Parent:      options.Parent,
		Project:     s.project,
		Category:    s.category,
	}
	if created.Type == "" {
		created.Type = ticket.DefaultType
	}
	if err := s.write(created, ""); err != nil {
		return ticket.Ticket{}, err
	}
	s.logger.Debug("ticket created", "id", ticketID, "title", title)
	return created, nil
}

// Load returns the ticket an id or unambiguous prefix refers to.
func (s *Store) Load(idOrPrefix string) (ticket.Ticket, error) {
	loaded, _, _, err := s.locate(idOrPrefix)
	return loaded, err
}

// Exists reports whether an id or prefix resolves to a document.
// Ambiguity and I/O failures are returned as errors.
func (s *Store) Exists(idOrPrefix string) (bool, error) {
	_, _, _, err := s.locate(idOrPrefix)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Document returns the raw bytes of a ticket's document.
func (s *Store) Document(idOrPrefix string) ([]byte, error) {
	_, _, content, err := s.locate(idOrPrefix)
	return content, err
}

// locate resolves, reads, and decodes a ticket, returning its path and
// raw content alongside.
func (s *Store) locate(idOrPrefix string) (ticket.Ticket, string, []byte, error) {
	path, err := s.Resolve(idOrPrefix, "")
	if err != nil {
		return ticket.Ticket{}, "", nil, err
	}
	loaded, content, err := readDocument(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ticket.Ticket{}, "", nil, fmt.Errorf("%w: %s", ErrNotFound, idOrPrefix)
	}
	if err != nil {
		return ticket.Ticket{}, "", nil, err
	}
	return loaded, path, content, nil
}

// readDocument reads and decodes one document. A missing file is
// returned unwrapped from ErrIO so callers can map it to ErrNotFound.
func readDocument(path string) (ticket.Ticket, []byte, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ticket.Ticket{}, nil, err
	}
	if err != nil {
		return ticket.Ticket{}, nil, ioError("reading", path, err)
	}
	decoded, err := ticketdoc.Decode(content)
	if err != nil {
		return ticket.Ticket{}, nil, fmt.Errorf("%s: %w", path, err)
	}
	if decoded.ID == "" {
		return ticket.Ticket{}, nil, fmt.Errorf("%s: %w: metadata has no id", path, ErrFormat)
	}
	return decoded, content, nil
}

// stored is a decoded document and where it was found.
type stored struct {
	ticket    ticket.Ticket
	path      string
	directory ticket.Status
	modified  time.Time
}

// scan decodes every document in every status directory, in
// enumeration order and then name order. Undecodable documents are
// logged and skipped. Missing status directories are treated as empty.
func (s *Store) scan() ([]stored, error) {
	var found []stored
	for _, status := range ticket.AllStatuses {
		directory := s.StatusDir(status)
		entries, err := os.ReadDir(directory)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, ioError("listing", directory, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ticketdoc.Extension) {
				continue
			}
			path := filepath.Join(directory, entry.Name())
			decoded, _, err := readDocument(path)
			if errors.Is(err, fs.ErrNotExist) {
				// Moved or removed between listing and reading.
				continue
			}
			if err != nil {
				s.logger.Debug("skipping undecodable ticket document", "path", path, "error", err)
				continue
			}
			var modified time.Time
			if info, err := entry.Info(); err == nil {
				modified = info.ModTime()
			}
			found = append(found, stored{ticket: decoded, path: path, directory: status, modified: modified})
		}
	}
	return found, nil
}

// List returns every decodable ticket, newest first. Tickets created
// at the same instant keep scan order.
func (s *Store) List() ([]ticket.Ticket, error) {
	if err := s.EnsureLayout(); err != nil {
		return nil, err
	}
	found, err := s.scan()
	if err != nil {
		return nil, err
	}
	tickets := make([]ticket.Ticket, len(found))
	for i := range found {
		tickets[i] = found[i].ticket
	}
	slices.SortStableFunc(tickets, func(a, b ticket.Ticket) int {
		return b.Created.Compare(a.Created)
	})
	return tickets, nil
}

// Search returns the tickets whose title, description, or id contains
// query, ignoring case, in List order.
func (s *Store) Search(query string) ([]ticket.Ticket, error) {
	tickets, err := s.List()
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(tickets, func(candidate ticket.Ticket) bool {
		return !MatchesQuery(candidate, query)
	}), nil
}

// MatchesQuery is the [Store.Search] predicate: query is contained in
// the title, description, or id, ignoring case.
func MatchesQuery(candidate ticket.Ticket, query string) bool {
	needle := strings.ToLower(query)
	return strings.Contains(strings.ToLower(candidate.Title), needle) ||
		strings.Contains(strings.ToLower(candidate.Description), needle) ||
		strings.Contains(strings.ToLower(candidate.ID), needle)
}

func (s *Store) now() time.Time {
	return s.clock.Now().UTC()
}

// sameContent reports whether path already holds content.
func sameContent(path string, content []byte) bool {
	existing, err := os.ReadFile(path)
	return err == nil && bytes.Equal(existing, content)
}
