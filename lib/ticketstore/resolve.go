// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/ticketdoc"
)

// Resolve maps a full id or id prefix to a document path. hint, when
// set, names the status directory to try first.
//
// Under ResolveFirstMatch the hint directory is tried first, then
// every status directory in enumeration order; each directory is tried
// exact-then-prefix and the first hit wins. Under ResolveStrict an
// exact file anywhere (hint first) beats any prefix match. Prefixes
// are then matched in the hint directory before the whole store, and
// a prefix naming more than one distinct ticket is an
// *AmbiguousIDError.
//
// When nothing matches, Resolve returns the path the ticket would have
// under hint (or open) and no error. Callers needing an existing
// document must check; [Store.Load] reports ErrNotFound.
func (s *Store) Resolve(idOrPrefix string, hint ticket.Status) (string, error) {
	if idOrPrefix == "" || strings.ContainsAny(idOrPrefix, `/\`) {
		return "", fmt.Errorf("%w: invalid id %q", ErrNotFound, idOrPrefix)
	}
	if hint != "" && !hint.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, hint)
	}

	if s.policy == ResolveStrict {
		if path, found := s.exactIn(idOrPrefix, hint); found {
			return path, nil
		}
	}

	if hint != "" {
		path, found, err := s.resolveIn([]ticket.Status{hint}, idOrPrefix)
		if found || err != nil {
			return path, err
		}
	}

	path, found, err := s.resolveIn(ticket.AllStatuses, idOrPrefix)
	if found || err != nil {
		return path, err
	}

	fallback := hint
	if fallback == "" {
		fallback = ticket.StatusOpen
	}
	return s.pathFor(idOrPrefix, fallback), nil
}

// resolveIn searches the given status directories.
func (s *Store) resolveIn(statuses []ticket.Status, idOrPrefix string) (string, bool, error) {
	if s.policy == ResolveFirstMatch {
		for _, status := range statuses {
			exact := s.pathFor(idOrPrefix, status)
			if fileExists(exact) {
				return exact, true, nil
			}
			matches, err := s.prefixMatches(status, idOrPrefix)
			if err != nil {
				return "", false, err
			}
			if len(matches) > 0 {
				return matches[0].path, true, nil
			}
		}
		return "", false, nil
	}

	for _, status := range statuses {
		exact := s.pathFor(idOrPrefix, status)
		if fileExists(exact) {
			return exact, true, nil
		}
	}

	var (
		first      string
		candidates []string
		seen       = make(map[string]struct{})
	)
	for _, status := range statuses {
		matches, err := s.prefixMatches(status, idOrPrefix)
		if err != nil {
			return "", false, err
		}
		for _, match := range matches {
			if first == "" {
				first = match.path
			}
			if _, duplicate := seen[match.id]; !duplicate {
				seen[match.id] = struct{}{}
				candidates = append(candidates, match.id)
			}
		}
	}
	switch len(candidates) {
	case 0:
		return "", false, nil
	case 1:
		return first, true, nil
	}
	return "", false, &AmbiguousIDError{Prefix: idOrPrefix, Candidates: candidates}
}

// exactIn looks for a document named exactly ticketID, under hint
// first and then in every status directory.
func (s *Store) exactIn(ticketID string, hint ticket.Status) (string, bool) {
	if hint != "" {
		if path := s.pathFor(ticketID, hint); fileExists(path) {
			return path, true
		}
	}
	for _, status := range ticket.AllStatuses {
		if path := s.pathFor(ticketID, status); fileExists(path) {
			return path, true
		}
	}
	return "", false
}

type prefixMatch struct {
	id   string
	path string
}

// prefixMatches lists documents in one status directory whose id
// starts with prefix, in name order.
func (s *Store) prefixMatches(status ticket.Status, prefix string) ([]prefixMatch, error) {
	directory := s.StatusDir(status)
	entries, err := os.ReadDir(directory)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, ioError("listing", directory, err)
	}
	var matches []prefixMatch
	for _, entry := range entries {
		ticketID, isDocument := strings.CutSuffix(entry.Name(), ticketdoc.Extension)
		if !isDocument || entry.IsDir() || !strings.HasPrefix(ticketID, prefix) {
			continue
		}
		matches = append(matches, prefixMatch{id: ticketID, path: s.pathFor(ticketID, status)})
	}
	return matches, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
