// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketstore

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/tkr/lib/schema/ticket"
)

// AddDependency records that a ticket depends on depID. Returns false
// without writing when the dependency is already listed. depID is
// stored as given: it is not resolved, checked for existence, or
// checked for cycles.
func (s *Store) AddDependency(idOrPrefix, depID string) (bool, error) {
	current, path, _, err := s.locate(idOrPrefix)
	if err != nil {
		return false, err
	}
	if !current.AddDep(depID) {
		return false, nil
	}
	if err := s.write(current, path); err != nil {
		return false, err
	}
	s.logger.Debug("dependency added", "id", current.ID, "dependency", depID)
	return true, nil
}

// RemoveDependency removes the first occurrence of depID from a
// ticket's dependencies. Returns false without writing when depID was
// not listed.
func (s *Store) RemoveDependency(idOrPrefix, depID string) (bool, error) {
	current, path, _, err := s.locate(idOrPrefix)
	if err != nil {
		return false, err
	}
	if !current.RemoveDep(depID) {
		return false, nil
	}
	if err := s.write(current, path); err != nil {
		return false, err
	}
	s.logger.Debug("dependency removed", "id", current.ID, "dependency", depID)
	return true, nil
}

// AppendNote adds a note stamped with the current time. The text is
// stored as given; rejecting blank notes is up to the caller.
func (s *Store) AppendNote(idOrPrefix, text string) (ticket.Note, error) {
	current, path, _, err := s.locate(idOrPrefix)
	if err != nil {
		return ticket.Note{}, err
	}
	note := ticket.Note{Timestamp: s.now(), Content: text}
	current.Notes = append(current.Notes, note)
	if err := s.write(current, path); err != nil {
		return ticket.Note{}, err
	}
	return note, nil
}

// Link relates every pair of the given tickets: each ends up listing
// all the others in Links. All ids must resolve before anything is
// written. Returns the number of tickets that changed.
func (s *Store) Link(idsOrPrefixes ...string) (int, error) {
	if len(idsOrPrefixes) < 2 {
		return 0, errors.New("linking needs at least two tickets")
	}
	type linked struct {
		ticket ticket.Ticket
		path   string
	}
	members := make([]linked, 0, len(idsOrPrefixes))
	seen := make(map[string]struct{}, len(idsOrPrefixes))
	for _, idOrPrefix := range idsOrPrefixes {
		current, path, _, err := s.locate(idOrPrefix)
		if err != nil {
			return 0, err
		}
		if _, duplicate := seen[current.ID]; duplicate {
			continue
		}
		seen[current.ID] = struct{}{}
		members = append(members, linked{ticket: current, path: path})
	}
	if len(members) < 2 {
		return 0, fmt.Errorf("linking needs at least two distinct tickets, got %s", members[0].ticket.ID)
	}

	changed := 0
	for i := range members {
		modified := false
		for j := range members {
			if i != j && members[i].ticket.AddLink(members[j].ticket.ID) {
				modified = true
			}
		}
		if !modified {
			continue
		}
		if err := s.write(members[i].ticket, members[i].path); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

// Unlink removes the relation between two tickets from both sides.
// Returns false when neither side listed the other.
func (s *Store) Unlink(first, second string) (bool, error) {
	left, leftPath, _, err := s.locate(first)
	if err != nil {
		return false, err
	}
	right, rightPath, _, err := s.locate(second)
	if err != nil {
		return false, err
	}
	removedLeft := left.RemoveLink(right.ID)
	removedRight := right.RemoveLink(left.ID)
	if removedLeft {
		if err := s.write(left, leftPath); err != nil {
			return false, err
		}
	}
	if removedRight {
		if err := s.write(right, rightPath); err != nil {
			return false, err
		}
	}
	return removedLeft || removedRight, nil
}
