// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketstore

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/ticketindex"
)

// Change describes the outcome of a status transition.
type Change struct {
	// Ticket is the ticket after the transition.
	Ticket ticket.Ticket

	// Previous is the status before the transition.
	Previous ticket.Status

	// Changed is false when the ticket already had the requested
	// status; nothing was written.
	Changed bool

	// Unblocked lists the tickets the closure cascade moved from
	// blocked to ready, in scan order.
	Unblocked []string
}

// Transition moves a ticket to status. Requesting the current status
// is a no-op: nothing is written or moved. Closing a ticket first runs
// the closure cascade over its dependents (see [Store.Unblock]).
func (s *Store) Transition(idOrPrefix string, status ticket.Status) (Change, error) {
	if _, err := ticket.ParseStatus(string(status)); err != nil {
		return Change{}, err
	}
	current, path, _, err := s.locate(idOrPrefix)
	if err != nil {
		return Change{}, err
	}
	change := Change{Ticket: current, Previous: current.Status}
	if current.Status == status {
		return change, nil
	}

	if status == ticket.StatusClosed {
		change.Unblocked, err = s.Unblock(current.ID)
		if err != nil {
			return Change{}, err
		}
	}

	current.Status = status
	if err := s.write(current, path); err != nil {
		return Change{}, err
	}
	s.logger.Info("ticket status changed", "id", current.ID, "from", change.Previous, "to", status)
	change.Ticket = current
	change.Changed = true
	return change, nil
}

// Unblock runs the closure cascade for closingID without changing
// closingID itself: every blocked ticket whose Deps contain closingID
// loses that dependency and moves to ready. Other statuses are left
// alone even when they list closingID, and so is closingID when it
// lists itself. Returns the unblocked ids.
//
// Dependents are found through a reverse-dependency index built from
// a fresh scan, so documents changed by other processes since the
// store was opened are seen. Undecodable documents are skipped.
func (s *Store) Unblock(closingID string) ([]string, error) {
	found, err := s.scan()
	if err != nil {
		return nil, err
	}
	paths := make(map[string]string, len(found))
	tickets := make([]ticket.Ticket, len(found))
	for i := range found {
		tickets[i] = found[i].ticket
		paths[found[i].ticket.ID] = found[i].path
	}
	index := ticketindex.Build(tickets)

	var unblocked []string
	for _, dependentID := range index.Dependents(closingID) {
		if dependentID == closingID {
			continue
		}
		dependent, _ := index.Get(dependentID)
		if dependent.Status != ticket.StatusBlocked {
			continue
		}
		dependent.RemoveDep(closingID)
		dependent.Status = ticket.StatusReady
		if err := s.write(dependent, paths[dependentID]); err != nil {
			return unblocked, fmt.Errorf("unblocking %s: %w", dependentID, err)
		}
		s.logger.Info("ticket unblocked", "id", dependentID, "closed_dependency", closingID)
		unblocked = append(unblocked, dependentID)
	}
	return unblocked, nil
}

// Update applies mutate to a ticket and saves the result. The id
// cannot be changed. A status change relocates the document, and a
// change to closed runs the closure cascade as Transition does.
func (s *Store) Update(idOrPrefix string, mutate func(*ticket.Ticket) error) (ticket.Ticket, error) {
	current, path, _, err := s.locate(idOrPrefix)
	if err != nil {
		return ticket.Ticket{}, err
	}
	return s.apply(current, path, mutate)
}

// LoadRevision returns a ticket with the revision of its document, for
// a later [Store.UpdateIf].
func (s *Store) LoadRevision(idOrPrefix string) (ticket.Ticket, string, error) {
	current, _, content, err := s.locate(idOrPrefix)
	if err != nil {
		return ticket.Ticket{}, "", err
	}
	return current, Revision(content), nil
}

// UpdateIf is [Store.Update] with a precondition: the document must
// still have the given revision, else ErrConflict. Returns the updated
// ticket and its new revision.
//
// The check and the write are not atomic with respect to other
// processes; a writer landing between them is not detected. The window
// is one read and one rename wide.
func (s *Store) UpdateIf(idOrPrefix, revision string, mutate func(*ticket.Ticket) error) (ticket.Ticket, string, error) {
	current, path, content, err := s.locate(idOrPrefix)
	if err != nil {
		return ticket.Ticket{}, "", err
	}
	if actual := Revision(content); actual != revision {
		return ticket.Ticket{}, "", fmt.Errorf("%w: %s is at revision %s, not %s", ErrConflict, current.ID, shortRevision(actual), shortRevision(revision))
	}
	updated, err := s.apply(current, path, mutate)
	if err != nil {
		return ticket.Ticket{}, "", err
	}
	_, _, content, err = s.locate(updated.ID)
	if err != nil {
		return ticket.Ticket{}, "", err
	}
	return updated, Revision(content), nil
}

func (s *Store) apply(current ticket.Ticket, path string, mutate func(*ticket.Ticket) error) (ticket.Ticket, error) {
	updated := current.Clone()
	if err := mutate(&updated); err != nil {
		return ticket.Ticket{}, err
	}
	if updated.ID != current.ID {
		return ticket.Ticket{}, errors.New("ticket id cannot be changed")
	}
	if _, err := ticket.ParseStatus(string(updated.Status)); err != nil {
		return ticket.Ticket{}, err
	}
	if updated.Status == ticket.StatusClosed && current.Status != ticket.StatusClosed {
		if _, err := s.Unblock(current.ID); err != nil {
			return ticket.Ticket{}, err
		}
	}
	if err := s.write(updated, path); err != nil {
		return ticket.Ticket{}, err
	}
	return updated, nil
}
