// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketstore

import (
	"errors"
	"io/fs"
	"os"
)

// ReconcileReport lists the repairs [Store.Reconcile] made.
type ReconcileReport struct {
	// Removed holds the paths of duplicate copies that were deleted.
	Removed []string `json:"removed,omitempty"`

	// Relocated holds the ids of tickets moved into the directory
	// matching their recorded status.
	Relocated []string `json:"relocated,omitempty"`
}

// Empty reports whether nothing needed repair.
func (r ReconcileReport) Empty() bool {
	return len(r.Removed) == 0 && len(r.Relocated) == 0
}

// Reconcile restores the one-document-per-id, status-matches-directory
// layout after an interrupted cross-filesystem move or a hand edit.
//
// For an id found in several directories, the copy to keep is the one
// whose recorded status matches its directory; among several such
// copies (or none) the most recently modified wins. The other copies
// are deleted. A kept document whose status names another directory
// is then moved there.
func (s *Store) Reconcile() (ReconcileReport, error) {
	var report ReconcileReport
	if err := s.EnsureLayout(); err != nil {
		return report, err
	}
	found, err := s.scan()
	if err != nil {
		return report, err
	}

	var order []string
	copies := make(map[string][]stored)
	for _, document := range found {
		ticketID := document.ticket.ID
		if _, seen := copies[ticketID]; !seen {
			order = append(order, ticketID)
		}
		copies[ticketID] = append(copies[ticketID], document)
	}

	for _, ticketID := range order {
		candidates := copies[ticketID]
		keep := chooseCopy(candidates)
		for i := range candidates {
			if candidates[i].path == keep.path {
				continue
			}
			if err := os.Remove(candidates[i].path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return report, ioError("removing duplicate", candidates[i].path, err)
			}
			s.logger.Warn("removed duplicate ticket document",
				"id", ticketID, "path", candidates[i].path, "kept", keep.path)
			report.Removed = append(report.Removed, candidates[i].path)
		}

		if keep.ticket.Status != keep.directory {
			if err := s.write(keep.ticket, keep.path); err != nil {
				return report, err
			}
			s.logger.Warn("moved misfiled ticket",
				"id", ticketID, "directory", keep.directory, "status", keep.ticket.Status)
			report.Relocated = append(report.Relocated, ticketID)
		}
	}
	return report, nil
}

func chooseCopy(candidates []stored) stored {
	best := candidates[0]
	for _, candidate := range candidates[1:] {
		bestFiled := best.ticket.Status == best.directory
		candidateFiled := candidate.ticket.Status == candidate.directory
		switch {
		case candidateFiled && !bestFiled:
			best = candidate
		case candidateFiled == bestFiled && candidate.modified.After(best.modified):
			best = candidate
		}
	}
	return best
}
