// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ticketstore persists tickets as markdown documents in a
// directory tree whose layout encodes each ticket's status:
//
//	<root>/
//	  open/tk-4f2a9c1.md
//	  in_progress/
//	  closed/tk-19be03d.md
//	  blocked/
//	  ready/
//	  icebox/
//	  archive/
//
// A ticket lives in exactly one status directory, the one named by the
// status recorded in its metadata block. Changing status moves the
// file. A move is a write of the new content followed by a rename into
// the destination directory, so an interrupted move leaves either the
// old copy or the new one but not both. When the status directories
// sit on different filesystems the rename is replaced by write, verify,
// delete; [Store.Reconcile] repairs the duplicates a crash in that
// window can leave.
//
// Tickets are addressed by full id or by any unambiguous prefix of it
// (see [Store.Resolve]).
//
// Closing a ticket cascades: every blocked ticket that lists it as a
// dependency has the dependency removed and moves to ready. The
// dependents are found through a reverse-dependency index built from a
// fresh scan of the store (lib/ticketindex).
//
// The store does no internal locking. Callers that share one Store
// across goroutines serialize access themselves. Across processes the
// last writer wins unless the caller uses [Store.UpdateIf], which
// rejects a write when the document changed since it was read.
//
// Flat documents directly under the root are import candidates: the
// older headerless format handled by [Store.ImportLegacy], or current
// documents that were never filed into a status directory.
package ticketstore
