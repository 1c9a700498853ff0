// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ticketdoc converts between a ticket document and the
// in-memory [ticket.Ticket] record.
//
// A document is markdown with a YAML metadata block:
//
//	---
//	id: tk-4f2a9c1
//	title: Fix login bug
//	status: open
//	...
//	---
//
//	# Fix login bug
//
//	Optional description text.
//
//	## Notes
//
//	**2026-01-02 15:04:05**: first note
//
// The metadata block is authoritative. Everything after it (heading,
// description, notes section) is rendered from the metadata for human
// readers and ignored on decode, so a hand edit to the body alone does
// not change the ticket.
package ticketdoc
