// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ticketindex is an in-memory view over a snapshot of tickets.
//
// Documents on disk record dependency edges only on the dependent side
// (a ticket's Deps). The index materializes both directions so that
// "who depends on X" is a map lookup rather than a scan. The store
// builds a fresh index from a full listing whenever it needs one (the
// closure cascade, ready and blocked queries, dependency trees); the
// index never reads or writes files itself.
//
// Readiness follows the store's status vocabulary:
//
//   - ready: status "ready", or status "open" with every dependency
//     resolved (closed or archived). A dependency on an id that is not
//     in the index is unresolved.
//   - blocked: status "blocked", or status "open" with at least one
//     unresolved dependency.
//
// Search ranks tickets by Okapi BM25 relevance over the title,
// description, design, acceptance, and notes, with an exact-id boost.
//
// An Index is not safe for concurrent use.
package ticketindex
