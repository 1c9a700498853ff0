// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ticket defines the tkr ticket record: the [Ticket] struct
// persisted as a markdown document, its [Status] lifecycle enum, the
// append-only [Note] log, and the conversion to and from beads JSONL
// entries used by migration and snapshot export.
//
// The types here carry no I/O. Encoding to the on-disk document format
// lives in lib/ticketdoc; placement on disk lives in lib/ticketstore.
package ticket
