// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapshot reads and writes whole-store exports.
//
// A snapshot is one plain header line followed by a payload:
//
//	tkr-snapshot v1 zstd
//	<payload>
//
// The payload is beads JSONL (one [ticket.BeadsEntry] per line),
// compressed with the algorithm the header names (none, zstd, or lz4)
// and, when recipients are given, age-encrypted over the compressed
// bytes. Encryption is detected from the payload itself, so the header
// never reveals anything beyond the compression.
//
// [Read] also accepts a bare beads issues.jsonl file with no header,
// which makes `tkr migrate --from beads` and snapshot restore the same
// code path.
package snapshot
