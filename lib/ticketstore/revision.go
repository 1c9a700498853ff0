// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketstore

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// revisionKey domain-separates revision digests from any other BLAKE3
// use of the same bytes. Changing it invalidates every outstanding
// revision (callers see ErrConflict once and reload).
var revisionKey = [32]byte{
	't', 'k', 'r', '.', 't', 'i', 'c', 'k', 'e', 't', '.',
	'r', 'e', 'v', 'i', 's', 'i', 'o', 'n',
}

// Revision identifies one exact version of a ticket document: the hex
// keyed BLAKE3-256 digest of its bytes. Any edit, including whitespace
// in the body, yields a new revision.
func Revision(document []byte) string {
	hasher, err := blake3.NewKeyed(revisionKey[:])
	if err != nil {
		panic("blake3.NewKeyed with 32-byte key: " + err.Error())
	}
	hasher.Write(document)
	return hex.EncodeToString(hasher.Sum(nil))
}

func shortRevision(revision string) string {
	if len(revision) > 12 {
		return revision[:12]
	}
	return revision
}
