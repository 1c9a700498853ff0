// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/ticketdoc"
)

// Error kinds. Every error the store returns wraps at most one of
// these; test with errors.Is.
var (
	// ErrNotFound: the id or prefix does not resolve to an existing
	// document.
	ErrNotFound = errors.New("ticket not found")

	// ErrFormat: a document lacks its metadata block or the block
	// is unparsable.
	ErrFormat = ticketdoc.ErrFormat

	// ErrInvalidStatus: a status outside the enumeration.
	ErrInvalidStatus = ticket.ErrInvalidStatus

	// ErrIO: the underlying filesystem operation failed. The
	// *fs.PathError (or *os.LinkError) is wrapped alongside.
	ErrIO = errors.New("ticket store I/O error")

	// ErrMigrationUnsupported: a flat document is neither the legacy
	// format nor a current document.
	ErrMigrationUnsupported = errors.New("unsupported ticket document format")

	// ErrAmbiguousID: a prefix matches more than one ticket. The
	// concrete error is an *AmbiguousIDError.
	ErrAmbiguousID = errors.New("ambiguous ticket id")

	// ErrConflict: an UpdateIf precondition failed because the
	// document changed since the caller read it.
	ErrConflict = errors.New("ticket changed since it was read")

	// ErrClock: the clock reads before the Unix epoch, so no id can
	// be generated.
	ErrClock = errors.New("clock is before the Unix epoch")
)

// AmbiguousIDError lists the tickets a prefix matched.
type AmbiguousIDError struct {
	Prefix     string
	Candidates []string
}

func (e *AmbiguousIDError) Error() string {
	return fmt.Sprintf("%s: %q matches %s", ErrAmbiguousID, e.Prefix, strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousIDError) Unwrap() error { return ErrAmbiguousID }

func ioError(action, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrIO, action, path, err)
}
