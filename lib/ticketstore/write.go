// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketstore

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/ticketdoc"
)

// write encodes entry and stores it under its status directory.
// currentPath is where the ticket lives now, or "" for a new ticket.
//
// When the destination differs from currentPath the ticket is
// relocated: the new content is written atomically over currentPath
// and then renamed into the destination directory. Readers therefore
// see the old document, or the new document in its new place, never
// both. If the rename fails with EXDEV the content is written to the
// destination, read back, and only then is currentPath removed.
// rename is os.Rename, replaced in tests to simulate status
// directories on different filesystems.
var rename = os.Rename

func (s *Store) write(entry ticket.Ticket, currentPath string) error {
	entry.Normalize()
	if err := entry.Validate(); err != nil {
		return err
	}
	content, err := ticketdoc.Encode(entry)
	if err != nil {
		return err
	}
	if err := s.EnsureLayout(); err != nil {
		return err
	}

	destination := s.pathFor(entry.ID, entry.Status)
	if currentPath == "" || currentPath == destination {
		return writeAtomic(destination, content)
	}

	if err := writeAtomic(currentPath, content); err != nil {
		return err
	}
	err = rename(currentPath, destination)
	if err == nil {
		return nil
	}
	if !errors.Is(err, unix.EXDEV) {
		return ioError("moving", currentPath, err)
	}

	s.logger.Debug("status directories on different filesystems, copying",
		"id", entry.ID, "from", currentPath, "to", destination)
	if err := writeAtomic(destination, content); err != nil {
		return err
	}
	if !sameContent(destination, content) {
		return fmt.Errorf("%w: verifying %s: content differs after write", ErrIO, destination)
	}
	if err := os.Remove(currentPath); err != nil {
		return ioError("removing", currentPath, err)
	}
	return nil
}

func writeAtomic(path string, content []byte) error {
	if err := atomic.WriteFile(path, bytes.NewReader(content)); err != nil {
		return ioError("writing", path, err)
	}
	return nil
}
