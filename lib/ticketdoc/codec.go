// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketdoc

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/tkr/lib/schema/ticket"
)

// Separator is the line that opens and closes the metadata block.
const Separator = "---"

// Extension is the filename extension of ticket documents.
const Extension = ".md"

// ErrFormat is returned when a document lacks the metadata block or
// the block does not describe a valid ticket.
var ErrFormat = errors.New("invalid ticket document")

// Decode parses a ticket document. The document must contain at least
// two separator lines; text before the first is ignored, text between
// them is the YAML metadata block, and text after the second is the
// rendered body (ignored).
//
// Keys missing from the metadata block leave the corresponding field
// unset; unknown keys are ignored. A status outside the enum is a
// format error: accepting it would let the ticket be written back to a
// directory that does not exist.
func Decode(document []byte) (ticket.Ticket, error) {
	metadata, err := metadataBlock(document)
	if err != nil {
		return ticket.Ticket{}, err
	}

	var decoded ticket.Ticket
	if err := yaml.Unmarshal(metadata, &decoded); err != nil {
		return ticket.Ticket{}, fmt.Errorf("%w: metadata: %w", ErrFormat, err)
	}
	if decoded.Status != "" && !decoded.Status.Valid() {
		return ticket.Ticket{}, fmt.Errorf("%w: %w: %q", ErrFormat, ticket.ErrInvalidStatus, decoded.Status)
	}
	decoded.Normalize()
	return decoded, nil
}

// metadataBlock returns the bytes between the first two separator
// lines. Lines may end in "\n" or "\r\n".
func metadataBlock(document []byte) ([]byte, error) {
	var (
		offset    int
		start     int
		separator int
	)
	for offset < len(document) {
		lineEnd := bytes.IndexByte(document[offset:], '\n')
		next := len(document)
		if lineEnd >= 0 {
			lineEnd += offset
			next = lineEnd + 1
		} else {
			lineEnd = len(document)
		}
		if isSeparator(document[offset:lineEnd]) {
			separator++
			if separator == 2 {
				return document[start:offset], nil
			}
			start = next
		}
		offset = next
	}
	return nil, fmt.Errorf("%w: expected two %q separator lines, found %d", ErrFormat, Separator, separator)
}

func isSeparator(line []byte) bool {
	return string(bytes.TrimRight(line, " \t\r")) == Separator
}

// Encode renders a ticket as a document. Unset optional fields are
// left out of the metadata block. The body repeats the title as a
// heading, then the description, then a notes section when there are
// notes.
func Encode(source ticket.Ticket) ([]byte, error) {
	source.Normalize()
	metadata, err := yaml.Marshal(&source)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata for %s: %w", source.ID, err)
	}

	var document bytes.Buffer
	document.WriteString(Separator + "\n")
	document.Write(metadata)
	document.WriteString(Separator + "\n\n")
	fmt.Fprintf(&document, "# %s\n", source.Title)

	if source.Description != "" {
		document.WriteString("\n\n")
		document.WriteString(source.Description)
	}

	if len(source.Notes) > 0 {
		document.WriteString("\n\n## Notes\n")
		for _, note := range source.Notes {
			document.WriteString("\n")
			document.WriteString(ticket.FormatNote(note))
		}
	}

	if !strings.HasSuffix(document.String(), "\n") {
		document.WriteString("\n")
	}
	return document.Bytes(), nil
}

// StartsWithMetadata reports whether a document opens with the
// metadata separator. Documents that do not are in the legacy flat
// format.
func StartsWithMetadata(document []byte) bool {
	firstLine, _, _ := bytes.Cut(document, []byte("\n"))
	return isSeparator(firstLine)
}
