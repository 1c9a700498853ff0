// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"filippo.io/age"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/bureau-foundation/tkr/lib/schema/ticket"
)

// Compression selects the payload compression.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses "none", "zstd", or "lz4".
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (valid: none, zstd, lz4)", name)
	}
}

const (
	magic   = "tkr-snapshot"
	version = "v1"

	// ageMagic begins every age-encrypted payload.
	ageMagic = "age-encryption.org/"

	// maxLine bounds a single JSONL record.
	maxLine = 16 << 20
)

// ErrEncrypted is returned by [Read] when the payload is encrypted and
// no identity can decrypt it.
var ErrEncrypted = errors.New("snapshot is encrypted")

// WriteOptions control [Write].
type WriteOptions struct {
	Compression Compression

	// Recipients are age public keys (age1...). When non-empty the
	// payload is encrypted so that any one of them can read it.
	Recipients []string
}

// Write writes entries as a snapshot.
func Write(w io.Writer, entries []ticket.BeadsEntry, options WriteOptions) error {
	if _, err := fmt.Fprintf(w, "%s %s %s\n", magic, version, options.Compression); err != nil {
		return fmt.Errorf("writing snapshot header: %w", err)
	}

	var closers []io.Closer
	var payload io.Writer = w
	if len(options.Recipients) > 0 {
		recipients, err := parseRecipients(options.Recipients)
		if err != nil {
			return err
		}
		encryptor, err := age.Encrypt(payload, recipients...)
		if err != nil {
			return fmt.Errorf("creating age encryptor: %w", err)
		}
		closers = append(closers, encryptor)
		payload = encryptor
	}

	switch options.Compression {
	case CompressionNone:
	case CompressionZstd:
		encoder, err := zstd.NewWriter(payload, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("creating zstd encoder: %w", err)
		}
		closers = append(closers, encoder)
		payload = encoder
	case CompressionLZ4:
		writer := lz4.NewWriter(payload)
		closers = append(closers, writer)
		payload = writer
	default:
		return fmt.Errorf("unsupported compression %s", options.Compression)
	}

	if err := WriteJSONL(payload, entries); err != nil {
		return err
	}

	// Innermost layer first: the compressor flushes into the
	// encryptor, which then writes its final chunk.
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			return fmt.Errorf("finishing snapshot: %w", err)
		}
	}
	return nil
}

// WriteJSONL writes entries as bare beads JSONL, one entry per line
// and no header. [Read] accepts the result.
func WriteJSONL(w io.Writer, entries []ticket.BeadsEntry) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	for i := range entries {
		if err := encoder.Encode(entries[i]); err != nil {
			return fmt.Errorf("writing entry %s: %w", entries[i].ID, err)
		}
	}
	return nil
}

// ReadOptions control [Read].
type ReadOptions struct {
	// Identities are age secret keys (AGE-SECRET-KEY-1...) tried
	// against an encrypted payload.
	Identities []age.Identity
}

// Read parses a snapshot, or a bare beads JSONL file, into entries in
// file order. Blank lines are skipped.
func Read(r io.Reader, options ReadOptions) ([]ticket.BeadsEntry, error) {
	buffered := bufio.NewReader(r)

	compression := CompressionNone
	head, _ := buffered.Peek(len(magic) + 1)
	if string(head) == magic+" " {
		header, err := buffered.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("reading snapshot header: %w", err)
		}
		compression, err = parseHeader(strings.TrimRight(header, "\r\n"))
		if err != nil {
			return nil, err
		}
	}

	var payload io.Reader = buffered
	if prefix, _ := buffered.Peek(len(ageMagic)); string(prefix) == ageMagic {
		if len(options.Identities) == 0 {
			return nil, fmt.Errorf("%w: an identity is required", ErrEncrypted)
		}
		decrypted, err := age.Decrypt(buffered, options.Identities...)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncrypted, err)
		}
		payload = decrypted
	}

	switch compression {
	case CompressionZstd:
		decoder, err := zstd.NewReader(payload)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer decoder.Close()
		payload = decoder
	case CompressionLZ4:
		payload = lz4.NewReader(payload)
	}

	return readEntries(payload)
}

func parseHeader(header string) (Compression, error) {
	fields := strings.Fields(header)
	if len(fields) != 3 || fields[0] != magic {
		return 0, fmt.Errorf("malformed snapshot header %q", header)
	}
	if fields[1] != version {
		return 0, fmt.Errorf("unsupported snapshot version %s (this build reads %s)", fields[1], version)
	}
	return ParseCompression(fields[2])
}

func readEntries(r io.Reader) ([]ticket.BeadsEntry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	var entries []ticket.BeadsEntry
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		var entry ticket.BeadsEntry
		if err := json.Unmarshal(data, &entry); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if entry.ID == "" {
			return nil, fmt.Errorf("line %d: entry has no id", line)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading entries: %w", err)
	}
	return entries, nil
}

func parseRecipients(keys []string) ([]age.Recipient, error) {
	recipients := make([]age.Recipient, 0, len(keys))
	for _, key := range keys {
		recipient, err := age.ParseX25519Recipient(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}
	return recipients, nil
}

// ParseIdentities reads age identities in the age keyfile format:
// one AGE-SECRET-KEY-1... per line, '#' comments allowed.
func ParseIdentities(r io.Reader) ([]age.Identity, error) {
	identities, err := age.ParseIdentities(r)
	if err != nil {
		return nil, fmt.Errorf("parsing age identities: %w", err)
	}
	return identities, nil
}
