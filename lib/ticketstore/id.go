// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketstore

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bureau-foundation/tkr/lib/clock"
)

// fallbackPrefix is used when the store root has no usable parent
// directory name.
const fallbackPrefix = "unk"

// GenerateID returns a new ticket id for the store rooted at
// storeRoot: "<prefix>-<suffix>". The prefix is derived from the name
// of the directory containing the store (see [IDPrefix]). The suffix
// is the hex of the clock's Unix milliseconds modulo 10000 followed by
// four hex digits of a random UUID.
//
// No uniqueness check is made against existing tickets; collisions
// need the same millisecond residue and the same 16 random bits.
func GenerateID(storeRoot string, clock clock.Clock) (string, error) {
	now := clock.Now()
	millis := now.UnixMilli()
	if millis < 0 {
		return "", fmt.Errorf("%w: %s", ErrClock, now.Format("2006-01-02T15:04:05Z07:00"))
	}
	random := uuid.New()
	return fmt.Sprintf("%s-%x%s", IDPrefix(storeRoot), millis%10000, hex.EncodeToString(random[:2])), nil
}

// IDPrefix derives the id prefix from the store root's parent
// directory name: the first character of each "-" or "_" separated
// segment, lowercased. "bureau-foundation_tkr/.tickets" gives "bft". A
// name with no segments falls back to its first three characters, and
// an empty name to "unk".
func IDPrefix(storeRoot string) string {
	name := parentName(storeRoot)
	if name == "" {
		return fallbackPrefix
	}

	var prefix strings.Builder
	for _, segment := range strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' }) {
		first, _ := utf8.DecodeRuneInString(segment)
		prefix.WriteRune(first)
	}
	if prefix.Len() == 0 {
		runes := []rune(name)
		prefix.WriteString(string(runes[:min(3, len(runes))]))
	}
	return strings.ToLower(prefix.String())
}

func parentName(storeRoot string) string {
	absolute, err := filepath.Abs(storeRoot)
	if err != nil {
		absolute = filepath.Clean(storeRoot)
	}
	name := filepath.Base(filepath.Dir(absolute))
	if name == string(filepath.Separator) || name == "." {
		return ""
	}
	return name
}
