// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketdoc

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/tkr/lib/schema/ticket"
)

var created = time.Date(2026, 2, 12, 10, 0, 0, 0, time.UTC)

func minimalTicket() ticket.Ticket {
	return ticket.Ticket{
		ID:       "tk-4f2a9c1",
		Title:    "Fix login bug",
		Status:   ticket.StatusOpen,
		Deps:     []string{},
		Links:    []string{},
		Created:  created,
		Type:     "task",
		Priority: 2,
	}
}

func fullTicket() ticket.Ticket {
	full := minimalTicket()
	full.Status = ticket.StatusBlocked
	full.Deps = []string{"tk-a", "tk-b"}
	full.Links = []string{"tk-c"}
	full.Priority = 0
	full.Description = "Users cannot log in.\n\nSteps:\n- open page\n- click"
	full.Design = "Rework session handling"
	full.Acceptance = "Login succeeds"
	full.Assignee = "sam"
	full.ExternalRef = "GH-42"
	full.Parent = "tk-epic"
	full.Project = "web"
	full.Category = "auth"
	full.Notes = []ticket.Note{
		{Timestamp: created.Add(time.Hour), Content: "reproduced"},
		{Timestamp: created.Add(2 * time.Hour), Content: "fix: pending review"},
	}
	return full
}

func TestRoundTrip(t *testing.T) {
	for name, source := range map[string]ticket.Ticket{
		"minimal": minimalTicket(),
		"full":    fullTicket(),
	} {
		t.Run(name, func(t *testing.T) {
			document, err := Encode(source)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			decoded, err := Decode(document)
			if err != nil {
				t.Fatalf("Decode: %v\n%s", err, document)
			}
			if !decoded.Created.Equal(source.Created) {
				t.Errorf("Created = %v, want %v", decoded.Created, source.Created)
			}
			for i := range source.Notes {
				if !decoded.Notes[i].Timestamp.Equal(source.Notes[i].Timestamp) {
					t.Errorf("Notes[%d].Timestamp = %v", i, decoded.Notes[i].Timestamp)
				}
				decoded.Notes[i].Timestamp = source.Notes[i].Timestamp
			}
			decoded.Created = source.Created
			if !reflect.DeepEqual(decoded, source) {
				t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", decoded, source)
			}
		})
	}
}

func TestEncodeOmitsUnsetOptionalFields(t *testing.T) {
	document, err := Encode(minimalTicket())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	text := string(document)
	for _, key := range []string{"description:", "design:", "acceptance:", "assignee:",
		"external_ref:", "parent:", "project:", "category:", "notes:"} {
		if strings.Contains(text, key) {
			t.Errorf("document contains unset key %q:\n%s", key, text)
		}
	}
	for _, key := range []string{"id:", "title:", "status:", "deps:", "links:", "created:", "type:", "priority:"} {
		if !strings.Contains(text, key) {
			t.Errorf("document missing key %q:\n%s", key, text)
		}
	}
	if strings.Contains(text, "## Notes") {
		t.Errorf("notes section rendered without notes:\n%s", text)
	}
}

func TestEncodeLayout(t *testing.T) {
	document, err := Encode(fullTicket())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	text := string(document)

	if !strings.HasPrefix(text, "---\n") {
		t.Errorf("document does not start with separator:\n%s", text)
	}
	if !strings.Contains(text, "---\n\n# Fix login bug\n") {
		t.Errorf("title heading missing after metadata:\n%s", text)
	}
	descriptionAt := strings.Index(text, "Users cannot log in.")
	notesAt := strings.Index(text, "## Notes")
	if descriptionAt < 0 || notesAt < 0 || descriptionAt > notesAt {
		t.Errorf("description must precede notes section:\n%s", text)
	}
	for _, line := range []string{
		"**2026-02-12 11:00:00**: reproduced",
		"**2026-02-12 12:00:00**: fix: pending review",
	} {
		if !strings.Contains(text, line) {
			t.Errorf("missing note line %q:\n%s", line, text)
		}
	}
	if strings.Index(text, "reproduced") > strings.LastIndex(text, "pending review") {
		t.Error("notes rendered out of order")
	}
}

func TestDecodeRequiresTwoSeparators(t *testing.T) {
	for name, document := range map[string]string{
		"empty":        "",
		"no separator": "# Title\n\nbody\n",
		"one":          "---\nid: x\ntitle: y\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(document))
			if !errors.Is(err, ErrFormat) {
				t.Fatalf("Decode error = %v, want ErrFormat", err)
			}
		})
	}
}

func TestDecodeIgnoresPreambleAndBody(t *testing.T) {
	document := "preamble text\n---\nid: tk-1\ntitle: From metadata\nstatus: ready\n---\n\n# Edited heading\n\n---\nmore\n"
	decoded, err := Decode([]byte(document))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Title != "From metadata" {
		t.Errorf("Title = %q, want metadata title", decoded.Title)
	}
	if decoded.Status != ticket.StatusReady {
		t.Errorf("Status = %q, want ready", decoded.Status)
	}
}

func TestDecodeMissingFieldsAreUnset(t *testing.T) {
	decoded, err := Decode([]byte("---\nid: tk-1\ntitle: t\nstatus: open\nsurprise: 7\n---\n"))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Deps == nil || len(decoded.Deps) != 0 {
		t.Errorf("Deps = %#v, want empty", decoded.Deps)
	}
	if decoded.Links == nil || len(decoded.Links) != 0 {
		t.Errorf("Links = %#v, want empty", decoded.Links)
	}
	if decoded.Description != "" || decoded.Notes != nil {
		t.Errorf("optional fields set: %+v", decoded)
	}
}

func TestDecodeCRLF(t *testing.T) {
	document := "---\r\nid: tk-1\r\ntitle: t\r\nstatus: closed\r\n---\r\n\r\n# t\r\n"
	decoded, err := Decode([]byte(document))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.ID != "tk-1" || decoded.Status != ticket.StatusClosed {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestDecodeRejectsBadMetadata(t *testing.T) {
	for name, metadata := range map[string]string{
		"not yaml":       "id: [unterminated\n",
		"invalid status": "id: tk-1\ntitle: t\nstatus: done\n",
		"wrong type":     "id: tk-1\npriority: high\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte("---\n" + metadata + "---\n"))
			if !errors.Is(err, ErrFormat) {
				t.Fatalf("Decode error = %v, want ErrFormat", err)
			}
		})
	}
}

func TestDescriptionContainingSeparator(t *testing.T) {
	source := minimalTicket()
	source.Description = "before\n---\nafter"
	document, err := Encode(source)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(document)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Description != source.Description {
		t.Errorf("Description = %q, want %q", decoded.Description, source.Description)
	}
}

func TestStartsWithMetadata(t *testing.T) {
	tests := map[string]bool{
		"---\nid: x\n---\n": true,
		"---\r\n":           true,
		"# Title\n":         false,
		"":                  false,
		"  ---\n":           false,
	}
	for document, want := range tests {
		if got := StartsWithMetadata([]byte(document)); got != want {
			t.Errorf("StartsWithMetadata(%q) = %v, want %v", document, got, want)
		}
	}
}
