// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketstore

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/tkr/lib/clock"
	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/testutil"
	"github.com/bureau-foundation/tkr/lib/ticketdoc"
)

var epoch = time.Date(2026, 2, 12, 10, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, configure ...func(*Config)) (*Store, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(epoch)
	config := Config{
		Root:  filepath.Join(t.TempDir(), "my-project", ".tickets"),
		Clock: fake,
	}
	for _, apply := range configure {
		apply(&config)
	}
	store, err := Open(config)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return store, fake
}

// putTicket writes a fixture document straight into a directory,
// bypassing the store.
func putTicket(t *testing.T, store *Store, directory ticket.Status, entry ticket.Ticket) string {
	t.Helper()
	if entry.Created.IsZero() {
		entry.Created = epoch
	}
	if entry.Type == "" {
		entry.Type = ticket.DefaultType
	}
	if entry.Title == "" {
		entry.Title = "ticket " + entry.ID
	}
	content, err := ticketdoc.Encode(entry)
	if err != nil {
		t.Fatalf("Encode(%s): %v", entry.ID, err)
	}
	return testutil.WriteFile(t, store.Root(), filepath.Join(string(directory), entry.ID+".md"), string(content))
}

func documentNames(t *testing.T, store *Store, status ticket.Status) []string {
	t.Helper()
	entries, err := os.ReadDir(store.StatusDir(status))
	if err != nil && !os.IsNotExist(err) {
		t.Fatalf("ReadDir(%s): %v", status, err)
	}
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

// assertOneCopy fails unless exactly one status directory holds a
// document for ticketID, and returns that directory's status.
func assertOneCopy(t *testing.T, store *Store, ticketID string) ticket.Status {
	t.Helper()
	var found []ticket.Status
	for _, status := range ticket.AllStatuses {
		if testutil.Exists(t, store.Root(), filepath.Join(string(status), ticketID+".md")) {
			found = append(found, status)
		}
	}
	if len(found) != 1 {
		t.Fatalf("%s is filed under %v, want exactly one status directory", ticketID, found)
	}
	return found[0]
}

func decodeFile(t *testing.T, path string) ticket.Ticket {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	decoded, err := ticketdoc.Decode(content)
	if err != nil {
		t.Fatalf("decoding %s: %v", path, err)
	}
	return decoded
}

func TestCreateAndCloseScenario(t *testing.T) {
	store, _ := newTestStore(t)

	created, err := store.Create("Fix login bug", ticket.DefaultCreateOptions())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !regexp.MustCompile(`^[a-z]+-[0-9a-f]+$`).MatchString(created.ID) {
		t.Errorf("id %q does not match prefix-hex form", created.ID)
	}

	openPath := filepath.Join(store.Root(), "open", created.ID+".md")
	decoded := decodeFile(t, openPath)
	if decoded.Status != ticket.StatusOpen || decoded.Title != "Fix login bug" {
		t.Errorf("decoded = %+v", decoded)
	}

	change, err := store.Transition(created.ID, ticket.StatusClosed)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if !change.Changed || change.Previous != ticket.StatusOpen {
		t.Errorf("change = %+v", change)
	}
	if names := documentNames(t, store, ticket.StatusOpen); len(names) != 0 {
		t.Errorf("open still holds %v", names)
	}
	closed := decodeFile(t, filepath.Join(store.Root(), "closed", created.ID+".md"))
	if closed.Status != ticket.StatusClosed {
		t.Errorf("closed document status = %q", closed.Status)
	}
}

func TestCreateFillsFields(t *testing.T) {
	store, fake := newTestStore(t, func(config *Config) {
		config.Project = "web"
		config.Category = "auth"
	})
	fake.Advance(90 * time.Second)

	created, err := store.Create("Add SSO", ticket.CreateOptions{
		Priority:    1,
		Description: "Support SAML.",
		Assignee:    "sam",
		Parent:      "mp-epic",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	loaded, err := store.Load(created.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.Created.Equal(epoch.Add(90 * time.Second)) {
		t.Errorf("Created = %v", loaded.Created)
	}
	if loaded.Type != ticket.DefaultType {
		t.Errorf("Type = %q, want default", loaded.Type)
	}
	if loaded.Project != "web" || loaded.Category != "auth" {
		t.Errorf("project/category = %q/%q", loaded.Project, loaded.Category)
	}
	if loaded.Priority != 1 || loaded.Assignee != "sam" || loaded.Parent != "mp-epic" || loaded.Description != "Support SAML." {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestCreateRejectsBlankTitle(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Create("  ", ticket.DefaultCreateOptions()); err == nil {
		t.Fatal("Create with blank title succeeded")
	}
}

func TestGenerateID(t *testing.T) {
	fake := clock.Fake(time.UnixMilli(1_234_567).UTC())
	ticketID, err := GenerateID("/work/my-project/.tickets", fake)
	if err != nil {
		t.Fatalf("GenerateID: %v", err)
	}
	// 1234567 % 10000 = 4567 = 0x11d7.
	if !regexp.MustCompile(`^mp-11d7[0-9a-f]{4}$`).MatchString(ticketID) {
		t.Errorf("GenerateID = %q", ticketID)
	}

	fake.Set(time.Date(1969, 7, 20, 20, 17, 0, 0, time.UTC))
	if _, err := GenerateID("/work/x/.tickets", fake); !errors.Is(err, ErrClock) {
		t.Errorf("GenerateID before epoch: err = %v, want ErrClock", err)
	}
}

func TestIDPrefix(t *testing.T) {
	tests := []struct {
		root string
		want string
	}{
		{"/src/bureau-foundation_tkr/.tickets", "bft"},
		{"/src/Repo/.tickets", "r"},
		{"/src/my--project/.tickets", "mp"},
		{"/src/---/.tickets", "---"},
		{"/src/__/.tickets", "__"},
		{"/tickets", "unk"},
	}
	for _, test := range tests {
		if got := IDPrefix(test.root); got != test.want {
			t.Errorf("IDPrefix(%q) = %q, want %q", test.root, got, test.want)
		}
	}
}

func TestTransitionSameStatusIsNoop(t *testing.T) {
	store, _ := newTestStore(t)
	path := putTicket(t, store, ticket.StatusInProgress, ticket.Ticket{ID: "mp-1", Status: ticket.StatusInProgress})
	past := epoch.Add(-time.Hour)
	if err := os.Chtimes(path, past, past); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	before := testutil.ReadFile(t, store.Root(), "in_progress/mp-1.md")

	change, err := store.Transition("mp-1", ticket.StatusInProgress)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if change.Changed {
		t.Error("Changed = true for same-status transition")
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if !info.ModTime().Equal(past) {
		t.Errorf("document rewritten: mtime %v", info.ModTime())
	}
	if after := testutil.ReadFile(t, store.Root(), "in_progress/mp-1.md"); after != before {
		t.Error("document content changed")
	}
	if names := documentNames(t, store, ticket.StatusInProgress); !slices.Equal(names, []string{"mp-1.md"}) {
		t.Errorf("in_progress = %v", names)
	}
}

func TestTransitionInvalidStatus(t *testing.T) {
	store, _ := newTestStore(t)
	putTicket(t, store, ticket.StatusOpen, ticket.Ticket{ID: "mp-1", Status: ticket.StatusOpen})
	_, err := store.Transition("mp-1", ticket.Status("done"))
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
	if !testutil.Exists(t, store.Root(), "open/mp-1.md") {
		t.Error("ticket moved despite invalid status")
	}
}

func TestCloseCascade(t *testing.T) {
	store, _ := newTestStore(t)
	putTicket(t, store, ticket.StatusOpen, ticket.Ticket{ID: "mp-a", Status: ticket.StatusOpen})
	putTicket(t, store, ticket.StatusBlocked, ticket.Ticket{ID: "mp-b", Status: ticket.StatusBlocked, Deps: []string{"mp-a"}})
	putTicket(t, store, ticket.StatusBlocked, ticket.Ticket{ID: "mp-d", Status: ticket.StatusBlocked, Deps: []string{"mp-x", "mp-a"}})
	putTicket(t, store, ticket.StatusOpen, ticket.Ticket{ID: "mp-c", Status: ticket.StatusOpen, Deps: []string{"mp-a"}})
	putTicket(t, store, ticket.StatusBlocked, ticket.Ticket{ID: "mp-e", Status: ticket.StatusBlocked, Deps: []string{"mp-x"}})
	testutil.WriteFile(t, store.Root(), "blocked/mp-broken.md", "no metadata here\n")

	change, err := store.Transition("mp-a", ticket.StatusClosed)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if !slices.Equal(change.Unblocked, []string{"mp-b", "mp-d"}) {
		t.Errorf("Unblocked = %v, want [mp-b mp-d]", change.Unblocked)
	}

	b := decodeFile(t, filepath.Join(store.Root(), "ready", "mp-b.md"))
	if b.Status != ticket.StatusReady || len(b.Deps) != 0 {
		t.Errorf("mp-b = %+v, want ready with no deps", b)
	}
	d := decodeFile(t, filepath.Join(store.Root(), "ready", "mp-d.md"))
	if !slices.Equal(d.Deps, []string{"mp-x"}) {
		t.Errorf("mp-d deps = %v, want [mp-x]", d.Deps)
	}
	if names := documentNames(t, store, ticket.StatusBlocked); !slices.Equal(names, []string{"mp-broken.md", "mp-e.md"}) {
		t.Errorf("blocked = %v", names)
	}
	c := decodeFile(t, filepath.Join(store.Root(), "open", "mp-c.md"))
	if !slices.Equal(c.Deps, []string{"mp-a"}) {
		t.Errorf("open dependent modified: %+v", c)
	}
	if !testutil.Exists(t, store.Root(), "closed/mp-a.md") || testutil.Exists(t, store.Root(), "open/mp-a.md") {
		t.Error("mp-a not relocated to closed")
	}
}

func TestCloseSelfDependentTicket(t *testing.T) {
	store, _ := newTestStore(t)
	putTicket(t, store, ticket.StatusBlocked, ticket.Ticket{ID: "mp-s", Status: ticket.StatusBlocked, Deps: []string{"mp-s"}})
	putTicket(t, store, ticket.StatusBlocked, ticket.Ticket{ID: "mp-t", Status: ticket.StatusBlocked, Deps: []string{"mp-s"}})

	change, err := store.Transition("mp-s", ticket.StatusClosed)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if !slices.Equal(change.Unblocked, []string{"mp-t"}) {
		t.Errorf("Unblocked = %v, want [mp-t]", change.Unblocked)
	}
	if status := assertOneCopy(t, store, "mp-s"); status != ticket.StatusClosed {
		t.Errorf("mp-s filed under %s, want closed", status)
	}
	if status := assertOneCopy(t, store, "mp-t"); status != ticket.StatusReady {
		t.Errorf("mp-t filed under %s, want ready", status)
	}
	closed := decodeFile(t, filepath.Join(store.Root(), "closed", "mp-s.md"))
	if closed.Status != ticket.StatusClosed {
		t.Errorf("mp-s status = %s", closed.Status)
	}
}

func TestRelocateAcrossFilesystems(t *testing.T) {
	store, _ := newTestStore(t)
	created, err := store.Create("Cross device", ticket.DefaultCreateOptions())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var (
		renames int
		staged  []byte
	)
	t.Cleanup(func() { rename = os.Rename })
	rename = func(oldPath, newPath string) error {
		renames++
		staged, _ = os.ReadFile(oldPath)
		return &os.LinkError{Op: "rename", Old: oldPath, New: newPath, Err: unix.EXDEV}
	}

	if _, err := store.Transition(created.ID, ticket.StatusInProgress); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if renames != 1 {
		t.Errorf("rename called %d times, want 1", renames)
	}
	if status := assertOneCopy(t, store, created.ID); status != ticket.StatusInProgress {
		t.Fatalf("filed under %s, want in_progress", status)
	}
	moved := decodeFile(t, filepath.Join(store.Root(), "in_progress", created.ID+".md"))
	if moved.Status != ticket.StatusInProgress || moved.Title != "Cross device" {
		t.Errorf("moved ticket = %+v", moved)
	}
	if got := testutil.ReadFile(t, store.Root(), filepath.Join("in_progress", created.ID+".md")); len(staged) == 0 || got != string(staged) {
		t.Errorf("destination content:\n%s\nwant the staged source:\n%s", got, staged)
	}

	rename = func(oldPath, newPath string) error {
		return &os.LinkError{Op: "rename", Old: oldPath, New: newPath, Err: unix.EACCES}
	}
	if _, err := store.Transition(created.ID, ticket.StatusClosed); !errors.Is(err, ErrIO) {
		t.Errorf("failed rename: err = %v, want ErrIO", err)
	}
}

func TestLoadErrors(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.Load("mp-nothing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing ticket: err = %v, want ErrNotFound", err)
	}
	if _, err := store.Load("../etc/passwd"); !errors.Is(err, ErrNotFound) {
		t.Errorf("path id: err = %v, want ErrNotFound", err)
	}

	testutil.WriteFile(t, store.Root(), "open/mp-bad.md", "---\nid: mp-bad\n")
	if _, err := store.Load("mp-bad"); !errors.Is(err, ErrFormat) {
		t.Errorf("one separator: err = %v, want ErrFormat", err)
	}
	testutil.WriteFile(t, store.Root(), "open/mp-noid.md", "---\ntitle: t\n---\n")
	if _, err := store.Load("mp-noid"); !errors.Is(err, ErrFormat) {
		t.Errorf("missing id: err = %v, want ErrFormat", err)
	}
}

func TestPrefixResolution(t *testing.T) {
	store, _ := newTestStore(t)
	created, err := store.Create("Only ticket", ticket.DefaultCreateOptions())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for length := 1; length <= len(created.ID); length++ {
		prefix := created.ID[:length]
		loaded, err := store.Load(prefix)
		if err != nil {
			t.Fatalf("Load(%q): %v", prefix, err)
		}
		if loaded.ID != created.ID {
			t.Fatalf("Load(%q) = %s, want %s", prefix, loaded.ID, created.ID)
		}
	}
}

func TestAmbiguousPrefix(t *testing.T) {
	store, _ := newTestStore(t)
	putTicket(t, store, ticket.StatusOpen, ticket.Ticket{ID: "mp-aa12", Status: ticket.StatusOpen})
	putTicket(t, store, ticket.StatusClosed, ticket.Ticket{ID: "mp-aa34", Status: ticket.StatusClosed})
	putTicket(t, store, ticket.StatusClosed, ticket.Ticket{ID: "mp-b", Status: ticket.StatusClosed})
	putTicket(t, store, ticket.StatusOpen, ticket.Ticket{ID: "mp-bc", Status: ticket.StatusOpen})

	_, err := store.Load("mp-aa")
	var ambiguous *AmbiguousIDError
	if !errors.As(err, &ambiguous) || !errors.Is(err, ErrAmbiguousID) {
		t.Fatalf("err = %v, want *AmbiguousIDError", err)
	}
	if !slices.Equal(ambiguous.Candidates, []string{"mp-aa12", "mp-aa34"}) {
		t.Errorf("Candidates = %v", ambiguous.Candidates)
	}

	// An exact id wins over longer ids it prefixes, wherever it lives.
	loaded, err := store.Load("mp-b")
	if err != nil || loaded.ID != "mp-b" {
		t.Errorf("Load(mp-b) = %v, %v", loaded.ID, err)
	}

	first, _ := newTestStore(t, func(config *Config) { config.ResolvePolicy = ResolveFirstMatch })
	putTicket(t, first, ticket.StatusOpen, ticket.Ticket{ID: "mp-aa12", Status: ticket.StatusOpen})
	putTicket(t, first, ticket.StatusOpen, ticket.Ticket{ID: "mp-aa34", Status: ticket.StatusOpen})
	loaded, err = first.Load("mp-aa")
	if err != nil || loaded.ID != "mp-aa12" {
		t.Errorf("first-match Load(mp-aa) = %v, %v", loaded.ID, err)
	}
}

func TestResolveHintPrefersExactElsewhere(t *testing.T) {
	store, _ := newTestStore(t)
	putTicket(t, store, ticket.StatusClosed, ticket.Ticket{ID: "mp-a", Status: ticket.StatusClosed})
	putTicket(t, store, ticket.StatusOpen, ticket.Ticket{ID: "mp-ab", Status: ticket.StatusOpen})
	putTicket(t, store, ticket.StatusOpen, ticket.Ticket{ID: "mp-ac", Status: ticket.StatusOpen})

	path, err := store.Resolve("mp-a", ticket.StatusOpen)
	if err != nil || path != filepath.Join(store.Root(), "closed", "mp-a.md") {
		t.Errorf("Resolve(mp-a, open) = %q, %v; want the exact file in closed", path, err)
	}
	_, err = store.Resolve("mp-a", "")
	if err != nil {
		t.Errorf("Resolve(mp-a) without hint: %v", err)
	}
	if _, err := store.Resolve("mp-", ticket.StatusOpen); !errors.Is(err, ErrAmbiguousID) {
		t.Errorf("Resolve(mp-, open) err = %v, want ambiguous", err)
	}
}

func TestResolveHintAndFallback(t *testing.T) {
	store, _ := newTestStore(t)
	putTicket(t, store, ticket.StatusClosed, ticket.Ticket{ID: "mp-9f", Status: ticket.StatusClosed})

	path, err := store.Resolve("mp-9", ticket.StatusClosed)
	if err != nil || path != filepath.Join(store.Root(), "closed", "mp-9f.md") {
		t.Errorf("Resolve with hint = %q, %v", path, err)
	}
	path, err = store.Resolve("mp-9f", ticket.StatusOpen)
	if err != nil || path != filepath.Join(store.Root(), "closed", "mp-9f.md") {
		t.Errorf("Resolve with wrong hint = %q, %v", path, err)
	}
	path, err = store.Resolve("mp-zz", ticket.StatusIcebox)
	if err != nil || path != filepath.Join(store.Root(), "icebox", "mp-zz.md") {
		t.Errorf("unmatched with hint = %q, %v", path, err)
	}
	path, err = store.Resolve("mp-zz", "")
	if err != nil || path != filepath.Join(store.Root(), "open", "mp-zz.md") {
		t.Errorf("unmatched without hint = %q, %v", path, err)
	}
	if _, err := store.Resolve("mp-9f", "later"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("invalid hint: err = %v", err)
	}
}

func TestListOrderingAndSkips(t *testing.T) {
	store, fake := newTestStore(t)
	first, _ := store.Create("first", ticket.DefaultCreateOptions())
	fake.Advance(time.Minute)
	second, _ := store.Create("second", ticket.DefaultCreateOptions())
	fake.Advance(time.Minute)
	third, _ := store.Create("third", ticket.DefaultCreateOptions())
	if _, err := store.Transition(second.ID, ticket.StatusIcebox); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	// Same instant as first; open scans before closed.
	putTicket(t, store, ticket.StatusClosed, ticket.Ticket{ID: "mp-tie", Status: ticket.StatusClosed, Created: epoch})
	testutil.WriteFile(t, store.Root(), "open/garbage.md", "garbage")
	testutil.WriteFile(t, store.Root(), "open/notes.txt", "not a ticket")

	tickets, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := make([]string, len(tickets))
	for i := range tickets {
		got[i] = tickets[i].ID
	}
	want := []string{third.ID, second.ID, first.ID, "mp-tie"}
	if !slices.Equal(got, want) {
		t.Errorf("List order = %v, want %v", got, want)
	}
}

func TestListCreatesLayout(t *testing.T) {
	store, _ := newTestStore(t)
	if _, err := store.List(); err != nil {
		t.Fatalf("List: %v", err)
	}
	for _, status := range ticket.AllStatuses {
		if info, err := os.Stat(store.StatusDir(status)); err != nil || !info.IsDir() {
			t.Errorf("status directory %s missing: %v", status, err)
		}
	}
}

func TestSearch(t *testing.T) {
	store, fake := newTestStore(t)
	login, _ := store.Create("Fix LOGIN redirect", ticket.DefaultCreateOptions())
	fake.Advance(time.Second)
	options := ticket.DefaultCreateOptions()
	options.Description = "The login page flickers"
	flicker, _ := store.Create("UI polish", options)
	fake.Advance(time.Second)
	store.Create("Billing", ticket.DefaultCreateOptions())

	results, err := store.Search("Login")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 || results[0].ID != flicker.ID || results[1].ID != login.ID {
		t.Errorf("Search(Login) = %v", results)
	}
	byID, _ := store.Search(strings.ToUpper(login.ID))
	if len(byID) != 1 || byID[0].ID != login.ID {
		t.Errorf("Search by id = %v", byID)
	}
}

func TestDependencySymmetry(t *testing.T) {
	store, _ := newTestStore(t)
	putTicket(t, store, ticket.StatusOpen, ticket.Ticket{ID: "mp-1", Status: ticket.StatusOpen, Deps: []string{"mp-x", "mp-y"}})

	added, err := store.AddDependency("mp-1", "mp-z")
	if err != nil || !added {
		t.Fatalf("AddDependency = %v, %v", added, err)
	}
	added, err = store.AddDependency("mp-1", "mp-z")
	if err != nil || added {
		t.Errorf("second AddDependency = %v, %v; want no-op", added, err)
	}
	removed, err := store.RemoveDependency("mp-1", "mp-z")
	if err != nil || !removed {
		t.Fatalf("RemoveDependency = %v, %v", removed, err)
	}
	loaded, _ := store.Load("mp-1")
	if !slices.Equal(loaded.Deps, []string{"mp-x", "mp-y"}) {
		t.Errorf("Deps = %v, want original", loaded.Deps)
	}
	removed, err = store.RemoveDependency("mp-1", "mp-missing")
	if err != nil || removed {
		t.Errorf("RemoveDependency of absent dep = %v, %v", removed, err)
	}
	if _, err := store.AddDependency("mp-nope", "mp-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AddDependency on missing ticket: err = %v", err)
	}
}

func TestAppendNote(t *testing.T) {
	store, fake := newTestStore(t)
	created, _ := store.Create("Investigate", ticket.DefaultCreateOptions())
	fake.Advance(2 * time.Hour)

	note, err := store.AppendNote(created.ID, "reproduced on staging")
	if err != nil {
		t.Fatalf("AppendNote: %v", err)
	}
	if !note.Timestamp.Equal(epoch.Add(2 * time.Hour)) {
		t.Errorf("note timestamp = %v", note.Timestamp)
	}
	document := testutil.ReadFile(t, store.Root(), filepath.Join("open", created.ID+".md"))
	if !strings.Contains(document, "## Notes\n\n**2026-02-12 12:00:00**: reproduced on staging") {
		t.Errorf("notes section missing:\n%s", document)
	}
	if _, err := store.AppendNote("mp-nope", "lost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("AppendNote on missing ticket: err = %v", err)
	}
}

func TestLinkAndUnlink(t *testing.T) {
	store, _ := newTestStore(t)
	for _, ticketID := range []string{"mp-1", "mp-2", "mp-3"} {
		putTicket(t, store, ticket.StatusOpen, ticket.Ticket{ID: ticketID, Status: ticket.StatusOpen})
	}
	changed, err := store.Link("mp-1", "mp-2", "mp-3")
	if err != nil || changed != 3 {
		t.Fatalf("Link = %d, %v", changed, err)
	}
	second, _ := store.Load("mp-2")
	if !slices.Equal(second.Links, []string{"mp-1", "mp-3"}) {
		t.Errorf("mp-2 links = %v", second.Links)
	}
	changed, _ = store.Link("mp-1", "mp-2")
	if changed != 0 {
		t.Errorf("relinking changed %d tickets", changed)
	}

	removed, err := store.Unlink("mp-1", "mp-2")
	if err != nil || !removed {
		t.Fatalf("Unlink = %v, %v", removed, err)
	}
	first, _ := store.Load("mp-1")
	second, _ = store.Load("mp-2")
	if !slices.Equal(first.Links, []string{"mp-3"}) || !slices.Equal(second.Links, []string{"mp-3"}) {
		t.Errorf("after Unlink: mp-1 %v, mp-2 %v", first.Links, second.Links)
	}
	if _, err := store.Link("mp-1"); err == nil {
		t.Error("Link with one ticket succeeded")
	}
	if _, err := store.Link("mp-1", "mp-1"); err == nil {
		t.Error("Link of a ticket with itself succeeded")
	}
}

func TestUpdateIf(t *testing.T) {
	store, _ := newTestStore(t)
	created, _ := store.Create("Original", ticket.DefaultCreateOptions())

	_, revision, err := store.LoadRevision(created.ID)
	if err != nil {
		t.Fatalf("LoadRevision: %v", err)
	}
	if _, err := store.AppendNote(created.ID, "someone else"); err != nil {
		t.Fatalf("AppendNote: %v", err)
	}
	rename := func(entry *ticket.Ticket) error {
		entry.Title = "Renamed"
		return nil
	}
	if _, _, err := store.UpdateIf(created.ID, revision, rename); !errors.Is(err, ErrConflict) {
		t.Fatalf("stale UpdateIf: err = %v, want ErrConflict", err)
	}

	_, revision, _ = store.LoadRevision(created.ID)
	updated, next, err := store.UpdateIf(created.ID, revision, rename)
	if err != nil {
		t.Fatalf("UpdateIf: %v", err)
	}
	if updated.Title != "Renamed" || len(updated.Notes) != 1 {
		t.Errorf("updated = %+v", updated)
	}
	document, _ := store.Document(created.ID)
	if next != Revision(document) || next == revision {
		t.Errorf("returned revision %s does not match document", next)
	}
}

func TestUpdate(t *testing.T) {
	store, _ := newTestStore(t)
	putTicket(t, store, ticket.StatusInProgress, ticket.Ticket{ID: "mp-a", Status: ticket.StatusInProgress})
	putTicket(t, store, ticket.StatusBlocked, ticket.Ticket{ID: "mp-b", Status: ticket.StatusBlocked, Deps: []string{"mp-a"}})

	if _, err := store.Update("mp-a", func(entry *ticket.Ticket) error {
		entry.ID = "mp-other"
		return nil
	}); err == nil {
		t.Error("Update allowed an id change")
	}
	if _, err := store.Update("mp-a", func(entry *ticket.Ticket) error {
		entry.Status = "finished"
		return nil
	}); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("Update to invalid status: err = %v", err)
	}
	sentinel := errors.New("abort")
	if _, err := store.Update("mp-a", func(*ticket.Ticket) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Errorf("mutate error not propagated: %v", err)
	}

	updated, err := store.Update("mp-a", func(entry *ticket.Ticket) error {
		entry.Status = ticket.StatusClosed
		entry.Assignee = "sam"
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Assignee != "sam" || !testutil.Exists(t, store.Root(), "closed/mp-a.md") {
		t.Errorf("update not applied or not relocated: %+v", updated)
	}
	if !testutil.Exists(t, store.Root(), "ready/mp-b.md") {
		t.Error("closing through Update did not cascade")
	}
	assertOneCopy(t, store, "mp-a")
	assertOneCopy(t, store, "mp-b")

	putTicket(t, store, ticket.StatusBlocked, ticket.Ticket{ID: "mp-s", Status: ticket.StatusBlocked, Deps: []string{"mp-s"}})
	if _, err := store.Update("mp-s", func(entry *ticket.Ticket) error {
		entry.Status = ticket.StatusClosed
		return nil
	}); err != nil {
		t.Fatalf("Update(mp-s): %v", err)
	}
	if status := assertOneCopy(t, store, "mp-s"); status != ticket.StatusClosed {
		t.Errorf("mp-s filed under %s, want closed", status)
	}
}

func TestNoTemporaryFilesLeft(t *testing.T) {
	store, _ := newTestStore(t)
	created, _ := store.Create("Move me around", ticket.DefaultCreateOptions())
	for _, status := range []ticket.Status{ticket.StatusInProgress, ticket.StatusBlocked, ticket.StatusReady, ticket.StatusArchive} {
		if _, err := store.Transition(created.ID, status); err != nil {
			t.Fatalf("Transition(%s): %v", status, err)
		}
	}
	var files []string
	filepath.WalkDir(store.Root(), func(path string, entry os.DirEntry, err error) error {
		if err == nil && !entry.IsDir() {
			files = append(files, strings.TrimPrefix(path, store.Root()))
		}
		return nil
	})
	want := []string{string(filepath.Separator) + filepath.Join("archive", created.ID+".md")}
	if !slices.Equal(files, want) {
		t.Errorf("files = %v, want %v", files, want)
	}
}
