// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/tkr/lib/clock"
	"github.com/bureau-foundation/tkr/lib/codec"
	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/testutil"
	"github.com/bureau-foundation/tkr/lib/ticketdoc"
	"github.com/bureau-foundation/tkr/lib/ticketstore"
	"github.com/bureau-foundation/tkr/lib/ticketwatch"
)

var epoch = time.Date(2026, 2, 12, 10, 0, 0, 0, time.UTC)

type fixture struct {
	server  *Server
	handler http.Handler
	store   *ticketstore.Store
	clock   *clock.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := clock.Fake(epoch)
	store, err := ticketstore.Open(ticketstore.Config{
		Root:  filepath.Join(t.TempDir(), "my-project", ".tickets"),
		Clock: fake,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	server, err := New(Config{Store: store, DefaultAssignee: "alice", Clock: fake})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &fixture{server: server, handler: server.Handler(), store: store, clock: fake}
}

// do sends a JSON request (body may be nil) and returns the recorded
// response. headers alternate name and value.
func (f *fixture) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, path, reader)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		request.Header.Set(headers[i], headers[i+1])
	}
	recorder := httptest.NewRecorder()
	f.handler.ServeHTTP(recorder, request)
	return recorder
}

// create posts a ticket and returns its detail. The fake clock moves
// one second per call so creation order is observable.
func (f *fixture) create(t *testing.T, request map[string]any) ticketDetail {
	t.Helper()
	f.clock.Advance(time.Second)
	response := f.do(t, http.MethodPost, "/api/tickets", request)
	if response.Code != http.StatusCreated {
		t.Fatalf("POST /api/tickets: status %d, body %s", response.Code, response.Body)
	}
	return decode[ticketDetail](t, response)
}

func decode[T any](t *testing.T, response *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	if err := json.Unmarshal(response.Body.Bytes(), &value); err != nil {
		t.Fatalf("decoding %s: %v", response.Body, err)
	}
	return value
}

func ids(tickets []ticket.Ticket) []string {
	result := make([]string, len(tickets))
	for i := range tickets {
		result[i] = tickets[i].ID
	}
	return result
}

func TestCreateAndGet(t *testing.T) {
	f := newFixture(t)

	response := f.do(t, http.MethodPost, "/api/tickets", map[string]any{
		"title":    "Fix login",
		"priority": 1,
		"type":     "bug",
	})
	if response.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", response.Code, response.Body)
	}
	created := decode[ticketDetail](t, response)
	if created.Ticket.Title != "Fix login" || created.Ticket.Priority != 1 || created.Ticket.Type != "bug" {
		t.Errorf("created = %+v", created.Ticket)
	}
	if created.Ticket.Status != ticket.StatusOpen {
		t.Errorf("status = %q, want open", created.Ticket.Status)
	}
	if created.Ticket.Assignee != "alice" {
		t.Errorf("assignee = %q, want the default assignee", created.Ticket.Assignee)
	}
	if location := response.Header().Get("Location"); location != "/api/tickets/"+created.Ticket.ID {
		t.Errorf("Location = %q", location)
	}
	tag := response.Header().Get("ETag")
	if tag != etag(created.Revision) {
		t.Errorf("ETag = %q, revision %q", tag, created.Revision)
	}

	response = f.do(t, http.MethodGet, "/api/tickets/"+created.Ticket.ID, nil)
	if response.Code != http.StatusOK {
		t.Fatalf("GET: status %d, body %s", response.Code, response.Body)
	}
	if got := response.Header().Get("ETag"); got != tag {
		t.Errorf("GET ETag = %q, want %q", got, tag)
	}
	fetched := decode[ticketDetail](t, response)
	if fetched.Ticket.ID != created.Ticket.ID {
		t.Errorf("fetched %s, want %s", fetched.Ticket.ID, created.Ticket.ID)
	}
	if fetched.Dependents == nil || fetched.Unresolved == nil {
		t.Errorf("dependents and unresolved should be empty lists, got %v %v", fetched.Dependents, fetched.Unresolved)
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	for _, body := range []map[string]any{
		{"title": "  "},
		{"title": "x", "priority": 7},
		{"title": "x", "unknown_field": true},
	} {
		response := f.do(t, http.MethodPost, "/api/tickets", body)
		if response.Code != http.StatusBadRequest {
			t.Errorf("POST %v: status %d, want 400", body, response.Code)
		}
		if !strings.Contains(response.Body.String(), `"error"`) {
			t.Errorf("POST %v: body %s lacks an error", body, response.Body)
		}
	}
}

func TestUpdateIfMatch(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, map[string]any{"title": "Draft"})
	path := "/api/tickets/" + created.Ticket.ID

	response := f.do(t, http.MethodPut, path, map[string]any{"title": "Final"}, "If-Match", etag(created.Revision))
	if response.Code != http.StatusOK {
		t.Fatalf("PUT with current revision: status %d, body %s", response.Code, response.Body)
	}
	updated := decode[ticketDetail](t, response)
	if updated.Ticket.Title != "Final" {
		t.Errorf("title = %q", updated.Ticket.Title)
	}
	if updated.Revision == created.Revision {
		t.Error("revision did not change")
	}

	response = f.do(t, http.MethodPut, path, map[string]any{"title": "Lost"}, "If-Match", etag(created.Revision))
	if response.Code != http.StatusPreconditionFailed {
		t.Fatalf("PUT with stale revision: status %d, want 412", response.Code)
	}
	current, err := f.store.Load(created.Ticket.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if current.Title != "Final" {
		t.Errorf("stale write landed: title %q", current.Title)
	}

	response = f.do(t, http.MethodPut, path, map[string]any{"status": "done"})
	if response.Code != http.StatusBadRequest {
		t.Errorf("invalid status: code %d, want 400", response.Code)
	}
}

func TestCloseCascadeOverHTTP(t *testing.T) {
	f := newFixture(t)
	dependency := f.create(t, map[string]any{"title": "Schema"})
	dependent := f.create(t, map[string]any{"title": "Migration", "deps": []string{dependency.Ticket.ID}})
	if !slices.Equal(dependent.Ticket.Deps, []string{dependency.Ticket.ID}) {
		t.Fatalf("deps = %v", dependent.Ticket.Deps)
	}
	if !slices.Equal(dependent.Unresolved, []string{dependency.Ticket.ID}) {
		t.Errorf("unresolved = %v", dependent.Unresolved)
	}

	response := f.do(t, http.MethodPut, "/api/tickets/"+dependent.Ticket.ID, map[string]any{"status": "blocked"})
	if response.Code != http.StatusOK {
		t.Fatalf("block: status %d, body %s", response.Code, response.Body)
	}

	response = f.do(t, http.MethodGet, "/api/tickets?view=blocked", nil)
	if got := ids(decode[map[string][]ticket.Ticket](t, response)["tickets"]); !slices.Equal(got, []string{dependent.Ticket.ID}) {
		t.Errorf("blocked view = %v", got)
	}

	response = f.do(t, http.MethodPut, "/api/tickets/"+dependency.Ticket.ID, map[string]any{"status": "closed"})
	if response.Code != http.StatusOK {
		t.Fatalf("close: status %d, body %s", response.Code, response.Body)
	}

	response = f.do(t, http.MethodGet, "/api/tickets/"+dependent.Ticket.ID, nil)
	after := decode[ticketDetail](t, response)
	if after.Ticket.Status != ticket.StatusReady {
		t.Errorf("dependent status = %q, want ready", after.Ticket.Status)
	}
	if len(after.Ticket.Deps) != 0 {
		t.Errorf("dependent deps = %v, want none", after.Ticket.Deps)
	}
}

func TestCBORResponse(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, map[string]any{"title": "Binary"})

	response := f.do(t, http.MethodGet, "/api/tickets/"+created.Ticket.ID, nil, "Accept", codec.MediaType)
	if got := response.Header().Get("Content-Type"); got != codec.MediaType {
		t.Fatalf("Content-Type = %q", got)
	}
	var detail ticketDetail
	if err := codec.Unmarshal(response.Body.Bytes(), &detail); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if detail.Ticket.ID != created.Ticket.ID || detail.Ticket.Title != "Binary" {
		t.Errorf("detail = %+v", detail.Ticket)
	}
	if !detail.Ticket.Created.Equal(created.Ticket.Created) {
		t.Errorf("created = %v, want %v", detail.Ticket.Created, created.Ticket.Created)
	}
}

func TestCBORRequest(t *testing.T) {
	f := newFixture(t)
	data, err := codec.Marshal(map[string]any{"title": "From CBOR", "priority": 0})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	request := httptest.NewRequest(http.MethodPost, "/api/tickets", bytes.NewReader(data))
	request.Header.Set("Content-Type", codec.MediaType)
	recorder := httptest.NewRecorder()
	f.handler.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("status %d, body %s", recorder.Code, recorder.Body)
	}
	created := decode[ticketDetail](t, recorder)
	if created.Ticket.Title != "From CBOR" || created.Ticket.Priority != 0 {
		t.Errorf("created = %+v", created.Ticket)
	}
}

func TestErrorStatuses(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"mp-aaa1", "mp-aaa2"} {
		content, err := ticketdoc.Encode(ticket.Ticket{
			ID: id, Title: "ticket " + id, Status: ticket.StatusOpen,
			Created: epoch, Type: ticket.DefaultType,
		})
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		testutil.WriteFile(t, f.store.Root(), filepath.Join("open", id+".md"), string(content))
	}

	response := f.do(t, http.MethodGet, "/api/tickets/mp-aaa", nil)
	if response.Code != http.StatusConflict {
		t.Fatalf("ambiguous prefix: status %d, want 409", response.Code)
	}
	body := decode[errorResponse](t, response)
	if !slices.Equal(body.Candidates, []string{"mp-aaa1", "mp-aaa2"}) {
		t.Errorf("candidates = %v", body.Candidates)
	}

	if response := f.do(t, http.MethodGet, "/api/tickets/mp-zzz", nil); response.Code != http.StatusNotFound {
		t.Errorf("missing ticket: status %d, want 404", response.Code)
	}
	if response := f.do(t, http.MethodGet, "/api/nothing", nil); response.Code != http.StatusNotFound {
		t.Errorf("unknown endpoint: status %d, want 404", response.Code)
	}
	if response := f.do(t, http.MethodGet, "/api/tickets?view=someday", nil); response.Code != http.StatusBadRequest {
		t.Errorf("bad view: status %d, want 400", response.Code)
	}
	if response := f.do(t, http.MethodGet, "/api/tickets?status=done", nil); response.Code != http.StatusBadRequest {
		t.Errorf("bad status filter: status %d, want 400", response.Code)
	}
}

func TestDependencyNoteAndLinkRoutes(t *testing.T) {
	f := newFixture(t)
	first := f.create(t, map[string]any{"title": "First"})
	second := f.create(t, map[string]any{"title": "Second"})
	base := "/api/tickets/" + first.Ticket.ID

	changed := func(response *httptest.ResponseRecorder) bool {
		t.Helper()
		if response.Code != http.StatusOK {
			t.Fatalf("status %d, body %s", response.Code, response.Body)
		}
		return decode[changedResponse](t, response).Changed
	}

	if !changed(f.do(t, http.MethodPost, base+"/deps/"+second.Ticket.ID, nil)) {
		t.Error("first dep add reported no change")
	}
	if changed(f.do(t, http.MethodPost, base+"/deps/"+second.Ticket.ID, nil)) {
		t.Error("repeated dep add reported a change")
	}
	tree := decode[map[string]any](t, f.do(t, http.MethodGet, base+"/tree", nil))
	children, _ := tree["children"].([]any)
	if tree["id"] != first.Ticket.ID || len(children) != 1 {
		t.Errorf("tree = %v", tree)
	}
	if !changed(f.do(t, http.MethodDelete, base+"/deps/"+second.Ticket.ID, nil)) {
		t.Error("dep removal reported no change")
	}

	if !changed(f.do(t, http.MethodPost, base+"/links/"+second.Ticket.ID, nil)) {
		t.Error("link reported no change")
	}
	other, err := f.store.Load(second.Ticket.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !slices.Equal(other.Links, []string{first.Ticket.ID}) {
		t.Errorf("links on the other side = %v", other.Links)
	}
	if response := f.do(t, http.MethodPost, base+"/links/"+first.Ticket.ID, nil); response.Code != http.StatusBadRequest {
		t.Errorf("self link: status %d, want 400", response.Code)
	}
	if !changed(f.do(t, http.MethodDelete, base+"/links/"+second.Ticket.ID, nil)) {
		t.Error("unlink reported no change")
	}

	response := f.do(t, http.MethodPost, base+"/notes", map[string]any{"text": "checked staging"})
	if response.Code != http.StatusCreated {
		t.Fatalf("note: status %d, body %s", response.Code, response.Body)
	}
	note := decode[ticket.Note](t, response)
	if note.Content != "checked staging" || !note.Timestamp.Equal(f.clock.Now()) {
		t.Errorf("note = %+v", note)
	}
}

func TestListFiltersAndRanking(t *testing.T) {
	f := newFixture(t)
	login := f.create(t, map[string]any{"title": "Login page crashes", "type": "bug", "priority": 0})
	docs := f.create(t, map[string]any{"title": "Write deployment docs", "type": "chore"})
	f.create(t, map[string]any{"title": "Refactor session cache", "deps": []string{login.Ticket.ID}})

	list := func(query string) []string {
		t.Helper()
		response := f.do(t, http.MethodGet, "/api/tickets"+query, nil)
		if response.Code != http.StatusOK {
			t.Fatalf("GET %s: status %d, body %s", query, response.Code, response.Body)
		}
		return ids(decode[map[string][]ticket.Ticket](t, response)["tickets"])
	}

	if got := list(""); len(got) != 3 {
		t.Errorf("all = %v", got)
	}
	if got := list("?type=chore"); !slices.Equal(got, []string{docs.Ticket.ID}) {
		t.Errorf("type=chore = %v", got)
	}
	if got := list("?q=LOGIN"); !slices.Equal(got, []string{login.Ticket.ID}) {
		t.Errorf("q=LOGIN = %v", got)
	}
	if got := list("?view=ready"); !slices.Equal(got, []string{login.Ticket.ID, docs.Ticket.ID}) {
		t.Errorf("ready = %v", got)
	}
	if got := list("?assignee=bob"); got == nil || len(got) != 0 {
		t.Errorf("assignee=bob = %v, want an empty list", got)
	}

	response := f.do(t, http.MethodGet, "/api/tickets?rank=deployment+docs&limit=1", nil)
	ranked := decode[map[string][]struct {
		Ticket ticket.Ticket `json:"ticket"`
		Score  float64       `json:"score"`
	}](t, response)["results"]
	if len(ranked) != 1 || ranked[0].Ticket.ID != docs.Ticket.ID || ranked[0].Score <= 0 {
		t.Errorf("ranked = %+v", ranked)
	}

	stats := decode[map[string]any](t, f.do(t, http.MethodGet, "/api/stats", nil))
	if stats["total"] != float64(3) {
		t.Errorf("stats = %v", stats)
	}
}

func TestFollowInvalidatesCache(t *testing.T) {
	f := newFixture(t)
	f.create(t, map[string]any{"title": "Seen"})

	count := func() int {
		t.Helper()
		return len(decode[map[string][]ticket.Ticket](t, f.do(t, http.MethodGet, "/api/tickets", nil))["tickets"])
	}
	if got := count(); got != 1 {
		t.Fatalf("count = %d, want 1", got)
	}

	content, err := ticketdoc.Encode(ticket.Ticket{
		ID: "mp-ext1", Title: "Written by another process", Status: ticket.StatusOpen,
		Created: epoch, Type: ticket.DefaultType,
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	path := testutil.WriteFile(t, f.store.Root(), filepath.Join("open", "mp-ext1.md"), string(content))

	if got := count(); got != 1 {
		t.Fatalf("count before the batch = %d, want the cached 1", got)
	}

	events := make(chan ticketwatch.Batch, 1)
	finished := make(chan struct{})
	go func() {
		f.server.Follow(context.Background(), events)
		close(finished)
	}()
	events <- ticketwatch.Batch{Paths: []string{path}}
	close(events)
	testutil.RequireClosed(t, finished, 5*time.Second, "Follow did not return after events closed")

	if got := count(); got != 2 {
		t.Errorf("count after the batch = %d, want 2", got)
	}
}

func TestRequestIDAndHealth(t *testing.T) {
	f := newFixture(t)
	response := f.do(t, http.MethodGet, "/health", nil)
	if response.Code != http.StatusOK {
		t.Fatalf("status %d", response.Code)
	}
	if id := response.Header().Get(RequestIDHeader); len(id) != 8 {
		t.Errorf("request id = %q, want 8 characters", id)
	}
	health := decode[map[string]string](t, response)
	if health["status"] != "ok" || health["root"] != f.store.Root() {
		t.Errorf("health = %v", health)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	addresses := make(chan string, 1)
	result := make(chan error, 1)
	go func() {
		result <- f.server.Serve(ctx, "127.0.0.1:0", func(address net.Addr) {
			addresses <- address.String()
		})
	}()
	address := testutil.RequireReceive(t, addresses, 5*time.Second, "server never became ready")

	response, err := http.Get("http://" + address + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	response.Body.Close()
	if response.StatusCode != http.StatusOK {
		t.Errorf("status %d", response.StatusCode)
	}

	cancel()
	if err := testutil.RequireReceive(t, result, 5*time.Second, "Serve did not return"); err != nil {
		t.Errorf("Serve: %v", err)
	}
}
