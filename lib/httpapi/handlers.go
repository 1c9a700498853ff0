// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/ticketindex"
	"github.com/bureau-foundation/tkr/lib/ticketstore"
)

// ticketDetail is the single-ticket response.
type ticketDetail struct {
	Ticket   ticket.Ticket `json:"ticket"`
	Revision string        `json:"revision"`

	// Dependents lists tickets whose Deps name this one.
	Dependents []string `json:"dependents"`

	// Unresolved lists the Deps that are neither closed nor archived
	// (or do not exist).
	Unresolved []string `json:"unresolved"`
}

type createRequest struct {
	Title       string   `json:"title"`
	Type        string   `json:"type,omitempty"`
	Priority    *int     `json:"priority,omitempty"`
	Description string   `json:"description,omitempty"`
	Design      string   `json:"design,omitempty"`
	Acceptance  string   `json:"acceptance,omitempty"`
	Assignee    string   `json:"assignee,omitempty"`
	ExternalRef string   `json:"external_ref,omitempty"`
	Parent      string   `json:"parent,omitempty"`
	Deps        []string `json:"deps,omitempty"`
}

// updateRequest fields are pointers: absent fields are left alone, and
// an empty string clears an optional field.
type updateRequest struct {
	Title       *string   `json:"title,omitempty"`
	Status      *string   `json:"status,omitempty"`
	Type        *string   `json:"type,omitempty"`
	Priority    *int      `json:"priority,omitempty"`
	Description *string   `json:"description,omitempty"`
	Design      *string   `json:"design,omitempty"`
	Acceptance  *string   `json:"acceptance,omitempty"`
	Assignee    *string   `json:"assignee,omitempty"`
	ExternalRef *string   `json:"external_ref,omitempty"`
	Parent      *string   `json:"parent,omitempty"`
	Project     *string   `json:"project,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Deps        *[]string `json:"deps,omitempty"`
	Links       *[]string `json:"links,omitempty"`
}

type noteRequest struct {
	Text string `json:"text"`
}

type changedResponse struct {
	Changed bool `json:"changed"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, map[string]string{
		"status": "ok",
		"root":   s.store.Root(),
	})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cached, err := s.listingLocked()
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, cached.index.Stats())
}

func (s *Server) listTickets(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	s.mu.Lock()
	defer s.mu.Unlock()
	cached, err := s.listingLocked()
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	if rank := query.Get("rank"); rank != "" {
		limit, err := intParam(query.Get("limit"))
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "limit: "+err.Error())
			return
		}
		results := cached.index.Rank(rank, limit)
		if results == nil {
			results = []ticketindex.Scored{}
		}
		respond(w, r, http.StatusOK, map[string]any{"results": results})
		return
	}

	var tickets []ticket.Ticket
	switch view := query.Get("view"); view {
	case "", "all":
		tickets = slices.Clone(cached.tickets)
	case "ready":
		tickets = cached.index.Ready()
	case "blocked":
		tickets = cached.index.Blocked()
	default:
		writeError(w, r, http.StatusBadRequest, "view must be all, ready, or blocked, got "+strconv.Quote(view))
		return
	}

	filter := ticketindex.Filter{
		Type:     query.Get("type"),
		Project:  query.Get("project"),
		Category: query.Get("category"),
		Assignee: query.Get("assignee"),
	}
	if raw := query.Get("status"); raw != "" {
		status, err := ticket.ParseStatus(raw)
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
		filter.Status = status
	}
	search := query.Get("q")
	tickets = slices.DeleteFunc(tickets, func(candidate ticket.Ticket) bool {
		if search != "" && !ticketstore.MatchesQuery(candidate, search) {
			return true
		}
		return !filter.Matches(candidate)
	})
	if tickets == nil {
		tickets = []ticket.Ticket{}
	}
	respond(w, r, http.StatusOK, map[string]any{"tickets": tickets})
}

func (s *Server) getTicket(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.respondDetailLocked(w, r, http.StatusOK, chi.URLParam(r, "id"))
}

func (s *Server) createTicket(w http.ResponseWriter, r *http.Request) {
	var request createRequest
	if err := decodeBody(r, &request); err != nil {
		writeStoreError(w, r, err)
		return
	}
	if strings.TrimSpace(request.Title) == "" {
		writeError(w, r, http.StatusBadRequest, "title is required")
		return
	}
	options := ticket.DefaultCreateOptions()
	if request.Type != "" {
		options.Type = request.Type
	}
	if request.Priority != nil {
		if err := checkPriority(*request.Priority); err != nil {
			writeStoreError(w, r, err)
			return
		}
		options.Priority = *request.Priority
	}
	options.Description = request.Description
	options.Design = request.Design
	options.Acceptance = request.Acceptance
	options.Assignee = request.Assignee
	if options.Assignee == "" {
		options.Assignee = s.defaultAssignee
	}
	options.ExternalRef = request.ExternalRef
	options.Parent = request.Parent

	s.mu.Lock()
	defer s.mu.Unlock()
	created, err := s.store.Create(request.Title, options)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if len(request.Deps) > 0 {
		created, err = s.store.Update(created.ID, func(entry *ticket.Ticket) error {
			for _, dep := range request.Deps {
				entry.AddDep(dep)
			}
			return nil
		})
		if err != nil {
			writeStoreError(w, r, err)
			return
		}
	}
	s.changedLocked(created)
	w.Header().Set("Location", "/api/tickets/"+created.ID)
	s.respondDetailLocked(w, r, http.StatusCreated, created.ID)
}

func (s *Server) updateTicket(w http.ResponseWriter, r *http.Request) {
	var request updateRequest
	if err := decodeBody(r, &request); err != nil {
		writeStoreError(w, r, err)
		return
	}
	mutate := request.apply

	s.mu.Lock()
	defer s.mu.Unlock()
	id := chi.URLParam(r, "id")
	var (
		updated ticket.Ticket
		err     error
	)
	if revision := ifMatch(r); revision != "" {
		updated, _, err = s.store.UpdateIf(id, revision, mutate)
	} else {
		updated, err = s.store.Update(id, mutate)
	}
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.changedLocked(updated)
	s.respondDetailLocked(w, r, http.StatusOK, updated.ID)
}

// apply copies the set fields onto entry. A status change is applied
// here too; the store relocates the document and, for closed, runs the
// closure cascade.
func (request *updateRequest) apply(entry *ticket.Ticket) error {
	if request.Title != nil {
		if strings.TrimSpace(*request.Title) == "" {
			return invalid("title must not be empty")
		}
		entry.Title = *request.Title
	}
	if request.Status != nil {
		status, err := ticket.ParseStatus(*request.Status)
		if err != nil {
			return err
		}
		entry.Status = status
	}
	if request.Priority != nil {
		if err := checkPriority(*request.Priority); err != nil {
			return err
		}
		entry.Priority = *request.Priority
	}
	if request.Type != nil {
		if *request.Type == "" {
			return invalid("type must not be empty")
		}
		entry.Type = *request.Type
	}
	for _, field := range []struct {
		value  *string
		target *string
	}{
		{request.Description, &entry.Description},
		{request.Design, &entry.Design},
		{request.Acceptance, &entry.Acceptance},
		{request.Assignee, &entry.Assignee},
		{request.ExternalRef, &entry.ExternalRef},
		{request.Parent, &entry.Parent},
		{request.Project, &entry.Project},
		{request.Category, &entry.Category},
	} {
		if field.value != nil {
			*field.target = *field.value
		}
	}
	if request.Deps != nil {
		entry.Deps = nil
		for _, dep := range *request.Deps {
			entry.AddDep(dep)
		}
	}
	if request.Links != nil {
		entry.Links = nil
		for _, link := range *request.Links {
			if link == entry.ID {
				return invalid("a ticket cannot link to itself")
			}
			entry.AddLink(link)
		}
	}
	return nil
}

func (s *Server) ticketTree(w http.ResponseWriter, r *http.Request) {
	full := r.URL.Query().Get("full") == "true"

	s.mu.Lock()
	defer s.mu.Unlock()
	root, err := s.store.Load(chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	cached, err := s.listingLocked()
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, cached.index.Tree(root.ID, full))
}

func (s *Server) addNote(w http.ResponseWriter, r *http.Request) {
	var request noteRequest
	if err := decodeBody(r, &request); err != nil {
		writeStoreError(w, r, err)
		return
	}
	if strings.TrimSpace(request.Text) == "" {
		writeError(w, r, http.StatusBadRequest, "text is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	note, err := s.store.AppendNote(chi.URLParam(r, "id"), request.Text)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.changedLocked()
	respond(w, r, http.StatusCreated, note)
}

func (s *Server) addDependency(w http.ResponseWriter, r *http.Request) {
	s.changeDependency(w, r, s.store.AddDependency)
}

func (s *Server) removeDependency(w http.ResponseWriter, r *http.Request) {
	s.changeDependency(w, r, s.store.RemoveDependency)
}

func (s *Server) changeDependency(w http.ResponseWriter, r *http.Request, change func(id, dep string) (bool, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed, err := change(chi.URLParam(r, "id"), chi.URLParam(r, "dep"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if changed {
		s.changedLocked()
	}
	respond(w, r, http.StatusOK, changedResponse{Changed: changed})
}

func (s *Server) link(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count, err := s.store.Link(chi.URLParam(r, "id"), chi.URLParam(r, "other"))
	if err != nil {
		writeStoreError(w, r, invalidIfPlain(err))
		return
	}
	if count > 0 {
		s.changedLocked()
	}
	respond(w, r, http.StatusOK, changedResponse{Changed: count > 0})
}

func (s *Server) unlink(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed, err := s.store.Unlink(chi.URLParam(r, "id"), chi.URLParam(r, "other"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if removed {
		s.changedLocked()
	}
	respond(w, r, http.StatusOK, changedResponse{Changed: removed})
}

// respondDetailLocked loads a ticket with its revision and graph
// context. The caller holds s.mu.
func (s *Server) respondDetailLocked(w http.ResponseWriter, r *http.Request, status int, idOrPrefix string) {
	loaded, revision, err := s.store.LoadRevision(idOrPrefix)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	cached, err := s.listingLocked()
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	detail := ticketDetail{
		Ticket:     loaded,
		Revision:   revision,
		Dependents: cached.index.Dependents(loaded.ID),
		Unresolved: cached.index.Unresolved(loaded.ID),
	}
	if detail.Dependents == nil {
		detail.Dependents = []string{}
	}
	if detail.Unresolved == nil {
		detail.Unresolved = []string{}
	}
	w.Header().Set("ETag", etag(revision))
	respond(w, r, status, detail)
}

func checkPriority(priority int) error {
	if priority < ticket.MinPriority || priority > ticket.MaxPriority {
		return invalid("priority must be %d-%d, got %d", ticket.MinPriority, ticket.MaxPriority, priority)
	}
	return nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, invalid("expected a non-negative integer, got %q", raw)
	}
	return value, nil
}

// invalidIfPlain turns store errors without a known kind (argument
// checks such as linking a ticket to itself) into client errors.
func invalidIfPlain(err error) error {
	if errors.Is(err, ticketstore.ErrNotFound) || errors.Is(err, ticketstore.ErrAmbiguousID) || errors.Is(err, ticketstore.ErrIO) {
		return err
	}
	return invalid("%v", err)
}
