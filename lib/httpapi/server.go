// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bureau-foundation/tkr/lib/clock"
	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/ticketindex"
	"github.com/bureau-foundation/tkr/lib/ticketstore"
	"github.com/bureau-foundation/tkr/lib/ticketwatch"
)

// shutdownTimeout bounds how long Serve waits for in-flight requests
// after its context is cancelled.
const shutdownTimeout = 5 * time.Second

// Config configures a Server.
type Config struct {
	Store *ticketstore.Store

	// DefaultAssignee is used for tickets created without one.
	DefaultAssignee string

	// StaticDir, when set, is served for every path outside /api and
	// /health.
	StaticDir string

	// Clock times requests for the access log. Nil uses the real
	// clock.
	Clock clock.Clock

	// Logger receives the access log and errors. Nil discards them.
	Logger *slog.Logger
}

// Server is the HTTP façade over one store.
type Server struct {
	store           *ticketstore.Store
	defaultAssignee string
	staticDir       string
	clock           clock.Clock
	logger          *slog.Logger

	// mu serializes all store access and guards cache.
	mu sync.Mutex
	// cache is built from a full listing on first use and dropped by
	// every write and every watcher batch.
	cache *listing
}

// listing is one full store listing in List order, plus the index
// built from it.
type listing struct {
	tickets []ticket.Ticket
	index   *ticketindex.Index
}

// New returns a Server for config.Store.
func New(config Config) (*Server, error) {
	if config.Store == nil {
		return nil, errors.New("httpapi: store is required")
	}
	server := &Server{
		store:           config.Store,
		defaultAssignee: config.DefaultAssignee,
		staticDir:       config.StaticDir,
		clock:           config.Clock,
		logger:          config.Logger,
	}
	if server.clock == nil {
		server.clock = clock.Real()
	}
	if server.logger == nil {
		server.logger = slog.New(slog.DiscardHandler)
	}
	return server, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(accessLog(s.logger, s.clock))
	r.Use(recovery(s.logger))

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.stats)
		r.Route("/tickets", func(r chi.Router) {
			r.Get("/", s.listTickets)
			r.Post("/", s.createTicket)
			r.Get("/{id}", s.getTicket)
			r.Put("/{id}", s.updateTicket)
			r.Get("/{id}/tree", s.ticketTree)
			r.Post("/{id}/notes", s.addNote)
			r.Post("/{id}/deps/{dep}", s.addDependency)
			r.Delete("/{id}/deps/{dep}", s.removeDependency)
			r.Post("/{id}/links/{other}", s.link)
			r.Delete("/{id}/links/{other}", s.unlink)
		})
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, r, http.StatusNotFound, "no such endpoint")
		})
	})

	if s.staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.staticDir)))
	}
	return r
}

// Invalidate drops the cached ticket list.
func (s *Server) Invalidate() {
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
}

// Follow invalidates the cache for every batch received until events
// is closed or ctx is done.
func (s *Server) Follow(ctx context.Context, events <-chan ticketwatch.Batch) {
	for {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-events:
			if !ok {
				return
			}
			s.logger.Debug("tickets changed on disk", "paths", len(batch.Paths))
			s.Invalidate()
		}
	}
}

// Serve listens on address until ctx is cancelled, then shuts down
// gracefully. ready, when non-nil, receives the bound address once
// the listener is open.
func (s *Server) Serve(ctx context.Context, address string, ready func(net.Addr)) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", address, err)
	}
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if ready != nil {
		ready(listener.Addr())
	}

	errs := make(chan error, 1)
	go func() { errs <- server.Serve(listener) }()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}
	shutdownContext, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownContext); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// listingLocked returns the cached listing, reading the store when
// needed. The caller holds s.mu.
func (s *Server) listingLocked() (*listing, error) {
	if s.cache != nil {
		return s.cache, nil
	}
	tickets, err := s.store.List()
	if err != nil {
		return nil, err
	}
	s.cache = &listing{tickets: tickets, index: ticketindex.Build(tickets)}
	return s.cache, nil
}

// changedLocked records a write. The caller holds s.mu.
func (s *Server) changedLocked(updated ...ticket.Ticket) {
	s.cache = nil
	for i := range updated {
		s.logger.Info("ticket updated over http", "id", updated[i].ID, "status", updated[i].Status)
	}
}
