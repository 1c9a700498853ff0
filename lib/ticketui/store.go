// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketui

import (
	"sync"

	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/ticketstore"
)

// Store is what the viewer needs from a ticket store.
type Store interface {
	List() ([]ticket.Ticket, error)
	Transition(idOrPrefix string, status ticket.Status) (ticketstore.Change, error)
	AppendNote(idOrPrefix, text string) (ticket.Note, error)
}

// lockedStore serializes calls: bubbletea runs commands on their own
// goroutines and a ticketstore.Store is not safe for concurrent use.
type lockedStore struct {
	mu    *sync.Mutex
	inner Store
}

func (store lockedStore) List() ([]ticket.Ticket, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.inner.List()
}

func (store lockedStore) Transition(idOrPrefix string, status ticket.Status) (ticketstore.Change, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.inner.Transition(idOrPrefix, status)
}

func (store lockedStore) AppendNote(idOrPrefix, text string) (ticket.Note, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.inner.AppendNote(idOrPrefix, text)
}
