// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketindex

import (
	"cmp"
	"slices"

	"github.com/bureau-foundation/tkr/lib/schema/ticket"
)

// Filter selects tickets for [Index.List]. Zero-value fields do not
// filter; all set fields must match.
type Filter struct {
	Status   ticket.Status
	Type     string
	Project  string
	Category string
	Assignee string
	Parent   string

	// Priority is a pointer so that "no filter" differs from
	// "priority 0".
	Priority *int
}

// Matches reports whether entry satisfies every set field.
func (f Filter) Matches(entry ticket.Ticket) bool {
	return matchesFilter(&entry, &f)
}

// Stats holds aggregate counts over the indexed tickets.
type Stats struct {
	Total      int                   `json:"total"`
	ByStatus   map[ticket.Status]int `json:"by_status"`
	ByType     map[string]int        `json:"by_type"`
	ByPriority map[int]int           `json:"by_priority"`
}

// Index holds tickets keyed by id plus secondary indexes for status,
// parentage, and both directions of the dependency graph.
type Index struct {
	tickets map[string]ticket.Ticket

	// sequence records the order tickets were first Put. Results
	// that have no other ordering (Dependents, Children) come back in
	// this order, which for an index built from a store listing is
	// the listing order.
	sequence map[string]int
	next     int

	byStatus map[string]map[string]struct{}
	children map[string]map[string]struct{}

	// dependsOn: ticket id → ids it lists in Deps (forward edges).
	// dependents: ticket id → ids that list it in Deps (reverse edges).
	// Either side may name ids that are not in the index.
	dependsOn  map[string]map[string]struct{}
	dependents map[string]map[string]struct{}

	ranking *bm25Index
}

// New returns an empty index.
func New() *Index {
	return &Index{
		tickets:    make(map[string]ticket.Ticket),
		sequence:   make(map[string]int),
		byStatus:   make(map[string]map[string]struct{}),
		children:   make(map[string]map[string]struct{}),
		dependsOn:  make(map[string]map[string]struct{}),
		dependents: make(map[string]map[string]struct{}),
	}
}

// Build returns an index over tickets, inserted in slice order. When
// the same id appears twice the later entry wins.
func Build(tickets []ticket.Ticket) *Index {
	idx := New()
	for i := range tickets {
		idx.Put(tickets[i])
	}
	return idx
}

// Len returns the number of indexed tickets.
func (idx *Index) Len() int {
	return len(idx.tickets)
}

// Put adds or replaces a ticket. The stored copy does not share slice
// backing arrays with the argument.
func (idx *Index) Put(entry ticket.Ticket) {
	if old, exists := idx.tickets[entry.ID]; exists {
		idx.updateIndexes(&old, removeFromSet)
	} else {
		idx.sequence[entry.ID] = idx.next
		idx.next++
	}
	entry = entry.Clone()
	idx.tickets[entry.ID] = entry
	idx.updateIndexes(&entry, addToSet)
	idx.ranking = nil
}

// Remove drops a ticket and its outgoing edges. Incoming edges from
// other tickets remain: they still list the id in their Deps.
func (idx *Index) Remove(ticketID string) {
	old, exists := idx.tickets[ticketID]
	if !exists {
		return
	}
	idx.updateIndexes(&old, removeFromSet)
	delete(idx.tickets, ticketID)
	delete(idx.sequence, ticketID)
	idx.ranking = nil
}

// Get returns the ticket with the given id.
func (idx *Index) Get(ticketID string) (ticket.Ticket, bool) {
	entry, exists := idx.tickets[ticketID]
	return entry, exists
}

// IsReady reports whether the ticket can be picked up: status ready,
// or open with every dependency resolved.
func (idx *Index) IsReady(ticketID string) bool {
	entry, exists := idx.tickets[ticketID]
	if !exists {
		return false
	}
	switch entry.Status {
	case ticket.StatusReady:
		return true
	case ticket.StatusOpen:
		return len(idx.Unresolved(ticketID)) == 0
	}
	return false
}

// IsBlocked reports whether the ticket is waiting on other work:
// status blocked, or open with an unresolved dependency.
func (idx *Index) IsBlocked(ticketID string) bool {
	entry, exists := idx.tickets[ticketID]
	if !exists {
		return false
	}
	switch entry.Status {
	case ticket.StatusBlocked:
		return true
	case ticket.StatusOpen:
		return len(idx.Unresolved(ticketID)) > 0
	}
	return false
}

// Unresolved returns the ticket's dependencies that still hold it up,
// in Deps order: those missing from the index and those whose status
// is neither closed nor archive.
func (idx *Index) Unresolved(ticketID string) []string {
	entry, exists := idx.tickets[ticketID]
	if !exists {
		return nil
	}
	var unresolved []string
	for _, depID := range entry.Deps {
		dependency, exists := idx.tickets[depID]
		if !exists || !dependency.Status.Resolved() {
			unresolved = append(unresolved, depID)
		}
	}
	return unresolved
}

// Ready returns every ticket for which [Index.IsReady] holds, most
// urgent first.
func (idx *Index) Ready() []ticket.Ticket {
	return idx.collect(idx.IsReady)
}

// Blocked returns every ticket for which [Index.IsBlocked] holds,
// most urgent first.
func (idx *Index) Blocked() []ticket.Ticket {
	return idx.collect(idx.IsBlocked)
}

// List returns the tickets matching filter, most urgent first.
func (idx *Index) List(filter Filter) []ticket.Ticket {
	if filter.Status != "" {
		result := make([]ticket.Ticket, 0, len(idx.byStatus[string(filter.Status)]))
		for ticketID := range idx.byStatus[string(filter.Status)] {
			entry := idx.tickets[ticketID]
			if matchesFilter(&entry, &filter) {
				result = append(result, entry)
			}
		}
		idx.sortByUrgency(result)
		return result
	}
	return idx.collect(func(ticketID string) bool {
		entry := idx.tickets[ticketID]
		return matchesFilter(&entry, &filter)
	})
}

// Dependents returns the ids of indexed tickets whose Deps contain
// ticketID, in insertion order. ticketID itself need not be indexed.
func (idx *Index) Dependents(ticketID string) []string {
	return idx.ordered(idx.dependents[ticketID])
}

// Children returns the ids of indexed tickets whose Parent is
// parentID, in insertion order.
func (idx *Index) Children(parentID string) []string {
	return idx.ordered(idx.children[parentID])
}

// Deps returns every id ticketID transitively depends on, sorted. The
// starting ticket is not included even when a cycle leads back to it.
func (idx *Index) Deps(ticketID string) []string {
	visited := map[string]struct{}{ticketID: {}}
	queue := []string{ticketID}
	var deps []string
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for depID := range idx.dependsOn[current] {
			if _, seen := visited[depID]; seen {
				continue
			}
			visited[depID] = struct{}{}
			queue = append(queue, depID)
			deps = append(deps, depID)
		}
	}
	slices.Sort(deps)
	return deps
}

// WouldCycle reports whether adding the proposed dependencies to
// ticketID would close a cycle. The store does not refuse cyclic
// edges; callers use this to warn.
func (idx *Index) WouldCycle(ticketID string, proposed ...string) bool {
	for _, depID := range proposed {
		if depID == ticketID || idx.canReach(depID, ticketID) {
			return true
		}
	}
	return false
}

// Stats returns counts by status, type, and priority.
func (idx *Index) Stats() Stats {
	stats := Stats{
		Total:      len(idx.tickets),
		ByStatus:   make(map[ticket.Status]int),
		ByType:     make(map[string]int),
		ByPriority: make(map[int]int),
	}
	for _, entry := range idx.tickets {
		stats.ByStatus[entry.Status]++
		stats.ByType[entry.Type]++
		stats.ByPriority[entry.Priority]++
	}
	return stats
}

func (idx *Index) updateIndexes(entry *ticket.Ticket, op func(map[string]map[string]struct{}, string, string)) {
	op(idx.byStatus, string(entry.Status), entry.ID)
	if entry.Parent != "" {
		op(idx.children, entry.Parent, entry.ID)
	}
	for _, depID := range entry.Deps {
		op(idx.dependsOn, entry.ID, depID)
		op(idx.dependents, depID, entry.ID)
	}
}

func (idx *Index) canReach(from, target string) bool {
	visited := map[string]struct{}{from: {}}
	queue := []string{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for depID := range idx.dependsOn[current] {
			if depID == target {
				return true
			}
			if _, seen := visited[depID]; !seen {
				visited[depID] = struct{}{}
				queue = append(queue, depID)
			}
		}
	}
	return false
}

func (idx *Index) collect(include func(ticketID string) bool) []ticket.Ticket {
	var result []ticket.Ticket
	for ticketID, entry := range idx.tickets {
		if include(ticketID) {
			result = append(result, entry)
		}
	}
	idx.sortByUrgency(result)
	return result
}

// sortByUrgency orders by priority ascending (0 first), then created
// ascending (oldest first), then insertion order.
func (idx *Index) sortByUrgency(entries []ticket.Ticket) {
	slices.SortFunc(entries, func(a, b ticket.Ticket) int {
		if order := cmp.Compare(a.Priority, b.Priority); order != 0 {
			return order
		}
		if order := a.Created.Compare(b.Created); order != 0 {
			return order
		}
		return cmp.Compare(idx.sequence[a.ID], idx.sequence[b.ID])
	})
}

// ordered returns the members of set that are indexed tickets, in
// insertion order.
func (idx *Index) ordered(set map[string]struct{}) []string {
	result := make([]string, 0, len(set))
	for ticketID := range set {
		if _, exists := idx.tickets[ticketID]; exists {
			result = append(result, ticketID)
		}
	}
	slices.SortFunc(result, func(a, b string) int {
		return cmp.Compare(idx.sequence[a], idx.sequence[b])
	})
	return result
}

func matchesFilter(entry *ticket.Ticket, filter *Filter) bool {
	if filter.Status != "" && entry.Status != filter.Status {
		return false
	}
	if filter.Type != "" && entry.Type != filter.Type {
		return false
	}
	if filter.Project != "" && entry.Project != filter.Project {
		return false
	}
	if filter.Category != "" && entry.Category != filter.Category {
		return false
	}
	if filter.Assignee != "" && entry.Assignee != filter.Assignee {
		return false
	}
	if filter.Parent != "" && entry.Parent != filter.Parent {
		return false
	}
	if filter.Priority != nil && entry.Priority != *filter.Priority {
		return false
	}
	return true
}

func addToSet(index map[string]map[string]struct{}, key, value string) {
	set, exists := index[key]
	if !exists {
		set = make(map[string]struct{})
		index[key] = set
	}
	set[value] = struct{}{}
}

func removeFromSet(index map[string]map[string]struct{}, key, value string) {
	set, exists := index[key]
	if !exists {
		return
	}
	delete(set, value)
	if len(set) == 0 {
		delete(index, key)
	}
}
