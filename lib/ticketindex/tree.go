// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketindex

import "github.com/bureau-foundation/tkr/lib/schema/ticket"

// Node is one ticket in a dependency tree. Children are the ticket's
// Deps in list order.
type Node struct {
	ID     string        `json:"id"`
	Title  string        `json:"title,omitempty"`
	Status ticket.Status `json:"status,omitempty"`

	// Missing is set when the id is not in the index. Missing nodes
	// have no title, status, or children.
	Missing bool `json:"missing,omitempty"`

	// Cycle is set when the id already appears on the path from the
	// root. The node is not expanded.
	Cycle bool `json:"cycle,omitempty"`

	// Repeated is set, outside full mode, when the ticket was already
	// expanded elsewhere in the tree. The node is not expanded again.
	Repeated bool `json:"repeated,omitempty"`

	Children []*Node `json:"children,omitempty"`
}

// Tree returns the dependency tree rooted at rootID. Without full,
// each ticket's subtree is expanded only at its first occurrence in
// depth-first order; with full, every occurrence is expanded. Cycles
// are cut in both modes.
func (idx *Index) Tree(rootID string, full bool) *Node {
	expanded := make(map[string]struct{})
	onPath := make(map[string]struct{})
	return idx.buildNode(rootID, full, expanded, onPath)
}

func (idx *Index) buildNode(ticketID string, full bool, expanded, onPath map[string]struct{}) *Node {
	node := &Node{ID: ticketID}
	entry, exists := idx.tickets[ticketID]
	if !exists {
		node.Missing = true
		return node
	}
	node.Title = entry.Title
	node.Status = entry.Status

	if _, cycle := onPath[ticketID]; cycle {
		node.Cycle = true
		return node
	}
	if _, seen := expanded[ticketID]; seen && !full {
		node.Repeated = len(entry.Deps) > 0
		return node
	}
	expanded[ticketID] = struct{}{}

	onPath[ticketID] = struct{}{}
	for _, depID := range entry.Deps {
		node.Children = append(node.Children, idx.buildNode(depID, full, expanded, onPath))
	}
	delete(onPath, ticketID)
	return node
}
