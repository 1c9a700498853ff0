// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticket

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Status is the lifecycle state of a ticket. The status also names the
// directory the ticket's document lives in, so the set is closed: the
// store never writes a value outside [AllStatuses].
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusClosed     Status = "closed"
	StatusBlocked    Status = "blocked"
	StatusReady      Status = "ready"
	StatusIcebox     Status = "icebox"
	StatusArchive    Status = "archive"
)

// AllStatuses lists every status in enumeration order. Directory scans
// (listing, resolution, reconciliation) walk the status directories in
// this order, which makes it the tie-breaker for otherwise equal
// results.
var AllStatuses = []Status{
	StatusOpen,
	StatusInProgress,
	StatusClosed,
	StatusBlocked,
	StatusReady,
	StatusIcebox,
	StatusArchive,
}

// ErrInvalidStatus is returned when a status string is not one of
// [AllStatuses].
var ErrInvalidStatus = errors.New("invalid status")

// ParseStatus validates a status string. Matching is exact: "Closed"
// is not "closed".
func ParseStatus(raw string) (Status, error) {
	status := Status(raw)
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q (valid statuses: %s)", ErrInvalidStatus, raw, statusList())
	}
	return status, nil
}

// Valid reports whether the status is a member of [AllStatuses].
func (s Status) Valid() bool {
	return slices.Contains(AllStatuses, s)
}

// Resolved reports whether a dependency in this status no longer
// holds anything up. Closed and archived work is done; everything
// else, including icebox, still counts as outstanding.
func (s Status) Resolved() bool {
	return s == StatusClosed || s == StatusArchive
}

func statusList() string {
	names := make([]string, len(AllStatuses))
	for i, status := range AllStatuses {
		names[i] = string(status)
	}
	return strings.Join(names, ", ")
}

const (
	// DefaultType is the classification given to tickets created
	// without an explicit type, and to legacy imports.
	DefaultType = "task"

	// Priorities run from MinPriority (most urgent) to MaxPriority.
	MinPriority = 0
	MaxPriority = 4

	// DefaultPriority is the mid value of the scale.
	DefaultPriority = 2
)

// NoteTimeLayout is the rendering of a note timestamp in the document
// body: "2026-01-02 15:04:05". Timestamps are always rendered in UTC.
const NoteTimeLayout = "2006-01-02 15:04:05"

// Ticket is a unit of work. Each ticket is persisted as one markdown
// document whose metadata block carries every field below; the
// document's directory carries the status a second time, and the two
// must agree.
//
// Optional string fields use the empty string for "not set". They are
// omitted from the metadata block entirely rather than written as
// empty values.
type Ticket struct {
	// ID is unique within a store and never changes.
	ID string `yaml:"id" json:"id"`

	// Title is a short summary. Required.
	Title string `yaml:"title" json:"title"`

	// Status selects the directory the document lives in.
	Status Status `yaml:"status" json:"status"`

	// Deps lists ticket IDs this ticket depends on, in insertion
	// order without duplicates. Edges are stored only on the
	// dependent side; there is no persisted reverse index.
	Deps []string `yaml:"deps" json:"deps"`

	// Links lists ticket IDs related to this one. The relation is
	// symmetric: linking A to B records each on the other.
	Links []string `yaml:"links" json:"links"`

	// Created is set once when the ticket is created.
	Created time.Time `yaml:"created" json:"created"`

	// Type is a free-form classification: task, bug, feature, epic,
	// chore, and so on.
	Type string `yaml:"type" json:"type"`

	// Priority is 0-4, 0 being most urgent.
	Priority int `yaml:"priority" json:"priority"`

	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Design      string `yaml:"design,omitempty" json:"design,omitempty"`
	Acceptance  string `yaml:"acceptance,omitempty" json:"acceptance,omitempty"`
	Assignee    string `yaml:"assignee,omitempty" json:"assignee,omitempty"`
	ExternalRef string `yaml:"external_ref,omitempty" json:"external_ref,omitempty"`
	Parent      string `yaml:"parent,omitempty" json:"parent,omitempty"`
	Project     string `yaml:"project,omitempty" json:"project,omitempty"`
	Category    string `yaml:"category,omitempty" json:"category,omitempty"`

	// Notes is an append-only log of timestamped annotations.
	Notes []Note `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// Note is a timestamped annotation on a ticket.
type Note struct {
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	Content   string    `yaml:"content" json:"content"`
}

// Validate checks the fields the store relies on. It does not check
// that Deps, Links, or Parent refer to existing tickets: references
// are by value and may dangle.
func (t *Ticket) Validate() error {
	if t.ID == "" {
		return errors.New("ticket: id is required")
	}
	if strings.ContainsAny(t.ID, `/\`) {
		return fmt.Errorf("ticket: id %q must not contain path separators", t.ID)
	}
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("ticket: title is required")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("ticket: %w: %q", ErrInvalidStatus, t.Status)
	}
	if t.Created.IsZero() {
		return errors.New("ticket: created is required")
	}
	for i := range t.Notes {
		if t.Notes[i].Timestamp.IsZero() {
			return fmt.Errorf("ticket: notes[%d]: timestamp is required", i)
		}
	}
	return nil
}

// Clone returns a deep copy. Slice fields get their own backing arrays
// so that mutating the copy never aliases into the original.
func (t Ticket) Clone() Ticket {
	t.Deps = slices.Clone(t.Deps)
	t.Links = slices.Clone(t.Links)
	t.Notes = slices.Clone(t.Notes)
	return t
}

// HasDep reports whether id is among the ticket's dependencies.
func (t *Ticket) HasDep(id string) bool {
	return slices.Contains(t.Deps, id)
}

// AddDep appends id to Deps unless it is already present. Returns
// whether the list changed.
func (t *Ticket) AddDep(id string) bool {
	if t.HasDep(id) {
		return false
	}
	t.Deps = append(t.Deps, id)
	return true
}

// RemoveDep removes the first occurrence of id from Deps. Returns
// whether it was present.
func (t *Ticket) RemoveDep(id string) bool {
	index := slices.Index(t.Deps, id)
	if index < 0 {
		return false
	}
	t.Deps = slices.Delete(t.Deps, index, index+1)
	return true
}

// AddLink records id in Links unless already present.
func (t *Ticket) AddLink(id string) bool {
	if slices.Contains(t.Links, id) {
		return false
	}
	t.Links = append(t.Links, id)
	return true
}

// RemoveLink removes id from Links.
func (t *Ticket) RemoveLink(id string) bool {
	index := slices.Index(t.Links, id)
	if index < 0 {
		return false
	}
	t.Links = slices.Delete(t.Links, index, index+1)
	return true
}

// Normalize replaces nil Deps and Links with empty slices so a
// freshly created ticket and a decoded one compare equal.
func (t *Ticket) Normalize() {
	if t.Deps == nil {
		t.Deps = []string{}
	}
	if t.Links == nil {
		t.Links = []string{}
	}
}

// CreateOptions are the caller-supplied fields for a new ticket. The
// status is not among them: new tickets always start open.
type CreateOptions struct {
	Type        string
	Priority    int
	Description string
	Design      string
	Acceptance  string
	Assignee    string
	ExternalRef string
	Parent      string
}

// DefaultCreateOptions returns options with the default type and
// priority filled in.
func DefaultCreateOptions() CreateOptions {
	return CreateOptions{Type: DefaultType, Priority: DefaultPriority}
}
