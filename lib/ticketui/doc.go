// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ticketui is the terminal viewer behind "tkr tui". It is a
// bubbletea program with three tabs (all, ready, blocked), a ticket
// list on the left, and the selected ticket on the right with its
// description, design, and acceptance sections rendered as terminal
// markdown.
//
// The viewer reads through a [Store], normally a *ticketstore.Store,
// and rebuilds its [ticketindex.Index] on every load. A
// [ticketwatch.Watcher] feeding [Options.Changes] makes edits from
// other processes show up without pressing r.
//
// Keys: j/k and arrows move, tab and shift+tab switch tabs, / filters
// with fzf-style fuzzy matching, 1/2/3 set open/in_progress/closed, s
// opens a menu of every status, n adds a note, ctrl+d/ctrl+u scroll the
// detail pane, r reloads, q quits.
package ticketui
