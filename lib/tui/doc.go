// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui holds the terminal building blocks the ticket viewer is
// assembled from: the color theme, fuzzy matching, a scrollbar, and
// two overlays (a pick-one menu and a multi-line text editor) that are
// spliced over an already rendered view.
//
// Nothing here knows about the bubbletea program loop beyond key
// messages; the owning model decides when an overlay is open and
// routes input to it.
package tui
