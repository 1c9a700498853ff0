// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/tkr/lib/schema/ticket"
)

// Theme is the viewer's palette. Colors are ANSI 256 codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// PriorityColors is indexed by priority, 0 most urgent.
	PriorityColors [ticket.MaxPriority + 1]lipgloss.Color

	// StatusColors has one entry per status; statuses missing from
	// the map render in FaintText.
	StatusColors map[ticket.Status]lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
	ErrorText        lipgloss.Color

	// MatchBackground tints characters matched by the list filter.
	MatchBackground lipgloss.Color

	// OverlayBackground fills menus and the editor.
	OverlayBackground lipgloss.Color
}

// PriorityColor returns the color for a priority. Out-of-range values
// get NormalText.
func (theme Theme) PriorityColor(priority int) lipgloss.Color {
	if priority < 0 || priority >= len(theme.PriorityColors) {
		return theme.NormalText
	}
	return theme.PriorityColors[priority]
}

// StatusColor returns the color for a status.
func (theme Theme) StatusColor(status ticket.Status) lipgloss.Color {
	if color, ok := theme.StatusColors[status]; ok {
		return color
	}
	return theme.FaintText
}

// DefaultTheme suits a dark 256-color terminal.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	PriorityColors: [ticket.MaxPriority + 1]lipgloss.Color{
		lipgloss.Color("196"), // P0: bright red
		lipgloss.Color("208"), // P1: orange
		lipgloss.Color("75"),  // P2: blue
		lipgloss.Color("245"), // P3: gray
		lipgloss.Color("240"), // P4: dim gray
	},

	StatusColors: map[ticket.Status]lipgloss.Color{
		ticket.StatusOpen:       lipgloss.Color("114"),
		ticket.StatusReady:      lipgloss.Color("80"),
		ticket.StatusInProgress: lipgloss.Color("220"),
		ticket.StatusBlocked:    lipgloss.Color("196"),
		ticket.StatusIcebox:     lipgloss.Color("111"),
		ticket.StatusClosed:     lipgloss.Color("245"),
		ticket.StatusArchive:    lipgloss.Color("240"),
	},

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
	ErrorText:        lipgloss.Color("203"),

	MatchBackground:   lipgloss.Color("58"),
	OverlayBackground: lipgloss.Color("237"),
}
