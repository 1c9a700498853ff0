// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Splice draws overlay over view with its top-left corner at column
// x, row y. Cells of view left and right of the overlay keep their
// styling; rows outside the view are dropped.
func Splice(view string, overlay []string, x, y int) string {
	if len(overlay) == 0 {
		return view
	}
	rows := strings.Split(view, "\n")
	for offset, overlayRow := range overlay {
		row := y + offset
		if row < 0 || row >= len(rows) {
			continue
		}
		original := rows[row]
		var spliced strings.Builder
		if x > 0 {
			left := ansi.Truncate(original, x, "")
			spliced.WriteString(left)
			if gap := x - ansi.StringWidth(left); gap > 0 {
				spliced.WriteString(strings.Repeat(" ", gap))
			}
		}
		// Reset so styling from the left part does not bleed in, and
		// the overlay's styling does not bleed out.
		spliced.WriteString("\x1b[0m")
		spliced.WriteString(overlayRow)
		spliced.WriteString("\x1b[0m")
		if end := x + ansi.StringWidth(overlayRow); end < ansi.StringWidth(original) {
			spliced.WriteString(ansi.TruncateLeft(original, end, ""))
		}
		rows[row] = spliced.String()
	}
	return strings.Join(rows, "\n")
}

// Center returns the top-left corner that centers a block of the given
// size on a screen, clamped to the screen origin.
func Center(screenWidth, screenHeight, width, height int) (int, int) {
	return max((screenWidth-width)/2, 0), max((screenHeight-height)/2, 0)
}

// BlockWidth is the widest row of a rendered block.
func BlockWidth(rows []string) int {
	width := 0
	for _, row := range rows {
		width = max(width, ansi.StringWidth(row))
	}
	return width
}
