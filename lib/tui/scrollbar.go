// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Scrollbar renders a one-column bar of height rows for a window of
// visible lines starting at offset within total lines. When everything
// fits the thumb fills the bar.
func Scrollbar(theme Theme, height, total, visible, offset int) string {
	if height <= 0 {
		return ""
	}
	track := lipgloss.NewStyle().Foreground(theme.BorderColor).Render("│")
	thumb := lipgloss.NewStyle().Foreground(theme.FaintText).Render("┃")

	thumbStart, thumbSize := 0, height
	if total > visible && total > 0 {
		thumbSize = max(height*visible/total, 1)
		if scrollable := total - visible; scrollable > 0 {
			thumbStart = offset * (height - thumbSize) / scrollable
		}
		thumbStart = min(max(thumbStart, 0), height-thumbSize)
	}

	rows := make([]string, height)
	for row := range rows {
		if row >= thumbStart && row < thumbStart+thumbSize {
			rows[row] = thumb
		} else {
			rows[row] = track
		}
	}
	return strings.Join(rows, "\n")
}
