// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import "path/filepath"

// TicketsDirNames are the directory names recognized as a store root,
// in preference order.
var TicketsDirNames = []string{".tickets", "tickets", ".ticket", "ticket"}

// FindTicketsDir locates the store root.
//
// With a repoRoot, the first of [TicketsDirNames] that exists directly
// under it wins. Without one, each directory from cwd up to the
// filesystem root is checked the same way and the first hit wins.
// When nothing exists the default is "<repoRoot or cwd>/.tickets",
// which the store creates on first write.
func FindTicketsDir(repoRoot, cwd string) string {
	if repoRoot != "" {
		if found := ticketsDirIn(repoRoot); found != "" {
			return found
		}
		return filepath.Join(repoRoot, TicketsDirNames[0])
	}

	current := filepath.Clean(cwd)
	for {
		if found := ticketsDirIn(current); found != "" {
			return found
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}
	return filepath.Join(cwd, TicketsDirNames[0])
}

// StoreRoot resolves the store root for c: TicketsDir when set
// (relative paths are taken from cwd), otherwise [FindTicketsDir].
func (c *Config) StoreRoot(cwd string) string {
	if c.TicketsDir != "" {
		if filepath.IsAbs(c.TicketsDir) {
			return c.TicketsDir
		}
		return filepath.Join(cwd, c.TicketsDir)
	}
	return FindTicketsDir(c.RepoRoot, cwd)
}

func ticketsDirIn(directory string) string {
	for _, name := range TicketsDirNames {
		candidate := filepath.Join(directory, name)
		if isDir(candidate) {
			return candidate
		}
	}
	return ""
}
