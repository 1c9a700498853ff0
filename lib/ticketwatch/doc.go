// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ticketwatch reports changes to ticket documents on disk.
//
// A [Watcher] watches a set of directories (normally a store root and
// its status directories) with fsnotify and delivers debounced
// [Batch] values: every changed *.md path seen since the previous
// batch. A close cascade or an import rewrites many documents in quick
// succession; debouncing turns that into one reload for the viewer and
// one cache invalidation for the HTTP façade.
//
// Directories are watched, not files. Documents are replaced by rename
// (write to a temporary file, rename over the target), which creates a
// new inode that a file-level watch would miss.
package ticketwatch
