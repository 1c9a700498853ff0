// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the tkr binary.
//
// [Version], [GitCommit], [GitDirty] and [BuildTime] are injected with
// -ldflags -X at release time. Development builds fall back to the VCS
// stamp the Go toolchain embeds (see [runtime/debug.ReadBuildInfo]).
package version
