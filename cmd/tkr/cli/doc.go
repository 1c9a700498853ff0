// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework for tkr.
//
// A [Command] is a named node with an optional [pflag.FlagSet]
// factory, nested [Command.Subcommands], and a Run function.
// [Command.Execute] routes positional arguments to subcommands
// (matching names and aliases), parses flags, builds the command
// logger, and calls Run. Unknown subcommands and flags get a
// did-you-mean suggestion by edit distance.
//
// Flags are usually declared as tagged struct fields and bound with
// [FlagsFromParams]; embedding [JSONOutput] adds --json. Errors
// returned from Run can carry a category through [ToolError], which
// also picks the process exit status.
package cli
