// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config resolves tkr's configuration.
//
// Values come from four layers, lowest precedence first: built-in
// defaults ([Default]), one config file, environment variables
// (TICKETS_DIR, REPO_ROOT, TICKET_PROJECT, TICKET_CATEGORY), and
// command-line flags applied by the caller. Config files are YAML, or
// JSON with comments when named *.json or *.jsonc.
//
// The result is turned into an explicit ticketstore.Config once, by the
// command layer. Nothing below the command layer reads the environment
// or the working directory.
package config
