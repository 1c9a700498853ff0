// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the tkr command tree. Every command opens
// the ticket store the same way (see [environment.openStore]): config
// file, then environment, then the global flags, resolved once into a
// ticketstore.Config.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bureau-foundation/tkr/cmd/tkr/cli"
	"github.com/bureau-foundation/tkr/lib/clock"
	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/version"
)

// Options are the process inputs of the command tree. Zero values use
// the real process.
type Options struct {
	Stdin  io.Reader
	Stdout io.Writer

	// Getenv reads environment variables. Nil uses os.Getenv.
	Getenv func(string) string

	// WorkingDir anchors config and store discovery. Empty uses the
	// process working directory.
	WorkingDir string

	Clock clock.Clock

	// Editor opens path for interactive editing. Nil runs $VISUAL or
	// $EDITOR (falling back to vi) on the terminal.
	Editor func(ctx context.Context, path string) error
}

// Root returns the complete tkr command tree.
func Root(options Options) *cli.Command {
	env := newEnvironment(options)
	return &cli.Command{
		Name: "tkr",
		Description: `tkr: tickets as Markdown files, filed by status.

Each ticket is one document under <store>/<status>/<id>.md. The store
is found by walking up from the working directory to the first
.tickets, tickets, .ticket or ticket directory, or set with
--tickets-dir or $TICKETS_DIR.`,
		Subcommands: []*cli.Command{
			createCommand(env),
			transitionCommand(env, "start", ticket.StatusInProgress, "Set a ticket's status to in_progress"),
			transitionCommand(env, "close", ticket.StatusClosed, "Close a ticket and unblock its dependents"),
			transitionCommand(env, "reopen", ticket.StatusOpen, "Set a ticket's status to open"),
			statusCommand(env),
			depCommand(env),
			undepCommand(env),
			depTreeCommand(env),
			linkCommand(env),
			unlinkCommand(env),
			listCommand(env),
			readyCommand(env),
			blockedCommand(env),
			closedCommand(env),
			showCommand(env),
			editCommand(env),
			addNoteCommand(env),
			queryCommand(env),
			searchCommand(env),
			migrateCommand(env),
			reconcileCommand(env),
			exportCommand(env),
			webCommand(env),
			tuiCommand(env),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
					fmt.Fprintf(env.stdout, "tkr %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Create a ticket and start on it",
				Command:     "tkr create 'Fix login redirect' -p 1 -t bug && tkr start fl-3a9c",
			},
			{
				Description: "See what can be worked on now",
				Command:     "tkr ready",
			},
			{
				Description: "Make one ticket wait for another",
				Command:     "tkr dep fl-3a9c fl-1b2e",
			},
			{
				Description: "Browse tickets interactively",
				Command:     "tkr tui",
			},
		},
	}
}

func (options Options) withDefaults() Options {
	if options.Stdin == nil {
		options.Stdin = os.Stdin
	}
	if options.Stdout == nil {
		options.Stdout = os.Stdout
	}
	if options.Getenv == nil {
		options.Getenv = os.Getenv
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Editor == nil {
		options.Editor = runEditor(options.Getenv)
	}
	return options
}
