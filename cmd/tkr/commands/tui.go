// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/tkr/cmd/tkr/cli"
	"github.com/bureau-foundation/tkr/lib/ticketui"
)

type tuiParams struct {
	globalFlags
}

func tuiCommand(env *environment) *cli.Command {
	var params tuiParams

	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"view"},
		Summary: "Browse and update tickets interactively",
		Description: `Open a full-screen ticket browser with All, Ready and Blocked tabs,
a filter, a rendered detail pane, status changes and notes. The view
reloads when ticket documents change on disk.

Keys:
  tab / shift+tab   next / previous tab
  j k g G           move the selection
  /                 filter (esc clears)
  1 2 3             open, start, close
  s                 choose any status from a menu
  n                 add a note (ctrl+d saves, esc cancels)
  ctrl+u ctrl+d     scroll the detail pane
  r                 reload
  q                 quit`,
		Usage:  "tkr tui [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, 0, 0, "no arguments\n\nUsage: tkr tui [flags]"); err != nil {
				return err
			}
			store, cfg, err := env.openStore(params.globalFlags, logger)
			if err != nil {
				return err
			}
			watcher, err := env.watchStore(store, cfg, logger)
			if err != nil {
				return err
			}
			defer watcher.Close()

			model, err := ticketui.New(ticketui.Options{
				Store:   store,
				Changes: watcher.Events(),
			})
			if err != nil {
				return cli.Internal("%w", err)
			}
			program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
			if _, err := program.Run(); err != nil {
				return cli.Internal("running viewer: %w", err)
			}
			return nil
		},
	}
}
