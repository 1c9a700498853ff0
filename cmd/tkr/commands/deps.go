// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/tkr/cmd/tkr/cli"
)

type graphParams struct {
	globalFlags
	cli.JSONOutput
}

// edgeResult is the --json form of dep, undep, link and unlink.
type edgeResult struct {
	Tickets []string `json:"tickets"`
	Changed bool     `json:"changed"`
}

func depCommand(env *environment) *cli.Command {
	var params graphParams

	return &cli.Command{
		Name:    "dep",
		Summary: "Make a ticket depend on another",
		Description: `Add <dep-id> to the dependencies of <id>. The dependency is stored
as given; it need not exist yet. When <dep-id> is closed, <id> moves
from blocked to ready.`,
		Usage:  "tkr dep <id> <dep-id> [flags]",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, 2, 2, "a ticket id and a dependency id\n\nUsage: tkr dep <id> <dep-id>"); err != nil {
				return err
			}
			store, _, err := env.openStore(params.globalFlags, logger)
			if err != nil {
				return err
			}
			id, depID := args[0], args[1]
			added, err := store.AddDependency(id, depID)
			if err != nil {
				return storeError(err)
			}
			if exists, err := store.Exists(depID); err == nil && !exists {
				logger.Warn("dependency does not exist", "dep", depID)
			}

			if done, err := params.EmitJSON(env.stdout, edgeResult{Tickets: []string{id, depID}, Changed: added}); done {
				return err
			}
			if added {
				fmt.Fprintf(env.stdout, "Added dependency: %s -> %s\n", id, depID)
			} else {
				fmt.Fprintf(env.stdout, "Dependency already exists: %s -> %s\n", id, depID)
			}
			return nil
		},
	}
}

func undepCommand(env *environment) *cli.Command {
	var params graphParams

	return &cli.Command{
		Name:    "undep",
		Summary: "Remove a dependency",
		Usage:   "tkr undep <id> <dep-id> [flags]",
		Params:  func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, 2, 2, "a ticket id and a dependency id\n\nUsage: tkr undep <id> <dep-id>"); err != nil {
				return err
			}
			store, _, err := env.openStore(params.globalFlags, logger)
			if err != nil {
				return err
			}
			id, depID := args[0], args[1]
			removed, err := store.RemoveDependency(id, depID)
			if err != nil {
				return storeError(err)
			}

			if done, err := params.EmitJSON(env.stdout, edgeResult{Tickets: []string{id, depID}, Changed: removed}); done {
				return err
			}
			if removed {
				fmt.Fprintf(env.stdout, "Removed dependency: %s -> %s\n", id, depID)
			} else {
				fmt.Fprintf(env.stdout, "Dependency not found: %s -> %s\n", id, depID)
			}
			return nil
		},
	}
}

type depTreeParams struct {
	globalFlags
	cli.JSONOutput
	Full bool `flag:"full" desc:"expand every occurrence of a ticket, not just the first"`
}

func depTreeCommand(env *environment) *cli.Command {
	var params depTreeParams

	return &cli.Command{
		Name:    "dep-tree",
		Summary: "Show a ticket's dependency tree",
		Description: `Print the tickets <id> depends on, recursively. A ticket reached a
second time is shown once and marked "(see above)" unless --full is
given. Cycles are cut and marked "(cycle)"; dependencies with no
document are marked "(missing)".`,
		Usage:  "tkr dep-tree <id> [flags]",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, 1, 1, "one ticket id\n\nUsage: tkr dep-tree <id>"); err != nil {
				return err
			}
			store, _, err := env.openStore(params.globalFlags, logger)
			if err != nil {
				return err
			}
			root, err := store.Load(args[0])
			if err != nil {
				return storeError(err)
			}
			_, index, err := listing(store)
			if err != nil {
				return err
			}
			tree := index.Tree(root.ID, params.Full)

			if done, err := params.EmitJSON(env.stdout, tree); done {
				return err
			}
			writeTree(env.stdout, tree)
			return nil
		},
	}
}

func linkCommand(env *environment) *cli.Command {
	var params graphParams

	return &cli.Command{
		Name:    "link",
		Summary: "Link related tickets",
		Description: `Relate every pair of the given tickets. Links are symmetric and
carry no ordering: each ticket lists all the others.`,
		Usage:  "tkr link <id> <id>... [flags]",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, 2, -1, "at least two ticket ids\n\nUsage: tkr link <id> <id>..."); err != nil {
				return err
			}
			store, _, err := env.openStore(params.globalFlags, logger)
			if err != nil {
				return err
			}
			changed, err := store.Link(args...)
			if err != nil {
				return storeError(err)
			}

			if done, err := params.EmitJSON(env.stdout, edgeResult{Tickets: args, Changed: changed > 0}); done {
				return err
			}
			if changed == 0 {
				fmt.Fprintln(env.stdout, "Tickets are already linked")
				return nil
			}
			fmt.Fprintf(env.stdout, "Linked %d tickets (%d updated)\n", len(args), changed)
			return nil
		},
	}
}

func unlinkCommand(env *environment) *cli.Command {
	var params graphParams

	return &cli.Command{
		Name:    "unlink",
		Summary: "Remove the link between two tickets",
		Usage:   "tkr unlink <id> <target-id> [flags]",
		Params:  func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, 2, 2, "two ticket ids\n\nUsage: tkr unlink <id> <target-id>"); err != nil {
				return err
			}
			store, _, err := env.openStore(params.globalFlags, logger)
			if err != nil {
				return err
			}
			removed, err := store.Unlink(args[0], args[1])
			if err != nil {
				return storeError(err)
			}

			if done, err := params.EmitJSON(env.stdout, edgeResult{Tickets: args, Changed: removed}); done {
				return err
			}
			if removed {
				fmt.Fprintf(env.stdout, "Unlinked %s and %s\n", args[0], args[1])
			} else {
				fmt.Fprintf(env.stdout, "%s and %s are not linked\n", args[0], args[1])
			}
			return nil
		},
	}
}
