// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/tkr/cmd/tkr/cli"
	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/ticketstore"
)

type transitionParams struct {
	globalFlags
	cli.JSONOutput
}

// transitionResult is the --json form of a [ticketstore.Change].
type transitionResult struct {
	Ticket    ticket.Ticket `json:"ticket"`
	Previous  ticket.Status `json:"previous"`
	Changed   bool          `json:"changed"`
	Unblocked []string      `json:"unblocked"`
}

// transitionCommand builds start, close and reopen, which differ only
// in the target status.
func transitionCommand(env *environment, name string, status ticket.Status, summary string) *cli.Command {
	var params transitionParams

	return &cli.Command{
		Name:    name,
		Summary: summary,
		Usage:   fmt.Sprintf("tkr %s <id> [flags]", name),
		Params:  func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, 1, 1, fmt.Sprintf("one ticket id\n\nUsage: tkr %s <id>", name)); err != nil {
				return err
			}
			return env.transition(params, args[0], status, logger)
		},
	}
}

func statusCommand(env *environment) *cli.Command {
	var params transitionParams

	return &cli.Command{
		Name:    "status",
		Summary: "Set a ticket's status",
		Description: `Move a ticket to any status: open, in_progress, closed, blocked,
ready, icebox or archive. The document moves to the matching
directory. Closing a ticket moves every blocked ticket that depended
on it to ready.`,
		Usage:  "tkr status <id> <status> [flags]",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, 2, 2, "a ticket id and a status\n\nUsage: tkr status <id> <status>"); err != nil {
				return err
			}
			status, err := parseStatus(args[1])
			if err != nil {
				return err
			}
			return env.transition(params, args[0], status, logger)
		},
	}
}

func (env *environment) transition(params transitionParams, idOrPrefix string, status ticket.Status, logger *slog.Logger) error {
	store, _, err := env.openStore(params.globalFlags, logger)
	if err != nil {
		return err
	}
	change, err := store.Transition(idOrPrefix, status)
	if err != nil {
		return storeError(err)
	}

	if done, err := params.EmitJSON(env.stdout, newTransitionResult(change)); done {
		return err
	}
	if !change.Changed {
		fmt.Fprintf(env.stdout, "%s is already %s\n", change.Ticket.ID, change.Ticket.Status)
		return nil
	}
	fmt.Fprintf(env.stdout, "Updated %s -> %s\n", change.Ticket.ID, change.Ticket.Status)
	for _, unblocked := range change.Unblocked {
		fmt.Fprintf(env.stdout, "Unblocked %s (was waiting on %s)\n", unblocked, change.Ticket.ID)
	}
	return nil
}

func newTransitionResult(change ticketstore.Change) transitionResult {
	unblocked := change.Unblocked
	if unblocked == nil {
		unblocked = []string{}
	}
	return transitionResult{
		Ticket:    change.Ticket,
		Previous:  change.Previous,
		Changed:   change.Changed,
		Unblocked: unblocked,
	}
}
