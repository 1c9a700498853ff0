// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/tkr/cmd/tkr/cli"
	"github.com/bureau-foundation/tkr/lib/schema/ticket"
)

type createParams struct {
	globalFlags
	cli.JSONOutput
	Description string   `flag:"description,d" desc:"description (Markdown)"`
	Design      string   `flag:"design" desc:"design notes (Markdown)"`
	Acceptance  string   `flag:"acceptance" desc:"acceptance criteria (Markdown)"`
	Type        string   `flag:"type,t" default:"task" desc:"ticket type (task, bug, feature, epic, chore)"`
	Priority    int      `flag:"priority,p" default:"2" desc:"priority, 0 (most urgent) to 4"`
	Assignee    string   `flag:"assignee,a" desc:"assignee"`
	ExternalRef string   `flag:"external-ref" desc:"reference in another tracker"`
	Parent      string   `flag:"parent" desc:"parent ticket id"`
	Deps        []string `flag:"dep" desc:"ticket ids this one depends on (repeatable)"`
}

func createCommand(env *environment) *cli.Command {
	var params createParams

	return &cli.Command{
		Name:    "create",
		Summary: "Create a ticket",
		Description: `Create an open ticket and print its id. The title is the remaining
arguments joined by spaces.

The id is derived from the directory holding the store (my-project
gives "mp-") plus a time- and random-based suffix.`,
		Usage: "tkr create <title> [flags]",
		Examples: []cli.Example{
			{
				Description: "Create a bug",
				Command:     "tkr create 'Login redirects to /home' -t bug -p 1",
			},
			{
				Description: "Create a task that waits on another",
				Command:     "tkr create 'Ship session storage' --dep mp-3a9c",
			},
		},
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return cli.Validation("a title is required\n\nUsage: tkr create <title> [flags]")
			}
			if err := checkPriority(params.Priority); err != nil {
				return err
			}

			store, _, err := env.openStore(params.globalFlags, logger)
			if err != nil {
				return err
			}
			created, err := store.Create(title, ticket.CreateOptions{
				Type:        params.Type,
				Priority:    params.Priority,
				Description: params.Description,
				Design:      params.Design,
				Acceptance:  params.Acceptance,
				Assignee:    params.Assignee,
				ExternalRef: params.ExternalRef,
				Parent:      params.Parent,
			})
			if err != nil {
				return storeError(err)
			}
			if len(params.Deps) > 0 {
				created, err = store.Update(created.ID, func(entry *ticket.Ticket) error {
					for _, dep := range params.Deps {
						entry.AddDep(strings.TrimSpace(dep))
					}
					return nil
				})
				if err != nil {
					return storeError(err)
				}
			}

			if done, err := params.EmitJSON(env.stdout, created); done {
				return err
			}
			fmt.Fprintln(env.stdout, created.ID)
			return nil
		},
	}
}
