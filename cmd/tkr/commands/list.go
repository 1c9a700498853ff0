// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/bureau-foundation/tkr/cmd/tkr/cli"
	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/ticketindex"
	"github.com/bureau-foundation/tkr/lib/ticketstore"
)

type listParams struct {
	globalFlags
	cli.JSONOutput
	Status   string `flag:"status,s" desc:"only tickets with this status"`
	Type     string `flag:"type,t" desc:"only tickets of this type"`
	Assignee string `flag:"assignee,a" desc:"only tickets with this assignee"`
}

func listCommand(env *environment) *cli.Command {
	var params listParams

	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Summary: "List tickets",
		Description: `List tickets, newest first. All filters must match. --project and
--category filter here rather than naming what new tickets get.`,
		Usage: "tkr list [flags]",
		Examples: []cli.Example{
			{
				Description: "Open bugs",
				Command:     "tkr ls --status open --type bug",
			},
			{
				Description: "Everything in one project, as JSON",
				Command:     "tkr list --project api --json",
			},
		},
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, 0, 0, "no arguments"); err != nil {
				return err
			}
			filter := ticketindex.Filter{
				Type:     params.Type,
				Project:  params.Project,
				Category: params.Category,
				Assignee: params.Assignee,
			}
			if params.Status != "" {
				status, err := parseStatus(params.Status)
				if err != nil {
					return err
				}
				filter.Status = status
			}

			// The filters above are not the values stamped on new
			// tickets, so the store opens without them.
			storeFlags := params.globalFlags
			storeFlags.Project, storeFlags.Category = "", ""
			store, _, err := env.openStore(storeFlags, logger)
			if err != nil {
				return err
			}
			tickets, err := store.List()
			if err != nil {
				return storeError(err)
			}
			tickets = slices.DeleteFunc(tickets, func(entry ticket.Ticket) bool {
				return !filter.Matches(entry)
			})
			return env.writeTickets(params.JSONOutput, tickets, "No tickets found")
		},
	}
}

type viewParams struct {
	globalFlags
	cli.JSONOutput
}

func readyCommand(env *environment) *cli.Command {
	var params viewParams

	return &cli.Command{
		Name:    "ready",
		Summary: "List tickets that can be worked on now",
		Description: `List tickets with status ready, plus open tickets whose dependencies
are all closed or archived, most urgent first. A dependency with no
document counts as unresolved.`,
		Usage:  "tkr ready [flags]",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			store, _, err := env.openStore(params.globalFlags, logger)
			if err != nil {
				return err
			}
			_, index, err := listing(store)
			if err != nil {
				return err
			}
			return env.writeTickets(params.JSONOutput, index.Ready(), "No ready tickets found")
		},
	}
}

// blockedEntry is the --json form of a blocked ticket.
type blockedEntry struct {
	ticket.Ticket
	WaitingOn []string `json:"waiting_on"`
}

func blockedCommand(env *environment) *cli.Command {
	var params viewParams

	return &cli.Command{
		Name:    "blocked",
		Summary: "List tickets waiting on other tickets",
		Description: `List tickets with status blocked, plus open tickets with an
unresolved dependency, most urgent first, with the dependencies each
is waiting on.`,
		Usage:  "tkr blocked [flags]",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			store, _, err := env.openStore(params.globalFlags, logger)
			if err != nil {
				return err
			}
			_, index, err := listing(store)
			if err != nil {
				return err
			}
			blocked := index.Blocked()

			if params.OutputJSON {
				entries := make([]blockedEntry, len(blocked))
				for i := range blocked {
					waiting := index.Unresolved(blocked[i].ID)
					if waiting == nil {
						waiting = []string{}
					}
					entries[i] = blockedEntry{Ticket: blocked[i], WaitingOn: waiting}
				}
				return cli.WriteJSON(env.stdout, entries)
			}
			if len(blocked) == 0 {
				fmt.Fprintln(env.stdout, "No blocked tickets found")
				return nil
			}
			return writeBlockedTable(env.stdout, blocked, index)
		},
	}
}

type closedParams struct {
	globalFlags
	cli.JSONOutput
	Limit int `flag:"limit,n" default:"20" desc:"show at most this many (0 for all)"`
}

func closedCommand(env *environment) *cli.Command {
	var params closedParams

	return &cli.Command{
		Name:    "closed",
		Summary: "List recently closed tickets",
		Usage:   "tkr closed [flags]",
		Params:  func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if params.Limit < 0 {
				return cli.Validation("--limit must not be negative")
			}
			store, _, err := env.openStore(params.globalFlags, logger)
			if err != nil {
				return err
			}
			tickets, err := store.List()
			if err != nil {
				return storeError(err)
			}
			closed := slices.DeleteFunc(tickets, func(entry ticket.Ticket) bool {
				return entry.Status != ticket.StatusClosed
			})
			if params.Limit > 0 && len(closed) > params.Limit {
				closed = closed[:params.Limit]
			}
			return env.writeTickets(params.JSONOutput, closed, "No closed tickets found")
		},
	}
}

type searchParams struct {
	globalFlags
	cli.JSONOutput
	Rank  bool `flag:"rank" desc:"order by relevance (BM25 over title, body and notes)"`
	Limit int  `flag:"limit,n" default:"20" desc:"with --rank, show at most this many (0 for all)"`
}

func searchCommand(env *environment) *cli.Command {
	var params searchParams

	return &cli.Command{
		Name:    "search",
		Summary: "Find tickets by text",
		Description: `Without --rank, list tickets whose title, description or id contains
the query, ignoring case, newest first. With --rank, score every
ticket against the query's terms and list the best matches first.`,
		Usage:  "tkr search <query> [flags]",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return cli.Validation("a query is required\n\nUsage: tkr search <query>")
			}
			store, _, err := env.openStore(params.globalFlags, logger)
			if err != nil {
				return err
			}

			if !params.Rank {
				matches, err := store.Search(query)
				if err != nil {
					return storeError(err)
				}
				return env.writeTickets(params.JSONOutput, matches, "No matching tickets found")
			}

			_, index, err := listing(store)
			if err != nil {
				return err
			}
			results := index.Rank(query, params.Limit)
			if done, err := params.EmitJSON(env.stdout, results); done {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(env.stdout, "No matching tickets found")
				return nil
			}
			return writeRankedTable(env.stdout, results)
		},
	}
}

type queryParams struct {
	globalFlags
}

func queryCommand(env *environment) *cli.Command {
	var params queryParams

	return &cli.Command{
		Name:    "query",
		Summary: "Print tickets as JSON",
		Description: `Print matching tickets as a JSON array, newest first. Each argument
is a field=value filter and all must match. "." (or no argument)
matches everything.

Fields: id (prefix), status, type, priority, assignee, project,
category, parent, dep (has this dependency), link (has this link),
text (case-insensitive search over title, description and id).`,
		Usage: "tkr query [field=value...]",
		Examples: []cli.Example{
			{
				Description: "Urgent open work",
				Command:     "tkr query status=open priority=0",
			},
			{
				Description: "Everything waiting on one ticket",
				Command:     "tkr query dep=mp-3a9c | jq -r '.[].id'",
			},
		},
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			match, err := parseQuery(args)
			if err != nil {
				return err
			}
			store, _, err := env.openStore(params.globalFlags, logger)
			if err != nil {
				return err
			}
			tickets, err := store.List()
			if err != nil {
				return storeError(err)
			}
			tickets = slices.DeleteFunc(tickets, func(entry ticket.Ticket) bool { return !match(entry) })
			if tickets == nil {
				tickets = []ticket.Ticket{}
			}
			return cli.WriteJSON(env.stdout, tickets)
		},
	}
}

// parseQuery turns field=value arguments into one predicate.
func parseQuery(args []string) (func(ticket.Ticket) bool, error) {
	var filter ticketindex.Filter
	var extra []func(ticket.Ticket) bool
	for _, arg := range args {
		if arg == "." {
			continue
		}
		field, value, ok := strings.Cut(arg, "=")
		if !ok || value == "" {
			return nil, cli.Validation("filter %q is not field=value", arg)
		}
		switch field {
		case "status":
			status, err := parseStatus(value)
			if err != nil {
				return nil, err
			}
			filter.Status = status
		case "type":
			filter.Type = value
		case "assignee":
			filter.Assignee = value
		case "project":
			filter.Project = value
		case "category":
			filter.Category = value
		case "parent":
			filter.Parent = value
		case "priority":
			priority, err := strconv.Atoi(value)
			if err != nil {
				return nil, cli.Validation("priority %q is not a number", value)
			}
			filter.Priority = &priority
		case "id":
			extra = append(extra, func(entry ticket.Ticket) bool { return strings.HasPrefix(entry.ID, value) })
		case "dep":
			extra = append(extra, func(entry ticket.Ticket) bool { return slices.Contains(entry.Deps, value) })
		case "link":
			extra = append(extra, func(entry ticket.Ticket) bool { return slices.Contains(entry.Links, value) })
		case "text":
			extra = append(extra, func(entry ticket.Ticket) bool { return ticketstore.MatchesQuery(entry, value) })
		default:
			return nil, cli.Validation("unknown query field %q", field).
				WithHint("Fields: id, status, type, priority, assignee, project, category, parent, dep, link, text.")
		}
	}
	return func(entry ticket.Ticket) bool {
		if !filter.Matches(entry) {
			return false
		}
		for _, predicate := range extra {
			if !predicate(entry) {
				return false
			}
		}
		return true
	}, nil
}

// writeTickets writes tickets as JSON or as a table, or empty when
// there are none.
func (env *environment) writeTickets(output cli.JSONOutput, tickets []ticket.Ticket, empty string) error {
	if done, err := output.EmitJSON(env.stdout, tickets); done {
		return err
	}
	if len(tickets) == 0 {
		fmt.Fprintln(env.stdout, empty)
		return nil
	}
	return writeTicketTable(env.stdout, tickets)
}
