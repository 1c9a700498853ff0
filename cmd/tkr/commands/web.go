// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/bureau-foundation/tkr/cmd/tkr/cli"
	"github.com/bureau-foundation/tkr/lib/httpapi"
)

type webParams struct {
	globalFlags
	Host      string `flag:"host" desc:"listen host (default from config, else 127.0.0.1)"`
	Port      int    `flag:"port" desc:"listen port (default from config, else 8080)"`
	StaticDir string `flag:"static-dir" desc:"directory served at / for a board front end"`
	Assignee  string `flag:"assignee" desc:"assignee for tickets created without one"`
}

func webCommand(env *environment) *cli.Command {
	var params webParams

	return &cli.Command{
		Name:    "web",
		Summary: "Serve the ticket store over HTTP",
		Description: `Serve a JSON API over the store under /api, for a board front end or
scripts. Responses are CBOR when the request accepts
application/cbor. Changes made outside the server (the CLI, an editor,
git) are picked up through a filesystem watch.

Routes:
  GET    /health
  GET    /api/stats
  GET    /api/tickets          ?view=all|ready|blocked &status= &type=
                                &assignee= &project= &category= &q=
                                or ?rank=<query> &limit= for ranked search
  POST   /api/tickets
  GET    /api/tickets/{id}
  PUT    /api/tickets/{id}     If-Match: <etag> to guard against lost updates
  GET    /api/tickets/{id}/tree
  POST   /api/tickets/{id}/notes
  POST   /api/tickets/{id}/deps/{dep}
  DELETE /api/tickets/{id}/deps/{dep}
  POST   /api/tickets/{id}/links/{other}
  DELETE /api/tickets/{id}/links/{other}`,
		Usage:  "tkr web [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, 0, 0, "no arguments\n\nUsage: tkr web [flags]"); err != nil {
				return err
			}
			store, cfg, err := env.openStore(params.globalFlags, logger)
			if err != nil {
				return err
			}
			web := cfg.Web
			if params.Host != "" {
				web.Host = params.Host
			}
			if params.Port != 0 {
				web.Port = params.Port
			}
			if params.StaticDir != "" {
				web.StaticDir = params.StaticDir
			}
			if params.Assignee != "" {
				web.DefaultAssignee = params.Assignee
			}
			if web.Port < 0 || web.Port > 65535 {
				return cli.Validation("--port %d out of range", web.Port)
			}

			watcher, err := env.watchStore(store, cfg, logger)
			if err != nil {
				return err
			}
			defer watcher.Close()

			server, err := httpapi.New(httpapi.Config{
				Store:           store,
				DefaultAssignee: web.DefaultAssignee,
				StaticDir:       web.StaticDir,
				Clock:           env.clock,
				Logger:          logger,
			})
			if err != nil {
				return cli.Internal("%w", err)
			}
			go server.Follow(ctx, watcher.Events())

			address := web.Address()
			err = server.Serve(ctx, address, func(listening net.Addr) {
				fmt.Fprintf(env.stdout, "Serving tickets from %s on http://%s\n", store.Root(), listening)
			})
			if err != nil {
				return cli.Internal("serving %s: %w", address, err)
			}
			return nil
		},
	}
}
