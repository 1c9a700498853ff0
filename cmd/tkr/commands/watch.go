// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"log/slog"

	"github.com/bureau-foundation/tkr/cmd/tkr/cli"
	"github.com/bureau-foundation/tkr/lib/config"
	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/ticketstore"
	"github.com/bureau-foundation/tkr/lib/ticketwatch"
)

// watchStore creates any missing status directories and watches all of
// them with the configured debounce.
func (env *environment) watchStore(store *ticketstore.Store, cfg *config.Config, logger *slog.Logger) (*ticketwatch.Watcher, error) {
	if err := store.EnsureLayout(); err != nil {
		return nil, storeError(err)
	}
	debounce, err := cfg.Viewer.DebounceDuration()
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	directories := make([]string, 0, len(ticket.AllStatuses))
	for _, status := range ticket.AllStatuses {
		directories = append(directories, store.StatusDir(status))
	}
	watcher, err := ticketwatch.Watch(directories, ticketwatch.Options{
		Debounce: debounce,
		Clock:    env.clock,
		Logger:   logger,
	})
	if err != nil {
		return nil, cli.Internal("watching %s: %w", store.Root(), err)
	}
	return watcher, nil
}
