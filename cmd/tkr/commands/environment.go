// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/bureau-foundation/tkr/cmd/tkr/cli"
	"github.com/bureau-foundation/tkr/lib/clock"
	"github.com/bureau-foundation/tkr/lib/config"
	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/ticketindex"
	"github.com/bureau-foundation/tkr/lib/ticketstore"
)

// globalFlags are accepted by every command that opens the store.
// They override the config file and the environment.
type globalFlags struct {
	TicketsDir string `flag:"tickets-dir" desc:"ticket store directory (env TICKETS_DIR)"`
	RepoRoot   string `flag:"repo-root" desc:"repository root to look for the store in (env REPO_ROOT)"`
	Project    string `flag:"project" desc:"project recorded on new tickets (env TICKET_PROJECT)"`
	Category   string `flag:"category" desc:"category recorded on new tickets (env TICKET_CATEGORY)"`
	ConfigPath string `flag:"config" desc:"config file (env TKR_CONFIG)"`
	Verbose    bool   `flag:"verbose,v" desc:"log debug detail to stderr"`
}

type environment struct {
	stdin      io.Reader
	stdout     io.Writer
	getenv     func(string) string
	workingDir string
	clock      clock.Clock
	editor     editorFunc
}

func newEnvironment(options Options) *environment {
	options = options.withDefaults()
	return &environment{
		stdin:      options.Stdin,
		stdout:     options.Stdout,
		getenv:     options.Getenv,
		workingDir: options.WorkingDir,
		clock:      options.Clock,
		editor:     options.Editor,
	}
}

func (env *environment) cwd() (string, error) {
	if env.workingDir != "" {
		return env.workingDir, nil
	}
	directory, err := os.Getwd()
	if err != nil {
		return "", cli.Internal("determining working directory: %w", err)
	}
	return directory, nil
}

// loadConfig resolves the configuration: defaults, config file,
// environment, then flags.
func (env *environment) loadConfig(flags globalFlags) (*config.Config, string, error) {
	cwd, err := env.cwd()
	if err != nil {
		return nil, "", err
	}
	cfg, path, err := config.Load(config.LoadOptions{
		ExplicitPath: flags.ConfigPath,
		WorkingDir:   cwd,
		Getenv:       env.getenv,
	})
	if err != nil {
		return nil, "", cli.Validation("%w", err)
	}
	if flags.TicketsDir != "" {
		cfg.TicketsDir = flags.TicketsDir
	}
	if flags.RepoRoot != "" {
		cfg.RepoRoot = flags.RepoRoot
	}
	if flags.Project != "" {
		cfg.Project = flags.Project
	}
	if flags.Category != "" {
		cfg.Category = flags.Category
	}
	return cfg, path, nil
}

// openStore resolves the configuration and opens the store it names.
func (env *environment) openStore(flags globalFlags, logger *slog.Logger) (*ticketstore.Store, *config.Config, error) {
	cfg, path, err := env.loadConfig(flags)
	if err != nil {
		return nil, nil, err
	}
	policy, err := ticketstore.ParseResolvePolicy(cfg.ResolvePolicy)
	if err != nil {
		return nil, nil, cli.Validation("%w", err)
	}
	cwd, err := env.cwd()
	if err != nil {
		return nil, nil, err
	}
	store, err := ticketstore.Open(ticketstore.Config{
		Root:            cfg.StoreRoot(cwd),
		Project:         cfg.Project,
		Category:        cfg.Category,
		Clock:           env.clock,
		Logger:          logger,
		ResolvePolicy:   policy,
		ReconcileOnOpen: cfg.ReconcileOnOpen,
	})
	if err != nil {
		return nil, nil, storeError(err)
	}
	logger.Debug("store opened", "root", store.Root(), "config", path, "resolve_policy", policy)
	return store, cfg, nil
}

// listing is a full store listing and the index built from it.
func listing(store *ticketstore.Store) ([]ticket.Ticket, *ticketindex.Index, error) {
	tickets, err := store.List()
	if err != nil {
		return nil, nil, storeError(err)
	}
	return tickets, ticketindex.Build(tickets), nil
}

// storeError categorizes a store error for the CLI.
func storeError(err error) error {
	var toolError *cli.ToolError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &toolError):
		return err
	case errors.Is(err, ticketstore.ErrNotFound):
		return cli.NotFound("%w", err).WithHint("Run 'tkr ls' to see ticket ids.")
	case errors.Is(err, ticketstore.ErrAmbiguousID):
		return cli.Conflict("%w", err).WithHint("Use more characters of the id.")
	case errors.Is(err, ticketstore.ErrConflict):
		return cli.Conflict("%w", err)
	case errors.Is(err, ticketstore.ErrInvalidStatus),
		errors.Is(err, ticketstore.ErrMigrationUnsupported):
		return cli.Validation("%w", err)
	}
	return cli.Internal("%w", err)
}

// requireArgs checks the positional argument count against
// [least, most]; most < 0 means unbounded.
func requireArgs(args []string, least, most int, usage string) error {
	if len(args) < least || (most >= 0 && len(args) > most) {
		return cli.Validation("expected %s", usage)
	}
	return nil
}

func parseStatus(raw string) (ticket.Status, error) {
	status, err := ticket.ParseStatus(raw)
	if err != nil {
		return "", cli.Validation("%w", err)
	}
	return status, nil
}

func checkPriority(priority int) error {
	if priority < ticket.MinPriority || priority > ticket.MaxPriority {
		return cli.Validation("priority must be between %d and %d, got %d", ticket.MinPriority, ticket.MaxPriority, priority)
	}
	return nil
}
