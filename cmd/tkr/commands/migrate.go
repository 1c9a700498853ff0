// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/tkr/cmd/tkr/cli"
	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/snapshot"
	"github.com/bureau-foundation/tkr/lib/ticketstore"
)

type migrateParams struct {
	globalFlags
	cli.JSONOutput
	From     string `flag:"from" desc:"source: auto, tk (flat legacy documents) or beads" default:"auto"`
	File     string `flag:"file,f" desc:"beads JSONL or snapshot file (default <repo>/.beads/issues.jsonl)"`
	Prefix   string `flag:"prefix" desc:"replace the id prefix of imported beads entries"`
	Identity string `flag:"identity,i" desc:"age identity file for an encrypted snapshot"`
}

// migrateResult is the --json form of migrate.
type migrateResult struct {
	Legacy *ticketstore.ImportReport `json:"legacy,omitempty"`
	Beads  *ticketstore.ImportReport `json:"beads,omitempty"`
}

func migrateCommand(env *environment) *cli.Command {
	var params migrateParams

	return &cli.Command{
		Name:    "migrate",
		Summary: "Import tickets from flat documents or beads",
		Description: `Bring tickets into the status layout.

--from tk files every flat document directly under the store root into
its status directory, converting documents written by the original
ticket tool (a title line and "Key: value" fields) on the way. Every
document is checked before anything moves; one that is in neither
format stops the import.

--from beads reads a beads issues.jsonl, or a snapshot written by
'tkr export', and writes each entry as a ticket. Entries whose id is
already in the store are skipped.

--from auto (the default) does both: the flat-document import, then
the beads import when the beads file exists.`,
		Usage: "tkr migrate [flags]",
		Examples: []cli.Example{
			{
				Description: "Import a beads database, renaming bd- ids to tk-",
				Command:     "tkr migrate --from beads --prefix tk",
			},
			{
				Description: "Restore an encrypted export",
				Command:     "tkr migrate --from beads -f tickets.snap -i ~/.config/age/key.txt",
			},
		},
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, 0, 0, "no arguments\n\nUsage: tkr migrate [flags]"); err != nil {
				return err
			}
			switch params.From {
			case "auto", "tk", "beads":
			default:
				return cli.Validation("unknown --from %q (valid: auto, tk, beads)", params.From)
			}

			store, _, err := env.openStore(params.globalFlags, logger)
			if err != nil {
				return err
			}
			var result migrateResult

			if params.From != "beads" {
				report, err := store.ImportLegacy()
				if err != nil {
					return storeError(err)
				}
				logger.Info("flat documents imported", "imported", len(report.Imported), "organized", len(report.Organized))
				result.Legacy = &report
			}

			if params.From != "tk" {
				path := params.File
				if path == "" {
					path = filepath.Join(filepath.Dir(store.Root()), ".beads", "issues.jsonl")
				}
				_, statErr := os.Stat(path)
				switch {
				case statErr == nil:
					report, err := env.importBeads(store, path, params)
					if err != nil {
						return err
					}
					logger.Info("beads imported", "file", path, "imported", len(report.Imported), "skipped", len(report.Skipped))
					result.Beads = &report
				case params.From == "beads" || params.File != "":
					return cli.NotFound("beads file %s does not exist", path).WithHint("Pass the file with --file.")
				default:
					logger.Debug("no beads file", "file", path)
				}
			}

			if done, err := params.EmitJSON(env.stdout, result); done {
				return err
			}
			if result.Legacy != nil {
				fmt.Fprintf(env.stdout, "Flat documents: %d imported, %d organized, %d skipped\n", len(result.Legacy.Imported), len(result.Legacy.Organized), len(result.Legacy.Skipped))
			}
			if result.Beads != nil {
				fmt.Fprintf(env.stdout, "Beads: %d imported, %d skipped\n", len(result.Beads.Imported), len(result.Beads.Skipped))
			}
			return nil
		},
	}
}

func (env *environment) importBeads(store *ticketstore.Store, path string, params migrateParams) (ticketstore.ImportReport, error) {
	var options snapshot.ReadOptions
	if params.Identity != "" {
		keys, err := os.Open(params.Identity)
		if err != nil {
			return ticketstore.ImportReport{}, cli.NotFound("opening identity file: %w", err)
		}
		options.Identities, err = snapshot.ParseIdentities(keys)
		keys.Close()
		if err != nil {
			return ticketstore.ImportReport{}, cli.Validation("%w", err)
		}
	}

	file, err := os.Open(path)
	if err != nil {
		return ticketstore.ImportReport{}, cli.Internal("opening %s: %w", path, err)
	}
	defer file.Close()
	entries, err := snapshot.Read(file, options)
	if errors.Is(err, snapshot.ErrEncrypted) {
		return ticketstore.ImportReport{}, cli.Validation("%s: %w", path, err).WithHint("Pass the age identity with --identity.")
	}
	if err != nil {
		return ticketstore.ImportReport{}, cli.Validation("%s: %w", path, err)
	}

	report, err := store.ImportBeads(entries, ticketstore.BeadsImportOptions{Prefix: params.Prefix})
	if err != nil {
		return report, storeError(err)
	}
	return report, nil
}

type reconcileParams struct {
	globalFlags
	cli.JSONOutput
}

func reconcileCommand(env *environment) *cli.Command {
	var params reconcileParams

	return &cli.Command{
		Name:    "reconcile",
		Summary: "Repair duplicate or misfiled ticket documents",
		Description: `Restore one document per ticket, each in the directory named by its
status. Duplicates left by an interrupted move are removed, keeping
the copy whose status matches its directory (else the newest), and
misfiled documents are moved.`,
		Usage:  "tkr reconcile [flags]",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, 0, 0, "no arguments\n\nUsage: tkr reconcile [flags]"); err != nil {
				return err
			}
			store, _, err := env.openStore(params.globalFlags, logger)
			if err != nil {
				return err
			}
			report, err := store.Reconcile()
			if err != nil {
				return storeError(err)
			}
			if done, err := params.EmitJSON(env.stdout, report); done {
				return err
			}
			if report.Empty() {
				fmt.Fprintln(env.stdout, "Store is consistent")
				return nil
			}
			for _, path := range report.Removed {
				fmt.Fprintf(env.stdout, "Removed %s\n", path)
			}
			for _, ticketID := range report.Relocated {
				fmt.Fprintf(env.stdout, "Relocated %s\n", ticketID)
			}
			return nil
		},
	}
}

type exportParams struct {
	globalFlags
	Output      string   `flag:"output,o" desc:"write to this file instead of stdout"`
	Compression string   `flag:"compression" desc:"none, zstd or lz4" default:"none"`
	Recipients  []string `flag:"recipient,r" desc:"age public key to encrypt for (repeatable)"`
}

func exportCommand(env *environment) *cli.Command {
	var params exportParams

	return &cli.Command{
		Name:    "export",
		Summary: "Write every ticket as a beads-compatible snapshot",
		Description: `Write all tickets as beads JSONL. With no compression and no
recipients the output is a plain issues.jsonl that beads reads.
Otherwise it is a tkr snapshot: a header line, then the JSONL
compressed and/or encrypted with age. 'tkr migrate --from beads'
reads both forms.`,
		Usage: "tkr export [flags]",
		Examples: []cli.Example{
			{
				Description: "Compressed, encrypted backup",
				Command:     "tkr export --compression zstd -r age1... -o tickets.snap",
			},
		},
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, 0, 0, "no arguments\n\nUsage: tkr export [flags]"); err != nil {
				return err
			}
			compression, err := snapshot.ParseCompression(params.Compression)
			if err != nil {
				return cli.Validation("%w", err)
			}
			store, _, err := env.openStore(params.globalFlags, logger)
			if err != nil {
				return err
			}
			entries, err := store.Export()
			if err != nil {
				return storeError(err)
			}

			if params.Output == "" {
				return writeSnapshot(env.stdout, entries, compression, params.Recipients)
			}
			file, err := os.Create(params.Output)
			if err != nil {
				return cli.Internal("creating %s: %w", params.Output, err)
			}
			if err := writeSnapshot(file, entries, compression, params.Recipients); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return cli.Internal("closing %s: %w", params.Output, err)
			}
			logger.Info("exported", "tickets", len(entries), "file", params.Output, "compression", compression)
			return nil
		},
	}
}

func writeSnapshot(w io.Writer, entries []ticket.BeadsEntry, compression snapshot.Compression, recipients []string) error {
	// A plain export stays readable by beads: no header line.
	if compression == snapshot.CompressionNone && len(recipients) == 0 {
		if err := snapshot.WriteJSONL(w, entries); err != nil {
			return cli.Internal("%w", err)
		}
		return nil
	}
	err := snapshot.Write(w, entries, snapshot.WriteOptions{
		Compression: compression,
		Recipients:  recipients,
	})
	if err != nil {
		return cli.Validation("%w", err)
	}
	return nil
}
