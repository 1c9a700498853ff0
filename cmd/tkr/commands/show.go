// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/bureau-foundation/tkr/cmd/tkr/cli"
	"github.com/bureau-foundation/tkr/lib/schema/ticket"
	"github.com/bureau-foundation/tkr/lib/ticketdoc"
	"github.com/bureau-foundation/tkr/lib/ticketstore"
)

type showParams struct {
	globalFlags
	cli.JSONOutput
	Raw bool `flag:"raw" desc:"print the stored document unchanged"`
}

// showResult is the --json form of show: the ticket plus what the
// dependency graph says about it.
type showResult struct {
	ticket.Ticket
	Revision  string   `json:"revision"`
	Blocks    []string `json:"blocks"`
	WaitingOn []string `json:"waiting_on"`
	Children  []string `json:"children"`
}

func showCommand(env *environment) *cli.Command {
	var params showParams

	return &cli.Command{
		Name:    "show",
		Summary: "Show a ticket",
		Description: `Show one ticket's fields, the tickets it blocks and is waiting on,
its Markdown sections and its notes. The id may be any unambiguous
prefix.`,
		Usage:  "tkr show <id> [flags]",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, 1, 1, "one ticket id\n\nUsage: tkr show <id>"); err != nil {
				return err
			}
			store, _, err := env.openStore(params.globalFlags, logger)
			if err != nil {
				return err
			}
			if params.Raw {
				document, err := store.Document(args[0])
				if err != nil {
					return storeError(err)
				}
				_, err = env.stdout.Write(document)
				return err
			}

			entry, revision, err := store.LoadRevision(args[0])
			if err != nil {
				return storeError(err)
			}
			_, index, err := listing(store)
			if err != nil {
				return err
			}
			if params.OutputJSON {
				return cli.WriteJSON(env.stdout, showResult{
					Ticket:    entry,
					Revision:  revision,
					Blocks:    nonNil(index.Dependents(entry.ID)),
					WaitingOn: nonNil(index.Unresolved(entry.ID)),
					Children:  nonNil(index.Children(entry.ID)),
				})
			}
			return writeDetail(env.stdout, entry, index)
		},
	}
}

type editParams struct {
	globalFlags
}

type editorFunc func(ctx context.Context, path string) error

func editCommand(env *environment) *cli.Command {
	var params editParams

	return &cli.Command{
		Name:    "edit",
		Summary: "Edit a ticket in $EDITOR",
		Description: `Open the ticket's document in $VISUAL or $EDITOR (vi when neither is
set). On exit the document is decoded and checked again before it
replaces the stored one; a changed status moves it to the matching
directory. If the document no longer decodes, or the ticket changed
on disk meanwhile, nothing is written and the edited copy is kept.`,
		Usage:  "tkr edit <id> [flags]",
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, 1, 1, "one ticket id\n\nUsage: tkr edit <id>"); err != nil {
				return err
			}
			store, _, err := env.openStore(params.globalFlags, logger)
			if err != nil {
				return err
			}
			return env.edit(ctx, store, args[0], logger)
		},
	}
}

func (env *environment) edit(ctx context.Context, store *ticketstore.Store, idOrPrefix string, logger *slog.Logger) error {
	current, revision, err := store.LoadRevision(idOrPrefix)
	if err != nil {
		return storeError(err)
	}
	original, err := store.Document(current.ID)
	if err != nil {
		return storeError(err)
	}

	scratch, err := os.CreateTemp("", current.ID+"-*"+ticketdoc.Extension)
	if err != nil {
		return cli.Internal("creating scratch file: %w", err)
	}
	path := scratch.Name()
	_, err = scratch.Write(original)
	if closeErr := scratch.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return cli.Internal("writing scratch file: %w", err)
	}

	if err := env.editor(ctx, path); err != nil {
		os.Remove(path)
		return cli.Internal("editor: %w", err)
	}
	edited, err := os.ReadFile(path)
	if err != nil {
		return cli.Internal("reading edited document: %w", err)
	}
	if bytes.Equal(edited, original) {
		os.Remove(path)
		fmt.Fprintf(env.stdout, "No changes to %s\n", current.ID)
		return nil
	}

	keep := fmt.Sprintf("Your edits are in %s.", path)
	replacement, err := ticketdoc.Decode(edited)
	if err != nil {
		return cli.Validation("edited document: %w", err).WithHint(keep)
	}
	if replacement.ID != current.ID {
		return cli.Validation("edited document changes the id from %s to %s", current.ID, replacement.ID).WithHint(keep)
	}
	if err := replacement.Validate(); err != nil {
		return cli.Validation("edited document: %w", err).WithHint(keep)
	}

	updated, _, err := store.UpdateIf(current.ID, revision, func(entry *ticket.Ticket) error {
		*entry = replacement
		return nil
	})
	if err != nil {
		var toolError *cli.ToolError
		if errors.As(storeError(err), &toolError) {
			return toolError.WithHint(keep)
		}
		return err
	}
	os.Remove(path)
	logger.Debug("ticket edited", "id", updated.ID, "status", updated.Status)
	fmt.Fprintf(env.stdout, "Updated %s\n", updated.ID)
	return nil
}

// runEditor opens path in $VISUAL, $EDITOR or vi on the terminal. The
// variable may carry arguments ("code --wait").
func runEditor(getenv func(string) string) editorFunc {
	return func(ctx context.Context, path string) error {
		editor := getenv("VISUAL")
		if editor == "" {
			editor = getenv("EDITOR")
		}
		if editor == "" {
			editor = "vi"
		}
		fields := strings.Fields(editor)
		command := exec.CommandContext(ctx, fields[0], append(fields[1:], path)...)
		command.Stdin, command.Stdout, command.Stderr = os.Stdin, os.Stdout, os.Stderr
		if err := command.Run(); err != nil {
			return fmt.Errorf("running %s: %w", editor, err)
		}
		return nil
	}
}

type addNoteParams struct {
	globalFlags
	cli.JSONOutput
}

func addNoteCommand(env *environment) *cli.Command {
	var params addNoteParams

	return &cli.Command{
		Name:    "add-note",
		Summary: "Append a timestamped note to a ticket",
		Description: `Append a note to the ticket's Notes section. The note is the remaining
arguments joined by spaces, or standard input when there are none.`,
		Usage: "tkr add-note <id> [text...] [flags]",
		Examples: []cli.Example{
			{
				Description: "Note from arguments",
				Command:     "tkr add-note mp-3a9c reproduced on staging",
			},
			{
				Description: "Note from a command's output",
				Command:     "go test ./... 2>&1 | tail -20 | tkr add-note mp-3a9c",
			},
		},
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if err := requireArgs(args, 1, -1, "a ticket id\n\nUsage: tkr add-note <id> [text...]"); err != nil {
				return err
			}
			text := strings.Join(args[1:], " ")
			if len(args) == 1 {
				input, err := io.ReadAll(env.stdin)
				if err != nil {
					return cli.Internal("reading note from stdin: %w", err)
				}
				text = string(input)
			}
			text = strings.TrimSpace(text)
			if text == "" {
				return cli.Validation("the note is empty")
			}

			store, _, err := env.openStore(params.globalFlags, logger)
			if err != nil {
				return err
			}
			target, err := store.Load(args[0])
			if err != nil {
				return storeError(err)
			}
			note, err := store.AppendNote(target.ID, text)
			if err != nil {
				return storeError(err)
			}

			if done, err := params.EmitJSON(env.stdout, note); done {
				return err
			}
			fmt.Fprintf(env.stdout, "Note added to %s\n", target.ID)
			return nil
		},
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
