// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticketwatch

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bureau-foundation/tkr/lib/clock"
)

// DefaultDebounce is the quiet period used when Options.Debounce is
// zero.
const DefaultDebounce = 200 * time.Millisecond

// Batch lists the document paths changed since the previous batch,
// sorted and without duplicates. A path may name a document that no
// longer exists (it was moved or removed).
type Batch struct {
	Paths []string
}

// Options configure [Watch].
type Options struct {
	// Debounce is how long the directories must stay quiet before a
	// batch is delivered.
	Debounce time.Duration

	// Suffix restricts reported paths by file name suffix. Empty
	// means ".md".
	Suffix string

	// Clock drives the debounce timer. Nil uses the real clock.
	Clock clock.Clock

	// Logger receives watcher errors. Nil discards them.
	Logger *slog.Logger
}

// Watcher delivers batches of changed document paths.
type Watcher struct {
	notify   *fsnotify.Watcher
	events   chan Batch
	fire     chan struct{}
	done     chan struct{}
	finished chan struct{}
	options  Options

	closeOnce sync.Once
	closeErr  error
}

// Watch starts watching directories. Every directory must exist.
func Watch(directories []string, options Options) (*Watcher, error) {
	if len(directories) == 0 {
		return nil, errors.New("ticketwatch: no directories to watch")
	}
	if options.Debounce <= 0 {
		options.Debounce = DefaultDebounce
	}
	if options.Suffix == "" {
		options.Suffix = ".md"
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}

	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("ticketwatch: creating watcher: %w", err)
	}
	for _, directory := range directories {
		if err := notify.Add(directory); err != nil {
			notify.Close()
			return nil, fmt.Errorf("ticketwatch: watching %s: %w", directory, err)
		}
	}

	watcher := &Watcher{
		notify:   notify,
		events:   make(chan Batch),
		fire:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		options:  options,
	}
	go watcher.loop()
	return watcher, nil
}

// Events returns the channel batches are delivered on. It is closed
// after [Watcher.Close].
func (w *Watcher) Events() <-chan Batch {
	return w.events
}

// Close stops the watcher and waits for its goroutine to exit. Safe to
// call more than once.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.done)
		w.closeErr = w.notify.Close()
		<-w.finished
	})
	return w.closeErr
}

func (w *Watcher) loop() {
	defer close(w.finished)
	defer close(w.events)

	pending := make(map[string]struct{})
	var timer *clock.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.notify.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			pending[filepath.Clean(event.Name)] = struct{}{}
			if timer == nil {
				timer = w.options.Clock.AfterFunc(w.options.Debounce, w.signal)
			} else {
				timer.Reset(w.options.Debounce)
			}

		case err, ok := <-w.notify.Errors:
			if !ok {
				return
			}
			w.options.Logger.Warn("ticket watcher error", "error", err)

		case <-w.fire:
			if len(pending) == 0 {
				continue
			}
			batch := Batch{Paths: make([]string, 0, len(pending))}
			for path := range pending {
				batch.Paths = append(batch.Paths, path)
			}
			slices.Sort(batch.Paths)
			clear(pending)
			select {
			case w.events <- batch:
			case <-w.done:
				return
			}
		}
	}
}

// signal runs on the clock's goroutine when the debounce timer expires.
func (w *Watcher) signal() {
	select {
	case w.fire <- struct{}{}:
	default:
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	return strings.HasSuffix(filepath.Base(event.Name), w.options.Suffix)
}
