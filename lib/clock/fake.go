// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// Fake returns a FakeClock reading initial. Time moves only through
// Advance and Set.
func Fake(initial time.Time) *FakeClock {
	fake := &FakeClock{current: initial}
	fake.changed = sync.NewCond(&fake.mu)
	return fake
}

// FakeClock is a manually driven Clock. AfterFunc callbacks run
// synchronously inside Advance, in deadline order; a callback must not
// call Advance itself.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	pending []*pendingEvent
	changed *sync.Cond
}

type pendingEvent struct {
	deadline time.Time

	// Exactly one of callback (AfterFunc) and ticks (NewTicker) is set.
	callback func()
	ticks    chan time.Time
	interval time.Duration

	done bool
}

// Now returns the fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Set jumps the clock to t without firing anything. Used by tests that
// need a time before the Unix epoch or a large discontinuity.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// AfterFunc registers f to run when the clock passes now+d. A
// non-positive d runs f before AfterFunc returns.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{
			stop:  func() bool { return false },
			reset: func(time.Duration) bool { return false },
		}
	}

	c.mu.Lock()
	event := &pendingEvent{deadline: c.current.Add(d), callback: f}
	c.addLocked(event)
	c.mu.Unlock()

	return &Timer{
		stop: func() bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			if event.done {
				return false
			}
			c.removeLocked(event)
			return true
		},
		reset: func(d time.Duration) bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			wasPending := !event.done
			if wasPending {
				c.removeLocked(event)
			}
			event.deadline = c.current.Add(d)
			event.done = false
			c.addLocked(event)
			return wasPending
		},
	}
}

// NewTicker registers a ticker firing every d of fake time.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: NewTicker interval must be positive")
	}
	ticks := make(chan time.Time, 1)

	c.mu.Lock()
	event := &pendingEvent{deadline: c.current.Add(d), ticks: ticks, interval: d}
	c.addLocked(event)
	c.mu.Unlock()

	return &Ticker{
		C: ticks,
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.removeLocked(event)
		},
	}
}

// Advance moves the clock forward by d, firing every timer and ticker
// whose deadline is reached. A ticker spanning several intervals fires
// once per interval, subject to its one-slot buffer.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	target := c.current
	c.mu.Unlock()

	for {
		event := c.nextDue(target)
		if event == nil {
			return
		}
		if event.callback != nil {
			event.callback()
			continue
		}
		select {
		case event.ticks <- target:
		default:
		}
	}
}

// nextDue pops the earliest event due at or before target. Tickers are
// rescheduled one interval later instead of being removed.
func (c *FakeClock) nextDue(target time.Time) *pendingEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 || c.pending[0].deadline.After(target) {
		return nil
	}
	event := c.pending[0]
	c.pending = c.pending[1:]
	if event.interval > 0 {
		event.deadline = event.deadline.Add(event.interval)
		c.addLocked(event)
	} else {
		event.done = true
	}
	return event
}

// WaitForTimers blocks until at least n timers or tickers are pending.
// Tests call it before Advance when the registration happens on
// another goroutine.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.pending) < n {
		c.changed.Wait()
	}
}

// PendingCount returns the number of registered timers and tickers.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// addLocked inserts event keeping pending sorted by deadline, after
// any events with the same deadline.
func (c *FakeClock) addLocked(event *pendingEvent) {
	index, _ := slices.BinarySearchFunc(c.pending, event.deadline, func(existing *pendingEvent, deadline time.Time) int {
		if existing.deadline.After(deadline) {
			return 1
		}
		return -1
	})
	c.pending = slices.Insert(c.pending, index, event)
	c.changed.Broadcast()
}

func (c *FakeClock) removeLocked(event *pendingEvent) {
	if index := slices.Index(c.pending, event); index >= 0 {
		c.pending = slices.Delete(c.pending, index, index+1)
	}
	event.done = true
}
