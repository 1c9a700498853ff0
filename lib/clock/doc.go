// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the injectable time source for the ticket store,
// the file watcher, and the viewers.
//
// Ticket creation stamps Created and note timestamps from Now, and ID
// generation derives its time component from it, so store tests pin
// both with a [FakeClock]. The watcher debounces bursts of filesystem
// events with AfterFunc and the web and terminal viewers poll with
// NewTicker; their tests drive those deterministically with Advance.
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	store, _ := ticketstore.Open(ticketstore.Config{Root: dir, Clock: fake})
//	fake.Advance(time.Minute)
package clock
