// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"testing"
	"time"
)

type recordingTB struct {
	failed  bool
	message string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Fatalf(format string, args ...any) {
	r.failed = true
	r.message = fmt.Sprintf(format, args...)
	// Mirror testing.T by not returning to the caller.
	panic(r)
}

func catchFatal(run func()) (recovered any) {
	defer func() { recovered = recover() }()
	run()
	return nil
}

func TestRequireReceive(t *testing.T) {
	ch := make(chan int, 1)
	ch <- 7
	if got := RequireReceive(t, ch, time.Second, "value"); got != 7 {
		t.Fatalf("RequireReceive = %d, want 7", got)
	}

	recorder := &recordingTB{}
	catchFatal(func() { RequireReceive(recorder, make(chan int), 10*time.Millisecond, "waiting for %s", "nothing") })
	if !recorder.failed {
		t.Fatal("RequireReceive did not fail on timeout")
	}
	if want := "timed out after 10ms: waiting for nothing"; recorder.message != want {
		t.Errorf("message = %q, want %q", recorder.message, want)
	}
}

func TestRequireClosed(t *testing.T) {
	ch := make(chan struct{})
	close(ch)
	RequireClosed(t, ch, time.Second)

	recorder := &recordingTB{}
	catchFatal(func() { RequireClosed(recorder, make(chan struct{}), 10*time.Millisecond) })
	if !recorder.failed {
		t.Fatal("RequireClosed did not fail on timeout")
	}
}
