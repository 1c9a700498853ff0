// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by the tkr test suites.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern used when waiting on watcher events and server readiness,
// so wall-clock timeouts live in one place. [WriteFile] and
// [ReadFile] create and inspect fixture files under a store root.
//
// All helpers fail the test with t.Fatalf instead of returning errors.
package testutil
