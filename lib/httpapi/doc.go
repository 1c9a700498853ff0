// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpapi serves a ticket store over HTTP for `tkr web`.
//
// Routes:
//
//	GET    /health
//	GET    /api/stats
//	GET    /api/tickets                   ?q= ?rank= ?view=ready|blocked ?status= ?type= ?project= ?category= ?assignee=
//	POST   /api/tickets
//	GET    /api/tickets/{id}              ETag is the document revision
//	PUT    /api/tickets/{id}              If-Match makes the update conditional
//	GET    /api/tickets/{id}/tree         ?full=true
//	POST   /api/tickets/{id}/notes
//	POST   /api/tickets/{id}/deps/{dep}
//	DELETE /api/tickets/{id}/deps/{dep}
//	POST   /api/tickets/{id}/links/{other}
//	DELETE /api/tickets/{id}/links/{other}
//
// Responses are JSON unless the request sends "Accept:
// application/cbor". Request bodies may be either, by Content-Type.
// Errors are {"error": "..."} with 400 for bad input, 404 for unknown
// ids, 409 for ambiguous prefixes, 412 for a failed If-Match, and 500
// otherwise.
//
// The store is not safe for concurrent use, so every handler holds the
// server's mutex while it touches the store. The ticket list is cached
// between writes; [Server.Follow] drops the cache when a
// [ticketwatch.Watcher] reports changes made by other processes.
package httpapi
