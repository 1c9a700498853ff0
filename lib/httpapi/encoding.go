// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/bureau-foundation/tkr/lib/codec"
	"github.com/bureau-foundation/tkr/lib/ticketstore"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// errorResponse is the body of every error response.
type errorResponse struct {
	Error      string   `json:"error"`
	Candidates []string `json:"candidates,omitempty"`
}

// wantsCBOR reports whether the client asked for CBOR.
func wantsCBOR(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mediaType == codec.MediaType {
			return true
		}
	}
	return false
}

// respond writes value in the format the client asked for.
func respond(w http.ResponseWriter, r *http.Request, status int, value any) {
	if wantsCBOR(r) {
		data, err := codec.Marshal(value)
		if err != nil {
			http.Error(w, "encoding response: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", codec.MediaType)
		w.WriteHeader(status)
		w.Write(data)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respond(w, r, status, errorResponse{Error: message})
}

// writeStoreError maps a store error onto a status code.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var ambiguous *ticketstore.AmbiguousIDError
	switch {
	case errors.As(err, &ambiguous):
		respond(w, r, http.StatusConflict, errorResponse{Error: err.Error(), Candidates: ambiguous.Candidates})
	case errors.Is(err, ticketstore.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, ticketstore.ErrConflict):
		writeError(w, r, http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, ticketstore.ErrInvalidStatus), errors.As(err, new(*badRequest)):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, err.Error())
	}
}

// badRequest is a client error detected by a handler or a mutate
// function.
type badRequest struct {
	message string
}

func (e *badRequest) Error() string { return e.message }

func invalid(format string, args ...any) error {
	return &badRequest{message: fmt.Sprintf(format, args...)}
}

// decodeBody decodes a JSON or CBOR request body into v.
func decodeBody(r *http.Request, v any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == codec.MediaType {
		if err := codec.NewDecoder(body).Decode(v); err != nil {
			return invalid("invalid CBOR body: %v", err)
		}
		return nil
	}
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return invalid("invalid JSON body: %v", err)
	}
	return nil
}

// etag quotes a revision for the ETag header.
func etag(revision string) string {
	return `"` + revision + `"`
}

// ifMatch returns the revision named by If-Match, or "" when the
// header is absent or "*".
func ifMatch(r *http.Request) string {
	value := strings.TrimSpace(r.Header.Get("If-Match"))
	if value == "" || value == "*" {
		return ""
	}
	value = strings.TrimPrefix(value, "W/")
	return strings.Trim(value, `"`)
}
