// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds tkr's CBOR encoding configuration.
//
// The HTTP façade answers in JSON by default and in CBOR when the
// client sends "Accept: application/cbor". Both formats use the same
// struct definitions: fxamacker/cbor reads `json` tags when `cbor` tags
// are absent, so a ticket's field names and omitempty rules are
// identical on both wires. Types here never carry both tags.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2), so
// equal values always produce identical bytes. Timestamps are encoded
// as RFC 3339 strings with nanoseconds.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
package codec
