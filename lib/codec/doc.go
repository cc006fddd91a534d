// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Watchtower's standard CBOR encoding
// configuration.
//
// The gate API negotiates between two serialization formats: CBOR is
// the preferred wire format (compact, cheap to decode on a phone),
// JSON the fallback and the debugging format. Wire types therefore
// serialize through both, and this package supplies the shared CBOR
// modes so every package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding
// (RFC 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces
// identical bytes.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (HTTP response bodies):
//
//	encoder := codec.NewEncoder(w)
//	decoder := codec.NewDecoder(r)
//
// Wire types carry `json` struct tags only. fxamacker/cbor reads
// `json` tags as fallback when `cbor` tags are absent, so a single
// tag controls field naming and omitempty for both formats; doubling
// up with a `cbor` tag is noise.
package codec
