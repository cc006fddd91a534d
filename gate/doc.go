// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

// Package gate is the HTTP client for the realm gate — the game
// backend's REST surface for realm presence. Client implements
// presence.Source, so a Synchronizer can be pointed at a live gate
// with nothing but a base URL.
//
// The gate negotiates its wire format: CBOR (preferred, via
// lib/codec) or JSON, selected by the Accept header and reported
// back in Content-Type. Responses may arrive zstd-compressed when
// the client advertises support. Error responses carry a structured
// {code, message} payload decoded into *Error; RECON_REQUIRED and
// bare 403s classify as access denials through the AccessDenied
// method the presence package probes for.
package gate
