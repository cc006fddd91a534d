// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP I/O helpers for Watchtower.
//
// ReadResponse and DecodeResponse bound all response body reads at
// MaxResponseSize to prevent unbounded memory allocation from a
// misbehaving or malicious server. They are for API responses — not
// for streaming transfers, which should be read incrementally.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxResponseSize is the bound on API response body reads: 1 MB. A
// presence snapshot is a few kilobytes even for a crowded realm; the
// limit is generous enough to never interfere with a legitimate gate
// response while keeping a pathological one from exhausting memory.
// The same bound applies to transport decompression output.
const MaxResponseSize int64 = 1 << 20

// ReadResponse reads an API response body up to MaxResponseSize
// bytes. Use instead of io.ReadAll when reading HTTP response bodies.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeResponse reads an API response body (up to MaxResponseSize
// bytes) and JSON-decodes it into v. Replaces the common io.ReadAll +
// json.Unmarshal pattern.
func DecodeResponse(body io.Reader, v any) error {
	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}
