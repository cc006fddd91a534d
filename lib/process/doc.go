// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides binary entrypoint helpers for watchtower
// binaries. It centralizes the one legitimate raw I/O pattern that
// exists before the structured logger: fatal error reporting from
// main() when run() fails. Everything after logger setup goes through
// slog; everything user-facing in the viewer goes through the TUI.
package process
