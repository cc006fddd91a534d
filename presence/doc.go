// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

// Package presence keeps a small, ordered feed of "who is active in
// this realm right now" fresh against a remote gate, by polling.
//
// The package provides five cooperating pieces. [Snapshot] is one full
// read of the gate's truth: the realm's aggregate counts plus a ranked
// list of [Sighting] values. [Diff] compares two snapshots by identity
// and reports who arrived, who left, and whether anything at all
// changed. [Feed] is the bounded on-screen list, ordered most recent
// arrival first, with FIFO eviction when it overflows its display
// limit. [Backoff] stretches the poll interval while nothing changes
// and snaps it back on any change. [Synchronizer] owns the loop that
// ties them together: fetch, diff, adjust cadence, and trickle
// arrivals into the feed one at a time so the UI can animate each.
//
// A Synchronizer is bound to one realm at a time via Start and torn
// down with Stop. Stop cancels the poll timer and any in-flight
// trickle sequence and does not return until the poll goroutine has
// exited, so the feed cannot mutate after Stop returns. All reads go
// through [Synchronizer.View], which returns a copy and is safe from
// any goroutine.
//
// Fetch failures never reach the UI: a transient error leaves the
// previous feed and counts on screen and merely slows the cadence,
// exactly as an unchanged poll would. An access-denied error (the
// realm needs reconnaissance first) clears the feed and raises a
// persistent locked flag that only a later successful fetch lowers.
// The two are told apart with [IsAccessDenied], which probes the
// error chain for an AccessDenied() method the way net.Error probes
// for Timeout.
//
// Observability is explicit rather than incidental: every poll,
// interval change, feed mutation, and access transition is logged
// through slog, counted in [Stats], and published to subscribers as
// an [Event], so the backoff behavior is verifiable from outside.
package presence
