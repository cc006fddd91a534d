// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package feedui

import "github.com/emberhold/watchtower/presence"

// Source is the synchronizer surface the viewer drives. It is
// satisfied by *presence.Synchronizer; tests substitute a scripted
// fake so model behavior can be exercised without a gate or timers.
type Source interface {
	// Start binds the source to a realm and begins polling. Calling
	// Start on a running source is a no-op.
	Start(realmID string) error

	// Stop halts polling and blocks until the poll loop has exited.
	Stop()

	// Refresh requests an immediate poll. Best effort: the request
	// is dropped if a poll cycle is already in flight.
	Refresh()

	// Subscribe returns a channel of synchronizer events. The
	// viewer repaints on every delivery.
	Subscribe() <-chan presence.Event

	// View returns a copy of the current renderable state.
	View() presence.View
}

var _ Source = (*presence.Synchronizer)(nil)
