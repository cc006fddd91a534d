// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time surface injected into anything that schedules
// work. Real() returns the standard library behavior; Fake() returns
// a test clock whose time moves only under explicit control.
type Clock interface {
	// Now reports the clock's current time.
	Now() time.Time

	// After returns a channel that delivers the clock's time once d
	// has elapsed. A non-positive d delivers immediately.
	After(d time.Duration) <-chan time.Time

	// AfterFunc arranges for f to run once d has elapsed and returns
	// a handle that can cancel the pending call. The handle's C field
	// is nil, matching time.AfterFunc. A non-positive d runs f right
	// away: in a fresh goroutine on the real clock, synchronously on
	// the fake.
	AfterFunc(d time.Duration, f func()) *Timer

	// NewTicker returns a Ticker delivering on its C channel every d.
	// Panics when d is not positive, matching time.NewTicker.
	NewTicker(d time.Duration) *Ticker

	// Sleep blocks the calling goroutine for at least d.
	Sleep(d time.Duration)
}

// Timer is the handle for a single scheduled event. Handles returned
// by AfterFunc carry a nil C; the event is the callback itself.
type Timer struct {
	// C delivers the fire time, or is nil for AfterFunc timers.
	C <-chan time.Time

	stop  func() bool
	reset func(time.Duration) bool
}

// Stop cancels the timer. It reports false when the timer already
// fired or was already stopped, true when this call prevented a fire.
func (timer *Timer) Stop() bool { return timer.stop() }

// Reset re-arms the timer to fire after d and reports whether the
// timer was still active when Reset was called.
func (timer *Timer) Reset(d time.Duration) bool { return timer.reset(d) }

// Ticker delivers a tick on C once per interval. Its channel holds at
// most one pending tick; ticks a slow consumer misses are dropped,
// matching time.Ticker. Call Stop when done with it.
type Ticker struct {
	// C delivers ticks. Never closed, even after Stop.
	C <-chan time.Time

	stop  func()
	reset func(time.Duration)
}

// Stop silences the ticker. No tick is delivered after Stop returns.
func (ticker *Ticker) Stop() { ticker.stop() }

// Reset changes the tick interval and restarts the cycle: the next
// tick lands one full new interval from now.
func (ticker *Ticker) Reset(d time.Duration) { ticker.reset(d) }
