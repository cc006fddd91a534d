// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import "time"

// Poll cadence defaults. A busy realm is polled at the base interval
// for fast feedback; after every idleThreshold consecutive quiet
// polls the interval stretches by the growth factor, up to the cap.
// The cap keeps a dormant realm from ever going silent — a new
// arrival must show up without the user reopening the view.
const (
	DefaultBaseInterval  = 5 * time.Second
	DefaultMaxInterval   = 15 * time.Second
	DefaultGrowthFactor  = 1.5
	DefaultIdleThreshold = 3
)

// Backoff is the poll cadence state machine. Feed it one Observe call
// per completed poll; read the interval to arm the next timer. It is
// pure bookkeeping — no timers, no clock — and not safe for
// concurrent use without external locking.
type Backoff struct {
	base      time.Duration
	max       time.Duration
	growth    float64
	threshold int

	current time.Duration
	streak  int
}

// NewBackoff returns a Backoff starting at base. Growth multiplies
// the interval each time streak consecutive unchanged polls
// accumulate; the result never exceeds max.
func NewBackoff(base, max time.Duration, growth float64, threshold int) *Backoff {
	return &Backoff{
		base:      base,
		max:       max,
		growth:    growth,
		threshold: threshold,
		current:   base,
	}
}

// Interval returns the interval the next poll should be scheduled at.
// Always within [base, max].
func (backoff *Backoff) Interval() time.Duration { return backoff.current }

// Streak returns the count of consecutive unchanged polls since the
// last change or growth step.
func (backoff *Backoff) Streak() int { return backoff.streak }

// Observe records the outcome of one poll and returns the resulting
// interval plus whether it differs from before the call.
//
// A changed poll resets the streak and snaps the interval back to
// base. An unchanged poll bumps the streak; when the streak reaches
// the threshold, the interval grows by the growth factor (capped at
// max) and the streak starts over — so growth fires once per
// threshold-length run of quiet polls, not on every quiet poll past
// the first threshold.
func (backoff *Backoff) Observe(changed bool) (time.Duration, bool) {
	previous := backoff.current

	if changed {
		backoff.streak = 0
		backoff.current = backoff.base
		return backoff.current, backoff.current != previous
	}

	backoff.streak++
	if backoff.streak < backoff.threshold {
		return backoff.current, false
	}

	backoff.streak = 0
	grown := time.Duration(float64(backoff.current) * backoff.growth)
	if grown > backoff.max {
		grown = backoff.max
	}
	backoff.current = grown
	return backoff.current, backoff.current != previous
}

// Reset returns the controller to its initial state: base interval,
// zero streak.
func (backoff *Backoff) Reset() {
	backoff.current = backoff.base
	backoff.streak = 0
}
