// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import (
	"sync/atomic"
	"time"
)

// Event kinds delivered on the Subscribe channel.
const (
	// EventPoll fires once per completed poll cycle, successful or
	// not; Outcome says which.
	EventPoll = "poll"

	// EventFeed fires whenever the feed contents change: the bulk
	// load, each trickled insertion, and the clear on access loss.
	EventFeed = "feed"

	// EventInterval fires when the poll interval grows or resets;
	// Interval carries the new value.
	EventInterval = "interval"

	// EventAccess fires when the locked state flips; Denied carries
	// the new state.
	EventAccess = "access"
)

// Poll outcomes carried by EventPoll events.
const (
	// OutcomeChanged: the fetch succeeded and the realm moved —
	// arrivals, departures, count drift, or activity changes.
	OutcomeChanged = "changed"

	// OutcomeUnchanged: the fetch succeeded and nothing moved.
	OutcomeUnchanged = "unchanged"

	// OutcomeFailed: the fetch failed transiently. Invisible to the
	// feed; counts as unchanged for cadence purposes.
	OutcomeFailed = "failed"

	// OutcomeDenied: the gate refused visibility into the realm.
	OutcomeDenied = "denied"
)

// Event is one observable synchronizer transition, published to
// subscribers for live UIs and for verifying cadence behavior from
// outside. Fields beyond Kind and Realm are populated per kind.
type Event struct {
	Kind  string
	Realm string

	// Outcome is set on EventPoll events.
	Outcome string

	// Interval is set on EventInterval events: the interval the next
	// poll will be scheduled at.
	Interval time.Duration

	// Denied is set on EventAccess events: true when the realm just
	// locked, false when a successful fetch unlocked it.
	Denied bool
}

// Stats are point-in-time counters of everything the synchronizer has
// done since creation. Counters survive Stop/Start cycles.
type Stats struct {
	// PollsFired counts completed poll cycles, including failed
	// ones.
	PollsFired uint64

	// PollsSkipped counts refresh requests dropped because a cycle
	// was already in flight.
	PollsSkipped uint64

	// ChangedPolls and UnchangedPolls split successful cycles by
	// whether the diff reported movement.
	ChangedPolls   uint64
	UnchangedPolls uint64

	// TransientFailures counts fetch errors that were swallowed;
	// DeniedPolls counts access refusals.
	TransientFailures uint64
	DeniedPolls       uint64

	// IntervalGrowths and IntervalResets count cadence transitions:
	// growth steps taken after idle runs, and snaps back to the base
	// interval on a changed poll.
	IntervalGrowths uint64
	IntervalResets  uint64

	// SightingsTrickled counts individual insertions applied by the
	// trickle path (bulk loads not included).
	SightingsTrickled uint64
}

// counters is the synchronizer-internal atomic backing for Stats.
// Atomics, not a mutex: counts are bumped from the poll goroutine
// while Stats() reads from anywhere.
type counters struct {
	pollsFired        atomic.Uint64
	pollsSkipped      atomic.Uint64
	changedPolls      atomic.Uint64
	unchangedPolls    atomic.Uint64
	transientFailures atomic.Uint64
	deniedPolls       atomic.Uint64
	intervalGrowths   atomic.Uint64
	intervalResets    atomic.Uint64
	sightingsTrickled atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		PollsFired:        c.pollsFired.Load(),
		PollsSkipped:      c.pollsSkipped.Load(),
		ChangedPolls:      c.changedPolls.Load(),
		UnchangedPolls:    c.unchangedPolls.Load(),
		TransientFailures: c.transientFailures.Load(),
		DeniedPolls:       c.deniedPolls.Load(),
		IntervalGrowths:   c.intervalGrowths.Load(),
		IntervalResets:    c.intervalResets.Load(),
		SightingsTrickled: c.sightingsTrickled.Load(),
	}
}
