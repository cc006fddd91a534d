// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package presence

// Delta is the outcome of comparing two consecutive snapshots.
type Delta struct {
	// Added holds the sightings whose identity appears in the new
	// snapshot but not the old one, in the gate's ranking order
	// (most relevant first).
	Added []Sighting

	// Removed holds the identities present in the old snapshot but
	// absent from the new one.
	Removed []string

	// Initial is set when there was no old snapshot. Every sighting
	// counts as added, and the applier performs a bulk replace
	// instead of trickling them in one by one.
	Initial bool

	// Changed is the staleness signal the backoff controller
	// consumes, broader than Added/Removed: it is also set when the
	// aggregate counts moved, or when a participant present in both
	// snapshots changed online state or activity. Those in-place
	// changes are not animated, but they still mean the realm is
	// live and worth polling at the base cadence.
	Changed bool
}

// Diff compares two snapshots by identity. old may be nil (first
// fetch); new must not be. Neither snapshot is modified, and the
// returned delta shares no backing arrays with either beyond the
// sighting values themselves.
func Diff(old, new *Snapshot) Delta {
	if old == nil {
		delta := Delta{Initial: true, Changed: true}
		delta.Added = append(delta.Added, new.Sightings...)
		return delta
	}

	previous := make(map[string]*Sighting, len(old.Sightings))
	for index := range old.Sightings {
		previous[old.Sightings[index].Identity] = &old.Sightings[index]
	}

	var delta Delta
	seen := make(map[string]bool, len(new.Sightings))
	for _, sighting := range new.Sightings {
		seen[sighting.Identity] = true
		before, existed := previous[sighting.Identity]
		if !existed {
			delta.Added = append(delta.Added, sighting)
			continue
		}
		if sightingChanged(before, &sighting) {
			delta.Changed = true
		}
	}
	for _, sighting := range old.Sightings {
		if !seen[sighting.Identity] {
			delta.Removed = append(delta.Removed, sighting.Identity)
		}
	}

	if len(delta.Added) > 0 || len(delta.Removed) > 0 {
		delta.Changed = true
	}
	if old.Total != new.Total || old.Online != new.Online {
		delta.Changed = true
	}
	return delta
}

// sightingChanged reports whether a participant present in both
// snapshots changed in a way that matters for staleness: online
// state or activity. Display name and level drift does not count —
// it is cosmetic and the next natural refresh picks it up.
func sightingChanged(previous, current *Sighting) bool {
	return previous.Online != current.Online ||
		previous.Activity != current.Activity ||
		previous.ActivityText != current.ActivityText
}
