// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package presence

// Activity tags what a realm participant is currently doing. The gate
// assigns these; the feed renders them as a badge next to the
// supporting text.
type Activity string

const (
	// ActivityUnknown is the zero value, used when the gate reports
	// a tag this build does not know. Render as plain text.
	ActivityUnknown Activity = ""

	// ActivityIdle means the participant is logged in but between
	// tasks.
	ActivityIdle Activity = "idle"

	// ActivityBattling means the participant is in combat.
	ActivityBattling Activity = "battling"

	// ActivityBuilding means the participant is placing or upgrading
	// structures.
	ActivityBuilding Activity = "building"

	// ActivityTrading means the participant is at the market.
	ActivityTrading Activity = "trading"

	// ActivityScouting means the participant is running
	// reconnaissance on another realm.
	ActivityScouting Activity = "scouting"
)

// Known reports whether the tag is one this build understands.
// Unknown tags still flow through diffing and display untouched, so
// a newer gate does not break older viewers.
func (activity Activity) Known() bool {
	switch activity {
	case ActivityIdle, ActivityBattling, ActivityBuilding, ActivityTrading, ActivityScouting:
		return true
	}
	return false
}

// Sighting is one active participant as reported by the gate.
type Sighting struct {
	// Identity is the participant's stable unique key. The gate
	// never reuses an identity for a different participant within a
	// snapshot sequence, so identity equality is participant
	// equality.
	Identity string `json:"identity"`

	// DisplayName is what the feed renders. Display names are not
	// unique and may change between polls without affecting
	// identity.
	DisplayName string `json:"display_name"`

	// Online reports whether the participant has an open session
	// right now, as opposed to recent activity in the realm.
	Online bool `json:"online"`

	// Activity tags the participant's current occupation, with
	// ActivityText as the gate-composed supporting line ("raiding
	// the eastern marches").
	Activity     Activity `json:"activity"`
	ActivityText string   `json:"activity_text,omitempty"`

	// Level is a secondary display attribute.
	Level int `json:"level"`

	// RealmOwner marks the realm's owner when they appear in the
	// feed.
	RealmOwner bool `json:"realm_owner,omitempty"`
}

// Snapshot is the gate's full answer to one presence fetch: who is
// active in the realm at this instant, plus aggregate counts.
type Snapshot struct {
	// RealmID is the realm this snapshot describes.
	RealmID string `json:"realm_id"`

	// Total and Online count the whole realm population, not just
	// the returned sightings. They stay authoritative even when the
	// sighting list is truncated by the fetch limit.
	Total  int `json:"total"`
	Online int `json:"online"`

	// Sightings is the ranked participant list, most relevant first
	// as ordered by the gate. Its length is bounded by the fetch
	// limit passed to the source, which may exceed the feed's
	// display limit.
	Sightings []Sighting `json:"sightings"`
}
