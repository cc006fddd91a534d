// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

// Package feedui implements the terminal presence feed viewer.
//
// The viewer renders one realm's live feed: who is active right now,
// what they are doing, and the realm-wide headcount. A synchronizer
// (package presence) keeps the feed fresh; the viewer subscribes to
// its event stream and repaints as sightings trickle in, with a brief
// glow on rows that just changed.
//
// Besides the feed itself there is a realm picker: a full-screen
// fuzzy-filtered list of the configured realms, for moving the watch
// from one realm to another without restarting the program.
package feedui
