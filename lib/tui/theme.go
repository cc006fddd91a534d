// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/emberhold/watchtower/presence"
)

// Theme defines the color palette for watchtower's terminal UIs. All
// colors use lipgloss ANSI 256-color codes for broad terminal
// compatibility.
//
// The fields cover universal chrome (text, selection, borders) and
// the semantic categories of a presence feed: session state, activity
// tags, and the realm owner accent.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected row (picker cursor).
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Session state indicators.
	OnlineDot  lipgloss.Color
	OfflineDot lipgloss.Color

	// Activity tag colors.
	ActivityIdle     lipgloss.Color
	ActivityBattling lipgloss.Color
	ActivityBuilding lipgloss.Color
	ActivityTrading  lipgloss.Color
	ActivityScouting lipgloss.Color

	// OwnerAccent marks the realm owner's row.
	OwnerAccent lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// Alert states: the access-denied banner and fetch-failure note.
	DeniedForeground lipgloss.Color
	ErrorForeground  lipgloss.Color

	// Animation accents: background tint for recently-changed rows.
	// HotAccentArrive is used for sightings that just entered the
	// feed; HotAccentFade for sightings whose session just closed.
	HotAccentArrive lipgloss.Color
	HotAccentFade   lipgloss.Color

	// MatchBackground tints the characters a picker filter matched.
	MatchBackground lipgloss.Color
}

// ActivityColor returns the color for an activity tag. Unknown tags
// render in FaintText, same as no tag.
func (theme Theme) ActivityColor(activity presence.Activity) lipgloss.Color {
	switch activity {
	case presence.ActivityIdle:
		return theme.ActivityIdle
	case presence.ActivityBattling:
		return theme.ActivityBattling
	case presence.ActivityBuilding:
		return theme.ActivityBuilding
	case presence.ActivityTrading:
		return theme.ActivityTrading
	case presence.ActivityScouting:
		return theme.ActivityScouting
	default:
		return theme.FaintText
	}
}

// HotAccent returns the background tint for a heat kind.
func (theme Theme) HotAccent(kind HeatKind) lipgloss.Color {
	if kind == HeatFade {
		return theme.HotAccentFade
	}
	return theme.HotAccentArrive
}

// DefaultTheme is the built-in dark-terminal color scheme. Designed
// for 256-color terminals with a dark background.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	SelectedBackground: lipgloss.Color("236"),
	SelectedForeground: lipgloss.Color("255"),

	OnlineDot:  lipgloss.Color("114"), // green
	OfflineDot: lipgloss.Color("240"), // dim gray

	ActivityIdle:     lipgloss.Color("245"), // gray
	ActivityBattling: lipgloss.Color("196"), // bright red
	ActivityBuilding: lipgloss.Color("208"), // orange
	ActivityTrading:  lipgloss.Color("220"), // gold
	ActivityScouting: lipgloss.Color("75"),  // blue

	OwnerAccent: lipgloss.Color("220"), // gold crown

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	DeniedForeground: lipgloss.Color("208"), // orange warning
	ErrorForeground:  lipgloss.Color("196"), // red

	HotAccentArrive: lipgloss.Color("58"), // dark amber background tint
	HotAccentFade:   lipgloss.Color("52"), // dark red background tint

	MatchBackground: lipgloss.Color("58"), // dark amber, matches arrive tint
}
