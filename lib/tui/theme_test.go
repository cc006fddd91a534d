// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"testing"

	"github.com/emberhold/watchtower/presence"
)

func TestActivityColor(t *testing.T) {
	theme := DefaultTheme

	tests := []struct {
		activity presence.Activity
		want     string
	}{
		{presence.ActivityIdle, string(theme.ActivityIdle)},
		{presence.ActivityBattling, string(theme.ActivityBattling)},
		{presence.ActivityBuilding, string(theme.ActivityBuilding)},
		{presence.ActivityTrading, string(theme.ActivityTrading)},
		{presence.ActivityScouting, string(theme.ActivityScouting)},
		{presence.ActivityUnknown, string(theme.FaintText)},
		{presence.Activity("dueling"), string(theme.FaintText)},
	}
	for _, tt := range tests {
		if got := theme.ActivityColor(tt.activity); string(got) != tt.want {
			t.Errorf("ActivityColor(%q) = %s, want %s", tt.activity, got, tt.want)
		}
	}
}

func TestHotAccent(t *testing.T) {
	theme := DefaultTheme
	if got := theme.HotAccent(HeatArrive); got != theme.HotAccentArrive {
		t.Errorf("HotAccent(HeatArrive) = %s, want arrive tint", got)
	}
	if got := theme.HotAccent(HeatFade); got != theme.HotAccentFade {
		t.Errorf("HotAccent(HeatFade) = %s, want fade tint", got)
	}
}
