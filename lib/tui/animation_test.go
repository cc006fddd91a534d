// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"testing"
	"time"
)

func TestHeatDecay(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewHeatTracker()
	tracker.Ignite("ada", HeatArrive, start)

	if heat := tracker.Heat("ada", start); heat != 1.0 {
		t.Errorf("heat at ignition = %g, want 1.0", heat)
	}

	halfway := start.Add(HeatDecayDuration / 2)
	if heat := tracker.Heat("ada", halfway); heat != 0.5 {
		t.Errorf("heat at halfway = %g, want 0.5", heat)
	}

	cold := start.Add(HeatDecayDuration)
	if heat := tracker.Heat("ada", cold); heat != 0.0 {
		t.Errorf("heat after full decay = %g, want 0.0", heat)
	}
}

func TestHeatUnknownKey(t *testing.T) {
	tracker := NewHeatTracker()
	if heat := tracker.Heat("nobody", time.Now()); heat != 0.0 {
		t.Errorf("unknown key heat = %g, want 0.0", heat)
	}
	if kind := tracker.Kind("nobody"); kind != HeatArrive {
		t.Errorf("unknown key kind = %v, want HeatArrive", kind)
	}
}

func TestHeatReignition(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewHeatTracker()
	tracker.Ignite("ada", HeatArrive, start)

	later := start.Add(4 * time.Second)
	tracker.Ignite("ada", HeatFade, later)

	if heat := tracker.Heat("ada", later); heat != 1.0 {
		t.Errorf("re-ignition should reset heat, got %g", heat)
	}
	if kind := tracker.Kind("ada"); kind != HeatFade {
		t.Errorf("re-ignition should update kind, got %v", kind)
	}
}

func TestHasHotCollectsDecayedEntries(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewHeatTracker()
	tracker.Ignite("ada", HeatArrive, start)
	tracker.Ignite("brin", HeatFade, start.Add(3*time.Second))

	now := start.Add(6 * time.Second)
	if !tracker.HasHot(now) {
		t.Fatal("brin should still be hot")
	}
	if len(tracker.entries) != 1 {
		t.Errorf("decayed entries should be collected, have %d", len(tracker.entries))
	}

	now = start.Add(10 * time.Second)
	if tracker.HasHot(now) {
		t.Fatal("everything should have decayed")
	}
	if len(tracker.entries) != 0 {
		t.Errorf("expected empty tracker, have %d entries", len(tracker.entries))
	}
}

func TestHeatClear(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker := NewHeatTracker()
	tracker.Ignite("ada", HeatArrive, start)
	tracker.Clear()

	if tracker.Heat("ada", start) != 0.0 {
		t.Error("cleared tracker should report no heat")
	}
}
