// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"slices"
	"testing"
)

func TestFuzzyMatchBasic(t *testing.T) {
	result := FuzzyMatch("Verdant Reach", []rune("reach"), nil)
	if result.Score <= 0 {
		t.Fatal("expected positive score for substring match")
	}
	if len(result.Positions) == 0 {
		t.Fatal("expected non-empty match positions")
	}
}

func TestFuzzyMatchNonContiguous(t *testing.T) {
	// "vrch" should match "Verdant Reach" — v from Verdant, r/c/h
	// from Reach.
	result := FuzzyMatch("Verdant Reach", []rune("vrch"), nil)
	if result.Score <= 0 {
		t.Fatal("expected positive score for non-contiguous fuzzy match")
	}
}

func TestFuzzyMatchNoMatch(t *testing.T) {
	result := FuzzyMatch("Verdant Reach", []rune("xyz"), nil)
	if result.Score != 0 {
		t.Errorf("expected zero score for no match, got %d", result.Score)
	}
	if len(result.Positions) != 0 {
		t.Errorf("expected empty positions for no match, got %v", result.Positions)
	}
}

func TestFuzzyMatchCaseInsensitive(t *testing.T) {
	result := FuzzyMatch("FOG-CRYPT", []rune("fog"), nil)
	if result.Score <= 0 {
		t.Fatalf("expected case-insensitive match, got score=%d", result.Score)
	}

	result = FuzzyMatch("fog-crypt", []rune("FOG"), nil)
	if result.Score <= 0 {
		t.Fatalf("expected uppercase pattern to match, got score=%d", result.Score)
	}
}

func TestFuzzyMatchEmptyPattern(t *testing.T) {
	result := FuzzyMatch("anything", []rune{}, nil)
	if result.Score != 0 {
		t.Errorf("expected zero score for empty pattern, got %d", result.Score)
	}
}

func TestFuzzyMatchPositionsAscending(t *testing.T) {
	result := FuzzyMatch("Verdant Reach", []rune("vrch"), nil)
	if result.Score <= 0 {
		t.Fatal("expected a match")
	}
	if !slices.IsSorted(result.Positions) {
		t.Errorf("positions should be ascending, got %v", result.Positions)
	}
	for _, position := range result.Positions {
		if position < 0 || position >= len([]rune("Verdant Reach")) {
			t.Errorf("position %d out of bounds", position)
		}
	}
}

func TestFuzzyMatchReusableSlab(t *testing.T) {
	slab := NewSlab()
	first := FuzzyMatch("Verdant Reach", []rune("reach"), slab)
	second := FuzzyMatch("Ashen Hold", []rune("hold"), slab)
	if first.Score <= 0 || second.Score <= 0 {
		t.Fatalf("slab reuse broke matching: %d, %d", first.Score, second.Score)
	}
}

func TestFuzzyMatchPrefersTighterMatch(t *testing.T) {
	pattern := []rune("fog")
	tight := FuzzyMatch("fog-crypt", pattern, nil)
	scattered := FuzzyMatch("frozen orchard gate", pattern, nil)
	if tight.Score <= scattered.Score {
		t.Errorf("contiguous match should outscore scattered one: %d vs %d",
			tight.Score, scattered.Score)
	}
}
