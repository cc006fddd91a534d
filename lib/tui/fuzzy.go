// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"slices"
	"unicode"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

func init() {
	algo.Init("default")
}

// Slab sizes match fzf's own defaults; one slab serves any realistic
// pattern and line length without reallocation.
const (
	slab16Size = 100 * 1024
	slab32Size = 2048
)

// NewSlab allocates a reusable scratch buffer for FuzzyMatch. Keep
// one per filter loop; passing nil makes FuzzyMatch allocate per
// call, which is fine for one-off matches.
func NewSlab() *util.Slab {
	return util.MakeSlab(slab16Size, slab32Size)
}

// FuzzyResult is one fuzzy match: fzf's score and the rune positions
// of the matched characters in ascending order. A zero score means no
// match.
type FuzzyResult struct {
	Score     int
	Positions []int
}

// FuzzyMatch scores pattern against text using fzf's V2 algorithm.
// Matching is case-insensitive: the pattern is lowercased here and
// the algorithm folds the text. An empty pattern matches nothing.
func FuzzyMatch(text string, pattern []rune, slab *util.Slab) FuzzyResult {
	if len(pattern) == 0 {
		return FuzzyResult{}
	}

	lowered := make([]rune, len(pattern))
	for index, r := range pattern {
		lowered[index] = unicode.ToLower(r)
	}

	chars := util.ToChars([]byte(text))
	result, positions := algo.FuzzyMatchV2(false, true, true, &chars, lowered, true, slab)
	if result.Score <= 0 || positions == nil {
		return FuzzyResult{}
	}

	// The algorithm reports positions in backtrace order; render code
	// wants them ascending.
	matched := slices.Clone(*positions)
	slices.Sort(matched)
	return FuzzyResult{Score: result.Score, Positions: matched}
}
