// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package feedui

import (
	"slices"

	"github.com/junegunn/fzf/src/util"

	"github.com/emberhold/watchtower/lib/tui"
)

// Realm is one switchable watch target, as named in the viewer
// configuration.
type Realm struct {
	// ID is the realm identifier the gate knows.
	ID string

	// Name is the human label shown in the picker. Optional.
	Name string
}

// Label returns the display name, falling back to the ID when no name
// is configured.
func (realm Realm) Label() string {
	if realm.Name != "" {
		return realm.Name
	}
	return realm.ID
}

// pickerItem is one row of the filtered realm list: the realm plus
// the rune positions the fuzzy filter matched in its label. positions
// is nil when no filter is active.
type pickerItem struct {
	realm     Realm
	positions []int
	score     int
}

// PickerModel is the realm selection list: a type-to-filter roster of
// the configured realms. Typing narrows the list with fuzzy matching;
// the cursor moves over whatever survives the filter.
type PickerModel struct {
	realms []Realm

	// Input is the current filter query text.
	Input string

	items        []pickerItem
	cursor       int
	scrollOffset int

	// Reusable scratch buffer for the fuzzy matcher.
	slab *util.Slab
}

// NewPickerModel creates a picker over the given realm roster. The
// unfiltered list keeps the roster's order.
func NewPickerModel(realms []Realm) PickerModel {
	picker := PickerModel{
		realms: realms,
		slab:   tui.NewSlab(),
	}
	picker.apply()
	return picker
}

// Len returns the number of realms surviving the current filter.
func (picker *PickerModel) Len() int { return len(picker.items) }

// Selected returns the realm under the cursor, or false when the
// filter has emptied the list.
func (picker *PickerModel) Selected() (Realm, bool) {
	if picker.cursor < 0 || picker.cursor >= len(picker.items) {
		return Realm{}, false
	}
	return picker.items[picker.cursor].realm, true
}

// HandleRune appends a typed character to the filter and re-filters.
func (picker *PickerModel) HandleRune(character rune) {
	picker.Input += string(character)
	picker.apply()
}

// HandleBackspace removes the last character from the filter input.
// Returns true if the input changed.
func (picker *PickerModel) HandleBackspace() bool {
	if len(picker.Input) == 0 {
		return false
	}
	runes := []rune(picker.Input)
	picker.Input = string(runes[:len(runes)-1])
	picker.apply()
	return true
}

// Clear resets the filter input and restores the full roster.
func (picker *PickerModel) Clear() {
	picker.Input = ""
	picker.apply()
}

// MoveUp moves the cursor one row up, stopping at the top.
func (picker *PickerModel) MoveUp() {
	if picker.cursor > 0 {
		picker.cursor--
	}
}

// MoveDown moves the cursor one row down, stopping at the bottom.
func (picker *PickerModel) MoveDown() {
	if picker.cursor < len(picker.items)-1 {
		picker.cursor++
	}
}

// apply rebuilds the filtered item list. With no filter the roster
// passes through in order; with one, realms are fuzzy-matched against
// their labels and sorted by score, best first. The cursor snaps to
// the top so the best match is one Enter away.
func (picker *PickerModel) apply() {
	picker.items = picker.items[:0]

	if picker.Input == "" {
		for _, realm := range picker.realms {
			picker.items = append(picker.items, pickerItem{realm: realm})
		}
	} else {
		pattern := []rune(picker.Input)
		for _, realm := range picker.realms {
			result := tui.FuzzyMatch(realm.Label(), pattern, picker.slab)
			if result.Score <= 0 {
				continue
			}
			picker.items = append(picker.items, pickerItem{
				realm:     realm,
				positions: result.Positions,
				score:     result.Score,
			})
		}
		slices.SortStableFunc(picker.items, func(a, b pickerItem) int {
			return b.score - a.score
		})
	}

	picker.cursor = 0
	picker.scrollOffset = 0
}

// clampScroll adjusts scrollOffset so the cursor stays within a
// window of the given height.
func (picker *PickerModel) clampScroll(visible int) {
	if visible <= 0 {
		return
	}
	maxOffset := len(picker.items) - visible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if picker.scrollOffset > maxOffset {
		picker.scrollOffset = maxOffset
	}
	if picker.cursor < picker.scrollOffset {
		picker.scrollOffset = picker.cursor
	}
	if picker.cursor >= picker.scrollOffset+visible {
		picker.scrollOffset = picker.cursor - visible + 1
	}
}
