// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package feedui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the feed viewer TUI.
type KeyMap struct {
	// Feed mode.
	Refresh   key.Binding // Request an immediate poll.
	PickRealm key.Binding // Open the realm picker.

	// Picker mode. The picker is type-to-filter, so plain letters go
	// to the filter input and navigation uses arrows and control keys.
	Up      key.Binding
	Down    key.Binding
	Select  key.Binding // Watch the realm under the cursor.
	Dismiss key.Binding // Clear the filter, or close the picker.

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	PickRealm: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "realms"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "ctrl+p"),
		key.WithHelp("↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "ctrl+n"),
		key.WithHelp("↓", "down"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "watch"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "back"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
