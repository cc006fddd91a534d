// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui provides shared terminal user interface pieces for
// watchtower's interactive viewers: the color theme, change-glow
// animation, and fuzzy matching for filterable lists.
//
// The feed viewer imports this package for consistent look and
// behavior; it owns its own data source, layout, and rendering. The
// pieces here are the ones a second viewer would want unchanged.
package tui
