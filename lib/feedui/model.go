// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package feedui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/emberhold/watchtower/lib/tui"
	"github.com/emberhold/watchtower/presence"
)

// Mode selects which screen the viewer is showing.
type Mode int

const (
	// ModeFeed is the live presence feed, the default screen.
	ModeFeed Mode = iota

	// ModePicker is the full-screen realm selection list.
	ModePicker
)

// Feed column sizing. The name column stretches with the widest name
// in the feed between these bounds; the badge column fits the longest
// built-in activity tag.
const (
	nameColumnMin    = 12
	nameColumnMax    = 24
	badgeColumnWidth = 8
	levelColumnWidth = 4
)

// sourceEventMsg wraps a synchronizer event for delivery through the
// bubbletea message loop.
type sourceEventMsg struct {
	event presence.Event
}

// heatTickMsg is sent periodically to drive the heat decay animation.
// While any rows are hot, a new tick is scheduled after each one.
type heatTickMsg struct{}

// realmSwitchedMsg is sent when an asynchronous realm switch
// completes. The stop/start pair runs as a command because Stop
// blocks until the in-flight poll drains.
type realmSwitchedMsg struct {
	realmID string
	err     error
}

// Model is the top-level bubbletea model for the feed viewer.
type Model struct {
	source Source
	theme  tui.Theme
	keys   KeyMap
	realms []Realm

	// Terminal dimensions (set by WindowSizeMsg).
	width  int
	height int
	ready  bool

	mode Mode

	// view is the latest read model pulled from the source. Refreshed
	// on every source event and after a realm switch.
	view presence.View

	// gateUnreachable mirrors the outcome of the most recent poll:
	// set when it failed transiently, cleared by any completed fetch.
	// The feed keeps showing its last good contents either way.
	gateUnreachable bool

	// Realm switching. switching blocks a second switch from starting
	// while the stop/start command is in flight; startError is shown
	// in the help bar when a switch failed.
	switching  bool
	startError string

	picker PickerModel

	// Live update animation.
	heat         *tui.HeatTracker
	eventChannel <-chan presence.Event
	tickRunning  bool
}

// NewModel creates a Model over the given source and realm roster.
// The roster feeds the picker; an empty roster disables it.
func NewModel(source Source, realms []Realm) Model {
	return Model{
		source:       source,
		theme:        tui.DefaultTheme,
		keys:         DefaultKeyMap,
		realms:       realms,
		view:         source.View(),
		picker:       NewPickerModel(realms),
		heat:         tui.NewHeatTracker(),
		eventChannel: source.Subscribe(),
	}
}

// Init implements tea.Model. Starts listening for source events.
func (model Model) Init() tea.Cmd {
	if model.eventChannel == nil {
		return nil
	}
	return listenForSourceEvent(model.eventChannel)
}

// listenForSourceEvent returns a tea.Cmd that blocks until an event
// arrives on the source channel, then delivers it as a sourceEventMsg.
func listenForSourceEvent(channel <-chan presence.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-channel
		if !ok {
			return nil
		}
		return sourceEventMsg{event: event}
	}
}

// Update implements tea.Model. Routes keyboard events by mode and
// handles source events, animation ticks, and layout changes.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		if model.mode == ModePicker {
			return model.handlePickerKeys(message)
		}
		return model.handleFeedKeys(message)

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.picker.clampScroll(model.pickerVisibleHeight())
		return model, nil

	case sourceEventMsg:
		return model.handleSourceEvent(message)

	case heatTickMsg:
		return model.handleHeatTick()

	case realmSwitchedMsg:
		return model.handleRealmSwitched(message)
	}

	return model, nil
}

// handleFeedKeys processes keystrokes on the feed screen.
func (model Model) handleFeedKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.Refresh):
		model.source.Refresh()

	case key.Matches(message, model.keys.PickRealm):
		if len(model.realms) > 0 {
			model.picker.Clear()
			model.picker.clampScroll(model.pickerVisibleHeight())
			model.mode = ModePicker
		}
	}
	return model, nil
}

// handlePickerKeys processes keystrokes on the realm picker. The
// picker is type-to-filter, so plain characters (q included) go to
// the filter input; only ctrl+c quits from here.
func (model Model) handlePickerKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case message.String() == "ctrl+c":
		return model, tea.Quit

	case key.Matches(message, model.keys.Dismiss):
		// Esc: with filter text, clear it; with none, close the picker.
		if model.picker.Input != "" {
			model.picker.Clear()
		} else {
			model.mode = ModeFeed
		}

	case key.Matches(message, model.keys.Select):
		return model.watchSelected()

	case key.Matches(message, model.keys.Up):
		model.picker.MoveUp()

	case key.Matches(message, model.keys.Down):
		model.picker.MoveDown()

	case message.Type == tea.KeyBackspace:
		model.picker.HandleBackspace()

	case message.Type == tea.KeyRunes:
		for _, character := range message.Runes {
			model.picker.HandleRune(character)
		}
	}

	model.picker.clampScroll(model.pickerVisibleHeight())
	return model, nil
}

// watchSelected moves the watch to the realm under the picker cursor.
// Selecting the realm already being watched just closes the picker.
func (model Model) watchSelected() (tea.Model, tea.Cmd) {
	realm, ok := model.picker.Selected()
	if !ok {
		return model, nil
	}
	model.mode = ModeFeed
	if model.switching || (realm.ID == model.view.RealmID && model.view.Running) {
		return model, nil
	}
	model.switching = true
	model.startError = ""
	return model, switchRealmCmd(model.source, realm.ID)
}

// switchRealmCmd stops the source and restarts it on another realm.
// Runs as a command because Stop blocks until the poll loop, trickle
// included, has drained.
func switchRealmCmd(source Source, realmID string) tea.Cmd {
	return func() tea.Msg {
		source.Stop()
		err := source.Start(realmID)
		return realmSwitchedMsg{realmID: realmID, err: err}
	}
}

// handleRealmSwitched finalizes a realm switch: the glow state from
// the previous realm is dropped and the view re-read so the feed
// shows the new realm's loading state.
func (model Model) handleRealmSwitched(message realmSwitchedMsg) (tea.Model, tea.Cmd) {
	model.switching = false
	model.gateUnreachable = false
	model.startError = ""
	if message.err != nil {
		model.startError = message.err.Error()
	}
	model.heat.Clear()
	model.view = model.source.View()
	return model, nil
}

// handleSourceEvent processes a live event from the synchronizer:
// re-reads the view, ignites the glow for rows that moved, and keeps
// the animation tick running while anything is hot.
func (model Model) handleSourceEvent(message sourceEventMsg) (tea.Model, tea.Cmd) {
	event := message.event
	now := time.Now()

	next := model.source.View()
	switch event.Kind {
	case presence.EventFeed:
		model.igniteChanges(model.view, next, now)
	case presence.EventPoll:
		model.gateUnreachable = event.Outcome == presence.OutcomeFailed
	}
	model.view = next

	commands := []tea.Cmd{listenForSourceEvent(model.eventChannel)}
	if !model.tickRunning && model.heat.HasHot(now) {
		model.tickRunning = true
		commands = append(commands, scheduleHeatTick())
	}
	return model, tea.Batch(commands...)
}

// igniteChanges lights the glow for rows that moved between two
// consecutive views: arrivals glow amber, sessions that just closed
// glow red. The first load after a start is exempt — a whole feed
// arriving at once is not an arrival burst.
func (model *Model) igniteChanges(previous, next presence.View, now time.Time) {
	if !previous.Initialized || previous.RealmID != next.RealmID {
		return
	}

	before := make(map[string]presence.Sighting, len(previous.Sightings))
	for _, sighting := range previous.Sightings {
		before[sighting.Identity] = sighting
	}

	for _, sighting := range next.Sightings {
		earlier, seen := before[sighting.Identity]
		if !seen {
			model.heat.Ignite(sighting.Identity, tui.HeatArrive, now)
			continue
		}
		if earlier.Online && !sighting.Online {
			model.heat.Ignite(sighting.Identity, tui.HeatFade, now)
		}
	}
}

// handleHeatTick processes a heat animation tick. If any rows are
// still hot, schedules another tick; otherwise stops the timer.
func (model Model) handleHeatTick() (tea.Model, tea.Cmd) {
	if model.heat.HasHot(time.Now()) {
		return model, scheduleHeatTick()
	}
	model.tickRunning = false
	return model, nil
}

// scheduleHeatTick returns a tea.Cmd that sends a heatTickMsg after
// the animation tick interval.
func scheduleHeatTick() tea.Cmd {
	return tea.Tick(tui.HeatTickInterval, func(time.Time) tea.Msg {
		return heatTickMsg{}
	})
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "Loading..."
	}
	if model.mode == ModePicker {
		return model.renderPicker()
	}
	return model.renderFeed()
}

// renderFeed renders the feed screen: header rule, sighting rows,
// separator, help bar.
func (model Model) renderFeed() string {
	separator := lipgloss.NewStyle().
		Foreground(model.theme.BorderColor).
		Render(strings.Repeat("─", model.width))

	sections := []string{
		model.renderHeader(),
		model.renderFeedBody(),
		separator,
		model.renderHelp(),
	}
	return strings.Join(sections, "\n")
}

// renderRule renders a btop-style horizontal rule with a title
// embedded on the left and a stats fragment on the right:
//
//	─── Verdant Reach ──────────────── 4 online  7 in realm ─
func (model Model) renderRule(title, stats string, statsStyle lipgloss.Style) string {
	separatorStyle := lipgloss.NewStyle().Foreground(model.theme.BorderColor)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground)

	left := separatorStyle.Render("───") + " " + titleStyle.Render(title) + " "
	leftWidth := 3 + 1 + ansi.StringWidth(title) + 1

	rightWidth := 1 + ansi.StringWidth(stats) + 1 + 1
	fillCount := model.width - leftWidth - rightWidth
	if fillCount < 1 {
		fillCount = 1
	}
	fill := separatorStyle.Render(strings.Repeat("─", fillCount))

	return left + fill + " " + statsStyle.Render(stats) + " " + separatorStyle.Render("─")
}

// renderHeader renders the feed header: the realm name embedded in a
// rule, with the realm-wide counts and poll cadence on the right.
func (model Model) renderHeader() string {
	title := model.realmLabel()
	if title == "" {
		title = "no realm"
	}

	statsStyle := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	var stats string
	switch {
	case model.switching:
		stats = "switching realm"
	case model.view.AccessDenied:
		statsStyle = lipgloss.NewStyle().Foreground(model.theme.DeniedForeground).Bold(true)
		stats = "locked"
	case !model.view.Initialized:
		stats = "contacting the gate"
	default:
		stats = fmt.Sprintf("%d online  %d in realm  every %s",
			model.view.Online, model.view.Total, model.view.Interval)
		if model.view.UnchangedStreak > 0 {
			// Quiet streak: nothing has moved for this many polls.
			// It explains a stretched cadence at a glance.
			stats += fmt.Sprintf("  quiet ×%d", model.view.UnchangedStreak)
		}
	}

	return model.renderRule(title, stats, statsStyle)
}

// realmLabel returns the configured display name for the watched
// realm, falling back to the raw realm ID.
func (model Model) realmLabel() string {
	for _, realm := range model.realms {
		if realm.ID == model.view.RealmID {
			return realm.Label()
		}
	}
	return model.view.RealmID
}

// renderFeedBody renders the sighting rows, or a centered notice when
// the realm is locked, still loading, or empty.
func (model Model) renderFeedBody() string {
	visible := model.visibleHeight()
	if visible < 0 {
		visible = 0
	}

	faintStyle := lipgloss.NewStyle().Foreground(model.theme.FaintText)

	switch {
	case model.view.AccessDenied:
		deniedStyle := lipgloss.NewStyle().Foreground(model.theme.DeniedForeground).Bold(true)
		return model.renderNotice(visible,
			deniedStyle.Render("⚠ this realm is locked"),
			faintStyle.Render("the gate requires a scouting report before it shares presence"),
		)

	case !model.view.Initialized:
		return model.renderNotice(visible, faintStyle.Render("contacting the gate…"))

	case len(model.view.Sightings) == 0:
		return model.renderNotice(visible, faintStyle.Render("no one is active in this realm"))
	}

	now := time.Now()
	nameWidth := model.nameColumnWidth()

	var rows []string
	for index := 0; index < len(model.view.Sightings) && index < visible; index++ {
		sighting := model.view.Sightings[index]
		row := model.renderSightingRow(sighting, nameWidth)
		// Apply heat tint for rows that just changed.
		if heat := model.heat.Heat(sighting.Identity, now); heat > 0 {
			accentColor := model.theme.HotAccent(model.heat.Kind(sighting.Identity))
			row = lipgloss.NewStyle().
				Background(accentColor).
				Width(model.width).
				MaxWidth(model.width).
				Render(row)
		}
		rows = append(rows, row)
	}

	// Pad empty rows so the bottom chrome stays put.
	emptyStyle := lipgloss.NewStyle().Width(model.width)
	for len(rows) < visible {
		rows = append(rows, emptyStyle.Render(""))
	}
	return strings.Join(rows, "\n")
}

// renderNotice centers pre-styled lines in the feed area.
func (model Model) renderNotice(visible int, lines ...string) string {
	return lipgloss.Place(
		model.width, visible,
		lipgloss.Center, lipgloss.Center,
		strings.Join(lines, "\n"),
	)
}

// renderSightingRow renders one feed row: session dot, name, activity
// badge, activity text, and the level at the right edge.
func (model Model) renderSightingRow(sighting presence.Sighting, nameWidth int) string {
	dot := "●"
	dotColor := model.theme.OnlineDot
	if !sighting.Online {
		dot = "○"
		dotColor = model.theme.OfflineDot
	}
	dotStyle := lipgloss.NewStyle().Foreground(dotColor)

	name := displayName(sighting)
	nameStyle := lipgloss.NewStyle().Foreground(model.theme.NormalText)
	if sighting.RealmOwner {
		name = "♛ " + name
		nameStyle = lipgloss.NewStyle().Foreground(model.theme.OwnerAccent).Bold(true)
	}
	name = truncate(name, nameWidth)

	badge := truncate(string(sighting.Activity), badgeColumnWidth)
	badgeStyle := lipgloss.NewStyle().Foreground(model.theme.ActivityColor(sighting.Activity))

	level := fmt.Sprintf("L%d", sighting.Level)
	levelStyle := lipgloss.NewStyle().Foreground(model.theme.FaintText)

	textStyle := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	textAvailable := model.width - 3 - nameWidth - 2 - badgeColumnWidth - 2 - levelColumnWidth - 1
	text := ""
	if textAvailable > 0 {
		text = truncate(sighting.ActivityText, textAvailable)
	}

	gap := model.width - 3 - nameWidth - 2 - badgeColumnWidth - 2 -
		ansi.StringWidth(text) - ansi.StringWidth(level) - 1
	if gap < 1 {
		gap = 1
	}

	row := " " + dotStyle.Render(dot) + " " +
		nameStyle.Width(nameWidth).Render(name) + "  " +
		badgeStyle.Width(badgeColumnWidth).Render(badge) + "  " +
		textStyle.Render(text) +
		strings.Repeat(" ", gap) +
		levelStyle.Render(level)

	// Narrow terminals can push the math past the edge; clip rather
	// than wrap.
	return lipgloss.NewStyle().MaxWidth(model.width).Render(row)
}

// nameColumnWidth sizes the name column to the widest name currently
// in the feed, within bounds, so columns stay aligned as sightings
// churn.
func (model Model) nameColumnWidth() int {
	width := nameColumnMin
	for _, sighting := range model.view.Sightings {
		name := displayName(sighting)
		if sighting.RealmOwner {
			name = "♛ " + name
		}
		if nameLen := ansi.StringWidth(name); nameLen > width {
			width = nameLen
		}
	}
	if width > nameColumnMax {
		width = nameColumnMax
	}
	return width
}

// displayName returns the feed label for a sighting: the display
// name, or the identity when the gate sent none.
func displayName(sighting presence.Sighting) string {
	if sighting.DisplayName != "" {
		return sighting.DisplayName
	}
	return sighting.Identity
}

// visibleHeight returns the number of feed rows that fit between the
// header rule and the bottom chrome (separator plus help bar).
func (model Model) visibleHeight() int {
	return model.height - 3
}

// renderHelp renders the bottom help bar with key hints and any
// active notices.
func (model Model) renderHelp() string {
	style := lipgloss.NewStyle().Foreground(model.theme.HelpText)
	help := " [FEED] q quit  r refresh  p realms"

	if model.gateUnreachable {
		errorStyle := lipgloss.NewStyle().
			Foreground(model.theme.ErrorForeground).
			Bold(true)
		help += "  " + errorStyle.Render("gate unreachable")
	}
	if model.startError != "" {
		errorStyle := lipgloss.NewStyle().
			Foreground(model.theme.ErrorForeground).
			Bold(true)
		help += "  " + errorStyle.Render("Error: "+model.startError)
	}

	return style.Render(help)
}

// pickerVisibleHeight returns the number of realm rows that fit
// between the picker chrome: header rule, filter line, separator,
// help bar.
func (model Model) pickerVisibleHeight() int {
	return model.height - 4
}

// renderPicker renders the realm picker screen.
func (model Model) renderPicker() string {
	statsStyle := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	stats := fmt.Sprintf("%d of %d realms", model.picker.Len(), len(model.realms))

	visible := model.pickerVisibleHeight()
	if visible < 0 {
		visible = 0
	}

	var rows []string
	if model.picker.Len() == 0 {
		faintStyle := lipgloss.NewStyle().Foreground(model.theme.FaintText)
		rows = append(rows, faintStyle.Render("  no realm matches"))
	}
	for index := model.picker.scrollOffset; index < model.picker.scrollOffset+visible && index < len(model.picker.items); index++ {
		rows = append(rows, model.renderRealmRow(model.picker.items[index], index == model.picker.cursor))
	}
	emptyStyle := lipgloss.NewStyle().Width(model.width)
	for len(rows) < visible {
		rows = append(rows, emptyStyle.Render(""))
	}

	separator := lipgloss.NewStyle().
		Foreground(model.theme.BorderColor).
		Render(strings.Repeat("─", model.width))

	help := " [PICK] ↑↓ move  Enter watch  Esc back"
	if model.picker.Len() > 0 {
		help += fmt.Sprintf("  %d/%d", model.picker.cursor+1, model.picker.Len())
	}
	helpStyle := lipgloss.NewStyle().Foreground(model.theme.HelpText)

	sections := []string{
		model.renderRule("choose a realm", stats, statsStyle),
		model.renderPickerFilter(),
		strings.Join(rows, "\n"),
		separator,
		helpStyle.Render(help),
	}
	return strings.Join(sections, "\n")
}

// renderPickerFilter renders the type-to-filter input line. The
// picker is always in input mode, so the cursor block is always
// shown; an empty input gets a hint instead of bare whitespace.
func (model Model) renderPickerFilter() string {
	style := lipgloss.NewStyle().Foreground(model.theme.NormalText).Width(model.width)
	cursor := lipgloss.NewStyle().
		Foreground(model.theme.HeaderForeground).
		Bold(true).
		Render("▎")

	if model.picker.Input == "" {
		hint := lipgloss.NewStyle().Foreground(model.theme.FaintText).Render("type to filter")
		return style.Render(" / " + cursor + " " + hint)
	}
	return style.Render(" / " + model.picker.Input + cursor)
}

// renderRealmRow renders one picker row: the realm label with any
// filter-matched runes tinted, and the realm ID as a dim suffix when
// it differs from the label.
func (model Model) renderRealmRow(item pickerItem, selected bool) string {
	label := item.realm.Label()
	suffix := ""
	if item.realm.Name != "" && item.realm.ID != item.realm.Name {
		suffix = "  " + item.realm.ID
	}

	baseStyle := lipgloss.NewStyle().Foreground(model.theme.NormalText)
	suffixStyle := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	matchStyle := lipgloss.NewStyle().
		Foreground(model.theme.NormalText).
		Background(model.theme.MatchBackground)
	if selected {
		baseStyle = lipgloss.NewStyle().
			Foreground(model.theme.SelectedForeground).
			Background(model.theme.SelectedBackground)
		suffixStyle = baseStyle
		// On the selection background the match tint would vanish, so
		// matched runes get bold+underline instead.
		matchStyle = baseStyle.Bold(true).Underline(true)
	}

	content := " " + highlightLabel(label, item.positions, baseStyle, matchStyle) +
		suffixStyle.Render(suffix)

	rowStyle := lipgloss.NewStyle().Width(model.width).MaxWidth(model.width)
	if selected {
		rowStyle = rowStyle.Background(model.theme.SelectedBackground)
	}
	return rowStyle.Render(content)
}

// highlightLabel renders a realm label with the filter-matched runes
// tinted. Runs of same-style runes are batched into single Render
// calls to keep the ANSI output compact.
func highlightLabel(label string, positions []int, baseStyle, matchStyle lipgloss.Style) string {
	if len(positions) == 0 {
		return baseStyle.Render(label)
	}

	positionSet := make(map[int]bool, len(positions))
	for _, position := range positions {
		positionSet[position] = true
	}

	runes := []rune(label)
	var result strings.Builder
	runStart := 0
	isMatched := positionSet[0]
	for index := 1; index <= len(runes); index++ {
		currentMatched := index < len(runes) && positionSet[index]
		if currentMatched != isMatched || index == len(runes) {
			chunk := string(runes[runStart:index])
			if isMatched {
				result.WriteString(matchStyle.Render(chunk))
			} else {
				result.WriteString(baseStyle.Render(chunk))
			}
			runStart = index
			isMatched = currentMatched
		}
	}
	return result.String()
}

// truncate cuts text to fit maxWidth visual columns, appending an
// ellipsis when anything was cut.
func truncate(text string, maxWidth int) string {
	if ansi.StringWidth(text) <= maxWidth {
		return text
	}
	if maxWidth < 1 {
		return ""
	}
	runes := []rune(text)
	for length := len(runes) - 1; length > 0; length-- {
		candidate := string(runes[:length]) + "…"
		if ansi.StringWidth(candidate) <= maxWidth {
			return candidate
		}
	}
	return "…"
}
