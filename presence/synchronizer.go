// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/emberhold/watchtower/lib/clock"
)

// Feed and trickle defaults. The fetch asks for FetchSlack sightings
// beyond the display limit so that a burst of arrivals has real
// entries to trickle in rather than re-showing evicted ones.
const (
	DefaultDisplayLimit = 5
	DefaultFetchSlack   = 5
	DefaultTrickleDelay = 600 * time.Millisecond
	DefaultEventBuffer  = 16
)

// Options configures a Synchronizer. Zero fields take the defaults
// documented per field, so callers set only what they need.
type Options struct {
	// Source fetches realm snapshots. Required.
	Source Source

	// Logger receives the synchronizer's structured records.
	// Default: slog.Default().
	Logger *slog.Logger

	// Clock drives the poll timer and trickle delays. Default:
	// clock.Real(). Tests inject clock.Fake.
	Clock clock.Clock

	// DisplayLimit caps the feed length. Default 5.
	DisplayLimit int

	// FetchSlack is how many sightings beyond DisplayLimit each
	// fetch requests. Default 5.
	FetchSlack int

	// BaseInterval and MaxInterval bound the poll cadence;
	// GrowthFactor stretches the interval after each IdleThreshold
	// consecutive quiet polls. Defaults 5s, 15s, 1.5, and 3.
	BaseInterval  time.Duration
	MaxInterval   time.Duration
	GrowthFactor  float64
	IdleThreshold int

	// TrickleDelay is the pause between consecutive feed
	// insertions, giving the UI room to animate one arrival at a
	// time. Default 600ms.
	TrickleDelay time.Duration

	// FetchTimeout bounds a single fetch with a deadline context on
	// top of whatever the transport enforces. Zero leaves the bound
	// entirely to the transport.
	FetchTimeout time.Duration

	// EventBuffer is the capacity of each Subscribe channel.
	// Default 16.
	EventBuffer int
}

func (options *Options) defaults() {
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.DisplayLimit == 0 {
		options.DisplayLimit = DefaultDisplayLimit
	}
	if options.FetchSlack == 0 {
		options.FetchSlack = DefaultFetchSlack
	}
	if options.BaseInterval == 0 {
		options.BaseInterval = DefaultBaseInterval
	}
	if options.MaxInterval == 0 {
		options.MaxInterval = DefaultMaxInterval
	}
	if options.GrowthFactor == 0 {
		options.GrowthFactor = DefaultGrowthFactor
	}
	if options.IdleThreshold == 0 {
		options.IdleThreshold = DefaultIdleThreshold
	}
	if options.TrickleDelay == 0 {
		options.TrickleDelay = DefaultTrickleDelay
	}
	if options.EventBuffer == 0 {
		options.EventBuffer = DefaultEventBuffer
	}
}

func (options *Options) validate() error {
	var faults []error
	if options.Source == nil {
		faults = append(faults, errors.New("source is required"))
	}
	if options.DisplayLimit < 1 {
		faults = append(faults, fmt.Errorf("display limit %d must be positive", options.DisplayLimit))
	}
	if options.FetchSlack < 0 {
		faults = append(faults, fmt.Errorf("fetch slack %d must not be negative", options.FetchSlack))
	}
	if options.BaseInterval <= 0 {
		faults = append(faults, fmt.Errorf("base interval %v must be positive", options.BaseInterval))
	}
	if options.MaxInterval < options.BaseInterval {
		faults = append(faults, fmt.Errorf("max interval %v must not be below the base interval %v", options.MaxInterval, options.BaseInterval))
	}
	if options.GrowthFactor < 1 {
		faults = append(faults, fmt.Errorf("growth factor %g must be at least 1", options.GrowthFactor))
	}
	if options.IdleThreshold < 1 {
		faults = append(faults, fmt.Errorf("idle threshold %d must be positive", options.IdleThreshold))
	}
	if options.TrickleDelay < 0 {
		faults = append(faults, fmt.Errorf("trickle delay %v must not be negative", options.TrickleDelay))
	}
	if options.FetchTimeout < 0 {
		faults = append(faults, fmt.Errorf("fetch timeout %v must not be negative", options.FetchTimeout))
	}
	return errors.Join(faults...)
}

// View is the read model handed to UI callers: a copy of everything
// renderable, detached from the synchronizer's internals.
type View struct {
	// RealmID is the realm the synchronizer is (or was last) bound
	// to. Empty before the first Start.
	RealmID string

	// Sightings is the feed contents, most recent arrival first,
	// never longer than the display limit.
	Sightings []Sighting

	// Total and Online are the realm-wide counts from the latest
	// successful fetch. They survive transient failures unchanged.
	Total  int
	Online int

	// AccessDenied is the persistent locked state: the gate refused
	// visibility and no successful fetch has cleared it yet.
	AccessDenied bool

	// Initialized reports that the first poll has completed, one
	// way or the other. UIs show a loading state until then.
	Initialized bool

	// Running reports whether the poll loop is live.
	Running bool

	// Interval is the cadence the next poll is scheduled at, and
	// UnchangedStreak the current run of quiet polls.
	Interval        time.Duration
	UnchangedStreak int

	// LastPoll is when the most recent poll attempt finished.
	LastPoll time.Time
}

// Synchronizer keeps one realm's presence feed fresh: it polls the
// source, diffs consecutive snapshots, trickles arrivals into the
// bounded feed, and adapts its cadence to how lively the realm is.
//
// The zero value is not usable; construct with New. Start and Stop
// bracket one realm binding; a stopped synchronizer can be started
// again, on the same realm or another, with fresh feed and cadence
// state. All methods are safe for concurrent use.
type Synchronizer struct {
	options Options
	source  Source
	logger  *slog.Logger
	clock   clock.Clock

	stats counters

	// kick is unbuffered on purpose: a Refresh lands only while the
	// poll loop is parked in its select, which is exactly the
	// single-flight rule — a trigger during a running cycle is
	// dropped, not queued.
	kick chan struct{}

	mu          sync.Mutex
	running     bool
	realmID     string
	cancel      context.CancelFunc
	done        chan struct{}
	feed        *Feed
	backoff     *Backoff
	previous    *Snapshot
	total       int
	online      int
	denied      bool
	initialized bool
	lastPoll    time.Time
	subscribers []chan Event
}

// New validates options, fills defaults, and returns an idle
// synchronizer. Call Start to bind it to a realm.
func New(options Options) (*Synchronizer, error) {
	options.defaults()
	if err := options.validate(); err != nil {
		return nil, fmt.Errorf("presence: invalid options: %w", err)
	}
	return &Synchronizer{
		options: options,
		source:  options.Source,
		logger:  options.Logger,
		clock:   options.Clock,
		kick:    make(chan struct{}),
		feed:    NewFeed(options.DisplayLimit),
		backoff: NewBackoff(options.BaseInterval, options.MaxInterval, options.GrowthFactor, options.IdleThreshold),
	}, nil
}

// Start binds the synchronizer to a realm: an immediate fetch, then
// recurring polls at the adaptive interval. Feed, cadence, and locked
// state start fresh. Calling Start while already running is a logged
// no-op — UI visibility callbacks double-fire routinely, and two
// concurrent poll timers must never exist.
func (s *Synchronizer) Start(realmID string) error {
	if realmID == "" {
		return errors.New("presence: realm ID must not be empty")
	}

	s.mu.Lock()
	if s.running {
		current := s.realmID
		s.mu.Unlock()
		s.logger.Debug("start ignored, synchronizer already running",
			"running_realm", current,
			"requested_realm", realmID,
		)
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.realmID = realmID
	s.cancel = cancel
	s.done = make(chan struct{})
	s.feed = NewFeed(s.options.DisplayLimit)
	s.backoff = NewBackoff(s.options.BaseInterval, s.options.MaxInterval, s.options.GrowthFactor, s.options.IdleThreshold)
	s.previous = nil
	s.total = 0
	s.online = 0
	s.denied = false
	s.initialized = false
	s.lastPoll = time.Time{}
	done := s.done
	s.mu.Unlock()

	s.logger.Info("presence synchronizer started",
		"realm", realmID,
		"interval", s.options.BaseInterval,
		"display_limit", s.options.DisplayLimit,
	)
	go s.run(ctx, realmID, done)
	return nil
}

// Stop cancels the poll timer and any in-flight trickle sequence and
// waits for the poll goroutine to exit. After Stop returns, no feed
// mutation or event dispatch from this binding can occur. Stop is
// idempotent and safe to call on a never-started synchronizer.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	done := s.done
	cancel := s.cancel
	s.mu.Unlock()

	if done == nil {
		return
	}
	cancel()
	<-done
}

// Refresh requests an immediate poll. The request lands only when the
// loop is parked between cycles; while a cycle is in flight the
// request is skipped (counted, never queued), preserving the
// single-flight rule.
func (s *Synchronizer) Refresh() {
	s.mu.Lock()
	running := s.running
	realmID := s.realmID
	s.mu.Unlock()
	if !running {
		return
	}

	select {
	case s.kick <- struct{}{}:
	default:
		s.stats.pollsSkipped.Add(1)
		s.logger.Debug("refresh skipped, poll cycle in flight", "realm", realmID)
	}
}

// Subscribe registers an event channel. Delivery is non-blocking: a
// subscriber that falls behind loses events, not the synchronizer its
// cadence. Subscriptions persist across Stop/Start cycles.
func (s *Synchronizer) Subscribe() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	channel := make(chan Event, s.options.EventBuffer)
	s.subscribers = append(s.subscribers, channel)
	return channel
}

// View returns a copy of the current renderable state. Safe from any
// goroutine.
func (s *Synchronizer) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		RealmID:         s.realmID,
		Sightings:       s.feed.Items(),
		Total:           s.total,
		Online:          s.online,
		AccessDenied:    s.denied,
		Initialized:     s.initialized,
		Running:         s.running,
		Interval:        s.backoff.Interval(),
		UnchangedStreak: s.backoff.Streak(),
		LastPoll:        s.lastPoll,
	}
}

// Stats returns the synchronizer's lifetime counters.
func (s *Synchronizer) Stats() Stats { return s.stats.snapshot() }

// run is the poll loop. It owns every mutation of the feed, the
// backoff state, and the previous snapshot; everything else reads
// through View under the mutex. One fetch→diff→apply cycle runs at a
// time by construction — the next timer is armed only after the
// previous cycle, trickle included, has drained.
func (s *Synchronizer) run(ctx context.Context, realmID string, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.logger.Info("presence synchronizer stopped", "realm", realmID)
		close(done)
	}()

	s.cycle(ctx, realmID)

	for {
		s.mu.Lock()
		interval := s.backoff.Interval()
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(interval):
		case <-s.kick:
			s.logger.Debug("manual refresh accepted", "realm", realmID)
		}
		if ctx.Err() != nil {
			return
		}
		s.cycle(ctx, realmID)
	}
}

// cycle runs one fetch→diff→cadence→apply pass.
func (s *Synchronizer) cycle(ctx context.Context, realmID string) {
	s.stats.pollsFired.Add(1)

	limit := s.options.DisplayLimit + s.options.FetchSlack
	s.logger.Debug("poll fired", "realm", realmID, "limit", limit)

	fetchCtx := ctx
	var cancelFetch context.CancelFunc
	if s.options.FetchTimeout > 0 {
		fetchCtx, cancelFetch = context.WithTimeout(ctx, s.options.FetchTimeout)
	}
	snapshot, err := s.source.FetchSnapshot(fetchCtx, realmID, limit)
	if cancelFetch != nil {
		cancelFetch()
	}

	// A fetch aborted by Stop is not an observation of anything.
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		s.observeFailure(realmID, err)
		return
	}
	s.observeSnapshot(ctx, realmID, snapshot)
}

// observeFailure folds a failed fetch into state. Access denials lock
// the feed; everything else is swallowed. Both count as quiet polls
// for cadence — a failing gate is never polled harder.
func (s *Synchronizer) observeFailure(realmID string, err error) {
	now := s.clock.Now()

	if IsAccessDenied(err) {
		s.stats.deniedPolls.Add(1)
		s.mu.Lock()
		firstDenial := !s.denied
		s.denied = true
		s.initialized = true
		s.previous = nil
		s.feed.Clear()
		s.lastPoll = now
		s.mu.Unlock()

		if firstDenial {
			s.logger.Warn("realm access denied, feed locked", "realm", realmID, "error", err)
			s.dispatch(Event{Kind: EventAccess, Realm: realmID, Denied: true})
			s.dispatch(Event{Kind: EventFeed, Realm: realmID})
		}
		s.finishPoll(realmID, OutcomeDenied)
		return
	}

	s.stats.transientFailures.Add(1)
	s.mu.Lock()
	s.lastPoll = now
	s.mu.Unlock()
	s.logger.Warn("presence fetch failed", "realm", realmID, "error", err)
	s.finishPoll(realmID, OutcomeFailed)
}

// observeSnapshot folds a successful fetch into state: diff against
// the previous snapshot, adopt the new counts, clear any locked
// state, update cadence, then apply the delta to the feed.
func (s *Synchronizer) observeSnapshot(ctx context.Context, realmID string, snapshot *Snapshot) {
	now := s.clock.Now()

	s.mu.Lock()
	delta := Diff(s.previous, snapshot)
	restored := s.denied
	s.denied = false
	s.previous = snapshot
	s.total = snapshot.Total
	s.online = snapshot.Online
	s.lastPoll = now
	s.mu.Unlock()

	if restored {
		s.logger.Info("realm access restored", "realm", realmID)
		s.dispatch(Event{Kind: EventAccess, Realm: realmID, Denied: false})
	}

	outcome := OutcomeUnchanged
	if delta.Changed {
		outcome = OutcomeChanged
		s.stats.changedPolls.Add(1)
	} else {
		s.stats.unchangedPolls.Add(1)
	}

	// Cadence first: it is quick, and the trickle below may spend
	// most of an interval sleeping between insertions.
	s.finishPoll(realmID, outcome)

	s.apply(ctx, realmID, snapshot, delta)
}

// finishPoll folds the outcome into the backoff controller and then
// publishes the poll event. Cadence moves first so that a subscriber
// reading View on the poll event sees the final streak and interval.
func (s *Synchronizer) finishPoll(realmID, outcome string) {
	s.mu.Lock()
	before := s.backoff.Interval()
	interval, adjusted := s.backoff.Observe(outcome == OutcomeChanged)
	s.mu.Unlock()

	s.dispatch(Event{Kind: EventPoll, Realm: realmID, Outcome: outcome})
	if !adjusted {
		return
	}

	if interval > before {
		s.stats.intervalGrowths.Add(1)
		s.logger.Info("poll interval grew", "realm", realmID, "interval", interval)
	} else {
		s.stats.intervalResets.Add(1)
		s.logger.Info("poll interval reset", "realm", realmID, "interval", interval)
	}
	s.dispatch(Event{Kind: EventInterval, Realm: realmID, Interval: interval})
}

// apply folds a delta into the feed. The first snapshot replaces the
// feed wholesale; later ones trickle each arrival in with a delay
// between insertions so the UI animates them one at a time. Stop
// cancels the sequence mid-delay; departures are left to FIFO
// eviction.
func (s *Synchronizer) apply(ctx context.Context, realmID string, snapshot *Snapshot, delta Delta) {
	if delta.Initial {
		s.mu.Lock()
		s.feed.Replace(snapshot.Sightings)
		s.initialized = true
		count := s.feed.Len()
		s.mu.Unlock()

		s.logger.Info("presence feed loaded",
			"realm", realmID,
			"sightings", count,
			"total", snapshot.Total,
			"online", snapshot.Online,
		)
		s.dispatch(Event{Kind: EventFeed, Realm: realmID})
		return
	}

	if len(delta.Added) == 0 {
		return
	}

	s.logger.Info("presence changed",
		"realm", realmID,
		"added", len(delta.Added),
		"removed", len(delta.Removed),
	)

	for index, sighting := range delta.Added {
		if index > 0 {
			select {
			case <-ctx.Done():
				return
			case <-s.clock.After(s.options.TrickleDelay):
			}
		}
		s.mu.Lock()
		s.feed.Insert(sighting)
		s.mu.Unlock()
		s.stats.sightingsTrickled.Add(1)
		s.dispatch(Event{Kind: EventFeed, Realm: realmID})
	}
}

// dispatch delivers an event to every subscriber without blocking.
func (s *Synchronizer) dispatch(event Event) {
	s.mu.Lock()
	// The subscriber list is append-only; snapshot it under the lock
	// and send after release.
	subscribers := s.subscribers
	s.mu.Unlock()

	for _, subscriber := range subscribers {
		select {
		case subscriber <- event:
		default:
			// Subscriber buffer full — drop. Consumers render from
			// View(), so a lost event costs one repaint at most.
		}
	}
}
