// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// Fake returns a FakeClock whose time starts at initial and moves
// only when Advance is called. Timers, tickers, and sleeps register
// schedule entries that fire as the clock passes their deadline.
//
// FakeClock is safe for concurrent use.
func Fake(initial time.Time) *FakeClock {
	fake := &FakeClock{now: initial}
	fake.registered = sync.NewCond(&fake.mu)
	return fake
}

// FakeClock is the deterministic Clock used in tests. Advance fires
// due entries strictly in deadline order, one at a time, re-arming
// tickers as it goes, so a multi-interval Advance produces one tick
// per elapsed interval.
//
// AfterFunc callbacks run synchronously inside Advance on the calling
// goroutine. A callback may register new timers (they fire within the
// same Advance when due) but must not call Advance or Sleep itself.
type FakeClock struct {
	mu         sync.Mutex
	registered *sync.Cond
	now        time.Time
	schedule   []*scheduleEntry
}

// scheduleEntry is one pending timer, ticker cycle, or sleep.
type scheduleEntry struct {
	fireAt time.Time

	// deliver receives the fire time for After, Sleep, and Ticker
	// entries; nil for AfterFunc entries.
	deliver chan time.Time

	// run is the AfterFunc callback; nil for channel entries.
	run func()

	// every is the ticker period; zero for one-shot entries.
	every time.Duration

	// cancelled entries never fire and are pruned lazily.
	cancelled bool

	// done marks a one-shot that has fired, so Stop can report it.
	done bool
}

// Now returns the fake's current time.
func (fake *FakeClock) Now() time.Time {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return fake.now
}

// After returns a channel that receives once the fake advances past
// d from now. A non-positive d is delivered immediately without
// registering an entry.
func (fake *FakeClock) After(d time.Duration) <-chan time.Time {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	deliver := make(chan time.Time, 1)
	if d <= 0 {
		deliver <- fake.now
		return deliver
	}
	fake.scheduleLocked(&scheduleEntry{
		fireAt:  fake.now.Add(d),
		deliver: deliver,
	})
	return deliver
}

// Sleep blocks the calling goroutine until the fake advances past d.
// Returns immediately for a non-positive d.
func (fake *FakeClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	<-fake.After(d)
}

// AfterFunc schedules f to run when the fake advances past d. The
// returned Timer has a nil C. A non-positive d runs f synchronously
// before AfterFunc returns.
func (fake *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	if d <= 0 {
		f()
		return &Timer{
			stop:  func() bool { return false },
			reset: func(time.Duration) bool { return false },
		}
	}

	entry := &scheduleEntry{run: f}

	fake.mu.Lock()
	entry.fireAt = fake.now.Add(d)
	fake.scheduleLocked(entry)
	fake.mu.Unlock()

	return &Timer{
		stop: func() bool {
			fake.mu.Lock()
			defer fake.mu.Unlock()
			if entry.cancelled || entry.done {
				return false
			}
			entry.cancelled = true
			return true
		},
		reset: func(d time.Duration) bool {
			fake.mu.Lock()
			defer fake.mu.Unlock()
			wasActive := !entry.cancelled && !entry.done
			entry.cancelled = false
			entry.done = false
			entry.fireAt = fake.now.Add(d)
			fake.ensureScheduledLocked(entry)
			return wasActive
		},
	}
}

// NewTicker returns a Ticker firing every d of fake time. Panics when
// d is not positive.
func (fake *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: NewTicker interval must be positive")
	}

	fake.mu.Lock()
	entry := &scheduleEntry{
		fireAt:  fake.now.Add(d),
		deliver: make(chan time.Time, 1),
		every:   d,
	}
	fake.scheduleLocked(entry)
	fake.mu.Unlock()

	return &Ticker{
		C: entry.deliver,
		stop: func() {
			fake.mu.Lock()
			defer fake.mu.Unlock()
			entry.cancelled = true
		},
		reset: func(d time.Duration) {
			fake.mu.Lock()
			defer fake.mu.Unlock()
			entry.every = d
			entry.fireAt = fake.now.Add(d)
			entry.cancelled = false
			fake.ensureScheduledLocked(entry)
		},
	}
}

// Advance moves the clock forward by d and fires every due entry in
// deadline order. Channel deliveries are non-blocking with a buffer
// of one, so unread ticks are dropped the way time.Ticker drops them.
func (fake *FakeClock) Advance(d time.Duration) {
	fake.mu.Lock()
	fake.now = fake.now.Add(d)
	target := fake.now
	fake.mu.Unlock()

	for {
		entry := fake.nextDue(target)
		if entry == nil {
			return
		}
		if entry.run != nil {
			entry.run()
			continue
		}
		select {
		case entry.deliver <- target:
		default:
		}
	}
}

// nextDue pops the earliest entry due at or before target. Tickers
// are re-armed one period forward and stay scheduled; one-shots are
// removed and marked done. Cancelled entries are pruned on the way.
// Returns nil when nothing further is due.
func (fake *FakeClock) nextDue(target time.Time) *scheduleEntry {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	kept := fake.schedule[:0]
	for _, entry := range fake.schedule {
		if !entry.cancelled {
			kept = append(kept, entry)
		}
	}
	fake.schedule = kept

	earliestIndex := -1
	for index, entry := range fake.schedule {
		if entry.fireAt.After(target) {
			continue
		}
		if earliestIndex < 0 || entry.fireAt.Before(fake.schedule[earliestIndex].fireAt) {
			earliestIndex = index
		}
	}
	if earliestIndex < 0 {
		return nil
	}

	entry := fake.schedule[earliestIndex]
	if entry.every > 0 {
		entry.fireAt = entry.fireAt.Add(entry.every)
	} else {
		entry.done = true
		fake.schedule = append(fake.schedule[:earliestIndex], fake.schedule[earliestIndex+1:]...)
	}
	return entry
}

// WaitForTimers blocks until at least n entries are pending. Call it
// after starting a goroutine that schedules work, and before Advance,
// to eliminate the registration race.
func (fake *FakeClock) WaitForTimers(n int) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	for fake.pendingLocked() < n {
		fake.registered.Wait()
	}
}

// PendingCount returns the number of pending (neither cancelled nor
// fired) entries.
func (fake *FakeClock) PendingCount() int {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return fake.pendingLocked()
}

func (fake *FakeClock) pendingLocked() int {
	count := 0
	for _, entry := range fake.schedule {
		if !entry.cancelled {
			count++
		}
	}
	return count
}

// scheduleLocked appends an entry and wakes WaitForTimers callers.
func (fake *FakeClock) scheduleLocked(entry *scheduleEntry) {
	fake.schedule = append(fake.schedule, entry)
	fake.registered.Broadcast()
}

// ensureScheduledLocked re-appends an entry that may have been pruned
// or popped, without ever double-scheduling one that is still listed.
func (fake *FakeClock) ensureScheduledLocked(entry *scheduleEntry) {
	for _, existing := range fake.schedule {
		if existing == entry {
			fake.registered.Broadcast()
			return
		}
	}
	fake.scheduleLocked(entry)
}
