// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the parts of the time package that
// watchtower's polling code depends on, so tests can drive timers
// deterministically instead of sleeping.
//
// Production code takes a Clock value (usually as an options field
// defaulting to Real()) and calls it where it would otherwise call
// time.Now, time.After, time.AfterFunc, time.NewTicker, or time.Sleep.
// Tests substitute Fake(start) and move time explicitly:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	// ... hand fake to the code under test, start its goroutine ...
//	fake.WaitForTimers(1)          // it has armed its next timer
//	fake.Advance(5 * time.Second)  // fire that timer, exactly once
//
// WaitForTimers is the synchronization half of the bargain: the
// goroutine under test registers its timer at some unknowable point
// after it starts, and advancing the fake before that registration
// would silently miss the deadline. Waiting for the registration
// first removes the race without any real-time sleeps.
package clock
