// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package integration_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/emberhold/watchtower/gate"
	"github.com/emberhold/watchtower/lib/clock"
	"github.com/emberhold/watchtower/lib/codec"
	"github.com/emberhold/watchtower/presence"
)

// realmGate is a scripted gate behind a real HTTP listener. It answers
// the presence endpoint the way the production gate does — CBOR body,
// zstd-compressed when the client advertises it — from a per-realm
// snapshot table the test mutates between polls.
type realmGate struct {
	mu        sync.Mutex
	snapshots map[string]presence.Snapshot
	locked    map[string]bool

	// Captured from the most recent request, for asserting the
	// negotiation headers actually crossed the wire.
	lastAccept   string
	lastEncoding string
}

func newRealmGate() *realmGate {
	return &realmGate{
		snapshots: make(map[string]presence.Snapshot),
		locked:    make(map[string]bool),
	}
}

func (gateServer *realmGate) set(snapshot presence.Snapshot) {
	gateServer.mu.Lock()
	defer gateServer.mu.Unlock()
	gateServer.snapshots[snapshot.RealmID] = snapshot
}

func (gateServer *realmGate) setLocked(realmID string, locked bool) {
	gateServer.mu.Lock()
	defer gateServer.mu.Unlock()
	gateServer.locked[realmID] = locked
}

func (gateServer *realmGate) headers() (accept, encoding string) {
	gateServer.mu.Lock()
	defer gateServer.mu.Unlock()
	return gateServer.lastAccept, gateServer.lastEncoding
}

func (gateServer *realmGate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	realmID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/realms/"), "/presence")

	gateServer.mu.Lock()
	snapshot, known := gateServer.snapshots[realmID]
	locked := gateServer.locked[realmID]
	gateServer.lastAccept = r.Header.Get("Accept")
	gateServer.lastEncoding = r.Header.Get("Accept-Encoding")
	gateServer.mu.Unlock()

	switch {
	case locked:
		gateServer.write(w, r, http.StatusForbidden, &gate.Error{
			Code:    gate.CodeReconRequired,
			Message: "realm " + realmID + " requires a scouting report",
		})
	case !known:
		gateServer.write(w, r, http.StatusNotFound, &gate.Error{
			Code:    gate.CodeRealmNotFound,
			Message: "no realm " + realmID,
		})
	default:
		gateServer.write(w, r, http.StatusOK, snapshot)
	}
}

func (gateServer *realmGate) write(w http.ResponseWriter, r *http.Request, status int, payload any) {
	body, err := codec.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if strings.Contains(r.Header.Get("Accept-Encoding"), "zstd") {
		encoder, err := zstd.NewWriter(nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		body = encoder.EncodeAll(body, nil)
		encoder.Close()
		w.Header().Set("Content-Encoding", "zstd")
	}
	w.Header().Set("Content-Type", gate.ContentTypeCBOR)
	w.WriteHeader(status)
	w.Write(body)
}

func verdantSnapshot() presence.Snapshot {
	return presence.Snapshot{
		RealmID: "verdant-reach",
		Total:   6,
		Online:  3,
		Sightings: []presence.Sighting{
			{
				Identity:     "war-101",
				DisplayName:  "Mira of the Vale",
				Online:       true,
				Activity:     presence.ActivityBattling,
				ActivityText: "raiding the eastern marches",
				Level:        31,
			},
			{
				Identity:    "war-204",
				DisplayName: "Old Bramble",
				Online:      false,
				Activity:    presence.ActivityIdle,
				Level:       18,
				RealmOwner:  true,
			},
		},
	}
}

// newStack wires a gate client and synchronizer against the test gate
// and subscribes before Start so no event is missed.
func newStack(t *testing.T, gateServer *realmGate, fakeClock *clock.FakeClock) (*presence.Synchronizer, <-chan presence.Event, func()) {
	t.Helper()

	server := httptest.NewServer(gateServer)
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, err := gate.NewClient(gate.ClientConfig{
		BaseURL: server.URL,
		Logger:  quiet,
	})
	if err != nil {
		server.Close()
		t.Fatalf("NewClient: %v", err)
	}

	synchronizer, err := presence.New(presence.Options{
		Source: client,
		Logger: quiet,
		Clock:  fakeClock,
	})
	if err != nil {
		server.Close()
		t.Fatalf("New: %v", err)
	}

	events := synchronizer.Subscribe()
	cleanup := func() {
		synchronizer.Stop()
		server.Close()
	}
	return synchronizer, events, cleanup
}

// waitForEvent consumes events until one of the wanted kind arrives.
// The fake clock never moves on its own, so a missing event would hang
// forever; the deadline turns that into a failure instead.
func waitForEvent(t *testing.T, events <-chan presence.Event, kind string) presence.Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case event := <-events:
			if event.Kind == kind {
				return event
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q event", kind)
			return presence.Event{}
		}
	}
}

// TestFeedOverHTTP drives the production fetch path end to end: the
// synchronizer's immediate first poll travels over real HTTP, the
// client negotiates CBOR and zstd, and the decoded snapshot lands in
// the feed. A second poll picks up an arrival and puts it at the top.
func TestFeedOverHTTP(t *testing.T) {
	gateServer := newRealmGate()
	gateServer.set(verdantSnapshot())
	fakeClock := clock.Fake(time.Now())
	synchronizer, events, cleanup := newStack(t, gateServer, fakeClock)
	defer cleanup()

	if err := synchronizer.Start("verdant-reach"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForEvent(t, events, presence.EventFeed)

	view := synchronizer.View()
	if view.RealmID != "verdant-reach" || !view.Initialized {
		t.Fatalf("view not initialized for verdant-reach: %+v", view)
	}
	if len(view.Sightings) != 2 || view.Sightings[0].Identity != "war-101" {
		t.Fatalf("unexpected feed after initial load: %+v", view.Sightings)
	}
	if view.Total != 6 || view.Online != 3 {
		t.Errorf("counts = %d online / %d total, want 3/6", view.Online, view.Total)
	}

	accept, encoding := gateServer.headers()
	if !strings.Contains(accept, gate.ContentTypeCBOR) {
		t.Errorf("client sent Accept %q, want CBOR offered", accept)
	}
	if !strings.Contains(encoding, "zstd") {
		t.Errorf("client sent Accept-Encoding %q, want zstd offered", encoding)
	}

	// An arrival lands between polls.
	next := verdantSnapshot()
	next.Online = 4
	next.Sightings = append([]presence.Sighting{{
		Identity:     "war-999",
		DisplayName:  "Tansy Quickstep",
		Online:       true,
		Activity:     presence.ActivityScouting,
		ActivityText: "mapping the fog roads",
		Level:        12,
	}}, next.Sightings...)
	gateServer.set(next)

	fakeClock.WaitForTimers(1)
	fakeClock.Advance(view.Interval)

	if event := waitForEvent(t, events, presence.EventPoll); event.Outcome != presence.OutcomeChanged {
		t.Fatalf("second poll outcome = %s, want changed", event.Outcome)
	}
	waitForEvent(t, events, presence.EventFeed)

	view = synchronizer.View()
	if view.Sightings[0].Identity != "war-999" {
		t.Errorf("feed head = %s, want the arrival war-999", view.Sightings[0].Identity)
	}
	if view.Online != 4 {
		t.Errorf("online = %d, want 4", view.Online)
	}
}

// TestRealmLockAndRestoreOverHTTP covers the 403 path across the real
// wire: a mid-session RECON_REQUIRED decoded from a CBOR error body
// locks the feed, polling continues, and the next successful fetch
// unlocks and reloads wholesale.
func TestRealmLockAndRestoreOverHTTP(t *testing.T) {
	gateServer := newRealmGate()
	gateServer.set(verdantSnapshot())
	fakeClock := clock.Fake(time.Now())
	synchronizer, events, cleanup := newStack(t, gateServer, fakeClock)
	defer cleanup()

	if err := synchronizer.Start("verdant-reach"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForEvent(t, events, presence.EventFeed)

	// The gate turns the viewer away mid-session.
	gateServer.setLocked("verdant-reach", true)
	fakeClock.WaitForTimers(1)
	fakeClock.Advance(synchronizer.View().Interval)

	if event := waitForEvent(t, events, presence.EventAccess); !event.Denied {
		t.Fatal("lock should publish a denied access event")
	}
	view := synchronizer.View()
	if !view.AccessDenied {
		t.Fatal("view should be locked after a 403")
	}
	if len(view.Sightings) != 0 {
		t.Errorf("locked feed should be empty, got %d sightings", len(view.Sightings))
	}
	if !view.Running {
		t.Error("polling should continue while locked")
	}

	// A later poll finds the realm scouted again.
	gateServer.setLocked("verdant-reach", false)
	fakeClock.WaitForTimers(1)
	fakeClock.Advance(synchronizer.View().Interval)

	if event := waitForEvent(t, events, presence.EventAccess); event.Denied {
		t.Fatal("restore should publish an un-denied access event")
	}
	waitForEvent(t, events, presence.EventFeed)

	view = synchronizer.View()
	if view.AccessDenied {
		t.Error("view should unlock after a successful fetch")
	}
	if len(view.Sightings) != 2 {
		t.Errorf("restored feed should reload, got %d sightings", len(view.Sightings))
	}
}

// TestRealmSwitchOverHTTP stops the verdant binding and rebinds to a
// second realm the way the picker does, asserting the fresh feed comes
// from the new realm's snapshot.
func TestRealmSwitchOverHTTP(t *testing.T) {
	gateServer := newRealmGate()
	gateServer.set(verdantSnapshot())
	gateServer.set(presence.Snapshot{
		RealmID: "frozen-orchard",
		Total:   2,
		Online:  2,
		Sightings: []presence.Sighting{
			{
				Identity:     "war-310",
				DisplayName:  "Isolde Stonehand",
				Online:       true,
				Activity:     presence.ActivityBuilding,
				ActivityText: "raising a watchtower",
				Level:        44,
			},
		},
	})
	fakeClock := clock.Fake(time.Now())
	synchronizer, events, cleanup := newStack(t, gateServer, fakeClock)
	defer cleanup()

	if err := synchronizer.Start("verdant-reach"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForEvent(t, events, presence.EventFeed)

	synchronizer.Stop()
	if err := synchronizer.Start("frozen-orchard"); err != nil {
		t.Fatalf("restart: %v", err)
	}
	waitForEvent(t, events, presence.EventFeed)

	view := synchronizer.View()
	if view.RealmID != "frozen-orchard" {
		t.Errorf("realm after switch = %s, want frozen-orchard", view.RealmID)
	}
	if len(view.Sightings) != 1 || view.Sightings[0].Identity != "war-310" {
		t.Errorf("feed after switch = %+v, want the frozen-orchard sighting", view.Sightings)
	}
}
