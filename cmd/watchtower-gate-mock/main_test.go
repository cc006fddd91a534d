// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/emberhold/watchtower/gate"
	"github.com/emberhold/watchtower/lib/codec"
	"github.com/emberhold/watchtower/presence"
)

func newTestMock(t *testing.T) *gateMock {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newGateMock(logger, 7, map[string]bool{"sealed-vault": true})
}

// testPopulation builds a ranking of online participants with the
// given identities.
func testPopulation(identityList ...string) *realmPopulation {
	population := &realmPopulation{}
	for _, identity := range identityList {
		population.participants = append(population.participants, presence.Sighting{
			Identity:    identity,
			DisplayName: "Warden " + identity,
			Online:      true,
		})
	}
	return population
}

func identities(population *realmPopulation) []string {
	list := make([]string, len(population.participants))
	for index, sighting := range population.participants {
		list[index] = sighting.Identity
	}
	return list
}

func TestSeedRealmShape(t *testing.T) {
	mock := newTestMock(t)
	population := mock.seedRealm("verdant-reach")

	count := len(population.participants)
	if count < 12 || count > 35 {
		t.Errorf("seeded population = %d participants, want between 12 and 35", count)
	}
	owner := population.participants[0]
	if !owner.RealmOwner || !owner.Online {
		t.Errorf("first participant = owner %v online %v, want the online realm owner", owner.RealmOwner, owner.Online)
	}
	for index, sighting := range population.participants {
		if sighting.Identity == "" || sighting.DisplayName == "" || sighting.ActivityText == "" {
			t.Errorf("participant %d missing identity, name, or activity text: %+v", index, sighting)
		}
		if sighting.Level < 3 || sighting.Level > 60 {
			t.Errorf("participant %d level = %d, want between 3 and 60", index, sighting.Level)
		}
	}
}

func TestSeedRealmDeterministicBySeed(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	first := newGateMock(logger, 41, nil).seedRealm("verdant-reach")
	second := newGateMock(logger, 41, nil).seedRealm("verdant-reach")

	if len(first.participants) != len(second.participants) {
		t.Fatalf("population sizes differ across same-seed mocks: %d vs %d",
			len(first.participants), len(second.participants))
	}
	for index := range first.participants {
		a, b := first.participants[index], second.participants[index]
		if a.DisplayName != b.DisplayName || a.Level != b.Level || a.Online != b.Online {
			t.Errorf("participant %d differs across same-seed mocks: %q/%d/%v vs %q/%d/%v",
				index, a.DisplayName, a.Level, a.Online, b.DisplayName, b.Level, b.Online)
		}
	}
}

func TestPopulationBumpAndInsert(t *testing.T) {
	population := testPopulation("a", "b", "c")

	population.bump(2)
	if got := identities(population); !slices.Equal(got, []string{"c", "a", "b"}) {
		t.Errorf("after bump(2) order = %v, want [c a b]", got)
	}

	population.bump(0)
	if got := identities(population); !slices.Equal(got, []string{"c", "a", "b"}) {
		t.Errorf("bump(0) moved entries: %v", got)
	}

	population.insert(presence.Sighting{Identity: "d"})
	if got := identities(population); !slices.Equal(got, []string{"d", "c", "a", "b"}) {
		t.Errorf("after insert order = %v, want [d c a b]", got)
	}
}

func TestEvictOverflowDropsLowestOffline(t *testing.T) {
	population := &realmPopulation{}
	for index := range maxPopulation + 1 {
		population.participants = append(population.participants, presence.Sighting{
			Identity: strconv.Itoa(index),
			Online:   true,
		})
	}
	population.participants[10].Online = false
	population.participants[40].Online = false

	population.evictOverflow()
	if got := len(population.participants); got != maxPopulation {
		t.Fatalf("population after eviction = %d, want %d", got, maxPopulation)
	}
	remaining := make(map[string]bool, len(population.participants))
	for _, sighting := range population.participants {
		remaining[sighting.Identity] = true
	}
	if remaining["40"] {
		t.Error("lowest-ranked offline participant survived eviction")
	}
	if !remaining["10"] {
		t.Error("higher-ranked offline participant was evicted")
	}
}

func TestEvictOverflowAllOnline(t *testing.T) {
	population := &realmPopulation{}
	for index := range maxPopulation + 1 {
		population.participants = append(population.participants, presence.Sighting{
			Identity: strconv.Itoa(index),
			Online:   true,
		})
	}

	population.evictOverflow()
	if got := len(population.participants); got != maxPopulation {
		t.Fatalf("population after eviction = %d, want %d", got, maxPopulation)
	}
	last := population.participants[maxPopulation-1]
	if want := strconv.Itoa(maxPopulation - 1); last.Identity != want {
		t.Errorf("last surviving participant = %s, want %s", last.Identity, want)
	}
}

func TestPopulationSnapshot(t *testing.T) {
	population := testPopulation("a", "b", "c", "d")
	population.participants[1].Online = false
	population.participants[3].Online = false

	snapshot := population.snapshot("verdant-reach", 2)
	if snapshot.RealmID != "verdant-reach" {
		t.Errorf("RealmID = %q, want %q", snapshot.RealmID, "verdant-reach")
	}
	if snapshot.Total != 4 || snapshot.Online != 2 {
		t.Errorf("Total/Online = %d/%d, want 4/2", snapshot.Total, snapshot.Online)
	}
	if len(snapshot.Sightings) != 2 {
		t.Fatalf("len(Sightings) = %d, want 2", len(snapshot.Sightings))
	}

	// The snapshot is a copy; mutating it must not touch the ranking.
	snapshot.Sightings[0].Identity = "mutated"
	if population.participants[0].Identity != "a" {
		t.Error("snapshot shares backing storage with the population")
	}
}

func TestRandomOnlineSkipsOwner(t *testing.T) {
	mock := newTestMock(t)
	population := testPopulation("owner", "visitor")
	population.participants[0].RealmOwner = true
	population.participants[1].Online = false

	if got := population.randomOnline(mock.random, false); got != -1 {
		t.Errorf("randomOnline without owner = %d, want -1", got)
	}
	if got := population.randomOnline(mock.random, true); got != 0 {
		t.Errorf("randomOnline with owner = %d, want 0", got)
	}
	if got := population.randomOffline(mock.random); got != 1 {
		t.Errorf("randomOffline = %d, want 1", got)
	}
}

func TestLockedRealm(t *testing.T) {
	mock := newTestMock(t)
	tests := []struct {
		realmID string
		want    bool
	}{
		{"fog-crypt", true},
		{"fog-sunken-keep", true},
		{"sealed-vault", true},
		{"verdant-reach", false},
	}
	for _, test := range tests {
		if got := mock.lockedRealm(test.realmID); got != test.want {
			t.Errorf("lockedRealm(%q) = %v, want %v", test.realmID, got, test.want)
		}
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 10},
		{"limit=5", 5},
		{"limit=0", 10},
		{"limit=oak", 10},
		{"limit=500", 100},
	}
	for _, test := range tests {
		request := httptest.NewRequest(http.MethodGet, "/v1/realms/r/presence?"+test.query, nil)
		if got := parseLimit(request); got != test.want {
			t.Errorf("parseLimit(%q) = %d, want %d", test.query, got, test.want)
		}
	}
}

func TestHandlePresenceJSON(t *testing.T) {
	mock := newTestMock(t)
	router := newRouter(mock)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/realms/verdant-reach/presence?limit=5", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusOK)
	}
	if got := recorder.Header().Get("Content-Type"); got != gate.ContentTypeJSON {
		t.Errorf("Content-Type = %q, want %q", got, gate.ContentTypeJSON)
	}
	var snapshot presence.Snapshot
	if err := json.Unmarshal(recorder.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("decoding JSON body: %v", err)
	}
	if snapshot.RealmID != "verdant-reach" {
		t.Errorf("RealmID = %q, want %q", snapshot.RealmID, "verdant-reach")
	}
	if len(snapshot.Sightings) != 5 {
		t.Errorf("len(Sightings) = %d, want the requested limit 5", len(snapshot.Sightings))
	}
	if snapshot.Total < len(snapshot.Sightings) {
		t.Errorf("Total = %d, want at least %d", snapshot.Total, len(snapshot.Sightings))
	}
}

func TestHandlePresenceCBORZstd(t *testing.T) {
	mock := newTestMock(t)
	router := newRouter(mock)

	request := httptest.NewRequest(http.MethodGet, "/v1/realms/verdant-reach/presence", nil)
	request.Header.Set("Accept", gate.ContentTypeCBOR)
	request.Header.Set("Accept-Encoding", "zstd")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusOK)
	}
	if got := recorder.Header().Get("Content-Type"); got != gate.ContentTypeCBOR {
		t.Errorf("Content-Type = %q, want %q", got, gate.ContentTypeCBOR)
	}
	if got := recorder.Header().Get("Content-Encoding"); got != "zstd" {
		t.Fatalf("Content-Encoding = %q, want zstd", got)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatalf("creating zstd decoder: %v", err)
	}
	defer decoder.Close()
	body, err := decoder.DecodeAll(recorder.Body.Bytes(), nil)
	if err != nil {
		t.Fatalf("decompressing body: %v", err)
	}
	var snapshot presence.Snapshot
	if err := codec.Unmarshal(body, &snapshot); err != nil {
		t.Fatalf("decoding CBOR body: %v", err)
	}
	if snapshot.RealmID != "verdant-reach" {
		t.Errorf("RealmID = %q, want %q", snapshot.RealmID, "verdant-reach")
	}
	if len(snapshot.Sightings) != 10 {
		t.Errorf("len(Sightings) = %d, want the default limit 10", len(snapshot.Sightings))
	}
}

func TestHandlePresenceLocked(t *testing.T) {
	mock := newTestMock(t)
	router := newRouter(mock)

	request := httptest.NewRequest(http.MethodGet, "/v1/realms/fog-crypt/presence", nil)
	request.Header.Set("Accept", gate.ContentTypeCBOR)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want %d", recorder.Code, http.StatusForbidden)
	}
	var gateError gate.Error
	if err := codec.Unmarshal(recorder.Body.Bytes(), &gateError); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if gateError.Code != gate.CodeReconRequired {
		t.Errorf("error code = %q, want %q", gateError.Code, gate.CodeReconRequired)
	}
	if got := mock.denials.Load(); got != 1 {
		t.Errorf("denial counter = %d, want 1", got)
	}
}

func TestHandleStatusCounters(t *testing.T) {
	mock := newTestMock(t)
	router := newRouter(mock)

	for range 3 {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/realms/verdant-reach/presence", nil))
		if recorder.Code != http.StatusOK {
			t.Fatalf("presence status = %d, want %d", recorder.Code, http.StatusOK)
		}
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/v1/status", nil))
	if recorder.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d, want %d", recorder.Code, http.StatusOK)
	}
	var status statusResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &status); err != nil {
		t.Fatalf("decoding status body: %v", err)
	}
	if status.Realms != 1 {
		t.Errorf("Realms = %d, want 1", status.Realms)
	}
	if status.Fetches != 3 {
		t.Errorf("Fetches = %d, want 3", status.Fetches)
	}
	if status.Participants < 12 {
		t.Errorf("Participants = %d, want at least 12", status.Participants)
	}
}

func TestChurnKeepsInvariants(t *testing.T) {
	mock := newTestMock(t)

	mock.mu.Lock()
	mock.realms["verdant-reach"] = mock.seedRealm("verdant-reach")
	mock.mu.Unlock()

	for range 200 {
		mock.churnOnce()
	}

	mock.mu.Lock()
	defer mock.mu.Unlock()
	population := mock.realms["verdant-reach"]
	if got := len(population.participants); got > maxPopulation {
		t.Errorf("population = %d participants, want at most %d", got, maxPopulation)
	}
	for index, sighting := range population.participants {
		if sighting.Identity == "" || sighting.DisplayName == "" || sighting.ActivityText == "" {
			t.Errorf("participant %d malformed after churn: %+v", index, sighting)
		}
		if sighting.RealmOwner && !sighting.Online {
			t.Error("realm owner went offline during churn")
		}
	}
}
