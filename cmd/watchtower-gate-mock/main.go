// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

// watchtower-gate-mock is a stand-in for the Emberhold realm gate. It
// serves the gate's presence endpoint from in-memory populations and
// churns them on a timer, so the viewer and synchronizer have a live
// realm to watch without any game infrastructure.
//
// Realms are seeded lazily: the first fetch for an unknown realm ID
// invents a population for it, so any --realm value works against the
// mock. Realm IDs with the fog- prefix answer 403 RECON_REQUIRED —
// unscouted territory — as do any named by --locked; that is how the
// real gate refuses realms the caller has not scouted.
//
// The binary exposes two endpoints:
//   - GET /v1/realms/{realmID}/presence: the snapshot endpoint the
//     viewer polls — CBOR or JSON by Accept header, zstd-compressed
//     when the client advertises it
//   - GET /v1/status: operational counters for eyeballing the mock
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/term"

	"github.com/emberhold/watchtower/gate"
	"github.com/emberhold/watchtower/lib/clock"
	"github.com/emberhold/watchtower/lib/codec"
	"github.com/emberhold/watchtower/lib/process"
	"github.com/emberhold/watchtower/lib/version"
	"github.com/emberhold/watchtower/presence"
)

// zstdEncoder is shared across responses; EncodeAll on a zstd.Encoder
// is safe for concurrent use.
var zstdEncoder *zstd.Encoder

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil)
	if err != nil {
		panic("gate mock: zstd encoder initialization failed: " + err.Error())
	}
}

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var showVersion bool
	var listenAddress string
	var seed int64
	var churnInterval time.Duration
	var lockedList string
	var verbose bool

	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.StringVar(&listenAddress, "listen", ":7420", "address to serve the gate API on")
	flag.Int64Var(&seed, "seed", 1, "randomness seed for populations and churn")
	flag.DurationVar(&churnInterval, "churn", 4*time.Second, "how often realm populations move (0 freezes them)")
	flag.StringVar(&lockedList, "locked", "", "extra realm IDs that answer 403 RECON_REQUIRED (fog-* realms always do)")
	flag.BoolVar(&verbose, "verbose", false, "log every request at debug level")
	flag.Parse()

	if showVersion {
		version.Print("watchtower-gate-mock")
		return nil
	}

	logger := newLogger(verbose)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mock := newGateMock(logger, seed, lockedRealms(lockedList))
	server := &http.Server{Addr: listenAddress, Handler: newRouter(mock)}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.ListenAndServe()
	}()

	if churnInterval > 0 {
		go mock.churnLoop(ctx, churnInterval)
	}

	logger.Info("gate mock running",
		"listen", listenAddress,
		"churn", churnInterval,
		"locked", lockedList,
		"seed", seed,
	)

	select {
	case <-ctx.Done():
	case err := <-serverDone:
		return fmt.Errorf("gate mock server: %w", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if err := <-serverDone; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// newLogger builds the stderr logger: human-readable text on a
// terminal, JSON when piped or redirected so scripts and CI get
// machine-parseable records.
func newLogger(verbose bool) *slog.Logger {
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		options.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}

// newRouter wires the mock's endpoints behind chi middleware.
func newRouter(mock *gateMock) chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Get("/v1/realms/{realmID}/presence", mock.handlePresence)
	router.Get("/v1/status", mock.handleStatus)
	return router
}

// lockedRealms parses the --locked flag value.
func lockedRealms(list string) map[string]bool {
	locked := make(map[string]bool)
	for _, realmID := range strings.Split(list, ",") {
		realmID = strings.TrimSpace(realmID)
		if realmID != "" {
			locked[realmID] = true
		}
	}
	return locked
}

// maxPopulation bounds a realm's participant count during long runs.
const maxPopulation = 60

// gateMock holds the synthetic realm populations.
type gateMock struct {
	logger *slog.Logger
	clock  clock.Clock
	locked map[string]bool
	start  time.Time

	// mu guards random and realms. The churn loop and request
	// handlers both mutate populations.
	mu     sync.Mutex
	random *rand.Rand
	realms map[string]*realmPopulation

	fetches atomic.Uint64
	denials atomic.Uint64
}

// realmPopulation is one realm's participants, ranked most recently
// active first — the order the real gate serves.
type realmPopulation struct {
	participants []presence.Sighting
}

func newGateMock(logger *slog.Logger, seed int64, locked map[string]bool) *gateMock {
	return &gateMock{
		logger: logger,
		clock:  clock.Real(),
		locked: locked,
		start:  time.Now(),
		random: rand.New(rand.NewSource(seed)),
		realms: make(map[string]*realmPopulation),
	}
}

// lockedRealm reports whether the gate refuses this realm. Realms with
// the fog- ID prefix model unscouted territory; --locked adds explicit
// extras.
func (mock *gateMock) lockedRealm(realmID string) bool {
	return strings.HasPrefix(realmID, "fog-") || mock.locked[realmID]
}

// handlePresence serves GET /v1/realms/{realmID}/presence.
func (mock *gateMock) handlePresence(w http.ResponseWriter, r *http.Request) {
	realmID := chi.URLParam(r, "realmID")

	if mock.lockedRealm(realmID) {
		mock.denials.Add(1)
		mock.writeError(w, r, http.StatusForbidden, gate.CodeReconRequired,
			"realm "+realmID+" requires a scouting report")
		return
	}

	limit := parseLimit(r)

	mock.mu.Lock()
	population := mock.realms[realmID]
	if population == nil {
		population = mock.seedRealm(realmID)
		mock.realms[realmID] = population
	}
	snapshot := population.snapshot(realmID, limit)
	mock.mu.Unlock()

	mock.fetches.Add(1)
	mock.logger.Debug("presence served",
		"realm", realmID,
		"limit", limit,
		"total", snapshot.Total,
		"online", snapshot.Online,
	)
	mock.writePayload(w, r, http.StatusOK, snapshot)
}

// parseLimit reads the limit query parameter. A missing or unusable
// value means 10; the cap is 100, matching the real gate.
func parseLimit(r *http.Request) int {
	value := r.URL.Query().Get("limit")
	if value == "" {
		return 10
	}
	limit, err := strconv.Atoi(value)
	if err != nil || limit < 1 {
		return 10
	}
	return min(limit, 100)
}

// statusResponse is the operational counter payload for /v1/status.
type statusResponse struct {
	Realms        int    `json:"realms"`
	Participants  int    `json:"participants"`
	Fetches       uint64 `json:"fetches"`
	Denials       uint64 `json:"denials"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (mock *gateMock) handleStatus(w http.ResponseWriter, r *http.Request) {
	mock.mu.Lock()
	realms := len(mock.realms)
	participants := 0
	for _, population := range mock.realms {
		participants += len(population.participants)
	}
	mock.mu.Unlock()

	mock.writePayload(w, r, http.StatusOK, statusResponse{
		Realms:        realms,
		Participants:  participants,
		Fetches:       mock.fetches.Load(),
		Denials:       mock.denials.Load(),
		UptimeSeconds: int64(time.Since(mock.start).Seconds()),
	})
}

// writePayload encodes the payload in the format the Accept header
// asks for and compresses with zstd when the client advertises it.
// CBOR uses the same snake_case keys as JSON, so either encoding
// carries the same document.
func (mock *gateMock) writePayload(w http.ResponseWriter, r *http.Request, status int, payload any) {
	var body []byte
	var err error
	contentType := gate.ContentTypeJSON
	if strings.Contains(r.Header.Get("Accept"), gate.ContentTypeCBOR) {
		contentType = gate.ContentTypeCBOR
		body, err = codec.Marshal(payload)
	} else {
		body, err = json.Marshal(payload)
	}
	if err != nil {
		mock.logger.Error("response encoding failed", "error", err)
		http.Error(w, "encoding failure", http.StatusInternalServerError)
		return
	}

	if strings.Contains(r.Header.Get("Accept-Encoding"), "zstd") {
		body = zstdEncoder.EncodeAll(body, nil)
		w.Header().Set("Content-Encoding", "zstd")
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	w.Write(body)
}

// writeError sends a gate error document with the given status.
func (mock *gateMock) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	mock.writePayload(w, r, status, &gate.Error{Code: code, Message: message})
}

// Name fragments for invented participants.
var (
	givenNames = []string{
		"Mira", "Bramble", "Ashka", "Thorn", "Wren", "Caldus",
		"Petra", "Hollis", "Yvenne", "Dagmar", "Sorrel", "Ulric",
		"Maeve", "Corvin", "Isolde", "Fenwick",
	}
	epithets = []string{
		"of the Vale", "the Unbowed", "Emberborn", "of High Moor",
		"the Quiet", "Stonehand", "of the Reach", "the Wayfarer",
	}
)

var activityTags = []presence.Activity{
	presence.ActivityIdle,
	presence.ActivityBattling,
	presence.ActivityBuilding,
	presence.ActivityTrading,
	presence.ActivityScouting,
}

// activityTexts supplies the supporting line per activity tag.
var activityTexts = map[presence.Activity][]string{
	presence.ActivityIdle: {
		"resting at the hearth",
		"waiting at the realm border",
	},
	presence.ActivityBattling: {
		"raiding the eastern marches",
		"holding the north wall",
		"skirmishing at the ford",
	},
	presence.ActivityBuilding: {
		"raising a watchtower",
		"reinforcing the granary",
		"expanding the outer wall",
	},
	presence.ActivityTrading: {
		"haggling at the market",
		"moving grain to the docks",
	},
	presence.ActivityScouting: {
		"scouting a rival realm",
		"mapping the fog roads",
	},
}

// newParticipant invents a sighting. Caller holds mu: random is not
// safe for concurrent use.
func (mock *gateMock) newParticipant() presence.Sighting {
	activity := activityTags[mock.random.Intn(len(activityTags))]
	name := givenNames[mock.random.Intn(len(givenNames))]
	if mock.random.Intn(2) == 0 {
		name += " " + epithets[mock.random.Intn(len(epithets))]
	}
	texts := activityTexts[activity]
	return presence.Sighting{
		Identity:     uuid.New().String(),
		DisplayName:  name,
		Online:       mock.random.Intn(10) < 7,
		Activity:     activity,
		ActivityText: texts[mock.random.Intn(len(texts))],
		Level:        3 + mock.random.Intn(58),
	}
}

// seedRealm invents a population for a realm seen for the first time.
// Caller holds mu.
func (mock *gateMock) seedRealm(realmID string) *realmPopulation {
	count := 12 + mock.random.Intn(24)
	population := &realmPopulation{
		participants: make([]presence.Sighting, 0, count),
	}
	for index := range count {
		participant := mock.newParticipant()
		if index == 0 {
			// The realm owner leads the initial ranking and stays
			// online.
			participant.RealmOwner = true
			participant.Online = true
		}
		population.participants = append(population.participants, participant)
	}
	mock.logger.Info("realm seeded", "realm", realmID, "participants", count)
	return population
}

// churnLoop mutates every seeded realm on a fixed cadence so the feed
// has arrivals, departures, and activity changes to show.
func (mock *gateMock) churnLoop(ctx context.Context, interval time.Duration) {
	ticker := mock.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mock.churnOnce()
		}
	}
}

// churnOnce applies at most one movement per realm. Movements bump the
// touched participant to the front of the ranking, mirroring how the
// gate orders by recent activity. A third of ticks leave a realm
// untouched so quiet stretches occur and the synchronizer's cadence
// backoff has something to do.
func (mock *gateMock) churnOnce() {
	mock.mu.Lock()
	defer mock.mu.Unlock()
	for realmID, population := range mock.realms {
		switch mock.random.Intn(6) {
		case 0, 1:
			// Quiet tick.
		case 2:
			arrival := mock.newParticipant()
			arrival.Online = true
			population.insert(arrival)
			population.evictOverflow()
			mock.logger.Debug("participant arrived", "realm", realmID, "name", arrival.DisplayName)
		case 3:
			// A session closes. The owner stays online; the last
			// activity line survives as what they were last seen
			// doing.
			if index := population.randomOnline(mock.random, false); index >= 0 {
				population.participants[index].Online = false
				population.bump(index)
			}
		case 4:
			if index := population.randomOnline(mock.random, true); index >= 0 {
				activity := activityTags[mock.random.Intn(len(activityTags))]
				texts := activityTexts[activity]
				population.participants[index].Activity = activity
				population.participants[index].ActivityText = texts[mock.random.Intn(len(texts))]
				population.bump(index)
			}
		case 5:
			if index := population.randomOffline(mock.random); index >= 0 {
				population.participants[index].Online = true
				population.bump(index)
			}
		}
	}
}

// snapshot builds the wire answer for one fetch. Caller holds mu; the
// returned sightings are a copy.
func (population *realmPopulation) snapshot(realmID string, limit int) *presence.Snapshot {
	online := 0
	for _, sighting := range population.participants {
		if sighting.Online {
			online++
		}
	}
	count := min(limit, len(population.participants))
	sightings := make([]presence.Sighting, count)
	copy(sightings, population.participants[:count])
	return &presence.Snapshot{
		RealmID:   realmID,
		Total:     len(population.participants),
		Online:    online,
		Sightings: sightings,
	}
}

// insert places a participant at the front of the ranking.
func (population *realmPopulation) insert(sighting presence.Sighting) {
	population.participants = append([]presence.Sighting{sighting}, population.participants...)
}

// bump moves the participant at index to the front.
func (population *realmPopulation) bump(index int) {
	if index <= 0 {
		return
	}
	sighting := population.participants[index]
	copy(population.participants[1:index+1], population.participants[:index])
	population.participants[0] = sighting
}

// randomOnline picks a random online participant, optionally skipping
// the realm owner. Returns -1 when there is none.
func (population *realmPopulation) randomOnline(random *rand.Rand, includeOwner bool) int {
	candidates := make([]int, 0, len(population.participants))
	for index, sighting := range population.participants {
		if !sighting.Online {
			continue
		}
		if sighting.RealmOwner && !includeOwner {
			continue
		}
		candidates = append(candidates, index)
	}
	if len(candidates) == 0 {
		return -1
	}
	return candidates[random.Intn(len(candidates))]
}

// randomOffline picks a random offline participant. Returns -1 when
// there is none.
func (population *realmPopulation) randomOffline(random *rand.Rand) int {
	candidates := make([]int, 0, len(population.participants))
	for index, sighting := range population.participants {
		if !sighting.Online {
			candidates = append(candidates, index)
		}
	}
	if len(candidates) == 0 {
		return -1
	}
	return candidates[random.Intn(len(candidates))]
}

// evictOverflow drops the lowest-ranked offline participant once the
// population grows past maxPopulation, keeping memory bounded during
// long runs.
func (population *realmPopulation) evictOverflow() {
	if len(population.participants) <= maxPopulation {
		return
	}
	for index := len(population.participants) - 1; index >= 0; index-- {
		if !population.participants[index].Online {
			population.participants = append(population.participants[:index], population.participants[index+1:]...)
			return
		}
	}
	population.participants = population.participants[:len(population.participants)-1]
}
