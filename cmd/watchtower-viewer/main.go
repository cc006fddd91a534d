// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

// watchtower-viewer is a terminal UI for watching who is active in an
// Emberhold realm. It polls the realm gate through the presence
// synchronizer and renders the live feed full screen: arrivals glow in,
// closed sessions flash, and the poll cadence relaxes on its own when
// the realm goes quiet.
//
// The realm to watch comes from --realm, or failing that the first
// entry in the configured realm list. When the configuration lists
// more than one realm, the picker (bound to "p") switches between them
// without restarting the viewer.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/emberhold/watchtower/gate"
	"github.com/emberhold/watchtower/lib/config"
	"github.com/emberhold/watchtower/lib/feedui"
	"github.com/emberhold/watchtower/lib/process"
	"github.com/emberhold/watchtower/lib/version"
	"github.com/emberhold/watchtower/presence"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var configPath string
	var realmFlag string
	var gateFlag string
	var logOutput string

	flagSet := pflag.NewFlagSet("watchtower-viewer", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to config file (default: $WATCHTOWER_CONFIG)")
	flagSet.StringVar(&realmFlag, "realm", "", "realm ID to watch (default: first configured realm)")
	flagSet.StringVar(&gateFlag, "gate", "", "gate base URL (overrides config)")
	flagSet.StringVar(&logOutput, "log-output", "", "write JSON log records to this file")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match the other
	// watchtower binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("watchtower-viewer")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}

	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	args := flagSet.Args()
	if len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	configuration, err := loadConfiguration(configPath)
	if err != nil {
		return err
	}
	if gateFlag != "" {
		configuration.Gate.BaseURL = gateFlag
	}
	if logOutput != "" {
		configuration.Log.File = logOutput
	}
	if err := configuration.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	realmID := realmFlag
	if realmID == "" && len(configuration.Realms) > 0 {
		realmID = configuration.Realms[0].ID
	}
	if realmID == "" {
		return fmt.Errorf("no realm to watch: pass --realm or configure a realms list")
	}

	// The alt-screen UI owns the terminal, so log records go to a
	// file or nowhere. Writing to stderr mid-session would corrupt
	// the display.
	logger, closeLogger, err := openLogger(configuration.Log)
	if err != nil {
		return err
	}
	defer closeLogger()

	client, err := gate.NewClient(gate.ClientConfig{
		BaseURL:            configuration.Gate.BaseURL,
		HTTPClient:         gateHTTPClient(configuration.Gate),
		Logger:             logger,
		Encoding:           configuration.Gate.Encoding,
		DisableCompression: configuration.Gate.DisableCompression,
	})
	if err != nil {
		return err
	}

	synchronizer, err := presence.New(presence.Options{
		Source:        client,
		Logger:        logger,
		DisplayLimit:  configuration.Sync.DisplayLimit,
		FetchSlack:    configuration.Sync.FetchSlack,
		BaseInterval:  time.Duration(configuration.Sync.BaseInterval),
		MaxInterval:   time.Duration(configuration.Sync.MaxInterval),
		GrowthFactor:  configuration.Sync.GrowthFactor,
		IdleThreshold: configuration.Sync.IdleThreshold,
		TrickleDelay:  time.Duration(configuration.Sync.TrickleDelay),
		FetchTimeout:  time.Duration(configuration.Sync.FetchTimeout),
	})
	if err != nil {
		return err
	}

	realms := make([]feedui.Realm, len(configuration.Realms))
	for index, realm := range configuration.Realms {
		realms[index] = feedui.Realm{ID: realm.ID, Name: realm.Name}
	}

	// The model subscribes during construction, so events from the
	// first poll are never dropped even though Start fires the fetch
	// immediately.
	model := feedui.NewModel(synchronizer, realms)
	if err := synchronizer.Start(realmID); err != nil {
		return err
	}
	defer synchronizer.Stop()

	logger.Info("viewer starting",
		"realm", realmID,
		"gate", configuration.Gate.BaseURL,
		"realms_configured", len(realms),
	)

	// The theme is an ANSI-256 indexed palette; pin the profile so
	// the colors land the same on every terminal that has them.
	lipgloss.SetColorProfile(termenv.ANSI256)

	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err = program.Run()
	return err
}

// loadConfiguration resolves the config file: the --config flag wins,
// then $WATCHTOWER_CONFIG, then built-in defaults.
func loadConfiguration(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// gateHTTPClient builds the HTTP client for the configured request
// timeout, or nil to take the gate package's shared default.
func gateHTTPClient(gateConfig config.GateConfig) *http.Client {
	if gateConfig.RequestTimeout == 0 {
		return nil
	}
	return &http.Client{Timeout: time.Duration(gateConfig.RequestTimeout)}
}

// openLogger builds the background logger from the log configuration.
// With no file configured all records are discarded: the TUI has the
// terminal and there is nowhere safe to print.
func openLogger(logConfig config.LogConfig) (*slog.Logger, func(), error) {
	if logConfig.File == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}

	file, err := os.Create(logConfig.File)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open log file %s: %w", logConfig.File, err)
	}

	level, err := logConfig.SlogLevel()
	if err != nil {
		file.Close()
		return nil, nil, err
	}

	// A log file is never a terminal, so "auto" resolves to JSON.
	var handler slog.Handler
	if logConfig.Format == "text" {
		handler = slog.NewTextHandler(file, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler), func() { file.Close() }, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Emberhold realm watchtower — live presence feed in the terminal.

Polls the realm gate for who is active in a realm and renders the
feed full screen. Arrivals slide in one at a time, closed sessions
flash before settling, and polling slows by itself while the realm
is quiet.

Configuration comes from the file named by --config or the
WATCHTOWER_CONFIG environment variable; with neither set the viewer
uses built-in defaults pointed at a local mock gate
(watchtower-gate-mock).

Usage:
  watchtower-viewer [flags]

Examples:
  # Watch the first configured realm
  watchtower-viewer --config watchtower.yaml

  # Watch a specific realm against a specific gate
  watchtower-viewer --realm verdant-reach --gate https://gate.emberhold.example

  # Keep a debug log for a session
  watchtower-viewer --log-output /tmp/watchtower.log

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
