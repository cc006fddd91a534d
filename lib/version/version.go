// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for watchtower
// binaries.
//
// Release builds inject version information via -ldflags, for example:
//
//	go build -ldflags "-X github.com/emberhold/watchtower/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Builds without ldflags (plain go install) fall back to the VCS
// metadata the toolchain embeds in the binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty indicates whether there were uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version. This is set manually for releases.
	Version = "0.1.0-dev"
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		applyBuildInfo(info)
	}
}

// applyBuildInfo fills the stamp from the binary's embedded VCS
// metadata. An ldflags-stamped commit wins outright: the release
// pipeline knows more than the toolchain does.
func applyBuildInfo(info *debug.BuildInfo) {
	if GitCommit != "unknown" {
		return
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			commit := setting.Value
			if len(commit) > 12 {
				commit = commit[:12]
			}
			if commit != "" {
				GitCommit = commit
			}
		case "vcs.time":
			if setting.Value != "" {
				BuildTime = setting.Value
			}
		case "vcs.modified":
			if setting.Value == "true" {
				GitDirty = "true"
			}
		}
	}
}

// Print writes the standard --version line for the named binary to
// stdout.
func Print(name string) {
	fmt.Printf("%s %s\n", name, Info())
}

// Info returns a formatted version string suitable for --version output.
func Info() string {
	dirty := ""
	if GitDirty == "true" {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Version, GitCommit, dirty, BuildTime)
}

// Full returns detailed version information including Go version.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns just the version number.
func Short() string {
	return Version
}
