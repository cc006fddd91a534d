// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import (
	"context"
	"errors"
)

// Source is the one external operation the synchronizer consumes: a
// full presence read for a realm. The production implementation is
// the gate HTTP client; tests substitute fakes.
type Source interface {
	// FetchSnapshot returns the realm's current presence. limit
	// hints how many sightings to return — the synchronizer asks
	// for a few more than it displays so trickle transitions have
	// material to work with. Implementations must honor ctx
	// cancellation and bound their own request time.
	//
	// Errors are classified by the caller: an error whose chain
	// carries AccessDenied() == true means the caller lacks
	// visibility into the realm (reconnaissance required);
	// everything else is treated as transient.
	FetchSnapshot(ctx context.Context, realmID string, limit int) (*Snapshot, error)
}

// accessClassifier is the probe interface for access-denied errors,
// following the net.Error convention of classifying by method rather
// than by concrete type, so the synchronizer needs no import of any
// particular transport's error type.
type accessClassifier interface {
	error
	AccessDenied() bool
}

// IsAccessDenied reports whether the error chain contains an error
// that classifies itself as an access denial.
func IsAccessDenied(err error) bool {
	var classifier accessClassifier
	return errors.As(err, &classifier) && classifier.AccessDenied()
}
