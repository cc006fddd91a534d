// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package presence

import (
	"errors"
	"fmt"
	"testing"
)

// deniedError is the shape a gate error takes when the realm refused
// visibility.
type deniedError struct{ realm string }

func (e deniedError) Error() string {
	return "gate: reconnaissance required for realm " + e.realm
}

func (e deniedError) AccessDenied() bool { return true }

func TestIsAccessDenied(t *testing.T) {
	if IsAccessDenied(nil) {
		t.Error("nil error classified as an access denial")
	}
	if IsAccessDenied(errors.New("gate: connection refused")) {
		t.Error("plain error classified as an access denial")
	}
	if !IsAccessDenied(deniedError{realm: "realm-1"}) {
		t.Error("denial not classified")
	}
	if !IsAccessDenied(fmt.Errorf("fetch presence: %w", deniedError{realm: "realm-1"})) {
		t.Error("wrapped denial not classified")
	}
}
