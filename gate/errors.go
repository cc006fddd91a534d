// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a structured error response from the realm gate.
// Callers can use errors.As to extract the structured information:
//
//	var gateErr *gate.Error
//	if errors.As(err, &gateErr) {
//	    if gateErr.Code == gate.CodeRateLimited { ... }
//	}
type Error struct {
	// Code is the gate error code (e.g., "RECON_REQUIRED").
	Code string `json:"code"`
	// Message is the human-readable error description from the gate.
	Message string `json:"message"`
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("gate: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// AccessDenied reports whether the error means the caller has no
// visibility into this realm — reconnaissance required. The presence
// synchronizer probes for this method to pick the locked feed state
// over a silent retry.
func (e *Error) AccessDenied() bool {
	return e.Code == CodeReconRequired || e.StatusCode == http.StatusForbidden
}

// Gate error codes.
const (
	// CodeReconRequired: the caller has not scouted this realm and
	// may not see who is active in it.
	CodeReconRequired = "RECON_REQUIRED"
	// CodeRealmNotFound: no realm with this ID exists.
	CodeRealmNotFound = "REALM_NOT_FOUND"
	// CodeRateLimited: the caller is polling harder than the gate
	// allows.
	CodeRateLimited = "RATE_LIMITED"
	// CodeInternal: the gate itself failed.
	CodeInternal = "INTERNAL"
)

// IsCode checks whether err is a *Error with the given error code.
func IsCode(err error, code string) bool {
	var gateErr *Error
	if errors.As(err, &gateErr) {
		return gateErr.Code == code
	}
	return false
}
