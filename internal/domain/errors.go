package domain

import "errors"

// Error taxonomy for the authentication core. Every failure surfaced by a
// service wraps exactly one of these, so handlers can classify with
// errors.Is without inspecting messages.
var (
	// ErrInvalidCredential covers every failed authentication attempt:
	// bad or expired token, unknown email, missing passkey, missing
	// ceremony state. Deliberately generic so external callers cannot
	// distinguish which check failed.
	ErrInvalidCredential = errors.New("invalid credentials")

	// ErrConflict is returned for duplicate account links and duplicate
	// emails on authenticated flows.
	ErrConflict = errors.New("conflict")

	// ErrReplayDetected signals a non-monotonic passkey signature counter.
	// Distinct from ErrInvalidCredential: this indicates credential
	// cloning and should alert, not count as a failed login.
	ErrReplayDetected = errors.New("replay detected")

	// ErrInternal covers consistency faults (dangling references) and
	// collaborator failures. Always a bug or an outage, never user input.
	ErrInternal = errors.New("internal error")

	// ErrValidation is returned for malformed email, phone, or name input
	// on authenticated flows.
	ErrValidation = errors.New("validation failed")
)
