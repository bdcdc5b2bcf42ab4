package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found, including when a
	// compare-and-set update matched no row in the expected prior state.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when trying to create or update a user
	// with an email that another user already owns.
	ErrDuplicateEmail = errors.New("user with this email already exists")

	// ErrDuplicateIdentity is returned when trying to link a
	// (provider, provider_user_id) pair that is already linked.
	ErrDuplicateIdentity = errors.New("identity already exists")

	// ErrDuplicateCredential is returned when trying to register a passkey
	// with a credential id that is already registered.
	ErrDuplicateCredential = errors.New("passkey credential already exists")
)
