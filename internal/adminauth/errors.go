package adminauth

import "errors"

var (
	ErrMissingFields        = errors.New("adminauth: missing required fields")
	ErrInvalidEmail         = errors.New("adminauth: invalid email format")
	ErrUnauthorizedEmail    = errors.New("adminauth: unauthorized email address")
	ErrUnauthorizedUsername = errors.New("adminauth: unauthorized username")
	ErrRateLimited          = errors.New("adminauth: too many failed attempts")
	ErrInvalidKey           = errors.New("adminauth: invalid access key")
	ErrKeyExpired           = errors.New("adminauth: access key expired")
	ErrInvalidCredentials   = errors.New("adminauth: invalid credentials")
	ErrNotConfigured        = errors.New("adminauth: admin identity is not configured")
	ErrEmailDispatch        = errors.New("adminauth: access key email dispatch failed")

	// ErrInvalidSession covers every session-token rejection: malformed,
	// tampered, expired. Callers must treat it as "not authenticated" and
	// nothing more specific.
	ErrInvalidSession = errors.New("adminauth: invalid session")
)
