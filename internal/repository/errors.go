// Package repository holds the storage backends behind the probe: the
// secure-storage key-value stores and the Redis-backed message store.
// Sentinel errors here let handlers tell a missing key from a broken backend.
package repository

import "errors"

// ErrNotFound is returned when a key does not exist or has expired.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrEmptyKey is returned when a caller passes an empty key.
var ErrEmptyKey = errors.New("empty key")
