// Package kv is the server-side key-value store that holds each collection as
// one opaque JSON value. Writes replace the whole value; there are no partial
// updates and no version checks.
package kv

import (
	"context"
	"crypto/sha3"
	"encoding/hex"
	"errors"
)

// ErrNotFound is returned by Get for a key that has never been written.
var ErrNotFound = errors.New("kv: key not found")

// Entry is a stored value with its content digest.
type Entry struct {
	Value []byte
	// Digest is the hex SHA3-256 of Value. The API serves it as the ETag.
	Digest string
	// UpdatedAt is the write time in Unix milliseconds.
	UpdatedAt int64
}

// Store is a key-value store backend.
type Store interface {
	Get(ctx context.Context, key string) (Entry, error)
	Put(ctx context.Context, key string, value []byte) (Entry, error)
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
	// Backend names the implementation for logs and metrics.
	Backend() string
}

// Digest returns the hex SHA3-256 of value.
func Digest(value []byte) string {
	sum := sha3.Sum256(value)
	return hex.EncodeToString(sum[:])
}
