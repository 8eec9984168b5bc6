// Package storage writes uploaded objects to a bucket and issues
// pre-signed write URLs. Backends are constructed once at startup and
// shared read-only across requests.
package storage

import (
	"context"
	"fmt"
	"time"
)

// DefaultPresignExpiry bounds pre-signed write URLs when the caller
// does not configure a lifetime.
const DefaultPresignExpiry = time.Hour

// PresignedUpload pairs a time-boxed write URL with the deterministic
// public URL the object will have once the caller PUTs it.
type PresignedUpload struct {
	Key       string
	UploadURL string
	PublicURL string
	ExpiresIn time.Duration
}

// Store is the object-store contract the gateway orchestrates against.
type Store interface {
	Name() string

	// Put writes the object synchronously with the given metadata and
	// returns its public URL.
	Put(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) (string, error)

	// PresignPut issues a write-capable URL for the key without the
	// gateway handling the bytes. A non-positive expiry selects
	// DefaultPresignExpiry.
	PresignPut(ctx context.Context, key string, expiry time.Duration) (*PresignedUpload, error)

	// PublicURL is the deterministic externally reachable URL for a
	// key, independent of whether the object exists yet.
	PublicURL(key string) string
}

// StorageError wraps a backend failure with the backend and operation
// that produced it.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
