// Package blobstore provides persistence for artifact versions that
// fall out of the in-memory version store.
//
// The version store offers evicted binaries to a blobstore and
// consults it during negotiation, so a client holding an old version
// can still receive a patch instead of a full artifact. Artifacts are
// stored and retrieved whole, keyed by their version token — diffing
// needs the complete bytes, so there is no random access surface.
package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when no artifact exists for a token.
//
// Implementations should return an error that satisfies
// errors.Is(err, ErrNotFound). The default maps to os.ErrNotExist.
var ErrNotFound = os.ErrNotExist

// Store persists artifact versions keyed by version token.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the artifact bytes for token, or ErrNotFound.
	Get(ctx context.Context, token uint64) ([]byte, error)

	// Put writes the artifact bytes for token atomically. Putting an
	// existing token overwrites it; contents are identical anyway
	// because tokens are content-derived.
	Put(ctx context.Context, token uint64, data []byte) error

	// Delete removes the artifact for token. Deleting a missing token
	// is not an error.
	Delete(ctx context.Context, token uint64) error

	// List returns the tokens of all stored artifacts.
	List(ctx context.Context) ([]uint64, error)
}
