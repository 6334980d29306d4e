package wirepatch

import (
	"github.com/hupe1980/wirepatch/blobstore"
)

// DefaultCapacity is the number of versions a Store retains in memory.
const DefaultCapacity = 5

type options struct {
	capacity  int
	blockSize int
	logger    *Logger
	spill     blobstore.Store
}

// Option configures a Store.
type Option func(*options)

// WithCapacity sets how many versions the store retains in memory.
// Inserting past capacity evicts the oldest version first. Values < 1
// fall back to DefaultCapacity.
func WithCapacity(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.capacity = n
		}
	}
}

// WithBlockSize overrides the diff block size. Only useful for tests
// and in-process embedding: patches computed with a non-canonical
// block size cannot be serialized for the wire.
func WithBlockSize(n int) Option {
	return func(o *options) {
		o.blockSize = n
	}
}

// WithLogger sets the logger. If never set, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithSpillStore gives evicted versions a second life: on eviction the
// binary is offered to bs, and negotiation consults bs before
// degrading to a full-binary response. Spilling is best-effort —
// blobstore failures are logged, never returned from Add.
func WithSpillStore(bs blobstore.Store) Option {
	return func(o *options) {
		o.spill = bs
	}
}
