package wirepatch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/wirepatch/blobstore"
	"github.com/hupe1980/wirepatch/internal/hash"
)

type versionEntry struct {
	token     uint64
	binary    []byte
	createdAt time.Time
}

// Store retains recent artifact versions keyed by version token and
// answers negotiation requests with "unchanged", a patch, or the full
// binary.
//
// It is read on every request and written only when the artifact
// builder produces a new version, so reads share an RWMutex read lock
// and writes are short and exclusive. Identical concurrent patch
// computations are deduplicated. A Store is owned by the embedding
// process and injected where needed; there is no package-level
// instance.
type Store struct {
	mu      sync.RWMutex
	entries []*versionEntry // insertion order, oldest first
	byToken map[uint64]*versionEntry
	current *versionEntry

	capacity  int
	blockSize int
	logger    *Logger
	spill     blobstore.Store

	diffGroup singleflight.Group
}

// New creates an empty Store.
func New(optFns ...Option) *Store {
	opts := options{
		capacity: DefaultCapacity,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.logger == nil {
		opts.logger = NoopLogger()
	}

	return &Store{
		byToken:   make(map[uint64]*versionEntry),
		capacity:  opts.capacity,
		blockSize: opts.blockSize,
		logger:    opts.logger,
		spill:     opts.spill,
	}
}

// Add inserts a new artifact version, returning its token. The newest
// added version becomes current. Adding bytes that are already
// retained is idempotent apart from marking that version current.
// Inserting past capacity evicts the oldest version first; evicted
// binaries are offered to the spill store when one is configured.
func (s *Store) Add(ctx context.Context, binary []byte) uint64 {
	token := hash.Token(binary)

	s.mu.Lock()
	if ent, ok := s.byToken[token]; ok {
		s.current = ent
		s.mu.Unlock()
		return token
	}

	copied := make([]byte, len(binary))
	copy(copied, binary)

	ent := &versionEntry{token: token, binary: copied, createdAt: time.Now()}
	s.entries = append(s.entries, ent)
	s.byToken[token] = ent
	s.current = ent

	var evicted []*versionEntry
	for len(s.entries) > s.capacity {
		oldest := s.entries[0]
		s.entries = s.entries[1:]
		delete(s.byToken, oldest.token)
		evicted = append(evicted, oldest)
	}
	retained := len(s.entries)
	s.mu.Unlock()

	s.logger.LogAdd(ctx, token, len(copied), retained)
	for _, old := range evicted {
		s.spillOut(ctx, old)
	}
	return token
}

// spillOut offers an evicted version to the spill store. Best-effort:
// failures are logged and the eviction stands.
func (s *Store) spillOut(ctx context.Context, ent *versionEntry) {
	if s.spill == nil {
		s.logger.LogEvict(ctx, ent.token, false, nil)
		return
	}
	err := s.spill.Put(ctx, ent.token, ent.binary)
	s.logger.LogEvict(ctx, ent.token, err == nil, err)
}

// Get returns a copy of the retained binary for token.
func (s *Store) Get(token uint64) ([]byte, bool) {
	s.mu.RLock()
	ent, ok := s.byToken[token]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	copied := make([]byte, len(ent.binary))
	copy(copied, ent.binary)
	return copied, true
}

// Current returns a copy of the current version and its token.
func (s *Store) Current() ([]byte, uint64, bool) {
	s.mu.RLock()
	ent := s.current
	s.mu.RUnlock()
	if ent == nil {
		return nil, 0, false
	}

	copied := make([]byte, len(ent.binary))
	copy(copied, ent.binary)
	return copied, ent.token, true
}

// CurrentToken returns the current version token.
func (s *Store) CurrentToken() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return 0, false
	}
	return s.current.token, true
}

// Len returns the number of retained versions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Tokens returns the retained version tokens, oldest first.
func (s *Store) Tokens() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tokens := make([]uint64, len(s.entries))
	for i, ent := range s.entries {
		tokens[i] = ent.token
	}
	return tokens
}
