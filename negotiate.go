package wirepatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/wirepatch/blobstore"
	"github.com/hupe1980/wirepatch/patch"
)

// Outcome is the result of a negotiation: exactly one of NotModified,
// PatchUpdate, or FullBinary.
type Outcome interface {
	isOutcome()
}

// NotModified means the client already holds the current version.
type NotModified struct{}

func (NotModified) isOutcome() {}

// PatchUpdate carries a patch from the client's version to the current
// one.
type PatchUpdate struct {
	Patch *patch.Patch
}

func (PatchUpdate) isOutcome() {}

// FullBinary carries the complete current artifact, for clients with
// no version or one too old to patch from. Binary is nil when the
// outcome came from NegotiateShallow.
type FullBinary struct {
	Binary []byte
}

func (FullBinary) isOutcome() {}

// Negotiate decides how to bring a client to the current version. The
// current token is always returned alongside the outcome.
//
//   - clientToken equals the current token: NotModified.
//   - clientToken names a retained (or spilled) version: PatchUpdate
//     with a diff from that version.
//   - otherwise, including clientToken == nil: FullBinary.
//
// An unknown token is never an error — negotiation degrades silently
// to the full binary. The only error condition besides context
// cancellation is an empty store (ErrEmpty).
func (s *Store) Negotiate(ctx context.Context, clientToken *uint64) (Outcome, uint64, error) {
	return s.negotiate(ctx, clientToken, true)
}

// NegotiateShallow is Negotiate without the binary payload: FullBinary
// outcomes carry a nil Binary. Transports that build the full response
// from their own artifact source (wirehttp regenerates the chunk
// stream from sections) use it to skip copying the current binary on
// every cold client.
func (s *Store) NegotiateShallow(ctx context.Context, clientToken *uint64) (Outcome, uint64, error) {
	return s.negotiate(ctx, clientToken, false)
}

func (s *Store) negotiate(ctx context.Context, clientToken *uint64, copyBinary bool) (Outcome, uint64, error) {
	s.mu.RLock()
	cur := s.current
	var base *versionEntry
	if cur != nil && clientToken != nil {
		base = s.byToken[*clientToken]
	}
	s.mu.RUnlock()

	if cur == nil {
		return nil, 0, ErrEmpty
	}

	if clientToken != nil && *clientToken == cur.token {
		s.logger.LogNegotiate(ctx, "not_modified", cur.token, nil)
		return NotModified{}, cur.token, nil
	}

	if base != nil {
		p, err := s.diffOnce(ctx, base.binary, base.token, cur)
		if err != nil {
			return nil, 0, err
		}
		s.logger.LogNegotiate(ctx, "patch", cur.token, p.BlockSet())
		return PatchUpdate{Patch: p}, cur.token, nil
	}

	if clientToken != nil && s.spill != nil {
		old, err := s.spill.Get(ctx, *clientToken)
		switch {
		case err == nil:
			p, derr := s.diffOnce(ctx, old, *clientToken, cur)
			if derr != nil {
				return nil, 0, derr
			}
			s.logger.LogNegotiate(ctx, "patch_spilled", cur.token, p.BlockSet())
			return PatchUpdate{Patch: p}, cur.token, nil
		case errors.Is(err, blobstore.ErrNotFound):
			// fall through to full binary
		case ctx.Err() != nil:
			return nil, 0, ctx.Err()
		default:
			// Spill store trouble must not break delivery; degrade.
			s.logger.WarnContext(ctx, "spill store lookup failed",
				"token", tokenString(*clientToken),
				"error", err,
			)
		}
	}

	full := FullBinary{}
	if copyBinary {
		full.Binary = make([]byte, len(cur.binary))
		copy(full.Binary, cur.binary)
	}
	s.logger.LogNegotiate(ctx, "full_binary", cur.token, nil)
	return full, cur.token, nil
}

// diffOnce computes the base→current patch, collapsing concurrent
// identical computations into one.
func (s *Store) diffOnce(ctx context.Context, base []byte, baseToken uint64, cur *versionEntry) (*patch.Patch, error) {
	key := fmt.Sprintf("%016x-%016x", baseToken, cur.token)
	v, err, _ := s.diffGroup.Do(key, func() (any, error) {
		return patch.Diff(base, cur.binary, s.blockSize), nil
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return v.(*patch.Patch), nil
}
