package patch

import (
	"fmt"

	"github.com/hupe1980/wirepatch/internal/hash"
)

// Apply reconstructs the target binary from the base binary and the
// patch. The result buffer is sized to TargetLength regardless of the
// base length: a shorter base is zero-extended, a longer one truncated.
//
// Returns ErrBaseMismatch (as *BaseMismatchError) when old is not the
// version the patch was computed against, and ErrBlockOutOfBounds (as
// *BlockOutOfBoundsError) when a block range exceeds TargetLength.
func Apply(old []byte, p *Patch) ([]byte, error) {
	if p.Algorithm != AlgorithmBlockXOR {
		return nil, ErrUnknownAlgorithm
	}
	if got := hash.Token(old); got != p.BaseHash {
		return nil, &BaseMismatchError{Want: p.BaseHash, Got: got}
	}

	result := make([]byte, p.TargetLength)
	copy(result, old) // copies min(len(old), TargetLength); the rest stays zero

	if err := xorBlocks(result, p); err != nil {
		return nil, err
	}
	return result, nil
}

// ApplyInPlace applies the patch directly to buf, avoiding the result
// allocation. It requires len(buf) == TargetLength, which is the common
// same-size-update case (ErrLengthMismatch otherwise); use Apply for
// size-changing updates.
func (p *Patch) ApplyInPlace(buf []byte) error {
	if p.Algorithm != AlgorithmBlockXOR {
		return ErrUnknownAlgorithm
	}
	if uint32(len(buf)) != p.TargetLength {
		return fmt.Errorf("%w: buffer %d bytes, target %d", ErrLengthMismatch, len(buf), p.TargetLength)
	}
	if got := hash.Token(buf); got != p.BaseHash {
		return &BaseMismatchError{Want: p.BaseHash, Got: got}
	}
	return xorBlocks(buf, p)
}

func xorBlocks(result []byte, p *Patch) error {
	blockSize := int64(p.blockSize())
	for _, b := range p.Blocks {
		start := int64(b.Index) * blockSize
		end := start + int64(len(b.XORData))
		if end > int64(p.TargetLength) {
			return &BlockOutOfBoundsError{Index: b.Index, End: end, TargetLength: p.TargetLength}
		}
		dst := result[start:end]
		for i, x := range b.XORData {
			dst[i] ^= x
		}
	}
	return nil
}
