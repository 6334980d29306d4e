package patch

import (
	"errors"
	"fmt"
)

var (
	// ErrBaseMismatch is returned when the binary a patch is applied to
	// is not the version the patch was computed against.
	ErrBaseMismatch = errors.New("patch base mismatch")

	// ErrBlockOutOfBounds is returned when a block's byte range exceeds
	// the patch target length.
	ErrBlockOutOfBounds = errors.New("patch block out of bounds")

	// ErrTruncatedPatch is returned when a serialized patch ends before
	// its declared contents.
	ErrTruncatedPatch = errors.New("truncated patch")

	// ErrUnknownAlgorithm is returned for algorithm tags this
	// implementation does not understand.
	ErrUnknownAlgorithm = errors.New("unknown patch algorithm")

	// ErrLengthMismatch is returned by ApplyInPlace when the buffer
	// length does not equal the patch target length.
	ErrLengthMismatch = errors.New("buffer length does not match patch target length")

	// ErrBlockSizeNotCanonical is returned when serializing a patch
	// computed with a non-default block size; the wire format only
	// carries the algorithm tag, which implies DefaultBlockSize.
	ErrBlockSizeNotCanonical = errors.New("non-canonical block size not representable on the wire")
)

// BaseMismatchError reports which base version a patch wanted and which
// one it was given.
//
// errors.Is(err, ErrBaseMismatch) holds for values of this type.
type BaseMismatchError struct {
	Want uint64
	Got  uint64
}

func (e *BaseMismatchError) Error() string {
	return fmt.Sprintf("patch base mismatch: want %016x, got %016x", e.Want, e.Got)
}

func (e *BaseMismatchError) Unwrap() error { return ErrBaseMismatch }

// BlockOutOfBoundsError reports a block whose byte range exceeds the
// target length.
//
// errors.Is(err, ErrBlockOutOfBounds) holds for values of this type.
type BlockOutOfBoundsError struct {
	Index        uint32
	End          int64
	TargetLength uint32
}

func (e *BlockOutOfBoundsError) Error() string {
	return fmt.Sprintf("patch block %d out of bounds: end %d exceeds target length %d", e.Index, e.End, e.TargetLength)
}

func (e *BlockOutOfBoundsError) Unwrap() error { return ErrBlockOutOfBounds }
