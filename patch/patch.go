// Package patch implements the block-XOR diff and patch engine for
// artifact binaries.
//
// A patch describes the difference between two versions of a binary as
// a sparse set of fixed-size blocks. For each changed block it carries
// the byte-wise XOR of the aligned old and new ranges, so applying the
// patch is a bounded-time, allocation-light XOR pass.
//
// The protocol uses one canonical block size end to end
// (DefaultBlockSize); algorithm tag 1 implies it on the wire. Diff and
// apply accept other sizes for in-memory use, but such patches cannot
// be serialized.
package patch

import (
	"time"

	"github.com/RoaringBitmap/roaring/v2"
)

// DefaultBlockSize is the canonical protocol block size in bytes.
const DefaultBlockSize = 4096

// AlgorithmBlockXOR is the algorithm tag for block-XOR patches over
// DefaultBlockSize blocks. It is the only algorithm currently defined.
const AlgorithmBlockXOR uint8 = 1

// Block is one changed block: its index and the XOR of the aligned old
// and new byte ranges. len(XORData) never exceeds the block size.
type Block struct {
	Index   uint32
	XORData []byte
}

// Patch is a sparse description of the difference between a base
// version and a target version of an artifact binary.
//
// Blocks may appear in any order; apply does not require them sorted.
type Patch struct {
	BaseHash     uint64
	TargetHash   uint64
	Algorithm    uint8
	TargetLength uint32
	Blocks       []Block

	// BlockSize is the block size the patch was computed with.
	// Zero means DefaultBlockSize. Non-default sizes are valid in
	// memory but not representable on the wire.
	BlockSize int

	// CreatedAt records when the patch was computed. Not serialized.
	CreatedAt time.Time
}

func (p *Patch) blockSize() int {
	if p.BlockSize <= 0 {
		return DefaultBlockSize
	}
	return p.BlockSize
}

// Empty reports whether the patch changes nothing: no blocks and the
// target is the same length as the base implies.
func (p *Patch) Empty() bool {
	return len(p.Blocks) == 0
}

// BlockSet returns the set of changed block indices as a bitmap.
// Useful for logging and diff statistics on large artifacts.
func (p *Patch) BlockSet() *roaring.Bitmap {
	bm := roaring.New()
	for _, b := range p.Blocks {
		bm.Add(b.Index)
	}
	return bm
}

// ChangedBytes returns the total size of all XOR payloads.
func (p *Patch) ChangedBytes() int {
	var n int
	for _, b := range p.Blocks {
		n += len(b.XORData)
	}
	return n
}
