package patch

import (
	"time"

	"github.com/hupe1980/wirepatch/internal/hash"
)

// Diff computes a block-XOR patch that transforms old into new.
//
// Both inputs are partitioned into blockSize-byte blocks; bytes past
// old's end compare as zero. A block is emitted when the XOR of the
// aligned ranges is non-zero or the effective range lengths differ.
// Identical inputs yield a patch with zero blocks.
//
// blockSize <= 0 selects DefaultBlockSize. Runs in O(len(new)) time and
// O(changed bytes) space.
func Diff(old, new []byte, blockSize int) *Patch {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	p := &Patch{
		BaseHash:     hash.Token(old),
		TargetHash:   hash.Token(new),
		Algorithm:    AlgorithmBlockXOR,
		TargetLength: uint32(len(new)),
		BlockSize:    blockSize,
		CreatedAt:    time.Now(),
	}

	numBlocks := (len(new) + blockSize - 1) / blockSize
	for i := 0; i < numBlocks; i++ {
		start := i * blockSize
		end := start + blockSize
		if end > len(new) {
			end = len(new)
		}
		newBlock := new[start:end]

		var oldBlock []byte
		if start < len(old) {
			oldEnd := start + blockSize
			if oldEnd > len(old) {
				oldEnd = len(old)
			}
			oldBlock = old[start:oldEnd]
		}

		xor, dirty := xorBlock(oldBlock, newBlock)
		if !dirty && len(oldBlock) == len(newBlock) {
			continue
		}
		p.Blocks = append(p.Blocks, Block{Index: uint32(i), XORData: xor})
	}

	return p
}

// xorBlock XORs newBlock against oldBlock, treating oldBlock as
// zero-padded to len(newBlock). It reports whether any byte of the
// result is non-zero; the result is only materialized in that case or
// when the caller will need it because the range lengths differ.
func xorBlock(oldBlock, newBlock []byte) ([]byte, bool) {
	n := len(oldBlock)
	if n > len(newBlock) {
		n = len(newBlock)
	}

	dirty := false
	for i := 0; i < n; i++ {
		if oldBlock[i] != newBlock[i] {
			dirty = true
			break
		}
	}
	if !dirty {
		for _, b := range newBlock[n:] {
			if b != 0 {
				dirty = true
				break
			}
		}
	}
	if !dirty && len(oldBlock) == len(newBlock) {
		return nil, false
	}

	xor := make([]byte, len(newBlock))
	copy(xor, newBlock)
	for i := 0; i < n; i++ {
		xor[i] ^= oldBlock[i]
	}
	return xor, dirty
}
