package patch

import (
	"encoding/binary"
	"fmt"
)

// Wire layout (all integers little-endian):
//
//	BaseHash     (8 bytes)
//	TargetHash   (8 bytes)
//	Algorithm    (1 byte)
//	TargetLength (4 bytes)
//	BlockCount   (4 bytes)
//	Blocks:
//	  Index      (4 bytes)
//	  XORLen     (2 bytes)
//	  XORData    (XORLen bytes)
const headerSize = 8 + 8 + 1 + 4 + 4

const maxXORLen = 1<<16 - 1

// MarshalBinary serializes the patch into its wire form.
//
// Only patches computed with the canonical block size can be
// serialized; the wire format carries just the algorithm tag, which
// implies DefaultBlockSize.
func (p *Patch) MarshalBinary() ([]byte, error) {
	if p.Algorithm != AlgorithmBlockXOR {
		return nil, ErrUnknownAlgorithm
	}
	if p.blockSize() != DefaultBlockSize {
		return nil, ErrBlockSizeNotCanonical
	}

	size := headerSize
	for _, b := range p.Blocks {
		if len(b.XORData) > maxXORLen {
			return nil, fmt.Errorf("patch block %d: xor data %d bytes exceeds wire limit", b.Index, len(b.XORData))
		}
		size += 4 + 2 + len(b.XORData)
	}

	buf := make([]byte, 0, size)
	buf = binary.LittleEndian.AppendUint64(buf, p.BaseHash)
	buf = binary.LittleEndian.AppendUint64(buf, p.TargetHash)
	buf = append(buf, p.Algorithm)
	buf = binary.LittleEndian.AppendUint32(buf, p.TargetLength)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.Blocks)))

	for _, b := range p.Blocks {
		buf = binary.LittleEndian.AppendUint32(buf, b.Index)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(b.XORData)))
		buf = append(buf, b.XORData...)
	}
	return buf, nil
}

// UnmarshalBinary parses a serialized patch. Blocks are accepted in any
// order. Input that ends before its declared contents yields
// ErrTruncatedPatch; an unrecognized algorithm tag yields
// ErrUnknownAlgorithm. The input slice is not retained.
func UnmarshalBinary(data []byte) (*Patch, error) {
	rd := wireReader{buf: data}

	p := &Patch{
		BaseHash:   rd.uint64(),
		TargetHash: rd.uint64(),
		Algorithm:  rd.uint8(),
	}
	p.TargetLength = rd.uint32()
	blockCount := rd.uint32()
	if rd.err != nil {
		return nil, rd.err
	}
	if p.Algorithm != AlgorithmBlockXOR {
		return nil, fmt.Errorf("%w: tag %d", ErrUnknownAlgorithm, p.Algorithm)
	}
	p.BlockSize = DefaultBlockSize

	// Each block is at least 6 bytes; reject counts the remaining
	// input cannot possibly satisfy before allocating for them.
	if int64(blockCount)*6 > int64(len(data)-headerSize) {
		return nil, fmt.Errorf("%w: %d blocks declared, %d bytes remain", ErrTruncatedPatch, blockCount, len(data)-headerSize)
	}

	p.Blocks = make([]Block, 0, blockCount)
	for i := uint32(0); i < blockCount; i++ {
		index := rd.uint32()
		xor := rd.bytes(int(rd.uint16()))
		if rd.err != nil {
			return nil, rd.err
		}
		p.Blocks = append(p.Blocks, Block{Index: index, XORData: xor})
	}
	return p, nil
}

// wireReader decodes little-endian primitives with a sticky error, so
// call sites stay linear instead of checking every read.
type wireReader struct {
	buf []byte
	pos int
	err error
}

func (r *wireReader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.buf) {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncatedPatch, n, r.pos, len(r.buf)-r.pos)
		return false
	}
	return true
}

func (r *wireReader) uint8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.pos]
	r.pos++
	return v
}

func (r *wireReader) uint16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v
}

func (r *wireReader) uint32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v
}

func (r *wireReader) uint64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v
}

func (r *wireReader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:])
	r.pos += n
	return out
}
