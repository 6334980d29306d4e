package patch

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/wirepatch/internal/hash"
)

func TestApplyBaseMismatch(t *testing.T) {
	old := []byte("version one")
	new := []byte("version two")
	p := Diff(old, new, 64)

	_, err := Apply([]byte("something else"), p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBaseMismatch)

	var bm *BaseMismatchError
	require.ErrorAs(t, err, &bm)
	assert.Equal(t, p.BaseHash, bm.Want)
	assert.Equal(t, hash.Token([]byte("something else")), bm.Got)
}

func TestApplyBlockOutOfBounds(t *testing.T) {
	old := []byte("0123456789")
	p := &Patch{
		BaseHash:     hash.Token(old),
		TargetHash:   42,
		Algorithm:    AlgorithmBlockXOR,
		TargetLength: 10,
		BlockSize:    8,
		Blocks: []Block{
			{Index: 1, XORData: []byte{1, 2, 3}}, // bytes 8..11, target is 10
		},
	}

	_, err := Apply(old, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBlockOutOfBounds)

	var oob *BlockOutOfBoundsError
	require.ErrorAs(t, err, &oob)
	assert.Equal(t, uint32(1), oob.Index)
	assert.Equal(t, int64(11), oob.End)
}

func TestApplyUnknownAlgorithm(t *testing.T) {
	p := &Patch{Algorithm: 99}
	_, err := Apply(nil, p)
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}

func TestApplyZeroFillsExtension(t *testing.T) {
	// Target longer than base: the extension beyond the copied prefix
	// is zero before blocks are XORed in.
	old := []byte{0xFF, 0xFF}
	new := []byte{0xFF, 0xFF, 0x00, 0x00, 0x07}

	p := Diff(old, new, 4)
	got, err := Apply(old, p)
	require.NoError(t, err)
	assert.Equal(t, new, got)
}

func TestApplyTargetLengthGovernsOutput(t *testing.T) {
	// Base longer than target: output is truncated to TargetLength no
	// matter how long the base is.
	old := bytes.Repeat([]byte{7}, 1000)
	new := old[:100]

	p := Diff(old, new, 64)
	got, err := Apply(old, p)
	require.NoError(t, err)
	require.Len(t, got, 100)
	assert.Equal(t, []byte(new), got)
}

func TestApplyInPlace(t *testing.T) {
	old := make([]byte, 4096)
	new := make([]byte, 4096)
	copy(new, old)
	new[123] = 0x42
	new[4000] = 0x99

	p := Diff(old, new, 1024)

	buf := make([]byte, len(old))
	copy(buf, old)
	require.NoError(t, p.ApplyInPlace(buf))
	assert.Equal(t, new, buf)
}

func TestApplyInPlaceWrongLength(t *testing.T) {
	old := make([]byte, 100)
	new := make([]byte, 200)
	p := Diff(old, new, 64)

	err := p.ApplyInPlace(old) // len 100 != TargetLength 200
	assert.ErrorIs(t, err, ErrLengthMismatch)
	assert.NotErrorIs(t, err, ErrBlockOutOfBounds)
}

func TestApplyInPlaceBaseMismatch(t *testing.T) {
	old := []byte("aaaa")
	new := []byte("bbbb")
	p := Diff(old, new, 64)

	buf := []byte("cccc")
	assert.ErrorIs(t, p.ApplyInPlace(buf), ErrBaseMismatch)
}
