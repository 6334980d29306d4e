package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/wirepatch/chunk"
	"github.com/hupe1980/wirepatch/patch"
)

func frameTypes(t *testing.T, gen *Generator) []chunk.Type {
	t.Helper()
	var types []chunk.Type
	for {
		frame, ok := gen.Next()
		if !ok {
			return types
		}
		hdr, ok := chunk.DecodeHeader(frame)
		require.True(t, ok)
		require.Len(t, frame, chunk.HeaderSize+int(hdr.Length))
		types = append(types, hdr.Type)
	}
}

func TestGeneratorFullStreamOrder(t *testing.T) {
	gen := NewGenerator(Sections{
		Header: []byte("meta"),
		Layout: []byte("layout"),
		State:  []byte("state"),
		Code:   []byte("code"),
	})

	// Layout before Code: the consumer can prepare templates while
	// the largest section is still in flight.
	assert.Equal(t, []chunk.Type{
		chunk.TypeHeader,
		chunk.TypeLayout,
		chunk.TypeState,
		chunk.TypeCode,
		chunk.TypeEof,
	}, frameTypes(t, gen))
}

func TestGeneratorPatchStreamOrder(t *testing.T) {
	p := patch.Diff([]byte("old-artifact"), []byte("new-artifact"), 0)
	gen, err := NewPatchGenerator([]byte("meta"), p)
	require.NoError(t, err)

	assert.Equal(t, []chunk.Type{
		chunk.TypeHeader,
		chunk.TypePatch,
		chunk.TypeEof,
	}, frameTypes(t, gen))
}

func TestGeneratorResumesUnderBackpressure(t *testing.T) {
	gen := NewGenerator(Sections{Layout: []byte("l")})

	first, ok := gen.Next()
	require.True(t, ok)
	require.Equal(t, 4, gen.Remaining())

	// The transport pauses here; pulling later resumes where we left
	// off, no frames lost or repeated.
	second, ok := gen.Next()
	require.True(t, ok)

	hdr1, _ := chunk.DecodeHeader(first)
	hdr2, _ := chunk.DecodeHeader(second)
	assert.Equal(t, chunk.TypeHeader, hdr1.Type)
	assert.Equal(t, chunk.TypeLayout, hdr2.Type)
}

func TestGeneratorBytesMatchesFrames(t *testing.T) {
	s := Sections{Header: []byte("h"), Layout: []byte("l"), State: []byte("s"), Code: []byte("c")}

	var concat []byte
	gen := NewGenerator(s)
	for {
		f, ok := gen.Next()
		if !ok {
			break
		}
		concat = append(concat, f...)
	}

	assert.Equal(t, concat, NewGenerator(s).Bytes())
}

func TestGeneratorStreamParsesBack(t *testing.T) {
	gen := NewGenerator(Sections{
		Header: []byte("meta"),
		Layout: []byte("layout"),
		State:  []byte("state"),
		Code:   []byte("code"),
	})

	r := NewReader()
	n, err := r.Feed(gen.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.True(t, r.Finished())
}

func TestPatchGeneratorRejectsUnserializablePatch(t *testing.T) {
	p := patch.Diff(make([]byte, 100), make([]byte, 100), 7)
	_, err := NewPatchGenerator(nil, p)
	assert.ErrorIs(t, err, patch.ErrBlockSizeNotCanonical)
}
