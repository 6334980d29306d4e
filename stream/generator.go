package stream

import (
	"github.com/hupe1980/wirepatch/chunk"
	"github.com/hupe1980/wirepatch/patch"
)

// Sections are the four opaque binary sections of an artifact version,
// produced by the artifact builder. The stream layer never interprets
// their contents.
type Sections struct {
	Header []byte
	Layout []byte
	State  []byte
	Code   []byte
}

// Generator is a pull-based producer of encoded chunk frames. Each call
// to Next yields one fully framed chunk; the generator keeps its
// position, so a transport can pause emission under backpressure and
// resume later without losing state. Frames are pre-encoded in memory —
// Next never blocks.
type Generator struct {
	frames [][]byte
	pos    int
}

// NewGenerator builds the full-artifact stream. Emission order is
// fixed: Header, Layout, State, Code, Eof. Layout precedes Code so the
// consumer can start preparing templates while the typically largest
// section is still in flight.
func NewGenerator(s Sections) *Generator {
	return &Generator{frames: [][]byte{
		chunk.Encode(chunk.TypeHeader, s.Header),
		chunk.Encode(chunk.TypeLayout, s.Layout),
		chunk.Encode(chunk.TypeState, s.State),
		chunk.Encode(chunk.TypeCode, s.Code),
		chunk.Encode(chunk.TypeEof, nil),
	}}
}

// NewPatchGenerator builds the incremental-update stream: Header,
// Patch, Eof. The header section travels on patch streams too, so the
// consumer's metadata stays current across incremental updates.
func NewPatchGenerator(header []byte, p *patch.Patch) (*Generator, error) {
	body, err := p.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return &Generator{frames: [][]byte{
		chunk.Encode(chunk.TypeHeader, header),
		chunk.Encode(chunk.TypePatch, body),
		chunk.Encode(chunk.TypeEof, nil),
	}}, nil
}

// Next returns the next encoded frame, or ok=false when the stream is
// exhausted.
func (g *Generator) Next() ([]byte, bool) {
	if g.pos >= len(g.frames) {
		return nil, false
	}
	f := g.frames[g.pos]
	g.pos++
	return f, true
}

// Remaining returns how many frames have not been pulled yet.
func (g *Generator) Remaining() int {
	return len(g.frames) - g.pos
}

// Bytes drains the generator and returns all remaining frames as one
// contiguous stream. Convenient for transports without backpressure.
func (g *Generator) Bytes() []byte {
	var size int
	for _, f := range g.frames[g.pos:] {
		size += len(f)
	}
	out := make([]byte, 0, size)
	for {
		f, ok := g.Next()
		if !ok {
			return out
		}
		out = append(out, f...)
	}
}
