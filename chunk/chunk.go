// Package chunk implements the fixed-header chunk framing of the wire
// protocol.
//
// Every chunk is a 5-byte header followed by an opaque body:
//
//	[Type: 1 byte] [Length: 4 bytes LE] [Body: Length bytes]
//
// The fixed-size header keeps parsing branch-free and unambiguous at
// chunk boundaries. Eof chunks always carry a zero-length body.
package chunk

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the encoded size of a chunk header in bytes.
const HeaderSize = 5

// Type identifies the payload kind of a chunk.
type Type uint8

const (
	TypeHeader Type = 0x01
	TypeLayout Type = 0x02
	TypeState  Type = 0x03
	TypeCode   Type = 0x04
	TypePatch  Type = 0x05
	TypeEof    Type = 0xFF
)

// Valid reports whether t is a known chunk type.
func (t Type) Valid() bool {
	switch t {
	case TypeHeader, TypeLayout, TypeState, TypeCode, TypePatch, TypeEof:
		return true
	}
	return false
}

func (t Type) String() string {
	switch t {
	case TypeHeader:
		return "header"
	case TypeLayout:
		return "layout"
	case TypeState:
		return "state"
	case TypeCode:
		return "code"
	case TypePatch:
		return "patch"
	case TypeEof:
		return "eof"
	}
	return fmt.Sprintf("unknown(0x%02x)", uint8(t))
}

// Header is the decoded form of the 5-byte chunk header.
type Header struct {
	Type   Type
	Length uint32
}

// Validate classifies a decoded header as acceptable or a protocol
// error. Short input is not a validation concern; DecodeHeader already
// refuses to decode it.
func (h Header) Validate() error {
	if !h.Type.Valid() {
		return &ProtocolError{Reason: fmt.Sprintf("unknown chunk type 0x%02x", uint8(h.Type))}
	}
	if h.Type == TypeEof && h.Length != 0 {
		return &ProtocolError{Reason: fmt.Sprintf("eof chunk with non-zero length %d", h.Length)}
	}
	return nil
}

// Encode returns a freshly allocated encoded chunk: header plus body.
func Encode(t Type, body []byte) []byte {
	return Append(make([]byte, 0, HeaderSize+len(body)), t, body)
}

// Append appends the encoded chunk to dst and returns the extended
// slice. No allocation occurs beyond growing dst.
//
// Encoding an eof chunk with a body is a programmer error and panics;
// eof carries no payload by definition.
func Append(dst []byte, t Type, body []byte) []byte {
	if t == TypeEof && len(body) != 0 {
		panic("chunk: eof chunk must have an empty body")
	}
	dst = append(dst, byte(t))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(body)))
	return append(dst, body...)
}

// DecodeHeader decodes a chunk header from the front of b. It returns
// ok=false when fewer than HeaderSize bytes are available; callers must
// wait for more data rather than treat short input as an error.
func DecodeHeader(b []byte) (Header, bool) {
	if len(b) < HeaderSize {
		return Header{}, false
	}
	return Header{
		Type:   Type(b[0]),
		Length: binary.LittleEndian.Uint32(b[1:]),
	}, true
}
