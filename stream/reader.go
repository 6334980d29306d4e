// Package stream turns artifact sections and patches into ordered
// chunk streams on the producing side, and arbitrarily fragmented byte
// buffers back into dispatched chunks on the consuming side.
//
// Consumer-side types (Reader, Dispatcher) are single-goroutine by
// contract: they are driven by one logical stream at a time and never
// block, so a host event loop can interleave them freely. Cancellation
// is implicit — stop feeding and drop the value.
package stream

import (
	"fmt"

	"github.com/hupe1980/wirepatch/chunk"
)

// DefaultMaxChunkSize bounds the body length the reader will buffer
// for a single chunk. Larger declared lengths are rejected as protocol
// errors rather than honored with an unbounded allocation.
const DefaultMaxChunkSize = 256 << 20

type readerState uint8

const (
	readingHeader readerState = iota
	readingBody
	finished
)

type readyChunk struct {
	typ  chunk.Type
	body []byte
}

// Reader is the incremental stream parser: a state machine that
// consumes raw bytes in whatever fragmentation the transport delivers
// and produces completed chunks in wire order.
//
// The sequence of chunks observed via PollChunk is identical whether
// the stream arrives one byte at a time or in a single buffer. One
// Reader serves one logical stream; create a new one per connection.
type Reader struct {
	buf   []byte
	off   int
	state readerState
	hdr   chunk.Header
	ready []readyChunk
	err   error

	maxChunkSize uint32
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxChunkSize overrides the per-chunk body size limit.
func WithMaxChunkSize(n uint32) ReaderOption {
	return func(r *Reader) {
		if n > 0 {
			r.maxChunkSize = n
		}
	}
}

// NewReader creates a Reader in its initial state.
func NewReader(optFns ...ReaderOption) *Reader {
	r := &Reader{maxChunkSize: DefaultMaxChunkSize}
	for _, fn := range optFns {
		fn(r)
	}
	return r
}

// Feed appends data to the internal buffer and advances the state
// machine as far as the buffered bytes allow. It returns the number of
// chunks newly completed by this call. Needing more bytes is not an
// error — the caller simply feeds again when more data arrives.
//
// Protocol violations (unknown chunk type, non-empty eof body,
// oversized chunk, bytes after eof) poison the reader: the error is
// returned now and on every subsequent call.
func (r *Reader) Feed(data []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}

	r.buf = append(r.buf, data...)

	newlyReady := 0
	for {
		switch r.state {
		case readingHeader:
			hdr, ok := chunk.DecodeHeader(r.buf[r.off:])
			if !ok {
				return newlyReady, r.compact()
			}
			if err := hdr.Validate(); err != nil {
				return newlyReady, r.fail(err)
			}
			if hdr.Length > r.maxChunkSize {
				return newlyReady, r.fail(&chunk.ProtocolError{
					Reason: fmt.Sprintf("%s chunk of %d bytes exceeds limit %d", hdr.Type, hdr.Length, r.maxChunkSize),
				})
			}
			r.off += chunk.HeaderSize
			if hdr.Type == chunk.TypeEof {
				// Zero-length by validation; completes without
				// waiting for body bytes that will never come.
				r.state = finished
				continue
			}
			r.hdr = hdr
			r.state = readingBody

		case readingBody:
			if len(r.buf)-r.off < int(r.hdr.Length) {
				return newlyReady, r.compact()
			}
			body := make([]byte, r.hdr.Length)
			copy(body, r.buf[r.off:])
			r.off += int(r.hdr.Length)
			r.ready = append(r.ready, readyChunk{typ: r.hdr.Type, body: body})
			newlyReady++
			r.state = readingHeader

		case finished:
			if len(r.buf)-r.off > 0 {
				return newlyReady, r.fail(&chunk.ProtocolError{
					Reason: fmt.Sprintf("%d trailing bytes after eof", len(r.buf)-r.off),
				})
			}
			return newlyReady, r.compact()
		}
	}
}

// PollChunk pops the oldest completed chunk. Eof is a control signal,
// not data: it flips Finished and is never returned here.
func (r *Reader) PollChunk() (chunk.Type, []byte, bool) {
	if len(r.ready) == 0 {
		return 0, nil, false
	}
	c := r.ready[0]
	r.ready = r.ready[1:]
	if len(r.ready) == 0 {
		r.ready = nil
	}
	return c.typ, c.body, true
}

// Pending returns the number of completed chunks not yet polled.
func (r *Reader) Pending() int {
	return len(r.ready)
}

// Finished reports whether the stream's eof chunk has been parsed.
func (r *Reader) Finished() bool {
	return r.state == finished
}

// Err returns the protocol error that poisoned the reader, if any.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) fail(err error) error {
	r.err = err
	r.buf = nil
	r.off = 0
	return err
}

// compact drops consumed bytes so buffered memory stays proportional
// to the largest in-flight chunk rather than the whole stream.
func (r *Reader) compact() error {
	if r.off == len(r.buf) {
		r.buf = r.buf[:0]
		r.off = 0
	} else if r.off > chunk.HeaderSize {
		n := copy(r.buf, r.buf[r.off:])
		r.buf = r.buf[:n]
		r.off = 0
	}
	return nil
}
