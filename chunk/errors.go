package chunk

import (
	"errors"
	"fmt"
)

// ErrProtocol is the sentinel for all wire protocol violations.
// Concrete failures wrap it via *ProtocolError.
var ErrProtocol = errors.New("wire protocol error")

// ProtocolError describes a fatal violation of the chunk framing rules
// (unknown type tag, non-empty eof body, trailing bytes). Streams that
// produce one must be discarded.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("wire protocol error: %s", e.Reason)
}

func (e *ProtocolError) Unwrap() error { return ErrProtocol }
