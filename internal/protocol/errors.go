package protocol

import "errors"

// Framing violations. Both are fatal to the connection: the stream cannot be
// resynchronized mid-flight, only closed.
var (
	ErrInvalidFrameLength = errors.New("invalid frame length")
	ErrBufferOverflow     = errors.New("frame accumulation buffer overflow")
)

// Codec errors. ErrTruncated is fatal for the message but not the session;
// ErrUnknownType marks a payload kept as opaque passthrough.
var (
	ErrTruncated   = errors.New("payload shorter than layout minimum")
	ErrUnknownType = errors.New("unknown message type")
)
