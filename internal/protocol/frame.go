package protocol

import (
	"encoding/binary"
	"fmt"
)

const (
	// HeaderLen is the 2-byte length field plus the 1-byte message type.
	HeaderLen = 3

	// MaxFrameLen is the hard ceiling of the uint16 length field.
	MaxFrameLen = 65535

	// MaxBufferLen caps the accumulation buffer at double the maximum frame,
	// bounding memory under a malicious or buggy peer.
	MaxBufferLen = 2 * MaxFrameLen
)

// Frame is one length-delimited unit of the wire protocol.
// Length covers the whole frame including the 2-byte length field itself.
type Frame struct {
	Type    MsgType
	Payload []byte
}

// EncodeFrame builds the wire bytes for one frame:
// [2B LE length (includes itself)][1B type][payload].
func EncodeFrame(t MsgType, payload []byte) []byte {
	buf := make([]byte, HeaderLen+len(payload))
	binary.LittleEndian.PutUint16(buf[0:2], uint16(HeaderLen+len(payload)))
	buf[2] = byte(t)
	copy(buf[HeaderLen:], payload)
	return buf
}

// Framer slices a TCP byte stream into complete frames. It performs no I/O;
// feed it whatever the transport read and collect whole frames. Bytes to
// spare are retained for the next call.
type Framer struct {
	buf []byte
}

func NewFramer() *Framer {
	return &Framer{buf: make([]byte, 0, 4096)}
}

// Feed appends chunk to the accumulation buffer and returns every complete
// frame now available. A frame length below the 3-byte header minimum, or a
// buffer past the ceiling, is a fatal framing violation: the caller must
// close the connection, no resynchronization is attempted.
func (f *Framer) Feed(chunk []byte) ([]Frame, error) {
	f.buf = append(f.buf, chunk...)
	if len(f.buf) > MaxBufferLen {
		return nil, fmt.Errorf("%w: %d buffered bytes", ErrBufferOverflow, len(f.buf))
	}

	var frames []Frame
	for {
		if len(f.buf) < 2 {
			break
		}
		length := int(binary.LittleEndian.Uint16(f.buf[0:2]))
		if length < HeaderLen {
			return frames, fmt.Errorf("%w: %d", ErrInvalidFrameLength, length)
		}
		if len(f.buf) < length {
			break
		}
		payload := make([]byte, length-HeaderLen)
		copy(payload, f.buf[HeaderLen:length])
		frames = append(frames, Frame{Type: MsgType(f.buf[2]), Payload: payload})
		f.buf = f.buf[length:]
	}

	// Compact so retained spare bytes do not pin the old backing array.
	if len(f.buf) > 0 && cap(f.buf) > 4*len(f.buf) && cap(f.buf) > 4096 {
		compact := make([]byte, len(f.buf), 4096+len(f.buf))
		copy(compact, f.buf)
		f.buf = compact
	}
	return frames, nil
}

// Buffered returns the number of retained spare bytes.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Reset discards any partially accumulated frame. Used on teardown so a stale
// buffer can never be replayed into a new session.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
}
