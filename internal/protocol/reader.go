package protocol

import (
	"encoding/binary"
	"math"
)

// Reader reads wire fields from a message payload. All multi-byte reads are
// little-endian. Reads past the end return zero values and set the short
// flag; callers check Short() once after decoding instead of threading an
// error through every field read.
type Reader struct {
	data   []byte
	off    int
	short  bool
	sloppy bool
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// ReadC reads 1 unsigned byte.
func (r *Reader) ReadC() byte {
	if r.off >= len(r.data) {
		r.short = true
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

// ReadBool reads a single-byte boolean. Any nonzero value decodes as true;
// values other than 0/1 are reported through Sloppy() for diagnostics.
func (r *Reader) ReadBool() bool {
	v := r.ReadC()
	if v > 1 {
		r.sloppy = true
	}
	return v != 0
}

// ReadH reads 2 bytes as little-endian uint16.
func (r *Reader) ReadH() uint16 {
	if r.off+2 > len(r.data) {
		r.short = true
		r.off = len(r.data)
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

// ReadHS reads 2 bytes as little-endian int16.
func (r *Reader) ReadHS() int16 {
	return int16(r.ReadH())
}

// ReadD reads 4 bytes as little-endian int32.
func (r *Reader) ReadD() int32 {
	if r.off+4 > len(r.data) {
		r.short = true
		r.off = len(r.data)
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v
}

// ReadQ reads 8 bytes as little-endian uint64.
func (r *Reader) ReadQ() uint64 {
	if r.off+8 > len(r.data) {
		r.short = true
		r.off = len(r.data)
		return 0
	}
	v := binary.LittleEndian.Uint64(r.data[r.off:])
	r.off += 8
	return v
}

// ReadF reads 4 bytes as a little-endian float32.
func (r *Reader) ReadF() float32 {
	if r.off+4 > len(r.data) {
		r.short = true
		r.off = len(r.data)
		return 0
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v
}

// ReadS reads a byte-length-prefixed UTF-8 string.
func (r *Reader) ReadS() string {
	n := int(r.ReadC())
	if r.off+n > len(r.data) {
		r.short = true
		s := string(r.data[r.off:])
		r.off = len(r.data)
		return s
	}
	s := string(r.data[r.off : r.off+n])
	r.off += n
	return s
}

// ReadRGB reads a 3-byte color triple.
func (r *Reader) ReadRGB() RGB {
	return RGB{R: r.ReadC(), G: r.ReadC(), B: r.ReadC()}
}

// ReadBytes reads n raw bytes.
func (r *Reader) ReadBytes(n int) []byte {
	if r.off+n > len(r.data) {
		r.short = true
		remaining := make([]byte, len(r.data)-r.off)
		copy(remaining, r.data[r.off:])
		r.off = len(r.data)
		return remaining
	}
	b := make([]byte, n)
	copy(b, r.data[r.off:r.off+n])
	r.off += n
	return b
}

// Rest reads all remaining bytes.
func (r *Reader) Rest() []byte {
	return r.ReadBytes(len(r.data) - r.off)
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

// Short reports whether any read ran past the end of the payload.
func (r *Reader) Short() bool {
	return r.short
}

// Sloppy reports whether a boolean field carried a value other than 0/1.
// Such payloads decode successfully but are worth a diagnostic log line.
func (r *Reader) Sloppy() bool {
	return r.sloppy
}

// RGB is the 3-byte color triple used throughout the protocol.
type RGB struct {
	R, G, B byte
}
