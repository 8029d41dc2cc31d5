package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/yhs0602/terrablade/internal/protocol"
)

// Tile section body layout. The payload starts with a compression byte; a
// value of 1 means the rest of the payload is a raw deflate stream. The
// decompressed body is:
//
//	xStart:int32 yStart:int32 width:int16 height:int16 tiles... trailer
//
// Tiles are run-length encoded row-major. Each run starts with up to three
// flag bytes; which optional fields follow depends on the flags, and tiles
// whose type is marked frame-important in the profile's significance table
// additionally carry a frame UV pair. The trailer (chests, signs, tile
// entities) is not modelled and is skipped.
const (
	tf1HasFlags2  = 1 << 0
	tf1Active     = 1 << 1
	tf1Wall       = 1 << 2
	tf1LiquidMask = 3 << 3 // 0 none, 1 water, 2 lava, 3 honey
	tf1WideType   = 1 << 5
	tf1RLEByte    = 1 << 6
	tf1RLEWord    = 1 << 7

	tf2HasFlags3 = 1 << 0
	tf2WireRed   = 1 << 1
	tf2WireBlue  = 1 << 2
	tf2WireGreen = 1 << 3
	tf2SlopeMask = 7 << 4

	tf3Actuator   = 1 << 1
	tf3Inactive   = 1 << 2
	tf3TileColor  = 1 << 3
	tf3WallColor  = 1 << 4
	tf3WireYellow = 1 << 5
	tf3WideWall   = 1 << 6
	tf3Shimmer    = 1 << 7
)

const (
	wireRed = 1 << iota
	wireBlue
	wireGreen
	wireYellow
)

// compressThreshold keeps small sections uncompressed. Deflate headers cost
// more than they save below this.
const compressThreshold = 128

func (c *Codec) decodeTileSection(payload []byte) (protocol.Message, error) {
	if len(payload) < 1 {
		return nil, fmt.Errorf("%w: TileSection (empty)", protocol.ErrTruncated)
	}
	body := payload[1:]
	if payload[0] != 0 {
		fr := flate.NewReader(bytes.NewReader(body))
		defer fr.Close()
		inflated, err := io.ReadAll(io.LimitReader(fr, 16<<20))
		if err != nil {
			return nil, fmt.Errorf("%w: TileSection inflate: %v", protocol.ErrTruncated, err)
		}
		body = inflated
	}

	r := protocol.NewReader(body)
	m := protocol.TileSection{
		OriginX: r.ReadD(),
		OriginY: r.ReadD(),
		Width:   r.ReadHS(),
		Height:  r.ReadHS(),
	}
	if r.Short() || m.Width <= 0 || m.Height <= 0 {
		return nil, fmt.Errorf("%w: TileSection header (%dx%d)", protocol.ErrTruncated, m.Width, m.Height)
	}

	total := int(m.Width) * int(m.Height)
	m.Tiles = make([]protocol.Tile, 0, total)
	for len(m.Tiles) < total {
		tile, repeat, err := c.decodeTileRun(r)
		if err != nil {
			return nil, err
		}
		if len(m.Tiles)+repeat+1 > total {
			return nil, fmt.Errorf("%w: TileSection run past %d tiles", protocol.ErrTruncated, total)
		}
		for i := 0; i <= repeat; i++ {
			m.Tiles = append(m.Tiles, tile)
		}
	}
	return m, nil
}

func (c *Codec) decodeTileRun(r *protocol.Reader) (protocol.Tile, int, error) {
	var t protocol.Tile
	flags1 := r.ReadC()
	var flags2, flags3 byte
	if flags1&tf1HasFlags2 != 0 {
		flags2 = r.ReadC()
		if flags2&tf2HasFlags3 != 0 {
			flags3 = r.ReadC()
		}
	}

	if flags1&tf1Active != 0 {
		t.Active = true
		if flags1&tf1WideType != 0 {
			t.TileType = r.ReadH()
		} else {
			t.TileType = uint16(r.ReadC())
		}
		if c.FrameImportant(t.TileType) {
			t.FrameX = r.ReadHS()
			t.FrameY = r.ReadHS()
		} else {
			t.FrameX = -1
			t.FrameY = -1
		}
		if flags3&tf3TileColor != 0 {
			t.TileColor = r.ReadC()
		}
	}
	if flags1&tf1Wall != 0 {
		t.Wall = uint16(r.ReadC())
		if flags3&tf3WallColor != 0 {
			t.WallColor = r.ReadC()
		}
	}
	if liquid := (flags1 & tf1LiquidMask) >> 3; liquid != 0 {
		t.Liquid = r.ReadC()
		t.LiquidKind = liquid - 1
		if flags3&tf3Shimmer != 0 {
			t.LiquidKind = 3
		}
	}
	if flags2&tf2WireRed != 0 {
		t.Wiring |= wireRed
	}
	if flags2&tf2WireBlue != 0 {
		t.Wiring |= wireBlue
	}
	if flags2&tf2WireGreen != 0 {
		t.Wiring |= wireGreen
	}
	if flags3&tf3WireYellow != 0 {
		t.Wiring |= wireYellow
	}
	t.Slope = (flags2 & tf2SlopeMask) >> 4
	t.Actuator = flags3&tf3Actuator != 0
	t.Inactive = flags3&tf3Inactive != 0
	if flags3&tf3WideWall != 0 {
		t.Wall |= uint16(r.ReadC()) << 8
	}

	repeat := 0
	if flags1&tf1RLEWord != 0 {
		repeat = int(r.ReadH())
	} else if flags1&tf1RLEByte != 0 {
		repeat = int(r.ReadC())
	}
	if r.Short() {
		return t, 0, fmt.Errorf("%w: TileSection tile run", protocol.ErrTruncated)
	}
	return t, repeat, nil
}

func (c *Codec) encodeTileSection(m protocol.TileSection) ([]byte, error) {
	total := int(m.Width) * int(m.Height)
	if total != len(m.Tiles) {
		return nil, fmt.Errorf("tile section %dx%d carries %d tiles", m.Width, m.Height, len(m.Tiles))
	}

	w := protocol.NewWriter()
	w.WriteD(m.OriginX)
	w.WriteD(m.OriginY)
	w.WriteHS(m.Width)
	w.WriteHS(m.Height)

	for i := 0; i < total; {
		tile := m.Tiles[i]
		repeat := 0
		for i+repeat+1 < total && m.Tiles[i+repeat+1] == tile && repeat < 0xffff {
			repeat++
		}
		c.encodeTileRun(w, tile, repeat)
		i += repeat + 1
	}

	// Empty chest, sign and tile entity trailers.
	w.WriteHS(0)
	w.WriteHS(0)
	w.WriteHS(0)

	body := w.Bytes()
	if len(body) < compressThreshold {
		out := make([]byte, 0, len(body)+1)
		out = append(out, 0)
		out = append(out, body...)
		return protocol.EncodeFrame(protocol.MsgTileSection, out), nil
	}

	var buf bytes.Buffer
	buf.WriteByte(1)
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("tile section deflate: %w", err)
	}
	if _, err := fw.Write(body); err != nil {
		return nil, fmt.Errorf("tile section deflate: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("tile section deflate: %w", err)
	}
	return protocol.EncodeFrame(protocol.MsgTileSection, buf.Bytes()), nil
}

func (c *Codec) encodeTileRun(w *protocol.Writer, t protocol.Tile, repeat int) {
	var flags1, flags2, flags3 byte

	if t.Active {
		flags1 |= tf1Active
		if t.TileType > 0xff {
			flags1 |= tf1WideType
		}
		if t.TileColor != 0 {
			flags3 |= tf3TileColor
		}
	}
	if t.Wall != 0 {
		flags1 |= tf1Wall
		if t.WallColor != 0 {
			flags3 |= tf3WallColor
		}
		if t.Wall > 0xff {
			flags3 |= tf3WideWall
		}
	}
	if t.Liquid != 0 {
		kind := t.LiquidKind
		if kind == 3 {
			flags3 |= tf3Shimmer
			kind = 0
		}
		flags1 |= (kind + 1) << 3
	}
	if t.Wiring&wireRed != 0 {
		flags2 |= tf2WireRed
	}
	if t.Wiring&wireBlue != 0 {
		flags2 |= tf2WireBlue
	}
	if t.Wiring&wireGreen != 0 {
		flags2 |= tf2WireGreen
	}
	if t.Wiring&wireYellow != 0 {
		flags3 |= tf3WireYellow
	}
	flags2 |= (t.Slope << 4) & tf2SlopeMask
	if t.Actuator {
		flags3 |= tf3Actuator
	}
	if t.Inactive {
		flags3 |= tf3Inactive
	}

	if repeat > 0xff {
		flags1 |= tf1RLEWord
	} else if repeat > 0 {
		flags1 |= tf1RLEByte
	}
	if flags3 != 0 {
		flags2 |= tf2HasFlags3
	}
	if flags2 != 0 {
		flags1 |= tf1HasFlags2
	}

	w.WriteC(flags1)
	if flags1&tf1HasFlags2 != 0 {
		w.WriteC(flags2)
		if flags2&tf2HasFlags3 != 0 {
			w.WriteC(flags3)
		}
	}
	if t.Active {
		if flags1&tf1WideType != 0 {
			w.WriteH(t.TileType)
		} else {
			w.WriteC(byte(t.TileType))
		}
		if c.FrameImportant(t.TileType) {
			w.WriteHS(t.FrameX)
			w.WriteHS(t.FrameY)
		}
		if flags3&tf3TileColor != 0 {
			w.WriteC(t.TileColor)
		}
	}
	if flags1&tf1Wall != 0 {
		w.WriteC(byte(t.Wall))
		if flags3&tf3WallColor != 0 {
			w.WriteC(t.WallColor)
		}
	}
	if flags1&tf1LiquidMask != 0 {
		w.WriteC(t.Liquid)
	}
	if flags3&tf3WideWall != 0 {
		w.WriteC(byte(t.Wall >> 8))
	}
	if flags1&tf1RLEWord != 0 {
		w.WriteH(uint16(repeat))
	} else if flags1&tf1RLEByte != 0 {
		w.WriteC(byte(repeat))
	}
}
