package codec

import (
	"errors"
	"reflect"
	"testing"

	"github.com/yhs0602/terrablade/internal/protocol"
)

func sectionRoundTrip(t *testing.T, c *Codec, m protocol.TileSection) protocol.TileSection {
	t.Helper()
	buf, err := c.Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := c.Decode(protocol.Frame{Type: protocol.MsgTileSection, Payload: buf[3:]})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return got.(protocol.TileSection)
}

func TestTileSectionRoundTripUncompressed(t *testing.T) {
	c := newTestCodec(LayoutCurrent)

	dirt := protocol.Tile{Active: true, TileType: 0, FrameX: -1, FrameY: -1}
	torch := protocol.Tile{Active: true, TileType: 4, FrameX: 22, FrameY: 0}
	stone := protocol.Tile{Active: true, TileType: 331, FrameX: -1, FrameY: -1, TileColor: 13}
	walled := protocol.Tile{Wall: 300, WallColor: 5}
	water := protocol.Tile{Liquid: 255, LiquidKind: 0}
	lava := protocol.Tile{Liquid: 128, LiquidKind: 1}
	honey := protocol.Tile{Liquid: 64, LiquidKind: 2}
	shimmer := protocol.Tile{Liquid: 200, LiquidKind: 3}
	wired := protocol.Tile{Active: true, TileType: 1, FrameX: -1, FrameY: -1, Wiring: wireRed | wireYellow, Slope: 2, Actuator: true}
	inactive := protocol.Tile{Active: true, TileType: 1, FrameX: -1, FrameY: -1, Inactive: true}
	air := protocol.Tile{}

	m := protocol.TileSection{
		OriginX: -16, OriginY: 200, Width: 4, Height: 3,
		Tiles: []protocol.Tile{
			dirt, torch, stone, walled,
			water, lava, honey, shimmer,
			wired, inactive, air, air,
		},
	}
	got := sectionRoundTrip(t, c, m)
	if !reflect.DeepEqual(got, m) {
		t.Errorf("got %+v\nwant %+v", got, m)
	}
}

func TestTileSectionRoundTripCompressed(t *testing.T) {
	c := newTestCodec(LayoutCurrent)

	// Varying tile types defeat the RLE so the body crosses the deflate
	// threshold.
	m := protocol.TileSection{OriginX: 0, OriginY: 0, Width: 20, Height: 20}
	for i := 0; i < 400; i++ {
		m.Tiles = append(m.Tiles, protocol.Tile{
			Active: true, TileType: uint16(i % 7), FrameX: -1, FrameY: -1,
		})
	}
	for i := range m.Tiles {
		if c.FrameImportant(m.Tiles[i].TileType) {
			m.Tiles[i].FrameX = int16(i)
			m.Tiles[i].FrameY = 0
		}
	}

	buf, err := c.Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if buf[3] != 1 {
		t.Fatalf("compression byte = %d, want 1", buf[3])
	}
	got, err := c.Decode(protocol.Frame{Type: protocol.MsgTileSection, Payload: buf[3:]})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got.(protocol.TileSection), m) {
		t.Error("compressed section did not round-trip")
	}
}

func TestTileSectionLongRunUsesWordRLE(t *testing.T) {
	c := newTestCodec(LayoutCurrent)

	m := protocol.TileSection{OriginX: 0, OriginY: 0, Width: 30, Height: 30}
	tile := protocol.Tile{Active: true, TileType: 1, FrameX: -1, FrameY: -1}
	for i := 0; i < 900; i++ {
		m.Tiles = append(m.Tiles, tile)
	}
	got := sectionRoundTrip(t, c, m)
	if len(got.Tiles) != 900 {
		t.Fatalf("got %d tiles, want 900", len(got.Tiles))
	}
	if !reflect.DeepEqual(got, m) {
		t.Error("long-run section did not round-trip")
	}
}

func TestTileSectionEncodeRejectsCountMismatch(t *testing.T) {
	c := newTestCodec(LayoutCurrent)
	m := protocol.TileSection{Width: 2, Height: 2, Tiles: make([]protocol.Tile, 3)}
	if _, err := c.Encode(m); err == nil {
		t.Fatal("Encode accepted a 2x2 section with 3 tiles")
	}
}

func TestTileSectionDecodeTruncated(t *testing.T) {
	c := newTestCodec(LayoutCurrent)

	cases := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"header only", []byte{0, 1, 0, 0, 0, 2, 0, 0, 0}},
		{"bad dims", []byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
		{"garbage deflate", []byte{1, 0xde, 0xad, 0xbe, 0xef}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Decode(protocol.Frame{Type: protocol.MsgTileSection, Payload: tc.payload})
			if !errors.Is(err, protocol.ErrTruncated) {
				t.Fatalf("err = %v, want ErrTruncated", err)
			}
		})
	}
}

func TestTileSectionDecodeRunPastTotal(t *testing.T) {
	c := newTestCodec(LayoutCurrent)

	// 2x2 section whose single run claims 200 repeats.
	w := protocol.NewWriter()
	w.WriteD(0)
	w.WriteD(0)
	w.WriteHS(2)
	w.WriteHS(2)
	w.WriteC(tf1Active | tf1RLEByte)
	w.WriteC(1)   // tile type
	w.WriteC(200) // repeat count
	payload := append([]byte{0}, w.Bytes()...)

	_, err := c.Decode(protocol.Frame{Type: protocol.MsgTileSection, Payload: payload})
	if !errors.Is(err, protocol.ErrTruncated) {
		t.Fatalf("err = %v, want ErrTruncated", err)
	}
}
