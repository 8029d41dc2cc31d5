package codec

import (
	"errors"
	"reflect"
	"testing"

	"github.com/yhs0602/terrablade/internal/protocol"
)

func newTestCodec(layout int) *Codec {
	layouts := make(map[protocol.MsgType]int)
	for _, t := range protocol.AllTypes() {
		layouts[t] = layout
	}
	important := make([]bool, 700)
	important[4] = true // torches carry frame UVs
	return New(layouts, important)
}

func roundTrip(t *testing.T, c *Codec, msg protocol.Message) protocol.Message {
	t.Helper()
	buf, err := c.Encode(msg)
	if err != nil {
		t.Fatalf("Encode(%s): %v", msg.Type(), err)
	}
	f := protocol.Frame{Type: protocol.MsgType(buf[2]), Payload: buf[3:]}
	got, err := c.Decode(f)
	if err != nil {
		t.Fatalf("Decode(%s): %v", msg.Type(), err)
	}
	return got
}

func TestRoundTripSharedLayouts(t *testing.T) {
	msgs := []protocol.Message{
		protocol.Hello{Version: "Terraria279"},
		protocol.Kick{Reason: "server is full"},
		protocol.PlayerInfo{Slot: 3, ServerSideChar: true},
		protocol.RequestWorldData{},
		protocol.RequestEssentialTiles{X: -1, Y: 120},
		protocol.TileFrameSection{StartX: 10, StartY: 20, EndX: 30, EndY: 40},
		protocol.PlayerActive{Slot: 1, Active: true},
		protocol.PlayerLife{Slot: 0, Life: 87, MaxLife: 400},
		protocol.PlayerMana{Slot: 0, Mana: 15, MaxMana: 200},
		protocol.TileEdit{Action: 1, X: 100, Y: 200, Var1: 57},
		protocol.Time{DayTime: true, Time: 27000, SunY: 12, MoonY: -3},
		protocol.DoorToggle{Open: true, X: 55, Y: 66, Direction: 1},
		protocol.SyncItem{ItemSlot: 12, PosX: 1600, PosY: 3200, VelX: -1, VelY: 2, Stack: 30, Prefix: 5, ItemID: 757},
		protocol.ItemOwner{ItemSlot: 12, Owner: 254},
		protocol.Chat{Slot: 2, Color: protocol.RGB{R: 255, G: 240, B: 20}, Text: "hello"},
		protocol.RequestPassword{},
		protocol.SendPassword{Password: "hunter2"},
		protocol.Liquid{X: 40, Y: 41, Amount: 255, LiquidKind: 1},
		protocol.StartPlaying{},
		protocol.AddPlayerBuff{Slot: 0, BuffType: 21, BuffTime: 3600},
		protocol.SyncNPCName{NPCSlot: 7, Name: "Andrew"},
		protocol.WorldBalance{Hallowed: 12, Corrupted: 34},
		protocol.ClientUUID{UUID: "c0ffee00-1234-5678-9abc-def012345678"},
	}
	for _, layout := range []int{LayoutLegacy, LayoutCurrent} {
		c := newTestCodec(layout)
		for _, msg := range msgs {
			if got := roundTrip(t, c, msg); !reflect.DeepEqual(got, msg) {
				t.Errorf("layout %d %s: got %+v, want %+v", layout, msg.Type(), got, msg)
			}
		}
	}
}

func TestRoundTripSyncPlayerBothLayouts(t *testing.T) {
	base := protocol.SyncPlayer{
		Slot:        1,
		SkinVariant: 4,
		Hair:        12,
		Name:        "Terrablade",
		HairDye:     1,
		HideVisuals: 0x0f,
		HideMisc:    2,
		HairColor:   protocol.RGB{R: 140, G: 90, B: 60},
		SkinColor:   protocol.RGB{R: 255, G: 224, B: 189},
		EyeColor:    protocol.RGB{R: 64, G: 64, B: 64},
		ShirtColor:  protocol.RGB{R: 100, G: 100, B: 100},
		UnderColor:  protocol.RGB{R: 100, G: 100, B: 100},
		PantsColor:  protocol.RGB{R: 100, G: 100, B: 100},
		ShoeColor:   protocol.RGB{R: 50, G: 50, B: 50},
		Difficulty:  2,
	}

	legacy := newTestCodec(LayoutLegacy)
	if got := roundTrip(t, legacy, base); !reflect.DeepEqual(got, base) {
		t.Errorf("legacy: got %+v, want %+v", got, base)
	}

	full := base
	full.HideVisuals2 = 3
	full.TorchFlags = 1
	full.ShimmerFlags = 2
	current := newTestCodec(LayoutCurrent)
	if got := roundTrip(t, current, full); !reflect.DeepEqual(got, full) {
		t.Errorf("current: got %+v, want %+v", got, full)
	}

	// The current-only fields must not survive a legacy encode.
	if got := roundTrip(t, legacy, full).(protocol.SyncPlayer); got.TorchFlags != 0 || got.HideVisuals2 != 0 {
		t.Errorf("legacy encode leaked current-only fields: %+v", got)
	}
}

func TestRoundTripSyncEquipmentSlotWidth(t *testing.T) {
	m := protocol.SyncEquipment{Slot: 0, InvSlot: 300, Stack: 99, Prefix: 81, ItemID: 3507}

	current := newTestCodec(LayoutCurrent)
	if got := roundTrip(t, current, m); !reflect.DeepEqual(got, m) {
		t.Errorf("current: got %+v, want %+v", got, m)
	}

	// Legacy carries a single-byte slot index; 300 wraps. Use a small slot.
	m.InvSlot = 44
	legacy := newTestCodec(LayoutLegacy)
	if got := roundTrip(t, legacy, m); !reflect.DeepEqual(got, m) {
		t.Errorf("legacy: got %+v, want %+v", got, m)
	}
}

func TestRoundTripPlayerBuffs(t *testing.T) {
	legacy := newTestCodec(LayoutLegacy)
	m := protocol.PlayerBuffs{Slot: 2, Buffs: make([]uint16, 22)}
	m.Buffs[0] = 5
	m.Buffs[21] = 200
	if got := roundTrip(t, legacy, m); !reflect.DeepEqual(got, m) {
		t.Errorf("legacy: got %+v, want %+v", got, m)
	}

	current := newTestCodec(LayoutCurrent)
	m2 := protocol.PlayerBuffs{Slot: 2, Buffs: make([]uint16, 44)}
	m2.Buffs[0] = 5
	m2.Buffs[43] = 500
	if got := roundTrip(t, current, m2); !reflect.DeepEqual(got, m2) {
		t.Errorf("current: got %+v, want %+v", got, m2)
	}
}

func TestRoundTripPlayerSpawnBothLayouts(t *testing.T) {
	legacy := newTestCodec(LayoutLegacy)
	m := protocol.PlayerSpawn{Slot: 0, SpawnX: 2100, SpawnY: 230}
	if got := roundTrip(t, legacy, m); !reflect.DeepEqual(got, m) {
		t.Errorf("legacy: got %+v, want %+v", got, m)
	}

	current := newTestCodec(LayoutCurrent)
	m2 := protocol.PlayerSpawn{Slot: 0, SpawnX: 2100, SpawnY: 230, RespawnRemaining: 600, DeathsPVE: 3, DeathsPVP: 1, Context: 1}
	if got := roundTrip(t, current, m2); !reflect.DeepEqual(got, m2) {
		t.Errorf("current: got %+v, want %+v", got, m2)
	}
}

func TestRoundTripPlayerControls(t *testing.T) {
	legacy := newTestCodec(LayoutLegacy)
	m := protocol.PlayerControls{Slot: 0, Control: 8, SelectedItem: 2, PosX: 33600, PosY: 3680, HasVelocity: true, VelX: 3, VelY: -1}
	if got := roundTrip(t, legacy, m); !reflect.DeepEqual(got, m) {
		t.Errorf("legacy: got %+v, want %+v", got, m)
	}

	current := newTestCodec(LayoutCurrent)
	m2 := protocol.PlayerControls{Slot: 0, Control: 8, Pulley: 4, Misc: 1, SelectedItem: 2, PosX: 33600, PosY: 3680, HasVelocity: true, VelX: 3, VelY: -1}
	if got := roundTrip(t, current, m2); !reflect.DeepEqual(got, m2) {
		t.Errorf("current with velocity: got %+v, want %+v", got, m2)
	}

	m3 := protocol.PlayerControls{Slot: 0, Control: 4, SelectedItem: 1, PosX: 100, PosY: 200}
	if got := roundTrip(t, current, m3); !reflect.DeepEqual(got, m3) {
		t.Errorf("current without velocity: got %+v, want %+v", got, m3)
	}
}

func TestRoundTripWorldDataBothLayouts(t *testing.T) {
	legacy := protocol.WorldData{
		GameTime:    27000,
		DayFlags:    1,
		MoonPhase:   3,
		MaxTilesX:   4200,
		MaxTilesY:   1200,
		SpawnX:      2100,
		SpawnY:      230,
		GroundLevel: 350,
		RockLevel:   480,
		WorldID:     777,
		WorldName:   "Worldy",
		MoonType:    1,
		IceBackStyle: 2,
		JungleBack:  1,
		HellBack:    1,
		WindSpeed:   0.2,
		CloudCount:  120,
		TreeX:       [3]int32{900, 2400, 3600},
		TreeStyle:   [4]byte{1, 2, 3, 4},
		CaveBackX:   [3]int32{800, 2000, 3500},
		CaveBackStyle: [4]byte{4, 3, 2, 1},
		Rain:        0.5,
		InvasionType: -1,
		LobbyID:     123456789,
	}
	for i := 0; i < 8; i++ {
		legacy.Backgrounds[i] = byte(i)
	}
	for i := 0; i < 4; i++ {
		legacy.EventFlags[i] = byte(i * 3)
	}
	for i := 0; i < 3; i++ {
		legacy.OreTiers[i] = int16(100 + i)
	}
	c := newTestCodec(LayoutLegacy)
	if got := roundTrip(t, c, legacy); !reflect.DeepEqual(got, legacy) {
		t.Errorf("legacy: got %+v, want %+v", got, legacy)
	}

	current := legacy
	current.GameMode = 2
	copy(current.WorldUUID[:], []byte("0123456789abcdef"))
	current.GeneratorVer = 11
	for i := range current.Backgrounds {
		current.Backgrounds[i] = byte(i)
	}
	for i := range current.TreeTops {
		current.TreeTops[i] = byte(i)
	}
	for i := range current.EventFlags {
		current.EventFlags[i] = byte(i)
	}
	for i := range current.OreTiers {
		current.OreTiers[i] = int16(100 + i)
	}
	current.SundialCooldown = 1
	current.MoondialCooldown = 2
	current.SandstormSeverity = 0.75
	c2 := newTestCodec(LayoutCurrent)
	if got := roundTrip(t, c2, current); !reflect.DeepEqual(got, current) {
		t.Errorf("current: got %+v, want %+v", got, current)
	}
}

func TestRoundTripSyncNPC(t *testing.T) {
	c := newTestCodec(LayoutCurrent)
	m := protocol.SyncNPC{
		NPCSlot: 5,
		PosX:    1000, PosY: 2000,
		VelX: 1, VelY: -0.5,
		Target: 0,
		Flags1: 1<<2 | 1<<4, // ai0 and ai2 present, life trailer present
		Flags2: 1,           // scaled strength trailer
		NPCID:  4,
		PlayerCountScale: 2,
		StrengthScale:    1.5,
		LifeBytes:        2,
		Life:             1400,
		HasRelease:       true,
		ReleaseOwner:     1,
	}
	m.AI[0] = 7
	m.AI[2] = -3
	if got := roundTrip(t, c, m); !reflect.DeepEqual(got, m) {
		t.Errorf("got %+v, want %+v", got, m)
	}

	// Boss-style: life omitted via flags1 bit 7.
	m2 := protocol.SyncNPC{NPCSlot: 1, Flags1: 128, NPCID: 113}
	if got := roundTrip(t, c, m2); !reflect.DeepEqual(got, m2) {
		t.Errorf("no-life: got %+v, want %+v", got, m2)
	}
}

func TestRoundTripStatusText(t *testing.T) {
	legacy := newTestCodec(LayoutLegacy)
	m := protocol.StatusText{Max: 100, Text: "Receiving tile data"}
	if got := roundTrip(t, legacy, m); !reflect.DeepEqual(got, m) {
		t.Errorf("legacy: got %+v, want %+v", got, m)
	}

	current := newTestCodec(LayoutCurrent)
	m2 := protocol.StatusText{Max: 100, Text: "Receiving tile data", Flags: 1}
	if got := roundTrip(t, current, m2); !reflect.DeepEqual(got, m2) {
		t.Errorf("current: got %+v, want %+v", got, m2)
	}
}

func TestDecodeTruncatedFails(t *testing.T) {
	c := newTestCodec(LayoutCurrent)
	full, err := c.Encode(protocol.SyncItem{ItemSlot: 1, Stack: 2, ItemID: 3})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	payload := full[3:]
	for cut := 0; cut < len(payload); cut++ {
		_, err := c.Decode(protocol.Frame{Type: protocol.MsgSyncItem, Payload: payload[:cut]})
		if !errors.Is(err, protocol.ErrTruncated) {
			t.Fatalf("cut %d: err = %v, want ErrTruncated", cut, err)
		}
	}
}

func TestDecodeUnknownTypePassesThrough(t *testing.T) {
	c := newTestCodec(LayoutCurrent)
	payload := []byte{1, 2, 3, 4}
	msg, err := c.Decode(protocol.Frame{Type: 200, Payload: payload})
	if !errors.Is(err, protocol.ErrUnknownType) {
		t.Fatalf("err = %v, want ErrUnknownType", err)
	}
	raw, ok := msg.(protocol.Raw)
	if !ok {
		t.Fatalf("msg = %T, want Raw", msg)
	}
	if raw.MsgType != 200 || !reflect.DeepEqual(raw.Payload, payload) {
		t.Fatalf("raw = %+v", raw)
	}

	// And a Raw encodes back byte-identically.
	buf, err := c.Encode(raw)
	if err != nil {
		t.Fatalf("Encode(Raw): %v", err)
	}
	if buf[2] != 200 || !reflect.DeepEqual(buf[3:], payload) {
		t.Fatalf("re-encoded frame = %v", buf)
	}
}

func TestSyncLoadoutStaysRaw(t *testing.T) {
	c := newTestCodec(LayoutCurrent)
	payload := []byte{0, 1, 0, 0}
	msg, err := c.Decode(protocol.Frame{Type: protocol.MsgSyncLoadout, Payload: payload})
	if !errors.Is(err, protocol.ErrUnknownType) {
		t.Fatalf("err = %v, want ErrUnknownType", err)
	}
	if raw, ok := msg.(protocol.Raw); !ok || raw.MsgType != protocol.MsgSyncLoadout {
		t.Fatalf("msg = %#v", msg)
	}
}
