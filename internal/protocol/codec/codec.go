// Package codec converts between wire frames and typed protocol messages.
// A Codec is bound to one resolved protocol profile: the profile decides,
// per message type, which of the concurrently supported field layouts is in
// effect, and supplies the tile significance table that tile section decoding
// depends on.
package codec

import (
	"fmt"

	"github.com/yhs0602/terrablade/internal/protocol"
)

// Layout versions. Legacy is the 1.3-generation field layout, Current the
// 1.4-generation one. Message types whose layout never diverged ignore the
// distinction.
const (
	LayoutLegacy  = 1
	LayoutCurrent = 2
)

// Codec encodes and decodes messages for one protocol profile.
type Codec struct {
	layouts        map[protocol.MsgType]int
	frameImportant []bool
}

// New builds a Codec. layouts maps message types to their layout version;
// types not present default to LayoutCurrent. frameImportant is indexed by
// tile type and marks tiles that carry frame UV coordinates.
func New(layouts map[protocol.MsgType]int, frameImportant []bool) *Codec {
	l := make(map[protocol.MsgType]int, len(layouts))
	for t, v := range layouts {
		l[t] = v
	}
	fi := make([]bool, len(frameImportant))
	copy(fi, frameImportant)
	return &Codec{layouts: l, frameImportant: fi}
}

func (c *Codec) layoutFor(t protocol.MsgType) int {
	if v, ok := c.layouts[t]; ok {
		return v
	}
	return LayoutCurrent
}

// FrameImportant reports whether tiles of the given type carry frame UVs.
func (c *Codec) FrameImportant(tileType uint16) bool {
	return int(tileType) < len(c.frameImportant) && c.frameImportant[tileType]
}

// Decode turns one frame into a typed message. A payload too short for its
// layout fails with ErrTruncated; a type the codec does not model is returned
// as a Raw message together with ErrUnknownType so the caller can decide
// whether to forward or log it. Both leave the session usable.
func (c *Codec) Decode(f protocol.Frame) (protocol.Message, error) {
	r := protocol.NewReader(f.Payload)
	layout := c.layoutFor(f.Type)

	var msg protocol.Message
	switch f.Type {
	case protocol.MsgHello:
		msg = protocol.Hello{Version: r.ReadS()}
	case protocol.MsgKick:
		msg = protocol.Kick{Reason: r.ReadS()}
	case protocol.MsgPlayerInfo:
		m := protocol.PlayerInfo{Slot: r.ReadC()}
		if r.Remaining() > 0 {
			m.ServerSideChar = r.ReadBool()
		}
		msg = m
	case protocol.MsgSyncPlayer:
		msg = decodeSyncPlayer(r, layout)
	case protocol.MsgSyncEquipment:
		msg = decodeSyncEquipment(r, layout)
	case protocol.MsgRequestWorldData:
		msg = protocol.RequestWorldData{}
	case protocol.MsgWorldData:
		msg = decodeWorldData(r, layout)
	case protocol.MsgRequestEssentialTiles:
		msg = protocol.RequestEssentialTiles{X: r.ReadD(), Y: r.ReadD()}
	case protocol.MsgStatusText:
		msg = decodeStatusText(r, layout)
	case protocol.MsgTileSection:
		return c.decodeTileSection(f.Payload)
	case protocol.MsgTileFrameSection:
		msg = protocol.TileFrameSection{
			StartX: int32(r.ReadHS()), StartY: int32(r.ReadHS()),
			EndX: int32(r.ReadHS()), EndY: int32(r.ReadHS()),
		}
	case protocol.MsgPlayerSpawn:
		msg = decodePlayerSpawn(r, layout)
	case protocol.MsgPlayerControls:
		msg = decodePlayerControls(r, layout)
	case protocol.MsgPlayerActive:
		msg = protocol.PlayerActive{Slot: r.ReadC(), Active: r.ReadBool()}
	case protocol.MsgPlayerLife:
		msg = protocol.PlayerLife{Slot: r.ReadC(), Life: r.ReadHS(), MaxLife: r.ReadHS()}
	case protocol.MsgTileEdit:
		msg = protocol.TileEdit{
			Action: r.ReadC(),
			X:      int32(r.ReadHS()), Y: int32(r.ReadHS()),
			Var1: byte(r.ReadHS() & 0xff), Var2: r.ReadC(),
		}
	case protocol.MsgTime:
		msg = protocol.Time{DayTime: r.ReadBool(), Time: r.ReadD(), SunY: r.ReadHS(), MoonY: r.ReadHS()}
	case protocol.MsgDoorToggle:
		msg = protocol.DoorToggle{
			Open: r.ReadC() != 0,
			X:    int32(r.ReadHS()), Y: int32(r.ReadHS()),
			Direction: r.ReadC(),
		}
	case protocol.MsgSyncItem:
		msg = protocol.SyncItem{
			ItemSlot: r.ReadHS(),
			PosX:     r.ReadF(), PosY: r.ReadF(),
			VelX: r.ReadF(), VelY: r.ReadF(),
			Stack: r.ReadHS(), Prefix: r.ReadC(), NoDelay: r.ReadC(),
			ItemID: r.ReadHS(),
		}
	case protocol.MsgItemOwner:
		msg = protocol.ItemOwner{ItemSlot: r.ReadHS(), Owner: r.ReadC()}
	case protocol.MsgSyncNPC:
		msg = decodeSyncNPC(r)
	case protocol.MsgChat:
		msg = protocol.Chat{Slot: r.ReadC(), Color: r.ReadRGB(), Text: r.ReadS()}
	case protocol.MsgRequestPassword:
		msg = protocol.RequestPassword{}
	case protocol.MsgSendPassword:
		msg = protocol.SendPassword{Password: r.ReadS()}
	case protocol.MsgPlayerMana:
		msg = protocol.PlayerMana{Slot: r.ReadC(), Mana: r.ReadHS(), MaxMana: r.ReadHS()}
	case protocol.MsgLiquid:
		msg = protocol.Liquid{
			X: int32(r.ReadHS()), Y: int32(r.ReadHS()),
			Amount: r.ReadC(), LiquidKind: r.ReadC(),
		}
	case protocol.MsgStartPlaying:
		msg = protocol.StartPlaying{}
	case protocol.MsgPlayerBuffs:
		msg = decodePlayerBuffs(r, layout)
	case protocol.MsgAddPlayerBuff:
		msg = protocol.AddPlayerBuff{Slot: r.ReadC(), BuffType: r.ReadC(), BuffTime: r.ReadHS()}
	case protocol.MsgSyncNPCName:
		msg = protocol.SyncNPCName{NPCSlot: r.ReadHS(), Name: r.ReadS()}
	case protocol.MsgWorldBalance:
		msg = protocol.WorldBalance{Hallowed: r.ReadC(), Corrupted: r.ReadC()}
	case protocol.MsgClientUUID:
		msg = protocol.ClientUUID{UUID: r.ReadS()}
	default:
		raw := protocol.Raw{MsgType: f.Type, Payload: append([]byte(nil), f.Payload...)}
		return raw, fmt.Errorf("%w: %s", protocol.ErrUnknownType, f.Type)
	}

	if r.Short() {
		return nil, fmt.Errorf("%w: %s (%d bytes)", protocol.ErrTruncated, f.Type, len(f.Payload))
	}
	return msg, nil
}

// Encode turns a typed message into complete wire bytes, header included.
func (c *Codec) Encode(m protocol.Message) ([]byte, error) {
	w := protocol.NewWriter()
	layout := c.layoutFor(m.Type())

	switch v := m.(type) {
	case protocol.Raw:
		return protocol.EncodeFrame(v.MsgType, v.Payload), nil
	case protocol.Hello:
		w.WriteS(v.Version)
	case protocol.Kick:
		w.WriteS(v.Reason)
	case protocol.PlayerInfo:
		w.WriteC(v.Slot)
		w.WriteBool(v.ServerSideChar)
	case protocol.SyncPlayer:
		encodeSyncPlayer(w, v, layout)
	case protocol.SyncEquipment:
		encodeSyncEquipment(w, v, layout)
	case protocol.RequestWorldData:
		// no payload
	case protocol.WorldData:
		encodeWorldData(w, v, layout)
	case protocol.RequestEssentialTiles:
		w.WriteD(v.X)
		w.WriteD(v.Y)
	case protocol.StatusText:
		encodeStatusText(w, v, layout)
	case protocol.TileSection:
		return c.encodeTileSection(v)
	case protocol.TileFrameSection:
		w.WriteHS(int16(v.StartX))
		w.WriteHS(int16(v.StartY))
		w.WriteHS(int16(v.EndX))
		w.WriteHS(int16(v.EndY))
	case protocol.PlayerSpawn:
		encodePlayerSpawn(w, v, layout)
	case protocol.PlayerControls:
		encodePlayerControls(w, v, layout)
	case protocol.PlayerActive:
		w.WriteC(v.Slot)
		w.WriteBool(v.Active)
	case protocol.PlayerLife:
		w.WriteC(v.Slot)
		w.WriteHS(v.Life)
		w.WriteHS(v.MaxLife)
	case protocol.TileEdit:
		w.WriteC(v.Action)
		w.WriteHS(int16(v.X))
		w.WriteHS(int16(v.Y))
		w.WriteHS(int16(v.Var1))
		w.WriteC(v.Var2)
	case protocol.Time:
		w.WriteBool(v.DayTime)
		w.WriteD(v.Time)
		w.WriteHS(v.SunY)
		w.WriteHS(v.MoonY)
	case protocol.DoorToggle:
		w.WriteBool(v.Open)
		w.WriteHS(int16(v.X))
		w.WriteHS(int16(v.Y))
		w.WriteC(v.Direction)
	case protocol.SyncItem:
		w.WriteHS(v.ItemSlot)
		w.WriteF(v.PosX)
		w.WriteF(v.PosY)
		w.WriteF(v.VelX)
		w.WriteF(v.VelY)
		w.WriteHS(v.Stack)
		w.WriteC(v.Prefix)
		w.WriteC(v.NoDelay)
		w.WriteHS(v.ItemID)
	case protocol.ItemOwner:
		w.WriteHS(v.ItemSlot)
		w.WriteC(v.Owner)
	case protocol.SyncNPC:
		encodeSyncNPC(w, v)
	case protocol.Chat:
		w.WriteC(v.Slot)
		w.WriteRGB(v.Color)
		w.WriteS(v.Text)
	case protocol.RequestPassword:
		// no payload
	case protocol.SendPassword:
		w.WriteS(v.Password)
	case protocol.PlayerMana:
		w.WriteC(v.Slot)
		w.WriteHS(v.Mana)
		w.WriteHS(v.MaxMana)
	case protocol.Liquid:
		w.WriteHS(int16(v.X))
		w.WriteHS(int16(v.Y))
		w.WriteC(v.Amount)
		w.WriteC(v.LiquidKind)
	case protocol.StartPlaying:
		// no payload
	case protocol.PlayerBuffs:
		encodePlayerBuffs(w, v, layout)
	case protocol.AddPlayerBuff:
		w.WriteC(v.Slot)
		w.WriteC(v.BuffType)
		w.WriteHS(v.BuffTime)
	case protocol.SyncNPCName:
		w.WriteHS(v.NPCSlot)
		w.WriteS(v.Name)
	case protocol.WorldBalance:
		w.WriteC(v.Hallowed)
		w.WriteC(v.Corrupted)
	case protocol.ClientUUID:
		w.WriteS(v.UUID)
	default:
		return nil, fmt.Errorf("%w: %s", protocol.ErrUnknownType, m.Type())
	}

	return protocol.EncodeFrame(m.Type(), w.Bytes()), nil
}

func decodeSyncPlayer(r *protocol.Reader, layout int) protocol.SyncPlayer {
	m := protocol.SyncPlayer{
		Slot:        r.ReadC(),
		SkinVariant: r.ReadC(),
		Hair:        r.ReadC(),
		Name:        r.ReadS(),
		HairDye:     r.ReadC(),
		HideVisuals: r.ReadC(),
	}
	if layout >= LayoutCurrent {
		m.HideVisuals2 = r.ReadC()
	}
	m.HideMisc = r.ReadC()
	m.HairColor = r.ReadRGB()
	m.SkinColor = r.ReadRGB()
	m.EyeColor = r.ReadRGB()
	m.ShirtColor = r.ReadRGB()
	m.UnderColor = r.ReadRGB()
	m.PantsColor = r.ReadRGB()
	m.ShoeColor = r.ReadRGB()
	m.Difficulty = r.ReadC()
	if layout >= LayoutCurrent {
		m.TorchFlags = r.ReadC()
		m.ShimmerFlags = r.ReadC()
	}
	return m
}

func encodeSyncPlayer(w *protocol.Writer, m protocol.SyncPlayer, layout int) {
	w.WriteC(m.Slot)
	w.WriteC(m.SkinVariant)
	w.WriteC(m.Hair)
	w.WriteS(m.Name)
	w.WriteC(m.HairDye)
	w.WriteC(m.HideVisuals)
	if layout >= LayoutCurrent {
		w.WriteC(m.HideVisuals2)
	}
	w.WriteC(m.HideMisc)
	w.WriteRGB(m.HairColor)
	w.WriteRGB(m.SkinColor)
	w.WriteRGB(m.EyeColor)
	w.WriteRGB(m.ShirtColor)
	w.WriteRGB(m.UnderColor)
	w.WriteRGB(m.PantsColor)
	w.WriteRGB(m.ShoeColor)
	w.WriteC(m.Difficulty)
	if layout >= LayoutCurrent {
		w.WriteC(m.TorchFlags)
		w.WriteC(m.ShimmerFlags)
	}
}

func decodeSyncEquipment(r *protocol.Reader, layout int) protocol.SyncEquipment {
	m := protocol.SyncEquipment{Slot: r.ReadC()}
	if layout >= LayoutCurrent {
		m.InvSlot = r.ReadHS()
	} else {
		m.InvSlot = int16(r.ReadC())
	}
	m.Stack = r.ReadHS()
	m.Prefix = r.ReadC()
	m.ItemID = r.ReadHS()
	return m
}

func encodeSyncEquipment(w *protocol.Writer, m protocol.SyncEquipment, layout int) {
	w.WriteC(m.Slot)
	if layout >= LayoutCurrent {
		w.WriteHS(m.InvSlot)
	} else {
		w.WriteC(byte(m.InvSlot))
	}
	w.WriteHS(m.Stack)
	w.WriteC(m.Prefix)
	w.WriteHS(m.ItemID)
}

func decodeWorldData(r *protocol.Reader, layout int) protocol.WorldData {
	m := protocol.WorldData{
		GameTime:    r.ReadD(),
		DayFlags:    r.ReadC(),
		MoonPhase:   r.ReadC(),
		MaxTilesX:   r.ReadHS(),
		MaxTilesY:   r.ReadHS(),
		SpawnX:      r.ReadHS(),
		SpawnY:      r.ReadHS(),
		GroundLevel: r.ReadHS(),
		RockLevel:   r.ReadHS(),
		WorldID:     r.ReadD(),
		WorldName:   r.ReadS(),
	}
	if layout >= LayoutCurrent {
		m.GameMode = r.ReadC()
		copy(m.WorldUUID[:], r.ReadBytes(16))
		m.GeneratorVer = r.ReadQ()
	}
	m.MoonType = r.ReadC()
	nBack := 8
	if layout >= LayoutCurrent {
		nBack = len(m.Backgrounds)
	}
	for i := 0; i < nBack; i++ {
		m.Backgrounds[i] = r.ReadC()
	}
	m.IceBackStyle = r.ReadC()
	m.JungleBack = r.ReadC()
	m.HellBack = r.ReadC()
	m.WindSpeed = r.ReadF()
	m.CloudCount = r.ReadC()
	for i := range m.TreeX {
		m.TreeX[i] = r.ReadD()
	}
	for i := range m.TreeStyle {
		m.TreeStyle[i] = r.ReadC()
	}
	for i := range m.CaveBackX {
		m.CaveBackX[i] = r.ReadD()
	}
	for i := range m.CaveBackStyle {
		m.CaveBackStyle[i] = r.ReadC()
	}
	if layout >= LayoutCurrent {
		for i := range m.TreeTops {
			m.TreeTops[i] = r.ReadC()
		}
	}
	m.Rain = r.ReadF()
	nFlags := 4
	if layout >= LayoutCurrent {
		nFlags = len(m.EventFlags)
	}
	for i := 0; i < nFlags; i++ {
		m.EventFlags[i] = r.ReadC()
	}
	if layout >= LayoutCurrent {
		m.SundialCooldown = r.ReadC()
		m.MoondialCooldown = r.ReadC()
	}
	nOres := 3
	if layout >= LayoutCurrent {
		nOres = len(m.OreTiers)
	}
	for i := 0; i < nOres; i++ {
		m.OreTiers[i] = r.ReadHS()
	}
	m.InvasionType = int8(r.ReadC())
	m.LobbyID = r.ReadQ()
	if layout >= LayoutCurrent {
		m.SandstormSeverity = r.ReadF()
	}
	return m
}

func encodeWorldData(w *protocol.Writer, m protocol.WorldData, layout int) {
	w.WriteD(m.GameTime)
	w.WriteC(m.DayFlags)
	w.WriteC(m.MoonPhase)
	w.WriteHS(m.MaxTilesX)
	w.WriteHS(m.MaxTilesY)
	w.WriteHS(m.SpawnX)
	w.WriteHS(m.SpawnY)
	w.WriteHS(m.GroundLevel)
	w.WriteHS(m.RockLevel)
	w.WriteD(m.WorldID)
	w.WriteS(m.WorldName)
	if layout >= LayoutCurrent {
		w.WriteC(m.GameMode)
		w.WriteBytes(m.WorldUUID[:])
		w.WriteQ(m.GeneratorVer)
	}
	w.WriteC(m.MoonType)
	nBack := 8
	if layout >= LayoutCurrent {
		nBack = len(m.Backgrounds)
	}
	for i := 0; i < nBack; i++ {
		w.WriteC(m.Backgrounds[i])
	}
	w.WriteC(m.IceBackStyle)
	w.WriteC(m.JungleBack)
	w.WriteC(m.HellBack)
	w.WriteF(m.WindSpeed)
	w.WriteC(m.CloudCount)
	for _, x := range m.TreeX {
		w.WriteD(x)
	}
	for _, s := range m.TreeStyle {
		w.WriteC(s)
	}
	for _, x := range m.CaveBackX {
		w.WriteD(x)
	}
	for _, s := range m.CaveBackStyle {
		w.WriteC(s)
	}
	if layout >= LayoutCurrent {
		for _, t := range m.TreeTops {
			w.WriteC(t)
		}
	}
	w.WriteF(m.Rain)
	nFlags := 4
	if layout >= LayoutCurrent {
		nFlags = len(m.EventFlags)
	}
	for i := 0; i < nFlags; i++ {
		w.WriteC(m.EventFlags[i])
	}
	if layout >= LayoutCurrent {
		w.WriteC(m.SundialCooldown)
		w.WriteC(m.MoondialCooldown)
	}
	nOres := 3
	if layout >= LayoutCurrent {
		nOres = len(m.OreTiers)
	}
	for i := 0; i < nOres; i++ {
		w.WriteHS(m.OreTiers[i])
	}
	w.WriteC(byte(m.InvasionType))
	w.WriteQ(m.LobbyID)
	if layout >= LayoutCurrent {
		w.WriteF(m.SandstormSeverity)
	}
}

func decodeStatusText(r *protocol.Reader, layout int) protocol.StatusText {
	m := protocol.StatusText{Max: r.ReadD(), Text: r.ReadS()}
	if layout >= LayoutCurrent {
		m.Flags = r.ReadC()
	}
	return m
}

func encodeStatusText(w *protocol.Writer, m protocol.StatusText, layout int) {
	w.WriteD(m.Max)
	w.WriteS(m.Text)
	if layout >= LayoutCurrent {
		w.WriteC(m.Flags)
	}
}

func decodePlayerSpawn(r *protocol.Reader, layout int) protocol.PlayerSpawn {
	m := protocol.PlayerSpawn{Slot: r.ReadC()}
	if layout >= LayoutCurrent {
		m.SpawnX = r.ReadHS()
		m.SpawnY = r.ReadHS()
		m.RespawnRemaining = r.ReadD()
		m.DeathsPVE = r.ReadHS()
		m.DeathsPVP = r.ReadHS()
		m.Context = r.ReadC()
	} else {
		m.SpawnX = int16(r.ReadD())
		m.SpawnY = int16(r.ReadD())
	}
	return m
}

func encodePlayerSpawn(w *protocol.Writer, m protocol.PlayerSpawn, layout int) {
	w.WriteC(m.Slot)
	if layout >= LayoutCurrent {
		w.WriteHS(m.SpawnX)
		w.WriteHS(m.SpawnY)
		w.WriteD(m.RespawnRemaining)
		w.WriteHS(m.DeathsPVE)
		w.WriteHS(m.DeathsPVP)
		w.WriteC(m.Context)
	} else {
		w.WriteD(int32(m.SpawnX))
		w.WriteD(int32(m.SpawnY))
	}
}

func decodePlayerControls(r *protocol.Reader, layout int) protocol.PlayerControls {
	m := protocol.PlayerControls{Slot: r.ReadC(), Control: r.ReadC(), Pulley: r.ReadC()}
	if layout >= LayoutCurrent {
		m.Misc = r.ReadC()
	}
	m.SelectedItem = r.ReadC()
	m.PosX = r.ReadF()
	m.PosY = r.ReadF()
	if layout >= LayoutCurrent {
		if m.Pulley&4 != 0 {
			m.HasVelocity = true
			m.VelX = r.ReadF()
			m.VelY = r.ReadF()
		}
	} else {
		m.HasVelocity = true
		m.VelX = r.ReadF()
		m.VelY = r.ReadF()
	}
	return m
}

func encodePlayerControls(w *protocol.Writer, m protocol.PlayerControls, layout int) {
	pulley := m.Pulley
	if layout >= LayoutCurrent {
		if m.HasVelocity {
			pulley |= 4
		} else {
			pulley &^= 4
		}
	}
	w.WriteC(m.Slot)
	w.WriteC(m.Control)
	w.WriteC(pulley)
	if layout >= LayoutCurrent {
		w.WriteC(m.Misc)
	}
	w.WriteC(m.SelectedItem)
	w.WriteF(m.PosX)
	w.WriteF(m.PosY)
	if layout < LayoutCurrent || m.HasVelocity {
		w.WriteF(m.VelX)
		w.WriteF(m.VelY)
	}
}

func decodePlayerBuffs(r *protocol.Reader, layout int) protocol.PlayerBuffs {
	m := protocol.PlayerBuffs{Slot: r.ReadC()}
	if layout >= LayoutCurrent {
		m.Buffs = make([]uint16, 44)
		for i := range m.Buffs {
			m.Buffs[i] = r.ReadH()
		}
	} else {
		m.Buffs = make([]uint16, 22)
		for i := range m.Buffs {
			m.Buffs[i] = uint16(r.ReadC())
		}
	}
	return m
}

func encodePlayerBuffs(w *protocol.Writer, m protocol.PlayerBuffs, layout int) {
	w.WriteC(m.Slot)
	if layout >= LayoutCurrent {
		for i := 0; i < 44; i++ {
			var b uint16
			if i < len(m.Buffs) {
				b = m.Buffs[i]
			}
			w.WriteH(b)
		}
	} else {
		for i := 0; i < 22; i++ {
			var b byte
			if i < len(m.Buffs) {
				b = byte(m.Buffs[i])
			}
			w.WriteC(b)
		}
	}
}

func decodeSyncNPC(r *protocol.Reader) protocol.SyncNPC {
	m := protocol.SyncNPC{
		NPCSlot: r.ReadHS(),
		PosX:    r.ReadF(), PosY: r.ReadF(),
		VelX: r.ReadF(), VelY: r.ReadF(),
		Target: r.ReadHS(),
		Flags1: r.ReadC(),
		Flags2: r.ReadC(),
	}
	for i := range m.AI {
		if m.Flags1&(1<<(2+i)) != 0 {
			m.AI[i] = r.ReadF()
		}
	}
	m.NPCID = r.ReadHS()
	if m.Flags2&1 != 0 {
		m.PlayerCountScale = r.ReadC()
		m.StrengthScale = r.ReadF()
	}
	if m.Flags1&128 == 0 {
		m.LifeBytes = r.ReadC()
		switch m.LifeBytes {
		case 1:
			m.Life = int32(int8(r.ReadC()))
		case 2:
			m.Life = int32(r.ReadHS())
		default:
			m.Life = r.ReadD()
		}
	}
	if r.Remaining() > 0 {
		m.HasRelease = true
		m.ReleaseOwner = r.ReadC()
	}
	return m
}

func encodeSyncNPC(w *protocol.Writer, m protocol.SyncNPC) {
	w.WriteHS(m.NPCSlot)
	w.WriteF(m.PosX)
	w.WriteF(m.PosY)
	w.WriteF(m.VelX)
	w.WriteF(m.VelY)
	w.WriteHS(m.Target)
	w.WriteC(m.Flags1)
	w.WriteC(m.Flags2)
	for i := range m.AI {
		if m.Flags1&(1<<(2+i)) != 0 {
			w.WriteF(m.AI[i])
		}
	}
	w.WriteHS(m.NPCID)
	if m.Flags2&1 != 0 {
		w.WriteC(m.PlayerCountScale)
		w.WriteF(m.StrengthScale)
	}
	if m.Flags1&128 == 0 {
		lb := m.LifeBytes
		if lb != 1 && lb != 2 && lb != 4 {
			lb = 4
		}
		w.WriteC(lb)
		switch lb {
		case 1:
			w.WriteC(byte(m.Life))
		case 2:
			w.WriteHS(int16(m.Life))
		default:
			w.WriteD(m.Life)
		}
	}
	if m.HasRelease {
		w.WriteC(m.ReleaseOwner)
	}
}
