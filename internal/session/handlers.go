package session

import (
	"strconv"
	"strings"

	"github.com/yhs0602/terrablade/internal/dispatch"
	"github.com/yhs0602/terrablade/internal/protocol"
	"github.com/yhs0602/terrablade/internal/world"
)

// registerBuiltins wires the join conversation and world assembly. The
// conversation the built-ins drive:
//
//	-> Hello (sent by Run)
//	<- PlayerInfo      -> SyncPlayer, ClientUUID, life, mana, buffs,
//	                      inventory, RequestWorldData
//	<- RequestPassword -> SendPassword
//	<- WorldData       -> RequestEssentialTiles (first header only)
//	<- StartPlaying    -> PlayerSpawn (optionally gated on tile coverage)
func (s *Session) registerBuiltins() {
	s.dispatcher.Register(protocol.MsgPlayerInfo, s.onPlayerInfo)
	s.dispatcher.Register(protocol.MsgRequestPassword, s.onRequestPassword)
	s.dispatcher.Register(protocol.MsgWorldData, s.onWorldData)
	s.dispatcher.Register(protocol.MsgStartPlaying, s.onStartPlaying)
	s.dispatcher.Register(protocol.MsgTileSection, s.onTileSection)

	// Pure world assembly.
	s.dispatcher.Register(protocol.MsgSyncPlayer, deltaHandler(func(m protocol.SyncPlayer) world.Delta {
		return world.PlayerAppearanceDelta{Msg: m}
	}))
	s.dispatcher.Register(protocol.MsgSyncEquipment, s.onSyncEquipment)
	s.dispatcher.Register(protocol.MsgTileEdit, deltaHandler(func(m protocol.TileEdit) world.Delta {
		return world.TileEditDelta{Msg: m}
	}))
	s.dispatcher.Register(protocol.MsgTime, deltaHandler(func(m protocol.Time) world.Delta {
		return world.TimeDelta{Msg: m}
	}))
	s.dispatcher.Register(protocol.MsgLiquid, deltaHandler(func(m protocol.Liquid) world.Delta {
		return world.LiquidDelta{Msg: m}
	}))
	s.dispatcher.Register(protocol.MsgWorldBalance, deltaHandler(func(m protocol.WorldBalance) world.Delta {
		return world.BalanceDelta{Msg: m}
	}))
	s.dispatcher.Register(protocol.MsgPlayerActive, deltaHandler(func(m protocol.PlayerActive) world.Delta {
		return world.PlayerActiveDelta{Msg: m}
	}))
	s.dispatcher.Register(protocol.MsgPlayerLife, deltaHandler(func(m protocol.PlayerLife) world.Delta {
		return world.PlayerLifeDelta{Msg: m}
	}))
	s.dispatcher.Register(protocol.MsgPlayerMana, deltaHandler(func(m protocol.PlayerMana) world.Delta {
		return world.PlayerManaDelta{Msg: m}
	}))
	s.dispatcher.Register(protocol.MsgPlayerBuffs, deltaHandler(func(m protocol.PlayerBuffs) world.Delta {
		return world.PlayerBuffsDelta{Msg: m}
	}))
	s.dispatcher.Register(protocol.MsgPlayerControls, deltaHandler(func(m protocol.PlayerControls) world.Delta {
		return world.PlayerPositionDelta{Msg: m}
	}))
	s.dispatcher.Register(protocol.MsgSyncNPC, deltaHandler(func(m protocol.SyncNPC) world.Delta {
		return world.NPCDelta{Msg: m}
	}))
	s.dispatcher.Register(protocol.MsgSyncNPCName, deltaHandler(func(m protocol.SyncNPCName) world.Delta {
		return world.NPCNameDelta{Msg: m}
	}))
	s.dispatcher.Register(protocol.MsgSyncItem, deltaHandler(func(m protocol.SyncItem) world.Delta {
		return world.ItemDelta{Msg: m}
	}))
	s.dispatcher.Register(protocol.MsgItemOwner, deltaHandler(func(m protocol.ItemOwner) world.Delta {
		return world.ItemOwnerDelta{Msg: m}
	}))
}

// deltaHandler adapts a typed message-to-delta function into a Handler.
func deltaHandler[M protocol.Message](f func(M) world.Delta) dispatch.Handler {
	return func(msg protocol.Message, _ *world.Snapshot) dispatch.Result {
		m, ok := msg.(M)
		if !ok {
			return dispatch.Result{}
		}
		return dispatch.Result{Deltas: []world.Delta{f(m)}}
	}
}

func (s *Session) onPlayerInfo(msg protocol.Message, _ *world.Snapshot) dispatch.Result {
	m, ok := msg.(protocol.PlayerInfo)
	if !ok {
		return dispatch.Result{}
	}
	p := s.cfg.Player
	appearance := protocol.SyncPlayer{
		Slot:        m.Slot,
		SkinVariant: byte(p.SkinVariant),
		Hair:        byte(p.Hair),
		Name:        p.Name,
		HairDye:     byte(p.HairDye),
		HairColor:   parseColor(p.HairColor),
		SkinColor:   parseColor(p.SkinColor),
		EyeColor:    parseColor(p.EyeColor),
		ShirtColor:  parseColor(p.ShirtColor),
		UnderColor:  parseColor(p.UnderColor),
		PantsColor:  parseColor(p.PantsColor),
		ShoeColor:   parseColor(p.ShoeColor),
		Difficulty:  byte(p.Difficulty),
	}

	outbound := []protocol.Message{
		appearance,
		protocol.ClientUUID{UUID: p.UUID},
		protocol.PlayerLife{Slot: m.Slot, Life: int16(p.Life), MaxLife: int16(p.Life)},
		protocol.PlayerMana{Slot: m.Slot, Mana: int16(p.Mana), MaxMana: int16(p.Mana)},
		protocol.PlayerBuffs{Slot: m.Slot},
	}
	// Empty starting inventory; the server echoes authoritative slots back
	// when it runs server-side characters.
	for inv := int16(0); inv < 10; inv++ {
		outbound = append(outbound, protocol.SyncEquipment{Slot: m.Slot, InvSlot: inv})
	}
	outbound = append(outbound, protocol.RequestWorldData{})

	return dispatch.Result{
		Deltas: []world.Delta{
			world.LocalSlotDelta{Slot: m.Slot},
			world.PlayerAppearanceDelta{Msg: appearance},
		},
		Outbound: outbound,
	}
}

func (s *Session) onRequestPassword(_ protocol.Message, _ *world.Snapshot) dispatch.Result {
	return dispatch.Result{
		Outbound: []protocol.Message{protocol.SendPassword{Password: s.cfg.Server.Password}},
	}
}

func (s *Session) onWorldData(msg protocol.Message, snap *world.Snapshot) dispatch.Result {
	m, ok := msg.(protocol.WorldData)
	if !ok {
		return dispatch.Result{}
	}
	res := dispatch.Result{Deltas: []world.Delta{world.WorldDataDelta{Msg: m}}}
	if !snap.HaveInfo && !s.tilesAsked.Swap(true) {
		res.Outbound = []protocol.Message{
			protocol.RequestEssentialTiles{X: int32(m.SpawnX), Y: int32(m.SpawnY)},
		}
	}
	return res
}

func (s *Session) onStartPlaying(_ protocol.Message, snap *world.Snapshot) dispatch.Result {
	want := s.cfg.Handshake.SpawnCoverage
	if want > 0 && snap.Coverage < want {
		s.spawnPending.Store(true)
		return dispatch.Result{}
	}
	return dispatch.Result{Outbound: []protocol.Message{spawnMessage(snap)}}
}

func (s *Session) onTileSection(msg protocol.Message, snap *world.Snapshot) dispatch.Result {
	m, ok := msg.(protocol.TileSection)
	if !ok {
		return dispatch.Result{}
	}
	res := dispatch.Result{Deltas: []world.Delta{world.TileSectionDelta{Msg: m}}}

	if s.spawnPending.Load() {
		// The snapshot predates this section; project its contribution.
		area := float64(snap.Info.Width) * float64(snap.Info.Height)
		projected := snap.Coverage
		if area > 0 {
			projected += float64(int(m.Width)*int(m.Height)) / area
		}
		if projected >= s.cfg.Handshake.SpawnCoverage && s.spawnPending.Swap(false) {
			res.Outbound = append(res.Outbound, spawnMessage(snap))
		}
	}
	return res
}

// onSyncEquipment applies inventory changes for the local player only;
// other players' equipment is not tracked.
func (s *Session) onSyncEquipment(msg protocol.Message, snap *world.Snapshot) dispatch.Result {
	m, ok := msg.(protocol.SyncEquipment)
	if !ok || int16(m.Slot) != snap.LocalSlot {
		return dispatch.Result{}
	}
	return dispatch.Result{Deltas: []world.Delta{world.InventoryDelta{Msg: m}}}
}

func spawnMessage(snap *world.Snapshot) protocol.PlayerSpawn {
	slot := byte(0)
	if snap.LocalSlot >= 0 {
		slot = byte(snap.LocalSlot)
	}
	return protocol.PlayerSpawn{
		Slot:   slot,
		SpawnX: int16(snap.Info.SpawnX),
		SpawnY: int16(snap.Info.SpawnY),
	}
}

// parseColor reads "#rrggbb" (or "rrggbb"); malformed values fall back to
// black rather than failing the join.
func parseColor(s string) protocol.RGB {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return protocol.RGB{}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return protocol.RGB{}
	}
	return protocol.RGB{R: byte(v >> 16), G: byte(v >> 8), B: byte(v)}
}
