package world

import "github.com/yhs0602/terrablade/internal/protocol"

// Delta is one deferred world mutation. Handlers are pure: they read a
// snapshot and return deltas; the dispatcher applies them to the assembler
// in order after the handler chain finishes.
type Delta interface {
	Apply(*Assembler)
}

type LocalSlotDelta struct{ Slot byte }

func (d LocalSlotDelta) Apply(a *Assembler) { a.SetLocalSlot(d.Slot) }

type WorldDataDelta struct{ Msg protocol.WorldData }

func (d WorldDataDelta) Apply(a *Assembler) { a.ApplyWorldData(d.Msg) }

type TileSectionDelta struct{ Msg protocol.TileSection }

func (d TileSectionDelta) Apply(a *Assembler) { a.ApplyTileSection(d.Msg) }

type TileEditDelta struct{ Msg protocol.TileEdit }

func (d TileEditDelta) Apply(a *Assembler) { a.ApplyTileEdit(d.Msg) }

type LiquidDelta struct{ Msg protocol.Liquid }

func (d LiquidDelta) Apply(a *Assembler) { a.ApplyLiquid(d.Msg) }

type TimeDelta struct{ Msg protocol.Time }

func (d TimeDelta) Apply(a *Assembler) { a.ApplyTime(d.Msg) }

type BalanceDelta struct{ Msg protocol.WorldBalance }

func (d BalanceDelta) Apply(a *Assembler) { a.ApplyBalance(d.Msg) }

type PlayerActiveDelta struct{ Msg protocol.PlayerActive }

func (d PlayerActiveDelta) Apply(a *Assembler) { a.ApplyPlayerActive(d.Msg) }

type PlayerAppearanceDelta struct{ Msg protocol.SyncPlayer }

func (d PlayerAppearanceDelta) Apply(a *Assembler) { a.ApplyPlayerAppearance(d.Msg) }

type PlayerLifeDelta struct{ Msg protocol.PlayerLife }

func (d PlayerLifeDelta) Apply(a *Assembler) { a.ApplyPlayerLife(d.Msg) }

type PlayerManaDelta struct{ Msg protocol.PlayerMana }

func (d PlayerManaDelta) Apply(a *Assembler) { a.ApplyPlayerMana(d.Msg) }

type PlayerBuffsDelta struct{ Msg protocol.PlayerBuffs }

func (d PlayerBuffsDelta) Apply(a *Assembler) { a.ApplyPlayerBuffs(d.Msg) }

type PlayerPositionDelta struct{ Msg protocol.PlayerControls }

func (d PlayerPositionDelta) Apply(a *Assembler) { a.ApplyPlayerPosition(d.Msg) }

type NPCDelta struct{ Msg protocol.SyncNPC }

func (d NPCDelta) Apply(a *Assembler) { a.ApplyNPC(d.Msg) }

type NPCNameDelta struct{ Msg protocol.SyncNPCName }

func (d NPCNameDelta) Apply(a *Assembler) { a.ApplyNPCName(d.Msg) }

type ItemDelta struct{ Msg protocol.SyncItem }

func (d ItemDelta) Apply(a *Assembler) { a.ApplyItem(d.Msg) }

type ItemOwnerDelta struct{ Msg protocol.ItemOwner }

func (d ItemOwnerDelta) Apply(a *Assembler) { a.ApplyItemOwner(d.Msg) }

type InventoryDelta struct{ Msg protocol.SyncEquipment }

func (d InventoryDelta) Apply(a *Assembler) { a.ApplyInventory(d.Msg) }
