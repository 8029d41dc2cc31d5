package world

import (
	"sync"

	"go.uber.org/zap"

	"github.com/yhs0602/terrablade/internal/protocol"
)

// Assembler folds protocol updates into a coherent world model. Tiles are
// stored sparsely; overlapping sections merge last-write-wins, and coverage
// counts distinct written coordinates so it can only grow. Mutation happens
// on the session's processing goroutine; snapshots may be taken from any
// goroutine.
type Assembler struct {
	mu sync.RWMutex

	info      Info
	haveInfo  bool
	localSlot int16
	tiles     map[TileKey]Tile
	players   map[byte]*Player
	npcs      map[int16]*NPC
	items     map[int16]*Item
	inventory map[int16]InventorySlot

	log *zap.Logger
}

func NewAssembler(log *zap.Logger) *Assembler {
	return &Assembler{
		localSlot: -1,
		tiles:     make(map[TileKey]Tile),
		players:   make(map[byte]*Player),
		npcs:      make(map[int16]*NPC),
		items:     make(map[int16]*Item),
		inventory: make(map[int16]InventorySlot),
		log:       log.Named("world"),
	}
}

// ApplyWorldData installs or refreshes the world header.
func (a *Assembler) ApplyWorldData(m protocol.WorldData) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.info = Info{
		Name:        m.WorldName,
		ID:          m.WorldID,
		Width:       int32(m.MaxTilesX),
		Height:      int32(m.MaxTilesY),
		SpawnX:      int32(m.SpawnX),
		SpawnY:      int32(m.SpawnY),
		GroundLevel: int32(m.GroundLevel),
		RockLevel:   int32(m.RockLevel),
		GameMode:    m.GameMode,
		Time:        m.GameTime,
		DayTime:     m.DayFlags&1 != 0,
		Rain:        m.Rain,
		WindSpeed:   m.WindSpeed,
		Hallowed:    a.info.Hallowed,
		Corrupted:   a.info.Corrupted,
	}
	a.haveInfo = true
	a.log.Info("world header",
		zap.String("name", m.WorldName),
		zap.Int16("width", m.MaxTilesX),
		zap.Int16("height", m.MaxTilesY))
}

// ApplyTileSection merges a rectangular section. Later sections win on
// overlap; already-written coordinates do not grow coverage again.
func (a *Assembler) ApplyTileSection(m protocol.TileSection) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := 0
	for dy := int32(0); dy < int32(m.Height); dy++ {
		for dx := int32(0); dx < int32(m.Width); dx++ {
			a.tiles[TileKey{X: m.OriginX + dx, Y: m.OriginY + dy}] = m.Tiles[i]
			i++
		}
	}
}

// ApplyTileEdit applies a single-tile modification. Only the actions the
// client cares about are modelled; everything else leaves the cell alone.
func (a *Assembler) ApplyTileEdit(m protocol.TileEdit) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := TileKey{X: m.X, Y: m.Y}
	t := a.tiles[key]
	switch m.Action {
	case 0: // kill tile
		t.Active = false
		t.TileType = 0
	case 1: // place tile
		t.Active = true
		t.TileType = uint16(m.Var1)
	case 2: // kill wall
		t.Wall = 0
	case 3: // place wall
		t.Wall = uint16(m.Var1)
	}
	a.tiles[key] = t
}

// ApplyLiquid sets one cell's liquid amount and kind.
func (a *Assembler) ApplyLiquid(m protocol.Liquid) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := TileKey{X: m.X, Y: m.Y}
	t := a.tiles[key]
	t.Liquid = m.Amount
	t.LiquidKind = m.LiquidKind
	a.tiles[key] = t
}

// ApplyTime updates the world clock.
func (a *Assembler) ApplyTime(m protocol.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.info.Time = m.Time
	a.info.DayTime = m.DayTime
}

// ApplyBalance records hallow/corruption percentages.
func (a *Assembler) ApplyBalance(m protocol.WorldBalance) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.info.Hallowed = m.Hallowed
	a.info.Corrupted = m.Corrupted
}

func (a *Assembler) player(slot byte) *Player {
	p, ok := a.players[slot]
	if !ok {
		p = &Player{Slot: slot}
		a.players[slot] = p
	}
	return p
}

// ApplyPlayerActive marks a player slot in use or free.
func (a *Assembler) ApplyPlayerActive(m protocol.PlayerActive) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.player(m.Slot).Active = m.Active
}

// ApplyPlayerAppearance records a player's name from their SyncPlayer.
func (a *Assembler) ApplyPlayerAppearance(m protocol.SyncPlayer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.player(m.Slot)
	p.Name = m.Name
	p.Active = true
}

// ApplyPlayerLife updates a player's health.
func (a *Assembler) ApplyPlayerLife(m protocol.PlayerLife) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.player(m.Slot)
	p.Life = m.Life
	p.MaxLife = m.MaxLife
}

// ApplyPlayerMana updates a player's mana.
func (a *Assembler) ApplyPlayerMana(m protocol.PlayerMana) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.player(m.Slot)
	p.Mana = m.Mana
	p.MaxMana = m.MaxMana
}

// ApplyPlayerBuffs replaces a player's buff list.
func (a *Assembler) ApplyPlayerBuffs(m protocol.PlayerBuffs) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.player(m.Slot).Buffs = append([]uint16(nil), m.Buffs...)
}

// ApplyPlayerPosition updates a player's position from PlayerControls.
func (a *Assembler) ApplyPlayerPosition(m protocol.PlayerControls) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p := a.player(m.Slot)
	p.X = m.PosX
	p.Y = m.PosY
	p.Active = true
}

// ApplyNPC upserts an NPC instance. An NPC reported dead or with an id of 0
// is removed.
func (a *Assembler) ApplyNPC(m protocol.SyncNPC) {
	a.mu.Lock()
	defer a.mu.Unlock()
	dead := m.Flags1&128 == 0 && m.LifeBytes != 0 && m.Life <= 0
	if m.NPCID == 0 || dead {
		delete(a.npcs, m.NPCSlot)
		return
	}
	n, ok := a.npcs[m.NPCSlot]
	if !ok {
		n = &NPC{Slot: m.NPCSlot}
		a.npcs[m.NPCSlot] = n
	}
	n.NPCID = m.NPCID
	n.X = m.PosX
	n.Y = m.PosY
	n.Active = true
	if m.Flags1&128 == 0 {
		n.Life = m.Life
	}
}

// ApplyNPCName names a tracked NPC; unknown slots are ignored.
func (a *Assembler) ApplyNPCName(m protocol.SyncNPCName) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n, ok := a.npcs[m.NPCSlot]; ok {
		n.Name = m.Name
	}
}

// ApplyItem upserts a world item instance. Stack 0 or item id 0 removes it.
func (a *Assembler) ApplyItem(m protocol.SyncItem) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if m.ItemID == 0 || m.Stack == 0 {
		delete(a.items, m.ItemSlot)
		return
	}
	it, ok := a.items[m.ItemSlot]
	if !ok {
		it = &Item{Slot: m.ItemSlot}
		a.items[m.ItemSlot] = it
	}
	it.ItemID = m.ItemID
	it.X = m.PosX
	it.Y = m.PosY
	it.Stack = m.Stack
	it.Prefix = m.Prefix
}

// ApplyItemOwner assigns a tracked item to a player slot.
func (a *Assembler) ApplyItemOwner(m protocol.ItemOwner) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if it, ok := a.items[m.ItemSlot]; ok {
		it.Owner = m.Owner
	}
}

// ApplyInventory sets one local inventory slot. Item id 0 clears it.
func (a *Assembler) ApplyInventory(m protocol.SyncEquipment) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if m.ItemID == 0 {
		delete(a.inventory, m.InvSlot)
		return
	}
	a.inventory[m.InvSlot] = InventorySlot{ItemID: m.ItemID, Stack: m.Stack, Prefix: m.Prefix}
}

// Coverage reports the fraction of the world's tile grid that has been
// written at least once. Zero until the world header arrives.
func (a *Assembler) Coverage() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.coverageLocked()
}

func (a *Assembler) coverageLocked() float64 {
	area := int64(a.info.Width) * int64(a.info.Height)
	if area <= 0 {
		return 0
	}
	return float64(len(a.tiles)) / float64(area)
}

// SetLocalSlot records the slot the server assigned to this client.
func (a *Assembler) SetLocalSlot(slot byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.localSlot = int16(slot)
}

// LocalSlot returns the assigned slot, or -1 before PlayerInfo arrives.
func (a *Assembler) LocalSlot() int16 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.localSlot
}

// HaveInfo reports whether the world header has arrived.
func (a *Assembler) HaveInfo() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.haveInfo
}
