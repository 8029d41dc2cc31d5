package world

// Snapshot is an immutable copy of the assembled world at one instant.
// Handlers and the bot read snapshots; nothing they do to one can leak back
// into the assembler.
type Snapshot struct {
	Info      Info
	HaveInfo  bool
	LocalSlot int16
	Coverage  float64
	Tiles     map[TileKey]Tile
	Players   map[byte]Player
	NPCs      map[int16]NPC
	Items     map[int16]Item
	Inventory map[int16]InventorySlot
}

// Snapshot deep-copies the current state.
func (a *Assembler) Snapshot() *Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s := &Snapshot{
		Info:      a.info,
		HaveInfo:  a.haveInfo,
		LocalSlot: a.localSlot,
		Coverage:  a.coverageLocked(),
		Tiles:     make(map[TileKey]Tile, len(a.tiles)),
		Players:   make(map[byte]Player, len(a.players)),
		NPCs:      make(map[int16]NPC, len(a.npcs)),
		Items:     make(map[int16]Item, len(a.items)),
		Inventory: make(map[int16]InventorySlot, len(a.inventory)),
	}
	for k, t := range a.tiles {
		s.Tiles[k] = t
	}
	for slot, p := range a.players {
		cp := *p
		cp.Buffs = append([]uint16(nil), p.Buffs...)
		s.Players[slot] = cp
	}
	for slot, n := range a.npcs {
		s.NPCs[slot] = *n
	}
	for slot, it := range a.items {
		s.Items[slot] = *it
	}
	for slot, inv := range a.inventory {
		s.Inventory[slot] = inv
	}
	return s
}

// TileAt looks a tile up; ok is false for never-written coordinates.
func (s *Snapshot) TileAt(x, y int32) (Tile, bool) {
	t, ok := s.Tiles[TileKey{X: x, Y: y}]
	return t, ok
}

// Solid reports whether the tile at (x, y) blocks movement. Unknown tiles
// count as not solid; callers that care about unexplored space check TileAt.
func (s *Snapshot) Solid(x, y int32) bool {
	t, ok := s.TileAt(x, y)
	return ok && t.Active && !t.Inactive
}
