// Package world assembles the client's view of the server world from the
// partial updates the protocol delivers. The assembler is the single source
// of truth; consumers read copy-semantics snapshots.
package world

import "github.com/yhs0602/terrablade/internal/protocol"

// TileKey addresses one tile in world coordinates.
type TileKey struct {
	X, Y int32
}

// Info is the world header as assembled from WorldData and later updates.
type Info struct {
	Name        string
	ID          int32
	Width       int32
	Height      int32
	SpawnX      int32
	SpawnY      int32
	GroundLevel int32
	RockLevel   int32
	GameMode    byte
	Time        int32
	DayTime     bool
	Rain        float32
	WindSpeed   float32
	Hallowed    byte
	Corrupted   byte
}

// Player is the tracked state of one player slot.
type Player struct {
	Slot    byte
	Active  bool
	Name    string
	X, Y    float32
	Life    int16
	MaxLife int16
	Mana    int16
	MaxMana int16
	Buffs   []uint16
}

// NPC is one live NPC instance keyed by server slot.
type NPC struct {
	Slot   int16
	NPCID  int16
	Name   string
	X, Y   float32
	Life   int32
	Active bool
}

// Item is one world item instance keyed by server slot.
type Item struct {
	Slot   int16
	ItemID int16
	X, Y   float32
	Stack  int16
	Prefix byte
	Owner  byte
}

// InventorySlot is one slot of the local player's inventory.
type InventorySlot struct {
	ItemID int16
	Stack  int16
	Prefix byte
}

// Tile re-exports the wire tile as the world's cell type; the assembler
// stores decoded tiles without translation.
type Tile = protocol.Tile
