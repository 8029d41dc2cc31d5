package protocol

// Message is the closed set of typed wire messages. Decoding selects the
// variant by MsgType; the field layout within a variant may differ by
// protocol profile and is handled by the codec, not here.
type Message interface {
	Type() MsgType
}

// Raw preserves a frame whose type the codec does not know. It is carried
// through dispatch untouched for diagnostics and forward compatibility.
type Raw struct {
	MsgType MsgType
	Payload []byte
}

func (m Raw) Type() MsgType { return m.MsgType }

// Hello opens the conversation: the client presents its version string.
type Hello struct {
	Version string
}

func (Hello) Type() MsgType { return MsgHello }

// Kick terminates the session with a server-supplied reason.
type Kick struct {
	Reason string
}

func (Kick) Type() MsgType { return MsgKick }

// PlayerInfo is the server's connection approval carrying the assigned slot.
type PlayerInfo struct {
	Slot           byte
	ServerSideChar bool
}

func (PlayerInfo) Type() MsgType { return MsgPlayerInfo }

// SyncPlayer submits the player's name and appearance.
type SyncPlayer struct {
	Slot        byte
	SkinVariant byte
	Hair        byte
	Name        string
	HairDye     byte
	HideVisuals byte
	// HideVisuals2 exists only in the 1.4-generation layout.
	HideVisuals2 byte
	HideMisc     byte
	HairColor    RGB
	SkinColor    RGB
	EyeColor     RGB
	ShirtColor   RGB
	UnderColor   RGB
	PantsColor   RGB
	ShoeColor    RGB
	Difficulty   byte
	// TorchFlags and ShimmerFlags exist only in the 1.4-generation layout.
	TorchFlags   byte
	ShimmerFlags byte
}

func (SyncPlayer) Type() MsgType { return MsgSyncPlayer }

// SyncEquipment sets one inventory slot. The slot index is a single byte in
// the legacy layout and an int16 in the 1.4-generation layout.
type SyncEquipment struct {
	Slot     byte
	InvSlot  int16
	Stack    int16
	Prefix   byte
	ItemID   int16
}

func (SyncEquipment) Type() MsgType { return MsgSyncEquipment }

// RequestWorldData asks the server for the world header. No payload.
type RequestWorldData struct{}

func (RequestWorldData) Type() MsgType { return MsgRequestWorldData }

// WorldData is the world header: dimensions, spawn point, style and event
// state. The 1.4-generation layout carries many more style/event fields than
// the legacy one; fields absent from a layout keep their zero values.
type WorldData struct {
	GameTime       int32
	DayFlags       byte
	MoonPhase      byte
	MaxTilesX      int16
	MaxTilesY      int16
	SpawnX         int16
	SpawnY         int16
	GroundLevel    int16
	RockLevel      int16
	WorldID        int32
	WorldName      string
	GameMode       byte   // 1.4 layout only
	WorldUUID      [16]byte // 1.4 layout only
	GeneratorVer   uint64 // 1.4 layout only
	MoonType       byte
	Backgrounds    [13]byte // forest..underworld style indices (1.4 count)
	IceBackStyle   byte
	JungleBack     byte
	HellBack       byte
	WindSpeed      float32
	CloudCount     byte
	TreeX          [3]int32
	TreeStyle      [4]byte
	CaveBackX      [3]int32
	CaveBackStyle  [4]byte
	TreeTops       [13]byte // 1.4 layout only
	Rain           float32
	EventFlags     [10]byte // 1.4 carries 10 flag groups, legacy the first 4
	SundialCooldown byte    // 1.4 layout only
	MoondialCooldown byte   // 1.4 layout only
	OreTiers       [7]int16 // copper..adamantite (legacy: first 3)
	InvasionType   int8
	LobbyID        uint64
	SandstormSeverity float32 // 1.4 layout only
}

func (WorldData) Type() MsgType { return MsgWorldData }

// RequestEssentialTiles asks for the tile sections around a position.
type RequestEssentialTiles struct {
	X int32
	Y int32
}

func (RequestEssentialTiles) Type() MsgType { return MsgRequestEssentialTiles }

// StatusText is the server's progress line during world transfer.
type StatusText struct {
	Max   int32
	Text  string
	Flags byte
}

func (StatusText) Type() MsgType { return MsgStatusText }

// Tile is one decoded world tile as carried by TileSection.
type Tile struct {
	Active     bool
	TileType   uint16
	FrameX     int16
	FrameY     int16
	TileColor  byte
	Wall       uint16
	WallColor  byte
	Liquid     byte
	LiquidKind byte // 0=water, 1=lava, 2=honey, 3=shimmer
	Wiring     byte
	Slope      byte
	Actuator   bool
	Inactive   bool
}

// TileSection is a partial, rectangular update to the world's tile grid.
// Tiles are stored row-major, Width*Height entries.
type TileSection struct {
	OriginX int32
	OriginY int32
	Width   int16
	Height  int16
	Tiles   []Tile
}

func (TileSection) Type() MsgType { return MsgTileSection }

// TileFrameSection tells the client which section rectangle to re-frame.
type TileFrameSection struct {
	StartX int32
	StartY int32
	EndX   int32
	EndY   int32
}

func (TileFrameSection) Type() MsgType { return MsgTileFrameSection }

// PlayerSpawn announces the player entering the world. The 1.4-generation
// layout adds respawn timing, death counters and a spawn context.
type PlayerSpawn struct {
	Slot           byte
	SpawnX         int16
	SpawnY         int16
	RespawnRemaining int32 // 1.4 layout only
	DeathsPVE      int16  // 1.4 layout only
	DeathsPVP      int16  // 1.4 layout only
	Context        byte   // 1.4 layout only
}

func (PlayerSpawn) Type() MsgType { return MsgPlayerSpawn }

// PlayerControls reports movement input and position. The 1.4-generation
// layout adds a second control byte and makes velocity conditional on a
// presence bit.
type PlayerControls struct {
	Slot      byte
	Control   byte
	Pulley    byte // 1.4 layout only; bit 2 = velocity present
	Misc      byte // 1.4 layout only
	SelectedItem byte
	PosX      float32
	PosY      float32
	HasVelocity bool
	VelX      float32
	VelY      float32
}

func (PlayerControls) Type() MsgType { return MsgPlayerControls }

// PlayerActive marks a player slot in use or free.
type PlayerActive struct {
	Slot   byte
	Active bool
}

func (PlayerActive) Type() MsgType { return MsgPlayerActive }

// PlayerLife reports current/max health.
type PlayerLife struct {
	Slot byte
	Life int16
	MaxLife int16
}

func (PlayerLife) Type() MsgType { return MsgPlayerLife }

// PlayerMana reports current/max mana.
type PlayerMana struct {
	Slot    byte
	Mana    int16
	MaxMana int16
}

func (PlayerMana) Type() MsgType { return MsgPlayerMana }

// TileEdit is a single-tile modification.
type TileEdit struct {
	Action  byte
	X       int32
	Y       int32
	Var1    byte
	Var2    byte
}

func (TileEdit) Type() MsgType { return MsgTileEdit }

// Time sets world clock state.
type Time struct {
	DayTime bool
	Time    int32
	SunY    int16
	MoonY   int16
}

func (Time) Type() MsgType { return MsgTime }

// DoorToggle opens or closes a door.
type DoorToggle struct {
	Open      bool
	X         int32
	Y         int32
	Direction byte
}

func (DoorToggle) Type() MsgType { return MsgDoorToggle }

// SyncItem places or updates a world item instance.
type SyncItem struct {
	ItemSlot int16
	PosX     float32
	PosY     float32
	VelX     float32
	VelY     float32
	Stack    int16
	Prefix   byte
	NoDelay  byte
	ItemID   int16
}

func (SyncItem) Type() MsgType { return MsgSyncItem }

// ItemOwner assigns a world item to a player.
type ItemOwner struct {
	ItemSlot int16
	Owner    byte
}

func (ItemOwner) Type() MsgType { return MsgItemOwner }

// SyncNPC updates an NPC instance. AI slots and the life field are present
// on the wire only when the matching flag bits are set; the booleans mirror
// those bits so encode(decode(m)) is byte-exact.
type SyncNPC struct {
	NPCSlot int16
	PosX    float32
	PosY    float32
	VelX    float32
	VelY    float32
	Target  int16
	Flags1  byte
	Flags2  byte
	AI      [4]float32
	NPCID   int16
	// Scaled difficulty trailer (present when Flags2 bit 0 set).
	PlayerCountScale byte
	StrengthScale    float32
	// Life trailer (present when Flags1 bit 7 clear).
	LifeBytes byte // 1, 2 or 4
	Life      int32
	ReleaseOwner byte
	HasRelease   bool
}

func (SyncNPC) Type() MsgType { return MsgSyncNPC }

// Chat is a legacy-layout chat line.
type Chat struct {
	Slot  byte
	Color RGB
	Text  string
}

func (Chat) Type() MsgType { return MsgChat }

// RequestPassword is the server's password challenge. No payload.
type RequestPassword struct{}

func (RequestPassword) Type() MsgType { return MsgRequestPassword }

// SendPassword answers the password challenge.
type SendPassword struct {
	Password string
}

func (SendPassword) Type() MsgType { return MsgSendPassword }

// Liquid adjusts the liquid amount of one tile.
type Liquid struct {
	X          int32
	Y          int32
	Amount     byte
	LiquidKind byte
}

func (Liquid) Type() MsgType { return MsgLiquid }

// StartPlaying is the server's explicit ready signal after world transfer.
type StartPlaying struct{}

func (StartPlaying) Type() MsgType { return MsgStartPlaying }

// PlayerBuffs reports all active buffs. The legacy layout carries 22 byte
// ids, the 1.4-generation layout 44 uint16 ids.
type PlayerBuffs struct {
	Slot  byte
	Buffs []uint16
}

func (PlayerBuffs) Type() MsgType { return MsgPlayerBuffs }

// AddPlayerBuff applies one buff to a player.
type AddPlayerBuff struct {
	Slot     byte
	BuffType byte
	BuffTime int16
}

func (AddPlayerBuff) Type() MsgType { return MsgAddPlayerBuff }

// SyncNPCName names a town NPC instance.
type SyncNPCName struct {
	NPCSlot int16
	Name    string
}

func (SyncNPCName) Type() MsgType { return MsgSyncNPCName }

// WorldBalance reports hallow/corruption percentages.
type WorldBalance struct {
	Hallowed  byte
	Corrupted byte
}

func (WorldBalance) Type() MsgType { return MsgWorldBalance }

// ClientUUID is the opaque client identity string, logged by the server.
type ClientUUID struct {
	UUID string
}

func (ClientUUID) Type() MsgType { return MsgClientUUID }
