package protocol

import "fmt"

// MsgType identifies a wire message. The same numbering is used in both
// directions; which side may send a given type is enforced by the handshake
// state machine, not here.
type MsgType uint8

const (
	MsgHello                MsgType = 1
	MsgKick                 MsgType = 2
	MsgPlayerInfo           MsgType = 3
	MsgSyncPlayer           MsgType = 4
	MsgSyncEquipment        MsgType = 5
	MsgRequestWorldData     MsgType = 6
	MsgWorldData            MsgType = 7
	MsgRequestEssentialTiles MsgType = 8
	MsgStatusText           MsgType = 9
	MsgTileSection          MsgType = 10
	MsgTileFrameSection     MsgType = 11
	MsgPlayerSpawn          MsgType = 12
	MsgPlayerControls       MsgType = 13
	MsgPlayerActive         MsgType = 14
	MsgPlayerLife           MsgType = 16
	MsgTileEdit             MsgType = 17
	MsgTime                 MsgType = 18
	MsgDoorToggle           MsgType = 19
	MsgSyncItem             MsgType = 21
	MsgItemOwner            MsgType = 22
	MsgSyncNPC              MsgType = 23
	MsgChat                 MsgType = 25
	MsgRequestPassword      MsgType = 37
	MsgSendPassword         MsgType = 38
	MsgPlayerMana           MsgType = 42
	MsgLiquid               MsgType = 48
	MsgStartPlaying         MsgType = 49
	MsgPlayerBuffs          MsgType = 50
	MsgAddPlayerBuff        MsgType = 55
	MsgSyncNPCName          MsgType = 56
	MsgWorldBalance         MsgType = 57
	MsgClientUUID           MsgType = 68
	MsgSyncLoadout          MsgType = 147
)

var msgNames = map[MsgType]string{
	MsgHello:                 "Hello",
	MsgKick:                  "Kick",
	MsgPlayerInfo:            "PlayerInfo",
	MsgSyncPlayer:            "SyncPlayer",
	MsgSyncEquipment:         "SyncEquipment",
	MsgRequestWorldData:      "RequestWorldData",
	MsgWorldData:             "WorldData",
	MsgRequestEssentialTiles: "RequestEssentialTiles",
	MsgStatusText:            "StatusText",
	MsgTileSection:           "TileSection",
	MsgTileFrameSection:      "TileFrameSection",
	MsgPlayerSpawn:           "PlayerSpawn",
	MsgPlayerControls:        "PlayerControls",
	MsgPlayerActive:          "PlayerActive",
	MsgPlayerLife:            "PlayerLife",
	MsgTileEdit:              "TileEdit",
	MsgTime:                  "Time",
	MsgDoorToggle:            "DoorToggle",
	MsgSyncItem:              "SyncItem",
	MsgItemOwner:             "ItemOwner",
	MsgSyncNPC:               "SyncNPC",
	MsgChat:                  "Chat",
	MsgRequestPassword:       "RequestPassword",
	MsgSendPassword:          "SendPassword",
	MsgPlayerMana:            "PlayerMana",
	MsgLiquid:                "Liquid",
	MsgStartPlaying:          "StartPlaying",
	MsgPlayerBuffs:           "PlayerBuffs",
	MsgAddPlayerBuff:         "AddPlayerBuff",
	MsgSyncNPCName:           "SyncNPCName",
	MsgWorldBalance:          "WorldBalance",
	MsgClientUUID:            "ClientUUID",
	MsgSyncLoadout:           "SyncLoadout",
}

// AllTypes returns every modelled message type.
func AllTypes() []MsgType {
	out := make([]MsgType, 0, len(msgNames))
	for t := range msgNames {
		out = append(out, t)
	}
	return out
}

func (t MsgType) String() string {
	if name, ok := msgNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", uint8(t))
}
