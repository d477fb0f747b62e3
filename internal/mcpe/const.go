// Package mcpe implements the Minecraft Bedrock game-packet layer that
// rides inside RakNet's reliable byte stream: connection-level handshake
// packets, the zlib-batched game packet container, and the per-player
// login/spawn state machine.
package mcpe

// ProtocolVersion and GameVersion are echoed in the login handshake and the
// unconnected-pong server descriptor string.
const (
	ProtocolVersion = 160
	GameVersion     = "1.2.7"
)

// ConnectionPacketID is the first byte of every packet carried inside a
// RakNet reliable stream, one layer above the raw frame.
type ConnectionPacketID uint8

const (
	ConnectedPing             ConnectionPacketID = 0x00
	ConnectedPong             ConnectionPacketID = 0x03
	ConnectionRequest         ConnectionPacketID = 0x09
	ConnectionRequestAccepted ConnectionPacketID = 0x10
	NewIncomingConnection     ConnectionPacketID = 0x13
	DisconnectionNotification ConnectionPacketID = 0x15
	Batch                     ConnectionPacketID = 0x8F
)

// GamePacketID is the first varint field inside a decompressed batch
// sub-packet.
type GamePacketID uint32

const (
	GamePacketLogin                  GamePacketID = 1
	GamePacketPlayStatus             GamePacketID = 2
	GamePacketDisconnect             GamePacketID = 5
	GamePacketResourcePacksInfo      GamePacketID = 6
	GamePacketResourcePackStack      GamePacketID = 7
	GamePacketResourcePackClientResp GamePacketID = 8
	GamePacketText                   GamePacketID = 9
	GamePacketSetTime                GamePacketID = 10
	GamePacketStartGame              GamePacketID = 11
	GamePacketAddPlayer              GamePacketID = 12
	GamePacketAddEntity              GamePacketID = 13
	GamePacketRemoveEntity           GamePacketID = 14
	GamePacketMoveEntity             GamePacketID = 17
	GamePacketMovePlayer             GamePacketID = 19
	GamePacketUpdateBlock            GamePacketID = 21
	GamePacketUpdateAttributes       GamePacketID = 29
	GamePacketPlayerAction           GamePacketID = 36
	GamePacketMobEquipment           GamePacketID = 47
	GamePacketInventoryContent       GamePacketID = 49
	GamePacketInventorySlot          GamePacketID = 50
	GamePacketCraftingData           GamePacketID = 52
	GamePacketAdventureSettings      GamePacketID = 55
	GamePacketFullChunkData          GamePacketID = 58
	GamePacketPlayerList             GamePacketID = 63
	GamePacketRequestChunkRadius     GamePacketID = 69
	GamePacketChunkRadiusUpdated     GamePacketID = 70
	GamePacketAvailableCommands      GamePacketID = 76
	GamePacketCommandRequest         GamePacketID = 77
)

// PlayStatus is the single int32 payload of the PLAY_STATUS packet.
type PlayStatus int32

const (
	PlayStatusLoginSuccess        PlayStatus = 0
	PlayStatusFailedClient        PlayStatus = 1
	PlayStatusFailedServer        PlayStatus = 2
	PlayStatusPlayerSpawn         PlayStatus = 3
	PlayStatusFailedInvalidTenant PlayStatus = 4
	PlayStatusFailedVanillaEdu    PlayStatus = 5
	PlayStatusFailedIncompatible  PlayStatus = 6
)

// ResourcePackStatus is the client's reply to RESOURCE_PACKS_INFO.
type ResourcePackStatus uint8

const (
	ResourcePackStatusRefused      ResourcePackStatus = 1
	ResourcePackStatusSendPacks    ResourcePackStatus = 2
	ResourcePackStatusHaveAllPacks ResourcePackStatus = 3
	ResourcePackStatusCompleted    ResourcePackStatus = 4
)

// GameMode is the per-player mode reported in START_GAME.
type GameMode int32

const (
	GameModeSurvival  GameMode = 0
	GameModeCreative  GameMode = 1
	GameModeAdventure GameMode = 2
)

// Difficulty is reported by the world collaborator and carried in
// START_GAME.
type Difficulty int32

const (
	DifficultyPeaceful Difficulty = 0
	DifficultyEasy     Difficulty = 1
	DifficultyNormal   Difficulty = 2
	DifficultyHard     Difficulty = 3
)

const defaultChunkRadius = 8
