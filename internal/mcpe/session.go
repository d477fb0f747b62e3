package mcpe

import (
	"net"

	"github.com/google/uuid"

	"github.com/duskwind/bedrockd/internal/bedlog"
	"github.com/duskwind/bedrockd/internal/world"
)

var mcpeLog = bedlog.For("mcpe")

// GameState is the per-player login/spawn state machine: AWAITING_LOGIN
// -> AWAITING_RESOURCE_RESPONSE -> AWAITING_CHUNK_RADIUS -> SPAWNED.
type GameState int

const (
	AwaitingLogin GameState = iota
	AwaitingResourceResponse
	AwaitingChunkRadius
	Spawned
)

// GameSession tracks one connected player from LOGIN through spawn. It
// holds no network state of its own; packets are pushed in by the
// endpoint glue in cmd/bedrockd and replies are queued onto the shared
// BatchQueue.
type GameSession struct {
	Addr            *net.UDPAddr
	State           GameState
	EntityRuntimeID uint64
	EntityUniqueID  int64
	PlayerName      string
	Identity        string
	UUID            string
	ChunkRadius     int32

	queue *BatchQueue
	w     world.World
}

// NewGameSession creates a session in AWAITING_LOGIN for addr. UUID is
// generated server-side rather than taken from the client's identity chain,
// since that chain is never cryptographically verified.
func NewGameSession(addr *net.UDPAddr, entityRuntimeID uint64, queue *BatchQueue, w world.World) *GameSession {
	return &GameSession{
		Addr:            addr,
		State:           AwaitingLogin,
		EntityRuntimeID: entityRuntimeID,
		EntityUniqueID:  int64(entityRuntimeID),
		UUID:            uuid.New().String(),
		ChunkRadius:     defaultChunkRadius,
		queue:           queue,
		w:               w,
	}
}

// HandleGamePacket advances the state machine under its strict packet
// ordering; packets out of sequence for the current state are dropped
// rather than causing a panic. Only an out-of-sequence LOGIN is logged;
// the other handlers drop their packet without a log line.
func (s *GameSession) HandleGamePacket(p GamePacket) {
	switch pkt := p.(type) {
	case Login:
		s.handleLogin(pkt)
	case ResourcePackClientResponse:
		s.handleResourcePackResponse(pkt)
	case RequestChunkRadius:
		s.handleRequestChunkRadius(pkt)
	case Text:
		s.handleText(pkt)
	case MovePlayer:
		s.handleMovePlayer(pkt)
	case CommandRequest:
		s.handleCommandRequest(pkt)
	case PlayerAction:
		s.handlePlayerAction(pkt)
	default:
		mcpeLog.Debugf("%s: unhandled game packet %T in state %d", s.Addr, p, s.State)
	}
}

func (s *GameSession) handleLogin(p Login) {
	if s.State != AwaitingLogin {
		mcpeLog.Warningf("%s: LOGIN received in state %d, ignoring", s.Addr, s.State)
		return
	}
	if len(p.Chain) > 0 {
		s.PlayerName = p.Chain[0].DisplayName
		s.Identity = p.Chain[0].Identity
	}

	s.w.Perform(world.LoginAction{EntityRuntimeID: s.EntityRuntimeID, PlayerName: s.PlayerName, Identity: s.Identity, UUID: s.UUID})

	s.queue.Append(s.Addr, PlayStatusPacket{Status: PlayStatusLoginSuccess})
	s.queue.Append(s.Addr, ResourcePacksInfo{MustAccept: false})
	s.State = AwaitingResourceResponse
}

func (s *GameSession) handleResourcePackResponse(p ResourcePackClientResponse) {
	if s.State != AwaitingResourceResponse {
		return
	}
	switch p.Status {
	case ResourcePackStatusHaveAllPacks, ResourcePackStatusSendPacks:
		s.queue.Append(s.Addr, ResourcePackStack{MustAccept: false})
	case ResourcePackStatusCompleted:
		s.sendStartGame()
		s.State = AwaitingChunkRadius
	case ResourcePackStatusRefused:
		s.queue.Append(s.Addr, Disconnect{Message: "disconnectionScreen.resourcePack"})
	}
}

func (s *GameSession) sendStartGame() {
	s.queue.Append(s.Addr, StartGame{
		EntityUniqueID:  s.EntityUniqueID,
		EntityRuntimeID: s.EntityRuntimeID,
		GameMode:        GameMode(s.w.GameMode()),
		Position:        Vector3{},
		Rotation:        Rotation{},
		Seed:            s.w.Seed(),
		Dimension:       0,
		Difficulty:      Difficulty(s.w.Difficulty()),
		SpawnPosition:   BlockPosition{},
		WorldName:       s.w.WorldName(),
		WorldGameMode:   GameMode(s.w.GameMode()),
	})
	s.queue.Append(s.Addr, SetTime{Time: s.w.Time()})
	s.queue.Append(s.Addr, UpdateAttributes{EntityRuntimeID: s.EntityRuntimeID})
	s.queue.Append(s.Addr, AvailableCommands{Names: s.w.CommandNames()})
	s.queue.Append(s.Addr, AdventureSettings{})
	s.queue.Append(s.Addr, InventoryContent{WindowID: WindowInventory})
	s.queue.Append(s.Addr, MobEquipment{EntityRuntimeID: s.EntityRuntimeID})
	s.queue.Append(s.Addr, InventorySlot{WindowID: WindowInventory})
	s.queue.Append(s.Addr, CraftingData{Recipes: s.w.CraftingRecipes()})
	s.queue.Append(s.Addr, PlayerList{
		Action: PlayerListActionAdd,
		Entries: []PlayerListEntry{
			{UUID: s.UUID, EntityUniqueID: s.EntityUniqueID, PlayerName: s.PlayerName},
		},
	})
}

func (s *GameSession) handleRequestChunkRadius(p RequestChunkRadius) {
	if s.State != AwaitingChunkRadius && s.State != Spawned {
		return
	}
	radius := p.Radius
	if radius > 32 {
		radius = 32
	}
	s.ChunkRadius = radius
	s.queue.Append(s.Addr, ChunkRadiusUpdated{Radius: radius})

	if s.State == AwaitingChunkRadius {
		s.streamSpawnChunks()
		s.queue.Append(s.Addr, PlayStatusPacket{Status: PlayStatusPlayerSpawn})
		s.w.Perform(world.RequestChunkAction{EntityRuntimeID: s.EntityRuntimeID, Radius: radius})
		s.State = Spawned
	}
}

func (s *GameSession) streamSpawnChunks() {
	for _, chunk := range s.w.SpawnChunks(s.ChunkRadius) {
		s.queue.Append(s.Addr, FullChunkData{ChunkX: chunk.X, ChunkZ: chunk.Z, Payload: chunk.Payload})
		s.queue.mx.ChunkStreamed()
	}
}

func (s *GameSession) handleText(p Text) {
	if s.State != Spawned {
		return
	}
	s.w.Perform(world.SendTextAction{EntityRuntimeID: s.EntityRuntimeID, Message: p.Message})
}

func (s *GameSession) handleMovePlayer(p MovePlayer) {
	if s.State != Spawned {
		return
	}
	s.w.Perform(world.MoveAction{
		EntityRuntimeID: s.EntityRuntimeID,
		Position:        world.Vector3{X: p.Position.X, Y: p.Position.Y, Z: p.Position.Z},
		Yaw:             p.Rotation.Yaw,
		Pitch:           p.Rotation.Pitch,
	})
}

func (s *GameSession) handleCommandRequest(p CommandRequest) {
	if s.State != Spawned {
		return
	}
	s.w.Perform(world.RunCommandAction{EntityRuntimeID: s.EntityRuntimeID, Command: p.Command})
}

func (s *GameSession) handlePlayerAction(p PlayerAction) {
	if s.State != Spawned {
		return
	}
	pos := world.BlockPosition{X: p.Position.X, Y: p.Position.Y, Z: p.Position.Z}
	switch p.Action {
	case PlayerActionStopBreak:
		s.w.Perform(world.BreakBlockAction{EntityRuntimeID: s.EntityRuntimeID, Position: pos})
	case PlayerActionPlaceBlock:
		s.w.Perform(world.PutItemAction{EntityRuntimeID: s.EntityRuntimeID, Position: pos, ItemID: p.ItemID})
	}
}

// Disconnect queues a DISCONNECT packet; the caller is responsible for
// tearing down the underlying RakNet session afterwards.
func (s *GameSession) Disconnect(message string) {
	s.queue.Append(s.Addr, Disconnect{Message: message})
}
