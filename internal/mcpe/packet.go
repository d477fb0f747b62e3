package mcpe

import (
	"encoding/json"
	"fmt"

	"github.com/duskwind/bedrockd/internal/wire"
)

// GamePacket is any decoded game packet. Concrete types below implement it;
// ID returns the GamePacketID used as the dispatch key in both directions.
type GamePacket interface {
	ID() GamePacketID
	encode(w *wire.Stream)
}

func encodeGamePacket(p GamePacket) []byte {
	w := wire.NewWriter()
	w.WriteVarUint32(uint32(p.ID()))
	p.encode(w)
	return w.Bytes()
}

// decoders is the statically-known dispatch table from a GamePacketID to
// a decode function, hand-written here since the packet set this server
// needs is small and fixed.
var decoders = map[GamePacketID]func(*wire.Stream) (GamePacket, error){
	GamePacketLogin:                  decodeLogin,
	GamePacketResourcePackClientResp: decodeResourcePackClientResponse,
	GamePacketText:                   decodeText,
	GamePacketMovePlayer:             decodeMovePlayer,
	GamePacketCommandRequest:         decodeCommandRequest,
	GamePacketRequestChunkRadius:     decodeRequestChunkRadius,
	GamePacketPlayerAction:           decodePlayerAction,
}

// DecodeGamePacket reads one packet ID + body from r.
func DecodeGamePacket(r *wire.Stream) (GamePacket, error) {
	id, err := r.ReadVarUint32()
	if err != nil {
		return nil, err
	}
	dec, ok := decoders[GamePacketID(id)]
	if !ok {
		return nil, fmt.Errorf("mcpe: no decoder for game packet id %d", id)
	}
	return dec(r)
}

// --- LOGIN -----------------------------------------------------------------

type Login struct {
	ProtocolVersion int32
	Chain           []IdentityChain
	RawClientData   string
}

func (Login) ID() GamePacketID { return GamePacketLogin }
func (p Login) encode(w *wire.Stream) {
	w.WriteVarInt32(p.ProtocolVersion)
	claims := make([]identityClaim, len(p.Chain))
	for i, c := range p.Chain {
		claims[i] = identityClaim{ExtraData: c}
	}
	chain, _ := json.Marshal(claims)
	w.WriteString(string(chain))
	w.WriteString(p.RawClientData)
}

func decodeLogin(r *wire.Stream) (GamePacket, error) {
	proto, err := r.ReadVarInt32()
	if err != nil {
		return nil, err
	}
	chainJSON, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	clientData, err := r.ReadString()
	if err != nil {
		return nil, err
	}

	var claims []identityClaim
	chain := []IdentityChain{}
	if err := json.Unmarshal([]byte(chainJSON), &claims); err == nil {
		for _, c := range claims {
			chain = append(chain, c.ExtraData)
		}
	}
	return Login{ProtocolVersion: proto, Chain: chain, RawClientData: clientData}, nil
}

// --- PLAY_STATUS -------------------------------------------------------------

type PlayStatusPacket struct {
	Status PlayStatus
}

func (PlayStatusPacket) ID() GamePacketID { return GamePacketPlayStatus }
func (p PlayStatusPacket) encode(w *wire.Stream) {
	w.WriteUint32(uint32(int32(p.Status)))
}

// --- DISCONNECT --------------------------------------------------------------

type Disconnect struct {
	HideDisconnectScreen bool
	Message              string
}

func (Disconnect) ID() GamePacketID { return GamePacketDisconnect }
func (p Disconnect) encode(w *wire.Stream) {
	if p.HideDisconnectScreen {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
		w.WriteString(p.Message)
	}
}

// --- RESOURCE_PACKS_INFO / STACK ----------------------------------------------

type ResourcePacksInfo struct {
	MustAccept bool
}

func (ResourcePacksInfo) ID() GamePacketID { return GamePacketResourcePacksInfo }
func (p ResourcePacksInfo) encode(w *wire.Stream) {
	if p.MustAccept {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
	w.WriteUint16(0) // behavior pack list, empty
	w.WriteUint16(0) // resource pack list, empty
}

type ResourcePackStack struct {
	MustAccept bool
}

func (ResourcePackStack) ID() GamePacketID { return GamePacketResourcePackStack }
func (p ResourcePackStack) encode(w *wire.Stream) {
	if p.MustAccept {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
	w.WriteVarUint32(0) // behavior pack stack, empty
	w.WriteVarUint32(0) // resource pack stack, empty
}

type ResourcePackClientResponse struct {
	Status ResourcePackStatus
}

func (ResourcePackClientResponse) ID() GamePacketID { return GamePacketResourcePackClientResp }
func (p ResourcePackClientResponse) encode(w *wire.Stream) {
	w.WriteUint8(uint8(p.Status))
	w.WriteUint16(0)
}

func decodeResourcePackClientResponse(r *wire.Stream) (GamePacket, error) {
	status, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if _, err := r.ReadUint16(); err != nil {
		return nil, err
	}
	return ResourcePackClientResponse{Status: ResourcePackStatus(status)}, nil
}

// --- START_GAME ----------------------------------------------------------------

type StartGame struct {
	EntityUniqueID  int64
	EntityRuntimeID uint64
	GameMode        GameMode
	Position        Vector3
	Rotation        Rotation
	Seed            int32
	Dimension       int32
	Difficulty      Difficulty
	SpawnPosition   BlockPosition
	WorldName       string
	WorldGameMode   GameMode
}

func (StartGame) ID() GamePacketID { return GamePacketStartGame }
func (p StartGame) encode(w *wire.Stream) {
	w.WriteVarInt64(p.EntityUniqueID)
	w.WriteVarUint64(p.EntityRuntimeID)
	w.WriteVarInt32(int32(p.GameMode))
	writeVector3(w, p.Position)
	writeRotation(w, p.Rotation)
	w.WriteVarInt32(p.Seed)
	w.WriteVarInt32(p.Dimension)
	w.WriteVarInt32(int32(p.Difficulty))
	writeBlockPosition(w, p.SpawnPosition)
	w.WriteVarInt32(int32(p.WorldGameMode))
	w.WriteString(p.WorldName)
}

// --- ADD_PLAYER / REMOVE_ENTITY --------------------------------------------------

// AddPlayer tells a client that another player's entity now exists in the
// world; broadcast to every other session once a new player finishes its
// own login/spawn handshake.
type AddPlayer struct {
	UUID            string
	PlayerName      string
	EntityUniqueID  int64
	EntityRuntimeID uint64
	Position        Vector3
	Rotation        Rotation
}

func (AddPlayer) ID() GamePacketID { return GamePacketAddPlayer }
func (p AddPlayer) encode(w *wire.Stream) {
	w.WriteString(p.UUID)
	w.WriteString(p.PlayerName)
	w.WriteVarInt64(p.EntityUniqueID)
	w.WriteVarUint64(p.EntityRuntimeID)
	writeVector3(w, p.Position)
	writeRotation(w, p.Rotation)
}

// RemoveEntity tells a client an entity has left the world.
type RemoveEntity struct {
	EntityUniqueID int64
}

func (RemoveEntity) ID() GamePacketID { return GamePacketRemoveEntity }
func (p RemoveEntity) encode(w *wire.Stream) { w.WriteVarInt64(p.EntityUniqueID) }

// AddEntity is AddPlayer's counterpart for non-player entities; the
// reference world collaborator never spawns one, but the packet is part of
// the wire's fixed ID table so it is defined here regardless.
type AddEntity struct {
	EntityUniqueID  int64
	EntityRuntimeID uint64
	EntityType      string
	Position        Vector3
	Rotation        Rotation
}

func (AddEntity) ID() GamePacketID { return GamePacketAddEntity }
func (p AddEntity) encode(w *wire.Stream) {
	w.WriteVarInt64(p.EntityUniqueID)
	w.WriteVarUint64(p.EntityRuntimeID)
	w.WriteString(p.EntityType)
	writeVector3(w, p.Position)
	writeRotation(w, p.Rotation)
}

// --- MOVE_ENTITY -------------------------------------------------------------

// MoveEntity reports another entity's new position; MovePlayer stays
// reserved for the client's own avatar (self-movement is client-
// authoritative and never echoed back), while other players' movement is
// rebroadcast through this packet instead.
type MoveEntity struct {
	EntityRuntimeID uint64
	Position        Vector3
	Rotation        Rotation
}

func (MoveEntity) ID() GamePacketID { return GamePacketMoveEntity }
func (p MoveEntity) encode(w *wire.Stream) {
	w.WriteVarUint64(p.EntityRuntimeID)
	writeVector3(w, p.Position)
	writeRotation(w, p.Rotation)
	w.WriteUint8(0) // flags: none
}

// --- UPDATE_BLOCK ----------------------------------------------------------------

// UpdateBlock reports a single block change at Position.
type UpdateBlock struct {
	Position       BlockPosition
	BlockRuntimeID uint32
}

func (UpdateBlock) ID() GamePacketID { return GamePacketUpdateBlock }
func (p UpdateBlock) encode(w *wire.Stream) {
	writeBlockPosition(w, p.Position)
	w.WriteVarUint32(p.BlockRuntimeID)
	w.WriteVarUint32(0) // update flags: none
}

// --- PLAYER_ACTION -----------------------------------------------------------

// PlayerActionType is the client's requested interaction with a block.
// PlaceBlock has no equivalent in the full protocol's PlayerActionPacket
// (placing there goes through an item-use transaction instead), but this
// server folds both halves of block interaction into the one packet.
type PlayerActionType int32

const (
	PlayerActionStartBreak PlayerActionType = 0
	PlayerActionAbortBreak PlayerActionType = 1
	PlayerActionStopBreak  PlayerActionType = 2
	PlayerActionPlaceBlock PlayerActionType = 3
)

// PlayerAction carries a block-break or block-place request, identified by
// Action; ItemID is only meaningful for PlaceBlock.
type PlayerAction struct {
	EntityRuntimeID uint64
	Action          PlayerActionType
	Position        BlockPosition
	Face            int32
	ItemID          int32
}

func (PlayerAction) ID() GamePacketID { return GamePacketPlayerAction }
func (p PlayerAction) encode(w *wire.Stream) {
	w.WriteVarUint64(p.EntityRuntimeID)
	w.WriteVarInt32(int32(p.Action))
	writeBlockPosition(w, p.Position)
	w.WriteVarInt32(p.Face)
	if p.Action == PlayerActionPlaceBlock {
		w.WriteVarInt32(p.ItemID)
	}
}

func decodePlayerAction(r *wire.Stream) (GamePacket, error) {
	eid, err := r.ReadVarUint64()
	if err != nil {
		return nil, err
	}
	action, err := r.ReadVarInt32()
	if err != nil {
		return nil, err
	}
	pos, err := readBlockPosition(r)
	if err != nil {
		return nil, err
	}
	face, err := r.ReadVarInt32()
	if err != nil {
		return nil, err
	}
	var itemID int32
	if PlayerActionType(action) == PlayerActionPlaceBlock {
		if itemID, err = r.ReadVarInt32(); err != nil {
			return nil, err
		}
	}
	return PlayerAction{
		EntityRuntimeID: eid,
		Action:          PlayerActionType(action),
		Position:        pos,
		Face:            face,
		ItemID:          itemID,
	}, nil
}

// --- INVENTORY_CONTENT / MOB_EQUIPMENT / INVENTORY_SLOT -----------------------

// WindowID identifies which inventory a slot packet addresses; this server
// only ever opens the player's own inventory.
type WindowID uint8

const WindowInventory WindowID = 0

// InventoryContent is the full per-slot inventory snapshot sent once a
// player spawns.
type InventoryContent struct {
	WindowID WindowID
	Slots    []ItemStack
}

func (InventoryContent) ID() GamePacketID { return GamePacketInventoryContent }
func (p InventoryContent) encode(w *wire.Stream) {
	w.WriteVarUint32(uint32(p.WindowID))
	w.WriteVarUint32(uint32(len(p.Slots)))
	for _, it := range p.Slots {
		writeItemStack(w, it)
	}
}

// MobEquipment reports the item an entity now holds in hand.
type MobEquipment struct {
	EntityRuntimeID uint64
	Item            ItemStack
	Slot            uint8
}

func (MobEquipment) ID() GamePacketID { return GamePacketMobEquipment }
func (p MobEquipment) encode(w *wire.Stream) {
	w.WriteVarUint64(p.EntityRuntimeID)
	writeItemStack(w, p.Item)
	w.WriteUint8(p.Slot)
	w.WriteUint8(p.Slot) // selected hotbar slot mirrors the held slot
	w.WriteUint8(uint8(WindowInventory))
}

// InventorySlot updates a single inventory slot in place, without
// resending the whole InventoryContent snapshot.
type InventorySlot struct {
	WindowID WindowID
	Slot     uint32
	Item     ItemStack
}

func (InventorySlot) ID() GamePacketID { return GamePacketInventorySlot }
func (p InventorySlot) encode(w *wire.Stream) {
	w.WriteVarUint32(uint32(p.WindowID))
	w.WriteVarUint32(p.Slot)
	writeItemStack(w, p.Item)
}

// --- CRAFTING_DATA -------------------------------------------------------------

// CraftingData carries the world collaborator's recipe blob verbatim; this
// server never parses it, only relays what the collaborator returns.
type CraftingData struct {
	Recipes      []byte
	ClearRecipes bool
}

func (CraftingData) ID() GamePacketID { return GamePacketCraftingData }
func (p CraftingData) encode(w *wire.Stream) {
	w.WriteVarUint32(uint32(len(p.Recipes)))
	w.WriteBytes(p.Recipes)
	if p.ClearRecipes {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
}

// --- PLAYER_LIST ---------------------------------------------------------------

// PlayerListAction selects whether Entries are being added to or removed
// from the player list UI.
type PlayerListAction uint8

const (
	PlayerListActionAdd    PlayerListAction = 0
	PlayerListActionRemove PlayerListAction = 1
)

// PlayerListEntry is one row of the player list; PlayerName is only
// carried on the wire for PlayerListActionAdd.
type PlayerListEntry struct {
	UUID           string
	EntityUniqueID int64
	PlayerName     string
}

type PlayerList struct {
	Action  PlayerListAction
	Entries []PlayerListEntry
}

func (PlayerList) ID() GamePacketID { return GamePacketPlayerList }
func (p PlayerList) encode(w *wire.Stream) {
	w.WriteUint8(uint8(p.Action))
	w.WriteVarUint32(uint32(len(p.Entries)))
	for _, e := range p.Entries {
		w.WriteString(e.UUID)
		w.WriteVarInt64(e.EntityUniqueID)
		if p.Action == PlayerListActionAdd {
			w.WriteString(e.PlayerName)
		}
	}
}

// --- SET_TIME ------------------------------------------------------------------

type SetTime struct {
	Time int32
}

func (SetTime) ID() GamePacketID { return GamePacketSetTime }
func (p SetTime) encode(w *wire.Stream) { w.WriteVarInt32(p.Time) }

// --- TEXT ------------------------------------------------------------------------

// TextType mirrors the handful of chat-message shapes the world
// collaborator's SendText action and TextShown event use.
type TextType uint8

const (
	TextTypeRaw    TextType = 0
	TextTypeChat   TextType = 1
	TextTypeSystem TextType = 5
)

type Text struct {
	Type       TextType
	SourceName string
	Message    string
}

func (Text) ID() GamePacketID { return GamePacketText }
func (p Text) encode(w *wire.Stream) {
	w.WriteUint8(uint8(p.Type))
	w.WriteUint8(0) // needs translation: false
	if p.Type == TextTypeChat {
		w.WriteString(p.SourceName)
	}
	w.WriteString(p.Message)
	w.WriteString("") // xuid
	w.WriteString("") // platform chat id
}

func decodeText(r *wire.Stream) (GamePacket, error) {
	t, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if _, err := r.ReadUint8(); err != nil {
		return nil, err
	}
	var source string
	if TextType(t) == TextTypeChat {
		source, err = r.ReadString()
		if err != nil {
			return nil, err
		}
	}
	msg, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	return Text{Type: TextType(t), SourceName: source, Message: msg}, nil
}

// --- MOVE_PLAYER ---------------------------------------------------------------

type MovePlayer struct {
	EntityRuntimeID uint64
	Position        Vector3
	Rotation        Rotation
	OnGround        bool
}

func (MovePlayer) ID() GamePacketID { return GamePacketMovePlayer }
func (p MovePlayer) encode(w *wire.Stream) {
	w.WriteVarUint64(p.EntityRuntimeID)
	writeVector3(w, p.Position)
	writeRotation(w, p.Rotation)
	w.WriteUint8(0) // move mode: normal
	if p.OnGround {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
	w.WriteVarUint64(0) // ridden runtime id
}

func decodeMovePlayer(r *wire.Stream) (GamePacket, error) {
	eid, err := r.ReadVarUint64()
	if err != nil {
		return nil, err
	}
	pos, err := readVector3(r)
	if err != nil {
		return nil, err
	}
	rot, err := readRotation(r)
	if err != nil {
		return nil, err
	}
	if _, err := r.ReadUint8(); err != nil {
		return nil, err
	}
	onGround, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if _, err := r.ReadVarUint64(); err != nil {
		return nil, err
	}
	return MovePlayer{EntityRuntimeID: eid, Position: pos, Rotation: rot, OnGround: onGround != 0}, nil
}

// --- COMMAND_REQUEST -------------------------------------------------------------

type CommandRequest struct {
	Command string
}

func (CommandRequest) ID() GamePacketID { return GamePacketCommandRequest }
func (p CommandRequest) encode(w *wire.Stream) { w.WriteString(p.Command) }

func decodeCommandRequest(r *wire.Stream) (GamePacket, error) {
	cmd, err := r.ReadString()
	if err != nil {
		return nil, err
	}
	return CommandRequest{Command: cmd}, nil
}

// --- REQUEST_CHUNK_RADIUS / CHUNK_RADIUS_UPDATED --------------------------------

type RequestChunkRadius struct {
	Radius int32
}

func (RequestChunkRadius) ID() GamePacketID { return GamePacketRequestChunkRadius }
func (p RequestChunkRadius) encode(w *wire.Stream) { w.WriteVarInt32(p.Radius) }

func decodeRequestChunkRadius(r *wire.Stream) (GamePacket, error) {
	radius, err := r.ReadVarInt32()
	if err != nil {
		return nil, err
	}
	return RequestChunkRadius{Radius: radius}, nil
}

type ChunkRadiusUpdated struct {
	Radius int32
}

func (ChunkRadiusUpdated) ID() GamePacketID { return GamePacketChunkRadiusUpdated }
func (p ChunkRadiusUpdated) encode(w *wire.Stream) { w.WriteVarInt32(p.Radius) }

// --- FULL_CHUNK_DATA -------------------------------------------------------------

type FullChunkData struct {
	ChunkX, ChunkZ int32
	Payload        []byte
}

func (FullChunkData) ID() GamePacketID { return GamePacketFullChunkData }
func (p FullChunkData) encode(w *wire.Stream) {
	w.WriteVarInt32(p.ChunkX)
	w.WriteVarInt32(p.ChunkZ)
	w.WriteVarUint32(uint32(len(p.Payload)))
	w.WriteBytes(p.Payload)
}

// --- UPDATE_ATTRIBUTES / AVAILABLE_COMMANDS / ADVENTURE_SETTINGS ------------------
// Minimal empty-bodied forms: the reference world collaborator does not
// model entity attributes or a command grammar beyond the flat command
// table in internal/world, so these packets carry no entries.

type UpdateAttributes struct {
	EntityRuntimeID uint64
}

func (UpdateAttributes) ID() GamePacketID { return GamePacketUpdateAttributes }
func (p UpdateAttributes) encode(w *wire.Stream) {
	w.WriteVarUint64(p.EntityRuntimeID)
	w.WriteVarUint32(0) // attribute count
}

type AvailableCommands struct {
	Names []string
}

func (AvailableCommands) ID() GamePacketID { return GamePacketAvailableCommands }
func (p AvailableCommands) encode(w *wire.Stream) {
	w.WriteVarUint32(uint32(len(p.Names)))
	for _, n := range p.Names {
		w.WriteString(n)
	}
}

type AdventureSettings struct {
	Flags uint32
}

func (AdventureSettings) ID() GamePacketID { return GamePacketAdventureSettings }
func (p AdventureSettings) encode(w *wire.Stream) { w.WriteVarUint32(p.Flags) }
