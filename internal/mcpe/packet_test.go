package mcpe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskwind/bedrockd/internal/wire"
)

func TestEncodeDecodeGamePacketRoundTrip(t *testing.T) {
	cases := []GamePacket{
		Text{Type: TextTypeChat, SourceName: "alice", Message: "hi there"},
		MovePlayer{EntityRuntimeID: 7, Position: Vector3{X: 1, Y: 64, Z: -2}, Rotation: Rotation{Yaw: 90}, OnGround: true},
		CommandRequest{Command: "/help"},
		RequestChunkRadius{Radius: 12},
		ResourcePackClientResponse{Status: ResourcePackStatusHaveAllPacks},
		PlayerAction{EntityRuntimeID: 7, Action: PlayerActionStopBreak, Position: BlockPosition{X: 1, Y: 2, Z: 3}, Face: 1},
		PlayerAction{EntityRuntimeID: 7, Action: PlayerActionPlaceBlock, Position: BlockPosition{X: 1, Y: 2, Z: 3}, Face: 1, ItemID: 5},
	}

	for _, p := range cases {
		raw := encodeGamePacket(p)
		got, err := DecodeGamePacket(wire.NewReader(raw))
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestDecodeLoginExtractsIdentityChain(t *testing.T) {
	login := Login{
		ProtocolVersion: ProtocolVersion,
		Chain:           []IdentityChain{{XUID: "123", Identity: "uuid-1", DisplayName: "Steve"}},
		RawClientData:   "{}",
	}

	raw := encodeGamePacket(login)
	got, err := DecodeGamePacket(wire.NewReader(raw))
	require.NoError(t, err)

	decoded, ok := got.(Login)
	require.True(t, ok)
	assert.Equal(t, int32(ProtocolVersion), decoded.ProtocolVersion)
	require.Len(t, decoded.Chain, 1)
	assert.Equal(t, "Steve", decoded.Chain[0].DisplayName)
	assert.Equal(t, "{}", decoded.RawClientData)
}

func TestDecodeTextRawHasNoSourceName(t *testing.T) {
	raw := encodeGamePacket(Text{Type: TextTypeRaw, Message: "server message"})
	got, err := DecodeGamePacket(wire.NewReader(raw))
	require.NoError(t, err)

	decoded, ok := got.(Text)
	require.True(t, ok)
	assert.Equal(t, TextTypeRaw, decoded.Type)
	assert.Empty(t, decoded.SourceName)
	assert.Equal(t, "server message", decoded.Message)
}

func TestDecodeGamePacketUnknownIDErrors(t *testing.T) {
	w := wire.NewWriter()
	w.WriteVarUint32(9999)
	_, err := DecodeGamePacket(wire.NewReader(w.Bytes()))
	assert.Error(t, err)
}

// AddPlayer, RemoveEntity and UpdateBlock are server->client only, so
// there is no registered decoder; check the leading packet ID varint
// instead of a full decode round trip.
func TestServerOnlyPacketsEncodeWithCorrectLeadingID(t *testing.T) {
	cases := []struct {
		pkt GamePacket
		id  GamePacketID
	}{
		{AddPlayer{PlayerName: "Steve", EntityUniqueID: 1, EntityRuntimeID: 1}, GamePacketAddPlayer},
		{RemoveEntity{EntityUniqueID: 1}, GamePacketRemoveEntity},
		{UpdateBlock{Position: BlockPosition{X: 1, Y: 2, Z: 3}, BlockRuntimeID: 7}, GamePacketUpdateBlock},
		{AddEntity{EntityUniqueID: 2, EntityRuntimeID: 2, EntityType: "minecraft:chicken"}, GamePacketAddEntity},
		{MoveEntity{EntityRuntimeID: 2, Position: Vector3{X: 1, Y: 2, Z: 3}}, GamePacketMoveEntity},
		{InventoryContent{WindowID: WindowInventory, Slots: []ItemStack{{ID: 1, Count: 1}}}, GamePacketInventoryContent},
		{MobEquipment{EntityRuntimeID: 1, Item: ItemStack{ID: 1, Count: 1}}, GamePacketMobEquipment},
		{InventorySlot{WindowID: WindowInventory, Slot: 0, Item: ItemStack{ID: 1, Count: 1}}, GamePacketInventorySlot},
		{CraftingData{Recipes: []byte{0x00}}, GamePacketCraftingData},
		{PlayerList{Action: PlayerListActionAdd, Entries: []PlayerListEntry{{UUID: "u-1", EntityUniqueID: 1, PlayerName: "Steve"}}}, GamePacketPlayerList},
	}

	for _, c := range cases {
		raw := encodeGamePacket(c.pkt)
		r := wire.NewReader(raw)
		id, err := r.ReadVarUint32()
		require.NoError(t, err)
		assert.Equal(t, c.id, GamePacketID(id))
	}
}

func TestStartGameEncodesWithoutError(t *testing.T) {
	sg := StartGame{
		EntityUniqueID:  1,
		EntityRuntimeID: 1,
		GameMode:        GameModeSurvival,
		Position:        Vector3{X: 0, Y: 70, Z: 0},
		Seed:            42,
		Difficulty:      DifficultyNormal,
		WorldName:       "testWorld",
		WorldGameMode:   GameModeSurvival,
	}
	raw := encodeGamePacket(sg)
	assert.NotEmpty(t, raw)
}
