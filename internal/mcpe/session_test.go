package mcpe

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskwind/bedrockd/internal/raknet"
	"github.com/duskwind/bedrockd/internal/wire"
	"github.com/duskwind/bedrockd/internal/world"
)

func testAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: 19132}
}

// capturingQueue wraps a real BatchQueue and records every BATCH it
// sends, so tests can decode what was queued.
type capturingQueue struct {
	*BatchQueue
	sent []sentBatch
}

func newCapturingQueue() *capturingQueue {
	c := &capturingQueue{}
	c.BatchQueue = NewBatchQueue(512, func(addr *net.UDPAddr, data []byte, rel raknet.Reliability) {
		c.sent = append(c.sent, sentBatch{addr: addr, data: data, rel: rel})
	}, nil)
	return c
}

// decodeAllSent flushes the queue and decodes every queued sub-packet back
// into GamePackets, in send order.
func (c *capturingQueue) decodeAllSent(t *testing.T) []GamePacket {
	t.Helper()
	require.NoError(t, c.Flush())
	var out []GamePacket
	for _, s := range c.sent {
		cp, err := DecodeConnectionPacket(s.data)
		require.NoError(t, err)
		for _, raw := range cp.SubPackets {
			pkt, err := DecodeGamePacket(wire.NewReader(raw))
			require.NoError(t, err)
			out = append(out, pkt)
		}
	}
	return out
}

func TestGameSessionLoginSendsPlayStatusAndResourcePacksInfo(t *testing.T) {
	w := world.NewMemoryWorld(world.MemoryConfig{WorldName: "test", Seed: 1})
	q := newCapturingQueue()
	gs := NewGameSession(testAddr(), 1, q.BatchQueue, w)

	gs.HandleGamePacket(Login{ProtocolVersion: ProtocolVersion, Chain: []IdentityChain{{DisplayName: "Steve"}}})

	assert.Equal(t, AwaitingResourceResponse, gs.State)
	assert.Equal(t, "Steve", gs.PlayerName)

	pkts := q.decodeAllSent(t)
	require.Len(t, pkts, 2)
	assert.Equal(t, PlayStatusPacket{Status: PlayStatusLoginSuccess}, pkts[0])
	assert.IsType(t, ResourcePacksInfo{}, pkts[1])
}

func TestGameSessionLoginIgnoredOutsideAwaitingLogin(t *testing.T) {
	w := world.NewMemoryWorld(world.MemoryConfig{})
	q := newCapturingQueue()
	gs := NewGameSession(testAddr(), 1, q.BatchQueue, w)
	gs.State = Spawned

	gs.HandleGamePacket(Login{ProtocolVersion: ProtocolVersion})

	assert.Empty(t, q.decodeAllSent(t))
}

func TestGameSessionResourcePackCompletedSendsStartGame(t *testing.T) {
	w := world.NewMemoryWorld(world.MemoryConfig{WorldName: "test", Seed: 7})
	q := newCapturingQueue()
	gs := NewGameSession(testAddr(), 1, q.BatchQueue, w)
	gs.State = AwaitingResourceResponse

	gs.HandleGamePacket(ResourcePackClientResponse{Status: ResourcePackStatusCompleted})

	assert.Equal(t, AwaitingChunkRadius, gs.State)
	pkts := q.decodeAllSent(t)
	require.NotEmpty(t, pkts)
	sg, ok := pkts[0].(StartGame)
	require.True(t, ok)
	assert.Equal(t, int32(7), sg.Seed)
}

func TestGameSessionRequestChunkRadiusClampsAndSpawns(t *testing.T) {
	w := world.NewMemoryWorld(world.MemoryConfig{})
	q := newCapturingQueue()
	gs := NewGameSession(testAddr(), 1, q.BatchQueue, w)
	gs.State = AwaitingChunkRadius

	gs.HandleGamePacket(RequestChunkRadius{Radius: 999})

	assert.Equal(t, Spawned, gs.State)
	assert.Equal(t, int32(32), gs.ChunkRadius)

	pkts := q.decodeAllSent(t)
	require.NotEmpty(t, pkts)
	radiusUpdated, ok := pkts[0].(ChunkRadiusUpdated)
	require.True(t, ok)
	assert.Equal(t, int32(32), radiusUpdated.Radius)

	var sawPlayerSpawn bool
	for _, p := range pkts {
		if ps, ok := p.(PlayStatusPacket); ok && ps.Status == PlayStatusPlayerSpawn {
			sawPlayerSpawn = true
		}
	}
	assert.True(t, sawPlayerSpawn)
}

func TestGameSessionResourcePackCompletedSendsFullSpawnSequence(t *testing.T) {
	w := world.NewMemoryWorld(world.MemoryConfig{WorldName: "test", Seed: 7})
	q := newCapturingQueue()
	gs := NewGameSession(testAddr(), 1, q.BatchQueue, w)
	gs.State = AwaitingResourceResponse

	gs.HandleGamePacket(ResourcePackClientResponse{Status: ResourcePackStatusCompleted})

	pkts := q.decodeAllSent(t)
	wantOrder := []GamePacket{
		StartGame{}, SetTime{}, UpdateAttributes{}, AvailableCommands{}, AdventureSettings{},
		InventoryContent{}, MobEquipment{}, InventorySlot{}, CraftingData{}, PlayerList{},
	}
	require.Len(t, pkts, len(wantOrder))
	for i, want := range wantOrder {
		assert.IsTypef(t, want, pkts[i], "packet %d", i)
	}

	pl, ok := pkts[len(pkts)-1].(PlayerList)
	require.True(t, ok)
	assert.Equal(t, PlayerListActionAdd, pl.Action)
	require.Len(t, pl.Entries, 1)
	assert.Equal(t, gs.UUID, pl.Entries[0].UUID)
}

func TestGameSessionPlayerActionBreaksAndPlacesOnlyWhenSpawned(t *testing.T) {
	w := world.NewMemoryWorld(world.MemoryConfig{})
	q := newCapturingQueue()
	gs := NewGameSession(testAddr(), 1, q.BatchQueue, w)

	// Dropped before spawn: no event should surface.
	gs.HandleGamePacket(PlayerAction{EntityRuntimeID: 1, Action: PlayerActionStopBreak, Position: BlockPosition{X: 1}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.NextEvent(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	gs.State = Spawned
	gs.HandleGamePacket(PlayerAction{EntityRuntimeID: 1, Action: PlayerActionStopBreak, Position: BlockPosition{X: 1, Y: 2, Z: 3}})
	ev, err := w.NextEvent(context.Background())
	require.NoError(t, err)
	broke, ok := ev.(world.BlockUpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, int32(0), broke.BlockID)

	gs.HandleGamePacket(PlayerAction{EntityRuntimeID: 1, Action: PlayerActionPlaceBlock, Position: BlockPosition{X: 1, Y: 2, Z: 3}, ItemID: 9})
	ev, err = w.NextEvent(context.Background())
	require.NoError(t, err)
	placed, ok := ev.(world.BlockUpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, int32(9), placed.BlockID)
}

func TestGameSessionTextOnlyAppliedWhenSpawned(t *testing.T) {
	w := world.NewMemoryWorld(world.MemoryConfig{})
	q := newCapturingQueue()
	gs := NewGameSession(testAddr(), 1, q.BatchQueue, w)
	gs.State = AwaitingLogin

	gs.HandleGamePacket(Text{Message: "too early"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.NextEvent(ctx)
	assert.ErrorIs(t, err, context.Canceled) // nothing was published: the cancelled ctx wins the select
}
