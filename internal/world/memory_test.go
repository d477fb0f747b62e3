package world

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorld() *MemoryWorld {
	return NewMemoryWorld(MemoryConfig{WorldName: "test", Seed: 42, GameMode: GameModeSurvival, Difficulty: DifficultyEasy, Time: 1000})
}

func nextEvent(t *testing.T, w *MemoryWorld) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ev, err := w.NextEvent(ctx)
	require.NoError(t, err)
	return ev
}

func TestLoginActionPublishesPlayerLoggedEvent(t *testing.T) {
	w := newTestWorld()
	w.Perform(LoginAction{EntityRuntimeID: 1, PlayerName: "Steve"})

	ev := nextEvent(t, w)
	logged, ok := ev.(PlayerLoggedEvent)
	require.True(t, ok)
	assert.Equal(t, uint64(1), logged.EntityRuntimeID)
	assert.Equal(t, "Steve", logged.PlayerName)
}

func TestLogoutActionPublishesEntityRemovedEvent(t *testing.T) {
	w := newTestWorld()
	w.Perform(LoginAction{EntityRuntimeID: 1, PlayerName: "Steve"})
	nextEvent(t, w)

	w.Perform(LogoutAction{EntityRuntimeID: 1})
	ev := nextEvent(t, w)
	removed, ok := ev.(EntityRemovedEvent)
	require.True(t, ok)
	assert.Equal(t, uint64(1), removed.EntityRuntimeID)
}

func TestMoveActionTracksPositionAndPublishesEntityMoved(t *testing.T) {
	w := newTestWorld()
	w.Perform(LoginAction{EntityRuntimeID: 1, PlayerName: "Steve"})
	nextEvent(t, w)

	pos := Vector3{X: 1, Y: 2, Z: 3}
	w.Perform(MoveAction{EntityRuntimeID: 1, Position: pos, Yaw: 90, Pitch: 0})

	ev := nextEvent(t, w)
	moved, ok := ev.(EntityMovedEvent)
	require.True(t, ok)
	assert.Equal(t, pos, moved.Position)
	assert.Equal(t, float32(90), moved.Yaw)
}

func TestBreakAndPutBlockPublishBlockUpdated(t *testing.T) {
	w := newTestWorld()

	w.Perform(BreakBlockAction{EntityRuntimeID: 1, Position: BlockPosition{X: 1, Y: 2, Z: 3}})
	broke, ok := nextEvent(t, w).(BlockUpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, int32(0), broke.BlockID)

	w.Perform(PutItemAction{EntityRuntimeID: 1, Position: BlockPosition{X: 1, Y: 2, Z: 3}, ItemID: 5})
	put, ok := nextEvent(t, w).(BlockUpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, int32(5), put.BlockID)
}

func TestRunCommandSayBroadcastsText(t *testing.T) {
	w := newTestWorld()
	w.Perform(LoginAction{EntityRuntimeID: 1, PlayerName: "Steve"})
	nextEvent(t, w)

	w.Perform(RunCommandAction{EntityRuntimeID: 1, Command: "/say hello there"})

	ev := nextEvent(t, w)
	text, ok := ev.(TextShownEvent)
	require.True(t, ok)
	assert.Equal(t, "Steve", text.SourceName)
	assert.Equal(t, "hello there", text.Message)
}

func TestRunCommandUnknownRepliesWithError(t *testing.T) {
	w := newTestWorld()
	w.Perform(RunCommandAction{EntityRuntimeID: 1, Command: "/nonexistent"})

	ev := nextEvent(t, w)
	text, ok := ev.(TextShownEvent)
	require.True(t, ok)
	assert.Equal(t, "server", text.SourceName)
	assert.Contains(t, text.Message, "nonexistent")
}

func TestRunCommandTpTeleportsToOrigin(t *testing.T) {
	w := newTestWorld()
	w.Perform(LoginAction{EntityRuntimeID: 1, PlayerName: "Steve"})
	nextEvent(t, w)
	w.Perform(MoveAction{EntityRuntimeID: 1, Position: Vector3{X: 5, Y: 5, Z: 5}})
	nextEvent(t, w)

	w.Perform(RunCommandAction{EntityRuntimeID: 1, Command: "/tp"})
	moved, ok := nextEvent(t, w).(EntityMovedEvent)
	require.True(t, ok)
	assert.Equal(t, Vector3{}, moved.Position)

	reply, ok := nextEvent(t, w).(TextShownEvent)
	require.True(t, ok)
	assert.Contains(t, reply.Message, "teleported")
}

func TestRequestChunkActionPublishesPlayerSpawnedWithLastKnownPosition(t *testing.T) {
	w := newTestWorld()
	w.Perform(LoginAction{EntityRuntimeID: 1, PlayerName: "Steve", UUID: "uuid-1"})
	nextEvent(t, w)
	w.Perform(MoveAction{EntityRuntimeID: 1, Position: Vector3{X: 9, Y: 9, Z: 9}})
	nextEvent(t, w)

	w.Perform(RequestChunkAction{EntityRuntimeID: 1, Radius: 4})
	ev := nextEvent(t, w)
	spawned, ok := ev.(PlayerSpawnedEvent)
	require.True(t, ok)
	assert.Equal(t, "Steve", spawned.PlayerName)
	assert.Equal(t, Vector3{X: 9, Y: 9, Z: 9}, spawned.Position)
	assert.Equal(t, "uuid-1", spawned.UUID)
}

func TestCraftingRecipesReturnsNonEmptyBlob(t *testing.T) {
	w := newTestWorld()
	assert.NotEmpty(t, w.CraftingRecipes())
}

func TestCommandNamesIncludesDefaults(t *testing.T) {
	w := newTestWorld()
	names := w.CommandNames()
	assert.ElementsMatch(t, []string{"help", "say", "tp"}, names)
}

func TestSpawnChunksReturnsSquareGridCenteredOnOrigin(t *testing.T) {
	w := newTestWorld()
	chunks := w.SpawnChunks(2)
	assert.Len(t, chunks, 25) // (2*2+1)^2

	seen := make(map[[2]int32]bool)
	for _, c := range chunks {
		seen[[2]int32{c.X, c.Z}] = true
		assert.NotEmpty(t, c.Payload)
	}
	assert.True(t, seen[[2]int32{0, 0}])
	assert.True(t, seen[[2]int32{-2, 2}])
}

func TestSpawnChunksClampsNegativeRadius(t *testing.T) {
	w := newTestWorld()
	chunks := w.SpawnChunks(-5)
	assert.Len(t, chunks, 1)
}

func TestAccessorsReflectConfig(t *testing.T) {
	w := newTestWorld()
	assert.Equal(t, int32(42), w.Seed())
	assert.Equal(t, GameModeSurvival, w.GameMode())
	assert.Equal(t, DifficultyEasy, w.Difficulty())
	assert.Equal(t, "test", w.WorldName())
	assert.Equal(t, int32(1000), w.Time())
}

func TestNextEventReturnsErrorOnCancelledContext(t *testing.T) {
	w := newTestWorld()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.NextEvent(ctx)
	assert.Error(t, err)
}
