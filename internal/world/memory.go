package world

import (
	"context"
	"fmt"
)

// entityState is what the reference world tracks per logged-in player;
// the real equivalent of the freeroam gamemode's player/vehicle registry,
// trimmed to the fields the collaborator boundary actually needs.
type entityState struct {
	runtimeID uint64
	name      string
	uuid      string
	position  Vector3
	yaw       float32
	pitch     float32
}

// CommandHandler executes a chat command and returns the text shown back
// to the player who ran it (or broadcast, depending on the command).
type CommandHandler func(m *MemoryWorld, entityID uint64, args string) string

// MemoryConfig seeds a MemoryWorld's static, rarely-changing properties.
type MemoryConfig struct {
	WorldName  string
	Seed       int32
	GameMode   GameMode
	Difficulty Difficulty
	Time       int32
}

// MemoryWorld is the in-memory reference collaborator: a fixed flat
// world, a handful of chat commands, and a trivial entity registry. It
// satisfies World end to end without any real game engine behind it —
// world generation, persistence and crafting are out of scope and
// represented here by constant/deterministic stand-ins.
type MemoryWorld struct {
	cfg      MemoryConfig
	entities map[uint64]*entityState
	commands map[string]CommandHandler
	events   chan Event
}

// NewMemoryWorld builds a MemoryWorld with the default command table
// (/help, /tp, /say) registered.
func NewMemoryWorld(cfg MemoryConfig) *MemoryWorld {
	m := &MemoryWorld{
		cfg:      cfg,
		entities: make(map[uint64]*entityState),
		commands: make(map[string]CommandHandler),
		events:   make(chan Event, 256),
	}
	m.registerDefaultCommands()
	return m
}

func (m *MemoryWorld) registerDefaultCommands() {
	m.commands["help"] = func(mw *MemoryWorld, entityID uint64, args string) string {
		names := mw.CommandNames()
		return fmt.Sprintf("commands: %v", names)
	}
	m.commands["say"] = func(mw *MemoryWorld, entityID uint64, args string) string {
		mw.publish(TextShownEvent{SourceName: mw.nameOf(entityID), Message: args})
		return ""
	}
	m.commands["tp"] = func(mw *MemoryWorld, entityID uint64, args string) string {
		e, ok := mw.entities[entityID]
		if !ok {
			return "unknown entity"
		}
		e.position = Vector3{}
		mw.publish(EntityMovedEvent{EntityRuntimeID: entityID, Position: e.position, Yaw: e.yaw, Pitch: e.pitch})
		return "teleported to spawn"
	}
}

func (m *MemoryWorld) nameOf(entityID uint64) string {
	if e, ok := m.entities[entityID]; ok {
		return e.name
	}
	return "unknown"
}

func (m *MemoryWorld) publish(ev Event) {
	select {
	case m.events <- ev:
	default:
		// Event stream overflow: drop the oldest-pending consumer's chance
		// to see this one rather than block the caller. A slow or absent
		// consumer should not stall world simulation.
	}
}

// Perform applies action synchronously and publishes any resulting event.
func (m *MemoryWorld) Perform(action Action) {
	switch a := action.(type) {
	case LoginAction:
		m.entities[a.EntityRuntimeID] = &entityState{runtimeID: a.EntityRuntimeID, name: a.PlayerName, uuid: a.UUID}
		m.publish(PlayerLoggedEvent{EntityRuntimeID: a.EntityRuntimeID, PlayerName: a.PlayerName})

	case LogoutAction:
		delete(m.entities, a.EntityRuntimeID)
		m.publish(EntityRemovedEvent{EntityRuntimeID: a.EntityRuntimeID})

	case MoveAction:
		if e, ok := m.entities[a.EntityRuntimeID]; ok {
			e.position, e.yaw, e.pitch = a.Position, a.Yaw, a.Pitch
		}
		m.publish(EntityMovedEvent{EntityRuntimeID: a.EntityRuntimeID, Position: a.Position, Yaw: a.Yaw, Pitch: a.Pitch})

	case BreakBlockAction:
		m.publish(BlockUpdatedEvent{Position: a.Position, BlockID: 0}) // air

	case PutItemAction:
		m.publish(BlockUpdatedEvent{Position: a.Position, BlockID: a.ItemID})

	case SendTextAction:
		m.publish(TextShownEvent{SourceName: m.nameOf(a.EntityRuntimeID), Message: a.Message})

	case RunCommandAction:
		m.runCommand(a.EntityRuntimeID, a.Command)

	case RequestChunkAction:
		e := m.entities[a.EntityRuntimeID]
		pos, name, uuid := Vector3{}, "unknown", ""
		if e != nil {
			pos, name, uuid = e.position, e.name, e.uuid
		}
		m.publish(PlayerSpawnedEvent{EntityRuntimeID: a.EntityRuntimeID, PlayerName: name, Position: pos, UUID: uuid})
	}
}

func (m *MemoryWorld) runCommand(entityID uint64, command string) {
	name, args := splitCommand(command)
	handler, ok := m.commands[name]
	if !ok {
		m.publish(TextShownEvent{SourceName: "server", Message: fmt.Sprintf("unknown command: %s", name)})
		return
	}
	if reply := handler(m, entityID, args); reply != "" {
		m.publish(TextShownEvent{SourceName: "server", Message: reply})
	}
}

func splitCommand(command string) (name, args string) {
	command = trimLeadingSlash(command)
	for i, r := range command {
		if r == ' ' {
			return command[:i], command[i+1:]
		}
	}
	return command, ""
}

func trimLeadingSlash(s string) string {
	if len(s) > 0 && s[0] == '/' {
		return s[1:]
	}
	return s
}

// NextEvent blocks until an event is published or ctx is cancelled.
func (m *MemoryWorld) NextEvent(ctx context.Context) (Event, error) {
	select {
	case ev := <-m.events:
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *MemoryWorld) Seed() int32                         { return m.cfg.Seed }
func (m *MemoryWorld) GameMode() GameMode                   { return m.cfg.GameMode }
func (m *MemoryWorld) Difficulty() Difficulty               { return m.cfg.Difficulty }
func (m *MemoryWorld) RainLevel() float32                   { return 0 }
func (m *MemoryWorld) LightningLevel() float32              { return 0 }
func (m *MemoryWorld) WorldName() string                    { return m.cfg.WorldName }
func (m *MemoryWorld) Time() int32                          { return m.cfg.Time }
func (m *MemoryWorld) AdventureSettings() AdventureSettings { return AdventureSettings{} }

// CraftingRecipes returns the recipe blob streamed once at spawn. This
// reference world models no real crafting, so the blob is a fixed
// zero-recipe-count placeholder rather than a real recipe book.
func (m *MemoryWorld) CraftingRecipes() []byte { return craftingRecipesPlaceholder }

var craftingRecipesPlaceholder = []byte{0x00}

func (m *MemoryWorld) CommandNames() []string {
	names := make([]string, 0, len(m.commands))
	for name := range m.commands {
		names = append(names, name)
	}
	return names
}

// SpawnChunks returns a deterministic (2*radius+1)^2 grid of flat, empty
// chunk payloads centered on the origin. The payload format is whatever
// the client expects for an all-air column; this reference world always
// emits the same minimal placeholder since a real chunk encoder is a
// non-goal.
func (m *MemoryWorld) SpawnChunks(radius int32) []Chunk {
	if radius < 0 {
		radius = 0
	}
	var chunks []Chunk
	for x := -radius; x <= radius; x++ {
		for z := -radius; z <= radius; z++ {
			chunks = append(chunks, Chunk{X: x, Z: z, Payload: flatChunkPayload})
		}
	}
	return chunks
}

// flatChunkPayload is the shared placeholder emptied-column encoding
// every SpawnChunks chunk reuses; allocated once since it never varies.
var flatChunkPayload = []byte{0x00}
