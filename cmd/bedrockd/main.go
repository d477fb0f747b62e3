// Command bedrockd runs a standalone Minecraft Bedrock Edition server
// core: the RakNet transport, the Bedrock game-packet layer, and an
// in-memory reference world collaborator wired together behind a single
// cooperative reactor loop.
package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/duskwind/bedrockd/internal/bedlog"
	"github.com/duskwind/bedrockd/internal/config"
	"github.com/duskwind/bedrockd/internal/metrics"
	"github.com/duskwind/bedrockd/internal/mcpe"
	"github.com/duskwind/bedrockd/internal/raknet"
	"github.com/duskwind/bedrockd/internal/wire"
	"github.com/duskwind/bedrockd/internal/world"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to a bedrockd.toml configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bedlog.Fatal("config: %v", err)
	}
	bedlog.SetLevel(cfg.LogLevel)
	bedlog.SetMaxLength(cfg.MaxLogLength)
	bedlog.Banner("bedrockd", version)

	mx := metrics.New()

	w := world.NewMemoryWorld(world.MemoryConfig{
		WorldName:  cfg.WorldName,
		Seed:       472877960,
		GameMode:   gameModeFromString(cfg.GameMode),
		Difficulty: world.DifficultyEasy,
		Time:       6000,
	})

	srv := newServer(cfg, w, mx)

	identity := raknet.ServerIdentity{
		MOTD:            cfg.MOTD,
		ProtocolVersion: mcpe.ProtocolVersion,
		GameVersion:     mcpe.GameVersion,
		MaxPlayers:      cfg.MaxPlayers,
		WorldName:       cfg.WorldName,
		GameMode:        cfg.GameMode,
	}
	endpoint, err := raknet.NewEndpoint(cfg.ListenAddr(), cfg.ServerGUID, identity, raknet.Config{
		RetransmitInterval: cfg.RetransmitInterval(),
		InactivityTimeout:  cfg.InactivityTimeout(),
	}, srv, mx)
	if err != nil {
		bedlog.Fatal("raknet: %v", err)
	}
	srv.attach(endpoint)
	defer endpoint.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return endpoint.Serve(ctx) })
	g.Go(func() error { return srv.broadcastEvents(ctx) })
	g.Go(func() error { return srv.flushTicker(ctx) })

	if cfg.MetricsAddr != "" {
		g.Go(func() error { return mx.Serve(ctx, cfg.MetricsAddr) })
	}

	bedlog.Info("listening on %s", cfg.ListenAddr())
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		bedlog.Error("bedrockd: %v", err)
		os.Exit(1)
	}
	bedlog.Info("bedrockd shut down")
}

func gameModeFromString(s string) world.GameMode {
	switch s {
	case "creative":
		return world.GameModeCreative
	case "adventure":
		return world.GameModeAdventure
	default:
		return world.GameModeSurvival
	}
}

// server bridges raknet.Handler (reassembled payload per session) to the
// mcpe connection/game packet layers and the world collaborator's event
// stream. It is touched only from the endpoint's reactor goroutine and
// the dedicated event-broadcast goroutine below, which only ever queues
// outbound packets — never session or endpoint state.
type server struct {
	cfg   config.Config
	world world.World
	mx    metrics.Collector

	endpoint *raknet.Endpoint
	queue    *mcpe.BatchQueue

	sessions   map[string]*mcpe.GameSession
	nextEntity uint64
}

func newServer(cfg config.Config, w world.World, mx metrics.Collector) *server {
	s := &server{
		cfg:      cfg,
		world:    w,
		mx:       mx,
		sessions: make(map[string]*mcpe.GameSession),
	}
	s.queue = mcpe.NewBatchQueue(cfg.BatchCompressThreshold, s.sendConnectionPacket, mx)
	return s
}

func (s *server) attach(e *raknet.Endpoint) { s.endpoint = e }

func (s *server) sendConnectionPacket(addr *net.UDPAddr, data []byte, rel raknet.Reliability) {
	s.endpoint.SendGameData(addr, data, rel)
}

func (s *server) SessionOpened(addr *net.UDPAddr) {
	bedlog.Debug("session opened: %s", addr)
}

func (s *server) SessionClosed(addr *net.UDPAddr) {
	key := addr.String()
	if gs, ok := s.sessions[key]; ok {
		s.world.Perform(world.LogoutAction{EntityRuntimeID: gs.EntityRuntimeID})
		delete(s.sessions, key)
	}
	bedlog.Debug("session closed: %s", addr)
}

func (s *server) DataReceived(addr *net.UDPAddr, data []byte) {
	cp, err := mcpe.DecodeConnectionPacket(data)
	if err != nil {
		bedlog.Debug("malformed connection packet from %s: %v", addr, err)
		return
	}

	switch cp.ID {
	case mcpe.ConnectedPing:
		s.sendPong(addr, cp.PingTime)
	case mcpe.ConnectionRequest:
		s.acceptConnection(addr, cp)
	case mcpe.NewIncomingConnection:
		// handshake complete; nothing further to send
	case mcpe.Batch:
		s.handleBatch(addr, cp.SubPackets)
	case mcpe.DisconnectionNotification:
		s.SessionClosed(addr)
	}
}

func (s *server) sendPong(addr *net.UDPAddr, pingTime int64) {
	pong, err := mcpe.EncodeConnectionPacket(mcpe.ConnectionPacket{
		ID: mcpe.ConnectedPong, PingTime: pingTime, PongTime: pingTime,
	}, s.cfg.BatchCompressThreshold)
	if err != nil {
		return
	}
	s.sendConnectionPacket(addr, pong, raknet.UnreliableDescriptor())
}

func (s *server) acceptConnection(addr *net.UDPAddr, cp mcpe.ConnectionPacket) {
	accepted, err := mcpe.EncodeConnectionPacket(mcpe.ConnectionPacket{
		ID:              mcpe.ConnectionRequestAccepted,
		ClientAddress:   addr,
		RequestTimeEcho: cp.RequestTime,
		AcceptedTime:    cp.RequestTime,
	}, s.cfg.BatchCompressThreshold)
	if err != nil {
		return
	}
	s.sendConnectionPacket(addr, accepted, raknet.ReliableOrderedOn(0))

	s.nextEntity++
	gs := mcpe.NewGameSession(addr, s.nextEntity, s.queue, s.world)
	s.sessions[addr.String()] = gs
}

func (s *server) handleBatch(addr *net.UDPAddr, subPackets [][]byte) {
	gs, ok := s.sessions[addr.String()]
	if !ok {
		return
	}
	s.mx.BatchReceived()
	for _, raw := range subPackets {
		r := wire.NewReader(raw)
		pkt, err := mcpe.DecodeGamePacket(r)
		if err != nil {
			bedlog.Debug("%s: malformed game packet: %v", addr, err)
			continue
		}
		gs.HandleGamePacket(pkt)
	}
}

// broadcastEvents drains the world collaborator's event stream and
// rebroadcasts each event to every connected session — the third
// suspension point the reactor loop blocks on, alongside the next
// datagram and the next tick.
func (s *server) broadcastEvents(ctx context.Context) error {
	for {
		ev, err := s.world.NextEvent(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.dispatchEvent(ev)
	}
}

func (s *server) dispatchEvent(ev world.Event) {
	switch e := ev.(type) {
	case world.TextShownEvent:
		for _, gs := range s.sessions {
			s.queue.Append(gs.Addr, mcpe.Text{Type: mcpe.TextTypeChat, SourceName: e.SourceName, Message: e.Message})
		}
	case world.EntityMovedEvent:
		for _, gs := range s.sessions {
			if gs.EntityRuntimeID == e.EntityRuntimeID {
				continue
			}
			s.queue.Append(gs.Addr, mcpe.MoveEntity{
				EntityRuntimeID: e.EntityRuntimeID,
				Position:        mcpe.Vector3{X: e.Position.X, Y: e.Position.Y, Z: e.Position.Z},
				Rotation:        mcpe.Rotation{Yaw: e.Yaw, Pitch: e.Pitch},
			})
		}
	case world.PlayerLoggedEvent:
		bedlog.Info("%s joined the game", e.PlayerName)
	case world.PlayerSpawnedEvent:
		for _, gs := range s.sessions {
			if gs.EntityRuntimeID == e.EntityRuntimeID {
				continue
			}
			s.queue.Append(gs.Addr, mcpe.AddPlayer{
				UUID:            e.UUID,
				PlayerName:      e.PlayerName,
				EntityUniqueID:  int64(e.EntityRuntimeID),
				EntityRuntimeID: e.EntityRuntimeID,
				Position:        mcpe.Vector3{X: e.Position.X, Y: e.Position.Y, Z: e.Position.Z},
			})
		}
	case world.EntityRemovedEvent:
		for _, gs := range s.sessions {
			s.queue.Append(gs.Addr, mcpe.RemoveEntity{EntityUniqueID: int64(e.EntityRuntimeID)})
		}
	case world.BlockUpdatedEvent:
		for _, gs := range s.sessions {
			s.queue.Append(gs.Addr, mcpe.UpdateBlock{
				Position:       mcpe.BlockPosition{X: e.Position.X, Y: e.Position.Y, Z: e.Position.Z},
				BlockRuntimeID: uint32(e.BlockID),
			})
		}
	}
}

// flushTicker periodically flushes the shared batch queue, independent of
// the RakNet endpoint's own tick loop — the game layer's flush cadence is
// a separate concern from frame retransmission.
func (s *server) flushTicker(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.queue.Flush(); err != nil {
				bedlog.Warn("batch queue flush: %v", err)
			}
		}
	}
}
