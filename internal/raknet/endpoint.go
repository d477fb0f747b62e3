package raknet

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/duskwind/bedrockd/internal/bedlog"
	"github.com/duskwind/bedrockd/internal/metrics"
	"github.com/duskwind/bedrockd/internal/wire"
)

var raknetLog = bedlog.For("raknet")

// Handler is the upper layer (the Bedrock game-packet session manager)
// that receives reassembled, in-order payloads and is told when a remote
// session has gone away.
type Handler interface {
	SessionOpened(addr *net.UDPAddr)
	SessionClosed(addr *net.UDPAddr)
	DataReceived(addr *net.UDPAddr, data []byte)
}

// ServerIdentity is the handful of fields the unconnected-pong reply
// string exposes to clients browsing the server list.
type ServerIdentity struct {
	MOTD            string
	ProtocolVersion int
	GameVersion     string
	MaxPlayers      int
	WorldName       string
	GameMode        string
}

func (id ServerIdentity) string(playerCount int) string {
	return fmt.Sprintf("MCPE;%s;%d;%s;%d;%d;%d;%s;%s;",
		id.MOTD, id.ProtocolVersion, id.GameVersion, playerCount, id.MaxPlayers,
		0, id.WorldName, id.GameMode)
}

type datagramIn struct {
	data []byte
	addr *net.UDPAddr
}

// Endpoint owns the UDP socket and is the single cooperative reactor:
// all session state is touched only from its run loop, which alternates
// between the next datagram, the next tick, and
// (via Handler) whatever the world collaborator surfaces. No internal
// locking is needed because nothing else ever reaches into Endpoint or
// Session state.
type Endpoint struct {
	conn     *net.UDPConn
	guid     uint64
	identity ServerIdentity
	cfg      Config
	handler  Handler
	mx       metrics.Collector

	sessions map[string]*Session
}

// NewEndpoint binds a UDP socket on listenAddr (e.g. "0.0.0.0:19132").
func NewEndpoint(listenAddr string, guid uint64, identity ServerIdentity, cfg Config, handler Handler, mx metrics.Collector) (*Endpoint, error) {
	addr, err := net.ResolveUDPAddr("udp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("raknet: resolve %q: %w", listenAddr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("raknet: listen %q: %w", listenAddr, err)
	}
	if mx == nil {
		mx = metrics.Noop{}
	}
	return &Endpoint{
		conn:     conn,
		guid:     guid,
		identity: identity,
		cfg:      cfg,
		handler:  handler,
		mx:       mx,
		sessions: make(map[string]*Session),
	}, nil
}

// Close releases the UDP socket.
func (e *Endpoint) Close() error {
	return e.conn.Close()
}

// SendGameData hands an upper-layer payload to the named session's send
// queue with the given reliability, flushed on the next tick.
func (e *Endpoint) SendGameData(addr *net.UDPAddr, data []byte, rel Reliability) {
	if s, ok := e.sessions[addr.String()]; ok {
		s.Send(data, rel)
	}
}

// PlayerCount is the player count reported in the ping reply. The
// Endpoint doesn't track player identity, only transport sessions, so this
// is the number of open sessions.
func (e *Endpoint) PlayerCount() int {
	return len(e.sessions)
}

// Serve runs the reactor loop until ctx is cancelled: a background reader
// goroutine feeds raw datagrams into a channel; everything else —
// decoding, session lookups, tick processing — runs on this goroutine
// alone.
func (e *Endpoint) Serve(ctx context.Context) error {
	datagrams := make(chan datagramIn, 256)
	readErr := make(chan error, 1)

	go e.readLoop(ctx, datagrams, readErr)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case dg := <-datagrams:
			e.mx.DatagramReceived(len(dg.data))
			e.handleDatagram(dg.data, dg.addr)
		case now := <-ticker.C:
			e.tickAll(now)
		}
	}
}

func (e *Endpoint) readLoop(ctx context.Context, out chan<- datagramIn, errc chan<- error) {
	buf := make([]byte, maxMTU)
	for {
		_ = e.conn.SetReadDeadline(time.Now().Add(time.Second))
		n, addr, err := e.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				select {
				case <-ctx.Done():
					return
				default:
					continue
				}
			}
			select {
			case <-ctx.Done():
			case errc <- err:
			}
			return
		}
		cp := append([]byte(nil), buf[:n]...)
		select {
		case out <- datagramIn{data: cp, addr: addr}:
		case <-ctx.Done():
			return
		}
	}
}

func (e *Endpoint) tickAll(now time.Time) {
	for key, s := range e.sessions {
		if !s.Tick(now) {
			delete(e.sessions, key)
			e.mx.SessionClosed("retransmit_overflow")
			e.handler.SessionClosed(s.RemoteAddr)
			continue
		}
		if s.Inactive(now) {
			s.Close()
			delete(e.sessions, key)
			e.mx.SessionClosed("inactivity_timeout")
			e.handler.SessionClosed(s.RemoteAddr)
		}
	}
}

func (e *Endpoint) handleDatagram(data []byte, addr *net.UDPAddr) {
	if len(data) == 0 {
		return
	}
	tag := data[0]

	if isFrameSet(tag) {
		e.handleFrameSetDatagram(data, addr)
		return
	}

	switch tag {
	case PacketUnconnectedPing:
		e.handleUnconnectedPing(data, addr)
	case PacketOpenConnectionRequest1:
		e.handleOpenConnectionRequest1(data, addr)
	case PacketOpenConnectionRequest2:
		e.handleOpenConnectionRequest2(data, addr)
	case PacketAck:
		e.handleAck(data, addr)
	case PacketNack:
		e.handleNack(data, addr)
	default:
		raknetLog.Debugf("unhandled packet tag 0x%02x from %s", tag, addr)
	}
}

func (e *Endpoint) session(addr *net.UDPAddr) (*Session, bool) {
	s, ok := e.sessions[addr.String()]
	return s, ok
}

func (e *Endpoint) handleUnconnectedPing(data []byte, addr *net.UDPAddr) {
	r := wire.NewReader(data[1:])
	pingTime, err := r.ReadUint64()
	if err != nil {
		return
	}

	w := wire.NewWriter()
	w.WriteUint8(PacketUnconnectedPong)
	w.WriteUint64(pingTime)
	w.WriteUint64(e.guid)
	w.WriteBytes(OfflineMessageID[:])
	w.WriteString(e.identity.string(e.PlayerCount()))
	e.send(w.Bytes(), addr)
}

func (e *Endpoint) handleOpenConnectionRequest1(data []byte, addr *net.UDPAddr) {
	mtu := clampMTU(len(data) + 28) // UDP+IP header approximation

	w := wire.NewWriter()
	w.WriteUint8(PacketOpenConnectionReply1)
	w.WriteBytes(OfflineMessageID[:])
	w.WriteUint64(e.guid)
	w.WriteUint8(0) // no security
	w.WriteUint16(uint16(mtu))
	e.send(w.Bytes(), addr)
}

func clampMTU(proposed int) int {
	if proposed > maxMTU {
		return maxMTU
	}
	if proposed < minMTU {
		return minMTU
	}
	return proposed
}

func (e *Endpoint) handleOpenConnectionRequest2(data []byte, addr *net.UDPAddr) {
	r := wire.NewReader(data[1:])
	if _, err := r.ReadBytes(16); err != nil { // offline message ID, unchecked
		return
	}
	if _, err := r.ReadAddress(); err != nil { // server address the client claims to have dialed
		return
	}
	mtu, err := r.ReadUint16()
	if err != nil {
		return
	}
	clientGUID, err := r.ReadUint64()
	if err != nil {
		return
	}

	w := wire.NewWriter()
	w.WriteUint8(PacketOpenConnectionReply2)
	w.WriteBytes(OfflineMessageID[:])
	w.WriteUint64(e.guid)
	w.WriteAddress(addr)
	w.WriteUint16(mtu)
	w.WriteUint8(0) // no encryption
	e.send(w.Bytes(), addr)

	key := addr.String()
	if _, exists := e.sessions[key]; exists {
		return
	}
	s := NewSession(addr, clampMTU(int(mtu)), e.cfg,
		func(payload []byte) { e.handler.DataReceived(addr, payload) },
		func(raw []byte) { e.send(raw, addr) },
		e.mx)
	s.GUID = clientGUID
	s.State = StateConnected
	e.sessions[key] = s
	e.mx.SessionOpened()
	e.handler.SessionOpened(addr)
}

func (e *Endpoint) handleFrameSetDatagram(data []byte, addr *net.UDPAddr) {
	s, ok := e.session(addr)
	if !ok {
		return
	}
	r := wire.NewReader(data[1:])
	fs, err := DecodeFrameSet(r)
	if err != nil {
		raknetLog.Debugf("malformed frame set from %s: %v", addr, err)
		return
	}
	s.HandleFrameSet(fs)
}

func (e *Endpoint) handleAck(data []byte, addr *net.UDPAddr) {
	s, ok := e.session(addr)
	if !ok {
		return
	}
	r := wire.NewReader(data[1:])
	seqs, err := DecodeAckNack(r)
	if err != nil {
		return
	}
	s.HandleAck(seqs)
}

func (e *Endpoint) handleNack(data []byte, addr *net.UDPAddr) {
	s, ok := e.session(addr)
	if !ok {
		return
	}
	r := wire.NewReader(data[1:])
	seqs, err := DecodeAckNack(r)
	if err != nil {
		return
	}
	s.HandleNack(seqs)
}

func (e *Endpoint) send(data []byte, addr *net.UDPAddr) {
	if _, err := e.conn.WriteToUDP(data, addr); err != nil {
		raknetLog.Debugf("write to %s failed: %v", addr, err)
	}
}
