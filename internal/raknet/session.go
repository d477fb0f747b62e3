package raknet

import (
	"fmt"
	"net"
	"time"

	"github.com/duskwind/bedrockd/internal/bedlog"
	"github.com/duskwind/bedrockd/internal/metrics"
	"github.com/duskwind/bedrockd/internal/wire"
)

// DeliverFunc receives a fully reassembled, in-order payload surfaced by a
// Session for the upper (Bedrock game packet) layer.
type DeliverFunc func(payload []byte)

// SendDatagramFunc writes a raw datagram to the session's remote address.
type SendDatagramFunc func(data []byte)

type retransmitEntry struct {
	frames   []*Frame
	sentAt   time.Time
}

type splitBuffer struct {
	count    uint32
	received map[uint32][]byte
}

// Session is the per-remote reliable-ordered transport state: send/receive
// windows, ACK/NACK bookkeeping, retransmit queue, split reassembly and
// channelled ordering. A Session is only ever touched from its owning
// Endpoint's single tick loop; it holds no internal locks.
type Session struct {
	RemoteAddr *net.UDPAddr
	MTU        uint16
	GUID       uint64
	State      int

	cfg     Config
	deliver DeliverFunc
	sendRaw SendDatagramFunc
	mx      metrics.Collector

	sendSeqNum         uint32
	expectedRecvSeqNum uint32
	haveExpected       bool

	sendReliableIndex uint32
	sendOrderIndex    [maxChannels]uint32

	nextExpectedOrder [maxChannels]uint32
	lastSeenSequence  [maxChannels]uint32
	seenSequence      [maxChannels]bool
	orderBuffer       [maxChannels]map[uint32][]byte

	receivedMessages map[uint32]struct{}
	reliableBase     uint32

	splitBuffers map[uint16]*splitBuffer
	nextSplitID  uint16

	retransmitQueue map[uint32]*retransmitEntry
	ackQueue        map[uint32]struct{}
	nackQueue       map[uint32]struct{}

	pendingFrames []*Frame

	lastActivity time.Time
	closed       bool
}

// Config carries the subset of the server's flat configuration map the
// session layer reads: retransmission cadence and the inactivity timeout.
type Config struct {
	RetransmitInterval time.Duration
	InactivityTimeout  time.Duration
}

// DefaultConfig returns the fixed defaults (200ms retransmit / 30s
// inactivity timeout).
func DefaultConfig() Config {
	return Config{
		RetransmitInterval: defaultRetransmitInterval,
		InactivityTimeout:  defaultInactivityTimeout,
	}
}

// NewSession allocates a session for addr with the negotiated MTU. deliver
// and sendRaw are the "deliver upward" / "send datagram" callbacks that
// break the cyclic Endpoint<->Session reference.
func NewSession(addr *net.UDPAddr, mtu uint16, cfg Config, deliver DeliverFunc, sendRaw SendDatagramFunc, mx metrics.Collector) *Session {
	s := &Session{
		RemoteAddr:       addr,
		MTU:              mtu,
		State:            StateHandshake2,
		cfg:              cfg,
		deliver:          deliver,
		sendRaw:          sendRaw,
		mx:               mx,
		receivedMessages: make(map[uint32]struct{}),
		splitBuffers:     make(map[uint16]*splitBuffer),
		retransmitQueue:  make(map[uint32]*retransmitEntry),
		ackQueue:         make(map[uint32]struct{}),
		nackQueue:        make(map[uint32]struct{}),
		lastActivity:     time.Now(),
	}
	for i := range s.orderBuffer {
		s.orderBuffer[i] = make(map[uint32][]byte)
	}
	return s
}

func envelopeOverhead(ordered bool) int {
	n := 4 // frame-set tag + 24-bit seq
	n += 3 // flags + bit-length
	n += 3 // message index
	if ordered {
		n += 4 // order index + channel
	}
	return n
}

// Send assigns reliability bookkeeping and fragments payload if it does not
// fit in one MTU, queuing the resulting frame(s) for the next Tick.
func (s *Session) Send(payload []byte, rel Reliability) {
	maxPayload := int(s.MTU) - envelopeOverhead(rel.Ordered || rel.Sequenced)
	if maxPayload <= 0 {
		maxPayload = 1
	}

	if len(payload) <= maxPayload {
		s.pendingFrames = append(s.pendingFrames, s.newFrame(payload, rel, false, 0, 0, 0))
		return
	}

	// Every fragment also carries the split header (count, id, index).
	maxPayload -= 10
	if maxPayload <= 0 {
		maxPayload = 1
	}

	splitID := s.nextSplitID
	s.nextSplitID++
	count := (len(payload) + maxPayload - 1) / maxPayload
	for i := 0; i < count; i++ {
		start := i * maxPayload
		end := start + maxPayload
		if end > len(payload) {
			end = len(payload)
		}
		s.pendingFrames = append(s.pendingFrames, s.newFrame(payload[start:end], rel, true, count, splitID, uint32(i)))
	}
}

func (s *Session) newFrame(payload []byte, rel Reliability, split bool, splitCount int, splitID uint16, splitIndex uint32) *Frame {
	f := &Frame{
		Reliability: rel,
		Payload:     payload,
		Split:       split,
		SplitCount:  uint32(splitCount),
		SplitID:     splitID,
		SplitIndex:  splitIndex,
	}
	if rel.Reliable {
		f.MessageIndex = s.sendReliableIndex
		s.sendReliableIndex++
	}
	if rel.Ordered || rel.Sequenced {
		f.OrderIndex = s.sendOrderIndex[rel.Channel]
		s.sendOrderIndex[rel.Channel]++
		f.SequenceIndex = f.OrderIndex
	}
	return f
}

// HandleFrameSet processes one received frame set: ack/nack bookkeeping,
// then dispatches each frame it carries.
func (s *Session) HandleFrameSet(fs *FrameSet) {
	s.lastActivity = time.Now()

	seq := fs.SequenceNumber
	switch {
	case !s.haveExpected || seq == s.expectedRecvSeqNum:
		s.ackQueue[seq] = struct{}{}
		s.expectedRecvSeqNum = seq + 1
		s.haveExpected = true
	case seq > s.expectedRecvSeqNum:
		for missing := s.expectedRecvSeqNum; missing < seq; missing++ {
			s.nackQueue[missing] = struct{}{}
		}
		s.ackQueue[seq] = struct{}{}
		s.expectedRecvSeqNum = seq + 1
	default:
		// Duplicate frame set: ack it again (the remote may not have seen
		// our first ack) but do not reprocess its frames.
		s.ackQueue[seq] = struct{}{}
		if s.mx != nil {
			s.mx.DuplicateFrameSetDropped()
		}
		return
	}

	for _, f := range fs.Frames {
		s.handleIncomingFrame(f)
	}
}

func (s *Session) handleIncomingFrame(f *Frame) {
	if f.Split {
		s.handleSplitFragment(f)
		return
	}
	s.surface(f)
}

func (s *Session) handleSplitFragment(f *Frame) {
	buf, ok := s.splitBuffers[f.SplitID]
	if !ok {
		if len(s.splitBuffers) >= maxSplitBuffers {
			if s.mx != nil {
				s.mx.SplitDropped()
			}
			return // excess in-flight split IDs drop new splits
		}
		buf = &splitBuffer{count: f.SplitCount, received: make(map[uint32][]byte)}
		s.splitBuffers[f.SplitID] = buf
	}
	if f.SplitCount != buf.count {
		delete(s.splitBuffers, f.SplitID) // split_count mismatch drops the offending splits
		if s.mx != nil {
			s.mx.SplitDropped()
		}
		return
	}
	buf.received[f.SplitIndex] = f.Payload
	if uint32(len(buf.received)) < buf.count {
		return
	}
	delete(s.splitBuffers, f.SplitID)

	whole := make([]byte, 0, int(buf.count)*len(f.Payload))
	for i := uint32(0); i < buf.count; i++ {
		whole = append(whole, buf.received[i]...)
	}
	reassembled := &Frame{
		Reliability:  f.Reliability,
		MessageIndex: f.MessageIndex,
		OrderIndex:   f.OrderIndex,
		SequenceIndex: f.SequenceIndex,
		Payload:      whole,
	}
	s.surface(reassembled)
}

// surface applies reliable dedup, ordering/sequencing and finally delivers
// payload to the upper layer.
func (s *Session) surface(f *Frame) {
	if f.Reliability.Reliable {
		if !s.admitReliable(f.MessageIndex) {
			return // already delivered: exactly-once guarantee
		}
	}

	switch {
	case f.Reliability.Ordered:
		s.surfaceOrdered(f)
	case f.Reliability.Sequenced:
		ch := f.Reliability.Channel
		if !s.seenSequence[ch] || f.SequenceIndex > s.lastSeenSequence[ch] {
			s.seenSequence[ch] = true
			s.lastSeenSequence[ch] = f.SequenceIndex
			s.deliverPayload(f.Payload)
		}
	default:
		s.deliverPayload(f.Payload)
	}
}

// admitReliable reports whether MessageIndex has not been delivered yet,
// recording it if so. The dedup window slides forward as the base index is
// seen, bounding memory for well-behaved (mostly contiguous) senders.
func (s *Session) admitReliable(index uint32) bool {
	if _, seen := s.receivedMessages[index]; seen {
		return false
	}
	s.receivedMessages[index] = struct{}{}
	for {
		if _, ok := s.receivedMessages[s.reliableBase]; !ok {
			break
		}
		delete(s.receivedMessages, s.reliableBase)
		s.reliableBase++
	}
	return true
}

func (s *Session) surfaceOrdered(f *Frame) {
	ch := f.Reliability.Channel
	expected := s.nextExpectedOrder[ch]

	if f.OrderIndex < expected {
		return // stale duplicate
	}
	if f.OrderIndex > expected {
		s.orderBuffer[ch][f.OrderIndex] = f.Payload
		return // gap: stall the channel per the ordering invariant
	}

	s.deliverPayload(f.Payload)
	s.nextExpectedOrder[ch] = expected + 1

	for {
		next, ok := s.orderBuffer[ch][s.nextExpectedOrder[ch]]
		if !ok {
			break
		}
		delete(s.orderBuffer[ch], s.nextExpectedOrder[ch])
		s.deliverPayload(next)
		s.nextExpectedOrder[ch]++
	}
}

func (s *Session) deliverPayload(payload []byte) {
	if s.deliver != nil {
		s.deliver(payload)
	}
}

// HandleAck removes acknowledged frame sets from the retransmit queue.
func (s *Session) HandleAck(seqs []uint32) {
	s.Touch()
	for _, seq := range seqs {
		delete(s.retransmitQueue, seq)
	}
}

// HandleNack immediately requeues the frames of the named frame sets.
func (s *Session) HandleNack(seqs []uint32) {
	s.Touch()
	for _, seq := range seqs {
		entry, ok := s.retransmitQueue[seq]
		if !ok {
			continue
		}
		delete(s.retransmitQueue, seq)
		s.pendingFrames = append(s.pendingFrames, entry.frames...)
		if s.mx != nil {
			s.mx.FrameRetransmitted()
		}
	}
}

// Tick runs one cooperative scheduling pass: flush ACK/NACK, retransmit
// anything older than the configured interval, then flush pending outbound
// frames into fresh frame sets. Returns false if the session should be
// destroyed (retransmit queue overflow, or it was closed).
func (s *Session) Tick(now time.Time) bool {
	if s.closed {
		return false
	}

	s.flushAck()
	s.flushNack()
	s.retransmitExpired(now)

	if len(s.retransmitQueue) > maxRetransmitEntries {
		bedlog.Warn("raknet: session %s retransmit queue overflow, closing", s.RemoteAddr)
		s.closed = true
		return false
	}

	s.flushPending(now)

	return true
}

func (s *Session) flushAck() {
	if len(s.ackQueue) == 0 {
		return
	}
	seqs := make([]uint32, 0, len(s.ackQueue))
	for seq := range s.ackQueue {
		seqs = append(seqs, seq)
	}
	s.ackQueue = make(map[uint32]struct{})
	s.sendRaw(EncodeAck(seqs))
}

func (s *Session) flushNack() {
	if len(s.nackQueue) == 0 {
		return
	}
	seqs := make([]uint32, 0, len(s.nackQueue))
	for seq := range s.nackQueue {
		seqs = append(seqs, seq)
	}
	s.nackQueue = make(map[uint32]struct{})
	s.sendRaw(EncodeNack(seqs))
}

func (s *Session) retransmitExpired(now time.Time) {
	for seq, entry := range s.retransmitQueue {
		if now.Sub(entry.sentAt) < s.cfg.RetransmitInterval {
			continue
		}
		delete(s.retransmitQueue, seq)
		s.pendingFrames = append(s.pendingFrames, entry.frames...)
		if s.mx != nil {
			s.mx.FrameRetransmitted()
		}
	}
}

func (s *Session) flushPending(now time.Time) {
	if len(s.pendingFrames) == 0 {
		return
	}
	budget := int(s.MTU) - 4 // frame-set tag + 24-bit sequence number
	sets := packFrames(s.pendingFrames, budget)
	s.pendingFrames = nil

	for _, frames := range sets {
		seq := s.sendSeqNum
		s.sendSeqNum++

		fs := &FrameSet{SequenceNumber: seq, Frames: frames}
		w := wire.NewWriter()
		w.WriteUint8(PacketFrameSet4)
		fs.Encode(w)
		s.sendRaw(w.Bytes())

		if containsReliable(frames) {
			s.retransmitQueue[seq] = &retransmitEntry{frames: frames, sentAt: now}
		}
		if s.mx != nil {
			s.mx.DatagramSent()
		}
	}
}

func containsReliable(frames []*Frame) bool {
	for _, f := range frames {
		if f.Reliability.Reliable {
			return true
		}
	}
	return false
}

// Inactive reports whether no datagram has been received within the
// configured inactivity timeout.
func (s *Session) Inactive(now time.Time) bool {
	return now.Sub(s.lastActivity) >= s.cfg.InactivityTimeout
}

// Touch resets the inactivity timer; used for datagrams that don't go
// through HandleFrameSet (ACK and NACK datagrams).
func (s *Session) Touch() {
	s.lastActivity = time.Now()
}

// Close marks the session CLOSING; its queues are dropped and no further
// retransmission happens.
func (s *Session) Close() {
	s.State = StateClosing
	s.closed = true
	s.pendingFrames = nil
	s.retransmitQueue = nil
}

func (s *Session) String() string {
	return fmt.Sprintf("Session{%s mtu=%d}", s.RemoteAddr, s.MTU)
}
