package mcpe

import (
	"net"

	"github.com/duskwind/bedrockd/internal/metrics"
	"github.com/duskwind/bedrockd/internal/raknet"
)

// SendConnectionPacket hands an encoded connection packet (already
// containing its tag byte) down to the RakNet session for addr with the
// given reliability.
type SendConnectionPacket func(addr *net.UDPAddr, data []byte, rel raknet.Reliability)

var defaultReliability = raknet.ReliableOrderedOn(0)

type pendingPacket struct {
	rel     raknet.Reliability
	payload []byte
}

// addrQueue batches one address's outgoing game packets, grouping
// consecutive packets of identical reliability into a single BATCH
// connection packet — a direct port of PyMineHub's _BatchQueue.send: a
// batch is flushed whenever the reliability changes, and once more at the
// end for whatever is left.
type addrQueue struct {
	pending []pendingPacket
}

func (q *addrQueue) append(rel raknet.Reliability, payload []byte) {
	q.pending = append(q.pending, pendingPacket{rel: rel, payload: payload})
}

// BatchQueue is the outgoing game packet queue (component G), shared by
// all sessions and holding one pending list per destination address.
// Packets are appended during a tick's processing and flushed once at the
// end of it.
type BatchQueue struct {
	threshold int
	send      SendConnectionPacket
	mx        metrics.Collector

	queues map[string]*addrQueue
	addrs  map[string]*net.UDPAddr
}

// NewBatchQueue builds a queue that flushes through send, compressing
// batches at or above threshold bytes.
func NewBatchQueue(threshold int, send SendConnectionPacket, mx metrics.Collector) *BatchQueue {
	if mx == nil {
		mx = metrics.Noop{}
	}
	return &BatchQueue{
		threshold: threshold,
		send:      send,
		mx:        mx,
		queues:    make(map[string]*addrQueue),
		addrs:     make(map[string]*net.UDPAddr),
	}
}

// Append registers packet for delivery to addr on its default reliability.
func (q *BatchQueue) Append(addr *net.UDPAddr, packet GamePacket) {
	q.AppendWithReliability(addr, packet, defaultReliability)
}

// AppendWithReliability registers packet for delivery to addr on rel.
func (q *BatchQueue) AppendWithReliability(addr *net.UDPAddr, packet GamePacket, rel raknet.Reliability) {
	key := addr.String()
	aq, ok := q.queues[key]
	if !ok {
		aq = &addrQueue{}
		q.queues[key] = aq
		q.addrs[key] = addr
	}
	aq.append(rel, encodeGamePacket(packet))
}

// SendImmediately appends then flushes a single address's queue, for
// latency-sensitive replies (e.g. CONNECTION_REQUEST_ACCEPTED's ping or a
// PLAY_STATUS sent outside the normal per-tick flush).
func (q *BatchQueue) SendImmediately(addr *net.UDPAddr, packet GamePacket) error {
	q.Append(addr, packet)
	return q.flushAddr(addr.String())
}

// Flush drains every address's queue into BATCH connection packets.
func (q *BatchQueue) Flush() error {
	for key := range q.queues {
		if err := q.flushAddr(key); err != nil {
			return err
		}
	}
	return nil
}

func (q *BatchQueue) flushAddr(key string) error {
	aq, ok := q.queues[key]
	if !ok || len(aq.pending) == 0 {
		return nil
	}
	addr := q.addrs[key]

	var payloads [][]byte
	var lastRel raknet.Reliability
	haveLast := false

	flush := func(rel raknet.Reliability) error {
		if len(payloads) == 0 {
			return nil
		}
		batch, err := EncodeConnectionPacket(ConnectionPacket{ID: Batch, SubPackets: payloads}, q.threshold)
		if err != nil {
			return err
		}
		rawLen := 0
		for _, p := range payloads {
			rawLen += len(p)
		}
		q.send(addr, batch, rel)
		q.mx.BatchSent(rawLen, len(batch))
		payloads = nil
		return nil
	}

	for _, p := range aq.pending {
		if haveLast && p.rel != lastRel {
			if err := flush(lastRel); err != nil {
				return err
			}
		}
		payloads = append(payloads, p.payload)
		lastRel = p.rel
		haveLast = true
	}
	if err := flush(lastRel); err != nil {
		return err
	}

	aq.pending = nil
	return nil
}
