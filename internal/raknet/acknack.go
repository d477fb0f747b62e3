package raknet

import (
	"sort"

	"github.com/duskwind/bedrockd/internal/wire"
)

// seqRange is an inclusive range of frame-set sequence numbers, the unit
// ACK/NACK records are coalesced into.
type seqRange struct {
	start, end uint32
}

// coalesceSequences sorts and merges a set of sequence numbers into the
// minimal list of contiguous ranges, so e.g. {0,1,2,5} becomes
// [{0,2},{5,5}].
func coalesceSequences(seqs []uint32) []seqRange {
	if len(seqs) == 0 {
		return nil
	}
	sorted := append([]uint32(nil), seqs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var ranges []seqRange
	start, end := sorted[0], sorted[0]
	for _, s := range sorted[1:] {
		if s == end || s == end+1 {
			end = s
			continue
		}
		ranges = append(ranges, seqRange{start, end})
		start, end = s, s
	}
	ranges = append(ranges, seqRange{start, end})
	return ranges
}

// encodeAckRecords writes the shared ACK/NACK body: a u16 range count then,
// per range, a 1-byte flag (0 = range, 1 = single) and the 24-bit bounds.
func encodeAckRecords(w *wire.Stream, seqs []uint32) {
	ranges := coalesceSequences(seqs)
	w.WriteUint16(uint16(len(ranges)))
	for _, r := range ranges {
		if r.start == r.end {
			w.WriteUint8(1)
			w.WriteUint24(r.start)
			continue
		}
		w.WriteUint8(0)
		w.WriteUint24(r.start)
		w.WriteUint24(r.end)
	}
}

// decodeAckRecords reads the body encodeAckRecords writes and expands it
// back into individual sequence numbers.
func decodeAckRecords(r *wire.Stream) ([]uint32, error) {
	count, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	var seqs []uint32
	for i := uint16(0); i < count; i++ {
		single, err := r.ReadUint8()
		if err != nil {
			return nil, err
		}
		start, err := r.ReadUint24()
		if err != nil {
			return nil, err
		}
		end := start
		if single == 0 {
			end, err = r.ReadUint24()
			if err != nil {
				return nil, err
			}
		}
		for s := start; s <= end; s++ {
			seqs = append(seqs, s)
		}
	}
	return seqs, nil
}

// EncodeAck encodes an ACK datagram (leading tag byte included).
func EncodeAck(seqs []uint32) []byte {
	w := wire.NewWriter()
	w.WriteUint8(PacketAck)
	encodeAckRecords(w, seqs)
	return w.Bytes()
}

// EncodeNack encodes a NACK datagram (leading tag byte included).
func EncodeNack(seqs []uint32) []byte {
	w := wire.NewWriter()
	w.WriteUint8(PacketNack)
	encodeAckRecords(w, seqs)
	return w.Bytes()
}

// DecodeAckNack reads the sequence list out of an ACK or NACK datagram,
// whose leading tag byte has already been consumed by the caller.
func DecodeAckNack(r *wire.Stream) ([]uint32, error) {
	return decodeAckRecords(r)
}
