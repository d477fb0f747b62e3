package raknet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskwind/bedrockd/internal/wire"
)

func TestCoalesceSequences(t *testing.T) {
	ranges := coalesceSequences([]uint32{0, 1, 2, 5})
	require.Len(t, ranges, 2)
	assert.Equal(t, seqRange{0, 2}, ranges[0])
	assert.Equal(t, seqRange{5, 5}, ranges[1])
}

func TestCoalesceSequencesUnordered(t *testing.T) {
	ranges := coalesceSequences([]uint32{5, 2, 0, 1})
	require.Len(t, ranges, 2)
	assert.Equal(t, seqRange{0, 2}, ranges[0])
	assert.Equal(t, seqRange{5, 5}, ranges[1])
}

func TestEncodeDecodeAckRoundTrip(t *testing.T) {
	seqs := []uint32{0, 1, 2, 5}
	encoded := EncodeAck(seqs)
	assert.Equal(t, byte(PacketAck), encoded[0])

	r := wire.NewReader(encoded[1:])
	decoded, err := DecodeAckNack(r)
	require.NoError(t, err)
	assert.ElementsMatch(t, seqs, decoded)
}

// TestSessionEmitsCoalescedAckAndNack checks that after receiving
// sequence numbers {0,1,2,5}, the session emits an ACK covering {0..2, 5}
// and a NACK covering {3,4}.
func TestSessionEmitsCoalescedAckAndNack(t *testing.T) {
	var sent [][]byte
	s := NewSession(nil, maxMTU, DefaultConfig(), func([]byte) {}, func(raw []byte) {
		sent = append(sent, append([]byte(nil), raw...))
	}, nil)

	for _, seq := range []uint32{0, 1, 2, 5} {
		s.HandleFrameSet(&FrameSet{SequenceNumber: seq})
	}
	s.flushAck()
	s.flushNack()

	require.Len(t, sent, 2)

	var ackSeqs, nackSeqs []uint32
	for _, raw := range sent {
		r := wire.NewReader(raw[1:])
		seqs, err := DecodeAckNack(r)
		require.NoError(t, err)
		switch raw[0] {
		case PacketAck:
			ackSeqs = seqs
		case PacketNack:
			nackSeqs = seqs
		}
	}
	assert.ElementsMatch(t, []uint32{0, 1, 2, 5}, ackSeqs)
	assert.ElementsMatch(t, []uint32{3, 4}, nackSeqs)
}
