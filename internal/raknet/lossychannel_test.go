package raknet

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskwind/bedrockd/internal/wire"
)

// lossyChannel wires a sender and receiver Session together through a
// seeded PRNG that drops a fraction of frame sets and ack/nack datagrams,
// simulating UDP loss deterministically and without any wall-clock
// sleeps: time only advances when the test manually steps a synthetic
// clock into Tick.
type lossyChannel struct {
	rng      *rand.Rand
	dropRate float64

	senderOut   [][]byte
	receiverOut [][]byte
}

func newLossyChannel(seed int64, dropRate float64) *lossyChannel {
	return &lossyChannel{rng: rand.New(rand.NewSource(seed)), dropRate: dropRate}
}

func (c *lossyChannel) drop() bool {
	return c.rng.Float64() < c.dropRate
}

func runLossyScenario(t *testing.T, dropRate float64, messageCount int) {
	t.Helper()
	channel := newLossyChannel(42, dropRate)

	var delivered [][]byte
	receiver := NewSession(nil, maxMTU, DefaultConfig(), func(p []byte) {
		delivered = append(delivered, append([]byte(nil), p...))
	}, func(raw []byte) { channel.receiverOut = append(channel.receiverOut, raw) }, nil)

	sender := NewSession(nil, maxMTU, DefaultConfig(), func([]byte) {}, func(raw []byte) {
		channel.senderOut = append(channel.senderOut, raw)
	}, nil)

	for i := 0; i < messageCount; i++ {
		sender.Send([]byte{byte(i)}, ReliableOrderedOn(0))
	}

	now := time.Now()
	for round := 0; round < messageCount*6+20; round++ {
		now = now.Add(300 * time.Millisecond) // exceeds the default retransmit interval every round

		sender.Tick(now)
		deliverFiltered(channel, &channel.senderOut, func(raw []byte) {
			if channel.drop() {
				return
			}
			deliverRaw(t, receiver, raw)
		})

		receiver.Tick(now)
		deliverFiltered(channel, &channel.receiverOut, func(raw []byte) {
			if channel.drop() {
				return
			}
			deliverAckNack(t, sender, raw)
		})

		if len(delivered) == messageCount {
			break
		}
	}

	require.Len(t, delivered, messageCount)
	for i, d := range delivered {
		assert.Equal(t, byte(i), d[0])
	}
}

func deliverFiltered(c *lossyChannel, queue *[][]byte, fn func([]byte)) {
	for _, raw := range *queue {
		fn(raw)
	}
	*queue = nil
}

func deliverRaw(t *testing.T, s *Session, raw []byte) {
	t.Helper()
	require.NotEmpty(t, raw)
	tag := raw[0]
	require.True(t, isFrameSet(tag))
	r := wire.NewReader(raw[1:])
	fs, err := DecodeFrameSet(r)
	require.NoError(t, err)
	s.HandleFrameSet(fs)
}

func deliverAckNack(t *testing.T, s *Session, raw []byte) {
	t.Helper()
	require.NotEmpty(t, raw)
	r := wire.NewReader(raw[1:])
	seqs, err := DecodeAckNack(r)
	require.NoError(t, err)
	switch raw[0] {
	case PacketAck:
		s.HandleAck(seqs)
	case PacketNack:
		s.HandleNack(seqs)
	}
}

func TestLossyChannelReliableDeliveryAtVariousDropRates(t *testing.T) {
	for _, rate := range []float64{0.1, 0.3, 0.5} {
		rate := rate
		t.Run("", func(t *testing.T) {
			runLossyScenario(t, rate, 20)
		})
	}
}
