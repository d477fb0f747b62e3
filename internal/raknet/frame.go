package raknet

import (
	"fmt"

	"github.com/duskwind/bedrockd/internal/wire"
)

// Frame is one unit of RakNet transport: a payload plus, depending on its
// reliability mode and split flag, a reliable message index, an order (or
// sequence) index and channel, and split-packet fragmentation headers.
type Frame struct {
	Reliability Reliability

	MessageIndex uint32 // valid when Reliability.Reliable
	OrderIndex   uint32 // valid when Reliability.Ordered or .Sequenced
	SequenceIndex uint32 // valid when Reliability.Sequenced (reliable or not)

	Split      bool
	SplitCount uint32
	SplitID    uint16
	SplitIndex uint32

	Payload []byte
}

// flagsByte packs the reliability mode into bits 7..5 and the split flag
// into bit 4.
func (f *Frame) flagsByte() byte {
	b := f.Reliability.mode() << 5
	if f.Split {
		b |= 0x10
	}
	return b
}

// Encode appends f's wire representation to w.
func (f *Frame) Encode(w *wire.Stream) {
	w.WriteUint8(f.flagsByte())
	w.WriteUint16(uint16(len(f.Payload)) * 8)

	mode := f.Reliability.mode()
	if mode == Reliable || mode == ReliableOrdered || mode == ReliableSequenced {
		w.WriteUint24(f.MessageIndex)
	}
	if mode == UnreliableSequenced || mode == ReliableSequenced {
		w.WriteUint24(f.SequenceIndex)
	}
	if mode == UnreliableSequenced || mode == ReliableOrdered || mode == ReliableSequenced {
		w.WriteUint24(f.OrderIndex)
		w.WriteUint8(f.Reliability.Channel)
	}
	if f.Split {
		w.WriteUint32(f.SplitCount)
		w.WriteUint16(f.SplitID)
		w.WriteUint32(f.SplitIndex)
	}
	w.WriteBytes(f.Payload)
}

// DecodeFrame reads one Frame from r.
func DecodeFrame(r *wire.Stream) (*Frame, error) {
	flags, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	mode := (flags >> 5) & 0x07
	split := flags&0x10 != 0

	bitLen, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	byteLen := int(bitLen+7) / 8

	f := &Frame{Split: split}

	var channel uint8
	if mode == Reliable || mode == ReliableOrdered || mode == ReliableSequenced {
		f.MessageIndex, err = r.ReadUint24()
		if err != nil {
			return nil, err
		}
	}
	if mode == UnreliableSequenced || mode == ReliableSequenced {
		f.SequenceIndex, err = r.ReadUint24()
		if err != nil {
			return nil, err
		}
	}
	if mode == UnreliableSequenced || mode == ReliableOrdered || mode == ReliableSequenced {
		f.OrderIndex, err = r.ReadUint24()
		if err != nil {
			return nil, err
		}
		channel, err = r.ReadUint8()
		if err != nil {
			return nil, err
		}
	}
	f.Reliability = modeToReliability(mode, channel)

	if split {
		f.SplitCount, err = r.ReadUint32()
		if err != nil {
			return nil, err
		}
		f.SplitID, err = r.ReadUint16()
		if err != nil {
			return nil, err
		}
		f.SplitIndex, err = r.ReadUint32()
		if err != nil {
			return nil, err
		}
	}

	payload, err := r.ReadBytes(byteLen)
	if err != nil {
		return nil, fmt.Errorf("raknet: frame payload: %w", err)
	}
	f.Payload = append([]byte(nil), payload...)
	return f, nil
}

// size is the encoded size in bytes, used by the sender to pack frames
// into frame sets without exceeding the session MTU.
func (f *Frame) size() int {
	n := 3 // flags + bit-length
	mode := f.Reliability.mode()
	if mode == Reliable || mode == ReliableOrdered || mode == ReliableSequenced {
		n += 3
	}
	if mode == UnreliableSequenced || mode == ReliableSequenced {
		n += 3
	}
	if mode == UnreliableSequenced || mode == ReliableOrdered || mode == ReliableSequenced {
		n += 4
	}
	if f.Split {
		n += 10
	}
	return n + len(f.Payload)
}
