package raknet

import (
	"github.com/duskwind/bedrockd/internal/wire"
)

// FrameSet is one outgoing/incoming datagram: a 24-bit sequence number
// (the ACK/NACK domain) followed by concatenated frames.
type FrameSet struct {
	SequenceNumber uint32
	Frames         []*Frame
}

// Encode writes the frame-set envelope (packetType byte is written by the
// caller, since any of the three legacy tags is valid) followed by every
// frame back to back.
func (fs *FrameSet) Encode(w *wire.Stream) {
	w.WriteUint24(fs.SequenceNumber)
	for _, f := range fs.Frames {
		f.Encode(w)
	}
}

// DecodeFrameSet reads a sequence number and frames until r is exhausted.
func DecodeFrameSet(r *wire.Stream) (*FrameSet, error) {
	seq, err := r.ReadUint24()
	if err != nil {
		return nil, err
	}
	fs := &FrameSet{SequenceNumber: seq}
	for r.Remaining() > 0 {
		f, err := DecodeFrame(r)
		if err != nil {
			return nil, err
		}
		fs.Frames = append(fs.Frames, f)
	}
	return fs, nil
}

// packFrames greedily packs pending frames into frame sets no larger than
// maxSize bytes of frame payload each (the caller adds the 1-byte packet
// type tag and 3-byte sequence number on top).
func packFrames(frames []*Frame, maxSize int) [][]*Frame {
	var sets [][]*Frame
	var cur []*Frame
	size := 0
	for _, f := range frames {
		fsz := f.size()
		if len(cur) > 0 && (size+fsz > maxSize || len(cur) >= maxFramesPerSet) {
			sets = append(sets, cur)
			cur = nil
			size = 0
		}
		cur = append(cur, f)
		size += fsz
	}
	if len(cur) > 0 {
		sets = append(sets, cur)
	}
	return sets
}
