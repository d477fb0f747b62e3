package mcpe

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/duskwind/bedrockd/internal/wire"
)

// compressLevel picks store (0) below the threshold and deflate level 7
// above it, exactly as the source codec's _CompressedPacketList does.
func compressLevel(payloadLen, threshold int) int {
	if payloadLen >= threshold {
		return zlib.BestCompression - 2 // level 7
	}
	return zlib.NoCompression
}

// EncodeBatch concatenates varint-length-prefixed sub-packets and deflates
// the result, returning the full BATCH connection packet (tag byte
// included).
func EncodeBatch(subPackets [][]byte, threshold int) ([]byte, error) {
	var raw bytes.Buffer
	for _, p := range subPackets {
		prefix := wire.NewWriter()
		prefix.WriteVarUint32(uint32(len(p)))
		raw.Write(prefix.Bytes())
		raw.Write(p)
	}

	var compressed bytes.Buffer
	level := compressLevel(raw.Len(), threshold)
	zw, err := zlib.NewWriterLevel(&compressed, level)
	if err != nil {
		return nil, fmt.Errorf("mcpe: batch zlib writer: %w", err)
	}
	if _, err := zw.Write(raw.Bytes()); err != nil {
		return nil, fmt.Errorf("mcpe: batch deflate: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("mcpe: batch deflate close: %w", err)
	}

	w := wire.NewWriter()
	w.WriteUint8(uint8(Batch))
	w.WriteBytes(compressed.Bytes())
	return w.Bytes(), nil
}

// DecodeBatch inflates a BATCH connection packet's payload (tag byte
// already consumed) and splits it back into sub-packets.
func DecodeBatch(payload []byte) ([][]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("mcpe: batch inflate: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("mcpe: batch inflate: %w", err)
	}

	r := wire.NewReader(raw)
	var packets [][]byte
	for r.Remaining() > 0 {
		n, err := r.ReadVarUint32()
		if err != nil {
			return nil, fmt.Errorf("mcpe: batch sub-packet length: %w", err)
		}
		p, err := r.ReadBytes(int(n))
		if err != nil {
			return nil, fmt.Errorf("mcpe: batch sub-packet body: %w", err)
		}
		packets = append(packets, append([]byte{}, p...))
	}
	return packets, nil
}
