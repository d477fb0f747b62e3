// Package wire implements the primitive and compound field codecs shared by
// the RakNet and Bedrock game-packet layers: big-endian fixed-width
// integers, LEB128 varints, length-prefixed strings and address records.
package wire

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Stream is a combined reader/writer over a byte slice. A single Stream is
// never used for both a decode and an encode.
// The offset doubles as the "running length accumulator" a caller can
// consult via Len to learn how much of a composite field has been
// written/read so far.
type Stream struct {
	data   []byte
	offset int
}

// NewReader wraps data for decoding.
func NewReader(data []byte) *Stream {
	return &Stream{data: data}
}

// NewWriter returns an empty Stream ready for encoding.
func NewWriter() *Stream {
	return &Stream{data: make([]byte, 0, 64)}
}

// Bytes returns the accumulated (or wrapped) buffer.
func (s *Stream) Bytes() []byte { return s.data }

// Len reports how many bytes have been consumed (reader) or written
// (writer) so far.
func (s *Stream) Len() int { return s.offset }

// Remaining reports how many unread bytes are left in a reader.
func (s *Stream) Remaining() int { return len(s.data) - s.offset }

func (s *Stream) need(n int) error {
	if s.offset+n > len(s.data) {
		return fmt.Errorf("wire: short buffer: need %d bytes, have %d", n, s.Remaining())
	}
	return nil
}

// ReadUint8 reads a single byte.
func (s *Stream) ReadUint8() (uint8, error) {
	if err := s.need(1); err != nil {
		return 0, err
	}
	b := s.data[s.offset]
	s.offset++
	return b, nil
}

// WriteUint8 appends a single byte.
func (s *Stream) WriteUint8(v uint8) {
	s.data = append(s.data, v)
	s.offset++
}

// ReadBytes reads n raw bytes. The returned slice aliases the underlying
// buffer and must not be retained past the next mutation of it.
func (s *Stream) ReadBytes(n int) ([]byte, error) {
	if err := s.need(n); err != nil {
		return nil, err
	}
	b := s.data[s.offset : s.offset+n]
	s.offset += n
	return b, nil
}

// WriteBytes appends raw bytes verbatim.
func (s *Stream) WriteBytes(b []byte) {
	s.data = append(s.data, b...)
	s.offset += len(b)
}

// ReadUint16 reads a big-endian uint16.
func (s *Stream) ReadUint16() (uint16, error) {
	b, err := s.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// WriteUint16 appends a big-endian uint16.
func (s *Stream) WriteUint16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	s.WriteBytes(b[:])
}

// ReadUint24 reads a big-endian 24-bit unsigned integer.
func (s *Stream) ReadUint24() (uint32, error) {
	b, err := s.ReadBytes(3)
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), nil
}

// WriteUint24 appends a big-endian 24-bit unsigned integer. The top byte of
// v is ignored.
func (s *Stream) WriteUint24(v uint32) {
	s.WriteBytes([]byte{byte(v >> 16), byte(v >> 8), byte(v)})
}

// ReadUint32 reads a big-endian uint32.
func (s *Stream) ReadUint32() (uint32, error) {
	b, err := s.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// WriteUint32 appends a big-endian uint32.
func (s *Stream) WriteUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.WriteBytes(b[:])
}

// ReadUint64 reads a big-endian uint64.
func (s *Stream) ReadUint64() (uint64, error) {
	b, err := s.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// WriteUint64 appends a big-endian uint64.
func (s *Stream) WriteUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	s.WriteBytes(b[:])
}

// ReadFloat32 reads a big-endian IEEE-754 float32, encoded as its bit
// pattern via Uint32.
func (s *Stream) ReadFloat32() (float32, error) {
	bits, err := s.ReadUint32()
	if err != nil {
		return 0, err
	}
	return float32FromBits(bits), nil
}

// WriteFloat32 appends a big-endian IEEE-754 float32.
func (s *Stream) WriteFloat32(f float32) {
	s.WriteUint32(float32ToBits(f))
}

// ReadVarUint32 reads an unsigned LEB128 varint.
func (s *Stream) ReadVarUint32() (uint32, error) {
	var result uint32
	for shift := uint(0); shift < 35; shift += 7 {
		b, err := s.ReadUint8()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
	}
	return 0, fmt.Errorf("wire: varint32 too long")
}

// WriteVarUint32 appends an unsigned LEB128 varint.
func (s *Stream) WriteVarUint32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			s.WriteUint8(b | 0x80)
		} else {
			s.WriteUint8(b)
			return
		}
	}
}

// ReadVarInt32 reads a zig-zag-encoded signed varint.
func (s *Stream) ReadVarInt32() (int32, error) {
	u, err := s.ReadVarUint32()
	if err != nil {
		return 0, err
	}
	return int32(u>>1) ^ -int32(u&1), nil
}

// WriteVarInt32 appends a zig-zag-encoded signed varint.
func (s *Stream) WriteVarInt32(v int32) {
	s.WriteVarUint32(uint32(v<<1) ^ uint32(v>>31))
}

// ReadVarUint64 reads an unsigned LEB128 varint.
func (s *Stream) ReadVarUint64() (uint64, error) {
	var result uint64
	for shift := uint(0); shift < 70; shift += 7 {
		b, err := s.ReadUint8()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
	}
	return 0, fmt.Errorf("wire: varint64 too long")
}

// WriteVarUint64 appends an unsigned LEB128 varint.
func (s *Stream) WriteVarUint64(v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			s.WriteUint8(b | 0x80)
		} else {
			s.WriteUint8(b)
			return
		}
	}
}

// ReadVarInt64 reads a zig-zag-encoded signed varint.
func (s *Stream) ReadVarInt64() (int64, error) {
	u, err := s.ReadVarUint64()
	if err != nil {
		return 0, err
	}
	return int64(u>>1) ^ -int64(u&1), nil
}

// WriteVarInt64 appends a zig-zag-encoded signed varint.
func (s *Stream) WriteVarInt64(v int64) {
	s.WriteVarUint64(uint64(v<<1) ^ uint64(v>>63))
}

// ReadString reads a varint-length-prefixed UTF-8 string.
func (s *Stream) ReadString() (string, error) {
	n, err := s.ReadVarUint32()
	if err != nil {
		return "", err
	}
	b, err := s.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// WriteString appends a varint-length-prefixed UTF-8 string.
func (s *Stream) WriteString(str string) {
	s.WriteVarUint32(uint32(len(str)))
	s.WriteBytes([]byte(str))
}

// ReadAddress reads an address record: a version byte, 4 or 16 address
// bytes (IPv4 octets are bitwise-complemented on the wire), then a
// big-endian port.
func (s *Stream) ReadAddress() (*net.UDPAddr, error) {
	version, err := s.ReadUint8()
	if err != nil {
		return nil, err
	}
	var ip net.IP
	switch version {
	case 4:
		b, err := s.ReadBytes(4)
		if err != nil {
			return nil, err
		}
		octets := [4]byte{^b[0], ^b[1], ^b[2], ^b[3]}
		ip = net.IPv4(octets[0], octets[1], octets[2], octets[3])
	case 6:
		b, err := s.ReadBytes(16)
		if err != nil {
			return nil, err
		}
		ip = append(net.IP(nil), b...)
	default:
		return nil, fmt.Errorf("wire: unsupported address version %d", version)
	}
	port, err := s.ReadUint16()
	if err != nil {
		return nil, err
	}
	return &net.UDPAddr{IP: ip, Port: int(port)}, nil
}

// WriteAddress appends an address record in the format ReadAddress expects.
func (s *Stream) WriteAddress(addr *net.UDPAddr) {
	if v4 := addr.IP.To4(); v4 != nil {
		s.WriteUint8(4)
		s.WriteBytes([]byte{^v4[0], ^v4[1], ^v4[2], ^v4[3]})
	} else {
		s.WriteUint8(6)
		v6 := addr.IP.To16()
		s.WriteBytes(v6)
	}
	s.WriteUint16(uint16(addr.Port))
}
