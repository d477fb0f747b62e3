package wire

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrimitiveRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteUint8(0x42)
	w.WriteUint16(1234)
	w.WriteUint24(0xABCDEF)
	w.WriteUint32(567890)
	w.WriteUint64(1 << 40)
	w.WriteFloat32(3.25)
	w.WriteString("hello bedrock")

	r := NewReader(w.Bytes())

	u8, err := r.ReadUint8()
	require.NoError(t, err)
	assert.EqualValues(t, 0x42, u8)

	u16, err := r.ReadUint16()
	require.NoError(t, err)
	assert.EqualValues(t, 1234, u16)

	u24, err := r.ReadUint24()
	require.NoError(t, err)
	assert.EqualValues(t, 0xABCDEF, u24)

	u32, err := r.ReadUint32()
	require.NoError(t, err)
	assert.EqualValues(t, 567890, u32)

	u64, err := r.ReadUint64()
	require.NoError(t, err)
	assert.EqualValues(t, 1<<40, u64)

	f32, err := r.ReadFloat32()
	require.NoError(t, err)
	assert.EqualValues(t, 3.25, f32)

	str, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "hello bedrock", str)

	assert.Zero(t, r.Remaining())
}

func TestVarintRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 127, 128, -128, 300000, -300000, 1 << 33, -(1 << 33)}
	for _, v := range values {
		w := NewWriter()
		w.WriteVarInt64(v)
		r := NewReader(w.Bytes())
		got, err := r.ReadVarInt64()
		require.NoError(t, err)
		assert.Equal(t, v, got, "round trip of %d", v)
	}
}

func TestVarUint32RoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 16384, 0xFFFFFFFF}
	for _, v := range values {
		w := NewWriter()
		w.WriteVarUint32(v)
		r := NewReader(w.Bytes())
		got, err := r.ReadVarUint32()
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestAddressIPv4ComplementsOctets(t *testing.T) {
	w := NewWriter()
	addr := &net.UDPAddr{IP: net.IPv4(192, 168, 1, 100), Port: 19132}
	w.WriteAddress(addr)

	raw := w.Bytes()
	require.Equal(t, byte(4), raw[0])
	assert.Equal(t, byte(^byte(192)), raw[1])
	assert.Equal(t, byte(^byte(168)), raw[2])

	r := NewReader(raw)
	got, err := r.ReadAddress()
	require.NoError(t, err)
	assert.True(t, got.IP.Equal(addr.IP))
	assert.Equal(t, addr.Port, got.Port)
}

func TestAddressIPv6RoundTrip(t *testing.T) {
	w := NewWriter()
	addr := &net.UDPAddr{IP: net.ParseIP("::1"), Port: 19133}
	w.WriteAddress(addr)

	r := NewReader(w.Bytes())
	got, err := r.ReadAddress()
	require.NoError(t, err)
	assert.True(t, got.IP.Equal(addr.IP))
	assert.Equal(t, addr.Port, got.Port)
}

func TestShortBufferErrors(t *testing.T) {
	r := NewReader([]byte{0x01})
	_, err := r.ReadUint32()
	assert.Error(t, err)
}
