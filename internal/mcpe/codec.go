package mcpe

import (
	"fmt"
	"net"

	"github.com/duskwind/bedrockd/internal/wire"
)

// ConnectionPacket is a decoded packet from the layer directly inside a
// RakNet reliable stream, one below game packets: pings, the
// RakNet-flavoured handshake (CONNECTION_REQUEST/ACCEPTED/NEW_INCOMING),
// and BATCH (the game packet container).
type ConnectionPacket struct {
	ID ConnectionPacketID

	// ConnectedPing / ConnectedPong
	PingTime int64
	PongTime int64

	// ConnectionRequest
	ClientGUID  int64
	RequestTime int64

	// ConnectionRequestAccepted / NewIncomingConnection
	ClientAddress     *net.UDPAddr
	SystemIndex       uint16
	InternalAddresses []*net.UDPAddr
	RequestTimeEcho   int64
	AcceptedTime      int64

	// Batch
	SubPackets [][]byte
}

const internalAddressCount = 20

// EncodeConnectionPacket serializes p, including its leading tag byte.
func EncodeConnectionPacket(p ConnectionPacket, threshold int) ([]byte, error) {
	switch p.ID {
	case Batch:
		return EncodeBatch(p.SubPackets, threshold)
	case ConnectedPing:
		w := wire.NewWriter()
		w.WriteUint8(uint8(ConnectedPing))
		w.WriteUint64(uint64(p.PingTime))
		return w.Bytes(), nil
	case ConnectedPong:
		w := wire.NewWriter()
		w.WriteUint8(uint8(ConnectedPong))
		w.WriteUint64(uint64(p.PingTime))
		w.WriteUint64(uint64(p.PongTime))
		return w.Bytes(), nil
	case ConnectionRequestAccepted:
		w := wire.NewWriter()
		w.WriteUint8(uint8(ConnectionRequestAccepted))
		w.WriteAddress(p.ClientAddress)
		w.WriteUint16(p.SystemIndex)
		for i := 0; i < internalAddressCount; i++ {
			w.WriteAddress(zeroAddr())
		}
		w.WriteUint64(uint64(p.RequestTimeEcho))
		w.WriteUint64(uint64(p.AcceptedTime))
		return w.Bytes(), nil
	case DisconnectionNotification:
		return []byte{byte(DisconnectionNotification)}, nil
	default:
		return nil, fmt.Errorf("mcpe: no encoder for connection packet id 0x%02x", p.ID)
	}
}

func zeroAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.IPv4(0, 0, 0, 0), Port: 0}
}

// DecodeConnectionPacket reads one ConnectionPacket from data (including
// its leading tag byte).
func DecodeConnectionPacket(data []byte) (ConnectionPacket, error) {
	if len(data) == 0 {
		return ConnectionPacket{}, fmt.Errorf("mcpe: empty connection packet")
	}
	id := ConnectionPacketID(data[0])
	if id == Batch {
		sub, err := DecodeBatch(data[1:])
		if err != nil {
			return ConnectionPacket{}, err
		}
		return ConnectionPacket{ID: Batch, SubPackets: sub}, nil
	}

	r := wire.NewReader(data[1:])
	switch id {
	case ConnectedPing:
		t, err := r.ReadUint64()
		if err != nil {
			return ConnectionPacket{}, err
		}
		return ConnectionPacket{ID: id, PingTime: int64(t)}, nil
	case ConnectionRequest:
		guid, err := r.ReadUint64()
		if err != nil {
			return ConnectionPacket{}, err
		}
		reqTime, err := r.ReadUint64()
		if err != nil {
			return ConnectionPacket{}, err
		}
		if _, err := r.ReadUint8(); err != nil { // security flag, always false
			return ConnectionPacket{}, err
		}
		return ConnectionPacket{ID: id, ClientGUID: int64(guid), RequestTime: int64(reqTime)}, nil
	case NewIncomingConnection:
		addr, err := r.ReadAddress()
		if err != nil {
			return ConnectionPacket{}, err
		}
		for i := 0; i < internalAddressCount; i++ {
			if _, err := r.ReadAddress(); err != nil {
				return ConnectionPacket{}, err
			}
		}
		serverTime, err := r.ReadUint64()
		if err != nil {
			return ConnectionPacket{}, err
		}
		clientTime, err := r.ReadUint64()
		if err != nil {
			return ConnectionPacket{}, err
		}
		return ConnectionPacket{
			ID: id, ClientAddress: addr,
			RequestTimeEcho: int64(serverTime), AcceptedTime: int64(clientTime),
		}, nil
	case DisconnectionNotification:
		return ConnectionPacket{ID: id}, nil
	default:
		return ConnectionPacket{}, fmt.Errorf("mcpe: no decoder for connection packet id 0x%02x", id)
	}
}
