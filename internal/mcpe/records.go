package mcpe

import "github.com/duskwind/bedrockd/internal/wire"

// Vector3 is a float position or velocity.
type Vector3 struct {
	X, Y, Z float32
}

func readVector3(r *wire.Stream) (Vector3, error) {
	var v Vector3
	var err error
	if v.X, err = r.ReadFloat32(); err != nil {
		return v, err
	}
	if v.Y, err = r.ReadFloat32(); err != nil {
		return v, err
	}
	if v.Z, err = r.ReadFloat32(); err != nil {
		return v, err
	}
	return v, nil
}

func writeVector3(w *wire.Stream, v Vector3) {
	w.WriteFloat32(v.X)
	w.WriteFloat32(v.Y)
	w.WriteFloat32(v.Z)
}

// Rotation is yaw/pitch/head-yaw, all degrees.
type Rotation struct {
	Pitch, Yaw, HeadYaw float32
}

func readRotation(r *wire.Stream) (Rotation, error) {
	var rot Rotation
	var err error
	if rot.Pitch, err = r.ReadFloat32(); err != nil {
		return rot, err
	}
	if rot.Yaw, err = r.ReadFloat32(); err != nil {
		return rot, err
	}
	if rot.HeadYaw, err = r.ReadFloat32(); err != nil {
		return rot, err
	}
	return rot, nil
}

func writeRotation(w *wire.Stream, rot Rotation) {
	w.WriteFloat32(rot.Pitch)
	w.WriteFloat32(rot.Yaw)
	w.WriteFloat32(rot.HeadYaw)
}

// BlockPosition is an integer block coordinate.
type BlockPosition struct {
	X, Y, Z int32
}

func readBlockPosition(r *wire.Stream) (BlockPosition, error) {
	var p BlockPosition
	x, err := r.ReadVarInt32()
	if err != nil {
		return p, err
	}
	y, err := r.ReadVarInt32()
	if err != nil {
		return p, err
	}
	z, err := r.ReadVarInt32()
	if err != nil {
		return p, err
	}
	return BlockPosition{X: x, Y: y, Z: z}, nil
}

func writeBlockPosition(w *wire.Stream, p BlockPosition) {
	w.WriteVarInt32(p.X)
	w.WriteVarInt32(p.Y)
	w.WriteVarInt32(p.Z)
}

// ItemStack is a single inventory slot: an item ID of 0 is empty, in which
// case Count and Meta are not carried on the wire. The server only ever
// sends slots (INVENTORY_CONTENT, MOB_EQUIPMENT, INVENTORY_SLOT), so there
// is no matching reader.
type ItemStack struct {
	ID    int32
	Count uint8
	Meta  int16
}

func writeItemStack(w *wire.Stream, it ItemStack) {
	w.WriteVarInt32(it.ID)
	if it.ID == 0 {
		return
	}
	w.WriteVarUint32(uint32(it.Count) | uint32(uint16(it.Meta))<<8)
}

// IdentityChain is the decoded LOGIN packet identity payload: the JSON
// claim chain PyMineHub's client sends unsigned (no certificate
// verification, per the explicit cryptography non-goal).
type IdentityChain struct {
	XUID        string `json:"XUID"`
	Identity    string `json:"identity"`
	DisplayName string `json:"displayName"`
}

type identityClaim struct {
	ExtraData IdentityChain `json:"extraData"`
}
